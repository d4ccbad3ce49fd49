package scheduler_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/tilemud/internal/game/scheduler"
)

type testEvent struct {
	id    uuid.UUID
	owner uint32
	kind  string
	name  string
}

func newEvent(owner uint32, kind, name string) *testEvent {
	return &testEvent{id: uuid.New(), owner: owner, kind: kind, name: name}
}

func (e *testEvent) EventID() uuid.UUID { return e.id }
func (e *testEvent) OwnerID() uint32    { return e.owner }
func (e *testEvent) EventType() string  { return e.kind }

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newScheduler(t *testing.T) (*scheduler.Scheduler, *fakeClock) {
	t.Helper()
	clock := &fakeClock{now: time.Unix(1_000_000, 0)}
	return scheduler.New(zaptest.NewLogger(t), scheduler.WithClock(clock.Now)), clock
}

func collect(names *[]string) scheduler.Handler {
	return func(_ context.Context, ev scheduler.Event) {
		*names = append(*names, ev.(*testEvent).name)
	}
}

func TestScheduler_RunsDueEventsInOrder(t *testing.T) {
	s, clock := newScheduler(t)
	s.Schedule(newEvent(1, "op", "late"), 2*time.Second)
	s.Schedule(newEvent(1, "op", "first"), 0)
	s.Schedule(newEvent(2, "op", "second"), 0)
	s.Schedule(newEvent(1, "op", "middle"), time.Second)

	var got []string
	assert.Equal(t, 2, s.ProcessDue(context.Background(), collect(&got)))
	assert.Equal(t, []string{"first", "second"}, got)

	clock.Advance(2 * time.Second)
	s.ProcessDue(context.Background(), collect(&got))
	assert.Equal(t, []string{"first", "second", "middle", "late"}, got)
	assert.Zero(t, s.Len())
}

func TestScheduler_CancelAllFor(t *testing.T) {
	s, clock := newScheduler(t)
	s.Schedule(newEvent(1, "walk", "walk-1"), time.Second)
	s.Schedule(newEvent(1, "walk", "walk-2"), 2*time.Second)
	s.Schedule(newEvent(1, "speech", "speech"), time.Second)
	s.Schedule(newEvent(2, "walk", "other-walk"), time.Second)

	assert.Equal(t, 2, s.CancelAllFor(1, "walk"))
	assert.Equal(t, 2, s.Len())

	clock.Advance(time.Hour)
	var got []string
	s.ProcessDue(context.Background(), collect(&got))
	assert.Equal(t, []string{"speech", "other-walk"}, got)
}

func TestScheduler_EventsScheduledByHandlersWaitForNextPass(t *testing.T) {
	s, _ := newScheduler(t)
	s.Schedule(newEvent(1, "op", "parent"), 0)

	var got []string
	handler := func(ctx context.Context, ev scheduler.Event) {
		got = append(got, ev.(*testEvent).name)
		s.Schedule(newEvent(1, "op", "child"), 0)
	}
	assert.Equal(t, 1, s.ProcessDue(context.Background(), handler))
	assert.Equal(t, 1, s.Len())
}

func TestScheduler_RecoversHandlerPanic(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	s := scheduler.New(zap.New(core))
	s.Schedule(newEvent(1, "op", "boom"), 0)
	s.Schedule(newEvent(1, "op", "after"), 0)

	var got []string
	handled := s.ProcessDue(context.Background(), func(_ context.Context, ev scheduler.Event) {
		name := ev.(*testEvent).name
		if name == "boom" {
			panic("handler failure")
		}
		got = append(got, name)
	})
	assert.Equal(t, 2, handled)
	assert.Equal(t, []string{"after"}, got)
	assert.Equal(t, 1, logs.Len())
}

func TestScheduler_RunStopsOnCancel(t *testing.T) {
	s := scheduler.New(zaptest.NewLogger(t))
	ctx, cancel := context.WithCancel(context.Background())
	ran := make(chan string, 1)
	done := make(chan error, 1)
	go func() {
		done <- s.Run(ctx, func(_ context.Context, ev scheduler.Event) {
			ran <- ev.(*testEvent).name
		})
	}()

	s.Schedule(newEvent(1, "op", "soon"), 10*time.Millisecond)
	select {
	case name := <-ran:
		assert.Equal(t, "soon", name)
	case <-time.After(5 * time.Second):
		t.Fatal("event never ran")
	}
	cancel()
	select {
	case err := <-done:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return")
	}
}

func TestProperty_DueOrderIsNonDecreasing(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		clock := &fakeClock{now: time.Unix(0, 0)}
		s := scheduler.New(zap.NewNop(), scheduler.WithClock(clock.Now))
		n := rapid.IntRange(1, 40).Draw(rt, "n")
		delays := make(map[string]time.Duration, n)
		for i := 0; i < n; i++ {
			d := time.Duration(rapid.IntRange(0, 50).Draw(rt, "delay")) * time.Millisecond
			name := uuid.NewString()
			delays[name] = d
			s.Schedule(newEvent(uint32(i), "op", name), d)
		}
		clock.Advance(time.Second)
		var got []string
		s.ProcessDue(context.Background(), collect(&got))
		if len(got) != n {
			rt.Fatalf("handled %d of %d", len(got), n)
		}
		for i := 1; i < len(got); i++ {
			if delays[got[i]] < delays[got[i-1]] {
				rt.Fatalf("event %d ran before an earlier-due event", i)
			}
		}
	})
}
