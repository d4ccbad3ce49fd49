// Package scheduler holds the time-ordered queue of pending game events and
// the single consumer loop that executes them.
package scheduler

import (
	"container/heap"
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Event is anything that can be scheduled.
type Event interface {
	// EventID uniquely identifies the event.
	EventID() uuid.UUID
	// OwnerID is the creature the event belongs to; 0 for the system.
	OwnerID() uint32
	// EventType groups events for CancelAllFor.
	EventType() string
}

// Handler executes one due event.
type Handler func(ctx context.Context, ev Event)

type entry struct {
	ev    Event
	due   time.Time
	seq   uint64
	index int
}

// queue orders entries by due time, then by scheduling order.
type queue []*entry

func (q queue) Len() int { return len(q) }

func (q queue) Less(i, j int) bool {
	if q[i].due.Equal(q[j].due) {
		return q[i].seq < q[j].seq
	}
	return q[i].due.Before(q[j].due)
}

func (q queue) Swap(i, j int) {
	q[i], q[j] = q[j], q[i]
	q[i].index = i
	q[j].index = j
}

func (q *queue) Push(x any) {
	e := x.(*entry)
	e.index = len(*q)
	*q = append(*q, e)
}

func (q *queue) Pop() any {
	old := *q
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	*q = old[:n-1]
	e.index = -1
	return e
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) { s.now = now }
}

// Scheduler is a time-ordered event queue. Any goroutine may schedule or
// cancel; exactly one goroutine runs the consumer loop.
//
// Invariant: events with the same due time run in the order they were scheduled.
type Scheduler struct {
	mu     sync.Mutex
	q      queue
	seq    uint64
	wake   chan struct{}
	now    func() time.Time
	logger *zap.Logger
}

// New returns an empty scheduler.
//
// Precondition: logger must not be nil.
func New(logger *zap.Logger, opts ...Option) *Scheduler {
	if logger == nil {
		panic("scheduler.New: logger must not be nil")
	}
	s := &Scheduler{
		wake:   make(chan struct{}, 1),
		now:    time.Now,
		logger: logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Now returns the scheduler's current time.
func (s *Scheduler) Now() time.Time { return s.now() }

// Schedule queues ev to run after delay. A non-positive delay runs it at the
// next opportunity, after events already due.
func (s *Scheduler) Schedule(ev Event, delay time.Duration) {
	if delay < 0 {
		delay = 0
	}
	s.mu.Lock()
	s.seq++
	heap.Push(&s.q, &entry{ev: ev, due: s.now().Add(delay), seq: s.seq})
	s.mu.Unlock()
	s.signal()
}

// CancelAllFor removes every pending event of eventType owned by ownerID.
//
// Postcondition: returns the number of events removed.
func (s *Scheduler) CancelAllFor(ownerID uint32, eventType string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.q[:0]
	removed := 0
	for _, e := range s.q {
		if e.ev.OwnerID() == ownerID && e.ev.EventType() == eventType {
			removed++
			continue
		}
		kept = append(kept, e)
	}
	for i := len(kept); i < len(s.q); i++ {
		s.q[i] = nil
	}
	s.q = kept
	for i, e := range s.q {
		e.index = i
	}
	heap.Init(&s.q)
	return removed
}

// Len returns the number of pending events.
func (s *Scheduler) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.q)
}

// ProcessDue runs, in order, every event that was already queued when the
// pass began and is due now. Events scheduled by the handlers wait for the
// next pass. A panicking handler is logged and does not stop the pass.
//
// Postcondition: returns the number of events handled.
func (s *Scheduler) ProcessDue(ctx context.Context, handler Handler) int {
	s.mu.Lock()
	lastSeq := s.seq
	s.mu.Unlock()
	now := s.now()

	handled := 0
	for {
		if ctx.Err() != nil {
			return handled
		}
		ev, ok := s.popDue(now, lastSeq)
		if !ok {
			return handled
		}
		s.safeHandle(ctx, handler, ev)
		handled++
	}
}

// Run consumes events until ctx is cancelled.
//
// Postcondition: returns ctx.Err() on cancellation.
func (s *Scheduler) Run(ctx context.Context, handler Handler) error {
	timer := time.NewTimer(time.Hour)
	defer timer.Stop()
	for {
		s.ProcessDue(ctx, handler)

		wait := time.Hour
		if next, ok := s.nextDue(); ok {
			wait = max(next.Sub(s.now()), 0)
		}
		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		timer.Reset(wait)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.wake:
		case <-timer.C:
		}
	}
}

func (s *Scheduler) popDue(now time.Time, lastSeq uint64) (Event, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.q) == 0 || s.q[0].due.After(now) || s.q[0].seq > lastSeq {
		return nil, false
	}
	e := heap.Pop(&s.q).(*entry)
	return e.ev, true
}

func (s *Scheduler) nextDue() (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.q) == 0 {
		return time.Time{}, false
	}
	return s.q[0].due, true
}

func (s *Scheduler) signal() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *Scheduler) safeHandle(ctx context.Context, handler Handler, ev Event) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("scheduler: event handler panicked",
				zap.String("event_type", ev.EventType()),
				zap.Uint32("owner", ev.OwnerID()),
				zap.String("event_id", ev.EventID().String()),
				zap.String("panic", fmt.Sprint(r)),
			)
		}
	}()
	handler(ctx, ev)
}
