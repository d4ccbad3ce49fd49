package gameserver_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/cory-johannsen/tilemud/internal/game/world"
	"github.com/cory-johannsen/tilemud/internal/gameserver"
)

// registeringLogIn registers creatures immediately, standing in for a
// LogInOperation that has already run.
type registeringLogIn struct {
	registry *world.CreatureRegistry
	calls    atomic.Int64
	fail     bool
}

func (r *registeringLogIn) LogIn(c *world.Creature, _ world.Location) error {
	r.calls.Add(1)
	if r.fail {
		return errors.New("no room")
	}
	return r.registry.RegisterCreature(c)
}

func rats(count int, respawn time.Duration) []world.SpawnPoint {
	return []world.SpawnPoint{{Name: "rat", Location: at(5, 5), Count: count, RespawnAfter: respawn}}
}

func TestSpawnManager_PopulatesThenRespawnsAfterDelay(t *testing.T) {
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	registry := world.NewCreatureRegistry()
	login := &registeringLogIn{registry: registry}
	sm := gameserver.NewSpawnManager(registry, world.NewCreatureFactory(1000), login, time.Second, zaptest.NewLogger(t))
	sm.Register("sewers", rats(2, 10*time.Second))

	assert.Equal(t, 2, sm.Tick(t0))
	assert.Equal(t, 2, registry.Count())
	assert.Equal(t, 0, sm.Tick(t0.Add(time.Second)))

	victim := registry.AllCreatures()[0]
	require.NoError(t, registry.UnregisterCreature(victim.ID()))

	assert.Equal(t, 0, sm.Tick(t0.Add(5*time.Second)), "respawn waits for the delay")
	assert.Equal(t, 0, sm.Tick(t0.Add(14*time.Second)))
	assert.Equal(t, 1, sm.Tick(t0.Add(15*time.Second)))
	assert.Equal(t, 2, registry.Count())
	for _, c := range registry.AllCreatures() {
		assert.Equal(t, "rat", c.Name())
	}
}

func TestSpawnManager_PendingLogInIsNotLost(t *testing.T) {
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	registry := world.NewCreatureRegistry()
	var queued atomic.Int64
	login := gameserver.LogInner(logInFunc(func(*world.Creature, world.Location) error {
		queued.Add(1)
		return nil
	}))
	sm := gameserver.NewSpawnManager(registry, world.NewCreatureFactory(1), login, time.Second, zaptest.NewLogger(t))
	sm.Register("sewers", rats(1, 0))

	assert.Equal(t, 1, sm.Tick(t0))
	assert.Equal(t, 0, sm.Tick(t0.Add(500*time.Millisecond)), "the first log in may still be queued")
	assert.Equal(t, 1, sm.Tick(t0.Add(2*time.Second)), "a log in that never happened is replaced")
	assert.Equal(t, int64(2), queued.Load())
}

type logInFunc func(*world.Creature, world.Location) error

func (f logInFunc) LogIn(c *world.Creature, loc world.Location) error { return f(c, loc) }

func TestSpawnManager_LogInFailureStopsThePoint(t *testing.T) {
	registry := world.NewCreatureRegistry()
	login := &registeringLogIn{registry: registry, fail: true}
	sm := gameserver.NewSpawnManager(registry, world.NewCreatureFactory(1), login, time.Second, zaptest.NewLogger(t))
	sm.Register("sewers", rats(3, 0))

	assert.Equal(t, 0, sm.Tick(time.Now()))
	assert.Equal(t, int64(1), login.calls.Load())
}

func TestSpawnManager_UnregisterStopsSpawning(t *testing.T) {
	registry := world.NewCreatureRegistry()
	login := &registeringLogIn{registry: registry}
	sm := gameserver.NewSpawnManager(registry, world.NewCreatureFactory(1), login, time.Second, zaptest.NewLogger(t))
	sm.Register("sewers", rats(2, 0))
	sm.Unregister("sewers")

	assert.Equal(t, 0, sm.Tick(time.Now()))
}

func TestSpawnManager_RunSpawnsImmediately(t *testing.T) {
	registry := world.NewCreatureRegistry()
	login := &registeringLogIn{registry: registry}
	sm := gameserver.NewSpawnManager(registry, world.NewCreatureFactory(1), login, time.Hour, zaptest.NewLogger(t))
	sm.Register("sewers", rats(2, 0))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- sm.Run(ctx) }()
	require.Eventually(t, func() bool { return registry.Count() == 2 }, 2*time.Second, 5*time.Millisecond)
	cancel()
	assert.NoError(t, <-done)
}
