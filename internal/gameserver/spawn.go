package gameserver

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/tilemud/internal/game/operation"
	"github.com/cory-johannsen/tilemud/internal/game/world"
	"github.com/cory-johannsen/tilemud/internal/observability"
)

// CreatureCreator mints new creatures.
type CreatureCreator interface {
	CreateCreature(args world.CreatureCreationArgs) *world.Creature
}

// LogInner places creatures into the world.
type LogInner interface {
	LogIn(c *world.Creature, loc world.Location) error
}

// spawnState tracks one spawn point.
//
// Invariant: len(live) <= point.Count.
type spawnState struct {
	point world.SpawnPoint
	// live maps creature id to the time it was spawned.
	live map[uint32]time.Time
	// readyAt is the earliest time a lost creature may be replaced.
	readyAt time.Time
}

// SpawnManager keeps every zone's spawn points populated. Creatures that
// leave the world are replaced after their spawn point's respawn delay.
//
// Concurrency: Tick must not be called concurrently with itself; Register
// may be called from any goroutine.
type SpawnManager struct {
	mu        sync.Mutex
	zones     map[string][]*spawnState
	creatures operation.CreatureFinder
	factory   CreatureCreator
	game      LogInner
	interval  time.Duration
	now       func() time.Time
	logger    *zap.Logger
}

// NewSpawnManager returns a manager that ticks every interval.
//
// Precondition: interval > 0; collaborators must not be nil.
func NewSpawnManager(creatures operation.CreatureFinder, factory CreatureCreator, game LogInner, interval time.Duration, logger *zap.Logger) *SpawnManager {
	if interval <= 0 {
		panic("gameserver.NewSpawnManager: interval must be > 0")
	}
	if creatures == nil || factory == nil || game == nil || logger == nil {
		panic("gameserver.NewSpawnManager: creatures, factory, game and logger must not be nil")
	}
	return &SpawnManager{
		zones:     make(map[string][]*spawnState),
		creatures: creatures,
		factory:   factory,
		game:      game,
		interval:  interval,
		now:       time.Now,
		logger:    observability.Component(logger, "spawn"),
	}
}

// Register sets the spawn points of zoneID, replacing earlier ones.
func (s *SpawnManager) Register(zoneID string, points []world.SpawnPoint) {
	states := make([]*spawnState, 0, len(points))
	for _, p := range points {
		if p.Count < 1 {
			continue
		}
		states = append(states, &spawnState{point: p, live: make(map[uint32]time.Time)})
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.zones[zoneID] = states
}

// Unregister forgets the spawn points of zoneID. Creatures already spawned stay.
func (s *SpawnManager) Unregister(zoneID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.zones, zoneID)
}

// Tick replaces lost creatures whose respawn delay has passed and fills
// spawn points that were never populated.
//
// Postcondition: returns the number of creatures sent to log in.
func (s *SpawnManager) Tick(now time.Time) int {
	s.mu.Lock()
	ids := make([]string, 0, len(s.zones))
	for id := range s.zones {
		ids = append(ids, id)
	}
	s.mu.Unlock()
	sort.Strings(ids)

	spawned := 0
	for _, zoneID := range ids {
		s.mu.Lock()
		states := append([]*spawnState(nil), s.zones[zoneID]...)
		s.mu.Unlock()
		for _, st := range states {
			spawned += s.tickPoint(zoneID, st, now)
		}
	}
	return spawned
}

func (s *SpawnManager) tickPoint(zoneID string, st *spawnState, now time.Time) int {
	for id, at := range st.live {
		if _, ok := s.creatures.FindCreatureByID(id); ok {
			continue
		}
		// A creature whose log in is still queued is not lost yet.
		if now.Sub(at) <= s.interval {
			continue
		}
		delete(st.live, id)
		if ready := now.Add(st.point.RespawnAfter); ready.After(st.readyAt) {
			st.readyAt = ready
		}
	}
	if now.Before(st.readyAt) {
		return 0
	}

	spawned := 0
	for len(st.live) < st.point.Count {
		c := s.factory.CreateCreature(world.CreatureCreationArgs{Name: st.point.Name, Speed: st.point.Speed})
		if err := s.game.LogIn(c, st.point.Location); err != nil {
			s.logger.Warn("spawning creature",
				zap.String("zone", zoneID),
				zap.String("name", st.point.Name),
				zap.Stringer("location", st.point.Location),
				zap.Error(err),
			)
			break
		}
		st.live[c.ID()] = now
		spawned++
	}
	return spawned
}

// Run ticks once immediately and then every interval until ctx is cancelled.
func (s *SpawnManager) Run(ctx context.Context) error {
	s.Tick(s.now())
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s.Tick(s.now())
		}
	}
}
