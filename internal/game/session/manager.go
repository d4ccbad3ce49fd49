package session

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/cory-johannsen/tilemud/internal/game/notification"
	"github.com/cory-johannsen/tilemud/internal/game/world"
)

var (
	// ErrAlreadyConnected is returned when a creature connects twice.
	ErrAlreadyConnected = errors.New("session: creature already connected")
	// ErrNotConnected is returned for an unknown creature.
	ErrNotConnected = errors.New("session: creature not connected")
)

// Locator returns where a creature stands.
type Locator func(creatureID uint32) (world.Location, bool)

// Manager tracks every connected player. All methods are safe for concurrent use.
type Manager struct {
	mu         sync.RWMutex
	conns      map[uint32]*Connection
	locate     Locator
	bufferSize int
}

// NewManager returns an empty Manager.
//
// Precondition: locate must not be nil.
func NewManager(locate Locator, bufferSize int) *Manager {
	if locate == nil {
		panic("session.NewManager: locate must not be nil")
	}
	return &Manager{conns: make(map[uint32]*Connection), locate: locate, bufferSize: bufferSize}
}

// Connect opens a connection for a player creature.
//
// Postcondition: returns ErrAlreadyConnected when the creature has one.
func (m *Manager) Connect(creatureID uint32, name string, now time.Time) (*Connection, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.conns[creatureID]; exists {
		return nil, fmt.Errorf("creature %d: %w", creatureID, ErrAlreadyConnected)
	}
	c := NewConnection(creatureID, name, m.bufferSize, now)
	m.conns[creatureID] = c
	return c, nil
}

// Disconnect closes and forgets the creature's connection.
func (m *Manager) Disconnect(creatureID uint32) error {
	m.mu.Lock()
	c, ok := m.conns[creatureID]
	delete(m.conns, creatureID)
	m.mu.Unlock()
	if !ok {
		return fmt.Errorf("creature %d: %w", creatureID, ErrNotConnected)
	}
	return c.Close()
}

// Connection returns the creature's connection.
func (m *Manager) Connection(creatureID uint32) (*Connection, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.conns[creatureID]
	return c, ok
}

// FindByCreatureID implements notification.ConnectionFinder.
func (m *Manager) FindByCreatureID(creatureID uint32) (notification.Connection, bool) {
	c, ok := m.Connection(creatureID)
	if !ok {
		return nil, false
	}
	return c, true
}

// PlayersThatCanSee returns the connected players whose client window covers
// loc, in ascending id order.
func (m *Manager) PlayersThatCanSee(loc world.Location) []uint32 {
	if loc.Type() != world.LocationMap {
		return nil
	}
	var out []uint32
	for _, id := range m.CreatureIDs() {
		at, ok := m.locate(id)
		if ok && at.CanSee(loc) {
			out = append(out, id)
		}
	}
	return out
}

// CreatureIDs returns every connected creature id in ascending order.
func (m *Manager) CreatureIDs() []uint32 {
	m.mu.RLock()
	ids := make([]uint32, 0, len(m.conns))
	for id := range m.conns {
		ids = append(ids, id)
	}
	m.mu.RUnlock()
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Count returns the number of connected players.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.conns)
}

// Touch records player activity and clears any idle warning.
func (m *Manager) Touch(creatureID uint32, now time.Time) {
	if c, ok := m.Connection(creatureID); ok {
		c.touch(now)
	}
}

// Idle returns the players inactive for longer than after, in ascending id order.
func (m *Manager) Idle(now time.Time, after time.Duration) []uint32 {
	var out []uint32
	for _, id := range m.CreatureIDs() {
		c, ok := m.Connection(id)
		if ok && now.Sub(c.LastActive()) > after {
			out = append(out, id)
		}
	}
	return out
}

// MarkWarned records that the player was warned about idling. It returns
// false when a warning was already given since the last activity.
func (m *Manager) MarkWarned(creatureID uint32) bool {
	c, ok := m.Connection(creatureID)
	if !ok {
		return false
	}
	return c.markWarned()
}

var _ notification.ConnectionFinder = (*Manager)(nil)
