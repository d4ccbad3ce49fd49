package world

import (
	"fmt"
	"sort"
	"sync"
	"time"
)

// SpawnPoint declares how many creatures of one kind a location keeps alive.
type SpawnPoint struct {
	// Name is the creature name to spawn.
	Name string
	// Speed is the base speed of spawned creatures; 0 uses the default.
	Speed int
	// Location is where creatures appear.
	Location Location
	// Count is the number of live creatures to maintain.
	Count int
	// RespawnAfter is the delay between a creature leaving and its replacement.
	RespawnAfter time.Duration
}

// Zone groups the tiles loaded from one map file.
type Zone struct {
	// ID uniquely identifies the zone.
	ID string
	// Name is the display name.
	Name string
	// ScriptDir is the path to the zone's Lua rule scripts. Empty = no scripts.
	ScriptDir string
	// ScriptInstructionLimit overrides the default Lua instruction limit; 0 = default.
	ScriptInstructionLimit int
	// Spawns lists the zone's spawn points.
	Spawns []SpawnPoint
	// StartLocation is where players without a saved location appear.
	StartLocation Location
}

// Map provides thread-safe access to all loaded tiles, indexed by location.
type Map struct {
	mu     sync.RWMutex
	tiles  map[Location]*Tile
	zoneOf map[Location]string
	zones  map[string]*Zone
	order  []string
}

// NewMap returns an empty map.
func NewMap() *Map {
	return &Map{
		tiles:  make(map[Location]*Tile),
		zoneOf: make(map[Location]string),
		zones:  make(map[string]*Zone),
	}
}

// AddZone registers a zone.
//
// Postcondition: returns an error if a zone with the same ID already exists.
func (m *Map) AddZone(z *Zone) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.zones[z.ID]; exists {
		return fmt.Errorf("duplicate zone ID: %q", z.ID)
	}
	m.zones[z.ID] = z
	m.order = append(m.order, z.ID)
	return nil
}

// CreateTile returns the tile at loc, creating it inside zoneID when missing.
//
// Precondition: loc.Type() == LocationMap.
// Postcondition: returns an error if the tile already belongs to another zone.
func (m *Map) CreateTile(loc Location, zoneID string) (*Tile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t, ok := m.tiles[loc]; ok {
		if owner := m.zoneOf[loc]; owner != zoneID {
			return nil, fmt.Errorf("tile %s: already in zone %q, cannot add to %q", loc, owner, zoneID)
		}
		return t, nil
	}
	t := NewTile(loc)
	m.tiles[loc] = t
	m.zoneOf[loc] = zoneID
	return t, nil
}

// GetTileAt returns the tile at loc.
//
// Postcondition: returns (tile, true) if loaded, or (nil, false) otherwise.
func (m *Map) GetTileAt(loc Location) (*Tile, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.tiles[loc]
	return t, ok
}

// ZoneOf returns the id of the zone that owns the tile at loc, or "".
func (m *Map) ZoneOf(loc Location) string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.zoneOf[loc]
}

// Zone returns the zone with id.
func (m *Map) Zone(id string) (*Zone, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	z, ok := m.zones[id]
	return z, ok
}

// Zones returns all zones in load order.
//
// Postcondition: returns a non-nil slice; may be empty.
func (m *Map) Zones() []*Zone {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Zone, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, m.zones[id])
	}
	return out
}

// TileCount returns the number of loaded tiles.
func (m *Map) TileCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.tiles)
}

// StartLocation returns the start location of the first loaded zone.
func (m *Map) StartLocation() (Location, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if len(m.order) == 0 {
		return Location{}, false
	}
	return m.zones[m.order[0]].StartLocation, true
}

// CreatureRegistry indexes the creatures currently in the world.
// All methods are safe for concurrent use.
type CreatureRegistry struct {
	mu        sync.RWMutex
	creatures map[uint32]*Creature
}

// NewCreatureRegistry returns an empty registry.
func NewCreatureRegistry() *CreatureRegistry {
	return &CreatureRegistry{creatures: make(map[uint32]*Creature)}
}

// RegisterCreature adds c.
//
// Postcondition: returns an error if a creature with the same id is registered.
func (r *CreatureRegistry) RegisterCreature(c *Creature) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.creatures[c.id]; exists {
		return fmt.Errorf("creature %d already registered", c.id)
	}
	r.creatures[c.id] = c
	return nil
}

// UnregisterCreature removes the creature with id.
//
// Postcondition: returns an error if it was not registered.
func (r *CreatureRegistry) UnregisterCreature(id uint32) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.creatures[id]; !exists {
		return fmt.Errorf("creature %d not found", id)
	}
	delete(r.creatures, id)
	return nil
}

// FindCreatureByID returns the creature with id.
func (r *CreatureRegistry) FindCreatureByID(id uint32) (*Creature, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.creatures[id]
	return c, ok
}

// AllCreatures returns every registered creature ordered by id.
func (r *CreatureRegistry) AllCreatures() []*Creature {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Creature, 0, len(r.creatures))
	for _, c := range r.creatures {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].id < out[j].id })
	return out
}

// Count returns the number of registered creatures.
func (r *CreatureRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.creatures)
}
