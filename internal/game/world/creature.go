package world

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

const (
	// DefaultCreatureSpeed is the speed of creatures created without one.
	DefaultCreatureSpeed = 220
	// groundFriction scales a creature's speed into a step duration.
	groundFriction = 150
)

// Creature is a player or NPC standing on a tile.
type Creature struct {
	mu         sync.Mutex
	id         uint32
	name       string
	player     bool
	speed      int
	direction  Direction
	tile       *Tile
	slots      [slotCount]*EquipmentSlot
	exhaustion map[ExhaustionType]time.Time
}

// ID returns the creature id.
func (c *Creature) ID() uint32 { return c.id }

// Name returns the display name.
func (c *Creature) Name() string { return c.name }

// IsPlayer reports whether a connection drives this creature.
func (c *Creature) IsPlayer() bool { return c.player }

// ThingID returns CreatureThingID.
func (c *Creature) ThingID() uint16 { return CreatureThingID }

// CanBeMoved reports that creatures may be pushed.
func (c *Creature) CanBeMoved() bool { return true }

// Speed returns the base speed.
func (c *Creature) Speed() int { return c.speed }

// StepDuration is how long one step takes at the creature's speed.
func (c *Creature) StepDuration() time.Duration {
	if c.speed <= 0 {
		return time.Second
	}
	return time.Duration(int64(time.Second) * groundFriction / int64(c.speed))
}

// Direction returns the facing direction.
func (c *Creature) Direction() Direction {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.direction
}

// Turn sets the facing direction.
//
// Precondition: d.IsFacing().
func (c *Creature) Turn(d Direction) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.direction = d
}

// Tile returns the tile the creature stands on, or nil.
func (c *Creature) Tile() *Tile {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tile
}

// Location returns the creature's map location, or the zero location when not placed.
func (c *Creature) Location() Location {
	if t := c.Tile(); t != nil {
		return t.Location()
	}
	return Location{}
}

// ParentCylinder returns the tile the creature stands on, or nil.
func (c *Creature) ParentCylinder() Cylinder {
	if t := c.Tile(); t != nil {
		return t
	}
	return nil
}

// SetParentCylinder binds the creature to a tile.
//
// Precondition: cyl is nil or a *Tile.
func (c *Creature) SetParentCylinder(cyl Cylinder) {
	t, _ := cyl.(*Tile)
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tile = t
}

// Describe returns a description suitable for operator logs.
func (c *Creature) Describe() string {
	return fmt.Sprintf("creature %q (id %d)", c.name, c.id)
}

// Slot returns the equipment slot cylinder for s.
//
// Precondition: s.Valid().
func (c *Creature) Slot(s Slot) (*EquipmentSlot, bool) {
	if !s.Valid() {
		return nil, false
	}
	return c.slots[int(s)-1], true
}

// CooldownExpiry returns when the cooldown of type t expires.
func (c *Creature) CooldownExpiry(t ExhaustionType) time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.exhaustion[t]
}

// RemainingCooldown returns max(0, expiry - now) for type t.
func (c *Creature) RemainingCooldown(t ExhaustionType, now time.Time) time.Duration {
	if t == ExhaustionNone {
		return 0
	}
	expiry := c.CooldownExpiry(t)
	if !expiry.After(now) {
		return 0
	}
	return expiry.Sub(now)
}

// AddExhaustion advances the cooldown of type t by cost, starting from the later
// of now and the current expiry, and returns the new expiry.
//
// Postcondition: the returned expiry >= max(now, previous expiry) + cost.
func (c *Creature) AddExhaustion(t ExhaustionType, now time.Time, cost time.Duration) time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	base := c.exhaustion[t]
	if base.Before(now) {
		base = now
	}
	expiry := base.Add(cost)
	c.exhaustion[t] = expiry
	return expiry
}

// CreatureCreationArgs describes a creature to create.
type CreatureCreationArgs struct {
	// ID is the creature id; 0 asks the factory to allocate one.
	ID     uint32
	Name   string
	Player bool
	// Speed is the base speed; 0 uses DefaultCreatureSpeed.
	Speed int
}

// CreatureFactory creates creatures with unique ids.
type CreatureFactory struct {
	next atomic.Uint32
}

// NewCreatureFactory returns a factory allocating ids from firstID upwards.
func NewCreatureFactory(firstID uint32) *CreatureFactory {
	f := &CreatureFactory{}
	f.next.Store(firstID)
	return f
}

// CreateCreature returns a new unplaced creature with empty equipment.
//
// Postcondition: every slot cylinder exists and is empty; no cooldown is pending.
func (f *CreatureFactory) CreateCreature(args CreatureCreationArgs) *Creature {
	id := args.ID
	if id == 0 {
		id = f.next.Add(1) - 1
	}
	speed := args.Speed
	if speed <= 0 {
		speed = DefaultCreatureSpeed
	}
	c := &Creature{
		id:         id,
		name:       args.Name,
		player:     args.Player,
		speed:      speed,
		direction:  South,
		exhaustion: make(map[ExhaustionType]time.Time),
	}
	for i, s := range AllSlots {
		c.slots[i] = &EquipmentSlot{holder: c, slot: s}
	}
	return c
}
