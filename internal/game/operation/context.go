package operation

import (
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/tilemud/internal/game/notification"
	"github.com/cory-johannsen/tilemud/internal/game/rules"
	"github.com/cory-johannsen/tilemud/internal/game/scheduler"
	"github.com/cory-johannsen/tilemud/internal/game/world"
)

// TileAccessor looks up map tiles.
type TileAccessor interface {
	GetTileAt(loc world.Location) (*world.Tile, bool)
}

// CreatureFinder looks up live creatures.
type CreatureFinder interface {
	FindCreatureByID(id uint32) (*world.Creature, bool)
}

// CreatureManager adds and removes creatures from the world registry.
type CreatureManager interface {
	CreatureFinder
	RegisterCreature(c *world.Creature) error
	UnregisterCreature(id uint32) error
}

// ContainerManager tracks which containers each creature has open.
type ContainerManager interface {
	OpenContainer(creatureID uint32, c *world.Container, atSlot uint8) (uint8, error)
	CloseContainer(creatureID uint32, c *world.Container, atSlot uint8) error
	FindForCreature(creatureID uint32, slot uint8) (*world.Container, bool)
	FindSlotForCreature(creatureID uint32, c *world.Container) (uint8, bool)
	CloseAll(creatureID uint32)
	CloseDistant(creatureID uint32, at world.Location)
	Forget(c *world.Container)
}

// EventScheduler queues events for later execution.
type EventScheduler interface {
	Schedule(ev scheduler.Event, delay time.Duration)
	CancelAllFor(ownerID uint32, eventType string) int
}

// PathFinder plans a walk between two map locations.
type PathFinder interface {
	// FindPath returns the steps from from to to, at most maxSteps long.
	FindPath(from, to world.Location, maxSteps int) ([]world.Direction, bool)
}

// Context bundles the collaborators a regular operation may use.
type Context struct {
	Logger      *zap.Logger
	Tiles       TileAccessor
	Items       world.ItemFactory
	Creatures   CreatureFinder
	Containers  ContainerManager
	Scheduler   EventScheduler
	Paths       PathFinder
	Rules       rules.Dispatcher
	Connections notification.ConnectionFinder
	Ledger      OrphanLedger
	Metrics     Metrics
	// Now returns the current time; defaults to time.Now.
	Now func() time.Time
}

// ElevatedContext additionally lets system operations add and remove creatures.
type ElevatedContext struct {
	Context
	CreatureManager CreatureManager
}

// Validate reports every missing collaborator and fills optional ones with
// no-op defaults.
//
// Postcondition: a nil error means every field is usable.
func (c *ElevatedContext) Validate() error {
	var errs []error
	required := []struct {
		name string
		nil  bool
	}{
		{"logger", c.Logger == nil},
		{"tiles", c.Tiles == nil},
		{"items", c.Items == nil},
		{"creatures", c.Creatures == nil},
		{"containers", c.Containers == nil},
		{"scheduler", c.Scheduler == nil},
		{"paths", c.Paths == nil},
		{"connections", c.Connections == nil},
		{"creature manager", c.CreatureManager == nil},
	}
	for _, r := range required {
		if r.nil {
			errs = append(errs, errors.New("operation context: "+r.name+" must not be nil"))
		}
	}
	if c.Rules == nil {
		c.Rules = rules.Noop{}
	}
	if c.Ledger == nil {
		c.Ledger = NopLedger{}
	}
	if c.Metrics == nil {
		c.Metrics = NopMetrics{}
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	return errors.Join(errs...)
}

func (c *Context) now() time.Time {
	if c.Now == nil {
		return time.Now()
	}
	return c.Now()
}

func (c *Context) notify(n *notification.Notification) {
	c.Scheduler.Schedule(n, 0)
}

// tell sends a status message to a connected player. NPCs have no connection
// and are skipped.
func (c *Context) tell(creatureID uint32, text string) {
	if creatureID == 0 || text == "" {
		return
	}
	if _, ok := c.Connections.FindByCreatureID(creatureID); !ok {
		return
	}
	c.notify(notification.Text(creatureID, text))
}

func (c *Context) tileUpdated(t *world.Tile) {
	loc := t.Location()
	c.notify(notification.ToSpectators([]world.Location{loc},
		notification.TileUpdated{Location: loc, Things: notification.DescribeTile(t)}))
}

func (c *Context) slotUpdated(s *world.EquipmentSlot) {
	var desc *notification.ItemDescriptor
	if it := s.Item(); it != nil {
		d := notification.DescribeItem(it)
		desc = &d
	}
	c.notify(notification.ToCreature(s.Holder().ID(), notification.SlotUpdated{Slot: s.Slot(), Item: desc}))
}

// cylinderChanged tells clients about a tile or slot change. Containers
// report their own changes through their observers.
func (c *Context) cylinderChanged(cyl world.Cylinder) {
	switch v := cyl.(type) {
	case *world.Tile:
		c.tileUpdated(v)
	case *world.EquipmentSlot:
		c.slotUpdated(v)
	}
}

func (c *Context) fire(event rules.EventType, loc world.Location, thing world.Thing, requestor *world.Creature) bool {
	return c.fireArgs(rules.Args{Event: event, Location: loc, Thing: thing, Requestor: requestor})
}

func (c *Context) fireArgs(args rules.Args) bool {
	if c.Rules == nil {
		return false
	}
	return c.Rules.Fire(args)
}

// requestor resolves the creature behind id. The zero id is the system and
// resolves to nil with ok set.
func (c *Context) requestor(id uint32) (*world.Creature, bool) {
	if id == 0 {
		return nil, true
	}
	return c.Creatures.FindCreatureByID(id)
}
