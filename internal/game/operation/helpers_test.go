package operation_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/cory-johannsen/tilemud/internal/game/container"
	"github.com/cory-johannsen/tilemud/internal/game/notification"
	"github.com/cory-johannsen/tilemud/internal/game/operation"
	"github.com/cory-johannsen/tilemud/internal/game/rules"
	"github.com/cory-johannsen/tilemud/internal/game/scheduler"
	"github.com/cory-johannsen/tilemud/internal/game/world"
)

const (
	typeGrass   uint16 = 100
	typeWall    uint16 = 103
	typeCoin    uint16 = 200
	typeSword   uint16 = 201
	typeTable   uint16 = 203
	typeStatue  uint16 = 204
	typeRusty   uint16 = 205
	typeBag     uint16 = 300
	typeSatchel uint16 = 301
)

const testFloor = 7

func testCatalog(t testing.TB) *world.Catalog {
	cat := world.NewCatalog()
	types := []*world.ItemType{
		{ID: typeGrass, Name: "grass", CategoryName: "ground"},
		{ID: typeWall, Name: "stone wall", CategoryName: "stay_on_bottom", BlocksPass: true, BlocksThrow: true, BlocksLay: true},
		{ID: typeCoin, Name: "gold coin", Cumulative: true, Movable: true},
		{ID: typeSword, Name: "sword", Movable: true},
		{ID: typeTable, Name: "table", BlocksPass: true, Movable: true},
		{ID: typeStatue, Name: "statue"},
		{ID: typeRusty, Name: "rusty sword", Movable: true},
		{ID: typeBag, Name: "bag", Movable: true, ContainerCapacity: 8},
		{ID: typeSatchel, Name: "satchel", Movable: true, ContainerCapacity: 2},
	}
	for _, typ := range types {
		if err := cat.Register(typ); err != nil {
			t.Fatalf("registering %s: %v", typ.Name, err)
		}
	}
	return cat
}

// recScheduler records scheduled events instead of running them.
type recScheduler struct {
	mu     sync.Mutex
	events []scheduler.Event
	delays []time.Duration
}

func (s *recScheduler) Schedule(ev scheduler.Event, delay time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
	s.delays = append(s.delays, delay)
}

func (s *recScheduler) CancelAllFor(ownerID uint32, eventType string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.events[:0]
	n := 0
	for _, ev := range s.events {
		if ev.OwnerID() == ownerID && ev.EventType() == eventType {
			n++
			continue
		}
		kept = append(kept, ev)
	}
	s.events = kept
	return n
}

func (s *recScheduler) operations() []operation.Operation {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []operation.Operation
	for _, ev := range s.events {
		if op, ok := ev.(operation.Operation); ok {
			out = append(out, op)
		}
	}
	return out
}

func (s *recScheduler) packets() []notification.Packet {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []notification.Packet
	for _, ev := range s.events {
		if n, ok := ev.(*notification.Notification); ok {
			out = append(out, n.Packets()...)
		}
	}
	return out
}

func (s *recScheduler) texts() []string {
	var out []string
	for _, p := range s.packets() {
		if m, ok := p.(notification.TextMessage); ok {
			out = append(out, m.Text)
		}
	}
	return out
}

func (s *recScheduler) reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = nil
	s.delays = nil
}

type nopConn struct{}

func (nopConn) Send(...notification.Packet) error { return nil }

type conns struct {
	players map[uint32]bool
}

func (c *conns) FindByCreatureID(id uint32) (notification.Connection, bool) {
	if c.players[id] {
		return nopConn{}, true
	}
	return nil, false
}

func (c *conns) PlayersThatCanSee(world.Location) []uint32 { return nil }

// ruleRecorder records fired rules, answers from handle, and runs on hooks.
type ruleRecorder struct {
	fired  []rules.Args
	handle map[rules.EventType]bool
	on     map[rules.EventType]func(rules.Args)
}

func (r *ruleRecorder) Fire(args rules.Args) bool {
	r.fired = append(r.fired, args)
	if hook := r.on[args.Event]; hook != nil {
		hook(args)
	}
	return r.handle[args.Event]
}

func (r *ruleRecorder) events() []rules.EventType {
	out := make([]rules.EventType, 0, len(r.fired))
	for _, a := range r.fired {
		out = append(out, a.Event)
	}
	return out
}

type ledger struct {
	records []operation.OrphanRecord
}

func (l *ledger) RecordOrphan(_ context.Context, rec operation.OrphanRecord) error {
	l.records = append(l.records, rec)
	return nil
}

type counters struct {
	performed int
	failed    int
}

func (c *counters) RollbackPerformed() { c.performed++ }
func (c *counters) RollbackFailed()    { c.failed++ }

// straightPaths walks straight towards the target.
type straightPaths struct{}

func (straightPaths) FindPath(from, to world.Location, maxSteps int) ([]world.Direction, bool) {
	var path []world.Direction
	for cur := from; cur != to && len(path) < maxSteps; {
		d, ok := cur.DirectionTo(to)
		if !ok {
			return nil, false
		}
		path = append(path, d)
		cur = cur.Translate(d)
	}
	return path, len(path) > 0
}

type env struct {
	t          *testing.T
	m          *world.Map
	items      *world.Factory
	creatures  *world.CreatureRegistry
	cf         *world.CreatureFactory
	containers *container.Manager
	sched      *recScheduler
	conns      *conns
	rules      *ruleRecorder
	ledger     *ledger
	metrics    *counters
	ctx        *operation.ElevatedContext
	factory    *operation.Factory
}

// newEnv builds a 10x10 grass floor at z=7 with recording collaborators.
func newEnv(t *testing.T) *env {
	t.Helper()
	logger := zaptest.NewLogger(t)
	e := &env{
		t:         t,
		m:         world.NewMap(),
		items:     world.NewFactory(testCatalog(t)),
		creatures: world.NewCreatureRegistry(),
		cf:        world.NewCreatureFactory(1),
		sched:     &recScheduler{},
		conns:     &conns{players: make(map[uint32]bool)},
		rules:     &ruleRecorder{handle: make(map[rules.EventType]bool), on: make(map[rules.EventType]func(rules.Args))},
		ledger:    &ledger{},
		metrics:   &counters{},
	}
	require.NoError(t, e.m.AddZone(&world.Zone{ID: "test"}))
	for x := 0; x < 10; x++ {
		for y := 0; y < 10; y++ {
			tile, err := e.m.CreateTile(world.Location{X: x, Y: y, Z: testFloor}, "test")
			require.NoError(t, err)
			e.mustAdd(tile, e.item(typeGrass, 1))
		}
	}
	e.containers = container.NewManager(logger, e.creatures, notification.NotifierFunc(func(n *notification.Notification) {
		e.sched.Schedule(n, 0)
	}))
	e.ctx = &operation.ElevatedContext{
		Context: operation.Context{
			Logger:      logger,
			Tiles:       e.m,
			Items:       e.items,
			Creatures:   e.creatures,
			Containers:  e.containers,
			Scheduler:   e.sched,
			Paths:       straightPaths{},
			Rules:       e.rules,
			Connections: e.conns,
			Ledger:      e.ledger,
			Metrics:     e.metrics,
		},
		CreatureManager: e.creatures,
	}
	require.NoError(t, e.ctx.Validate())
	e.factory = operation.NewFactory(operation.DefaultCosts(), e.creatures)
	return e
}

func at(x, y int) world.Location { return world.Location{X: x, Y: y, Z: testFloor} }

func (e *env) tile(x, y int) *world.Tile {
	e.t.Helper()
	tile, ok := e.m.GetTileAt(at(x, y))
	require.True(e.t, ok)
	return tile
}

func (e *env) item(typeID uint16, amount int) *world.Item {
	e.t.Helper()
	it, err := e.items.CreateItem(typeID, amount)
	require.NoError(e.t, err)
	return it
}

func (e *env) mustAdd(c world.Cylinder, thing world.Thing) {
	e.t.Helper()
	ok, rem := c.AddContent(e.items, thing, world.AnyIndex)
	require.True(e.t, ok)
	require.Nil(e.t, rem)
}

// player registers a connected player standing at loc.
func (e *env) player(name string, loc world.Location) *world.Creature {
	e.t.Helper()
	c := e.cf.CreateCreature(world.CreatureCreationArgs{Name: name, Player: true})
	require.NoError(e.t, e.creatures.RegisterCreature(c))
	e.conns.players[c.ID()] = true
	tile, ok := e.m.GetTileAt(loc)
	require.True(e.t, ok)
	e.mustAdd(tile, c)
	return c
}

// equip puts a new bag on the creature's back and returns its container.
func (e *env) equipBag(c *world.Creature) *world.Container {
	e.t.Helper()
	bag := e.item(typeBag, 1)
	slot, ok := c.Slot(world.SlotBack)
	require.True(e.t, ok)
	e.mustAdd(slot, bag)
	return bag.Container()
}

func (e *env) run(args operation.CreationArgs) operation.Result {
	e.t.Helper()
	op, err := e.factory.Create(args)
	require.NoError(e.t, err)
	res, err := operation.Execute(e.ctx, op)
	require.NoError(e.t, err)
	return res
}

func indexOf(t *testing.T, c world.Cylinder, thing world.Thing) uint8 {
	t.Helper()
	idx, ok := c.IndexOf(thing)
	require.True(t, ok)
	return idx
}

// coinTotal sums the coin units held directly by c.
func coinTotal(c world.Cylinder) int {
	total := 0
	for i := 0; i < c.ContentCount(); i++ {
		if th, ok := c.ContentAt(uint8(i)); ok {
			if it, isItem := th.(*world.Item); isItem && it.ThingID() == typeCoin {
				total += it.Amount()
			}
		}
	}
	return total
}
