package gameserver_test

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
	"github.com/cory-johannsen/tilemud/internal/game/scheduler"
	"github.com/cory-johannsen/tilemud/internal/game/session"
	"github.com/cory-johannsen/tilemud/internal/game/world"
	"github.com/cory-johannsen/tilemud/internal/gameserver"
)

const (
	typeGrass uint16 = 100
	typeWall  uint16 = 103
	typeCoin  uint16 = 200
	typeSword uint16 = 201
	typeBag   uint16 = 300
)

const floor = 7

func at(x, y int) world.Location { return world.Location{X: x, Y: y, Z: floor} }

// fakeClock is a manually advanced clock.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type execution struct {
	kind   string
	result string
	at     time.Time
}

// recMetrics records executions against the harness clock.
type recMetrics struct {
	gameserver.NopMetrics
	mu       sync.Mutex
	clock    *fakeClock
	executed []execution
	failed   []string
	sent     int
	delays   []time.Duration
}

func (m *recMetrics) OperationExecuted(kind, result string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.executed = append(m.executed, execution{kind: kind, result: result, at: m.clock.Now()})
}

func (m *recMetrics) OperationFailed(kind string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failed = append(m.failed, kind)
}

func (m *recMetrics) NotificationsSent(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent += n
}

func (m *recMetrics) CooldownDelay(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.delays = append(m.delays, d)
}

func (m *recMetrics) executions(kind string) []execution {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []execution
	for _, e := range m.executed {
		if e.kind == kind {
			out = append(out, e)
		}
	}
	return out
}

type harness struct {
	t          *testing.T
	clock      *fakeClock
	m          *world.Map
	items      *world.Factory
	creatures  *world.CreatureRegistry
	cf         *world.CreatureFactory
	sched      *scheduler.Scheduler
	sessions   *session.Manager
	containers *container.Manager
	metrics    *recMetrics
	game       *gameserver.Game
}

// newHarness builds a 10x10 grass floor at z=7 driven by a fake clock.
func newHarness(t *testing.T) *harness {
	t.Helper()
	logger := zaptest.NewLogger(t)
	cat := world.NewCatalog()
	for _, typ := range []*world.ItemType{
		{ID: typeGrass, Name: "grass", CategoryName: "ground"},
		{ID: typeWall, Name: "stone wall", CategoryName: "stay_on_bottom", BlocksPass: true, BlocksThrow: true, BlocksLay: true},
		{ID: typeCoin, Name: "gold coin", Cumulative: true, Movable: true},
		{ID: typeSword, Name: "sword", Movable: true},
		{ID: typeBag, Name: "bag", Movable: true, ContainerCapacity: 8},
	} {
		require.NoError(t, cat.Register(typ))
	}

	h := &harness{
		t:         t,
		clock:     newFakeClock(),
		m:         world.NewMap(),
		items:     world.NewFactory(cat),
		creatures: world.NewCreatureRegistry(),
		cf:        world.NewCreatureFactory(1),
	}
	h.metrics = &recMetrics{clock: h.clock}
	require.NoError(t, h.m.AddZone(&world.Zone{ID: "test"}))
	for x := 0; x < 10; x++ {
		for y := 0; y < 10; y++ {
			tile, err := h.m.CreateTile(at(x, y), "test")
			require.NoError(t, err)
			h.add(tile, h.item(typeGrass, 1))
		}
	}

	h.sched = scheduler.New(logger, scheduler.WithClock(h.clock.Now))
	h.sessions = session.NewManager(func(id uint32) (world.Location, bool) {
		c, ok := h.creatures.FindCreatureByID(id)
		if !ok {
			return world.Location{}, false
		}
		return c.Location(), true
	}, session.DefaultBufferSize)
	h.containers = container.NewManager(logger, h.creatures, notification.NotifierFunc(func(n *notification.Notification) {
		h.sched.Schedule(n, 0)
	}))

	game, err := gameserver.NewGame(gameserver.Dependencies{
		Logger:      logger,
		Tiles:       h.m,
		Items:       h.items,
		Creatures:   h.creatures,
		Containers:  h.containers,
		Scheduler:   h.sched,
		Connections: h.sessions,
		Metrics:     h.metrics,
		Now:         h.clock.Now,
	})
	require.NoError(t, err)
	h.game = game
	return h
}

// pump runs scheduler passes until nothing due is left.
func (h *harness) pump() {
	for i := 0; i < 100; i++ {
		if h.sched.ProcessDue(context.Background(), h.game.HandleEvent) == 0 {
			return
		}
	}
	h.t.Fatal("scheduler did not settle")
}

func (h *harness) advance(d time.Duration) {
	h.clock.Advance(d)
	h.pump()
}

func (h *harness) item(typeID uint16, amount int) *world.Item {
	h.t.Helper()
	it, err := h.items.CreateItem(typeID, amount)
	require.NoError(h.t, err)
	return it
}

func (h *harness) add(c world.Cylinder, thing world.Thing) {
	h.t.Helper()
	ok, rem := c.AddContent(h.items, thing, world.AnyIndex)
	require.True(h.t, ok)
	require.Nil(h.t, rem)
}

func (h *harness) tile(x, y int) *world.Tile {
	h.t.Helper()
	tile, ok := h.m.GetTileAt(at(x, y))
	require.True(h.t, ok)
	return tile
}

// login connects a player and logs it in at loc through the game.
func (h *harness) login(name string, loc world.Location) (*world.Creature, *session.Connection) {
	h.t.Helper()
	c := h.cf.CreateCreature(world.CreatureCreationArgs{Name: name, Player: true})
	conn, err := h.sessions.Connect(c.ID(), name, h.clock.Now())
	require.NoError(h.t, err)
	require.NoError(h.t, h.game.LogIn(c, loc))
	h.pump()
	_, ok := h.creatures.FindCreatureByID(c.ID())
	require.True(h.t, ok, "login of %s did not complete", name)
	drain(conn)
	return c, conn
}

// drain returns every packet buffered on conn.
func drain(conn *session.Connection) []notification.Packet {
	var out []notification.Packet
	for {
		select {
		case batch, ok := <-conn.Packets():
			if !ok {
				return out
			}
			out = append(out, batch...)
		default:
			return out
		}
	}
}

func texts(packets []notification.Packet) []string {
	var out []string
	for _, p := range packets {
		if m, ok := p.(notification.TextMessage); ok {
			out = append(out, m.Text)
		}
	}
	return out
}

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

var _ operation.TileAccessor = (*world.Map)(nil)
