// Package gameserver wires the world, the operation set and the scheduler into
// the running game, and hosts the background loops that drive it.
package gameserver

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/tilemud/internal/game/notification"
	"github.com/cory-johannsen/tilemud/internal/game/operation"
	"github.com/cory-johannsen/tilemud/internal/game/rules"
	"github.com/cory-johannsen/tilemud/internal/game/scheduler"
	"github.com/cory-johannsen/tilemud/internal/game/world"
	"github.com/cory-johannsen/tilemud/internal/observability"
)

// Scheduler is the event queue the game dispatches into.
type Scheduler interface {
	operation.EventScheduler
	Len() int
}

// Metrics records game-level measurements. The rollback counters come from
// operation.Metrics.
type Metrics interface {
	operation.Metrics
	OperationExecuted(kind, result string)
	OperationFailed(kind string)
	NotificationsSent(n int)
	QueueDepth(n int)
	CooldownDelay(d time.Duration)
}

// NopMetrics discards every measurement.
type NopMetrics struct{ operation.NopMetrics }

func (NopMetrics) OperationExecuted(string, string) {}
func (NopMetrics) OperationFailed(string)           {}
func (NopMetrics) NotificationsSent(int)            {}
func (NopMetrics) QueueDepth(int)                   {}
func (NopMetrics) CooldownDelay(time.Duration)      {}

// Dependencies are the collaborators of a Game.
type Dependencies struct {
	Logger      *zap.Logger
	Tiles       operation.TileAccessor
	Items       world.ItemFactory
	Creatures   operation.CreatureManager
	Containers  operation.ContainerManager
	Scheduler   Scheduler
	Connections notification.ConnectionFinder
	// Paths defaults to a TilePathFinder over Tiles.
	Paths operation.PathFinder
	// Rules defaults to rules.Noop.
	Rules rules.Dispatcher
	// Ledger defaults to operation.NopLedger.
	Ledger operation.OrphanLedger
	// Metrics defaults to NopMetrics.
	Metrics Metrics
	// Costs defaults to operation.DefaultCosts.
	Costs *operation.Costs
	// Now defaults to time.Now. It must agree with the scheduler's clock.
	Now func() time.Time
}

// Game is the entry point for every intent. It builds operations, paces them
// by their requestor's cooldowns and executes them when the scheduler fires.
type Game struct {
	logger    *zap.Logger
	ctx       *operation.ElevatedContext
	factory   *operation.Factory
	scheduler Scheduler
	metrics   Metrics
	now       func() time.Time
}

// NewGame validates deps and returns a Game.
//
// Postcondition: a non-nil error names every missing collaborator.
func NewGame(deps Dependencies) (*Game, error) {
	if deps.Paths == nil && deps.Tiles != nil {
		deps.Paths = NewTilePathFinder(deps.Tiles)
	}
	if deps.Metrics == nil {
		deps.Metrics = NopMetrics{}
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	costs := operation.DefaultCosts()
	if deps.Costs != nil {
		costs = *deps.Costs
	}

	ctx := &operation.ElevatedContext{
		Context: operation.Context{
			Logger:      observability.Component(deps.Logger, "operation"),
			Tiles:       deps.Tiles,
			Items:       deps.Items,
			Containers:  deps.Containers,
			Scheduler:   deps.Scheduler,
			Paths:       deps.Paths,
			Rules:       deps.Rules,
			Connections: deps.Connections,
			Ledger:      deps.Ledger,
			Metrics:     deps.Metrics,
			Now:         deps.Now,
		},
	}
	if deps.Creatures != nil {
		ctx.Creatures = deps.Creatures
		ctx.CreatureManager = deps.Creatures
	}
	if err := ctx.Validate(); err != nil {
		return nil, fmt.Errorf("creating game: %w", err)
	}

	return &Game{
		logger:    observability.Component(deps.Logger, "game"),
		ctx:       ctx,
		factory:   operation.NewFactory(costs, deps.Creatures),
		scheduler: deps.Scheduler,
		metrics:   deps.Metrics,
		now:       deps.Now,
	}, nil
}

// Notify queues n for delivery on the next scheduler pass.
func (g *Game) Notify(n *notification.Notification) {
	g.scheduler.Schedule(n, 0)
}

// DispatchOperation queues op to run after delay, or later when its requestor
// is still exhausted.
//
// Postcondition: op is queued after max(delay, remaining cooldown).
func (g *Game) DispatchOperation(op operation.Operation, delay time.Duration) {
	remaining := g.remainingCooldown(op, g.now())
	wait := max(delay, remaining)
	g.metrics.CooldownDelay(remaining)
	g.scheduler.Schedule(op, wait)
}

// HandleEvent executes one due scheduler event. It is the scheduler handler.
func (g *Game) HandleEvent(_ context.Context, ev scheduler.Event) {
	switch e := ev.(type) {
	case operation.Operation:
		g.handleOperation(e)
	case *notification.Notification:
		g.deliver(e)
	default:
		g.logger.Warn("dropping unknown event",
			zap.String("event_type", ev.EventType()),
			zap.String("go_type", fmt.Sprintf("%T", ev)),
		)
	}
	g.metrics.QueueDepth(g.scheduler.Len())
}

func (g *Game) handleOperation(op operation.Operation) {
	now := g.now()
	if remaining := g.remainingCooldown(op, now); remaining > 0 {
		g.scheduler.Schedule(op, remaining)
		return
	}

	kind := string(op.Kind())
	result, err := operation.Execute(g.ctx, op)
	// Every execution costs its requestor, whatever the outcome.
	if op.ExhaustionType() != world.ExhaustionNone {
		if c, ok := g.ctx.Creatures.FindCreatureByID(op.RequestorID()); ok {
			c.AddExhaustion(op.ExhaustionType(), now, op.ExhaustionCost())
		}
	}
	if err != nil {
		g.metrics.OperationFailed(kind)
		g.logger.Error("executing operation",
			zap.String("kind", kind),
			zap.Uint32("requestor", op.RequestorID()),
			zap.Error(err),
		)
		return
	}
	g.metrics.OperationExecuted(kind, result.String())
	g.logger.Debug("operation executed",
		zap.String("kind", kind),
		zap.Uint32("requestor", op.RequestorID()),
		zap.Stringer("result", result),
	)
}

func (g *Game) deliver(n *notification.Notification) {
	sent, err := n.Deliver(g.ctx.Connections)
	g.metrics.NotificationsSent(sent)
	if err != nil {
		g.logger.Warn("delivering notification", zap.Int("sent", sent), zap.Error(err))
	}
}

// remainingCooldown is how long op's requestor must wait before op may run.
func (g *Game) remainingCooldown(op operation.Operation, now time.Time) time.Duration {
	if op.RequestorID() == 0 || op.ExhaustionType() == world.ExhaustionNone {
		return 0
	}
	c, ok := g.ctx.Creatures.FindCreatureByID(op.RequestorID())
	if !ok {
		return 0
	}
	return c.RemainingCooldown(op.ExhaustionType(), now)
}

// create builds an operation from args; a rejected intent tells the player.
func (g *Game) create(args operation.CreationArgs, requestorID uint32) (operation.Operation, error) {
	op, err := g.factory.Create(args)
	if err != nil {
		g.tell(requestorID, notification.MessageNotPossible)
		return nil, err
	}
	return op, nil
}

func (g *Game) dispatch(args operation.CreationArgs, requestorID uint32) error {
	op, err := g.create(args, requestorID)
	if err != nil {
		return err
	}
	g.DispatchOperation(op, 0)
	return nil
}

// reject tells the player why an intent failed and returns err.
func (g *Game) reject(requestorID uint32, err error) error {
	g.tell(requestorID, notification.MessageNotPossible)
	return err
}

func (g *Game) tell(creatureID uint32, text string) {
	if creatureID == 0 {
		return
	}
	if _, ok := g.ctx.Connections.FindByCreatureID(creatureID); !ok {
		return
	}
	g.Notify(notification.Text(creatureID, text))
}

var (
	// ErrNoSuchTile is returned for a map location without a tile.
	ErrNoSuchTile = errors.New("gameserver: no tile at location")
	// ErrUnknownCreature is returned for a creature id that is not in the world.
	ErrUnknownCreature = errors.New("gameserver: unknown creature")
	// ErrContainerNotOpen is returned for a container location the requestor has no window at.
	ErrContainerNotOpen = errors.New("gameserver: container not open")
	// ErrInvalidSlot is returned for a slot location naming no equipment slot.
	ErrInvalidSlot = errors.New("gameserver: invalid equipment slot")
	// ErrThingMismatch is returned when the thing at a location is not the one the client named.
	ErrThingMismatch = errors.New("gameserver: thing does not match")
)
