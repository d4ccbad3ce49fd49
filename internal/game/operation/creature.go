package operation

import (
	"go.uber.org/zap"

	"github.com/cory-johannsen/tilemud/internal/game/notification"
	"github.com/cory-johannsen/tilemud/internal/game/rules"
	"github.com/cory-johannsen/tilemud/internal/game/world"
)

// maxWalkSteps caps the length of a planned walk.
const maxWalkSteps = 64

// PerformCreatureMovement moves creature from its tile onto to. The creature
// turns towards the step and loses every open container it can no longer
// reach.
//
// Precondition: the caller has checked that to can be entered.
// Postcondition: on false the creature is still on its original tile.
func PerformCreatureMovement(ctx *Context, creature *world.Creature, to *world.Tile, requestor *world.Creature) bool {
	from := creature.Tile()
	if from == nil {
		return false
	}
	if from == to {
		return true
	}
	fromLoc, toLoc := from.Location(), to.Location()
	stackIndex, _ := from.IndexOf(creature)

	var thing world.Thing = creature
	if ok, _ := from.RemoveContent(ctx.Items, &thing, world.AnyIndex, 1); !ok {
		return false
	}
	if ok, _ := to.AddContent(ctx.Items, creature, world.AnyIndex); !ok {
		from.AddContent(ctx.Items, creature, world.AnyIndex)
		return false
	}
	if dir, ok := fromLoc.DirectionTo(toLoc); ok {
		creature.Turn(facing(dir))
	}

	ctx.notify(notification.ToSpectators([]world.Location{fromLoc, toLoc}, notification.CreatureMoved{
		CreatureID:     creature.ID(),
		From:           fromLoc,
		FromStackIndex: stackIndex,
		To:             toLoc,
	}))
	ctx.fire(rules.Separation, fromLoc, creature, requestor)
	ctx.fire(rules.Collision, toLoc, creature, requestor)
	ctx.fire(rules.Movement, toLoc, creature, requestor)
	ctx.Containers.CloseDistant(creature.ID(), toLoc)
	return true
}

// facing maps a step direction to the direction the creature faces after it.
func facing(d world.Direction) world.Direction {
	switch d {
	case world.Northeast, world.Southeast:
		return world.East
	case world.Northwest, world.Southwest:
		return world.West
	default:
		return d
	}
}

// enterable returns the tile at loc when a creature may step onto it, or the
// message explaining why not.
func enterable(ctx *Context, loc world.Location) (*world.Tile, string) {
	tile, ok := ctx.Tiles.GetTileAt(loc)
	if !ok || !tile.HasGround() {
		return nil, notification.MessageNotPossible
	}
	if tile.BlocksPass() {
		return nil, notification.MessageNotEnoughRoom
	}
	return tile, ""
}

// CreatureMovementOperation steps a creature, or pushes another one, onto an
// adjacent tile.
type CreatureMovementOperation struct {
	base
	creatureID uint32
	to         world.Location
}

func (o *CreatureMovementOperation) execute(ctx *Context) Result {
	requestor, ok := ctx.requestor(o.requestor)
	if !ok {
		return Rejected
	}
	reject := func(msg string) Result {
		ctx.tell(o.requestor, msg)
		return Rejected
	}
	moved, ok := ctx.Creatures.FindCreatureByID(o.creatureID)
	if !ok || moved.Tile() == nil {
		return reject(notification.MessageNotPossible)
	}
	from := moved.Location()
	if from.Z != o.to.Z || from.ChebyshevDistance(o.to) != 1 {
		return reject(notification.MessageNotPossible)
	}
	if requestor != nil && requestor != moved {
		if msg := reachLocation(requestor.Location(), from); msg != "" {
			return reject(msg)
		}
		if !moved.CanBeMoved() {
			return reject(notification.MessageCannotMove)
		}
	}
	tile, msg := enterable(ctx, o.to)
	if msg != "" {
		return reject(msg)
	}
	if !PerformCreatureMovement(ctx, moved, tile, requestor) {
		return reject(notification.MessageNotPossible)
	}
	return Succeeded
}

// WalkOperation takes one step of a walk and schedules the next one as a new
// operation. A walk towards a target is a planning operation: it costs
// nothing, plans the path when it executes and schedules the first step.
type WalkOperation struct {
	base
	factory    *Factory
	directions []world.Direction
	target     *world.Location
}

// Directions returns the steps still to take.
func (o *WalkOperation) Directions() []world.Direction { return o.directions }

func (o *WalkOperation) execute(ctx *Context) Result {
	walker, ok := ctx.Creatures.FindCreatureByID(o.requestor)
	if !ok || walker.Tile() == nil {
		return Rejected
	}
	if len(o.directions) == 0 {
		return o.plan(ctx, walker)
	}

	dir := o.directions[0]
	tile, msg := enterable(ctx, walker.Location().Translate(dir))
	if msg != "" {
		ctx.tell(o.requestor, msg)
		return Rejected
	}
	if !PerformCreatureMovement(ctx, walker, tile, walker) {
		ctx.tell(o.requestor, notification.MessageNotPossible)
		return Rejected
	}

	if rest := o.directions[1:]; len(rest) > 0 {
		ctx.Scheduler.Schedule(o.factory.step(walker, rest), 0)
		ctx.Logger.Debug("walk continues", zap.Uint32("creature", o.requestor), zap.Int("remaining", len(rest)))
	}
	return Succeeded
}

func (o *WalkOperation) plan(ctx *Context, walker *world.Creature) Result {
	if o.target == nil {
		return Rejected
	}
	path, found := ctx.Paths.FindPath(walker.Location(), *o.target, maxWalkSteps)
	if !found || len(path) == 0 {
		ctx.tell(o.requestor, notification.MessageNotPossible)
		return Rejected
	}
	ctx.Scheduler.Schedule(o.factory.step(walker, path), 0)
	return Succeeded
}

// TurnOperation turns the requestor in place.
type TurnOperation struct {
	base
	direction world.Direction
}

func (o *TurnOperation) execute(ctx *Context) Result {
	c, ok := ctx.Creatures.FindCreatureByID(o.requestor)
	if !ok {
		return Rejected
	}
	c.Turn(o.direction)
	ctx.notify(notification.ToSpectators([]world.Location{c.Location()},
		notification.CreatureTurned{CreatureID: c.ID(), Direction: o.direction}))
	return Succeeded
}

// SpeechOperation broadcasts what the requestor says to everyone who can see it.
type SpeechOperation struct {
	base
	text string
}

func (o *SpeechOperation) execute(ctx *Context) Result {
	c, ok := ctx.Creatures.FindCreatureByID(o.requestor)
	if !ok || c.Tile() == nil {
		return Rejected
	}
	loc := c.Location()
	ctx.notify(notification.ToSpectators([]world.Location{loc},
		notification.CreatureSpoke{CreatureID: c.ID(), Name: c.Name(), Location: loc, Text: o.text}))
	return Succeeded
}
