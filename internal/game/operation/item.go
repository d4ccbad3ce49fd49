package operation

import (
	"go.uber.org/zap"

	"github.com/cory-johannsen/tilemud/internal/game/notification"
	"github.com/cory-johannsen/tilemud/internal/game/rules"
	"github.com/cory-johannsen/tilemud/internal/game/world"
)

// MovementOperation moves item units between tiles, containers and slots.
type MovementOperation struct {
	base
	args MovementArgs
}

// Args returns the arguments the operation was created with.
func (o *MovementOperation) Args() MovementArgs { return o.args }

func (o *MovementOperation) execute(ctx *Context) Result {
	a := o.args
	requestor, ok := ctx.requestor(o.requestor)
	if !ok {
		return Rejected
	}
	reject := func(msg string) Result {
		ctx.tell(o.requestor, msg)
		return Rejected
	}

	if !holds(a.From, a.Item, a.FromIndex) || a.Amount > a.Item.Amount() {
		return reject(notification.MessageNotPossible)
	}
	if requestor != nil {
		if !a.Item.CanBeMoved() {
			return reject(notification.MessageCannotMove)
		}
		if msg := reach(requestor, a.From); msg != "" {
			return reject(msg)
		}
		if msg := o.checkDestination(ctx, requestor); msg != "" {
			return reject(msg)
		}
	}
	if world.IsAncestorOf(a.Item, a.To) {
		return reject(notification.MessageNotPossible)
	}

	result := PerformItemMovement(ctx, a.Item, a.From, a.To, a.FromIndex, a.ToIndex, a.Amount, requestor)
	ctx.Logger.Debug("item moved",
		zap.String("item", a.Item.Describe()),
		zap.String("from", a.From.CylinderKind().String()),
		zap.String("to", a.To.CylinderKind().String()),
		zap.Int("amount", a.Amount),
		zap.Stringer("result", result),
	)
	switch result {
	case MoveOK, MoveNoOp:
		return Succeeded
	case MovePartial:
		ctx.tell(o.requestor, notification.MessageNotEnoughRoom)
		return Succeeded
	case MoveRolledBack:
		return reject(notification.MessageNotEnoughRoom)
	default:
		return reject(notification.MessageNotPossible)
	}
}

// checkDestination validates a player's destination. Tiles are reached by
// throwing; containers and slots by hand.
func (o *MovementOperation) checkDestination(ctx *Context, requestor *world.Creature) string {
	tile, ok := o.args.To.(*world.Tile)
	if !ok {
		return reach(requestor, o.args.To)
	}
	if !tile.HasGround() {
		return notification.MessageNotPossible
	}
	if tile.BlocksLay() {
		return notification.MessageNotEnoughRoom
	}
	if !CanThrowBetween(ctx.Tiles, requestor.Location(), tile.Location(), true) {
		return notification.MessageCannotThrow
	}
	return ""
}

// UseItemOperation uses an item, alone or on a target. An item no rule
// handles is opened when it is a container.
type UseItemOperation struct {
	base
	args UseItemArgs
}

func (o *UseItemOperation) execute(ctx *Context) Result {
	a := o.args
	requestor, ok := ctx.requestor(o.requestor)
	if !ok || requestor == nil {
		return Rejected
	}
	reject := func(msg string) Result {
		ctx.tell(o.requestor, msg)
		return Rejected
	}
	if !holds(a.From, a.Item, a.Index) {
		return reject(notification.MessageNotPossible)
	}
	if msg := reach(requestor, a.From); msg != "" {
		return reject(msg)
	}

	if a.Target != nil {
		handled := ctx.fireArgs(rules.Args{
			Event:     rules.MultiUse,
			Location:  a.From.Location(),
			Thing:     a.Item,
			Requestor: requestor,
			Target:    a.Target,
		})
		if handled {
			return Succeeded
		}
		return reject(notification.MessageCannotUse)
	}

	if ctx.fire(rules.Use, a.From.Location(), a.Item, requestor) {
		return Succeeded
	}
	c := a.Item.Container()
	if c == nil {
		return reject(notification.MessageCannotUse)
	}
	if slot, open := ctx.Containers.FindSlotForCreature(o.requestor, c); open {
		if err := ctx.Containers.CloseContainer(o.requestor, c, slot); err != nil {
			ctx.Logger.Debug("closing used container", zap.Error(err))
			return Rejected
		}
		return Succeeded
	}
	if _, err := ctx.Containers.OpenContainer(o.requestor, c, a.ClientSlot); err != nil {
		ctx.Logger.Debug("opening used container", zap.Uint32("creature", o.requestor), zap.Error(err))
		return reject(notification.MessageNotPossible)
	}
	return Succeeded
}

// OpenContainerOperation opens a container for the requestor.
type OpenContainerOperation struct {
	base
	container *world.Container
	slot      uint8
}

func (o *OpenContainerOperation) execute(ctx *Context) Result {
	requestor, ok := ctx.requestor(o.requestor)
	if !ok || requestor == nil {
		return Rejected
	}
	if msg := reach(requestor, o.container.ParentCylinder()); msg != "" {
		ctx.tell(o.requestor, msg)
		return Rejected
	}
	if _, err := ctx.Containers.OpenContainer(o.requestor, o.container, o.slot); err != nil {
		ctx.Logger.Debug("opening container", zap.Uint32("creature", o.requestor), zap.Error(err))
		ctx.tell(o.requestor, notification.MessageNotPossible)
		return Rejected
	}
	return Succeeded
}

// CloseContainerOperation closes the container at a client slot.
type CloseContainerOperation struct {
	base
	slot uint8
}

func (o *CloseContainerOperation) execute(ctx *Context) Result {
	c, ok := ctx.Containers.FindForCreature(o.requestor, o.slot)
	if !ok {
		return Rejected
	}
	if err := ctx.Containers.CloseContainer(o.requestor, c, o.slot); err != nil {
		ctx.Logger.Debug("closing container", zap.Uint32("creature", o.requestor), zap.Error(err))
		return Rejected
	}
	return Succeeded
}
