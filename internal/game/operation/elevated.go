package operation

import (
	"go.uber.org/zap"

	"github.com/cory-johannsen/tilemud/internal/game/notification"
	"github.com/cory-johannsen/tilemud/internal/game/world"
)

// loginDirections is the order in which tiles around a blocked login
// location are tried.
var loginDirections = []world.Direction{
	world.North, world.East, world.South, world.West,
	world.Northeast, world.Southeast, world.Southwest, world.Northwest,
}

// topItem returns the topmost item of typeID on tile and its stack index.
func topItem(tile *world.Tile, typeID uint16) (*world.Item, uint8, bool) {
	things := tile.Things()
	for i := len(things) - 1; i >= 0; i-- {
		if it, ok := things[i].(*world.Item); ok && it.ThingID() == typeID {
			return it, uint8(i), true
		}
	}
	return nil, 0, false
}

// CreateItemOperation places a new item on a tile on behalf of the server.
type CreateItemOperation struct {
	base
	args CreateItemArgs
}

func (o *CreateItemOperation) execute(ctx *ElevatedContext) Result {
	tile, ok := ctx.Tiles.GetTileAt(o.args.Location)
	if !ok {
		return Rejected
	}
	amount := max(o.args.Amount, 1)
	if !PerformItemCreation(&ctx.Context, o.args.TypeID, amount, tile, nil) {
		return Rejected
	}
	return Succeeded
}

// DeleteItemOperation removes units of the topmost item of a type from a tile.
type DeleteItemOperation struct {
	base
	args DeleteItemArgs
}

func (o *DeleteItemOperation) execute(ctx *ElevatedContext) Result {
	tile, ok := ctx.Tiles.GetTileAt(o.args.Location)
	if !ok {
		return Rejected
	}
	item, index, ok := topItem(tile, o.args.TypeID)
	if !ok {
		return Rejected
	}
	amount := min(o.args.Amount, item.Amount())
	if !PerformItemDeletion(&ctx.Context, item, tile, index, amount, nil) {
		return Rejected
	}
	return Succeeded
}

// ChangeItemOperation transforms the topmost item of a type on a tile.
type ChangeItemOperation struct {
	base
	args ChangeItemArgs
}

func (o *ChangeItemOperation) execute(ctx *ElevatedContext) Result {
	tile, ok := ctx.Tiles.GetTileAt(o.args.Location)
	if !ok {
		return Rejected
	}
	item, index, ok := topItem(tile, o.args.FromTypeID)
	if !ok {
		return Rejected
	}
	if !PerformItemChange(&ctx.Context, item, o.args.ToTypeID, tile, index, nil) {
		return Rejected
	}
	return Succeeded
}

// LogInOperation registers a creature and places it on the map, next to the
// requested location when that is occupied.
type LogInOperation struct {
	base
	creature *world.Creature
	location world.Location
}

func (o *LogInOperation) execute(ctx *ElevatedContext) Result {
	c := o.creature
	if _, exists := ctx.CreatureManager.FindCreatureByID(c.ID()); exists {
		ctx.Logger.Warn("creature already logged in", zap.Uint32("creature", c.ID()))
		return Rejected
	}
	tile := o.landingTile(&ctx.Context)
	if tile == nil {
		ctx.Logger.Info("no free tile for login", zap.Uint32("creature", c.ID()), zap.Stringer("location", o.location))
		return Rejected
	}
	if err := ctx.CreatureManager.RegisterCreature(c); err != nil {
		ctx.Logger.Warn("registering creature", zap.Uint32("creature", c.ID()), zap.Error(err))
		return Rejected
	}
	if ok, _ := tile.AddContent(ctx.Items, c, world.AnyIndex); !ok {
		_ = ctx.CreatureManager.UnregisterCreature(c.ID())
		return Rejected
	}
	loc := tile.Location()
	ctx.notify(notification.ToSpectators([]world.Location{loc}, notification.CreatureAppeared{
		CreatureID: c.ID(),
		Name:       c.Name(),
		Location:   loc,
		Direction:  c.Direction(),
	}))
	ctx.Logger.Info("creature logged in", zap.Uint32("creature", c.ID()), zap.String("name", c.Name()), zap.Stringer("location", loc))
	return Succeeded
}

func (o *LogInOperation) landingTile(ctx *Context) *world.Tile {
	if tile, msg := enterable(ctx, o.location); msg == "" {
		return tile
	}
	for _, d := range loginDirections {
		if tile, msg := enterable(ctx, o.location.Translate(d)); msg == "" {
			return tile
		}
	}
	return nil
}

// LogOutOperation removes a creature from the map and the registry, closing
// its containers and cancelling its walk.
type LogOutOperation struct {
	base
	creatureID uint32
}

func (o *LogOutOperation) execute(ctx *ElevatedContext) Result {
	c, ok := ctx.CreatureManager.FindCreatureByID(o.creatureID)
	if !ok {
		return Rejected
	}
	ctx.Scheduler.CancelAllFor(o.creatureID, string(KindWalk))
	ctx.Containers.CloseAll(o.creatureID)
	if tile := c.Tile(); tile != nil {
		loc := tile.Location()
		index, _ := tile.IndexOf(c)
		var thing world.Thing = c
		if ok, _ := tile.RemoveContent(ctx.Items, &thing, world.AnyIndex, 1); ok {
			ctx.notify(notification.ToSpectators([]world.Location{loc},
				notification.CreatureRemoved{CreatureID: c.ID(), Location: loc, StackIndex: index}))
		}
	}
	if err := ctx.CreatureManager.UnregisterCreature(o.creatureID); err != nil {
		ctx.Logger.Warn("unregistering creature", zap.Uint32("creature", o.creatureID), zap.Error(err))
	}
	ctx.Logger.Info("creature logged out", zap.Uint32("creature", o.creatureID))
	return Succeeded
}
