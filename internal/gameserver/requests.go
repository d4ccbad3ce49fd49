package gameserver

import (
	"fmt"

	"github.com/cory-johannsen/tilemud/internal/game/container"
	"github.com/cory-johannsen/tilemud/internal/game/notification"
	"github.com/cory-johannsen/tilemud/internal/game/operation"
	"github.com/cory-johannsen/tilemud/internal/game/world"
)

// Movement moves a thing the client named by location. Map locations address
// a tile and fromIndex its stack position; container locations address an
// open container window of the requestor; slot locations address an equipment
// slot of ownerID, or of the requestor when ownerID is 0. Dropping onto a
// container item puts the moved item inside it.
//
// Precondition: amount >= 1 for items.
// Postcondition: on error the requestor was told the move is not possible and
// nothing was queued.
func (g *Game) Movement(requestorID uint32, thingID uint16, fromLocation world.Location, fromIndex uint8, fromCreatureID uint32, toLocation world.Location, toCreatureID uint32, amount int) error {
	if thingID == world.CreatureThingID {
		return g.moveCreature(requestorID, fromLocation, fromIndex, toLocation)
	}

	from, err := g.resolveCylinder(requestorID, fromLocation, fromCreatureID)
	if err != nil {
		return g.reject(requestorID, err)
	}
	index := indexAt(fromLocation, fromIndex)
	thing, ok := from.ContentAt(index)
	if !ok {
		return g.reject(requestorID, fmt.Errorf("%w: nothing at %s index %d", ErrThingMismatch, fromLocation, index))
	}
	item, ok := thing.(*world.Item)
	if !ok || item.ThingID() != thingID {
		return g.reject(requestorID, fmt.Errorf("%w: expected type %d at %s", ErrThingMismatch, thingID, fromLocation))
	}

	to, err := g.resolveCylinder(requestorID, toLocation, toCreatureID)
	if err != nil {
		return g.reject(requestorID, err)
	}
	toIndex := world.AnyIndex
	if toLocation.Type() == world.LocationContainer {
		toIndex = toLocation.ContainerIndex()
	}
	if inner, ok := containerAt(to, toLocation); ok && inner.Item() != item {
		to, toIndex = inner, world.AnyIndex
	}

	return g.dispatch(operation.MovementArgs{
		RequestorID: requestorID,
		Item:        item,
		From:        from,
		FromIndex:   index,
		To:          to,
		ToIndex:     toIndex,
		Amount:      amount,
	}, requestorID)
}

func (g *Game) moveCreature(requestorID uint32, fromLocation world.Location, fromIndex uint8, toLocation world.Location) error {
	if fromLocation.Type() != world.LocationMap {
		return g.reject(requestorID, fmt.Errorf("%w: creatures stand on tiles", ErrThingMismatch))
	}
	tile, ok := g.ctx.Tiles.GetTileAt(fromLocation)
	if !ok {
		return g.reject(requestorID, fmt.Errorf("%w: %s", ErrNoSuchTile, fromLocation))
	}
	thing, ok := tile.ContentAt(fromIndex)
	if !ok {
		return g.reject(requestorID, fmt.Errorf("%w: nothing at %s index %d", ErrThingMismatch, fromLocation, fromIndex))
	}
	moved, ok := thing.(*world.Creature)
	if !ok {
		return g.reject(requestorID, fmt.Errorf("%w: no creature at %s index %d", ErrThingMismatch, fromLocation, fromIndex))
	}
	if moved.ID() == requestorID {
		g.cancelWalk(requestorID)
	}
	return g.dispatch(operation.CreatureMovementArgs{
		RequestorID: requestorID,
		CreatureID:  moved.ID(),
		To:          toLocation,
	}, requestorID)
}

// resolveCylinder returns the cylinder a client location addresses.
func (g *Game) resolveCylinder(requestorID uint32, loc world.Location, ownerID uint32) (world.Cylinder, error) {
	switch loc.Type() {
	case world.LocationContainer:
		c, ok := g.ctx.Containers.FindForCreature(requestorID, loc.ContainerID())
		if !ok {
			return nil, fmt.Errorf("%w: client id %d", ErrContainerNotOpen, loc.ContainerID())
		}
		return c, nil
	case world.LocationSlot:
		if ownerID == 0 {
			ownerID = requestorID
		}
		owner, ok := g.ctx.Creatures.FindCreatureByID(ownerID)
		if !ok {
			return nil, fmt.Errorf("%w: %d", ErrUnknownCreature, ownerID)
		}
		slot, ok := owner.Slot(loc.Slot())
		if !ok {
			return nil, fmt.Errorf("%w: %d", ErrInvalidSlot, loc.Slot())
		}
		return slot, nil
	default:
		tile, ok := g.ctx.Tiles.GetTileAt(loc)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrNoSuchTile, loc)
		}
		return tile, nil
	}
}

// indexAt returns the content index a client location refers to.
func indexAt(loc world.Location, mapIndex uint8) uint8 {
	switch loc.Type() {
	case world.LocationContainer:
		return loc.ContainerIndex()
	case world.LocationSlot:
		return 0
	default:
		return mapIndex
	}
}

// containerAt returns the container item a drop location points at, if any.
// Dropping on a tile never targets a container lying there.
func containerAt(c world.Cylinder, loc world.Location) (*world.Container, bool) {
	if loc.Type() == world.LocationMap {
		return nil, false
	}
	thing, ok := c.ContentAt(indexAt(loc, 0))
	if !ok {
		return nil, false
	}
	it, ok := thing.(*world.Item)
	if !ok || it.Container() == nil {
		return nil, false
	}
	return it.Container(), true
}

func (g *Game) cancelWalk(creatureID uint32) {
	g.scheduler.CancelAllFor(creatureID, string(operation.KindWalk))
}

// AutoWalk starts a walk along directions, replacing any walk in progress.
func (g *Game) AutoWalk(requestorID uint32, directions []world.Direction) error {
	g.cancelWalk(requestorID)
	return g.dispatch(operation.WalkArgs{RequestorID: requestorID, Directions: directions}, requestorID)
}

// WalkTo starts a walk towards target along a planned path.
func (g *Game) WalkTo(requestorID uint32, target world.Location) error {
	g.cancelWalk(requestorID)
	return g.dispatch(operation.WalkArgs{RequestorID: requestorID, Target: &target}, requestorID)
}

// Turn makes the requestor face direction.
func (g *Game) Turn(requestorID uint32, direction world.Direction) error {
	return g.dispatch(operation.TurnArgs{RequestorID: requestorID, Direction: direction}, requestorID)
}

// Speech makes the requestor say text.
func (g *Game) Speech(requestorID uint32, text string) error {
	return g.dispatch(operation.SpeechArgs{RequestorID: requestorID, Text: text}, requestorID)
}

// UseItem uses the item of type thingID at location, optionally on target.
func (g *Game) UseItem(requestorID uint32, thingID uint16, location world.Location, index uint8, clientSlot uint8, target world.Thing) error {
	from, err := g.resolveCylinder(requestorID, location, 0)
	if err != nil {
		return g.reject(requestorID, err)
	}
	idx := indexAt(location, index)
	thing, ok := from.ContentAt(idx)
	if !ok {
		return g.reject(requestorID, fmt.Errorf("%w: nothing at %s index %d", ErrThingMismatch, location, idx))
	}
	item, ok := thing.(*world.Item)
	if !ok || item.ThingID() != thingID {
		return g.reject(requestorID, fmt.Errorf("%w: expected type %d at %s", ErrThingMismatch, thingID, location))
	}
	return g.dispatch(operation.UseItemArgs{
		RequestorID: requestorID,
		Item:        item,
		From:        from,
		Index:       idx,
		ClientSlot:  clientSlot,
		Target:      target,
	}, requestorID)
}

// OpenContainer opens c for the requestor at clientSlot, or at the first free
// client id when clientSlot is container.AnySlot.
func (g *Game) OpenContainer(requestorID uint32, c *world.Container, clientSlot uint8) error {
	return g.dispatch(operation.OpenContainerArgs{RequestorID: requestorID, Container: c, ClientSlot: clientSlot}, requestorID)
}

// OpenContainerAt opens the container item at a client location.
func (g *Game) OpenContainerAt(requestorID uint32, location world.Location, index uint8) error {
	from, err := g.resolveCylinder(requestorID, location, 0)
	if err != nil {
		return g.reject(requestorID, err)
	}
	thing, _ := from.ContentAt(indexAt(location, index))
	it, ok := thing.(*world.Item)
	if !ok || it.Container() == nil {
		return g.reject(requestorID, fmt.Errorf("%w: no container at %s", ErrThingMismatch, location))
	}
	return g.OpenContainer(requestorID, it.Container(), container.AnySlot)
}

// CloseContainer closes the requestor's window at clientSlot.
func (g *Game) CloseContainer(requestorID uint32, clientSlot uint8) error {
	return g.dispatch(operation.CloseContainerArgs{RequestorID: requestorID, ClientSlot: clientSlot}, requestorID)
}

// LogIn places c into the world at loc, or on a free neighbouring tile.
func (g *Game) LogIn(c *world.Creature, loc world.Location) error {
	return g.dispatch(operation.LogInArgs{Creature: c, Location: loc}, 0)
}

// LogOut removes the creature from the world.
func (g *Game) LogOut(creatureID uint32) error {
	return g.dispatch(operation.LogOutArgs{CreatureID: creatureID}, 0)
}

// CreateItem creates amount units of typeID on the tile at loc.
func (g *Game) CreateItem(loc world.Location, typeID uint16, amount int) error {
	return g.dispatch(operation.CreateItemArgs{Location: loc, TypeID: typeID, Amount: amount}, 0)
}

// RemoveItem deletes amount units of the topmost typeID item on the tile at loc.
func (g *Game) RemoveItem(loc world.Location, typeID uint16, amount int) error {
	return g.dispatch(operation.DeleteItemArgs{Location: loc, TypeID: typeID, Amount: amount}, 0)
}

// ChangeItem turns the topmost fromType item on the tile at loc into toType.
func (g *Game) ChangeItem(loc world.Location, fromType, toType uint16) error {
	return g.dispatch(operation.ChangeItemArgs{Location: loc, FromTypeID: fromType, ToTypeID: toType}, 0)
}

// SendText queues a status message for a connected player.
//
// Postcondition: returns ErrUnknownCreature when the player is not connected.
func (g *Game) SendText(creatureID uint32, text string) error {
	if _, ok := g.ctx.Connections.FindByCreatureID(creatureID); !ok {
		return fmt.Errorf("%w: %d is not connected", ErrUnknownCreature, creatureID)
	}
	g.Notify(notification.Text(creatureID, text))
	return nil
}
