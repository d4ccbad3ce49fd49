package operation

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cory-johannsen/tilemud/internal/game/rules"
	"github.com/cory-johannsen/tilemud/internal/game/world"
)

// orphanWriteTimeout bounds a ledger write made while an operation executes.
const orphanWriteTimeout = 5 * time.Second

// MoveResult is the outcome of PerformItemMovement.
type MoveResult uint8

const (
	// MoveOK means every unit reached the destination chain.
	MoveOK MoveResult = iota
	// MoveNoOp means source and destination were the same place.
	MoveNoOp
	// MoveCycle means the destination is inside the moved container.
	MoveCycle
	// MoveRemoveFailed means the units could not be taken from the source.
	MoveRemoveFailed
	// MoveRolledBack means nothing was placed and the source was restored.
	MoveRolledBack
	// MovePartial means part was placed and the rest returned to the source.
	MovePartial
	// MoveRollbackFailed means some units could not be returned and were
	// recorded as orphaned.
	MoveRollbackFailed
)

// String returns the result label.
func (r MoveResult) String() string {
	switch r {
	case MoveOK:
		return "ok"
	case MoveNoOp:
		return "noop"
	case MoveCycle:
		return "cycle"
	case MoveRemoveFailed:
		return "remove_failed"
	case MoveRolledBack:
		return "rolled_back"
	case MovePartial:
		return "partial"
	default:
		return "rollback_failed"
	}
}

// PerformItemMovement moves amount units of item from one cylinder to
// another. Whatever the destination chain cannot absorb is returned to the
// source chain; what the source chain cannot take back either is recorded in
// the orphan ledger.
//
// Precondition: item is held by from at fromIndex (or fromIndex is AnyIndex).
// Postcondition: the total units of item's type across both chains and the
// ledger are unchanged.
func PerformItemMovement(ctx *Context, item *world.Item, from, to world.Cylinder, fromIndex, toIndex uint8, amount int, requestor *world.Creature) MoveResult {
	if from == to && fromIndex == toIndex {
		return MoveNoOp
	}
	if world.IsAncestorOf(item, to) {
		return MoveCycle
	}

	var thing world.Thing = item
	if ok, _ := from.RemoveContent(ctx.Items, &thing, fromIndex, amount); !ok {
		return MoveRemoveFailed
	}
	ctx.cylinderChanged(from)
	ctx.fire(rules.Separation, from.Location(), thing, requestor)

	// Removing a whole item renumbers the later content of the same cylinder.
	if from == to && thing == world.Thing(item) && toIndex != world.AnyIndex && fromIndex != world.AnyIndex && toIndex > fromIndex {
		toIndex--
	}

	remainder, placed := addToChain(ctx, world.CylinderHierarchy(to, true), toIndex, thing, requestor, true)
	if remainder == nil {
		return MoveOK
	}

	ctx.Metrics.RollbackPerformed()
	left, _ := addToChain(ctx, world.CylinderHierarchy(from, true), fromIndex, remainder, requestor, false)
	if left == nil {
		if placed {
			return MovePartial
		}
		return MoveRolledBack
	}

	ctx.Metrics.RollbackFailed()
	recordOrphan(ctx, left, from.Location(), to.Location(), requestor)
	return MoveRollbackFailed
}

// AddContentToCylinderChain offers thing to each cylinder of chain in turn,
// the first at index and the rest at AnyIndex, until it is fully absorbed.
// Every successful placement fires the movement rule, and the collision rule
// when it lands on a tile.
//
// Postcondition: the returned remainder is nil when the chain absorbed
// everything; otherwise it carries the units no cylinder took.
func AddContentToCylinderChain(ctx *Context, chain []world.Cylinder, index uint8, thing world.Thing, requestor *world.Creature) world.Thing {
	remainder, _ := addToChain(ctx, chain, index, thing, requestor, true)
	return remainder
}

func addToChain(ctx *Context, chain []world.Cylinder, index uint8, thing world.Thing, requestor *world.Creature, fireRules bool) (world.Thing, bool) {
	remainder := thing
	placed := false
	for i, c := range chain {
		at := world.AnyIndex
		if i == 0 {
			at = index
		}
		incoming := remainder
		ok, rest := c.AddContent(ctx.Items, incoming, at)
		if !ok {
			continue
		}
		placed = true
		remainder = rest
		ctx.cylinderChanged(c)
		if fireRules {
			if c.CylinderKind() == world.CylinderTile {
				ctx.fire(rules.Collision, c.Location(), incoming, requestor)
			}
			ctx.fire(rules.Movement, c.Location(), incoming, requestor)
		}
		if remainder == nil {
			break
		}
	}
	return remainder, placed
}

func recordOrphan(ctx *Context, thing world.Thing, source, destination world.Location, requestor *world.Creature) {
	rec := OrphanRecord{
		ID:          uuid.New(),
		ItemTypeID:  thing.ThingID(),
		Amount:      1,
		Description: thing.Describe(),
		Source:      source.String(),
		Destination: destination.String(),
		OccurredAt:  ctx.now(),
	}
	if it, ok := thing.(*world.Item); ok {
		rec.Amount = it.Amount()
	}
	if requestor != nil {
		rec.RequestorID = requestor.ID()
	}
	ctx.Logger.Error("content orphaned",
		zap.String("orphan_id", rec.ID.String()),
		zap.String("thing", rec.Description),
		zap.Int("amount", rec.Amount),
		zap.String("source", rec.Source),
		zap.String("destination", rec.Destination),
		zap.Uint32("requestor", rec.RequestorID),
	)
	wctx, cancel := context.WithTimeout(context.Background(), orphanWriteTimeout)
	defer cancel()
	if err := ctx.Ledger.RecordOrphan(wctx, rec); err != nil {
		ctx.Logger.Error("recording orphan", zap.String("orphan_id", rec.ID.String()), zap.Error(err))
	}
}

// PerformItemCreation mints amount units of typeID and places them into the
// chain of at.
//
// Postcondition: on false nothing was placed; a partially placed item is
// reported as true.
func PerformItemCreation(ctx *Context, typeID uint16, amount int, at world.Cylinder, requestor *world.Creature) bool {
	item, err := ctx.Items.CreateItem(typeID, amount)
	if err != nil {
		ctx.Logger.Warn("creating item", zap.Uint16("type", typeID), zap.Int("amount", amount), zap.Error(err))
		return false
	}
	chain := world.CylinderHierarchy(at, true)
	remainder, placed := addToChain(ctx, chain, world.AnyIndex, item, requestor, true)
	// A tile at the root takes any overflow as further stacks.
	root := chain[len(chain)-1:]
	for i := 0; remainder != nil && root[0].CylinderKind() == world.CylinderTile && i < world.MaxStackAmount; i++ {
		var more bool
		if remainder, more = addToChain(ctx, root, world.AnyIndex, remainder, requestor, true); !more {
			break
		}
	}
	if remainder != nil {
		ctx.Logger.Debug("created item not fully placed",
			zap.String("item", remainder.Describe()), zap.Stringer("location", at.Location()))
	}
	return placed
}

// PerformItemDeletion removes amount units of item from the cylinder holding it.
func PerformItemDeletion(ctx *Context, item *world.Item, from world.Cylinder, index uint8, amount int, requestor *world.Creature) bool {
	var thing world.Thing = item
	if ok, _ := from.RemoveContent(ctx.Items, &thing, index, amount); !ok {
		return false
	}
	if thing == world.Thing(item) && item.Container() != nil {
		ctx.Containers.Forget(item.Container())
	}
	ctx.cylinderChanged(from)
	ctx.fire(rules.Separation, from.Location(), thing, requestor)
	return true
}

// PerformItemChange replaces item in its cylinder with a new item of
// toTypeID. Cumulative results keep the amount; others are a single unit.
// Overflow from a merge goes up the chain, as does content of a replaced
// container that the replacement cannot hold. Anything nothing takes is orphaned.
func PerformItemChange(ctx *Context, item *world.Item, toTypeID uint16, at world.Cylinder, index uint8, requestor *world.Creature) bool {
	amount := item.Amount()
	replacement, err := ctx.Items.CreateItem(toTypeID, amount)
	if err != nil && amount > 1 {
		replacement, err = ctx.Items.CreateItem(toTypeID, 1)
	}
	if err != nil {
		ctx.Logger.Warn("creating replacement item", zap.Uint16("type", toTypeID), zap.Error(err))
		return false
	}

	ok, remainder := at.ReplaceContent(ctx.Items, item, replacement, index, amount)
	if !ok {
		if remainder != nil {
			ctx.Metrics.RollbackFailed()
			recordOrphan(ctx, remainder, at.Location(), at.Location(), requestor)
		}
		return false
	}
	ctx.cylinderChanged(at)
	if remainder != nil {
		chain := world.CylinderHierarchy(at, true)
		if rest, _ := addToChain(ctx, chain[1:], world.AnyIndex, remainder, requestor, true); rest != nil {
			ctx.Metrics.RollbackFailed()
			recordOrphan(ctx, rest, at.Location(), at.Location(), requestor)
		}
	}
	if c := item.Container(); c != nil {
		transferContent(ctx, c, replacement, at, requestor)
		ctx.Containers.Forget(c)
	}
	return true
}

// transferContent empties old into replacement when it is a container, then
// up the chain from at. Items nothing takes are orphaned.
//
// Postcondition: old holds nothing.
func transferContent(ctx *Context, old *world.Container, replacement *world.Item, at world.Cylinder, requestor *world.Creature) {
	chain := world.CylinderHierarchy(at, true)
	if rc := replacement.Container(); rc != nil {
		chain = world.CylinderHierarchy(rc, true)
	}
	content := old.Content()
	// Last first: a container inserts at the front, so the order survives.
	for i := len(content) - 1; i >= 0; i-- {
		var thing world.Thing = content[i]
		if ok, _ := old.RemoveContent(ctx.Items, &thing, world.AnyIndex, content[i].Amount()); !ok {
			continue
		}
		if rest, _ := addToChain(ctx, chain, world.AnyIndex, thing, requestor, false); rest != nil {
			ctx.Metrics.RollbackFailed()
			recordOrphan(ctx, rest, at.Location(), at.Location(), requestor)
			if nested, ok := rest.(*world.Item); ok && nested.Container() != nil {
				ctx.Containers.Forget(nested.Container())
			}
		}
	}
}
