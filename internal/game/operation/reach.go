package operation

import (
	"github.com/cory-johannsen/tilemud/internal/game/notification"
	"github.com/cory-johannsen/tilemud/internal/game/world"
)

// reach returns the message explaining why requestor cannot reach into c, or
// "" when it can. Carried cylinders are reachable only by their carrier; all
// others must be on the requestor's floor and at most one step away.
func reach(requestor *world.Creature, c world.Cylinder) string {
	if requestor == nil {
		return ""
	}
	if c == nil {
		return notification.MessageNotPossible
	}
	if carrier, ok := world.CarrierOfCylinder(c); ok {
		if carrier != requestor {
			return notification.MessageNotPossible
		}
		return ""
	}
	return reachLocation(requestor.Location(), c.Location())
}

func reachLocation(at, loc world.Location) string {
	switch {
	case loc.Z < at.Z:
		return notification.MessageGoUpstairs
	case loc.Z > at.Z:
		return notification.MessageGoDownstairs
	case at.ChebyshevDistance(loc) > 1:
		return notification.MessageTooFarAway
	default:
		return ""
	}
}

// holds reports whether c still holds thing, at index unless index is AnyIndex.
func holds(c world.Cylinder, thing world.Thing, index uint8) bool {
	at, ok := c.IndexOf(thing)
	if !ok {
		return false
	}
	return index == world.AnyIndex || at == index
}
