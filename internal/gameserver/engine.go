package gameserver

import (
	"github.com/cory-johannsen/tilemud/internal/game/world"
	"github.com/cory-johannsen/tilemud/internal/scripting"
)

// BindEngine points the Lua engine.* world functions at g. Every call is
// queued as a system operation, so a rule hook never changes the world while
// the operation that fired it is still running.
//
// Precondition: m must not be nil.
func (g *Game) BindEngine(m *scripting.Manager) {
	m.ChangeItem = func(x, y, z int, fromType, toType uint16) error {
		return g.ChangeItem(world.Location{X: x, Y: y, Z: z}, fromType, toType)
	}
	m.CreateItem = func(x, y, z int, typeID uint16, amount int) error {
		return g.CreateItem(world.Location{X: x, Y: y, Z: z}, typeID, amount)
	}
	m.RemoveItem = func(x, y, z int, typeID uint16, amount int) error {
		return g.RemoveItem(world.Location{X: x, Y: y, Z: z}, typeID, amount)
	}
	m.SendText = g.SendText
}
