package scripting

import lua "github.com/yuin/gopher-lua"

// ThingInfo is a snapshot of a thing passed to Lua hooks.
type ThingInfo struct {
	// TypeID is the item type id, or the creature thing id.
	TypeID uint16
	Amount int
	// CreatureID is set when the thing is a creature.
	CreatureID uint32
}

// HookArgs is the argument table of an event hook:
//
//	{x, y, z, thing = {type, amount, creature}, requestor, target = {...}}
type HookArgs struct {
	X, Y, Z   int
	Thing     *ThingInfo
	Requestor uint32
	Target    *ThingInfo
}

// CallEventHook calls hook in zoneID's VM with args as a single table and
// reports whether the hook returned a truthy value.
//
// Postcondition: returns false when the hook is undefined or fails.
func (m *Manager) CallEventHook(zoneID, hook string, args HookArgs) (bool, error) {
	ret, err := m.call(zoneID, hook, func(L *lua.LState) []lua.LValue {
		return []lua.LValue{args.toTable(L)}
	})
	if err != nil {
		return false, err
	}
	return lua.LVAsBool(ret), nil
}

func (a HookArgs) toTable(L *lua.LState) *lua.LTable {
	t := L.NewTable()
	L.SetField(t, "x", lua.LNumber(a.X))
	L.SetField(t, "y", lua.LNumber(a.Y))
	L.SetField(t, "z", lua.LNumber(a.Z))
	L.SetField(t, "requestor", lua.LNumber(a.Requestor))
	if a.Thing != nil {
		L.SetField(t, "thing", a.Thing.toTable(L))
	}
	if a.Target != nil {
		L.SetField(t, "target", a.Target.toTable(L))
	}
	return t
}

func (i *ThingInfo) toTable(L *lua.LState) *lua.LTable {
	t := L.NewTable()
	L.SetField(t, "type", lua.LNumber(i.TypeID))
	L.SetField(t, "amount", lua.LNumber(i.Amount))
	if i.CreatureID != 0 {
		L.SetField(t, "creature", lua.LNumber(i.CreatureID))
	}
	return t
}
