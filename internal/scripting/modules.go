package scripting

import (
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
)

// RegisterModules registers the engine global into L:
//
//	engine.log.debug/info/warn/error(msg)
//	engine.change_item(x, y, z, from_type, to_type)
//	engine.create_item(x, y, z, type, amount)
//	engine.remove_item(x, y, z, type, amount)
//	engine.send_text(creature_id, text)
//
// The world-changing functions return true when the request was accepted, or
// false and an error message.
//
// Precondition: L must be from NewSandboxedState.
// Postcondition: engine global is defined in L.
func (m *Manager) RegisterModules(L *lua.LState) {
	engine := L.NewTable()
	L.SetField(engine, "log", m.newLogModule(L))
	L.SetField(engine, "change_item", L.NewFunction(m.luaChangeItem))
	L.SetField(engine, "create_item", L.NewFunction(m.luaCreateItem))
	L.SetField(engine, "remove_item", L.NewFunction(m.luaRemoveItem))
	L.SetField(engine, "send_text", L.NewFunction(m.luaSendText))
	L.SetGlobal("engine", engine)
}

func (m *Manager) newLogModule(L *lua.LState) *lua.LTable {
	mod := L.NewTable()
	levels := map[string]func(string, ...zap.Field){
		"debug": m.logger.Debug,
		"info":  m.logger.Info,
		"warn":  m.logger.Warn,
		"error": m.logger.Error,
	}
	for name, logFn := range levels {
		logFn := logFn
		L.SetField(mod, name, L.NewFunction(func(L *lua.LState) int {
			logFn(L.CheckString(1), zap.String("source", "lua"))
			return 0
		}))
	}
	return mod
}

// pushResult pushes true, or false and the error message.
func pushResult(L *lua.LState, err error) int {
	if err != nil {
		L.Push(lua.LFalse)
		L.Push(lua.LString(err.Error()))
		return 2
	}
	L.Push(lua.LTrue)
	return 1
}

func (m *Manager) luaChangeItem(L *lua.LState) int {
	x, y, z := L.CheckInt(1), L.CheckInt(2), L.CheckInt(3)
	from, to := L.CheckInt(4), L.CheckInt(5)
	if m.ChangeItem == nil {
		L.Push(lua.LFalse)
		return 1
	}
	return pushResult(L, m.ChangeItem(x, y, z, uint16(from), uint16(to)))
}

func (m *Manager) luaCreateItem(L *lua.LState) int {
	x, y, z := L.CheckInt(1), L.CheckInt(2), L.CheckInt(3)
	typeID := L.CheckInt(4)
	amount := L.OptInt(5, 1)
	if m.CreateItem == nil {
		L.Push(lua.LFalse)
		return 1
	}
	return pushResult(L, m.CreateItem(x, y, z, uint16(typeID), amount))
}

func (m *Manager) luaRemoveItem(L *lua.LState) int {
	x, y, z := L.CheckInt(1), L.CheckInt(2), L.CheckInt(3)
	typeID := L.CheckInt(4)
	amount := L.OptInt(5, 1)
	if m.RemoveItem == nil {
		L.Push(lua.LFalse)
		return 1
	}
	return pushResult(L, m.RemoveItem(x, y, z, uint16(typeID), amount))
}

func (m *Manager) luaSendText(L *lua.LState) int {
	id := L.CheckInt(1)
	text := L.CheckString(2)
	if m.SendText == nil {
		L.Push(lua.LFalse)
		return 1
	}
	return pushResult(L, m.SendText(uint32(id), text))
}
