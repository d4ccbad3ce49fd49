package scripting

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
)

// globalZoneID is the reserved key for shared scripts loaded via LoadGlobal.
// CallHook falls back to this VM when no zone VM is found.
const globalZoneID = "__global__"

// vm is one loaded LState. An LState is single-threaded; mu serializes calls.
type vm struct {
	mu    sync.Mutex
	L     *lua.LState
	limit int
}

// Manager owns one sandboxed LState per zone and exposes hook dispatch.
//
// Manager is safe for concurrent CallHook. Calls into the same zone run one at
// a time; different zones run concurrently.
type Manager struct {
	mu     sync.RWMutex
	vms    map[string]*vm
	logger *zap.Logger

	// Injected after construction. nil = no-op in engine.* modules.
	ChangeItem func(x, y, z int, fromType, toType uint16) error
	CreateItem func(x, y, z int, typeID uint16, amount int) error
	RemoveItem func(x, y, z int, typeID uint16, amount int) error
	SendText   func(creatureID uint32, text string) error
}

// NewManager creates a Manager.
//
// Precondition: logger must be non-nil.
// Postcondition: Returns a non-nil Manager with an empty zone map.
func NewManager(logger *zap.Logger) *Manager {
	if logger == nil {
		panic("scripting.NewManager: logger must not be nil")
	}
	return &Manager{
		vms:    make(map[string]*vm),
		logger: logger,
	}
}

// LoadZone creates a sandboxed VM for zoneID, registers all engine.* modules,
// then executes every *.lua file in scriptDir in lexicographic order.
//
// Precondition: zoneID must be non-empty; scriptDir must be a readable directory.
// Postcondition: Zone VM is registered; returns error on Lua load failure.
func (m *Manager) LoadZone(zoneID, scriptDir string, instLimit int) error {
	return m.loadInto(zoneID, scriptDir, instLimit)
}

// LoadGlobal creates the "__global__" VM for shared scripts accessible
// as a CallHook fallback from any zone.
//
// Precondition: scriptDir must be a readable directory.
// Postcondition: Global VM is registered; returns error on Lua load failure.
func (m *Manager) LoadGlobal(scriptDir string, instLimit int) error {
	return m.loadInto(globalZoneID, scriptDir, instLimit)
}

// HasZone reports whether a VM is loaded for zoneID.
func (m *Manager) HasZone(zoneID string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.vms[zoneID]
	return ok
}

func (m *Manager) loadInto(key, scriptDir string, instLimit int) error {
	L, cancel := NewSandboxedState(instLimit)
	defer cancel()
	m.RegisterModules(L)

	entries, err := os.ReadDir(scriptDir)
	if err != nil {
		L.Close()
		return fmt.Errorf("scripting: reading script dir %q for %q: %w", scriptDir, key, err)
	}

	var luaFiles []string
	for _, e := range entries {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".lua" {
			luaFiles = append(luaFiles, filepath.Join(scriptDir, e.Name()))
		}
	}
	sort.Strings(luaFiles)

	for _, path := range luaFiles {
		if err := L.DoFile(path); err != nil {
			L.Close()
			return fmt.Errorf("scripting: loading %q for %q: %w", path, key, err)
		}
	}
	L.RemoveContext()

	m.mu.Lock()
	old := m.vms[key]
	m.vms[key] = &vm{L: L, limit: effectiveLimit(instLimit)}
	m.mu.Unlock()
	if old != nil {
		old.mu.Lock()
		old.L.Close()
		old.mu.Unlock()
	}
	m.logger.Debug("scripting: loaded VM", zap.String("zone", key), zap.Int("files", len(luaFiles)))
	return nil
}

func (m *Manager) lookup(zoneID string) *vm {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.vms[zoneID]
	if !ok {
		v = m.vms[globalZoneID]
	}
	return v
}

// CallHook calls the named Lua global function in zoneID's VM. If the zone has
// no VM, the __global__ VM is tried as a fallback. Returns (LNil, nil) if the
// hook is not defined or no VM exists. Lua runtime errors are logged at Warn
// level and never propagated.
//
// Precondition: args must be valid lua.LValue instances.
// Postcondition: Returns the first return value of the hook, or LNil.
func (m *Manager) CallHook(zoneID, hook string, args ...lua.LValue) (lua.LValue, error) {
	return m.call(zoneID, hook, func(*lua.LState) []lua.LValue { return args })
}

// call runs hook with arguments built inside the VM by build.
func (m *Manager) call(zoneID, hook string, build func(L *lua.LState) []lua.LValue) (lua.LValue, error) {
	v := m.lookup(zoneID)
	if v == nil {
		m.logger.Info("scripting: no VM for zone",
			zap.String("zone", zoneID),
			zap.String("hook", hook),
		)
		return lua.LNil, nil
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	if v.L.IsClosed() {
		return lua.LNil, nil
	}
	L := v.L
	fn := L.GetGlobal(hook)
	if fn == lua.LNil {
		return lua.LNil, nil
	}

	ctx, cancel := newCountingContext(v.limit)
	L.SetContext(ctx)
	defer func() {
		L.RemoveContext()
		cancel()
	}()

	if err := L.CallByParam(lua.P{
		Fn:      fn,
		NRet:    1,
		Protect: true,
	}, build(L)...); err != nil {
		m.logger.Warn("scripting: Lua runtime error",
			zap.String("zone", zoneID),
			zap.String("hook", hook),
			zap.Error(err),
		)
		return lua.LNil, nil
	}

	ret := L.Get(-1)
	L.Pop(1)
	return ret, nil
}

// Close releases every VM. Subsequent CallHook calls return LNil.
func (m *Manager) Close() {
	m.mu.Lock()
	vms := m.vms
	m.vms = make(map[string]*vm)
	m.mu.Unlock()
	for _, v := range vms {
		v.mu.Lock()
		v.L.Close()
		v.mu.Unlock()
	}
}

var _ context.Context = (*budget)(nil)
