package scripting_test

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/tilemud/internal/scripting"
)

func newTestManager(t testing.TB) (*scripting.Manager, *observer.ObservedLogs) {
	t.Helper()
	core, logs := observer.New(zap.DebugLevel)
	return scripting.NewManager(zap.New(core)), logs
}

func writeTempLua(t testing.TB, filename, src string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, filename), []byte(src), 0644))
	return dir
}

func hasLevel(logs *observer.ObservedLogs, level zapcore.Level) bool {
	for _, e := range logs.All() {
		if e.Level == level {
			return true
		}
	}
	return false
}

func TestManager_LoadZone_CallsHook(t *testing.T) {
	mgr, _ := newTestManager(t)
	dir := writeTempLua(t, "hooks.lua", `
		function test_hook(a, b)
			return a + b
		end
	`)
	require.NoError(t, mgr.LoadZone("harbor", dir, 0))
	assert.True(t, mgr.HasZone("harbor"))
	ret, err := mgr.CallHook("harbor", "test_hook", lua.LNumber(3), lua.LNumber(4))
	require.NoError(t, err)
	assert.Equal(t, lua.LNumber(7), ret)
}

func TestManager_CallHook_MissingHook_NoOp(t *testing.T) {
	mgr, _ := newTestManager(t)
	dir := writeTempLua(t, "empty.lua", `-- no functions`)
	require.NoError(t, mgr.LoadZone("harbor", dir, 0))
	ret, err := mgr.CallHook("harbor", "on_use")
	require.NoError(t, err)
	assert.Equal(t, lua.LNil, ret)
}

func TestManager_CallHook_UnknownZone_LogsInfoReturnsNil(t *testing.T) {
	mgr, logs := newTestManager(t)
	ret, err := mgr.CallHook("no_such_zone", "on_use")
	require.NoError(t, err)
	assert.Equal(t, lua.LNil, ret)
	assert.True(t, hasLevel(logs, zap.InfoLevel), "expected Info log for missing zone")
}

func TestManager_CallHook_RuntimeError_WarnLogNoPanic(t *testing.T) {
	mgr, logs := newTestManager(t)
	dir := writeTempLua(t, "bad.lua", `
		function bad_hook()
			error("intentional error")
		end
	`)
	require.NoError(t, mgr.LoadZone("harbor", dir, 0))
	ret, err := mgr.CallHook("harbor", "bad_hook")
	require.NoError(t, err)
	assert.Equal(t, lua.LNil, ret)
	assert.True(t, hasLevel(logs, zap.WarnLevel), "expected Warn log for Lua runtime error")
}

func TestManager_InstructionLimitAppliesPerCall(t *testing.T) {
	mgr, _ := newTestManager(t)
	dir := writeTempLua(t, "loop.lua", `
		function count(n)
			local s = 0
			for i = 1, n do s = s + i end
			return s
		end
	`)
	require.NoError(t, mgr.LoadZone("harbor", dir, 500))

	for i := 0; i < 20; i++ {
		ret, err := mgr.CallHook("harbor", "count", lua.LNumber(10))
		require.NoError(t, err)
		assert.Equal(t, lua.LNumber(55), ret, "call %d exhausted a shared budget", i)
	}
	ret, err := mgr.CallHook("harbor", "count", lua.LNumber(1_000_000))
	require.NoError(t, err)
	assert.Equal(t, lua.LNil, ret, "a runaway call is stopped")

	ret, err = mgr.CallHook("harbor", "count", lua.LNumber(3))
	require.NoError(t, err)
	assert.Equal(t, lua.LNumber(6), ret, "the VM stays usable after a stopped call")
}

func TestManager_LoadGlobal_CallHookFallback(t *testing.T) {
	mgr, _ := newTestManager(t)
	dir := writeTempLua(t, "global.lua", `
		function global_hook()
			return 42
		end
	`)
	require.NoError(t, mgr.LoadGlobal(dir, 0))
	ret, err := mgr.CallHook("unknownzone", "global_hook")
	require.NoError(t, err)
	assert.Equal(t, lua.LNumber(42), ret)
}

func TestManager_LoadZone_EmptyDir_NoError(t *testing.T) {
	mgr, _ := newTestManager(t)
	require.NoError(t, mgr.LoadZone("emptyzone", t.TempDir(), 0))
	ret, err := mgr.CallHook("emptyzone", "anything")
	require.NoError(t, err)
	assert.Equal(t, lua.LNil, ret)
}

func TestManager_LoadZone_Errors(t *testing.T) {
	mgr, _ := newTestManager(t)
	assert.Error(t, mgr.LoadZone("badzone", writeTempLua(t, "bad.lua", `this is not valid lua @@@@`), 0))
	assert.Error(t, mgr.LoadZone("missing", filepath.Join(t.TempDir(), "nope"), 0))
	assert.False(t, mgr.HasZone("badzone"))
}

func TestManager_LoadZone_ReplacesVM(t *testing.T) {
	mgr, _ := newTestManager(t)
	require.NoError(t, mgr.LoadZone("harbor", writeTempLua(t, "a.lua", `function v() return 1 end`), 0))
	require.NoError(t, mgr.LoadZone("harbor", writeTempLua(t, "a.lua", `function v() return 2 end`), 0))
	ret, err := mgr.CallHook("harbor", "v")
	require.NoError(t, err)
	assert.Equal(t, lua.LNumber(2), ret)
}

func TestManager_LoadZone_MultipleFiles_OrderedByName(t *testing.T) {
	mgr, _ := newTestManager(t)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.lua"), []byte(`base_val = 10`), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.lua"), []byte(`
		function get_val() return base_val end
	`), 0644))
	require.NoError(t, mgr.LoadZone("ordered", dir, 0))
	ret, err := mgr.CallHook("ordered", "get_val")
	require.NoError(t, err)
	assert.Equal(t, lua.LNumber(10), ret)
}

func TestNewManager_PanicsOnNilLogger(t *testing.T) {
	assert.Panics(t, func() {
		scripting.NewManager(nil)
	})
}

func TestManager_Close_ReleasesZones(t *testing.T) {
	mgr, _ := newTestManager(t)
	dir := writeTempLua(t, "init.lua", `function get_x() return x end`)
	require.NoError(t, mgr.LoadZone("closezone", dir, 0))
	mgr.Close()
	ret, err := mgr.CallHook("closezone", "get_x")
	assert.NoError(t, err)
	assert.Equal(t, lua.LNil, ret)
}

func TestProperty_CallHookMissingZoneNeverPanics(t *testing.T) {
	mgr, _ := newTestManager(t)
	rapid.Check(t, func(rt *rapid.T) {
		zoneID := rapid.StringMatching(`[a-z]{1,10}`).Draw(rt, "zone")
		hook := rapid.StringMatching(`[a-z]{1,10}`).Draw(rt, "hook")
		if _, err := mgr.CallHook(zoneID, hook); err != nil {
			rt.Fatal(err)
		}
	})
}

func TestManager_CallHookConcurrentSameZone_NoRace(t *testing.T) {
	mgr, _ := newTestManager(t)
	dir := writeTempLua(t, "hooks.lua", `
		function concurrent_hook(a, b)
			return a + b
		end
	`)
	require.NoError(t, mgr.LoadZone("conczone", dir, 0))

	const goroutines = 10
	const callsEach = 5
	var wg sync.WaitGroup
	wg.Add(goroutines)
	for i := 0; i < goroutines; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < callsEach; j++ {
				ret, err := mgr.CallHook("conczone", "concurrent_hook", lua.LNumber(1), lua.LNumber(2))
				assert.NoError(t, err)
				assert.Equal(t, lua.LNumber(3), ret)
			}
		}()
	}
	wg.Wait()
}
