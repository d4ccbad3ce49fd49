package scripting_test

import (
	"testing"

	lua "github.com/yuin/gopher-lua"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/tilemud/internal/scripting"
)

func TestNewSandboxedState_UnsafeLibsNil(t *testing.T) {
	L, cancel := scripting.NewSandboxedState(0)
	require.NotNil(t, L)
	defer cancel()
	defer L.Close()
	for _, name := range []string{"os", "io", "debug"} {
		assert.Equal(t, lua.LNil, L.GetGlobal(name), "expected %s to be nil", name)
	}
}

func TestNewSandboxedState_DangerousGlobalsNil(t *testing.T) {
	L, cancel := scripting.NewSandboxedState(0)
	require.NotNil(t, L)
	defer cancel()
	defer L.Close()
	for _, name := range []string{"dofile", "loadfile", "load", "loadstring", "collectgarbage", "require"} {
		assert.Equal(t, lua.LNil, L.GetGlobal(name), "expected %s to be nil", name)
	}
}

func TestNewSandboxedState_SafeLibsAvailable(t *testing.T) {
	L, cancel := scripting.NewSandboxedState(0)
	require.NotNil(t, L)
	defer cancel()
	defer L.Close()
	err := L.DoString(`
		local x = math.sqrt(4)
		assert(x == 2.0, "math.sqrt failed")
		local s = string.upper("hello")
		assert(s == "HELLO", "string.upper failed")
	`)
	assert.NoError(t, err)
}

func TestNewSandboxedState_StringRepIsBounded(t *testing.T) {
	L, cancel := scripting.NewSandboxedState(0)
	defer cancel()
	defer L.Close()

	require.NoError(t, L.DoString(`short = string.rep("ab", 3)`))
	assert.Equal(t, lua.LString("ababab"), L.GetGlobal("short"))
	require.NoError(t, L.DoString(`none = string.rep("ab", 0)`))
	assert.Equal(t, lua.LString(""), L.GetGlobal("none"))

	err := L.DoString(`local s = string.rep("x", 1000000000)`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "string.rep")
}

func TestNewSandboxedState_InstructionLimitExceeded(t *testing.T) {
	L, cancel := scripting.NewSandboxedState(10)
	require.NotNil(t, L)
	defer cancel()
	defer L.Close()
	err := L.DoString(`while true do end`)
	assert.Error(t, err, "expected instruction limit error")
}

func TestNewSandboxedState_DefaultLimit_NormalScriptRuns(t *testing.T) {
	L, cancel := scripting.NewSandboxedState(0)
	require.NotNil(t, L)
	defer cancel()
	defer L.Close()
	assert.NoError(t, L.DoString(`local x = 1 + 1`))
}

func TestProperty_InstructionLimitAlwaysErrors(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		limit := rapid.IntRange(1, 50).Draw(t, "limit")
		L, cancel := scripting.NewSandboxedState(limit)
		defer cancel()
		defer L.Close()
		err := L.DoString(`while true do end`)
		if err == nil {
			t.Fatalf("expected error with limit=%d but got nil", limit)
		}
	})
}
