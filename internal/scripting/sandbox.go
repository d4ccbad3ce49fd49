// Package scripting runs the event-rule scripts of each zone in sandboxed
// GopherLua VMs. It knows nothing of the world model; every engine.* call a
// script makes goes through callbacks injected into the Manager.
package scripting

import (
	"context"
	"strings"
	"sync/atomic"

	lua "github.com/yuin/gopher-lua"
)

// DefaultInstructionLimit bounds the opcodes one hook call may execute when
// the zone sets no limit of its own.
const DefaultInstructionLimit = 100_000

// MaxRepeatLength caps the length of a string built by string.rep.
const MaxRepeatLength = 64 << 10

// blockedGlobals are base-library functions rule scripts never get.
var blockedGlobals = []string{"dofile", "loadfile", "load", "loadstring", "collectgarbage", "require"}

// openSafeLibs loads base, table, string and math; os, io and debug stay
// unavailable.
func openSafeLibs(L *lua.LState) {
	lua.OpenBase(L)
	lua.OpenTable(L)
	lua.OpenString(L)
	lua.OpenMath(L)
}

// budget cancels itself once Done has been called limit times. The VM
// polls Done once per opcode, so this is an instruction counter.
type budget struct {
	context.Context
	cancel    context.CancelFunc
	remaining atomic.Int64
}

func (b *budget) Done() <-chan struct{} {
	if b.remaining.Add(-1) <= 0 {
		b.cancel()
	}
	return b.Context.Done()
}

// newCountingContext returns a context that is cancelled after limit opcodes.
//
// Precondition: limit > 0.
func newCountingContext(limit int) (context.Context, context.CancelFunc) {
	base, cancel := context.WithCancel(context.Background())
	b := &budget{Context: base, cancel: cancel}
	b.remaining.Store(int64(limit))
	return b, cancel
}

func effectiveLimit(instLimit int) int {
	if instLimit <= 0 {
		return DefaultInstructionLimit
	}
	return instLimit
}

// boundedRep replaces string.rep. A single opcode could otherwise allocate
// an arbitrarily large string past the instruction budget.
func boundedRep(L *lua.LState) int {
	s := L.CheckString(1)
	n := L.CheckInt(2)
	if n <= 0 || s == "" {
		L.Push(lua.LString(""))
		return 1
	}
	if len(s) > MaxRepeatLength/n {
		L.RaiseError("string.rep: result longer than %d bytes", MaxRepeatLength)
		return 0
	}
	L.Push(lua.LString(strings.Repeat(s, n)))
	return 1
}

// NewSandboxedState creates a VM for rule scripts: safe libraries only, the
// blocked globals removed, string.rep bounded, and execution limited to
// instLimit opcodes until cancel is called.
//
// Precondition: instLimit >= 0; 0 uses DefaultInstructionLimit.
// Postcondition: the caller owns L and must call cancel and L.Close().
func NewSandboxedState(instLimit int) (*lua.LState, context.CancelFunc) {
	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	openSafeLibs(L)
	for _, name := range blockedGlobals {
		L.SetGlobal(name, lua.LNil)
	}
	if str, ok := L.GetGlobal(lua.StringLibName).(*lua.LTable); ok {
		str.RawSetString("rep", L.NewFunction(boundedRep))
	}

	ctx, cancel := newCountingContext(effectiveLimit(instLimit))
	L.SetContext(ctx)
	return L, cancel
}
