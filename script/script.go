// Package script lets a host override BDOS trap policy with a Lua file
// instead of a Go rebuild: what counts as a console write worth capturing,
// when to request early termination, which registers to log.
package script

import (
	"fmt"

	lua "github.com/yuin/gopher-lua"

	"github.com/zotley/z80core/z80"
)

// Hook wraps a loaded Lua script and exposes it as a z80.TrapHandler.
type Hook struct {
	state *lua.LState
	fn    *lua.LFunction
}

// Load reads and compiles a Lua file defining a global function
// `on_trap(get_reg, set_reg, read_mem)` that returns true to request
// termination. get_reg/set_reg take a register mnemonic string; read_mem
// takes a 16-bit address.
func Load(path string) (*Hook, error) {
	state := lua.NewState()
	if err := state.DoFile(path); err != nil {
		state.Close()
		return nil, fmt.Errorf("script: load %s: %w", path, err)
	}

	fnVal := state.GetGlobal("on_trap")
	fn, ok := fnVal.(*lua.LFunction)
	if !ok {
		state.Close()
		return nil, fmt.Errorf("script: %s does not define on_trap", path)
	}

	return &Hook{state: state, fn: fn}, nil
}

// Close releases the underlying Lua state.
func (h *Hook) Close() {
	h.state.Close()
}

// TrapHandler adapts the loaded script to z80.TrapHandler, called at every
// instruction boundary during z80.CPU.RunUntil.
func (h *Hook) TrapHandler() z80.TrapHandler {
	return func(c *z80.CPU) bool {
		L := h.state

		getReg := L.NewFunction(func(L *lua.LState) int {
			name := L.ToString(1)
			value, ok := c.GetReg(name)
			if !ok {
				L.Push(lua.LNil)
				return 1
			}
			L.Push(lua.LNumber(value))
			return 1
		})
		setReg := L.NewFunction(func(L *lua.LState) int {
			name := L.ToString(1)
			value := L.ToInt64(2)
			c.SetReg(name, uint64(value))
			return 0
		})
		readMem := L.NewFunction(func(L *lua.LState) int {
			addr := uint16(L.ToInt(1))
			L.Push(lua.LNumber(c.ReadMem(addr)))
			return 1
		})

		if err := L.CallByParam(lua.P{
			Fn:      h.fn,
			NRet:    1,
			Protect: true,
		}, getReg, setReg, readMem); err != nil {
			return false
		}

		ret := L.Get(-1)
		L.Pop(1)
		return ret == lua.LTrue
	}
}
