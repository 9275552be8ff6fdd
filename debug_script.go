// debug_script.go - Lua scripting for the machine monitor

package main

import (
	"fmt"

	lua "github.com/yuin/gopher-lua"
)

// runScript executes a Lua file against the paused machine. The script sees
// the machine through a small function set:
//
//	peek(addr)        read a word from the raw physical bus
//	peek8(addr)       read a byte
//	poke(addr, v)     write a word
//	poke8(addr, v)    write a byte
//	reg(name)         read a GPR/CSR/pc by monitor name ("a0", "mstatus")
//	setreg(name, v)   write a GPR or the pc
//	pc() / setpc(v)   program counter access
//	step([n])         run n machine instructions (default 1)
//	disasm(addr)      disassembly string of the word at addr
func (m *Monitor) runScript(path string) error {
	L := lua.NewState()
	defer L.Close()

	L.SetGlobal("peek", L.NewFunction(func(L *lua.LState) int {
		addr := uint32(L.CheckInt64(1))
		L.Push(lua.LNumber(m.bus.Read32(addr)))
		return 1
	}))
	L.SetGlobal("peek8", L.NewFunction(func(L *lua.LState) int {
		addr := uint32(L.CheckInt64(1))
		L.Push(lua.LNumber(m.bus.Read8(addr)))
		return 1
	}))
	L.SetGlobal("poke", L.NewFunction(func(L *lua.LState) int {
		m.bus.Write32(uint32(L.CheckInt64(1)), uint32(L.CheckInt64(2)))
		return 0
	}))
	L.SetGlobal("poke8", L.NewFunction(func(L *lua.LState) int {
		m.bus.Write8(uint32(L.CheckInt64(1)), uint8(L.CheckInt64(2)))
		return 0
	}))
	L.SetGlobal("reg", L.NewFunction(func(L *lua.LState) int {
		name := L.CheckString(1)
		idx, ok := regCSRMap[name]
		if !ok {
			L.RaiseError("unknown register %q", name)
			return 0
		}
		L.Push(lua.LNumber(m.eval.lookupReg(idx)))
		return 1
	}))
	L.SetGlobal("setreg", L.NewFunction(func(L *lua.LState) int {
		name := L.CheckString(1)
		val := uint32(L.CheckInt64(2))
		idx, ok := regCSRMap[name]
		switch {
		case ok && idx < 32:
			m.core.SetReg(idx, val)
		case ok && idx == regPC:
			m.core.SetPC(val)
		default:
			L.RaiseError("register %q is not writable from scripts", name)
		}
		return 0
	}))
	L.SetGlobal("pc", L.NewFunction(func(L *lua.LState) int {
		L.Push(lua.LNumber(m.core.PC()))
		return 1
	}))
	L.SetGlobal("setpc", L.NewFunction(func(L *lua.LState) int {
		m.core.SetPC(uint32(L.CheckInt64(1)))
		return 0
	}))
	L.SetGlobal("step", L.NewFunction(func(L *lua.LState) int {
		n := 1
		if L.GetTop() >= 1 {
			n = int(L.CheckInt64(1))
		}
		for ; n > 0; n-- {
			m.execute()
		}
		return 0
	}))
	L.SetGlobal("disasm", L.NewFunction(func(L *lua.LState) int {
		addr := uint32(L.CheckInt64(1))
		L.Push(lua.LString(Disassemble(addr, m.bus.Read32(addr))))
		return 1
	}))

	if err := L.DoFile(path); err != nil {
		return fmt.Errorf("script: %v", err)
	}
	return nil
}
