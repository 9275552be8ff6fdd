// debug_commands.go - Monitor command language

package main

import (
	"fmt"
	"strconv"
	"strings"
)

// parseCommand executes one monitor command line. It returns true when the
// command resumes execution (continue, stepi).
func (m *Monitor) parseCommand(line string) bool {
	fields := strings.Fields(line)
	cmd := fields[0]
	args := fields[1:]
	rest := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), cmd))

	switch cmd {
	case "help", "?":
		m.printHelp(args)
	case "quit", "q":
		m.host.End()
		m.exitFn(0)
	case "break", "b":
		m.cmdBreak(rest)
	case "watch", "w":
		m.cmdWatch(rest)
	case "delete", "d":
		m.cmdDelete(args)
	case "continue", "c":
		return true
	case "stepi", "si":
		return m.cmdStepInst(args)
	case "print", "p":
		m.cmdPrint(rest)
	case "x":
		m.cmdExamine(args, rest)
	case "disasm", "da":
		m.cmdDisasm(args)
	case "info":
		m.cmdInfo(args)
	case "script":
		if rest == "" {
			logError("missing script file, try 'help script'")
			break
		}
		if err := m.runScript(rest); err != nil {
			logError(err.Error())
		}
	default:
		logError("unknown command, try 'help' to see command list")
	}
	return false
}

func logError(msg string) {
	fmt.Println("ERROR: " + msg)
}

func (m *Monitor) printHelp(args []string) {
	if len(args) == 0 {
		fmt.Println("Monitor commands:")
		fmt.Println("  help      [CMD]     --- show help message of CMD")
		fmt.Println("  quit/q              --- quit program")
		fmt.Println("  break/b   [ADDR]    --- set breakpoint at ADDR")
		fmt.Println("  watch/w   EXPR      --- set watchpoint at EXPR")
		fmt.Println("  delete/d  [N]       --- delete breakpoint/watchpoint")
		fmt.Println("  continue/c          --- continue running")
		fmt.Println("  stepi/si  [N]       --- step by N instructions")
		fmt.Println("  print/p   EXPR      --- show value of EXPR")
		fmt.Println("  x         N EXPR    --- examine memory at EXPR")
		fmt.Println("  disasm/da [N] [ADDR]--- disassemble N instructions")
		fmt.Println("  info      ITEM      --- show information of ITEM")
		fmt.Println("  script    FILE      --- run a Lua script against the machine")
		return
	}
	switch args[0] {
	case "help":
		fmt.Println("Syntax: help [CMD]")
		fmt.Println("  Show a list of all monitor commands, or give details about CMD.")
	case "quit", "q":
		fmt.Println("Syntax: quit/q")
		fmt.Println("  Quit the emulator and monitor.")
	case "break", "b":
		fmt.Println("Syntax: break/b [ADDR]")
		fmt.Println("  Set a breakpoint at a specific address (PC), ADDR defaults to")
		fmt.Println("  the current PC. ADDR may be any expression.")
	case "watch", "w":
		fmt.Println("Syntax: watch/w EXPR")
		fmt.Println("  Set a watchpoint for an expression, pause when EXPR changes.")
	case "delete", "d":
		fmt.Println("Syntax: delete/d [N]")
		fmt.Println("  Delete breakpoint/watchpoint N, or everything by default.")
	case "continue", "c":
		fmt.Println("Syntax: continue/c")
		fmt.Println("  Continue running the current program.")
	case "stepi", "si":
		fmt.Println("Syntax: stepi/si [N]")
		fmt.Println("  Step by N instructions, N defaults to 1.")
	case "print", "p":
		fmt.Println("Syntax: print/p EXPR")
		fmt.Println("  Show the value of EXPR and record it as $n.")
	case "x":
		fmt.Println("Syntax: x N EXPR")
		fmt.Println("  Examine N units of memory at address EXPR, 4 bytes per unit.")
	case "disasm", "da":
		fmt.Println("Syntax: disasm/da [N] [ADDR]")
		fmt.Println("  Disassemble N instructions starting at ADDR; N defaults to 8")
		fmt.Println("  and ADDR to the current PC.")
	case "info":
		fmt.Println("Syntax: info ITEM")
		fmt.Println("  Show information of ITEM.")
		fmt.Println()
		fmt.Println("ITEM:")
		fmt.Println("  reg/r   --- registers")
		fmt.Println("  csr/c   --- CSRs")
		fmt.Println("  break/b --- breakpoints")
		fmt.Println("  watch/w --- watchpoints")
	case "script":
		fmt.Println("Syntax: script FILE")
		fmt.Println("  Run a Lua script with the machine bound as peek/poke/reg/")
		fmt.Println("  setreg/pc/setpc/csr/step/disasm.")
	default:
		logError("unknown command, try 'help' to see command list")
	}
}

func (m *Monitor) cmdBreak(rest string) {
	addr := m.core.PC()
	if rest != "" {
		v, err := m.eval.Eval(rest)
		if err != nil {
			logError("invalid expression")
			return
		}
		addr = v
	}
	if addr&0b11 != 0 {
		logError("breakpoint address misaligned")
		return
	}
	id := m.installBreak(addr)
	fmt.Printf("breakpoint %d set at %08x\n", id, addr)
}

func (m *Monitor) cmdWatch(rest string) {
	if rest == "" {
		logError("missing 'EXPR', try 'help watch'")
		return
	}
	id, err := m.installWatch(rest)
	if err != nil {
		logError("invalid expression")
		return
	}
	fmt.Printf("watchpoint %d set for %s\n", id, rest)
}

func (m *Monitor) cmdDelete(args []string) {
	if len(args) == 0 {
		fmt.Print("are you sure to delete all breakpoints & watchpoints? [y/n] ")
		line, err := m.host.ReadLine()
		if err != nil || !strings.HasPrefix(strings.ToLower(strings.TrimSpace(line)), "y") {
			return
		}
		for id := range m.breaks {
			m.removeBreak(id)
		}
		for id := range m.watches {
			m.removeWatch(id)
		}
		return
	}
	id, err := strconv.Atoi(args[0])
	if err != nil {
		logError("invalid number 'N', try 'help delete'")
		return
	}
	if !m.removeBreak(id) && !m.removeWatch(id) {
		logError("breakpoint/watchpoint not found")
	}
}

func (m *Monitor) cmdStepInst(args []string) bool {
	if len(args) == 0 {
		m.stepCount = 1
		return true
	}
	n, err := strconv.Atoi(args[0])
	if err != nil || n <= 0 {
		logError("invalid step count")
		m.stepCount = -1
		return false
	}
	m.stepCount = n
	return true
}

func (m *Monitor) cmdPrint(rest string) {
	if rest == "" {
		logError("missing 'EXPR', try 'help print'")
		return
	}
	val, id, err := m.eval.EvalRecord(rest)
	if err != nil {
		logError("invalid expression")
		return
	}
	fmt.Printf("$%d = %d\n", id, val)
}

func (m *Monitor) cmdExamine(args []string, rest string) {
	if len(args) < 2 {
		logError("invalid arguments, try 'help x'")
		return
	}
	n, err := strconv.Atoi(args[0])
	if err != nil || n <= 0 {
		logError("invalid count 'N', try 'help x'")
		return
	}
	expr := strings.TrimSpace(strings.TrimPrefix(rest, args[0]))
	addr, err := m.eval.Eval(expr)
	if err != nil {
		logError("invalid expression")
		return
	}
	for ; n > 0; n-- {
		fmt.Printf("%08x: %02x %02x %02x %02x\n", addr,
			m.bus.Read8(addr), m.bus.Read8(addr+1),
			m.bus.Read8(addr+2), m.bus.Read8(addr+3))
		addr += 4
	}
}

func (m *Monitor) cmdDisasm(args []string) {
	n := 8
	addr := m.core.PC()
	if len(args) >= 1 {
		v, err := strconv.Atoi(args[0])
		if err != nil || v <= 0 {
			logError("invalid count 'N', try 'help disasm'")
			return
		}
		n = v
	}
	if len(args) >= 2 {
		v, err := m.eval.Eval(strings.Join(args[1:], " "))
		if err != nil {
			logError("invalid expression")
			return
		}
		addr = v &^ 0b11
	}
	for ; n > 0; n-- {
		word := m.bus.Read32(addr)
		if bp := m.breakpointAt(addr); bp != nil {
			word = bp.orig
		}
		marker := "   "
		if addr == m.core.PC() {
			marker = "-> "
		}
		fmt.Printf("%s%08x:  %08x    %s\n", marker, addr, word, Disassemble(addr, word))
		addr += 4
	}
}

func (m *Monitor) cmdInfo(args []string) {
	if len(args) == 0 {
		logError("invalid 'ITEM', try 'help info'")
		return
	}
	switch args[0] {
	case "reg", "r":
		m.printRegInfo()
	case "csr", "c":
		m.printCSRInfo()
	case "break", "b":
		if len(m.breaks) == 0 {
			fmt.Println("no breakpoints currently set")
			return
		}
		fmt.Printf("number of breakpoints: %d\n", len(m.breaks))
		for id, bp := range m.breaks {
			fmt.Printf("  breakpoint #%d: pc = %08x\n", id, bp.addr)
		}
	case "watch", "w":
		if len(m.watches) == 0 {
			fmt.Println("no watchpoints currently set")
			return
		}
		fmt.Printf("number of watchpoints: %d\n", len(m.watches))
		for id, w := range m.watches {
			expr, _ := m.eval.Record(w.recordID)
			fmt.Printf("  watchpoint #%d: $%d = (%s), value = %d\n",
				id, w.recordID, expr, w.lastVal)
		}
	default:
		logError("invalid 'ITEM', try 'help info'")
	}
}

// printRegInfo dumps pc and the 31 named GPRs, four per line.
func (m *Monitor) printRegInfo() {
	count := 0
	emit := func(name string, val uint32) {
		fmt.Printf("%-4s%08x   ", name, val)
		count++
		if count == 4 {
			count = 0
			fmt.Println()
		}
	}
	for i := uint32(1); i < 32; i++ {
		emit(gprNames[i], m.core.Reg(i))
	}
	emit("pc", m.core.PC())
	if count != 0 {
		fmt.Println()
	}
}

// printCSRInfo dumps the displayable CSRs, three per line.
func (m *Monitor) printCSRInfo() {
	count := 0
	for _, name := range csrDisplayList {
		addr := regCSRMap[name]
		fmt.Printf("%-10s%08x   ", name, m.core.CSRFile().ReadDataForce(addr))
		count++
		if count == 3 {
			count = 0
			fmt.Println()
		}
	}
	if count != 0 {
		fmt.Println()
	}
}
