// cpu_rv32.go - RV32IMA core: state, cycle driver and trap machinery

/*
The core executes one instruction per NextCycle call:

 1. clear the MMU fault flag; latch mstatus/mie snapshots and refresh mip
    from the external interrupt wires
 2. fetch through the MMU (instruction page faults are raised here) and
    speculate next_pc = pc + 4
 3. dispatch on the opcode to one of the four functional units, which mutate
    the working register copy and may raise exceptions
 4. raise instruction-address-misaligned if next_pc is unaligned, otherwise
    sample interrupts against the cycle-start snapshots
 5. resolve the pending exception: on a trap the working register copy is
    discarded and next_pc becomes the trap vector; otherwise the copy commits
 6. pin x0 to zero, advance pc and bump the counters

Exception priority follows the architectural table; RaiseException keeps only
the highest-ranked cause raised during the cycle (later wins ties) and writes
mcause/mtval immediately, while control redirection happens once at step 5.

The interrupt check reads the enable bits from the cycle-start snapshots, so
an instruction that writes mstatus or mie can never preempt itself.
*/

package main

// ExclusiveMonitor holds the single load-reserved reservation.
type ExclusiveMonitor struct {
	flag bool
	addr uint32
}

func (em *ExclusiveMonitor) SetFlag(addr uint32) {
	em.flag = true
	em.addr = addr
}

func (em *ExclusiveMonitor) ClearFlag() {
	em.flag = false
	em.addr = 0
}

func (em *ExclusiveMonitor) CheckFlag(addr uint32) bool {
	return em.flag && em.addr == addr
}

// CoreState is the mutable guest-visible hart state plus the per-cycle
// transients. It is a plain record; the cycle driver and the functional
// units operate on it through the owning Core.
type CoreState struct {
	regs   [32]uint32
	pc     uint32
	nextPC uint32

	// pending trap for the cycle in progress (EXC_NONE when clear);
	// excCode carries the full mcause value including the interrupt flag
	excCode uint32

	// cycle-start snapshots consulted by the interrupt check
	latchedMStatus uint32
	latchedMIE     uint32
}

// execUnit is the interface of the four functional units. The dispatcher
// picks the unit by opcode and the Execute* shape by instruction format.
type execUnit interface {
	ExecuteR(inst uint32, c *Core)
	ExecuteI(inst uint32, c *Core)
	ExecuteS(inst uint32, c *Core)
	ExecuteU(inst uint32, c *Core)
}

// Core drives the fetch/decode/execute cycle of the single hart.
type Core struct {
	mmu    *MMU
	csr    *CSR
	excMon ExclusiveMonitor
	state  CoreState

	units map[uint32]execUnit

	// external interrupt wires, latched into mip each cycle
	timerInt *bool
	softInt  *bool
	extInt   *bool
}

func NewCore(mmu *MMU, csr *CSR) *Core {
	c := &Core{mmu: mmu, csr: csr}
	intU := &intUnit{}
	lsu := &loadStoreUnit{}
	branch := &branchUnit{}
	system := &systemUnit{}
	c.units = map[uint32]execUnit{
		OP_LOAD:     lsu,
		OP_MISC_MEM: lsu,
		OP_IMM:      intU,
		OP_AUIPC:    intU,
		OP_STORE:    lsu,
		OP_AMO:      lsu,
		OP_OP:       intU,
		OP_LUI:      intU,
		OP_BRANCH:   branch,
		OP_JALR:     branch,
		OP_JAL:      branch,
		OP_SYSTEM:   system,
	}
	c.Reset()
	return c
}

// SetInterruptSources wires the CLINT timer/software outputs and the
// external interrupt line into the core.
func (c *Core) SetInterruptSources(timer, soft, ext *bool) {
	c.timerInt = timer
	c.softInt = soft
	c.extInt = ext
}

// Reset re-establishes the architectural reset state.
func (c *Core) Reset() {
	c.state = CoreState{pc: RESET_VECTOR, excCode: EXC_NONE}
	c.excMon.ClearFlag()
	c.csr.Reset()
}

// Reg returns the value of a general-purpose register.
func (c *Core) Reg(i uint32) uint32 { return c.state.regs[i&0x1f] }

// SetReg writes a general-purpose register; x0 stays zero.
func (c *Core) SetReg(i uint32, v uint32) {
	if i&0x1f != 0 {
		c.state.regs[i&0x1f] = v
	}
}

// PC returns the committed program counter.
func (c *Core) PC() uint32 { return c.state.pc }

// SetPC rewrites the committed program counter (debugger use).
func (c *Core) SetPC(pc uint32) { c.state.pc = pc }

// CSRFile exposes the CSR file (debugger use).
func (c *Core) CSRFile() *CSR { return c.csr }

// RawBus returns the physical bus beneath the MMU (debugger use).
func (c *Core) RawBus() *MachineBus { return c.mmu.bus }

// excTier ranks trap causes; a higher tier preempts a lower one.
func excTier(cause uint32) int {
	if cause&INT_FLAG != 0 {
		switch cause &^ INT_FLAG {
		case INT_M_SOFT:
			return 6
		case INT_M_TIMER:
			return 7
		case INT_M_EXTERNAL:
			return 8
		}
		return 6
	}
	switch cause {
	case EXC_STAMO_ACC_FAULT, EXC_LOAD_ACC_FAULT:
		return 1
	case EXC_STAMO_PAGE_FAULT, EXC_LOAD_PAGE_FAULT:
		return 2
	case EXC_STAMO_ADDR_MISALIGN, EXC_LOAD_ADDR_MISALIGN:
		return 3
	case EXC_ILLEGAL_INST, EXC_INST_ADDR_MISALIGN, EXC_U_ENV_CALL,
		EXC_S_ENV_CALL, EXC_M_ENV_CALL, EXC_BREAKPOINT:
		return 4
	case EXC_INST_ACC_FAULT, EXC_INST_PAGE_FAULT:
		return 5
	}
	return 0
}

// RaiseException records a trap cause for the cycle in progress. Only the
// highest-priority cause survives (later raises win ties); mcause and mtval
// are updated immediately, control is redirected at commit time.
func (c *Core) RaiseException(cause uint32, tval uint32) {
	if c.state.excCode != EXC_NONE && excTier(cause) < excTier(c.state.excCode) {
		return
	}
	c.state.excCode = cause
	c.csr.SetMCause(cause)
	c.csr.SetMTVal(tval)
}

// CheckInterrupt samples the latched enable state against the pending bits
// and raises the highest-priority enabled interrupt.
func (c *Core) CheckInterrupt() {
	if c.state.latchedMStatus&MSTATUS_MIE == 0 {
		return
	}
	pending := c.csr.MIP() & c.state.latchedMIE
	switch {
	case pending&MIP_MEIP != 0:
		c.RaiseException(INT_FLAG|INT_M_EXTERNAL, 0)
	case pending&MIP_MTIP != 0:
		c.RaiseException(INT_FLAG|INT_M_TIMER, 0)
	case pending&MIP_MSIP != 0:
		c.RaiseException(INT_FLAG|INT_M_SOFT, 0)
	}
}

// checkAndClearExcFlag resolves the cycle's pending trap. It returns true
// when a trap was taken, in which case next_pc already points at the trap
// vector and the caller must discard the working register state.
func (c *Core) checkAndClearExcFlag() bool {
	if c.state.excCode == EXC_NONE {
		return false
	}
	c.csr.SetMEPC(c.state.pc &^ 0b11)
	c.csr.EnterTrap()
	c.state.nextPC = c.csr.TrapVec()
	c.excMon.ClearFlag()
	c.state.excCode = EXC_NONE
	return true
}

// ReturnFromTrap implements MRET/SRET; the system unit raises an illegal
// instruction when it reports failure.
func (c *Core) ReturnFromTrap(mode uint32) bool {
	target, ok := c.csr.ReturnFromTrap(mode)
	if !ok {
		return false
	}
	c.state.nextPC = target
	c.excMon.ClearFlag()
	return true
}

func boolAt(p *bool) bool { return p != nil && *p }

// NextCycle executes one instruction.
func (c *Core) NextCycle() {
	c.step(nil)
}

// ReExecute runs one cycle using the supplied instruction word in place of
// the fetch. The debugger uses it to run the original instruction a
// breakpoint sentinel displaced.
func (c *Core) ReExecute(inst uint32) {
	c.step(&inst)
}

func (c *Core) step(override *uint32) {
	// 1. re-arm the MMU and latch the interrupt-enable state
	c.mmu.ClearInvalid()
	c.state.excCode = EXC_NONE
	c.state.latchedMStatus = c.csr.MStatus()
	c.state.latchedMIE = c.csr.MIE()
	c.csr.LatchInterrupts(boolAt(c.timerInt), boolAt(c.softInt), boolAt(c.extInt))

	// 2. fetch, and speculate the fallthrough pc
	var inst uint32
	if override != nil {
		inst = *override
	} else {
		inst = c.mmu.ReadInst(c.state.pc)
		if c.mmu.Invalid() {
			c.RaiseException(EXC_INST_PAGE_FAULT, c.mmu.FaultVA())
		}
	}
	c.state.nextPC = c.state.pc + 4
	savedRegs := c.state.regs

	// 3. decode and dispatch
	c.dispatch(inst)

	// 4. control-flow alignment, then interrupts
	if c.state.nextPC&0b11 != 0 {
		c.RaiseException(EXC_INST_ADDR_MISALIGN, c.state.nextPC)
	} else {
		c.CheckInterrupt()
	}

	// 5. trap or commit: a trap discards the register updates but keeps
	// next_pc, which now points at the trap vector
	if c.checkAndClearExcFlag() {
		c.state.regs = savedRegs
	}

	// 6. advance
	c.state.regs[0] = 0
	c.state.pc = c.state.nextPC
	c.csr.UpdateCounter()
}

// dispatch selects the functional unit by opcode and the execute shape by
// instruction format. SLLI/SRLI/SRAI take the R shape so the shift amount
// comes out of the rs2 field.
func (c *Core) dispatch(inst uint32) {
	opcode := instOpcode(inst)
	unit, ok := c.units[opcode]
	if !ok {
		c.RaiseException(EXC_ILLEGAL_INST, inst)
		return
	}
	switch opcode {
	case OP_AMO, OP_OP:
		unit.ExecuteR(inst, c)
	case OP_LOAD, OP_MISC_MEM, OP_JALR, OP_SYSTEM:
		unit.ExecuteI(inst, c)
	case OP_STORE, OP_BRANCH:
		unit.ExecuteS(inst, c)
	case OP_AUIPC, OP_LUI, OP_JAL:
		unit.ExecuteU(inst, c)
	case OP_IMM:
		switch instFunct3(inst) {
		case F3_SLL, F3_SRX:
			unit.ExecuteR(inst, c)
		default:
			unit.ExecuteI(inst, c)
		}
	default:
		panic("dispatch: opcode routed without a shape")
	}
}
