// cpu_rv32_csr.go - Control and status register file

/*
The CSR file owns the privileged register state and the current privilege
level. Addresses encode their minimum privilege in bits [9:8]; reads and
writes from a lower level fail and the system unit turns the failure into an
illegal-instruction trap.

Plain 32-bit registers live in an address-to-cell map. CSRs that are
architecturally present but hardwired to zero (information registers, PMP
storage, delegation, counter enables, the S-mode registers this machine does
not implement) all share one zero-backed cell which is cleared again after
every write. The 64-bit counters and the CLINT-backed time register are
special-cased by address.

sstatus is a masked view of mstatus: it is derived on read and a write
through either alias updates the overlapping bits of mstatus while leaving
the non-overlapping bits alone.
*/

package main

// CSR is the control-and-status register file of the single hart.
type CSR struct {
	curPriv uint32

	// shared cell for hardwired-zero CSRs, reset after every write
	zero uint32

	sscratch uint32
	sepc     uint32
	satp     uint32

	mstatus  uint32
	misa     uint32
	mie      uint32
	mtvec    uint32
	mscratch uint32
	mepc     uint32
	mcause   uint32
	mtval    uint32
	mip      uint32

	mcycle   uint64
	minstret uint64

	cells map[uint32]*uint32

	// live time source, wired to the CLINT at machine assembly
	mtimeFn func() uint64
}

func NewCSR() *CSR {
	c := &CSR{}
	c.initMapping()
	c.Reset()
	return c
}

func (c *CSR) initMapping() {
	c.cells = map[uint32]*uint32{
		// supervisor mode
		CSR_SSTATUS:    &c.zero, // handled by alias switch, mapped for existence
		CSR_SIE:        &c.zero,
		CSR_STVEC:      &c.zero,
		CSR_SCOUNTEREN: &c.zero,
		CSR_SSCRATCH:   &c.sscratch,
		CSR_SEPC:       &c.sepc,
		CSR_SCAUSE:     &c.zero,
		CSR_STVAL:      &c.zero,
		CSR_SIP:        &c.zero,
		CSR_SATP:       &c.satp,
		// machine mode
		CSR_MVENDORID:  &c.zero,
		CSR_MARCHID:    &c.zero,
		CSR_MIMPID:     &c.zero,
		CSR_MHARTID:    &c.zero,
		CSR_MSTATUS:    &c.mstatus,
		CSR_MISA:       &c.misa,
		CSR_MEDELEG:    &c.zero,
		CSR_MIDELEG:    &c.zero,
		CSR_MIE:        &c.mie,
		CSR_MTVEC:      &c.mtvec,
		CSR_MCOUNTEREN: &c.zero,
		CSR_MSCRATCH:   &c.mscratch,
		CSR_MEPC:       &c.mepc,
		CSR_MCAUSE:     &c.mcause,
		CSR_MTVAL:      &c.mtval,
		CSR_MIP:        &c.mip,
		CSR_MCOUNTINHIBIT: &c.zero,
	}
	// PMP storage: pmpcfg0..3, pmpaddr0..15
	for i := uint32(0); i < 4; i++ {
		c.cells[CSR_PMPCFG0+i] = &c.zero
	}
	for i := uint32(0); i < 16; i++ {
		c.cells[CSR_PMPADDR0+i] = &c.zero
	}
}

// Reset restores the architectural reset state: everything zero except misa,
// with the hart back in machine mode.
func (c *CSR) Reset() {
	c.curPriv = PRIV_M
	c.zero = 0
	c.sscratch = 0
	c.sepc = 0
	c.satp = 0
	c.mstatus = 0
	c.misa = MISA_INIT
	c.mie = 0
	c.mtvec = 0
	c.mscratch = 0
	c.mepc = 0
	c.mcause = 0
	c.mtval = 0
	c.mip = 0
	c.mcycle = 0
	c.minstret = 0
}

// SetMTimeSource wires the CLINT mtime counter behind the user time CSR.
func (c *CSR) SetMTimeSource(fn func() uint64) { c.mtimeFn = fn }

// privOf extracts the minimum privilege level encoded in a CSR address.
func privOf(addr uint32) uint32 { return (addr >> 8) & 0b11 }

func (c *CSR) mtime() uint64 {
	if c.mtimeFn == nil {
		return 0
	}
	return c.mtimeFn()
}

// ReadData reads a CSR. It fails when the address is unmapped or the current
// privilege level is below the one the address requires.
func (c *CSR) ReadData(addr uint32) (uint32, bool) {
	if !c.exists(addr) {
		return 0, false
	}
	if c.curPriv < privOf(addr) {
		return 0, false
	}
	return c.readAny(addr), true
}

// ReadDataForce reads a CSR ignoring the privilege gate. Used by the
// debugger, which inspects machine state from outside the hart.
func (c *CSR) ReadDataForce(addr uint32) uint32 {
	if !c.exists(addr) {
		return 0
	}
	return c.readAny(addr)
}

func (c *CSR) exists(addr uint32) bool {
	switch addr {
	case CSR_CYCLE, CSR_TIME, CSR_INSTRET, CSR_CYCLEH, CSR_TIMEH, CSR_INSTRETH,
		CSR_MCYCLE, CSR_MINSTRET, CSR_MCYCLEH, CSR_MINSTRETH:
		return true
	}
	_, ok := c.cells[addr]
	return ok
}

func (c *CSR) readAny(addr uint32) uint32 {
	switch addr {
	case CSR_CYCLE, CSR_MCYCLE:
		return uint32(c.mcycle)
	case CSR_CYCLEH, CSR_MCYCLEH:
		return uint32(c.mcycle >> 32)
	case CSR_INSTRET, CSR_MINSTRET:
		return uint32(c.minstret)
	case CSR_INSTRETH, CSR_MINSTRETH:
		return uint32(c.minstret >> 32)
	case CSR_TIME:
		return uint32(c.mtime())
	case CSR_TIMEH:
		return uint32(c.mtime() >> 32)
	case CSR_SSTATUS:
		return c.mstatus & MASK_SSTATUS
	}
	return *c.cells[addr]
}

// WriteData writes a CSR, applying the per-register mask and side effects.
// It fails like ReadData on unmapped addresses and privilege violations;
// writes to read-only registers succeed and are discarded.
func (c *CSR) WriteData(addr uint32, value uint32) bool {
	if !c.exists(addr) {
		return false
	}
	if c.curPriv < privOf(addr) {
		return false
	}
	switch addr {
	case CSR_SSTATUS:
		c.mstatus = (c.mstatus &^ MASK_SSTATUS) | (value & MASK_SSTATUS)
	case CSR_MSTATUS:
		// mpp has no legal encoding for the reserved level 2
		if (value&MSTATUS_MPP_MASK)>>MSTATUS_MPP_SHIFT == 2 {
			value &^= MSTATUS_MPP_MASK
		}
		c.mstatus = value & MASK_MSTATUS
	case CSR_SATP:
		c.satp = value & MASK_SATP
	case CSR_MIE:
		c.mie = value & MASK_MIE
	case CSR_MIP:
		c.mip = value & MASK_MIP
	case CSR_MTVEC:
		if value&0b11 >= 2 {
			value &^= 0b11 // coerce to direct mode
		}
		c.mtvec = value
	case CSR_CYCLE, CSR_TIME, CSR_INSTRET, CSR_CYCLEH, CSR_TIMEH, CSR_INSTRETH,
		CSR_MCYCLE, CSR_MINSTRET, CSR_MCYCLEH, CSR_MINSTRETH,
		CSR_MVENDORID, CSR_MARCHID, CSR_MIMPID, CSR_MHARTID, CSR_MISA:
		// read only, write discarded
	default:
		*c.cells[addr] = value
	}
	// hardwired-zero cells stay zero no matter what was stored
	c.zero = 0
	return true
}

// TrapVec computes the next pc for trap entry: the direct base, or
// base + 4*cause when mtvec selects vectored mode and the cause is an
// interrupt.
func (c *CSR) TrapVec() uint32 {
	if c.mtvec&0b11 == 1 && c.mcause&INT_FLAG != 0 {
		return (c.mtvec - 1) + (c.mcause&^INT_FLAG)*4
	}
	return c.mtvec &^ 0b11
}

// UpdateCounter advances the cycle and retired-instruction counters; called
// once per committed cycle after exception handling resolves.
func (c *CSR) UpdateCounter() {
	c.mcycle++
	c.minstret++
}

// LatchInterrupts refreshes mip from the external interrupt sources. The
// three hardware bits are owned by the wires, so a guest write to mip is
// overwritten here at the next cycle boundary.
func (c *CSR) LatchInterrupts(timer, soft, ext bool) {
	mip := uint32(0)
	if soft {
		mip |= MIP_MSIP
	}
	if timer {
		mip |= MIP_MTIP
	}
	if ext {
		mip |= MIP_MEIP
	}
	c.mip = mip
}

// EnterTrap performs the mstatus/privilege side of M-mode trap entry.
// mepc/mcause/mtval are written by the trap commit path.
func (c *CSR) EnterTrap() {
	prev := c.curPriv
	mieWasSet := c.mstatus&MSTATUS_MIE != 0
	// mpie <- mie, mie <- 0, mpp <- previous privilege
	c.mstatus &^= MSTATUS_MPIE | MSTATUS_MIE | MSTATUS_MPP_MASK
	if mieWasSet {
		c.mstatus |= MSTATUS_MPIE
	}
	c.mstatus |= prev << MSTATUS_MPP_SHIFT
	c.curPriv = PRIV_M
}

// ReturnFromTrap implements MRET (mode = PRIV_M) and SRET (mode = PRIV_S).
// It returns the resume pc and false when the current privilege level is
// below the requested mode.
func (c *CSR) ReturnFromTrap(mode uint32) (uint32, bool) {
	if c.curPriv < mode {
		return 0, false
	}
	if mode == PRIV_M {
		// mie <- mpie, mpie <- 1, priv <- mpp, mpp <- U
		c.mstatus &^= MSTATUS_MIE
		if c.mstatus&MSTATUS_MPIE != 0 {
			c.mstatus |= MSTATUS_MIE
		}
		c.mstatus |= MSTATUS_MPIE
		c.curPriv = (c.mstatus & MSTATUS_MPP_MASK) >> MSTATUS_MPP_SHIFT
		c.mstatus &^= MSTATUS_MPP_MASK
		return c.mepc, true
	}
	// sie <- spie, spie <- 1, priv <- spp, spp <- U
	c.mstatus &^= MSTATUS_SIE
	if c.mstatus&MSTATUS_SPIE != 0 {
		c.mstatus |= MSTATUS_SIE
	}
	c.mstatus |= MSTATUS_SPIE
	if c.mstatus&MSTATUS_SPP != 0 {
		c.curPriv = PRIV_S
	} else {
		c.curPriv = PRIV_U
	}
	c.mstatus &^= MSTATUS_SPP
	return c.sepc, true
}

// Accessors used by the core, MMU and debugger.

func (c *CSR) CurPriv() uint32          { return c.curPriv }
func (c *CSR) SetCurPriv(p uint32)      { c.curPriv = p }
func (c *CSR) SATP() uint32             { return c.satp }
func (c *CSR) MStatus() uint32          { return c.mstatus }
func (c *CSR) MIE() uint32              { return c.mie }
func (c *CSR) MIP() uint32              { return c.mip }
func (c *CSR) MEPC() uint32             { return c.mepc }
func (c *CSR) MCause() uint32           { return c.mcause }
func (c *CSR) SetMEPC(v uint32)         { c.mepc = v }
func (c *CSR) SetMCause(v uint32)       { c.mcause = v }
func (c *CSR) SetMTVal(v uint32)        { c.mtval = v }
