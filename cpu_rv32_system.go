// cpu_rv32_system.go - System functional unit (SYSTEM opcode)

package main

type systemUnit struct{}

// performPrivileged decodes the PRIV group by its 12-bit immediate.
// Returns false for encodings that must raise an illegal instruction.
func performPrivileged(inst uint32, c *Core) bool {
	switch inst >> 20 {
	case IMM_ECALL:
		// cause 8 + privilege: U=8, S=9, M=11
		c.RaiseException(EXC_U_ENV_CALL+c.csr.CurPriv(), 0)
	case IMM_EBREAK:
		c.RaiseException(EXC_BREAKPOINT, 0)
	case IMM_SRET:
		return c.ReturnFromTrap(PRIV_S)
	case IMM_MRET:
		return c.ReturnFromTrap(PRIV_M)
	case IMM_WFI:
		// implemented as a no-op; the interrupt check runs every cycle
	default:
		return false
	}
	return true
}

// performSystem executes the SYSTEM instruction group. The CSR read side
// happens before the write side; CSRRW skips the read when rd is x0, and
// CSRRS/CSRRC skip the write when the mask register/immediate field is zero.
func performSystem(inst uint32, c *Core) bool {
	addr := inst >> 20
	rs1 := instRs1(inst)
	rd := instRd(inst)
	switch instFunct3(inst) {
	case F3_PRIV:
		if instFunct7(inst) == FUNCT7_SFENCE_VMA {
			// SFENCE.VMA: privilege-gated no-op (no TLB to flush)
			return rd == 0 && c.csr.CurPriv() >= PRIV_S
		}
		if rs1 != 0 || rd != 0 {
			return false
		}
		return performPrivileged(inst, c)
	case F3_CSRRW, F3_CSRRWI:
		var val uint32
		if instFunct3(inst) == F3_CSRRW {
			val = c.Reg(rs1)
		} else {
			val = rs1
		}
		if rd != 0 {
			old, ok := c.csr.ReadData(addr)
			if !ok {
				return false
			}
			c.SetReg(rd, old)
		}
		return c.csr.WriteData(addr, val)
	case F3_CSRRS, F3_CSRRSI:
		var mask uint32
		if instFunct3(inst) == F3_CSRRS {
			mask = c.Reg(rs1)
		} else {
			mask = rs1
		}
		old, ok := c.csr.ReadData(addr)
		if !ok {
			return false
		}
		c.SetReg(rd, old)
		if rs1 != 0 {
			return c.csr.WriteData(addr, old|mask)
		}
		return true
	case F3_CSRRC, F3_CSRRCI:
		var mask uint32
		if instFunct3(inst) == F3_CSRRC {
			mask = c.Reg(rs1)
		} else {
			mask = rs1
		}
		old, ok := c.csr.ReadData(addr)
		if !ok {
			return false
		}
		c.SetReg(rd, old)
		if rs1 != 0 {
			return c.csr.WriteData(addr, old&^mask)
		}
		return true
	}
	return false
}

func (u *systemUnit) ExecuteR(inst uint32, c *Core) {
	panic("systemUnit: SYSTEM dispatches as I-type")
}

func (u *systemUnit) ExecuteI(inst uint32, c *Core) {
	if !performSystem(inst, c) {
		c.RaiseException(EXC_ILLEGAL_INST, inst)
	}
}

func (u *systemUnit) ExecuteS(inst uint32, c *Core) {
	panic("systemUnit: no S-type instructions")
}

func (u *systemUnit) ExecuteU(inst uint32, c *Core) {
	panic("systemUnit: no U-type instructions")
}
