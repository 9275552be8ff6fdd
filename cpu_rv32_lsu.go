// cpu_rv32_lsu.go - Load/store functional unit (LOAD, STORE, MISC-MEM, AMO)

package main

// checkAMOAddr raises a store/AMO misalignment for non-word-aligned atomics.
func checkAMOAddr(addr uint32, c *Core) bool {
	if addr&0b11 != 0 {
		c.RaiseException(EXC_STAMO_ADDR_MISALIGN, addr)
		return false
	}
	return true
}

func minS(lhs, rhs uint32) uint32 {
	if int32(lhs) < int32(rhs) {
		return lhs
	}
	return rhs
}

func maxS(lhs, rhs uint32) uint32 {
	if int32(lhs) > int32(rhs) {
		return lhs
	}
	return rhs
}

func minU(lhs, rhs uint32) uint32 {
	if lhs < rhs {
		return lhs
	}
	return rhs
}

func maxU(lhs, rhs uint32) uint32 {
	if lhs > rhs {
		return lhs
	}
	return rhs
}

type loadStoreUnit struct{}

// amoRMW performs the read-modify-write common to every AMO except LR/SC:
// rd receives the original memory word, memory receives op(original, rs2).
func (u *loadStoreUnit) amoRMW(inst uint32, c *Core, addr uint32, op func(data, src uint32) uint32) {
	data := c.mmu.Read32(addr)
	if c.mmu.Invalid() {
		c.RaiseException(EXC_STAMO_PAGE_FAULT, addr)
		return
	}
	c.mmu.Write32(addr, op(data, c.Reg(instRs2(inst))))
	if c.mmu.Invalid() {
		c.RaiseException(EXC_STAMO_PAGE_FAULT, addr)
		return
	}
	c.SetReg(instRd(inst), data)
}

// ExecuteR handles the AMO instructions; the two ordering bits in funct7 are
// ignored.
func (u *loadStoreUnit) ExecuteR(inst uint32, c *Core) {
	addr := c.Reg(instRs1(inst))
	switch instFunct7(inst) & AMO_F7_MASK {
	case AMO_LR:
		if instRs2(inst) != 0 {
			c.RaiseException(EXC_ILLEGAL_INST, inst)
			return
		}
		if !checkAMOAddr(addr, c) {
			return
		}
		data := c.mmu.Read32(addr)
		if c.mmu.Invalid() {
			c.RaiseException(EXC_LOAD_PAGE_FAULT, addr)
			return
		}
		c.excMon.SetFlag(addr)
		c.SetReg(instRd(inst), data)
	case AMO_SC:
		if !checkAMOAddr(addr, c) {
			return
		}
		if c.excMon.CheckFlag(addr) {
			c.mmu.Write32(addr, c.Reg(instRs2(inst)))
			if c.mmu.Invalid() {
				c.excMon.ClearFlag()
				c.RaiseException(EXC_STAMO_PAGE_FAULT, addr)
				return
			}
			c.SetReg(instRd(inst), 0)
		} else {
			c.SetReg(instRd(inst), 1)
		}
		c.excMon.ClearFlag()
	case AMO_SWAP:
		if checkAMOAddr(addr, c) {
			u.amoRMW(inst, c, addr, func(data, src uint32) uint32 { return src })
		}
	case AMO_ADD:
		if checkAMOAddr(addr, c) {
			u.amoRMW(inst, c, addr, func(data, src uint32) uint32 { return data + src })
		}
	case AMO_XOR:
		if checkAMOAddr(addr, c) {
			u.amoRMW(inst, c, addr, func(data, src uint32) uint32 { return data ^ src })
		}
	case AMO_AND:
		if checkAMOAddr(addr, c) {
			u.amoRMW(inst, c, addr, func(data, src uint32) uint32 { return data & src })
		}
	case AMO_OR:
		if checkAMOAddr(addr, c) {
			u.amoRMW(inst, c, addr, func(data, src uint32) uint32 { return data | src })
		}
	case AMO_MIN:
		if checkAMOAddr(addr, c) {
			u.amoRMW(inst, c, addr, minS)
		}
	case AMO_MAX:
		if checkAMOAddr(addr, c) {
			u.amoRMW(inst, c, addr, maxS)
		}
	case AMO_MINU:
		if checkAMOAddr(addr, c) {
			u.amoRMW(inst, c, addr, minU)
		}
	case AMO_MAXU:
		if checkAMOAddr(addr, c) {
			u.amoRMW(inst, c, addr, maxU)
		}
	default:
		c.RaiseException(EXC_ILLEGAL_INST, inst)
	}
}

// ExecuteI handles LOAD and MISC-MEM.
func (u *loadStoreUnit) ExecuteI(inst uint32, c *Core) {
	if instOpcode(inst) == OP_LOAD {
		addr := c.Reg(instRs1(inst)) + immI(inst)
		switch instFunct3(inst) {
		case F3_LB:
			data := c.mmu.Read8(addr)
			if c.mmu.Invalid() {
				c.RaiseException(EXC_LOAD_PAGE_FAULT, addr)
				return
			}
			c.SetReg(instRd(inst), uint32(int32(int8(data))))
		case F3_LH:
			if addr&0b1 != 0 {
				c.RaiseException(EXC_LOAD_ADDR_MISALIGN, addr)
				return
			}
			data := c.mmu.Read16(addr)
			if c.mmu.Invalid() {
				c.RaiseException(EXC_LOAD_PAGE_FAULT, addr)
				return
			}
			c.SetReg(instRd(inst), uint32(int32(int16(data))))
		case F3_LW:
			if addr&0b11 != 0 {
				c.RaiseException(EXC_LOAD_ADDR_MISALIGN, addr)
				return
			}
			data := c.mmu.Read32(addr)
			if c.mmu.Invalid() {
				c.RaiseException(EXC_LOAD_PAGE_FAULT, addr)
				return
			}
			c.SetReg(instRd(inst), data)
		case F3_LBU:
			data := c.mmu.Read8(addr)
			if c.mmu.Invalid() {
				c.RaiseException(EXC_LOAD_PAGE_FAULT, addr)
				return
			}
			c.SetReg(instRd(inst), uint32(data))
		case F3_LHU:
			if addr&0b1 != 0 {
				c.RaiseException(EXC_LOAD_ADDR_MISALIGN, addr)
				return
			}
			data := c.mmu.Read16(addr)
			if c.mmu.Invalid() {
				c.RaiseException(EXC_LOAD_PAGE_FAULT, addr)
				return
			}
			c.SetReg(instRd(inst), uint32(data))
		default:
			c.RaiseException(EXC_ILLEGAL_INST, inst)
		}
		return
	}
	// MISC-MEM: no other hart, no I-cache, so both fences are no-ops
	switch instFunct3(inst) {
	case F3_FENCE, F3_FENCEI:
	default:
		c.RaiseException(EXC_ILLEGAL_INST, inst)
	}
}

// ExecuteS handles STORE. SB is an isolated byte store with no alignment
// requirement.
func (u *loadStoreUnit) ExecuteS(inst uint32, c *Core) {
	addr := c.Reg(instRs1(inst)) + immS(inst)
	switch instFunct3(inst) {
	case F3_SB:
		c.mmu.Write8(addr, uint8(c.Reg(instRs2(inst))))
		if c.mmu.Invalid() {
			c.RaiseException(EXC_STAMO_PAGE_FAULT, addr)
		}
	case F3_SH:
		if addr&0b1 != 0 {
			c.RaiseException(EXC_STAMO_ADDR_MISALIGN, addr)
			return
		}
		c.mmu.Write16(addr, uint16(c.Reg(instRs2(inst))))
		if c.mmu.Invalid() {
			c.RaiseException(EXC_STAMO_PAGE_FAULT, addr)
		}
	case F3_SW:
		if addr&0b11 != 0 {
			c.RaiseException(EXC_STAMO_ADDR_MISALIGN, addr)
			return
		}
		c.mmu.Write32(addr, c.Reg(instRs2(inst)))
		if c.mmu.Invalid() {
			c.RaiseException(EXC_STAMO_PAGE_FAULT, addr)
		}
	default:
		c.RaiseException(EXC_ILLEGAL_INST, inst)
	}
}

func (u *loadStoreUnit) ExecuteU(inst uint32, c *Core) {
	panic("loadStoreUnit: no U-type instructions")
}
