// cpu_rv32_branch.go - Branch functional unit (BRANCH, JAL, JALR)

package main

// doBranch redirects control to target, trapping on a misaligned target with
// the target itself as the trap value.
func doBranch(target uint32, c *Core) {
	if target&0b11 != 0 {
		c.RaiseException(EXC_INST_ADDR_MISALIGN, target)
		return
	}
	c.state.nextPC = target
}

type branchUnit struct{}

func (u *branchUnit) ExecuteR(inst uint32, c *Core) {
	panic("branchUnit: no R-type instructions")
}

// ExecuteI handles JALR: the target drops its low bit before the alignment
// check, and rd receives the return address.
func (u *branchUnit) ExecuteI(inst uint32, c *Core) {
	if instFunct3(inst) != 0 {
		c.RaiseException(EXC_ILLEGAL_INST, inst)
		return
	}
	target := (c.Reg(instRs1(inst)) + immI(inst)) &^ 0b1
	c.SetReg(instRd(inst), c.state.pc+4)
	doBranch(target, c)
}

// ExecuteS handles the six conditional branches. Each predicate is
// independent; a not-taken branch falls through to pc+4.
func (u *branchUnit) ExecuteS(inst uint32, c *Core) {
	target := c.state.pc + immB(inst)
	src1 := c.Reg(instRs1(inst))
	src2 := c.Reg(instRs2(inst))
	switch instFunct3(inst) {
	case F3_BEQ:
		if src1 == src2 {
			doBranch(target, c)
		}
	case F3_BNE:
		if src1 != src2 {
			doBranch(target, c)
		}
	case F3_BLT:
		if int32(src1) < int32(src2) {
			doBranch(target, c)
		}
	case F3_BGE:
		if int32(src1) >= int32(src2) {
			doBranch(target, c)
		}
	case F3_BLTU:
		if src1 < src2 {
			doBranch(target, c)
		}
	case F3_BGEU:
		if src1 >= src2 {
			doBranch(target, c)
		}
	default:
		c.RaiseException(EXC_ILLEGAL_INST, inst)
	}
}

// ExecuteU handles JAL.
func (u *branchUnit) ExecuteU(inst uint32, c *Core) {
	target := c.state.pc + immJ(inst)
	c.SetReg(instRd(inst), c.state.pc+4)
	doBranch(target, c)
}
