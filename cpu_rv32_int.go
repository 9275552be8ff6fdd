// cpu_rv32_int.go - Integer functional unit (OP, OP-IMM, LUI, AUIPC)

package main

// performIntOp evaluates the eight RV32I ALU operations. isType2 selects the
// funct7-bit-30 variants (SUB, SRA).
func performIntOp(opr1, opr2, funct3 uint32, isType2 bool) uint32 {
	switch funct3 {
	case F3_ADDSUB:
		if isType2 {
			return opr1 - opr2
		}
		return opr1 + opr2
	case F3_SLL:
		return opr1 << (opr2 & 0x1f)
	case F3_SLT:
		if int32(opr1) < int32(opr2) {
			return 1
		}
		return 0
	case F3_SLTU:
		if opr1 < opr2 {
			return 1
		}
		return 0
	case F3_XOR:
		return opr1 ^ opr2
	case F3_SRX:
		if isType2 {
			return uint32(int32(opr1) >> (opr2 & 0x1f))
		}
		return opr1 >> (opr2 & 0x1f)
	case F3_OR:
		return opr1 | opr2
	case F3_AND:
		return opr1 & opr2
	}
	// funct3 has three bits and all eight cases are handled above
	panic("performIntOp: unreachable funct3")
}

// performMulDiv evaluates the RV32M operations, including the architectural
// division edge cases: division by zero yields all-ones (DIV/DIVU) or the
// dividend (REM/REMU); INT_MIN/-1 yields INT_MIN with remainder 0.
func performMulDiv(opr1, opr2, funct3 uint32) uint32 {
	switch funct3 {
	case F3_MUL:
		return opr1 * opr2
	case F3_MULH:
		return uint32(int64(int32(opr1)) * int64(int32(opr2)) >> 32)
	case F3_MULHSU:
		return uint32(int64(int32(opr1)) * int64(opr2) >> 32)
	case F3_MULHU:
		return uint32(uint64(opr1) * uint64(opr2) >> 32)
	case F3_DIV:
		if opr2 == 0 {
			return 0xffffffff
		}
		if int32(opr1) == -2147483648 && int32(opr2) == -1 {
			return opr1
		}
		return uint32(int32(opr1) / int32(opr2))
	case F3_DIVU:
		if opr2 == 0 {
			return 0xffffffff
		}
		return opr1 / opr2
	case F3_REM:
		if opr2 == 0 {
			return opr1
		}
		if int32(opr1) == -2147483648 && int32(opr2) == -1 {
			return 0
		}
		return uint32(int32(opr1) % int32(opr2))
	case F3_REMU:
		if opr2 == 0 {
			return opr1
		}
		return opr1 % opr2
	}
	panic("performMulDiv: unreachable funct3")
}

type intUnit struct{}

// ExecuteR handles OP instructions and the R-shaped shift immediates
// (SLLI/SRLI/SRAI, whose shift amount sits in the rs2 field).
func (u *intUnit) ExecuteR(inst uint32, c *Core) {
	opr1 := c.Reg(instRs1(inst))
	var opr2 uint32
	if instOpcode(inst) == OP_IMM {
		opr2 = instRs2(inst)
	} else {
		opr2 = c.Reg(instRs2(inst))
	}

	funct7 := instFunct7(inst)
	if funct7 == FUNCT7_RV32M && instOpcode(inst) == OP_OP {
		c.SetReg(instRd(inst), performMulDiv(opr1, opr2, instFunct3(inst)))
		return
	}

	var isType2 bool
	switch funct7 {
	case FUNCT7_RV32I_1:
		isType2 = false
	case FUNCT7_RV32I_2:
		isType2 = true
	default:
		c.RaiseException(EXC_ILLEGAL_INST, inst)
		return
	}
	// funct7 bit 30 only selects a variant for ADD/SUB and SRL/SRA
	if isType2 {
		switch instFunct3(inst) {
		case F3_ADDSUB, F3_SRX:
		default:
			c.RaiseException(EXC_ILLEGAL_INST, inst)
			return
		}
	}
	c.SetReg(instRd(inst), performIntOp(opr1, opr2, instFunct3(inst), isType2))
}

// ExecuteI handles the immediate ALU forms (shifts are routed to ExecuteR).
func (u *intUnit) ExecuteI(inst uint32, c *Core) {
	opr1 := c.Reg(instRs1(inst))
	opr2 := immI(inst)
	c.SetReg(instRd(inst), performIntOp(opr1, opr2, instFunct3(inst), false))
}

func (u *intUnit) ExecuteS(inst uint32, c *Core) {
	panic("intUnit: no S-type instructions")
}

// ExecuteU handles LUI and AUIPC.
func (u *intUnit) ExecuteU(inst uint32, c *Core) {
	switch instOpcode(inst) {
	case OP_AUIPC:
		c.SetReg(instRd(inst), c.state.pc+immU(inst))
	case OP_LUI:
		c.SetReg(instRd(inst), immU(inst))
	default:
		c.RaiseException(EXC_ILLEGAL_INST, inst)
	}
}
