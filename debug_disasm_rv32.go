// debug_disasm_rv32.go - RV32IMA disassembler for the machine monitor

package main

import (
	"fmt"
	"strings"
)

// bitPat is a 32-bit match pattern built from a string of '0', '1' and '?'.
type bitPat struct {
	value uint32
	mask  uint32
}

func mustPat(s string) bitPat {
	if len(s) != 32 {
		panic("bitPat: pattern must be 32 characters")
	}
	var p bitPat
	for _, c := range s {
		p.value <<= 1
		p.mask <<= 1
		switch c {
		case '1':
			p.value |= 1
			p.mask |= 1
		case '0':
			p.mask |= 1
		case '?':
		default:
			panic("bitPat: pattern characters are 0, 1 and ?")
		}
	}
	return p
}

func (p bitPat) match(word uint32) bool {
	return word&p.mask == p.value
}

// assembly operand formats
type asmFormat int

const (
	fmtNone         asmFormat = iota // ecall, fence.i
	fmtRegRegReg                     // add rd, rs1, rs2
	fmtRegRegImm                     // addi rd, rs1, imm
	fmtRegRegShamt                   // slli rd, rs1, shamt
	fmtRegReg                        // sfence.vma rs1, rs2
	fmtRegImm                        // lui rd, 0xNNNNN
	fmtRegTarget                     // jal rd, target
	fmtRegRegTarget                  // beq rs1, rs2, target
	fmtRegBaseImm                    // lw rd, imm(rs1)
	fmtBaseRegImm                    // sw rs2, imm(rs1)
	fmtMemOrder                      // fence
	fmtAMO2                          // lr.w rd, (rs1)
	fmtAMO3                          // amoswap.w rd, rs2, (rs1)
	fmtCSRReg                        // csrrw rd, csr, rs1
	fmtCSRImm                        // csrrwi rd, csr, uimm
)

type asmInfo struct {
	pat      bitPat
	mnemonic string
	format   asmFormat
}

// csrNames is the reverse of regCSRMap for CSR addresses.
var csrNames = buildCSRNames()

func buildCSRNames() map[uint32]string {
	m := make(map[uint32]string)
	for name, idx := range regCSRMap {
		if idx > regPC && !strings.HasPrefix(name, "x") {
			m[idx] = name
		}
	}
	return m
}

var asmTable = []asmInfo{
	// arithmetic
	{mustPat("0000000??????????000?????0110011"), "add", fmtRegRegReg},
	{mustPat("0100000??????????000?????0110011"), "sub", fmtRegRegReg},
	{mustPat("?????????????????000?????0010011"), "addi", fmtRegRegImm},
	{mustPat("?????????????????????????0110111"), "lui", fmtRegImm},
	{mustPat("?????????????????????????0010111"), "auipc", fmtRegImm},
	// logical
	{mustPat("0000000??????????100?????0110011"), "xor", fmtRegRegReg},
	{mustPat("?????????????????100?????0010011"), "xori", fmtRegRegImm},
	{mustPat("0000000??????????110?????0110011"), "or", fmtRegRegReg},
	{mustPat("?????????????????110?????0010011"), "ori", fmtRegRegImm},
	{mustPat("0000000??????????111?????0110011"), "and", fmtRegRegReg},
	{mustPat("?????????????????111?????0010011"), "andi", fmtRegRegImm},
	// compare
	{mustPat("0000000??????????010?????0110011"), "slt", fmtRegRegReg},
	{mustPat("?????????????????010?????0010011"), "slti", fmtRegRegImm},
	{mustPat("0000000??????????011?????0110011"), "sltu", fmtRegRegReg},
	{mustPat("?????????????????011?????0010011"), "sltiu", fmtRegRegImm},
	// shift
	{mustPat("0000000??????????001?????0110011"), "sll", fmtRegRegReg},
	{mustPat("0000000??????????101?????0110011"), "srl", fmtRegRegReg},
	{mustPat("0100000??????????101?????0110011"), "sra", fmtRegRegReg},
	{mustPat("0000000??????????001?????0010011"), "slli", fmtRegRegShamt},
	{mustPat("0000000??????????101?????0010011"), "srli", fmtRegRegShamt},
	{mustPat("0100000??????????101?????0010011"), "srai", fmtRegRegShamt},
	// multiply/divide
	{mustPat("0000001??????????000?????0110011"), "mul", fmtRegRegReg},
	{mustPat("0000001??????????001?????0110011"), "mulh", fmtRegRegReg},
	{mustPat("0000001??????????010?????0110011"), "mulhsu", fmtRegRegReg},
	{mustPat("0000001??????????011?????0110011"), "mulhu", fmtRegRegReg},
	{mustPat("0000001??????????100?????0110011"), "div", fmtRegRegReg},
	{mustPat("0000001??????????101?????0110011"), "divu", fmtRegRegReg},
	{mustPat("0000001??????????110?????0110011"), "rem", fmtRegRegReg},
	{mustPat("0000001??????????111?????0110011"), "remu", fmtRegRegReg},
	// loads/stores
	{mustPat("?????????????????000?????0000011"), "lb", fmtRegBaseImm},
	{mustPat("?????????????????001?????0000011"), "lh", fmtRegBaseImm},
	{mustPat("?????????????????010?????0000011"), "lw", fmtRegBaseImm},
	{mustPat("?????????????????100?????0000011"), "lbu", fmtRegBaseImm},
	{mustPat("?????????????????101?????0000011"), "lhu", fmtRegBaseImm},
	{mustPat("?????????????????000?????0100011"), "sb", fmtBaseRegImm},
	{mustPat("?????????????????001?????0100011"), "sh", fmtBaseRegImm},
	{mustPat("?????????????????010?????0100011"), "sw", fmtBaseRegImm},
	// control flow
	{mustPat("?????????????????000?????1100011"), "beq", fmtRegRegTarget},
	{mustPat("?????????????????001?????1100011"), "bne", fmtRegRegTarget},
	{mustPat("?????????????????100?????1100011"), "blt", fmtRegRegTarget},
	{mustPat("?????????????????101?????1100011"), "bge", fmtRegRegTarget},
	{mustPat("?????????????????110?????1100011"), "bltu", fmtRegRegTarget},
	{mustPat("?????????????????111?????1100011"), "bgeu", fmtRegRegTarget},
	{mustPat("?????????????????????????1101111"), "jal", fmtRegTarget},
	{mustPat("?????????????????000?????1100111"), "jalr", fmtRegBaseImm},
	// fences
	{mustPat("?????????????????000?????0001111"), "fence", fmtMemOrder},
	{mustPat("?????????????????001?????0001111"), "fence.i", fmtNone},
	// atomics
	{mustPat("00010??00000?????010?????0101111"), "lr.w", fmtAMO2},
	{mustPat("00011????????????010?????0101111"), "sc.w", fmtAMO3},
	{mustPat("00001????????????010?????0101111"), "amoswap.w", fmtAMO3},
	{mustPat("00000????????????010?????0101111"), "amoadd.w", fmtAMO3},
	{mustPat("00100????????????010?????0101111"), "amoxor.w", fmtAMO3},
	{mustPat("01100????????????010?????0101111"), "amoand.w", fmtAMO3},
	{mustPat("01000????????????010?????0101111"), "amoor.w", fmtAMO3},
	{mustPat("10000????????????010?????0101111"), "amomin.w", fmtAMO3},
	{mustPat("10100????????????010?????0101111"), "amomax.w", fmtAMO3},
	{mustPat("11000????????????010?????0101111"), "amominu.w", fmtAMO3},
	{mustPat("11100????????????010?????0101111"), "amomaxu.w", fmtAMO3},
	// system
	{mustPat("00000000000000000000000001110011"), "ecall", fmtNone},
	{mustPat("00000000000100000000000001110011"), "ebreak", fmtNone},
	{mustPat("00010000001000000000000001110011"), "sret", fmtNone},
	{mustPat("00110000001000000000000001110011"), "mret", fmtNone},
	{mustPat("00010000010100000000000001110011"), "wfi", fmtNone},
	{mustPat("0001001??????????000000001110011"), "sfence.vma", fmtRegReg},
	{mustPat("?????????????????001?????1110011"), "csrrw", fmtCSRReg},
	{mustPat("?????????????????010?????1110011"), "csrrs", fmtCSRReg},
	{mustPat("?????????????????011?????1110011"), "csrrc", fmtCSRReg},
	{mustPat("?????????????????101?????1110011"), "csrrwi", fmtCSRImm},
	{mustPat("?????????????????110?????1110011"), "csrrsi", fmtCSRImm},
	{mustPat("?????????????????111?????1110011"), "csrrci", fmtCSRImm},
}

func csrName(addr uint32) string {
	if name, ok := csrNames[addr]; ok {
		return name
	}
	return fmt.Sprintf("0x%03x", addr)
}

// Disassemble renders one instruction word fetched from pc. Branch and jump
// targets are shown as absolute addresses.
func Disassemble(pc, word uint32) string {
	for _, info := range asmTable {
		if !info.pat.match(word) {
			continue
		}
		rd := gprNames[instRd(word)]
		rs1 := gprNames[instRs1(word)]
		rs2 := gprNames[instRs2(word)]
		switch info.format {
		case fmtNone:
			return info.mnemonic
		case fmtRegRegReg:
			return fmt.Sprintf("%s %s, %s, %s", info.mnemonic, rd, rs1, rs2)
		case fmtRegRegImm:
			return fmt.Sprintf("%s %s, %s, %d", info.mnemonic, rd, rs1, int32(immI(word)))
		case fmtRegRegShamt:
			return fmt.Sprintf("%s %s, %s, %d", info.mnemonic, rd, rs1, instRs2(word))
		case fmtRegReg:
			return fmt.Sprintf("%s %s, %s", info.mnemonic, rs1, rs2)
		case fmtRegImm:
			return fmt.Sprintf("%s %s, 0x%x", info.mnemonic, rd, immU(word)>>12)
		case fmtRegTarget:
			return fmt.Sprintf("%s %s, 0x%08x", info.mnemonic, rd, pc+immJ(word))
		case fmtRegRegTarget:
			return fmt.Sprintf("%s %s, %s, 0x%08x", info.mnemonic, rs1, rs2, pc+immB(word))
		case fmtRegBaseImm:
			return fmt.Sprintf("%s %s, %d(%s)", info.mnemonic, rd, int32(immI(word)), rs1)
		case fmtBaseRegImm:
			return fmt.Sprintf("%s %s, %d(%s)", info.mnemonic, rs2, int32(immS(word)), rs1)
		case fmtMemOrder:
			return info.mnemonic
		case fmtAMO2:
			return fmt.Sprintf("%s %s, (%s)", info.mnemonic, rd, rs1)
		case fmtAMO3:
			return fmt.Sprintf("%s %s, %s, (%s)", info.mnemonic, rd, rs2, rs1)
		case fmtCSRReg:
			return fmt.Sprintf("%s %s, %s, %s", info.mnemonic, rd, csrName(word>>20), rs1)
		case fmtCSRImm:
			return fmt.Sprintf("%s %s, %s, %d", info.mnemonic, rd, csrName(word>>20), instRs1(word))
		}
	}
	return fmt.Sprintf(".word 0x%08x", word)
}
