package riscu

import (
	"errors"
	"fmt"
)

// ErrInvalidInstruction is returned for words outside the RISC-U subset.
var ErrInvalidInstruction = errors.New("invalid instruction")

// Major opcodes (bits 6:0).
const (
	opcodeLoad   = 0x03
	opcodeOpImm  = 0x13
	opcodeStore  = 0x23
	opcodeOp     = 0x33
	opcodeLui    = 0x37
	opcodeBranch = 0x63
	opcodeJalr   = 0x67
	opcodeJal    = 0x6f
	opcodeSystem = 0x73
)

const (
	funct3Addi = 0
	funct3Ld   = 3
	funct3Sd   = 3
	funct3Beq  = 0
	funct3Jalr = 0

	funct3AddSub = 0
	funct3Sltu   = 3
	funct3Divu   = 5
	funct3Remu   = 7

	funct7Base   = 0x00
	funct7Sub    = 0x20
	funct7MulDiv = 0x01

	ecallWord = 0x00000073
)

// Decode decodes one instruction word.
func Decode(word uint32) (Instruction, error) {
	opcode := word & 0x7f
	funct3 := (word >> 12) & 0x7

	switch opcode {
	case opcodeLui:
		rd, imm := decodeU(word)
		return Instruction{Op: Lui, Rd: Register(rd), Imm: int32(imm >> 12)}, nil
	case opcodeOpImm:
		if funct3 == funct3Addi {
			rd, rs1, imm := decodeI(word)
			return Instruction{Op: Addi, Rd: Register(rd), Rs1: Register(rs1), Imm: imm}, nil
		}
	case opcodeLoad:
		if funct3 == funct3Ld {
			rd, rs1, imm := decodeI(word)
			return Instruction{Op: Ld, Rd: Register(rd), Rs1: Register(rs1), Imm: imm}, nil
		}
	case opcodeStore:
		if funct3 == funct3Sd {
			rs1, rs2, imm := decodeS(word)
			return Instruction{Op: Sd, Rs1: Register(rs1), Rs2: Register(rs2), Imm: imm}, nil
		}
	case opcodeOp:
		if op, ok := decodeOp(funct3, word>>25); ok {
			rd, rs1, rs2 := decodeR(word)
			return Instruction{Op: op, Rd: Register(rd), Rs1: Register(rs1), Rs2: Register(rs2)}, nil
		}
	case opcodeBranch:
		if funct3 == funct3Beq {
			rs1, rs2, imm := decodeB(word)
			return Instruction{Op: Beq, Rs1: Register(rs1), Rs2: Register(rs2), Imm: imm}, nil
		}
	case opcodeJal:
		rd, imm := decodeJ(word)
		return Instruction{Op: Jal, Rd: Register(rd), Imm: imm}, nil
	case opcodeJalr:
		if funct3 == funct3Jalr {
			rd, rs1, imm := decodeI(word)
			return Instruction{Op: Jalr, Rd: Register(rd), Rs1: Register(rs1), Imm: imm}, nil
		}
	case opcodeSystem:
		if word == ecallWord {
			return Instruction{Op: Ecall}, nil
		}
	}

	return Instruction{}, fmt.Errorf("%w: %#x", ErrInvalidInstruction, word)
}

func decodeOp(funct3, funct7 uint32) (Opcode, bool) {
	switch {
	case funct3 == funct3AddSub && funct7 == funct7Base:
		return Add, true
	case funct3 == funct3AddSub && funct7 == funct7Sub:
		return Sub, true
	case funct3 == funct3AddSub && funct7 == funct7MulDiv:
		return Mul, true
	case funct3 == funct3Divu && funct7 == funct7MulDiv:
		return Divu, true
	case funct3 == funct3Remu && funct7 == funct7MulDiv:
		return Remu, true
	case funct3 == funct3Sltu && funct7 == funct7Base:
		return Sltu, true
	}
	return Illegal, false
}

// decodeR extracts R-type fields: rd, rs1, rs2.
func decodeR(instr uint32) (rd, rs1, rs2 uint32) {
	rd = (instr >> 7) & 0x1F
	rs1 = (instr >> 15) & 0x1F
	rs2 = (instr >> 20) & 0x1F
	return
}

// decodeU extracts U-type fields: rd, imm[31:12].
func decodeU(instr uint32) (rd uint32, imm uint32) {
	rd = (instr >> 7) & 0x1F
	imm = instr & 0xFFFFF000
	return
}

// decodeJ extracts J-type fields: rd, imm (sign-extended 21-bit offset).
func decodeJ(instr uint32) (rd uint32, imm int32) {
	rd = (instr >> 7) & 0x1F
	// imm[20|10:1|11|19:12]
	rawImm := ((instr >> 31) << 20) |
		(((instr >> 12) & 0xFF) << 12) |
		(((instr >> 20) & 0x1) << 11) |
		(((instr >> 21) & 0x3FF) << 1)
	if rawImm&(1<<20) != 0 {
		rawImm |= 0xFFF00000
	}
	imm = int32(rawImm)
	return
}

// decodeI extracts I-type fields: rd, rs1, imm (sign-extended 12-bit).
func decodeI(instr uint32) (rd uint32, rs1 uint32, imm int32) {
	rd = (instr >> 7) & 0x1F
	rs1 = (instr >> 15) & 0x1F
	rawImm := instr >> 20
	if rawImm&(1<<11) != 0 {
		rawImm |= 0xFFFFF000
	}
	imm = int32(rawImm)
	return
}

// decodeS extracts S-type fields: rs1, rs2, imm (sign-extended 12-bit).
func decodeS(instr uint32) (rs1, rs2 uint32, imm int32) {
	rs1 = (instr >> 15) & 0x1F
	rs2 = (instr >> 20) & 0x1F
	rawImm := ((instr >> 7) & 0x1F) | (((instr >> 25) & 0x7F) << 5)
	if rawImm&(1<<11) != 0 {
		rawImm |= 0xFFFFF000
	}
	imm = int32(rawImm)
	return
}

// decodeB extracts B-type fields: rs1, rs2, imm (sign-extended 13-bit offset).
func decodeB(instr uint32) (rs1, rs2 uint32, imm int32) {
	rs1 = (instr >> 15) & 0x1F
	rs2 = (instr >> 20) & 0x1F
	// imm[12|10:5|4:1|11]
	rawImm := (((instr >> 31) & 0x1) << 12) |
		(((instr >> 7) & 0x1) << 11) |
		(((instr >> 25) & 0x3F) << 5) |
		(((instr >> 8) & 0xF) << 1)
	if rawImm&(1<<12) != 0 {
		rawImm |= 0xFFFFE000
	}
	imm = int32(rawImm)
	return
}
