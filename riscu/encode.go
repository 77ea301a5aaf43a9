package riscu

import "fmt"

// Encode builds the instruction word for a decoded instruction. It panics on
// Illegal, mirroring Decode's refusal to produce one.
func Encode(i Instruction) uint32 {
	rd, rs1, rs2 := uint32(i.Rd), uint32(i.Rs1), uint32(i.Rs2)

	switch i.Op {
	case Lui:
		return EncodeUType(opcodeLui, rd, uint32(i.Imm)<<12)
	case Addi:
		return EncodeIType(opcodeOpImm, rd, funct3Addi, rs1, i.Imm)
	case Ld:
		return EncodeIType(opcodeLoad, rd, funct3Ld, rs1, i.Imm)
	case Sd:
		return EncodeSType(opcodeStore, funct3Sd, rs1, rs2, i.Imm)
	case Add:
		return EncodeRType(opcodeOp, rd, funct3AddSub, rs1, rs2, funct7Base)
	case Sub:
		return EncodeRType(opcodeOp, rd, funct3AddSub, rs1, rs2, funct7Sub)
	case Mul:
		return EncodeRType(opcodeOp, rd, funct3AddSub, rs1, rs2, funct7MulDiv)
	case Divu:
		return EncodeRType(opcodeOp, rd, funct3Divu, rs1, rs2, funct7MulDiv)
	case Remu:
		return EncodeRType(opcodeOp, rd, funct3Remu, rs1, rs2, funct7MulDiv)
	case Sltu:
		return EncodeRType(opcodeOp, rd, funct3Sltu, rs1, rs2, funct7Base)
	case Beq:
		return EncodeBType(opcodeBranch, funct3Beq, rs1, rs2, i.Imm)
	case Jal:
		return EncodeJType(opcodeJal, rd, i.Imm)
	case Jalr:
		return EncodeIType(opcodeJalr, rd, funct3Jalr, rs1, i.Imm)
	case Ecall:
		return ecallWord
	}

	panic(fmt.Sprintf("riscu: cannot encode %s", i.Op))
}

// EncodeRType encodes an R-type instruction.
func EncodeRType(opcode, rd, funct3, rs1, rs2, funct7 uint32) uint32 {
	return (funct7 << 25) | (rs2 << 20) | (rs1 << 15) | (funct3 << 12) | (rd << 7) | opcode
}

// EncodeIType encodes an I-type instruction.
func EncodeIType(opcode, rd, funct3, rs1 uint32, imm int32) uint32 {
	return (uint32(imm&0xFFF) << 20) | (rs1 << 15) | (funct3 << 12) | (rd << 7) | opcode
}

// EncodeSType encodes an S-type instruction.
func EncodeSType(opcode, funct3, rs1, rs2 uint32, imm int32) uint32 {
	immU := uint32(imm & 0xFFF)
	return ((immU >> 5) << 25) | (rs2 << 20) | (rs1 << 15) | (funct3 << 12) |
		((immU & 0x1F) << 7) | opcode
}

// EncodeBType encodes a B-type instruction.
func EncodeBType(opcode, funct3, rs1, rs2 uint32, imm int32) uint32 {
	immU := uint32(imm)
	return (((immU >> 12) & 0x1) << 31) | (((immU >> 5) & 0x3F) << 25) |
		(rs2 << 20) | (rs1 << 15) | (funct3 << 12) |
		(((immU >> 1) & 0xF) << 8) | (((immU >> 11) & 0x1) << 7) | opcode
}

// EncodeUType encodes a U-type instruction.
func EncodeUType(opcode, rd uint32, imm uint32) uint32 {
	return (imm & 0xFFFFF000) | (rd << 7) | opcode
}

// EncodeJType encodes a J-type instruction.
func EncodeJType(opcode, rd uint32, imm int32) uint32 {
	immU := uint32(imm)
	return (((immU >> 20) & 0x1) << 31) | (((immU >> 1) & 0x3FF) << 21) |
		(((immU >> 11) & 0x1) << 20) | (((immU >> 12) & 0xFF) << 12) |
		(rd << 7) | opcode
}
