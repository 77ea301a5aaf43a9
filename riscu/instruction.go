package riscu

import "fmt"

// InstructionSize is the width of every instruction word in bytes.
const InstructionSize = 4

// Opcode identifies an instruction of the RISC-U subset.
type Opcode uint8

// The RISC-U instructions.
const (
	Illegal Opcode = iota
	Lui
	Addi
	Ld
	Sd
	Add
	Sub
	Mul
	Divu
	Remu
	Sltu
	Beq
	Jal
	Jalr
	Ecall
)

var opcodeNames = map[Opcode]string{
	Illegal: "illegal",
	Lui:     "lui",
	Addi:    "addi",
	Ld:      "ld",
	Sd:      "sd",
	Add:     "add",
	Sub:     "sub",
	Mul:     "mul",
	Divu:    "divu",
	Remu:    "remu",
	Sltu:    "sltu",
	Beq:     "beq",
	Jal:     "jal",
	Jalr:    "jalr",
	Ecall:   "ecall",
}

func (op Opcode) String() string {
	if name, ok := opcodeNames[op]; ok {
		return name
	}
	return fmt.Sprintf("Opcode(%d)", uint8(op))
}

// Instruction is a decoded instruction word. Fields an opcode does not use
// are zero. Imm is sign-extended, except for lui where it holds the unsigned
// 20-bit upper immediate.
type Instruction struct {
	Op  Opcode
	Rd  Register
	Rs1 Register
	Rs2 Register
	Imm int32
}

// String renders the instruction in assembler syntax.
func (i Instruction) String() string {
	switch i.Op {
	case Lui:
		return fmt.Sprintf("lui %s,%#x", i.Rd.ABIName(), i.Imm)
	case Addi:
		return fmt.Sprintf("addi %s,%s,%d", i.Rd.ABIName(), i.Rs1.ABIName(), i.Imm)
	case Ld:
		return fmt.Sprintf("ld %s,%d(%s)", i.Rd.ABIName(), i.Imm, i.Rs1.ABIName())
	case Sd:
		return fmt.Sprintf("sd %s,%d(%s)", i.Rs2.ABIName(), i.Imm, i.Rs1.ABIName())
	case Add, Sub, Mul, Divu, Remu, Sltu:
		return fmt.Sprintf("%s %s,%s,%s", i.Op, i.Rd.ABIName(), i.Rs1.ABIName(), i.Rs2.ABIName())
	case Beq:
		return fmt.Sprintf("beq %s,%s,%d", i.Rs1.ABIName(), i.Rs2.ABIName(), i.Imm)
	case Jal:
		return fmt.Sprintf("jal %s,%d", i.Rd.ABIName(), i.Imm)
	case Jalr:
		return fmt.Sprintf("jalr %s,%d(%s)", i.Rd.ABIName(), i.Imm, i.Rs1.ABIName())
	case Ecall:
		return "ecall"
	}
	return i.Op.String()
}
