package riscu

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// DefaultCodeAddress is where assembled programs are placed unless told
// otherwise.
const DefaultCodeAddress = 0x10000

type asmLine struct {
	lineNo   int
	mnemonic string
	args     []string
	address  uint64
}

// LoadAssemblyFile assembles the file at path into a program at address.
func LoadAssemblyFile(path string, address uint64) (*Program, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read assembly file: %w", err)
	}

	return Assemble(address, string(data))
}

// Assemble translates RISC-U assembly into a program at address. One
// instruction per line; "#" and ";" start comments; "name:" defines a label.
// Branch and jump targets are labels or byte offsets relative to the
// instruction. The pseudo instructions nop, li (12-bit), mv, j and ret are
// accepted.
func Assemble(address uint64, src string) (*Program, error) {
	labels := make(map[string]uint64)
	var lines []asmLine

	scanner := bufio.NewScanner(strings.NewReader(src))
	lineNo := 0
	pc := address
	for scanner.Scan() {
		lineNo++
		text := scanner.Text()
		if i := strings.IndexAny(text, "#;"); i >= 0 {
			text = text[:i]
		}
		text = strings.TrimSpace(text)

		for {
			colon := strings.Index(text, ":")
			if colon < 0 {
				break
			}
			label := strings.TrimSpace(text[:colon])
			if label == "" || strings.ContainsAny(label, " \t,") {
				return nil, fmt.Errorf("line %d: malformed label %q", lineNo, text[:colon])
			}
			if _, dup := labels[label]; dup {
				return nil, fmt.Errorf("line %d: duplicate label %q", lineNo, label)
			}
			labels[label] = pc
			text = strings.TrimSpace(text[colon+1:])
		}

		if text == "" {
			continue
		}

		mnemonic, rest := text, ""
		if i := strings.IndexAny(text, " \t"); i >= 0 {
			mnemonic, rest = text[:i], text[i+1:]
		}
		var args []string
		for _, a := range strings.Split(rest, ",") {
			if a = strings.TrimSpace(a); a != "" {
				args = append(args, a)
			}
		}

		lines = append(lines, asmLine{
			lineNo:   lineNo,
			mnemonic: strings.ToLower(mnemonic),
			args:     args,
			address:  pc,
		})
		pc += InstructionSize
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	words := make([]uint32, 0, len(lines))
	for _, l := range lines {
		inst, err := l.instruction(labels)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", l.lineNo, err)
		}
		words = append(words, Encode(inst))
	}

	return NewProgram(address, words...), nil
}

func (l asmLine) instruction(labels map[string]uint64) (Instruction, error) {
	var (
		inst Instruction
		err  error
	)

	switch l.mnemonic {
	case "nop":
		err = l.expectArgs(0)
		inst = Instruction{Op: Addi}
	case "ecall":
		err = l.expectArgs(0)
		inst = Instruction{Op: Ecall}
	case "ret":
		err = l.expectArgs(0)
		inst = Instruction{Op: Jalr, Rd: Zero, Rs1: Ra}
	case "lui":
		inst.Op = Lui
		err = l.parse(&inst.Rd, &inst.Imm)
		if err == nil && (inst.Imm < 0 || inst.Imm > 0xFFFFF) {
			err = fmt.Errorf("upper immediate %d out of range", inst.Imm)
		}
	case "addi", "li", "mv":
		inst.Op = Addi
		switch l.mnemonic {
		case "addi":
			err = l.parse(&inst.Rd, &inst.Rs1, &inst.Imm)
		case "li":
			err = l.parse(&inst.Rd, &inst.Imm)
		case "mv":
			err = l.parse(&inst.Rd, &inst.Rs1)
		}
		if err == nil {
			err = checkImm12(inst.Imm)
		}
	case "ld", "jalr":
		inst.Op = Ld
		if l.mnemonic == "jalr" {
			inst.Op = Jalr
		}
		err = l.parse(&inst.Rd, memOperand{&inst.Imm, &inst.Rs1})
		if err == nil {
			err = checkImm12(inst.Imm)
		}
	case "sd":
		inst.Op = Sd
		err = l.parse(&inst.Rs2, memOperand{&inst.Imm, &inst.Rs1})
		if err == nil {
			err = checkImm12(inst.Imm)
		}
	case "add", "sub", "mul", "divu", "remu", "sltu":
		for op, name := range opcodeNames {
			if name == l.mnemonic {
				inst.Op = op
			}
		}
		err = l.parse(&inst.Rd, &inst.Rs1, &inst.Rs2)
	case "beq":
		inst.Op = Beq
		err = l.parse(&inst.Rs1, &inst.Rs2, target{&inst.Imm, l.address, labels})
		if err == nil {
			err = checkOffset(inst.Imm, 13)
		}
	case "jal", "j":
		inst.Op = Jal
		switch {
		case l.mnemonic == "j":
			err = l.parse(target{&inst.Imm, l.address, labels})
		case len(l.args) == 1:
			inst.Rd = Ra
			err = l.parse(target{&inst.Imm, l.address, labels})
		default:
			err = l.parse(&inst.Rd, target{&inst.Imm, l.address, labels})
		}
		if err == nil {
			err = checkOffset(inst.Imm, 21)
		}
	default:
		err = fmt.Errorf("unknown mnemonic %q", l.mnemonic)
	}

	return inst, err
}

type memOperand struct {
	imm  *int32
	base *Register
}

type target struct {
	imm    *int32
	pc     uint64
	labels map[string]uint64
}

func (l asmLine) expectArgs(n int) error {
	if len(l.args) != n {
		return fmt.Errorf("%s expects %d operands, got %d", l.mnemonic, n, len(l.args))
	}
	return nil
}

func (l asmLine) parse(dst ...interface{}) error {
	if err := l.expectArgs(len(dst)); err != nil {
		return err
	}

	for i, d := range dst {
		arg := l.args[i]
		switch d := d.(type) {
		case *Register:
			r, err := ParseRegister(arg)
			if err != nil {
				return err
			}
			*d = r
		case *int32:
			v, err := parseImm(arg)
			if err != nil {
				return err
			}
			*d = v
		case memOperand:
			open := strings.Index(arg, "(")
			if open < 0 || !strings.HasSuffix(arg, ")") {
				return fmt.Errorf("malformed memory operand %q", arg)
			}
			imm := int32(0)
			if s := strings.TrimSpace(arg[:open]); s != "" {
				v, err := parseImm(s)
				if err != nil {
					return err
				}
				imm = v
			}
			r, err := ParseRegister(strings.TrimSpace(arg[open+1 : len(arg)-1]))
			if err != nil {
				return err
			}
			*d.imm, *d.base = imm, r
		case target:
			if addr, ok := d.labels[arg]; ok {
				*d.imm = int32(int64(addr) - int64(d.pc))
				continue
			}
			v, err := parseImm(arg)
			if err != nil {
				return fmt.Errorf("unknown label or offset %q", arg)
			}
			*d.imm = v
		}
	}

	return nil
}

func parseImm(s string) (int32, error) {
	v, err := strconv.ParseInt(s, 0, 32)
	if err != nil {
		return 0, fmt.Errorf("bad immediate %q", s)
	}
	return int32(v), nil
}

func checkImm12(imm int32) error {
	if imm < -2048 || imm > 2047 {
		return fmt.Errorf("immediate %d does not fit 12 bits", imm)
	}
	return nil
}

// checkOffset validates a branch or jump offset of the given signed width.
func checkOffset(imm int32, bits uint) error {
	limit := int32(1) << (bits - 1)
	if imm < -limit || imm >= limit || imm%2 != 0 {
		return fmt.Errorf("offset %d is odd or does not fit %d bits", imm, bits)
	}
	return nil
}
