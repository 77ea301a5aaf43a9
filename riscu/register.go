// Package riscu describes RISC-U programs: the registers, the instruction
// subset, decoding and encoding of instruction words, and program loading.
package riscu

import "fmt"

// Register is one of the 32 general-purpose registers.
type Register uint8

// The general-purpose registers in encoding order.
const (
	Zero Register = iota
	Ra
	Sp
	Gp
	Tp
	T0
	T1
	T2
	S0
	S1
	A0
	A1
	A2
	A3
	A4
	A5
	A6
	A7
	S2
	S3
	S4
	S5
	S6
	S7
	S8
	S9
	S10
	S11
	T3
	T4
	T5
	T6
)

// NumRegisters is the size of the register file.
const NumRegisters = 32

var registerNames = [NumRegisters]string{
	"Zero", "Ra", "Sp", "Gp", "Tp", "T0", "T1", "T2",
	"S0", "S1", "A0", "A1", "A2", "A3", "A4", "A5",
	"A6", "A7", "S2", "S3", "S4", "S5", "S6", "S7",
	"S8", "S9", "S10", "S11", "T3", "T4", "T5", "T6",
}

var abiNames = [NumRegisters]string{
	"zero", "ra", "sp", "gp", "tp", "t0", "t1", "t2",
	"s0", "s1", "a0", "a1", "a2", "a3", "a4", "a5",
	"a6", "a7", "s2", "s3", "s4", "s5", "s6", "s7",
	"s8", "s9", "s10", "s11", "t3", "t4", "t5", "t6",
}

// String returns the register name used for model states, e.g. "A0".
func (r Register) String() string {
	if int(r) >= NumRegisters {
		return fmt.Sprintf("Register(%d)", uint8(r))
	}
	return registerNames[r]
}

// ABIName returns the assembler name of the register, e.g. "a0".
func (r Register) ABIName() string {
	if int(r) >= NumRegisters {
		return fmt.Sprintf("x%d", uint8(r))
	}
	return abiNames[r]
}

// ParseRegister accepts ABI names ("a0", "fp") and numeric names ("x10").
func ParseRegister(name string) (Register, error) {
	for i, n := range abiNames {
		if n == name {
			return Register(i), nil
		}
	}
	if name == "fp" {
		return S0, nil
	}

	var n int
	if _, err := fmt.Sscanf(name, "x%d", &n); err == nil && n >= 0 && n < NumRegisters {
		if fmt.Sprintf("x%d", n) == name {
			return Register(n), nil
		}
	}

	return 0, fmt.Errorf("unknown register %q", name)
}
