// Package verify runs RISC-U programs through the model pipeline and reports
// what it finds.
//
// Verification has two stages:
//
// 1. Static lint (lint.go): checks on the decoded program that predict
// whether model generation can succeed
//   - DECODE: words outside the RISC-U encoding
//   - OPCODE: instructions without a model (mul, divu, sltu) and any jalr
//     other than a plain return
//   - FLOW: entry point or branch/jump targets outside the code segment
//   - NID: programs that do not fit the identifier namespace
//
// 2. Replay (report.go): the generated BTOR2 model is stepped concretely on
// a machine and every bad property that holds at some step is recorded.
//
// # Usage Example
//
//	program, _ := riscu.LoadObjectFile("a.out")
//	report := verify.GenerateReport(program, verify.DefaultOptions())
//	report.WriteReport(os.Stdout)
package verify

import (
	"github.com/sarchlab/rvbmc/riscu"
)

// IssueType categorizes lint issues
type IssueType string

const (
	IssueDecode IssueType = "DECODE" // Word does not decode
	IssueOpcode IssueType = "OPCODE" // Instruction cannot be modeled
	IssueFlow   IssueType = "FLOW"   // Control leaves the code segment
	IssueNid    IssueType = "NID"    // Identifier namespace exceeded
)

// Issue represents a single lint issue
type Issue struct {
	Type    IssueType              // DECODE, OPCODE, FLOW or NID
	Address uint64                 // Address of the offending instruction
	Word    uint32                 // Raw instruction word
	Message string                 // Human-readable description
	Details map[string]interface{} // Additional structured data
}

// Options controls the replay stage.
type Options struct {
	MaxSteps  int
	StopOnBad bool
	Registers map[riscu.Register]uint64
}

// DefaultOptions replays 100 steps from the all-zero register state.
func DefaultOptions() Options {
	return Options{MaxSteps: 100}
}
