package verify

import (
	"fmt"

	"github.com/sarchlab/rvbmc/modeler"
	"github.com/sarchlab/rvbmc/riscu"
)

// RunLint performs static checks on a program.
// Returns a list of issues found, or empty list if no issues.
func RunLint(program *riscu.Program) []Issue {
	var issues []Issue

	if _, ok := program.WordAt(program.Entry); !ok {
		issues = append(issues, Issue{
			Type:    IssueFlow,
			Address: program.Entry,
			Message: fmt.Sprintf("entry point %#x is not an instruction of the code segment", program.Entry),
		})
	}

	if n := program.NumInstructions(); n > 0 {
		last := program.Code.Address + uint64(n-1)*riscu.InstructionSize
		if last >= modeler.MaxAddress {
			issues = append(issues, Issue{
				Type:    IssueNid,
				Address: last,
				Message: fmt.Sprintf("instruction at %#x is beyond the last numbered address %#x",
					last, modeler.MaxAddress-1),
			})
		}
	}

	incoming := make(map[uint64]*edgeCost)
	addEdge := func(to uint64, op riscu.Opcode) {
		c, ok := incoming[to]
		if !ok {
			c = &edgeCost{}
			incoming[to] = c
		}
		c.add(op)
	}

	addr := program.Code.Address
	for _, word := range program.Words() {
		inst, err := riscu.Decode(word)
		if err != nil {
			issues = append(issues, Issue{
				Type:    IssueDecode,
				Address: addr,
				Word:    word,
				Message: err.Error(),
			})
			addr += riscu.InstructionSize
			continue
		}

		if msg, ok := unsupported(inst); ok {
			issues = append(issues, Issue{
				Type:    IssueOpcode,
				Address: addr,
				Word:    word,
				Message: msg,
				Details: map[string]interface{}{"instruction": inst.String()},
			})
		}

		for _, to := range successors(addr, inst) {
			addEdge(to, inst.Op)
			if _, ok := program.WordAt(to); !ok {
				issues = append(issues, Issue{
					Type:    IssueFlow,
					Address: addr,
					Word:    word,
					Message: fmt.Sprintf("%s transfers control to %#x outside the code segment", inst, to),
					Details: map[string]interface{}{"target": to},
				})
			}
		}

		addr += riscu.InstructionSize
	}

	addr = program.Code.Address
	for range program.Words() {
		if c, ok := incoming[addr]; ok && c.nids() > modeler.NidsPerAddress {
			issues = append(issues, Issue{
				Type:    IssueNid,
				Address: addr,
				Message: fmt.Sprintf("%d incoming control edges need %d ids, at most %d fit",
					c.edges, c.nids(), modeler.NidsPerAddress),
				Details: map[string]interface{}{"edges": c.edges},
			})
		}
		addr += riscu.InstructionSize
	}

	return issues
}

func unsupported(inst riscu.Instruction) (string, bool) {
	switch inst.Op {
	case riscu.Mul, riscu.Divu, riscu.Sltu:
		return fmt.Sprintf("%s has no model", inst.Op), true
	case riscu.Jalr:
		if inst.Rd != riscu.Zero || inst.Rs1 != riscu.Ra || inst.Imm != 0 {
			return fmt.Sprintf("%s is not a plain return", inst), true
		}
	}
	return "", false
}

// successors lists the statically known control targets of an instruction.
func successors(addr uint64, inst riscu.Instruction) []uint64 {
	next := addr + riscu.InstructionSize
	switch inst.Op {
	case riscu.Beq:
		return []uint64{addr + uint64(int64(inst.Imm)), next}
	case riscu.Jal:
		return []uint64{addr + uint64(int64(inst.Imm))}
	case riscu.Jalr:
		return nil
	}
	return []uint64{next}
}

// edgeCost estimates the identifiers the control-flow fold of one address
// consumes.
type edgeCost struct {
	edges int
	cost  int
}

func (c *edgeCost) add(op riscu.Opcode) {
	c.edges++
	switch op {
	case riscu.Beq:
		c.cost += 2 // and, fold
	case riscu.Ecall:
		c.cost += 6 // latch state and init, ite, next, and, fold
	default:
		c.cost++ // fold
	}
}

// nids is the estimate including the next relation of the pc flag, which
// takes the place of the fold the first edge does not need.
func (c *edgeCost) nids() int {
	return c.cost
}
