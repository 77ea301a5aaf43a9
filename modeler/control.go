package modeler

import (
	"fmt"
	"sort"

	"github.com/sarchlab/rvbmc/btor2"
	"github.com/sarchlab/rvbmc/riscu"
)

// addControlFlow folds the incoming edges of every instruction into the next
// value of its pc flag. Edges are folded in the order they were recorded.
func (mb *modelBuilder) addControlFlow(program *riscu.Program) error {
	mb.newComment("control flow")
	mb.pc = program.Code.Address
	for n := 0; n < program.NumInstructions(); n++ {
		start, err := addressNid(nidControlFlow, mb.pc)
		if err != nil {
			return err
		}
		mb.currentNid = start

		flow := mb.zeroBit
		edges := mb.controlIn[mb.pc]
		delete(mb.controlIn, mb.pc)
		for i := range edges {
			switch edges[i].fromInstruction.Op {
			case riscu.Beq:
				flow = mb.controlFlowFromBeq(&edges[i], flow)
			case riscu.Ecall:
				flow = mb.controlFlowFromEcall(&edges[i], flow)
			default:
				flow = mb.controlFlowFromAny(mb.pcFlags[edges[i].fromAddress], flow)
			}
		}
		mb.newNext(mb.pcFlag(), flow, "", btor2.Bit)

		if err := checkAddressBudget(start, mb.currentNid, mb.pc); err != nil {
			return err
		}
		mb.pc = mb.pcAdd(riscu.InstructionSize)
	}

	mb.dropDanglingEdges()
	return nil
}

// dropDanglingEdges discards edges into addresses outside the code segment.
// Such targets have no pc flag to activate.
func (mb *modelBuilder) dropDanglingEdges() {
	targets := make([]uint64, 0, len(mb.controlIn))
	for to := range mb.controlIn {
		targets = append(targets, to)
	}
	sort.Slice(targets, func(i, j int) bool { return targets[i] < targets[j] })

	for _, to := range targets {
		for _, e := range mb.controlIn[to] {
			Trace("dropping control edge",
				"from", fmt.Sprintf("%#x", e.fromAddress),
				"to", fmt.Sprintf("%#x", to),
				"inst", e.fromInstruction.String())
		}
		delete(mb.controlIn, to)
	}
}

func (mb *modelBuilder) controlFlowFromBeq(e *inEdge, flow btor2.NodeRef) btor2.NodeRef {
	activate := mb.newAnd(mb.pcFlags[e.fromAddress], e.condition)
	return mb.controlFlowFromAny(activate, flow)
}

// controlFlowFromEcall resumes after a system call. A latch remembers that
// the ecall was taken and keeps the successor waiting while the machine is in
// kernel mode.
func (mb *modelBuilder) controlFlowFromEcall(e *inEdge, flow btor2.NodeRef) btor2.NodeRef {
	latch := mb.newState(mb.zeroBit, fmt.Sprintf("kernel-mode-pc-flag-%d", e.fromAddress), btor2.Bit)
	ite := mb.newIte(latch, mb.kernelMode, mb.pcFlags[e.fromAddress], btor2.Bit)
	mb.newNext(latch, ite, "", btor2.Bit)
	activate := mb.newAnd(latch, mb.kernelNot)
	return mb.controlFlowFromAny(activate, flow)
}

func (mb *modelBuilder) controlFlowFromAny(activate, flow btor2.NodeRef) btor2.NodeRef {
	if flow == mb.zeroBit {
		return activate
	}
	return mb.newIte(activate, mb.oneBit, flow, btor2.Bit)
}
