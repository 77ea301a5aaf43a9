package modeler

import (
	"errors"
	"fmt"

	"github.com/sarchlab/rvbmc/btor2"
	"github.com/sarchlab/rvbmc/riscu"
)

var (
	// ErrUnimplemented is returned for instructions that have no model.
	ErrUnimplemented = errors.New("instruction not implemented")

	// ErrUnsupportedJalr is returned for any jalr other than a plain
	// return through ra.
	ErrUnsupportedJalr = errors.New("only jalr zero,0(ra) is supported")
)

// translateToModel adds the data flow of the instruction at the current pc
// and records its outgoing control edges.
func (mb *modelBuilder) translateToModel(inst riscu.Instruction) error {
	var beqTrue, beqFalse btor2.NodeRef

	switch inst.Op {
	case riscu.Addi:
		mb.modelAddi(inst)
	case riscu.Lui:
		mb.modelLui(inst)
	case riscu.Ld:
		mb.modelLd(inst)
	case riscu.Sd:
		mb.modelSd(inst)
	case riscu.Add:
		mb.modelAdd(inst)
	case riscu.Sub:
		mb.modelSub(inst)
	case riscu.Remu:
		mb.modelRemu(inst)
	case riscu.Beq:
		beqTrue, beqFalse = mb.modelBeq(inst)
	case riscu.Jal:
		mb.modelJal(inst)
	case riscu.Jalr:
		if inst.Rd != riscu.Zero || inst.Rs1 != riscu.Ra || inst.Imm != 0 {
			return fmt.Errorf("%w: got %s", ErrUnsupportedJalr, inst)
		}
	case riscu.Ecall:
		mb.modelEcall()
	default:
		return fmt.Errorf("%w: %s", ErrUnimplemented, inst.Op)
	}

	switch inst.Op {
	case riscu.Beq:
		mb.goToInstruction(inst, mb.pcAdd(signExtend(inst.Imm)), beqTrue)
		mb.goToInstruction(inst, mb.pcAdd(riscu.InstructionSize), beqFalse)
	case riscu.Jal:
		mb.goToInstruction(inst, mb.pcAdd(signExtend(inst.Imm)), btor2.NoNode)
	case riscu.Jalr:
		// The return target is not known statically.
	default:
		mb.goToInstruction(inst, mb.pcAdd(riscu.InstructionSize), btor2.NoNode)
	}

	return nil
}

func signExtend(imm int32) uint64 {
	return uint64(int64(imm))
}

func (mb *modelBuilder) goToInstruction(
	inst riscu.Instruction,
	to uint64,
	condition btor2.NodeRef,
) {
	mb.controlIn[to] = append(mb.controlIn[to], inEdge{
		fromInstruction: inst,
		fromAddress:     mb.pc,
		condition:       condition,
	})
}

// updateRegister selects value for rd whenever the current pc flag is set.
// Writes to the zero register are dropped.
func (mb *modelBuilder) updateRegister(rd riscu.Register, value btor2.NodeRef) {
	ite := mb.newIte(mb.pcFlag(), value, mb.regFlow(rd), btor2.Word)
	mb.regFlowUpdate(rd, ite)
}

func (mb *modelBuilder) modelAddi(inst riscu.Instruction) {
	if inst.Rd == riscu.Zero {
		return
	}

	imm := signExtend(inst.Imm)
	var result btor2.NodeRef
	switch {
	case imm == 0:
		result = mb.regNode(inst.Rs1)
	case inst.Rs1 == riscu.Zero:
		result = mb.newConst(imm)
	default:
		immNode := mb.newConst(imm)
		result = mb.newAdd(mb.regNode(inst.Rs1), immNode)
	}
	mb.updateRegister(inst.Rd, result)
}

func (mb *modelBuilder) modelLui(inst riscu.Instruction) {
	if inst.Rd == riscu.Zero {
		return
	}

	value := mb.newConst(uint64(uint32(inst.Imm)) << 12)
	mb.updateRegister(inst.Rd, value)
}

// modelAddress returns the effective address reg+imm.
func (mb *modelBuilder) modelAddress(reg riscu.Register, imm uint64) btor2.NodeRef {
	if imm == 0 {
		return mb.regNode(reg)
	}
	immNode := mb.newConst(imm)
	return mb.newAdd(mb.regNode(reg), immNode)
}

func (mb *modelBuilder) modelLd(inst riscu.Instruction) {
	if inst.Rd == riscu.Zero {
		return
	}

	address := mb.modelAddress(inst.Rs1, signExtend(inst.Imm))
	read := mb.newRead(mb.memoryNode, address)
	mb.updateRegister(inst.Rd, read)
}

func (mb *modelBuilder) modelSd(inst riscu.Instruction) {
	address := mb.modelAddress(inst.Rs1, signExtend(inst.Imm))
	write := mb.newWrite(mb.memoryNode, address, mb.regNode(inst.Rs2))
	mb.memoryFlow = mb.newIte(mb.pcFlag(), write, mb.memoryFlow, btor2.Memory)
}

func (mb *modelBuilder) modelAdd(inst riscu.Instruction) {
	if inst.Rd == riscu.Zero {
		return
	}

	sum := mb.newAdd(mb.regNode(inst.Rs1), mb.regNode(inst.Rs2))
	mb.updateRegister(inst.Rd, sum)
}

func (mb *modelBuilder) modelSub(inst riscu.Instruction) {
	if inst.Rd == riscu.Zero {
		return
	}

	diff := mb.newSub(mb.regNode(inst.Rs1), mb.regNode(inst.Rs2))
	mb.updateRegister(inst.Rd, diff)
}

// modelRemu tracks the divisor for the remainder-by-zero check even when the
// result is discarded.
func (mb *modelBuilder) modelRemu(inst riscu.Instruction) {
	mb.remainderFlow = mb.newIte(mb.pcFlag(), mb.regNode(inst.Rs2), mb.remainderFlow, btor2.Word)
	if inst.Rd == riscu.Zero {
		return
	}

	rem := mb.newRem(mb.regNode(inst.Rs1), mb.regNode(inst.Rs2))
	mb.updateRegister(inst.Rd, rem)
}

func (mb *modelBuilder) modelBeq(inst riscu.Instruction) (taken, notTaken btor2.NodeRef) {
	taken = mb.newEq(mb.regNode(inst.Rs1), mb.regNode(inst.Rs2))
	notTaken = mb.newNot(taken)
	return taken, notTaken
}

func (mb *modelBuilder) modelJal(inst riscu.Instruction) {
	if inst.Rd == riscu.Zero {
		return
	}

	link := mb.newConst(mb.pcAdd(riscu.InstructionSize))
	mb.updateRegister(inst.Rd, link)
}

func (mb *modelBuilder) modelEcall() {
	mb.ecallFlow = mb.newIte(mb.pcFlag(), mb.oneBit, mb.ecallFlow, btor2.Bit)
}
