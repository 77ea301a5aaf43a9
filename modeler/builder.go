// Package modeler builds BTOR2 models of RISC-U programs. The model encodes
// the program counter as one Boolean flag per instruction and the next value
// of every register and of memory as a chain of if-then-else nodes selected
// by those flags.
package modeler

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/sarchlab/rvbmc/btor2"
	"github.com/sarchlab/rvbmc/riscu"
)

// Decoder turns instruction words into instructions.
type Decoder interface {
	Decode(word uint32) (riscu.Instruction, error)
}

// DecoderFunc adapts a function to the Decoder interface.
type DecoderFunc func(word uint32) (riscu.Instruction, error)

// Decode calls f(word).
func (f DecoderFunc) Decode(word uint32) (riscu.Instruction, error) {
	return f(word)
}

// Builder configures model generation.
type Builder struct {
	decoder Decoder
}

// NewBuilder returns a builder that decodes with riscu.Decode.
func NewBuilder() Builder {
	return Builder{decoder: DecoderFunc(riscu.Decode)}
}

// WithDecoder sets the instruction decoder.
func (b Builder) WithDecoder(decoder Decoder) Builder {
	b.decoder = decoder
	return b
}

// Generate builds the model of a program. Generation either succeeds
// completely or fails with an error naming the offending address.
func (b Builder) Generate(program *riscu.Program) (*btor2.Model, error) {
	if b.decoder == nil {
		b.decoder = DecoderFunc(riscu.Decode)
	}

	mb := newModelBuilder(b.decoder)
	if err := mb.generateModel(program); err != nil {
		return nil, err
	}

	return mb.model, nil
}

// GenerateModel builds the model of a program with the default builder.
func GenerateModel(program *riscu.Program) (*btor2.Model, error) {
	return NewBuilder().Generate(program)
}

// ErrEntryOutsideCode is returned when the entry point is not an instruction
// of the code segment.
var ErrEntryOutsideCode = errors.New("entry point outside code segment")

// TranslationError reports the instruction at which generation stopped.
type TranslationError struct {
	Address     uint64
	Word        uint32
	Instruction riscu.Instruction
	Decoded     bool
	Err         error
}

func (e *TranslationError) Error() string {
	if e.Decoded {
		return fmt.Sprintf("cannot translate %s at %#x: %v", e.Instruction, e.Address, e.Err)
	}
	return fmt.Sprintf("cannot decode word %#x at %#x: %v", e.Word, e.Address, e.Err)
}

func (e *TranslationError) Unwrap() error {
	return e.Err
}

type inEdge struct {
	fromInstruction riscu.Instruction
	fromAddress     uint64
	condition       btor2.NodeRef
}

// modelBuilder holds the state of one model generation. It is discarded once
// the model is complete.
type modelBuilder struct {
	model   *btor2.Model
	decoder Decoder

	pcFlags   map[uint64]btor2.NodeRef
	controlIn map[uint64][]inEdge

	zeroBit    btor2.NodeRef
	oneBit     btor2.NodeRef
	zeroWord   btor2.NodeRef
	kernelMode btor2.NodeRef
	kernelNot  btor2.NodeRef

	registerNodes [riscu.NumRegisters]btor2.NodeRef
	registerFlow  [riscu.NumRegisters - 1]btor2.NodeRef

	memoryNode    btor2.NodeRef
	memoryFlow    btor2.NodeRef
	divisionFlow  btor2.NodeRef
	remainderFlow btor2.NodeRef
	ecallFlow     btor2.NodeRef

	currentNid btor2.Nid
	pc         uint64
}

func newModelBuilder(decoder Decoder) *modelBuilder {
	return &modelBuilder{
		model:     btor2.NewModel(),
		decoder:   decoder,
		pcFlags:   make(map[uint64]btor2.NodeRef),
		controlIn: make(map[uint64][]inEdge),
	}
}

func (mb *modelBuilder) pcAdd(imm uint64) uint64 {
	return mb.pc + imm
}

func (mb *modelBuilder) pcFlag() btor2.NodeRef {
	return mb.pcFlags[mb.pc]
}

func (mb *modelBuilder) regNode(reg riscu.Register) btor2.NodeRef {
	return mb.registerNodes[reg]
}

func (mb *modelBuilder) regFlow(reg riscu.Register) btor2.NodeRef {
	if reg == riscu.Zero {
		panic("modeler: zero register has no flow")
	}
	return mb.registerFlow[reg-1]
}

func (mb *modelBuilder) regFlowUpdate(reg riscu.Register, node btor2.NodeRef) {
	if reg == riscu.Zero {
		panic("modeler: zero register has no flow")
	}
	mb.registerFlow[reg-1] = node
}

func (mb *modelBuilder) generateModel(program *riscu.Program) error {
	numInstructions := program.NumInstructions()
	if numInstructions == 0 {
		return fmt.Errorf("%w: empty code segment", ErrEntryOutsideCode)
	}
	if _, ok := program.WordAt(program.Entry); !ok {
		return fmt.Errorf("%w: %#x", ErrEntryOutsideCode, program.Entry)
	}

	slog.Debug("generating model",
		"code", fmt.Sprintf("%#x", program.Code.Address),
		"entry", fmt.Sprintf("%#x", program.Entry),
		"instructions", numInstructions)

	mb.addConstants()
	mb.addKernelMode()
	mb.addRegisters()
	if err := mb.addPCFlags(program); err != nil {
		return err
	}
	mb.addMemory()
	if err := mb.addDataFlow(program); err != nil {
		return err
	}
	syscalls := mb.addSyscalls()
	if err := mb.addControlFlow(program); err != nil {
		return err
	}
	mb.addRegisterUpdates()
	mb.addMemoryUpdate()
	mb.addChecks(syscalls)

	slog.Debug("model generated",
		"nodes", mb.model.Len(),
		"sequentials", len(mb.model.Sequentials),
		"bad", len(mb.model.BadStates))

	return nil
}

func (mb *modelBuilder) addConstants() {
	mb.newComment("common constants")
	mb.zeroBit = mb.addNode(btor2.Node{Kind: btor2.Const, Nid: nidZeroBit, Sort: btor2.Bit, Imm: 0})
	mb.oneBit = mb.addNode(btor2.Node{Kind: btor2.Const, Nid: nidOneBit, Sort: btor2.Bit, Imm: 1})
	mb.zeroWord = mb.addNode(btor2.Node{Kind: btor2.Const, Nid: nidZeroWord, Sort: btor2.Word, Imm: 0})
	mb.divisionFlow = mb.addNode(btor2.Node{Kind: btor2.Const, Nid: nidOneWord, Sort: btor2.Word, Imm: 1})
	mb.remainderFlow = mb.divisionFlow
	mb.ecallFlow = mb.zeroBit
}

func (mb *modelBuilder) addKernelMode() {
	mb.newComment("kernel-mode flag")
	mb.currentNid = nidKernelMode
	mb.kernelMode = mb.newState(mb.zeroBit, "kernel-mode", btor2.Bit)
	mb.kernelNot = mb.newNot(mb.kernelMode)
}

func (mb *modelBuilder) addRegisters() {
	mb.newComment("32 64-bit general-purpose registers")
	mb.currentNid = nidRegisters
	mb.registerNodes[riscu.Zero] = mb.newConst(0)
	for r := riscu.Register(1); r < riscu.NumRegisters; r++ {
		mb.currentNid = nidRegisters + 2*btor2.Nid(r)
		state := mb.newState(mb.zeroWord, r.String(), btor2.Word)
		mb.registerNodes[r] = state
		mb.registerFlow[r-1] = state
	}
}

func (mb *modelBuilder) addPCFlags(program *riscu.Program) error {
	mb.newComment("64-bit program counter encoded in Boolean flags")
	mb.pc = program.Code.Address
	for n := 0; n < program.NumInstructions(); n++ {
		nid, err := addressNid(nidPCFlags, mb.pc)
		if err != nil {
			return err
		}
		mb.currentNid = nid

		init := mb.zeroBit
		if mb.pc == program.Entry {
			init = mb.oneBit
		}
		mb.pcFlags[mb.pc] = mb.newState(init, fmt.Sprintf("pc=%#x", mb.pc), btor2.Bit)
		mb.pc = mb.pcAdd(riscu.InstructionSize)
	}
	return nil
}

func (mb *modelBuilder) addMemory() {
	mb.newComment("64-bit virtual memory")
	mb.currentNid = nidMemory
	memoryDump := mb.newState(btor2.NoNode, "memory-dump", btor2.Memory)
	mb.memoryNode = mb.newState(memoryDump, "virtual-memory", btor2.Memory)
	mb.memoryFlow = mb.memoryNode
}

func (mb *modelBuilder) addDataFlow(program *riscu.Program) error {
	mb.newComment("data flow")
	mb.pc = program.Code.Address
	for _, word := range program.Words() {
		start, err := addressNid(nidDataFlow, mb.pc)
		if err != nil {
			return err
		}
		mb.currentNid = start

		inst, err := mb.decoder.Decode(word)
		if err != nil {
			return &TranslationError{Address: mb.pc, Word: word, Err: err}
		}

		Trace("translating instruction", "pc", fmt.Sprintf("%#x", mb.pc), "inst", inst.String())
		if err := mb.translateToModel(inst); err != nil {
			return &TranslationError{Address: mb.pc, Word: word, Instruction: inst, Decoded: true, Err: err}
		}
		if err := checkAddressBudget(start, mb.currentNid, mb.pc); err != nil {
			return &TranslationError{Address: mb.pc, Word: word, Instruction: inst, Decoded: true, Err: err}
		}

		mb.pc = mb.pcAdd(riscu.InstructionSize)
	}
	return nil
}

func (mb *modelBuilder) addRegisterUpdates() {
	mb.newComment("updating registers")
	for r := riscu.Register(1); r < riscu.NumRegisters; r++ {
		mb.currentNid = nidRegisterFlow + btor2.Nid(r)
		mb.newNext(mb.regNode(r), mb.regFlow(r), r.String(), btor2.Word)
	}
}

func (mb *modelBuilder) addMemoryUpdate() {
	mb.newComment("updating 64-bit virtual memory")
	mb.currentNid = nidMemoryFlow
	mb.newNext(mb.memoryNode, mb.memoryFlow, "virtual-memory", btor2.Memory)
}
