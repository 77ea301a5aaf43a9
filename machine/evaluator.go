// Package machine steps BTOR2 models concretely. It is used to replay
// executions of a generated model and to observe which bad properties fire.
package machine

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/sarchlab/rvbmc/btor2"
	"github.com/sarchlab/rvbmc/riscu"
)

// ErrNotAState is returned when a value is assigned to a node that is not a
// state.
var ErrNotAState = errors.New("node is not a state")

// memory is an immutable sparse array. Unwritten cells read as zero.
type memory struct {
	cells map[uint64]uint64
}

func (m *memory) read(addr uint64) uint64 {
	if m == nil {
		return 0
	}
	return m.cells[addr]
}

func (m *memory) write(addr, value uint64) *memory {
	cells := make(map[uint64]uint64, len(m.cellsOrNil())+1)
	for a, v := range m.cellsOrNil() {
		cells[a] = v
	}
	cells[addr] = value
	return &memory{cells: cells}
}

func (m *memory) cellsOrNil() map[uint64]uint64 {
	if m == nil {
		return nil
	}
	return m.cells
}

type value struct {
	word uint64
	mem  *memory
}

type pcFlag struct {
	address uint64
	ref     btor2.NodeRef
}

// Evaluator holds one concrete value per node of a model. States keep their
// value across a step, every other node is recomputed from its operands.
// States without an initial value are inputs and start at zero.
type Evaluator struct {
	model  *btor2.Model
	values []value
	step   int

	pcFlags    []pcFlag
	registers  [riscu.NumRegisters]btor2.NodeRef
	kernelMode btor2.NodeRef
}

// NewEvaluator creates an evaluator positioned at the initial state of the
// model.
func NewEvaluator(model *btor2.Model) (*Evaluator, error) {
	e := &Evaluator{
		model:  model,
		values: make([]value, model.Len()),
	}

	if err := e.indexStates(); err != nil {
		return nil, err
	}

	for _, ref := range model.Lines {
		n := model.Node(ref)
		if n.Kind == btor2.State && n.Init != btor2.NoNode {
			e.values[ref-1] = e.values[n.Init-1]
			continue
		}
		e.evaluate(ref, n)
	}

	return e, nil
}

func (e *Evaluator) indexStates() error {
	for _, ref := range e.model.Lines {
		n := e.model.Node(ref)
		if n.Kind != btor2.State {
			continue
		}

		switch {
		case strings.HasPrefix(n.Name, "pc="):
			addr, err := strconv.ParseUint(strings.TrimPrefix(n.Name, "pc="), 0, 64)
			if err != nil {
				return fmt.Errorf("invalid pc flag name %q: %w", n.Name, err)
			}
			e.pcFlags = append(e.pcFlags, pcFlag{address: addr, ref: ref})
		case n.Name == "kernel-mode":
			e.kernelMode = ref
		}
	}

	for r := riscu.Register(1); r < riscu.NumRegisters; r++ {
		if ref, ok := e.model.StateByName(r.String()); ok {
			e.registers[r] = ref
		}
	}

	return nil
}

// evaluate recomputes a combinational node. States and comments are left
// untouched.
func (e *Evaluator) evaluate(ref btor2.NodeRef, n *btor2.Node) {
	arg := func(i int) value {
		return e.values[n.Args[i]-1]
	}

	var v value
	switch n.Kind {
	case btor2.Const:
		v.word = n.Imm
	case btor2.Read:
		v.word = arg(0).mem.read(arg(1).word)
	case btor2.Write:
		v.mem = arg(0).mem.write(arg(1).word, arg(2).word)
	case btor2.Add:
		v.word = arg(0).word + arg(1).word
	case btor2.Sub:
		v.word = arg(0).word - arg(1).word
	case btor2.Rem:
		if arg(1).word == 0 {
			v.word = arg(0).word
		} else {
			v.word = arg(0).word % arg(1).word
		}
	case btor2.Ite:
		if arg(0).word != 0 {
			v = arg(1)
		} else {
			v = arg(2)
		}
	case btor2.Eq:
		if arg(0).word == arg(1).word {
			v.word = 1
		}
	case btor2.And:
		v.word = arg(0).word & arg(1).word
	case btor2.Not:
		v.word = arg(0).word ^ 1
	case btor2.Bad:
		v.word = arg(0).word
	case btor2.Next:
		v = arg(1)
	default:
		return
	}
	e.values[ref-1] = v
}

func (e *Evaluator) recompute() {
	for _, ref := range e.model.Lines {
		e.evaluate(ref, e.model.Node(ref))
	}
}

// Step advances every state with a next relation by one transition. All
// states are updated simultaneously.
func (e *Evaluator) Step() {
	updates := make([]value, len(e.model.Sequentials))
	for i, ref := range e.model.Sequentials {
		updates[i] = e.values[ref-1]
	}
	for i, ref := range e.model.Sequentials {
		state := e.model.Node(ref).Args[0]
		e.values[state-1] = updates[i]
	}

	e.step++
	e.recompute()

	Trace("step", "step", e.step, "pc", e.pcString())
}

// StepCount returns the number of steps taken.
func (e *Evaluator) StepCount() int {
	return e.step
}

// Model returns the evaluated model.
func (e *Evaluator) Model() *btor2.Model {
	return e.model
}

// Value returns the word value of a node. Bit nodes are 0 or 1.
func (e *Evaluator) Value(ref btor2.NodeRef) uint64 {
	e.model.Node(ref)
	return e.values[ref-1].word
}

// MemoryAt returns a cell of a memory-sorted node.
func (e *Evaluator) MemoryAt(ref btor2.NodeRef, addr uint64) uint64 {
	e.model.Node(ref)
	return e.values[ref-1].mem.read(addr)
}

// SetState overrides the current value of a word or bit state.
func (e *Evaluator) SetState(ref btor2.NodeRef, v uint64) error {
	n := e.model.Node(ref)
	if n.Kind != btor2.State || n.Sort == btor2.Memory {
		return fmt.Errorf("%w: %s %d", ErrNotAState, n.Kind, n.Nid)
	}
	e.values[ref-1] = value{word: v}
	e.recompute()
	return nil
}

// SetMemory overrides one cell of a memory state.
func (e *Evaluator) SetMemory(ref btor2.NodeRef, addr, v uint64) error {
	n := e.model.Node(ref)
	if n.Kind != btor2.State || n.Sort != btor2.Memory {
		return fmt.Errorf("%w: %s %d", ErrNotAState, n.Kind, n.Nid)
	}
	e.values[ref-1] = value{mem: e.values[ref-1].mem.write(addr, v)}
	e.recompute()
	return nil
}

// SetRegister overrides the current value of a register.
func (e *Evaluator) SetRegister(r riscu.Register, v uint64) error {
	if r == riscu.Zero || e.registers[r] == btor2.NoNode {
		return fmt.Errorf("%w: register %s", ErrNotAState, r)
	}
	return e.SetState(e.registers[r], v)
}

// Register returns the current value of a register.
func (e *Evaluator) Register(r riscu.Register) uint64 {
	if r == riscu.Zero || e.registers[r] == btor2.NoNode {
		return 0
	}
	return e.values[e.registers[r]-1].word
}

// PCFlags returns the addresses whose pc flag is set.
func (e *Evaluator) PCFlags() []uint64 {
	var set []uint64
	for _, f := range e.pcFlags {
		if e.values[f.ref-1].word != 0 {
			set = append(set, f.address)
		}
	}
	return set
}

// PC returns the address of the active instruction. It reports false unless
// exactly one pc flag is set.
func (e *Evaluator) PC() (uint64, bool) {
	set := e.PCFlags()
	if len(set) != 1 {
		return 0, false
	}
	return set[0], true
}

func (e *Evaluator) pcString() string {
	if pc, ok := e.PC(); ok {
		return fmt.Sprintf("%#x", pc)
	}
	return fmt.Sprintf("%#x", e.PCFlags())
}

// IsInKernelMode tells whether the kernel-mode flag is set.
func (e *Evaluator) IsInKernelMode() bool {
	return e.kernelMode != btor2.NoNode && e.values[e.kernelMode-1].word != 0
}

// FiredBad returns the names of the bad properties that hold in the current
// state, in model order.
func (e *Evaluator) FiredBad() []string {
	var fired []string
	for _, ref := range e.model.BadStates {
		if e.values[ref-1].word != 0 {
			fired = append(fired, e.model.Node(ref).Name)
		}
	}
	return fired
}
