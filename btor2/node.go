// Package btor2 holds word-level transition-system models: a graph of typed
// nodes describing constants, state, combinational operators and the next
// and bad relations over them, and its BTOR2 text form.
package btor2

import (
	"errors"
	"fmt"
)

// Nid is the numeric identifier of a node in BTOR2 text.
type Nid uint64

// Sort is the value type a node produces.
type Sort uint8

// Sorts, numbered as in the BTOR2 preamble.
const (
	Bit    Sort = 1
	Word   Sort = 2
	Memory Sort = 3
)

func (s Sort) String() string {
	switch s {
	case Bit:
		return "bit"
	case Word:
		return "word"
	case Memory:
		return "memory"
	}
	return fmt.Sprintf("Sort(%d)", uint8(s))
}

// Kind selects the variant of a Node.
type Kind uint8

// Node kinds.
const (
	Const Kind = iota
	Read
	Write
	Add
	Sub
	Rem
	Ite
	Eq
	And
	Not
	State
	Next
	Bad
	Comment
)

var kindNames = [...]string{
	Const:   "constd",
	Read:    "read",
	Write:   "write",
	Add:     "add",
	Sub:     "sub",
	Rem:     "urem",
	Ite:     "ite",
	Eq:      "eq",
	And:     "and",
	Not:     "not",
	State:   "state",
	Next:    "next",
	Bad:     "bad",
	Comment: "comment",
}

// String returns the BTOR2 keyword of the kind.
func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

// NodeRef is a stable handle to a node of a Model. Two handles are equal
// exactly when they refer to the same node; structurally equal nodes created
// separately have different handles.
type NodeRef uint32

// NoNode is the zero handle. It never refers to a node.
const NoNode NodeRef = 0

// Node is one element of the graph. Which fields are meaningful depends on
// Kind:
//
//	Const            Sort, Imm
//	Read             Args = memory, address
//	Write            Args = memory, address, value
//	Add, Sub, Rem    Args = left, right
//	Ite              Sort, Args = cond, left, right
//	Eq, And          Args = left, right
//	Not              Args = value
//	State            Sort, Init (optional), Name (optional)
//	Next             Sort, Args = state, next, Name (optional)
//	Bad              Args = cond, Name (optional)
//	Comment          Text
//
// An empty Name means the node is unnamed.
type Node struct {
	Kind Kind
	Nid  Nid
	Sort Sort
	Imm  uint64
	Args []NodeRef
	Init NodeRef
	Name string
	Text string
}

// ErrNoNid is returned when a node without an identifier is used where one
// is required.
var ErrNoNid = errors.New("node has no nid")

// Model is the finished graph. Lines keeps every node in creation order,
// Sequentials the next relations and BadStates the bad properties.
type Model struct {
	nodes []Node

	Lines       []NodeRef
	Sequentials []NodeRef
	BadStates   []NodeRef
}

// NewModel creates an empty model.
func NewModel() *Model {
	return &Model{}
}

// arity is the number of operands each kind takes.
var arity = [...]int{
	Const:   0,
	Read:    2,
	Write:   3,
	Add:     2,
	Sub:     2,
	Rem:     2,
	Ite:     3,
	Eq:      2,
	And:     2,
	Not:     1,
	State:   0,
	Next:    2,
	Bad:     1,
	Comment: 0,
}

// Append adds a node to the model and returns its handle. It panics when an
// operand does not exist or the number of operands does not fit the kind.
func (m *Model) Append(n Node) NodeRef {
	if int(n.Kind) >= len(arity) {
		panic(fmt.Sprintf("btor2: unknown node kind %d", uint8(n.Kind)))
	}
	if len(n.Args) != arity[n.Kind] {
		panic(fmt.Sprintf("btor2: %s takes %d operands, got %d",
			n.Kind, arity[n.Kind], len(n.Args)))
	}
	for _, arg := range n.Args {
		m.mustExist(arg)
	}
	if n.Init != NoNode {
		m.mustExist(n.Init)
	}

	m.nodes = append(m.nodes, n)
	ref := NodeRef(len(m.nodes))
	m.Lines = append(m.Lines, ref)

	switch n.Kind {
	case Next:
		m.Sequentials = append(m.Sequentials, ref)
	case Bad:
		m.BadStates = append(m.BadStates, ref)
	}

	return ref
}

// Node returns the node behind ref. The returned pointer must be treated as
// read-only.
func (m *Model) Node(ref NodeRef) *Node {
	m.mustExist(ref)
	return &m.nodes[ref-1]
}

// Len returns the number of nodes, comments included.
func (m *Model) Len() int {
	return len(m.nodes)
}

// Nid returns the identifier of the node behind ref.
func (m *Model) Nid(ref NodeRef) (Nid, error) {
	n := m.Node(ref)
	if n.Kind == Comment {
		return 0, fmt.Errorf("%w: comment %q", ErrNoNid, n.Text)
	}
	return n.Nid, nil
}

// Lookup finds the first node with the given nid.
func (m *Model) Lookup(nid Nid) (NodeRef, bool) {
	for i := range m.nodes {
		if m.nodes[i].Kind != Comment && m.nodes[i].Nid == nid {
			return NodeRef(i + 1), true
		}
	}
	return NoNode, false
}

// StateByName finds the state node with the given name.
func (m *Model) StateByName(name string) (NodeRef, bool) {
	for i := range m.nodes {
		if m.nodes[i].Kind == State && m.nodes[i].Name == name {
			return NodeRef(i + 1), true
		}
	}
	return NoNode, false
}

func (m *Model) mustExist(ref NodeRef) {
	if ref == NoNode || int(ref) > len(m.nodes) {
		panic(fmt.Sprintf("btor2: invalid node handle %d", ref))
	}
}
