package btor2

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

const header = `; cksystemsgroup.github.io/monster

1 sort bitvec 1 ; Boolean
2 sort bitvec 64 ; 64-bit machine word
3 sort array 2 2 ; 64-bit physical memory
`

const trailer = "\n; end of BTOR2 file\n"

// Print renders the model as BTOR2 text.
func Print(m *Model) (string, error) {
	var b strings.Builder
	if err := WriteModel(&b, m); err != nil {
		return "", err
	}
	return b.String(), nil
}

// WriteModel renders the model as BTOR2 text, one line per node in model order.
func WriteModel(w io.Writer, m *Model) error {
	bw := bufio.NewWriter(w)
	p := printer{m: m, w: bw}

	bw.WriteString(header)
	for _, ref := range m.Lines {
		if err := p.line(m.Node(ref)); err != nil {
			return err
		}
	}
	bw.WriteString(trailer)

	return bw.Flush()
}

type printer struct {
	m *Model
	w *bufio.Writer
}

func (p printer) line(n *Node) error {
	if n.Kind == Comment {
		fmt.Fprintf(p.w, "\n; %s\n\n", n.Text)
		return nil
	}

	args, err := p.nids(n.Args)
	if err != nil {
		return fmt.Errorf("cannot print %s %d: %w", n.Kind, n.Nid, err)
	}

	switch n.Kind {
	case Const:
		fmt.Fprintf(p.w, "%d constd %d %d\n", n.Nid, n.Sort, n.Imm)
	case Read:
		fmt.Fprintf(p.w, "%d read %d %d %d\n", n.Nid, Word, args[0], args[1])
	case Write:
		fmt.Fprintf(p.w, "%d write %d %d %d %d\n", n.Nid, Memory, args[0], args[1], args[2])
	case Add, Sub, Rem:
		fmt.Fprintf(p.w, "%d %s %d %d %d\n", n.Nid, n.Kind, Word, args[0], args[1])
	case Ite:
		fmt.Fprintf(p.w, "%d ite %d %d %d %d\n", n.Nid, n.Sort, args[0], args[1], args[2])
	case Eq, And:
		fmt.Fprintf(p.w, "%d %s %d %d %d\n", n.Nid, n.Kind, Bit, args[0], args[1])
	case Not:
		fmt.Fprintf(p.w, "%d not %d %d\n", n.Nid, Bit, args[0])
	case State:
		fmt.Fprintf(p.w, "%d state %d %s\n", n.Nid, n.Sort, nameOrUnknown(n.Name))
		if n.Init != NoNode {
			init, err := p.m.Nid(n.Init)
			if err != nil {
				return fmt.Errorf("cannot print init of state %d: %w", n.Nid, err)
			}
			fmt.Fprintf(p.w, "%d init %d %d %d\n", n.Nid+1, n.Sort, n.Nid, init)
		}
	case Next:
		fmt.Fprintf(p.w, "%d next %d %d %d %s\n", n.Nid, n.Sort, args[0], args[1], nameOrUnknown(n.Name))
	case Bad:
		fmt.Fprintf(p.w, "%d bad %d %s\n", n.Nid, args[0], nameOrUnknown(n.Name))
	default:
		return fmt.Errorf("cannot print node kind %s", n.Kind)
	}

	return nil
}

func (p printer) nids(refs []NodeRef) ([]Nid, error) {
	nids := make([]Nid, len(refs))
	for i, ref := range refs {
		nid, err := p.m.Nid(ref)
		if err != nil {
			return nil, err
		}
		nids[i] = nid
	}
	return nids, nil
}

func nameOrUnknown(name string) string {
	if name == "" {
		return "?"
	}
	return name
}
