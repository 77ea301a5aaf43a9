package modeler

import "github.com/sarchlab/rvbmc/btor2"

// addNode assigns the current nid to n and appends it to the model.
func (mb *modelBuilder) addNode(n btor2.Node) btor2.NodeRef {
	if n.Nid == 0 {
		n.Nid = mb.currentNid
	}
	ref := mb.model.Append(n)
	mb.currentNid++
	return ref
}

func (mb *modelBuilder) newComment(text string) {
	mb.model.Append(btor2.Node{Kind: btor2.Comment, Text: text})
}

func (mb *modelBuilder) newConst(imm uint64) btor2.NodeRef {
	return mb.addNode(btor2.Node{Kind: btor2.Const, Sort: btor2.Word, Imm: imm})
}

func (mb *modelBuilder) newRead(memory, address btor2.NodeRef) btor2.NodeRef {
	return mb.addNode(btor2.Node{Kind: btor2.Read, Args: []btor2.NodeRef{memory, address}})
}

func (mb *modelBuilder) newWrite(memory, address, value btor2.NodeRef) btor2.NodeRef {
	return mb.addNode(btor2.Node{Kind: btor2.Write, Args: []btor2.NodeRef{memory, address, value}})
}

func (mb *modelBuilder) newAdd(left, right btor2.NodeRef) btor2.NodeRef {
	return mb.addNode(btor2.Node{Kind: btor2.Add, Args: []btor2.NodeRef{left, right}})
}

func (mb *modelBuilder) newSub(left, right btor2.NodeRef) btor2.NodeRef {
	return mb.addNode(btor2.Node{Kind: btor2.Sub, Args: []btor2.NodeRef{left, right}})
}

func (mb *modelBuilder) newRem(left, right btor2.NodeRef) btor2.NodeRef {
	return mb.addNode(btor2.Node{Kind: btor2.Rem, Args: []btor2.NodeRef{left, right}})
}

func (mb *modelBuilder) newIte(cond, left, right btor2.NodeRef, sort btor2.Sort) btor2.NodeRef {
	return mb.addNode(btor2.Node{Kind: btor2.Ite, Sort: sort, Args: []btor2.NodeRef{cond, left, right}})
}

func (mb *modelBuilder) newEq(left, right btor2.NodeRef) btor2.NodeRef {
	return mb.addNode(btor2.Node{Kind: btor2.Eq, Args: []btor2.NodeRef{left, right}})
}

func (mb *modelBuilder) newAnd(left, right btor2.NodeRef) btor2.NodeRef {
	return mb.addNode(btor2.Node{Kind: btor2.And, Args: []btor2.NodeRef{left, right}})
}

func (mb *modelBuilder) newNot(value btor2.NodeRef) btor2.NodeRef {
	return mb.addNode(btor2.Node{Kind: btor2.Not, Args: []btor2.NodeRef{value}})
}

// newState appends a state. A state with an initial value takes two nids,
// one for the state line and one for its init line.
func (mb *modelBuilder) newState(init btor2.NodeRef, name string, sort btor2.Sort) btor2.NodeRef {
	ref := mb.addNode(btor2.Node{Kind: btor2.State, Sort: sort, Init: init, Name: name})
	if init != btor2.NoNode {
		mb.currentNid++
	}
	return ref
}

func (mb *modelBuilder) newNext(state, next btor2.NodeRef, name string, sort btor2.Sort) btor2.NodeRef {
	return mb.addNode(btor2.Node{Kind: btor2.Next, Sort: sort, Args: []btor2.NodeRef{state, next}, Name: name})
}

func (mb *modelBuilder) newBad(cond btor2.NodeRef, name string) btor2.NodeRef {
	return mb.addNode(btor2.Node{Kind: btor2.Bad, Args: []btor2.NodeRef{cond}, Name: name})
}
