package modeler

import (
	"github.com/sarchlab/rvbmc/btor2"
	"github.com/sarchlab/rvbmc/riscu"
)

// syscallNodes holds the a7 comparisons shared by the kernel-mode update and
// the safety checks.
type syscallNodes struct {
	isOpenat   btor2.NodeRef
	isRead     btor2.NodeRef
	isWrite    btor2.NodeRef
	isExit     btor2.NodeRef
	isBrk      btor2.NodeRef
	activeExit btor2.NodeRef
}

func (mb *modelBuilder) isSyscall(id riscu.SyscallID) btor2.NodeRef {
	num := mb.newConst(uint64(id))
	return mb.newEq(mb.regNode(riscu.A7), num)
}

// addSyscalls models kernel mode. Only exit keeps the machine in the kernel;
// every other system call returns after one step.
func (mb *modelBuilder) addSyscalls() syscallNodes {
	mb.newComment("syscalls")
	mb.currentNid = nidSyscalls

	var s syscallNodes
	s.isOpenat = mb.isSyscall(riscu.SyscallOpenat)
	s.isRead = mb.isSyscall(riscu.SyscallRead)
	s.isWrite = mb.isSyscall(riscu.SyscallWrite)
	s.isExit = mb.isSyscall(riscu.SyscallExit)
	s.isBrk = mb.isSyscall(riscu.SyscallBrk)
	s.activeExit = mb.newAnd(mb.ecallFlow, s.isExit)

	kernelFlow := mb.newIte(mb.kernelMode, s.isExit, s.activeExit, btor2.Bit)
	mb.newNext(mb.kernelMode, kernelFlow, "", btor2.Bit)

	return s
}

// addChecks adds the bad properties.
func (mb *modelBuilder) addChecks(s syscallNodes) {
	mb.newComment("checking syscall id")
	mb.currentNid = nidChecks
	notOpenat := mb.newNot(s.isOpenat)
	notRead := mb.newNot(s.isRead)
	notWrite := mb.newNot(s.isWrite)
	notExit := mb.newNot(s.isExit)
	notBrk := mb.newNot(s.isBrk)
	unknown := mb.newAnd(notOpenat, notRead)
	unknown = mb.newAnd(unknown, notWrite)
	unknown = mb.newAnd(unknown, notExit)
	unknown = mb.newAnd(unknown, notBrk)
	invalid := mb.newAnd(mb.ecallFlow, unknown)
	mb.newBad(invalid, "invalid-syscall-id")

	mb.newComment("checking exit code")
	exitCodeZero := mb.newEq(mb.regNode(riscu.A0), mb.zeroWord)
	exitCodeNonZero := mb.newNot(exitCodeZero)
	badExit := mb.newAnd(s.activeExit, exitCodeNonZero)
	mb.newBad(badExit, "non-zero-exit-code")

	mb.newComment("checking division and remainder by zero")
	divByZero := mb.newEq(mb.divisionFlow, mb.zeroWord)
	mb.newBad(divByZero, "bad-division-by-zero")
	remByZero := mb.newEq(mb.remainderFlow, mb.zeroWord)
	mb.newBad(remByZero, "bad-remainder-by-zero")
}
