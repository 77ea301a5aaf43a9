package machine_test

import (
	"fmt"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/rvbmc/btor2"
	"github.com/sarchlab/rvbmc/machine"
	"github.com/sarchlab/rvbmc/modeler"
	"github.com/sarchlab/rvbmc/riscu"
)

func evaluatorFor(src string) *machine.Evaluator {
	program, err := riscu.Assemble(0, src)
	Expect(err).NotTo(HaveOccurred())
	model, err := modeler.GenerateModel(program)
	Expect(err).NotTo(HaveOccurred())
	e, err := machine.NewEvaluator(model)
	Expect(err).NotTo(HaveOccurred())
	return e
}

func pcOf(e *machine.Evaluator) uint64 {
	pc, ok := e.PC()
	Expect(ok).To(BeTrue(), "pc flags %v", e.PCFlags())
	return pc
}

const countdown = `
        li   t0, 3
loop:   addi t0, t0, -1
        beq  t0, zero, done
        j    loop
done:   mv   a0, t0
end:    j    end
`

var _ = Describe("Evaluator", func() {
	It("should start at the entry point with zeroed registers", func() {
		e := evaluatorFor("li a0, 5\n")

		pc, ok := e.PC()
		Expect(ok).To(BeTrue())
		Expect(pc).To(Equal(uint64(0)))
		Expect(e.Register(riscu.A0)).To(BeZero())
		Expect(e.IsInKernelMode()).To(BeFalse())
		Expect(e.FiredBad()).To(BeEmpty())
	})

	It("should keep exactly one pc flag set in a loop", func() {
		e := evaluatorFor(countdown)

		expected := []uint64{0, 4, 8, 12, 4, 8, 12, 4, 8, 16, 20}
		for step := 0; step < 40; step++ {
			Expect(e.PCFlags()).To(HaveLen(1), fmt.Sprintf("step %d", step))
			pc, _ := e.PC()
			if step < len(expected) {
				Expect(pc).To(Equal(expected[step]), fmt.Sprintf("step %d", step))
			} else {
				Expect(pc).To(Equal(uint64(20)))
			}
			e.Step()
		}

		Expect(e.Register(riscu.T0)).To(BeZero())
		Expect(e.StepCount()).To(Equal(40))
	})

	It("should apply the write of the active instruction only", func() {
		e := evaluatorFor("li a0, 5\nli a0, 7\n")

		e.Step()
		Expect(e.Register(riscu.A0)).To(Equal(uint64(5)))
		e.Step()
		Expect(e.Register(riscu.A0)).To(Equal(uint64(7)))
		e.Step()
		Expect(e.Register(riscu.A0)).To(Equal(uint64(7)))
	})

	It("should keep the zero register at zero", func() {
		e := evaluatorFor("addi zero, zero, 5\nadd a0, zero, zero\n")

		for i := 0; i < 3; i++ {
			e.Step()
			Expect(e.Register(riscu.Zero)).To(BeZero())
			Expect(e.Register(riscu.A0)).To(BeZero())
		}
	})

	It("should compute arithmetic with wrap-around", func() {
		e := evaluatorFor("li a0, -3\nli a1, 5\nadd a2, a0, a1\nsub a3, a0, a1\nremu a4, a1, a1\nlui a5, 0xfffff\n")
		for i := 0; i < 6; i++ {
			e.Step()
		}

		Expect(e.Register(riscu.A2)).To(Equal(uint64(2)))
		Expect(e.Register(riscu.A3)).To(Equal(uint64(0xfffffffffffffff8)))
		Expect(e.Register(riscu.A4)).To(BeZero())
		Expect(e.Register(riscu.A5)).To(Equal(uint64(0xfffff000)))
	})

	It("should store to and load from memory", func() {
		e := evaluatorFor("li sp, 64\nli a0, 42\nsd a0, 8(sp)\nld a1, 8(sp)\nld a2, 0(sp)\n")

		mem, ok := e.Model().StateByName("virtual-memory")
		Expect(ok).To(BeTrue())
		Expect(e.SetMemory(mem, 64, 9)).To(Succeed())

		for i := 0; i < 5; i++ {
			e.Step()
		}
		Expect(e.MemoryAt(mem, 72)).To(Equal(uint64(42)))
		Expect(e.Register(riscu.A1)).To(Equal(uint64(42)))
		Expect(e.Register(riscu.A2)).To(Equal(uint64(9)))
	})

	It("should accept register overrides", func() {
		e := evaluatorFor("add a0, a1, a2\n")

		Expect(e.SetRegister(riscu.A1, 40)).To(Succeed())
		Expect(e.SetRegister(riscu.A2, 2)).To(Succeed())
		Expect(e.SetRegister(riscu.Zero, 1)).To(MatchError(machine.ErrNotAState))

		e.Step()
		Expect(e.Register(riscu.A0)).To(Equal(uint64(42)))
	})

	It("should refuse to set nodes that are not states", func() {
		e := evaluatorFor("nop\n")

		ref, ok := e.Model().Lookup(10)
		Expect(ok).To(BeTrue())
		Expect(e.SetState(ref, 1)).To(MatchError(machine.ErrNotAState))

		mem, _ := e.Model().StateByName("virtual-memory")
		Expect(e.SetState(mem, 1)).To(MatchError(machine.ErrNotAState))
	})

	It("should leave no pc flag set while a system call is handled", func() {
		e := evaluatorFor("li a7, 64\necall\nnop\nnop\n")

		e.Step()
		Expect(pcOf(e)).To(Equal(uint64(4)))
		e.Step()
		Expect(e.PCFlags()).To(BeEmpty())
		Expect(e.IsInKernelMode()).To(BeFalse())
		e.Step()
		Expect(pcOf(e)).To(Equal(uint64(8)))
		e.Step()
		Expect(pcOf(e)).To(Equal(uint64(12)))
	})

	It("should enter kernel mode on exit", func() {
		e := evaluatorFor("li a7, 93\necall\n")

		e.Step()
		Expect(e.IsInKernelMode()).To(BeFalse())
		e.Step()
		Expect(e.IsInKernelMode()).To(BeTrue())
		Expect(e.PCFlags()).To(BeEmpty())
		e.Step()
		Expect(e.IsInKernelMode()).To(BeTrue())
	})

	It("should evaluate hand-built models", func() {
		m := btor2.NewModel()
		zero := m.Append(btor2.Node{Kind: btor2.Const, Nid: 10, Sort: btor2.Bit})
		one := m.Append(btor2.Node{Kind: btor2.Const, Nid: 11, Sort: btor2.Bit, Imm: 1})
		s := m.Append(btor2.Node{Kind: btor2.State, Nid: 12, Sort: btor2.Bit, Init: zero})
		n := m.Append(btor2.Node{Kind: btor2.Not, Nid: 14, Args: []btor2.NodeRef{s}})
		m.Append(btor2.Node{Kind: btor2.Next, Nid: 15, Sort: btor2.Bit, Args: []btor2.NodeRef{s, n}})
		m.Append(btor2.Node{Kind: btor2.Bad, Nid: 16, Args: []btor2.NodeRef{s}, Name: "toggled"})
		eq := m.Append(btor2.Node{Kind: btor2.Eq, Nid: 17, Args: []btor2.NodeRef{s, one}})

		e, err := machine.NewEvaluator(m)
		Expect(err).NotTo(HaveOccurred())

		Expect(e.Value(s)).To(BeZero())
		Expect(e.Value(eq)).To(BeZero())
		e.Step()
		Expect(e.Value(s)).To(Equal(uint64(1)))
		Expect(e.Value(eq)).To(Equal(uint64(1)))
		Expect(e.FiredBad()).To(Equal([]string{"toggled"}))
		e.Step()
		Expect(e.FiredBad()).To(BeEmpty())
	})

	It("should refuse malformed pc flag names", func() {
		m := btor2.NewModel()
		m.Append(btor2.Node{Kind: btor2.State, Nid: 1, Sort: btor2.Bit, Name: "pc=here"})

		_, err := machine.NewEvaluator(m)
		Expect(err).To(HaveOccurred())
	})
})
