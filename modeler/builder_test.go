package modeler_test

import (
	"errors"
	"strings"

	"github.com/golang/mock/gomock"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/rvbmc/btor2"
	"github.com/sarchlab/rvbmc/modeler"
	"github.com/sarchlab/rvbmc/riscu"
)

func assemble(src string) *riscu.Program {
	program, err := riscu.Assemble(0, src)
	Expect(err).NotTo(HaveOccurred())
	return program
}

func printModel(program *riscu.Program) string {
	model, err := modeler.GenerateModel(program)
	Expect(err).NotTo(HaveOccurred())
	text, err := btor2.Print(model)
	Expect(err).NotTo(HaveOccurred())
	return text
}

// section returns the lines printed under a comment.
func section(text, title string) string {
	marker := "\n; " + title + "\n\n"
	start := strings.Index(text, marker)
	Expect(start).To(BeNumerically(">=", 0), "missing section %q", title)
	rest := text[start+len(marker):]
	return rest[:strings.Index(rest, "\n; ")]
}

var _ = Describe("Builder", func() {
	Context("exit program", func() {
		var text string

		BeforeEach(func() {
			text = printModel(assemble("addi a0, zero, 1\necall\n"))
		})

		It("should start with the sort preamble and end with the trailer", func() {
			Expect(text).To(HavePrefix("; cksystemsgroup.github.io/monster\n\n" +
				"1 sort bitvec 1 ; Boolean\n" +
				"2 sort bitvec 64 ; 64-bit machine word\n" +
				"3 sort array 2 2 ; 64-bit physical memory\n\n; common constants\n\n"))
			Expect(text).To(HaveSuffix("\n; end of BTOR2 file\n"))
		})

		It("should emit the sections in order", func() {
			titles := []string{
				"common constants",
				"kernel-mode flag",
				"32 64-bit general-purpose registers",
				"64-bit program counter encoded in Boolean flags",
				"64-bit virtual memory",
				"data flow",
				"syscalls",
				"control flow",
				"updating registers",
				"updating 64-bit virtual memory",
				"checking syscall id",
				"checking exit code",
				"checking division and remainder by zero",
			}
			last := -1
			for _, title := range titles {
				i := strings.Index(text, "\n; "+title+"\n\n")
				Expect(i).To(BeNumerically(">", last), title)
				last = i
			}
		})

		It("should emit the fixed constants and kernel-mode flag", func() {
			Expect(section(text, "common constants")).To(Equal(
				"10 constd 1 0\n11 constd 1 1\n20 constd 2 0\n21 constd 2 1\n"))
			Expect(section(text, "kernel-mode flag")).To(Equal(
				"60 state 1 kernel-mode\n61 init 1 60 10\n62 not 1 60\n"))
		})

		It("should emit the register file", func() {
			regs := section(text, "32 64-bit general-purpose registers")
			lines := strings.Split(strings.TrimSuffix(regs, "\n"), "\n")

			Expect(lines).To(HaveLen(1 + 2*31))
			Expect(lines[0]).To(Equal("200 constd 2 0"))
			Expect(lines[1:3]).To(Equal([]string{"202 state 2 Ra", "203 init 2 202 20"}))
			Expect(regs).To(ContainSubstring("220 state 2 A0\n221 init 2 220 20\n"))
			Expect(lines[61:]).To(Equal([]string{"262 state 2 T6", "263 init 2 262 20"}))
		})

		It("should emit one pc flag per instruction", func() {
			Expect(section(text, "64-bit program counter encoded in Boolean flags")).To(Equal(
				"10000000 state 1 pc=0x0\n10000001 init 1 10000000 11\n" +
					"10000400 state 1 pc=0x4\n10000401 init 1 10000400 10\n"))
		})

		It("should emit the memory states", func() {
			Expect(section(text, "64-bit virtual memory")).To(Equal(
				"20000000 state 3 memory-dump\n" +
					"20000001 state 3 virtual-memory\n" +
					"20000002 init 3 20000001 20000000\n"))
		})

		It("should emit the data flow", func() {
			Expect(section(text, "data flow")).To(Equal(
				"30000000 constd 2 1\n" +
					"30000001 ite 2 10000000 30000000 220\n" +
					"30000400 ite 1 10000400 11 10\n"))
		})

		It("should recognize the system calls", func() {
			Expect(section(text, "syscalls")).To(Equal(
				"40000000 constd 2 56\n40000001 eq 1 234 40000000\n" +
					"40000002 constd 2 63\n40000003 eq 1 234 40000002\n" +
					"40000004 constd 2 64\n40000005 eq 1 234 40000004\n" +
					"40000006 constd 2 93\n40000007 eq 1 234 40000006\n" +
					"40000008 constd 2 214\n40000009 eq 1 234 40000008\n" +
					"40000010 and 1 30000400 40000007\n" +
					"40000011 ite 1 60 40000007 40000010\n" +
					"40000012 next 1 60 40000011 ?\n"))
		})

		It("should drop the edge leaving the code segment", func() {
			Expect(section(text, "control flow")).To(Equal(
				"50000000 next 1 10000000 10 ?\n" +
					"50000400 next 1 10000400 10000000 ?\n"))
		})

		It("should update registers and memory", func() {
			regs := section(text, "updating registers")
			Expect(strings.Count(regs, "\n")).To(Equal(31))
			Expect(regs).To(HavePrefix("60000001 next 2 202 202 Ra\n"))
			Expect(regs).To(ContainSubstring("60000010 next 2 220 30000001 A0\n"))
			Expect(regs).To(HaveSuffix("60000031 next 2 262 262 T6\n"))

			Expect(section(text, "updating 64-bit virtual memory")).To(Equal(
				"70000000 next 3 20000001 20000001 virtual-memory\n"))
		})

		It("should emit the safety checks", func() {
			Expect(section(text, "checking syscall id")).To(Equal(
				"80000000 not 1 40000001\n" +
					"80000001 not 1 40000003\n" +
					"80000002 not 1 40000005\n" +
					"80000003 not 1 40000007\n" +
					"80000004 not 1 40000009\n" +
					"80000005 and 1 80000000 80000001\n" +
					"80000006 and 1 80000005 80000002\n" +
					"80000007 and 1 80000006 80000003\n" +
					"80000008 and 1 80000007 80000004\n" +
					"80000009 and 1 30000400 80000008\n" +
					"80000010 bad 80000009 invalid-syscall-id\n"))
			Expect(section(text, "checking exit code")).To(Equal(
				"80000011 eq 1 220 20\n" +
					"80000012 not 1 80000011\n" +
					"80000013 and 1 40000010 80000012\n" +
					"80000014 bad 80000013 non-zero-exit-code\n"))
			Expect(section(text, "checking division and remainder by zero")).To(Equal(
				"80000015 eq 1 21 20\n" +
					"80000016 bad 80000015 bad-division-by-zero\n" +
					"80000017 eq 1 21 20\n" +
					"80000018 bad 80000017 bad-remainder-by-zero\n"))
		})

		It("should collect next relations and bad properties", func() {
			model, err := modeler.GenerateModel(assemble("addi a0, zero, 1\necall\n"))
			Expect(err).NotTo(HaveOccurred())

			// kernel mode, two pc flags, 31 registers, memory
			Expect(model.Sequentials).To(HaveLen(1 + 2 + 31 + 1))
			Expect(model.BadStates).To(HaveLen(4))
		})
	})

	Context("instructions", func() {
		It("should splice register writes in address order", func() {
			text := printModel(assemble("li a0, 5\nli a0, 7\n"))

			Expect(section(text, "data flow")).To(Equal(
				"30000000 constd 2 5\n" +
					"30000001 ite 2 10000000 30000000 220\n" +
					"30000400 constd 2 7\n" +
					"30000401 ite 2 10000400 30000400 30000001\n"))
			Expect(section(text, "updating registers")).
				To(ContainSubstring("60000010 next 2 220 30000401 A0\n"))
		})

		It("should reuse the source register for a zero immediate", func() {
			text := printModel(assemble("mv a0, a1\naddi a1, a1, -1\n"))

			Expect(section(text, "data flow")).To(Equal(
				"30000000 ite 2 10000000 222 220\n" +
					"30000400 constd 2 18446744073709551615\n" +
					"30000401 add 2 222 30000400\n" +
					"30000402 ite 2 10000400 30000401 222\n"))
		})

		It("should drop writes to the zero register", func() {
			text := printModel(assemble(
				"addi zero, zero, 5\nadd zero, a0, a1\nsub zero, a0, a1\nlui zero, 1\nld zero, 8(sp)\njal zero, 4\nnop\n"))

			Expect(section(text, "data flow")).To(BeEmpty())
			Expect(section(text, "32 64-bit general-purpose registers")).To(HavePrefix("200 constd 2 0\n"))
			Expect(text).NotTo(ContainSubstring(" Zero"))
		})

		It("should shift the upper immediate", func() {
			text := printModel(assemble("lui a0, 0x12345\n"))

			Expect(section(text, "data flow")).To(Equal(
				"30000000 constd 2 305418240\n" +
					"30000001 ite 2 10000000 30000000 220\n"))
		})

		It("should model loads from the virtual memory", func() {
			text := printModel(assemble("ld a0, 0(sp)\nld a1, 16(sp)\n"))

			Expect(section(text, "data flow")).To(Equal(
				"30000000 read 2 20000001 204\n" +
					"30000001 ite 2 10000000 30000000 220\n" +
					"30000400 constd 2 16\n" +
					"30000401 add 2 204 30000400\n" +
					"30000402 read 2 20000001 30000401\n" +
					"30000403 ite 2 10000400 30000402 222\n"))
		})

		It("should model stores into the memory flow", func() {
			text := printModel(assemble("sd a0, 8(sp)\nsd a1, 0(sp)\n"))

			Expect(section(text, "data flow")).To(Equal(
				"30000000 constd 2 8\n" +
					"30000001 add 2 204 30000000\n" +
					"30000002 write 3 20000001 30000001 220\n" +
					"30000003 ite 3 10000000 30000002 20000001\n" +
					"30000400 write 3 20000001 204 222\n" +
					"30000401 ite 3 10000400 30000400 30000003\n"))
			Expect(section(text, "updating 64-bit virtual memory")).To(Equal(
				"70000000 next 3 20000001 30000401 virtual-memory\n"))
		})

		It("should track the divisor of remu", func() {
			text := printModel(assemble("remu a0, a1, a2\n"))

			Expect(section(text, "data flow")).To(Equal(
				"30000000 ite 2 10000000 224 21\n" +
					"30000001 urem 2 222 224\n" +
					"30000002 ite 2 10000000 30000001 220\n"))
			Expect(section(text, "checking division and remainder by zero")).
				To(HaveSuffix("80000017 eq 1 30000000 20\n80000018 bad 80000017 bad-remainder-by-zero\n"))
		})

		It("should track the divisor of remu into the zero register", func() {
			text := printModel(assemble("remu zero, a1, a2\n"))

			Expect(section(text, "data flow")).To(Equal("30000000 ite 2 10000000 224 21\n"))
		})

		It("should link the return address of jal", func() {
			text := printModel(assemble("jal ra, 8\nnop\nnop\n"))

			Expect(section(text, "data flow")).To(Equal(
				"30000000 constd 2 4\n" +
					"30000001 ite 2 10000000 30000000 202\n"))
			Expect(section(text, "control flow")).To(Equal(
				"50000000 next 1 10000000 10 ?\n" +
					"50000400 next 1 10000400 10 ?\n" +
					"50000800 ite 1 10000400 11 10000000\n" +
					"50000801 next 1 10000800 50000800 ?\n"))
		})

		It("should accept a plain return", func() {
			text := printModel(assemble("ret\n"))

			Expect(section(text, "data flow")).To(BeEmpty())
			Expect(section(text, "control flow")).To(Equal("50000000 next 1 10000000 10 ?\n"))
		})
	})

	Context("control flow", func() {
		It("should fold branch edges in recording order", func() {
			text := printModel(assemble("beq a0, zero, 8\naddi a0, a0, 1\naddi a1, zero, 2\n"))

			Expect(section(text, "data flow")).To(Equal(
				"30000000 eq 1 220 200\n" +
					"30000001 not 1 30000000\n" +
					"30000400 constd 2 1\n" +
					"30000401 add 2 220 30000400\n" +
					"30000402 ite 2 10000400 30000401 220\n" +
					"30000800 constd 2 2\n" +
					"30000801 ite 2 10000800 30000800 222\n"))
			Expect(section(text, "control flow")).To(Equal(
				"50000000 next 1 10000000 10 ?\n" +
					"50000400 and 1 10000000 30000001\n" +
					"50000401 next 1 10000400 50000400 ?\n" +
					"50000800 and 1 10000000 30000000\n" +
					"50000801 ite 1 10000400 11 50000800\n" +
					"50000802 next 1 10000800 50000801 ?\n"))
		})

		It("should wait for the kernel after a system call", func() {
			text := printModel(assemble("ecall\nnop\n"))

			Expect(section(text, "control flow")).To(Equal(
				"50000000 next 1 10000000 10 ?\n" +
					"50000400 state 1 kernel-mode-pc-flag-0\n" +
					"50000401 init 1 50000400 10\n" +
					"50000402 ite 1 50000400 60 10000000\n" +
					"50000403 next 1 50000400 50000402 ?\n" +
					"50000404 and 1 50000400 62\n" +
					"50000405 next 1 10000400 50000404 ?\n"))
		})

		It("should name the latch by the decimal call-site address", func() {
			program, err := riscu.Assemble(0x10000, "ecall\nnop\n")
			Expect(err).NotTo(HaveOccurred())

			Expect(printModel(program)).To(ContainSubstring(
				"56554000 state 1 kernel-mode-pc-flag-65536\n"))
		})

		It("should initialize the flag of the entry point", func() {
			program := assemble("nop\nnop\n")
			program.Entry = 4

			Expect(section(printModel(program), "64-bit program counter encoded in Boolean flags")).To(Equal(
				"10000000 state 1 pc=0x0\n10000001 init 1 10000000 10\n" +
					"10000400 state 1 pc=0x4\n10000401 init 1 10000400 11\n"))
		})
	})

	Context("errors", func() {
		It("should refuse unimplemented instructions", func() {
			for _, src := range []string{"mul a0, a1, a2", "divu a0, a1, a2", "sltu a0, a1, a2"} {
				_, err := modeler.GenerateModel(assemble("nop\n" + src + "\n"))

				Expect(err).To(MatchError(modeler.ErrUnimplemented))
				var terr *modeler.TranslationError
				Expect(errors.As(err, &terr)).To(BeTrue())
				Expect(terr.Address).To(Equal(uint64(4)))
				Expect(terr.Decoded).To(BeTrue())
				Expect(err.Error()).To(ContainSubstring(src[:4]))
			}
		})

		It("should refuse indirect jumps other than ret", func() {
			for _, src := range []string{"jalr ra, 0(ra)", "jalr zero, 0(a0)", "jalr zero, 4(ra)"} {
				_, err := modeler.GenerateModel(assemble(src))
				Expect(err).To(MatchError(modeler.ErrUnsupportedJalr))
			}
		})

		It("should refuse undecodable words", func() {
			_, err := modeler.GenerateModel(riscu.NewProgram(0, 0x00100513, 0xffffffff))

			Expect(err).To(MatchError(riscu.ErrInvalidInstruction))
			var terr *modeler.TranslationError
			Expect(errors.As(err, &terr)).To(BeTrue())
			Expect(terr.Address).To(Equal(uint64(4)))
			Expect(terr.Word).To(Equal(uint32(0xffffffff)))
			Expect(terr.Decoded).To(BeFalse())
		})

		It("should refuse an entry point outside the code", func() {
			program := assemble("nop\n")
			program.Entry = 2

			_, err := modeler.GenerateModel(program)
			Expect(err).To(MatchError(modeler.ErrEntryOutsideCode))

			_, err = modeler.GenerateModel(riscu.NewProgram(0))
			Expect(err).To(MatchError(modeler.ErrEntryOutsideCode))
		})

		It("should refuse addresses beyond the nid namespace", func() {
			program := riscu.NewProgram(99_996, 0x00000013, 0x00000013)

			_, err := modeler.GenerateModel(program)
			Expect(err).To(MatchError(modeler.ErrNidOverflow))
		})

		It("should accept the last numbered address", func() {
			program := riscu.NewProgram(99_996, 0x00000013)

			_, err := modeler.GenerateModel(program)
			Expect(err).NotTo(HaveOccurred())
		})

		It("should refuse an address whose control flow needs too many ids", func() {
			var words []uint32
			target := uint64(101 * riscu.InstructionSize)
			for i := 0; i <= 101; i++ {
				offset := int32(int64(target) - int64(i*riscu.InstructionSize))
				words = append(words, riscu.Encode(riscu.Instruction{Op: riscu.Jal, Imm: offset}))
			}

			_, err := modeler.GenerateModel(riscu.NewProgram(0, words...))
			Expect(err).To(MatchError(modeler.ErrNidOverflow))
		})
	})

	Context("decoder", func() {
		var (
			mockCtrl    *gomock.Controller
			mockDecoder *MockDecoder
		)

		BeforeEach(func() {
			mockCtrl = gomock.NewController(GinkgoT())
			mockDecoder = NewMockDecoder(mockCtrl)
		})

		AfterEach(func() {
			mockCtrl.Finish()
		})

		It("should translate what the decoder returns", func() {
			mockDecoder.EXPECT().
				Decode(uint32(0xcafe)).
				Return(riscu.Instruction{Op: riscu.Addi, Rd: riscu.A0, Rs1: riscu.Zero, Imm: 3}, nil)

			model, err := modeler.NewBuilder().
				WithDecoder(mockDecoder).
				Generate(riscu.NewProgram(0, 0xcafe))
			Expect(err).NotTo(HaveOccurred())

			text, err := btor2.Print(model)
			Expect(err).NotTo(HaveOccurred())
			Expect(section(text, "data flow")).To(Equal(
				"30000000 constd 2 3\n30000001 ite 2 10000000 30000000 220\n"))
		})

		It("should stop at the first decoder failure", func() {
			decodeErr := errors.New("bad word")
			gomock.InOrder(
				mockDecoder.EXPECT().Decode(uint32(1)).Return(riscu.Instruction{Op: riscu.Ecall}, nil),
				mockDecoder.EXPECT().Decode(uint32(2)).Return(riscu.Instruction{}, decodeErr),
			)

			_, err := modeler.NewBuilder().
				WithDecoder(mockDecoder).
				Generate(riscu.NewProgram(0, 1, 2, 3))

			Expect(err).To(MatchError(decodeErr))
			Expect(err.Error()).To(ContainSubstring("0x4"))
		})

		It("should refuse an illegal instruction from the decoder", func() {
			mockDecoder.EXPECT().Decode(gomock.Any()).Return(riscu.Instruction{Op: riscu.Illegal}, nil)

			_, err := modeler.NewBuilder().
				WithDecoder(mockDecoder).
				Generate(riscu.NewProgram(0, 7))
			Expect(err).To(MatchError(modeler.ErrUnimplemented))
		})
	})
})
