package riscu

import (
	"debug/elf"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// Segment is a contiguous range of program bytes at a virtual address.
type Segment struct {
	Address uint64
	Content []byte
}

// End returns the first address past the segment.
func (s Segment) End() uint64 {
	return s.Address + uint64(len(s.Content))
}

// Contains tells whether addr lies inside the segment.
func (s Segment) Contains(addr uint64) bool {
	return addr >= s.Address && addr < s.End()
}

// Program is a loaded RISC-U binary.
type Program struct {
	Entry uint64
	Code  Segment
}

// NewProgram builds a program from instruction words placed at address. The
// entry point is the first word.
func NewProgram(address uint64, words ...uint32) *Program {
	content := make([]byte, len(words)*InstructionSize)
	for i, w := range words {
		binary.LittleEndian.PutUint32(content[i*InstructionSize:], w)
	}
	return &Program{
		Entry: address,
		Code:  Segment{Address: address, Content: content},
	}
}

// NumInstructions returns the number of instruction words in the code
// segment, ignoring a trailing partial word.
func (p *Program) NumInstructions() int {
	return len(p.Code.Content) / InstructionSize
}

// Words returns the code segment as little-endian instruction words.
func (p *Program) Words() []uint32 {
	words := make([]uint32, p.NumInstructions())
	for i := range words {
		words[i] = binary.LittleEndian.Uint32(p.Code.Content[i*InstructionSize:])
	}
	return words
}

// WordAt returns the instruction word at addr.
func (p *Program) WordAt(addr uint64) (uint32, bool) {
	if !p.Code.Contains(addr) || (addr-p.Code.Address)%InstructionSize != 0 {
		return 0, false
	}
	off := addr - p.Code.Address
	if off+InstructionSize > uint64(len(p.Code.Content)) {
		return 0, false
	}
	return binary.LittleEndian.Uint32(p.Code.Content[off:]), true
}

// ErrNoCodeSegment is returned for binaries without an executable segment.
var ErrNoCodeSegment = errors.New("no executable segment")

// LoadObjectFile loads a 64-bit little-endian RISC-V ELF executable.
func LoadObjectFile(path string) (*Program, error) {
	f, err := elf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open object file: %w", err)
	}
	defer f.Close()

	return loadELF(f)
}

// ReadObjectFile loads a 64-bit little-endian RISC-V ELF executable from r.
func ReadObjectFile(r io.ReaderAt) (*Program, error) {
	f, err := elf.NewFile(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read object file: %w", err)
	}
	defer f.Close()

	return loadELF(f)
}

func loadELF(f *elf.File) (*Program, error) {
	if f.Class != elf.ELFCLASS64 || f.Data != elf.ELFDATA2LSB {
		return nil, fmt.Errorf("unsupported ELF format %s %s", f.Class, f.Data)
	}
	if f.Machine != elf.EM_RISCV {
		return nil, fmt.Errorf("unsupported machine %s", f.Machine)
	}

	for _, prog := range f.Progs {
		if prog.Type != elf.PT_LOAD || prog.Flags&elf.PF_X == 0 {
			continue
		}

		content := make([]byte, prog.Filesz)
		if _, err := prog.ReadAt(content, 0); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("failed to read code segment: %w", err)
		}

		return &Program{
			Entry: f.Entry,
			Code:  Segment{Address: prog.Vaddr, Content: content},
		}, nil
	}

	return nil, ErrNoCodeSegment
}
