package modeler

import (
	"errors"
	"fmt"

	"github.com/sarchlab/rvbmc/btor2"
)

// Identifier bases. Every phase of model generation draws its ids from its
// own range so that the text output can be navigated by address.
const (
	nidZeroBit  btor2.Nid = 10
	nidOneBit   btor2.Nid = 11
	nidZeroWord btor2.Nid = 20
	nidOneWord  btor2.Nid = 21

	nidKernelMode btor2.Nid = 60
	nidRegisters  btor2.Nid = 200

	nidPCFlags      btor2.Nid = 10_000_000
	nidMemory       btor2.Nid = 20_000_000
	nidDataFlow     btor2.Nid = 30_000_000
	nidSyscalls     btor2.Nid = 40_000_000
	nidControlFlow  btor2.Nid = 50_000_000
	nidRegisterFlow btor2.Nid = 60_000_000
	nidMemoryFlow   btor2.Nid = 70_000_000
	nidChecks       btor2.Nid = 80_000_000

	// nidSectionSize is the distance between two section bases.
	nidSectionSize = 10_000_000
)

// Limits of the identifier namespace. NidsPerAddress ids are reserved for
// each instruction in the address-derived ranges, so only addresses below
// MaxAddress can be numbered.
const (
	NidsPerAddress = 100
	MaxAddress     = nidSectionSize / NidsPerAddress
)

// ErrNidOverflow is returned when a program does not fit the identifier
// namespace.
var ErrNidOverflow = errors.New("nid namespace overflow")

// addressNid returns the first id reserved for addr in the section at base.
func addressNid(base btor2.Nid, addr uint64) (btor2.Nid, error) {
	if addr >= MaxAddress {
		return 0, fmt.Errorf("%w: address %#x exceeds %#x",
			ErrNidOverflow, addr, MaxAddress-1)
	}
	return base + btor2.Nid(addr*NidsPerAddress), nil
}

// checkAddressBudget fails when the ids used since start spill into the range
// of the next address.
func checkAddressBudget(start, current btor2.Nid, addr uint64) error {
	if current-start > NidsPerAddress {
		return fmt.Errorf("%w: %d ids emitted for address %#x, at most %d fit",
			ErrNidOverflow, current-start, addr, NidsPerAddress)
	}
	return nil
}
