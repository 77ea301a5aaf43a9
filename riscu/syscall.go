package riscu

// SyscallID is a system call number passed in register a7.
type SyscallID uint64

// System calls recognized by the model.
const (
	SyscallOpenat SyscallID = 56
	SyscallRead   SyscallID = 63
	SyscallWrite  SyscallID = 64
	SyscallExit   SyscallID = 93
	SyscallBrk    SyscallID = 214
)

func (id SyscallID) String() string {
	switch id {
	case SyscallOpenat:
		return "openat"
	case SyscallRead:
		return "read"
	case SyscallWrite:
		return "write"
	case SyscallExit:
		return "exit"
	case SyscallBrk:
		return "brk"
	}
	return "unknown"
}
