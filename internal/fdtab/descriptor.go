package fdtab

// Descriptor identifies one or more open channels in a Table. The zero
// value is the invalid descriptor.
//
// The encoding matches the 32-bit simulator convention:
//
//   - Bit 31 set: a single descriptor. The low 31 bits index the slot
//     table directly.
//   - Bit 31 clear: a multi-channel descriptor. Each set bit selects
//     the pool slot at the same position, so one write fans out to
//     every selected channel.
type Descriptor uint32

// singleTag marks the low 31 bits of a descriptor as a slot index.
const singleTag Descriptor = 1 << 31

const (
	// Invalid is returned when an open fails or a pool is exhausted.
	Invalid Descriptor = 0

	// Stdin, Stdout and Stderr are the fixed descriptors of the three
	// standard streams, occupying pool slots 0 through 2.
	Stdin  Descriptor = singleTag | 0
	Stdout Descriptor = singleTag | 1
	Stderr Descriptor = singleTag | 2
)

// IsSingle reports whether d is a single descriptor.
func (d Descriptor) IsSingle() bool { return d&singleTag != 0 }

// IsMulti reports whether d is a non-empty multi-channel descriptor.
func (d Descriptor) IsMulti() bool { return d != Invalid && d&singleTag == 0 }

// slot returns the slot index of a single descriptor.
func (d Descriptor) slot() int { return int(d &^ singleTag) }
