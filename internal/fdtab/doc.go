// Package fdtab implements the virtual file table of a Strobe
// simulation: a mapping from 32-bit descriptors to open host files,
// preserving the descriptor encoding testbench code expects.
//
// ARCHITECTURE:
//
// A descriptor is one of two variants, distinguished by bit 31:
//
//   - Multi-channel (tag clear): the value is a bitmask over the 31
//     slots of the fixed pool. Each set bit selects one channel, so a
//     single write fans out to several files at once. Slots 0 through
//     2 are the standard streams and are never allocated or closed.
//   - Single (tag set): the low 31 bits index the slot table directly.
//     The extended pool behind these starts past the mask range and
//     grows in batches of ten; it supports arbitrary open modes and
//     never runs out.
//
// Both pools hand out slots from the back of their free lists, so the
// first multi-channel open lands on the highest mask bit and slot
// numbers descend from there.
//
// CRITICAL PATTERNS:
//
// All operations lock the table's single mutex for their full
// duration, so a fan-out write is atomic with respect to a concurrent
// close. Opened files are buffered and Flush is the only way buffered
// bytes reach the host file early; Seek, Tell and Resolve flush
// implicitly so positions stay coherent. The standard streams are
// unbuffered so simulation output interleaves correctly with the host
// process's own writes.
package fdtab
