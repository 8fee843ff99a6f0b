package fdtab

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
)

const (
	// mcdSlots is the size of the multi-channel pool: one slot per
	// usable bit of a 32-bit mask, with bit 31 reserved for the tag.
	mcdSlots = 31

	// stdSlots is the number of reserved standard stream slots.
	stdSlots = 3

	// extBase is the first extended slot id. It leaves a guard gap
	// above the mask range so no extended slot aliases a mask bit.
	extBase = mcdSlots + 1 + stdSlots

	// extGrow is how many slots each extended pool growth adds.
	extGrow = 10
)

// Failed is the all-ones value Seek and Tell return when the underlying
// file operation fails.
const Failed = ^uint32(0)

// ErrNoFreeSlots is returned when the multi-channel pool has no free
// slots left.
var ErrNoFreeSlots = errors.New("fdtab: no free multi-channel slots")

// stream is one open channel. The standard streams carry no buffered
// writer; writes to them go straight to the host file.
type stream struct {
	f    *os.File
	w    *bufio.Writer // nil for the standard streams
	name string
	mode string
	std  bool
}

func (s *stream) writer() io.Writer {
	if s.w != nil {
		return s.w
	}
	return s.f
}

func (s *stream) flush() error {
	if s.w != nil {
		return s.w.Flush()
	}
	return nil
}

// Table maps descriptors to open channels.
//
// All methods hold the table's single mutex for their full duration, so
// any fan-out operation is atomic with respect to a concurrent Close.
type Table struct {
	mu      sync.Mutex
	slots   []*stream // 0..30 multi-channel pool, extBase.. extended pool
	freeMct []int     // free multi-channel slot ids, popped from the back
	freeExt []int     // free extended slot ids, popped from the back
}

// New creates a table with the three standard streams in slots 0
// through 2 and every other multi-channel slot free.
func New() *Table {
	t := &Table{slots: make([]*stream, mcdSlots)}
	t.slots[0] = &stream{f: os.Stdin, name: "<stdin>", mode: "r", std: true}
	t.slots[1] = &stream{f: os.Stdout, name: "<stdout>", mode: "w", std: true}
	t.slots[2] = &stream{f: os.Stderr, name: "<stderr>", mode: "w", std: true}
	for id := stdSlots; id < mcdSlots; id++ {
		t.freeMct = append(t.freeMct, id)
	}
	return t
}

// OpenMulti opens name for writing on a fresh multi-channel slot and
// returns the one-bit mask selecting it. The slot comes off the back of
// the free list, so the first open lands on the highest bit. An open
// failure returns the slot to the pool and reports the error; an
// exhausted pool reports ErrNoFreeSlots. Both failures yield Invalid.
func (t *Table) OpenMulti(name string) (Descriptor, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.freeMct) == 0 {
		return Invalid, ErrNoFreeSlots
	}
	id := t.freeMct[len(t.freeMct)-1]
	t.freeMct = t.freeMct[:len(t.freeMct)-1]

	f, err := os.Create(name)
	if err != nil {
		t.freeMct = append(t.freeMct, id)
		return Invalid, fmt.Errorf("fdtab: open %s: %w", name, err)
	}
	t.slots[id] = &stream{f: f, w: bufio.NewWriter(f), name: name, mode: "w"}
	return 1 << id, nil
}

// OpenSingle opens name with a stdio-style mode ("r", "w", "a", each
// with optional "+") on a fresh extended slot and returns its tagged
// descriptor. The file opens before any slot is taken, so a failed open
// consumes nothing. When the free list empties the pool grows by
// extGrow slots starting past the guard gap, so extended slots never
// run out.
func (t *Table) OpenSingle(name, mode string) (Descriptor, error) {
	flag, err := openFlag(mode)
	if err != nil {
		return Invalid, err
	}
	f, err := os.OpenFile(name, flag, 0o666)
	if err != nil {
		return Invalid, fmt.Errorf("fdtab: open %s: %w", name, err)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.freeExt) == 0 {
		start := extBase
		if len(t.slots) > start {
			start = len(t.slots)
		}
		grown := make([]*stream, start+extGrow)
		copy(grown, t.slots)
		t.slots = grown
		for id := start; id < start+extGrow; id++ {
			t.freeExt = append(t.freeExt, id)
		}
	}
	id := t.freeExt[len(t.freeExt)-1]
	t.freeExt = t.freeExt[:len(t.freeExt)-1]
	t.slots[id] = &stream{f: f, w: bufio.NewWriter(f), name: name, mode: mode}
	return singleTag | Descriptor(id), nil
}

// openFlag maps a stdio open mode to os.OpenFile flags. A "b" binary
// qualifier anywhere in the mode is accepted and ignored.
func openFlag(mode string) (int, error) {
	switch strings.ReplaceAll(mode, "b", "") {
	case "r":
		return os.O_RDONLY, nil
	case "r+":
		return os.O_RDWR, nil
	case "w":
		return os.O_WRONLY | os.O_CREATE | os.O_TRUNC, nil
	case "w+":
		return os.O_RDWR | os.O_CREATE | os.O_TRUNC, nil
	case "a":
		return os.O_WRONLY | os.O_CREATE | os.O_APPEND, nil
	case "a+":
		return os.O_RDWR | os.O_CREATE | os.O_APPEND, nil
	}
	return 0, fmt.Errorf("fdtab: unsupported open mode %q", mode)
}

// selected returns the open channels d selects in ascending slot order.
// Caller holds t.mu.
func (t *Table) selected(d Descriptor) []*stream {
	if d.IsSingle() {
		id := d.slot()
		if id < len(t.slots) && t.slots[id] != nil {
			return []*stream{t.slots[id]}
		}
		return nil
	}
	var sel []*stream
	for id := 0; id < mcdSlots; id++ {
		if d&(1<<id) != 0 && t.slots[id] != nil {
			sel = append(sel, t.slots[id])
		}
	}
	return sel
}

// Write writes p to every channel d selects, in ascending slot order,
// and returns the number of channels written. Selecting zero open
// channels writes nothing and returns 0 with a nil error.
func (t *Table) Write(d Descriptor, p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	n := 0
	for _, s := range t.selected(d) {
		if _, err := s.writer().Write(p); err != nil {
			return n, fmt.Errorf("fdtab: write %s: %w", s.name, err)
		}
		n++
	}
	return n, nil
}

// Flush pushes buffered bytes of every channel d selects to the host
// file. The standard streams are unbuffered, so flushing them succeeds
// trivially. All selected channels are flushed even when one fails.
func (t *Table) Flush(d Descriptor) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	var errs []error
	for _, s := range t.selected(d) {
		if err := s.flush(); err != nil {
			errs = append(errs, fmt.Errorf("fdtab: flush %s: %w", s.name, err))
		}
	}
	return errors.Join(errs...)
}

// FlushAll flushes every open channel in the table. Called at pass
// boundaries and before the process exits.
func (t *Table) FlushAll() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	var errs []error
	for _, s := range t.slots {
		if s == nil {
			continue
		}
		if err := s.flush(); err != nil {
			errs = append(errs, fmt.Errorf("fdtab: flush %s: %w", s.name, err))
		}
	}
	return errors.Join(errs...)
}

// Seek repositions the single channel d selects, flushing its buffer
// first so the new position accounts for buffered bytes. Returns 0 on
// success and Failed when the flush or seek fails. A descriptor that
// does not select exactly one open channel returns 0 without seeking;
// the 32-bit interface this mirrors has no error channel for that case.
func (t *Table) Seek(d Descriptor, offset int64, whence int) uint32 {
	t.mu.Lock()
	defer t.mu.Unlock()
	sel := t.selected(d)
	if len(sel) != 1 {
		return 0
	}
	if err := sel[0].flush(); err != nil {
		return Failed
	}
	if _, err := sel[0].f.Seek(offset, whence); err != nil {
		return Failed
	}
	return 0
}

// Tell returns the current position of the single channel d selects,
// flushing its buffer first so buffered bytes count. Returns Failed
// when the flush or underlying seek fails, and 0 when d does not select
// exactly one open channel.
func (t *Table) Tell(d Descriptor) uint32 {
	t.mu.Lock()
	defer t.mu.Unlock()
	sel := t.selected(d)
	if len(sel) != 1 {
		return 0
	}
	if err := sel[0].flush(); err != nil {
		return Failed
	}
	pos, err := sel[0].f.Seek(0, io.SeekCurrent)
	if err != nil {
		return Failed
	}
	return uint32(pos)
}

// Resolve returns the underlying files of the channels d selects, in
// ascending slot order, up to max. Buffered writes flush first, so
// direct reads and writes on the returned files observe a coherent
// stream; a flush failure still hands the file out and the error
// resurfaces on the next explicit Flush. A descriptor selecting no
// open channels returns nil.
func (t *Table) Resolve(d Descriptor, max int) []*os.File {
	t.mu.Lock()
	defer t.mu.Unlock()
	var files []*os.File
	for _, s := range t.selected(d) {
		if len(files) >= max {
			break
		}
		_ = s.flush()
		files = append(files, s.f)
	}
	return files
}

// Close flushes and closes every channel d selects and returns the
// slots to their pools. The standard streams never close: their slots
// are skipped in both descriptor forms. Closing an already-closed slot
// is a no-op. All selected channels are processed even when one fails.
func (t *Table) Close(d Descriptor) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if d.IsSingle() {
		return t.closeSlot(d.slot())
	}
	var errs []error
	for id := 0; id < mcdSlots; id++ {
		if d&(1<<id) != 0 {
			if err := t.closeSlot(id); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

// closeSlot closes one slot and returns it to the free list its id
// belongs to. Caller holds t.mu.
func (t *Table) closeSlot(id int) error {
	if id < 0 || id >= len(t.slots) {
		return nil
	}
	s := t.slots[id]
	if s == nil || s.std {
		return nil
	}
	t.slots[id] = nil
	if id < mcdSlots {
		t.freeMct = append(t.freeMct, id)
	} else {
		t.freeExt = append(t.freeExt, id)
	}
	var errs []error
	if err := s.flush(); err != nil {
		errs = append(errs, fmt.Errorf("fdtab: flush %s: %w", s.name, err))
	}
	if err := s.f.Close(); err != nil {
		errs = append(errs, fmt.Errorf("fdtab: close %s: %w", s.name, err))
	}
	return errors.Join(errs...)
}

// OpenCounts returns the number of open multi-channel and extended
// slots, excluding the standard streams.
func (t *Table) OpenCounts() (multi, extended int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for id, s := range t.slots {
		if s == nil || s.std {
			continue
		}
		if id < mcdSlots {
			multi++
		} else {
			extended++
		}
	}
	return multi, extended
}

// Dump writes a listing of open slots, standard streams included.
func (t *Table) Dump(w io.Writer) {
	t.mu.Lock()
	defer t.mu.Unlock()
	fmt.Fprintf(w, "  fdtabDump:\n")
	for id, s := range t.slots {
		if s == nil {
			continue
		}
		fmt.Fprintf(w, "    FD %d: %s (mode=%s)\n", id, s.name, s.mode)
	}
}
