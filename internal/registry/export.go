package registry

import (
	"fmt"
	"io"
	"sort"
	"sync"
)

// UnknownExport is the sentinel NameFor returns when no export carries
// the requested id.
const UnknownExport = "*UNKNOWN*"

// ExportTable assigns small dense integer ids to externally callable
// function names.
//
// Allocation is strictly monotonic and an id, once handed out, is never
// freed or reused for the life of the process: independently loaded
// models may still hold it, so releasing an id would be unsafe.
//
// Thread-safety: all methods lock the table's own mutex. Once the
// registration phase completes the table never changes, so callers that
// can assert that externally may cache lookups; the table itself does
// not enforce phases.
type ExportTable struct {
	mu   sync.Mutex
	ids  map[string]int
	next int
}

// IDFor returns the id registered for name, allocating the next free id
// on first sight. Idempotent: the same name always yields the same id,
// and repeat calls never consume ids.
func (t *ExportTable) IDFor(name string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	if id, ok := t.ids[name]; ok {
		return id
	}
	if t.ids == nil {
		t.ids = make(map[string]int)
	}
	id := t.next
	t.next++
	t.ids[name] = id
	return id
}

// Resolve returns the id registered for name. An unknown name returns a
// FatalError with code ErrCodeUnknownExport: a caller invoking a
// nonexistent external entry point cannot proceed meaningfully.
func (t *ExportTable) Resolve(name string) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if id, ok := t.ids[name]; ok {
		return id, nil
	}
	return -1, NewUnknownExportError(name)
}

// NameFor returns the name registered with id, or UnknownExport when no
// export carries it. Linear reverse scan; diagnostics only.
func (t *ExportTable) NameFor(id int) string {
	t.mu.Lock()
	defer t.mu.Unlock()
	for name, got := range t.ids {
		if got == id {
			return name
		}
	}
	return UnknownExport
}

// Len returns the number of registered exports.
func (t *ExportTable) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.ids)
}

// Dump writes the export table sorted by id.
func (t *ExportTable) Dump(w io.Writer) {
	t.mu.Lock()
	defer t.mu.Unlock()
	fmt.Fprintf(w, "  exportsDump:\n")
	names := make([]string, 0, len(t.ids))
	for name := range t.ids {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool { return t.ids[names[i]] < t.ids[names[j]] })
	for _, name := range names {
		fmt.Fprintf(w, "    EXPORT %05d: %s\n", t.ids[name], name)
	}
}
