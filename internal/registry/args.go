package registry

import (
	"fmt"
	"io"
	"strings"
	"sync"
)

// ArgTable stores the simulated command line: an ordered sequence of
// strings and a loaded flag. Written once at startup in practice, then
// read many times by plus-arg queries from testbench code.
//
// Thread-safety: all methods lock the table's own mutex.
type ArgTable struct {
	mu     sync.Mutex
	args   []string
	loaded bool
}

// Set replaces the stored arguments and marks the table loaded.
// Passing zero arguments still marks it loaded.
func (t *ArgTable) Set(args ...string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.args = append([]string(nil), args...)
	t.loaded = true
}

// Add appends to the stored arguments and marks the table loaded.
func (t *ArgTable) Add(args ...string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.args = append(t.args, args...)
	t.loaded = true
}

// Loaded reports whether arguments were ever stored.
func (t *ArgTable) Loaded() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.loaded
}

// All returns a copy of the stored arguments in order.
func (t *ArgTable) All() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.args...)
}

// PlusMatch returns the first stored argument whose text after a leading
// '+' starts with prefix. The returned string is the full argument
// including the '+'; the prefix must not include it. Matching is
// case-sensitive. A miss returns the empty string with a nil error.
//
// Querying before any Set or Add call returns a FatalError with code
// ErrCodeArgsNotLoaded. Every such call errors, not only the first:
// swallowing repeats would hide the misassembly from all but one caller.
func (t *ArgTable) PlusMatch(prefix string) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.loaded {
		return "", NewArgsNotLoadedError()
	}
	for _, arg := range t.args {
		if len(arg) > 0 && arg[0] == '+' && strings.HasPrefix(arg[1:], prefix) {
			return arg, nil
		}
	}
	return "", nil
}

// PlusValue returns the text following "+<prefix>" in the first matching
// argument: PlusValue("seed=") against "+seed=7" yields ("7", true).
// The boolean is false on a miss.
func (t *ArgTable) PlusValue(prefix string) (string, bool, error) {
	arg, err := t.PlusMatch(prefix)
	if err != nil {
		return "", false, err
	}
	if arg == "" {
		return "", false, nil
	}
	return arg[1+len(prefix):], true, nil
}

// Dump writes a human-readable listing of the stored arguments.
func (t *ArgTable) Dump(w io.Writer) {
	t.mu.Lock()
	defer t.mu.Unlock()
	fmt.Fprintf(w, "  argDump: loaded=%v\n", t.loaded)
	for i, arg := range t.args {
		fmt.Fprintf(w, "    ARG %d: %s\n", i, arg)
	}
}
