package registry

import (
	"fmt"
	"io"
	"sort"
	"sync"
)

// userKey is the composite lookup key: scope identity plus a
// caller-chosen key value.
type userKey struct {
	scope *Scope
	key   any
}

// UserData maps (scope, key) pairs to opaque caller-owned values.
//
// One flat table serves all scopes rather than one map per scope: a
// process typically has many more scopes than user-data entries, so
// per-scope maps would cost memory for scopes that attach nothing.
//
// Keys follow the context.WithValue discipline: any comparable value
// works, and callers avoid collisions by using unexported key types.
//
// Thread-safety: all methods lock the table's own mutex.
type UserData struct {
	mu sync.Mutex
	m  map[userKey]any
}

// Set stores value under (scope, key), replacing any previous value.
func (t *UserData) Set(scope *Scope, key, value any) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.m == nil {
		t.m = make(map[userKey]any)
	}
	t.m[userKey{scope: scope, key: key}] = value
}

// Get returns the value stored under (scope, key), or nil if absent.
// A miss is an ordinary outcome, not an error.
func (t *UserData) Get(scope *Scope, key any) any {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.m[userKey{scope: scope, key: key}]
}

// ClearScope removes every entry belonging to scope. Linear over the
// table; called once per scope at teardown, which is not a hot path.
func (t *UserData) ClearScope(scope *Scope) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for k := range t.m {
		if k.scope == scope {
			delete(t.m, k)
		}
	}
}

// Len returns the number of stored entries.
func (t *UserData) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.m)
}

// Dump writes a listing sorted by scope name then key text, so output
// is stable across runs despite map iteration order. Empty tables print
// nothing.
func (t *UserData) Dump(w io.Writer) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.m) == 0 {
		return
	}
	lines := make([]string, 0, len(t.m))
	for k, v := range t.m {
		scopeName := "<nil>"
		if k.scope != nil {
			scopeName = k.scope.Name
		}
		lines = append(lines, fmt.Sprintf("    USER_DATA scope %s key %v: %v\n", scopeName, k.key, v))
	}
	sort.Strings(lines)
	fmt.Fprintf(w, "  userDump:\n")
	for _, line := range lines {
		io.WriteString(w, line)
	}
}
