package registry

import (
	"fmt"
	"io"
	"sort"
	"sync"
)

// ScopeKind classifies a scope in the simulated hierarchy.
type ScopeKind int

const (
	// KindOther is a generated or internal scope.
	KindOther ScopeKind = iota
	// KindModule is a user-visible module instance.
	KindModule
)

func (k ScopeKind) String() string {
	switch k {
	case KindModule:
		return "module"
	default:
		return "other"
	}
}

// Scope describes one named, addressable unit of the simulated
// hierarchy, typically a module instance. Scopes are registered during
// model construction and unregistered at teardown. Identity is the
// pointer: user data and hierarchy edges key on *Scope, so two distinct
// descriptors are distinct scopes even if their fields match.
type Scope struct {
	// Name is the fully qualified hierarchical name, e.g. "top.cpu.alu".
	Name string
	// Timeunit is the scope's time unit as a signed power-of-ten
	// exponent: -9 means nanoseconds.
	Timeunit int
	// Kind classifies the scope.
	Kind ScopeKind
}

// ScopeTable maps fully qualified names to scope descriptors.
//
// Thread-safety: all methods lock the table's own mutex. The table is
// write-heavy during model construction and read-mostly afterward;
// Snapshot exists so introspection paths can take one locked copy and
// then iterate freely.
type ScopeTable struct {
	mu     sync.Mutex
	byName map[string]*Scope
}

// Register inserts s under its name if the name is absent. Registering
// the same name twice keeps the first descriptor; that happens when two
// models in one process share a common wrapper scope, and is not an
// error.
func (t *ScopeTable) Register(s *Scope) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.byName == nil {
		t.byName = make(map[string]*Scope)
	}
	if _, ok := t.byName[s.Name]; !ok {
		t.byName[s.Name] = s
	}
}

// Find returns the scope registered under name, or nil if unknown.
// A miss is an ordinary outcome.
func (t *ScopeTable) Find(name string) *Scope {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.byName[name]
}

// Unregister removes s's name entry. Unregistering a scope that is not
// present is a no-op, and a name registered to a different descriptor
// is left alone.
func (t *ScopeTable) Unregister(s *Scope) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if cur, ok := t.byName[s.Name]; ok && cur == s {
		delete(t.byName, s.Name)
	}
}

// Len returns the number of registered scopes.
func (t *ScopeTable) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.byName)
}

// Snapshot returns the registered scopes sorted by name. Intended for
// after model construction completes, when the table no longer changes:
// take one snapshot and iterate it without further locking.
func (t *ScopeTable) Snapshot() []*Scope {
	t.mu.Lock()
	defer t.mu.Unlock()
	scopes := make([]*Scope, 0, len(t.byName))
	for _, s := range t.byName {
		scopes = append(scopes, s)
	}
	sort.Slice(scopes, func(i, j int) bool { return scopes[i].Name < scopes[j].Name })
	return scopes
}

// Dump writes a listing of registered scopes sorted by name.
func (t *ScopeTable) Dump(w io.Writer) {
	fmt.Fprintf(w, "  scopesDump:\n")
	for _, s := range t.Snapshot() {
		fmt.Fprintf(w, "    SCOPE %s (%s) timeunit=%d\n", s.Name, s.Kind, s.Timeunit)
	}
}
