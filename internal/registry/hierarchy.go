package registry

import (
	"fmt"
	"io"
	"sort"
	"sync"
)

// Hierarchy records parent-child relationships between scopes.
//
// The edge list is append-only during model construction and read-only
// afterward. Duplicate edges are stored as given; deduplication belongs
// to callers that care.
//
// Thread-safety: all methods lock the table's own mutex.
type Hierarchy struct {
	mu       sync.Mutex
	children map[*Scope][]*Scope
}

// Add records child under parent. A nil parent records child as a root
// of the hierarchy.
func (h *Hierarchy) Add(parent, child *Scope) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.children == nil {
		h.children = make(map[*Scope][]*Scope)
	}
	h.children[parent] = append(h.children[parent], child)
}

// Children returns a copy of parent's child list in insertion order.
// Pass nil for the roots. An unknown parent returns nil.
func (h *Hierarchy) Children(parent *Scope) []*Scope {
	h.mu.Lock()
	defer h.mu.Unlock()
	kids := h.children[parent]
	if len(kids) == 0 {
		return nil
	}
	return append([]*Scope(nil), kids...)
}

// Snapshot returns a copy of the full edge map. Child lists keep
// insertion order. Like ScopeTable.Snapshot, this is meant for after
// model construction completes: take one copy and walk it without
// further locking.
func (h *Hierarchy) Snapshot() map[*Scope][]*Scope {
	h.mu.Lock()
	defer h.mu.Unlock()
	edges := make(map[*Scope][]*Scope, len(h.children))
	for p, kids := range h.children {
		edges[p] = append([]*Scope(nil), kids...)
	}
	return edges
}

// Len returns the number of recorded edges.
func (h *Hierarchy) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := 0
	for _, kids := range h.children {
		n += len(kids)
	}
	return n
}

// Dump writes the edge list sorted by parent name, roots first. Child
// lists print in insertion order.
func (h *Hierarchy) Dump(w io.Writer) {
	h.mu.Lock()
	defer h.mu.Unlock()
	fmt.Fprintf(w, "  hierarchyDump:\n")
	parents := make([]*Scope, 0, len(h.children))
	for p := range h.children {
		parents = append(parents, p)
	}
	sort.Slice(parents, func(i, j int) bool {
		return parentName(parents[i]) < parentName(parents[j])
	})
	for _, p := range parents {
		label := parentName(p)
		if label == "" {
			label = "<root>"
		}
		fmt.Fprintf(w, "    HIER %s:\n", label)
		for _, c := range h.children[p] {
			fmt.Fprintf(w, "      %s\n", c.Name)
		}
	}
}

func parentName(s *Scope) string {
	if s == nil {
		return "" // roots sort before every named parent
	}
	return s.Name
}
