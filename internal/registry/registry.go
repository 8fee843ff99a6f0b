package registry

import (
	"fmt"
	"io"

	"github.com/strobesim/strobe/internal/fdtab"
)

// Registry owns the shared mutable state of one simulation process:
// arguments, per-scope user data, scope names, the scope hierarchy,
// export ids, time format settings, and the virtual file table.
//
// Each sub-table carries its own lock. The Registry composes them but
// never serializes across them, and the tables hold no references to
// each other; a cascade that spans tables, like scope teardown, lives
// here.
//
// Exactly one Registry is constructed before any other use and passed
// explicitly to every component that needs it. It lives for the whole
// process and is never destroyed during normal operation.
type Registry struct {
	Args      *ArgTable
	User      *UserData
	Scopes    *ScopeTable
	Hierarchy *Hierarchy
	Exports   *ExportTable
	TimeFmt   *TimeFormat
	Files     *fdtab.Table
}

// New creates a registry with empty tables and the three standard
// streams wired into the file table.
func New() *Registry {
	return &Registry{
		Args:      &ArgTable{},
		User:      &UserData{},
		Scopes:    &ScopeTable{},
		Hierarchy: &Hierarchy{},
		Exports:   &ExportTable{},
		TimeFmt:   NewTimeFormat(),
		Files:     fdtab.New(),
	}
}

// UnregisterScope removes s from the scope table and clears every user
// data entry attached to it. Called once per scope, at teardown.
func (r *Registry) UnregisterScope(s *Scope) {
	r.Scopes.Unregister(s)
	r.User.ClearScope(s)
}

// InternalsDump writes a human-readable listing of every table's
// contents. Diagnostics only: the format is neither machine-parseable
// nor stable across releases.
func (r *Registry) InternalsDump(w io.Writer) {
	fmt.Fprintf(w, "internalsDump:\n")
	r.Args.Dump(w)
	r.Scopes.Dump(w)
	r.Hierarchy.Dump(w)
	r.Exports.Dump(w)
	r.User.Dump(w)
	r.TimeFmt.Dump(w)
	r.Files.Dump(w)
}
