package workload

// Plan is a compiled workload: everything one simulation run needs to
// populate its registry and drive its evaluation passes.
type Plan struct {
	Name       string          `json:"name"`
	Passes     int64           `json:"passes"`
	Scopes     []ScopeDecl     `json:"scopes,omitempty"`
	Exports    []string        `json:"exports,omitempty"`
	Files      []FileDecl      `json:"files,omitempty"`
	TimeFormat *TimeFormatDecl `json:"time_format,omitempty"`
	Tasks      []TaskDecl      `json:"tasks"`
}

// ScopeDecl declares one scope of the simulated hierarchy.
type ScopeDecl struct {
	Name string `json:"name"`
	// Parent names the enclosing scope; empty marks a hierarchy root.
	Parent string `json:"parent,omitempty"`
	// Timeunit is a signed power-of-ten exponent: -9 means nanoseconds.
	Timeunit int64 `json:"timeunit"`
	Module   bool  `json:"module"`
}

// FileDecl declares one output file of the run. Multi-channel files
// open write-only in the 31-slot descriptor pool; single files take a
// stdio open mode and live in the extended pool.
type FileDecl struct {
	Name  string `json:"name"`
	Multi bool   `json:"multi"`
	// Mode applies to single files only; empty defaults to "w".
	Mode string `json:"mode,omitempty"`
}

// TimeFormatDecl carries the $timeformat settings the run applies
// before its first pass.
type TimeFormatDecl struct {
	Units     int64  `json:"units"`
	Precision int64  `json:"precision"`
	Width     int64  `json:"width"`
	Suffix    string `json:"suffix"`
}

// TaskDecl declares one schedulable task of an evaluation pass. Tasks
// listed in After must complete earlier in the same pass; the driver
// partitions tasks into fork-join waves from these edges.
type TaskDecl struct {
	Name    string       `json:"name"`
	After   []string     `json:"after,omitempty"`
	Actions []ActionDecl `json:"actions"`
}

// Action kinds a task may post.
const (
	// ActionEmit appends Text to the run trace.
	ActionEmit = "emit"
	// ActionWrite writes Text to the declared file named by File.
	ActionWrite = "write"
	// ActionPlusArg queries the plus-arg with prefix Arg and traces the
	// result.
	ActionPlusArg = "plusarg"
	// ActionExport resolves the export named by Name and traces its id.
	ActionExport = "export"
	// ActionUser stores Text under (Scope, Name) in the user-data table.
	ActionUser = "userdata"
)

// ActionDecl is one deferred action a task posts while running. Which
// optional fields matter depends on Kind:
//
//	emit      Text
//	write     File, Text
//	plusarg   Arg
//	export    Name
//	userdata  Scope, Name, Text
type ActionDecl struct {
	Kind  string `json:"kind"`
	Text  string `json:"text,omitempty"`
	File  string `json:"file,omitempty"`
	Arg   string `json:"arg,omitempty"`
	Name  string `json:"name,omitempty"`
	Scope string `json:"scope,omitempty"`
}
