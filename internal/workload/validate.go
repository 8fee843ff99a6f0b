package workload

import (
	"fmt"
	"strings"
)

// Validation error codes (E100-E199)
const (
	ErrPlanNameEmpty      = "E101" // name is required
	ErrPlanNoTasks        = "E102" // at least one task required
	ErrPlanBadPasses      = "E103" // passes must be >= 1
	ErrActionMissingField = "E104" // action lacks a field its kind needs
	ErrDuplicateName      = "E105" // duplicate scope/export/file/task name
	ErrUnknownActionKind  = "E106" // unrecognized action kind
	ErrUnknownRef         = "E110" // reference to an undeclared name
	ErrScopeParentCycle   = "E111" // scope parent chain loops
	ErrTaskCycle          = "E112" // task dependency graph loops
	ErrBadFileMode        = "E113" // invalid single-file open mode
)

// ValidationError represents a schema validation error.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// Validate checks a compiled plan against schema rules.
// Returns all errors found (does not fail-fast).
func Validate(p *Plan) []ValidationError {
	var errs []ValidationError

	// E101: name is required
	if strings.TrimSpace(p.Name) == "" {
		errs = append(errs, ValidationError{
			Field:   "name",
			Message: "name is required and must be non-empty",
			Code:    ErrPlanNameEmpty,
		})
	}

	// E103: at least one pass
	if p.Passes < 1 {
		errs = append(errs, ValidationError{
			Field:   "passes",
			Message: fmt.Sprintf("passes must be at least 1, got %d", p.Passes),
			Code:    ErrPlanBadPasses,
		})
	}

	// E102: at least one task
	if len(p.Tasks) == 0 {
		errs = append(errs, ValidationError{
			Field:   "tasks",
			Message: "at least one task is required",
			Code:    ErrPlanNoTasks,
		})
	}

	scopeNames := make(map[string]bool)
	for i, s := range p.Scopes {
		// E105: duplicate scope name
		if scopeNames[s.Name] {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("scopes[%d].name", i),
				Message: fmt.Sprintf("duplicate scope name: %q", s.Name),
				Code:    ErrDuplicateName,
			})
		}
		scopeNames[s.Name] = true
	}
	for i, s := range p.Scopes {
		// E110: parent must be declared
		if s.Parent != "" && !scopeNames[s.Parent] {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("scopes[%d].parent", i),
				Message: fmt.Sprintf("scope %q names unknown parent %q", s.Name, s.Parent),
				Code:    ErrUnknownRef,
			})
		}
	}
	errs = append(errs, validateScopeParents(p.Scopes)...)

	// E105: duplicate export name
	exportNames := make(map[string]bool)
	for i, name := range p.Exports {
		if exportNames[name] {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("exports[%d]", i),
				Message: fmt.Sprintf("duplicate export name: %q", name),
				Code:    ErrDuplicateName,
			})
		}
		exportNames[name] = true
	}

	fileNames := make(map[string]bool)
	for i, f := range p.Files {
		// E105: duplicate file name
		if fileNames[f.Name] {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("files[%d].name", i),
				Message: fmt.Sprintf("duplicate file name: %q", f.Name),
				Code:    ErrDuplicateName,
			})
		}
		fileNames[f.Name] = true

		// E113: single files need a recognizable open mode
		if !f.Multi && f.Mode != "" && !isValidFileMode(f.Mode) {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("files[%d].mode", i),
				Message: fmt.Sprintf("invalid open mode %q for file %q", f.Mode, f.Name),
				Code:    ErrBadFileMode,
			})
		}
	}

	taskNames := make(map[string]bool)
	for i, task := range p.Tasks {
		// E105: duplicate task name
		if taskNames[task.Name] {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("tasks[%d].name", i),
				Message: fmt.Sprintf("duplicate task name: %q", task.Name),
				Code:    ErrDuplicateName,
			})
		}
		taskNames[task.Name] = true
	}
	for i, task := range p.Tasks {
		// E110: after edges must name declared tasks
		for j, dep := range task.After {
			if !taskNames[dep] {
				errs = append(errs, ValidationError{
					Field:   fmt.Sprintf("tasks[%d].after[%d]", i, j),
					Message: fmt.Sprintf("task %q waits on unknown task %q", task.Name, dep),
					Code:    ErrUnknownRef,
				})
			}
		}

		for j, a := range task.Actions {
			errs = append(errs, validateAction(a, i, j, scopeNames, fileNames)...)
		}
	}

	// E112: the dependency graph must be schedulable
	for _, cycle := range p.DependencyCycles() {
		errs = append(errs, ValidationError{
			Field:   "tasks",
			Message: fmt.Sprintf("task dependency cycle: %s", strings.Join(cycle, " → ")),
			Code:    ErrTaskCycle,
		})
	}

	return errs
}

// validateAction checks one action declaration against its kind's
// required fields and declared references.
func validateAction(a ActionDecl, taskIdx, actionIdx int, scopes, files map[string]bool) []ValidationError {
	var errs []ValidationError
	field := func(name string) string {
		return fmt.Sprintf("tasks[%d].actions[%d].%s", taskIdx, actionIdx, name)
	}

	switch a.Kind {
	case ActionEmit:
		// any text, including empty, is legal

	case ActionWrite:
		if a.File == "" {
			errs = append(errs, ValidationError{
				Field:   field("file"),
				Message: "write action requires a file",
				Code:    ErrActionMissingField,
			})
		} else if !files[a.File] {
			errs = append(errs, ValidationError{
				Field:   field("file"),
				Message: fmt.Sprintf("write action names undeclared file %q", a.File),
				Code:    ErrUnknownRef,
			})
		}

	case ActionPlusArg:
		if a.Arg == "" {
			errs = append(errs, ValidationError{
				Field:   field("arg"),
				Message: "plusarg action requires an arg prefix",
				Code:    ErrActionMissingField,
			})
		}

	case ActionExport:
		if a.Name == "" {
			errs = append(errs, ValidationError{
				Field:   field("name"),
				Message: "export action requires a name",
				Code:    ErrActionMissingField,
			})
		}

	case ActionUser:
		if a.Scope == "" || a.Name == "" {
			errs = append(errs, ValidationError{
				Field:   field("scope"),
				Message: "userdata action requires a scope and a name",
				Code:    ErrActionMissingField,
			})
		} else if !scopes[a.Scope] {
			errs = append(errs, ValidationError{
				Field:   field("scope"),
				Message: fmt.Sprintf("userdata action names undeclared scope %q", a.Scope),
				Code:    ErrUnknownRef,
			})
		}

	default:
		errs = append(errs, ValidationError{
			Field:   field("kind"),
			Message: fmt.Sprintf("unknown action kind %q", a.Kind),
			Code:    ErrUnknownActionKind,
		})
	}

	return errs
}

// validateScopeParents walks each scope's parent chain and reports
// chains that loop back on themselves.
func validateScopeParents(scopes []ScopeDecl) []ValidationError {
	parent := make(map[string]string, len(scopes))
	for _, s := range scopes {
		parent[s.Name] = s.Parent
	}

	var errs []ValidationError
	reported := make(map[string]bool)
	for i, s := range scopes {
		seen := map[string]bool{s.Name: true}
		cur := parent[s.Name]
		for cur != "" {
			if seen[cur] {
				if !reported[s.Name] {
					errs = append(errs, ValidationError{
						Field:   fmt.Sprintf("scopes[%d].parent", i),
						Message: fmt.Sprintf("scope parent chain of %q loops at %q", s.Name, cur),
						Code:    ErrScopeParentCycle,
					})
					reported[s.Name] = true
				}
				break
			}
			seen[cur] = true
			next, ok := parent[cur]
			if !ok {
				break // unknown parent, reported as E110
			}
			cur = next
		}
	}
	return errs
}

// isValidFileMode reports whether mode is a stdio-style open mode the
// file table accepts. A "b" binary qualifier anywhere is ignored.
func isValidFileMode(mode string) bool {
	switch strings.ReplaceAll(mode, "b", "") {
	case "r", "r+", "w", "w+", "a", "a+":
		return true
	}
	return false
}
