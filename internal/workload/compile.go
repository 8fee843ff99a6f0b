package workload

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/load"
	"cuelang.org/go/cue/token"
)

// CompileError represents a compilation error with source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// CompileString compiles CUE source text into a Plan. The source must
// define a top-level "workload" struct.
func CompileString(src string) (*Plan, error) {
	ctx := cuecontext.New()
	v := ctx.CompileString(src)
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	return CompilePlan(v.LookupPath(cue.ParsePath("workload")))
}

// CompileDir loads every CUE file under dir as one instance and
// compiles its workload struct. Uses the CUE SDK's Go API directly,
// not a CLI subprocess. Files unify whether or not they carry a
// package clause, so a workload may be split across several files.
func CompileDir(dir string) (*Plan, error) {
	files, err := cueFilesUnder(dir)
	if err != nil {
		return nil, &CompileError{Field: "workload", Message: fmt.Sprintf("scanning %s: %v", dir, err)}
	}
	if len(files) == 0 {
		return nil, &CompileError{Field: "workload", Message: fmt.Sprintf("no CUE files in %s", dir)}
	}

	ctx := cuecontext.New()
	instances := load.Instances(files, &load.Config{Dir: dir})
	if len(instances) == 0 {
		return nil, &CompileError{Field: "workload", Message: fmt.Sprintf("no CUE instances loaded from %s", dir)}
	}
	inst := instances[0]
	if inst.Err != nil {
		return nil, formatCUEError(inst.Err)
	}
	v := ctx.BuildInstance(inst)
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	return CompilePlan(v.LookupPath(cue.ParsePath("workload")))
}

// cueFilesUnder lists .cue files below dir, relative to dir, in
// lexical order. The loader wants relative paths when Config.Dir is
// set.
func cueFilesUnder(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), ".cue") {
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		files = append(files, rel)
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}

// CompilePlan parses a CUE value into a Plan. The value should be the
// workload struct itself:
//
//	ctx := cuecontext.New()
//	v := ctx.CompileString(`workload: { ... }`)
//	plan, err := CompilePlan(v.LookupPath(cue.ParsePath("workload")))
func CompilePlan(v cue.Value) (*Plan, error) {
	if !v.Exists() {
		return nil, &CompileError{Field: "workload", Message: "workload struct is required"}
	}
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	plan := &Plan{}

	// Parse name (required)
	nameVal := v.LookupPath(cue.ParsePath("name"))
	if !nameVal.Exists() {
		return nil, &CompileError{Field: "name", Message: "name is required", Pos: v.Pos()}
	}
	name, err := nameVal.String()
	if err != nil {
		return nil, formatCUEError(err)
	}
	plan.Name = name

	// Parse passes (optional, defaults to one pass)
	plan.Passes = 1
	if passesVal := v.LookupPath(cue.ParsePath("passes")); passesVal.Exists() {
		passes, err := passesVal.Int64()
		if err != nil {
			return nil, formatCUEError(err)
		}
		plan.Passes = passes
	}

	if plan.Scopes, err = parseScopes(v); err != nil {
		return nil, err
	}
	if plan.Exports, err = parseStringList(v, "exports"); err != nil {
		return nil, err
	}
	if plan.Files, err = parseFiles(v); err != nil {
		return nil, err
	}
	if plan.TimeFormat, err = parseTimeFormat(v); err != nil {
		return nil, err
	}
	if plan.Tasks, err = parseTasks(v); err != nil {
		return nil, err
	}

	// Parse tasks (required, at least one)
	if len(plan.Tasks) == 0 {
		return nil, &CompileError{
			Field:   "tasks",
			Message: "at least one task is required",
			Pos:     v.Pos(),
		}
	}

	return plan, nil
}

// parseScopes extracts scope declarations from the workload.
func parseScopes(v cue.Value) ([]ScopeDecl, error) {
	val := v.LookupPath(cue.ParsePath("scopes"))
	if !val.Exists() {
		return nil, nil // scopes are optional
	}

	iter, err := val.List()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var scopes []ScopeDecl
	for iter.Next() {
		sv := iter.Value()
		var s ScopeDecl

		name, err := sv.LookupPath(cue.ParsePath("name")).String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		s.Name = name

		if s.Parent, err = optString(sv, "parent"); err != nil {
			return nil, err
		}
		if tv := sv.LookupPath(cue.ParsePath("timeunit")); tv.Exists() {
			if s.Timeunit, err = tv.Int64(); err != nil {
				return nil, formatCUEError(err)
			}
		}
		if mv := sv.LookupPath(cue.ParsePath("module")); mv.Exists() {
			if s.Module, err = mv.Bool(); err != nil {
				return nil, formatCUEError(err)
			}
		}

		scopes = append(scopes, s)
	}
	return scopes, nil
}

// parseFiles extracts file declarations from the workload.
func parseFiles(v cue.Value) ([]FileDecl, error) {
	val := v.LookupPath(cue.ParsePath("files"))
	if !val.Exists() {
		return nil, nil // files are optional
	}

	iter, err := val.List()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var files []FileDecl
	for iter.Next() {
		fv := iter.Value()
		var f FileDecl

		name, err := fv.LookupPath(cue.ParsePath("name")).String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		f.Name = name

		if mv := fv.LookupPath(cue.ParsePath("multi")); mv.Exists() {
			if f.Multi, err = mv.Bool(); err != nil {
				return nil, formatCUEError(err)
			}
		}
		if f.Mode, err = optString(fv, "mode"); err != nil {
			return nil, err
		}

		files = append(files, f)
	}
	return files, nil
}

// parseTimeFormat extracts the optional time_format struct.
func parseTimeFormat(v cue.Value) (*TimeFormatDecl, error) {
	val := v.LookupPath(cue.ParsePath("time_format"))
	if !val.Exists() {
		return nil, nil
	}

	tf := &TimeFormatDecl{}
	var err error
	if uv := val.LookupPath(cue.ParsePath("units")); uv.Exists() {
		if tf.Units, err = uv.Int64(); err != nil {
			return nil, formatCUEError(err)
		}
	}
	if pv := val.LookupPath(cue.ParsePath("precision")); pv.Exists() {
		if tf.Precision, err = pv.Int64(); err != nil {
			return nil, formatCUEError(err)
		}
	}
	if wv := val.LookupPath(cue.ParsePath("width")); wv.Exists() {
		if tf.Width, err = wv.Int64(); err != nil {
			return nil, formatCUEError(err)
		}
	}
	if tf.Suffix, err = optString(val, "suffix"); err != nil {
		return nil, err
	}
	return tf, nil
}

// parseTasks extracts task declarations from the workload.
func parseTasks(v cue.Value) ([]TaskDecl, error) {
	val := v.LookupPath(cue.ParsePath("tasks"))
	if !val.Exists() {
		return nil, nil
	}

	iter, err := val.List()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var tasks []TaskDecl
	for iter.Next() {
		tv := iter.Value()
		var task TaskDecl

		name, err := tv.LookupPath(cue.ParsePath("name")).String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		task.Name = name

		if task.After, err = parseStringList(tv, "after"); err != nil {
			return nil, err
		}

		actionsVal := tv.LookupPath(cue.ParsePath("actions"))
		if !actionsVal.Exists() {
			return nil, &CompileError{
				Field:   fmt.Sprintf("tasks.%s.actions", task.Name),
				Message: "task actions are required",
				Pos:     tv.Pos(),
			}
		}
		aIter, err := actionsVal.List()
		if err != nil {
			return nil, formatCUEError(err)
		}
		for aIter.Next() {
			av := aIter.Value()
			var a ActionDecl

			kind, err := av.LookupPath(cue.ParsePath("kind")).String()
			if err != nil {
				return nil, formatCUEError(err)
			}
			a.Kind = kind

			if a.Text, err = optString(av, "text"); err != nil {
				return nil, err
			}
			if a.File, err = optString(av, "file"); err != nil {
				return nil, err
			}
			if a.Arg, err = optString(av, "arg"); err != nil {
				return nil, err
			}
			if a.Name, err = optString(av, "name"); err != nil {
				return nil, err
			}
			if a.Scope, err = optString(av, "scope"); err != nil {
				return nil, err
			}

			task.Actions = append(task.Actions, a)
		}

		tasks = append(tasks, task)
	}
	return tasks, nil
}

// parseStringList reads an optional list-of-strings field.
func parseStringList(v cue.Value, path string) ([]string, error) {
	val := v.LookupPath(cue.ParsePath(path))
	if !val.Exists() {
		return nil, nil
	}

	iter, err := val.List()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var out []string
	for iter.Next() {
		s, err := iter.Value().String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		out = append(out, s)
	}
	return out, nil
}

// optString reads an optional string field, returning "" when absent.
func optString(v cue.Value, path string) (string, error) {
	fv := v.LookupPath(cue.ParsePath(path))
	if !fv.Exists() {
		return "", nil
	}
	s, err := fv.String()
	if err != nil {
		return "", formatCUEError(err)
	}
	return s, nil
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	// CUE errors may contain multiple errors
	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	// Return the first error with position info
	firstErr := errs[0]
	positions := cueerrors.Positions(firstErr)
	if len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: firstErr.Error(),
			Pos:     positions[0],
		}
	}

	return err
}
