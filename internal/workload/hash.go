package workload

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed identity. The version suffix
// enables future algorithm migration.
const (
	DomainWorkload = "strobe/workload/v1"
	DomainTrace    = "strobe/trace/v1"
)

// hashWithDomain computes SHA-256 with domain separation.
// Format: SHA256(domain + 0x00 + data)
// The null byte separator prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// ID computes the content-addressed identity of the plan. The id is
// stable across machines and runs given the same workload source: two
// CUE files that compile to the same Plan share one id even when their
// text differs.
func (p *Plan) ID() (string, error) {
	canonical, err := MarshalCanonical(p.canonicalValue())
	if err != nil {
		return "", fmt.Errorf("plan id: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainWorkload, canonical), nil
}

// MustID is like ID but panics on error. Use only in tests or when the
// plan is known to be valid.
func (p *Plan) MustID() string {
	id, err := p.ID()
	if err != nil {
		panic(err)
	}
	return id
}

// TraceHash computes the content-addressed identity of an ordered run
// trace. Two runs of the same workload must produce the same trace
// hash regardless of worker count or seed; that equality is what the
// replay command checks.
func TraceHash(lines []string) (string, error) {
	arr := make([]any, len(lines))
	for i, line := range lines {
		arr[i] = line
	}
	canonical, err := MarshalCanonical(arr)
	if err != nil {
		return "", fmt.Errorf("trace hash: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainTrace, canonical), nil
}

// canonicalValue renders the plan as plain JSON-shaped values for
// canonical marshaling. Optional sections are omitted rather than
// rendered as null, which canonical JSON forbids. The schema version
// is folded in so a schema change never collides with an old id.
func (p *Plan) canonicalValue() map[string]any {
	m := map[string]any{
		"version": WorkloadVersion,
		"name":    p.Name,
		"passes":  p.Passes,
	}

	if len(p.Scopes) > 0 {
		scopes := make([]any, len(p.Scopes))
		for i, s := range p.Scopes {
			scopes[i] = map[string]any{
				"name":     s.Name,
				"parent":   s.Parent,
				"timeunit": s.Timeunit,
				"module":   s.Module,
			}
		}
		m["scopes"] = scopes
	}

	if len(p.Exports) > 0 {
		exports := make([]any, len(p.Exports))
		for i, name := range p.Exports {
			exports[i] = name
		}
		m["exports"] = exports
	}

	if len(p.Files) > 0 {
		files := make([]any, len(p.Files))
		for i, f := range p.Files {
			files[i] = map[string]any{
				"name":  f.Name,
				"multi": f.Multi,
				"mode":  f.Mode,
			}
		}
		m["files"] = files
	}

	if p.TimeFormat != nil {
		m["time_format"] = map[string]any{
			"units":     p.TimeFormat.Units,
			"precision": p.TimeFormat.Precision,
			"width":     p.TimeFormat.Width,
			"suffix":    p.TimeFormat.Suffix,
		}
	}

	tasks := make([]any, len(p.Tasks))
	for i, task := range p.Tasks {
		tm := map[string]any{"name": task.Name}
		if len(task.After) > 0 {
			after := make([]any, len(task.After))
			for j, dep := range task.After {
				after[j] = dep
			}
			tm["after"] = after
		}
		actions := make([]any, len(task.Actions))
		for j, a := range task.Actions {
			actions[j] = map[string]any{
				"kind":  a.Kind,
				"text":  a.Text,
				"file":  a.File,
				"arg":   a.Arg,
				"name":  a.Name,
				"scope": a.Scope,
			}
		}
		tm["actions"] = actions
		tasks[i] = tm
	}
	m["tasks"] = tasks

	return m
}
