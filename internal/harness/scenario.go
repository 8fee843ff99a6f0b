package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Scenario defines one determinism scenario: a workload, the execution
// matrix to run it under, and the assertions its trace must satisfy.
type Scenario struct {
	// Name uniquely identifies this scenario. Golden files are named
	// after it.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Workload is the path to the CUE workload file, resolved relative
	// to the scenario file location.
	Workload string `yaml:"workload"`

	// Workers lists the worker counts to execute the workload under.
	// Empty defaults to [1]. Every count must yield the same trace.
	Workers []int `yaml:"workers,omitempty"`

	// Seeds lists the shuffle seeds to execute the workload under.
	// Empty defaults to [1]. A zero seed defers to the workload's
	// +seed= plus-arg. Every seed must yield the same trace.
	Seeds []int64 `yaml:"seeds,omitempty"`

	// PlusArgs is the simulated command line handed to each run.
	PlusArgs []string `yaml:"plusargs,omitempty"`

	// Assertions validate the reference trace and the run matrix.
	Assertions []Assertion `yaml:"assertions"`
}

// Assertion validates one property of a finished scenario run.
type Assertion struct {
	// Type specifies the assertion type:
	// - "trace_contains": an event matching kind/label appears
	// - "trace_order": labels appear in the given trace order
	// - "trace_count": matching events appear exactly count times
	// - "identical_traces": every matrix run produced the same trace
	// - "file_contains": a declared output file holds content
	// - "action_count": scope executed exactly count user-data actions
	Type string `yaml:"type"`

	// Kind filters events by kind (trace_contains, trace_count).
	// Empty matches every kind.
	Kind string `yaml:"kind,omitempty"`

	// Label is the expected event label (trace_contains, trace_count).
	Label string `yaml:"label,omitempty"`

	// Labels is the expected label order (trace_order).
	Labels []string `yaml:"labels,omitempty"`

	// Count is the expected occurrence count (trace_count,
	// action_count).
	Count int `yaml:"count,omitempty"`

	// File names a workload-declared output file (file_contains).
	File string `yaml:"file,omitempty"`

	// Content is the expected file content substring (file_contains).
	Content string `yaml:"content,omitempty"`

	// Scope names the scope whose action count to check (action_count).
	Scope string `yaml:"scope,omitempty"`
}

// Assertion type constants.
const (
	AssertTraceContains   = "trace_contains"
	AssertTraceOrder      = "trace_order"
	AssertTraceCount      = "trace_count"
	AssertIdenticalTraces = "identical_traces"
	AssertFileContains    = "file_contains"
	AssertActionCount     = "action_count"
)

// LoadScenario reads and parses a scenario YAML file. The workload path
// is resolved relative to the scenario file's directory. Returns an
// error if the file doesn't exist, is malformed, contains unknown
// fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	// Parse YAML with strict field validation (catches typos like
	// "assertion:" vs "assertions:")
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	// Resolve the workload path relative to the scenario file BEFORE
	// validation, which stats it.
	if scenario.Workload != "" && !filepath.IsAbs(scenario.Workload) {
		scenario.Workload = filepath.Join(filepath.Dir(path), scenario.Workload)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if s.Workload == "" {
		return fmt.Errorf("workload is required")
	}
	if _, err := os.Stat(s.Workload); os.IsNotExist(err) {
		return fmt.Errorf("workload file not found: %s", s.Workload)
	}

	for i, w := range s.Workers {
		if w < 1 {
			return fmt.Errorf("workers[%d]: must be at least 1, got %d", i, w)
		}
	}

	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	for i := range s.Assertions {
		if err := validateAssertion(i, &s.Assertions[i]); err != nil {
			return err
		}
	}

	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertTraceContains:
		if a.Kind == "" && a.Label == "" {
			return fmt.Errorf("assertions[%d]: kind or label is required for trace_contains", index)
		}
	case AssertTraceOrder:
		if len(a.Labels) == 0 {
			return fmt.Errorf("assertions[%d]: labels list is required for trace_order", index)
		}
	case AssertTraceCount:
		if a.Kind == "" && a.Label == "" {
			return fmt.Errorf("assertions[%d]: kind or label is required for trace_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for trace_count", index)
		}
	case AssertIdenticalTraces:
		// No fields beyond type.
	case AssertFileContains:
		if a.File == "" {
			return fmt.Errorf("assertions[%d]: file is required for file_contains", index)
		}
	case AssertActionCount:
		if a.Scope == "" {
			return fmt.Errorf("assertions[%d]: scope is required for action_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for action_count", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}
