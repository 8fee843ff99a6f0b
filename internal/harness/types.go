package harness

import "github.com/strobesim/strobe/internal/driver"

// Result is the outcome of a scenario execution.
type Result struct {
	// Scenario is the name of the executed scenario.
	Scenario string `json:"scenario"`

	// Pass indicates overall success: every matrix run completed and
	// every assertion held.
	Pass bool `json:"pass"`

	// Trace is the reference event stream, taken from the first matrix
	// run. Trace assertions and golden comparison read it.
	Trace []driver.Event `json:"trace"`

	// Errors contains assertion failure messages. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// Runs holds every matrix run's result in execution order,
	// workers-major.
	Runs []*driver.Result `json:"-"`

	// Files maps workload-declared file names to their content after
	// the reference run.
	Files map[string]string `json:"-"`
}

// NewResult creates a new passing result for the named scenario.
// Used as the starting point for scenario execution.
func NewResult(scenario string) *Result {
	return &Result{
		Scenario: scenario,
		Pass:     true,
		Trace:    []driver.Event{},
		Errors:   []string{},
	}
}

// AddError adds an assertion failure and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
