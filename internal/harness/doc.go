// Package harness runs determinism scenarios against the live driver.
//
// A scenario names a CUE workload, an execution matrix of worker counts
// and shuffle seeds, and assertions over the resulting trace. Every
// matrix cell executes the real driver against a fresh engine and
// registry; nothing is stubbed. The first cell is the reference run:
// trace assertions read its events, identical_traces compares every
// other cell against it, and golden files pin its exact bytes.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: scenario_name
//	description: "What this scenario validates"
//	workload: path/to/workload.cue
//	workers: [1, 4, 16]
//	seeds: [1, 99]
//	plusargs: ["+mode=fast"]
//	assertions:
//	  - type: trace_contains
//	    kind: emit
//	    label: "fetch ready"
//	  - type: trace_order
//	    labels: ["fetch ready", "decode ready"]
//	  - type: identical_traces
//
// # Assertion Types
//
// The following assertion types are supported:
//
//   - trace_contains: an event matching kind/label appears in the trace
//   - trace_order: labels appear in the given trace order
//   - trace_count: events matching kind/label appear exactly N times
//   - identical_traces: every matrix run produced the same trace
//   - file_contains: a workload-declared output file holds the content
//   - action_count: a scope executed exactly N user-data actions
//
// # Deterministic Testing
//
// Traces are deterministic by construction: the ordered inbox drains
// by task id regardless of worker interleaving, so the matrix exists
// to demonstrate that, not to create it. Run ids come from
// testutil.SeqRunIDs so repeated executions are reproducible end to
// end.
//
// # Usage
//
// Load and run a scenario:
//
//	scenario, err := harness.LoadScenario("testdata/scenarios/pipeline.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	result, err := harness.Run(scenario)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if !result.Pass {
//	    for _, msg := range result.Errors {
//	        log.Println(msg)
//	    }
//	}
package harness
