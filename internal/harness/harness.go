package harness

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/strobesim/strobe/internal/driver"
	"github.com/strobesim/strobe/internal/testutil"
	"github.com/strobesim/strobe/internal/workload"
)

// Run executes a scenario and returns the result.
//
// The workload compiles once; the driver then executes it under every
// (workers, seed) combination of the scenario's matrix, each run with a
// fresh engine and registry and its own temporary output directory. The
// first matrix cell is the reference run: trace assertions evaluate
// against its events and identical_traces compares every other cell to
// it.
//
// Execution flow:
// 1. Compile the CUE workload
// 2. Run the matrix, capturing declared output files of the reference
// 3. Evaluate assertions
// 4. Return result with pass/fail, reference trace, and errors
func Run(scenario *Scenario) (*Result, error) {
	src, err := os.ReadFile(scenario.Workload)
	if err != nil {
		return nil, fmt.Errorf("failed to read workload: %w", err)
	}
	plan, err := workload.CompileString(string(src))
	if err != nil {
		return nil, fmt.Errorf("failed to compile workload: %w", err)
	}

	workers := scenario.Workers
	if len(workers) == 0 {
		workers = []int{1}
	}
	seeds := scenario.Seeds
	if len(seeds) == 0 {
		seeds = []int64{1}
	}

	result := NewResult(scenario.Name)
	runIDs := testutil.NewSeqRunIDs(scenario.Name)

	ctx := context.Background()
	for _, w := range workers {
		for _, seed := range seeds {
			res, files, err := runOnce(ctx, plan, scenario, w, seed, runIDs)
			if err != nil {
				return nil, err
			}
			result.Runs = append(result.Runs, res)
			if len(result.Runs) == 1 {
				result.Trace = res.Events
				result.Files = files
			}
		}
	}

	for _, msg := range EvaluateAssertions(result, scenario.Assertions) {
		result.AddError(msg)
	}

	return result, nil
}

// runOnce executes one matrix cell and captures the workload's declared
// output files before the temporary directory is removed.
func runOnce(ctx context.Context, plan *workload.Plan, scenario *Scenario, workers int, seed int64, runIDs driver.RunIDSource) (*driver.Result, map[string]string, error) {
	outDir, err := os.MkdirTemp("", "strobe-harness-*")
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create output dir: %w", err)
	}
	defer os.RemoveAll(outDir)

	d, err := driver.New(plan, driver.Config{
		Workers:  workers,
		Seed:     seed,
		PlusArgs: scenario.PlusArgs,
		OutDir:   outDir,
		RunIDs:   runIDs,
	})
	if err != nil {
		return nil, nil, err
	}

	res, err := d.Run(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("run failed (workers=%d seed=%d): %w", workers, seed, err)
	}

	files := make(map[string]string, len(plan.Files))
	for _, f := range plan.Files {
		data, err := os.ReadFile(filepath.Join(outDir, f.Name))
		if err != nil {
			return nil, nil, fmt.Errorf("failed to read output file %s: %w", f.Name, err)
		}
		files[f.Name] = string(data)
	}

	return res, files, nil
}
