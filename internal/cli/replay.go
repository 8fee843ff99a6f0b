package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/strobesim/strobe/internal/driver"
	"github.com/strobesim/strobe/internal/registry"
	"github.com/strobesim/strobe/internal/store"
)

// ReplayOptions holds flags for the replay command.
type ReplayOptions struct {
	*RootOptions
	Database string
	Workers  int
	Runs     int
	PlusArgs []string
}

// ReplayRunResult holds one execution of the replayed workload.
type ReplayRunResult struct {
	RunID         string `json:"run_id"`
	Workers       int    `json:"workers"`
	Seed          int64  `json:"seed"`
	Events        int    `json:"events"`
	TraceHash     string `json:"trace_hash"`
	Deterministic bool   `json:"deterministic"`
}

// HistoryCheck reports the stored-run comparison made when --db is set.
type HistoryCheck struct {
	StoredRuns int    `json:"stored_runs"`
	Consistent bool   `json:"consistent"`
	Detail     string `json:"detail,omitempty"`
}

// ReplayResult holds the overall replay result.
type ReplayResult struct {
	Workload      string            `json:"workload"`
	WorkloadID    string            `json:"workload_id"`
	Runs          []ReplayRunResult `json:"runs"`
	Deterministic bool              `json:"deterministic"`
	Divergence    string            `json:"divergence,omitempty"`
	History       *HistoryCheck     `json:"history,omitempty"`
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReplayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "replay <workload-path>",
		Short: "Run a workload repeatedly and verify trace determinism",
		Long: `Execute the same workload several times under different schedule seeds
and verify every execution records a byte-identical trace.

The seed shuffles the order workers take their tasks in; worker count
varies per run unless pinned with --workers. A deterministic engine
yields the same trace regardless, so any divergence is a defect.

With --db every execution is persisted and the whole stored history of
the workload is re-verified, catching divergence against runs recorded
on other machines or earlier versions.

Exit codes:
  0 - All traces identical
  1 - Determinism verification failed (divergence detected)
  2 - Command error (bad workload, unwritable database, etc.)

Examples:
  strobe replay ./workload.cue
  strobe replay --runs 5 --workers 8 ./workload.cue
  strobe replay --db ./strobe.db ./workload.cue --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "persist executions to this SQLite database and verify its history")
	cmd.Flags().IntVar(&opts.Workers, "workers", 0, "evaluation workers per run (0 = vary per run)")
	cmd.Flags().IntVar(&opts.Runs, "runs", 2, "number of executions to compare")
	cmd.Flags().StringArrayVar(&opts.PlusArgs, "plusarg", nil, "simulated plus-arg, repeatable")

	return cmd
}

func runReplay(opts *ReplayOptions, workloadPath string, cmd *cobra.Command) error {
	if opts.Runs < 2 {
		return NewExitError(ExitCommandError, "replay needs at least 2 runs to compare")
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	plan, err := LoadWorkload(workloadPath)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to compile workload", err)
	}
	workloadID, err := plan.ID()
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to hash workload", err)
	}

	// Declared files land in per-run scratch directories so executions
	// never clobber each other.
	tmpRoot, err := os.MkdirTemp("", "strobe-replay-*")
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to create scratch directory", err)
	}
	defer os.RemoveAll(tmpRoot)

	var st *store.Store
	if opts.Database != "" {
		st, err = store.Open(opts.Database)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to open database", err)
		}
		defer st.Close()
	}

	result := ReplayResult{
		Workload:      plan.Name,
		WorkloadID:    workloadID,
		Runs:          make([]ReplayRunResult, 0, opts.Runs),
		Deterministic: true,
	}

	var reference *driver.Result
	for i := 0; i < opts.Runs; i++ {
		outDir := filepath.Join(tmpRoot, fmt.Sprintf("run-%d", i))
		if err := os.MkdirAll(outDir, 0755); err != nil {
			return WrapExitError(ExitCommandError, "failed to create scratch directory", err)
		}

		d, err := driver.New(plan, driver.Config{
			Workers:  replayWorkers(opts.Workers, i),
			Seed:     int64(i + 1),
			PlusArgs: opts.PlusArgs,
			OutDir:   outDir,
		})
		if err != nil {
			return WrapExitError(ExitCommandError, "invalid workload", err)
		}

		res, err := d.Run(ctx)
		if err != nil {
			if registry.IsFatal(err) {
				return WrapExitError(ExitCommandError, "fatal runtime error", err)
			}
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return WrapExitError(ExitFailure, "replay interrupted", err)
			}
			return WrapExitError(ExitFailure, fmt.Sprintf("replay run %d failed", i+1), err)
		}

		deterministic := true
		if reference == nil {
			reference = res
		} else if res.TraceHash != reference.TraceHash {
			deterministic = false
			result.Deterministic = false
			if result.Divergence == "" {
				_, result.Divergence = compareTraces(reference.Events, res.Events)
			}
		}

		result.Runs = append(result.Runs, ReplayRunResult{
			RunID:         res.RunID,
			Workers:       res.Workers,
			Seed:          res.Seed,
			Events:        len(res.Events),
			TraceHash:     res.TraceHash,
			Deterministic: deterministic,
		})

		if st != nil {
			if err := st.WriteRun(ctx, res); err != nil {
				return WrapExitError(ExitCommandError, "failed to persist run", err)
			}
		}
	}

	if st != nil {
		report, err := st.VerifyWorkload(ctx, workloadID)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to verify stored runs", err)
		}
		history := &HistoryCheck{StoredRuns: report.Runs, Consistent: report.Consistent}
		if !report.Consistent {
			result.Deterministic = false
			if len(report.Mismatches) > 0 {
				history.Detail = report.Mismatches[0].Detail
			}
			if result.Divergence == "" {
				result.Divergence = history.Detail
			}
		}
		result.History = history
	}

	// Output results
	if opts.Format == "json" {
		return outputReplayJSON(cmd, result)
	}

	return outputReplayText(cmd, result)
}

// replayWorkers picks the worker count for execution i. A pinned count
// applies to every run; otherwise the count climbs a short ladder so
// the comparison spans schedules, not just seeds.
func replayWorkers(pinned, i int) int {
	if pinned > 0 {
		return pinned
	}
	ladder := []int{1, 2, 4, 8}
	return ladder[i%len(ladder)]
}

// compareTraces compares two event streams and describes the first
// point of divergence.
func compareTraces(a, b []driver.Event) (bool, string) {
	if len(a) != len(b) {
		return false, fmt.Sprintf("event count mismatch: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			return false, fmt.Sprintf("event %d diverges: %q vs %q", i, a[i].String(), b[i].String())
		}
	}
	return true, ""
}

// outputReplayJSON outputs the replay result as JSON.
func outputReplayJSON(cmd *cobra.Command, result ReplayResult) error {
	response := CLIResponse{
		Status: "ok",
		Data:   result,
	}

	if !result.Deterministic {
		response.Status = "error"
		response.Error = &CLIError{
			Code:    "E_DETERMINISM",
			Message: "determinism verification failed",
		}
	}

	encoder := json.NewEncoder(cmd.OutOrStdout())
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(response); err != nil {
		return err
	}

	if !result.Deterministic {
		// Determinism failure = exit code 1
		return NewExitError(ExitFailure, "determinism verification failed")
	}
	return nil
}

// outputReplayText outputs the replay result as text.
func outputReplayText(cmd *cobra.Command, result ReplayResult) error {
	w := cmd.OutOrStdout()

	fmt.Fprintf(w, "Replay: %s (%d executions)\n", result.Workload, len(result.Runs))
	fmt.Fprintln(w)

	for i, run := range result.Runs {
		status := "✓"
		if !run.Deterministic {
			status = "✗"
		}
		fmt.Fprintf(w, "%s run %d: workers=%d seed=%d events=%d hash=%s\n",
			status, i+1, run.Workers, run.Seed, run.Events, shortHash(run.TraceHash))
	}
	fmt.Fprintln(w)

	if result.History != nil {
		if result.History.Consistent {
			fmt.Fprintf(w, "Stored history consistent: %d run(s)\n", result.History.StoredRuns)
		} else {
			fmt.Fprintf(w, "Stored history diverges across %d run(s)\n", result.History.StoredRuns)
		}
	}

	if result.Deterministic {
		fmt.Fprintf(w, "✓ All traces identical across %d executions\n", len(result.Runs))
		return nil
	}

	fmt.Fprintln(w, "✗ Determinism verification failed")
	if result.Divergence != "" {
		fmt.Fprintf(w, "  %s\n", result.Divergence)
	}
	// Determinism failure = exit code 1
	return NewExitError(ExitFailure, "determinism verification failed")
}
