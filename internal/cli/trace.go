package cli

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/strobesim/strobe/internal/driver"
	"github.com/strobesim/strobe/internal/store"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Database string
	RunID    string
	Kind     string // optional - filter to specific event kind
}

// RunInfo describes one stored run.
type RunInfo struct {
	ID            string `json:"id"`
	Workload      string `json:"workload"`
	WorkloadID    string `json:"workload_id"`
	TraceHash     string `json:"trace_hash"`
	Passes        int64  `json:"passes"`
	Workers       int64  `json:"workers"`
	Seed          int64  `json:"seed"`
	EngineVersion string `json:"engine_version"`
}

// RunListResult holds the stored-run listing.
type RunListResult struct {
	Runs  []RunInfo `json:"runs"`
	Total int       `json:"total"`
}

// TraceStats holds summary statistics for one stored trace.
type TraceStats struct {
	TotalEvents int            `json:"total_events"`
	Kinds       map[string]int `json:"kinds"`
}

// TraceResult holds the complete trace output for one run.
type TraceResult struct {
	Run    RunInfo        `json:"run"`
	Events []driver.Event `json:"events"`
	Stats  TraceStats     `json:"stats"`
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Inspect stored runs and their traces",
		Long: `Inspect the trace log of a run database.

Without --run, lists every stored run. With --run, prints the run's
full event timeline in drain order: one line per recorded action with
its sequence number, pass, task id, kind, and label. These are the
same lines the trace hash is computed over.

Examples:
  strobe trace --db ./strobe.db
  strobe trace --db ./strobe.db --run 0192d3f0-6f0a-7cc1-b9de-33a1f85c2b10
  strobe trace --db ./strobe.db --run <id> --kind emit
  strobe trace --db ./strobe.db --run <id> --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.RunID, "run", "", "run id to print; omit to list stored runs")
	cmd.Flags().StringVar(&opts.Kind, "kind", "", "filter events to one kind (emit, write, plusarg, export, userdata, pass)")

	return cmd
}

func runTrace(opts *TraceOptions, cmd *cobra.Command) error {
	ctx := context.Background()

	// Open database
	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	if opts.RunID == "" {
		return listStoredRuns(ctx, opts, st, cmd)
	}
	return showRunTrace(ctx, opts, st, cmd)
}

// listStoredRuns prints every run the database holds.
func listStoredRuns(ctx context.Context, opts *TraceOptions, st *store.Store, cmd *cobra.Command) error {
	runs, err := st.ListRuns(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to list runs", err)
	}

	result := RunListResult{Runs: make([]RunInfo, len(runs)), Total: len(runs)}
	for i, r := range runs {
		result.Runs[i] = runInfo(r)
	}

	if opts.Format == "json" {
		return outputTraceJSON(cmd, result)
	}

	w := cmd.OutOrStdout()
	if len(runs) == 0 {
		fmt.Fprintln(w, "No runs stored.")
		return nil
	}

	fmt.Fprintf(w, "Stored runs: %d\n\n", len(runs))
	for _, r := range result.Runs {
		fmt.Fprintf(w, "  %s  %s  passes=%d workers=%d seed=%d\n",
			r.ID, r.Workload, r.Passes, r.Workers, r.Seed)
	}
	return nil
}

// showRunTrace prints the event timeline of one stored run.
func showRunTrace(ctx context.Context, opts *TraceOptions, st *store.Store, cmd *cobra.Command) error {
	run, err := st.ReadRun(ctx, opts.RunID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return NewExitError(ExitCommandError, fmt.Sprintf("run not found: %s", opts.RunID))
		}
		return WrapExitError(ExitCommandError, "failed to read run", err)
	}

	events, err := st.ReadEvents(ctx, opts.RunID)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read events", err)
	}

	// Stats cover the full trace; the timeline honors --kind.
	stats := TraceStats{TotalEvents: len(events), Kinds: make(map[string]int)}
	for _, e := range events {
		stats.Kinds[e.Kind]++
	}

	timeline := events
	if opts.Kind != "" {
		timeline = make([]driver.Event, 0, len(events))
		for _, e := range events {
			if e.Kind == opts.Kind {
				timeline = append(timeline, e)
			}
		}
	}

	result := TraceResult{
		Run:    runInfo(run),
		Events: timeline,
		Stats:  stats,
	}

	if opts.Format == "json" {
		return outputTraceJSON(cmd, result)
	}

	return outputTraceText(cmd, result, opts.Verbose)
}

// runInfo converts a stored run row to its output shape.
func runInfo(r store.Run) RunInfo {
	return RunInfo{
		ID:            r.ID,
		Workload:      r.WorkloadName,
		WorkloadID:    r.WorkloadID,
		TraceHash:     r.TraceHash,
		Passes:        r.Passes,
		Workers:       r.Workers,
		Seed:          r.Seed,
		EngineVersion: r.EngineVersion,
	}
}

// outputTraceJSON outputs the trace result as JSON.
func outputTraceJSON(cmd *cobra.Command, result interface{}) error {
	response := CLIResponse{
		Status: "ok",
		Data:   result,
	}

	encoder := json.NewEncoder(cmd.OutOrStdout())
	encoder.SetIndent("", "  ")
	return encoder.Encode(response)
}

// outputTraceText outputs the trace result as text.
func outputTraceText(cmd *cobra.Command, result TraceResult, verbose bool) error {
	w := cmd.OutOrStdout()

	fmt.Fprintf(w, "Trace for run %s\n", result.Run.ID)
	fmt.Fprintf(w, "Workload: %s (%s)\n", result.Run.Workload, shortHash(result.Run.WorkloadID))
	fmt.Fprintf(w, "Passes: %d  Workers: %d  Seed: %d\n", result.Run.Passes, result.Run.Workers, result.Run.Seed)
	if verbose {
		fmt.Fprintf(w, "Trace hash: %s\n", result.Run.TraceHash)
		fmt.Fprintf(w, "Engine version: %s\n", result.Run.EngineVersion)
	}
	fmt.Fprintln(w)

	// Events section
	fmt.Fprintln(w, "=== Events ===")
	if len(result.Events) == 0 {
		fmt.Fprintln(w, "  (no events)")
	} else {
		for _, e := range result.Events {
			fmt.Fprintf(w, "  %s\n", e.String())
		}
	}
	fmt.Fprintln(w)

	// Stats section
	fmt.Fprintln(w, "=== Stats ===")
	fmt.Fprintf(w, "  Total events: %d\n", result.Stats.TotalEvents)

	kinds := make([]string, 0, len(result.Stats.Kinds))
	for kind := range result.Stats.Kinds {
		kinds = append(kinds, kind)
	}
	sort.Strings(kinds)
	for _, kind := range kinds {
		fmt.Fprintf(w, "  %s: %d\n", kind, result.Stats.Kinds[kind])
	}

	return nil
}
