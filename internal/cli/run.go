package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/strobesim/strobe/internal/driver"
	"github.com/strobesim/strobe/internal/metrics"
	"github.com/strobesim/strobe/internal/registry"
	"github.com/strobesim/strobe/internal/store"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Database      string
	Workers       int
	Seed          int64
	PlusArgs      []string
	OutDir        string
	DumpInternals bool
	MetricsOut    string

	// RunIDs allows overriding the run id source (for testing).
	// If nil, defaults to UUIDv7Source.
	RunIDs driver.RunIDSource
}

// RunSummary is the run command's success payload.
type RunSummary struct {
	RunID         string           `json:"run_id"`
	Workload      string           `json:"workload"`
	WorkloadID    string           `json:"workload_id"`
	EngineVersion string           `json:"engine_version"`
	Passes        int64            `json:"passes"`
	Workers       int              `json:"workers"`
	Seed          int64            `json:"seed"`
	Events        int              `json:"events"`
	TraceHash     string           `json:"trace_hash"`
	ActionCounts  map[string]int64 `json:"action_counts,omitempty"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <workload-path>",
		Short: "Execute a workload and record its trace",
		Long: `Execute a compiled workload against a fresh engine and registry.

The driver registers the plan's scopes, exports, files, and time format,
then runs every evaluation pass: N workers post deferred actions into
per-worker outboxes, flush them into the shared pass queue, and a single
drain executes them in task order. Every drained action lands in the run
trace; the trace is identical for any worker count or seed.

Exit codes:
  0 - Run completed
  1 - Run failed (action error, interrupted)
  2 - Command error (bad workload, fatal runtime error, unwritable database)

Examples:
  strobe run ./workload.cue
  strobe run --db ./strobe.db --workers 8 ./workloads
  strobe run --plusarg +mode=fast --plusarg +seed=7 ./workload.cue
  strobe run --dump-internals --metrics-out ./metrics.prom ./workload.cue`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWorkload(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "persist the run to this SQLite database")
	cmd.Flags().IntVar(&opts.Workers, "workers", 0, "evaluation workers per wave (0 = default)")
	cmd.Flags().Int64Var(&opts.Seed, "seed", 0, "schedule shuffle seed (0 = +seed= plus-arg or default)")
	cmd.Flags().StringArrayVar(&opts.PlusArgs, "plusarg", nil, "simulated plus-arg, repeatable")
	cmd.Flags().StringVar(&opts.OutDir, "out-dir", "", "directory for workload-declared files")
	cmd.Flags().BoolVar(&opts.DumpInternals, "dump-internals", false, "dump registry tables to stderr after the run")
	cmd.Flags().StringVar(&opts.MetricsOut, "metrics-out", "", "write a prometheus textfile snapshot after the run")

	return cmd
}

func runWorkload(opts *RunOptions, workloadPath string, cmd *cobra.Command) error {
	// Configure logging based on verbose flag
	logLevel := slog.LevelInfo
	if opts.Verbose {
		logLevel = slog.LevelDebug
	}
	handler := slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{
		Level: logLevel,
	})
	slog.SetDefault(slog.New(handler))

	// Compile workload
	slog.Info("compiling workload", "path", workloadPath)
	plan, err := LoadWorkload(workloadPath)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to compile workload", err)
	}
	slog.Info("workload compiled", "name", plan.Name, "tasks", len(plan.Tasks), "passes", plan.Passes)

	d, err := driver.New(plan, driver.Config{
		Workers:  opts.Workers,
		Seed:     opts.Seed,
		PlusArgs: opts.PlusArgs,
		OutDir:   opts.OutDir,
		RunIDs:   opts.RunIDs,
	})
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid workload", err)
	}

	// Setup signal handling for graceful shutdown
	// Use command's context if available (for testing), otherwise create one
	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, cancel := context.WithCancel(parentCtx)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan) // Prevent signal handler leak

	go func() {
		select {
		case sig := <-sigChan:
			slog.Info("received signal, shutting down", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	res, err := d.Run(ctx)
	if err != nil {
		// Fatal registry errors mean the workload and the runtime are
		// out of step: a command error, not a verification failure.
		if registry.IsFatal(err) {
			return WrapExitError(ExitCommandError, "fatal runtime error", err)
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return WrapExitError(ExitFailure, "run interrupted", err)
		}
		return WrapExitError(ExitFailure, "run failed", err)
	}
	slog.Info("run complete", "run_id", res.RunID, "events", len(res.Events), "trace_hash", res.TraceHash)

	if opts.DumpInternals {
		d.Registry().InternalsDump(cmd.ErrOrStderr())
	}

	if opts.MetricsOut != "" {
		collector := metrics.NewCollector(d.Engine(), d.Registry())
		if err := metrics.WriteTextfile(opts.MetricsOut, metrics.NewRegistry(collector)); err != nil {
			return WrapExitError(ExitCommandError, "failed to write metrics", err)
		}
		slog.Info("metrics written", "path", opts.MetricsOut)
	}

	if opts.Database != "" {
		st, err := store.Open(opts.Database)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to open database", err)
		}
		defer func() {
			if closeErr := st.Close(); closeErr != nil {
				slog.Error("error closing database", "error", closeErr)
			}
		}()
		if err := st.WriteRun(ctx, res); err != nil {
			return WrapExitError(ExitCommandError, "failed to persist run", err)
		}
		slog.Info("run persisted", "db", opts.Database)
	}

	return outputRunSummary(opts, cmd, res)
}

// outputRunSummary outputs the completed run in the configured format.
func outputRunSummary(opts *RunOptions, cmd *cobra.Command, res *driver.Result) error {
	summary := RunSummary{
		RunID:         res.RunID,
		Workload:      res.Workload,
		WorkloadID:    res.WorkloadID,
		EngineVersion: res.EngineVersion,
		Passes:        res.Passes,
		Workers:       res.Workers,
		Seed:          res.Seed,
		Events:        len(res.Events),
		TraceHash:     res.TraceHash,
		ActionCounts:  res.ActionCounts,
	}

	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
	if formatter.Format == "json" {
		return formatter.Success(summary)
	}

	w := formatter.Writer
	fmt.Fprintf(w, "✓ Run complete: %s\n", summary.Workload)
	fmt.Fprintf(w, "  Run ID:      %s\n", summary.RunID)
	fmt.Fprintf(w, "  Workload ID: %s\n", shortHash(summary.WorkloadID))
	fmt.Fprintf(w, "  Passes: %d  Workers: %d  Seed: %d\n", summary.Passes, summary.Workers, summary.Seed)
	fmt.Fprintf(w, "  Events:      %d\n", summary.Events)
	fmt.Fprintf(w, "  Trace hash:  %s\n", shortHash(summary.TraceHash))

	if len(summary.ActionCounts) > 0 {
		scopes := make([]string, 0, len(summary.ActionCounts))
		for name := range summary.ActionCounts {
			scopes = append(scopes, name)
		}
		sort.Strings(scopes)

		fmt.Fprintln(w, "  User-data actions:")
		for _, name := range scopes {
			fmt.Fprintf(w, "    %s: %d\n", name, summary.ActionCounts[name])
		}
	}

	if opts.Database != "" {
		fmt.Fprintf(w, "Saved run to %s\n", opts.Database)
	}

	return nil
}
