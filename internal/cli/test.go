package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/strobesim/strobe/internal/harness"
)

// NewTestCommand creates the test command.
func NewTestCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "test <scenarios-dir>",
		Short: "Run workload scenario suites",
		Long: `Run every scenario file in a directory through the harness.

A scenario names a workload, a matrix of worker counts and seeds, and
assertions over the recorded traces: events present, orderings held,
traces identical across the matrix, file contents, action counts. Each
cell of the matrix is a full workload execution.

Exit codes:
  0 - All scenarios passed
  1 - One or more scenarios failed
  2 - Command error (missing directory, no scenario files)

Examples:
  strobe test ./scenarios
  strobe test ./scenarios --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScenarios(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runScenarios(opts *RootOptions, scenariosDir string, cmd *cobra.Command) error {
	suite, err := harness.RunSuite(scenariosDir)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to run scenarios", err)
	}

	// Output results
	if opts.Format == "json" {
		return outputSuiteJSON(cmd, suite)
	}

	return outputSuiteText(cmd, suite)
}

// outputSuiteJSON outputs the suite result as JSON.
func outputSuiteJSON(cmd *cobra.Command, suite *harness.SuiteResult) error {
	status := "ok"
	if suite.Failed > 0 {
		status = "error"
	}

	response := CLIResponse{
		Status: status,
		Data:   suite,
	}

	if suite.Failed > 0 {
		response.Error = &CLIError{
			Code:    "E_SCENARIO_FAILED",
			Message: fmt.Sprintf("%d scenario(s) failed", suite.Failed),
		}
	}

	encoder := json.NewEncoder(cmd.OutOrStdout())
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(response); err != nil {
		return err
	}

	if suite.Failed > 0 {
		// Scenario failures = exit code 1
		return NewExitError(ExitFailure, fmt.Sprintf("%d scenario(s) failed", suite.Failed))
	}
	return nil
}

// outputSuiteText outputs the suite result as text.
func outputSuiteText(cmd *cobra.Command, suite *harness.SuiteResult) error {
	w := cmd.OutOrStdout()

	for _, failure := range suite.Failures {
		fmt.Fprintf(w, "✗ %s\n", failure.Scenario)
		fmt.Fprintf(w, "  %s\n", failure.Error)
	}
	if len(suite.Failures) > 0 {
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "Scenario summary: %d passed, %d failed, %d total\n",
		suite.Passed, suite.Failed, suite.TotalScenarios)

	if suite.Failed > 0 {
		// Scenario failures = exit code 1
		return NewExitError(ExitFailure, fmt.Sprintf("%d scenario(s) failed", suite.Failed))
	}

	fmt.Fprintln(w, "✓ All scenarios passed")
	return nil
}
