package cli

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/strobesim/strobe/internal/workload"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid    bool                       `json:"valid"`
	Workload string                     `json:"workload,omitempty"`
	Errors   []workload.ValidationError `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <workload-path>",
		Short: "Validate a workload without running it",
		Long: `Validate a CUE workload without executing it.

Compiles the workload and checks schema rules: declared scopes, files,
and exports resolve, task dependencies form no cycles, and every action
carries the fields its kind needs. Faster than a full run for
development feedback.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, workloadPath string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   opts.Verbose,
	}

	plan, err := LoadWorkload(workloadPath)
	if err != nil {
		var loadErr *LoadError
		if errors.As(err, &loadErr) {
			return outputValidateError(formatter, loadErr.Code, loadErr.Message, nil)
		}
		return outputValidateError(formatter, ErrCodeGeneric, err.Error(), nil)
	}

	formatter.VerboseLog("Compiled workload: %s (%d task(s), %d pass(es))",
		plan.Name, len(plan.Tasks), plan.Passes)

	findings := workload.Validate(plan)
	if len(findings) > 0 {
		return outputValidationErrors(formatter, plan.Name, findings)
	}

	// Output success
	return outputValidateSuccess(formatter, plan)
}

// outputValidateSuccess outputs successful validation results.
func outputValidateSuccess(formatter *OutputFormatter, plan *workload.Plan) error {
	if formatter.Format == "json" {
		result := ValidationResult{Valid: true, Workload: plan.Name}
		return formatter.Success(result)
	}

	fmt.Fprintf(formatter.Writer, "✓ Workload %q valid\n", plan.Name)
	return nil
}

// outputValidateError outputs a single load-level error.
func outputValidateError(formatter *OutputFormatter, code, message string, details interface{}) error {
	_ = formatter.Error(code, message, details)
	// Load errors are command-level errors (exit code 2)
	return NewExitError(ExitCommandError, fmt.Sprintf("%s: %s", code, message))
}

// outputValidationErrors outputs schema validation findings.
func outputValidationErrors(formatter *OutputFormatter, name string, errs []workload.ValidationError) error {
	if formatter.Format == "json" {
		result := ValidationResult{
			Valid:    false,
			Workload: name,
			Errors:   errs,
		}

		response := CLIResponse{
			Status: "error",
			Data:   result,
			Error: &CLIError{
				Code:    errs[0].Code,
				Message: errs[0].Message,
			},
		}

		encoder := json.NewEncoder(formatter.Writer)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(response); err != nil {
			return err
		}

		// Validation failures = exit code 1 (verification failure)
		return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d finding(s)", len(errs)))
	}

	// Text format
	fmt.Fprintln(formatter.Writer, "✗ Validation failed")
	fmt.Fprintln(formatter.Writer)

	for _, e := range errs {
		fmt.Fprintf(formatter.Writer, "  %s\n\n", e.Error())
	}

	// Validation failures = exit code 1 (verification failure)
	return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d finding(s)", len(errs)))
}

// ValidateWorkload compiles and validates the workload at path.
// This is a helper function for external callers.
func ValidateWorkload(path string) ([]workload.ValidationError, error) {
	plan, err := LoadWorkload(path)
	if err != nil {
		return nil, err
	}
	return workload.Validate(plan), nil
}
