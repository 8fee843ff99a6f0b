package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/strobesim/strobe/internal/workload"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	Output string // output file path
}

// CompilationResult holds the compiled plan and its content identity.
type CompilationResult struct {
	WorkloadID string         `json:"workload_id"`
	Plan       *workload.Plan `json:"plan"`
}

// CompilationStats holds summary statistics.
type CompilationStats struct {
	Tasks   int
	Actions int
	Scopes  int
	Exports int
	Files   int
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile <workload-path>",
		Short: "Compile a CUE workload to its canonical plan",
		Long: `Compile a CUE workload into the plan the driver executes.

The compiler parses the CUE source, validates it against the workload
schema, and reports the content-addressed workload id. Two sources that
compile to the same plan share one id even when their text differs.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors - we handle our own error output
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "output file path")

	return cmd
}

func runCompile(opts *CompileOptions, workloadPath string, cmd *cobra.Command) error {
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
			return outputCompileError(formatter, loadErr.Code, loadErr.Message, nil)
		}
		return outputCompileError(formatter, ErrCodeGeneric, err.Error(), nil)
	}

	for _, task := range plan.Tasks {
		formatter.VerboseLog("Compiling task: %s", task.Name)
	}

	// Schema findings block compilation
	if findings := workload.Validate(plan); len(findings) > 0 {
		return outputCompileErrors(formatter, findings)
	}

	id, err := plan.ID()
	if err != nil {
		return outputCompileError(formatter, ErrCodeGeneric, fmt.Sprintf("hashing workload: %v", err), nil)
	}

	result := &CompilationResult{
		WorkloadID: id,
		Plan:       plan,
	}

	// Calculate statistics
	stats := calculateStats(plan)

	// Write to file if --output specified
	if opts.Output != "" {
		if err := writePlanToFile(result, opts.Output); err != nil {
			return outputCompileError(formatter, ErrCodeWriteFailed, fmt.Sprintf("writing output file: %v", err), nil)
		}
	}

	// Output success
	return outputCompileSuccess(formatter, result, stats, opts.Output)
}

// calculateStats computes summary statistics from a compiled plan.
func calculateStats(plan *workload.Plan) CompilationStats {
	stats := CompilationStats{
		Tasks:   len(plan.Tasks),
		Scopes:  len(plan.Scopes),
		Exports: len(plan.Exports),
		Files:   len(plan.Files),
	}

	for _, task := range plan.Tasks {
		stats.Actions += len(task.Actions)
	}

	return stats
}

// outputCompileSuccess outputs successful compilation results.
func outputCompileSuccess(formatter *OutputFormatter, result *CompilationResult, stats CompilationStats, outputFile string) error {
	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	// Human-readable text output
	fmt.Fprintf(formatter.Writer, "✓ Compiled workload %q (id %s)\n\n",
		result.Plan.Name, shortHash(result.WorkloadID))
	fmt.Fprintf(formatter.Writer, "  %d pass(es), %d task(s), %d action(s)\n",
		result.Plan.Passes, stats.Tasks, stats.Actions)
	fmt.Fprintf(formatter.Writer, "  %d scope(s), %d export(s), %d file(s)\n\n",
		stats.Scopes, stats.Exports, stats.Files)

	if len(result.Plan.Tasks) > 0 {
		fmt.Fprintln(formatter.Writer, "Tasks:")
		for _, task := range result.Plan.Tasks {
			if len(task.After) > 0 {
				fmt.Fprintf(formatter.Writer, "  %s: %d action(s), after %s\n",
					task.Name, len(task.Actions), strings.Join(task.After, ", "))
			} else {
				fmt.Fprintf(formatter.Writer, "  %s: %d action(s)\n",
					task.Name, len(task.Actions))
			}
		}
		fmt.Fprintln(formatter.Writer)
	}

	if outputFile != "" {
		fmt.Fprintf(formatter.Writer, "Wrote compiled plan to %s\n", outputFile)
	}

	return nil
}

// outputCompileError outputs a single compilation error.
func outputCompileError(formatter *OutputFormatter, code, message string, details interface{}) error {
	_ = formatter.Error(code, message, details)
	// Compilation errors are command-level errors (exit code 2)
	return WrapExitError(ExitCommandError, fmt.Sprintf("%s: %s", code, message), nil)
}

// outputCompileErrors outputs schema findings that block compilation.
func outputCompileErrors(formatter *OutputFormatter, errs []workload.ValidationError) error {
	if formatter.Format == "json" {
		// JSON format - use CLIResponse with first error
		cliErrors := make([]CLIError, len(errs))
		for i, e := range errs {
			cliErrors[i] = CLIError{
				Code:    e.Code,
				Message: fmt.Sprintf("%s: %s", e.Field, e.Message),
			}
		}

		response := CLIResponse{
			Status: "error",
			Error:  &cliErrors[0],
			Data:   cliErrors, // Include all errors in data
		}

		encoder := json.NewEncoder(formatter.Writer)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(response); err != nil {
			return err
		}

		// Compilation errors are command-level errors (exit code 2)
		return NewExitError(ExitCommandError, fmt.Sprintf("compilation failed with %d error(s)", len(errs)))
	}

	// Text format
	fmt.Fprintln(formatter.Writer, "✗ Compilation failed")
	fmt.Fprintln(formatter.Writer)

	for _, e := range errs {
		fmt.Fprintf(formatter.Writer, "  %s\n\n", e.Error())
	}

	// Compilation errors are command-level errors (exit code 2)
	return NewExitError(ExitCommandError, fmt.Sprintf("compilation failed with %d error(s)", len(errs)))
}

// writePlanToFile writes the compilation result to a file.
func writePlanToFile(result *CompilationResult, filename string) error {
	// Standard JSON with indentation for readability
	// (canonical JSON without indentation is used only for hashing)
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling plan: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("writing file: %w", err)
	}

	return nil
}
