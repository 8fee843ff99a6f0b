package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOutputFormatter_JSONSuccess(t *testing.T) {
	var buf bytes.Buffer
	formatter := &OutputFormatter{
		Format: "json",
		Writer: &buf,
	}

	data := map[string]string{"workload": "probe"}
	err := formatter.Success(data)
	require.NoError(t, err)

	var resp CLIResponse
	err = json.Unmarshal(buf.Bytes(), &resp)
	require.NoError(t, err)

	assert.Equal(t, "ok", resp.Status)
	assert.NotNil(t, resp.Data)
	assert.Nil(t, resp.Error)
}

func TestOutputFormatter_JSONError(t *testing.T) {
	var buf bytes.Buffer
	formatter := &OutputFormatter{
		Format: "json",
		Writer: &buf,
	}

	err := formatter.Error("E005", "workload path not found", nil)
	require.NoError(t, err)

	var resp CLIResponse
	err = json.Unmarshal(buf.Bytes(), &resp)
	require.NoError(t, err)

	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "E005", resp.Error.Code)
	assert.Equal(t, "workload path not found", resp.Error.Message)
}

func TestOutputFormatter_JSONErrorWithDetails(t *testing.T) {
	var buf bytes.Buffer
	formatter := &OutputFormatter{
		Format: "json",
		Writer: &buf,
	}

	details := map[string]int{"findings": 3}
	err := formatter.Error("E006", "compile failed", details)
	require.NoError(t, err)

	var resp CLIResponse
	err = json.Unmarshal(buf.Bytes(), &resp)
	require.NoError(t, err)

	require.NotNil(t, resp.Error)
	assert.NotNil(t, resp.Error.Details)
}

func TestOutputFormatter_TextSuccess(t *testing.T) {
	var buf bytes.Buffer
	formatter := &OutputFormatter{
		Format: "text",
		Writer: &buf,
	}

	err := formatter.Success("Run complete")
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "Run complete")
}

func TestOutputFormatter_TextError(t *testing.T) {
	var buf bytes.Buffer
	formatter := &OutputFormatter{
		Format: "text",
		Writer: &buf,
	}

	err := formatter.Error("E004", "reading workload file", nil)
	require.NoError(t, err)

	output := buf.String()
	assert.Contains(t, output, "Error [E004]")
	assert.Contains(t, output, "reading workload file")
}

func TestOutputFormatter_TextErrorVerbose(t *testing.T) {
	var buf bytes.Buffer
	formatter := &OutputFormatter{
		Format:  "text",
		Writer:  &buf,
		Verbose: true,
	}

	err := formatter.Error("E004", "reading workload file", "permission denied")
	require.NoError(t, err)

	output := buf.String()
	assert.Contains(t, output, "Details:")
	assert.Contains(t, output, "permission denied")
}

func TestOutputFormatter_VerboseLog(t *testing.T) {
	tests := []struct {
		name    string
		verbose bool
		want    bool
	}{
		{"verbose enabled", true, true},
		{"verbose disabled", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			formatter := &OutputFormatter{
				Format:  "text",
				Writer:  &buf,
				Verbose: tt.verbose,
			}

			formatter.VerboseLog("compiled %d task(s)", 4)

			if tt.want {
				assert.Contains(t, buf.String(), "compiled 4 task(s)")
			} else {
				assert.Empty(t, buf.String())
			}
		})
	}
}

func TestOutputFormatter_VerboseLogErrWriter(t *testing.T) {
	var out, errOut bytes.Buffer
	formatter := &OutputFormatter{
		Format:    "json",
		Writer:    &out,
		ErrWriter: &errOut,
		Verbose:   true,
	}

	formatter.VerboseLog("diagnostic line")

	// Verbose output must not corrupt the JSON stream on Writer.
	assert.Empty(t, out.String())
	assert.Contains(t, errOut.String(), "diagnostic line")
}

func TestCLIResponse_JSON(t *testing.T) {
	resp := CLIResponse{
		Status: "ok",
		Data:   map[string]int{"events": 12},
		RunID:  "run-000001",
	}

	data, err := json.Marshal(resp)
	require.NoError(t, err)

	assert.Contains(t, string(data), `"status":"ok"`)
	assert.Contains(t, string(data), `"run_id":"run-000001"`)
	assert.NotContains(t, string(data), "error")
}

func TestCLIError_JSON(t *testing.T) {
	cliErr := CLIError{
		Code:    "E110",
		Message: "unknown file",
	}

	data, err := json.Marshal(cliErr)
	require.NoError(t, err)

	assert.Contains(t, string(data), `"code":"E110"`)
	assert.NotContains(t, string(data), "details")
}

func TestExitError_Error(t *testing.T) {
	plain := NewExitError(ExitFailure, "validation failed")
	assert.Equal(t, "validation failed", plain.Error())

	wrapped := WrapExitError(ExitCommandError, "failed to open database", errors.New("disk I/O error"))
	assert.Equal(t, "failed to open database: disk I/O error", wrapped.Error())
}

func TestExitError_Unwrap(t *testing.T) {
	inner := errors.New("no such table")
	wrapped := WrapExitError(ExitCommandError, "failed to read run", inner)

	assert.ErrorIs(t, wrapped, inner)
}

func TestGetExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil exit error fields", NewExitError(ExitCommandError, "bad path"), ExitCommandError},
		{"verification failure", NewExitError(ExitFailure, "divergent trace"), ExitFailure},
		{"plain error defaults to failure", errors.New("boom"), ExitFailure},
		{"wrapped exit error", fmt.Errorf("context: %w", NewExitError(ExitCommandError, "inner")), ExitCommandError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, GetExitCode(tt.err))
		})
	}
}

func TestShortHash(t *testing.T) {
	full := "f2ca1bb6c7e907d06dafe4687e579fce76b37e4e93b7605022da52e6ccc26fd2"
	assert.Equal(t, "f2ca1bb6c7e9", shortHash(full))
	assert.Equal(t, "abc123", shortHash("abc123"))
	assert.Equal(t, "", shortHash(""))
}
