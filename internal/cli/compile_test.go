package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/strobesim/strobe/internal/workload"
)

const compileWorkloadSrc = `workload: {
	name: "probe"
	scopes: [{name: "top", module: true}]
	exports: ["clk"]
	files: [{name: "run.log", multi: true}]
	tasks: [
		{name: "tick", actions: [
			{kind: "emit", text: "tick"},
			{kind: "write", file: "run.log", text: "tick logged"},
		]},
		{name: "tock", after: ["tick"], actions: [{kind: "export", name: "clk"}]},
	]
}
`

func TestCompileValidWorkload(t *testing.T) {
	path := writeWorkloadFile(t, compileWorkloadSrc)

	var buf bytes.Buffer
	cmd := NewCompileCommand(&RootOptions{Format: "text"})
	cmd.SetOut(&buf)
	cmd.SetErr(&buf)
	cmd.SetArgs([]string{path})

	err := cmd.Execute()
	require.NoError(t, err)

	output := buf.String()
	assert.Contains(t, output, `✓ Compiled workload "probe"`)
	assert.Contains(t, output, "1 pass(es), 2 task(s), 3 action(s)")
	assert.Contains(t, output, "1 scope(s), 1 export(s), 1 file(s)")
	assert.Contains(t, output, "Tasks:")
	assert.Contains(t, output, "tick: 2 action(s)")
	assert.Contains(t, output, "tock: 1 action(s), after tick")
}

func TestCompileJSON(t *testing.T) {
	path := writeWorkloadFile(t, compileWorkloadSrc)

	var buf bytes.Buffer
	cmd := NewCompileCommand(&RootOptions{Format: "json"})
	cmd.SetOut(&buf)
	cmd.SetErr(&buf)
	cmd.SetArgs([]string{path})

	err := cmd.Execute()
	require.NoError(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)

	data, ok := resp.Data.(map[string]interface{})
	require.True(t, ok)

	id, ok := data["workload_id"].(string)
	require.True(t, ok)
	assert.Len(t, id, 64) // SHA-256 hex

	plan, ok := data["plan"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "probe", plan["name"])
}

func TestCompileOutputFile(t *testing.T) {
	path := writeWorkloadFile(t, compileWorkloadSrc)
	outPath := filepath.Join(t.TempDir(), "plan.json")

	var buf bytes.Buffer
	cmd := NewCompileCommand(&RootOptions{Format: "text"})
	cmd.SetOut(&buf)
	cmd.SetErr(&buf)
	cmd.SetArgs([]string{path, "-o", outPath})

	err := cmd.Execute()
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "Wrote compiled plan to "+outPath)

	data, err := os.ReadFile(outPath)
	require.NoError(t, err)

	var result CompilationResult
	require.NoError(t, json.Unmarshal(data, &result))
	assert.Len(t, result.WorkloadID, 64)
	require.NotNil(t, result.Plan)
	assert.Equal(t, "probe", result.Plan.Name)
	assert.Len(t, result.Plan.Tasks, 2)
}

func TestCompileDeterministicID(t *testing.T) {
	// Field order and formatting in the source must not change the id.
	reordered := `workload: {
	tasks: [
		{name: "tick", actions: [
			{text: "tick", kind: "emit"},
			{kind: "write", text: "tick logged", file: "run.log"},
		]},
		{actions: [{kind: "export", name: "clk"}], name: "tock", after: ["tick"]},
	]
	files: [{multi: true, name: "run.log"}]
	exports: ["clk"]
	scopes: [{module: true, name: "top"}]
	name: "probe"
}
`

	compileID := func(src string) string {
		path := writeWorkloadFile(t, src)
		var buf bytes.Buffer
		cmd := NewCompileCommand(&RootOptions{Format: "json"})
		cmd.SetOut(&buf)
		cmd.SetErr(&buf)
		cmd.SetArgs([]string{path})
		require.NoError(t, cmd.Execute())

		var resp CLIResponse
		require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
		data := resp.Data.(map[string]interface{})
		return data["workload_id"].(string)
	}

	assert.Equal(t, compileID(compileWorkloadSrc), compileID(reordered))
}

func TestCompileSchemaFindings(t *testing.T) {
	path := writeWorkloadFile(t, `workload: {
	name: "probe"
	tasks: [
		{name: "tick", actions: [{kind: "write", file: "log.txt"}]},
	]
}
`)

	var buf bytes.Buffer
	cmd := NewCompileCommand(&RootOptions{Format: "text"})
	cmd.SetOut(&buf)
	cmd.SetErr(&buf)
	cmd.SetArgs([]string{path})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "compilation failed with 1 error(s)")
	// Findings block compile output entirely, so they rank as command
	// errors here, unlike validate where they are the verification verdict.
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	output := buf.String()
	assert.Contains(t, output, "✗ Compilation failed")
	assert.Contains(t, output, "E110")
}

func TestCompileSchemaFindingsJSON(t *testing.T) {
	path := writeWorkloadFile(t, `workload: {
	name: "probe"
	tasks: [
		{name: "tick", actions: [{kind: "write", file: "log.txt"}]},
	]
}
`)

	var buf bytes.Buffer
	cmd := NewCompileCommand(&RootOptions{Format: "json"})
	cmd.SetOut(&buf)
	cmd.SetErr(&buf)
	cmd.SetArgs([]string{path})

	err := cmd.Execute()
	require.Error(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "E110", resp.Error.Code)

	all, ok := resp.Data.([]interface{})
	require.True(t, ok)
	assert.Len(t, all, 1)
}

func TestCompileNonExistentPath(t *testing.T) {
	var buf bytes.Buffer
	cmd := NewCompileCommand(&RootOptions{Format: "text"})
	cmd.SetOut(&buf)
	cmd.SetErr(&buf)
	cmd.SetArgs([]string{"/nonexistent/workload.cue"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "E005")
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestCompileVerbose(t *testing.T) {
	path := writeWorkloadFile(t, compileWorkloadSrc)

	var out, errOut bytes.Buffer
	cmd := NewCompileCommand(&RootOptions{Format: "text", Verbose: true})
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs([]string{path})

	err := cmd.Execute()
	require.NoError(t, err)
	assert.Contains(t, errOut.String(), "Compiling task: tick")
	assert.Contains(t, errOut.String(), "Compiling task: tock")
}

func TestCalculateStats(t *testing.T) {
	plan, err := workload.CompileString(compileWorkloadSrc)
	require.NoError(t, err)

	stats := calculateStats(plan)
	assert.Equal(t, 2, stats.Tasks)
	assert.Equal(t, 3, stats.Actions)
	assert.Equal(t, 1, stats.Scopes)
	assert.Equal(t, 1, stats.Exports)
	assert.Equal(t, 1, stats.Files)
}
