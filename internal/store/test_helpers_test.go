package store

import (
	"path/filepath"
	"testing"

	"github.com/strobesim/strobe/internal/driver"
)

// createTestStore creates a file-backed store in a test temp dir.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestResult builds a run result with a small fixed trace.
func createTestResult(runID string, seed int64) *driver.Result {
	return &driver.Result{
		RunID:         runID,
		Workload:      "pipeline",
		WorkloadID:    "workload-aaa",
		EngineVersion: "0.1.0",
		Passes:        1,
		Workers:       2,
		Seed:          seed,
		Events: []driver.Event{
			{Seq: 1, Pass: 0, Task: 0, Kind: "pass", Label: "begin"},
			{Seq: 2, Pass: 0, Task: 1, Kind: "emit", Label: "fetch ready"},
			{Seq: 3, Pass: 0, Task: 2, Kind: "emit", Label: "decode ready"},
		},
		TraceHash: "trace-hash-one",
	}
}
