package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/strobesim/strobe/internal/driver"
)

// Run is one persisted workload execution.
type Run struct {
	ID            string
	WorkloadID    string
	WorkloadName  string
	TraceHash     string
	Passes        int64
	Workers       int64
	Seed          int64
	EngineVersion string
}

// ReadRun retrieves a single run by ID.
// Returns sql.ErrNoRows if not found.
func (s *Store) ReadRun(ctx context.Context, id string) (Run, error) {
	var r Run
	err := s.db.QueryRowContext(ctx, `
		SELECT id, workload_id, workload_name, trace_hash, passes, workers, seed, engine_version
		FROM runs
		WHERE id = ?
	`, id).Scan(
		&r.ID, &r.WorkloadID, &r.WorkloadName, &r.TraceHash,
		&r.Passes, &r.Workers, &r.Seed, &r.EngineVersion,
	)
	if err != nil {
		return Run{}, err
	}
	return r, nil
}

// ReadEvents returns the full trace of a run in drain order.
// Results are ordered by seq ASC so two reads of the same run always
// agree byte-for-byte.
//
// Returns an empty slice (not nil) if the run has no events.
func (s *Store) ReadEvents(ctx context.Context, runID string) ([]driver.Event, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, pass, task, kind, label
		FROM events
		WHERE run_id = ?
		ORDER BY seq ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var events []driver.Event
	for rows.Next() {
		var e driver.Event
		if err := rows.Scan(&e.Seq, &e.Pass, &e.Task, &e.Kind, &e.Label); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		events = append(events, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}

	// Return empty slice instead of nil
	if events == nil {
		events = []driver.Event{}
	}

	return events, nil
}

// ListRuns returns every stored run. Results are ordered by
// id COLLATE BINARY ASC; run ids are UUIDv7, so this is creation order.
//
// Returns an empty slice (not nil) if the store holds no runs.
func (s *Store) ListRuns(ctx context.Context) ([]Run, error) {
	return s.listRuns(ctx, `
		SELECT id, workload_id, workload_name, trace_hash, passes, workers, seed, engine_version
		FROM runs
		ORDER BY id COLLATE BINARY ASC
	`)
}

// ListRunsForWorkload returns every stored run of one workload,
// ordered by id COLLATE BINARY ASC.
//
// Returns an empty slice (not nil) if the workload has no runs.
func (s *Store) ListRunsForWorkload(ctx context.Context, workloadID string) ([]Run, error) {
	return s.listRuns(ctx, `
		SELECT id, workload_id, workload_name, trace_hash, passes, workers, seed, engine_version
		FROM runs
		WHERE workload_id = ?
		ORDER BY id COLLATE BINARY ASC
	`, workloadID)
}

func (s *Store) listRuns(ctx context.Context, query string, args ...any) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}

	if runs == nil {
		runs = []Run{}
	}

	return runs, nil
}

// scanRun scans a row into a Run struct.
func scanRun(rows *sql.Rows) (Run, error) {
	var r Run
	if err := rows.Scan(
		&r.ID, &r.WorkloadID, &r.WorkloadName, &r.TraceHash,
		&r.Passes, &r.Workers, &r.Seed, &r.EngineVersion,
	); err != nil {
		return Run{}, fmt.Errorf("scan run: %w", err)
	}
	return r, nil
}

// CountEvents returns the number of stored events for a run.
func (s *Store) CountEvents(ctx context.Context, runID string) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM events WHERE run_id = ?
	`, runID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count events: %w", err)
	}
	return count, nil
}
