package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/strobesim/strobe/internal/driver"
)

// WriteRun persists a completed run and its full trace in a single
// transaction. Uses ON CONFLICT DO NOTHING for idempotency - writing
// the same run twice is silently ignored, so a crashed CLI can retry
// without special casing.
func (s *Store) WriteRun(ctx context.Context, res *driver.Result) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("write run: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs
		(id, workload_id, workload_name, trace_hash, passes, workers, seed, engine_version)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		res.RunID,
		res.WorkloadID,
		res.Workload,
		res.TraceHash,
		res.Passes,
		res.Workers,
		res.Seed,
		res.EngineVersion,
	)
	if err != nil {
		return fmt.Errorf("write run: insert run: %w", err)
	}

	for _, e := range res.Events {
		if err := insertEvent(ctx, tx, res.RunID, e); err != nil {
			return fmt.Errorf("write run: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("write run: commit: %w", err)
	}
	return nil
}

// WriteEvent inserts a single trace event outside any transaction.
// Uses ON CONFLICT(run_id, seq) DO NOTHING for idempotency.
//
// Note: The run referenced by runID must exist (foreign key constraint).
func (s *Store) WriteEvent(ctx context.Context, runID string, e driver.Event) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO events
		(run_id, seq, pass, task, kind, label)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_id, seq) DO NOTHING
	`,
		runID, e.Seq, e.Pass, e.Task, e.Kind, e.Label,
	)
	if err != nil {
		return fmt.Errorf("write event: %w", err)
	}
	return nil
}

// insertEvent writes one event row inside an open transaction.
func insertEvent(ctx context.Context, tx *sql.Tx, runID string, e driver.Event) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO events
		(run_id, seq, pass, task, kind, label)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_id, seq) DO NOTHING
	`,
		runID, e.Seq, e.Pass, e.Task, e.Kind, e.Label,
	)
	if err != nil {
		return fmt.Errorf("insert event seq %d: %w", e.Seq, err)
	}
	return nil
}
