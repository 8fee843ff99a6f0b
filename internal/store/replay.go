package store

import (
	"context"
	"fmt"
)

// RunDiff is the outcome of comparing two stored runs event by event.
type RunDiff struct {
	RunA string
	RunB string
	// Equal is true when both runs carry the same trace hash and
	// byte-identical event streams.
	Equal bool
	// FirstDivergence is the index of the first differing event, or -1
	// when the runs agree or differ only in length.
	FirstDivergence int
	// Detail is a human-readable description of the divergence, empty
	// when the runs agree.
	Detail string
}

// CompareRuns compares the stored traces of two runs. The runs agree
// when their trace hashes match and their event streams are identical
// event for event; anything else is reported with the first point of
// divergence.
//
// Returns an error if either run does not exist.
func (s *Store) CompareRuns(ctx context.Context, aID, bID string) (RunDiff, error) {
	diff := RunDiff{RunA: aID, RunB: bID, FirstDivergence: -1}

	runA, err := s.ReadRun(ctx, aID)
	if err != nil {
		return diff, fmt.Errorf("compare runs: read %s: %w", aID, err)
	}
	runB, err := s.ReadRun(ctx, bID)
	if err != nil {
		return diff, fmt.Errorf("compare runs: read %s: %w", bID, err)
	}

	eventsA, err := s.ReadEvents(ctx, aID)
	if err != nil {
		return diff, fmt.Errorf("compare runs: %w", err)
	}
	eventsB, err := s.ReadEvents(ctx, bID)
	if err != nil {
		return diff, fmt.Errorf("compare runs: %w", err)
	}

	if len(eventsA) != len(eventsB) {
		diff.Detail = fmt.Sprintf("event count mismatch: %d vs %d", len(eventsA), len(eventsB))
		return diff, nil
	}
	for i := range eventsA {
		if eventsA[i] != eventsB[i] {
			diff.FirstDivergence = i
			diff.Detail = fmt.Sprintf("event %d diverges: %q vs %q",
				i, eventsA[i].String(), eventsB[i].String())
			return diff, nil
		}
	}
	if runA.TraceHash != runB.TraceHash {
		// Identical events but different hashes can only mean a hash
		// recorded under a different algorithm or a corrupted row.
		diff.Detail = fmt.Sprintf("trace hash mismatch: %s vs %s", runA.TraceHash, runB.TraceHash)
		return diff, nil
	}

	diff.Equal = true
	return diff, nil
}

// VerifyReport summarizes a determinism check across every stored run
// of one workload.
type VerifyReport struct {
	WorkloadID string
	// Runs is the number of stored runs examined.
	Runs int
	// Consistent is true when every run agrees with the first.
	Consistent bool
	// Mismatches lists one diff per run that diverged from the first.
	Mismatches []RunDiff
}

// VerifyWorkload compares every stored run of a workload against the
// earliest one. A deterministic engine must store the same trace for
// every run of a workload regardless of worker count or seed, so a
// single mismatch is a defect worth flagging.
//
// A workload with zero or one stored runs is trivially consistent.
func (s *Store) VerifyWorkload(ctx context.Context, workloadID string) (VerifyReport, error) {
	report := VerifyReport{WorkloadID: workloadID, Consistent: true}

	runs, err := s.ListRunsForWorkload(ctx, workloadID)
	if err != nil {
		return report, fmt.Errorf("verify workload: %w", err)
	}
	report.Runs = len(runs)
	if len(runs) < 2 {
		return report, nil
	}

	base := runs[0]
	for _, r := range runs[1:] {
		diff, err := s.CompareRuns(ctx, base.ID, r.ID)
		if err != nil {
			return report, fmt.Errorf("verify workload: %w", err)
		}
		if !diff.Equal {
			report.Consistent = false
			report.Mismatches = append(report.Mismatches, diff)
		}
	}
	return report, nil
}
