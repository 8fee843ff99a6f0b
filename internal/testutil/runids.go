// Package testutil provides deterministic stand-ins for the sources of
// nondeterminism in a run: run ids in place of driver.UUIDv7Source.
// The harness and the command tests lean on these to make golden
// traces byte-stable.
package testutil

import (
	"fmt"
	"sync"
)

// FixedRunIDs returns predetermined run ids in order.
//
// This enables deterministic test execution and golden trace
// comparison: tests provide a known sequence of ids and verify exact
// output.
//
// Thread-safety: FixedRunIDs is safe for concurrent use via internal
// mutex.
type FixedRunIDs struct {
	mu  sync.Mutex
	ids []string
	idx int
}

// NewFixedRunIDs creates a source that returns ids in order.
//
// Example:
//
//	src := NewFixedRunIDs("run-1", "run-2")
//	src.NewRunID() // "run-1"
//	src.NewRunID() // "run-2"
//	src.NewRunID() // panic: all ids exhausted
func NewFixedRunIDs(ids ...string) *FixedRunIDs {
	return &FixedRunIDs{ids: ids}
}

// NewRunID returns the next predetermined id.
//
// Panics when all ids have been consumed. This is a fail-fast approach
// to catch test misconfiguration (the test executed more runs than it
// expected).
func (s *FixedRunIDs) NewRunID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.idx >= len(s.ids) {
		panic("FixedRunIDs: all ids exhausted")
	}
	id := s.ids[s.idx]
	s.idx++
	return id
}

// SeqRunIDs mints "run-000001", "run-000002", ... from a monotonic
// counter. Unlike FixedRunIDs it never exhausts, so a scenario may
// execute any number of runs and still get stable ids.
//
// Thread-safety: all methods are safe for concurrent use via internal
// mutex.
type SeqRunIDs struct {
	mu     sync.Mutex
	prefix string
	seq    int64
}

// NewSeqRunIDs creates a sequential source. An empty prefix defaults
// to "run".
func NewSeqRunIDs(prefix string) *SeqRunIDs {
	if prefix == "" {
		prefix = "run"
	}
	return &SeqRunIDs{prefix: prefix}
}

// NewRunID increments the counter and returns the next id.
func (s *SeqRunIDs) NewRunID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	return fmt.Sprintf("%s-%06d", s.prefix, s.seq)
}

// Current returns the number of ids handed out so far.
func (s *SeqRunIDs) Current() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seq
}

// Reset rewinds the counter so the next id is "<prefix>-000001" again.
// Used when one scenario is executed several times and each execution
// should see the same ids.
func (s *SeqRunIDs) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq = 0
}
