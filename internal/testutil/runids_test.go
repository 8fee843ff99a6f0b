package testutil

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFixedRunIDs_ReturnsInOrder(t *testing.T) {
	src := NewFixedRunIDs("run-a", "run-b", "run-c")
	assert.Equal(t, "run-a", src.NewRunID())
	assert.Equal(t, "run-b", src.NewRunID())
	assert.Equal(t, "run-c", src.NewRunID())
}

func TestFixedRunIDs_PanicsWhenExhausted(t *testing.T) {
	src := NewFixedRunIDs("only")
	src.NewRunID()
	assert.Panics(t, func() { src.NewRunID() })
}

func TestFixedRunIDs_EmptyPanicsImmediately(t *testing.T) {
	src := NewFixedRunIDs()
	assert.Panics(t, func() { src.NewRunID() })
}

func TestSeqRunIDs_Sequence(t *testing.T) {
	src := NewSeqRunIDs("trial")
	assert.Equal(t, "trial-000001", src.NewRunID())
	assert.Equal(t, "trial-000002", src.NewRunID())
	assert.Equal(t, int64(2), src.Current())
}

func TestSeqRunIDs_DefaultPrefix(t *testing.T) {
	src := NewSeqRunIDs("")
	assert.Equal(t, "run-000001", src.NewRunID())
}

func TestSeqRunIDs_Reset(t *testing.T) {
	src := NewSeqRunIDs("run")
	src.NewRunID()
	src.NewRunID()
	src.Reset()
	assert.Equal(t, "run-000001", src.NewRunID())
}

func TestSeqRunIDs_ConcurrentUnique(t *testing.T) {
	src := NewSeqRunIDs("run")

	const n = 50
	var wg sync.WaitGroup
	ids := make(chan string, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ids <- src.NewRunID()
		}()
	}
	wg.Wait()
	close(ids)

	seen := make(map[string]bool)
	for id := range ids {
		require.False(t, seen[id], "duplicate id %s", id)
		seen[id] = true
	}
	assert.Len(t, seen, n)
}
