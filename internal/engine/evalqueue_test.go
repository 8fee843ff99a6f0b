package engine

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvalQueue_DrainsInTaskOrder(t *testing.T) {
	q := NewEvalQueue()

	var order []uint32
	for _, task := range []uint32{3, 1, 2} {
		task := task
		q.Post(NewMsg(task, func() { order = append(order, task) }))
	}

	q.Drain()

	assert.Equal(t, []uint32{1, 2, 3}, order)
	assert.Equal(t, int64(0), q.Depth())
}

func TestEvalQueue_EqualTasksDrainInArrivalOrder(t *testing.T) {
	q := NewEvalQueue()

	var order []string
	q.Post(NewMsg(2, func() { order = append(order, "a") }))
	q.Post(NewMsg(2, func() { order = append(order, "b") }))
	q.Post(NewMsg(1, func() { order = append(order, "c") }))
	q.Post(NewMsg(2, func() { order = append(order, "d") }))

	q.Drain()

	assert.Equal(t, []string{"c", "a", "b", "d"}, order)
}

func TestEvalQueue_Depth(t *testing.T) {
	q := NewEvalQueue()

	assert.Equal(t, int64(0), q.Depth())

	q.Post(NewMsg(1, func() {}))
	assert.Equal(t, int64(1), q.Depth())

	q.Post(NewMsg(2, func() {}))
	assert.Equal(t, int64(2), q.Depth())

	q.Drain()
	assert.Equal(t, int64(0), q.Depth())
}

func TestEvalQueue_DrainEmpty_NoOp(t *testing.T) {
	q := NewEvalQueue()
	q.Drain() // must return immediately
	assert.Equal(t, int64(0), q.Depth())
}

func TestEvalQueue_NestedPostDrainsInSamePass(t *testing.T) {
	q := NewEvalQueue()

	var order []string
	q.Post(NewMsg(1, func() {
		order = append(order, "outer")
		q.Post(NewMsg(7, func() { order = append(order, "nested") }))
	}))

	q.Drain()

	assert.Equal(t, []string{"outer", "nested"}, order)
	assert.Equal(t, int64(0), q.Depth())
}

func TestEvalQueue_ExactlyOnceUnderConcurrentPosts(t *testing.T) {
	q := NewEvalQueue()

	const producers = 8
	const msgsPerProducer = 200

	// Each producer posts under its own task id; counts are written only
	// from the drain goroutine, so no extra locking is needed there.
	counts := make(map[uint32]int)
	var drained []uint32

	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func(task uint32) {
			defer wg.Done()
			for i := 0; i < msgsPerProducer; i++ {
				q.Post(NewMsg(task, func() {
					counts[task]++
					drained = append(drained, task)
				}))
			}
		}(uint32(p + 1))
	}

	wg.Wait()
	require.Equal(t, int64(producers*msgsPerProducer), q.Depth())

	q.Drain()

	assert.Len(t, drained, producers*msgsPerProducer)
	for p := 1; p <= producers; p++ {
		assert.Equal(t, msgsPerProducer, counts[uint32(p)], "task %d", p)
	}

	// Non-decreasing task order across the whole drain.
	for i := 1; i < len(drained); i++ {
		require.LessOrEqual(t, drained[i-1], drained[i],
			"drain order regressed at index %d", i)
	}
}
