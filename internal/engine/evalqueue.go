package engine

import (
	"container/heap"
	"sync"
	"sync/atomic"
)

// EvalQueue is the shared ordered inbox for one evaluation pass.
//
// Any number of producers may Post concurrently; exactly one consumer
// drains. Messages drain in ascending task id order regardless of how
// posts interleave; messages with equal task ids drain in arrival order.
//
// Tracking depth is redundant with the heap length, but on the consumer
// side testing an atomic is much cheaper than taking the mutex, and the
// drain loop tests it on every iteration. Posts increment depth under
// the lock after inserting, so a nonzero depth observed by the consumer
// guarantees a non-empty heap once the lock is acquired. The consumer
// decrements outside the lock after removal, which is safe because only
// the consumer removes.
type EvalQueue struct {
	mu       sync.Mutex
	msgs     msgHeap
	arrivals uint64 // next arrival stamp, guarded by mu
	depth    atomic.Int64
}

// NewEvalQueue creates an empty queue.
func NewEvalQueue() *EvalQueue {
	return &EvalQueue{}
}

// Post adds a message to the queue.
// Thread-safe: may be called from any goroutine, including from inside
// an action currently being drained.
func (q *EvalQueue) Post(m Msg) {
	q.mu.Lock()
	heap.Push(&q.msgs, queued{msg: m, arrival: q.arrivals})
	q.arrivals++
	q.depth.Add(1)
	q.mu.Unlock()
}

// Drain runs queued actions in ascending task id order until the queue
// is empty, including messages posted while draining.
//
// Must be called from exactly one goroutine; a second concurrent drainer
// would break the decrement-outside-lock discipline. Each action runs
// with the queue lock released, so a nested Post cannot deadlock and
// does not serialize unrelated producers.
func (q *EvalQueue) Drain() {
	for q.depth.Load() != 0 {
		q.mu.Lock()
		e := heap.Pop(&q.msgs).(queued)
		q.mu.Unlock()
		q.depth.Add(-1)
		e.msg.Run()
	}
}

// Depth returns the number of queued messages.
// Lock-free; producers may race it, so the value is a snapshot.
func (q *EvalQueue) Depth() int64 {
	return q.depth.Load()
}

// queued is a message plus the arrival stamp used to break ties among
// equal task ids.
type queued struct {
	msg     Msg
	arrival uint64
}

// msgHeap is a min-heap ordered by (task id, arrival).
type msgHeap []queued

func (h msgHeap) Len() int { return len(h) }

func (h msgHeap) Less(i, j int) bool {
	if h[i].msg.task != h[j].msg.task {
		return h[i].msg.task < h[j].msg.task
	}
	return h[i].arrival < h[j].arrival
}

func (h msgHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *msgHeap) Push(x any) { *h = append(*h, x.(queued)) }

func (h *msgHeap) Pop() any {
	old := *h
	n := len(old)
	e := old[n-1]
	// Nil out the slot so the underlying array does not retain the
	// message's closure until reallocated.
	old[n-1] = queued{}
	*h = old[:n-1]
	return e
}
