package engine

import "sync/atomic"

// Engine is the process-wide execution support handle: it owns the pass
// queue and the pending-flush counter shared by every outbox it creates.
//
// Exactly one Engine is constructed at startup and passed explicitly to
// the components that need it. There is no package-level instance.
//
// Thread-safety model:
//   - Queue().Post: any goroutine
//   - Drain: exactly one goroutine per pass
//   - NewOutbox: any goroutine; the returned outbox belongs to its caller
//   - PendingFlush: any goroutine
type Engine struct {
	queue   *EvalQueue
	pending atomic.Int64
}

// New creates an engine with an empty pass queue.
func New() *Engine {
	return &Engine{queue: NewEvalQueue()}
}

// Queue returns the shared pass queue.
func (e *Engine) Queue() *EvalQueue {
	return e.queue
}

// NewOutbox creates an outbox owned by the calling worker, with no
// active task.
func (e *Engine) NewOutbox() *Outbox {
	return &Outbox{engine: e}
}

// Drain services the pass queue until it is empty.
// Must be called from exactly one goroutine, after every worker for the
// pass has flushed its outbox.
func (e *Engine) Drain() {
	e.queue.Drain()
}

// PendingFlush returns the number of messages buffered across all
// outboxes and not yet flushed. The scheduler asserts this is zero at
// pass teardown; see the Outbox documentation for why a leftover is
// unrecoverable.
func (e *Engine) PendingFlush() int64 {
	return e.pending.Load()
}
