// Package engine implements the deferred-action machinery of the Strobe
// runtime: cross-thread message passing with deterministic ordering.
//
// ARCHITECTURE:
//
// Three pieces cooperate:
//
//   - Msg: an action paired with the id of the task that produced it.
//   - Outbox: a per-worker FIFO buffer. Workers post side effects here
//     while executing tasks; nothing is visible outside the worker until
//     the scheduler flushes the outbox at a pass boundary.
//   - EvalQueue: the shared inbox for one evaluation pass. It collects
//     flushed messages from all workers and is drained by a single
//     consumer in ascending task id order.
//
// Tasks execute in parallel and complete in any order, but simulation
// correctness depends on side effects applying in the order sequential
// execution would have produced. Task ids are assigned consistently with
// that order, so sorting by task id reconstructs deterministic behavior
// regardless of actual thread scheduling. Messages with equal task ids
// drain in arrival order.
//
// Posting under the NoTask sentinel runs the action synchronously at the
// call site: code executing outside any task has nothing to order against.
//
// The consumer busy-polls an atomic depth counter rather than blocking on
// a condition variable, trading a little CPU for latency; producers are
// actively working during the same pass and queue residency is
// short-lived.
//
// CRITICAL PATTERNS:
//
// Exactly-once delivery:
// Every posted message runs exactly once during the drain that follows.
// There is no cancellation; once posted, a message cannot be withdrawn.
//
// Run-outside-lock:
// The consumer removes a message under the queue lock but runs it after
// releasing the lock. A nested Post from inside a draining action must
// never deadlock or serialize unrelated producers.
package engine
