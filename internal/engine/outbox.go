package engine

// Outbox buffers messages produced by one worker until the scheduler
// flushes them into the pass queue.
//
// A worker owns exactly one outbox: SetTask, Post, and Flush must be
// called only by the owning goroutine. The explicit handle replaces the
// thread-local storage a scheduler would otherwise reach for; the
// scheduler tells the outbox which task is running via SetTask.
//
// Buffered messages are invisible to every other goroutine until Flush.
// The outbox is never flushed automatically: the scheduler flushes it
// once the task's ordering dependencies are no longer ambiguous,
// typically at the end of the pass. An outbox still holding messages at
// process teardown is a programming error - the destination queue is not
// known here, so the buffered actions are lost.
type Outbox struct {
	engine *Engine
	task   uint32
	buf    []Msg
}

// SetTask records the task the owning worker is currently executing.
// Use NoTask when the worker is between tasks.
func (o *Outbox) SetTask(id uint32) {
	o.task = id
}

// Task returns the current task id.
func (o *Outbox) Task() uint32 {
	return o.task
}

// Post defers fn until the pass queue drains.
//
// If no task is active the action runs synchronously before Post returns
// and never reaches any queue; there is nothing to order it against.
// Otherwise the action is buffered tagged with the current task id, and
// the engine's pending-flush counter is incremented so the scheduler can
// tell that unflushed work exists somewhere.
func (o *Outbox) Post(fn func()) {
	if o.task == NoTask {
		fn()
		return
	}
	o.buf = append(o.buf, NewMsg(o.task, fn))
	o.engine.pending.Add(1)
}

// Flush posts every buffered message into q in FIFO order and empties
// the buffer, decrementing the pending-flush counter once per message.
// Flushing an empty outbox is a no-op.
func (o *Outbox) Flush(q *EvalQueue) {
	for i, m := range o.buf {
		q.Post(m)
		o.buf[i] = Msg{} // release the closure
		o.engine.pending.Add(-1)
	}
	o.buf = o.buf[:0]
}

// Len returns the number of buffered messages.
func (o *Outbox) Len() int {
	return len(o.buf)
}
