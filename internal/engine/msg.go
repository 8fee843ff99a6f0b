package engine

// NoTask is the task id of code running outside any scheduled task,
// such as a top-level initialization action. Actions posted under NoTask
// bypass queueing entirely and run at the point of submission.
const NoTask uint32 = 0

// Msg pairs a deferred action with the id of the task that produced it.
//
// The task id is snapshotted at construction and never changes afterward,
// so a posted message's position in the drain order is independent of
// whatever the producing worker does next. Messages are small values and
// are copied into whichever buffer currently holds them; that buffer is
// solely responsible for the message's lifetime.
type Msg struct {
	task uint32
	fn   func()
}

// NewMsg creates a message tagged with the given originating task id.
func NewMsg(task uint32, fn func()) Msg {
	return Msg{task: task, fn: fn}
}

// Task returns the originating task id snapshotted at construction.
func (m Msg) Task() uint32 {
	return m.task
}

// Run invokes the stored action.
func (m Msg) Run() {
	m.fn()
}
