package driver

import (
	"fmt"
	"sync"
)

// Event is one recorded trace entry: a drained action, or a sentinel
// action the scheduler ran inline. Seq is assigned when the action
// executes, so trace order is execution order.
type Event struct {
	Seq   int64  `json:"seq"`
	Pass  int64  `json:"pass"`
	Task  uint32 `json:"task"`
	Kind  string `json:"kind"`
	Label string `json:"label"`
}

// String renders the event as a stable single line. The replay check
// hashes these lines, so the format is part of the trace identity.
func (e Event) String() string {
	return fmt.Sprintf("%d %d %d %s %s", e.Seq, e.Pass, e.Task, e.Kind, e.Label)
}

// Trace accumulates the events of one run.
//
// Actions execute on the draining goroutine only, but the metrics
// collector may read the trace mid-run, so access is serialized.
type Trace struct {
	mu     sync.Mutex
	seq    int64
	events []Event
}

// NewTrace creates an empty trace. The first recorded event gets seq 1.
func NewTrace() *Trace {
	return &Trace{}
}

// Record appends an event and assigns it the next sequence number.
func (t *Trace) Record(pass int64, task uint32, kind, label string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.seq++
	t.events = append(t.events, Event{
		Seq:   t.seq,
		Pass:  pass,
		Task:  task,
		Kind:  kind,
		Label: label,
	})
}

// Events returns a copy of the recorded events in execution order.
func (t *Trace) Events() []Event {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Event, len(t.events))
	copy(out, t.events)
	return out
}

// Lines renders every event via Event.String, in execution order.
func (t *Trace) Lines() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	lines := make([]string, len(t.events))
	for i, e := range t.events {
		lines[i] = e.String()
	}
	return lines
}

// Len returns the number of recorded events.
func (t *Trace) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.events)
}
