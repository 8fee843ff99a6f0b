package driver

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrace_RecordAssignsAscendingSeq(t *testing.T) {
	tr := NewTrace()
	tr.Record(0, 0, "pass", "begin")
	tr.Record(0, 3, "emit", "hello")
	tr.Record(1, 1, "emit", "world")

	events := tr.Events()
	require.Len(t, events, 3)
	assert.Equal(t, Event{Seq: 1, Pass: 0, Task: 0, Kind: "pass", Label: "begin"}, events[0])
	assert.Equal(t, Event{Seq: 2, Pass: 0, Task: 3, Kind: "emit", Label: "hello"}, events[1])
	assert.Equal(t, Event{Seq: 3, Pass: 1, Task: 1, Kind: "emit", Label: "world"}, events[2])
}

func TestTrace_EventsReturnsACopy(t *testing.T) {
	tr := NewTrace()
	tr.Record(0, 1, "emit", "a")

	events := tr.Events()
	events[0].Label = "mutated"

	assert.Equal(t, "a", tr.Events()[0].Label)
}

func TestTrace_Lines(t *testing.T) {
	tr := NewTrace()
	tr.Record(0, 0, "pass", "begin")
	tr.Record(0, 2, "plusarg", "mode= miss")

	assert.Equal(t, []string{
		"1 0 0 pass begin",
		"2 0 2 plusarg mode= miss",
	}, tr.Lines())
}

func TestTrace_ConcurrentReaders(t *testing.T) {
	tr := NewTrace()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 500; i++ {
			tr.Record(0, uint32(i%7), "emit", "x")
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 500; i++ {
			_ = tr.Len()
			_ = tr.Events()
		}
	}()
	wg.Wait()

	assert.Equal(t, 500, tr.Len())
}

func TestEvent_String(t *testing.T) {
	e := Event{Seq: 12, Pass: 3, Task: 7, Kind: "export", Label: "tick=0"}
	assert.Equal(t, "12 3 7 export tick=0", e.String())
}
