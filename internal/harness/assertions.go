package harness

import (
	"fmt"
	"sort"
	"strings"

	"github.com/strobesim/strobe/internal/driver"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string         // Assertion type for categorization
	Expected string         // Human-readable expected outcome
	Actual   string         // Human-readable actual outcome
	Trace    []driver.Event // Reference trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	// Header with assertion type
	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)

	// Expected vs Actual (most important info)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nReference trace:\n")
		for _, event := range e.Trace {
			fmt.Fprintf(&buf, "  %s\n", event)
		}
	}

	return buf.String()
}

// eventMatches reports whether the event satisfies the assertion's
// kind/label filter. An empty field matches anything.
func eventMatches(e driver.Event, kind, label string) bool {
	if kind != "" && e.Kind != kind {
		return false
	}
	if label != "" && e.Label != label {
		return false
	}
	return true
}

// describeFilter renders a kind/label filter for failure messages.
func describeFilter(kind, label string) string {
	switch {
	case kind != "" && label != "":
		return fmt.Sprintf("kind %q label %q", kind, label)
	case kind != "":
		return fmt.Sprintf("kind %q", kind)
	default:
		return fmt.Sprintf("label %q", label)
	}
}

// assertTraceContains checks if the trace contains an event matching
// the assertion's kind/label filter.
func assertTraceContains(trace []driver.Event, assertion Assertion) error {
	for _, event := range trace {
		if eventMatches(event, assertion.Kind, assertion.Label) {
			return nil // Found matching event
		}
	}

	return &AssertionError{
		Type:     AssertTraceContains,
		Expected: fmt.Sprintf("event with %s", describeFilter(assertion.Kind, assertion.Label)),
		Actual:   "not found in trace",
		Trace:    trace,
	}
}

// assertTraceOrder checks if labels appear in the specified order.
// Labels don't need to be consecutive (intervening events are allowed).
func assertTraceOrder(trace []driver.Event, assertion Assertion) error {
	// Step 1: Find first position of each expected label
	positions := make(map[string]int)

	for i, event := range trace {
		for _, label := range assertion.Labels {
			if event.Label == label && positions[label] == 0 {
				positions[label] = i + 1 // 1-indexed for readability
			}
		}
	}

	// Step 2: Verify all labels found
	for _, label := range assertion.Labels {
		if positions[label] == 0 {
			return &AssertionError{
				Type:     AssertTraceOrder,
				Expected: fmt.Sprintf("all labels present: %v", assertion.Labels),
				Actual:   fmt.Sprintf("missing label: %s", label),
				Trace:    trace,
			}
		}
	}

	// Step 3: Verify order
	for i := 1; i < len(assertion.Labels); i++ {
		prev := assertion.Labels[i-1]
		curr := assertion.Labels[i]

		if positions[prev] >= positions[curr] {
			return &AssertionError{
				Type:     AssertTraceOrder,
				Expected: fmt.Sprintf("labels in order: %v", assertion.Labels),
				Actual: fmt.Sprintf("%s (pos %d) should be before %s (pos %d)",
					prev, positions[prev], curr, positions[curr]),
				Trace: trace,
			}
		}
	}

	return nil
}

// assertTraceCount checks if matching events appear exactly the
// specified number of times.
func assertTraceCount(trace []driver.Event, assertion Assertion) error {
	count := 0

	for _, event := range trace {
		if eventMatches(event, assertion.Kind, assertion.Label) {
			count++
		}
	}

	if count != assertion.Count {
		return &AssertionError{
			Type:     AssertTraceCount,
			Expected: fmt.Sprintf("%d events with %s", assertion.Count, describeFilter(assertion.Kind, assertion.Label)),
			Actual:   fmt.Sprintf("%d events", count),
			Trace:    trace,
		}
	}

	return nil
}

// assertIdenticalTraces checks that every matrix run reproduced the
// reference trace. Hashes compare first; on mismatch the events locate
// the first diverging sequence number for the failure message.
func assertIdenticalTraces(runs []*driver.Result) error {
	if len(runs) < 2 {
		return nil
	}

	ref := runs[0]
	for _, run := range runs[1:] {
		if run.TraceHash == ref.TraceHash {
			continue
		}

		var actual string
		if seq := firstDivergence(ref.Events, run.Events); seq >= 0 {
			actual = fmt.Sprintf("workers=%d seed=%d diverges at seq %d", run.Workers, run.Seed, seq)
		} else {
			actual = fmt.Sprintf("workers=%d seed=%d recorded %d events, reference has %d",
				run.Workers, run.Seed, len(run.Events), len(ref.Events))
		}

		return &AssertionError{
			Type:     AssertIdenticalTraces,
			Expected: fmt.Sprintf("every run matches the reference trace (workers=%d seed=%d)", ref.Workers, ref.Seed),
			Actual:   actual,
			Trace:    ref.Events,
		}
	}

	return nil
}

// firstDivergence returns the seq of the first differing event, or -1
// when one trace is a prefix of the other.
func firstDivergence(a, b []driver.Event) int64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		if a[i].String() != b[i].String() {
			return a[i].Seq
		}
	}
	return -1
}

// assertFileContains checks that a declared output file of the
// reference run contains the expected substring.
func assertFileContains(files map[string]string, assertion Assertion) error {
	content, ok := files[assertion.File]
	if !ok {
		names := make([]string, 0, len(files))
		for name := range files {
			names = append(names, name)
		}
		sort.Strings(names)
		return &AssertionError{
			Type:     AssertFileContains,
			Expected: fmt.Sprintf("workload declares file %q", assertion.File),
			Actual:   fmt.Sprintf("declared files: %v", names),
		}
	}

	if !strings.Contains(content, assertion.Content) {
		return &AssertionError{
			Type:     AssertFileContains,
			Expected: fmt.Sprintf("file %s contains %q", assertion.File, assertion.Content),
			Actual:   fmt.Sprintf("content: %q", content),
		}
	}

	return nil
}

// assertActionCount checks the scope's executed user-data action count
// against the reference run.
func assertActionCount(run *driver.Result, assertion Assertion) error {
	count := run.ActionCounts[assertion.Scope]

	if count != int64(assertion.Count) {
		return &AssertionError{
			Type:     AssertActionCount,
			Expected: fmt.Sprintf("scope %s executed %d user-data actions", assertion.Scope, assertion.Count),
			Actual:   fmt.Sprintf("%d actions", count),
			Trace:    run.Events,
		}
	}

	return nil
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns a slice of error messages for failed assertions.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var errors []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertTraceContains:
			err = assertTraceContains(result.Trace, assertion)
		case AssertTraceOrder:
			err = assertTraceOrder(result.Trace, assertion)
		case AssertTraceCount:
			err = assertTraceCount(result.Trace, assertion)
		case AssertIdenticalTraces:
			err = assertIdenticalTraces(result.Runs)
		case AssertFileContains:
			err = assertFileContains(result.Files, assertion)
		case AssertActionCount:
			if len(result.Runs) == 0 {
				err = fmt.Errorf("assertion[%d]: action_count requires a completed run", i)
			} else {
				err = assertActionCount(result.Runs[0], assertion)
			}
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	return errors
}
