package registry

import (
	"fmt"
	"io"
	"sync"
)

// DefaultTimeWidth is the display column width a $timeformat that never
// ran would leave in place.
const DefaultTimeWidth = 20

// TimeFormatState is the serializable portion of the time format
// settings: everything a save/restore snapshot of simulation state
// carries.
type TimeFormatState struct {
	Units     int    `json:"units"`
	UnitsSet  bool   `json:"units_set"`
	Precision int    `json:"precision"`
	Width     int    `json:"width"`
	Suffix    string `json:"suffix"`
}

// TimeFormat stores the $timeformat display settings: units, precision,
// column width, and a suffix string.
//
// Units, precision, and width share one lock. The suffix has its own:
// its critical section copies a variable-length string, and keeping it
// off the numeric lock means a suffix reader never blocks the far more
// frequent units lookups.
//
// The registry stores these values but never renders time text; a
// separate formatting routine reads them.
type TimeFormat struct {
	mu        sync.Mutex // guards units, unitsSet, precision, width
	units     int
	unitsSet  bool
	precision int
	width     int

	suffixMu sync.Mutex
	suffix   string
}

// NewTimeFormat returns time format settings with the standard
// defaults: width 20, precision 0, empty suffix, units unset.
func NewTimeFormat() *TimeFormat {
	return &TimeFormat{width: DefaultTimeWidth}
}

// SetUnits stores the display units as a signed power-of-ten exponent:
// -9 means nanoseconds.
func (t *TimeFormat) SetUnits(units int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.units = units
	t.unitsSet = true
}

// Units returns the stored display units. When units were never set it
// falls back to simPrecision, the simulation's own time precision,
// which is what a testbench that never called $timeformat expects.
func (t *TimeFormat) Units(simPrecision int) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.unitsSet {
		return simPrecision
	}
	return t.units
}

// UnitsSet reports whether display units were ever stored.
func (t *TimeFormat) UnitsSet() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.unitsSet
}

// SetPrecision stores the number of fractional digits to display.
func (t *TimeFormat) SetPrecision(digits int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.precision = digits
}

// Precision returns the number of fractional digits to display.
func (t *TimeFormat) Precision() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.precision
}

// SetWidth stores the minimum display column width.
func (t *TimeFormat) SetWidth(width int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.width = width
}

// Width returns the minimum display column width.
func (t *TimeFormat) Width() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.width
}

// SetSuffix stores the string appended after formatted time values.
func (t *TimeFormat) SetSuffix(suffix string) {
	t.suffixMu.Lock()
	defer t.suffixMu.Unlock()
	t.suffix = suffix
}

// Suffix returns the string appended after formatted time values.
func (t *TimeFormat) Suffix() string {
	t.suffixMu.Lock()
	defer t.suffixMu.Unlock()
	return t.suffix
}

// Snapshot captures the current settings for serialization. The two
// locks are taken in sequence, not together, so a snapshot concurrent
// with writers is per-field consistent rather than atomic across all
// fields; save/restore runs with the simulation quiesced, where the
// distinction cannot observe.
func (t *TimeFormat) Snapshot() TimeFormatState {
	t.mu.Lock()
	st := TimeFormatState{
		Units:     t.units,
		UnitsSet:  t.unitsSet,
		Precision: t.precision,
		Width:     t.width,
	}
	t.mu.Unlock()

	t.suffixMu.Lock()
	st.Suffix = t.suffix
	t.suffixMu.Unlock()
	return st
}

// Restore replaces the stored settings with a previously captured
// state.
func (t *TimeFormat) Restore(st TimeFormatState) {
	t.mu.Lock()
	t.units = st.Units
	t.unitsSet = st.UnitsSet
	t.precision = st.Precision
	t.width = st.Width
	t.mu.Unlock()

	t.suffixMu.Lock()
	t.suffix = st.Suffix
	t.suffixMu.Unlock()
}

// Dump writes the current settings.
func (t *TimeFormat) Dump(w io.Writer) {
	st := t.Snapshot()
	units := "unset"
	if st.UnitsSet {
		units = fmt.Sprintf("%d", st.Units)
	}
	fmt.Fprintf(w, "  timeFormatDump: units=%s precision=%d width=%d suffix=%q\n",
		units, st.Precision, st.Width, st.Suffix)
}
