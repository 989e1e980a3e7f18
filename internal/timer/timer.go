// Package timer measures wall-clock time of a labelled operation and formats
// the result for display.
package timer

import (
	"fmt"
	"time"
)

// Stamp is a started measurement.
type Stamp struct {
	Label string
	start time.Time
	now   func() time.Time
}

// Start begins measuring an operation called label.
func Start(label string) Stamp {
	return StartWith(label, time.Now)
}

// StartWith is Start with an injectable clock.
func StartWith(label string, now func() time.Time) Stamp {
	return Stamp{Label: label, start: now(), now: now}
}

// Report is a finished measurement.
type Report struct {
	Label   string
	Elapsed time.Duration
}

// Stop finishes the measurement.
func (s Stamp) Stop() Report {
	return Report{Label: s.Label, Elapsed: s.now().Sub(s.start)}
}

// Milliseconds returns the elapsed time in fractional milliseconds.
func (r Report) Milliseconds() float64 {
	return float64(r.Elapsed) / float64(time.Millisecond)
}

// String formats the report as "label: 1.234 ms".
func (r Report) String() string {
	return fmt.Sprintf("%s: %.3f ms", r.Label, r.Milliseconds())
}
