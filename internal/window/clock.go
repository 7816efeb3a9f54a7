// Package window computes the canonical fixed hourly windows all quota
// components agree on. Windows are contiguous, non-overlapping, aligned
// to wall-clock hour boundaries, and identified by their absolute
// epoch-hour. The hour-of-day label ("14-15") is derived for display and
// is deliberately not the identity: two windows 24 hours apart share a
// label but never a key.
package window

import (
	"fmt"
	"time"
)

// Window is a derived value, never stored as an entity of its own.
type Window struct {
	// Key is the number of whole hours since the Unix epoch, in UTC.
	Key int64
	// StartHour is the wall-clock hour of day the window opens at (0-23).
	StartHour int
	Start     time.Time
	End       time.Time
}

// At returns the window containing t.
func At(t time.Time) Window {
	start := t.UTC().Truncate(time.Hour)
	return Window{
		Key:       start.Unix() / 3600,
		StartHour: start.Hour(),
		Start:     start,
		End:       start.Add(time.Hour),
	}
}

// FromKey reconstructs the window for an absolute epoch-hour key.
func FromKey(key int64) Window {
	return At(time.Unix(key*3600, 0).UTC())
}

// Prev returns the immediately preceding window.
func (w Window) Prev() Window {
	return FromKey(w.Key - 1)
}

// Label renders the hour-of-day form, e.g. "14-15" or "23-0" across
// midnight.
func (w Window) Label() string {
	return fmt.Sprintf("%d-%d", w.StartHour, (w.StartHour+1)%24)
}

// Contains reports whether t falls inside the window.
func (w Window) Contains(t time.Time) bool {
	u := t.UTC()
	return !u.Before(w.Start) && u.Before(w.End)
}
