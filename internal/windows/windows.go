// Package windows projects recurring daily time-of-day windows and
// fixed event intervals onto the engine's discrete tick timeline.
package windows

import (
	"sort"
	"time"

	"github.com/example/taskscheduler/internal/ticks"
)

// TimeWindow is a recurring daily window identified by a pair of
// times-of-day. It spans midnight iff End is strictly before Start, and is
// treated as empty (contributing no ticks) when Start equals End.
type TimeWindow struct {
	Start time.Time // only hour/minute/second are significant
	End   time.Time
}

// SpansMidnight reports whether the window crosses midnight.
func (w TimeWindow) SpansMidnight() bool {
	return timeOfDay(w.End) < timeOfDay(w.Start)
}

// IsEmpty reports whether the window covers no time at all.
func (w TimeWindow) IsEmpty() bool {
	return timeOfDay(w.Start) == timeOfDay(w.End)
}

// timeOfDay reduces a time.Time to minutes-since-midnight for comparison,
// ignoring its date component.
func timeOfDay(t time.Time) int {
	return t.Hour()*60 + t.Minute()
}

// atTimeOfDay returns a concrete instant on date's calendar day carrying
// tod's time-of-day, in date's location.
func atTimeOfDay(date time.Time, tod time.Time) time.Time {
	return time.Date(date.Year(), date.Month(), date.Day(), tod.Hour(), tod.Minute(), tod.Second(), 0, date.Location())
}

// Expand projects a recurring TimeWindow across every calendar day
// overlapping [scopeStart, scopeEnd), clamps each day's segment to the
// scope, and returns the sorted, deduplicated set of covered ticks
// relative to scopeStart (which must already be tick-aligned).
//
// The midnight-spanning case is split into two segments per day: a
// [day+Start, nextMidnight) run on the window's start day and a
// [midnight, day+End) run on the following day — the correct exclusive
// upper bound, rather than the 23:59:59 sentinel used by some sources.
// For such a window the day before scopeStart is expanded as well, so the
// early-morning segment on the scope's first day is covered.
func Expand(w TimeWindow, scopeStart, scopeEnd time.Time) []ticks.Tick {
	if w.IsEmpty() {
		return nil
	}

	var out []ticks.Tick
	totalDays := int(dateOnly(scopeEnd).Sub(dateOnly(scopeStart)).Hours()/24) + 1

	firstOffset := 0
	if w.SpansMidnight() {
		firstOffset = -1
	}

	for dayOffset := firstOffset; dayOffset < totalDays; dayOffset++ {
		day := dateOnly(scopeStart).AddDate(0, 0, dayOffset)

		if w.SpansMidnight() {
			segStart := atTimeOfDay(day, w.Start)
			segEnd := day.AddDate(0, 0, 1) // next midnight, exclusive upper bound
			out = append(out, segmentTicks(segStart, segEnd, scopeStart, scopeEnd)...)

			nextDay := day.AddDate(0, 0, 1)
			segStart2 := nextDay
			segEnd2 := atTimeOfDay(nextDay, w.End)
			out = append(out, segmentTicks(segStart2, segEnd2, scopeStart, scopeEnd)...)
		} else {
			segStart := atTimeOfDay(day, w.Start)
			segEnd := atTimeOfDay(day, w.End)
			out = append(out, segmentTicks(segStart, segEnd, scopeStart, scopeEnd)...)
		}
	}

	return dedupeSorted(out)
}

// segmentTicks clamps [segStart, segEnd) to [scopeStart, scopeEnd), and if
// the clamped range is non-empty, returns its tick range relative to
// scopeStart.
func segmentTicks(segStart, segEnd, scopeStart, scopeEnd time.Time) []ticks.Tick {
	if !segStart.Before(scopeEnd) || segEnd.Before(scopeStart) || segEnd.Equal(scopeStart) {
		return nil
	}

	actualStart := segStart
	if actualStart.Before(scopeStart) {
		actualStart = scopeStart
	}
	actualEnd := segEnd
	if actualEnd.After(scopeEnd) {
		actualEnd = scopeEnd
	}

	startTick := ticks.FromDiff(ticks.RoundDown(actualStart), scopeStart)
	endTick := ticks.FromDiff(ticks.RoundUp(actualEnd), scopeStart)
	if endTick <= startTick {
		return nil
	}

	out := make([]ticks.Tick, 0, int(endTick-startTick))
	for t := startTick; t < endTick; t++ {
		out = append(out, t)
	}
	return out
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func dedupeSorted(in []ticks.Tick) []ticks.Tick {
	if len(in) == 0 {
		return nil
	}
	sort.Slice(in, func(i, j int) bool { return in[i] < in[j] })
	out := in[:1]
	for _, t := range in[1:] {
		if t != out[len(out)-1] {
			out = append(out, t)
		}
	}
	return out
}

// Event is a persisted calendar event interval consumed read-only by the
// scheduling engine.
type Event struct {
	ID    string
	Start time.Time
	End   time.Time
}

// ProjectEvents converts a flat list of events into the union of their
// tick ranges, clamped to [scopeStart, scopeEnd). Event IDs must be
// unique; ErrDuplicateEventID is returned otherwise.
func ProjectEvents(events []Event, scopeStart, scopeEnd time.Time) ([]ticks.Tick, error) {
	seen := make(map[string]struct{}, len(events))
	var out []ticks.Tick

	for _, ev := range events {
		if ev.ID != "" {
			if _, dup := seen[ev.ID]; dup {
				return nil, &DuplicateEventIDError{ID: ev.ID}
			}
			seen[ev.ID] = struct{}{}
		}

		s := ticks.RoundDown(ev.Start)
		f := ticks.RoundUp(ev.End)
		if !f.After(scopeStart) || !s.Before(scopeEnd) {
			continue
		}
		if s.Before(scopeStart) {
			s = scopeStart
		}
		if f.After(scopeEnd) {
			f = scopeEnd
		}

		startTick := ticks.FromDiff(s, scopeStart)
		endTick := ticks.FromDiff(f, scopeStart)
		for t := startTick; t < endTick; t++ {
			out = append(out, t)
		}
	}

	return dedupeSorted(out), nil
}

// DuplicateEventIDError indicates two events shared the same ID.
type DuplicateEventIDError struct {
	ID string
}

func (e *DuplicateEventIDError) Error() string {
	return "windows: duplicate event id " + e.ID
}
