// Package ticks implements the discrete timeline used by the scheduling
// engine: a bi-directional mapping between wall-clock instants and integer
// tick indices quantised to a fixed granularity.
package ticks

import "time"

// MinutesPerTick is the engine's fixed timeline granularity. It is a
// compile-time constant per spec; nothing in the engine makes it
// configurable.
const MinutesPerTick = 5

// Tick is an integer index into the discrete timeline, relative to a
// reference instant (conventionally the rounded scope start). Tick n
// corresponds to the half-open wall-clock interval
// [reference + n*MinutesPerTick, reference + (n+1)*MinutesPerTick).
type Tick int

// RoundDown floors dt to the nearest tick boundary.
func RoundDown(dt time.Time) time.Time {
	rem := dt.Minute() % MinutesPerTick
	return time.Date(dt.Year(), dt.Month(), dt.Day(), dt.Hour(), dt.Minute()-rem, 0, 0, dt.Location())
}

// RoundUp ceils dt to the next tick boundary. If dt already lies on a
// boundary, it is returned unchanged.
func RoundUp(dt time.Time) time.Time {
	if dt.Second() == 0 && dt.Nanosecond() == 0 && dt.Minute()%MinutesPerTick == 0 {
		return dt
	}
	down := RoundDown(dt)
	return down.Add(MinutesPerTick * time.Minute)
}

// FromDiff returns the integer-floor number of ticks between reference and
// dt (dt may precede reference, producing a negative tick).
func FromDiff(dt, reference time.Time) Tick {
	minutes := dt.Sub(reference).Minutes()
	return Tick(floorDiv(int64(minutes), MinutesPerTick))
}

// ToInstant maps a tick index back to its wall-clock instant given the
// same reference used to produce it.
func ToInstant(t Tick, reference time.Time) time.Time {
	return reference.Add(time.Duration(t) * MinutesPerTick * time.Minute)
}

// HoursToTicks converts an hours quantity to an integer tick count,
// truncating toward zero as the Python original does (int(hours*60/5)).
func HoursToTicks(hours float64) int {
	return int((hours * 60) / MinutesPerTick)
}

// floorDiv performs integer floor division, required because minutes may
// be negative (dt before reference) and Go's / truncates toward zero.
func floorDiv(a int64, b int64) int64 {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

// Scope is a half-open wall-clock window in which a task's sessions must
// be placed.
type Scope struct {
	Start time.Time
	End   time.Time
}

// Rounded returns the scope's rounded boundaries: start floored down to a
// tick boundary, end ceiled up to a tick boundary.
func (s Scope) Rounded() (start, end time.Time) {
	return RoundDown(s.Start), RoundUp(s.End)
}

// EndTick returns the tick index of the rounded scope end, relative to the
// rounded scope start (tick 0).
func (s Scope) EndTick() Tick {
	start, end := s.Rounded()
	return FromDiff(end, start)
}
