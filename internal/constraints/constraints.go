// Package constraints compiles hard and soft scheduling constraints into
// the tick-domain structures the session placer solves over.
package constraints

import (
	"sort"
	"time"

	"github.com/example/taskscheduler/internal/ticks"
	"github.com/example/taskscheduler/internal/windows"
)

// TickSet is a sorted set of ticks with set-algebra helpers. Ticks are
// kept in a sorted slice rather than a map so downstream consumers (the
// placer) get deterministic, allocation-light iteration.
type TickSet struct {
	sorted []ticks.Tick
}

// NewTickSet builds a TickSet from an unsorted, possibly duplicated slice.
func NewTickSet(in []ticks.Tick) TickSet {
	if len(in) == 0 {
		return TickSet{}
	}
	cp := append([]ticks.Tick(nil), in...)
	sort.Slice(cp, func(i, j int) bool { return cp[i] < cp[j] })
	out := cp[:1]
	for _, t := range cp[1:] {
		if t != out[len(out)-1] {
			out = append(out, t)
		}
	}
	return TickSet{sorted: out}
}

// Contains reports whether t is a member of the set. O(log n).
func (s TickSet) Contains(t ticks.Tick) bool {
	i := sort.Search(len(s.sorted), func(i int) bool { return s.sorted[i] >= t })
	return i < len(s.sorted) && s.sorted[i] == t
}

// Len reports the number of distinct ticks in the set.
func (s TickSet) Len() int { return len(s.sorted) }

// Slice returns the underlying sorted ticks. Callers must not mutate it.
func (s TickSet) Slice() []ticks.Tick { return s.sorted }

// Union merges multiple tick sets.
func Union(sets ...TickSet) TickSet {
	var all []ticks.Tick
	for _, s := range sets {
		all = append(all, s.sorted...)
	}
	return NewTickSet(all)
}

// Intersect returns ticks present in every supplied set.
func Intersect(sets ...TickSet) TickSet {
	if len(sets) == 0 {
		return TickSet{}
	}
	base := sets[0]
	var out []ticks.Tick
	for _, t := range base.sorted {
		inAll := true
		for _, s := range sets[1:] {
			if !s.Contains(t) {
				inAll = false
				break
			}
		}
		if inAll {
			out = append(out, t)
		}
	}
	return NewTickSet(out)
}

// Subtract removes every tick present in remove from base.
func Subtract(base, remove TickSet) TickSet {
	if remove.Len() == 0 {
		return base
	}
	var out []ticks.Tick
	for _, t := range base.sorted {
		if !remove.Contains(t) {
			out = append(out, t)
		}
	}
	return NewTickSet(out)
}

// Run is a maximal contiguous closed-open tick interval [Start, End).
type Run struct {
	Start, End ticks.Tick
}

// Len reports the number of ticks in the run.
func (r Run) Len() int { return int(r.End - r.Start) }

// Runs collapses a sorted tick set into its maximal contiguous runs.
func Runs(s TickSet) []Run {
	sorted := s.Slice()
	if len(sorted) == 0 {
		return nil
	}
	var out []Run
	runStart := sorted[0]
	prev := sorted[0]
	for _, t := range sorted[1:] {
		if t == prev+1 {
			prev = t
			continue
		}
		out = append(out, Run{Start: runStart, End: prev + 1})
		runStart = t
		prev = t
	}
	out = append(out, Run{Start: runStart, End: prev + 1})
	return out
}

// Domain is the fully compiled constraint domain for a single scheduling
// invocation: every tick-set and scalar a session placer needs.
type Domain struct {
	ScopeStart        time.Time
	ScopeEnd          time.Time
	ScopeEndTick      ticks.Tick
	HardBlocked       TickSet
	Preferred         TickSet
	TaskPeriod        TickSet
	AllowedWeekday    TickSet
	DeadlineCutoff    *ticks.Tick // inclusive; nil means no deadline
	Feasible          TickSet
	FeasibleRuns      []Run
	MaxAllowedPerDay  int
	TaskLengthTicks   int
	MinSessionTicks   int
	MaxSessionTicks   int
	MinBreakTicks     int
}

// Input collects every raw ingredient the compiler needs.
type Input struct {
	Scope              ticks.Scope
	Sleep              windows.TimeWindow
	DoNotDisturb       *windows.TimeWindow
	Preferred          windows.TimeWindow
	Events             []windows.Event
	DayPeriod          *windows.TimeWindow
	AllowedWeekdays    map[time.Weekday]bool
	Deadline           *time.Time
	MaxAllowedHoursDay float64
	TaskLengthHours    float64
	MinSessionHours    float64
	MaxSessionHours    float64
	MinBreakHours      float64
}

// ErrScopeTooShort / reason tags mirror spec.md §4.E's coarse diagnostics.
const (
	ReasonScopeTooShort     = "scope_too_short"
	ReasonTooManyBlockers   = "too_many_blockers"
	ReasonWeekdayExclusion  = "weekday_exclusion"
	ReasonDayPeriodExclude  = "day_period_exclusion"
)

// InfeasibleError is returned by Compile's preflight check when the
// feasible tick set cannot possibly hold the requested task length.
type InfeasibleError struct {
	Reason string
}

func (e *InfeasibleError) Error() string {
	return "constraints: infeasible (" + e.Reason + ")"
}

// Compile builds the full Domain from raw Input, applying the
// recurring-window expander (windows.Expand), the event projector
// (windows.ProjectEvents), and the weekday/deadline masks, then runs the
// infeasibility preflight from spec.md §4.D.
func Compile(in Input) (Domain, error) {
	scopeStart, scopeEnd := in.Scope.Rounded()
	endTick := ticks.FromDiff(scopeEnd, scopeStart)

	sleep := windows.Expand(in.Sleep, scopeStart, scopeEnd)
	var dnd []ticks.Tick
	if in.DoNotDisturb != nil {
		dnd = windows.Expand(*in.DoNotDisturb, scopeStart, scopeEnd)
	}
	busy, err := windows.ProjectEvents(in.Events, scopeStart, scopeEnd)
	if err != nil {
		return Domain{}, err
	}

	hardBlocked := Union(NewTickSet(sleep), NewTickSet(dnd), NewTickSet(busy))
	preferred := NewTickSet(windows.Expand(in.Preferred, scopeStart, scopeEnd))

	var taskPeriod TickSet
	if in.DayPeriod != nil {
		taskPeriod = NewTickSet(windows.Expand(*in.DayPeriod, scopeStart, scopeEnd))
	} else {
		full := make([]ticks.Tick, 0, int(endTick))
		for t := ticks.Tick(0); t < endTick; t++ {
			full = append(full, t)
		}
		taskPeriod = NewTickSet(full)
	}

	allowedWeekday := weekdayMask(scopeStart, endTick, in.AllowedWeekdays)

	var cutoff *ticks.Tick
	var withinDeadline TickSet
	if in.Deadline != nil {
		c := ticks.FromDiff(*in.Deadline, scopeStart)
		cutoff = &c
		var inRange []ticks.Tick
		for t := ticks.Tick(0); t <= c && t < endTick; t++ {
			inRange = append(inRange, t)
		}
		withinDeadline = NewTickSet(inRange)
	} else {
		full := make([]ticks.Tick, 0, int(endTick))
		for t := ticks.Tick(0); t < endTick; t++ {
			full = append(full, t)
		}
		withinDeadline = NewTickSet(full)
	}

	feasible := Subtract(Intersect(taskPeriod, allowedWeekday, withinDeadline), hardBlocked)

	taskLengthTicks := ticks.HoursToTicks(in.TaskLengthHours)

	domain := Domain{
		ScopeStart:       scopeStart,
		ScopeEnd:         scopeEnd,
		ScopeEndTick:     endTick,
		HardBlocked:      hardBlocked,
		Preferred:        preferred,
		TaskPeriod:       taskPeriod,
		AllowedWeekday:   allowedWeekday,
		DeadlineCutoff:   cutoff,
		Feasible:         feasible,
		FeasibleRuns:     Runs(feasible),
		MaxAllowedPerDay: ticks.HoursToTicks(in.MaxAllowedHoursDay),
		TaskLengthTicks:  taskLengthTicks,
		MinSessionTicks:  ticks.HoursToTicks(in.MinSessionHours),
		MaxSessionTicks:  ticks.HoursToTicks(in.MaxSessionHours),
		MinBreakTicks:    ticks.HoursToTicks(in.MinBreakHours),
	}

	if feasible.Len() < taskLengthTicks {
		return domain, &InfeasibleError{Reason: classifyInfeasibility(domain, in)}
	}

	return domain, nil
}

// classifyInfeasibility picks a best-effort, non-authoritative coarse
// reason tag per spec.md §4.E's "Failure modes" note.
func classifyInfeasibility(d Domain, in Input) string {
	switch {
	case d.ScopeEndTick <= 0:
		return ReasonScopeTooShort
	case d.AllowedWeekday.Len() == 0:
		return ReasonWeekdayExclusion
	case in.DayPeriod != nil && d.TaskPeriod.Len() == 0:
		return ReasonDayPeriodExclude
	default:
		return ReasonTooManyBlockers
	}
}

// weekdayMask returns every tick whose calendar day (derived from its
// wall-clock instant) is in allowed.
func weekdayMask(scopeStart time.Time, endTick ticks.Tick, allowed map[time.Weekday]bool) TickSet {
	if len(allowed) == 0 {
		return TickSet{}
	}
	out := make([]ticks.Tick, 0, int(endTick))
	for t := ticks.Tick(0); t < endTick; t++ {
		inst := ticks.ToInstant(t, scopeStart)
		if allowed[inst.Weekday()] {
			out = append(out, t)
		}
	}
	return NewTickSet(out)
}
