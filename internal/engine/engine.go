// Package engine is the public entry point for the scheduling engine: it
// validates a task request, compiles constraints, runs the session
// placer, and extracts the solved sessions back into wall-clock instants.
package engine

import (
	"context"
	"errors"
	"time"

	"github.com/example/taskscheduler/internal/constraints"
	"github.com/example/taskscheduler/internal/placer"
	"github.com/example/taskscheduler/internal/scheduler"
	"github.com/example/taskscheduler/internal/ticks"
	"github.com/example/taskscheduler/internal/windows"
)

// TaskRequest is the caller-supplied description of work to schedule.
type TaskRequest struct {
	Title                 string
	Tag                   string
	TaskLengthHours       float64
	Scope                 ticks.Scope
	Priority              placer.Priority
	MaxAllowedHoursPerDay float64
	Spread                placer.Spread
	DayPeriod             *windows.TimeWindow
	RelationToDayPeriod   placer.Relation
	Deadline              *time.Time
}

// Ump is the user model: standing preferences applied to every
// scheduling invocation for that user.
type Ump struct {
	AllowedWeekdays               map[time.Weekday]bool
	MinSessionHours               float64
	MaxSessionHours               float64
	MinBreakBetweenSessionsHours  float64
	SleepWindow                   windows.TimeWindow
	DoNotDisturbWindow            *windows.TimeWindow
	PreferredWindow               windows.TimeWindow
}

// Event is an existing, immovable calendar item that blocks placement.
type Event struct {
	ID       string
	Start    time.Time
	End      time.Time
	Priority placer.Priority
	Tag      string
}

// ResultKind discriminates the possible domain outcomes of Schedule.
type ResultKind int

const (
	// Scheduled means sessions were placed successfully.
	Scheduled ResultKind = iota
	// Infeasible means no assignment satisfies every hard constraint.
	Infeasible
	// Cancelled means the context was cancelled mid-solve.
	Cancelled
)

// Session is one scheduled work interval in wall-clock instants.
type Session struct {
	Start time.Time
	End   time.Time
}

// ScheduleResult is the outcome of a Schedule call.
type ScheduleResult struct {
	Kind     ResultKind
	Sessions []Session // only meaningful when Kind == Scheduled
	Reason   string    // only meaningful when Kind == Infeasible
}

// Sentinel errors for caller-fault conditions, per the teacher's pattern
// of distinguishing them from domain outcomes folded into ScheduleResult.
var (
	ErrInvalidInput  = errors.New("engine: invalid input")
	ErrInfeasible    = errors.New("engine: infeasible")
	ErrSolverTimeout = errors.New("engine: solver timeout")
)

// InvalidInputError reports which field failed validation and why.
type InvalidInputError struct {
	Field   string
	Message string
}

func (e *InvalidInputError) Error() string {
	return "engine: invalid input: " + e.Field + ": " + e.Message
}

func (e *InvalidInputError) Unwrap() error { return ErrInvalidInput }

// InfeasibleError carries constraints/placer's coarse reason tag when
// callers need it as an error rather than a ScheduleResult.
type InfeasibleError struct {
	Reason string
}

func (e *InfeasibleError) Error() string {
	return "engine: infeasible (" + e.Reason + ")"
}

func (e *InfeasibleError) Unwrap() error { return ErrInfeasible }

// DefaultSolverTimeout is used when the caller does not override it via
// context (spec.md §5's "default 30s").
const DefaultSolverTimeout = 30 * time.Second

// Schedule is the engine's single entry point (spec.md §6). It is a pure
// function of its arguments plus the supplied context: no package-level
// mutable state is read or written, and no persistence happens here — the
// persisted event snapshot is consumed read-only by the caller before
// being passed in.
func Schedule(ctx context.Context, req TaskRequest, ump Ump, events []Event, now time.Time) (ScheduleResult, error) {
	if err := validate(req); err != nil {
		return ScheduleResult{}, err
	}

	// Ticks before now have already elapsed and can never host a session,
	// regardless of what the nominal scope start says: a re-solve partway
	// through a scope must not schedule into the past. This is also what
	// makes frontloaded spread (which rewards earlier starts) frontload
	// against the present rather than a stale scope boundary.
	if now.After(req.Scope.Start) {
		req.Scope.Start = now
	}
	if !req.Scope.Start.Before(req.Scope.End) {
		return ScheduleResult{Kind: Infeasible, Reason: constraints.ReasonScopeTooShort}, nil
	}

	windowEvents := make([]windows.Event, 0, len(events))
	for _, e := range events {
		windowEvents = append(windowEvents, windows.Event{ID: e.ID, Start: e.Start, End: e.End})
	}

	domain, err := constraints.Compile(constraints.Input{
		Scope:              req.Scope,
		Sleep:              ump.SleepWindow,
		DoNotDisturb:       ump.DoNotDisturbWindow,
		Preferred:          ump.PreferredWindow,
		Events:             windowEvents,
		DayPeriod:          req.DayPeriod,
		AllowedWeekdays:    ump.AllowedWeekdays,
		Deadline:           req.Deadline,
		MaxAllowedHoursDay: req.MaxAllowedHoursPerDay,
		TaskLengthHours:    req.TaskLengthHours,
		MinSessionHours:    ump.MinSessionHours,
		MaxSessionHours:    ump.MaxSessionHours,
		MinBreakHours:      ump.MinBreakBetweenSessionsHours,
	})
	if err != nil {
		var infErr *constraints.InfeasibleError
		if errors.As(err, &infErr) {
			return ScheduleResult{Kind: Infeasible, Reason: infErr.Reason}, nil
		}
		var dupErr *windows.DuplicateEventIDError
		if errors.As(err, &dupErr) {
			return ScheduleResult{}, &InvalidInputError{Field: "events", Message: err.Error()}
		}
		return ScheduleResult{}, err
	}

	var dayPeriodTicks constraints.TickSet
	if req.DayPeriod != nil {
		scopeStart, scopeEnd := req.Scope.Rounded()
		dayPeriodTicks = constraints.NewTickSet(windows.Expand(*req.DayPeriod, scopeStart, scopeEnd))
	}

	placerReq := placer.Request{
		Priority:       req.Priority,
		Spread:         req.Spread,
		Relation:       req.RelationToDayPeriod,
		DayPeriodTicks: dayPeriodTicks,
	}

	sessions, err := placer.Solve(ctx, domain, placerReq, placer.DefaultWeights(), DefaultSolverTimeout)
	if err != nil {
		switch {
		case errors.Is(err, placer.ErrCancelled):
			return ScheduleResult{Kind: Cancelled}, nil
		case errors.Is(err, placer.ErrSolverTimeout):
			return ScheduleResult{}, ErrSolverTimeout
		default:
			var noFeasible *placer.NoFeasibleScheduleError
			if errors.As(err, &noFeasible) {
				return ScheduleResult{Kind: Infeasible, Reason: noFeasible.Reason}, nil
			}
			return ScheduleResult{}, err
		}
	}

	result := extract(sessions, domain.ScopeStart)
	if err := assertNoBlockerOverlap(result, events); err != nil {
		return ScheduleResult{}, err
	}

	return ScheduleResult{Kind: Scheduled, Sessions: result}, nil
}

// assertNoBlockerOverlap re-checks, independently of the placer's own
// bookkeeping, that no emitted session overlaps a supplied event. It is
// defense-in-depth: a placer defect should surface as an error here
// rather than as a silently wrong schedule.
func assertNoBlockerOverlap(sessions []Session, events []Event) error {
	blockers := make([]scheduler.Interval, 0, len(events))
	for _, e := range events {
		blockers = append(blockers, scheduler.Interval{Start: e.Start, End: e.End})
	}
	for _, s := range sessions {
		if scheduler.AnyOverlap(blockers, scheduler.Interval{Start: s.Start, End: s.End}) {
			return errors.New("engine: internal invariant violated: emitted session overlaps a blocking event")
		}
	}
	return nil
}

// extract implements spec.md §4.G: map each solved tick-space session back
// to a wall-clock instant pair. The output keeps the placer's order, which
// is start-ordered by construction; extract itself does not sort.
func extract(sessions []placer.Session, reference time.Time) []Session {
	out := make([]Session, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, Session{
			Start: ticks.ToInstant(s.Start, reference),
			End:   ticks.ToInstant(s.End, reference),
		})
	}
	return out
}

// validate checks the required-field contract of spec.md §6 before any
// compilation work begins.
func validate(req TaskRequest) error {
	if req.Title == "" {
		return &InvalidInputError{Field: "title", Message: "must not be empty"}
	}
	if req.Tag == "" {
		return &InvalidInputError{Field: "tag", Message: "must not be empty"}
	}
	if req.TaskLengthHours <= 0 {
		return &InvalidInputError{Field: "task_length_hours", Message: "must be positive"}
	}
	if !req.Scope.Start.Before(req.Scope.End) {
		return &InvalidInputError{Field: "scope", Message: "start must precede end"}
	}
	if req.MaxAllowedHoursPerDay <= 0 {
		return &InvalidInputError{Field: "max_allowed_hours_per_day", Message: "must be positive"}
	}
	return nil
}
