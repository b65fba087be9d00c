// Package placer solves the session-placement problem (spec.md §4.E) and
// shapes the soft objective (spec.md §4.F). No constraint-solving or ILP
// library appears anywhere in the example corpus this module was grounded
// on, so the placer is a deterministic, budgeted depth-first
// branch-and-bound search over the feasible tick runs produced by
// internal/constraints, rather than a call into an external solver — see
// DESIGN.md for the corpus search that justifies this.
package placer

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/example/taskscheduler/internal/constraints"
	"github.com/example/taskscheduler/internal/ticks"
)

// Priority mirrors spec.md §3's task priority enum.
type Priority int

const (
	PriorityLow Priority = iota
	PriorityMedium
	PriorityHigh
)

// Spread mirrors spec.md §3's spread strategy enum.
type Spread int

const (
	SpreadUniform Spread = iota
	SpreadFrontloaded
)

// Relation mirrors spec.md §3's relation-to-day-period enum.
type Relation int

const (
	RelationNone Relation = iota
	RelationBefore
	RelationAfter
	RelationAround
)

// Weights configures the objective shaper. Exact magnitudes are
// implementation-defined (spec.md §4.F); the ordering priority > spread >
// preferred-hours > relation comes from each tier's base constant being
// 1000 times the one below it. The raw terms are not capped, so a lower
// tier outweighs one unit of the tier above once its raw term passes that
// ratio (for example more than 250 preferred ticks at priority factor 4
// against one tick of spread). PriorityTier is its own
// standalone term (on top of PriorityFactor also scaling the
// preferred-hours term per spec.md §4.F's "weight scales with priority"
// bullet), since a multiplier on PreferredTier alone can never climb high
// enough to outrank SpreadTier.
type Weights struct {
	PriorityTier   int
	SpreadTier     int
	PreferredTier  int
	RelationTier   int
	PriorityFactor map[Priority]int
	AroundDelta    ticks.Tick
}

// DefaultWeights returns the engine's standard weight configuration.
func DefaultWeights() Weights {
	return Weights{
		PriorityTier:  1_000_000_000,
		SpreadTier:    1_000_000,
		PreferredTier: 1_000,
		RelationTier:  1,
		PriorityFactor: map[Priority]int{
			PriorityLow:    1,
			PriorityMedium: 2,
			PriorityHigh:   4,
		},
		AroundDelta: 24, // 2 hours at 5-minute ticks
	}
}

// Session is one placed contiguous work interval, expressed in ticks.
type Session struct {
	Start ticks.Tick
	End   ticks.Tick
}

// Len reports the session's duration in ticks.
func (s Session) Len() int { return int(s.End - s.Start) }

// Request carries every placement-relevant field of the task request and
// user model needed by the search and the objective.
type Request struct {
	Priority  Priority
	Spread    Spread
	DayPeriod *ticks.Scope // not read by Solve or the objective; see DayPeriodTicks
	Relation  Relation

	// DayPeriodTicks is the tick-space projection of the task's day_period,
	// already expanded across the scope (nil if no day_period was given).
	DayPeriodTicks constraints.TickSet
}

// Reason tags for NoFeasibleSchedule, reused from constraints so callers
// see one stable vocabulary end to end.
const (
	ReasonScopeTooShort    = constraints.ReasonScopeTooShort
	ReasonTooManyBlockers  = constraints.ReasonTooManyBlockers
	ReasonWeekdayExclusion = constraints.ReasonWeekdayExclusion
	ReasonDayPeriodExclude = constraints.ReasonDayPeriodExclude
)

// ErrCancelled is returned when the context is cancelled mid-search.
var ErrCancelled = errors.New("placer: cancelled")

// ErrSolverTimeout is returned when the wall-clock budget is exhausted
// with no feasible solution yet found.
var ErrSolverTimeout = errors.New("placer: solver timeout")

// NoFeasibleScheduleError is returned when the search space is exhausted
// without finding any assignment that satisfies every hard constraint.
type NoFeasibleScheduleError struct {
	Reason string
}

func (e *NoFeasibleScheduleError) Error() string {
	return "placer: no feasible schedule (" + e.Reason + ")"
}

// maxExploredNodes bounds the search so a pathological input (many short
// runs, many breakpoints) cannot run unboundedly inside the timeout.
const maxExploredNodes = 200_000

// Solve places sessions covering exactly domain.TaskLengthTicks ticks
// inside domain.FeasibleRuns, honouring every hard constraint in spec.md
// §4.E, and returns the assignment maximising the Weights-shaped
// objective among those the search explores within its node budget.
func Solve(ctx context.Context, domain constraints.Domain, req Request, weights Weights, timeout time.Duration) ([]Session, error) {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if domain.TaskLengthTicks <= 0 {
		return nil, nil
	}
	if domain.MinSessionTicks <= 0 {
		return nil, &NoFeasibleScheduleError{Reason: ReasonScopeTooShort}
	}

	runs := splitRunsAtMidnight(domain.FeasibleRuns, domain.ScopeStart)
	if len(runs) == 0 {
		return nil, &NoFeasibleScheduleError{Reason: ReasonTooManyBlockers}
	}

	n := ceilDiv(domain.TaskLengthTicks, domain.MinSessionTicks)
	breakpoints := collectBreakpoints(domain, req)

	s := &searcher{
		ctx:         ctx,
		domain:      domain,
		req:         req,
		weights:     weights,
		runs:        runs,
		breakpoints: breakpoints,
		maxSessions: n,
	}

	best, err := s.search()
	if err != nil {
		return nil, err
	}
	if best == nil {
		return nil, &NoFeasibleScheduleError{Reason: ReasonTooManyBlockers}
	}
	return best, nil
}

type dayRun struct {
	constraints.Run
	day time.Time
}

// splitRunsAtMidnight breaks each feasible run at calendar-day boundaries
// so that no candidate session the search produces can cross midnight,
// per spec.md §4.E point 6's "assume no session crosses midnight" option.
func splitRunsAtMidnight(runs []constraints.Run, scopeStart time.Time) []dayRun {
	var out []dayRun
	for _, r := range runs {
		cursor := r.Start
		for cursor < r.End {
			day := dateOnly(ticks.ToInstant(cursor, scopeStart))
			nextMidnight := day.AddDate(0, 0, 1)
			midnightTick := ticks.FromDiff(nextMidnight, scopeStart)
			segEnd := r.End
			if midnightTick < segEnd {
				segEnd = midnightTick
			}
			if segEnd > cursor {
				out = append(out, dayRun{Run: constraints.Run{Start: cursor, End: segEnd}, day: day})
			}
			cursor = segEnd
		}
	}
	return out
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func ceilDiv(a, b int) int {
	if b <= 0 {
		return 0
	}
	if a <= 0 {
		return 0
	}
	return (a + b - 1) / b
}

// collectBreakpoints gathers candidate start ticks where a piecewise-constant
// objective term changes value: preferred-window edges and day-period edges.
// Optimal placements (for a piecewise-linear/constant reward landscape) always
// have an endpoint at a breakpoint or at a run boundary, so restricting
// candidate starts to these points keeps the search's branching factor small
// without discarding the true optimum among "structurally distinct" plans.
func collectBreakpoints(domain constraints.Domain, req Request) []ticks.Tick {
	var out []ticks.Tick
	out = append(out, edgesOf(domain.Preferred)...)
	if req.DayPeriodTicks.Len() > 0 {
		out = append(out, edgesOf(req.DayPeriodTicks)...)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func edgesOf(s constraints.TickSet) []ticks.Tick {
	var out []ticks.Tick
	for _, r := range constraints.Runs(s) {
		out = append(out, r.Start, r.End)
	}
	return out
}

type searcher struct {
	ctx         context.Context
	domain      constraints.Domain
	req         Request
	weights     Weights
	runs        []dayRun
	breakpoints []ticks.Tick
	maxSessions int

	explored int
	best     []Session
	bestScr  int
	bestSet  bool
}

func (s *searcher) search() ([]Session, error) {
	usedPerDay := make(map[time.Time]int)
	err := s.step(0, s.domain.TaskLengthTicks, -1, nil, usedPerDay)
	if err != nil {
		return nil, err
	}
	return s.best, nil
}

// step tries to place the next session starting no earlier than
// minAllowedStart, within runs[runIdx:], given remaining ticks still
// needed and the per-day ticks already committed.
func (s *searcher) step(runIdx int, remaining int, minAllowedStart ticks.Tick, placed []Session, usedPerDay map[time.Time]int) error {
	if s.explored > maxExploredNodes {
		// Budget exhaustion is not a proof of infeasibility: without a
		// best-so-far, report it the same way as a deadline with nothing
		// found, not as NoFeasibleSchedule.
		if s.bestSet {
			return nil
		}
		return ErrSolverTimeout
	}
	s.explored++
	if s.explored%1024 == 0 {
		select {
		case <-s.ctx.Done():
			if errors.Is(s.ctx.Err(), context.DeadlineExceeded) {
				if s.bestSet {
					return nil
				}
				return ErrSolverTimeout
			}
			return ErrCancelled
		default:
		}
	}

	if remaining == 0 {
		s.considerComplete(placed)
		return nil
	}
	if len(placed) >= s.maxSessions {
		return nil
	}

	for ri := runIdx; ri < len(s.runs); ri++ {
		run := s.runs[ri]
		earliest := run.Start
		if minAllowedStart > earliest {
			earliest = minAllowedStart
		}
		if int(earliest)+s.domain.MinSessionTicks > int(run.End) {
			continue
		}

		for _, start := range s.candidateStarts(run, earliest) {
			dailyUsed := usedPerDay[run.day]
			dailyCapRemaining := s.domain.MaxAllowedPerDay - dailyUsed
			if dailyCapRemaining < s.domain.MinSessionTicks {
				continue
			}
			maxDur := int(run.End - start)
			if s.domain.MaxSessionTicks < maxDur {
				maxDur = s.domain.MaxSessionTicks
			}
			if dailyCapRemaining < maxDur {
				maxDur = dailyCapRemaining
			}
			if remaining < maxDur {
				maxDur = remaining
			}
			if maxDur < s.domain.MinSessionTicks {
				continue
			}

			for _, dur := range s.candidateDurations(maxDur, remaining) {
				if dur < s.domain.MinSessionTicks || dur > maxDur {
					continue
				}
				sess := Session{Start: start, End: start + ticks.Tick(dur)}
				usedPerDay[run.day] += dur
				nextPlaced := append(placed, sess)
				err := s.step(ri, remaining-dur, sess.End+ticks.Tick(s.domain.MinBreakTicks), nextPlaced, usedPerDay)
				usedPerDay[run.day] -= dur
				if err != nil {
					return err
				}
				if s.explored > maxExploredNodes {
					return nil
				}
			}
		}
	}
	return nil
}

// candidateStarts returns the distinct start ticks worth trying within
// run, given the earliest permissible start: the earliest point itself,
// plus any breakpoint that falls strictly inside the remaining usable
// range.
func (s *searcher) candidateStarts(run dayRun, earliest ticks.Tick) []ticks.Tick {
	latestStart := run.End - ticks.Tick(s.domain.MinSessionTicks)
	out := []ticks.Tick{earliest}
	for _, bp := range s.breakpoints {
		if bp > earliest && bp <= latestStart {
			out = append(out, bp)
		}
	}
	return dedupeTicks(out)
}

func dedupeTicks(in []ticks.Tick) []ticks.Tick {
	sort.Slice(in, func(i, j int) bool { return in[i] < in[j] })
	out := in[:0:0]
	var last ticks.Tick
	for i, t := range in {
		if i == 0 || t != last {
			out = append(out, t)
			last = t
		}
	}
	return out
}

// candidateDurations returns the distinct session lengths worth trying at
// a given start: the shortest (minSessionTicks... already filtered by
// caller), the longest available (maxDur), and the exact remaining need
// when it fits, since one of these three must be part of an optimal plan
// for a fixed start point (the reward landscape is monotonic or constant
// in duration beyond satisfying the minimum).
func (s *searcher) candidateDurations(maxDur, remaining int) []int {
	out := []int{s.domain.MinSessionTicks, maxDur}
	if remaining <= maxDur {
		out = append(out, remaining)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(out)))
	dedup := out[:0:0]
	var last = -1
	for _, d := range out {
		if d != last {
			dedup = append(dedup, d)
			last = d
		}
	}
	return dedup
}

func (s *searcher) considerComplete(placed []Session) {
	cp := append([]Session(nil), placed...)
	score := score(cp, s.domain, s.req, s.weights)
	if !s.bestSet || score > s.bestScr {
		s.best = cp
		s.bestScr = score
		s.bestSet = true
	}
}
