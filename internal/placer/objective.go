package placer

import (
	"time"

	"github.com/example/taskscheduler/internal/constraints"
	"github.com/example/taskscheduler/internal/ticks"
)

// score computes the spec.md §4.F weighted objective for a complete
// session assignment. Higher is better. Weights' base constants keep the
// tiers 1000 times apart; the raw terms are not capped, so a large enough
// lower-tier term can still outrank a unit of a higher one.
func score(sessions []Session, domain constraints.Domain, req Request, w Weights) int {
	priorityFactor := w.PriorityFactor[req.Priority]
	if priorityFactor <= 0 {
		priorityFactor = 1
	}

	priorityScore := priorityFactor * w.PriorityTier
	spreadScore := spreadTerm(sessions, req.Spread) * w.SpreadTier
	preferredScore := preferredTerm(sessions, domain.Preferred) * priorityFactor * w.PreferredTier
	relationScore := relationTerm(sessions, req, w, domain.ScopeStart) * w.RelationTier

	return priorityScore + spreadScore + preferredScore + relationScore
}

// spreadTerm rewards earlier starts when frontloaded, or larger
// inter-session gaps (tending toward even spacing) when uniform.
func spreadTerm(sessions []Session, spread Spread) int {
	if len(sessions) == 0 {
		return 0
	}
	switch spread {
	case SpreadFrontloaded:
		total := 0
		for _, s := range sessions {
			total -= int(s.Start)
		}
		return total
	default: // SpreadUniform
		if len(sessions) < 2 {
			return 0
		}
		total := 0
		for i := 1; i < len(sessions); i++ {
			gap := int(sessions[i].Start - sessions[i-1].End)
			total += gap
		}
		return total
	}
}

// preferredTerm sums, across all sessions, the number of ticks each
// session overlaps the soft preferred window.
func preferredTerm(sessions []Session, preferred constraints.TickSet) int {
	total := 0
	for _, s := range sessions {
		for t := s.Start; t < s.End; t++ {
			if preferred.Contains(t) {
				total++
			}
		}
	}
	return total
}

// relationTerm rewards sessions that satisfy the task's
// relation-to-day-period preference on the same calendar day as the
// day_period run being compared against.
func relationTerm(sessions []Session, req Request, w Weights, scopeStart time.Time) int {
	if req.Relation == RelationNone || req.DayPeriodTicks.Len() == 0 {
		return 0
	}
	dayPeriodRuns := constraints.Runs(req.DayPeriodTicks)
	total := 0
	for _, s := range sessions {
		sessionDay := dateOnly(ticks.ToInstant(s.Start, scopeStart))
		for _, p := range dayPeriodRuns {
			periodDay := dateOnly(ticks.ToInstant(p.Start, scopeStart))
			if !periodDay.Equal(sessionDay) {
				continue
			}
			switch req.Relation {
			case RelationBefore:
				if s.End <= p.Start {
					total++
				}
			case RelationAfter:
				if s.Start >= p.End {
					total++
				}
			case RelationAround:
				lo := p.Start - w.AroundDelta
				hi := p.End + w.AroundDelta
				if s.Start >= lo && s.End <= hi {
					total++
				}
			}
		}
	}
	return total
}
