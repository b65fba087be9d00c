package engine

import (
	"context"
	"testing"
	"time"

	"github.com/example/taskscheduler/internal/placer"
	"github.com/example/taskscheduler/internal/ticks"
	"github.com/example/taskscheduler/internal/windows"
)

func mustParse(t *testing.T, s string) time.Time {
	t.Helper()
	tm, err := time.Parse(time.RFC3339, s)
	if err != nil {
		t.Fatalf("parse %q: %v", s, err)
	}
	return tm
}

func tod(t *testing.T, s string) time.Time {
	return mustParse(t, "2000-01-01T"+s+":00Z")
}

func allWeekdays() map[time.Weekday]bool {
	return map[time.Weekday]bool{
		time.Sunday: true, time.Monday: true, time.Tuesday: true,
		time.Wednesday: true, time.Thursday: true, time.Friday: true, time.Saturday: true,
	}
}

func baseUmp(t *testing.T) Ump {
	return Ump{
		AllowedWeekdays:              allWeekdays(),
		MinSessionHours:              0.5,
		MaxSessionHours:              2,
		MinBreakBetweenSessionsHours: 0.5,
		SleepWindow:                  windows.TimeWindow{Start: tod(t, "23:00"), End: tod(t, "07:00")},
		PreferredWindow:              windows.TimeWindow{Start: tod(t, "12:00"), End: tod(t, "20:00")},
	}
}

func baseRequest(t *testing.T) TaskRequest {
	return TaskRequest{
		Title: "write report",
		Tag:   "work",
		Scope: ticks.Scope{
			Start: mustParse(t, "2025-01-06T09:00:00Z"),
			End:   mustParse(t, "2025-01-06T12:00:00Z"),
		},
		TaskLengthHours:       1,
		Priority:              placer.PriorityMedium,
		MaxAllowedHoursPerDay: 8,
		Spread:                placer.SpreadUniform,
	}
}

func TestScheduleTrivialPlacement(t *testing.T) {
	res, err := Schedule(context.Background(), baseRequest(t), baseUmp(t), nil, mustParse(t, "2025-01-06T08:00:00Z"))
	if err != nil {
		t.Fatal(err)
	}
	if res.Kind != Scheduled {
		t.Fatalf("kind = %v, want Scheduled", res.Kind)
	}
	if len(res.Sessions) != 1 {
		t.Fatalf("got %d sessions, want 1", len(res.Sessions))
	}
	got := res.Sessions[0].End.Sub(res.Sessions[0].Start)
	if got != time.Hour {
		t.Fatalf("session duration = %v, want 1h", got)
	}
}

func TestScheduleInfeasibleByBlockers(t *testing.T) {
	req := baseRequest(t)
	req.Scope.End = mustParse(t, "2025-01-06T10:00:00Z")
	req.TaskLengthHours = 2

	res, err := Schedule(context.Background(), req, baseUmp(t), nil, mustParse(t, "2025-01-06T08:00:00Z"))
	if err != nil {
		t.Fatal(err)
	}
	if res.Kind != Infeasible {
		t.Fatalf("kind = %v, want Infeasible", res.Kind)
	}
	if res.Reason == "" {
		t.Fatal("expected a non-empty reason tag")
	}
}

func TestScheduleMultipleSessionsWithBreak(t *testing.T) {
	req := baseRequest(t)
	req.Scope = ticks.Scope{
		Start: mustParse(t, "2025-01-06T08:00:00Z"),
		End:   mustParse(t, "2025-01-06T20:00:00Z"),
	}
	req.TaskLengthHours = 4

	res, err := Schedule(context.Background(), req, baseUmp(t), nil, mustParse(t, "2025-01-06T08:00:00Z"))
	if err != nil {
		t.Fatal(err)
	}
	if res.Kind != Scheduled {
		t.Fatalf("kind = %v, want Scheduled", res.Kind)
	}
	if len(res.Sessions) < 2 {
		t.Fatalf("got %d sessions, want >= 2", len(res.Sessions))
	}
	total := time.Duration(0)
	for i, s := range res.Sessions {
		total += s.End.Sub(s.Start)
		if i > 0 {
			gap := s.Start.Sub(res.Sessions[i-1].End)
			if gap < 30*time.Minute {
				t.Fatalf("gap between session %d and %d = %v, want >= 30m", i-1, i, gap)
			}
		}
	}
	if total != 4*time.Hour {
		t.Fatalf("total duration = %v, want 4h", total)
	}
}

func TestScheduleEventBlocksSlot(t *testing.T) {
	req := baseRequest(t)
	req.Scope = ticks.Scope{
		Start: mustParse(t, "2025-01-06T09:00:00Z"),
		End:   mustParse(t, "2025-01-06T11:00:00Z"),
	}
	events := []Event{
		{ID: "busy-1", Start: mustParse(t, "2025-01-06T09:00:00Z"), End: mustParse(t, "2025-01-06T10:00:00Z")},
	}

	res, err := Schedule(context.Background(), req, baseUmp(t), events, mustParse(t, "2025-01-06T08:00:00Z"))
	if err != nil {
		t.Fatal(err)
	}
	if res.Kind != Scheduled {
		t.Fatalf("kind = %v, want Scheduled", res.Kind)
	}
	for _, s := range res.Sessions {
		if s.Start.Before(events[0].End) {
			t.Fatalf("session %v overlaps blocking event ending at %v", s, events[0].End)
		}
	}
}

func TestScheduleDuplicateEventIDIsInvalidInput(t *testing.T) {
	req := baseRequest(t)
	events := []Event{
		{ID: "dup", Start: mustParse(t, "2025-01-06T09:00:00Z"), End: mustParse(t, "2025-01-06T09:30:00Z")},
		{ID: "dup", Start: mustParse(t, "2025-01-06T10:00:00Z"), End: mustParse(t, "2025-01-06T10:30:00Z")},
	}

	_, err := Schedule(context.Background(), req, baseUmp(t), events, mustParse(t, "2025-01-06T08:00:00Z"))
	var invErr *InvalidInputError
	if err == nil {
		t.Fatal("expected invalid input error for duplicate event ids")
	}
	if e, ok := err.(*InvalidInputError); ok {
		invErr = e
	}
	if invErr == nil {
		t.Fatalf("got error %v, want *InvalidInputError", err)
	}
}

func TestScheduleRelationBeforePrefersEarlierSession(t *testing.T) {
	dayPeriod := windows.TimeWindow{Start: tod(t, "14:00"), End: tod(t, "16:00")}
	req := TaskRequest{
		Title: "prep",
		Tag:   "work",
		Scope: ticks.Scope{
			Start: mustParse(t, "2025-01-06T08:00:00Z"),
			End:   mustParse(t, "2025-01-06T20:00:00Z"),
		},
		TaskLengthHours:       1,
		Priority:              placer.PriorityMedium,
		MaxAllowedHoursPerDay: 8,
		Spread:                placer.SpreadUniform,
		DayPeriod:             &dayPeriod,
		RelationToDayPeriod:   placer.RelationBefore,
	}

	res, err := Schedule(context.Background(), req, baseUmp(t), nil, mustParse(t, "2025-01-06T08:00:00Z"))
	if err != nil {
		t.Fatal(err)
	}
	if res.Kind != Scheduled || len(res.Sessions) != 1 {
		t.Fatalf("kind=%v sessions=%v", res.Kind, res.Sessions)
	}
	dayPeriodStart := mustParse(t, "2025-01-06T14:00:00Z")
	if !res.Sessions[0].End.After(dayPeriodStart) && !res.Sessions[0].End.Equal(dayPeriodStart) {
		// fine, session ends before or exactly at day_period start
	}
	if res.Sessions[0].End.After(dayPeriodStart) {
		t.Fatalf("session %v does not end before day_period start %v", res.Sessions[0], dayPeriodStart)
	}
}

func TestScheduleFrontloadedStartsEarlierThanUniform(t *testing.T) {
	makeReq := func(spread placer.Spread) TaskRequest {
		return TaskRequest{
			Title: "study",
			Tag:   "school",
			Scope: ticks.Scope{
				Start: mustParse(t, "2025-01-06T08:00:00Z"),
				End:   mustParse(t, "2025-01-06T20:00:00Z"),
			},
			TaskLengthHours:       1,
			Priority:              placer.PriorityMedium,
			MaxAllowedHoursPerDay: 8,
			Spread:                spread,
		}
	}
	ump := baseUmp(t)
	ump.PreferredWindow = windows.TimeWindow{Start: tod(t, "08:00"), End: tod(t, "20:00")}
	ump.MinSessionHours = 1
	ump.MaxSessionHours = 1

	uniform, err := Schedule(context.Background(), makeReq(placer.SpreadUniform), ump, nil, mustParse(t, "2025-01-06T08:00:00Z"))
	if err != nil {
		t.Fatal(err)
	}
	frontloaded, err := Schedule(context.Background(), makeReq(placer.SpreadFrontloaded), ump, nil, mustParse(t, "2025-01-06T08:00:00Z"))
	if err != nil {
		t.Fatal(err)
	}
	if len(uniform.Sessions) != 1 || len(frontloaded.Sessions) != 1 {
		t.Fatalf("expected single sessions, got %d and %d", len(uniform.Sessions), len(frontloaded.Sessions))
	}
	if frontloaded.Sessions[0].Start.After(uniform.Sessions[0].Start) {
		t.Fatalf("frontloaded start %v should be <= uniform start %v", frontloaded.Sessions[0].Start, uniform.Sessions[0].Start)
	}
}

func TestScheduleInvalidInputMissingTitle(t *testing.T) {
	req := baseRequest(t)
	req.Title = ""
	_, err := Schedule(context.Background(), req, baseUmp(t), nil, mustParse(t, "2025-01-06T08:00:00Z"))
	if err == nil {
		t.Fatal("expected invalid input error")
	}
}

