package ticks

import (
	"testing"
	"time"
)

func mustParse(t *testing.T, s string) time.Time {
	t.Helper()
	tm, err := time.Parse(time.RFC3339, s)
	if err != nil {
		t.Fatalf("parse %q: %v", s, err)
	}
	return tm
}

func TestRoundDown(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"2025-01-06T09:00:00Z", "2025-01-06T09:00:00Z"},
		{"2025-01-06T09:02:00Z", "2025-01-06T09:00:00Z"},
		{"2025-01-06T09:04:59Z", "2025-01-06T09:00:00Z"},
		{"2025-01-06T09:07:30Z", "2025-01-06T09:05:00Z"},
	}
	for _, c := range cases {
		got := RoundDown(mustParse(t, c.in))
		want := mustParse(t, c.want)
		if !got.Equal(want) {
			t.Errorf("RoundDown(%s) = %s, want %s", c.in, got, want)
		}
	}
}

func TestRoundUp(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"2025-01-06T09:00:00Z", "2025-01-06T09:00:00Z"},
		{"2025-01-06T09:00:01Z", "2025-01-06T09:05:00Z"},
		{"2025-01-06T09:04:00Z", "2025-01-06T09:05:00Z"},
		{"2025-01-06T09:05:00Z", "2025-01-06T09:05:00Z"},
	}
	for _, c := range cases {
		got := RoundUp(mustParse(t, c.in))
		want := mustParse(t, c.want)
		if !got.Equal(want) {
			t.Errorf("RoundUp(%s) = %s, want %s", c.in, got, want)
		}
	}
}

func TestRoundTripAlignedInstant(t *testing.T) {
	ref := mustParse(t, "2025-01-06T09:00:00Z")
	dt := mustParse(t, "2025-01-06T10:35:00Z")

	tick := FromDiff(dt, ref)
	back := ToInstant(tick, ref)
	if !back.Equal(dt) {
		t.Fatalf("round trip mismatch: got %s want %s", back, dt)
	}

	if !RoundDown(dt).Equal(dt) || !RoundUp(dt).Equal(dt) {
		t.Fatalf("expected aligned instant to be its own round down/up")
	}
}

func TestFromDiffNegative(t *testing.T) {
	ref := mustParse(t, "2025-01-06T09:00:00Z")
	dt := mustParse(t, "2025-01-06T08:50:00Z")
	if got := FromDiff(dt, ref); got != -2 {
		t.Fatalf("FromDiff before reference = %d, want -2", got)
	}
}

func TestHoursToTicks(t *testing.T) {
	cases := []struct {
		hours float64
		want  int
	}{
		{1, 12},
		{0.5, 6},
		{2.5, 30},
		{0, 0},
	}
	for _, c := range cases {
		if got := HoursToTicks(c.hours); got != c.want {
			t.Errorf("HoursToTicks(%v) = %d, want %d", c.hours, got, c.want)
		}
	}
}

func TestScopeRoundedAndEndTick(t *testing.T) {
	scope := Scope{
		Start: mustParse(t, "2025-01-06T09:02:00Z"),
		End:   mustParse(t, "2025-01-06T12:01:00Z"),
	}
	start, end := scope.Rounded()
	if !start.Equal(mustParse(t, "2025-01-06T09:00:00Z")) {
		t.Errorf("rounded start = %s", start)
	}
	if !end.Equal(mustParse(t, "2025-01-06T12:05:00Z")) {
		t.Errorf("rounded end = %s", end)
	}
	if got := scope.EndTick(); got != 37 {
		t.Errorf("EndTick = %d, want 37", got)
	}
}
