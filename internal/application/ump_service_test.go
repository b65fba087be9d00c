package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/example/taskscheduler/internal/persistence"
)

type umpRepoStub struct {
	ump      persistence.Ump
	err      error
	upserted persistence.Ump
}

func (u *umpRepoStub) GetUmp(ctx context.Context, userID string) (persistence.Ump, error) {
	if u.err != nil {
		return persistence.Ump{}, u.err
	}
	if u.ump.UserID == "" {
		return persistence.Ump{}, persistence.ErrNotFound
	}
	return u.ump, nil
}

func (u *umpRepoStub) UpsertUmp(ctx context.Context, ump persistence.Ump) error {
	if u.err != nil {
		return u.err
	}
	u.upserted = ump
	u.ump = ump
	return nil
}

func validUmpInput() UmpInput {
	day := time.Date(2024, 3, 14, 0, 0, 0, 0, time.UTC)
	return UmpInput{
		AllowedWeekdays:      []string{"monday", "tuesday", "wednesday", "thursday", "friday"},
		MinSessionHours:      0.5,
		MaxSessionHours:      4,
		SleepWindowStart:     day.Add(23 * time.Hour),
		SleepWindowEnd:       day.Add(31 * time.Hour), // 07:00 the following day
		PreferredWindowStart: day.Add(9 * time.Hour),
		PreferredWindowEnd:   day.Add(18 * time.Hour),
	}
}

func TestUmpService_GetUmp_RequiresOwnershipOrAdmin(t *testing.T) {
	svc := NewUmpService(&umpRepoStub{}, nil)

	_, err := svc.GetUmp(context.Background(), GetUmpParams{
		Principal: Principal{UserID: "user-2"},
		UserID:    "user-1",
	})

	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestUmpService_GetUmp_PropagatesNotFound(t *testing.T) {
	svc := NewUmpService(&umpRepoStub{}, nil)

	_, err := svc.GetUmp(context.Background(), GetUmpParams{
		Principal: Principal{UserID: "user-1"},
		UserID:    "user-1",
	})

	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUmpService_GetUmp_AllowsAdministratorOverride(t *testing.T) {
	repo := &umpRepoStub{ump: persistence.Ump{UserID: "user-1", AllowedWeekdays: []time.Weekday{time.Monday}}}
	svc := NewUmpService(repo, nil)

	ump, err := svc.GetUmp(context.Background(), GetUmpParams{
		Principal: Principal{UserID: "admin-1", IsAdmin: true},
		UserID:    "user-1",
	})
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if ump.UserID != "user-1" {
		t.Fatalf("unexpected ump record: %+v", ump)
	}
}

func TestUmpService_UpdateUmp_RequiresOwnershipOrAdmin(t *testing.T) {
	svc := NewUmpService(&umpRepoStub{}, nil)

	_, err := svc.UpdateUmp(context.Background(), UpdateUmpParams{
		Principal: Principal{UserID: "user-2"},
		UserID:    "user-1",
		Input:     validUmpInput(),
	})

	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestUmpService_UpdateUmp_ValidatesRequiredFields(t *testing.T) {
	svc := NewUmpService(&umpRepoStub{}, nil)

	_, err := svc.UpdateUmp(context.Background(), UpdateUmpParams{
		Principal: Principal{UserID: "user-1"},
		UserID:    "user-1",
		Input:     UmpInput{},
	})

	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	for _, field := range []string{"allowed_weekdays", "min_session_hours"} {
		if _, ok := vErr.FieldErrors[field]; !ok {
			t.Fatalf("expected %q validation error, got %v", field, vErr.FieldErrors)
		}
	}
}

func TestUmpService_UpdateUmp_RejectsMaxBelowMinSessionHours(t *testing.T) {
	svc := NewUmpService(&umpRepoStub{}, nil)

	input := validUmpInput()
	input.MinSessionHours = 2
	input.MaxSessionHours = 1

	_, err := svc.UpdateUmp(context.Background(), UpdateUmpParams{
		Principal: Principal{UserID: "user-1"},
		UserID:    "user-1",
		Input:     input,
	})

	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if _, ok := vErr.FieldErrors["max_session_hours"]; !ok {
		t.Fatalf("expected max_session_hours validation error, got %v", vErr.FieldErrors)
	}
}

func TestUmpService_UpdateUmp_PersistsValidPreferences(t *testing.T) {
	repo := &umpRepoStub{}
	now := time.Date(2024, 3, 14, 12, 0, 0, 0, time.UTC)
	svc := NewUmpService(repo, func() time.Time { return now })

	ump, err := svc.UpdateUmp(context.Background(), UpdateUmpParams{
		Principal: Principal{UserID: "user-1"},
		UserID:    "user-1",
		Input:     validUmpInput(),
	})
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if ump.UserID != "user-1" {
		t.Fatalf("unexpected owner, got %q", ump.UserID)
	}
	if len(ump.AllowedWeekdays) != 5 {
		t.Fatalf("expected five allowed weekdays, got %v", ump.AllowedWeekdays)
	}
	if !repo.upserted.UpdatedAt.Equal(now) {
		t.Fatalf("expected persisted record to carry the injected clock value, got %v", repo.upserted.UpdatedAt)
	}
}
