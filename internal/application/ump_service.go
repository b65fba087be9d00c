package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/example/taskscheduler/internal/persistence"
)

// UmpRepository captures the persistence operations needed by the Ump
// service. Ump (the user model of scheduling preferences) is a single row
// per user.
type UmpRepository interface {
	GetUmp(ctx context.Context, userID string) (persistence.Ump, error)
	UpsertUmp(ctx context.Context, ump persistence.Ump) error
}

// UmpService manages a user's standing scheduling preferences.
type UmpService struct {
	ump    UmpRepository
	now    func() time.Time
	logger *slog.Logger
}

// NewUmpService wires dependencies for the Ump service.
func NewUmpService(ump UmpRepository, now func() time.Time) *UmpService {
	return NewUmpServiceWithLogger(ump, now, nil)
}

// NewUmpServiceWithLogger wires dependencies for the Ump service and accepts a logger.
func NewUmpServiceWithLogger(ump UmpRepository, now func() time.Time, logger *slog.Logger) *UmpService {
	if now == nil {
		now = time.Now
	}
	return &UmpService{ump: ump, now: now, logger: defaultLogger(logger)}
}

func (s *UmpService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "UmpService", operation, attrs...)
}

// GetUmp fetches the preferences for a user.
func (s *UmpService) GetUmp(ctx context.Context, params GetUmpParams) (ump Ump, err error) {
	if s == nil {
		err = fmt.Errorf("UmpService is nil")
		return
	}
	if s.ump == nil {
		err = fmt.Errorf("ump repository not configured")
		return
	}
	if !authorizedForOwner(params.Principal, params.UserID) {
		err = ErrUnauthorized
		return
	}

	logger := s.loggerWith(ctx, "GetUmp", "principal_id", params.Principal.UserID, "user_id", params.UserID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to fetch preferences", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "preferences fetched")
	}()

	record, getErr := s.ump.GetUmp(ctx, params.UserID)
	if getErr != nil {
		err = mapUmpRepoError(getErr)
		return
	}
	ump = umpFromRecord(record)
	return
}

// UpdateUmp validates and persists a user's preferences, creating them on
// first write.
func (s *UmpService) UpdateUmp(ctx context.Context, params UpdateUmpParams) (ump Ump, err error) {
	if s == nil {
		err = fmt.Errorf("UmpService is nil")
		return
	}
	if s.ump == nil {
		err = fmt.Errorf("ump repository not configured")
		return
	}
	if !authorizedForOwner(params.Principal, params.UserID) {
		err = ErrUnauthorized
		return
	}

	logger := s.loggerWith(ctx, "UpdateUmp", "principal_id", params.Principal.UserID, "user_id", params.UserID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to update preferences", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "preferences updated")
	}()

	vErr := validateUmpInput(params.Input)
	if vErr.HasErrors() {
		err = vErr
		return
	}

	record := persistence.Ump{
		UserID:                       params.UserID,
		AllowedWeekdays:              toTimeWeekdays(params.Input.AllowedWeekdays),
		MinSessionHours:              params.Input.MinSessionHours,
		MaxSessionHours:              params.Input.MaxSessionHours,
		MinBreakBetweenSessionsHours: params.Input.MinBreakBetweenSessionsHours,
		SleepWindowStart:             params.Input.SleepWindowStart,
		SleepWindowEnd:               params.Input.SleepWindowEnd,
		DoNotDisturbStart:            params.Input.DoNotDisturbStart,
		DoNotDisturbEnd:              params.Input.DoNotDisturbEnd,
		PreferredWindowStart:         params.Input.PreferredWindowStart,
		PreferredWindowEnd:           params.Input.PreferredWindowEnd,
		UpdatedAt:                    s.now(),
	}

	if err = s.ump.UpsertUmp(ctx, record); err != nil {
		err = mapUmpRepoError(err)
		return
	}
	ump = umpFromRecord(record)
	return
}

func umpFromRecord(record persistence.Ump) Ump {
	return Ump{
		UserID:                       record.UserID,
		AllowedWeekdays:              weekdaysToStrings(record.AllowedWeekdays),
		MinSessionHours:              record.MinSessionHours,
		MaxSessionHours:              record.MaxSessionHours,
		MinBreakBetweenSessionsHours: record.MinBreakBetweenSessionsHours,
		SleepWindowStart:             record.SleepWindowStart,
		SleepWindowEnd:               record.SleepWindowEnd,
		DoNotDisturbStart:            record.DoNotDisturbStart,
		DoNotDisturbEnd:              record.DoNotDisturbEnd,
		PreferredWindowStart:         record.PreferredWindowStart,
		PreferredWindowEnd:           record.PreferredWindowEnd,
		UpdatedAt:                    record.UpdatedAt,
	}
}

var weekdayNames = [...]string{
	time.Sunday:    "sunday",
	time.Monday:    "monday",
	time.Tuesday:   "tuesday",
	time.Wednesday: "wednesday",
	time.Thursday:  "thursday",
	time.Friday:    "friday",
	time.Saturday:  "saturday",
}

func weekdaysToStrings(days []time.Weekday) []string {
	out := make([]string, 0, len(days))
	for _, d := range days {
		out = append(out, weekdayNames[d])
	}
	return out
}

func validateUmpInput(input UmpInput) *ValidationError {
	vErr := &ValidationError{}
	if len(input.AllowedWeekdays) == 0 {
		vErr.add("allowed_weekdays", "at least one allowed weekday is required")
	}
	if input.MinSessionHours <= 0 {
		vErr.add("min_session_hours", "must be greater than zero")
	}
	if input.MaxSessionHours < input.MinSessionHours {
		vErr.add("max_session_hours", "must not be less than min_session_hours")
	}
	if input.MinBreakBetweenSessionsHours < 0 {
		vErr.add("min_break_between_sessions_hours", "must not be negative")
	}
	if !input.PreferredWindowEnd.After(input.PreferredWindowStart) && input.PreferredWindowStart != input.PreferredWindowEnd {
		vErr.add("preferred_window", "end must be after start unless spanning midnight")
	}
	return vErr
}

func mapUmpRepoError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, persistence.ErrNotFound) {
		return ErrNotFound
	}
	if errors.Is(err, persistence.ErrDuplicate) {
		return ErrAlreadyExists
	}
	return err
}
