package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/example/taskscheduler/internal/persistence"
)

// UmpRepository implements persistence.UmpRepository using SQLite. UMP rows
// are one-per-user: GetUmp/UpsertUmp never need a secondary key.
type UmpRepository struct {
	pool   *ConnectionPool
	helper *QueryHelper
	mapper *ErrorMapper
}

// NewUmpRepository creates a new SQLite user-model-preferences repository.
func NewUmpRepository(pool *ConnectionPool) *UmpRepository {
	return &UmpRepository{
		pool:   pool,
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
	}
}

// GetUmp retrieves the stored scheduling preferences for a user.
func (r *UmpRepository) GetUmp(ctx context.Context, userID string) (persistence.Ump, error) {
	if userID == "" {
		return persistence.Ump{}, persistence.ErrNotFound
	}

	query := `
		SELECT user_id, allowed_weekdays, min_session_hours, max_session_hours,
		       min_break_between_sessions_hours, sleep_window_start, sleep_window_end,
		       do_not_disturb_start, do_not_disturb_end, preferred_window_start,
		       preferred_window_end, updated_at
		FROM ump
		WHERE user_id = ?
	`

	var ump persistence.Ump
	var weekdayMask int64
	var sleepStartStr, sleepEndStr, preferredStartStr, preferredEndStr, updatedAtStr string
	var dndStart, dndEnd sql.NullString

	err := r.helper.QueryRow(ctx, query, userID).Scan(
		&ump.UserID,
		&weekdayMask,
		&ump.MinSessionHours,
		&ump.MaxSessionHours,
		&ump.MinBreakBetweenSessionsHours,
		&sleepStartStr,
		&sleepEndStr,
		&dndStart,
		&dndEnd,
		&preferredStartStr,
		&preferredEndStr,
		&updatedAtStr,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return persistence.Ump{}, persistence.ErrNotFound
		}
		return persistence.Ump{}, r.mapper.MapError(err)
	}

	ump.AllowedWeekdays = decodeWeekdays(weekdayMask)

	if ump.SleepWindowStart, err = time.Parse(time.RFC3339, sleepStartStr); err != nil {
		return persistence.Ump{}, fmt.Errorf("failed to parse sleep_window_start: %w", err)
	}
	if ump.SleepWindowEnd, err = time.Parse(time.RFC3339, sleepEndStr); err != nil {
		return persistence.Ump{}, fmt.Errorf("failed to parse sleep_window_end: %w", err)
	}
	if ump.PreferredWindowStart, err = time.Parse(time.RFC3339, preferredStartStr); err != nil {
		return persistence.Ump{}, fmt.Errorf("failed to parse preferred_window_start: %w", err)
	}
	if ump.PreferredWindowEnd, err = time.Parse(time.RFC3339, preferredEndStr); err != nil {
		return persistence.Ump{}, fmt.Errorf("failed to parse preferred_window_end: %w", err)
	}
	if ump.DoNotDisturbStart, err = parseNullTimePtr(dndStart); err != nil {
		return persistence.Ump{}, fmt.Errorf("failed to parse do_not_disturb_start: %w", err)
	}
	if ump.DoNotDisturbEnd, err = parseNullTimePtr(dndEnd); err != nil {
		return persistence.Ump{}, fmt.Errorf("failed to parse do_not_disturb_end: %w", err)
	}
	if ump.UpdatedAt, err = time.Parse(time.RFC3339, updatedAtStr); err != nil {
		return persistence.Ump{}, fmt.Errorf("failed to parse updated_at: %w", err)
	}
	return ump, nil
}

// UpsertUmp creates or replaces the stored scheduling preferences for a user.
func (r *UmpRepository) UpsertUmp(ctx context.Context, ump persistence.Ump) error {
	if ump.UserID == "" {
		return persistence.ErrConstraintViolation
	}
	if (ump.DoNotDisturbStart == nil) != (ump.DoNotDisturbEnd == nil) {
		return persistence.ErrConstraintViolation
	}

	ump.UpdatedAt = time.Now().UTC()
	weekdayMask := encodeWeekdays(ump.AllowedWeekdays)

	query := `
		INSERT OR REPLACE INTO ump (
			user_id, allowed_weekdays, min_session_hours, max_session_hours,
			min_break_between_sessions_hours, sleep_window_start, sleep_window_end,
			do_not_disturb_start, do_not_disturb_end, preferred_window_start,
			preferred_window_end, updated_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.helper.Exec(ctx, query,
		ump.UserID,
		weekdayMask,
		ump.MinSessionHours,
		ump.MaxSessionHours,
		ump.MinBreakBetweenSessionsHours,
		ump.SleepWindowStart.UTC().Format(time.RFC3339),
		ump.SleepWindowEnd.UTC().Format(time.RFC3339),
		formatTimePtr(ump.DoNotDisturbStart),
		formatTimePtr(ump.DoNotDisturbEnd),
		ump.PreferredWindowStart.UTC().Format(time.RFC3339),
		ump.PreferredWindowEnd.UTC().Format(time.RFC3339),
		ump.UpdatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return r.mapUmpError(err)
	}
	return nil
}

func (r *UmpRepository) mapUmpError(err error) error {
	if err == nil {
		return nil
	}
	errStr := err.Error()
	if containsAny(errStr, []string{"FOREIGN KEY constraint failed"}) {
		return persistence.ErrForeignKeyViolation
	}
	if containsAny(errStr, []string{"CHECK constraint failed"}) {
		return persistence.ErrConstraintViolation
	}
	return r.mapper.MapError(err)
}
