package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/example/taskscheduler/internal/persistence"
)

// EventRecurrenceRepository implements persistence.EventRecurrenceRepository
// using SQLite.
type EventRecurrenceRepository struct {
	pool   *ConnectionPool
	helper *QueryHelper
	mapper *ErrorMapper
}

// NewEventRecurrenceRepository creates a new SQLite event recurrence repository.
func NewEventRecurrenceRepository(pool *ConnectionPool) *EventRecurrenceRepository {
	return &EventRecurrenceRepository{
		pool:   pool,
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
	}
}

// UpsertRecurrence creates or updates a recurrence rule attached to an event.
func (r *EventRecurrenceRepository) UpsertRecurrence(ctx context.Context, rule persistence.EventRecurrence) error {
	if rule.ID == "" {
		return persistence.ErrConstraintViolation
	}
	if rule.EventID == "" {
		return persistence.ErrConstraintViolation
	}
	if err := r.validateRecurrence(rule); err != nil {
		return err
	}

	rule.StartsOn = rule.StartsOn.UTC()
	if rule.EndsOn != nil {
		endsOn := rule.EndsOn.UTC()
		rule.EndsOn = &endsOn
	}
	now := time.Now().UTC()
	rule.UpdatedAt = now

	return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		var existingCreatedAt sql.NullString
		err := r.helper.QueryRowTx(tx, "SELECT created_at FROM event_recurrences WHERE id = ?", rule.ID).Scan(&existingCreatedAt)
		if err != nil && err != sql.ErrNoRows {
			return r.mapper.MapError(err)
		}

		if existingCreatedAt.Valid {
			if rule.CreatedAt, err = time.Parse(time.RFC3339, existingCreatedAt.String); err != nil {
				return fmt.Errorf("failed to parse existing created_at: %w", err)
			}
		} else {
			rule.CreatedAt = now
		}

		weekdayMask := encodeWeekdays(rule.Weekdays)

		var endsOn sql.NullString
		if rule.EndsOn != nil {
			endsOn.String = rule.EndsOn.Format(time.RFC3339)
			endsOn.Valid = true
		}

		query := `
			INSERT OR REPLACE INTO event_recurrences
			(id, event_id, frequency, weekdays, starts_on, ends_on, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`
		_, err = r.helper.ExecTx(tx, query,
			rule.ID,
			rule.EventID,
			rule.Frequency,
			weekdayMask,
			rule.StartsOn.Format(time.RFC3339),
			endsOn,
			rule.CreatedAt.Format(time.RFC3339),
			rule.UpdatedAt.Format(time.RFC3339),
		)
		if err != nil {
			return r.mapRecurrenceError(err)
		}
		return nil
	})
}

// ListRecurrencesForEvent lists recurrence rules for an event in creation order.
func (r *EventRecurrenceRepository) ListRecurrencesForEvent(ctx context.Context, eventID string) ([]persistence.EventRecurrence, error) {
	if eventID == "" {
		return []persistence.EventRecurrence{}, nil
	}

	query := `
		SELECT id, event_id, frequency, weekdays, starts_on, ends_on, created_at, updated_at
		FROM event_recurrences
		WHERE event_id = ?
		ORDER BY created_at ASC, id ASC
	`
	rows, err := r.helper.Query(ctx, query, eventID)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var rules []persistence.EventRecurrence
	for rows.Next() {
		rule, err := r.scanRecurrence(rows.Scan)
		if err != nil {
			return nil, err
		}
		rules = append(rules, rule)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}
	return rules, nil
}

// ListRecurrencesForEvents batches recurrence lookup for several events at
// once, avoiding an N+1 query pattern when expanding an event list.
func (r *EventRecurrenceRepository) ListRecurrencesForEvents(ctx context.Context, eventIDs []string) (map[string][]persistence.EventRecurrence, error) {
	result := make(map[string][]persistence.EventRecurrence)
	if len(eventIDs) == 0 {
		return result, nil
	}

	placeholders := make([]string, len(eventIDs))
	args := make([]interface{}, len(eventIDs))
	for i, id := range eventIDs {
		placeholders[i] = "?"
		args[i] = id
	}

	query := fmt.Sprintf(`
		SELECT id, event_id, frequency, weekdays, starts_on, ends_on, created_at, updated_at
		FROM event_recurrences
		WHERE event_id IN (%s)
		ORDER BY event_id ASC, created_at ASC, id ASC
	`, strings.Join(placeholders, ","))

	rows, err := r.helper.Query(ctx, query, args...)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	for rows.Next() {
		rule, err := r.scanRecurrence(rows.Scan)
		if err != nil {
			return nil, err
		}
		result[rule.EventID] = append(result[rule.EventID], rule)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}
	return result, nil
}

// DeleteRecurrence deletes a recurrence rule by ID.
func (r *EventRecurrenceRepository) DeleteRecurrence(ctx context.Context, id string) error {
	if id == "" {
		return persistence.ErrNotFound
	}

	result, err := r.helper.Exec(ctx, "DELETE FROM event_recurrences WHERE id = ?", id)
	if err != nil {
		return r.mapper.MapError(err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return persistence.ErrNotFound
	}
	return nil
}

// DeleteRecurrencesForEvent deletes all recurrence rules attached to an event.
func (r *EventRecurrenceRepository) DeleteRecurrencesForEvent(ctx context.Context, eventID string) error {
	if eventID == "" {
		return nil
	}
	_, err := r.helper.Exec(ctx, "DELETE FROM event_recurrences WHERE event_id = ?", eventID)
	if err != nil {
		return r.mapper.MapError(err)
	}
	return nil
}

func (r *EventRecurrenceRepository) scanRecurrence(scan func(dest ...interface{}) error) (persistence.EventRecurrence, error) {
	var rule persistence.EventRecurrence
	var createdAtStr, updatedAtStr, startsOnStr string
	var endsOn sql.NullString
	var weekdayMask int64

	err := scan(
		&rule.ID,
		&rule.EventID,
		&rule.Frequency,
		&weekdayMask,
		&startsOnStr,
		&endsOn,
		&createdAtStr,
		&updatedAtStr,
	)
	if err != nil {
		return persistence.EventRecurrence{}, err
	}

	rule.Weekdays = decodeWeekdays(weekdayMask)

	if endsOn.Valid {
		if rule.EndsOn, err = parseTimePtr(endsOn.String); err != nil {
			return persistence.EventRecurrence{}, fmt.Errorf("failed to parse ends_on: %w", err)
		}
	}
	if rule.StartsOn, err = time.Parse(time.RFC3339, startsOnStr); err != nil {
		return persistence.EventRecurrence{}, fmt.Errorf("failed to parse starts_on: %w", err)
	}
	if rule.CreatedAt, err = time.Parse(time.RFC3339, createdAtStr); err != nil {
		return persistence.EventRecurrence{}, fmt.Errorf("failed to parse created_at: %w", err)
	}
	if rule.UpdatedAt, err = time.Parse(time.RFC3339, updatedAtStr); err != nil {
		return persistence.EventRecurrence{}, fmt.Errorf("failed to parse updated_at: %w", err)
	}
	return rule, nil
}

func (r *EventRecurrenceRepository) validateRecurrence(rule persistence.EventRecurrence) error {
	if rule.EndsOn != nil && rule.EndsOn.Before(rule.StartsOn) {
		return persistence.ErrConstraintViolation
	}
	if rule.Frequency <= 0 {
		return persistence.ErrConstraintViolation
	}
	return nil
}

func (r *EventRecurrenceRepository) mapRecurrenceError(err error) error {
	if err == nil {
		return nil
	}
	errStr := err.Error()
	if containsAny(errStr, []string{"UNIQUE constraint failed"}) {
		return persistence.ErrDuplicate
	}
	if containsAny(errStr, []string{"FOREIGN KEY constraint failed"}) {
		return persistence.ErrForeignKeyViolation
	}
	if containsAny(errStr, []string{"CHECK constraint failed"}) {
		return persistence.ErrConstraintViolation
	}
	return r.mapper.MapError(err)
}

// parseTimePtr parses a time string and returns a pointer to the time.
func parseTimePtr(timeStr string) (*time.Time, error) {
	t, err := time.Parse(time.RFC3339, timeStr)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// encodeWeekdays encodes weekdays as a bitmask for storage.
func encodeWeekdays(weekdays []time.Weekday) int64 {
	var mask int64
	for _, day := range weekdays {
		if day >= time.Sunday && day <= time.Saturday {
			mask |= 1 << uint(day)
		}
	}
	return mask
}

// decodeWeekdays decodes weekdays from a bitmask.
func decodeWeekdays(mask int64) []time.Weekday {
	var weekdays []time.Weekday
	for day := time.Sunday; day <= time.Saturday; day++ {
		if mask&(1<<uint(day)) != 0 {
			weekdays = append(weekdays, day)
		}
	}
	return weekdays
}
