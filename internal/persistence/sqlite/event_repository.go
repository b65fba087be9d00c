package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/example/taskscheduler/internal/persistence"
)

// EventRepository implements persistence.EventRepository using SQLite.
type EventRepository struct {
	pool   *ConnectionPool
	helper *QueryHelper
	mapper *ErrorMapper
}

// NewEventRepository creates a new SQLite event repository.
func NewEventRepository(pool *ConnectionPool) *EventRepository {
	return &EventRepository{
		pool:   pool,
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
	}
}

// CreateEvent inserts a new calendar event into the database.
func (r *EventRepository) CreateEvent(ctx context.Context, event persistence.Event) error {
	if event.ID == "" {
		return persistence.ErrConstraintViolation
	}
	if err := r.validateEvent(event); err != nil {
		return err
	}

	now := time.Now().UTC()
	event.CreatedAt = now
	event.UpdatedAt = now

	query := `
		INSERT INTO events (id, owner_id, title, tag, priority, start_time, end_time, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.helper.Exec(ctx, query,
		event.ID,
		event.OwnerID,
		event.Title,
		event.Tag,
		event.Priority,
		event.Start.UTC().Format(time.RFC3339),
		event.End.UTC().Format(time.RFC3339),
		event.CreatedAt.Format(time.RFC3339),
		event.UpdatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return r.mapEventError(err)
	}
	return nil
}

// UpdateEvent updates an existing calendar event in the database.
func (r *EventRepository) UpdateEvent(ctx context.Context, event persistence.Event) error {
	if event.ID == "" {
		return persistence.ErrConstraintViolation
	}
	if err := r.validateEvent(event); err != nil {
		return err
	}

	event.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE events
		SET title = ?, tag = ?, priority = ?, start_time = ?, end_time = ?, updated_at = ?
		WHERE id = ?
	`
	result, err := r.helper.Exec(ctx, query,
		event.Title,
		event.Tag,
		event.Priority,
		event.Start.UTC().Format(time.RFC3339),
		event.End.UTC().Format(time.RFC3339),
		event.UpdatedAt.Format(time.RFC3339),
		event.ID,
	)
	if err != nil {
		return r.mapEventError(err)
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

// GetEvent retrieves a calendar event by ID from the database.
func (r *EventRepository) GetEvent(ctx context.Context, id string) (persistence.Event, error) {
	if id == "" {
		return persistence.Event{}, persistence.ErrNotFound
	}

	query := `
		SELECT id, owner_id, title, tag, priority, start_time, end_time, created_at, updated_at
		FROM events
		WHERE id = ?
	`
	row := r.helper.QueryRow(ctx, query, id)
	event, err := r.scanEvent(row.Scan)
	if err != nil {
		if err == sql.ErrNoRows {
			return persistence.Event{}, persistence.ErrNotFound
		}
		return persistence.Event{}, err
	}
	return event, nil
}

// ListEvents lists calendar events filtered by owner and time range.
func (r *EventRepository) ListEvents(ctx context.Context, filter persistence.EventFilter) ([]persistence.Event, error) {
	query, args := r.buildListQuery(filter)

	rows, err := r.helper.Query(ctx, query, args...)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var events []persistence.Event
	for rows.Next() {
		event, err := r.scanEvent(rows.Scan)
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}
	return events, nil
}

// DeleteEvent removes a calendar event and any recurrence rules attached to it.
func (r *EventRepository) DeleteEvent(ctx context.Context, id string) error {
	if id == "" {
		return persistence.ErrNotFound
	}

	return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		if _, err := r.helper.ExecTx(tx, "DELETE FROM event_recurrences WHERE event_id = ?", id); err != nil {
			return r.mapper.MapError(err)
		}

		result, err := r.helper.ExecTx(tx, "DELETE FROM events WHERE id = ?", id)
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
	})
}

func (r *EventRepository) scanEvent(scan func(dest ...interface{}) error) (persistence.Event, error) {
	var event persistence.Event
	var startStr, endStr, createdAtStr, updatedAtStr string

	err := scan(
		&event.ID,
		&event.OwnerID,
		&event.Title,
		&event.Tag,
		&event.Priority,
		&startStr,
		&endStr,
		&createdAtStr,
		&updatedAtStr,
	)
	if err != nil {
		return persistence.Event{}, err
	}

	if event.Start, err = time.Parse(time.RFC3339, startStr); err != nil {
		return persistence.Event{}, fmt.Errorf("failed to parse start_time: %w", err)
	}
	if event.End, err = time.Parse(time.RFC3339, endStr); err != nil {
		return persistence.Event{}, fmt.Errorf("failed to parse end_time: %w", err)
	}
	if event.CreatedAt, err = time.Parse(time.RFC3339, createdAtStr); err != nil {
		return persistence.Event{}, fmt.Errorf("failed to parse created_at: %w", err)
	}
	if event.UpdatedAt, err = time.Parse(time.RFC3339, updatedAtStr); err != nil {
		return persistence.Event{}, fmt.Errorf("failed to parse updated_at: %w", err)
	}
	return event, nil
}

func (r *EventRepository) buildListQuery(filter persistence.EventFilter) (string, []interface{}) {
	baseQuery := `
		SELECT id, owner_id, title, tag, priority, start_time, end_time, created_at, updated_at
		FROM events
	`
	var conditions []string
	var args []interface{}

	if filter.OwnerID != "" {
		conditions = append(conditions, "owner_id = ?")
		args = append(args, filter.OwnerID)
	}
	if filter.StartsAfter != nil {
		conditions = append(conditions, "end_time > ?")
		args = append(args, filter.StartsAfter.UTC().Format(time.RFC3339))
	}
	if filter.EndsBefore != nil {
		conditions = append(conditions, "start_time < ?")
		args = append(args, filter.EndsBefore.UTC().Format(time.RFC3339))
	}
	if len(conditions) > 0 {
		baseQuery += " WHERE " + strings.Join(conditions, " AND ")
	}
	baseQuery += " ORDER BY start_time ASC, id ASC"
	return baseQuery, args
}

func (r *EventRepository) validateEvent(event persistence.Event) error {
	if !event.End.After(event.Start) {
		return persistence.ErrConstraintViolation
	}
	return nil
}

func (r *EventRepository) mapEventError(err error) error {
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
