package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/example/taskscheduler/internal/persistence"
)

// TaskRepository implements persistence.TaskRepository using SQLite.
type TaskRepository struct {
	pool   *ConnectionPool
	helper *QueryHelper
	mapper *ErrorMapper
}

// NewTaskRepository creates a new SQLite task repository.
func NewTaskRepository(pool *ConnectionPool) *TaskRepository {
	return &TaskRepository{
		pool:   pool,
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
	}
}

// CreateTask inserts a new task request into the database.
func (r *TaskRepository) CreateTask(ctx context.Context, task persistence.TaskRequest) error {
	if task.ID == "" {
		return persistence.ErrConstraintViolation
	}
	if err := r.validateTask(task); err != nil {
		return err
	}

	now := time.Now().UTC()
	task.CreatedAt = now
	task.UpdatedAt = now

	query := `
		INSERT INTO task_requests (
			id, owner_id, title, tag, task_length_hours, scope_start, scope_end,
			priority, max_allowed_hours_per_day, spread, day_period_start, day_period_end,
			relation_to_day_period, deadline, created_at, updated_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.helper.Exec(ctx, query,
		task.ID,
		task.OwnerID,
		task.Title,
		task.Tag,
		task.TaskLengthHours,
		task.ScopeStart.UTC().Format(time.RFC3339),
		task.ScopeEnd.UTC().Format(time.RFC3339),
		task.Priority,
		task.MaxAllowedHoursPerDay,
		task.Spread,
		formatTimePtr(task.DayPeriodStart),
		formatTimePtr(task.DayPeriodEnd),
		task.RelationToDayPeriod,
		formatTimePtr(task.Deadline),
		task.CreatedAt.Format(time.RFC3339),
		task.UpdatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return r.mapTaskError(err)
	}
	return nil
}

// UpdateTask updates an existing task request in the database.
func (r *TaskRepository) UpdateTask(ctx context.Context, task persistence.TaskRequest) error {
	if task.ID == "" {
		return persistence.ErrConstraintViolation
	}
	if err := r.validateTask(task); err != nil {
		return err
	}

	task.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE task_requests
		SET title = ?, tag = ?, task_length_hours = ?, scope_start = ?, scope_end = ?,
		    priority = ?, max_allowed_hours_per_day = ?, spread = ?, day_period_start = ?,
		    day_period_end = ?, relation_to_day_period = ?, deadline = ?, updated_at = ?
		WHERE id = ?
	`

	result, err := r.helper.Exec(ctx, query,
		task.Title,
		task.Tag,
		task.TaskLengthHours,
		task.ScopeStart.UTC().Format(time.RFC3339),
		task.ScopeEnd.UTC().Format(time.RFC3339),
		task.Priority,
		task.MaxAllowedHoursPerDay,
		task.Spread,
		formatTimePtr(task.DayPeriodStart),
		formatTimePtr(task.DayPeriodEnd),
		task.RelationToDayPeriod,
		formatTimePtr(task.Deadline),
		task.UpdatedAt.Format(time.RFC3339),
		task.ID,
	)
	if err != nil {
		return r.mapTaskError(err)
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

// GetTask retrieves a task request by ID from the database.
func (r *TaskRepository) GetTask(ctx context.Context, id string) (persistence.TaskRequest, error) {
	if id == "" {
		return persistence.TaskRequest{}, persistence.ErrNotFound
	}

	query := `
		SELECT id, owner_id, title, tag, task_length_hours, scope_start, scope_end,
		       priority, max_allowed_hours_per_day, spread, day_period_start, day_period_end,
		       relation_to_day_period, deadline, created_at, updated_at
		FROM task_requests
		WHERE id = ?
	`

	row := r.helper.QueryRow(ctx, query, id)
	task, err := r.scanTask(row.Scan)
	if err != nil {
		if err == sql.ErrNoRows {
			return persistence.TaskRequest{}, persistence.ErrNotFound
		}
		return persistence.TaskRequest{}, err
	}
	return task, nil
}

// ListTasks lists task requests filtered by owner and scope range.
func (r *TaskRepository) ListTasks(ctx context.Context, filter persistence.TaskFilter) ([]persistence.TaskRequest, error) {
	query, args := r.buildListQuery(filter)

	rows, err := r.helper.Query(ctx, query, args...)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var tasks []persistence.TaskRequest
	for rows.Next() {
		task, err := r.scanTask(rows.Scan)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}
	return tasks, nil
}

// DeleteTask removes a task request and its solved sessions and diagnostic.
func (r *TaskRepository) DeleteTask(ctx context.Context, id string) error {
	if id == "" {
		return persistence.ErrNotFound
	}

	return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		if _, err := r.helper.ExecTx(tx, "DELETE FROM scheduled_sessions WHERE task_id = ?", id); err != nil {
			return r.mapper.MapError(err)
		}
		if _, err := r.helper.ExecTx(tx, "DELETE FROM task_diagnostics WHERE task_id = ?", id); err != nil {
			return r.mapper.MapError(err)
		}

		result, err := r.helper.ExecTx(tx, "DELETE FROM task_requests WHERE id = ?", id)
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

// ReplaceScheduledSessions atomically swaps the stored solved sessions for
// a task request, since a re-solve always produces a full new set.
func (r *TaskRepository) ReplaceScheduledSessions(ctx context.Context, taskID string, sessions []persistence.ScheduledSession) error {
	if taskID == "" {
		return persistence.ErrConstraintViolation
	}

	return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		if _, err := r.helper.ExecTx(tx, "DELETE FROM scheduled_sessions WHERE task_id = ?", taskID); err != nil {
			return r.mapper.MapError(err)
		}

		for _, session := range sessions {
			_, err := r.helper.ExecTx(tx,
				"INSERT INTO scheduled_sessions (id, task_id, start_time, end_time) VALUES (?, ?, ?, ?)",
				session.ID, taskID, session.Start.UTC().Format(time.RFC3339), session.End.UTC().Format(time.RFC3339),
			)
			if err != nil {
				return r.mapTaskError(err)
			}
		}
		return nil
	})
}

// ListScheduledSessions returns the stored solved sessions for a task
// request, ordered by start time.
func (r *TaskRepository) ListScheduledSessions(ctx context.Context, taskID string) ([]persistence.ScheduledSession, error) {
	query := `
		SELECT id, task_id, start_time, end_time
		FROM scheduled_sessions
		WHERE task_id = ?
		ORDER BY start_time ASC, id ASC
	`

	rows, err := r.helper.Query(ctx, query, taskID)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var sessions []persistence.ScheduledSession
	for rows.Next() {
		var session persistence.ScheduledSession
		var startStr, endStr string
		if err := rows.Scan(&session.ID, &session.TaskID, &startStr, &endStr); err != nil {
			return nil, r.mapper.MapError(err)
		}
		if session.Start, err = time.Parse(time.RFC3339, startStr); err != nil {
			return nil, fmt.Errorf("failed to parse start_time: %w", err)
		}
		if session.End, err = time.Parse(time.RFC3339, endStr); err != nil {
			return nil, fmt.Errorf("failed to parse end_time: %w", err)
		}
		sessions = append(sessions, session)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}
	return sessions, nil
}

// PutDiagnostic stores the most recent non-successful scheduling outcome
// for a task request, overwriting any prior diagnostic.
func (r *TaskRepository) PutDiagnostic(ctx context.Context, diagnostic persistence.TaskDiagnostic) error {
	if diagnostic.TaskID == "" {
		return persistence.ErrConstraintViolation
	}
	diagnostic.UpdatedAt = time.Now().UTC()

	query := `
		INSERT OR REPLACE INTO task_diagnostics (task_id, kind, reason, updated_at)
		VALUES (?, ?, ?, ?)
	`
	_, err := r.helper.Exec(ctx, query, diagnostic.TaskID, diagnostic.Kind, diagnostic.Reason, diagnostic.UpdatedAt.Format(time.RFC3339))
	if err != nil {
		return r.mapTaskError(err)
	}
	return nil
}

// GetDiagnostic retrieves the last stored diagnostic for a task request.
func (r *TaskRepository) GetDiagnostic(ctx context.Context, taskID string) (persistence.TaskDiagnostic, error) {
	query := `
		SELECT task_id, kind, reason, updated_at
		FROM task_diagnostics
		WHERE task_id = ?
	`
	var diagnostic persistence.TaskDiagnostic
	var updatedAtStr string
	err := r.helper.QueryRow(ctx, query, taskID).Scan(&diagnostic.TaskID, &diagnostic.Kind, &diagnostic.Reason, &updatedAtStr)
	if err != nil {
		if err == sql.ErrNoRows {
			return persistence.TaskDiagnostic{}, persistence.ErrNotFound
		}
		return persistence.TaskDiagnostic{}, r.mapper.MapError(err)
	}
	if diagnostic.UpdatedAt, err = time.Parse(time.RFC3339, updatedAtStr); err != nil {
		return persistence.TaskDiagnostic{}, fmt.Errorf("failed to parse updated_at: %w", err)
	}
	return diagnostic, nil
}

func (r *TaskRepository) scanTask(scan func(dest ...interface{}) error) (persistence.TaskRequest, error) {
	var task persistence.TaskRequest
	var scopeStartStr, scopeEndStr, createdAtStr, updatedAtStr string
	var dayPeriodStart, dayPeriodEnd, deadline sql.NullString

	err := scan(
		&task.ID,
		&task.OwnerID,
		&task.Title,
		&task.Tag,
		&task.TaskLengthHours,
		&scopeStartStr,
		&scopeEndStr,
		&task.Priority,
		&task.MaxAllowedHoursPerDay,
		&task.Spread,
		&dayPeriodStart,
		&dayPeriodEnd,
		&task.RelationToDayPeriod,
		&deadline,
		&createdAtStr,
		&updatedAtStr,
	)
	if err != nil {
		return persistence.TaskRequest{}, err
	}

	if task.ScopeStart, err = time.Parse(time.RFC3339, scopeStartStr); err != nil {
		return persistence.TaskRequest{}, fmt.Errorf("failed to parse scope_start: %w", err)
	}
	if task.ScopeEnd, err = time.Parse(time.RFC3339, scopeEndStr); err != nil {
		return persistence.TaskRequest{}, fmt.Errorf("failed to parse scope_end: %w", err)
	}
	if task.CreatedAt, err = time.Parse(time.RFC3339, createdAtStr); err != nil {
		return persistence.TaskRequest{}, fmt.Errorf("failed to parse created_at: %w", err)
	}
	if task.UpdatedAt, err = time.Parse(time.RFC3339, updatedAtStr); err != nil {
		return persistence.TaskRequest{}, fmt.Errorf("failed to parse updated_at: %w", err)
	}
	if task.DayPeriodStart, err = parseNullTimePtr(dayPeriodStart); err != nil {
		return persistence.TaskRequest{}, fmt.Errorf("failed to parse day_period_start: %w", err)
	}
	if task.DayPeriodEnd, err = parseNullTimePtr(dayPeriodEnd); err != nil {
		return persistence.TaskRequest{}, fmt.Errorf("failed to parse day_period_end: %w", err)
	}
	if task.Deadline, err = parseNullTimePtr(deadline); err != nil {
		return persistence.TaskRequest{}, fmt.Errorf("failed to parse deadline: %w", err)
	}
	return task, nil
}

func (r *TaskRepository) buildListQuery(filter persistence.TaskFilter) (string, []interface{}) {
	baseQuery := `
		SELECT id, owner_id, title, tag, task_length_hours, scope_start, scope_end,
		       priority, max_allowed_hours_per_day, spread, day_period_start, day_period_end,
		       relation_to_day_period, deadline, created_at, updated_at
		FROM task_requests
	`
	var conditions []string
	var args []interface{}

	if filter.OwnerID != "" {
		conditions = append(conditions, "owner_id = ?")
		args = append(args, filter.OwnerID)
	}
	if filter.ScopeAfter != nil {
		conditions = append(conditions, "scope_end > ?")
		args = append(args, filter.ScopeAfter.UTC().Format(time.RFC3339))
	}
	if filter.ScopeBefore != nil {
		conditions = append(conditions, "scope_start < ?")
		args = append(args, filter.ScopeBefore.UTC().Format(time.RFC3339))
	}
	if len(conditions) > 0 {
		baseQuery += " WHERE " + strings.Join(conditions, " AND ")
	}
	baseQuery += " ORDER BY scope_start ASC, id ASC"
	return baseQuery, args
}

func (r *TaskRepository) validateTask(task persistence.TaskRequest) error {
	if !task.ScopeEnd.After(task.ScopeStart) {
		return persistence.ErrConstraintViolation
	}
	return nil
}

func (r *TaskRepository) mapTaskError(err error) error {
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

func formatTimePtr(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: t.UTC().Format(time.RFC3339), Valid: true}
}

func parseNullTimePtr(s sql.NullString) (*time.Time, error) {
	if !s.Valid {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, s.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
