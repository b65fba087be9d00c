package persistence

import "context"
import "time"

// UserRepository exposes CRUD operations for users.
type UserRepository interface {
	CreateUser(ctx context.Context, user User) error
	UpdateUser(ctx context.Context, user User) error
	GetUser(ctx context.Context, id string) (User, error)
	GetUserByEmail(ctx context.Context, email string) (User, error)
	ListUsers(ctx context.Context) ([]User, error)
	DeleteUser(ctx context.Context, id string) error
}

// TaskFilter narrows task request queries.
type TaskFilter struct {
	OwnerID      string
	ScopeAfter   *time.Time
	ScopeBefore  *time.Time
}

// TaskRepository stores task requests and their solved sessions.
type TaskRepository interface {
	CreateTask(ctx context.Context, task TaskRequest) error
	UpdateTask(ctx context.Context, task TaskRequest) error
	GetTask(ctx context.Context, id string) (TaskRequest, error)
	ListTasks(ctx context.Context, filter TaskFilter) ([]TaskRequest, error)
	DeleteTask(ctx context.Context, id string) error

	ReplaceScheduledSessions(ctx context.Context, taskID string, sessions []ScheduledSession) error
	ListScheduledSessions(ctx context.Context, taskID string) ([]ScheduledSession, error)

	PutDiagnostic(ctx context.Context, diagnostic TaskDiagnostic) error
	GetDiagnostic(ctx context.Context, taskID string) (TaskDiagnostic, error)
}

// EventFilter narrows event queries.
type EventFilter struct {
	OwnerID     string
	StartsAfter *time.Time
	EndsBefore  *time.Time
}

// EventRepository stores calendar events owned by a user.
type EventRepository interface {
	CreateEvent(ctx context.Context, event Event) error
	UpdateEvent(ctx context.Context, event Event) error
	GetEvent(ctx context.Context, id string) (Event, error)
	ListEvents(ctx context.Context, filter EventFilter) ([]Event, error)
	DeleteEvent(ctx context.Context, id string) error
}

// EventRecurrenceRepository stores recurrence rules attached to events.
type EventRecurrenceRepository interface {
	UpsertRecurrence(ctx context.Context, rule EventRecurrence) error
	ListRecurrencesForEvent(ctx context.Context, eventID string) ([]EventRecurrence, error)
	ListRecurrencesForEvents(ctx context.Context, eventIDs []string) (map[string][]EventRecurrence, error)
	DeleteRecurrence(ctx context.Context, id string) error
	DeleteRecurrencesForEvent(ctx context.Context, eventID string) error
}

// UmpRepository stores per-user scheduling preferences.
type UmpRepository interface {
	GetUmp(ctx context.Context, userID string) (Ump, error)
	UpsertUmp(ctx context.Context, ump Ump) error
}

// SessionRepository stores authentication session state.
type SessionRepository interface {
	CreateSession(ctx context.Context, session Session) (Session, error)
	GetSession(ctx context.Context, token string) (Session, error)
	UpdateSession(ctx context.Context, session Session) (Session, error)
	RevokeSession(ctx context.Context, token string, revokedAt time.Time) (Session, error)
	DeleteExpiredSessions(ctx context.Context, reference time.Time) error
}
