package application

import "time"

// Principal represents the authenticated user invoking a service method.
type Principal struct {
	UserID  string
	IsAdmin bool
}

// TaskInput captures caller provided task request fields, the input to
// the scheduling engine for a single piece of work.
type TaskInput struct {
	Title                 string
	Tag                   string
	TaskLengthHours       float64
	ScopeStart            time.Time
	ScopeEnd              time.Time
	Priority              int
	MaxAllowedHoursPerDay float64
	Spread                string
	DayPeriodStart        *time.Time
	DayPeriodEnd          *time.Time
	RelationToDayPeriod   string
	Deadline              *time.Time
}

// TaskSession is one solved, wall-clock-anchored work interval.
type TaskSession struct {
	ID    string
	Start time.Time
	End   time.Time
}

// TaskDiagnostic reports why the most recent solve attempt for a task did
// not produce sessions.
type TaskDiagnostic struct {
	Kind      string
	Reason    string
	UpdatedAt time.Time
}

// Task represents a persisted task request together with its most recent
// solve outcome: either solved sessions or an infeasibility diagnostic.
type Task struct {
	ID                    string
	OwnerID               string
	Title                 string
	Tag                   string
	TaskLengthHours       float64
	ScopeStart            time.Time
	ScopeEnd              time.Time
	Priority              int
	MaxAllowedHoursPerDay float64
	Spread                string
	DayPeriodStart        *time.Time
	DayPeriodEnd          *time.Time
	RelationToDayPeriod   string
	Deadline              *time.Time
	CreatedAt             time.Time
	UpdatedAt             time.Time
	Sessions              []TaskSession
	Diagnostic            *TaskDiagnostic
}

// CreateTaskParams wraps the data required to create a task request.
type CreateTaskParams struct {
	Principal Principal
	Input     TaskInput
}

// UpdateTaskParams wraps the data required to update an existing task
// request; the task is re-solved after the update is persisted.
type UpdateTaskParams struct {
	Principal Principal
	TaskID    string
	Input     TaskInput
}

// ListTasksParams wraps the data required to list a user's task requests.
type ListTasksParams struct {
	Principal   Principal
	ScopeAfter  *time.Time
	ScopeBefore *time.Time
}

// ListPeriod identifies the range preset requested for calendar listings.
type ListPeriod string

const (
	// ListPeriodNone indicates no preset; caller supplied explicit bounds.
	ListPeriodNone ListPeriod = ""
	// ListPeriodDay constrains results to a single day.
	ListPeriodDay ListPeriod = "day"
	// ListPeriodWeek constrains results to the Monday-start week containing the reference time.
	ListPeriodWeek ListPeriod = "week"
	// ListPeriodMonth constrains results to the month containing the reference time.
	ListPeriodMonth ListPeriod = "month"
)

// EventRecurrenceInput captures caller provided recurrence fields for a
// calendar event.
type EventRecurrenceInput struct {
	Frequency string
	Weekdays  []string
	EndsOn    *time.Time
}

// EventInput captures caller provided calendar event fields.
type EventInput struct {
	Title      string
	Tag        string
	Priority   int
	Start      time.Time
	End        time.Time
	Recurrence *EventRecurrenceInput
}

// EventOccurrence is one expanded instance generated from an event's
// recurrence rule.
type EventOccurrence struct {
	EventID string
	RuleID  string
	Start   time.Time
	End     time.Time
}

// Event represents a persisted calendar event, the immovable blockers the
// scheduling engine must route task sessions around.
type Event struct {
	ID          string
	OwnerID     string
	Title       string
	Tag         string
	Priority    int
	Start       time.Time
	End         time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
	Occurrences []EventOccurrence
}

// CreateEventParams wraps the data required to create a calendar event.
type CreateEventParams struct {
	Principal Principal
	Input     EventInput
}

// UpdateEventParams wraps the data required to update an existing event.
type UpdateEventParams struct {
	Principal Principal
	EventID   string
	Input     EventInput
}

// ListEventsParams wraps the data required to list a user's calendar,
// with recurrences expanded into the requested window.
type ListEventsParams struct {
	Principal       Principal
	StartsAfter     *time.Time
	EndsBefore      *time.Time
	Period          ListPeriod
	PeriodReference time.Time
}

// UmpInput captures caller provided scheduling preference fields (the
// user model: the user's standing scheduling preferences).
type UmpInput struct {
	AllowedWeekdays              []string
	MinSessionHours              float64
	MaxSessionHours              float64
	MinBreakBetweenSessionsHours float64
	SleepWindowStart             time.Time
	SleepWindowEnd               time.Time
	DoNotDisturbStart            *time.Time
	DoNotDisturbEnd              *time.Time
	PreferredWindowStart         time.Time
	PreferredWindowEnd           time.Time
}

// Ump is a user's persisted scheduling preferences, applied to every task
// solved on their behalf.
type Ump struct {
	UserID                       string
	AllowedWeekdays              []string
	MinSessionHours              float64
	MaxSessionHours              float64
	MinBreakBetweenSessionsHours float64
	SleepWindowStart             time.Time
	SleepWindowEnd               time.Time
	DoNotDisturbStart            *time.Time
	DoNotDisturbEnd              *time.Time
	PreferredWindowStart         time.Time
	PreferredWindowEnd           time.Time
	UpdatedAt                    time.Time
}

// GetUmpParams wraps the data required to fetch a user's preferences.
type GetUmpParams struct {
	Principal Principal
	UserID    string
}

// UpdateUmpParams wraps the data required to update a user's preferences.
type UpdateUmpParams struct {
	Principal Principal
	UserID    string
	Input     UmpInput
}

// UserInput captures caller provided user attributes.
type UserInput struct {
	Email       string
	DisplayName string
	IsAdmin     bool
}

// User represents an account exposed by the application services.
type User struct {
	ID          string
	Email       string
	DisplayName string
	IsAdmin     bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// CreateUserParams wraps the data required to create a user.
type CreateUserParams struct {
	Principal Principal
	Input     UserInput
}

// UpdateUserParams wraps the data required to update a user.
type UpdateUserParams struct {
	Principal Principal
	UserID    string
	Input     UserInput
}

// UserCredentials models the authentication attributes persisted for a user.
type UserCredentials struct {
	User           User
	PasswordHash   string
	Disabled       bool
	FailedAttempts int
	LastFailedAt   *time.Time
}

// Session represents an authenticated session issued to a user.
type Session struct {
	ID          string
	UserID      string
	Token       string
	Fingerprint string
	ExpiresAt   time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
	RevokedAt   *time.Time
}

// AuthenticateParams captures the data required to authenticate a user.
type AuthenticateParams struct {
	Email       string
	Password    string
	Fingerprint string
}

// AuthenticateResult captures the outcome of a successful authentication attempt.
type AuthenticateResult struct {
	User    User
	Session Session
}

// RefreshSessionParams captures the data required to refresh an existing session.
type RefreshSessionParams struct {
	Token       string
	Fingerprint string
}

// RefreshSessionResult captures the outcome of rotating a session token.
type RefreshSessionResult struct {
	Session Session
}
