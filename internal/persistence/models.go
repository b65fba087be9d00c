package persistence

import "time"

// User represents an account in the task-scheduler domain.
type User struct {
	ID           string
	Email        string
	DisplayName  string
	PasswordHash string
	IsAdmin      bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// TaskRequest is a persisted request for work to be scheduled.
type TaskRequest struct {
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
}

// ScheduledSession is one output interval produced by the engine for a
// given task request.
type ScheduledSession struct {
	ID     string
	TaskID string
	Start  time.Time
	End    time.Time
}

// TaskDiagnostic records the last non-successful scheduling outcome for a
// task request, so repeated reads don't need to re-run the solver.
type TaskDiagnostic struct {
	TaskID    string
	Kind      string // "infeasible", "timeout" or "cancelled"
	Reason    string
	UpdatedAt time.Time
}

// Event represents an existing, immovable calendar entry owned by a user.
type Event struct {
	ID        string
	OwnerID   string
	Title     string
	Tag       string
	Priority  int
	Start     time.Time
	End       time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

// EventRecurrence represents a weekly recurrence configuration for an
// event; expanded occurrences become additional blockers.
type EventRecurrence struct {
	ID        string
	EventID   string
	Frequency int
	Weekdays  []time.Weekday
	StartsOn  time.Time
	EndsOn    *time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Ump is the persisted user model: standing scheduling preferences.
type Ump struct {
	UserID                       string
	AllowedWeekdays              []time.Weekday
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

// Session represents an authentication session persisted for a user.
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
