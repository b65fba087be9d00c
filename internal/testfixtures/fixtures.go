package testfixtures

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/example/taskscheduler/internal/application"
	"github.com/example/taskscheduler/internal/persistence"
)

var (
	userCounter       uint64
	taskCounter       uint64
	eventCounter      uint64
	sessionCounter    uint64
	recurrenceCounter uint64
)

var referenceTime = time.Date(2024, time.January, 2, 15, 4, 5, 0, time.UTC)

// ReferenceTime returns the canonical baseline timestamp used by fixtures.
func ReferenceTime() time.Time {
	return referenceTime
}

// ----------------------------- User fixtures -----------------------------

// UserFixture represents a deterministic user record that can be materialised
// for application or persistence tests.
type UserFixture struct {
	ID           string
	Email        string
	DisplayName  string
	PasswordHash string
	IsAdmin      bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// UserOption configures the generated user fixture.
type UserOption func(*UserFixture)

// NewUserFixture returns a deterministic user fixture with optional overrides.
func NewUserFixture(opts ...UserOption) UserFixture {
	idx := atomic.AddUint64(&userCounter, 1)
	id := fmt.Sprintf("user-%03d", idx)
	created := referenceTime.Add(time.Duration(idx) * time.Minute)
	fixture := UserFixture{
		ID:           id,
		Email:        fmt.Sprintf("%s@example.com", id),
		DisplayName:  fmt.Sprintf("User %03d", idx),
		PasswordHash: fmt.Sprintf("hash-%03d", idx),
		IsAdmin:      false,
		CreatedAt:    created,
		UpdatedAt:    created,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithUserID overrides the generated user ID.
func WithUserID(id string) UserOption {
	return func(f *UserFixture) {
		f.ID = id
	}
}

// WithUserEmail overrides the generated email address.
func WithUserEmail(email string) UserOption {
	return func(f *UserFixture) {
		f.Email = email
	}
}

// WithUserDisplayName overrides the generated display name.
func WithUserDisplayName(name string) UserOption {
	return func(f *UserFixture) {
		f.DisplayName = name
	}
}

// WithUserPasswordHash overrides the generated password hash.
func WithUserPasswordHash(hash string) UserOption {
	return func(f *UserFixture) {
		f.PasswordHash = hash
	}
}

// WithUserAdmin sets the admin flag on the generated fixture.
func WithUserAdmin(isAdmin bool) UserOption {
	return func(f *UserFixture) {
		f.IsAdmin = isAdmin
	}
}

// WithUserCreatedAt sets the created timestamp on the fixture.
func WithUserCreatedAt(t time.Time) UserOption {
	return func(f *UserFixture) {
		f.CreatedAt = t
	}
}

// WithUserUpdatedAt sets the updated timestamp on the fixture.
func WithUserUpdatedAt(t time.Time) UserOption {
	return func(f *UserFixture) {
		f.UpdatedAt = t
	}
}

// WithUserTimestamps sets both created and updated timestamps on the fixture.
func WithUserTimestamps(created, updated time.Time) UserOption {
	return func(f *UserFixture) {
		f.CreatedAt = created
		f.UpdatedAt = updated
	}
}

// Application returns the fixture as an application.User value.
func (f UserFixture) Application() application.User {
	return application.User{
		ID:          f.ID,
		Email:       f.Email,
		DisplayName: f.DisplayName,
		IsAdmin:     f.IsAdmin,
		CreatedAt:   f.CreatedAt,
		UpdatedAt:   f.UpdatedAt,
	}
}

// Credentials returns the fixture as application.UserCredentials.
func (f UserFixture) Credentials() application.UserCredentials {
	creds := f.Application()
	return application.UserCredentials{
		User:         creds,
		PasswordHash: f.PasswordHash,
	}
}

// Principal returns an application.Principal derived from the fixture.
func (f UserFixture) Principal() application.Principal {
	return application.Principal{UserID: f.ID, IsAdmin: f.IsAdmin}
}

// Persistence returns the fixture as a persistence.User value.
func (f UserFixture) Persistence() persistence.User {
	return persistence.User{
		ID:           f.ID,
		Email:        f.Email,
		DisplayName:  f.DisplayName,
		PasswordHash: f.PasswordHash,
		IsAdmin:      f.IsAdmin,
		CreatedAt:    f.CreatedAt,
		UpdatedAt:    f.UpdatedAt,
	}
}

// Input returns the fixture as an application.UserInput.
func (f UserFixture) Input() application.UserInput {
	return application.UserInput{
		Email:       f.Email,
		DisplayName: f.DisplayName,
		IsAdmin:     f.IsAdmin,
	}
}

// ----------------------------- Task fixtures -----------------------------

// TaskFixture represents a deterministic task request record.
type TaskFixture struct {
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

// TaskOption configures the generated task fixture.
type TaskOption func(*TaskFixture)

// NewTaskFixture returns a deterministic task fixture with optional overrides.
func NewTaskFixture(opts ...TaskOption) TaskFixture {
	idx := atomic.AddUint64(&taskCounter, 1)
	id := fmt.Sprintf("task-%03d", idx)
	owner := fmt.Sprintf("user-%03d", idx)
	scopeStart := referenceTime.Truncate(24 * time.Hour)
	fixture := TaskFixture{
		ID:                    id,
		OwnerID:               owner,
		Title:                 fmt.Sprintf("Task %03d", idx),
		Tag:                   "general",
		TaskLengthHours:       2,
		ScopeStart:            scopeStart,
		ScopeEnd:              scopeStart.AddDate(0, 0, 7),
		Priority:              1,
		MaxAllowedHoursPerDay: 4,
		Spread:                "uniform",
		RelationToDayPeriod:   "none",
		CreatedAt:             referenceTime,
		UpdatedAt:             referenceTime,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithTaskID overrides the generated task ID.
func WithTaskID(id string) TaskOption {
	return func(f *TaskFixture) {
		f.ID = id
	}
}

// WithTaskOwnerID sets the owning user ID.
func WithTaskOwnerID(id string) TaskOption {
	return func(f *TaskFixture) {
		f.OwnerID = id
	}
}

// WithTaskTitle overrides the title.
func WithTaskTitle(title string) TaskOption {
	return func(f *TaskFixture) {
		f.Title = title
	}
}

// WithTaskTag overrides the tag.
func WithTaskTag(tag string) TaskOption {
	return func(f *TaskFixture) {
		f.Tag = tag
	}
}

// WithTaskLengthHours overrides the required task length, in hours.
func WithTaskLengthHours(hours float64) TaskOption {
	return func(f *TaskFixture) {
		f.TaskLengthHours = hours
	}
}

// WithTaskScope sets the scope start/end window.
func WithTaskScope(start, end time.Time) TaskOption {
	return func(f *TaskFixture) {
		f.ScopeStart = start
		f.ScopeEnd = end
	}
}

// WithTaskPriority overrides the priority.
func WithTaskPriority(priority int) TaskOption {
	return func(f *TaskFixture) {
		f.Priority = priority
	}
}

// WithTaskMaxAllowedHoursPerDay overrides the daily session cap.
func WithTaskMaxAllowedHoursPerDay(hours float64) TaskOption {
	return func(f *TaskFixture) {
		f.MaxAllowedHoursPerDay = hours
	}
}

// WithTaskSpread overrides the spread strategy ("uniform" or "frontloaded").
func WithTaskSpread(spread string) TaskOption {
	return func(f *TaskFixture) {
		f.Spread = spread
	}
}

// WithTaskDayPeriod sets the task's day-period window.
func WithTaskDayPeriod(start, end time.Time) TaskOption {
	return func(f *TaskFixture) {
		s, e := start, end
		f.DayPeriodStart = &s
		f.DayPeriodEnd = &e
	}
}

// WithTaskRelationToDayPeriod overrides the day-period relation ("before", "after", "around", "none").
func WithTaskRelationToDayPeriod(relation string) TaskOption {
	return func(f *TaskFixture) {
		f.RelationToDayPeriod = relation
	}
}

// WithTaskDeadline sets the deadline.
func WithTaskDeadline(t time.Time) TaskOption {
	return func(f *TaskFixture) {
		deadline := t
		f.Deadline = &deadline
	}
}

// WithTaskTimestamps sets both created and updated timestamps.
func WithTaskTimestamps(created, updated time.Time) TaskOption {
	return func(f *TaskFixture) {
		f.CreatedAt = created
		f.UpdatedAt = updated
	}
}

// Input returns the fixture as an application.TaskInput.
func (f TaskFixture) Input() application.TaskInput {
	return application.TaskInput{
		Title:                 f.Title,
		Tag:                   f.Tag,
		TaskLengthHours:       f.TaskLengthHours,
		ScopeStart:            f.ScopeStart,
		ScopeEnd:              f.ScopeEnd,
		Priority:              f.Priority,
		MaxAllowedHoursPerDay: f.MaxAllowedHoursPerDay,
		Spread:                f.Spread,
		DayPeriodStart:        copyTimePtr(f.DayPeriodStart),
		DayPeriodEnd:          copyTimePtr(f.DayPeriodEnd),
		RelationToDayPeriod:   f.RelationToDayPeriod,
		Deadline:              copyTimePtr(f.Deadline),
	}
}

// Persistence returns the fixture as a persistence.TaskRequest value.
func (f TaskFixture) Persistence() persistence.TaskRequest {
	return persistence.TaskRequest{
		ID:                    f.ID,
		OwnerID:               f.OwnerID,
		Title:                 f.Title,
		Tag:                   f.Tag,
		TaskLengthHours:       f.TaskLengthHours,
		ScopeStart:            f.ScopeStart,
		ScopeEnd:              f.ScopeEnd,
		Priority:              f.Priority,
		MaxAllowedHoursPerDay: f.MaxAllowedHoursPerDay,
		Spread:                f.Spread,
		DayPeriodStart:        copyTimePtr(f.DayPeriodStart),
		DayPeriodEnd:          copyTimePtr(f.DayPeriodEnd),
		RelationToDayPeriod:   f.RelationToDayPeriod,
		Deadline:              copyTimePtr(f.Deadline),
		CreatedAt:             f.CreatedAt,
		UpdatedAt:             f.UpdatedAt,
	}
}

// ----------------------------- Event fixtures -----------------------------

// EventFixture represents a deterministic calendar event record.
type EventFixture struct {
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

// EventOption configures the generated event fixture.
type EventOption func(*EventFixture)

// NewEventFixture returns a deterministic event fixture with optional overrides.
func NewEventFixture(opts ...EventOption) EventFixture {
	idx := atomic.AddUint64(&eventCounter, 1)
	id := fmt.Sprintf("event-%03d", idx)
	owner := fmt.Sprintf("user-%03d", idx)
	start := referenceTime.Add(time.Duration(idx) * time.Hour)
	fixture := EventFixture{
		ID:        id,
		OwnerID:   owner,
		Title:     fmt.Sprintf("Event %03d", idx),
		Tag:       "calendar",
		Priority:  1,
		Start:     start,
		End:       start.Add(time.Hour),
		CreatedAt: referenceTime,
		UpdatedAt: referenceTime,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithEventID overrides the generated event ID.
func WithEventID(id string) EventOption {
	return func(f *EventFixture) {
		f.ID = id
	}
}

// WithEventOwnerID sets the owning user ID.
func WithEventOwnerID(id string) EventOption {
	return func(f *EventFixture) {
		f.OwnerID = id
	}
}

// WithEventTitle overrides the title.
func WithEventTitle(title string) EventOption {
	return func(f *EventFixture) {
		f.Title = title
	}
}

// WithEventTag overrides the tag.
func WithEventTag(tag string) EventOption {
	return func(f *EventFixture) {
		f.Tag = tag
	}
}

// WithEventPriority overrides the priority.
func WithEventPriority(priority int) EventOption {
	return func(f *EventFixture) {
		f.Priority = priority
	}
}

// WithEventStartEnd sets the start and end times.
func WithEventStartEnd(start, end time.Time) EventOption {
	return func(f *EventFixture) {
		f.Start = start
		f.End = end
	}
}

// WithEventTimestamps sets both created and updated timestamps.
func WithEventTimestamps(created, updated time.Time) EventOption {
	return func(f *EventFixture) {
		f.CreatedAt = created
		f.UpdatedAt = updated
	}
}

// Input returns the fixture as an application.EventInput.
func (f EventFixture) Input() application.EventInput {
	return application.EventInput{
		Title:    f.Title,
		Tag:      f.Tag,
		Priority: f.Priority,
		Start:    f.Start,
		End:      f.End,
	}
}

// Persistence returns the fixture as a persistence.Event value.
func (f EventFixture) Persistence() persistence.Event {
	return persistence.Event{
		ID:        f.ID,
		OwnerID:   f.OwnerID,
		Title:     f.Title,
		Tag:       f.Tag,
		Priority:  f.Priority,
		Start:     f.Start,
		End:       f.End,
		CreatedAt: f.CreatedAt,
		UpdatedAt: f.UpdatedAt,
	}
}

// ------------------------ Event recurrence fixtures -----------------------

// EventRecurrenceFixture represents a deterministic recurrence rule attached to an event.
type EventRecurrenceFixture struct {
	ID        string
	EventID   string
	Frequency int
	Weekdays  []time.Weekday
	StartsOn  time.Time
	EndsOn    *time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

// EventRecurrenceOption configures the generated recurrence fixture.
type EventRecurrenceOption func(*EventRecurrenceFixture)

// NewEventRecurrenceFixture returns a deterministic recurrence fixture with optional overrides.
func NewEventRecurrenceFixture(opts ...EventRecurrenceOption) EventRecurrenceFixture {
	idx := atomic.AddUint64(&recurrenceCounter, 1)
	id := fmt.Sprintf("recurrence-%03d", idx)
	startsOn := referenceTime.Truncate(24 * time.Hour)
	fixture := EventRecurrenceFixture{
		ID:        id,
		EventID:   fmt.Sprintf("event-%03d", idx),
		Frequency: 2, // FrequencyWeekly
		Weekdays:  []time.Weekday{time.Monday},
		StartsOn:  startsOn,
		CreatedAt: referenceTime,
		UpdatedAt: referenceTime,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithEventRecurrenceID overrides the recurrence ID.
func WithEventRecurrenceID(id string) EventRecurrenceOption {
	return func(f *EventRecurrenceFixture) {
		f.ID = id
	}
}

// WithEventRecurrenceEventID sets the associated event ID.
func WithEventRecurrenceEventID(id string) EventRecurrenceOption {
	return func(f *EventRecurrenceFixture) {
		f.EventID = id
	}
}

// WithEventRecurrenceFrequency sets the recurrence frequency.
func WithEventRecurrenceFrequency(freq int) EventRecurrenceOption {
	return func(f *EventRecurrenceFixture) {
		f.Frequency = freq
	}
}

// WithEventRecurrenceWeekdays sets the recurrence weekdays.
func WithEventRecurrenceWeekdays(days ...time.Weekday) EventRecurrenceOption {
	return func(f *EventRecurrenceFixture) {
		f.Weekdays = append([]time.Weekday(nil), days...)
	}
}

// WithEventRecurrenceStartsOn sets the start date for the recurrence.
func WithEventRecurrenceStartsOn(t time.Time) EventRecurrenceOption {
	return func(f *EventRecurrenceFixture) {
		f.StartsOn = t
	}
}

// WithEventRecurrenceEndsOn sets the optional end date.
func WithEventRecurrenceEndsOn(t time.Time) EventRecurrenceOption {
	return func(f *EventRecurrenceFixture) {
		end := t
		f.EndsOn = &end
	}
}

// WithoutEventRecurrenceEndsOn clears any end date on the fixture.
func WithoutEventRecurrenceEndsOn() EventRecurrenceOption {
	return func(f *EventRecurrenceFixture) {
		f.EndsOn = nil
	}
}

// WithEventRecurrenceTimestamps sets both created and updated timestamps.
func WithEventRecurrenceTimestamps(created, updated time.Time) EventRecurrenceOption {
	return func(f *EventRecurrenceFixture) {
		f.CreatedAt = created
		f.UpdatedAt = updated
	}
}

// Persistence returns the fixture as a persistence.EventRecurrence value.
func (f EventRecurrenceFixture) Persistence() persistence.EventRecurrence {
	return persistence.EventRecurrence{
		ID:        f.ID,
		EventID:   f.EventID,
		Frequency: f.Frequency,
		Weekdays:  append([]time.Weekday(nil), f.Weekdays...),
		StartsOn:  f.StartsOn,
		EndsOn:    copyTimePtr(f.EndsOn),
		CreatedAt: f.CreatedAt,
		UpdatedAt: f.UpdatedAt,
	}
}

// ----------------------------- Ump fixtures -------------------------------

// UmpFixture represents a deterministic set of standing scheduling preferences.
type UmpFixture struct {
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

// UmpOption configures the generated Ump fixture.
type UmpOption func(*UmpFixture)

// NewUmpFixture returns a deterministic Ump fixture with optional overrides.
func NewUmpFixture(opts ...UmpOption) UmpFixture {
	fixture := UmpFixture{
		AllowedWeekdays:              []time.Weekday{time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday},
		MinSessionHours:              0.5,
		MaxSessionHours:              4,
		MinBreakBetweenSessionsHours: 0.5,
		SleepWindowStart:             timeOfDay(23, 0),
		SleepWindowEnd:               timeOfDay(7, 0),
		PreferredWindowStart:         timeOfDay(9, 0),
		PreferredWindowEnd:           timeOfDay(17, 0),
		UpdatedAt:                    referenceTime,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithUmpUserID sets the owning user ID.
func WithUmpUserID(id string) UmpOption {
	return func(f *UmpFixture) {
		f.UserID = id
	}
}

// WithUmpAllowedWeekdays overrides the allowed weekdays.
func WithUmpAllowedWeekdays(days ...time.Weekday) UmpOption {
	return func(f *UmpFixture) {
		f.AllowedWeekdays = append([]time.Weekday(nil), days...)
	}
}

// WithUmpSessionBounds overrides the min/max session length, in hours.
func WithUmpSessionBounds(minHours, maxHours float64) UmpOption {
	return func(f *UmpFixture) {
		f.MinSessionHours = minHours
		f.MaxSessionHours = maxHours
	}
}

// WithUmpMinBreakBetweenSessionsHours overrides the minimum break length.
func WithUmpMinBreakBetweenSessionsHours(hours float64) UmpOption {
	return func(f *UmpFixture) {
		f.MinBreakBetweenSessionsHours = hours
	}
}

// WithUmpSleepWindow overrides the nightly sleep window.
func WithUmpSleepWindow(start, end time.Time) UmpOption {
	return func(f *UmpFixture) {
		f.SleepWindowStart = start
		f.SleepWindowEnd = end
	}
}

// WithUmpDoNotDisturbWindow sets the optional do-not-disturb window.
func WithUmpDoNotDisturbWindow(start, end time.Time) UmpOption {
	return func(f *UmpFixture) {
		s, e := start, end
		f.DoNotDisturbStart = &s
		f.DoNotDisturbEnd = &e
	}
}

// WithUmpPreferredWindow overrides the preferred scheduling window.
func WithUmpPreferredWindow(start, end time.Time) UmpOption {
	return func(f *UmpFixture) {
		f.PreferredWindowStart = start
		f.PreferredWindowEnd = end
	}
}

// WithUmpUpdatedAt sets the updated timestamp.
func WithUmpUpdatedAt(t time.Time) UmpOption {
	return func(f *UmpFixture) {
		f.UpdatedAt = t
	}
}

// Persistence returns the fixture as a persistence.Ump value.
func (f UmpFixture) Persistence() persistence.Ump {
	return persistence.Ump{
		UserID:                       f.UserID,
		AllowedWeekdays:              append([]time.Weekday(nil), f.AllowedWeekdays...),
		MinSessionHours:              f.MinSessionHours,
		MaxSessionHours:              f.MaxSessionHours,
		MinBreakBetweenSessionsHours: f.MinBreakBetweenSessionsHours,
		SleepWindowStart:             f.SleepWindowStart,
		SleepWindowEnd:               f.SleepWindowEnd,
		DoNotDisturbStart:            copyTimePtr(f.DoNotDisturbStart),
		DoNotDisturbEnd:              copyTimePtr(f.DoNotDisturbEnd),
		PreferredWindowStart:         f.PreferredWindowStart,
		PreferredWindowEnd:           f.PreferredWindowEnd,
		UpdatedAt:                    f.UpdatedAt,
	}
}

func timeOfDay(hour, minute int) time.Time {
	return time.Date(0, 1, 1, hour, minute, 0, 0, time.UTC)
}

// ----------------------------- Session fixtures -------------------------

// SessionFixture represents a deterministic session record.
type SessionFixture struct {
	ID          string
	UserID      string
	Token       string
	Fingerprint string
	ExpiresAt   time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
	RevokedAt   *time.Time
}

// SessionOption configures the generated session fixture.
type SessionOption func(*SessionFixture)

// NewSessionFixture returns a deterministic session fixture with optional overrides.
func NewSessionFixture(opts ...SessionOption) SessionFixture {
	idx := atomic.AddUint64(&sessionCounter, 1)
	id := fmt.Sprintf("session-%03d", idx)
	userID := fmt.Sprintf("user-%03d", idx)
	created := referenceTime
	fixture := SessionFixture{
		ID:          id,
		UserID:      userID,
		Token:       fmt.Sprintf("token-%03d", idx),
		Fingerprint: fmt.Sprintf("fingerprint-%03d", idx),
		ExpiresAt:   created.Add(8 * time.Hour),
		CreatedAt:   created,
		UpdatedAt:   created,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithSessionID overrides the session ID.
func WithSessionID(id string) SessionOption {
	return func(f *SessionFixture) {
		f.ID = id
	}
}

// WithSessionUserID sets the user ID.
func WithSessionUserID(id string) SessionOption {
	return func(f *SessionFixture) {
		f.UserID = id
	}
}

// WithSessionToken overrides the token value.
func WithSessionToken(token string) SessionOption {
	return func(f *SessionFixture) {
		f.Token = token
	}
}

// WithSessionFingerprint sets the session fingerprint.
func WithSessionFingerprint(fp string) SessionOption {
	return func(f *SessionFixture) {
		f.Fingerprint = fp
	}
}

// WithSessionExpiresAt sets the expiration timestamp.
func WithSessionExpiresAt(t time.Time) SessionOption {
	return func(f *SessionFixture) {
		f.ExpiresAt = t
	}
}

// WithSessionCreatedAt sets the created timestamp.
func WithSessionCreatedAt(t time.Time) SessionOption {
	return func(f *SessionFixture) {
		f.CreatedAt = t
	}
}

// WithSessionUpdatedAt sets the updated timestamp.
func WithSessionUpdatedAt(t time.Time) SessionOption {
	return func(f *SessionFixture) {
		f.UpdatedAt = t
	}
}

// WithSessionTimestamps sets both created and updated timestamps.
func WithSessionTimestamps(created, updated time.Time) SessionOption {
	return func(f *SessionFixture) {
		f.CreatedAt = created
		f.UpdatedAt = updated
	}
}

// WithSessionRevokedAt sets the optional revoked timestamp.
func WithSessionRevokedAt(t time.Time) SessionOption {
	return func(f *SessionFixture) {
		revoked := t
		f.RevokedAt = &revoked
	}
}

// WithoutSessionRevoked clears any revoked timestamp.
func WithoutSessionRevoked() SessionOption {
	return func(f *SessionFixture) {
		f.RevokedAt = nil
	}
}

// Application returns the fixture as an application.Session value.
func (f SessionFixture) Application() application.Session {
	var revoked *time.Time
	if f.RevokedAt != nil {
		t := *f.RevokedAt
		revoked = &t
	}
	return application.Session{
		ID:          f.ID,
		UserID:      f.UserID,
		Token:       f.Token,
		Fingerprint: f.Fingerprint,
		ExpiresAt:   f.ExpiresAt,
		CreatedAt:   f.CreatedAt,
		UpdatedAt:   f.UpdatedAt,
		RevokedAt:   revoked,
	}
}

// Persistence returns the fixture as a persistence.Session value.
func (f SessionFixture) Persistence() persistence.Session {
	var revoked *time.Time
	if f.RevokedAt != nil {
		t := *f.RevokedAt
		revoked = &t
	}
	return persistence.Session{
		ID:          f.ID,
		UserID:      f.UserID,
		Token:       f.Token,
		Fingerprint: f.Fingerprint,
		ExpiresAt:   f.ExpiresAt,
		CreatedAt:   f.CreatedAt,
		UpdatedAt:   f.UpdatedAt,
		RevokedAt:   revoked,
	}
}

// helper to deep copy optional times.
func copyTimePtr(src *time.Time) *time.Time {
	if src == nil {
		return nil
	}
	value := *src
	return &value
}
