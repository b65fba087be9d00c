package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/example/taskscheduler/internal/persistence"
	"github.com/example/taskscheduler/internal/recurrence"
)

// EventRepository captures the persistence operations needed by the event service.
type EventRepository interface {
	CreateEvent(ctx context.Context, event persistence.Event) error
	UpdateEvent(ctx context.Context, event persistence.Event) error
	GetEvent(ctx context.Context, id string) (persistence.Event, error)
	ListEvents(ctx context.Context, filter persistence.EventFilter) ([]persistence.Event, error)
	DeleteEvent(ctx context.Context, id string) error
}

// EventRecurrenceRepository captures the persistence operations needed for
// event recurrence rules.
type EventRecurrenceRepository interface {
	UpsertRecurrence(ctx context.Context, rule persistence.EventRecurrence) error
	ListRecurrencesForEvent(ctx context.Context, eventID string) ([]persistence.EventRecurrence, error)
	ListRecurrencesForEvents(ctx context.Context, eventIDs []string) (map[string][]persistence.EventRecurrence, error)
	DeleteRecurrencesForEvent(ctx context.Context, eventID string) error
}

// EventService manages a user's calendar: fixed events plus recurring
// event rules, expanded into concrete occurrences on read.
type EventService struct {
	events      EventRepository
	recurrences EventRecurrenceRepository
	expander    *recurrence.Engine
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewEventService wires dependencies for the event service.
func NewEventService(events EventRepository, recurrences EventRecurrenceRepository, idGenerator func() string, now func() time.Time) *EventService {
	return NewEventServiceWithLogger(events, recurrences, idGenerator, now, nil)
}

// NewEventServiceWithLogger wires dependencies for the event service and accepts a logger.
func NewEventServiceWithLogger(events EventRepository, recurrences EventRecurrenceRepository, idGenerator func() string, now func() time.Time, logger *slog.Logger) *EventService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &EventService{
		events:      events,
		recurrences: recurrences,
		expander:    recurrence.NewEngine(nil),
		idGenerator: idGenerator,
		now:         now,
		logger:      defaultLogger(logger),
	}
}

func (s *EventService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "EventService", operation, attrs...)
}

// CreateEvent validates and persists a new calendar event, along with an
// optional recurrence rule.
func (s *EventService) CreateEvent(ctx context.Context, params CreateEventParams) (event Event, err error) {
	if s == nil {
		err = fmt.Errorf("EventService is nil")
		return
	}
	if params.Principal.UserID == "" {
		err = ErrUnauthorized
		return
	}
	if s.events == nil {
		err = fmt.Errorf("event repository not configured")
		return
	}

	logger := s.loggerWith(ctx, "CreateEvent", "principal_id", params.Principal.UserID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to create event", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("event_id", event.ID).InfoContext(ctx, "event created")
	}()

	vErr := validateEventInput(params.Input)
	if vErr.HasErrors() {
		err = vErr
		return
	}

	now := s.now()
	record := persistence.Event{
		ID:        s.idGenerator(),
		OwnerID:   params.Principal.UserID,
		Title:     strings.TrimSpace(params.Input.Title),
		Tag:       strings.TrimSpace(params.Input.Tag),
		Priority:  params.Input.Priority,
		Start:     params.Input.Start,
		End:       params.Input.End,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err = s.events.CreateEvent(ctx, record); err != nil {
		err = mapEventRepoError(err)
		return
	}

	if params.Input.Recurrence != nil {
		if err = s.saveRecurrence(ctx, record, *params.Input.Recurrence); err != nil {
			return
		}
	}

	event = eventFromRecord(record, nil)
	return
}

// UpdateEvent validates and persists changes to an existing event,
// replacing its recurrence rule if one is supplied.
func (s *EventService) UpdateEvent(ctx context.Context, params UpdateEventParams) (event Event, err error) {
	if s == nil {
		err = fmt.Errorf("EventService is nil")
		return
	}
	if s.events == nil {
		err = fmt.Errorf("event repository not configured")
		return
	}

	logger := s.loggerWith(ctx, "UpdateEvent", "principal_id", params.Principal.UserID, "event_id", params.EventID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to update event", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "event updated")
	}()

	existing, getErr := s.events.GetEvent(ctx, params.EventID)
	if getErr != nil {
		err = mapEventRepoError(getErr)
		return
	}
	if !authorizedForOwner(params.Principal, existing.OwnerID) {
		err = ErrUnauthorized
		return
	}

	vErr := validateEventInput(params.Input)
	if vErr.HasErrors() {
		err = vErr
		return
	}

	existing.Title = strings.TrimSpace(params.Input.Title)
	existing.Tag = strings.TrimSpace(params.Input.Tag)
	existing.Priority = params.Input.Priority
	existing.Start = params.Input.Start
	existing.End = params.Input.End
	existing.UpdatedAt = s.now()

	if err = s.events.UpdateEvent(ctx, existing); err != nil {
		err = mapEventRepoError(err)
		return
	}

	if params.Input.Recurrence != nil {
		if err = s.saveRecurrence(ctx, existing, *params.Input.Recurrence); err != nil {
			return
		}
	} else if s.recurrences != nil {
		if err = s.recurrences.DeleteRecurrencesForEvent(ctx, existing.ID); err != nil {
			err = mapEventRepoError(err)
			return
		}
	}

	event = eventFromRecord(existing, nil)
	return
}

// DeleteEvent removes an event owned by the principal (or any event when
// the principal is an administrator).
func (s *EventService) DeleteEvent(ctx context.Context, principal Principal, eventID string) error {
	if s == nil {
		return fmt.Errorf("EventService is nil")
	}
	if s.events == nil {
		return fmt.Errorf("event repository not configured")
	}

	logger := s.loggerWith(ctx, "DeleteEvent", "principal_id", principal.UserID, "event_id", eventID)

	existing, err := s.events.GetEvent(ctx, eventID)
	if err != nil {
		err = mapEventRepoError(err)
		logger.ErrorContext(ctx, "failed to delete event", "error", err, "error_kind", ErrorKind(err))
		return err
	}
	if !authorizedForOwner(principal, existing.OwnerID) {
		logger.ErrorContext(ctx, "failed to delete event", "error", ErrUnauthorized, "error_kind", ErrorKind(ErrUnauthorized))
		return ErrUnauthorized
	}

	if s.recurrences != nil {
		if err := s.recurrences.DeleteRecurrencesForEvent(ctx, eventID); err != nil {
			err = mapEventRepoError(err)
			logger.ErrorContext(ctx, "failed to delete event", "error", err, "error_kind", ErrorKind(err))
			return err
		}
	}

	if err := s.events.DeleteEvent(ctx, eventID); err != nil {
		err = mapEventRepoError(err)
		logger.ErrorContext(ctx, "failed to delete event", "error", err, "error_kind", ErrorKind(err))
		return err
	}

	logger.InfoContext(ctx, "event deleted")
	return nil
}

// GetEvent fetches a single event together with its recurrence occurrences.
func (s *EventService) GetEvent(ctx context.Context, principal Principal, eventID string) (Event, error) {
	if s == nil {
		return Event{}, fmt.Errorf("EventService is nil")
	}
	if s.events == nil {
		return Event{}, fmt.Errorf("event repository not configured")
	}

	record, err := s.events.GetEvent(ctx, eventID)
	if err != nil {
		return Event{}, mapEventRepoError(err)
	}
	if !authorizedForOwner(principal, record.OwnerID) {
		return Event{}, ErrUnauthorized
	}

	occurrences, err := s.expandOccurrences(ctx, []persistence.Event{record}, record.Start, record.End)
	if err != nil {
		return Event{}, err
	}
	return eventFromRecord(record, occurrences[record.ID]), nil
}

// ListEvents returns the principal's calendar events, with recurrences
// expanded into the requested window.
func (s *EventService) ListEvents(ctx context.Context, params ListEventsParams) ([]Event, error) {
	if s == nil {
		return nil, fmt.Errorf("EventService is nil")
	}
	if params.Principal.UserID == "" {
		return nil, ErrUnauthorized
	}
	if s.events == nil {
		return nil, nil
	}

	startsAfter, endsBefore := resolveListWindow(params.Period, params.PeriodReference, params.StartsAfter, params.EndsBefore)

	records, err := s.events.ListEvents(ctx, persistence.EventFilter{
		OwnerID:     params.Principal.UserID,
		StartsAfter: startsAfter,
		EndsBefore:  endsBefore,
	})
	if err != nil {
		return nil, mapEventRepoError(err)
	}

	sort.Slice(records, func(i, j int) bool {
		if records[i].Start.Equal(records[j].Start) {
			return records[i].ID < records[j].ID
		}
		return records[i].Start.Before(records[j].Start)
	})

	var windowStart, windowEnd time.Time
	if startsAfter != nil {
		windowStart = *startsAfter
	}
	if endsBefore != nil {
		windowEnd = *endsBefore
	}

	occurrences, err := s.expandOccurrences(ctx, records, windowStart, windowEnd)
	if err != nil {
		return nil, err
	}

	out := make([]Event, 0, len(records))
	for _, record := range records {
		out = append(out, eventFromRecord(record, occurrences[record.ID]))
	}
	return out, nil
}

// ListBlockers implements application.TaskBlockerSource: it returns the
// user's events and expanded recurrence occurrences, re-shaped as
// immovable calendar entries, for the scheduling engine to route around.
func (s *EventService) ListBlockers(ctx context.Context, ownerID string, from, to time.Time) ([]persistence.Event, error) {
	if s == nil || s.events == nil {
		return nil, nil
	}

	records, err := s.events.ListEvents(ctx, persistence.EventFilter{OwnerID: ownerID, StartsAfter: &from, EndsBefore: &to})
	if err != nil {
		return nil, mapEventRepoError(err)
	}

	occurrences, err := s.expandOccurrences(ctx, records, from, to)
	if err != nil {
		return nil, err
	}

	out := make([]persistence.Event, 0, len(records))
	for _, record := range records {
		if occ, ok := occurrences[record.ID]; ok {
			for _, o := range occ {
				out = append(out, persistence.Event{ID: record.ID, OwnerID: record.OwnerID, Title: record.Title, Tag: record.Tag, Priority: record.Priority, Start: o.Start, End: o.End})
			}
			continue
		}
		out = append(out, record)
	}
	return out, nil
}

func (s *EventService) saveRecurrence(ctx context.Context, record persistence.Event, input EventRecurrenceInput) error {
	if s.recurrences == nil {
		return nil
	}
	rule := persistence.EventRecurrence{
		ID:        s.idGenerator(),
		EventID:   record.ID,
		Frequency: frequencyFromString(input.Frequency),
		Weekdays:  toTimeWeekdays(input.Weekdays),
		StartsOn:  record.Start,
		EndsOn:    input.EndsOn,
	}
	if err := s.recurrences.UpsertRecurrence(ctx, rule); err != nil {
		return mapEventRepoError(err)
	}
	return nil
}

func (s *EventService) expandOccurrences(ctx context.Context, records []persistence.Event, windowStart, windowEnd time.Time) (map[string][]EventOccurrence, error) {
	out := make(map[string][]EventOccurrence, len(records))
	if s.recurrences == nil || len(records) == 0 {
		return out, nil
	}

	ids := make([]string, len(records))
	byID := make(map[string]persistence.Event, len(records))
	for i, record := range records {
		ids[i] = record.ID
		byID[record.ID] = record
	}

	rulesByEvent, err := s.recurrences.ListRecurrencesForEvents(ctx, ids)
	if err != nil {
		return nil, mapEventRepoError(err)
	}

	opts := recurrence.GenerateOptions{}
	if !windowStart.IsZero() {
		opts.RangeStart = &windowStart
	}
	if !windowEnd.IsZero() {
		opts.RangeEnd = &windowEnd
	}

	for eventID, rules := range rulesByEvent {
		record, ok := byID[eventID]
		if !ok {
			continue
		}
		for _, rule := range rules {
			engineRule := recurrence.Rule{
				ID:        rule.ID,
				EventID:   rule.EventID,
				Frequency: recurrenceFrequency(rule.Frequency),
				Weekdays:  rule.Weekdays,
				StartsOn:  rule.StartsOn,
				EndsOn:    rule.EndsOn,
			}
			generated, genErr := s.expander.GenerateOccurrences(engineRule, record.Start, record.End, opts)
			if genErr != nil {
				if errors.Is(genErr, recurrence.ErrInvalidWindow) {
					continue
				}
				return nil, fmt.Errorf("expanding recurrence %s: %w", rule.ID, genErr)
			}
			for _, occ := range generated {
				out[eventID] = append(out[eventID], EventOccurrence{EventID: occ.EventID, RuleID: occ.RuleID, Start: occ.Start, End: occ.End})
			}
		}
	}
	return out, nil
}

func eventFromRecord(record persistence.Event, occurrences []EventOccurrence) Event {
	return Event{
		ID:          record.ID,
		OwnerID:     record.OwnerID,
		Title:       record.Title,
		Tag:         record.Tag,
		Priority:    record.Priority,
		Start:       record.Start,
		End:         record.End,
		CreatedAt:   record.CreatedAt,
		UpdatedAt:   record.UpdatedAt,
		Occurrences: occurrences,
	}
}

func frequencyFromString(s string) int {
	if strings.EqualFold(s, "daily") {
		return int(recurrence.FrequencyDaily)
	}
	return int(recurrence.FrequencyWeekly)
}

func recurrenceFrequency(v int) recurrence.Frequency {
	switch recurrence.Frequency(v) {
	case recurrence.FrequencyDaily:
		return recurrence.FrequencyDaily
	case recurrence.FrequencyWeekly:
		return recurrence.FrequencyWeekly
	default:
		return recurrence.FrequencyUnspecified
	}
}

func toTimeWeekdays(days []string) []time.Weekday {
	weekdays := make([]time.Weekday, 0, len(days))
	for _, day := range days {
		switch strings.ToLower(strings.TrimSpace(day)) {
		case "sunday":
			weekdays = append(weekdays, time.Sunday)
		case "monday":
			weekdays = append(weekdays, time.Monday)
		case "tuesday":
			weekdays = append(weekdays, time.Tuesday)
		case "wednesday":
			weekdays = append(weekdays, time.Wednesday)
		case "thursday":
			weekdays = append(weekdays, time.Thursday)
		case "friday":
			weekdays = append(weekdays, time.Friday)
		case "saturday":
			weekdays = append(weekdays, time.Saturday)
		}
	}
	return weekdays
}

func validateEventInput(input EventInput) *ValidationError {
	vErr := &ValidationError{}
	if strings.TrimSpace(input.Title) == "" {
		vErr.add("title", "title is required")
	}
	if strings.TrimSpace(input.Tag) == "" {
		vErr.add("tag", "tag is required")
	}
	if !input.End.After(input.Start) {
		vErr.add("time", "end must be after start")
	}
	return vErr
}

func mapEventRepoError(err error) error {
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

// resolveListWindow maps day/week/month presets into explicit bounds,
// falling back to caller-supplied StartsAfter/EndsBefore when no preset
// is requested. Grounded on the teacher's JST-based period computation.
func resolveListWindow(period ListPeriod, reference time.Time, startsAfter, endsBefore *time.Time) (*time.Time, *time.Time) {
	if period == ListPeriodNone {
		return startsAfter, endsBefore
	}
	loc := jstLocation()
	ref := reference
	if ref.IsZero() {
		ref = time.Now()
	}
	ref = ref.In(loc)

	var start, end time.Time
	switch period {
	case ListPeriodDay:
		start = time.Date(ref.Year(), ref.Month(), ref.Day(), 0, 0, 0, 0, loc)
		end = start.AddDate(0, 0, 1)
	case ListPeriodWeek:
		start = startOfWeek(ref, loc)
		end = start.AddDate(0, 0, 7)
	case ListPeriodMonth:
		start = time.Date(ref.Year(), ref.Month(), 1, 0, 0, 0, 0, loc)
		end = start.AddDate(0, 1, 0)
	default:
		return startsAfter, endsBefore
	}
	return &start, &end
}

func startOfWeek(ref time.Time, loc *time.Location) time.Time {
	day := time.Date(ref.Year(), ref.Month(), ref.Day(), 0, 0, 0, 0, loc)
	offset := int(day.Weekday()) - int(time.Monday)
	if offset < 0 {
		offset += 7
	}
	return day.AddDate(0, 0, -offset)
}

func jstLocation() *time.Location {
	if loc, err := time.LoadLocation("Asia/Tokyo"); err == nil {
		return loc
	}
	return time.FixedZone("JST", 9*60*60)
}
