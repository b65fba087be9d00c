package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/example/taskscheduler/internal/persistence"
)

type eventRepoStub struct {
	events  []persistence.Event
	err     error
	created persistence.Event
	updated persistence.Event
	deleted []string
}

func (e *eventRepoStub) CreateEvent(ctx context.Context, event persistence.Event) error {
	if e.err != nil {
		return e.err
	}
	e.created = event
	e.events = append(e.events, event)
	return nil
}

func (e *eventRepoStub) UpdateEvent(ctx context.Context, event persistence.Event) error {
	if e.err != nil {
		return e.err
	}
	e.updated = event
	for i, existing := range e.events {
		if existing.ID == event.ID {
			e.events[i] = event
			return nil
		}
	}
	return persistence.ErrNotFound
}

func (e *eventRepoStub) GetEvent(ctx context.Context, id string) (persistence.Event, error) {
	if e.err != nil {
		return persistence.Event{}, e.err
	}
	for _, existing := range e.events {
		if existing.ID == id {
			return existing, nil
		}
	}
	return persistence.Event{}, persistence.ErrNotFound
}

func (e *eventRepoStub) ListEvents(ctx context.Context, filter persistence.EventFilter) ([]persistence.Event, error) {
	if e.err != nil {
		return nil, e.err
	}
	out := make([]persistence.Event, 0, len(e.events))
	for _, existing := range e.events {
		if filter.OwnerID != "" && existing.OwnerID != filter.OwnerID {
			continue
		}
		out = append(out, existing)
	}
	return out, nil
}

func (e *eventRepoStub) DeleteEvent(ctx context.Context, id string) error {
	e.deleted = append(e.deleted, id)
	for i, existing := range e.events {
		if existing.ID == id {
			e.events = append(e.events[:i], e.events[i+1:]...)
			return nil
		}
	}
	return persistence.ErrNotFound
}

type eventRecurrenceRepoStub struct {
	rulesByEvent map[string][]persistence.EventRecurrence
	upserted     persistence.EventRecurrence
	deletedFor   []string
	err          error
}

func (r *eventRecurrenceRepoStub) UpsertRecurrence(ctx context.Context, rule persistence.EventRecurrence) error {
	if r.err != nil {
		return r.err
	}
	r.upserted = rule
	if r.rulesByEvent == nil {
		r.rulesByEvent = make(map[string][]persistence.EventRecurrence)
	}
	r.rulesByEvent[rule.EventID] = []persistence.EventRecurrence{rule}
	return nil
}

func (r *eventRecurrenceRepoStub) ListRecurrencesForEvent(ctx context.Context, eventID string) ([]persistence.EventRecurrence, error) {
	if r.err != nil {
		return nil, r.err
	}
	return r.rulesByEvent[eventID], nil
}

func (r *eventRecurrenceRepoStub) ListRecurrencesForEvents(ctx context.Context, eventIDs []string) (map[string][]persistence.EventRecurrence, error) {
	if r.err != nil {
		return nil, r.err
	}
	out := make(map[string][]persistence.EventRecurrence, len(eventIDs))
	for _, id := range eventIDs {
		if rules, ok := r.rulesByEvent[id]; ok {
			out[id] = rules
		}
	}
	return out, nil
}

func (r *eventRecurrenceRepoStub) DeleteRecurrencesForEvent(ctx context.Context, eventID string) error {
	if r.err != nil {
		return r.err
	}
	r.deletedFor = append(r.deletedFor, eventID)
	delete(r.rulesByEvent, eventID)
	return nil
}

func validEventInput() EventInput {
	start := time.Date(2024, 3, 14, 9, 0, 0, 0, time.UTC)
	return EventInput{
		Title: "Standup",
		Tag:   "work",
		Start: start,
		End:   start.Add(30 * time.Minute),
	}
}

func TestEventService_CreateEvent_RequiresAuthenticatedPrincipal(t *testing.T) {
	svc := NewEventService(&eventRepoStub{}, &eventRecurrenceRepoStub{}, nil, nil)

	_, err := svc.CreateEvent(context.Background(), CreateEventParams{Input: validEventInput()})

	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestEventService_CreateEvent_ValidatesRequiredFields(t *testing.T) {
	svc := NewEventService(&eventRepoStub{}, &eventRecurrenceRepoStub{}, nil, nil)

	_, err := svc.CreateEvent(context.Background(), CreateEventParams{
		Principal: Principal{UserID: "user-1"},
		Input:     EventInput{},
	})

	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	for _, field := range []string{"title", "tag", "time"} {
		if _, ok := vErr.FieldErrors[field]; !ok {
			t.Fatalf("expected %q validation error, got %v", field, vErr.FieldErrors)
		}
	}
}

func TestEventService_CreateEvent_PersistsRecurrenceRule(t *testing.T) {
	repo := &eventRepoStub{}
	recurrences := &eventRecurrenceRepoStub{}
	svc := NewEventService(repo, recurrences, func() string { return "event-1" }, func() time.Time { return validEventInput().Start })

	input := validEventInput()
	input.Recurrence = &EventRecurrenceInput{Frequency: "weekly", Weekdays: []string{"monday", "wednesday"}}

	event, err := svc.CreateEvent(context.Background(), CreateEventParams{
		Principal: Principal{UserID: "user-1"},
		Input:     input,
	})
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if event.ID != "event-1" {
		t.Fatalf("unexpected event id %q", event.ID)
	}
	if recurrences.upserted.EventID != "event-1" {
		t.Fatalf("expected recurrence rule to be persisted for event-1, got %+v", recurrences.upserted)
	}
	if len(recurrences.upserted.Weekdays) != 2 {
		t.Fatalf("expected two weekdays, got %v", recurrences.upserted.Weekdays)
	}
}

func TestEventService_UpdateEvent_RequiresOwnershipOrAdmin(t *testing.T) {
	repo := &eventRepoStub{events: []persistence.Event{{ID: "event-1", OwnerID: "user-1"}}}
	svc := NewEventService(repo, &eventRecurrenceRepoStub{}, nil, nil)

	_, err := svc.UpdateEvent(context.Background(), UpdateEventParams{
		Principal: Principal{UserID: "user-2"},
		EventID:   "event-1",
		Input:     validEventInput(),
	})

	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestEventService_UpdateEvent_DropsRecurrenceWhenOmitted(t *testing.T) {
	repo := &eventRepoStub{events: []persistence.Event{{ID: "event-1", OwnerID: "user-1"}}}
	recurrences := &eventRecurrenceRepoStub{rulesByEvent: map[string][]persistence.EventRecurrence{
		"event-1": {{ID: "rule-1", EventID: "event-1"}},
	}}
	svc := NewEventService(repo, recurrences, nil, func() time.Time { return validEventInput().Start })

	_, err := svc.UpdateEvent(context.Background(), UpdateEventParams{
		Principal: Principal{UserID: "user-1"},
		EventID:   "event-1",
		Input:     validEventInput(),
	})
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if len(recurrences.deletedFor) != 1 || recurrences.deletedFor[0] != "event-1" {
		t.Fatalf("expected recurrence rule to be dropped for event-1, got %v", recurrences.deletedFor)
	}
}

func TestEventService_DeleteEvent_RequiresOwnershipOrAdmin(t *testing.T) {
	repo := &eventRepoStub{events: []persistence.Event{{ID: "event-1", OwnerID: "user-1"}}}
	svc := NewEventService(repo, &eventRecurrenceRepoStub{}, nil, nil)

	err := svc.DeleteEvent(context.Background(), Principal{UserID: "user-2"}, "event-1")

	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestEventService_DeleteEvent_RemovesEventAndRecurrence(t *testing.T) {
	repo := &eventRepoStub{events: []persistence.Event{{ID: "event-1", OwnerID: "user-1"}}}
	recurrences := &eventRecurrenceRepoStub{rulesByEvent: map[string][]persistence.EventRecurrence{
		"event-1": {{ID: "rule-1", EventID: "event-1"}},
	}}
	svc := NewEventService(repo, recurrences, nil, nil)

	if err := svc.DeleteEvent(context.Background(), Principal{UserID: "user-1"}, "event-1"); err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if len(recurrences.deletedFor) != 1 {
		t.Fatalf("expected recurrence cleanup, got %v", recurrences.deletedFor)
	}
	if len(repo.deleted) != 1 || repo.deleted[0] != "event-1" {
		t.Fatalf("expected event to be deleted, got %v", repo.deleted)
	}
}

func TestEventService_GetEvent_ExpandsRecurrenceOccurrences(t *testing.T) {
	start := time.Date(2024, 3, 11, 9, 0, 0, 0, time.UTC) // a Monday
	repo := &eventRepoStub{events: []persistence.Event{{ID: "event-1", OwnerID: "user-1", Start: start, End: start.Add(30 * time.Minute)}}}
	rangeEnd := start.AddDate(0, 0, 14)
	recurrences := &eventRecurrenceRepoStub{rulesByEvent: map[string][]persistence.EventRecurrence{
		// Frequency 2 is recurrence.FrequencyWeekly's persisted int value.
		"event-1": {{ID: "rule-1", EventID: "event-1", Frequency: 2, Weekdays: []time.Weekday{time.Monday}, StartsOn: start, EndsOn: &rangeEnd}},
	}}

	svc := NewEventService(repo, recurrences, nil, nil)

	event, err := svc.GetEvent(context.Background(), Principal{UserID: "user-1"}, "event-1")
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if len(event.Occurrences) == 0 {
		t.Fatalf("expected recurrence occurrences to be expanded, got none")
	}
}

func TestEventService_ListEvents_RequiresAuthenticatedPrincipal(t *testing.T) {
	svc := NewEventService(&eventRepoStub{}, &eventRecurrenceRepoStub{}, nil, nil)

	_, err := svc.ListEvents(context.Background(), ListEventsParams{})

	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestEventService_ListEvents_OrdersByStart(t *testing.T) {
	later := time.Date(2024, 3, 15, 9, 0, 0, 0, time.UTC)
	earlier := time.Date(2024, 3, 14, 9, 0, 0, 0, time.UTC)
	repo := &eventRepoStub{events: []persistence.Event{
		{ID: "event-b", OwnerID: "user-1", Start: later},
		{ID: "event-a", OwnerID: "user-1", Start: earlier},
	}}
	svc := NewEventService(repo, &eventRecurrenceRepoStub{}, nil, nil)

	events, err := svc.ListEvents(context.Background(), ListEventsParams{Principal: Principal{UserID: "user-1"}})
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if len(events) != 2 || events[0].ID != "event-a" || events[1].ID != "event-b" {
		t.Fatalf("expected events ordered by start, got %+v", events)
	}
}

func TestEventService_ListBlockers_ExpandsOccurrencesForScheduling(t *testing.T) {
	start := time.Date(2024, 3, 11, 9, 0, 0, 0, time.UTC) // a Monday
	from := start
	to := start.AddDate(0, 0, 14)
	repo := &eventRepoStub{events: []persistence.Event{{ID: "event-1", OwnerID: "user-1", Start: start, End: start.Add(30 * time.Minute)}}}
	recurrences := &eventRecurrenceRepoStub{rulesByEvent: map[string][]persistence.EventRecurrence{
		"event-1": {{ID: "rule-1", EventID: "event-1", Frequency: 2, Weekdays: []time.Weekday{time.Monday}, StartsOn: start, EndsOn: &to}},
	}}
	svc := NewEventService(repo, recurrences, nil, nil)

	blockers, err := svc.ListBlockers(context.Background(), "user-1", from, to)
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if len(blockers) < 2 {
		t.Fatalf("expected weekly recurrence to expand into multiple blockers, got %d", len(blockers))
	}
}
