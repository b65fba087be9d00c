package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/example/taskscheduler/internal/application"
)

type eventService interface {
	CreateEvent(ctx context.Context, params application.CreateEventParams) (application.Event, error)
	UpdateEvent(ctx context.Context, params application.UpdateEventParams) (application.Event, error)
	DeleteEvent(ctx context.Context, principal application.Principal, eventID string) error
	GetEvent(ctx context.Context, principal application.Principal, eventID string) (application.Event, error)
	ListEvents(ctx context.Context, params application.ListEventsParams) ([]application.Event, error)
}

// EventHandler exposes HTTP endpoints backed by the event service.
type EventHandler struct {
	service   eventService
	responder responder
	logger    *slog.Logger
}

// NewEventHandler wires dependencies for event endpoints.
func NewEventHandler(service eventService, logger *slog.Logger) *EventHandler {
	base := defaultLogger(logger)
	return &EventHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *EventHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "EventHandler", operation, attrs...)
}

// Create handles POST /events.
func (h *EventHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	var req eventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "Create", "principal_id", principal.UserID, "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode event request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "Create", "principal_id", principal.UserID)

	event, err := h.service.CreateEvent(r.Context(), application.CreateEventParams{
		Principal: principal,
		Input:     req.toInput(),
	})
	if err != nil {
		logger.ErrorContext(r.Context(), "event creation failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("event_id", event.ID).InfoContext(r.Context(), "event created")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, eventResponse{Event: toEventDTO(event)})
}

// Update handles PUT /events/{id}.
func (h *EventHandler) Update(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	eventID, ok := EventIDFromContext(r.Context())
	if !ok || strings.TrimSpace(eventID) == "" {
		h.log(r.Context(), "Update", "error_kind", "bad_request").ErrorContext(r.Context(), "missing event id for update")
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidEventID)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	var req eventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "Update", "principal_id", principal.UserID, "event_id", eventID, "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode event update", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "Update", "principal_id", principal.UserID, "event_id", eventID)

	event, err := h.service.UpdateEvent(r.Context(), application.UpdateEventParams{
		Principal: principal,
		EventID:   eventID,
		Input:     req.toInput(),
	})
	if err != nil {
		logger.ErrorContext(r.Context(), "event update failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "event updated")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, eventResponse{Event: toEventDTO(event)})
}

// Delete handles DELETE /events/{id}.
func (h *EventHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	eventID, ok := EventIDFromContext(r.Context())
	if !ok || strings.TrimSpace(eventID) == "" {
		h.log(r.Context(), "Delete", "error_kind", "bad_request").ErrorContext(r.Context(), "missing event id for delete")
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidEventID)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	logger := h.log(r.Context(), "Delete", "principal_id", principal.UserID, "event_id", eventID)
	if err := h.service.DeleteEvent(r.Context(), principal, eventID); err != nil {
		logger.ErrorContext(r.Context(), "event delete failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "event deleted")
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

// Get handles GET /events/{id}.
func (h *EventHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	eventID, ok := EventIDFromContext(r.Context())
	if !ok || strings.TrimSpace(eventID) == "" {
		h.log(r.Context(), "Get", "error_kind", "bad_request").ErrorContext(r.Context(), "missing event id")
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidEventID)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	logger := h.log(r.Context(), "Get", "principal_id", principal.UserID, "event_id", eventID)
	event, err := h.service.GetEvent(r.Context(), principal, eventID)
	if err != nil {
		logger.ErrorContext(r.Context(), "event fetch failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "event fetched")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, eventResponse{Event: toEventDTO(event)})
}

// List handles GET /events, honoring the optional day/week/month period shortcuts.
func (h *EventHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	logger := h.log(r.Context(), "List", "principal_id", principal.UserID)

	query := r.URL.Query()
	params := application.ListEventsParams{
		Principal:       principal,
		StartsAfter:     parseTimePtr(query.Get("starts_after")),
		EndsBefore:      parseTimePtr(query.Get("ends_before")),
		Period:          application.ListPeriod(query.Get("period")),
		PeriodReference: parseTime(query.Get("period_reference")),
	}

	events, err := h.service.ListEvents(r.Context(), params)
	if err != nil {
		logger.ErrorContext(r.Context(), "event list failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("result_count", len(events)).InfoContext(r.Context(), "events listed")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, listEventsResponse{Events: toEventDTOs(events)})
}

type eventRecurrenceRequest struct {
	Frequency string   `json:"frequency"`
	Weekdays  []string `json:"weekdays"`
	EndsOn    *string  `json:"ends_on,omitempty"`
}

type eventRequest struct {
	Title      string                  `json:"title"`
	Tag        string                  `json:"tag"`
	Priority   int                     `json:"priority"`
	Start      string                  `json:"start"`
	End        string                  `json:"end"`
	Recurrence *eventRecurrenceRequest `json:"recurrence,omitempty"`
}

func (r eventRequest) toInput() application.EventInput {
	input := application.EventInput{
		Title:    strings.TrimSpace(r.Title),
		Tag:      strings.TrimSpace(r.Tag),
		Priority: r.Priority,
		Start:    parseTime(r.Start),
		End:      parseTime(r.End),
	}
	if r.Recurrence != nil {
		input.Recurrence = &application.EventRecurrenceInput{
			Frequency: r.Recurrence.Frequency,
			Weekdays:  r.Recurrence.Weekdays,
			EndsOn:    parseTimePtr(derefString(r.Recurrence.EndsOn)),
		}
	}
	return input
}

type eventResponse struct {
	Event eventDTO `json:"event"`
}

type listEventsResponse struct {
	Events []eventDTO `json:"events"`
}

type eventOccurrenceDTO struct {
	RuleID string `json:"rule_id"`
	Start  string `json:"start"`
	End    string `json:"end"`
}

type eventDTO struct {
	ID          string               `json:"id"`
	Title       string               `json:"title"`
	Tag         string               `json:"tag"`
	Priority    int                  `json:"priority"`
	Start       string               `json:"start"`
	End         string               `json:"end"`
	CreatedAt   string               `json:"created_at"`
	UpdatedAt   string               `json:"updated_at"`
	Occurrences []eventOccurrenceDTO `json:"occurrences,omitempty"`
}

func toEventDTO(event application.Event) eventDTO {
	dto := eventDTO{
		ID:        event.ID,
		Title:     event.Title,
		Tag:       event.Tag,
		Priority:  event.Priority,
		Start:     event.Start.UTC().Format(time.RFC3339Nano),
		End:       event.End.UTC().Format(time.RFC3339Nano),
		CreatedAt: event.CreatedAt.UTC().Format(time.RFC3339Nano),
		UpdatedAt: event.UpdatedAt.UTC().Format(time.RFC3339Nano),
	}
	for _, occ := range event.Occurrences {
		dto.Occurrences = append(dto.Occurrences, eventOccurrenceDTO{
			RuleID: occ.RuleID,
			Start:  occ.Start.UTC().Format(time.RFC3339Nano),
			End:    occ.End.UTC().Format(time.RFC3339Nano),
		})
	}
	return dto
}

func toEventDTOs(events []application.Event) []eventDTO {
	if len(events) == 0 {
		return nil
	}
	out := make([]eventDTO, 0, len(events))
	for _, event := range events {
		out = append(out, toEventDTO(event))
	}
	return out
}
