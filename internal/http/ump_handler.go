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

type umpService interface {
	GetUmp(ctx context.Context, params application.GetUmpParams) (application.Ump, error)
	UpdateUmp(ctx context.Context, params application.UpdateUmpParams) (application.Ump, error)
}

// UmpHandler exposes HTTP endpoints backed by the Ump (user model of
// scheduling preferences) service.
type UmpHandler struct {
	service   umpService
	responder responder
	logger    *slog.Logger
}

// NewUmpHandler wires dependencies for Ump endpoints.
func NewUmpHandler(service umpService, logger *slog.Logger) *UmpHandler {
	base := defaultLogger(logger)
	return &UmpHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *UmpHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "UmpHandler", operation, attrs...)
}

// Get handles GET /ump for the authenticated principal.
func (h *UmpHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	logger := h.log(r.Context(), "Get", "principal_id", principal.UserID)

	ump, err := h.service.GetUmp(r.Context(), application.GetUmpParams{Principal: principal, UserID: principal.UserID})
	if err != nil {
		logger.ErrorContext(r.Context(), "preferences fetch failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "preferences fetched")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, umpResponse{Ump: toUmpDTO(ump)})
}

// Update handles PUT /ump for the authenticated principal.
func (h *UmpHandler) Update(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	var req umpRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "Update", "principal_id", principal.UserID, "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode preferences update", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "Update", "principal_id", principal.UserID)

	ump, err := h.service.UpdateUmp(r.Context(), application.UpdateUmpParams{
		Principal: principal,
		UserID:    principal.UserID,
		Input:     req.toInput(),
	})
	if err != nil {
		logger.ErrorContext(r.Context(), "preferences update failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "preferences updated")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, umpResponse{Ump: toUmpDTO(ump)})
}

type umpRequest struct {
	AllowedWeekdays              []string `json:"allowed_weekdays"`
	MinSessionHours              float64  `json:"min_session_hours"`
	MaxSessionHours              float64  `json:"max_session_hours"`
	MinBreakBetweenSessionsHours float64  `json:"min_break_between_sessions_hours"`
	SleepWindowStart             string   `json:"sleep_window_start"`
	SleepWindowEnd               string   `json:"sleep_window_end"`
	DoNotDisturbStart            *string  `json:"do_not_disturb_start,omitempty"`
	DoNotDisturbEnd              *string  `json:"do_not_disturb_end,omitempty"`
	PreferredWindowStart         string   `json:"preferred_window_start"`
	PreferredWindowEnd           string   `json:"preferred_window_end"`
}

func (r umpRequest) toInput() application.UmpInput {
	return application.UmpInput{
		AllowedWeekdays:              r.AllowedWeekdays,
		MinSessionHours:              r.MinSessionHours,
		MaxSessionHours:              r.MaxSessionHours,
		MinBreakBetweenSessionsHours: r.MinBreakBetweenSessionsHours,
		SleepWindowStart:             parseTime(r.SleepWindowStart),
		SleepWindowEnd:               parseTime(r.SleepWindowEnd),
		DoNotDisturbStart:            parseTimePtr(derefString(r.DoNotDisturbStart)),
		DoNotDisturbEnd:              parseTimePtr(derefString(r.DoNotDisturbEnd)),
		PreferredWindowStart:         parseTime(r.PreferredWindowStart),
		PreferredWindowEnd:           parseTime(r.PreferredWindowEnd),
	}
}

type umpResponse struct {
	Ump umpDTO `json:"ump"`
}

type umpDTO struct {
	AllowedWeekdays              []string `json:"allowed_weekdays"`
	MinSessionHours              float64  `json:"min_session_hours"`
	MaxSessionHours              float64  `json:"max_session_hours"`
	MinBreakBetweenSessionsHours float64  `json:"min_break_between_sessions_hours"`
	SleepWindowStart             string   `json:"sleep_window_start"`
	SleepWindowEnd               string   `json:"sleep_window_end"`
	DoNotDisturbStart            *string  `json:"do_not_disturb_start,omitempty"`
	DoNotDisturbEnd              *string  `json:"do_not_disturb_end,omitempty"`
	PreferredWindowStart         string   `json:"preferred_window_start"`
	PreferredWindowEnd           string   `json:"preferred_window_end"`
	UpdatedAt                    string   `json:"updated_at"`
}

func toUmpDTO(ump application.Ump) umpDTO {
	return umpDTO{
		AllowedWeekdays:              append([]string(nil), ump.AllowedWeekdays...),
		MinSessionHours:              ump.MinSessionHours,
		MaxSessionHours:              ump.MaxSessionHours,
		MinBreakBetweenSessionsHours: ump.MinBreakBetweenSessionsHours,
		SleepWindowStart:             ump.SleepWindowStart.UTC().Format(time.RFC3339Nano),
		SleepWindowEnd:               ump.SleepWindowEnd.UTC().Format(time.RFC3339Nano),
		DoNotDisturbStart:            formatTimePtr(ump.DoNotDisturbStart),
		DoNotDisturbEnd:              formatTimePtr(ump.DoNotDisturbEnd),
		PreferredWindowStart:         ump.PreferredWindowStart.UTC().Format(time.RFC3339Nano),
		PreferredWindowEnd:           ump.PreferredWindowEnd.UTC().Format(time.RFC3339Nano),
		UpdatedAt:                    ump.UpdatedAt.UTC().Format(time.RFC3339Nano),
	}
}
