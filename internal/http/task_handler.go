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

type taskService interface {
	CreateTask(ctx context.Context, params application.CreateTaskParams) (application.Task, error)
	UpdateTask(ctx context.Context, params application.UpdateTaskParams) (application.Task, error)
	DeleteTask(ctx context.Context, principal application.Principal, taskID string) error
	GetTask(ctx context.Context, principal application.Principal, taskID string) (application.Task, error)
	ListTasks(ctx context.Context, params application.ListTasksParams) ([]application.Task, error)
}

// TaskHandler exposes HTTP endpoints backed by the task service.
type TaskHandler struct {
	service   taskService
	responder responder
	logger    *slog.Logger
}

// NewTaskHandler wires dependencies for task endpoints.
func NewTaskHandler(service taskService, logger *slog.Logger) *TaskHandler {
	base := defaultLogger(logger)
	return &TaskHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *TaskHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "TaskHandler", operation, attrs...)
}

// Create handles POST /tasks.
func (h *TaskHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	var req taskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "Create", "principal_id", principal.UserID, "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode task request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "Create", "principal_id", principal.UserID)

	task, err := h.service.CreateTask(r.Context(), application.CreateTaskParams{
		Principal: principal,
		Input:     req.toInput(),
	})
	if err != nil {
		logger.ErrorContext(r.Context(), "task creation failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("task_id", task.ID).InfoContext(r.Context(), "task created")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, taskResponse{Task: toTaskDTO(task)})
}

// Update handles PUT /tasks/{id}.
func (h *TaskHandler) Update(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	taskID, ok := TaskIDFromContext(r.Context())
	if !ok || strings.TrimSpace(taskID) == "" {
		h.log(r.Context(), "Update", "error_kind", "bad_request").ErrorContext(r.Context(), "missing task id for update")
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidTaskID)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	var req taskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "Update", "principal_id", principal.UserID, "task_id", taskID, "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode task update", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "Update", "principal_id", principal.UserID, "task_id", taskID)

	task, err := h.service.UpdateTask(r.Context(), application.UpdateTaskParams{
		Principal: principal,
		TaskID:    taskID,
		Input:     req.toInput(),
	})
	if err != nil {
		logger.ErrorContext(r.Context(), "task update failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "task updated")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, taskResponse{Task: toTaskDTO(task)})
}

// Delete handles DELETE /tasks/{id}.
func (h *TaskHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	taskID, ok := TaskIDFromContext(r.Context())
	if !ok || strings.TrimSpace(taskID) == "" {
		h.log(r.Context(), "Delete", "error_kind", "bad_request").ErrorContext(r.Context(), "missing task id for delete")
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidTaskID)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	logger := h.log(r.Context(), "Delete", "principal_id", principal.UserID, "task_id", taskID)
	if err := h.service.DeleteTask(r.Context(), principal, taskID); err != nil {
		logger.ErrorContext(r.Context(), "task delete failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "task deleted")
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

// Get handles GET /tasks/{id}.
func (h *TaskHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	taskID, ok := TaskIDFromContext(r.Context())
	if !ok || strings.TrimSpace(taskID) == "" {
		h.log(r.Context(), "Get", "error_kind", "bad_request").ErrorContext(r.Context(), "missing task id")
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidTaskID)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	logger := h.log(r.Context(), "Get", "principal_id", principal.UserID, "task_id", taskID)
	task, err := h.service.GetTask(r.Context(), principal, taskID)
	if err != nil {
		logger.ErrorContext(r.Context(), "task fetch failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "task fetched")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, taskResponse{Task: toTaskDTO(task)})
}

// List handles GET /tasks.
func (h *TaskHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	logger := h.log(r.Context(), "List", "principal_id", principal.UserID)

	query := r.URL.Query()
	params := application.ListTasksParams{
		Principal:   principal,
		ScopeAfter:  parseTimePtr(query.Get("scope_after")),
		ScopeBefore: parseTimePtr(query.Get("scope_before")),
	}

	tasks, err := h.service.ListTasks(r.Context(), params)
	if err != nil {
		logger.ErrorContext(r.Context(), "task list failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("result_count", len(tasks)).InfoContext(r.Context(), "tasks listed")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, listTasksResponse{Tasks: toTaskDTOs(tasks)})
}

type taskRequest struct {
	Title                 string  `json:"title"`
	Tag                   string  `json:"tag"`
	TaskLengthHours       float64 `json:"task_length_hours"`
	ScopeStart            string  `json:"scope_start"`
	ScopeEnd              string  `json:"scope_end"`
	Priority              int     `json:"priority"`
	MaxAllowedHoursPerDay float64 `json:"max_allowed_hours_per_day"`
	Spread                string  `json:"spread"`
	DayPeriodStart        *string `json:"day_period_start,omitempty"`
	DayPeriodEnd          *string `json:"day_period_end,omitempty"`
	RelationToDayPeriod   string  `json:"relation_to_day_period,omitempty"`
	Deadline              *string `json:"deadline,omitempty"`
}

func (r taskRequest) toInput() application.TaskInput {
	return application.TaskInput{
		Title:                 strings.TrimSpace(r.Title),
		Tag:                   strings.TrimSpace(r.Tag),
		TaskLengthHours:       r.TaskLengthHours,
		ScopeStart:            parseTime(r.ScopeStart),
		ScopeEnd:              parseTime(r.ScopeEnd),
		Priority:              r.Priority,
		MaxAllowedHoursPerDay: r.MaxAllowedHoursPerDay,
		Spread:                r.Spread,
		DayPeriodStart:        parseTimePtr(derefString(r.DayPeriodStart)),
		DayPeriodEnd:          parseTimePtr(derefString(r.DayPeriodEnd)),
		RelationToDayPeriod:   r.RelationToDayPeriod,
		Deadline:              parseTimePtr(derefString(r.Deadline)),
	}
}

type taskResponse struct {
	Task taskDTO `json:"task"`
}

type listTasksResponse struct {
	Tasks []taskDTO `json:"tasks"`
}

type taskSessionDTO struct {
	ID    string `json:"id"`
	Start string `json:"start"`
	End   string `json:"end"`
}

type taskDiagnosticDTO struct {
	Kind      string `json:"kind"`
	Reason    string `json:"reason"`
	UpdatedAt string `json:"updated_at"`
}

type taskDTO struct {
	ID                    string             `json:"id"`
	Title                 string             `json:"title"`
	Tag                   string             `json:"tag"`
	TaskLengthHours       float64            `json:"task_length_hours"`
	ScopeStart            string             `json:"scope_start"`
	ScopeEnd              string             `json:"scope_end"`
	Priority              int                `json:"priority"`
	MaxAllowedHoursPerDay float64            `json:"max_allowed_hours_per_day"`
	Spread                string             `json:"spread"`
	DayPeriodStart        *string            `json:"day_period_start,omitempty"`
	DayPeriodEnd          *string            `json:"day_period_end,omitempty"`
	RelationToDayPeriod   string             `json:"relation_to_day_period,omitempty"`
	Deadline              *string            `json:"deadline,omitempty"`
	CreatedAt             string             `json:"created_at"`
	UpdatedAt             string             `json:"updated_at"`
	Sessions              []taskSessionDTO   `json:"sessions,omitempty"`
	Diagnostic            *taskDiagnosticDTO `json:"diagnostic,omitempty"`
}

func toTaskDTO(task application.Task) taskDTO {
	dto := taskDTO{
		ID:                    task.ID,
		Title:                 task.Title,
		Tag:                   task.Tag,
		TaskLengthHours:       task.TaskLengthHours,
		ScopeStart:            task.ScopeStart.UTC().Format(time.RFC3339Nano),
		ScopeEnd:              task.ScopeEnd.UTC().Format(time.RFC3339Nano),
		Priority:              task.Priority,
		MaxAllowedHoursPerDay: task.MaxAllowedHoursPerDay,
		Spread:                task.Spread,
		DayPeriodStart:        formatTimePtr(task.DayPeriodStart),
		DayPeriodEnd:          formatTimePtr(task.DayPeriodEnd),
		RelationToDayPeriod:   task.RelationToDayPeriod,
		Deadline:              formatTimePtr(task.Deadline),
		CreatedAt:             task.CreatedAt.UTC().Format(time.RFC3339Nano),
		UpdatedAt:             task.UpdatedAt.UTC().Format(time.RFC3339Nano),
	}
	for _, session := range task.Sessions {
		dto.Sessions = append(dto.Sessions, taskSessionDTO{
			ID:    session.ID,
			Start: session.Start.UTC().Format(time.RFC3339Nano),
			End:   session.End.UTC().Format(time.RFC3339Nano),
		})
	}
	if task.Diagnostic != nil {
		dto.Diagnostic = &taskDiagnosticDTO{
			Kind:      task.Diagnostic.Kind,
			Reason:    task.Diagnostic.Reason,
			UpdatedAt: task.Diagnostic.UpdatedAt.UTC().Format(time.RFC3339Nano),
		}
	}
	return dto
}

func toTaskDTOs(tasks []application.Task) []taskDTO {
	if len(tasks) == 0 {
		return nil
	}
	out := make([]taskDTO, 0, len(tasks))
	for _, task := range tasks {
		out = append(out, toTaskDTO(task))
	}
	return out
}

func parseTime(value string) time.Time {
	if strings.TrimSpace(value) == "" {
		return time.Time{}
	}
	if ts, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return ts
	}
	if ts, err := time.Parse(time.RFC3339, value); err == nil {
		return ts
	}
	return time.Time{}
}

func parseTimePtr(value string) *time.Time {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	ts := parseTime(value)
	if ts.IsZero() {
		return nil
	}
	return &ts
}

func formatTimePtr(value *time.Time) *string {
	if value == nil {
		return nil
	}
	formatted := value.UTC().Format(time.RFC3339Nano)
	return &formatted
}

func derefString(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}
