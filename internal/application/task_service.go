package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/example/taskscheduler/internal/engine"
	"github.com/example/taskscheduler/internal/persistence"
	"github.com/example/taskscheduler/internal/placer"
	"github.com/example/taskscheduler/internal/ticks"
	"github.com/example/taskscheduler/internal/windows"
)

// TaskRepository captures the persistence operations needed by the task service.
type TaskRepository interface {
	CreateTask(ctx context.Context, task persistence.TaskRequest) error
	UpdateTask(ctx context.Context, task persistence.TaskRequest) error
	GetTask(ctx context.Context, id string) (persistence.TaskRequest, error)
	ListTasks(ctx context.Context, filter persistence.TaskFilter) ([]persistence.TaskRequest, error)
	DeleteTask(ctx context.Context, id string) error

	ReplaceScheduledSessions(ctx context.Context, taskID string, sessions []persistence.ScheduledSession) error
	ListScheduledSessions(ctx context.Context, taskID string) ([]persistence.ScheduledSession, error)

	PutDiagnostic(ctx context.Context, diagnostic persistence.TaskDiagnostic) error
	GetDiagnostic(ctx context.Context, taskID string) (persistence.TaskDiagnostic, error)
}

// TaskBlockerSource reads a user's calendar to build the engine's blocker
// set, already expanded from recurrences into concrete occurrences.
type TaskBlockerSource interface {
	ListBlockers(ctx context.Context, ownerID string, from, to time.Time) ([]persistence.Event, error)
}

// TaskUmpSource reads a user's standing scheduling preferences.
type TaskUmpSource interface {
	GetUmp(ctx context.Context, userID string) (persistence.Ump, error)
}

// TaskService validates task requests, persists them, and invokes the
// scheduling engine to place their sessions.
type TaskService struct {
	tasks       TaskRepository
	blockers    TaskBlockerSource
	ump         TaskUmpSource
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
	diagnostics *diagnosticCache

	// solverTimeout bounds how long a single Schedule call may run, in
	// addition to whatever deadline the caller's context already carries.
	solverTimeout time.Duration
}

// NewTaskService wires dependencies for the task service.
func NewTaskService(tasks TaskRepository, blockers TaskBlockerSource, ump TaskUmpSource, idGenerator func() string, now func() time.Time) *TaskService {
	return NewTaskServiceWithLogger(tasks, blockers, ump, idGenerator, now, nil)
}

// NewTaskServiceWithLogger wires dependencies for the task service and accepts a logger.
func NewTaskServiceWithLogger(tasks TaskRepository, blockers TaskBlockerSource, ump TaskUmpSource, idGenerator func() string, now func() time.Time, logger *slog.Logger) *TaskService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &TaskService{
		tasks:         tasks,
		blockers:      blockers,
		ump:           ump,
		idGenerator:   idGenerator,
		now:           now,
		logger:        defaultLogger(logger),
		diagnostics:   newDiagnosticCache(30*time.Second, 256, now),
		solverTimeout: engine.DefaultSolverTimeout,
	}
}

// WithSolverTimeout overrides the per-call solving deadline, letting
// operators bound placement latency below the engine's own default.
func (s *TaskService) WithSolverTimeout(timeout time.Duration) *TaskService {
	if s != nil && timeout > 0 {
		s.solverTimeout = timeout
	}
	return s
}

func (s *TaskService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "TaskService", operation, attrs...)
}

// CreateTask validates, persists, and solves a new task request.
func (s *TaskService) CreateTask(ctx context.Context, params CreateTaskParams) (task Task, err error) {
	if s == nil {
		err = fmt.Errorf("TaskService is nil")
		return
	}
	if params.Principal.UserID == "" {
		err = ErrUnauthorized
		return
	}

	logger := s.loggerWith(ctx, "CreateTask", "principal_id", params.Principal.UserID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to create task", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("task_id", task.ID).InfoContext(ctx, "task created")
	}()

	vErr := validateTaskInput(params.Input)
	if vErr.HasErrors() {
		err = vErr
		return
	}

	now := s.now()
	record := persistence.TaskRequest{
		ID:                    s.idGenerator(),
		OwnerID:               params.Principal.UserID,
		Title:                 strings.TrimSpace(params.Input.Title),
		Tag:                   strings.TrimSpace(params.Input.Tag),
		TaskLengthHours:       params.Input.TaskLengthHours,
		ScopeStart:            params.Input.ScopeStart,
		ScopeEnd:              params.Input.ScopeEnd,
		Priority:              params.Input.Priority,
		MaxAllowedHoursPerDay: params.Input.MaxAllowedHoursPerDay,
		Spread:                params.Input.Spread,
		DayPeriodStart:        params.Input.DayPeriodStart,
		DayPeriodEnd:          params.Input.DayPeriodEnd,
		RelationToDayPeriod:   params.Input.RelationToDayPeriod,
		Deadline:              params.Input.Deadline,
		CreatedAt:             now,
		UpdatedAt:             now,
	}

	if s.tasks == nil {
		task = taskFromRecord(record, nil, nil)
		return
	}

	if err = s.tasks.CreateTask(ctx, record); err != nil {
		err = mapTaskRepoError(err)
		return
	}

	task, err = s.solveAndPersist(ctx, logger, record)
	return
}

// UpdateTask re-validates, persists, and re-solves an existing task request.
func (s *TaskService) UpdateTask(ctx context.Context, params UpdateTaskParams) (task Task, err error) {
	if s == nil {
		err = fmt.Errorf("TaskService is nil")
		return
	}
	if s.tasks == nil {
		err = fmt.Errorf("task repository not configured")
		return
	}

	logger := s.loggerWith(ctx, "UpdateTask", "principal_id", params.Principal.UserID, "task_id", params.TaskID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to update task", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "task updated")
	}()

	existing, getErr := s.tasks.GetTask(ctx, params.TaskID)
	if getErr != nil {
		err = mapTaskRepoError(getErr)
		return
	}
	if !authorizedForOwner(params.Principal, existing.OwnerID) {
		err = ErrUnauthorized
		return
	}

	vErr := validateTaskInput(params.Input)
	if vErr.HasErrors() {
		err = vErr
		return
	}

	existing.Title = strings.TrimSpace(params.Input.Title)
	existing.Tag = strings.TrimSpace(params.Input.Tag)
	existing.TaskLengthHours = params.Input.TaskLengthHours
	existing.ScopeStart = params.Input.ScopeStart
	existing.ScopeEnd = params.Input.ScopeEnd
	existing.Priority = params.Input.Priority
	existing.MaxAllowedHoursPerDay = params.Input.MaxAllowedHoursPerDay
	existing.Spread = params.Input.Spread
	existing.DayPeriodStart = params.Input.DayPeriodStart
	existing.DayPeriodEnd = params.Input.DayPeriodEnd
	existing.RelationToDayPeriod = params.Input.RelationToDayPeriod
	existing.Deadline = params.Input.Deadline
	existing.UpdatedAt = s.now()

	if err = s.tasks.UpdateTask(ctx, existing); err != nil {
		err = mapTaskRepoError(err)
		return
	}

	task, err = s.solveAndPersist(ctx, logger, existing)
	return
}

// DeleteTask removes a task request owned by the principal (or any task
// when the principal is an administrator).
func (s *TaskService) DeleteTask(ctx context.Context, principal Principal, taskID string) error {
	if s == nil {
		return fmt.Errorf("TaskService is nil")
	}
	if s.tasks == nil {
		return fmt.Errorf("task repository not configured")
	}

	logger := s.loggerWith(ctx, "DeleteTask", "principal_id", principal.UserID, "task_id", taskID)

	existing, err := s.tasks.GetTask(ctx, taskID)
	if err != nil {
		err = mapTaskRepoError(err)
		logger.ErrorContext(ctx, "failed to delete task", "error", err, "error_kind", ErrorKind(err))
		return err
	}
	if !authorizedForOwner(principal, existing.OwnerID) {
		logger.ErrorContext(ctx, "failed to delete task", "error", ErrUnauthorized, "error_kind", ErrorKind(ErrUnauthorized))
		return ErrUnauthorized
	}

	if err := s.tasks.DeleteTask(ctx, taskID); err != nil {
		err = mapTaskRepoError(err)
		logger.ErrorContext(ctx, "failed to delete task", "error", err, "error_kind", ErrorKind(err))
		return err
	}
	s.diagnostics.Invalidate(taskID)

	logger.InfoContext(ctx, "task deleted")
	return nil
}

// GetTask fetches a single task request together with its last solve outcome.
func (s *TaskService) GetTask(ctx context.Context, principal Principal, taskID string) (Task, error) {
	if s == nil {
		return Task{}, fmt.Errorf("TaskService is nil")
	}
	if s.tasks == nil {
		return Task{}, fmt.Errorf("task repository not configured")
	}

	record, err := s.tasks.GetTask(ctx, taskID)
	if err != nil {
		return Task{}, mapTaskRepoError(err)
	}
	if !authorizedForOwner(principal, record.OwnerID) {
		return Task{}, ErrUnauthorized
	}

	sessions, err := s.tasks.ListScheduledSessions(ctx, taskID)
	if err != nil {
		return Task{}, mapTaskRepoError(err)
	}
	diagnostic, err := s.loadDiagnostic(ctx, taskID)
	if err != nil {
		return Task{}, err
	}
	return taskFromRecord(record, sessions, diagnostic), nil
}

// ListTasks returns the principal's own task requests, ordered by scope start.
func (s *TaskService) ListTasks(ctx context.Context, params ListTasksParams) ([]Task, error) {
	if s == nil {
		return nil, fmt.Errorf("TaskService is nil")
	}
	if params.Principal.UserID == "" {
		return nil, ErrUnauthorized
	}
	if s.tasks == nil {
		return nil, nil
	}

	records, err := s.tasks.ListTasks(ctx, persistence.TaskFilter{
		OwnerID:     params.Principal.UserID,
		ScopeAfter:  params.ScopeAfter,
		ScopeBefore: params.ScopeBefore,
	})
	if err != nil {
		return nil, mapTaskRepoError(err)
	}

	sort.Slice(records, func(i, j int) bool {
		if records[i].ScopeStart.Equal(records[j].ScopeStart) {
			return records[i].ID < records[j].ID
		}
		return records[i].ScopeStart.Before(records[j].ScopeStart)
	})

	out := make([]Task, 0, len(records))
	for _, record := range records {
		sessions, sErr := s.tasks.ListScheduledSessions(ctx, record.ID)
		if sErr != nil {
			return nil, mapTaskRepoError(sErr)
		}
		diagnostic, dErr := s.loadDiagnostic(ctx, record.ID)
		if dErr != nil {
			return nil, dErr
		}
		out = append(out, taskFromRecord(record, sessions, diagnostic))
	}
	return out, nil
}

// solveAndPersist invokes the scheduling engine for a task request and
// persists whichever outcome it returns: solved sessions or a diagnostic.
func (s *TaskService) solveAndPersist(ctx context.Context, logger *slog.Logger, record persistence.TaskRequest) (Task, error) {
	s.diagnostics.Invalidate(record.ID)

	ump, err := s.loadUmp(ctx, record.OwnerID)
	if err != nil {
		return Task{}, err
	}

	var events []persistence.Event
	if s.blockers != nil {
		events, err = s.blockers.ListBlockers(ctx, record.OwnerID, record.ScopeStart, record.ScopeEnd)
		if err != nil {
			return Task{}, fmt.Errorf("loading calendar blockers: %w", err)
		}
	}

	solveCtx := ctx
	if s.solverTimeout > 0 {
		var cancel context.CancelFunc
		solveCtx, cancel = context.WithTimeout(ctx, s.solverTimeout)
		defer cancel()
	}

	result, err := engine.Schedule(solveCtx, toEngineRequest(record), toEngineUmp(ump), toEngineEvents(events), s.now())
	if err != nil {
		var invalid *engine.InvalidInputError
		if errors.As(err, &invalid) {
			vErr := &ValidationError{}
			vErr.add(invalid.Field, invalid.Message)
			return Task{}, vErr
		}
		if errors.Is(err, engine.ErrSolverTimeout) {
			logger.WarnContext(ctx, "solver timed out", "task_id", record.ID)
			diagnostic := persistence.TaskDiagnostic{TaskID: record.ID, Kind: "timeout", Reason: "solver exceeded its time budget", UpdatedAt: s.now()}
			if s.tasks != nil {
				_ = s.tasks.PutDiagnostic(ctx, diagnostic)
			}
			s.diagnostics.Store(record.ID, &TaskDiagnostic{Kind: diagnostic.Kind, Reason: diagnostic.Reason, UpdatedAt: diagnostic.UpdatedAt})
			return taskFromRecord(record, nil, &diagnostic), nil
		}
		return Task{}, fmt.Errorf("scheduling engine: %w", err)
	}

	switch result.Kind {
	case engine.Scheduled:
		sessions := make([]persistence.ScheduledSession, 0, len(result.Sessions))
		for _, session := range result.Sessions {
			sessions = append(sessions, persistence.ScheduledSession{ID: s.idGenerator(), TaskID: record.ID, Start: session.Start, End: session.End})
		}
		if s.tasks != nil {
			if err := s.tasks.ReplaceScheduledSessions(ctx, record.ID, sessions); err != nil {
				return Task{}, mapTaskRepoError(err)
			}
		}
		s.diagnostics.Store(record.ID, nil)
		return taskFromRecord(record, sessions, nil), nil
	case engine.Infeasible:
		diagnostic := persistence.TaskDiagnostic{TaskID: record.ID, Kind: "infeasible", Reason: result.Reason, UpdatedAt: s.now()}
		if s.tasks != nil {
			if err := s.tasks.ReplaceScheduledSessions(ctx, record.ID, nil); err != nil {
				return Task{}, mapTaskRepoError(err)
			}
			if err := s.tasks.PutDiagnostic(ctx, diagnostic); err != nil {
				return Task{}, mapTaskRepoError(err)
			}
		}
		s.diagnostics.Store(record.ID, &TaskDiagnostic{Kind: diagnostic.Kind, Reason: diagnostic.Reason, UpdatedAt: diagnostic.UpdatedAt})
		return taskFromRecord(record, nil, &diagnostic), nil
	default: // engine.Cancelled
		diagnostic := persistence.TaskDiagnostic{TaskID: record.ID, Kind: "cancelled", Reason: "scheduling was cancelled", UpdatedAt: s.now()}
		return taskFromRecord(record, nil, &diagnostic), nil
	}
}

// loadDiagnostic fetches a task's solve diagnostic, consulting the cache
// before falling back to the repository.
func (s *TaskService) loadDiagnostic(ctx context.Context, taskID string) (*persistence.TaskDiagnostic, error) {
	if cached, ok := s.diagnostics.Get(taskID); ok {
		if cached == nil {
			return nil, nil
		}
		return &persistence.TaskDiagnostic{TaskID: taskID, Kind: cached.Kind, Reason: cached.Reason, UpdatedAt: cached.UpdatedAt}, nil
	}

	diagnostic, err := s.tasks.GetDiagnostic(ctx, taskID)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			s.diagnostics.Store(taskID, nil)
			return nil, nil
		}
		return nil, mapTaskRepoError(err)
	}
	s.diagnostics.Store(taskID, &TaskDiagnostic{Kind: diagnostic.Kind, Reason: diagnostic.Reason, UpdatedAt: diagnostic.UpdatedAt})
	return &diagnostic, nil
}

func (s *TaskService) loadUmp(ctx context.Context, ownerID string) (persistence.Ump, error) {
	if s.ump == nil {
		return persistence.Ump{}, fmt.Errorf("ump source not configured")
	}
	ump, err := s.ump.GetUmp(ctx, ownerID)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			vErr := &ValidationError{}
			vErr.add("ump", "scheduling preferences must be configured before tasks can be solved")
			return persistence.Ump{}, vErr
		}
		return persistence.Ump{}, fmt.Errorf("loading scheduling preferences: %w", err)
	}
	return ump, nil
}

func authorizedForOwner(principal Principal, ownerID string) bool {
	return principal.IsAdmin || principal.UserID == ownerID
}

func taskFromRecord(record persistence.TaskRequest, sessions []persistence.ScheduledSession, diagnostic *persistence.TaskDiagnostic) Task {
	task := Task{
		ID:                    record.ID,
		OwnerID:               record.OwnerID,
		Title:                 record.Title,
		Tag:                   record.Tag,
		TaskLengthHours:       record.TaskLengthHours,
		ScopeStart:            record.ScopeStart,
		ScopeEnd:              record.ScopeEnd,
		Priority:              record.Priority,
		MaxAllowedHoursPerDay: record.MaxAllowedHoursPerDay,
		Spread:                record.Spread,
		DayPeriodStart:        record.DayPeriodStart,
		DayPeriodEnd:          record.DayPeriodEnd,
		RelationToDayPeriod:   record.RelationToDayPeriod,
		Deadline:              record.Deadline,
		CreatedAt:             record.CreatedAt,
		UpdatedAt:             record.UpdatedAt,
	}
	for _, session := range sessions {
		task.Sessions = append(task.Sessions, TaskSession{ID: session.ID, Start: session.Start, End: session.End})
	}
	if diagnostic != nil {
		task.Diagnostic = &TaskDiagnostic{Kind: diagnostic.Kind, Reason: diagnostic.Reason, UpdatedAt: diagnostic.UpdatedAt}
	}
	return task
}

func toEngineRequest(record persistence.TaskRequest) engine.TaskRequest {
	return engine.TaskRequest{
		Title:                 record.Title,
		Tag:                   record.Tag,
		TaskLengthHours:       record.TaskLengthHours,
		Scope:                 ticks.Scope{Start: record.ScopeStart, End: record.ScopeEnd},
		Priority:              placer.Priority(record.Priority),
		MaxAllowedHoursPerDay: record.MaxAllowedHoursPerDay,
		Spread:                spreadFromString(record.Spread),
		DayPeriod:             timeWindowFromPtrs(record.DayPeriodStart, record.DayPeriodEnd),
		RelationToDayPeriod:   relationFromString(record.RelationToDayPeriod),
		Deadline:              record.Deadline,
	}
}

func toEngineUmp(ump persistence.Ump) engine.Ump {
	allowed := make(map[time.Weekday]bool, len(ump.AllowedWeekdays))
	for _, day := range ump.AllowedWeekdays {
		allowed[day] = true
	}
	return engine.Ump{
		AllowedWeekdays:              allowed,
		MinSessionHours:              ump.MinSessionHours,
		MaxSessionHours:              ump.MaxSessionHours,
		MinBreakBetweenSessionsHours: ump.MinBreakBetweenSessionsHours,
		SleepWindow:                  windows.TimeWindow{Start: ump.SleepWindowStart, End: ump.SleepWindowEnd},
		DoNotDisturbWindow:           timeWindowFromPtrs(ump.DoNotDisturbStart, ump.DoNotDisturbEnd),
		PreferredWindow:              windows.TimeWindow{Start: ump.PreferredWindowStart, End: ump.PreferredWindowEnd},
	}
}

func toEngineEvents(events []persistence.Event) []engine.Event {
	out := make([]engine.Event, 0, len(events))
	for _, e := range events {
		out = append(out, engine.Event{ID: e.ID, Start: e.Start, End: e.End, Priority: placer.Priority(e.Priority), Tag: e.Tag})
	}
	return out
}

func timeWindowFromPtrs(start, end *time.Time) *windows.TimeWindow {
	if start == nil || end == nil {
		return nil
	}
	return &windows.TimeWindow{Start: *start, End: *end}
}

func spreadFromString(s string) placer.Spread {
	if strings.EqualFold(s, "frontloaded") {
		return placer.SpreadFrontloaded
	}
	return placer.SpreadUniform
}

func relationFromString(s string) placer.Relation {
	switch strings.ToLower(s) {
	case "before":
		return placer.RelationBefore
	case "after":
		return placer.RelationAfter
	case "around":
		return placer.RelationAround
	default:
		return placer.RelationNone
	}
}

func validateTaskInput(input TaskInput) *ValidationError {
	vErr := &ValidationError{}
	if strings.TrimSpace(input.Title) == "" {
		vErr.add("title", "title is required")
	}
	if strings.TrimSpace(input.Tag) == "" {
		vErr.add("tag", "tag is required")
	}
	if input.TaskLengthHours <= 0 {
		vErr.add("task_length_hours", "task length must be positive")
	}
	if !input.ScopeEnd.After(input.ScopeStart) {
		vErr.add("scope", "scope end must be after scope start")
	}
	if input.MaxAllowedHoursPerDay <= 0 {
		vErr.add("max_allowed_hours_per_day", "must be positive")
	}
	if input.Priority < int(placer.PriorityLow) || input.Priority > int(placer.PriorityHigh) {
		vErr.add("priority", "unknown priority enum value")
	}
	if !strings.EqualFold(input.Spread, "uniform") && !strings.EqualFold(input.Spread, "frontloaded") {
		vErr.add("spread", "unknown spread enum value")
	}
	if rel := strings.TrimSpace(input.RelationToDayPeriod); rel != "" {
		switch strings.ToLower(rel) {
		case "before", "after", "around":
		default:
			vErr.add("relation_to_day_period", "unknown relation enum value")
		}
	}
	return vErr
}

func mapTaskRepoError(err error) error {
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
