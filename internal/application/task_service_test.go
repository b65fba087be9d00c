package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/example/taskscheduler/internal/persistence"
)

type taskRepoStub struct {
	task              persistence.TaskRequest
	getErr            error
	createErr         error
	updateErr         error
	deleteErr         error
	created           persistence.TaskRequest
	updated           persistence.TaskRequest
	sessions          []persistence.ScheduledSession
	replacedSessions  []persistence.ScheduledSession
	diagnostic        persistence.TaskDiagnostic
	diagnosticErr     error
	putDiagnosticErr  error
	list              []persistence.TaskRequest
	listErr           error
}

func (s *taskRepoStub) CreateTask(ctx context.Context, task persistence.TaskRequest) error {
	if s.createErr != nil {
		return s.createErr
	}
	s.created = task
	return nil
}

func (s *taskRepoStub) UpdateTask(ctx context.Context, task persistence.TaskRequest) error {
	if s.updateErr != nil {
		return s.updateErr
	}
	s.updated = task
	return nil
}

func (s *taskRepoStub) GetTask(ctx context.Context, id string) (persistence.TaskRequest, error) {
	if s.getErr != nil {
		return persistence.TaskRequest{}, s.getErr
	}
	if s.task.ID == "" {
		return persistence.TaskRequest{}, persistence.ErrNotFound
	}
	return s.task, nil
}

func (s *taskRepoStub) ListTasks(ctx context.Context, filter persistence.TaskFilter) ([]persistence.TaskRequest, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	return s.list, nil
}

func (s *taskRepoStub) DeleteTask(ctx context.Context, id string) error {
	return s.deleteErr
}

func (s *taskRepoStub) ReplaceScheduledSessions(ctx context.Context, taskID string, sessions []persistence.ScheduledSession) error {
	s.replacedSessions = sessions
	return nil
}

func (s *taskRepoStub) ListScheduledSessions(ctx context.Context, taskID string) ([]persistence.ScheduledSession, error) {
	return s.sessions, nil
}

func (s *taskRepoStub) PutDiagnostic(ctx context.Context, diagnostic persistence.TaskDiagnostic) error {
	if s.putDiagnosticErr != nil {
		return s.putDiagnosticErr
	}
	s.diagnostic = diagnostic
	return nil
}

func (s *taskRepoStub) GetDiagnostic(ctx context.Context, taskID string) (persistence.TaskDiagnostic, error) {
	if s.diagnosticErr != nil {
		return persistence.TaskDiagnostic{}, s.diagnosticErr
	}
	if s.diagnostic.TaskID == "" {
		return persistence.TaskDiagnostic{}, persistence.ErrNotFound
	}
	return s.diagnostic, nil
}

type taskBlockerStub struct {
	events []persistence.Event
	err    error
}

func (b *taskBlockerStub) ListBlockers(ctx context.Context, ownerID string, from, to time.Time) ([]persistence.Event, error) {
	if b.err != nil {
		return nil, b.err
	}
	return b.events, nil
}

type taskUmpStub struct {
	ump persistence.Ump
	err error
}

func (u *taskUmpStub) GetUmp(ctx context.Context, userID string) (persistence.Ump, error) {
	if u.err != nil {
		return persistence.Ump{}, u.err
	}
	return u.ump, nil
}

func validUmpFixture() persistence.Ump {
	day := time.Date(2024, 3, 14, 0, 0, 0, 0, time.UTC)
	return persistence.Ump{
		UserID:               "user-1",
		AllowedWeekdays:      []time.Weekday{time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday},
		MinSessionHours:      0.5,
		MaxSessionHours:      4,
		SleepWindowStart:     time.Date(2024, 3, 14, 23, 0, 0, 0, time.UTC),
		SleepWindowEnd:       day.Add(7 * time.Hour),
		PreferredWindowStart: day.Add(9 * time.Hour),
		PreferredWindowEnd:   day.Add(18 * time.Hour),
	}
}

func validTaskInput() TaskInput {
	return TaskInput{
		Title:                 "Write quarterly report",
		Tag:                   "work",
		TaskLengthHours:       2,
		ScopeStart:            time.Date(2024, 3, 14, 0, 0, 0, 0, time.UTC),
		ScopeEnd:              time.Date(2024, 3, 21, 0, 0, 0, 0, time.UTC),
		Priority:              1,
		MaxAllowedHoursPerDay: 4,
		Spread:                "uniform",
	}
}

func TestTaskService_CreateTask_RequiresAuthenticatedPrincipal(t *testing.T) {
	svc := NewTaskService(&taskRepoStub{}, &taskBlockerStub{}, &taskUmpStub{}, nil, nil)

	_, err := svc.CreateTask(context.Background(), CreateTaskParams{Input: validTaskInput()})

	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestTaskService_CreateTask_ValidatesRequiredFields(t *testing.T) {
	svc := NewTaskService(&taskRepoStub{}, &taskBlockerStub{}, &taskUmpStub{}, nil, nil)

	_, err := svc.CreateTask(context.Background(), CreateTaskParams{
		Principal: Principal{UserID: "user-1"},
		Input:     TaskInput{},
	})

	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	for _, field := range []string{"title", "tag", "task_length_hours", "scope", "max_allowed_hours_per_day"} {
		if _, ok := vErr.FieldErrors[field]; !ok {
			t.Fatalf("expected %q validation error, got %v", field, vErr.FieldErrors)
		}
	}
}

func TestTaskService_CreateTask_ValidatesScopeOrdering(t *testing.T) {
	svc := NewTaskService(&taskRepoStub{}, &taskBlockerStub{}, &taskUmpStub{}, nil, nil)

	input := validTaskInput()
	input.ScopeEnd = input.ScopeStart

	_, err := svc.CreateTask(context.Background(), CreateTaskParams{
		Principal: Principal{UserID: "user-1"},
		Input:     input,
	})

	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if _, ok := vErr.FieldErrors["scope"]; !ok {
		t.Fatalf("expected scope validation error, got %v", vErr.FieldErrors)
	}
}

func TestTaskService_CreateTask_RequiresUmpBeforeSolving(t *testing.T) {
	repo := &taskRepoStub{}
	svc := NewTaskService(repo, &taskBlockerStub{}, &taskUmpStub{err: persistence.ErrNotFound}, func() string { return "task-1" }, func() time.Time { return validTaskInput().ScopeStart })

	_, err := svc.CreateTask(context.Background(), CreateTaskParams{
		Principal: Principal{UserID: "user-1"},
		Input:     validTaskInput(),
	})

	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if _, ok := vErr.FieldErrors["ump"]; !ok {
		t.Fatalf("expected ump validation error, got %v", vErr.FieldErrors)
	}
	if repo.created.ID != "task-1" {
		t.Fatalf("expected task to be persisted before solving, got %+v", repo.created)
	}
}

func TestTaskService_CreateTask_PersistsSolvedSessions(t *testing.T) {
	repo := &taskRepoStub{}
	now := validTaskInput().ScopeStart
	svc := NewTaskService(repo, &taskBlockerStub{}, &taskUmpStub{ump: validUmpFixture()}, func() string { return "task-1" }, func() time.Time { return now })

	task, err := svc.CreateTask(context.Background(), CreateTaskParams{
		Principal: Principal{UserID: "user-1"},
		Input:     validTaskInput(),
	})
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}

	if task.ID != "task-1" || task.OwnerID != "user-1" {
		t.Fatalf("unexpected task record: %+v", task)
	}
	if len(task.Sessions) == 0 {
		t.Fatalf("expected sessions to be placed, got none")
	}
	if len(repo.replacedSessions) != len(task.Sessions) {
		t.Fatalf("expected solved sessions to be persisted, got %d", len(repo.replacedSessions))
	}
}

func TestTaskService_CreateTask_RecordsInfeasibleDiagnostic(t *testing.T) {
	repo := &taskRepoStub{}
	now := validTaskInput().ScopeStart
	svc := NewTaskService(repo, &taskBlockerStub{}, &taskUmpStub{ump: validUmpFixture()}, func() string { return "task-1" }, func() time.Time { return now })

	// A 5 hour task request cannot fit inside a 1 hour scope, regardless of
	// preferences, so the engine must report it infeasible.
	input := validTaskInput()
	input.TaskLengthHours = 5
	input.ScopeEnd = input.ScopeStart.Add(1 * time.Hour)

	task, err := svc.CreateTask(context.Background(), CreateTaskParams{
		Principal: Principal{UserID: "user-1"},
		Input:     input,
	})
	if err != nil {
		t.Fatalf("expected a diagnostic result rather than an error, got %v", err)
	}
	if task.Diagnostic == nil {
		t.Fatalf("expected an infeasibility diagnostic to be recorded")
	}
	if repo.diagnostic.Kind != "infeasible" {
		t.Fatalf("expected infeasible diagnostic to be persisted, got %+v", repo.diagnostic)
	}
}

func TestTaskService_UpdateTask_RequiresOwnershipOrAdmin(t *testing.T) {
	repo := &taskRepoStub{task: persistence.TaskRequest{ID: "task-1", OwnerID: "user-1", ScopeStart: validTaskInput().ScopeStart, ScopeEnd: validTaskInput().ScopeEnd}}
	svc := NewTaskService(repo, &taskBlockerStub{}, &taskUmpStub{ump: validUmpFixture()}, func() string { return "task-1" }, func() time.Time { return validTaskInput().ScopeStart })

	_, err := svc.UpdateTask(context.Background(), UpdateTaskParams{
		Principal: Principal{UserID: "user-2"},
		TaskID:    "task-1",
		Input:     validTaskInput(),
	})

	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestTaskService_UpdateTask_PropagatesNotFound(t *testing.T) {
	svc := NewTaskService(&taskRepoStub{}, &taskBlockerStub{}, &taskUmpStub{}, nil, nil)

	_, err := svc.UpdateTask(context.Background(), UpdateTaskParams{
		Principal: Principal{UserID: "user-1"},
		TaskID:    "missing",
		Input:     validTaskInput(),
	})

	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestTaskService_UpdateTask_AllowsAdministratorOverride(t *testing.T) {
	repo := &taskRepoStub{task: persistence.TaskRequest{ID: "task-1", OwnerID: "user-1"}}
	now := validTaskInput().ScopeStart
	svc := NewTaskService(repo, &taskBlockerStub{}, &taskUmpStub{ump: validUmpFixture()}, func() string { return "session-1" }, func() time.Time { return now })

	_, err := svc.UpdateTask(context.Background(), UpdateTaskParams{
		Principal: Principal{UserID: "admin-1", IsAdmin: true},
		TaskID:    "task-1",
		Input:     validTaskInput(),
	})
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if repo.updated.OwnerID != "user-1" {
		t.Fatalf("expected owner to remain unchanged, got %s", repo.updated.OwnerID)
	}
}

func TestTaskService_DeleteTask_RequiresOwnershipOrAdmin(t *testing.T) {
	repo := &taskRepoStub{task: persistence.TaskRequest{ID: "task-1", OwnerID: "user-1"}}
	svc := NewTaskService(repo, &taskBlockerStub{}, &taskUmpStub{}, nil, nil)

	err := svc.DeleteTask(context.Background(), Principal{UserID: "user-2"}, "task-1")

	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestTaskService_DeleteTask_RemovesOwnedTask(t *testing.T) {
	repo := &taskRepoStub{task: persistence.TaskRequest{ID: "task-1", OwnerID: "user-1"}}
	svc := NewTaskService(repo, &taskBlockerStub{}, &taskUmpStub{}, nil, nil)

	if err := svc.DeleteTask(context.Background(), Principal{UserID: "user-1"}, "task-1"); err != nil {
		t.Fatalf("expected success, got %v", err)
	}
}

func TestTaskService_GetTask_RequiresOwnershipOrAdmin(t *testing.T) {
	repo := &taskRepoStub{task: persistence.TaskRequest{ID: "task-1", OwnerID: "user-1"}}
	svc := NewTaskService(repo, &taskBlockerStub{}, &taskUmpStub{}, nil, nil)

	_, err := svc.GetTask(context.Background(), Principal{UserID: "user-2"}, "task-1")

	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestTaskService_ListTasks_RequiresAuthenticatedPrincipal(t *testing.T) {
	svc := NewTaskService(&taskRepoStub{}, &taskBlockerStub{}, &taskUmpStub{}, nil, nil)

	_, err := svc.ListTasks(context.Background(), ListTasksParams{})

	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestTaskService_ListTasks_OrdersByScopeStart(t *testing.T) {
	later := validTaskInput().ScopeStart.Add(48 * time.Hour)
	earlier := validTaskInput().ScopeStart
	repo := &taskRepoStub{list: []persistence.TaskRequest{
		{ID: "task-b", OwnerID: "user-1", ScopeStart: later},
		{ID: "task-a", OwnerID: "user-1", ScopeStart: earlier},
	}}
	svc := NewTaskService(repo, &taskBlockerStub{}, &taskUmpStub{}, nil, nil)

	tasks, err := svc.ListTasks(context.Background(), ListTasksParams{Principal: Principal{UserID: "user-1"}})
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if len(tasks) != 2 || tasks[0].ID != "task-a" || tasks[1].ID != "task-b" {
		t.Fatalf("expected tasks ordered by scope start, got %+v", tasks)
	}
}
