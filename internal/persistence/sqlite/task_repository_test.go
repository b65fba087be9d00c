package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/example/taskscheduler/internal/persistence"
	"github.com/example/taskscheduler/internal/persistence/sqlite/migration"
)

func TestTaskRepository_CreateTask(t *testing.T) {
	repo, cleanup := setupTaskRepositoryTest(t)
	defer cleanup()

	ctx := context.Background()
	createTestUser(t, repo.pool, "user1", "owner@example.com")

	scopeStart := time.Now().UTC()
	scopeEnd := scopeStart.Add(7 * 24 * time.Hour)

	task := persistence.TaskRequest{
		ID:                    "task1",
		OwnerID:               "user1",
		Title:                 "Write quarterly report",
		Tag:                   "work",
		TaskLengthHours:       6,
		ScopeStart:            scopeStart,
		ScopeEnd:              scopeEnd,
		Priority:              1,
		MaxAllowedHoursPerDay: 4,
		Spread:                "uniform",
		RelationToDayPeriod:   "none",
	}

	if err := repo.CreateTask(ctx, task); err != nil {
		t.Fatalf("CreateTask failed: %v", err)
	}

	retrieved, err := repo.GetTask(ctx, "task1")
	if err != nil {
		t.Fatalf("GetTask failed: %v", err)
	}
	if retrieved.Title != "Write quarterly report" {
		t.Errorf("Expected title 'Write quarterly report', got %q", retrieved.Title)
	}
	if retrieved.OwnerID != "user1" {
		t.Errorf("Expected owner 'user1', got %q", retrieved.OwnerID)
	}
}

func TestTaskRepository_CreateTask_InvalidScope(t *testing.T) {
	repo, cleanup := setupTaskRepositoryTest(t)
	defer cleanup()

	ctx := context.Background()
	createTestUser(t, repo.pool, "user1", "owner@example.com")

	now := time.Now().UTC()
	task := persistence.TaskRequest{
		ID:                    "task1",
		OwnerID:               "user1",
		Title:                 "Bad scope",
		Tag:                   "work",
		TaskLengthHours:       1,
		ScopeStart:            now,
		ScopeEnd:              now,
		Priority:              1,
		MaxAllowedHoursPerDay: 4,
		Spread:                "uniform",
		RelationToDayPeriod:   "none",
	}

	if err := repo.CreateTask(ctx, task); err == nil {
		t.Fatal("expected error for scope end not after scope start, got nil")
	}
}

func TestTaskRepository_ListTasks_FiltersByOwnerAndScope(t *testing.T) {
	repo, cleanup := setupTaskRepositoryTest(t)
	defer cleanup()

	ctx := context.Background()
	createTestUser(t, repo.pool, "user1", "owner1@example.com")
	createTestUser(t, repo.pool, "user2", "owner2@example.com")

	base := time.Now().UTC()
	mustCreate := func(id, owner string, start time.Time) {
		task := persistence.TaskRequest{
			ID:                    id,
			OwnerID:               owner,
			Title:                 "task " + id,
			Tag:                   "work",
			TaskLengthHours:       2,
			ScopeStart:            start,
			ScopeEnd:              start.Add(48 * time.Hour),
			Priority:              1,
			MaxAllowedHoursPerDay: 4,
			Spread:                "uniform",
			RelationToDayPeriod:   "none",
		}
		if err := repo.CreateTask(ctx, task); err != nil {
			t.Fatalf("CreateTask(%s) failed: %v", id, err)
		}
	}

	mustCreate("task1", "user1", base)
	mustCreate("task2", "user1", base.Add(10*24*time.Hour))
	mustCreate("task3", "user2", base)

	tasks, err := repo.ListTasks(ctx, persistence.TaskFilter{OwnerID: "user1"})
	if err != nil {
		t.Fatalf("ListTasks failed: %v", err)
	}
	if len(tasks) != 2 {
		t.Fatalf("expected 2 tasks for user1, got %d", len(tasks))
	}
	if tasks[0].ID != "task1" || tasks[1].ID != "task2" {
		t.Errorf("expected tasks ordered by scope start, got %v", []string{tasks[0].ID, tasks[1].ID})
	}
}

func TestTaskRepository_ReplaceScheduledSessions(t *testing.T) {
	repo, cleanup := setupTaskRepositoryTest(t)
	defer cleanup()

	ctx := context.Background()
	createTestUser(t, repo.pool, "user1", "owner@example.com")

	scopeStart := time.Now().UTC()
	task := persistence.TaskRequest{
		ID:                    "task1",
		OwnerID:               "user1",
		Title:                 "Write report",
		Tag:                   "work",
		TaskLengthHours:       6,
		ScopeStart:            scopeStart,
		ScopeEnd:              scopeStart.Add(7 * 24 * time.Hour),
		Priority:              1,
		MaxAllowedHoursPerDay: 4,
		Spread:                "uniform",
		RelationToDayPeriod:   "none",
	}
	if err := repo.CreateTask(ctx, task); err != nil {
		t.Fatalf("CreateTask failed: %v", err)
	}

	sessions := []persistence.ScheduledSession{
		{ID: "s1", TaskID: "task1", Start: scopeStart.Add(time.Hour), End: scopeStart.Add(2 * time.Hour)},
		{ID: "s2", TaskID: "task1", Start: scopeStart.Add(26 * time.Hour), End: scopeStart.Add(27 * time.Hour)},
	}
	if err := repo.ReplaceScheduledSessions(ctx, "task1", sessions); err != nil {
		t.Fatalf("ReplaceScheduledSessions failed: %v", err)
	}

	retrieved, err := repo.ListScheduledSessions(ctx, "task1")
	if err != nil {
		t.Fatalf("ListScheduledSessions failed: %v", err)
	}
	if len(retrieved) != 2 {
		t.Fatalf("expected 2 sessions, got %d", len(retrieved))
	}

	// A second replace must fully supersede the first set, not append to it.
	if err := repo.ReplaceScheduledSessions(ctx, "task1", sessions[:1]); err != nil {
		t.Fatalf("second ReplaceScheduledSessions failed: %v", err)
	}
	retrieved, err = repo.ListScheduledSessions(ctx, "task1")
	if err != nil {
		t.Fatalf("ListScheduledSessions failed: %v", err)
	}
	if len(retrieved) != 1 {
		t.Fatalf("expected 1 session after replace, got %d", len(retrieved))
	}
}

func TestTaskRepository_Diagnostic(t *testing.T) {
	repo, cleanup := setupTaskRepositoryTest(t)
	defer cleanup()

	ctx := context.Background()
	createTestUser(t, repo.pool, "user1", "owner@example.com")

	scopeStart := time.Now().UTC()
	task := persistence.TaskRequest{
		ID:                    "task1",
		OwnerID:               "user1",
		Title:                 "Infeasible task",
		Tag:                   "work",
		TaskLengthHours:       6,
		ScopeStart:            scopeStart,
		ScopeEnd:              scopeStart.Add(24 * time.Hour),
		Priority:              1,
		MaxAllowedHoursPerDay: 4,
		Spread:                "uniform",
		RelationToDayPeriod:   "none",
	}
	if err := repo.CreateTask(ctx, task); err != nil {
		t.Fatalf("CreateTask failed: %v", err)
	}

	if _, err := repo.GetDiagnostic(ctx, "task1"); err != persistence.ErrNotFound {
		t.Fatalf("expected ErrNotFound before any diagnostic stored, got %v", err)
	}

	diagnostic := persistence.TaskDiagnostic{TaskID: "task1", Kind: "infeasible", Reason: "deadline too tight"}
	if err := repo.PutDiagnostic(ctx, diagnostic); err != nil {
		t.Fatalf("PutDiagnostic failed: %v", err)
	}

	retrieved, err := repo.GetDiagnostic(ctx, "task1")
	if err != nil {
		t.Fatalf("GetDiagnostic failed: %v", err)
	}
	if retrieved.Reason != "deadline too tight" {
		t.Errorf("expected reason 'deadline too tight', got %q", retrieved.Reason)
	}
}

func TestTaskRepository_DeleteTask(t *testing.T) {
	repo, cleanup := setupTaskRepositoryTest(t)
	defer cleanup()

	ctx := context.Background()
	createTestUser(t, repo.pool, "user1", "owner@example.com")

	scopeStart := time.Now().UTC()
	task := persistence.TaskRequest{
		ID:                    "task1",
		OwnerID:               "user1",
		Title:                 "Disposable task",
		Tag:                   "work",
		TaskLengthHours:       2,
		ScopeStart:            scopeStart,
		ScopeEnd:              scopeStart.Add(24 * time.Hour),
		Priority:              1,
		MaxAllowedHoursPerDay: 4,
		Spread:                "uniform",
		RelationToDayPeriod:   "none",
	}
	if err := repo.CreateTask(ctx, task); err != nil {
		t.Fatalf("CreateTask failed: %v", err)
	}

	if err := repo.DeleteTask(ctx, "task1"); err != nil {
		t.Fatalf("DeleteTask failed: %v", err)
	}
	if _, err := repo.GetTask(ctx, "task1"); err != persistence.ErrNotFound {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

func setupTaskRepositoryTest(t *testing.T) (*TaskRepository, func()) {
	tempDir := t.TempDir()
	dbPath := filepath.Join(tempDir, "test.db")

	config := migration.TempFileTestSQLiteConfig(dbPath)
	pool, err := NewConnectionPool(config)
	if err != nil {
		t.Fatalf("Failed to create connection pool: %v", err)
	}

	ctx := context.Background()
	_, err = pool.DB().ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS users (
			id TEXT PRIMARY KEY,
			email TEXT NOT NULL UNIQUE,
			display_name TEXT NOT NULL,
			password_hash TEXT NOT NULL,
			is_admin INTEGER NOT NULL DEFAULT 0,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS task_requests (
			id TEXT PRIMARY KEY,
			owner_id TEXT NOT NULL,
			title TEXT NOT NULL,
			tag TEXT NOT NULL,
			task_length_hours REAL NOT NULL CHECK (task_length_hours > 0),
			scope_start TEXT NOT NULL,
			scope_end TEXT NOT NULL,
			priority INTEGER NOT NULL,
			max_allowed_hours_per_day REAL NOT NULL,
			spread TEXT NOT NULL,
			day_period_start TEXT,
			day_period_end TEXT,
			relation_to_day_period TEXT NOT NULL,
			deadline TEXT,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL,
			FOREIGN KEY (owner_id) REFERENCES users(id),
			CHECK (scope_end > scope_start)
		);

		CREATE TABLE IF NOT EXISTS scheduled_sessions (
			id TEXT PRIMARY KEY,
			task_id TEXT NOT NULL,
			start_time TEXT NOT NULL,
			end_time TEXT NOT NULL,
			FOREIGN KEY (task_id) REFERENCES task_requests(id) ON DELETE CASCADE
		);

		CREATE TABLE IF NOT EXISTS task_diagnostics (
			task_id TEXT PRIMARY KEY,
			kind TEXT NOT NULL,
			reason TEXT NOT NULL,
			updated_at TEXT NOT NULL,
			FOREIGN KEY (task_id) REFERENCES task_requests(id) ON DELETE CASCADE
		);
	`)
	if err != nil {
		t.Fatalf("Failed to create test schema: %v", err)
	}

	repo := NewTaskRepository(pool)

	cleanup := func() {
		pool.Close()
	}

	return repo, cleanup
}
