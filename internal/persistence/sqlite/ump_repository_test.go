package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/example/taskscheduler/internal/persistence"
	"github.com/example/taskscheduler/internal/persistence/sqlite/migration"
)

func TestUmpRepository_UpsertAndGet(t *testing.T) {
	repo, cleanup := setupUmpRepositoryTest(t)
	defer cleanup()

	ctx := context.Background()
	createTestUser(t, repo.pool, "user1", "owner@example.com")

	sleepStart := tod(23, 0)
	sleepEnd := tod(7, 0)
	preferredStart := tod(9, 0)
	preferredEnd := tod(17, 0)

	ump := persistence.Ump{
		UserID:                       "user1",
		AllowedWeekdays:              []time.Weekday{time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday},
		MinSessionHours:              0.5,
		MaxSessionHours:              4,
		MinBreakBetweenSessionsHours: 0.5,
		SleepWindowStart:             sleepStart,
		SleepWindowEnd:               sleepEnd,
		PreferredWindowStart:         preferredStart,
		PreferredWindowEnd:           preferredEnd,
	}

	if err := repo.UpsertUmp(ctx, ump); err != nil {
		t.Fatalf("UpsertUmp failed: %v", err)
	}

	retrieved, err := repo.GetUmp(ctx, "user1")
	if err != nil {
		t.Fatalf("GetUmp failed: %v", err)
	}
	if retrieved.MaxSessionHours != 4 {
		t.Errorf("expected MaxSessionHours 4, got %v", retrieved.MaxSessionHours)
	}
	if len(retrieved.AllowedWeekdays) != 5 {
		t.Errorf("expected 5 allowed weekdays, got %d", len(retrieved.AllowedWeekdays))
	}

	// Upsert is idempotent per user: a second call updates in place.
	ump.MaxSessionHours = 3
	if err := repo.UpsertUmp(ctx, ump); err != nil {
		t.Fatalf("second UpsertUmp failed: %v", err)
	}
	retrieved, err = repo.GetUmp(ctx, "user1")
	if err != nil {
		t.Fatalf("GetUmp after update failed: %v", err)
	}
	if retrieved.MaxSessionHours != 3 {
		t.Errorf("expected MaxSessionHours 3 after update, got %v", retrieved.MaxSessionHours)
	}
}

func TestUmpRepository_GetUmp_NotFound(t *testing.T) {
	repo, cleanup := setupUmpRepositoryTest(t)
	defer cleanup()

	ctx := context.Background()
	createTestUser(t, repo.pool, "user1", "owner@example.com")

	if _, err := repo.GetUmp(ctx, "user1"); err != persistence.ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func tod(hour, minute int) time.Time {
	return time.Date(0, 1, 1, hour, minute, 0, 0, time.UTC)
}

func setupUmpRepositoryTest(t *testing.T) (*UmpRepository, func()) {
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

		CREATE TABLE IF NOT EXISTS ump (
			user_id TEXT PRIMARY KEY,
			allowed_weekdays INTEGER NOT NULL DEFAULT 0,
			min_session_hours REAL NOT NULL,
			max_session_hours REAL NOT NULL,
			min_break_between_sessions_hours REAL NOT NULL,
			sleep_window_start TEXT NOT NULL,
			sleep_window_end TEXT NOT NULL,
			do_not_disturb_start TEXT,
			do_not_disturb_end TEXT,
			preferred_window_start TEXT NOT NULL,
			preferred_window_end TEXT NOT NULL,
			updated_at TEXT NOT NULL,
			FOREIGN KEY (user_id) REFERENCES users(id)
		);
	`)
	if err != nil {
		t.Fatalf("Failed to create test schema: %v", err)
	}

	repo := NewUmpRepository(pool)

	cleanup := func() {
		pool.Close()
	}

	return repo, cleanup
}
