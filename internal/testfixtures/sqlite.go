package testfixtures

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/example/taskscheduler/internal/persistence/sqlite"
	"github.com/example/taskscheduler/internal/persistence/sqlite/migration"
)

// schemaDDL mirrors migrations/001_initial_schema.sql so integration tests can
// stand up a fully wired database without depending on a migration-directory
// path relative to the caller's working directory.
const schemaDDL = `
CREATE TABLE IF NOT EXISTS users (
	id TEXT PRIMARY KEY,
	email TEXT NOT NULL UNIQUE,
	display_name TEXT NOT NULL,
	password_hash TEXT NOT NULL,
	is_admin INTEGER NOT NULL DEFAULT 0,
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS sessions (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL,
	token TEXT NOT NULL UNIQUE,
	fingerprint TEXT,
	expires_at TEXT NOT NULL,
	revoked_at TEXT,
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL,
	FOREIGN KEY (user_id) REFERENCES users(id)
);

CREATE INDEX IF NOT EXISTS idx_sessions_user_id ON sessions(user_id);

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

CREATE TABLE IF NOT EXISTS events (
	id TEXT PRIMARY KEY,
	owner_id TEXT NOT NULL,
	title TEXT NOT NULL,
	tag TEXT NOT NULL,
	priority INTEGER NOT NULL,
	start_time TEXT NOT NULL,
	end_time TEXT NOT NULL,
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL,
	FOREIGN KEY (owner_id) REFERENCES users(id),
	CHECK (end_time > start_time)
);

CREATE INDEX IF NOT EXISTS idx_events_owner_id ON events(owner_id);
CREATE INDEX IF NOT EXISTS idx_events_start_time ON events(start_time);

CREATE TABLE IF NOT EXISTS event_recurrences (
	id TEXT PRIMARY KEY,
	event_id TEXT NOT NULL,
	frequency INTEGER NOT NULL CHECK (frequency > 0),
	weekdays INTEGER NOT NULL DEFAULT 0,
	starts_on TEXT NOT NULL,
	ends_on TEXT,
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL,
	FOREIGN KEY (event_id) REFERENCES events(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_event_recurrences_event_id ON event_recurrences(event_id);

CREATE TABLE IF NOT EXISTS task_requests (
	id TEXT PRIMARY KEY,
	owner_id TEXT NOT NULL,
	title TEXT NOT NULL,
	tag TEXT NOT NULL,
	task_length_hours REAL NOT NULL CHECK (task_length_hours > 0),
	scope_start TEXT NOT NULL,
	scope_end TEXT NOT NULL,
	priority INTEGER NOT NULL,
	max_allowed_hours_per_day REAL NOT NULL CHECK (max_allowed_hours_per_day > 0),
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

CREATE INDEX IF NOT EXISTS idx_task_requests_owner_id ON task_requests(owner_id);
CREATE INDEX IF NOT EXISTS idx_task_requests_scope_start ON task_requests(scope_start);

CREATE TABLE IF NOT EXISTS scheduled_sessions (
	id TEXT PRIMARY KEY,
	task_id TEXT NOT NULL,
	start_time TEXT NOT NULL,
	end_time TEXT NOT NULL,
	FOREIGN KEY (task_id) REFERENCES task_requests(id) ON DELETE CASCADE,
	CHECK (end_time > start_time)
);

CREATE INDEX IF NOT EXISTS idx_scheduled_sessions_task_id ON scheduled_sessions(task_id);

CREATE TABLE IF NOT EXISTS task_diagnostics (
	task_id TEXT PRIMARY KEY,
	kind TEXT NOT NULL,
	reason TEXT NOT NULL,
	updated_at TEXT NOT NULL,
	FOREIGN KEY (task_id) REFERENCES task_requests(id) ON DELETE CASCADE
);
`

// SQLiteHarness provides repository access backed by a temporary SQLite
// database for integration-style persistence tests.
type SQLiteHarness struct {
	Pool *sqlite.ConnectionPool

	Users       *sqlite.UserRepository
	Events      *sqlite.EventRepository
	Recurrences *sqlite.EventRecurrenceRepository
	Tasks       *sqlite.TaskRepository
	Ump         *sqlite.UmpRepository
	Sessions    *sqlite.SessionRepository

	cleanup func()
}

// Close releases resources associated with the harness.
func (h *SQLiteHarness) Close() {
	if h != nil && h.cleanup != nil {
		h.cleanup()
		h.cleanup = nil
	}
}

// NewSQLiteHarness constructs a SQLiteHarness backed by a temporary file
// database with the full schema applied. The harness is registered for
// cleanup with the provided testing.TB, though callers may also invoke Close
// directly.
func NewSQLiteHarness(tb testing.TB) *SQLiteHarness {
	tb.Helper()

	dir := tb.TempDir()
	path := filepath.Join(dir, "taskscheduler.db")

	config := migration.TempFileTestSQLiteConfig(path)
	pool, err := sqlite.NewConnectionPool(config)
	if err != nil {
		tb.Fatalf("failed to create connection pool: %v", err)
	}

	if _, err := pool.DB().ExecContext(context.Background(), schemaDDL); err != nil {
		_ = pool.Close()
		tb.Fatalf("failed to apply schema: %v", err)
	}

	harness := &SQLiteHarness{
		Pool:        pool,
		Users:       sqlite.NewUserRepository(pool),
		Events:      sqlite.NewEventRepository(pool),
		Recurrences: sqlite.NewEventRecurrenceRepository(pool),
		Tasks:       sqlite.NewTaskRepository(pool),
		Ump:         sqlite.NewUmpRepository(pool),
		Sessions:    sqlite.NewSessionRepository(pool),
		cleanup: func() {
			_ = pool.Close()
		},
	}

	tb.Cleanup(harness.Close)
	return harness
}
