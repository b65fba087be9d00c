package sqlite

import (
	"context"
	"testing"
	"time"
)

// createTestUser inserts a minimal user row directly, bypassing
// UserRepository, so repository tests that need a foreign-key target don't
// have to pull in password hashing or validation concerns of their own.
func createTestUser(t *testing.T, pool *ConnectionPool, id, email string) {
	t.Helper()
	ctx := context.Background()
	now := time.Now().UTC().Format(time.RFC3339)

	_, err := pool.DB().ExecContext(ctx, `
		INSERT INTO users (id, email, display_name, password_hash, is_admin, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, id, email, "Test User", "hash", 0, now, now)

	if err != nil {
		t.Fatalf("Failed to create test user %s: %v", id, err)
	}
}
