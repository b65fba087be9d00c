package application

import "testing"

func TestUserService_CreateUser(t *testing.T) {
	t.Parallel()

	t.Run("requires administrator privileges", func(t *testing.T) {
		t.Parallel()
		t.Skip("TODO: expect ErrUnauthorized when non-admin attempts to create a user")
	})

	t.Run("validates input fields including email format", func(t *testing.T) {
		t.Parallel()
		t.Skip("TODO: ensure CreateUser enforces required attributes and formats")
	})

	t.Run("persists users for administrators", func(t *testing.T) {
		t.Parallel()
		t.Skip("TODO: assert CreateUser succeeds for administrators with valid input")
	})

	t.Run("maps duplicate email violations to sentinel errors", func(t *testing.T) {
		t.Parallel()
		t.Skip("TODO: ensure duplicate emails map to ErrAlreadyExists or similar")
	})
}

func TestUserService_UpdateUser(t *testing.T) {
	t.Parallel()

	t.Run("requires administrator privileges", func(t *testing.T) {
		t.Parallel()
		t.Skip("TODO: expect ErrUnauthorized when non-admin attempts to update a user")
	})

	t.Run("validates input fields", func(t *testing.T) {
		t.Parallel()
		t.Skip("TODO: ensure UpdateUser enforces attribute validation")
	})

	t.Run("propagates ErrNotFound when the user is missing", func(t *testing.T) {
		t.Parallel()
		t.Skip("TODO: expect UpdateUser to surface ErrNotFound from repository")
	})

	t.Run("allows administrators to modify users", func(t *testing.T) {
		t.Parallel()
		t.Skip("TODO: assert UpdateUser persists changes for administrators")
	})
}

func TestUserService_ListUsers(t *testing.T) {
	t.Parallel()

	t.Run("requires administrator privileges", func(t *testing.T) {
		t.Parallel()
		t.Skip("TODO: expect ErrUnauthorized when non-admin attempts to list users")
	})

	t.Run("returns users in deterministic order", func(t *testing.T) {
		t.Parallel()
		t.Skip("TODO: ensure ListUsers sorts results predictably")
	})

	t.Run("supports filtering and pagination", func(t *testing.T) {
		t.Parallel()
		t.Skip("TODO: assert ListUsers respects optional filters and pagination arguments")
	})
}

func TestUserService_DeleteUser(t *testing.T) {
	t.Parallel()

	t.Run("requires administrator privileges", func(t *testing.T) {
		t.Parallel()
		t.Skip("TODO: expect ErrUnauthorized when non-admin attempts to delete a user")
	})

	t.Run("propagates ErrNotFound when the user is missing", func(t *testing.T) {
		t.Parallel()
		t.Skip("TODO: expect DeleteUser to surface ErrNotFound from repository")
	})

	t.Run("allows administrators to delete users", func(t *testing.T) {
		t.Parallel()
		t.Skip("TODO: assert DeleteUser succeeds for administrators")
	})
}
