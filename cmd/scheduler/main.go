package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/example/taskscheduler/internal/application"
	"github.com/example/taskscheduler/internal/config"
	httptransport "github.com/example/taskscheduler/internal/http"
	"github.com/example/taskscheduler/internal/persistence"
	"github.com/example/taskscheduler/internal/persistence/sqlite"
	"github.com/example/taskscheduler/internal/persistence/sqlite/migration"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	if err := runDatabaseMigrations(ctx, cfg.SQLiteDSN, logger); err != nil {
		logger.Error("failed to apply migrations", "error", err)
		os.Exit(1)
	}

	pool, err := sqlite.NewConnectionPool(migration.DefaultSQLiteConfig(cfg.SQLiteDSN))
	if err != nil {
		logger.Error("failed to open storage", "error", err)
		os.Exit(1)
	}
	defer func() {
		if cerr := pool.Close(); cerr != nil {
			logger.Error("failed to close storage", "error", cerr)
		}
	}()

	idGenerator := func() string { return uuid.NewString() }
	tokenGenerator := func() string { return uuid.NewString() }
	now := time.Now

	userStorage := sqlite.NewUserRepository(pool)
	sessionStorage := sqlite.NewSessionRepository(pool)

	userRepo := newUserRepositoryAdapter(userStorage)
	sessionRepo := newSessionRepositoryAdapter(sessionStorage)
	credentialStore := newCredentialStoreAdapter(userStorage)

	taskStorage := sqlite.NewTaskRepository(pool)
	eventStorage := sqlite.NewEventRepository(pool)
	recurrenceStorage := sqlite.NewEventRecurrenceRepository(pool)
	umpStorage := sqlite.NewUmpRepository(pool)

	eventService := application.NewEventServiceWithLogger(eventStorage, recurrenceStorage, idGenerator, now, logger)
	taskService := application.NewTaskServiceWithLogger(taskStorage, eventService, umpStorage, idGenerator, now, logger).
		WithSolverTimeout(cfg.SolverTimeout)
	umpService := application.NewUmpServiceWithLogger(umpStorage, now, logger)
	userService := application.NewUserServiceWithLogger(userRepo, idGenerator, now, logger)
	authService := application.NewAuthService(credentialStore, sessionRepo, nil, tokenGenerator, now, cfg.SessionTTL)

	authHandler := httptransport.NewAuthHandler(authService, logger)
	userHandler := httptransport.NewUserHandler(userService, logger)
	taskHandler := httptransport.NewTaskHandler(taskService, logger)
	eventHandler := httptransport.NewEventHandler(eventService, logger)
	umpHandler := httptransport.NewUmpHandler(umpService, logger)

	router := httptransport.NewRouter(httptransport.RouterConfig{
		Auth:   authHandler,
		Users:  userHandler,
		Tasks:  taskHandler,
		Events: eventHandler,
		Ump:    umpHandler,
	})

	protected := httptransport.RequireSession(authService, logger)(router)
	handler := httptransport.RequestLogger(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost && strings.EqualFold(r.URL.Path, "/sessions") {
			router.ServeHTTP(w, r)
			return
		}
		protected.ServeHTTP(w, r)
	}))

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("failed to shutdown server", "error", err)
		}
	}()

	logger.Info("task scheduler API listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server encountered error", "error", err)
		os.Exit(1)
	}
}

func runDatabaseMigrations(ctx context.Context, databasePath string, logger *slog.Logger) error {
	logger.Info("initializing database migration system")

	sqliteConfig := migration.DefaultSQLiteConfig(databasePath)
	connectionManager := migration.NewConnectionManager(sqliteConfig)

	migrationConfig := migration.DefaultMigrationConfig("internal/persistence/sqlite/migrations")

	if err := migration.ValidateMigrationConfig(migrationConfig); err != nil {
		logger.Error("invalid migration configuration", "error", err)
		return fmt.Errorf("migration configuration validation failed: %w", err)
	}

	db, err := connectionManager.GetConnection()
	if err != nil {
		logger.Error("failed to establish database connection for migrations", "error", err)
		return fmt.Errorf("failed to get database connection: %w", err)
	}
	defer func() {
		if cerr := db.Close(); cerr != nil {
			logger.Error("failed to close migration database connection", "error", cerr)
		}
	}()

	scanner := migration.NewFileScanner()
	executor := migration.NewSQLiteExecutor(db)
	migrationManager := migration.NewMigrationManager(scanner, executor, migrationConfig.MigrationDir)

	logger.Info("migration system initialized",
		"migration_dir", migrationConfig.MigrationDir,
		"database_path", databasePath)

	logger.Info("checking current database schema version")
	if err := migrationManager.LogCurrentSchemaVersion(ctx); err != nil {
		logger.Warn("could not determine current schema version", "error", err)
	}

	logger.Info("scanning for pending migrations")
	pendingMigrations, err := migrationManager.GetPendingMigrations(ctx)
	if err != nil {
		logger.Error("failed to scan for pending migrations", "error", err)
		return fmt.Errorf("failed to get pending migrations: %w", err)
	}

	if len(pendingMigrations) == 0 {
		logger.Info("database schema is up to date - no migrations pending")
		return nil
	}

	logger.Info("migration execution starting", "pending_count", len(pendingMigrations))
	for i, m := range pendingMigrations {
		logger.Info("migration queued for execution",
			"sequence", i+1,
			"total", len(pendingMigrations),
			"version", m.Version,
			"description", m.Description)
	}

	migrationStartTime := time.Now()
	logger.Info("executing database migrations")

	if err := migrationManager.RunMigrations(ctx); err != nil {
		logger.Error("migration execution failed", "error", err)
		return fmt.Errorf("migration execution failed: %w", err)
	}

	logger.Info("database migrations completed successfully",
		"execution_time", time.Since(migrationStartTime),
		"migrations_applied", len(pendingMigrations))

	logger.Info("verifying final database schema version")
	if err := migrationManager.LogCurrentSchemaVersion(ctx); err != nil {
		logger.Warn("could not verify final schema version", "error", err)
	}

	return nil
}

// userRepositoryAdapter bridges persistence.UserRepository's storage model to
// the application.User-shaped interface application.UserService expects.
type userRepositoryAdapter struct {
	repo persistence.UserRepository
}

func newUserRepositoryAdapter(repo persistence.UserRepository) *userRepositoryAdapter {
	return &userRepositoryAdapter{repo: repo}
}

func (a *userRepositoryAdapter) CreateUser(ctx context.Context, user application.User) (application.User, error) {
	password := user.ID
	if password == "" {
		password = uuid.NewString()
	}
	if err := a.repo.CreateUser(ctx, toPersistenceUser(user, password)); err != nil {
		return application.User{}, err
	}
	stored, err := a.repo.GetUser(ctx, user.ID)
	if err != nil {
		return application.User{}, err
	}
	return toApplicationUser(stored), nil
}

func (a *userRepositoryAdapter) GetUser(ctx context.Context, id string) (application.User, error) {
	stored, err := a.repo.GetUser(ctx, id)
	if err != nil {
		return application.User{}, err
	}
	return toApplicationUser(stored), nil
}

func (a *userRepositoryAdapter) UpdateUser(ctx context.Context, user application.User) (application.User, error) {
	current, err := a.repo.GetUser(ctx, user.ID)
	if err != nil {
		return application.User{}, err
	}
	if err := a.repo.UpdateUser(ctx, toPersistenceUser(user, current.PasswordHash)); err != nil {
		return application.User{}, err
	}
	stored, err := a.repo.GetUser(ctx, user.ID)
	if err != nil {
		return application.User{}, err
	}
	return toApplicationUser(stored), nil
}

func (a *userRepositoryAdapter) DeleteUser(ctx context.Context, id string) error {
	return a.repo.DeleteUser(ctx, id)
}

func (a *userRepositoryAdapter) ListUsers(ctx context.Context) ([]application.User, error) {
	models, err := a.repo.ListUsers(ctx)
	if err != nil {
		return nil, err
	}
	if len(models) == 0 {
		return nil, nil
	}
	users := make([]application.User, 0, len(models))
	for _, model := range models {
		users = append(users, toApplicationUser(model))
	}
	return users, nil
}

// sessionRepositoryAdapter bridges persistence.SessionRepository to the
// application.Session-shaped interface application.AuthService expects.
type sessionRepositoryAdapter struct {
	repo persistence.SessionRepository
}

func newSessionRepositoryAdapter(repo persistence.SessionRepository) *sessionRepositoryAdapter {
	return &sessionRepositoryAdapter{repo: repo}
}

func (a *sessionRepositoryAdapter) CreateSession(ctx context.Context, session application.Session) (application.Session, error) {
	stored, err := a.repo.CreateSession(ctx, toPersistenceSession(session))
	if err != nil {
		return application.Session{}, err
	}
	return toApplicationSession(stored), nil
}

func (a *sessionRepositoryAdapter) GetSession(ctx context.Context, token string) (application.Session, error) {
	stored, err := a.repo.GetSession(ctx, token)
	if err != nil {
		return application.Session{}, err
	}
	return toApplicationSession(stored), nil
}

func (a *sessionRepositoryAdapter) UpdateSession(ctx context.Context, session application.Session) (application.Session, error) {
	stored, err := a.repo.UpdateSession(ctx, toPersistenceSession(session))
	if err != nil {
		return application.Session{}, err
	}
	return toApplicationSession(stored), nil
}

func (a *sessionRepositoryAdapter) RevokeSession(ctx context.Context, token string, revokedAt time.Time) (application.Session, error) {
	stored, err := a.repo.RevokeSession(ctx, token, revokedAt)
	if err != nil {
		return application.Session{}, err
	}
	return toApplicationSession(stored), nil
}

func (a *sessionRepositoryAdapter) DeleteExpiredSessions(ctx context.Context, reference time.Time) error {
	return a.repo.DeleteExpiredSessions(ctx, reference)
}

// credentialStoreAdapter bridges persistence.UserRepository to the
// application.CredentialStore interface application.AuthService expects.
type credentialStoreAdapter struct {
	repo persistence.UserRepository
}

func newCredentialStoreAdapter(repo persistence.UserRepository) *credentialStoreAdapter {
	return &credentialStoreAdapter{repo: repo}
}

func (a *credentialStoreAdapter) GetUserCredentialsByEmail(ctx context.Context, email string) (application.UserCredentials, error) {
	stored, err := a.repo.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return application.UserCredentials{}, application.ErrNotFound
		}
		return application.UserCredentials{}, err
	}
	return application.UserCredentials{
		User:         toApplicationUser(stored),
		PasswordHash: stored.PasswordHash,
	}, nil
}

func (a *credentialStoreAdapter) GetUser(ctx context.Context, id string) (application.User, error) {
	stored, err := a.repo.GetUser(ctx, id)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return application.User{}, application.ErrNotFound
		}
		return application.User{}, err
	}
	return toApplicationUser(stored), nil
}

func toApplicationUser(model persistence.User) application.User {
	return application.User{
		ID:          model.ID,
		Email:       model.Email,
		DisplayName: model.DisplayName,
		IsAdmin:     model.IsAdmin,
		CreatedAt:   model.CreatedAt,
		UpdatedAt:   model.UpdatedAt,
	}
}

func toPersistenceUser(user application.User, passwordHash string) persistence.User {
	if passwordHash == "" {
		passwordHash = user.ID
	}
	return persistence.User{
		ID:           user.ID,
		Email:        user.Email,
		DisplayName:  user.DisplayName,
		PasswordHash: passwordHash,
		IsAdmin:      user.IsAdmin,
		CreatedAt:    user.CreatedAt,
		UpdatedAt:    user.UpdatedAt,
	}
}

func toApplicationSession(model persistence.Session) application.Session {
	return application.Session{
		ID:          model.ID,
		UserID:      model.UserID,
		Token:       model.Token,
		Fingerprint: model.Fingerprint,
		ExpiresAt:   model.ExpiresAt,
		CreatedAt:   model.CreatedAt,
		UpdatedAt:   model.UpdatedAt,
		RevokedAt:   cloneTime(model.RevokedAt),
	}
}

func toPersistenceSession(session application.Session) persistence.Session {
	return persistence.Session{
		ID:          session.ID,
		UserID:      session.UserID,
		Token:       session.Token,
		Fingerprint: session.Fingerprint,
		ExpiresAt:   session.ExpiresAt,
		CreatedAt:   session.CreatedAt,
		UpdatedAt:   session.UpdatedAt,
		RevokedAt:   cloneTime(session.RevokedAt),
	}
}

func cloneTime(value *time.Time) *time.Time {
	if value == nil {
		return nil
	}
	clone := *value
	return &clone
}
