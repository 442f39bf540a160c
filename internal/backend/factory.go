package backend

import (
	"context"
	"errors"
	"fmt"

	applog "financas/internal/log"
	"financas/internal/storage"
	"financas/internal/storage/memory"
	"financas/internal/storage/postgres"
)

// ErrNoMigrations is returned when migrating a backend without a schema.
var ErrNoMigrations = errors.New("backend has no migrations")

type DefaultFactory struct {
	logger *applog.Logger
}

func NewFactory(logger *applog.Logger) Factory {
	if logger == nil {
		logger = applog.FromContext(context.Background())
	}
	return &DefaultFactory{logger: logger.WithComponent(applog.ComponentBackend)}
}

func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*Result, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Type {
	case SQLite:
		return f.createSQLiteBackend(ctx, config)
	case Postgres:
		return f.createPostgresBackend(ctx, config)
	case Memory:
		return f.createMemoryBackend(ctx, config)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

func (f *DefaultFactory) createSQLiteBackend(ctx context.Context, config Config) (*Result, error) {
	repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("initialize sqlite repository: %w", err)
	}
	f.logger.InfoContext(ctx, "Initialized SQLite backend", "db_path", config.SQLiteDBPath)
	return &Result{Store: repo, Ready: repo.Ping, Cleanup: repo.Close}, nil
}

func (f *DefaultFactory) createPostgresBackend(ctx context.Context, config Config) (*Result, error) {
	if config.AutoMigrate {
		version, err := postgres.Migrate(config.DatabaseURL, storage.MigrateUp)
		if err != nil {
			return nil, fmt.Errorf("migrate postgres: %w", err)
		}
		f.logger.InfoContext(ctx, "Postgres schema up to date", "version", version)
	}
	db, err := postgres.Open(config.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("initialize postgres repository: %w", err)
	}
	repo := postgres.NewRepository(db)
	f.logger.InfoContext(ctx, "Initialized Postgres backend")
	return &Result{Store: repo, Ready: repo.Ping, Cleanup: repo.Close}, nil
}

func (f *DefaultFactory) createMemoryBackend(ctx context.Context, config Config) (*Result, error) {
	store := memory.New()
	if config.SeedFile != "" {
		var err error
		store, err = memory.NewFromFile(config.SeedFile)
		if err != nil {
			return nil, fmt.Errorf("seed memory backend: %w", err)
		}
	}
	f.logger.InfoContext(ctx, "Initialized memory backend", "seed_file", config.SeedFile)
	return &Result{
		Store:   store,
		Ready:   func(context.Context) error { return nil },
		Cleanup: store.Close,
	}, nil
}

// Migrate moves the configured database schema and returns its version.
func Migrate(config Config, dir storage.MigrateDirection) (uint, error) {
	if err := config.Validate(); err != nil {
		return 0, err
	}
	switch config.Type {
	case SQLite:
		return storage.MigrateSQLite(config.SQLiteDBPath, dir)
	case Postgres:
		return postgres.Migrate(config.DatabaseURL, dir)
	default:
		return 0, fmt.Errorf("%w: %s", ErrNoMigrations, config.Type)
	}
}
