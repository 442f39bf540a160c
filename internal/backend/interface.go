package backend

import (
	"context"

	"financas/internal/storage"
)

// CleanupFunc releases the resources held by a backend.
type CleanupFunc func() error

// Result is a ready-to-use persistence backend.
type Result struct {
	Store storage.Store
	// Ready reports whether the backing database answers. Always non-nil.
	Ready   func(ctx context.Context) error
	Cleanup CleanupFunc
}

// Factory creates backends based on configuration.
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*Result, error)
}

// Config holds the settings backend creation needs.
type Config struct {
	Type Type

	// sqlite
	SQLiteDBPath string

	// postgres
	DatabaseURL string
	// AutoMigrate applies pending postgres migrations before opening.
	AutoMigrate bool

	// memory
	SeedFile string
}

type Type string

const (
	SQLite   Type = "sqlite"
	Postgres Type = "postgres"
	Memory   Type = "memory"
)

func (t Type) String() string {
	return string(t)
}

func (t Type) IsValid() bool {
	switch t {
	case SQLite, Postgres, Memory:
		return true
	default:
		return false
	}
}
