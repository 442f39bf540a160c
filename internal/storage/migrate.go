package storage

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// MigrateDirection selects whether migrations are applied or rolled back.
type MigrateDirection int

const (
	MigrateUp MigrateDirection = iota
	MigrateDown
)

// RunMigrations applies every pending migration to the sqlite file at dbPath.
func RunMigrations(dbPath string) error {
	_, err := MigrateSQLite(dbPath, MigrateUp)
	return err
}

// MigrateSQLite moves the schema at dbPath in the given direction and returns
// the resulting schema version (0 when no migration is applied).
func MigrateSQLite(dbPath string, dir MigrateDirection) (uint, error) {
	// The migrate driver closes the handle it is given, so it gets its own.
	migrateDB, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return 0, fmt.Errorf("open migration database: %w", err)
	}
	defer migrateDB.Close()

	driver, err := sqlite.WithInstance(migrateDB, &sqlite.Config{})
	if err != nil {
		return 0, fmt.Errorf("create sqlite driver: %w", err)
	}

	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return 0, fmt.Errorf("create iofs source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return 0, fmt.Errorf("create migrate instance: %w", err)
	}
	defer m.Close()

	return Apply(m, dir)
}

// Apply runs m in the given direction, treating "no change" as success.
func Apply(m *migrate.Migrate, dir MigrateDirection) (uint, error) {
	var err error
	switch dir {
	case MigrateUp:
		err = m.Up()
	case MigrateDown:
		err = m.Down()
	default:
		return 0, fmt.Errorf("unknown migrate direction %d", dir)
	}
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return 0, fmt.Errorf("run migrations: %w", err)
	}

	version, dirty, err := m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read schema version: %w", err)
	}
	if dirty {
		return version, fmt.Errorf("schema version %d is dirty", version)
	}
	return version, nil
}
