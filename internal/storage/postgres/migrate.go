package postgres

import (
	"embed"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"financas/internal/storage"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Migrate moves the schema in the given direction and returns the resulting
// version. The migrate driver takes ownership of a dedicated connection.
func Migrate(connStr string, dir storage.MigrateDirection) (uint, error) {
	db, err := Open(connStr)
	if err != nil {
		return 0, err
	}
	defer db.Close()

	driver, err := migratepg.WithInstance(db.DB, &migratepg.Config{})
	if err != nil {
		return 0, fmt.Errorf("create postgres driver: %w", err)
	}

	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return 0, fmt.Errorf("create iofs source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, "postgres", driver)
	if err != nil {
		return 0, fmt.Errorf("create migrate instance: %w", err)
	}
	defer m.Close()

	return storage.Apply(m, dir)
}
