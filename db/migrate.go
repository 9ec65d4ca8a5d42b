package db

import (
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// MigrateUp applies every pending migration to the database at path. It opens
// its own connection because the migrator closes the one it is given.
func MigrateUp(path string) error {
	m, err := newMigrator(path)
	if err != nil {
		return err
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}
	return nil
}

// MigrationVersion returns the applied schema version; 0 when none is applied.
func MigrationVersion(path string) (uint, bool, error) {
	m, err := newMigrator(path)
	if err != nil {
		return 0, false, err
	}
	defer m.Close()

	version, dirty, err := m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to read migration version: %w", err)
	}
	return version, dirty, nil
}

func newMigrator(path string) (*migrate.Migrate, error) {
	conn, err := NewSQLiteConnection(DefaultConnectionConfig(path))
	if err != nil {
		return nil, err
	}

	driver, err := sqlite.WithInstance(conn, &sqlite.Config{DatabaseName: "main"})
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create migration driver: %w", err)
	}

	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		driver.Close()
		return nil, fmt.Errorf("failed to read embedded migrations: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		driver.Close()
		return nil, fmt.Errorf("failed to create migrator: %w", err)
	}
	return m, nil
}
