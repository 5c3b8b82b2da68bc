// Package migrations owns the products table schema, applied from
// embedded SQL files.
package migrations

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log/slog"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed *.sql
var schemaFiles embed.FS

// Run brings the schema up to date on the given connection. When
// autoMigrate is false the schema is left alone; only the current version
// is reported. An interrupted earlier migration (dirty state) is forced
// back to its recorded version first, which is safe while the chain is a
// single baseline migration.
func Run(db *sql.DB, autoMigrate bool) error {
	m, err := newMigrator(db)
	if err != nil {
		return err
	}

	version, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return fmt.Errorf("reading migration version: %w", err)
	}

	if dirty {
		slog.Warn("[Migrations] Interrupted migration detected, forcing recorded version", "version", version)
		if err := m.Force(int(version)); err != nil {
			return fmt.Errorf("recovering interrupted migration at version %d: %w", version, err)
		}
	}

	if !autoMigrate {
		slog.Info("[Migrations] Auto-migration disabled", "current_version", version)
		return nil
	}

	switch err := m.Up(); {
	case err == nil:
		applied, _, verr := m.Version()
		if verr != nil {
			return fmt.Errorf("reading migration version after apply: %w", verr)
		}
		slog.Info("[Migrations] Schema migrated", "from_version", version, "to_version", applied)
	case errors.Is(err, migrate.ErrNoChange):
		slog.Info("[Migrations] Schema already up to date", "version", version)
	default:
		return fmt.Errorf("applying migrations: %w", err)
	}
	return nil
}

func newMigrator(db *sql.DB) (*migrate.Migrate, error) {
	src, err := iofs.New(schemaFiles, ".")
	if err != nil {
		return nil, fmt.Errorf("opening embedded migrations: %w", err)
	}
	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return nil, fmt.Errorf("preparing postgres migration driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "postgres", driver)
	if err != nil {
		return nil, fmt.Errorf("building migrator: %w", err)
	}
	return m, nil
}
