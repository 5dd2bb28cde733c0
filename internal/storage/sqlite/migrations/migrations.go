// Package migrations applies the offline store schema from embedded SQL
// migration files. The store only ever migrates forward: every SDK start
// brings the schema up to date, nothing reverts it.
package migrations

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/faultline/faultline/internal/log"
)

//go:embed sql/*.sql
var migrationFiles embed.FS

// Migrator brings the offline store schema up to date.
type Migrator struct {
	db     *sql.DB
	logger log.Logger
}

// NewMigrator creates a new migrator over an open database handle.
func NewMigrator(db *sql.DB, logger log.Logger) (*Migrator, error) {
	if db == nil {
		return nil, fmt.Errorf("db is required")
	}
	if logger == nil {
		logger = log.Noop
	}

	return &Migrator{
		db:     db,
		logger: logger,
	}, nil
}

// Up applies all pending migrations. An already up-to-date schema is not an
// error: concurrent launches over the same store file race to migrate.
func (m *Migrator) Up(ctx context.Context) error {
	inst, cleanup, err := m.instance(ctx)
	defer cleanup()
	if err != nil {
		return err
	}

	err = inst.Up()
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("could not run migrations: %w", err)
	}

	m.logger.Debugf("Offline store schema up to date")
	return nil
}

// instance assembles a migrate instance from the embedded SQL files.
func (m *Migrator) instance(ctx context.Context) (instance *migrate.Migrate, cleanup func(), err error) {
	cleanup = func() {}

	driver, err := sqlite3.WithInstance(m.db, &sqlite3.Config{})
	if err != nil {
		return nil, cleanup, fmt.Errorf("could not create driver: %w", err)
	}

	src, err := iofs.New(migrationFiles, "sql")
	if err != nil {
		return nil, cleanup, fmt.Errorf("could not load embedded migrations: %w", err)
	}
	cleanup = func() {
		if err := src.Close(); err != nil {
			m.logger.Errorf("could not close migration source: %s", err)
		}
	}

	instance, err = migrate.NewWithInstance("iofs", src, "sqlite3", driver)
	if err != nil {
		return nil, cleanup, fmt.Errorf("could not create migration instance: %w", err)
	}

	return instance, cleanup, nil
}
