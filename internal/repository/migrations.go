package repository

import (
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

var (
	//go:embed migrations/*.sql
	migrationsFS embed.FS

	//go:embed tracking_migrations/*.sql
	trackingMigrationsFS embed.FS
)

// RunMigrations applies the passage index schema to a Postgres database.
func RunMigrations(databaseURL string) error {
	return runMigrations(migrationsFS, "migrations", databaseURL)
}

// RunTrackingMigrations applies the evaluation tracking schema to a SQLite file.
func RunTrackingMigrations(path string) error {
	return runMigrations(trackingMigrationsFS, "tracking_migrations", "sqlite3://"+path)
}

func runMigrations(fsys embed.FS, dir, databaseURL string) error {
	src, err := iofs.New(fsys, dir)
	if err != nil {
		return fmt.Errorf("open embedded migrations: %w", err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", src, databaseURL)
	if err != nil {
		return fmt.Errorf("create migration instance: %w", err)
	}
	defer m.Close()

	err = m.Up()
	if err == nil || errors.Is(err, migrate.ErrNoChange) {
		return nil
	}

	var dirtyErr migrate.ErrDirty
	if !errors.As(err, &dirtyErr) {
		return fmt.Errorf("run migrations: %w", err)
	}

	// A dirty version means a previous run failed halfway. Step back to the
	// last clean version and try again once.
	forceVersion := max(dirtyErr.Version-1, 0)
	if ferr := m.Force(forceVersion); ferr != nil {
		return fmt.Errorf("force clean migration version %d: %w", forceVersion, ferr)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("rerun migrations after dirty state at version %d: %w", dirtyErr.Version, err)
	}

	return nil
}
