package migrations

import (
	"errors"
	"fmt"
	"os"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/uptrace/bun"

	"edu-crm/internal/logger"
)

// Runner applies versioned SQL migrations from a directory against the
// connection the service already holds.
type Runner struct {
	db  *bun.DB
	dir string
	log *logger.Logger

	migrator *migrate.Migrate
}

func NewRunner(db *bun.DB, dir string, log *logger.Logger) *Runner {
	if dir == "" {
		dir = "./migrations"
	}
	return &Runner{db: db, dir: dir, log: log}
}

func (r *Runner) init() error {
	if r.migrator != nil {
		return nil
	}

	if _, err := os.Stat(r.dir); err != nil {
		return fmt.Errorf("migrations directory %s: %w", r.dir, err)
	}

	driver, err := postgres.WithInstance(r.db.DB, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance("file://"+r.dir, "postgres", driver)
	if err != nil {
		return fmt.Errorf("migrator: %w", err)
	}
	r.migrator = m
	return nil
}

// Up applies all pending migrations. A dirty version marker left by an
// interrupted run is forced back to its recorded version first.
func (r *Runner) Up() error {
	if err := r.init(); err != nil {
		return err
	}

	version, dirty, err := r.migrator.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return fmt.Errorf("read schema version: %w", err)
	}
	if dirty {
		r.log.Warn("DATABASE", fmt.Sprintf("Schema version %d is dirty, forcing before retry", version))
		if err := r.migrator.Force(int(version)); err != nil {
			return fmt.Errorf("force version %d: %w", version, err)
		}
	}

	if err := r.migrator.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", err)
	}

	if version, _, err := r.migrator.Version(); err == nil {
		r.log.Info("DATABASE", fmt.Sprintf("Schema at version %d", version))
	}
	return nil
}

// Down rolls back every applied migration.
func (r *Runner) Down() error {
	if err := r.init(); err != nil {
		return err
	}
	if err := r.migrator.Down(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("roll back migrations: %w", err)
	}
	return nil
}

func (r *Runner) Close() {
	if r.migrator == nil {
		return
	}
	srcErr, dbErr := r.migrator.Close()
	if srcErr != nil && r.log != nil {
		r.log.Error("DATABASE", fmt.Sprintf("Closing migration source: %v", srcErr))
	}
	if dbErr != nil && r.log != nil {
		r.log.Error("DATABASE", fmt.Sprintf("Closing migration database handle: %v", dbErr))
	}
}
