package database

import (
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations
var migrationsFS embed.FS

// runMigrations applies every pending migration under the embedded
// migrations/ directory. It opens a dedicated database/sql handle for the
// duration of the run (golang-migrate's postgres driver requires *sql.DB)
// and closes it before returning; the pgxpool.Pool used for runtime traffic
// is never touched by this handle, unlike the teacher's shared-handle setup.
func runMigrations(dsn, migrationsPath string) error {
	db, err := sqlDBForMigration(dsn)
	if err != nil {
		return err
	}
	defer db.Close()

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("creating postgres migration driver: %w", err)
	}

	var m *migrate.Migrate
	if migrationsPath != "" {
		m, err = migrate.NewWithDatabaseInstance("file://"+migrationsPath, "postgres", driver)
		if err != nil {
			return fmt.Errorf("creating migrate instance from %s: %w", migrationsPath, err)
		}
	} else {
		sourceDriver, srcErr := iofs.New(migrationsFS, "migrations")
		if srcErr != nil {
			return fmt.Errorf("creating embedded migration source: %w", srcErr)
		}
		defer sourceDriver.Close()

		m, err = migrate.NewWithInstance("iofs", sourceDriver, "postgres", driver)
		if err != nil {
			return fmt.Errorf("creating migrate instance: %w", err)
		}
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("applying migrations: %w", err)
	}

	return nil
}
