package db

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"regexp"
	"slices"
	"strconv"

	"overseerr-about/internal/logging"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

// Match both up/down files explicitly to avoid "no matching files" during go:embed.
//
//go:embed migrations/*.up.sql migrations/*.down.sql
var migrationsFS embed.FS

// MigrateUp runs all embedded "up" migrations against an open SQLite handle.
func MigrateUp(db *sql.DB) error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("migrator: iofs init: %w", err)
	}

	driver, err := sqlite.WithInstance(db, &sqlite.Config{})
	if err != nil {
		return fmt.Errorf("migrator: driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("migrator: create: %w", err)
	}

	maxVer, files := listEmbeddedMigrations()
	logging.Debug("Embedded migrations", "count", len(files), "latest", maxVer)

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrator: up: %w", err)
	}

	if v, dirty, err := m.Version(); err == nil {
		logging.Info("DB migration version", "version", v, "dirty", dirty)
	}
	return nil
}

var migRe = regexp.MustCompile(`^(\d+)_.+\.(up|down)\.sql$`)

func listEmbeddedMigrations() (int, []string) {
	entries, err := fs.ReadDir(migrationsFS, "migrations")
	if err != nil {
		return 0, nil
	}
	maxV := 0
	var names []string
	for _, e := range entries {
		name := e.Name()
		if m := migRe.FindStringSubmatch(name); m != nil {
			names = append(names, name)
			if v, err := strconv.Atoi(m[1]); err == nil && v > maxV {
				maxV = v
			}
		}
	}
	slices.Sort(names)
	return maxV, names
}
