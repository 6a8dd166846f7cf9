package database

import (
	"context"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	migratedb "github.com/golang-migrate/migrate/v4/database"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"gorm.io/gorm"
)

//go:embed migrations/postgres/*.sql migrations/sqlite/*.sql
var migrationsFS embed.FS

// RunMigrations applies every pending up migration for the connected dialect
func RunMigrations(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database handle: %w", err)
	}

	var (
		dir    string
		driver migratedb.Driver
		// the sqlite driver closes the shared *sql.DB on Close, so it is
		// left open; the postgres driver only holds a dedicated conn
		closeDriver bool
	)

	switch db.Dialector.Name() {
	case "postgres":
		conn, err := sqlDB.Conn(context.Background())
		if err != nil {
			return fmt.Errorf("failed to acquire migration connection: %w", err)
		}
		driver, err = migratepg.WithConnection(context.Background(), conn, &migratepg.Config{})
		if err != nil {
			_ = conn.Close()
			return fmt.Errorf("failed to create postgres migration driver: %w", err)
		}
		dir = "migrations/postgres"
		closeDriver = true
	case "sqlite":
		driver, err = migratesqlite.WithInstance(sqlDB, &migratesqlite.Config{})
		if err != nil {
			return fmt.Errorf("failed to create sqlite migration driver: %w", err)
		}
		dir = "migrations/sqlite"
	default:
		return fmt.Errorf("migrations not supported for dialect %q", db.Dialector.Name())
	}

	src, err := iofs.New(migrationsFS, dir)
	if err != nil {
		return fmt.Errorf("failed to open embedded migrations: %w", err)
	}
	defer src.Close()

	m, err := migrate.NewWithInstance("iofs", src, db.Dialector.Name(), driver)
	if err != nil {
		return fmt.Errorf("failed to create migrator: %w", err)
	}
	if closeDriver {
		defer driver.Close()
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}
