package main

import (
	"errors"
	"flag"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/database/sqlite3"
	_ "github.com/golang-migrate/migrate/v4/source/file"

	"github.com/zanzhit/timelapse_recorder/internal/config"
	"github.com/zanzhit/timelapse_recorder/internal/storage/postgres"
)

func main() {
	var migrationsPath, migrationsTable string
	var down bool

	flag.StringVar(&migrationsPath, "migrations-path", "", "path to migrations")
	flag.StringVar(&migrationsTable, "migrations-table", "migrations", "name of migrations table")
	flag.BoolVar(&down, "down", false, "roll back every migration")

	cfg := config.MustLoad()

	if migrationsPath == "" {
		panic("migrations path is required")
	}

	dsn, err := databaseURL(cfg.DB, migrationsTable)
	if err != nil {
		panic(err)
	}

	m, err := migrate.New(
		"file://"+migrationsPath,
		dsn,
	)
	if err != nil {
		panic(err)
	}

	apply := m.Up
	if down {
		apply = m.Down
	}

	if err := apply(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			fmt.Println("no migrations to apply")

			return
		}

		panic(err)
	}

	fmt.Println("migrations applied successfully")
}

func databaseURL(db config.DB, migrationsTable string) (string, error) {
	switch db.Driver {
	case postgres.DriverPostgres, "":
		if db.Password == "" {
			return "", errors.New("POSTGRES_PASSWORD is required")
		}

		return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s&x-migrations-table=%s",
			db.Username, db.Password, db.Host, db.Port, db.DBName, db.SSLMode, migrationsTable), nil
	case postgres.DriverSQLite:
		return fmt.Sprintf("sqlite3://%s?x-migrations-table=%s", db.Path, migrationsTable), nil
	default:
		return "", fmt.Errorf("unsupported driver %q", db.Driver)
	}
}
