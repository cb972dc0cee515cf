package postgres

import (
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"

	"github.com/zanzhit/timelapse_recorder/internal/config"
)

const (
	DevicesTable   = "devices"
	SessionsTable  = "sessions"
	CapturesTable  = "captures"
	OperatorsTable = "operators"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite3"
)

// New opens the configured database. Postgres is the production target;
// sqlite serves single-machine setups.
func New(cfg config.DB) (*sqlx.DB, error) {
	const op = "storage.postgres.New"

	driver, dsn := cfg.Driver, ""
	switch driver {
	case DriverPostgres, "":
		driver = DriverPostgres
		dsn = fmt.Sprintf("host=%s port=%s user=%s dbname=%s password=%s sslmode=%s",
			cfg.Host, cfg.Port, cfg.Username, cfg.DBName, cfg.Password, cfg.SSLMode)
	case DriverSQLite:
		dsn = fmt.Sprintf("file:%s?_foreign_keys=on&_busy_timeout=5000", cfg.Path)
	default:
		return nil, fmt.Errorf("%s: unsupported driver %q", op, driver)
	}

	db, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if driver == DriverSQLite {
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return db, nil
}

func IsUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}

	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		return liteErr.ExtendedCode == sqlite3.ErrConstraintUnique || liteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}

	return false
}
