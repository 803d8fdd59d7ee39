// Package db provides database connection management and migration support.
//
// Supports SQLite (local authoring, tests) and PostgreSQL (shared
// deployments) via sqlx. Schema changes ship as embedded SQL files applied by
// MigrateUp; named queries live in queries/*.sql and are loaded with dotsql.
package db

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

// Driver names as registered with database/sql.
const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"
)

// Pool limits for PostgreSQL. SQLite serializes writers, so it gets a single
// connection to avoid "database is locked" errors.
const (
	maxOpenConns    = 16
	maxIdleConns    = 4
	connMaxIdleTime = 5 * time.Minute
	connMaxLifetime = 30 * time.Minute
	pingTimeout     = 5 * time.Second
)

// dataSource maps a database URL to a driver name and DSN.
//
//	sqlite://forms.db            relative path
//	sqlite:///var/lib/forms.db   absolute path
//	sqlite::memory:              in-memory database
//	postgres://user@host/db      passed through to lib/pq
func dataSource(dbURL string) (driver, dsn string, err error) {
	u, err := url.Parse(dbURL)
	if err != nil {
		return "", "", fmt.Errorf("invalid database URL: %w", err)
	}

	switch u.Scheme {
	case "sqlite", "sqlite3":
		path := u.Path
		if u.Host != "" {
			path = u.Host + u.Path
		}
		if u.Opaque != "" {
			path = u.Opaque
		}
		if path == "" {
			return "", "", fmt.Errorf("sqlite URL has no path: %s", dbURL)
		}
		query := u.Query()
		if query.Get("_foreign_keys") == "" {
			query.Set("_foreign_keys", "on")
		}
		return DriverSQLite, "file:" + path + "?" + query.Encode(), nil
	case "postgres", "postgresql":
		return DriverPostgres, dbURL, nil
	}
	return "", "", fmt.Errorf("unsupported database scheme: %s (expected sqlite or postgres)", u.Scheme)
}

// Open connects to the database named by dbURL, configures pooling and
// verifies the connection.
func Open(ctx context.Context, dbURL string) (*sqlx.DB, error) {
	driver, dsn, err := dataSource(dbURL)
	if err != nil {
		return nil, err
	}

	db, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if driver == DriverSQLite {
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(maxOpenConns)
		db.SetMaxIdleConns(maxIdleConns)
		db.SetConnMaxIdleTime(connMaxIdleTime)
		db.SetConnMaxLifetime(connMaxLifetime)
	}

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}
