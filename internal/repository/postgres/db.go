// Package postgres implements the repository interfaces on database/sql.
// Despite the name it serves two drivers: postgres (lib/pq) for production
// and the embedded sqlite database for development and tests.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/veilport/veilport/internal/config"
)

// DB wraps sql.DB with the driver name so queries written with `?`
// placeholders can be rebound for postgres.
type DB struct {
	*sql.DB
	driver string
}

// New opens a database connection for the configured driver
func New(cfg config.DatabaseConfig) (*DB, error) {
	driverName := cfg.Driver
	dsn := cfg.DSN()

	if cfg.Driver == "sqlite" {
		dsn = fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)", cfg.Path)
	}

	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if cfg.Driver == "sqlite" {
		// Single writer avoids SQLITE_BUSY under concurrent requests.
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
		db.SetMaxIdleConns(cfg.MaxIdleConns)
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{DB: db, driver: cfg.Driver}, nil
}

// Driver returns the driver name
func (d *DB) Driver() string {
	return d.driver
}

// rebind converts `?` placeholders to `$n` for postgres. sqlite accepts `?`
// as is.
func (d *DB) rebind(query string) string {
	if d.driver != "postgres" {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			fmt.Fprintf(&b, "$%d", n)
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
