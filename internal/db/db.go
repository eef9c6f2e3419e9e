package db

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	sqlite3 "github.com/mattn/go-sqlite3"

	"homenet/internal/config"
)

// Open connects to the configured store and verifies connectivity.
func Open(ctx context.Context, cfg config.Config) (*sqlx.DB, error) {
	dsn, err := buildDSN(cfg)
	if err != nil {
		return nil, err
	}

	var conn *sql.DB
	if cfg.DBLogSQL {
		connector, err := NewLoggingConnector(driverFor(cfg.DBDriver), dsn, nil)
		if err != nil {
			return nil, err
		}
		conn = sql.OpenDB(connector)
	} else {
		conn, err = sql.Open(cfg.DBDriver, dsn)
		if err != nil {
			return nil, fmt.Errorf("db open: %w", err)
		}
	}

	if cfg.DBMaxOpenConns > 0 {
		conn.SetMaxOpenConns(cfg.DBMaxOpenConns)
	}
	if cfg.DBMaxIdleConns >= 0 {
		conn.SetMaxIdleConns(cfg.DBMaxIdleConns)
	}
	if cfg.DBConnMaxLifetime > 0 {
		conn.SetConnMaxLifetime(cfg.DBConnMaxLifetime)
	}

	if err := conn.PingContext(ctx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("db ping: %w", err)
	}

	// The driver name drives sqlx's bind-var rebinding (? vs $1).
	return sqlx.NewDb(conn, cfg.DBDriver), nil
}

func Close(db *sqlx.DB) error {
	if db == nil {
		return nil
	}
	return db.Close()
}

func driverFor(name string) driver.Driver {
	if name == config.DriverPostgres {
		return &pq.Driver{}
	}
	return &sqlite3.SQLiteDriver{}
}

func buildDSN(cfg config.Config) (string, error) {
	if cfg.DBDSN != "" {
		return cfg.DBDSN, nil
	}
	if cfg.DBDriver == config.DriverPostgres {
		return "", fmt.Errorf("postgres requires a dsn")
	}

	path := cfg.SQLitePath
	if path != ":memory:" && !strings.HasPrefix(path, "file:") {
		dir := filepath.Dir(path)
		if dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return "", fmt.Errorf("mkdir %s: %w", dir, err)
			}
		}
	}

	// foreign_keys: locations must exist before readings reference them.
	// busy_timeout + WAL: concurrent ingest and query from one process.
	params := []string{
		"_foreign_keys=on",
		"_busy_timeout=5000",
		"_journal_mode=WAL",
	}

	if strings.HasPrefix(path, "file:") {
		sep := "?"
		if strings.Contains(path, "?") {
			sep = "&"
		}
		return path + sep + strings.Join(params, "&"), nil
	}

	return fmt.Sprintf("file:%s?%s", path, strings.Join(params, "&")), nil
}
