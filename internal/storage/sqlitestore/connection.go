// Package sqlitestore implements C12's durable relational tier: AlertRule
// CRUD and the append-only SuppressionLog, on modernc.org/sqlite (a
// pure-Go driver, no cgo), the way the teacher's internal/storage/sqlite
// package backs its document/job tables.
package sqlitestore

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ternarybob/arbor"
	_ "modernc.org/sqlite"

	"github.com/ternarybob/dipsentry/internal/config"
)

// DB manages the SQLite connection backing the rule store and suppression
// log.
type DB struct {
	db     *sql.DB
	logger arbor.ILogger
}

// Open creates or opens the SQLite database at cfg.Path, applies the
// teacher's WAL/pragma configuration, and runs the schema migration.
func Open(logger arbor.ILogger, cfg config.SQLiteConfig) (*DB, error) {
	dir := filepath.Dir(cfg.Path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create rule store directory: %w", err)
	}

	if cfg.ResetOnStartup {
		for _, suffix := range []string{"", "-wal", "-shm"} {
			_ = os.Remove(cfg.Path + suffix)
		}
		logger.Warn().Str("path", cfg.Path).Msg("rule store reset on startup")
	}

	// modernc.org/sqlite registers itself under the driver name "sqlite",
	// not "sqlite3".
	sqlDB, err := sql.Open("sqlite", cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("open rule store: %w", err)
	}

	// SQLite does not handle concurrent writers well; a single connection
	// avoids SQLITE_BUSY errors rather than papering over them with retries.
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
		"PRAGMA synchronous = NORMAL",
	}
	for _, pragma := range pragmas {
		if _, err := sqlDB.Exec(pragma); err != nil {
			sqlDB.Close()
			return nil, fmt.Errorf("apply %s: %w", pragma, err)
		}
	}

	if _, err := sqlDB.Exec(schemaSQL); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("init rule store schema: %w", err)
	}

	logger.Info().Str("path", cfg.Path).Msg("rule store initialized")
	return &DB{db: sqlDB, logger: logger}, nil
}

// DB returns the underlying *sql.DB.
func (d *DB) DB() *sql.DB {
	return d.db
}

// Close closes the database connection.
func (d *DB) Close() error {
	if d.db != nil {
		return d.db.Close()
	}
	return nil
}
