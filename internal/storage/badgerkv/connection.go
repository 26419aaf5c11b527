// Package badgerkv implements C12's fast state KV tier (AlertState JSON
// blobs, sector state records, daily budget counters) on top of
// badgerhold/badger, the way the teacher's internal/storage/badger package
// wraps badgerhold for its own KV tier.
package badgerkv

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/ternarybob/dipsentry/internal/config"
)

// DB manages the Badger database connection backing the state KV tier.
type DB struct {
	store  *badgerhold.Store
	logger arbor.ILogger
}

// Open creates or opens the Badger database at cfg.Path, mirroring the
// teacher's NewBadgerDB (reset-on-startup support, directory creation).
// Badger's own logger is switched off (options.Logger = nil); open and
// reset messages go through the arbor logger.
func Open(logger arbor.ILogger, cfg config.BadgerConfig) (*DB, error) {
	if cfg.ResetOnStartup {
		if _, err := os.Stat(cfg.Path); err == nil {
			logger.Debug().Str("path", cfg.Path).Msg("deleting existing state KV (reset_on_startup=true)")
			if err := os.RemoveAll(cfg.Path); err != nil {
				logger.Warn().Err(err).Str("path", cfg.Path).Msg("failed to delete state KV directory")
			}
		}
	}

	dir := filepath.Dir(cfg.Path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create state KV directory: %w", err)
	}

	options := badgerhold.DefaultOptions
	options.Dir = cfg.Path
	options.ValueDir = cfg.Path
	options.Logger = nil

	store, err := badgerhold.Open(options)
	if err != nil {
		return nil, fmt.Errorf("open badger state KV: %w", err)
	}

	logger.Info().Str("path", cfg.Path).Msg("state KV initialized")
	return &DB{store: store, logger: logger}, nil
}

// Store returns the underlying badgerhold store, for callers (tests,
// migrations) that need direct access.
func (d *DB) Store() *badgerhold.Store {
	return d.store
}

// Close closes the database connection.
func (d *DB) Close() error {
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}
