package sqlitestore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/dipsentry/internal/interfaces"
	"github.com/ternarybob/dipsentry/internal/models"
)

// SuppressionLogStore implements interfaces.SuppressionLogStore as an
// append-only table (spec.md §3.1 "SuppressionLog ... Append-only").
type SuppressionLogStore struct {
	db     *DB
	logger arbor.ILogger
}

// NewSuppressionLogStore constructs a SuppressionLogStore over an open
// sqlitestore.DB.
func NewSuppressionLogStore(db *DB, logger arbor.ILogger) interfaces.SuppressionLogStore {
	return &SuppressionLogStore{db: db, logger: logger}
}

// Append inserts a suppression entry. Meta is serialized as a JSON string
// column (spec.md §6 "meta (JSON string)").
func (s *SuppressionLogStore) Append(ctx context.Context, entry models.SuppressionLog) error {
	var metaJSON sql.NullString
	if entry.Meta != nil {
		raw, err := json.Marshal(entry.Meta)
		if err != nil {
			return fmt.Errorf("marshal suppression meta: %w", err)
		}
		metaJSON = sql.NullString{String: string(raw), Valid: true}
	}

	const q = `
	INSERT INTO suppression_log (id, rule_id, symbol, timestamp, reason, meta)
	VALUES (?, ?, ?, ?, ?, ?)`

	_, err := s.db.DB().ExecContext(ctx, q,
		entry.ID, entry.RuleID, entry.Symbol, entry.Timestamp.Format(timeLayout),
		string(entry.Reason), metaJSON,
	)
	if err != nil {
		return fmt.Errorf("append suppression log %s: %w", entry.ID, err)
	}
	return nil
}

// Query returns up to limit suppression entries for ruleID, most recent
// first (spec.md §6 "ordered by timestamp descending").
func (s *SuppressionLogStore) Query(ctx context.Context, ruleID string, limit int) ([]models.SuppressionLog, error) {
	if limit <= 0 {
		limit = 100
	}

	const q = `
	SELECT id, rule_id, symbol, timestamp, reason, meta
	FROM suppression_log
	WHERE rule_id = ?
	ORDER BY timestamp DESC
	LIMIT ?`

	rows, err := s.db.DB().QueryContext(ctx, q, ruleID, limit)
	if err != nil {
		return nil, fmt.Errorf("query suppression log for %s: %w", ruleID, err)
	}
	defer rows.Close()

	var entries []models.SuppressionLog
	for rows.Next() {
		var (
			entry     models.SuppressionLog
			timestamp string
			reason    string
			metaJSON  sql.NullString
		)
		if err := rows.Scan(&entry.ID, &entry.RuleID, &entry.Symbol, &timestamp, &reason, &metaJSON); err != nil {
			return nil, fmt.Errorf("scan suppression row: %w", err)
		}
		entry.Reason = models.SuppressionReason(reason)
		ts, err := time.Parse(timeLayout, timestamp)
		if err != nil {
			return nil, fmt.Errorf("parse suppression timestamp: %w", err)
		}
		entry.Timestamp = ts
		if metaJSON.Valid {
			var meta map[string]any
			if err := json.Unmarshal([]byte(metaJSON.String), &meta); err != nil {
				return nil, fmt.Errorf("unmarshal suppression meta: %w", err)
			}
			entry.Meta = meta
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}
