package sqlitestore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/dipsentry/internal/interfaces"
	"github.com/ternarybob/dipsentry/internal/models"
)

// ErrRuleNotFound is returned by Get when no rule matches id.
var ErrRuleNotFound = errors.New("rule not found")

const timeLayout = time.RFC3339Nano

// RuleStore implements interfaces.RuleStore over the alert_rules table.
type RuleStore struct {
	db     *DB
	logger arbor.ILogger
}

// NewRuleStore constructs a RuleStore over an open sqlitestore.DB.
func NewRuleStore(db *DB, logger arbor.ILogger) interfaces.RuleStore {
	return &RuleStore{db: db, logger: logger}
}

// Create inserts a new rule row. Times are stored as RFC3339 strings
// (spec.md §6 "times stored as ISO 8601 strings").
func (s *RuleStore) Create(ctx context.Context, rule models.AlertRule) error {
	const q = `
	INSERT INTO alert_rules (
		id, user_id, symbol, condition, threshold, debounce_seconds,
		hysteresis_reset, cooldown_seconds, priority, enabled,
		confirm_window_seconds, created_at, updated_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := s.db.DB().ExecContext(ctx, q,
		rule.ID, rule.UserID, rule.Symbol, string(rule.Condition), rule.Threshold,
		rule.DebounceSeconds, rule.HysteresisReset, rule.CooldownSeconds,
		string(rule.Priority), boolToInt(rule.Enabled), rule.ConfirmWindowSeconds,
		rule.CreatedAt.Format(timeLayout), rule.UpdatedAt.Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("create rule %s: %w", rule.ID, err)
	}
	return nil
}

// Update overwrites every field of an existing rule row.
func (s *RuleStore) Update(ctx context.Context, rule models.AlertRule) error {
	const q = `
	UPDATE alert_rules SET
		user_id = ?, symbol = ?, condition = ?, threshold = ?,
		debounce_seconds = ?, hysteresis_reset = ?, cooldown_seconds = ?,
		priority = ?, enabled = ?, confirm_window_seconds = ?, updated_at = ?
	WHERE id = ?`

	res, err := s.db.DB().ExecContext(ctx, q,
		rule.UserID, rule.Symbol, string(rule.Condition), rule.Threshold,
		rule.DebounceSeconds, rule.HysteresisReset, rule.CooldownSeconds,
		string(rule.Priority), boolToInt(rule.Enabled), rule.ConfirmWindowSeconds,
		rule.UpdatedAt.Format(timeLayout), rule.ID,
	)
	if err != nil {
		return fmt.Errorf("update rule %s: %w", rule.ID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrRuleNotFound
	}
	return nil
}

// Delete removes a rule row. Cascading deletion of its AlertState is the
// caller's responsibility (the state KV has no foreign-key relationship to
// this table, per spec.md §3.2).
func (s *RuleStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.DB().ExecContext(ctx, "DELETE FROM alert_rules WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete rule %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrRuleNotFound
	}
	return nil
}

// Get returns a single rule by id, or ErrRuleNotFound.
func (s *RuleStore) Get(ctx context.Context, id string) (*models.AlertRule, error) {
	row := s.db.DB().QueryRowContext(ctx, selectColumns+" WHERE id = ?", id)
	rule, err := scanRule(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRuleNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get rule %s: %w", id, err)
	}
	return rule, nil
}

// List returns rules filtered by userID and/or symbol; either may be empty
// to mean "any".
func (s *RuleStore) List(ctx context.Context, userID, symbol string) ([]models.AlertRule, error) {
	query := selectColumns + " WHERE 1=1"
	var args []any
	if userID != "" {
		query += " AND user_id = ?"
		args = append(args, userID)
	}
	if symbol != "" {
		query += " AND symbol = ?"
		args = append(args, symbol)
	}
	query += " ORDER BY created_at ASC"

	rows, err := s.db.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list rules: %w", err)
	}
	defer rows.Close()

	var rules []models.AlertRule
	for rows.Next() {
		rule, err := scanRuleRows(rows)
		if err != nil {
			return nil, fmt.Errorf("scan rule row: %w", err)
		}
		rules = append(rules, *rule)
	}
	return rules, rows.Err()
}

const selectColumns = `
SELECT id, user_id, symbol, condition, threshold, debounce_seconds,
       hysteresis_reset, cooldown_seconds, priority, enabled,
       confirm_window_seconds, created_at, updated_at
FROM alert_rules`

// rowScanner abstracts over *sql.Row and *sql.Rows, both of which expose
// Scan with the same signature.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanRule(row *sql.Row) (*models.AlertRule, error) {
	return scanRuleInto(row)
}

func scanRuleRows(rows *sql.Rows) (*models.AlertRule, error) {
	return scanRuleInto(rows)
}

func scanRuleInto(s rowScanner) (*models.AlertRule, error) {
	var (
		rule                   models.AlertRule
		condition, priority    string
		enabled                int
		createdAt, updatedAt   string
	)
	err := s.Scan(
		&rule.ID, &rule.UserID, &rule.Symbol, &condition, &rule.Threshold,
		&rule.DebounceSeconds, &rule.HysteresisReset, &rule.CooldownSeconds,
		&priority, &enabled, &rule.ConfirmWindowSeconds, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	rule.Condition = models.AlertCondition(condition)
	rule.Priority = models.Priority(priority)
	rule.Enabled = enabled != 0

	if rule.CreatedAt, err = time.Parse(timeLayout, createdAt); err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	if rule.UpdatedAt, err = time.Parse(timeLayout, updatedAt); err != nil {
		return nil, fmt.Errorf("parse updated_at: %w", err)
	}
	return &rule, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
