// Package interfaces declares the external collaborators the core pipeline
// consumes (spec.md §6): BarSource, Clock, KVStore, RuleStore,
// SuppressionLog, Notifier. Constructors take these as arguments rather
// than resolving process-global singletons, matching the teacher's
// interfaces.StorageManager-style dependency injection.
package interfaces

import (
	"context"
	"time"

	"github.com/ternarybob/dipsentry/internal/models"
)

// BarSource fetches ordered OHLCV history for a symbol. Implementations
// MUST return bars sorted by timestamp ascending, de-duplicated, UTC.
// An empty result is a valid "skip this symbol this cycle" signal, not
// an error.
type BarSource interface {
	Fetch(ctx context.Context, symbol string, interval string, lookback int) ([]models.Bar, error)
}

// Clock abstracts wall-clock access so state-machine debounce/cooldown
// logic can be driven deterministically in tests.
type Clock interface {
	// Now returns the current UTC instant. Must be monotonic with respect
	// to earlier calls within a process lifetime.
	Now() time.Time
	// LocalNow returns the current time in the configured exchange-local
	// zone, used only for quiet-hours/market-hours gating.
	LocalNow() time.Time
}

// KVStore is the fast read/write tier backing AlertState and budget
// counters (C12's state KV). A pipelined Incr+Expire call MUST be atomic
// with respect to concurrent fires.
type KVStore interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key string, value string) error
	// Incr atomically increments the integer stored at key (treating a
	// missing key as 0) and returns the new value.
	Incr(ctx context.Context, key string) (int64, error)
	Expire(ctx context.Context, key string, ttl time.Duration) error
	// IncrWithExpire atomically increments key and (re)sets its TTL in one
	// call, so a crash between the two can never leave a counter without
	// a TTL (spec.md §5 "Budget atomicity").
	IncrWithExpire(ctx context.Context, key string, ttl time.Duration) (int64, error)
}

// RuleStore is the durable, relational tier for AlertRule CRUD (C12).
type RuleStore interface {
	Create(ctx context.Context, rule models.AlertRule) error
	Update(ctx context.Context, rule models.AlertRule) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, userID, symbol string) ([]models.AlertRule, error)
	Get(ctx context.Context, id string) (*models.AlertRule, error)
}

// SuppressionLogStore is the append-only suppression audit trail (C12).
type SuppressionLogStore interface {
	Append(ctx context.Context, entry models.SuppressionLog) error
	Query(ctx context.Context, ruleID string, limit int) ([]models.SuppressionLog, error)
}

// Notifier dispatches an AlertEvent across one or more providers. Dispatch
// returns true only when every provider succeeded; a failing provider must
// not prevent others from attempting delivery (spec.md §4.10).
type Notifier interface {
	Dispatch(ctx context.Context, event models.AlertEvent) (bool, error)
}

// NotificationProvider is a single vendor-shaped delivery channel composed
// by a Notifier fan-out (internal/notify.FanOut).
type NotificationProvider interface {
	Name() string
	Send(ctx context.Context, event models.AlertEvent) error
}
