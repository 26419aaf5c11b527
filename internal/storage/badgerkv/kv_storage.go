package badgerkv

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/ternarybob/dipsentry/internal/interfaces"
)

// entry is the badgerhold-managed record for a single KVStore key. TTL is
// evaluated lazily on read rather than via a background sweep, matching the
// teacher's read-heavy badgerhold usage.
type entry struct {
	Key       string `boltholdKey:"Key"`
	Value     string
	ExpiresAt *time.Time
}

func (e entry) expired(now time.Time) bool {
	return e.ExpiresAt != nil && !now.Before(*e.ExpiresAt)
}

// KVStorage implements interfaces.KVStore over badgerhold. IncrWithExpire
// and Incr are serialized behind incrMu so the read-modify-write sequence
// is atomic with respect to concurrent fires (spec.md §5 "Budget
// atomicity") even though badgerhold itself has no compare-and-swap op.
type KVStorage struct {
	db     *DB
	logger arbor.ILogger
	incrMu sync.Mutex
}

// NewKVStorage constructs a KVStorage over an open badgerkv.DB.
func NewKVStorage(db *DB, logger arbor.ILogger) interfaces.KVStore {
	return &KVStorage{db: db, logger: logger}
}

// Get returns the value stored at key, or found=false if absent or expired.
// An expired entry is lazily deleted.
func (s *KVStorage) Get(ctx context.Context, key string) (string, bool, error) {
	var e entry
	err := s.db.Store().Get(key, &e)
	if err == badgerhold.ErrNotFound {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get %s: %w", key, err)
	}
	if e.expired(time.Now()) {
		_ = s.db.Store().Delete(key, &entry{})
		return "", false, nil
	}
	return e.Value, true, nil
}

// Set stores value at key with no expiry, clearing any previous TTL.
func (s *KVStorage) Set(ctx context.Context, key string, value string) error {
	e := entry{Key: key, Value: value}
	if err := s.db.Store().Upsert(key, &e); err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}

// Incr atomically increments the integer stored at key (missing key == 0)
// and returns the new value, preserving any existing TTL.
func (s *KVStorage) Incr(ctx context.Context, key string) (int64, error) {
	s.incrMu.Lock()
	defer s.incrMu.Unlock()
	return s.incrLocked(key, nil)
}

// Expire sets (or refreshes) the TTL on an existing key. A missing key is
// a no-op, matching a best-effort KV semantics for budget counters that may
// not have been written yet this process lifetime.
func (s *KVStorage) Expire(ctx context.Context, key string, ttl time.Duration) error {
	var e entry
	err := s.db.Store().Get(key, &e)
	if err == badgerhold.ErrNotFound {
		return nil
	}
	if err != nil {
		return fmt.Errorf("expire %s: %w", key, err)
	}
	expiresAt := time.Now().Add(ttl)
	e.ExpiresAt = &expiresAt
	if err := s.db.Store().Upsert(key, &e); err != nil {
		return fmt.Errorf("expire %s: %w", key, err)
	}
	return nil
}

// IncrWithExpire atomically increments key and (re)sets its TTL in one
// serialized operation, so a crash between increment and TTL-set can never
// leave a budget counter without an expiry.
func (s *KVStorage) IncrWithExpire(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	s.incrMu.Lock()
	defer s.incrMu.Unlock()
	expiresAt := time.Now().Add(ttl)
	return s.incrLocked(key, &expiresAt)
}

func (s *KVStorage) incrLocked(key string, expiresAt *time.Time) (int64, error) {
	var e entry
	err := s.db.Store().Get(key, &e)
	isNew := err == badgerhold.ErrNotFound
	if err != nil && !isNew {
		return 0, fmt.Errorf("incr %s: %w", key, err)
	}

	var current int64
	if !isNew && !e.expired(time.Now()) {
		current, err = strconv.ParseInt(e.Value, 10, 64)
		if err != nil {
			current = 0
		}
	}

	current++
	e.Key = key
	e.Value = strconv.FormatInt(current, 10)
	if expiresAt != nil {
		e.ExpiresAt = expiresAt
	}

	if err := s.db.Store().Upsert(key, &e); err != nil {
		return 0, fmt.Errorf("incr %s: %w", key, err)
	}
	return current, nil
}
