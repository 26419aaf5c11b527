// C7: per-user and per-user-symbol daily budgets, quiet-hours gating, and
// suppression logging (spec.md §4.7).
package alerts

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/ternarybob/dipsentry/internal/apperrors"
	"github.com/ternarybob/dipsentry/internal/interfaces"
	"github.com/ternarybob/dipsentry/internal/models"
)

// BudgetTTL is the TTL applied to daily budget counters (spec.md §6).
const BudgetTTL = 24 * time.Hour

// NoiseControl enforces daily budgets and quiet hours ahead of a fire.
type NoiseControl struct {
	kv             interfaces.KVStore
	dailyUserCap   int
	dailySymbolCap int
	quietStart     string
	quietEnd       string
}

// NewNoiseControl constructs a NoiseControl with the configured caps and
// quiet-hours window (both exchange-local "HH:MM" strings, spec.md §6).
func NewNoiseControl(kv interfaces.KVStore, dailyUserCap, dailySymbolCap int, quietStart, quietEnd string) *NoiseControl {
	return &NoiseControl{
		kv:             kv,
		dailyUserCap:   dailyUserCap,
		dailySymbolCap: dailySymbolCap,
		quietStart:     quietStart,
		quietEnd:       quietEnd,
	}
}

func userBudgetKey(userID string, day string) string {
	return fmt.Sprintf("budget:user:%s:%s", userID, day)
}

func symbolBudgetKey(userID, symbol string, day string) string {
	return fmt.Sprintf("budget:symbol:%s:%s:%s", userID, symbol, day)
}

func calendarDay(now time.Time) string {
	return now.UTC().Format("20060102")
}

// CheckBudget reports denied=true when either the daily user cap or the
// daily symbol cap would be exceeded by the next fire; the caller logs that
// as a ReasonBudget suppression. The error is non-nil only when a counter
// cannot be read.
func (n *NoiseControl) CheckBudget(ctx context.Context, userID, symbol string, now time.Time) (bool, error) {
	day := calendarDay(now)

	userCount, err := n.readCounter(ctx, userBudgetKey(userID, day))
	if err != nil {
		return false, err
	}
	if userCount >= n.dailyUserCap {
		return true, nil
	}

	symbolCount, err := n.readCounter(ctx, symbolBudgetKey(userID, symbol, day))
	if err != nil {
		return false, err
	}
	if symbolCount >= n.dailySymbolCap {
		return true, nil
	}

	return false, nil
}

func (n *NoiseControl) readCounter(ctx context.Context, key string) (int, error) {
	val, found, err := n.kv.Get(ctx, key)
	if err != nil {
		return 0, &apperrors.StoreUnavailableError{Err: err}
	}
	if !found {
		return 0, nil
	}
	count, err := strconv.Atoi(val)
	if err != nil {
		return 0, nil
	}
	return count, nil
}

// ConsumeBudget atomically increments both the user and symbol counters
// and refreshes their TTLs, so a crash between increment and TTL-set can
// never leave a counter without an expiry (spec.md §5).
func (n *NoiseControl) ConsumeBudget(ctx context.Context, userID, symbol string, now time.Time) error {
	day := calendarDay(now)

	if _, err := n.kv.IncrWithExpire(ctx, userBudgetKey(userID, day), BudgetTTL); err != nil {
		return &apperrors.StoreUnavailableError{Err: err}
	}
	if _, err := n.kv.IncrWithExpire(ctx, symbolBudgetKey(userID, symbol, day), BudgetTTL); err != nil {
		return &apperrors.StoreUnavailableError{Err: err}
	}
	return nil
}

// InQuietHours reports whether localNow falls within [quietStart, quietEnd)
// - a window that may cross midnight - and priority is not HIGH (only HIGH
// priority bypasses quiet hours, spec.md §4.7).
func (n *NoiseControl) InQuietHours(localNow time.Time, priority models.Priority) bool {
	if priority == models.PriorityHigh {
		return false
	}
	start, okStart := parseHHMM(n.quietStart)
	end, okEnd := parseHHMM(n.quietEnd)
	if !okStart || !okEnd {
		return false
	}

	nowMinutes := localNow.Hour()*60 + localNow.Minute()

	if start <= end {
		return nowMinutes >= start && nowMinutes < end
	}
	// Window wraps past midnight, e.g. 21:00 -> 07:00.
	return nowMinutes >= start || nowMinutes < end
}

func parseHHMM(s string) (int, bool) {
	var h, m int
	if _, err := fmt.Sscanf(s, "%d:%d", &h, &m); err != nil {
		return 0, false
	}
	return h*60 + m, true
}
