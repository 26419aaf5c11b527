package alerts

import (
	"context"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/dipsentry/internal/models"
)

// memKV is an in-process KVStore fake, standing in for the badgerkv-backed
// implementation so state-machine tests run without a real database -
// spec.md §12's "degrades to an in-process map" fallback, inlined for
// deterministic tests.
type memKV struct {
	mu   sync.Mutex
	data map[string]string
}

func newMemKV() *memKV { return &memKV{data: make(map[string]string)} }

func (m *memKV) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *memKV) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *memKV) Incr(_ context.Context, key string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, _ := strconv.ParseInt(m.data[key], 10, 64)
	n++
	m.data[key] = strconv.FormatInt(n, 10)
	return n, nil
}

func (m *memKV) Expire(_ context.Context, key string, ttl time.Duration) error { return nil }

func (m *memKV) IncrWithExpire(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	return m.Incr(ctx, key)
}

// fakeClock lets tests advance wall-clock time deterministically.
type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time      { return c.now }
func (c *fakeClock) LocalNow() time.Time { return c.now }
func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

type fakeNotifier struct {
	dispatched []models.AlertEvent
}

func (n *fakeNotifier) Dispatch(_ context.Context, event models.AlertEvent) (bool, error) {
	n.dispatched = append(n.dispatched, event)
	return true, nil
}

type fakeSuppressionLog struct {
	entries []models.SuppressionLog
}

func (f *fakeSuppressionLog) Append(_ context.Context, entry models.SuppressionLog) error {
	f.entries = append(f.entries, entry)
	return nil
}

func (f *fakeSuppressionLog) Query(_ context.Context, ruleID string, limit int) ([]models.SuppressionLog, error) {
	return f.entries, nil
}

func newTestEngine(clock *fakeClock, dailyUserCap, dailySymbolCap int) (*Engine, *fakeNotifier, *fakeSuppressionLog) {
	kv := newMemKV()
	notifier := &fakeNotifier{}
	supLog := &fakeSuppressionLog{}
	noise := NewNoiseControl(kv, dailyUserCap, dailySymbolCap, "21:00", "07:00")
	logger := arbor.NewLogger()
	return NewEngine(kv, supLog, notifier, clock, noise, logger), notifier, supLog
}

func dipCtx(dipPct float64) models.MarketContext {
	return models.MarketContext{Dip: models.DipResult{DipPct: dipPct}}
}

// Seed test 1: Immediate trigger.
func TestEvaluate_ImmediateTrigger(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)}
	engine, notifier, _ := newTestEngine(clock, 5, 2)

	rule := models.AlertRule{
		ID: "r1", UserID: "u1", Symbol: "ABC",
		Condition: models.ConditionDipGT, Threshold: 5,
		DebounceSeconds: 0, CooldownSeconds: 3600, Priority: models.PriorityHigh, Enabled: true,
	}

	state, event, supp, err := engine.Evaluate(context.Background(), rule, dipCtx(6.0), 0, clock.now)
	require.NoError(t, err)
	assert.Nil(t, supp)
	require.NotNil(t, event)
	assert.True(t, event.PushSent)
	assert.Equal(t, models.AlertTriggered, state.State)
	require.NotNil(t, state.LastTriggeredAt)
	assert.Len(t, notifier.dispatched, 1)
}

// Seed test 2: Debounce window.
func TestEvaluate_DebounceWindow(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)}
	engine, _, _ := newTestEngine(clock, 5, 2)

	rule := models.AlertRule{
		ID: "r2", UserID: "u1", Symbol: "ABC",
		Condition: models.ConditionDipGT, Threshold: 5,
		DebounceSeconds: 10, CooldownSeconds: 60, Priority: models.PriorityHigh, Enabled: true,
	}

	state, _, _, err := engine.Evaluate(context.Background(), rule, dipCtx(6.0), 0, clock.now)
	require.NoError(t, err)
	assert.Equal(t, models.AlertArmed, state.State)

	clock.Advance(5 * time.Second)
	state, _, _, err = engine.Evaluate(context.Background(), rule, dipCtx(6.0), 0, clock.now)
	require.NoError(t, err)
	assert.Equal(t, models.AlertArmed, state.State)

	clock.Advance(6 * time.Second) // total +11s
	state, event, _, err := engine.Evaluate(context.Background(), rule, dipCtx(6.0), 0, clock.now)
	require.NoError(t, err)
	assert.Equal(t, models.AlertTriggered, state.State)
	assert.NotNil(t, event)
}

// Seed test 3: Debounce loss.
func TestEvaluate_DebounceLoss(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)}
	engine, _, _ := newTestEngine(clock, 5, 2)

	rule := models.AlertRule{
		ID: "r3", UserID: "u1", Symbol: "ABC",
		Condition: models.ConditionDipGT, Threshold: 5,
		DebounceSeconds: 10, CooldownSeconds: 60, Priority: models.PriorityHigh, Enabled: true,
	}

	state, _, _, err := engine.Evaluate(context.Background(), rule, dipCtx(6.0), 0, clock.now)
	require.NoError(t, err)
	assert.Equal(t, models.AlertArmed, state.State)

	clock.Advance(5 * time.Second)
	state, event, _, err := engine.Evaluate(context.Background(), rule, dipCtx(4.0), 0, clock.now)
	require.NoError(t, err)
	assert.Equal(t, models.AlertIdle, state.State)
	assert.Nil(t, event)
}

// Seed test 4: Hysteresis reset.
func TestEvaluate_HysteresisReset(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)}
	engine, _, _ := newTestEngine(clock, 5, 2)

	rule := models.AlertRule{
		ID: "r4", UserID: "u1", Symbol: "ABC",
		Condition: models.ConditionDipGT, Threshold: 5, HysteresisReset: 2,
		DebounceSeconds: 0, CooldownSeconds: 3600, Priority: models.PriorityHigh, Enabled: true,
	}

	state, _, _, err := engine.Evaluate(context.Background(), rule, dipCtx(6.0), 0, clock.now)
	require.NoError(t, err)
	assert.Equal(t, models.AlertTriggered, state.State)

	state, _, _, err = engine.Evaluate(context.Background(), rule, dipCtx(4.0), 0, clock.now)
	require.NoError(t, err)
	assert.Equal(t, models.AlertTriggered, state.State, "4 is above threshold-h=3, should not reset")

	state, _, _, err = engine.Evaluate(context.Background(), rule, dipCtx(2.5), 0, clock.now)
	require.NoError(t, err)
	assert.Equal(t, models.AlertCooldown, state.State)
	assert.NotNil(t, state.CooldownUntil)
}

// Seed test 5: Budget suppression.
func TestEvaluate_BudgetSuppression(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)}
	engine, notifier, supLog := newTestEngine(clock, 1, 5)

	rule1 := models.AlertRule{
		ID: "r5a", UserID: "u1", Symbol: "ABC",
		Condition: models.ConditionDipGT, Threshold: 5,
		DebounceSeconds: 0, CooldownSeconds: 3600, Priority: models.PriorityHigh, Enabled: true,
	}
	rule2 := models.AlertRule{
		ID: "r5b", UserID: "u1", Symbol: "XYZ",
		Condition: models.ConditionDipGT, Threshold: 5,
		DebounceSeconds: 0, CooldownSeconds: 3600, Priority: models.PriorityHigh, Enabled: true,
	}

	_, event1, _, err := engine.Evaluate(context.Background(), rule1, dipCtx(6.0), 0, clock.now)
	require.NoError(t, err)
	require.NotNil(t, event1)

	state2, event2, supp2, err := engine.Evaluate(context.Background(), rule2, dipCtx(6.0), 0, clock.now)
	require.NoError(t, err)
	assert.Nil(t, event2)
	require.NotNil(t, supp2)
	assert.Equal(t, models.ReasonBudget, supp2.Reason)
	assert.Equal(t, models.AlertTriggered, state2.State)

	assert.Len(t, notifier.dispatched, 1)
	assert.Len(t, supLog.entries, 1)
}

// No oscillation: repeated identical snapshots never produce more than one
// transition once settled.
func TestEvaluate_IdempotentOnRepeat(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)}
	engine, notifier, _ := newTestEngine(clock, 10, 10)

	rule := models.AlertRule{
		ID: "r6", UserID: "u1", Symbol: "ABC",
		Condition: models.ConditionDipGT, Threshold: 5,
		DebounceSeconds: 0, CooldownSeconds: 3600, Priority: models.PriorityHigh, Enabled: true,
	}

	_, _, _, err := engine.Evaluate(context.Background(), rule, dipCtx(6.0), 0, clock.now)
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		state, event, _, err := engine.Evaluate(context.Background(), rule, dipCtx(6.0), 0, clock.now)
		require.NoError(t, err)
		assert.Nil(t, event)
		assert.Equal(t, models.AlertTriggered, state.State)
	}
	assert.Len(t, notifier.dispatched, 1)
}

func TestEvaluate_QuietHoursSuppressesNonHighPriority(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 1, 1, 22, 0, 0, 0, time.UTC)}
	engine, notifier, supLog := newTestEngine(clock, 10, 10)

	rule := models.AlertRule{
		ID: "r7", UserID: "u1", Symbol: "ABC",
		Condition: models.ConditionDipGT, Threshold: 5,
		DebounceSeconds: 0, CooldownSeconds: 3600, Priority: models.PriorityMedium, Enabled: true,
	}

	state, event, supp, err := engine.Evaluate(context.Background(), rule, dipCtx(6.0), 0, clock.now)
	require.NoError(t, err)
	assert.Nil(t, event)
	require.NotNil(t, supp)
	assert.Equal(t, models.ReasonQuietHours, supp.Reason)
	assert.Equal(t, models.AlertTriggered, state.State)
	assert.Empty(t, notifier.dispatched)
	assert.Len(t, supLog.entries, 1)
}
