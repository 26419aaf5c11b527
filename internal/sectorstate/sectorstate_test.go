package sectorstate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/dipsentry/internal/models"
)

func baseTime() time.Time {
	return time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
}

func snap(sectorID string, dip, rsi40, lowerBand float64) models.SectorSnapshot {
	return models.SectorSnapshot{SectorID: sectorID, DipPct: dip, RSI40Breadth: rsi40, LowerBandBreadth: lowerBand}
}

func TestStep_NormalToWatch(t *testing.T) {
	now := baseTime()
	record := models.NewNormalSectorState("tech", now)
	t2 := now.Add(time.Minute)

	record, event := Step(record, snap("tech", 5.5, 0.40, 0.1), DefaultThresholds(), t2)

	require.NotNil(t, event)
	assert.Equal(t, models.SectorWatch, record.CurrentState)
	assert.Equal(t, models.SectorNormal, event.PreviousState)
	assert.Equal(t, models.SectorWatch, event.NewState)
	assert.Len(t, record.History, 1)
}

func TestStep_NormalStaysNormalBelowWatchBand(t *testing.T) {
	now := baseTime()
	record := models.NewNormalSectorState("tech", now)

	record, event := Step(record, snap("tech", 2.0, 0.20, 0.0), DefaultThresholds(), now)

	assert.Nil(t, event)
	assert.Equal(t, models.SectorNormal, record.CurrentState)
}

func TestStep_WatchToAlertDirect(t *testing.T) {
	now := baseTime()
	record := models.NewNormalSectorState("tech", now)
	record.CurrentState = models.SectorWatch

	record, event := Step(record, snap("tech", 9.0, 0.50, 0.0), DefaultThresholds(), now.Add(time.Minute))

	require.NotNil(t, event)
	assert.Equal(t, models.SectorAlert, record.CurrentState)
	require.NotNil(t, record.LastAlertMetrics)
	assert.Equal(t, 9.0, record.LastAlertMetrics.DipPct)
}

func TestStep_AlertViaLowerBandBreadthAlone(t *testing.T) {
	now := baseTime()
	record := models.NewNormalSectorState("tech", now)

	record, event := Step(record, snap("tech", 8.5, 0.10, 0.60), DefaultThresholds(), now)

	require.NotNil(t, event)
	assert.Equal(t, models.SectorAlert, record.CurrentState)
}

func TestStep_WatchExitsToNormal(t *testing.T) {
	now := baseTime()
	record := models.NewNormalSectorState("tech", now)
	record.CurrentState = models.SectorWatch

	record, event := Step(record, snap("tech", 3.0, 0.50, 0.0), DefaultThresholds(), now)

	require.NotNil(t, event)
	assert.Equal(t, models.SectorNormal, record.CurrentState)
}

func TestStep_AlertEntersCooldownOnExit(t *testing.T) {
	now := baseTime()
	record := models.NewNormalSectorState("tech", now)
	record.CurrentState = models.SectorAlert
	record.LastAlertMetrics = &models.SectorSnapshot{SectorID: "tech", DipPct: 9.0, RSI40Breadth: 0.5}

	record, event := Step(record, snap("tech", 5.0, 0.20, 0.0), DefaultThresholds(), now)

	require.NotNil(t, event)
	assert.Equal(t, models.SectorCooldown, record.CurrentState)
	require.NotNil(t, record.CooldownUntil)
	assert.Equal(t, now.Add(DefaultThresholds().CooldownDuration), *record.CooldownUntil)
}

func TestStep_CooldownExpiresToNormal(t *testing.T) {
	now := baseTime()
	cooldownUntil := now.Add(10 * time.Minute)
	record := models.SectorStateRecord{
		SectorID:         "tech",
		CurrentState:     models.SectorCooldown,
		CooldownUntil:    &cooldownUntil,
		LastAlertMetrics: &models.SectorSnapshot{SectorID: "tech", DipPct: 9.0, RSI40Breadth: 0.5},
	}

	record, event := Step(record, snap("tech", 1.0, 0.10, 0.0), DefaultThresholds(), now.Add(11*time.Minute))

	require.NotNil(t, event)
	assert.Equal(t, models.SectorNormal, record.CurrentState)
	assert.Nil(t, record.CooldownUntil)
}

func TestStep_CooldownStaysUntilExpiry(t *testing.T) {
	now := baseTime()
	cooldownUntil := now.Add(10 * time.Minute)
	record := models.SectorStateRecord{
		SectorID:         "tech",
		CurrentState:     models.SectorCooldown,
		CooldownUntil:    &cooldownUntil,
		LastAlertMetrics: &models.SectorSnapshot{SectorID: "tech", DipPct: 9.0, RSI40Breadth: 0.5},
	}

	record, event := Step(record, snap("tech", 1.0, 0.10, 0.0), DefaultThresholds(), now.Add(5*time.Minute))

	assert.Nil(t, event)
	assert.Equal(t, models.SectorCooldown, record.CurrentState)
}

// Seed test 6: sector worsen re-alert within a cooldown window.
func TestStep_WorsenReAlertDuringCooldown(t *testing.T) {
	now := baseTime()
	cooldownUntil := now.Add(30 * time.Minute)
	record := models.SectorStateRecord{
		SectorID:         "tech",
		CurrentState:     models.SectorCooldown,
		CooldownUntil:    &cooldownUntil,
		LastAlertMetrics: &models.SectorSnapshot{SectorID: "tech", DipPct: 9.0, RSI40Breadth: 0.48},
	}

	record, event := Step(record, snap("tech", 11.2, 0.50, 0.0), DefaultThresholds(), now.Add(5*time.Minute))

	require.NotNil(t, event)
	assert.Equal(t, models.SectorAlert, record.CurrentState)
	assert.Equal(t, "worsen re-alert before cooldown expiry", event.TriggerReason)
	assert.Nil(t, record.CooldownUntil)
	require.NotNil(t, record.LastAlertMetrics)
	assert.Equal(t, 11.2, record.LastAlertMetrics.DipPct)
}

func TestStep_NoWorsenDuringCooldownStaysPut(t *testing.T) {
	now := baseTime()
	cooldownUntil := now.Add(30 * time.Minute)
	record := models.SectorStateRecord{
		SectorID:         "tech",
		CurrentState:     models.SectorCooldown,
		CooldownUntil:    &cooldownUntil,
		LastAlertMetrics: &models.SectorSnapshot{SectorID: "tech", DipPct: 9.0, RSI40Breadth: 0.48},
	}

	record, event := Step(record, snap("tech", 9.5, 0.49, 0.0), DefaultThresholds(), now.Add(5*time.Minute))

	assert.Nil(t, event)
	assert.Equal(t, models.SectorCooldown, record.CurrentState)
}

func TestStep_HistoryCapped(t *testing.T) {
	now := baseTime()
	record := models.NewNormalSectorState("tech", now)

	for i := 0; i < models.MaxSectorHistory+10; i++ {
		t := now.Add(time.Duration(i) * time.Minute)
		if record.CurrentState == models.SectorNormal {
			record, _ = Step(record, snap("tech", 6.0, 0.40, 0.0), DefaultThresholds(), t)
		} else {
			record, _ = Step(record, snap("tech", 1.0, 0.10, 0.0), DefaultThresholds(), t)
		}
	}

	assert.LessOrEqual(t, len(record.History), models.MaxSectorHistory)
}
