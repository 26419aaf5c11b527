package suggestions

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/dipsentry/internal/models"
)

func alertEvent(sectorID string, prev, next models.SectorState, reason string, dipPct float64) models.SectorEvent {
	return models.SectorEvent{
		EventID:         "evt_1",
		SectorID:        sectorID,
		PreviousState:   prev,
		NewState:        next,
		TriggerReason:   reason,
		MetricsSnapshot: models.SectorSnapshot{SectorID: sectorID, DipPct: dipPct},
	}
}

func alertEventWithBreadth(sectorID string, prev, next models.SectorState, reason string, dipPct, rsi40Breadth float64) models.SectorEvent {
	event := alertEvent(sectorID, prev, next, reason, dipPct)
	event.MetricsSnapshot.RSI40Breadth = rsi40Breadth
	return event
}

func TestShouldEmit_NewAlertTransitionWithNoHistory(t *testing.T) {
	event := alertEvent("tech", models.SectorWatch, models.SectorAlert, "alert criteria met", 9.0)
	assert.True(t, ShouldEmit(event, models.BundleHistory{}, time.Now()))
}

func TestShouldEmit_NonAlertTransitionNeverEmits(t *testing.T) {
	event := alertEvent("tech", models.SectorNormal, models.SectorWatch, "watch criteria met", 6.0)
	assert.False(t, ShouldEmit(event, models.BundleHistory{}, time.Now()))
}

func TestShouldEmit_SuppressedWithinWindow(t *testing.T) {
	now := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	last := now.Add(-10 * time.Minute)
	history := models.BundleHistory{SectorID: "tech", LastEmittedAt: &last}

	event := alertEvent("tech", models.SectorWatch, models.SectorAlert, "alert criteria met", 9.0)
	assert.False(t, ShouldEmit(event, history, now))
}

func TestShouldEmit_EmitsAfterWindowElapses(t *testing.T) {
	now := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	last := now.Add(-31 * time.Minute)
	history := models.BundleHistory{SectorID: "tech", LastEmittedAt: &last}

	event := alertEvent("tech", models.SectorWatch, models.SectorAlert, "alert criteria met", 9.0)
	assert.True(t, ShouldEmit(event, history, now))
}

func TestShouldEmit_WorsenBypassesSuppressionWindow(t *testing.T) {
	now := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	last := now.Add(-1 * time.Minute)
	history := models.BundleHistory{SectorID: "tech", LastEmittedAt: &last}

	event := alertEvent("tech", models.SectorCooldown, models.SectorAlert, "worsen re-alert before cooldown expiry", 11.2)
	assert.True(t, ShouldEmit(event, history, now))
}

func TestBuildBundle_TagsSeverityModerate(t *testing.T) {
	now := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	event := alertEventWithBreadth("tech", models.SectorCooldown, models.SectorAlert, "worsen re-alert before cooldown expiry", 13.0, 0.4)
	candidates := []models.RankedCandidate{{Symbol: "ABC", Rank: 1, PreScore: 10}}

	bundle := BuildBundle(event, candidates, now)

	require.Len(t, bundle.Candidates, 1)
	assert.Equal(t, "tech", bundle.SectorID)
	assert.Equal(t, "evt_1", bundle.EventID)
	assert.Contains(t, bundle.SeverityTags, "dip_severity: moderate")
	assert.NotContains(t, bundle.SeverityTags, "breadth: high")
}

func TestBuildBundle_TagsSeverityMajorAndBreadthHigh(t *testing.T) {
	now := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	event := alertEventWithBreadth("tech", models.SectorWatch, models.SectorAlert, "alert criteria met", 16.5, 0.65)
	candidates := []models.RankedCandidate{{Symbol: "ABC", Rank: 1, PreScore: 10}}

	bundle := BuildBundle(event, candidates, now)

	assert.Contains(t, bundle.SeverityTags, "dip_severity: major")
	assert.Contains(t, bundle.SeverityTags, "breadth: high")
}

func TestBundleHistory_AppendCapsAndTracksEmission(t *testing.T) {
	history := models.BundleHistory{SectorID: "tech"}
	for i := 0; i < models.MaxBundleHistory+5; i++ {
		history.AppendBundle(models.SuggestionBundle{
			BundleID:  "b",
			SectorID:  "tech",
			Timestamp: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC).Add(time.Duration(i) * time.Hour),
		})
	}

	assert.Len(t, history.Bundles, models.MaxBundleHistory)
	require.NotNil(t, history.LastEmittedAt)
}
