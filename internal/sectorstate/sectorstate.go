// Package sectorstate implements the per-sector NORMAL/WATCH/ALERT/COOLDOWN
// state machine: hysteresis entry/exit bands, a cooldown period after an
// ALERT clears, and a worsen-based re-alert that can cut a cooldown short.
package sectorstate

import (
	"time"

	"github.com/google/uuid"

	"github.com/ternarybob/dipsentry/internal/models"
)

// Thresholds holds the entry/exit/worsen parameters for the sector state
// machine.
type Thresholds struct {
	WatchEntryDip          float64 // >= 5.0
	WatchEntryRSI40        float64 // >= 0.35
	AlertEntryDip          float64 // >= 8.0
	AlertEntryRSI40        float64 // >= 0.45
	AlertEntryLowerBand    float64 // >= 0.55
	WatchExitDip           float64 // < 4.0
	WatchExitRSI40         float64 // < 0.33
	AlertExitDip           float64 // < 7.0
	AlertExitRSI40         float64 // < 0.43
	CooldownDuration       time.Duration
	WorsenDeltaDip         float64 // >= +2.0
	WorsenDeltaRSI40       float64 // >= +0.10
}

// DefaultThresholds returns the standard entry/exit/worsen thresholds.
func DefaultThresholds() Thresholds {
	return Thresholds{
		WatchEntryDip:       5.0,
		WatchEntryRSI40:     0.35,
		AlertEntryDip:       8.0,
		AlertEntryRSI40:     0.45,
		AlertEntryLowerBand: 0.55,
		WatchExitDip:        4.0,
		WatchExitRSI40:      0.33,
		AlertExitDip:        7.0,
		AlertExitRSI40:      0.43,
		CooldownDuration:    1800 * time.Second,
		WorsenDeltaDip:      2.0,
		WorsenDeltaRSI40:    0.10,
	}
}

func meetsAlertEntry(s models.SectorSnapshot, t Thresholds) bool {
	return s.DipPct >= t.AlertEntryDip && (s.RSI40Breadth >= t.AlertEntryRSI40 || s.LowerBandBreadth >= t.AlertEntryLowerBand)
}

func meetsWatchEntry(s models.SectorSnapshot, t Thresholds) bool {
	return s.DipPct >= t.WatchEntryDip && s.RSI40Breadth >= t.WatchEntryRSI40
}

func meetsWatchExit(s models.SectorSnapshot, t Thresholds) bool {
	return s.DipPct < t.WatchExitDip || s.RSI40Breadth < t.WatchExitRSI40
}

func meetsAlertExit(s models.SectorSnapshot, t Thresholds) bool {
	return s.DipPct < t.AlertExitDip || s.RSI40Breadth < t.AlertExitRSI40
}

func worsened(current, last models.SectorSnapshot, t Thresholds) bool {
	return (current.DipPct-last.DipPct) >= t.WorsenDeltaDip || (current.RSI40Breadth-last.RSI40Breadth) >= t.WorsenDeltaRSI40
}

// Step advances record by one snapshot, returning the (possibly unchanged)
// record and a SectorEvent iff the state changed. Invariant: CooldownUntil
// is non-nil iff CurrentState==COOLDOWN; a transition out of ALERT always
// passes through COOLDOWN, never directly to NORMAL.
func Step(record models.SectorStateRecord, snapshot models.SectorSnapshot, t Thresholds, now time.Time) (models.SectorStateRecord, *models.SectorEvent) {
	previous := record.CurrentState
	reason := ""

	switch record.CurrentState {
	case models.SectorNormal:
		switch {
		case meetsAlertEntry(snapshot, t):
			record.CurrentState = models.SectorAlert
			record.LastAlertMetrics = snapshotPtr(snapshot)
			reason = "alert criteria met"
		case meetsWatchEntry(snapshot, t):
			record.CurrentState = models.SectorWatch
			reason = "watch criteria met"
		}

	case models.SectorWatch:
		switch {
		case meetsAlertEntry(snapshot, t):
			record.CurrentState = models.SectorAlert
			record.LastAlertMetrics = snapshotPtr(snapshot)
			reason = "alert criteria met"
		case meetsWatchExit(snapshot, t):
			record.CurrentState = models.SectorNormal
			reason = "watch exit criteria met"
		}

	case models.SectorAlert:
		if meetsAlertExit(snapshot, t) {
			cooldownUntil := now.Add(t.CooldownDuration)
			record.CurrentState = models.SectorCooldown
			record.CooldownUntil = &cooldownUntil
			record.LastAlertMetrics = snapshotPtr(snapshot)
			reason = "alert exit criteria met"
		}

	case models.SectorCooldown:
		if record.CooldownUntil == nil {
			// Defensive: treat a corrupt record as already expired rather
			// than getting stuck.
			record.CurrentState = models.SectorNormal
			reason = "cooldown record missing expiry, reset to normal"
			break
		}
		switch {
		case !now.Before(*record.CooldownUntil):
			record.CurrentState = models.SectorNormal
			record.CooldownUntil = nil
			reason = "cooldown expired"
		case record.LastAlertMetrics != nil && worsened(snapshot, *record.LastAlertMetrics, t):
			record.CurrentState = models.SectorAlert
			record.CooldownUntil = nil
			record.LastAlertMetrics = snapshotPtr(snapshot)
			reason = "worsen re-alert before cooldown expiry"
		}
	}

	if record.CurrentState == previous {
		return record, nil
	}

	record.LastTransition = now
	event := models.SectorEvent{
		EventID:         uuid.New().String(),
		SectorID:        snapshot.SectorID,
		Timestamp:       now,
		PreviousState:   previous,
		NewState:        record.CurrentState,
		MetricsSnapshot: snapshot,
		TriggerReason:   reason,
	}
	record.AppendHistory(event)
	return record, &event
}

func snapshotPtr(s models.SectorSnapshot) *models.SectorSnapshot {
	c := s
	return &c
}
