// Package suggestions implements C9: turning a sector state transition into
// a bundle of ranked candidates, with a suppression window that collapses
// rapid repeat emissions for the same sector.
package suggestions

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ternarybob/dipsentry/internal/models"
)

// SuppressWindow is the minimum gap between two bundles for the same
// sector, unless the newer one is triggered by a worsen re-alert.
const SuppressWindow = 30 * time.Minute

// ShouldEmit reports whether event warrants a new SuggestionBundle: either
// a fresh transition into ALERT, or a worsen-triggered re-alert while
// already in ALERT/COOLDOWN. A same-sector emission inside SuppressWindow
// is otherwise collapsed to avoid duplicate bundles for the same episode.
func ShouldEmit(event models.SectorEvent, history models.BundleHistory, now time.Time) bool {
	isNewAlert := event.NewState == models.SectorAlert && event.PreviousState != models.SectorAlert
	isWorsen := strings.Contains(strings.ToLower(event.TriggerReason), "worsen")

	if !isNewAlert && !isWorsen {
		return false
	}
	if isWorsen {
		return true
	}
	if history.LastEmittedAt == nil {
		return true
	}
	return now.Sub(*history.LastEmittedAt) >= SuppressWindow
}

// BuildBundle assembles a SuggestionBundle from the sector event and its
// already-ranked candidates (C5 output), tagging severity from the
// snapshot's dip percentage.
func BuildBundle(event models.SectorEvent, candidates []models.RankedCandidate, now time.Time) models.SuggestionBundle {
	return models.SuggestionBundle{
		BundleID:     uuid.New().String(),
		EventID:      event.EventID,
		SectorID:     event.SectorID,
		Timestamp:    now,
		Candidates:   candidates,
		SeverityTags: severityTags(event),
	}
}

// severityTags derives spec.md §4.9's literal tags from the snapshot:
// dip severity off dip_pct, breadth off rsi40_breadth.
func severityTags(event models.SectorEvent) []string {
	snap := event.MetricsSnapshot
	var tags []string
	switch {
	case snap.DipPct > 15:
		tags = append(tags, "dip_severity: major")
	case snap.DipPct > 10:
		tags = append(tags, "dip_severity: moderate")
	}
	if snap.RSI40Breadth > 0.6 {
		tags = append(tags, "breadth: high")
	}
	return tags
}
