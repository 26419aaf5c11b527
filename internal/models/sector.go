package models

import "time"

// SectorSnapshot is C3's per-sector, per-cycle aggregation output.
type SectorSnapshot struct {
	SectorID           string    `json:"sector_id"`
	SectorName         string    `json:"sector_name"`
	Timestamp          time.Time `json:"ts"`
	DipPct             float64   `json:"dip_pct"`              // weighted
	RSI40Breadth       float64   `json:"rsi40_breadth"`        // [0,1]
	SMA200UpBreadth    float64   `json:"sma200_up_breadth"`    // [0,1]
	LowerBandBreadth   float64   `json:"lowerband_breadth"`    // [0,1]
	AvgVolumeRatio     float64   `json:"avg_volume_ratio"`     // >= 0
	ConstituentsCount  int       `json:"constituents_count"`
}

// SectorStateRecord is C8's per-sector state, owning a bounded transition
// history.
//
// Invariant: CooldownUntil != nil iff CurrentState == COOLDOWN;
// LastAlertMetrics != nil when CurrentState is ALERT or COOLDOWN.
type SectorStateRecord struct {
	SectorID         string           `json:"sector_id"`
	CurrentState     SectorState      `json:"current_state"`
	LastTransition   time.Time        `json:"last_transition"`
	CooldownUntil    *time.Time       `json:"cooldown_until,omitempty"`
	LastAlertMetrics *SectorSnapshot  `json:"last_alert_metrics,omitempty"`
	History          []SectorEvent    `json:"history,omitempty"` // capped at 100
}

// MaxSectorHistory bounds SectorStateRecord.History (spec.md §3.1).
const MaxSectorHistory = 100

// AppendHistory appends e, trimming the oldest entry if the cap is exceeded.
func (r *SectorStateRecord) AppendHistory(e SectorEvent) {
	r.History = append(r.History, e)
	if len(r.History) > MaxSectorHistory {
		r.History = r.History[len(r.History)-MaxSectorHistory:]
	}
}

// NewNormalSectorState returns the initial record for a freshly seen sector.
func NewNormalSectorState(sectorID string, now time.Time) SectorStateRecord {
	return SectorStateRecord{
		SectorID:       sectorID,
		CurrentState:   SectorNormal,
		LastTransition: now,
	}
}

// SectorEvent is emitted only on a state change (spec.md §3.1).
type SectorEvent struct {
	EventID         string          `json:"event_id"`
	SectorID        string          `json:"sector_id"`
	Timestamp       time.Time       `json:"ts"`
	PreviousState   SectorState     `json:"previous_state"`
	NewState        SectorState     `json:"new_state"`
	MetricsSnapshot SectorSnapshot  `json:"metrics_snapshot"`
	TriggerReason   string          `json:"trigger_reason"`
}
