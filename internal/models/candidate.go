package models

import "time"

// RankedCandidate is C5's ranked, pre-scored instrument.
type RankedCandidate struct {
	Symbol                 string   `json:"symbol"`
	Rank                   int      `json:"rank"` // >= 1
	PreScore               int      `json:"pre_score"` // [0,12]
	Reasons                []string `json:"reasons,omitempty"`
	Flags                  []string `json:"flags,omitempty"`
	DistanceToSMA200Pct    float64  `json:"distance_to_sma200_pct"`
	DistanceToLowerBandPct float64  `json:"distance_to_lower_band_pct"`
	ADTV                   float64  `json:"adtv"`

	// close and sma200 are kept for ranker internals (composite key
	// computation); not part of the public candidate payload.
	Close  float64 `json:"-"`
	SMA200 float64 `json:"-"`
	Lower  float64 `json:"-"`
}

// SuggestionBundle is C9's emitted bundle of ranked candidates for a sector
// event, owned by internal/suggestions and capped at 20 per sector.
type SuggestionBundle struct {
	BundleID      string            `json:"bundle_id"`
	EventID       string            `json:"event_id"`
	SectorID      string            `json:"sector_id"`
	Timestamp     time.Time         `json:"ts"`
	Candidates    []RankedCandidate `json:"candidates"` // capped at limit
	SeverityTags  []string          `json:"severity_tags,omitempty"`
}

// MaxBundleHistory bounds the per-sector bundle history.
const MaxBundleHistory = 20

// BundleHistory is internal/suggestions' per-sector persisted state: the
// capped list of bundles already emitted, plus the timestamp of the last
// emission used to suppress near-duplicate bundles.
type BundleHistory struct {
	SectorID        string             `json:"sector_id"`
	Bundles         []SuggestionBundle `json:"bundles,omitempty"` // capped at MaxBundleHistory
	LastEmittedAt   *time.Time         `json:"last_emitted_at,omitempty"`
}

// AppendBundle appends b, trimming the oldest entry once the cap is
// exceeded, and records the emission time.
func (h *BundleHistory) AppendBundle(b SuggestionBundle) {
	h.Bundles = append(h.Bundles, b)
	if len(h.Bundles) > MaxBundleHistory {
		h.Bundles = h.Bundles[len(h.Bundles)-MaxBundleHistory:]
	}
	emittedAt := b.Timestamp
	h.LastEmittedAt = &emittedAt
}
