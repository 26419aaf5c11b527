// Package ranker implements C5: sorting pre-scored candidates by a
// composite key (spec.md §4.5).
package ranker

import (
	"math"
	"sort"

	"github.com/ternarybob/dipsentry/internal/models"
)

// DefaultLimit is the candidate_limit default (spec.md §6).
const DefaultLimit = 12

// compositeKey computes the four-term descending sort key for a candidate:
// 100*pre_score primary, SMA200-proximity bonus (capped at 10), lower-band
// proximity bonus (capped at 5), and an infinitesimal ADTV tie-break.
func compositeKey(c models.RankedCandidate) float64 {
	key := 100 * float64(c.PreScore)

	if c.SMA200 > 0 && c.Close >= c.SMA200 {
		bonus := math.Max(0, 0.10-math.Abs(c.Close-c.SMA200)/c.SMA200) * 100
		if bonus > 10 {
			bonus = 10
		}
		key += bonus
	}

	if c.Lower > 0 {
		bonus := math.Max(0, 0.10-math.Abs(c.Close-c.Lower)/c.Lower) * 50
		if bonus > 5 {
			bonus = 5
		}
		key += bonus
	}

	key += c.ADTV / 1e12
	return key
}

// Rank sorts candidates descending by composite key, drops zero-score
// candidates, and returns the top `limit` re-indexed with ranks from 1.
func Rank(candidates []models.RankedCandidate, limit int) []models.RankedCandidate {
	if limit <= 0 {
		limit = DefaultLimit
	}

	filtered := make([]models.RankedCandidate, 0, len(candidates))
	for _, c := range candidates {
		if c.PreScore == 0 {
			continue
		}
		filtered = append(filtered, c)
	}

	sort.SliceStable(filtered, func(i, j int) bool {
		return compositeKey(filtered[i]) > compositeKey(filtered[j])
	})

	if len(filtered) > limit {
		filtered = filtered[:limit]
	}

	for i := range filtered {
		filtered[i].Rank = i + 1
	}
	return filtered
}
