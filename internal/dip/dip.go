// Package dip implements C2: rolling-N-day high tracking, dip percentage,
// categorical severity banding, and high-date lookup (spec.md §4.2), plus
// the corporate-action price adjusters supplemented from original_source/
// (dip_engine.py's adjust_for_split/adjust_for_bonus).
package dip

import (
	"github.com/ternarybob/dipsentry/internal/apperrors"
	"github.com/ternarybob/dipsentry/internal/models"
)

// DefaultWindow is the rolling high lookback in samples (spec.md §4.2).
const DefaultWindow = 365

// highEpsilon is the tolerance used by HighDate when comparing a historical
// high to the rolling high - spec.md §4.2 specifies |high - high_N| < 0.01.
const highEpsilon = 0.01

// RollingHigh returns the maximum of the last window highs.
func RollingHigh(highs []float64, window int) (float64, error) {
	if window <= 0 || len(highs) < window {
		return 0, &apperrors.InsufficientDataError{Have: len(highs), Required: window}
	}
	start := len(highs) - window
	max := highs[start]
	for i := start + 1; i < len(highs); i++ {
		if highs[i] > max {
			max = highs[i]
		}
	}
	return max, nil
}

// Pct computes dip_pct = max(0, (high_N - last_close) / high_N * 100).
func Pct(highN, lastClose float64) float64 {
	if highN <= 0 {
		return 0
	}
	pct := (highN - lastClose) / highN * 100
	if pct < 0 {
		return 0
	}
	return pct
}

// Classify maps a dip percentage to its categorical severity using the
// right-open bands of spec.md §4.2: [0,3) NONE, [3,5) MICRO, [5,8) MINOR,
// [8,12) MODERATE, [12,15) SIGNIFICANT, [15,25) MAJOR, [25,inf) EXTREME.
func Classify(pct float64) models.DipSeverity {
	switch {
	case pct < 3:
		return models.DipNone
	case pct < 5:
		return models.DipMicro
	case pct < 8:
		return models.DipMinor
	case pct < 12:
		return models.DipModerate
	case pct < 15:
		return models.DipSignificant
	case pct < 25:
		return models.DipMajor
	default:
		return models.DipExtreme
	}
}

// HighDate returns the index within highs of the most recent occurrence of
// the rolling high (last-occurrence tie-break), or -1 if highs is empty.
func HighDate(highs []float64, window int) int {
	if len(highs) == 0 {
		return -1
	}
	highN, err := RollingHigh(highs, window)
	if err != nil {
		// Fall back to scanning the whole series when there isn't a full
		// window yet - still a meaningful "most recent high" answer.
		highN = highs[0]
		for _, h := range highs {
			if h > highN {
				highN = h
			}
		}
	}

	start := 0
	if len(highs) > window {
		start = len(highs) - window
	}
	idx := -1
	for i := start; i < len(highs); i++ {
		if abs(highs[i]-highN) < highEpsilon {
			idx = i
		}
	}
	return idx
}

// Evaluate computes the full DipResult for the current bar set.
func Evaluate(highs []float64, lastClose float64, window int) (models.DipResult, error) {
	highN, err := RollingHigh(highs, window)
	if err != nil {
		return models.DipResult{}, err
	}
	pct := Pct(highN, lastClose)
	return models.DipResult{
		HighN:    highN,
		DipPct:   pct,
		Severity: Classify(pct),
		HighDate: HighDate(highs, window),
	}, nil
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

// AdjustForSplit divides historical prices by ratio (e.g. a 2-for-1 split
// passes ratio=2), a pure transform applied before classification so a
// split doesn't register as a false dip. Grounded on original_source/
// dip_engine.py's adjust_for_split.
func AdjustForSplit(prices []float64, ratio float64) []float64 {
	if ratio <= 0 {
		ratio = 1
	}
	out := make([]float64, len(prices))
	for i, p := range prices {
		out[i] = p / ratio
	}
	return out
}

// AdjustForBonus divides historical prices by (1 + bonusRatio), matching
// original_source/ dip_engine.py's adjust_for_bonus treatment of bonus
// share issues as a price-dilution event.
func AdjustForBonus(prices []float64, bonusRatio float64) []float64 {
	return AdjustForSplit(prices, 1+bonusRatio)
}
