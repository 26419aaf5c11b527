// Package scoring implements C4: the pre-score engine that maps an
// indicator+dip+volume tuple to an integer score in [0,12] via six
// independent 0/2 checks, with per-component reasons and flags (spec.md
// §4.3).
package scoring

import (
	"fmt"

	"github.com/ternarybob/dipsentry/internal/models"
)

// Filters holds the pre-filter thresholds (spec.md §4.3).
type Filters struct {
	MinPrice        float64
	MinADTV         float64
	UnderSurveillance bool
}

// DefaultFilters returns the spec.md §4.3 defaults.
func DefaultFilters() Filters {
	return Filters{MinPrice: 50, MinADTV: 1_000_000}
}

// passesFilter reports whether ctx clears the pre-filter.
func passesFilter(price, adtv float64, f Filters) bool {
	if f.UnderSurveillance {
		return false
	}
	if price < f.MinPrice {
		return false
	}
	if adtv < f.MinADTV {
		return false
	}
	return true
}

// Score computes the pre-score for one instrument's current MarketContext.
// A filter failure returns score 0 with Filtered=true, per spec.md §4.3.
func Score(ctx models.MarketContext, filters Filters) models.PreScoreResult {
	if !passesFilter(ctx.Close, ctx.ADTV, filters) {
		return models.PreScoreResult{Score: 0, Filtered: true}
	}

	var result models.PreScoreResult

	// Dip band: 8 <= dip_pct <= 15.
	if ctx.Dip.DipPct >= 8 && ctx.Dip.DipPct <= 15 {
		result.Score += 2
		result.Reasons = append(result.Reasons, fmt.Sprintf("Dip %.1f%% in buy zone (8-15%%)", ctx.Dip.DipPct))
	}

	// RSI band: 30 <= RSI <= 40, or RSI < 30 (also sets volatility_risk flag).
	rsi := ctx.Indicators.RSI
	switch {
	case rsi >= 30 && rsi <= 40:
		result.Score += 2
		result.Reasons = append(result.Reasons, fmt.Sprintf("RSI %.1f in oversold-recovery band", rsi))
	case rsi < 30:
		result.Score += 2
		result.Reasons = append(result.Reasons, fmt.Sprintf("RSI %.1f deeply oversold", rsi))
		result.Flags = append(result.Flags, "volatility_risk")
	}

	// MACD bullish: MACD > signal or histogram > 0.
	if ctx.Indicators.MACDLine > ctx.Indicators.MACDSignal || ctx.Indicators.MACDHistogram > 0 {
		result.Score += 2
		result.Reasons = append(result.Reasons, "MACD bullish crossover or positive histogram")
	}

	// SMA200 hold: close >= SMA200 (Holding) or close >= 0.97*SMA200 (Testing).
	switch {
	case ctx.Close >= ctx.Indicators.SMA200:
		result.Score += 2
		result.Reasons = append(result.Reasons, "Holding above SMA200")
	case ctx.Close >= 0.97*ctx.Indicators.SMA200:
		result.Score += 2
		result.Reasons = append(result.Reasons, "Testing SMA200 support")
	}

	// Lower-band touch: close <= 1.02 * lower_band.
	if ctx.Close <= 1.02*ctx.Indicators.BollingerLower {
		result.Score += 2
		result.Reasons = append(result.Reasons, "Price at or below lower Bollinger band")
	}

	// Volume spike: current_volume / volume_avg >= 1.5.
	if ctx.Indicators.VolumeAvg20 > 0 && ctx.CurrentVolume/ctx.Indicators.VolumeAvg20 >= 1.5 {
		result.Score += 2
		result.Reasons = append(result.Reasons, "Volume spike vs 20-day average")
	}

	return result
}
