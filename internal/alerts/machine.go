package alerts

import (
	"github.com/ternarybob/dipsentry/internal/models"
)

// evaluation is the (condition_met, current_value) pair C6 step 2 produces.
type evaluation struct {
	met   bool
	value float64
}

// evaluateCondition implements spec.md §4.6 step 2. PRE_SCORE_GT is
// evaluated here per spec.md's own transition table, which is
// authoritative over the original Python source's omission of it - see
// DESIGN.md.
func evaluateCondition(rule models.AlertRule, ctx models.MarketContext, preScore int) evaluation {
	switch rule.Condition {
	case models.ConditionDipGT:
		return evaluation{met: ctx.Dip.DipPct >= rule.Threshold, value: ctx.Dip.DipPct}
	case models.ConditionRSILT:
		return evaluation{met: ctx.Indicators.RSI < rule.Threshold, value: ctx.Indicators.RSI}
	case models.ConditionMACDBullish:
		h := ctx.Indicators.MACDHistogram
		return evaluation{met: h > 0 && h > rule.Threshold, value: h}
	case models.ConditionVolumeSpike:
		ratio := 0.0
		if ctx.Indicators.VolumeAvg20 > 0 {
			ratio = ctx.CurrentVolume / ctx.Indicators.VolumeAvg20
		}
		return evaluation{met: ratio >= rule.Threshold, value: ratio}
	case models.ConditionPreScoreGT:
		return evaluation{met: float64(preScore) > rule.Threshold, value: float64(preScore)}
	default:
		return evaluation{met: false, value: 0}
	}
}

// resetPredicate implements spec.md §4.6b: with hysteresis h, DIP_GT resets
// when value retreats below threshold-h, RSI_LT when it climbs above
// threshold+h, and every other condition resets on a plain false
// evaluation - a partial-wiring inconsistency preserved intentionally, see
// DESIGN.md / spec.md §9.
func resetPredicate(rule models.AlertRule, eval evaluation) bool {
	h := rule.HysteresisReset
	switch rule.Condition {
	case models.ConditionDipGT:
		return eval.value < rule.Threshold-h
	case models.ConditionRSILT:
		return eval.value > rule.Threshold+h
	default:
		return !eval.met
	}
}
