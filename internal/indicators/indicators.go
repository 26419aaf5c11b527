// Package indicators implements C1: pure, stateless functions over ordered
// float sequences (RSI, MACD, SMA, Bollinger, volume average), plus an
// incremental variant that keeps the same O(1)-per-tick EMA state the
// original Python source's IncrementalIndicators class maintained. All
// functions are deterministic - identical inputs yield bit-identical
// outputs (spec.md §4.1).
package indicators

import "github.com/ternarybob/dipsentry/internal/apperrors"

// SMA is the arithmetic mean of the last period samples.
func SMA(values []float64, period int) (float64, error) {
	if period <= 0 || len(values) < period {
		return 0, &apperrors.InsufficientDataError{Have: len(values), Required: period}
	}
	return sma(values, period), nil
}

// RSI is the exponentially-weighted gain/loss RSI(14) described in
// spec.md §4.1: smoothing factor alpha = 1/period applied to first
// differences of values, seeded with a plain average over the first
// period differences (Wilder's method). Needs >= period+1 samples.
// Returns 100.0 when the average loss is zero.
func RSI(values []float64, period int) (float64, error) {
	if period <= 0 || len(values) < period+1 {
		return 0, &apperrors.InsufficientDataError{Have: len(values), Required: period + 1}
	}

	gains := make([]float64, 0, len(values)-1)
	losses := make([]float64, 0, len(values)-1)
	for i := 1; i < len(values); i++ {
		d := values[i] - values[i-1]
		if d > 0 {
			gains = append(gains, d)
			losses = append(losses, 0)
		} else {
			gains = append(gains, 0)
			losses = append(losses, -d)
		}
	}

	avgGain := avg(gains[:period])
	avgLoss := avg(losses[:period])
	alpha := 1.0 / float64(period)

	for i := period; i < len(gains); i++ {
		avgGain = avgGain*(1-alpha) + gains[i]*alpha
		avgLoss = avgLoss*(1-alpha) + losses[i]*alpha
	}

	if avgLoss == 0 {
		return 100.0, nil
	}
	rs := avgGain / avgLoss
	rsi := 100 - (100 / (1 + rs))
	return clamp(rsi, 0, 100), nil
}

// ema computes the exponential moving average series of values with the
// given period, seeding the first value with a plain SMA(period) over the
// first `period` samples the way pandas' adjust=False EMA does.
func ema(values []float64, period int) []float64 {
	if len(values) < period {
		return nil
	}
	k := 2.0 / (float64(period) + 1.0)
	out := make([]float64, len(values))
	seed := sma(values[:period], period)
	out[period-1] = seed
	for i := period; i < len(values); i++ {
		out[i] = values[i]*k + out[i-1]*(1-k)
	}
	return out[period-1:]
}

// MACDResult is the (line, signal, histogram) triple for MACD(fast,slow,signal).
type MACDResult struct {
	Line      float64
	Signal    float64
	Histogram float64
}

// MACD computes MACD(fast,slow,signal) over values: EMA(fast) - EMA(slow)
// as the line, EMA(signal) of the line series as the signal, and their
// difference as the histogram. Needs >= slow+signal samples.
func MACD(values []float64, fast, slow, signal int) (MACDResult, error) {
	if len(values) < slow+signal {
		return MACDResult{}, &apperrors.InsufficientDataError{Have: len(values), Required: slow + signal}
	}

	emaFast := ema(values, fast)
	emaSlow := ema(values, slow)

	// Align the two EMA series on their common tail (emaFast is longer
	// since fast < slow).
	offset := len(emaFast) - len(emaSlow)
	lineSeries := make([]float64, len(emaSlow))
	for i := range emaSlow {
		lineSeries[i] = emaFast[i+offset] - emaSlow[i]
	}

	signalSeries := ema(lineSeries, signal)
	if len(signalSeries) == 0 {
		return MACDResult{}, &apperrors.InsufficientDataError{Have: len(lineSeries), Required: signal}
	}

	line := lineSeries[len(lineSeries)-1]
	sig := signalSeries[len(signalSeries)-1]
	return MACDResult{Line: line, Signal: sig, Histogram: line - sig}, nil
}

// BollingerResult is the (middle, upper, lower) triple for Bollinger(period,k).
type BollingerResult struct {
	Middle float64
	Upper  float64
	Lower  float64
}

// Bollinger computes Bollinger(period,k): middle = SMA(period), sigma =
// population standard deviation of the last period samples, upper/lower
// = middle +/- k*sigma.
func Bollinger(values []float64, period int, k float64) (BollingerResult, error) {
	if len(values) < period {
		return BollingerResult{}, &apperrors.InsufficientDataError{Have: len(values), Required: period}
	}
	window := values[len(values)-period:]
	mid := avg(window)
	sigma := populationStddev(window)
	return BollingerResult{
		Middle: mid,
		Upper:  mid + k*sigma,
		Lower:  mid - k*sigma,
	}, nil
}

// VolumeAverage is the arithmetic mean of the last period volumes.
func VolumeAverage(volumes []float64, period int) (float64, error) {
	if len(volumes) < period {
		return 0, &apperrors.InsufficientDataError{Have: len(volumes), Required: period}
	}
	return sma(volumes, period), nil
}

// Default periods per spec.md §4.1.
const (
	RSIPeriod          = 14
	MACDFastPeriod     = 12
	MACDSlowPeriod     = 26
	MACDSignalPeriod   = 9
	BollingerPeriod    = 20
	BollingerK         = 2.0
	SMA20Period        = 20
	SMA200Period       = 200
	VolumeAveragePeriod = 20
)
