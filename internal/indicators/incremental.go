package indicators

// Incremental maintains EMA state for RSI and MACD so a long-running
// process can update indicators in O(1) per new bar instead of rescanning
// the full history each cycle. Grounded on the original Python source's
// IncrementalIndicators class (spec.md §4.1 "an incremental variant"),
// re-expressed as a Go value type. The pipeline does not keep one between
// cycles; it recomputes the batch functions from the full bar window.
type Incremental struct {
	rsiPeriod int
	warm      bool
	lastClose float64
	avgGain   float64
	avgLoss   float64

	emaFast   float64
	emaSlow   float64
	emaSignal float64
	macdWarm  bool
}

// NewIncremental seeds an Incremental tracker from an initial closed series.
// Returns an untouched zero-value tracker (Warm()==false) if there isn't
// enough history yet; the caller should fall back to the batch functions
// until enough bars accumulate.
func NewIncremental(closes []float64) *Incremental {
	inc := &Incremental{rsiPeriod: RSIPeriod}
	if len(closes) < RSIPeriod+1 {
		return inc
	}

	gains := make([]float64, 0, RSIPeriod)
	losses := make([]float64, 0, RSIPeriod)
	start := len(closes) - RSIPeriod - 1
	for i := start + 1; i <= len(closes)-1; i++ {
		d := closes[i] - closes[i-1]
		if d > 0 {
			gains = append(gains, d)
			losses = append(losses, 0)
		} else {
			gains = append(gains, 0)
			losses = append(losses, -d)
		}
	}
	inc.avgGain = avg(gains)
	inc.avgLoss = avg(losses)
	inc.lastClose = closes[len(closes)-1]
	inc.warm = true

	if len(closes) >= MACDSlowPeriod+MACDSignalPeriod {
		fastSeries := ema(closes, MACDFastPeriod)
		slowSeries := ema(closes, MACDSlowPeriod)
		offset := len(fastSeries) - len(slowSeries)
		lineSeries := make([]float64, len(slowSeries))
		for i := range slowSeries {
			lineSeries[i] = fastSeries[i+offset] - slowSeries[i]
		}
		signalSeries := ema(lineSeries, MACDSignalPeriod)
		if len(signalSeries) > 0 {
			inc.emaFast = fastSeries[len(fastSeries)-1]
			inc.emaSlow = slowSeries[len(slowSeries)-1]
			inc.emaSignal = signalSeries[len(signalSeries)-1]
			inc.macdWarm = true
		}
	}

	return inc
}

// Warm reports whether the tracker has enough history to update
// incrementally; false means the caller should still be using the batch
// functions.
func (inc *Incremental) Warm() bool {
	return inc != nil && inc.warm
}

// Update folds a new close into the RSI and MACD EMA state in O(1) and
// returns the refreshed values.
func (inc *Incremental) Update(close float64) (rsi float64, macd MACDResult) {
	d := close - inc.lastClose
	var gain, loss float64
	if d > 0 {
		gain = d
	} else {
		loss = -d
	}
	alpha := 1.0 / float64(inc.rsiPeriod)
	inc.avgGain = inc.avgGain*(1-alpha) + gain*alpha
	inc.avgLoss = inc.avgLoss*(1-alpha) + loss*alpha
	inc.lastClose = close

	if inc.avgLoss == 0 {
		rsi = 100.0
	} else {
		rs := inc.avgGain / inc.avgLoss
		rsi = clamp(100-(100/(1+rs)), 0, 100)
	}

	if inc.macdWarm {
		kFast := 2.0 / (float64(MACDFastPeriod) + 1.0)
		kSlow := 2.0 / (float64(MACDSlowPeriod) + 1.0)
		kSignal := 2.0 / (float64(MACDSignalPeriod) + 1.0)
		inc.emaFast = close*kFast + inc.emaFast*(1-kFast)
		inc.emaSlow = close*kSlow + inc.emaSlow*(1-kSlow)
		line := inc.emaFast - inc.emaSlow
		inc.emaSignal = line*kSignal + inc.emaSignal*(1-kSignal)
		macd = MACDResult{Line: line, Signal: inc.emaSignal, Histogram: line - inc.emaSignal}
	}
	return rsi, macd
}
