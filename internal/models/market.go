package models

// IndicatorSet is C1's output for a single instrument at the current bar.
type IndicatorSet struct {
	RSI            float64
	MACDLine       float64
	MACDSignal     float64
	MACDHistogram  float64
	SMA20          float64
	SMA200         float64
	BollingerMid   float64
	BollingerUpper float64
	BollingerLower float64
	VolumeAvg20    float64
}

// DipResult is C2's output for a single instrument at the current bar.
type DipResult struct {
	HighN      float64
	DipPct     float64
	Severity   DipSeverity
	HighDate   int // index into the bar slice of the most recent high occurrence
}

// MarketContext is the per-symbol, per-cycle bundle C11 assembles and feeds
// into C6 (one evaluation per enabled rule on the symbol) and C4/C5.
type MarketContext struct {
	Symbol        string
	Close         float64
	CurrentVolume float64
	Indicators    IndicatorSet
	Dip           DipResult
	ADTV          float64 // average daily traded value, last 20 sessions
}

// MemberData is a sector constituent's snapshot, the input unit to C3.
type MemberData struct {
	Symbol        string
	Weight        float64 // renormalized to sum 1 across the sector by C3
	Price         float64
	RSI           *float64 // nil when unavailable
	SMA200        *float64
	BollingerLower *float64
	CurrentVolume float64
	VolumeAvg     float64
	DipPct        float64
}
