// Package models holds the data-model entities shared across dipsentry's
// indicator, scoring, state-machine, and pipeline packages.
package models

import "time"

// Bar is a single OHLCV sample. Immutable once produced by a BarSource.
type Bar struct {
	Timestamp time.Time `json:"timestamp"` // monotonic UTC
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	Volume    float64   `json:"volume"` // >= 0
}

// Closes extracts the close series from an ordered bar slice.
func Closes(bars []Bar) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = b.Close
	}
	return out
}

// Highs extracts the high series from an ordered bar slice.
func Highs(bars []Bar) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = b.High
	}
	return out
}

// Volumes extracts the volume series from an ordered bar slice.
func Volumes(bars []Bar) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = b.Volume
	}
	return out
}
