package dip

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/dipsentry/internal/models"
)

func TestClassify_RightOpenBands(t *testing.T) {
	assert.Equal(t, models.DipNone, Classify(2.99))
	assert.Equal(t, models.DipMicro, Classify(3.0))
	assert.Equal(t, models.DipMinor, Classify(7.999))
	assert.Equal(t, models.DipModerate, Classify(8.0))
	assert.Equal(t, models.DipSignificant, Classify(12.0))
	assert.Equal(t, models.DipMajor, Classify(15.0))
	assert.Equal(t, models.DipExtreme, Classify(25.0))
}

func TestPct_ClampedAtZero(t *testing.T) {
	assert.Equal(t, 0.0, Pct(100, 110)) // close above high -> no dip
	assert.InDelta(t, 10.0, Pct(100, 90), 1e-9)
}

func TestRollingHigh_InsufficientData(t *testing.T) {
	_, err := RollingHigh([]float64{1, 2}, 10)
	assert.Error(t, err)
}

func TestHighDate_LastOccurrenceTieBreak(t *testing.T) {
	highs := []float64{10, 12, 12, 11, 12}
	idx := HighDate(highs, 5)
	assert.Equal(t, 4, idx)
}

func TestEvaluate(t *testing.T) {
	highs := make([]float64, 10)
	for i := range highs {
		highs[i] = 100
	}
	res, err := Evaluate(highs, 88, 10)
	require.NoError(t, err)
	assert.InDelta(t, 12.0, res.DipPct, 1e-9)
	assert.Equal(t, models.DipSignificant, res.Severity)
}

func TestAdjustForSplit(t *testing.T) {
	prices := []float64{100, 200, 300}
	adjusted := AdjustForSplit(prices, 2)
	assert.Equal(t, []float64{50, 100, 150}, adjusted)
}

func TestIncrementalTracker_MatchesBatch(t *testing.T) {
	highs := []float64{5, 8, 3, 9, 2}
	tr := NewIncrementalTracker(highs[:3], 3)
	got := tr.Push(highs[3])
	batch, err := RollingHigh(highs[:4], 3)
	require.NoError(t, err)
	assert.Equal(t, batch, got)
}
