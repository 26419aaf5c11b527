package indicators

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSMA(t *testing.T) {
	values := []float64{1, 2, 3, 4, 5}
	got, err := SMA(values, 3)
	require.NoError(t, err)
	assert.InDelta(t, 4.0, got, 1e-9)

	_, err = SMA(values, 10)
	assert.Error(t, err)
}

func TestRSI_AllGains(t *testing.T) {
	values := make([]float64, 30)
	for i := range values {
		values[i] = float64(i)
	}
	rsi, err := RSI(values, RSIPeriod)
	require.NoError(t, err)
	assert.Equal(t, 100.0, rsi)
}

func TestRSI_InsufficientData(t *testing.T) {
	_, err := RSI([]float64{1, 2, 3}, RSIPeriod)
	assert.Error(t, err)
}

func TestRSI_Bounded(t *testing.T) {
	values := []float64{44.34, 44.09, 44.15, 43.61, 44.33, 44.83, 45.10, 45.42,
		45.84, 46.08, 45.89, 46.03, 45.61, 46.28, 46.28, 46.00, 46.03, 46.41,
		46.22, 45.64}
	rsi, err := RSI(values, RSIPeriod)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, rsi, 0.0)
	assert.LessOrEqual(t, rsi, 100.0)
}

func TestMACD_InsufficientData(t *testing.T) {
	_, err := MACD([]float64{1, 2, 3}, MACDFastPeriod, MACDSlowPeriod, MACDSignalPeriod)
	assert.Error(t, err)
}

func TestMACD_Computes(t *testing.T) {
	values := make([]float64, 60)
	for i := range values {
		values[i] = 100 + float64(i)*0.5
	}
	res, err := MACD(values, MACDFastPeriod, MACDSlowPeriod, MACDSignalPeriod)
	require.NoError(t, err)
	assert.InDelta(t, res.Line-res.Signal, res.Histogram, 1e-9)
}

func TestBollinger(t *testing.T) {
	values := make([]float64, 20)
	for i := range values {
		values[i] = 100
	}
	res, err := Bollinger(values, BollingerPeriod, BollingerK)
	require.NoError(t, err)
	assert.Equal(t, 100.0, res.Middle)
	assert.Equal(t, 100.0, res.Upper) // zero variance -> bands collapse to middle
	assert.Equal(t, 100.0, res.Lower)
}

func TestVolumeAverage(t *testing.T) {
	volumes := make([]float64, 20)
	for i := range volumes {
		volumes[i] = float64(i + 1)
	}
	avgVol, err := VolumeAverage(volumes, VolumeAveragePeriod)
	require.NoError(t, err)
	assert.InDelta(t, 10.5, avgVol, 1e-9)
}

func TestDeterministic(t *testing.T) {
	values := []float64{44.34, 44.09, 44.15, 43.61, 44.33, 44.83, 45.10, 45.42,
		45.84, 46.08, 45.89, 46.03, 45.61, 46.28, 46.28, 46.00, 46.03, 46.41,
		46.22, 45.64}
	a, err1 := RSI(values, RSIPeriod)
	b, err2 := RSI(values, RSIPeriod)
	require.NoError(t, err1)
	require.NoError(t, err2)
	assert.Equal(t, a, b)
}

func TestIncremental_MatchesBatchRSI(t *testing.T) {
	values := make([]float64, 40)
	for i := range values {
		values[i] = 100 + float64(i%7) - float64(i%3)
	}

	inc := NewIncremental(values[:RSIPeriod+1])
	require.True(t, inc.Warm())

	for i := RSIPeriod + 1; i < len(values); i++ {
		incRSI, _ := inc.Update(values[i])
		batchRSI, err := RSI(values[:i+1], RSIPeriod)
		require.NoError(t, err)
		assert.InDelta(t, batchRSI, incRSI, 1e-6)
	}
}
