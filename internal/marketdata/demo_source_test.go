package marketdata

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDemoSource_FetchReturnsOrderedAscendingBars(t *testing.T) {
	src := NewDemoSource()
	bars, err := src.Fetch(context.Background(), "BHP", "1d", 30)
	require.NoError(t, err)
	require.Len(t, bars, 30)

	for i := 1; i < len(bars); i++ {
		assert.True(t, bars[i].Timestamp.After(bars[i-1].Timestamp))
		assert.GreaterOrEqual(t, bars[i].Volume, 0.0)
		assert.GreaterOrEqual(t, bars[i].High, bars[i].Low)
	}
}

func TestDemoSource_SameSymbolIsStableWithinProcess(t *testing.T) {
	src := NewDemoSource()
	first, err := src.Fetch(context.Background(), "CBA", "1d", 10)
	require.NoError(t, err)
	second, err := src.Fetch(context.Background(), "CBA", "1d", 10)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestDemoSource_DifferentSymbolsDiffer(t *testing.T) {
	src := NewDemoSource()
	a, err := src.Fetch(context.Background(), "BHP", "1d", 10)
	require.NoError(t, err)
	b, err := src.Fetch(context.Background(), "CBA", "1d", 10)
	require.NoError(t, err)
	assert.NotEqual(t, a[0].Close, b[0].Close)
}

func TestDemoSource_ZeroLookbackReturnsEmpty(t *testing.T) {
	src := NewDemoSource()
	bars, err := src.Fetch(context.Background(), "BHP", "1d", 0)
	require.NoError(t, err)
	assert.Empty(t, bars)
}
