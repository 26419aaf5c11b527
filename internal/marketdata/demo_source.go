// Package marketdata provides a local, deterministic BarSource stand-in.
// Concrete vendor integrations (EODHD, ASX data feeds, broker APIs) are
// external collaborators out of scope for this spec (spec.md §1) - this
// package exists only so the evaluation pipeline has something to fetch
// from in local runs and tests, not as a vendor client.
package marketdata

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/ternarybob/dipsentry/internal/models"
)

// DemoSource generates a deterministic synthetic daily bar series per
// symbol, seeded from the symbol name so repeated calls for the same
// symbol are stable within a process run (spec.md §8 "identical inputs
// must yield bit-identical outputs" applies to C1/C2; this just needs to
// feed them something consistent).
type DemoSource struct {
	mu    sync.Mutex
	seeds map[string]int64
}

// NewDemoSource constructs an empty DemoSource.
func NewDemoSource() *DemoSource {
	return &DemoSource{seeds: make(map[string]int64)}
}

// Fetch returns lookback daily bars ending "today" (UTC midnight),
// ignoring interval (always daily) - the demo source has no intraday
// concept, matching the spec's "1d" alert-cycle/sector-cycle usage.
func (d *DemoSource) Fetch(ctx context.Context, symbol string, interval string, lookback int) ([]models.Bar, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	if lookback <= 0 {
		return nil, nil
	}

	seed := d.seedFor(symbol)
	bars := make([]models.Bar, lookback)

	price := 50.0 + float64(seed%4000)/10.0 // base price in [50, 450)
	today := time.Now().UTC().Truncate(24 * time.Hour)
	state := seed

	for i := 0; i < lookback; i++ {
		state = nextState(state)
		drift := (float64(state%2001) - 1000) / 100000.0 // +-1% daily drift
		price = math.Max(1, price*(1+drift))

		state = nextState(state)
		spread := price * (float64(state%300) / 10000.0)

		open := price - spread/2
		high := price + spread
		low := math.Max(0.01, price-spread)
		closePx := price

		state = nextState(state)
		volume := 500_000 + float64(state%2_000_000)

		bars[i] = models.Bar{
			Timestamp: today.AddDate(0, 0, i-lookback+1),
			Open:      open,
			High:      high,
			Low:       low,
			Close:     closePx,
			Volume:    volume,
		}
	}

	return bars, nil
}

func (d *DemoSource) seedFor(symbol string) int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	if seed, ok := d.seeds[symbol]; ok {
		return seed
	}
	var h int64 = 1469598103934665603
	for _, r := range symbol {
		h ^= int64(r)
		h *= 1099511628211
	}
	if h < 0 {
		h = -h
	}
	d.seeds[symbol] = h
	return h
}

// nextState is a small xorshift-style step, kept dependency-free and
// deterministic (package-level math/rand would drift across Go versions).
func nextState(x int64) int64 {
	x ^= x << 13
	x ^= x >> 7
	x ^= x << 17
	if x < 0 {
		x = -x
	}
	return x
}
