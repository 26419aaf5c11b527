package dip

// IncrementalTracker maintains a rolling window of highs that is fed one
// sample at a time. Each Push rescans the buffered window, so an update
// costs O(window). It mirrors the original source's IncrementalDipTracker (spec.md
// §4.1 "an incremental variant", supplemented per SPEC_FULL §4).
type IncrementalTracker struct {
	window int
	highs  []float64
}

// NewIncrementalTracker seeds a tracker from the most recent `window` highs.
func NewIncrementalTracker(highs []float64, window int) *IncrementalTracker {
	t := &IncrementalTracker{window: window}
	if len(highs) > window {
		t.highs = append(t.highs, highs[len(highs)-window:]...)
	} else {
		t.highs = append(t.highs, highs...)
	}
	return t
}

// Push appends a new high, evicting the oldest sample once the window is
// full, and returns the refreshed rolling high.
func (t *IncrementalTracker) Push(high float64) float64 {
	t.highs = append(t.highs, high)
	if len(t.highs) > t.window {
		t.highs = t.highs[len(t.highs)-t.window:]
	}
	max := t.highs[0]
	for _, h := range t.highs[1:] {
		if h > max {
			max = h
		}
	}
	return max
}

// Len reports how many samples are currently buffered.
func (t *IncrementalTracker) Len() int {
	return len(t.highs)
}
