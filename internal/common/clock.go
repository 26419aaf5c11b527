package common

import "time"

// SystemClock is the production interfaces.Clock: wall-clock UTC plus the
// configured exchange-local zone for quiet-hours/market-hours gating.
type SystemClock struct {
	loc *time.Location
}

// NewSystemClock constructs a SystemClock against loc (falls back to UTC
// if loc is nil, e.g. an unresolvable IANA timezone name).
func NewSystemClock(loc *time.Location) *SystemClock {
	if loc == nil {
		loc = time.UTC
	}
	return &SystemClock{loc: loc}
}

// Now returns the current UTC instant.
func (c *SystemClock) Now() time.Time { return time.Now().UTC() }

// LocalNow returns the current time in the configured exchange-local zone.
func (c *SystemClock) LocalNow() time.Time { return time.Now().In(c.loc) }
