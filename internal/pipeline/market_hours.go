package pipeline

import "time"

// MarketHours gates the sector cycle to exchange trading sessions; the
// alert cycle intentionally runs on every tick regardless (an open
// question resolved in favor of the rule evaluation table, not the
// exchange calendar - see DESIGN.md).
type MarketHours struct {
	Location              *time.Location
	OpenHour, OpenMinute   int
	CloseHour, CloseMinute int
	Weekdays               map[time.Weekday]bool
}

// NewDefaultMarketHours returns a Mon-Fri 10:00-16:00 session in loc,
// matching the ASX trading day.
func NewDefaultMarketHours(loc *time.Location) MarketHours {
	return MarketHours{
		Location:    loc,
		OpenHour:    10,
		CloseHour:   16,
		Weekdays: map[time.Weekday]bool{
			time.Monday:    true,
			time.Tuesday:   true,
			time.Wednesday: true,
			time.Thursday:  true,
			time.Friday:    true,
		},
	}
}

// IsOpen reports whether now falls within the configured trading session.
func (m MarketHours) IsOpen(now time.Time) bool {
	loc := m.Location
	if loc == nil {
		loc = time.UTC
	}
	local := now.In(loc)
	if !m.Weekdays[local.Weekday()] {
		return false
	}
	minutes := local.Hour()*60 + local.Minute()
	open := m.OpenHour*60 + m.OpenMinute
	close_ := m.CloseHour*60 + m.CloseMinute
	return minutes >= open && minutes < close_
}
