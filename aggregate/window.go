package aggregate

import "time"

// DayWindow returns the local-day fetch bounds for a calendar date:
// local midnight through the next local midnight minus one millisecond.
// The 1ms pullback keeps a payment stamped exactly at midnight out of
// the preceding day's window, so adjacent windows never double-count
// (closed-open semantics at day granularity).
func DayWindow(date time.Time, loc *time.Location) (begin, end time.Time) {
	begin = time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, loc)
	end = begin.AddDate(0, 0, 1).Add(-time.Millisecond)
	return begin, end
}
