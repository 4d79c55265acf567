package plaid

import "time"

// DefaultWindowDays is the trailing window used for transaction queries.
const DefaultWindowDays = 90

// TrailingWindow returns the calendar dates spanning the last days days
// ending on now's date.
func TrailingWindow(now time.Time, days int) (start, end time.Time) {
	y, m, d := now.Date()
	end = time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	start = end.AddDate(0, 0, -days)
	return start, end
}
