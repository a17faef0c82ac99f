package loan

import "time"

// AddMonths returns the date n calendar months after t, clamping the day of
// month to the last valid day of the target month. Jan 31 + 1 month is
// Feb 28 (or Feb 29 in a leap year), never an overflow into March.
// time.Time.AddDate normalizes instead of clamping, which is wrong for
// billing dates.
func AddMonths(t time.Time, n int) time.Time {
	year, month, day := t.Date()

	total := int(month) - 1 + n
	year += total / 12
	month = time.Month(total%12 + 1)

	if last := daysInMonth(year, month); day > last {
		day = last
	}
	return time.Date(year, month, day, 0, 0, 0, 0, t.Location())
}

func daysInMonth(year int, month time.Month) int {
	// Day zero of the following month is the last day of this one.
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
