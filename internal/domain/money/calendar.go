package money

import "time"

// Midnight normalizes a timestamp to 00:00:00 of its day in the given location.
func Midnight(t time.Time, loc *time.Location) time.Time {
	local := t.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
}

// EndOfDay normalizes a timestamp to 23:59:59 of its day in the given location.
// Due dates carry this convention so that a payment on the due date itself is
// never overdue.
func EndOfDay(t time.Time, loc *time.Location) time.Time {
	local := t.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 23, 59, 59, 0, loc)
}

// DaysBetween returns the number of calendar days between two timestamps in
// the given location. The dates are re-anchored in UTC before differencing so
// a DST transition inside the span cannot shorten a day out of the count. The
// result is negative when to precedes from.
func DaysBetween(from, to time.Time, loc *time.Location) int {
	f := from.In(loc)
	t := to.In(loc)
	fromDate := time.Date(f.Year(), f.Month(), f.Day(), 0, 0, 0, 0, time.UTC)
	toDate := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return int(toDate.Sub(fromDate).Hours() / 24)
}

// DaysInMonth returns the number of days of the month containing t.
func DaysInMonth(year int, month time.Month, loc *time.Location) int {
	// Day 0 of the next month is the last day of this month.
	return time.Date(year, month+1, 0, 0, 0, 0, 0, loc).Day()
}

// AddMonthsClamped advances a timestamp by a number of calendar months,
// clamping a day-of-month overflow to the last day of the target month
// (Jan 31 + 1 month = Feb 28/29). Time-of-day is preserved.
func AddMonthsClamped(t time.Time, months int, loc *time.Location) time.Time {
	local := t.In(loc)
	year, month, day := local.Date()

	// Normalize the target month without letting the day spill over first.
	target := time.Date(year, month+time.Month(months), 1, 0, 0, 0, 0, loc)
	if max := DaysInMonth(target.Year(), target.Month(), loc); day > max {
		day = max
	}

	return time.Date(target.Year(), target.Month(), day,
		local.Hour(), local.Minute(), local.Second(), local.Nanosecond(), loc)
}
