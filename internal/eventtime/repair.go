package eventtime

import "time"

// LookBack is how far in the past a parsed start may lie before its
// year is assumed to be missing and moved forward.
const LookBack = 90 * 24 * time.Hour

// Wall returns the wall clock of naive (year..second) placed in loc.
func Wall(naive time.Time, loc *time.Location) time.Time {
	return time.Date(naive.Year(), naive.Month(), naive.Day(),
		naive.Hour(), naive.Minute(), naive.Second(), 0, loc)
}

// FixYear places naive in loc and keeps moving it a year forward while
// it lies more than LookBack before now. A Feb 29 that would land in a
// non-leap year stops the advance.
func FixYear(naive time.Time, loc *time.Location, now time.Time) time.Time {
	t := Wall(naive, loc)
	limit := now.Add(-LookBack)

	for t.Before(limit) {
		year := t.Year() + 1
		if isFeb29(t) && !isLeap(year) {
			break
		}
		t = time.Date(year, t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), 0, loc)
	}
	return t
}

// FixEnd places the wall clock of naiveEnd in loc using the year of
// start. An end before start is moved a day forward, and if that is
// still not enough, a year forward.
func FixEnd(start, naiveEnd time.Time, loc *time.Location) time.Time {
	year := start.Year()
	month, day := naiveEnd.Month(), naiveEnd.Day()
	h, m, s := naiveEnd.Clock()

	if month == time.February && day == 29 && !isLeap(year) {
		day = 28
	}

	end := time.Date(year, month, day, h, m, s, 0, loc)
	if !end.Before(start) {
		return end
	}

	nextDay := time.Date(year, month, day+1, h, m, s, 0, loc)
	if !nextDay.Before(start) {
		return nextDay
	}

	if month == time.February && day == 29 && !isLeap(year+1) {
		return nextDay
	}
	return time.Date(year+1, month, day, h, m, s, 0, loc)
}

func isFeb29(t time.Time) bool {
	return t.Month() == time.February && t.Day() == 29
}

func isLeap(year int) bool {
	return year%4 == 0 && (year%100 != 0 || year%400 == 0)
}
