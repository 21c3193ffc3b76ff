package justwatch

import (
	"math"
	"time"
)

// ISOWeek returns the ISO-8601 week number of t's calendar date.
//
// The date is taken in t's own location and moved to UTC midnight, then
// shifted to the Thursday of the same Monday-based week. The week number is
// the count of 7-day blocks from January 1 of that Thursday's year.
func ISOWeek(t time.Time) int {
	y, m, dd := t.Date()
	d := time.Date(y, m, dd, 0, 0, 0, 0, time.UTC)

	weekday := int(d.Weekday())
	if weekday == 0 {
		weekday = 7
	}
	d = d.AddDate(0, 0, 4-weekday)

	yearStart := time.Date(d.Year(), time.January, 1, 0, 0, 0, 0, time.UTC)
	days := d.Sub(yearStart).Hours() / 24
	return int(math.Ceil((days + 1) / 7))
}

// upcomingWeek returns the calendar year and ISO week used for the
// upcoming-cinema path. The year is the calendar year of the shifted date,
// not the ISO week-numbering year.
func upcomingWeek(now time.Time, weeksOffset int) (year, week int) {
	d := now.AddDate(0, 0, weeksOffset*7)
	return d.Year(), ISOWeek(d)
}
