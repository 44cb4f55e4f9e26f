// Package dates holds the billing-date arithmetic shared by the intake,
// webhook and recurring-charge workflows. All calculations are UTC.
package dates

import "time"

// AddOneMonth advances t by one calendar month keeping the day-of-month.
// When the target month is shorter the day clamps to its last day, so
// Jan 31 becomes Feb 29 on leap years and Feb 28 otherwise.
func AddOneMonth(t time.Time) time.Time {
	t = t.UTC()
	year, month, day := t.Date()

	next := time.Date(year, month+1, 1, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC)
	if last := daysIn(next.Year(), next.Month()); day > last {
		day = last
	}
	return time.Date(next.Year(), next.Month(), day, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC)
}

// MonthStartUTC returns midnight UTC on the first day of t's month.
func MonthStartUTC(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// YearMonth renders t as yyyymm, used to scope charge references.
func YearMonth(t time.Time) string {
	return t.UTC().Format("200601")
}

func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
