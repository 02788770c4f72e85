package core

import "time"

// MonthKey formats a timestamp as the YYYY-MM month string used by ledger
// date filters.
func MonthKey(t time.Time) string {
	return t.Format("2006-01")
}

// PrevMonthKey returns the month string for the calendar month before t.
func PrevMonthKey(t time.Time) string {
	first := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
	return first.AddDate(0, -1, 0).Format("2006-01")
}

// DayKey formats a timestamp as YYYY-MM-DD.
func DayKey(t time.Time) string {
	return t.Format("2006-01-02")
}

// DaysInMonth returns the number of calendar days in t's month.
func DaysInMonth(t time.Time) int {
	first := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
	return first.AddDate(0, 1, -1).Day()
}

// DaysRemaining counts the days left in t's month including t itself.
// Never less than 1, so it is always safe as a divisor.
func DaysRemaining(t time.Time) int {
	remaining := DaysInMonth(t) - t.Day() + 1
	if remaining < 1 {
		return 1
	}
	return remaining
}
