package core

import (
	"math"
	"time"
)

// Day is the analysis resolution; all window arithmetic happens on calendar days in UTC.
const Day = 24 * time.Hour

// DayStart truncates t to midnight UTC.
func DayStart(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// AddDays shifts a day-truncated time by n calendar days.
func AddDays(t time.Time, n int) time.Time {
	return DayStart(t).AddDate(0, 0, n)
}

// DaysBetween returns the whole number of calendar days from a to b (negative if b is before a).
func DaysBetween(a, b time.Time) int {
	return int(math.Round(DayStart(b).Sub(DayStart(a)).Hours() / 24))
}

// FractionalDays returns the exact elapsed days from a to b.
func FractionalDays(a, b time.Time) float64 {
	return b.Sub(a).Hours() / 24
}

// WithinDays reports whether t falls on a calendar day in [from, to].
func WithinDays(t, from, to time.Time) bool {
	d := DayStart(t)
	return !d.Before(DayStart(from)) && !d.After(DayStart(to))
}

// FormatDate renders a date the way reports print it.
func FormatDate(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}
