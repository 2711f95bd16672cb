// Package timeutil provides calendar-day utilities for the SocialDetox core.
// All scoring windows (today, last 7 days, current month, battle windows) are
// defined on whole calendar days in the application timezone, so every
// component must agree on where a day starts and ends.
// No external dependencies - uses only standard library.
package timeutil

import (
	"math"
	"time"
)

// AppTZ is the application timezone, Europe/Berlin unless overridden via
// SetAppTZ. Daily usage records are keyed by the calendar day the user
// experienced, which for our user base is the Berlin day, DST included.
var AppTZ = loadAppTZ()

func loadAppTZ() *time.Location {
	loc, err := time.LoadLocation("Europe/Berlin")
	if err != nil {
		// tzdata missing in a minimal container; CET without DST is the
		// closest safe fallback.
		return time.FixedZone("CET", 1*60*60)
	}
	return loc
}

// SetAppTZ overrides the application timezone. The binaries call it once at
// startup with the configured zone, before any scoring window is computed;
// it is not synchronized against the helpers below.
func SetAppTZ(loc *time.Location) {
	if loc == nil {
		return
	}
	AppTZ = loc
}

// Now returns the current time in the application timezone.
func Now() time.Time {
	return time.Now().In(AppTZ)
}

// ToApp converts a time to the application timezone.
func ToApp(t time.Time) time.Time {
	return t.In(AppTZ)
}

// Date creates a time at midnight in the application timezone.
func Date(year, month, day int) time.Time {
	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, AppTZ)
}

// StartOfDay returns the start of the day (00:00:00) in the application timezone.
func StartOfDay(t time.Time) time.Time {
	local := ToApp(t)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, AppTZ)
}

// EndOfDay returns the end of the day (23:59:59.999999999) in the application timezone.
func EndOfDay(t time.Time) time.Time {
	local := ToApp(t)
	return time.Date(local.Year(), local.Month(), local.Day(), 23, 59, 59, 999999999, AppTZ)
}

// AddDays returns the time shifted by n calendar days.
// AddDate is used instead of Add(24h) so DST transitions keep midnight at midnight.
func AddDays(t time.Time, n int) time.Time {
	return ToApp(t).AddDate(0, 0, n)
}

// WeekWindow returns the start and end days of the 7-day scoring window
// ending on the given day inclusive. Both bounds are midnight-normalized.
func WeekWindow(today time.Time) (from, to time.Time) {
	to = StartOfDay(today)
	from = AddDays(to, -6)
	return from, to
}

// DayOfMonth returns the day-of-month (1-31) in the application timezone.
func DayOfMonth(t time.Time) int {
	return ToApp(t).Day()
}

// StartOfMonth returns the start of the month in the application timezone.
func StartOfMonth(t time.Time) time.Time {
	local := ToApp(t)
	return time.Date(local.Year(), local.Month(), 1, 0, 0, 0, 0, AppTZ)
}

// IsSameDay checks if two times fall on the same calendar day in the application timezone.
func IsSameDay(t1, t2 time.Time) bool {
	a1, a2 := ToApp(t1), ToApp(t2)
	return a1.Year() == a2.Year() && a1.YearDay() == a2.YearDay()
}

// DaysBetween returns the number of whole calendar days between two times.
// The result is always non-negative. Rounding absorbs the 23h/25h days that
// DST transitions produce.
func DaysBetween(t1, t2 time.Time) int {
	a1 := StartOfDay(t1)
	a2 := StartOfDay(t2)
	hours := a2.Sub(a1).Hours()
	days := int(math.Round(hours / 24))
	if days < 0 {
		return -days
	}
	return days
}

// EachDay calls fn for every calendar day in [from, to] inclusive.
// Both bounds are normalized to midnight first. Iteration stops early
// if fn returns false.
func EachDay(from, to time.Time, fn func(day time.Time) bool) {
	day := StartOfDay(from)
	last := StartOfDay(to)
	for !day.After(last) {
		if !fn(day) {
			return
		}
		day = AddDays(day, 1)
	}
}

// Common date formats.
const (
	// FormatDate is the canonical date format for record keys (YYYY-MM-DD).
	FormatDate = "2006-01-02"
	// FormatDateTime is the standard datetime format for logs.
	FormatDateTime = "2006-01-02 15:04"
)

// DateKey formats a time as the canonical YYYY-MM-DD record key.
func DateKey(t time.Time) string {
	return ToApp(t).Format(FormatDate)
}

// ParseDateKey parses a YYYY-MM-DD key in the application timezone.
func ParseDateKey(value string) (time.Time, error) {
	return time.ParseInLocation(FormatDate, value, AppTZ)
}
