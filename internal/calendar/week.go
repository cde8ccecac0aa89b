// Package calendar implements the shared weekly-grid logic used by every
// surface: week-range calculation, time-slot generation and per-cell
// availability classification. Everything here is pure and operates on
// local calendar days.
package calendar

import "time"

// WeekAnchor selects which weekday a displayed week starts on.
type WeekAnchor int

const (
	AnchorSunday WeekAnchor = iota
	AnchorMonday
)

// WeekStart returns the local midnight of the anchor day of the week
// containing pivot.
func WeekStart(pivot time.Time, anchor WeekAnchor) time.Time {
	day := time.Date(pivot.Year(), pivot.Month(), pivot.Day(), 0, 0, 0, 0, pivot.Location())
	offset := int(day.Weekday())
	if anchor == AnchorMonday {
		offset = (int(day.Weekday()) + 6) % 7
	}
	return day.AddDate(0, 0, -offset)
}

// WeekDays returns the 7 consecutive local calendar days of the week
// containing pivot, starting on the anchor day.
func WeekDays(pivot time.Time, anchor WeekAnchor) [7]time.Time {
	var days [7]time.Time
	start := WeekStart(pivot, anchor)
	for i := range days {
		days[i] = start.AddDate(0, 0, i)
	}
	return days
}

// NextWeek shifts the pivot forward by exactly 7 days.
func NextWeek(pivot time.Time) time.Time {
	return pivot.AddDate(0, 0, 7)
}

// PreviousWeek shifts the pivot back by exactly 7 days.
func PreviousWeek(pivot time.Time) time.Time {
	return pivot.AddDate(0, 0, -7)
}

// CanGoToPreviousWeek reports whether the "previous week" control should be
// enabled: false once the visible week's start is on or before today.
func CanGoToPreviousWeek(pivot, now time.Time, anchor WeekAnchor) bool {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	return WeekStart(pivot, anchor).After(today)
}

// DateKey formats a day the way the backend keys dates.
func DateKey(day time.Time) string {
	return day.Format("2006-01-02")
}

// SameDay reports whether two instants fall on the same local calendar day.
func SameDay(a, b time.Time) bool {
	return a.Year() == b.Year() && a.YearDay() == b.YearDay()
}
