package domain

import (
	"time"
)

// Weekday numbering follows the store's convention: Monday=2 .. Sunday=8.

const (
	WeekdayMonday = 2
	WeekdaySunday = 8
)

// WeekdayOf maps a date to the 2..8 weekday encoding.
func WeekdayOf(t time.Time) int {
	wd := int(t.Weekday())
	if wd == 0 {
		return WeekdaySunday
	}
	return wd + 1
}

func ValidWeekday(weekday int) bool {
	return weekday >= WeekdayMonday && weekday <= WeekdaySunday
}

// TruncateToDate drops the time-of-day component, keeping the location.
func TruncateToDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func DateKey(t time.Time) string {
	return t.Format("2006-01-02")
}

func ParseDate(value string) (time.Time, error) {
	parsed, err := time.ParseInLocation("2006-01-02", value, time.Local)
	if err != nil {
		return time.Time{}, errValidationf("invalid date %q", value)
	}
	return parsed, nil
}

// SameDate compares the civil dates of two instants regardless of location.
func SameDate(a, b time.Time) bool {
	return DateKey(a) == DateKey(b)
}

// ValidHHMM accepts only fixed-width "HH:MM" clock strings. The fixed width
// is what makes lexical comparison of times valid throughout the engine.
func ValidHHMM(value string) bool {
	if len(value) != 5 {
		return false
	}
	_, err := time.Parse("15:04", value)
	return err == nil
}

// Overlaps reports whether [aStart,aEnd) and [bStart,bEnd) strictly
// intersect. Operands must be fixed-width HH:MM strings.
func Overlaps(aStart, aEnd, bStart, bEnd string) bool {
	return aStart < bEnd && aEnd > bStart
}

func validateTimeRange(start, end string) error {
	if !ValidHHMM(start) {
		return errValidationf("invalid start time %q", start)
	}
	if !ValidHHMM(end) {
		return errValidationf("invalid end time %q", end)
	}
	if start >= end {
		return errValidationf("start time %s not before end time %s", start, end)
	}
	return nil
}
