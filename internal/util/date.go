package util

import (
	"math/rand"
	"time"
)

// RandIntRange returns a random int in [min, max].
func RandIntRange(r *rand.Rand, min int, max int) int {
	if max <= min {
		return min
	}
	return min + r.Intn(max-min+1)
}

// IsLeapYear reports whether year is a leap year.
func IsLeapYear(year int) bool {
	if year%400 == 0 {
		return true
	}
	if year%100 == 0 {
		return false
	}
	return year%4 == 0
}

// DaysInMonth returns the number of days for a given month in a year.
func DaysInMonth(year int, month int) int {
	switch month {
	case 2:
		if IsLeapYear(year) {
			return 29
		}
		return 28
	case 4, 6, 9, 11:
		return 30
	default:
		return 31
	}
}

// RandDate returns a UTC timestamp within span years after base.
// A zero span always yields base's year start.
func RandDate(r *rand.Rand, baseYear int, span int) time.Time {
	if span <= 0 {
		return time.Date(baseYear, time.January, 1, 0, 0, 0, 0, time.UTC)
	}
	year := RandIntRange(r, baseYear, baseYear+span)
	month := RandIntRange(r, 1, 12)
	day := RandIntRange(r, 1, DaysInMonth(year, month))
	return time.Date(year, time.Month(month), day,
		r.Intn(24), r.Intn(60), r.Intn(60), 0, time.UTC)
}
