// Package datetime provides date and time utility functions.
package datetime

import (
	"fmt"
	"strings"
	"time"

	"github.com/iwvelando/options-risk/pkg/constants"
)

// DateLayout is the format expected for dates in config files.
const DateLayout = constants.DateLayout

// MustParseTime parses a date string using the given layout and panics on error.
// This is intended for use in tests where the date string is known to be valid.
func MustParseTime(layout, dateStr string) time.Time {
	t, err := time.Parse(layout, dateStr)
	if err != nil {
		panic(err)
	}
	return t
}

// ParseDate parses a DateLayout date.
func ParseDate(date string) (time.Time, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(date))
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, expected %s: %w", date, DateLayout, err)
	}
	return t, nil
}

// Day truncates t to midnight UTC of its calendar date.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// YearFraction returns the time from start to end in years on an
// actual/365 calendar-day basis.
func YearFraction(start, end time.Time) float64 {
	days := Day(end).Sub(Day(start)).Hours() / 24
	return days / constants.DaysPerYear
}

// ExpiryYears converts an expiry date into years from the valuation date.
// Expiries on or before the valuation date are rejected.
func ExpiryYears(valuation time.Time, expiry string) (float64, error) {
	expiryT, err := ParseDate(expiry)
	if err != nil {
		return 0, err
	}
	if !Day(expiryT).After(Day(valuation)) {
		return 0, fmt.Errorf("expiry %s is not after valuation date %s", expiry, Day(valuation).Format(DateLayout))
	}
	return YearFraction(valuation, expiryT), nil
}
