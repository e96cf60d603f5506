package entity

import (
	"fmt"
	"strings"
	"time"
)

// dateLayouts are the shapes dates arrive in from Qualer and from spreadsheet text cells.
var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04:05.999999999",
	time.RFC3339,
	time.RFC3339Nano,
	"01/02/2006",
	"1/2/2006",
}

// ParseDate parses s into a date-only value at midnight UTC.
// Empty input yields (nil, nil).
func ParseDate(s string) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			d := TruncateDate(t)
			return &d, nil
		}
	}
	return nil, fmt.Errorf("unrecognized date %q", s)
}

// TruncateDate strips the time of day, keeping the calendar date in UTC.
func TruncateDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// SameDate reports whether both dates are present and fall on the same calendar day.
func SameDate(a, b *time.Time) bool {
	if a == nil || b == nil {
		return false
	}
	return TruncateDate(*a).Equal(TruncateDate(*b))
}
