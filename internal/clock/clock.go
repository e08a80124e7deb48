// Package clock converts between clock-time strings and minute offsets and
// provides the time source used by availability and the completion sweep.
package clock

import (
	"fmt"
	"strings"
	"time"

	"github.com/hackgods/clinic-appointment-booking/internal/apperr"
)

const (
	MinutesPerDay = 24 * 60
	DateLayout    = "2006-01-02"
)

// ToMinutes parses "HH:MM" (or the stored "HH:MM:00") into minutes since midnight.
func ToMinutes(s string) (int, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 2 && len(parts) != 3 {
		return 0, apperr.Validation("invalid time %q: expected HH:MM", s)
	}

	hour, err := parseField(parts[0], 23)
	if err != nil {
		return 0, apperr.Validation("invalid time %q: hour %v", s, err)
	}
	minute, err := parseField(parts[1], 59)
	if err != nil {
		return 0, apperr.Validation("invalid time %q: minute %v", s, err)
	}
	if len(parts) == 3 {
		sec, err := parseField(parts[2], 59)
		if err != nil || sec != 0 {
			return 0, apperr.Validation("invalid time %q: seconds must be 00", s)
		}
	}

	return hour*60 + minute, nil
}

// FromMinutes formats minutes since midnight as zero padded "HH:MM".
func FromMinutes(m int) (string, error) {
	if m < 0 || m >= MinutesPerDay {
		return "", apperr.Validation("minutes %d out of range [0, %d]", m, MinutesPerDay-1)
	}
	return fmt.Sprintf("%02d:%02d", m/60, m%60), nil
}

// Normalize returns the canonical "HH:MM" form of s.
func Normalize(s string) (string, error) {
	m, err := ToMinutes(s)
	if err != nil {
		return "", err
	}
	return FromMinutes(m)
}

// StoreFormat returns the "HH:MM:SS" form persisted in time columns.
func StoreFormat(s string) (string, error) {
	hm, err := Normalize(s)
	if err != nil {
		return "", err
	}
	return hm + ":00", nil
}

// ParseDate parses a YYYY-MM-DD calendar date as midnight UTC.
func ParseDate(s string) (time.Time, error) {
	d, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, apperr.Validation("invalid date %q: expected YYYY-MM-DD", s)
	}
	return d, nil
}

// DateOf truncates t to its calendar day in t's location, returned as midnight UTC
// so it compares equal to dates read back from the database.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func parseField(s string, max int) (int, error) {
	if len(s) == 0 || len(s) > 2 {
		return 0, fmt.Errorf("must be one or two digits")
	}
	n := 0
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return 0, fmt.Errorf("must be one or two digits")
		}
		n = n*10 + int(s[i]-'0')
	}
	if n > max {
		return 0, fmt.Errorf("out of range 0-%d", max)
	}
	return n, nil
}
