package model

import (
	"fmt"
	"strconv"
	"strings"
)

// TimeOfDay is a clock time at minute granularity, stored as minutes from
// midnight.  Reservations and resource operating hours use this type so that
// interval arithmetic is plain integer comparison and no time zone is ever
// involved: a resource's schedule is always expressed in resource-local time.
//
// The valid range is 0 (00:00) through 1440 (24:00 inclusive, so a closing
// time of midnight can be expressed).
type TimeOfDay int

// MinutesPerDay is the upper bound of a TimeOfDay value.
const MinutesPerDay = 24 * 60

// ParseClock parses a "HH:MM" string into a TimeOfDay.  It accepts 24:00 as
// the end-of-day instant but rejects anything else out of range.
func ParseClock(s string) (TimeOfDay, error) {
	parts := strings.SplitN(strings.TrimSpace(s), ":", 2)
	if len(parts) != 2 {
		return 0, fmt.Errorf("invalid clock time %q: want HH:MM", s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, fmt.Errorf("invalid clock time %q: %w", s, err)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, fmt.Errorf("invalid clock time %q: %w", s, err)
	}
	if m < 0 || m > 59 || h < 0 || h > 24 || (h == 24 && m != 0) {
		return 0, fmt.Errorf("clock time %q out of range", s)
	}
	return TimeOfDay(h*60 + m), nil
}

// Valid reports whether t lies within a single day.
func (t TimeOfDay) Valid() bool { return t >= 0 && t <= MinutesPerDay }

// Hour returns the hour component (0-24).
func (t TimeOfDay) Hour() int { return int(t) / 60 }

// Minute returns the minute component (0-59).
func (t TimeOfDay) Minute() int { return int(t) % 60 }

// String renders the time as "HH:MM".
func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour(), t.Minute())
}

// MarshalJSON encodes the time as a "HH:MM" JSON string.
func (t TimeOfDay) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(t.String())), nil
}

// UnmarshalJSON decodes a "HH:MM" JSON string.
func (t *TimeOfDay) UnmarshalJSON(b []byte) error {
	s, err := strconv.Unquote(string(b))
	if err != nil {
		return fmt.Errorf("clock time must be a string: %w", err)
	}
	v, err := ParseClock(s)
	if err != nil {
		return err
	}
	*t = v
	return nil
}
