package models

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Clock is a time of day with minute precision. The sheet stores these as
// loosely formatted "H:mm" strings, so the type exists mostly to stop raw
// strings from leaking past the parsing boundary.
type Clock struct {
	Hour   int
	Minute int
}

// ParseClock parses a lenient "H:mm" string: surrounding whitespace and a
// trailing seconds component are tolerated, single-digit hours are fine.
func ParseClock(raw string) (Clock, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return Clock{}, fmt.Errorf("empty time string")
	}

	parts := strings.Split(s, ":")
	if len(parts) != 2 && len(parts) != 3 {
		return Clock{}, fmt.Errorf("malformed time %q", raw)
	}

	hour, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return Clock{}, fmt.Errorf("malformed hour in %q", raw)
	}
	minute, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return Clock{}, fmt.Errorf("malformed minute in %q", raw)
	}
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return Clock{}, fmt.Errorf("time %q out of range", raw)
	}

	return Clock{Hour: hour, Minute: minute}, nil
}

// Minutes returns minutes since midnight.
func (c Clock) Minutes() int {
	return c.Hour*60 + c.Minute
}

func (c Clock) Before(other Clock) bool {
	return c.Minutes() < other.Minutes()
}

func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute)
}

// Compact renders the clock as a four-digit "HHMM" token for use inside
// positional identifiers.
func (c Clock) Compact() string {
	return fmt.Sprintf("%02d%02d", c.Hour, c.Minute)
}

// At projects the time of day onto a calendar date, keeping its location.
func (c Clock) At(date time.Time) time.Time {
	return time.Date(date.Year(), date.Month(), date.Day(), c.Hour, c.Minute, 0, 0, date.Location())
}

// ClockOf extracts the time of day from an instant.
func ClockOf(t time.Time) Clock {
	return Clock{Hour: t.Hour(), Minute: t.Minute()}
}

func (c Clock) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.String())
}

func (c *Clock) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseClock(s)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// Overlaps reports whether the half-open intervals [s1,e1) and [s2,e2)
// intersect. The same rule is used for every conflict check in the system.
func Overlaps(s1, e1, s2, e2 time.Time) bool {
	return s1.Before(e2) && s2.Before(e1)
}

// ClocksOverlap applies the interval rule to times of day.
func ClocksOverlap(s1, e1, s2, e2 Clock) bool {
	return s1.Minutes() < e2.Minutes() && s2.Minutes() < e1.Minutes()
}
