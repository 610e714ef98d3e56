package utils

import (
	"fmt"
	"time"
)

// DayLayout is the storage format of a business day.
const DayLayout = "2006-01-02"

// DefaultTimezone is the civil timezone order days are counted in.
const DefaultTimezone = "Asia/Kolkata"

// Clock supplies the current instant; tests inject a fixed one.
type Clock interface {
	Now() time.Time
}

type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// FixedClock always reports the same instant.
type FixedClock struct {
	At time.Time
}

func (c FixedClock) Now() time.Time { return c.At }

// LoadLocation falls back to a fixed +05:30 zone when tzdata is missing.
func LoadLocation(name string) *time.Location {
	if name == "" {
		name = DefaultTimezone
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.FixedZone("IST", 5*3600+1800)
	}
	return loc
}

// BusinessDay returns the civil date of t in loc.
func BusinessDay(t time.Time, loc *time.Location) string {
	return t.In(loc).Format(DayLayout)
}

// ParseDay validates a YYYY-MM-DD day string.
func ParseDay(day string) (string, error) {
	t, err := time.Parse(DayLayout, day)
	if err != nil {
		return "", fmt.Errorf("invalid date %q, expected YYYY-MM-DD", day)
	}
	return t.Format(DayLayout), nil
}
