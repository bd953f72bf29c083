package utils

import (
	"fmt"
	"os"
	"time"
)

const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04"
)

// LocalZone returns the time zone availability is judged in, configurable
// via APP_TZ. The deployment serves the Philippines.
func LocalZone() *time.Location {
	name := os.Getenv("APP_TZ")
	if name == "" {
		name = "Asia/Manila"
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.UTC // Fallback if the zone database is missing
	}
	return loc
}

// Today returns the current calendar date in the local zone.
func Today() string {
	return time.Now().In(LocalZone()).Format(DateLayout)
}

// MinuteOfDay parses an "HH:MM" wall-clock string into minutes since
// midnight.
func MinuteOfDay(clock string) (int, error) {
	t, err := time.Parse(TimeLayout, clock)
	if err != nil {
		return 0, fmt.Errorf("invalid time %q: %w", clock, err)
	}
	return t.Hour()*60 + t.Minute(), nil
}

// ClockString formats minutes since midnight back into "HH:MM".
func ClockString(minute int) string {
	return fmt.Sprintf("%02d:%02d", minute/60, minute%60)
}
