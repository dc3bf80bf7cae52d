// Package schedule computes the next valid send instant for a recurring
// daily campaign. All arithmetic is calendar-based in the configured
// timezone so DST transitions keep the local time-of-day stable.
package schedule

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"time"
)

var (
	// ErrInvalidTime marks a time-of-day string that does not match
	// 24-hour HH:MM[:SS]. Fatal configuration error.
	ErrInvalidTime = errors.New("schedule: invalid time of day")

	// ErrInvalidTimezone marks an unrecognized IANA timezone identifier.
	ErrInvalidTimezone = errors.New("schedule: invalid timezone")

	// ErrScheduleUnreachable means the candidate was still in the past
	// after the single automatic rollover. Retries are bounded to exactly
	// one rollover; anything beyond that is clock skew or misconfiguration.
	ErrScheduleUnreachable = errors.New("schedule: send time unreachable")
)

var timeOfDayPattern = regexp.MustCompile(`^(\d{2}):(\d{2})(?::(\d{2}))?$`)

// iso8601Layouts are the accepted wire formats, ordered by likelihood.
// RFC3339 covers Z and colon offsets; the remaining layouts cover compact
// offsets the platform emits.
var iso8601Layouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05-0700",
	"2006-01-02T15:04:05Z0700",
}

// TimeOfDay is a wall-clock time within a calendar day.
type TimeOfDay struct {
	Hour   int
	Minute int
	Second int
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d:%02d", t.Hour, t.Minute, t.Second)
}

// ParseTimeOfDay validates a 24-hour HH:MM or HH:MM:SS string.
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	m := timeOfDayPattern.FindStringSubmatch(s)
	if m == nil {
		return TimeOfDay{}, fmt.Errorf("%w: %q does not match HH:MM[:SS]", ErrInvalidTime, s)
	}

	hour, _ := strconv.Atoi(m[1])
	minute, _ := strconv.Atoi(m[2])
	second := 0
	if m[3] != "" {
		second, _ = strconv.Atoi(m[3])
	}

	if hour > 23 || minute > 59 || second > 59 {
		return TimeOfDay{}, fmt.Errorf("%w: %q is out of range", ErrInvalidTime, s)
	}

	return TimeOfDay{Hour: hour, Minute: minute, Second: second}, nil
}

// LoadTimezone resolves an IANA timezone identifier.
func LoadTimezone(name string) (*time.Location, error) {
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrInvalidTimezone, name, err)
	}
	return loc, nil
}

// NextSendTime computes the next strictly-future instant at tod in loc.
// The candidate for today's date rolls forward by exactly one calendar day
// when it has already passed; a candidate still in the past afterwards
// fails with ErrScheduleUnreachable.
func NextSendTime(tod TimeOfDay, loc *time.Location, now time.Time) (time.Time, error) {
	year, month, day := now.In(loc).Date()
	return nextSendTimeFromDate(year, month, day, tod, loc, now)
}

// nextSendTimeFromDate separates the calendar date from the clock so the
// bounded-rollover guard stays reachable when the two disagree.
func nextSendTimeFromDate(year int, month time.Month, day int, tod TimeOfDay, loc *time.Location, now time.Time) (time.Time, error) {
	candidate := time.Date(year, month, day, tod.Hour, tod.Minute, tod.Second, 0, loc)
	if HasPassed(candidate, now) {
		// Calendar-day addition, not 24h: time.Date renormalizes the date
		// and recomputes the offset across DST transitions.
		candidate = time.Date(year, month, day+1, tod.Hour, tod.Minute, tod.Second, 0, loc)
	}
	if HasPassed(candidate, now) {
		return time.Time{}, fmt.Errorf("%w: %s is not in the future of %s",
			ErrScheduleUnreachable, FormatISO8601(candidate), FormatISO8601(now))
	}

	return candidate, nil
}

// HasPassed reports whether instant is at or before now. Equality counts
// as passed: schedules must be strictly future.
func HasPassed(instant, now time.Time) bool {
	return !instant.After(now)
}

// ParseISO8601 parses an ISO-8601 timestamp in any accepted layout.
func ParseISO8601(s string) (time.Time, error) {
	for _, layout := range iso8601Layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q is not a valid ISO-8601 timestamp", ErrInvalidTime, s)
}

// IsISO8601 reports whether s parses as an ISO-8601 timestamp.
func IsISO8601(s string) bool {
	_, err := ParseISO8601(s)
	return err == nil
}

// FormatISO8601 renders an instant in the wire format the platform accepts.
func FormatISO8601(t time.Time) string {
	return t.Format(time.RFC3339)
}

// Calculator binds the pure date arithmetic to a clock. The clock is
// injectable for tests.
type Calculator struct {
	now func() time.Time
}

func NewCalculator() *Calculator {
	return NewCalculatorWithClock(time.Now)
}

func NewCalculatorWithClock(now func() time.Time) *Calculator {
	if now == nil {
		now = time.Now
	}
	return &Calculator{now: now}
}

// NextSendTime parses the configured time-of-day and timezone and returns
// the next valid send instant relative to the calculator's clock.
func (c *Calculator) NextSendTime(dailyTimeOfDay, timezone string) (time.Time, error) {
	tod, err := ParseTimeOfDay(dailyTimeOfDay)
	if err != nil {
		return time.Time{}, err
	}

	loc, err := LoadTimezone(timezone)
	if err != nil {
		return time.Time{}, err
	}

	return NextSendTime(tod, loc, c.now())
}
