// Package timeslot turns the textual date and time-of-day fields of a booking
// into comparable instants and defines how two booked intervals overlap.
package timeslot

import (
	"regexp"
	"strings"
	"time"
)

const (
	DateLayout  = "2006-01-02"
	ClockLayout = "15:04"
)

var (
	datePattern  = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	clockPattern = regexp.MustCompile(`^\d{2}:\d{2}$`)
	nonAlnum     = regexp.MustCompile(`[^A-Za-z0-9]`)
)

// ParseInstant combines a YYYY-MM-DD date and an HH:MM clock time into a UTC
// instant. It reports false when either part is malformed or names an
// impossible date or time.
func ParseInstant(date, clock string) (time.Time, bool) {
	if !datePattern.MatchString(date) || !clockPattern.MatchString(clock) {
		return time.Time{}, false
	}
	t, err := time.Parse(DateLayout+" "+ClockLayout, date+" "+clock)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// ValidDate reports whether date is a real calendar date in YYYY-MM-DD form.
func ValidDate(date string) bool {
	_, ok := ParseInstant(date, "00:00")
	return ok
}

// Interval is the half-open range [Start, End).
type Interval struct {
	Start time.Time
	End   time.Time
}

// Parse builds the interval for a booking. It reports false when either bound
// does not parse or when start is not strictly before end.
func Parse(date, start, end string) (Interval, bool) {
	s, ok := ParseInstant(date, start)
	if !ok {
		return Interval{}, false
	}
	e, ok := ParseInstant(date, end)
	if !ok || !s.Before(e) {
		return Interval{}, false
	}
	return Interval{Start: s, End: e}, true
}

// Overlaps reports whether two half-open intervals share any instant.
// Intervals that only touch at an endpoint do not overlap.
func (i Interval) Overlaps(o Interval) bool {
	return i.Start.Before(o.End) && i.End.After(o.Start)
}

// Contains reports whether t lies within the closed range [Start, End].
func (i Interval) Contains(t time.Time) bool {
	return !t.Before(i.Start) && !t.After(i.End)
}

// NormalizeResource maps a free-text room name onto a key-safe token.
func NormalizeResource(resource string) string {
	return nonAlnum.ReplaceAllString(strings.TrimSpace(resource), "_")
}

// LockKey is the serialization key shared by every admission for the same
// room and date.
func LockKey(resource, date string) string {
	return NormalizeResource(resource) + "__" + date
}
