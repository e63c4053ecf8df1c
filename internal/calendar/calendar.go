// Package calendar holds the date rules shared by the booking engine. All
// functions work on UTC calendar components and never shift time zones.
package calendar

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Clock abstracts the current time so rules can be tested deterministically.
type Clock interface {
	Now() time.Time
}

type SystemClock struct{}

func (SystemClock) Now() time.Time {
	return time.Now()
}

// FixedClock always returns T.
type FixedClock struct {
	T time.Time
}

func (c FixedClock) Now() time.Time {
	return c.T
}

// DateOf truncates t to midnight UTC of its UTC calendar date.
func DateOf(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func SameDate(a, b time.Time) bool {
	return DateOf(a).Equal(DateOf(b))
}

func IsBusinessDay(t time.Time) bool {
	switch t.UTC().Weekday() {
	case time.Saturday, time.Sunday:
		return false
	default:
		return true
	}
}

// BusinessDaysBetween counts Monday–Friday dates in [from, to).
func BusinessDaysBetween(from, to time.Time) int {
	start, end := DateOf(from), DateOf(to)
	if !start.Before(end) {
		return 0
	}

	days := int(end.Sub(start).Hours() / 24)
	weeks := days / 7
	count := weeks * 5

	for d := start.AddDate(0, 0, weeks*7); d.Before(end); d = d.AddDate(0, 0, 1) {
		if IsBusinessDay(d) {
			count++
		}
	}
	return count
}

// WeekStart returns Monday 00:00 UTC of the week containing t.
func WeekStart(t time.Time) time.Time {
	d := DateOf(t)
	offset := (int(d.Weekday()) + 6) % 7
	return d.AddDate(0, 0, -offset)
}

// WeekEnd returns the last instant of Friday in the week containing t.
func WeekEnd(t time.Time) time.Time {
	return WeekStart(t).AddDate(0, 0, 5).Add(-time.Nanosecond)
}

// ComposeClassInstant joins a class date and its "HH:MM" or "HH:MM:SS" start
// clock into one UTC instant. The date contributes only its UTC Y/M/D.
func ComposeClassInstant(date time.Time, clock string) (time.Time, error) {
	parts := strings.Split(strings.TrimSpace(clock), ":")
	if len(parts) < 2 || len(parts) > 3 {
		return time.Time{}, fmt.Errorf("invalid class time %q", clock)
	}

	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return time.Time{}, fmt.Errorf("invalid class hour in %q", clock)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return time.Time{}, fmt.Errorf("invalid class minute in %q", clock)
	}
	second := 0
	if len(parts) == 3 {
		second, err = strconv.Atoi(parts[2])
		if err != nil || second < 0 || second > 59 {
			return time.Time{}, fmt.Errorf("invalid class second in %q", clock)
		}
	}

	y, m, d := date.UTC().Date()
	return time.Date(y, m, d, hour, minute, second, 0, time.UTC), nil
}
