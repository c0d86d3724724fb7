package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const secondsPerDay = 24 * 60 * 60

// MaxGTFSTime is the latest accepted stop time, 48:00:00 after the service
// day's midnight.
const MaxGTFSTime = 2 * secondsPerDay

// ParseGTFSTime converts HH:MM:SS into seconds after midnight. Hours may exceed
// 23 up to MaxGTFSTime; minutes and seconds must be below 60.
func ParseGTFSTime(raw string) (int, error) {
	parts := strings.Split(strings.TrimSpace(raw), ":")
	if len(parts) != 3 {
		return 0, fmt.Errorf("%w: time %q must be HH:MM:SS", ErrInvalidInput, raw)
	}
	var vals [3]int
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 {
			return 0, fmt.Errorf("%w: time %q must be HH:MM:SS", ErrInvalidInput, raw)
		}
		vals[i] = n
	}
	if vals[1] >= 60 || vals[2] >= 60 || vals[0] > MaxGTFSTime/3600 {
		return 0, fmt.Errorf("%w: time %q is out of range", ErrInvalidInput, raw)
	}
	total := vals[0]*3600 + vals[1]*60 + vals[2]
	if total > MaxGTFSTime {
		return 0, fmt.Errorf("%w: time %q is out of range", ErrInvalidInput, raw)
	}
	return total, nil
}

// ParseClock parses a client supplied start time. Unlike ParseGTFSTime it
// requires two-digit minutes and seconds and at most two hour digits.
func ParseClock(raw string) (int, error) {
	parts := strings.Split(raw, ":")
	if len(parts) != 3 || len(parts[0]) < 1 || len(parts[0]) > 2 || len(parts[1]) != 2 || len(parts[2]) != 2 {
		return 0, fmt.Errorf("%w: startTime must be HH:MM:SS", ErrInvalidInput)
	}
	h, errH := strconv.Atoi(parts[0])
	m, errM := strconv.Atoi(parts[1])
	s, errS := strconv.Atoi(parts[2])
	if errH != nil || errM != nil || errS != nil || h < 0 || m < 0 || m >= 60 || s < 0 || s >= 60 {
		return 0, fmt.Errorf("%w: startTime must be HH:MM:SS", ErrInvalidInput)
	}
	return h*3600 + m*60 + s, nil
}

func FormatGTFSTime(total int) string {
	if total < 0 {
		return "00:00:00"
	}
	return fmt.Sprintf("%02d:%02d:%02d", total/3600, (total%3600)/60, total%60)
}

// ParseGTFSDate parses YYYYMMDD into UTC midnight.
func ParseGTFSDate(raw string) (time.Time, error) {
	trimmed := strings.TrimSpace(raw)
	if len(trimmed) != 8 {
		return time.Time{}, fmt.Errorf("%w: date %q must be YYYYMMDD", ErrInvalidInput, raw)
	}
	t, err := time.Parse("20060102", trimmed)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: date %q must be YYYYMMDD", ErrInvalidInput, raw)
	}
	return t.UTC(), nil
}

// ParseServiceDate parses a query date (YYYY-MM-DD) into UTC midnight.
func ParseServiceDate(raw string) (time.Time, error) {
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: date must be YYYY-MM-DD", ErrInvalidInput)
	}
	return t.UTC(), nil
}

// ServiceDay truncates a wall clock instant to its calendar date at UTC midnight.
func ServiceDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// SecondsSinceMidnight returns the wall clock offset of t in its own location.
func SecondsSinceMidnight(t time.Time) int {
	return t.Hour()*3600 + t.Minute()*60 + t.Second()
}
