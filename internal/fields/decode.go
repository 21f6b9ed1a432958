package fields

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var (
	// ErrInvalidInt is returned when a value is not a decimal digit sequence
	ErrInvalidInt = errors.New("invalid integer")

	// ErrInvalidDate is returned when a value is not a recognized calendar date
	ErrInvalidDate = errors.New("invalid date")

	// ErrUnknownField is returned when a field name is not in the catalog
	ErrUnknownField = errors.New("unknown field")
)

// centuryPivot splits two-digit years: below it is 20xx, at or above it is 19xx
const centuryPivot = 50

// ParseInt decodes a decimal digit sequence
func ParseInt(raw string) (int, error) {
	if raw == "" {
		return 0, fmt.Errorf("%w: empty value", ErrInvalidInt)
	}
	for _, r := range raw {
		if r < '0' || r > '9' {
			return 0, fmt.Errorf("%w: %q", ErrInvalidInt, raw)
		}
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %q: %v", ErrInvalidInt, raw, err)
	}
	return n, nil
}

// ParseDate decodes M-D-Y or M.D.Y with a two- or four-digit year into UTC midnight.
// ISO YYYY-MM-DD is also accepted so fixed values can be written unambiguously.
func ParseDate(raw string) (time.Time, error) {
	sep := "-"
	if strings.Contains(raw, ".") {
		sep = "."
	}
	parts := strings.Split(raw, sep)
	if len(parts) != 3 {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, raw)
	}

	var month, day, year string
	if sep == "-" && len(parts[0]) == 4 {
		year, month, day = parts[0], parts[1], parts[2]
	} else {
		month, day, year = parts[0], parts[1], parts[2]
	}

	if len(month) < 1 || len(month) > 2 || len(day) < 1 || len(day) > 2 {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, raw)
	}
	if len(year) != 2 && len(year) != 4 {
		return time.Time{}, fmt.Errorf("%w: %q: year must have 2 or 4 digits", ErrInvalidDate, raw)
	}

	m, err := ParseInt(month)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, raw)
	}
	d, err := ParseInt(day)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, raw)
	}
	y, err := ParseInt(year)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, raw)
	}
	if len(year) == 2 {
		if y < centuryPivot {
			y += 2000
		} else {
			y += 1900
		}
	}

	t := time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
	// time.Date normalizes out-of-range values, so a mismatch means the date does not exist
	if t.Year() != y || int(t.Month()) != m || t.Day() != d {
		return time.Time{}, fmt.Errorf("%w: %q does not exist", ErrInvalidDate, raw)
	}
	return t, nil
}

// ParseIdentifier validates a free-text identifier value
func ParseIdentifier(raw string) (string, error) {
	if strings.TrimSpace(raw) == "" {
		return "", errors.New("empty value")
	}
	return raw, nil
}
