package normalize

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	// ErrUnparsable is returned when a raw value cannot be coerced to its kind.
	ErrUnparsable = errors.New("unparsable value")
	// ErrBlank is returned when a raw value is empty after trimming.
	ErrBlank = errors.New("blank value")
)

// The clock must not touch other digits or colons, so "123:45" and
// "2025:07:11" are rejected rather than read as times.
var clockPattern = regexp.MustCompile(`(?:^|[^\d:])(\d{1,2}):(\d{2})(?::(\d{2}))?(?:$|[^\d:])`)

// Spreadsheet serial dates count days from this epoch.
var serialEpoch = time.Date(1899, 12, 30, 0, 0, 0, 0, time.UTC)

// ParseDecimal parses a locale-formatted number. Decimal commas are
// accepted, and "1.234,5" is read as 1234.5. A trailing percent sign is
// ignored.
func ParseDecimal(raw string) (float64, error) {
	s := strings.TrimSpace(raw)
	s = strings.TrimSuffix(s, "%")
	s = strings.ReplaceAll(s, " ", "")
	if s == "" {
		return 0, ErrBlank
	}

	lastComma := strings.LastIndex(s, ",")
	lastDot := strings.LastIndex(s, ".")
	switch {
	case lastComma >= 0 && lastDot >= 0 && lastComma > lastDot:
		s = strings.ReplaceAll(s, ".", "")
		s = strings.Replace(s, ",", ".", 1)
	case lastComma >= 0 && lastDot >= 0:
		s = strings.ReplaceAll(s, ",", "")
	default:
		s = strings.ReplaceAll(s, ",", ".")
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%w: %q is not a number", ErrUnparsable, raw)
	}
	return v, nil
}

// ParseInteger parses a whole number such as a week ("28" or "28,0").
func ParseInteger(raw string) (int64, error) {
	v, err := ParseDecimal(raw)
	if err != nil {
		return 0, err
	}
	if v != math.Trunc(v) {
		return 0, fmt.Errorf("%w: %q is not a whole number", ErrUnparsable, raw)
	}
	return int64(v), nil
}

// ParseDate parses a calendar date. Separators are unified, ISO order is
// recognized by a four-digit leading year, otherwise day-first order is tried
// before month-first. Spreadsheet serial numbers are accepted. Any time of
// day suffix is discarded.
func ParseDate(raw string) (time.Time, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return time.Time{}, ErrBlank
	}
	if i := strings.IndexAny(s, " T"); i > 0 {
		s = s[:i]
	}

	if serial, err := strconv.ParseFloat(s, 64); err == nil {
		if serial < 1 || serial > 2958465 {
			return time.Time{}, fmt.Errorf("%w: serial date %q out of range", ErrUnparsable, raw)
		}
		return serialEpoch.AddDate(0, 0, int(serial)), nil
	}

	parts := strings.Split(strings.ReplaceAll(strings.ReplaceAll(s, "-", "/"), ".", "/"), "/")
	if len(parts) != 3 {
		return time.Time{}, fmt.Errorf("%w: %q is not a date", ErrUnparsable, raw)
	}
	nums := make([]int, 3)
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return time.Time{}, fmt.Errorf("%w: %q is not a date", ErrUnparsable, raw)
		}
		nums[i] = n
	}

	if len(parts[0]) == 4 {
		if t, ok := makeDate(nums[0], nums[1], nums[2]); ok {
			return t, nil
		}
		return time.Time{}, fmt.Errorf("%w: %q is not a date", ErrUnparsable, raw)
	}

	year := nums[2]
	if len(parts[2]) <= 2 {
		year += 2000
	}
	if t, ok := makeDate(year, nums[1], nums[0]); ok {
		return t, nil
	}
	if t, ok := makeDate(year, nums[0], nums[1]); ok {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("%w: %q is not a date", ErrUnparsable, raw)
}

func makeDate(year, month, day int) (time.Time, bool) {
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return time.Time{}, false
	}
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if t.Day() != day || int(t.Month()) != month {
		return time.Time{}, false
	}
	return t, true
}

// ParseClock extracts a clock time and renders it as HH:MM:SS. "7:05"
// becomes "07:05:00". A bare day fraction ("0.5") is read as a spreadsheet
// time value.
func ParseClock(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", ErrBlank
	}

	m := clockPattern.FindStringSubmatch(s)
	if m == nil {
		if frac, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", "."), 64); err == nil && frac >= 0 && frac < 1 {
			secs := int(math.Round(frac * 86400))
			return fmt.Sprintf("%02d:%02d:%02d", secs/3600%24, secs/60%60, secs%60), nil
		}
		return "", fmt.Errorf("%w: %q is not a time", ErrUnparsable, raw)
	}

	h, _ := strconv.Atoi(m[1])
	mi, _ := strconv.Atoi(m[2])
	sec := 0
	if m[3] != "" {
		sec, _ = strconv.Atoi(m[3])
	}
	if h > 23 || mi > 59 || sec > 59 {
		return "", fmt.Errorf("%w: %q is not a valid time", ErrUnparsable, raw)
	}
	return fmt.Sprintf("%02d:%02d:%02d", h, mi, sec), nil
}

var afternoonPattern = regexp.MustCompile(`^(\d{2}):(\d{2}):(\d{2})$`)

// CorrectAfternoon moves a morning HH:MM:SS reading into the afternoon:
// hours below 12 get 12 added, so "00" becomes "12". Input that is not a
// HH:MM:SS string is returned unchanged.
func CorrectAfternoon(clock string) string {
	m := afternoonPattern.FindStringSubmatch(clock)
	if m == nil {
		return clock
	}
	h, _ := strconv.Atoi(m[1])
	if h < 12 {
		h += 12
	}
	return fmt.Sprintf("%02d:%s:%s", h, m[2], m[3])
}
