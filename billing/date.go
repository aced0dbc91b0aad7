package billing

import (
	"fmt"
	"time"
)

// =============================================================================
// DATE - Calendar day in zero-padded ISO form
// =============================================================================

// DateLayout is the only accepted textual form of a Date.
const DateLayout = "2006-01-02"

// Date is a calendar day stored as "YYYY-MM-DD". Because the form is
// zero-padded, lexicographic string order equals chronological order, which
// the filter and ordering code rely on.
type Date string

// ParseDate validates s and returns it as a Date.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return Date(t.Format(DateLayout)), nil
}

// MustParseDate is ParseDate for literals; it panics on malformed input.
func MustParseDate(s string) Date {
	d, err := ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

// DateOf returns the calendar day of t in t's location.
func DateOf(t time.Time) Date {
	return Date(t.Format(DateLayout))
}

// Time returns midnight UTC of the day. The zero time is returned for a
// malformed date.
func (d Date) Time() time.Time {
	t, err := time.Parse(DateLayout, string(d))
	if err != nil {
		return time.Time{}
	}
	return t
}

func (d Date) IsZero() bool       { return d == "" }
func (d Date) String() string     { return string(d) }
func (d Date) Before(o Date) bool { return d < o }
func (d Date) After(o Date) bool  { return d > o }
func (d Date) AddDays(n int) Date { return DateOf(d.Time().AddDate(0, 0, n)) }
func (d Date) Valid() bool        { _, err := ParseDate(string(d)); return err == nil }

// Year returns the calendar year, or 0 for a malformed date.
func (d Date) Year() int {
	if !d.Valid() {
		return 0
	}
	return d.Time().Year()
}

// MonthKey returns the "YYYY-MM" prefix of the date.
func (d Date) MonthKey() string {
	if len(d) < 7 {
		return string(d)
	}
	return string(d[:7])
}

// =============================================================================
// DAY ARITHMETIC
// =============================================================================

const day = 24 * time.Hour

// ceilDays returns ceil(dur / 1 day).
func ceilDays(dur time.Duration) int {
	n := dur / day
	if dur%day > 0 {
		n++
	}
	return int(n)
}
