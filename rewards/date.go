package rewards

import (
	"time"
)

const accrualDateLayout = "2006-01-02"

// AccrualDate is the calendar day being credited, with no time component.
// It is distinct from the wall-clock time of processing: a backfill run
// on Tuesday can credit last Friday's date. The zero value is invalid.
type AccrualDate struct {
	t time.Time
}

// ParseAccrualDate parses an ISO date string (YYYY-MM-DD).
func ParseAccrualDate(value string) (AccrualDate, error) {
	t, err := time.Parse(accrualDateLayout, value)
	if err != nil {
		return AccrualDate{}, invalidInput("malformed accrual date %q", value)
	}
	return AccrualDate{t: t}, nil
}

// DateOf returns the accrual date of the instant t observed in loc.
// All callers in one process must share the same canonical location so
// concurrent runs never disagree about which day "today" is.
func DateOf(t time.Time, loc *time.Location) AccrualDate {
	if loc == nil {
		loc = time.UTC
	}
	local := t.In(loc)
	return AccrualDate{t: time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, time.UTC)}
}

// Today returns the current accrual date in loc.
func Today(loc *time.Location) AccrualDate {
	return DateOf(time.Now(), loc)
}

// String formats the date as YYYY-MM-DD, matching the stored column value.
func (d AccrualDate) String() string {
	return d.t.Format(accrualDateLayout)
}

// IsZero reports whether the date is unset.
func (d AccrualDate) IsZero() bool {
	return d.t.IsZero()
}

// After reports whether d falls after other.
func (d AccrualDate) After(other AccrualDate) bool {
	return d.t.After(other.t)
}

// Equal reports whether two dates are the same calendar day.
func (d AccrualDate) Equal(other AccrualDate) bool {
	return d.t.Equal(other.t)
}

// AddDays returns the date shifted by n calendar days.
func (d AccrualDate) AddDays(n int) AccrualDate {
	return AccrualDate{t: d.t.AddDate(0, 0, n)}
}
