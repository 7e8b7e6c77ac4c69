package rewards

import (
	"testing"
	"time"
)

func TestParseAccrualDate(t *testing.T) {
	date, err := ParseAccrualDate("2024-07-08")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if got := date.String(); got != "2024-07-08" {
		t.Errorf("String() = %q, want 2024-07-08", got)
	}

	for _, bad := range []string{"", "2024-7-8", "08/07/2024", "2024-13-40", "yesterday"} {
		if _, err := ParseAccrualDate(bad); !IsInvalidInput(err) {
			t.Errorf("ParseAccrualDate(%q) error = %v, want invalid input", bad, err)
		}
	}
}

func TestDateOfTimezoneBoundary(t *testing.T) {
	newYork, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}

	// 03:00 UTC on July 9 is still the evening of July 8 in New York.
	instant := time.Date(2024, 7, 9, 3, 0, 0, 0, time.UTC)

	if got := DateOf(instant, time.UTC).String(); got != "2024-07-09" {
		t.Errorf("UTC date = %s, want 2024-07-09", got)
	}
	if got := DateOf(instant, newYork).String(); got != "2024-07-08" {
		t.Errorf("New York date = %s, want 2024-07-08", got)
	}
	if got := DateOf(instant, nil).String(); got != "2024-07-09" {
		t.Errorf("nil location date = %s, want UTC fallback 2024-07-09", got)
	}
}

func TestAccrualDateComparisons(t *testing.T) {
	d1, _ := ParseAccrualDate("2024-07-08")
	d2, _ := ParseAccrualDate("2024-07-09")

	if !d2.After(d1) || d1.After(d2) {
		t.Error("After ordering wrong for consecutive dates")
	}
	if !d1.AddDays(1).Equal(d2) {
		t.Error("AddDays(1) does not reach the next day")
	}
	if !d2.AddDays(-1).Equal(d1) {
		t.Error("AddDays(-1) does not reach the previous day")
	}
	if (AccrualDate{}).IsZero() != true || d1.IsZero() {
		t.Error("IsZero misclassifies dates")
	}
}

func TestAddDaysCrossesMonthEnd(t *testing.T) {
	d, _ := ParseAccrualDate("2024-02-28")
	if got := d.AddDays(2).String(); got != "2024-03-01" {
		t.Errorf("leap february + 2 days = %s, want 2024-03-01", got)
	}
}
