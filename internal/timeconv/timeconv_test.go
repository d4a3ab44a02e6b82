package timeconv

import (
	"testing"
	"time"
)

func mustZone(t *testing.T, name string) *time.Location {
	t.Helper()
	loc, err := LoadZone(name)
	if err != nil {
		t.Fatalf("loading zone %s: %v", name, err)
	}
	return loc
}

func TestNormalizeConvertsZone(t *testing.T) {
	n := New(mustZone(t, "Europe/Berlin"), mustZone(t, "UTC"))

	// Berlin is UTC+2 in June (CEST).
	date, clock, err := n.Normalize("02/06/2025", "8:30am")
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}
	if clock != "06:30" {
		t.Errorf("expected 06:30 UTC, got %s", clock)
	}
	if date != "02/06/2025" {
		t.Errorf("date should be unchanged, got %s", date)
	}
}

func TestNormalizeRollsDateForward(t *testing.T) {
	// 11:30pm at UTC-5 is 05:30 next day at UTC+1.
	n := New(time.FixedZone("UTC-5", -5*3600), time.FixedZone("UTC+1", 1*3600))

	date, clock, err := n.Normalize("02/06/2025", "11:30pm")
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}
	if date != "03/06/2025" {
		t.Errorf("expected date rollover to 03/06/2025, got %s", date)
	}
	if clock != "05:30" {
		t.Errorf("expected 05:30, got %s", clock)
	}
}

func TestNormalizeRollsDateBackward(t *testing.T) {
	// 1:00am at UTC+2 is 11:00pm the previous day at UTC-10.
	n := New(time.FixedZone("UTC+2", 2*3600), time.FixedZone("UTC-10", -10*3600))

	date, clock, err := n.Normalize("02/06/2025", "1:00am")
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}
	if date != "01/06/2025" {
		t.Errorf("expected date rollback to 01/06/2025, got %s", date)
	}
	if clock != "13:00" {
		t.Errorf("expected 13:00, got %s", clock)
	}
}

func TestNormalizePassesThroughNonTimeTokens(t *testing.T) {
	n := New(mustZone(t, "Europe/Berlin"), mustZone(t, "UTC"))

	tests := []struct{ date, clock string }{
		{"02/06/2025", "All Day"},
		{"02/06/2025", "Tentative"},
		{"02/06/2025", ""},
		{"", "8:30am"},
	}

	for _, tt := range tests {
		date, clock, err := n.Normalize(tt.date, tt.clock)
		if err != nil {
			t.Errorf("Normalize(%q, %q) unexpected error: %v", tt.date, tt.clock, err)
		}
		if date != tt.date || clock != tt.clock {
			t.Errorf("Normalize(%q, %q) = (%q, %q), expected passthrough",
				tt.date, tt.clock, date, clock)
		}
	}
}

func TestNormalizeMalformedClockKeepsOriginal(t *testing.T) {
	n := New(mustZone(t, "Europe/Berlin"), mustZone(t, "UTC"))

	date, clock, err := n.Normalize("02/06/2025", "25:99xx")
	if err == nil {
		t.Error("expected error for malformed clock string")
	}
	if date != "02/06/2025" || clock != "25:99xx" {
		t.Errorf("malformed input should pass through unchanged, got (%q, %q)", date, clock)
	}
}

func TestLoadZoneRejectsBadName(t *testing.T) {
	if _, err := LoadZone("Mars/Olympus_Mons"); err == nil {
		t.Error("expected error for invalid zone name")
	}
}

func TestWeekdayLabel(t *testing.T) {
	label, err := WeekdayLabel("03/06/2025")
	if err != nil {
		t.Fatalf("WeekdayLabel failed: %v", err)
	}
	if label != "Tue" {
		t.Errorf("03/06/2025 is a Tuesday, got %q", label)
	}

	if _, err := WeekdayLabel("not-a-date"); err == nil {
		t.Error("expected error for malformed date")
	}
}
