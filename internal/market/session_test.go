package market

import (
	"testing"
	"time"
)

func newYorkClassifier(t *testing.T) *Classifier {
	t.Helper()
	c, err := NewClassifier("America/New_York")
	if err != nil {
		t.Fatalf("classifier: %v", err)
	}
	return c
}

func nyTime(t *testing.T, weekday time.Weekday, hour, minute int) time.Time {
	t.Helper()
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Fatalf("load location: %v", err)
	}
	// 2024-01-01 is a Monday.
	base := time.Date(2024, 1, 1, hour, minute, 0, 0, loc)
	return base.AddDate(0, 0, int(weekday-time.Monday))
}

func TestClassifyPhases(t *testing.T) {
	c := newYorkClassifier(t)

	cases := []struct {
		name    string
		at      time.Time
		phase   Phase
		weekend bool
	}{
		{"regular open", nyTime(t, time.Monday, 9, 30), PhaseRegular, false},
		{"regular late", nyTime(t, time.Wednesday, 15, 59), PhaseRegular, false},
		{"pre-market", nyTime(t, time.Tuesday, 4, 0), PhasePreMarket, false},
		{"pre-market edge", nyTime(t, time.Tuesday, 9, 29), PhasePreMarket, false},
		{"after-market", nyTime(t, time.Thursday, 16, 0), PhaseAfterMarket, false},
		{"after-market late", nyTime(t, time.Thursday, 19, 59), PhaseAfterMarket, false},
		{"off-hours night", nyTime(t, time.Friday, 22, 0), PhaseOffHours, false},
		{"off-hours early", nyTime(t, time.Monday, 3, 59), PhaseOffHours, false},
		{"saturday", nyTime(t, time.Saturday, 12, 0), PhaseOffHours, true},
		{"sunday midnight", nyTime(t, time.Sunday, 0, 0), PhaseOffHours, true},
	}

	for _, tc := range cases {
		snap := c.Classify(tc.at)
		if snap.Phase != tc.phase || snap.IsWeekend != tc.weekend {
			t.Fatalf("%s: got %+v, want phase=%s weekend=%v", tc.name, snap, tc.phase, tc.weekend)
		}
	}
}

func TestIsMarketOpen(t *testing.T) {
	c := newYorkClassifier(t)
	if !c.IsMarketOpen(nyTime(t, time.Monday, 12, 0)) {
		t.Fatalf("expected open at monday noon")
	}
	if c.IsMarketOpen(nyTime(t, time.Saturday, 12, 0)) {
		t.Fatalf("expected closed on saturday")
	}
	if c.IsMarketOpen(nyTime(t, time.Monday, 20, 30)) {
		t.Fatalf("expected closed at night")
	}
}

func TestCacheTTLLengthensOffHours(t *testing.T) {
	regular := Snapshot{Phase: PhaseRegular}
	after := Snapshot{Phase: PhaseAfterMarket}
	off := Snapshot{Phase: PhaseOffHours}
	weekend := Snapshot{Phase: PhaseOffHours, IsWeekend: true}

	if !(regular.CacheTTL() < after.CacheTTL() &&
		after.CacheTTL() < off.CacheTTL() &&
		off.CacheTTL() < weekend.CacheTTL()) {
		t.Fatalf("cache TTLs must lengthen through after-market, off-hours, weekend")
	}
	if weekend.CacheTTL() != 24*time.Hour {
		t.Fatalf("weekend TTL = %v", weekend.CacheTTL())
	}
}

func TestWeekendLabel(t *testing.T) {
	snap := Snapshot{Phase: PhaseOffHours, IsWeekend: true}
	if snap.Label() != "weekend" {
		t.Fatalf("label = %q", snap.Label())
	}
	if (Snapshot{Phase: PhaseRegular}).Label() != "regular" {
		t.Fatalf("regular label mismatch")
	}
}
