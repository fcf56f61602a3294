package breaks

import (
	"errors"
	"testing"
	"time"
)

var testLoc = time.FixedZone("workplace", 8*3600)

func at(t *testing.T, value string) time.Time {
	t.Helper()
	ts, err := time.ParseInLocation("2006-01-02 15:04", value, testLoc)
	if err != nil {
		t.Fatalf("parse %q: %v", value, err)
	}
	return ts
}

func TestResolveShiftDay(t *testing.T) {
	now := at(t, "2025-03-10 09:30")

	for _, desc := range []string{"06:00 - 15:00", "06:00 AM - 03:00 PM", "06:00–15:00"} {
		shift, err := ResolveShift(desc, now, testLoc)
		if err != nil {
			t.Fatalf("ResolveShift(%q): %v", desc, err)
		}
		if shift.Overnight {
			t.Errorf("%q: flagged overnight", desc)
		}
		if got, want := shift.Start, at(t, "2025-03-10 06:00"); !got.Equal(want) {
			t.Errorf("%q: start = %v, want %v", desc, got, want)
		}
		if got, want := shift.End, at(t, "2025-03-10 15:00"); !got.Equal(want) {
			t.Errorf("%q: end = %v, want %v", desc, got, want)
		}
	}
}

func TestResolveShiftOvernightAnchoring(t *testing.T) {
	// 22:00–07:00 queried late evening and early morning must resolve to
	// the same shift instance.
	evening, err := ResolveShift("22:00 - 07:00", at(t, "2025-03-10 23:30"), testLoc)
	if err != nil {
		t.Fatal(err)
	}
	morning, err := ResolveShift("22:00 - 07:00", at(t, "2025-03-11 05:30"), testLoc)
	if err != nil {
		t.Fatal(err)
	}

	if !evening.Overnight || !morning.Overnight {
		t.Fatalf("overnight flags = %v, %v", evening.Overnight, morning.Overnight)
	}
	if !evening.Start.Equal(morning.Start) || !evening.End.Equal(morning.End) {
		t.Fatalf("anchoring mismatch: evening %v–%v, morning %v–%v",
			evening.Start, evening.End, morning.Start, morning.End)
	}
	if got, want := evening.Start, at(t, "2025-03-10 22:00"); !got.Equal(want) {
		t.Errorf("start = %v, want %v", got, want)
	}
	if got, want := evening.Day(), "2025-03-10"; got != want {
		t.Errorf("Day() = %q, want %q", got, want)
	}
}

func TestResolveShiftOvernightDaytimeGap(t *testing.T) {
	// Midday between instances anchors to the upcoming one.
	shift, err := ResolveShift("22:00 - 07:00", at(t, "2025-03-10 12:00"), testLoc)
	if err != nil {
		t.Fatal(err)
	}
	if got, want := shift.Start, at(t, "2025-03-10 22:00"); !got.Equal(want) {
		t.Errorf("start = %v, want %v", got, want)
	}
}

func TestResolveShiftBadDescriptor(t *testing.T) {
	cases := []string{"", "06:00", "six - nine", "06:00 - 06:00", "06:00 - 09:00 - 12:00"}
	for _, desc := range cases {
		_, err := ResolveShift(desc, at(t, "2025-03-10 09:30"), testLoc)
		var cfgErr *ConfigError
		if !errors.As(err, &cfgErr) {
			t.Errorf("ResolveShift(%q) error = %v, want ConfigError", desc, err)
		}
	}
}
