package breaks

import (
	"testing"
	"time"
)

func dayShift(t *testing.T) (Shift, []Window) {
	t.Helper()
	shift, err := ResolveShift("06:00 - 15:00", at(t, "2025-03-10 09:30"), testLoc)
	if err != nil {
		t.Fatal(err)
	}
	return shift, Windows(shift)
}

func window(t *testing.T, windows []Window, bt BreakType) Window {
	t.Helper()
	for _, w := range windows {
		if w.Type == bt {
			return w
		}
	}
	t.Fatalf("no window for %s", bt)
	return Window{}
}

func TestEvaluateBoundaries(t *testing.T) {
	shift, windows := dayShift(t)
	lunch := window(t, windows, Lunch) // [10:30, 11:30)

	cases := []struct {
		name string
		t    time.Time
		sess *Session
		want ReminderState
		fire bool
	}{
		{"16min before start", lunch.Start.Add(-16 * time.Minute), nil, "", false},
		{"15min before start", lunch.Start.Add(-15 * time.Minute), nil, AvailableSoon, true},
		{"1min before start", lunch.Start.Add(-time.Minute), nil, AvailableSoon, true},
		{"at start", lunch.Start, nil, AvailableNow, true},
		{"59s after start", lunch.Start.Add(59 * time.Second), nil, AvailableNow, true},
		{"30min in, no session", lunch.Start.Add(30 * time.Minute), nil, MidWindowNotTaken, true},
		{"26min in, in tolerance", lunch.Start.Add(26 * time.Minute), nil, MidWindowNotTaken, true},
		{"40min in, off cadence", lunch.Start.Add(40 * time.Minute), nil, "", false},
		{"15min before end", lunch.End.Add(-15 * time.Minute), nil, EndingSoon, true},
		{"1s before end", lunch.End.Add(-time.Second), nil, EndingSoon, true},
		{"1min past end, never started", lunch.End.Add(time.Minute), nil, Missed, true},
		{"31min past end, never started", lunch.End.Add(31 * time.Minute), nil, Missed, true},
	}

	for _, tc := range cases {
		got, fired := Evaluate(shift, lunch, tc.t, tc.sess)
		if fired != tc.fire || got != tc.want {
			t.Errorf("%s: Evaluate = (%q, %v), want (%q, %v)",
				tc.name, got, fired, tc.want, tc.fire)
		}
	}
}

func TestEvaluateSessionSuppression(t *testing.T) {
	shift, windows := dayShift(t)
	lunch := window(t, windows, Lunch)

	started := lunch.Start.Add(2 * time.Minute)
	ended := started.Add(40 * time.Minute)

	// Started but not completed: pre-window and at-start states are gone,
	// mid-window nag and ending-soon still apply.
	inProgress := &Session{StartTime: &started}
	if got, fired := Evaluate(shift, lunch, lunch.Start.Add(30*time.Second), inProgress); fired {
		t.Errorf("available-now fired for started session: %q", got)
	}
	if got, fired := Evaluate(shift, lunch, lunch.End.Add(-10*time.Minute), inProgress); !fired || got != EndingSoon {
		t.Errorf("ending-soon for in-progress session = (%q, %v)", got, fired)
	}
	if _, fired := Evaluate(shift, lunch, lunch.End.Add(time.Minute), inProgress); fired {
		t.Error("missed fired for a session that was started")
	}

	// Completed: nothing fires, at any instant.
	done := &Session{StartTime: &started, EndTime: &ended}
	probes := []time.Time{
		lunch.Start.Add(-15 * time.Minute),
		lunch.Start,
		lunch.Start.Add(30 * time.Minute),
		lunch.End.Add(-15 * time.Minute),
		lunch.End.Add(time.Minute),
		lunch.End.Add(90 * time.Minute),
	}
	for _, probe := range probes {
		if got, fired := Evaluate(shift, lunch, probe, done); fired {
			t.Errorf("completed session fired %q at %v", got, probe)
		}
	}
}

func TestEvaluatePreCreatedSessionRow(t *testing.T) {
	// A skeleton row with no timestamps behaves like no session.
	shift, windows := dayShift(t)
	lunch := window(t, windows, Lunch)

	skeleton := &Session{}
	if got, fired := Evaluate(shift, lunch, lunch.Start.Add(-15*time.Minute), skeleton); !fired || got != AvailableSoon {
		t.Errorf("skeleton session: Evaluate = (%q, %v), want available_soon", got, fired)
	}
}

func TestEvaluateMissedStopsAtShiftEnd(t *testing.T) {
	shift, windows := dayShift(t)
	morning := window(t, windows, Morning) // [08:15, 08:30)

	if got, fired := Evaluate(shift, morning, at(t, "2025-03-10 14:59"), nil); !fired || got != Missed {
		t.Errorf("before shift end: Evaluate = (%q, %v), want missed", got, fired)
	}
	if _, fired := Evaluate(shift, morning, at(t, "2025-03-10 15:00"), nil); fired {
		t.Error("missed nag fired past shift end")
	}
}

func TestEvaluateShortWindowNeverMidWindow(t *testing.T) {
	// A 15-minute window ends before the first nag multiple; past the end
	// the un-started break goes straight to missed.
	shift, windows := dayShift(t)
	morning := window(t, windows, Morning)

	if got, fired := Evaluate(shift, morning, morning.Start.Add(30*time.Minute), nil); !fired || got != Missed {
		t.Errorf("Evaluate = (%q, %v), want missed", got, fired)
	}
}

func TestNagIndex(t *testing.T) {
	_, windows := dayShift(t)
	lunch := window(t, windows, Lunch)

	// All ticks inside one tolerance band share a slot.
	for _, offset := range []time.Duration{25, 28, 30, 33, 35} {
		if got := NagIndex(MidWindowNotTaken, lunch, lunch.Start.Add(offset*time.Minute)); got != 1 {
			t.Errorf("mid-window index at +%dm = %d, want 1", offset, got)
		}
	}

	// Missed slots advance once per interval.
	if got := NagIndex(Missed, lunch, lunch.End.Add(time.Minute)); got != 2 {
		t.Errorf("missed index at end+1m = %d, want 2", got)
	}
	if got := NagIndex(Missed, lunch, lunch.End.Add(31*time.Minute)); got != 3 {
		t.Errorf("missed index at end+31m = %d, want 3", got)
	}
}

func TestReminderStateWire(t *testing.T) {
	wire := map[ReminderState]string{
		AvailableSoon:     "available_soon",
		AvailableNow:      "break_available",
		MidWindowNotTaken: "missed_break",
		EndingSoon:        "ending_soon",
		Missed:            "missed_break",
	}
	for state, want := range wire {
		if got := state.WireType(); got != want {
			t.Errorf("%s.WireType() = %q, want %q", state, got, want)
		}
	}
	if AvailableSoon.Repeating() || !Missed.Repeating() || !MidWindowNotTaken.Repeating() {
		t.Error("Repeating() misclassifies states")
	}
}
