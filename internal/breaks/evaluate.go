package breaks

import "time"

// Session is one day's break activity for an agent and break type, read from
// the break_session records. A pre-created row with no start time counts the
// same as no row at all.
type Session struct {
	StartTime  *time.Time
	PauseTime  *time.Time
	ResumeTime *time.Time
	EndTime    *time.Time
}

// Started reports whether the break was ever begun.
func (s *Session) Started() bool { return s != nil && s.StartTime != nil }

// Completed reports whether the break was finished for the day.
func (s *Session) Completed() bool { return s != nil && s.EndTime != nil }

// Evaluate maps (window, instant, session) to at most one reminder state.
// Rules are checked in priority order and the first match wins, so exactly
// one state can be active per tick. A completed session suppresses every
// state for the day. The function has no side effects: re-evaluating at the
// same t always yields the same answer.
func Evaluate(shift Shift, w Window, t time.Time, sess *Session) (ReminderState, bool) {
	if sess.Completed() {
		return "", false
	}

	switch {
	case !t.Before(w.Start.Add(-availableSoonLead)) && t.Before(w.Start) && !sess.Started():
		return AvailableSoon, true

	case !t.Before(w.Start) && t.Before(w.Start.Add(availableNowSpan)) && !sess.Started():
		return AvailableNow, true

	case t.Before(w.End) && onNagCadence(t.Sub(w.Start)):
		return MidWindowNotTaken, true

	case !t.Before(w.End.Add(-endingSoonLead)) && t.Before(w.End):
		return EndingSoon, true

	case !t.Before(w.End) && !sess.Started() && t.Before(shift.End):
		return Missed, true
	}

	return "", false
}

// onNagCadence reports whether elapsed sits within tolerance of a positive
// multiple of the nag interval.
func onNagCadence(elapsed time.Duration) bool {
	if elapsed < NagInterval-nagTolerance {
		return false
	}
	k := (elapsed + NagInterval/2) / NagInterval
	diff := elapsed - k*NagInterval
	if diff < 0 {
		diff = -diff
	}
	return diff <= nagTolerance
}

// NagIndex returns the cadence slot a repeating state occupies at t. Slots
// advance every NagInterval from the window start, so each nag fires at most
// once per slot no matter how many scheduler ticks land inside it.
// MidWindowNotTaken rounds to the multiple it matched; Missed counts whole
// intervals, giving the once-per-30-minutes re-notification past the end.
func NagIndex(state ReminderState, w Window, t time.Time) int {
	elapsed := t.Sub(w.Start)
	switch state {
	case MidWindowNotTaken:
		return int((elapsed + NagInterval/2) / NagInterval)
	case Missed:
		return int(elapsed / NagInterval)
	}
	return 0
}
