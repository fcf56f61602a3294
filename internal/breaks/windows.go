package breaks

import "time"

// Window is the derived [Start, End) interval during which a break type may
// be taken for one shift occurrence. Never persisted; recomputed on demand.
type Window struct {
	Type  BreakType `json:"break_type"`
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Contains reports whether t falls inside the half-open window.
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && t.Before(w.End)
}

// Windows derives the break windows applicable to a resolved shift: day
// break types for day shifts, night types for overnight shifts, never both.
// Pure function of the shift span — identical output for identical input.
func Windows(s Shift) []Window {
	types := dayTypes
	if s.Overnight {
		types = nightTypes
	}

	span := s.Duration()
	out := make([]Window, 0, len(types))
	for _, bt := range types {
		entry := catalog[bt]
		start := s.Start.Add(time.Duration(float64(span) * entry.Fraction)).Truncate(time.Minute)
		out = append(out, Window{
			Type:  bt,
			Start: start,
			End:   start.Add(entry.Duration),
		})
	}
	return out
}
