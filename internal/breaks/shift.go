package breaks

import (
	"fmt"
	"strings"
	"time"
)

// ConfigError reports a shift descriptor this engine cannot use. The caller
// treats the agent as having no active window for the tick.
type ConfigError struct {
	Descriptor string
	Reason     string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("shift descriptor %q: %s", e.Descriptor, e.Reason)
}

// Shift is a shift descriptor resolved to absolute instants for one calendar
// occurrence. Start and End are always in the canonical workplace zone.
type Shift struct {
	Start     time.Time
	End       time.Time
	Overnight bool
}

// Duration returns the shift span.
func (s Shift) Duration() time.Duration { return s.End.Sub(s.Start) }

// Day returns the occurrence day key: the calendar day the shift starts on.
// Overnight shifts queried before and after midnight yield the same day.
func (s Shift) Day() string { return s.Start.Format(time.DateOnly) }

var timeOfDayLayouts = []string{"15:04", "3:04 PM", "3:04PM"}

// parseTimeOfDay parses one side of a descriptor into minutes since midnight.
// Accepts 24-hour ("06:00", "22:30") and 12-hour ("06:00 AM") forms.
func parseTimeOfDay(s string) (int, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	for _, layout := range timeOfDayLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Hour()*60 + t.Minute(), nil
		}
	}
	return 0, fmt.Errorf("unparseable time of day %q", s)
}

// parseDescriptor splits "06:00 - 15:00" (or the 12-hour equivalent) into
// start/end minutes since midnight. En dashes are tolerated; a zero-length
// span is rejected.
func parseDescriptor(desc string) (startMin, endMin int, err error) {
	normalized := strings.NewReplacer("–", "-", "—", "-").Replace(desc)
	parts := strings.Split(normalized, "-")
	if len(parts) != 2 {
		return 0, 0, &ConfigError{desc, "want exactly one start and one end time"}
	}
	startMin, err = parseTimeOfDay(parts[0])
	if err != nil {
		return 0, 0, &ConfigError{desc, err.Error()}
	}
	endMin, err = parseTimeOfDay(parts[1])
	if err != nil {
		return 0, 0, &ConfigError{desc, err.Error()}
	}
	if startMin == endMin {
		return 0, 0, &ConfigError{desc, "zero-length shift"}
	}
	return startMin, endMin, nil
}

// ResolveShift anchors a raw descriptor to the shift occurrence current at
// now, in loc. A descriptor whose end time-of-day precedes its start is
// overnight: when now's time-of-day is before the end, the shift began the
// previous calendar day. Resolving at 23:30 and at 05:30 of the same
// overnight instance therefore returns the same Start/End.
func ResolveShift(descriptor string, now time.Time, loc *time.Location) (Shift, error) {
	startMin, endMin, err := parseDescriptor(descriptor)
	if err != nil {
		return Shift{}, err
	}

	now = now.In(loc)
	overnight := endMin < startMin

	anchor := now
	if overnight && now.Hour()*60+now.Minute() < endMin {
		anchor = now.AddDate(0, 0, -1)
	}

	start := time.Date(anchor.Year(), anchor.Month(), anchor.Day(),
		startMin/60, startMin%60, 0, 0, loc)
	endDay := start
	if overnight {
		endDay = start.AddDate(0, 0, 1)
	}
	end := time.Date(endDay.Year(), endDay.Month(), endDay.Day(),
		endMin/60, endMin%60, 0, 0, loc)

	return Shift{Start: start, End: end, Overnight: overnight}, nil
}
