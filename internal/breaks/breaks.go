// Package breaks derives per-shift break windows and evaluates which rest
// reminder, if any, an agent is due for at a point in time.
//
// Pipeline: resolve shift → derive windows → evaluate state. Everything in
// this package is pure: callers pass "now" in, nothing reads the clock, and
// repeated calls within the same shift day return identical windows.
package breaks

import "time"

// --------------------------------------------------------------------------
// Constants
// --------------------------------------------------------------------------

const (
	shortBreakDuration = 15 * time.Minute
	mealBreakDuration  = 60 * time.Minute

	// Lead margins around a window.
	availableSoonLead = 15 * time.Minute
	availableNowSpan  = 1 * time.Minute
	endingSoonLead    = 15 * time.Minute

	// Repeating nag cadence and its match tolerance.
	NagInterval  = 30 * time.Minute
	nagTolerance = 5 * time.Minute
)

// Placement fractions of the shift span.
const (
	firstBreakFraction = 0.25
	mealBreakFraction  = 0.50
	lastBreakFraction  = 0.75
)

// --------------------------------------------------------------------------
// Break types
// --------------------------------------------------------------------------

// BreakType identifies one entry of the closed break catalog.
type BreakType string

const (
	Morning     BreakType = "morning"
	Lunch       BreakType = "lunch"
	Afternoon   BreakType = "afternoon"
	NightFirst  BreakType = "night_first"
	NightMeal   BreakType = "night_meal"
	NightSecond BreakType = "night_second"
)

// CatalogEntry holds the fixed duration and shift-span placement of a break
// type. Not configurable per agent.
type CatalogEntry struct {
	Type     BreakType
	Duration time.Duration
	Fraction float64
}

var catalog = map[BreakType]CatalogEntry{
	Morning:     {Morning, shortBreakDuration, firstBreakFraction},
	Lunch:       {Lunch, mealBreakDuration, mealBreakFraction},
	Afternoon:   {Afternoon, shortBreakDuration, lastBreakFraction},
	NightFirst:  {NightFirst, shortBreakDuration, firstBreakFraction},
	NightMeal:   {NightMeal, mealBreakDuration, mealBreakFraction},
	NightSecond: {NightSecond, shortBreakDuration, lastBreakFraction},
}

var (
	dayTypes   = []BreakType{Morning, Lunch, Afternoon}
	nightTypes = []BreakType{NightFirst, NightMeal, NightSecond}
)

// Catalog returns the full break-type catalog in day-then-night order.
func Catalog() []CatalogEntry {
	out := make([]CatalogEntry, 0, len(catalog))
	for _, bt := range append(append([]BreakType{}, dayTypes...), nightTypes...) {
		out = append(out, catalog[bt])
	}
	return out
}

// DisplayName returns the human-readable break name used in reminder text.
func (bt BreakType) DisplayName() string {
	switch bt {
	case Morning:
		return "Morning Break"
	case Lunch:
		return "Lunch Break"
	case Afternoon:
		return "Afternoon Break"
	case NightFirst:
		return "First Night Break"
	case NightMeal:
		return "Night Meal Break"
	case NightSecond:
		return "Second Night Break"
	}
	return string(bt)
}

// Valid reports whether bt is a catalog break type.
func (bt BreakType) Valid() bool {
	_, ok := catalog[bt]
	return ok
}

// --------------------------------------------------------------------------
// Reminder states
// --------------------------------------------------------------------------

// ReminderState is the single eligibility classification for an agent and
// break type at an instant. At most one state is active at a time.
type ReminderState string

const (
	AvailableSoon     ReminderState = "available_soon"
	AvailableNow      ReminderState = "available_now"
	MidWindowNotTaken ReminderState = "mid_window_not_taken"
	EndingSoon        ReminderState = "ending_soon"
	Missed            ReminderState = "missed"
)

// WireType maps a state to the reminder_type value persisted on the
// notification row. The two repeating nag states share missed_break.
func (s ReminderState) WireType() string {
	switch s {
	case AvailableSoon:
		return "available_soon"
	case AvailableNow:
		return "break_available"
	case MidWindowNotTaken, Missed:
		return "missed_break"
	case EndingSoon:
		return "ending_soon"
	}
	return string(s)
}

// Repeating reports whether the state re-fires on the nag cadence instead of
// once per shift day.
func (s ReminderState) Repeating() bool {
	return s == MidWindowNotTaken || s == Missed
}
