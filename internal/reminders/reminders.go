// Package reminders runs the break reminder scheduler: once per tick it
// enumerates active agents, derives their break windows, evaluates the
// eligibility rules, and hands each due reminder to the deduplicating
// emitter. The emitter's conditional insert is the only duplicate guard that
// holds across scheduler processes; everything in this package assumes the
// same tick may run concurrently somewhere else.
package reminders

import (
	"context"
	"fmt"
	"time"

	"github.com/opsfloor/breakd/internal/breaks"
)

// Agent is a row from the agent directory. Read-only here; the account
// subsystem owns it.
type Agent struct {
	ID              string
	ShiftDescriptor string
}

// Notification is one persisted break reminder. Created once, never mutated.
type Notification struct {
	ID            string    `json:"id"`
	AgentID       string    `json:"agent_id"`
	Category      string    `json:"category"`
	ReminderType  string    `json:"reminder_type"`
	BreakType     string    `json:"break_type"`
	Title         string    `json:"title"`
	Message       string    `json:"message"`
	OccurrenceKey string    `json:"occurrence_key,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// AgentSource lists the agents the scheduler evaluates each tick.
type AgentSource interface {
	ActiveAgents(ctx context.Context) ([]Agent, error)
}

// SessionSource reads one day's break sessions for an agent, keyed by break
// type. A missing entry means no session was recorded.
type SessionSource interface {
	SessionsForDay(ctx context.Context, agentID, day string) (map[breaks.BreakType]*breaks.Session, error)
}

// Emitter persists a reminder unless its occurrence window already fired.
// The existence check and the insert must be one atomic operation.
type Emitter interface {
	TryEmit(ctx context.Context, n Notification) (created bool, err error)
}

// occurrenceKey builds the deduplication key for a reminder: the shift
// anchor day for one-shot states, anchor day plus cadence slot for the
// repeating nags.
func occurrenceKey(state breaks.ReminderState, shift breaks.Shift, w breaks.Window, t time.Time) string {
	if state.Repeating() {
		return fmt.Sprintf("%s#%d", shift.Day(), breaks.NagIndex(state, w, t))
	}
	return shift.Day()
}

// buildReminder assembles the notification row for an evaluated state.
func buildReminder(agentID string, state breaks.ReminderState, shift breaks.Shift, w breaks.Window, t time.Time) Notification {
	title, message := reminderText(state, w)
	return Notification{
		AgentID:       agentID,
		Category:      "break",
		ReminderType:  state.WireType(),
		BreakType:     string(w.Type),
		Title:         title,
		Message:       message,
		OccurrenceKey: occurrenceKey(state, shift, w, t),
	}
}

func reminderText(state breaks.ReminderState, w breaks.Window) (title, message string) {
	name := w.Type.DisplayName()
	opens := clock(w.Start)
	closes := clock(w.End)

	switch state {
	case breaks.AvailableSoon:
		return "Break Coming Up",
			fmt.Sprintf("Your %s window opens at %s.", name, opens)
	case breaks.AvailableNow:
		return "Break Available",
			fmt.Sprintf("Your %s is available now until %s.", name, closes)
	case breaks.MidWindowNotTaken:
		return "Break Not Taken",
			fmt.Sprintf("Your %s window has been open since %s and you have not taken it.", name, opens)
	case breaks.EndingSoon:
		return "Break Ending Soon",
			fmt.Sprintf("Your %s window closes at %s.", name, closes)
	case breaks.Missed:
		return "Break Missed",
			fmt.Sprintf("You missed your %s (%s - %s).", name, opens, closes)
	}
	return "Break Reminder", fmt.Sprintf("Reminder for your %s.", name)
}

func clock(t time.Time) string {
	return t.Format("3:04 PM")
}
