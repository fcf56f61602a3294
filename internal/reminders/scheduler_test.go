package reminders

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/opsfloor/breakd/internal/breaks"
)

var testLoc = time.FixedZone("workplace", 8*3600)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func at(t *testing.T, value string) time.Time {
	t.Helper()
	ts, err := time.ParseInLocation("2006-01-02 15:04", value, testLoc)
	if err != nil {
		t.Fatalf("parse %q: %v", value, err)
	}
	return ts
}

// --------------------------------------------------------------------------
// Fakes
// --------------------------------------------------------------------------

type staticAgents []Agent

func (a staticAgents) ActiveAgents(ctx context.Context) ([]Agent, error) {
	return a, nil
}

type staticSessions map[string]map[breaks.BreakType]*breaks.Session

func (s staticSessions) SessionsForDay(ctx context.Context, agentID, day string) (map[breaks.BreakType]*breaks.Session, error) {
	return s[agentID], nil
}

// memEmitter mirrors the store's dedup contract: one atomic check-and-set
// per occurrence key.
type memEmitter struct {
	mu      sync.Mutex
	seen    map[string]bool
	created []Notification
}

func newMemEmitter() *memEmitter {
	return &memEmitter{seen: make(map[string]bool)}
}

func (m *memEmitter) TryEmit(ctx context.Context, n Notification) (bool, error) {
	key := n.AgentID + "|" + n.BreakType + "|" + n.ReminderType + "|" + n.OccurrenceKey
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.seen[key] {
		return false, nil
	}
	m.seen[key] = true
	n.CreatedAt = time.Now()
	m.created = append(m.created, n)
	return true, nil
}

func newTestScheduler(agents AgentSource, sessions SessionSource, emitter Emitter) *Scheduler {
	return NewScheduler(agents, sessions, emitter, testLoc, time.Minute, testLogger())
}

// --------------------------------------------------------------------------
// Tests
// --------------------------------------------------------------------------

func TestRunOnceEndToEnd(t *testing.T) {
	// Shift 06:00–15:00 puts the morning window at [08:15, 08:30), so the
	// pre-window reminder opens at 08:00.
	agents := staticAgents{{ID: "agent-1", ShiftDescriptor: "06:00 AM - 03:00 PM"}}
	emitter := newMemEmitter()
	s := newTestScheduler(agents, staticSessions{}, emitter)

	result, err := s.RunOnce(context.Background(), at(t, "2025-03-10 08:00"))
	if err != nil {
		t.Fatal(err)
	}
	if result.Emitted != 1 || result.Suppressed != 0 {
		t.Fatalf("first tick: emitted=%d suppressed=%d, want 1/0 (%s)",
			result.Emitted, result.Suppressed, result.Summary())
	}

	n := emitter.created[0]
	if n.ReminderType != "available_soon" || n.BreakType != string(breaks.Morning) {
		t.Errorf("notification = %s/%s, want available_soon/morning", n.ReminderType, n.BreakType)
	}
	if n.AgentID != "agent-1" || n.Category != "break" {
		t.Errorf("notification addressing wrong: %+v", n)
	}

	// A minute later the same state is due again; the dedup suppresses it.
	result, err = s.RunOnce(context.Background(), at(t, "2025-03-10 08:01"))
	if err != nil {
		t.Fatal(err)
	}
	if result.Emitted != 0 || result.Suppressed != 1 {
		t.Fatalf("second tick: emitted=%d suppressed=%d, want 0/1",
			result.Emitted, result.Suppressed)
	}
	if len(emitter.created) != 1 {
		t.Fatalf("persisted %d notifications, want 1", len(emitter.created))
	}
}

func TestRunOnceCompletedSessionSilent(t *testing.T) {
	started := at(t, "2025-03-10 08:15")
	ended := at(t, "2025-03-10 08:30")
	sessions := staticSessions{
		"agent-1": {breaks.Morning: &breaks.Session{StartTime: &started, EndTime: &ended}},
	}
	emitter := newMemEmitter()
	s := newTestScheduler(staticAgents{{ID: "agent-1", ShiftDescriptor: "06:00 - 15:00"}}, sessions, emitter)

	for _, tick := range []string{"2025-03-10 08:00", "2025-03-10 08:16", "2025-03-10 09:00"} {
		result, err := s.RunOnce(context.Background(), at(t, tick))
		if err != nil {
			t.Fatal(err)
		}
		if result.Emitted != 0 {
			t.Errorf("tick %s emitted %d for a completed break", tick, result.Emitted)
		}
	}
}

func TestRunOnceMissedNagCadence(t *testing.T) {
	// Morning window [08:15, 08:30), never started. Missed nags advance one
	// cadence slot per 30 minutes; ticks inside a slot dedupe.
	agents := staticAgents{{ID: "agent-1", ShiftDescriptor: "06:00 - 15:00"}}
	emitter := newMemEmitter()
	s := newTestScheduler(agents, staticSessions{}, emitter)

	missedCount := func() int {
		n := 0
		for _, c := range emitter.created {
			if c.ReminderType == "missed_break" {
				n++
			}
		}
		return n
	}

	ticks := []string{
		"2025-03-10 08:31", // slot 0
		"2025-03-10 08:32", // slot 0, suppressed
		"2025-03-10 08:46", // slot 1
		"2025-03-10 08:47", // slot 1, suppressed
		"2025-03-10 09:16", // slot 2
	}
	want := []int{1, 1, 2, 2, 3}
	for i, tick := range ticks {
		if _, err := s.RunOnce(context.Background(), at(t, tick)); err != nil {
			t.Fatal(err)
		}
		if got := missedCount(); got != want[i] {
			t.Errorf("after tick %s: %d missed notifications, want %d", tick, got, want[i])
		}
	}
}

func TestRunOnceBadDescriptorSkipsAgent(t *testing.T) {
	agents := staticAgents{
		{ID: "broken", ShiftDescriptor: "whenever"},
		{ID: "ok", ShiftDescriptor: "06:00 - 15:00"},
	}
	emitter := newMemEmitter()
	s := newTestScheduler(agents, staticSessions{}, emitter)

	result, err := s.RunOnce(context.Background(), at(t, "2025-03-10 08:00"))
	if err != nil {
		t.Fatal(err)
	}
	if result.AgentsSkipped != 1 {
		t.Errorf("skipped = %d, want 1", result.AgentsSkipped)
	}
	if len(result.Errors) != 0 {
		t.Errorf("bad descriptor produced errors: %v", result.Errors)
	}
	if result.Emitted != 1 {
		t.Errorf("healthy agent not processed: emitted = %d", result.Emitted)
	}
}

func TestRunGuardSkipsOverlappingTick(t *testing.T) {
	release := make(chan struct{})
	blocking := agentFunc(func(ctx context.Context) ([]Agent, error) {
		<-release
		return nil, nil
	})
	s := newTestScheduler(blocking, staticSessions{}, newMemEmitter())

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = s.RunOnce(context.Background(), time.Now())
	}()

	// Wait for the first run to take the guard.
	for !s.running.Load() {
		time.Sleep(time.Millisecond)
	}

	if _, err := s.RunOnce(context.Background(), time.Now()); err != ErrTickInProgress {
		t.Errorf("overlapping RunOnce error = %v, want ErrTickInProgress", err)
	}

	close(release)
	<-done

	if _, err := s.RunOnce(context.Background(), time.Now()); err != nil {
		t.Errorf("RunOnce after guard release: %v", err)
	}
}

type agentFunc func(ctx context.Context) ([]Agent, error)

func (f agentFunc) ActiveAgents(ctx context.Context) ([]Agent, error) { return f(ctx) }

func TestTryEmitRace(t *testing.T) {
	// Concurrent identical keys must resolve to exactly one success, the
	// contract the store's conditional insert provides at the data layer.
	emitter := newMemEmitter()
	n := Notification{
		AgentID:       "agent-1",
		Category:      "break",
		ReminderType:  "available_soon",
		BreakType:     string(breaks.Lunch),
		OccurrenceKey: "2025-03-10",
	}

	const workers = 32
	var wg sync.WaitGroup
	var mu sync.Mutex
	successes := 0

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			created, err := emitter.TryEmit(context.Background(), n)
			if err != nil {
				t.Errorf("TryEmit: %v", err)
				return
			}
			if created {
				mu.Lock()
				successes++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if successes != 1 {
		t.Fatalf("%d of %d concurrent TryEmit calls succeeded, want exactly 1", successes, workers)
	}
}

func TestReminderTextPerState(t *testing.T) {
	shift, _ := breaks.ResolveShift("06:00 - 15:00", at(t, "2025-03-10 09:00"), testLoc)
	lunch := breaks.Windows(shift)[1]

	states := []breaks.ReminderState{
		breaks.AvailableSoon, breaks.AvailableNow, breaks.MidWindowNotTaken,
		breaks.EndingSoon, breaks.Missed,
	}
	seen := make(map[string]bool)
	for _, state := range states {
		n := buildReminder("agent-1", state, shift, lunch, at(t, "2025-03-10 11:00"))
		if n.Title == "" || n.Message == "" {
			t.Errorf("%s: empty title or message", state)
		}
		seen[n.Title] = true
	}
	if len(seen) != 5 {
		t.Errorf("expected distinct titles per state, got %d", len(seen))
	}
}
