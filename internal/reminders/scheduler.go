package reminders

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/opsfloor/breakd/internal/breaks"
)

// ErrTickInProgress is returned when a tick is requested while the previous
// one is still running. The loop skips rather than queues.
var ErrTickInProgress = errors.New("scheduler tick already in progress")

// RunResult summarizes one scheduler pass.
type RunResult struct {
	AgentsSeen    int
	AgentsSkipped int
	Emitted       int
	Suppressed    int
	Errors        []string
	Duration      time.Duration
}

// Summary returns a one-line description for logging.
func (r RunResult) Summary() string {
	return fmt.Sprintf("agents=%d skipped=%d emitted=%d suppressed=%d errors=%d in %s",
		r.AgentsSeen, r.AgentsSkipped, r.Emitted, r.Suppressed, len(r.Errors),
		r.Duration.Round(time.Millisecond))
}

// Scheduler drives the periodic reminder pass. One instance per process;
// the running flag is the process-local run guard, duplicate suppression
// across processes is the emitter's concern.
type Scheduler struct {
	agents   AgentSource
	sessions SessionSource
	emitter  Emitter
	loc      *time.Location
	interval time.Duration
	logger   *slog.Logger

	running atomic.Bool

	// Agents whose broken descriptor was already logged, so a bad row does
	// not spam the log every minute.
	warnedMu sync.Mutex
	warned   map[string]struct{}
}

// NewScheduler assembles a scheduler. interval is the tick cadence; ticks
// are aligned to multiples of it (top of the minute for 60s).
func NewScheduler(agents AgentSource, sessions SessionSource, emitter Emitter,
	loc *time.Location, interval time.Duration, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		agents:   agents,
		sessions: sessions,
		emitter:  emitter,
		loc:      loc,
		interval: interval,
		logger:   logger,
		warned:   make(map[string]struct{}),
	}
}

// Start runs the reminder loop until ctx is cancelled. An in-flight tick
// finishes before the loop returns. Intended to be called with `go`.
func (s *Scheduler) Start(ctx context.Context) {
	s.logger.Info("Reminder scheduler started", "interval", s.interval, "zone", s.loc.String())

	// Align the first tick to the next interval boundary.
	now := time.Now()
	first := now.Truncate(s.interval).Add(s.interval)
	select {
	case <-time.After(first.Sub(now)):
	case <-ctx.Done():
		s.logger.Info("Reminder scheduler stopped")
		return
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.tick(ctx)
	for {
		select {
		case <-ticker.C:
			s.tick(ctx)
		case <-ctx.Done():
			s.logger.Info("Reminder scheduler stopped")
			return
		}
	}
}

func (s *Scheduler) tick(ctx context.Context) {
	result, err := s.RunOnce(ctx, time.Now())
	if errors.Is(err, ErrTickInProgress) {
		s.logger.Warn("Previous tick still running, skipping")
		return
	}
	if result.Emitted > 0 || len(result.Errors) > 0 {
		s.logger.Info("Reminder pass complete", "summary", result.Summary())
	}
	for _, e := range result.Errors {
		s.logger.Error("reminder pass error", "error", e)
	}
}

// RunOnce executes a single reminder pass at now. It is the operational
// entry point behind the loop and the manual trigger endpoint; both go
// through the run guard. A failure on one agent is recorded and the pass
// moves on — nothing here aborts the batch or the process.
func (s *Scheduler) RunOnce(ctx context.Context, now time.Time) (RunResult, error) {
	if !s.running.CompareAndSwap(false, true) {
		return RunResult{}, ErrTickInProgress
	}
	defer s.running.Store(false)

	start := time.Now()
	now = now.In(s.loc)

	var result RunResult
	agents, err := s.agents.ActiveAgents(ctx)
	if err != nil {
		result.Errors = append(result.Errors, err.Error())
		result.Duration = time.Since(start)
		return result, nil
	}

	for _, agent := range agents {
		result.AgentsSeen++
		if err := s.evaluateAgent(ctx, agent, now, &result); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("agent %s: %s", agent.ID, err))
		}
	}

	result.Duration = time.Since(start)
	return result, nil
}

// evaluateAgent resolves the agent's shift, derives the break windows, and
// emits whatever state each window is in. Each agent is an independent unit
// of work; no transaction spans agents.
func (s *Scheduler) evaluateAgent(ctx context.Context, agent Agent, now time.Time, result *RunResult) error {
	shift, err := breaks.ResolveShift(agent.ShiftDescriptor, now, s.loc)
	if err != nil {
		// Unusable descriptor: agent has no active window this tick.
		s.warnOnce(agent.ID, err)
		result.AgentsSkipped++
		return nil
	}

	sessions, err := s.sessions.SessionsForDay(ctx, agent.ID, shift.Day())
	if err != nil {
		return fmt.Errorf("load sessions: %w", err)
	}

	for _, w := range breaks.Windows(shift) {
		state, due := breaks.Evaluate(shift, w, now, sessions[w.Type])
		if !due {
			continue
		}

		created, err := s.emitter.TryEmit(ctx, buildReminder(agent.ID, state, shift, w, now))
		if err != nil {
			result.Errors = append(result.Errors,
				fmt.Sprintf("agent %s %s/%s: %s", agent.ID, w.Type, state, err))
			continue
		}
		if created {
			result.Emitted++
			s.logger.Info("Break reminder emitted",
				"agent_id", agent.ID, "break_type", w.Type, "state", state)
		} else {
			result.Suppressed++
		}
	}
	return nil
}

func (s *Scheduler) warnOnce(agentID string, err error) {
	s.warnedMu.Lock()
	defer s.warnedMu.Unlock()
	if _, ok := s.warned[agentID]; ok {
		return
	}
	s.warned[agentID] = struct{}{}
	s.logger.Warn("Agent skipped: bad shift descriptor", "agent_id", agentID, "error", err)
}
