// Package maintenance runs periodic housekeeping as Go tickers: next-day
// break session pre-creation and notification cleanup. Both run on their own
// cadence, independent of the reminder pass, which they must never block.
package maintenance

import (
	"context"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/opsfloor/breakd/internal/breaks"
	"github.com/opsfloor/breakd/internal/reminders"
)

// Config controls maintenance task intervals. Zero duration disables a task.
type Config struct {
	CleanupInterval time.Duration // Purge old soft-deleted/stale notifications
	PrepareInterval time.Duration // Pre-create next-day break session rows
}

// DefaultConfig returns sensible production defaults.
func DefaultConfig() Config {
	return Config{
		CleanupInterval: 30 * time.Minute,
		PrepareInterval: 1 * time.Hour,
	}
}

// Start launches all configured maintenance tickers. Blocks until ctx is
// cancelled. Intended to be called with `go`.
func Start(ctx context.Context, pool *pgxpool.Pool, loc *time.Location, cfg Config, logger *slog.Logger) {
	logger.Info("Maintenance tickers started",
		"cleanup", cfg.CleanupInterval,
		"prepare", cfg.PrepareInterval)

	tickers := make([]*time.Ticker, 0, 2)
	defer func() {
		for _, t := range tickers {
			t.Stop()
		}
	}()

	if cfg.CleanupInterval > 0 {
		t := time.NewTicker(cfg.CleanupInterval)
		tickers = append(tickers, t)
		go runLoop(ctx, t.C, func() { cleanup(ctx, pool, logger) })
	}

	if cfg.PrepareInterval > 0 {
		t := time.NewTicker(cfg.PrepareInterval)
		tickers = append(tickers, t)
		go runLoop(ctx, t.C, func() { prepareNextDay(ctx, pool, loc, logger) })
	}

	<-ctx.Done()
	logger.Info("Maintenance tickers stopped")
}

func runLoop(ctx context.Context, ch <-chan time.Time, fn func()) {
	for {
		select {
		case <-ch:
			fn()
		case <-ctx.Done():
			return
		}
	}
}

// --------------------------------------------------------------------------
// Task implementations
// --------------------------------------------------------------------------

// cleanup removes break notifications that were soft-deleted or that aged
// out of the read path.
func cleanup(ctx context.Context, pool *pgxpool.Pool, logger *slog.Logger) {
	tag, err := pool.Exec(ctx, `
		DELETE FROM notifications
		WHERE category = 'break'
		  AND (deleted_at IS NOT NULL OR created_at < NOW() - INTERVAL '30 days')`)
	if err != nil {
		logger.Warn("Cleanup: failed to purge old notifications", "error", err)
	} else if tag.RowsAffected() > 0 {
		logger.Info("Cleanup: purged old notifications", "count", tag.RowsAffected())
	}
}

// prepareNextDay pre-creates skeleton break_sessions rows for each active
// agent's next shift occurrence. Rows carry no timestamps, so the evaluator
// treats them the same as no session; the break tracker fills them in when
// the agent actually takes a break.
func prepareNextDay(ctx context.Context, pool *pgxpool.Pool, loc *time.Location, logger *slog.Logger) {
	store := reminders.NewStore(pool)
	agents, err := store.ActiveAgents(ctx)
	if err != nil {
		logger.Warn("Prepare: failed to list agents", "error", err)
		return
	}

	tomorrow := time.Now().In(loc).AddDate(0, 0, 1)
	created := 0
	for _, agent := range agents {
		shift, err := breaks.ResolveShift(agent.ShiftDescriptor, tomorrow, loc)
		if err != nil {
			continue // scheduler already logs bad descriptors
		}
		for _, w := range breaks.Windows(shift) {
			tag, err := pool.Exec(ctx, "precreate_session", agent.ID, string(w.Type), shift.Day())
			if err != nil {
				logger.Warn("Prepare: insert failed",
					"agent_id", agent.ID, "break_type", w.Type, "error", err)
				continue
			}
			created += int(tag.RowsAffected())
		}
	}

	if created > 0 {
		logger.Info("Prepare: pre-created next-day sessions", "count", created)
	}
}
