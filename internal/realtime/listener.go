package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/opsfloor/breakd/internal/db"
	"github.com/opsfloor/breakd/internal/reminders"
)

const (
	reconnectBackoff = 5 * time.Second
	maxReconnect     = 30 * time.Second
)

// Listen opens a dedicated connection (not from the pool) and consumes the
// break_reminder channel, publishing each event onto the hub. It reconnects
// automatically on connection loss. Blocks until ctx is cancelled. Intended
// to be called with `go`.
func Listen(ctx context.Context, dbURL string, hub *Hub, logger *slog.Logger) {
	backoff := reconnectBackoff

	for {
		err := listenLoop(ctx, dbURL, hub, logger)
		if ctx.Err() != nil {
			logger.Info("Reminder listener stopped (context cancelled)")
			return
		}

		logger.Error("Reminder listener disconnected, reconnecting...",
			"error", err, "backoff", backoff)

		select {
		case <-time.After(backoff):
			backoff = min(backoff*2, maxReconnect)
		case <-ctx.Done():
			return
		}
	}
}

// listenLoop runs a single listen session. Returns when the connection drops
// or the context is cancelled.
func listenLoop(ctx context.Context, dbURL string, hub *Hub, logger *slog.Logger) error {
	conn, err := pgx.Connect(ctx, dbURL)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer conn.Close(context.Background())

	if _, err := conn.Exec(ctx, "LISTEN "+db.NotifyChannel); err != nil {
		return fmt.Errorf("LISTEN %s: %w", db.NotifyChannel, err)
	}
	logger.Info("Reminder listener connected", "channel", db.NotifyChannel)

	for {
		notification, err := conn.WaitForNotification(ctx)
		if err != nil {
			return fmt.Errorf("wait for notification: %w", err)
		}

		var event reminders.Notification
		if err := json.Unmarshal([]byte(notification.Payload), &event); err != nil {
			logger.Warn("Failed to parse reminder event",
				"payload", notification.Payload, "error", err)
			continue
		}
		event.Category = "break"

		delivered := hub.Publish(event)
		logger.Info("Reminder published",
			"agent_id", event.AgentID,
			"reminder_type", event.ReminderType,
			"break_type", event.BreakType,
			"sessions", delivered)
	}
}
