package reminders

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/opsfloor/breakd/internal/breaks"
)

// Store backs the scheduler with Postgres. It implements AgentSource,
// SessionSource, and Emitter.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore wraps a pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// ActiveAgents returns every agent the scheduler should evaluate.
func (s *Store) ActiveAgents(ctx context.Context) ([]Agent, error) {
	rows, err := s.pool.Query(ctx, "active_agents")
	if err != nil {
		return nil, fmt.Errorf("query active agents: %w", err)
	}
	defer rows.Close()

	var agents []Agent
	for rows.Next() {
		var a Agent
		if err := rows.Scan(&a.ID, &a.ShiftDescriptor); err != nil {
			return nil, fmt.Errorf("scan agent: %w", err)
		}
		agents = append(agents, a)
	}
	return agents, rows.Err()
}

// AgentByID looks up a single agent. Used by the window query endpoint.
func (s *Store) AgentByID(ctx context.Context, agentID string) (Agent, error) {
	var a Agent
	err := s.pool.QueryRow(ctx, "agent_by_id", agentID).Scan(&a.ID, &a.ShiftDescriptor)
	if err != nil {
		return Agent{}, fmt.Errorf("agent %s: %w", agentID, err)
	}
	return a, nil
}

// SessionsForDay reads the break sessions recorded for an agent on a shift
// anchor day.
func (s *Store) SessionsForDay(ctx context.Context, agentID, day string) (map[breaks.BreakType]*breaks.Session, error) {
	rows, err := s.pool.Query(ctx, "sessions_for_day", agentID, day)
	if err != nil {
		return nil, fmt.Errorf("query sessions for %s on %s: %w", agentID, day, err)
	}
	defer rows.Close()

	sessions := make(map[breaks.BreakType]*breaks.Session)
	for rows.Next() {
		var bt string
		var sess breaks.Session
		if err := rows.Scan(&bt, &sess.StartTime, &sess.PauseTime, &sess.ResumeTime, &sess.EndTime); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sessions[breaks.BreakType(bt)] = &sess
	}
	return sessions, rows.Err()
}

// TryEmit inserts the reminder unless its occurrence window already fired.
// The conditional insert is a single atomic statement, so concurrent callers
// (including other scheduler processes) resolve to exactly one persisted
// row. The winner then triggers the realtime bridge via pg_notify; a failed
// publish is logged and dropped, the persisted row stays the source of
// truth.
func (s *Store) TryEmit(ctx context.Context, n Notification) (bool, error) {
	n.ID = uuid.NewString()
	err := s.pool.QueryRow(ctx, "insert_break_reminder",
		n.ID, n.AgentID, n.ReminderType, n.BreakType,
		n.Title, n.Message, n.OccurrenceKey,
	).Scan(&n.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		// Duplicate suppressed by the uniqueness constraint.
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("insert break reminder: %w", err)
	}

	payload, err := json.Marshal(n)
	if err == nil {
		_, err = s.pool.Exec(ctx, "notify_break_reminder", string(payload))
	}
	if err != nil {
		slog.Warn("Reminder publish failed", "agent_id", n.AgentID,
			"reminder_type", n.ReminderType, "error", err)
	}
	return true, nil
}

// RecentForAgent returns the newest break reminders for an agent, the normal
// read path for clients that missed the realtime publish.
func (s *Store) RecentForAgent(ctx context.Context, agentID string, limit int) ([]Notification, error) {
	rows, err := s.pool.Query(ctx, "recent_break_reminders", agentID, limit)
	if err != nil {
		return nil, fmt.Errorf("query recent reminders: %w", err)
	}
	defer rows.Close()

	out := make([]Notification, 0, limit)
	for rows.Next() {
		var n Notification
		if err := rows.Scan(&n.ID, &n.AgentID, &n.ReminderType, &n.BreakType,
			&n.Title, &n.Message, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan reminder: %w", err)
		}
		n.Category = "break"
		out = append(out, n)
	}
	return out, rows.Err()
}
