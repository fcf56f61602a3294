// Package db provides a pgxpool-based connection pool with prepared statement
// registration and health checking.
package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/opsfloor/breakd/internal/config"
)

// NotifyChannel is the Postgres NOTIFY channel new break reminders are
// published on. The insert statement and the realtime listener must agree
// on it.
const NotifyChannel = "break_reminder"

// Pool wraps pgxpool.Pool with application-specific helpers.
type Pool struct {
	*pgxpool.Pool
}

// New creates and validates a new connection pool.
func New(ctx context.Context, cfg *config.Config) (*Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}

	poolCfg.MinConns = int32(cfg.DBPoolMinConns)
	poolCfg.MaxConns = int32(cfg.DBPoolMaxConns)
	poolCfg.MaxConnLifetime = cfg.DBPoolMaxLife
	poolCfg.MaxConnIdleTime = 5 * time.Minute

	// Register prepared statements on every new connection.
	poolCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return registerPreparedStatements(ctx, conn)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	// Verify connectivity
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &Pool{Pool: pool}, nil
}

// HealthCheck runs a trivial query to verify the database is reachable.
func (p *Pool) HealthCheck(ctx context.Context) error {
	var n int
	return p.QueryRow(ctx, "health_check").Scan(&n)
}

// registerPreparedStatements registers all statements the scheduler and the
// API layer use. Prepared statements eliminate parse overhead on every tick.
func registerPreparedStatements(ctx context.Context, conn *pgx.Conn) error {
	stmts := map[string]string{
		// Health
		"health_check": "SELECT 1",

		// Agent directory (read-only, owned by the account subsystem)
		"active_agents": "SELECT id, shift_descriptor FROM agents WHERE is_active = true",
		"agent_by_id":   "SELECT id, shift_descriptor FROM agents WHERE id = $1",

		// Break sessions (read-only, recorded by the break tracker)
		"sessions_for_day": `
			SELECT break_type, start_time, pause_time, resume_time, end_time
			FROM break_sessions
			WHERE agent_id = $1 AND session_date = $2`,

		// Notifications: the atomic conditional insert. The uniqueness
		// constraint on (agent_id, break_type, reminder_type,
		// occurrence_key) makes the existence check and the insert one
		// operation — concurrent scheduler processes racing on the same
		// key resolve to exactly one row.
		"insert_break_reminder": `
			INSERT INTO notifications
				(id, agent_id, category, reminder_type, break_type,
				 title, message, occurrence_key)
			VALUES ($1, $2, 'break', $3, $4, $5, $6, $7)
			ON CONFLICT (agent_id, break_type, reminder_type, occurrence_key)
				DO NOTHING
			RETURNING created_at`,

		// Realtime publish trigger for the row that won the insert.
		"notify_break_reminder": "SELECT pg_notify('" + NotifyChannel + "', $1)",

		// Notifications: read path for connected clients
		"recent_break_reminders": `
			SELECT id, agent_id, reminder_type, break_type, title, message, created_at
			FROM notifications
			WHERE agent_id = $1 AND category = 'break' AND deleted_at IS NULL
			ORDER BY created_at DESC
			LIMIT $2`,

		// Maintenance: next-day session pre-creation
		"precreate_session": `
			INSERT INTO break_sessions (agent_id, break_type, session_date)
			VALUES ($1, $2, $3)
			ON CONFLICT (agent_id, break_type, session_date) DO NOTHING`,
	}

	for name, sql := range stmts {
		if _, err := conn.Prepare(ctx, name, sql); err != nil {
			return fmt.Errorf("prepare %q: %w", name, err)
		}
	}
	return nil
}
