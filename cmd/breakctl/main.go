// Command breakctl is the operational CLI for the break reminder engine.
//
// Usage:
//
//	breakctl run-once
//	breakctl windows --agent agent-17
//	breakctl windows --agent agent-17 --at 2025-03-10T23:30:00+08:00
//	breakctl catalog
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/opsfloor/breakd/internal/breaks"
	"github.com/opsfloor/breakd/internal/config"
	"github.com/opsfloor/breakd/internal/db"
	"github.com/opsfloor/breakd/internal/reminders"
)

var logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

func main() {
	// Load .env if present
	_ = godotenv.Load(".env")

	root := &cobra.Command{
		Use:   "breakctl",
		Short: "Break reminder engine CLI",
	}

	root.AddCommand(runOnceCmd())
	root.AddCommand(windowsCmd())
	root.AddCommand(catalogCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// --------------------------------------------------------------------------
// run-once command
// --------------------------------------------------------------------------

func runOnceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run-once",
		Short: "Run a single reminder scheduler pass",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDB(func(ctx context.Context, cfg *config.Config, pool *db.Pool) error {
				loc, err := cfg.Location()
				if err != nil {
					return err
				}
				store := reminders.NewStore(pool.Pool)
				scheduler := reminders.NewScheduler(store, store, store, loc, cfg.TickInterval, logger)

				result, err := scheduler.RunOnce(ctx, time.Now())
				if err != nil {
					return err
				}
				logger.Info("Reminder pass finished", "summary", result.Summary())
				for _, e := range result.Errors {
					logger.Error("pass error", "error", e)
				}
				return nil
			})
		},
	}
}

// --------------------------------------------------------------------------
// windows command
// --------------------------------------------------------------------------

func windowsCmd() *cobra.Command {
	var agentID, atRaw string
	cmd := &cobra.Command{
		Use:   "windows",
		Short: "Print an agent's derived break windows",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDB(func(ctx context.Context, cfg *config.Config, pool *db.Pool) error {
				loc, err := cfg.Location()
				if err != nil {
					return err
				}

				at := time.Now()
				if atRaw != "" {
					at, err = time.Parse(time.RFC3339, atRaw)
					if err != nil {
						return fmt.Errorf("parse --at: %w", err)
					}
				}

				store := reminders.NewStore(pool.Pool)
				agent, err := store.AgentByID(ctx, agentID)
				if err != nil {
					return err
				}

				shift, err := breaks.ResolveShift(agent.ShiftDescriptor, at, loc)
				if err != nil {
					return err
				}

				fmt.Printf("shift %s  %s – %s  (overnight=%v)\n",
					shift.Day(), shift.Start.Format(time.RFC3339), shift.End.Format(time.RFC3339), shift.Overnight)
				for _, w := range breaks.Windows(shift) {
					fmt.Printf("  %-13s %s – %s\n", w.Type,
						w.Start.Format("15:04"), w.End.Format("15:04"))
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&agentID, "agent", "", "Agent ID (required)")
	cmd.Flags().StringVar(&atRaw, "at", "", "Evaluation instant, RFC 3339 (default now)")
	_ = cmd.MarkFlagRequired("agent")
	return cmd
}

// --------------------------------------------------------------------------
// catalog command
// --------------------------------------------------------------------------

func catalogCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "catalog",
		Short: "Print the break-type catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			type entry struct {
				BreakType       string  `json:"break_type"`
				DurationMinutes int     `json:"duration_minutes"`
				Fraction        float64 `json:"fraction"`
			}
			out := make([]entry, 0, 6)
			for _, e := range breaks.Catalog() {
				out = append(out, entry{string(e.Type), int(e.Duration.Minutes()), e.Fraction})
			}
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(out)
		},
	}
}

// --------------------------------------------------------------------------
// Helpers
// --------------------------------------------------------------------------

// withDB loads config, opens the pool, and runs fn with an interrupt-aware
// context.
func withDB(fn func(ctx context.Context, cfg *config.Config, pool *db.Pool) error) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := db.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer pool.Close()

	return fn(ctx, cfg, pool)
}
