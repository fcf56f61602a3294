// Package handler provides HTTP handlers for the break reminder API.
// Handlers stay thin: window math lives in internal/breaks, persistence in
// internal/reminders.
package handler

import (
	"net/http"
	"time"

	"github.com/opsfloor/breakd/internal/api/respond"
	"github.com/opsfloor/breakd/internal/cache"
	"github.com/opsfloor/breakd/internal/config"
	"github.com/opsfloor/breakd/internal/db"
	"github.com/opsfloor/breakd/internal/realtime"
	"github.com/opsfloor/breakd/internal/reminders"
)

// Handler holds shared dependencies for all endpoint handlers.
type Handler struct {
	pool      *db.Pool
	store     *reminders.Store
	scheduler *reminders.Scheduler
	hub       *realtime.Hub
	cache     *cache.Cache
	cfg       *config.Config
	loc       *time.Location
}

// New creates a Handler with shared dependencies.
func New(pool *db.Pool, scheduler *reminders.Scheduler, hub *realtime.Hub,
	c *cache.Cache, cfg *config.Config, loc *time.Location) *Handler {
	return &Handler{
		pool:      pool,
		store:     reminders.NewStore(pool.Pool),
		scheduler: scheduler,
		hub:       hub,
		cache:     c,
		cfg:       cfg,
		loc:       loc,
	}
}

// Root serves API info at /.
func (h *Handler) Root(w http.ResponseWriter, r *http.Request) {
	respond.WriteJSONObject(w, http.StatusOK, map[string]interface{}{
		"name":    "Break Reminder API",
		"version": "1.0.0",
		"status":  "running",
		"docs":    "/docs",
		"zone":    h.loc.String(),
	})
}

// HealthCheck returns basic health status.
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	respond.WriteJSONObject(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// HealthCheckDB verifies database connectivity.
func (h *Handler) HealthCheckDB(w http.ResponseWriter, r *http.Request) {
	if err := h.pool.HealthCheck(r.Context()); err != nil {
		respond.WriteJSONObject(w, http.StatusServiceUnavailable, map[string]interface{}{
			"status":    "unhealthy",
			"database":  "disconnected",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
		return
	}
	respond.WriteJSONObject(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"database":  "connected",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// HealthCheckCache returns cache statistics.
func (h *Handler) HealthCheckCache(w http.ResponseWriter, r *http.Request) {
	respond.WriteJSONObject(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"cache":     h.cache.Stats(),
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
