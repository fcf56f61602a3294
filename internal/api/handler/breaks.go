package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"

	"github.com/opsfloor/breakd/internal/api/respond"
	"github.com/opsfloor/breakd/internal/breaks"
	"github.com/opsfloor/breakd/internal/cache"
	"github.com/opsfloor/breakd/internal/reminders"
)

const (
	defaultReminderLimit = 20
	maxReminderLimit     = 100
)

// GetBreakWindows returns the derived break windows for an agent's shift
// occurrence at `at` (default now). Read-only: no reminder is emitted.
func (h *Handler) GetBreakWindows(w http.ResponseWriter, r *http.Request) {
	agentID := chi.URLParam(r, "agentID")

	at := time.Now()
	if raw := r.URL.Query().Get("at"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			respond.WriteError(w, http.StatusBadRequest, "BAD_REQUEST",
				fmt.Sprintf("invalid at parameter: %v", err))
			return
		}
		at = parsed
	}
	at = at.In(h.loc)

	agent, err := h.store.AgentByID(r.Context(), agentID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			respond.WriteError(w, http.StatusNotFound, "NOT_FOUND", "unknown agent")
			return
		}
		respond.WriteError(w, http.StatusServiceUnavailable, "DB_ERROR", "agent lookup failed")
		return
	}

	shift, err := breaks.ResolveShift(agent.ShiftDescriptor, at, h.loc)
	if err != nil {
		var cfgErr *breaks.ConfigError
		if errors.As(err, &cfgErr) {
			respond.WriteError(w, http.StatusUnprocessableEntity, "CONFIG_ERROR", cfgErr.Error())
			return
		}
		respond.WriteError(w, http.StatusInternalServerError, "INTERNAL", "shift resolution failed")
		return
	}

	respond.WriteJSONObject(w, http.StatusOK, map[string]interface{}{
		"agent_id": agent.ID,
		"shift": map[string]interface{}{
			"start":     shift.Start,
			"end":       shift.End,
			"overnight": shift.Overnight,
			"day":       shift.Day(),
		},
		"windows": breaks.Windows(shift),
	})
}

// GetAgentReminders returns the newest break notifications for an agent.
func (h *Handler) GetAgentReminders(w http.ResponseWriter, r *http.Request) {
	agentID := chi.URLParam(r, "agentID")

	limit := defaultReminderLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = min(n, maxReminderLimit)
		}
	}

	key := fmt.Sprintf("reminders:%s:%d", agentID, limit)
	if data, etag, ok := h.cache.Get(key); ok {
		if r.Header.Get("If-None-Match") == etag {
			respond.WriteNotModified(w, etag)
			return
		}
		respond.WriteJSON(w, data, etag, cache.TTLReminders, true)
		return
	}

	list, err := h.store.RecentForAgent(r.Context(), agentID, limit)
	if err != nil {
		respond.WriteError(w, http.StatusServiceUnavailable, "DB_ERROR", "reminder lookup failed")
		return
	}

	data, err := json.Marshal(map[string]interface{}{
		"agent_id":      agentID,
		"notifications": list,
	})
	if err != nil {
		respond.WriteError(w, http.StatusInternalServerError, "INTERNAL", "encode failed")
		return
	}

	etag := h.cache.Set(key, data, cache.TTLReminders)
	respond.WriteJSON(w, data, etag, cache.TTLReminders, false)
}

// GetCatalog returns the fixed break-type catalog.
func (h *Handler) GetCatalog(w http.ResponseWriter, r *http.Request) {
	const key = "breaks:catalog"
	if data, etag, ok := h.cache.Get(key); ok {
		if r.Header.Get("If-None-Match") == etag {
			respond.WriteNotModified(w, etag)
			return
		}
		respond.WriteJSON(w, data, etag, cache.TTLCatalog, true)
		return
	}

	type entry struct {
		BreakType       string  `json:"break_type"`
		DisplayName     string  `json:"display_name"`
		DurationMinutes int     `json:"duration_minutes"`
		Fraction        float64 `json:"fraction"`
	}

	out := make([]entry, 0, 6)
	for _, e := range breaks.Catalog() {
		out = append(out, entry{
			BreakType:       string(e.Type),
			DisplayName:     e.Type.DisplayName(),
			DurationMinutes: int(e.Duration.Minutes()),
			Fraction:        e.Fraction,
		})
	}

	data, err := json.Marshal(map[string]interface{}{"catalog": out})
	if err != nil {
		respond.WriteError(w, http.StatusInternalServerError, "INTERNAL", "encode failed")
		return
	}
	etag := h.cache.Set(key, data, cache.TTLCatalog)
	respond.WriteJSON(w, data, etag, cache.TTLCatalog, false)
}

// RunSchedulerOnce triggers a single reminder pass out of band.
func (h *Handler) RunSchedulerOnce(w http.ResponseWriter, r *http.Request) {
	result, err := h.scheduler.RunOnce(r.Context(), time.Now())
	if errors.Is(err, reminders.ErrTickInProgress) {
		respond.WriteError(w, http.StatusConflict, "TICK_IN_PROGRESS",
			"a scheduler tick is already running")
		return
	}

	respond.WriteJSONObject(w, http.StatusOK, map[string]interface{}{
		"agents_seen":    result.AgentsSeen,
		"agents_skipped": result.AgentsSkipped,
		"emitted":        result.Emitted,
		"suppressed":     result.Suppressed,
		"errors":         result.Errors,
		"duration_ms":    result.Duration.Milliseconds(),
	})
}
