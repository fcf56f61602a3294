package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/opsfloor/breakd/internal/api/respond"
)

const heartbeatInterval = 25 * time.Second

// StreamReminders serves an agent's reminder feed over server-sent events.
// Each newly persisted notification for the agent arrives as one `reminder`
// event; a comment heartbeat keeps intermediaries from closing the stream.
func (h *Handler) StreamReminders(w http.ResponseWriter, r *http.Request) {
	agentID := chi.URLParam(r, "agentID")

	flusher, ok := w.(http.Flusher)
	if !ok {
		respond.WriteError(w, http.StatusInternalServerError, "STREAMING_UNSUPPORTED",
			"response writer does not support streaming")
		return
	}

	events, cancel := h.hub.Subscribe(agentID)
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	fmt.Fprint(w, ": connected\n\n")
	flusher.Flush()

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case n := <-events:
			payload, err := json.Marshal(n)
			if err != nil {
				continue
			}
			fmt.Fprintf(w, "event: reminder\ndata: %s\n\n", payload)
			flusher.Flush()

		case <-heartbeat.C:
			fmt.Fprint(w, ": heartbeat\n\n")
			flusher.Flush()

		case <-r.Context().Done():
			return
		}
	}
}
