package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/erazemk/popis/internal/draft"
)

// EventsHandler streams engine snapshots as Server-Sent Events.
type EventsHandler struct {
	Engine    *draft.Engine
	KeepAlive time.Duration
	Logger    *slog.Logger
}

// Stream handles GET /api/draft/events. The first event carries the current
// state. Intermediate snapshots may be skipped when the client reads slowly.
func (h *EventsHandler) Stream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		jsonError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	clientID := uuid.New().String()
	logger := h.Logger.With("client_id", clientID)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	snapshots, cancel := h.Engine.Subscribe()
	defer cancel()

	logger.Info("event stream opened")
	defer logger.Info("event stream closed")

	ticker := time.NewTicker(h.KeepAlive)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case snap, ok := <-snapshots:
			if !ok {
				return
			}
			if err := writeEvent(w, "snapshot", snap); err != nil {
				logger.Warn("writing event failed", "error", err)
				return
			}
			flusher.Flush()
		case <-ticker.C:
			if _, err := fmt.Fprint(w, ": keepalive\n\n"); err != nil {
				logger.Warn("keep-alive write failed", "error", err)
				return
			}
			flusher.Flush()
		}
	}
}

func writeEvent(w http.ResponseWriter, event string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("encoding event: %w", err)
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, payload)
	return err
}
