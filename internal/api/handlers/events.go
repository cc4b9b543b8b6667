package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/amaumene/aacfetch/internal/models"
	"github.com/sirupsen/logrus"
)

const keepAliveInterval = 30 * time.Second

// EventSource streams job events
type EventSource interface {
	Subscribe() (<-chan models.Event, func())
}

// EventsHandler streams job events as Server-Sent Events
type EventsHandler struct {
	source EventSource
	logger *logrus.Logger
}

// NewEventsHandler creates a new events handler
func NewEventsHandler(source EventSource, logger *logrus.Logger) *EventsHandler {
	return &EventsHandler{
		source: source,
		logger: logger,
	}
}

// ServeHTTP handles GET /api/events, optionally filtered by ?job=
func (h *EventsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	rc := http.NewResponseController(w)
	// the stream outlives the server's write timeout
	_ = rc.SetWriteDeadline(time.Time{})

	jobID := r.URL.Query().Get("job")
	events, unsubscribe := h.source.Subscribe()
	defer unsubscribe()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	if err := rc.Flush(); err != nil {
		h.logger.WithError(err).Warn("Event stream not supported by response writer")
		return
	}

	keepAlive := time.NewTicker(keepAliveInterval)
	defer keepAlive.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-keepAlive.C:
			if _, err := fmt.Fprint(w, ": keep-alive\n\n"); err != nil {
				return
			}
		case ev, ok := <-events:
			if !ok {
				return
			}
			if jobID != "" && ev.JobID != jobID {
				continue
			}
			data, err := json.Marshal(ev)
			if err != nil {
				h.logger.WithError(err).Error("Failed to encode event")
				continue
			}
			if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Kind, data); err != nil {
				return
			}
		}
		if err := rc.Flush(); err != nil {
			return
		}
	}
}
