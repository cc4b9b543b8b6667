package handlers

import (
	"net/http"

	"github.com/amaumene/aacfetch/internal/controllers"
	"github.com/sirupsen/logrus"
)

// StatsSource reports queue counters
type StatsSource interface {
	Stats() controllers.QueueStats
}

// StatusHandler handles status requests
type StatusHandler struct {
	queue           StatsSource
	forceConversion bool
	logger          *logrus.Logger
}

// NewStatusHandler creates a new status handler
func NewStatusHandler(queue StatsSource, forceConversion bool, logger *logrus.Logger) *StatusHandler {
	return &StatusHandler{
		queue:           queue,
		forceConversion: forceConversion,
		logger:          logger,
	}
}

// StatusResponse represents the status response
type StatusResponse struct {
	Jobs            controllers.QueueStats `json:"jobs"`
	ForceConversion bool                   `json:"force_conversion"`
}

// ServeHTTP handles the status endpoint
func (h *StatusHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, StatusResponse{
		Jobs:            h.queue.Stats(),
		ForceConversion: h.forceConversion,
	})
}
