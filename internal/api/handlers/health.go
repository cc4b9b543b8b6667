package handlers

import (
	"net/http"

	"github.com/sirupsen/logrus"
)

// ToolCheck reports whether one external tool can be run
type ToolCheck struct {
	Name      string
	Available func() bool
}

// HealthResponse lists the availability of each external tool
type HealthResponse struct {
	Status string          `json:"status"` // "healthy" or "degraded"
	Tools  map[string]bool `json:"tools"`
}

// HealthHandler reports whether downloads can run
type HealthHandler struct {
	checks []ToolCheck
	logger *logrus.Logger
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(checks []ToolCheck, logger *logrus.Logger) *HealthHandler {
	return &HealthHandler{checks: checks, logger: logger}
}

// ServeHTTP answers 503 when any tool is missing
func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{Status: "healthy", Tools: make(map[string]bool, len(h.checks))}
	for _, check := range h.checks {
		ok := check.Available()
		resp.Tools[check.Name] = ok
		if !ok {
			resp.Status = "degraded"
		}
	}

	code := http.StatusOK
	if resp.Status != "healthy" {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, resp)
}
