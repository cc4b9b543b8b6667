package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/amaumene/aacfetch/internal/settings"
	"github.com/sirupsen/logrus"
)

// SettingsStore reads and persists user settings
type SettingsStore interface {
	Get() settings.Settings
	Save(settings.Settings) error
}

// SettingsHandler exposes the user settings file
type SettingsHandler struct {
	store  SettingsStore
	logger *logrus.Logger
}

// NewSettingsHandler creates a new settings handler
func NewSettingsHandler(store SettingsStore, logger *logrus.Logger) *SettingsHandler {
	return &SettingsHandler{
		store:  store,
		logger: logger,
	}
}

// Get handles GET /api/settings
func (h *SettingsHandler) Get(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.store.Get())
}

// Update handles PUT /api/settings. Fields missing from the body keep their
// current value.
func (h *SettingsHandler) Update(w http.ResponseWriter, r *http.Request) {
	updated := h.store.Get()
	if err := json.NewDecoder(r.Body).Decode(&updated); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.store.Save(updated); err != nil {
		h.logger.WithError(err).Error("Failed to save settings")
		writeError(w, http.StatusInternalServerError, "failed to save settings")
		return
	}

	writeJSON(w, http.StatusOK, h.store.Get())
}
