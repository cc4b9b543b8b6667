package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/amaumene/aacfetch/internal/controllers"
	"github.com/amaumene/aacfetch/internal/models"
	"github.com/amaumene/aacfetch/internal/settings"
	"github.com/amaumene/aacfetch/internal/utils"
	"github.com/sirupsen/logrus"
)

// JobQueue is the download queue as seen by the API
type JobQueue interface {
	Enqueue(req controllers.EnqueueRequest) (*models.DownloadJob, error)
	Cancel(id string) error
	Get(id string) (*models.DownloadJob, error)
	List() []models.DownloadJob
	Clear() int
}

// SettingsSource provides the user's defaults
type SettingsSource interface {
	Get() settings.Settings
}

// JobsHandler manages download jobs
type JobsHandler struct {
	queue    JobQueue
	settings SettingsSource
	logger   *logrus.Logger
}

// NewJobsHandler creates a new jobs handler
func NewJobsHandler(queue JobQueue, settings SettingsSource, logger *logrus.Logger) *JobsHandler {
	return &JobsHandler{
		queue:    queue,
		settings: settings,
		logger:   logger,
	}
}

// CreateJobRequest is a download request. Empty fields take the user's
// defaults.
type CreateJobRequest struct {
	URL       string `json:"url"`
	Format    string `json:"format"` // "video"/"mp4" or "audio"/"mp3"
	Quality   string `json:"quality"`
	OutputDir string `json:"output_dir"`
}

// Create handles POST /api/jobs
func (h *JobsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateJobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if !utils.IsSupportedURL(req.URL) {
		writeError(w, http.StatusBadRequest, "unsupported url")
		return
	}

	prefs := h.settings.Get()
	if req.Format == "" {
		req.Format = prefs.DefaultFormat
	}
	if req.Quality == "" {
		req.Quality = prefs.DefaultQuality
	}
	kind := models.ParseOutputKind(req.Format)

	outputDir := req.OutputDir
	if outputDir == "" {
		outputDir = prefs.OutputDirFor(kind)
	}

	job, err := h.queue.Enqueue(controllers.EnqueueRequest{
		URL:       req.URL,
		Kind:      kind,
		Quality:   models.ParseQuality(req.Quality),
		OutputDir: outputDir,
	})
	if err != nil {
		h.logger.WithError(err).WithField("url", req.URL).Error("Failed to enqueue job")
		writeError(w, http.StatusInternalServerError, "failed to enqueue job")
		return
	}

	writeJSON(w, http.StatusCreated, job)
}

// List handles GET /api/jobs
func (h *JobsHandler) List(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.queue.List())
}

// Get handles GET /api/jobs/{id}
func (h *JobsHandler) Get(w http.ResponseWriter, r *http.Request) {
	job, err := h.queue.Get(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, job)
}

// Cancel handles POST /api/jobs/{id}/cancel
func (h *JobsHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	err := h.queue.Cancel(r.PathValue("id"))
	switch {
	case errors.Is(err, models.ErrJobNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, models.ErrJobFinished):
		writeError(w, http.StatusConflict, err.Error())
	case err != nil:
		writeError(w, http.StatusInternalServerError, err.Error())
	default:
		writeJSON(w, http.StatusAccepted, map[string]string{"status": "cancelling"})
	}
}

// Clear handles DELETE /api/jobs
func (h *JobsHandler) Clear(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]int{"removed": h.queue.Clear()})
}
