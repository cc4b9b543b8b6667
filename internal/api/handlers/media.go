package handlers

import (
	"context"
	"net/http"

	"github.com/amaumene/aacfetch/internal/controllers"
	"github.com/amaumene/aacfetch/internal/models"
	"github.com/amaumene/aacfetch/internal/utils"
	"github.com/sirupsen/logrus"
)

// MediaInspector resolves URLs into metadata and format analyses
type MediaInspector interface {
	FetchInfo(ctx context.Context, url string) (*models.MediaItem, error)
	AnalyzeURL(ctx context.Context, url string) (*models.MediaItem, *models.CatalogAnalysis, error)
	QualityChoices(ctx context.Context, url string, kind models.OutputKind) ([]models.QualityChoice, error)
}

// StrategySelector picks the strategy a download would start with
type StrategySelector interface {
	Select(analysis *models.CatalogAnalysis, quality models.Quality) controllers.Strategy
}

// MediaHandler serves metadata previews, analyses and quality choices
type MediaHandler struct {
	inspector MediaInspector
	selector  StrategySelector
	logger    *logrus.Logger
}

// NewMediaHandler creates a new media handler
func NewMediaHandler(inspector MediaInspector, selector StrategySelector, logger *logrus.Logger) *MediaHandler {
	return &MediaHandler{
		inspector: inspector,
		selector:  selector,
		logger:    logger,
	}
}

// InfoResponse is a metadata preview
type InfoResponse struct {
	*models.MediaItem
	DurationText string `json:"duration_text"`
}

// AnalysisResponse describes the formats offered for a URL and the strategy
// a download would start with
type AnalysisResponse struct {
	Media       *models.MediaItem       `json:"media"`
	Analysis    *models.CatalogAnalysis `json:"analysis"`
	Strategy    string                  `json:"strategy"`
	Description string                  `json:"description"`
}

// Info handles GET /api/info?url=
func (h *MediaHandler) Info(w http.ResponseWriter, r *http.Request) {
	url, ok := requireURL(w, r)
	if !ok {
		return
	}

	item, err := h.inspector.FetchInfo(r.Context(), url)
	if err != nil {
		h.logger.WithError(err).WithField("url", url).Warn("Failed to fetch media info")
		writeError(w, extractionStatus(err), err.Error())
		return
	}

	writeJSON(w, http.StatusOK, InfoResponse{
		MediaItem:    item,
		DurationText: utils.FormatDuration(int(item.Duration)),
	})
}

// Analysis handles GET /api/analysis?url=&quality=
func (h *MediaHandler) Analysis(w http.ResponseWriter, r *http.Request) {
	url, ok := requireURL(w, r)
	if !ok {
		return
	}
	quality := models.ParseQuality(r.URL.Query().Get("quality"))

	item, analysis, err := h.inspector.AnalyzeURL(r.Context(), url)
	if err != nil {
		h.logger.WithError(err).WithField("url", url).Warn("Failed to analyze formats")
		writeError(w, extractionStatus(err), err.Error())
		return
	}

	strategy := h.selector.Select(analysis, quality)
	writeJSON(w, http.StatusOK, AnalysisResponse{
		Media:       item,
		Analysis:    analysis,
		Strategy:    strategy.Name,
		Description: strategy.Description,
	})
}

// Qualities handles GET /api/qualities?url=&format=
func (h *MediaHandler) Qualities(w http.ResponseWriter, r *http.Request) {
	url, ok := requireURL(w, r)
	if !ok {
		return
	}
	kind := models.ParseOutputKind(r.URL.Query().Get("format"))

	choices, err := h.inspector.QualityChoices(r.Context(), url, kind)
	if err != nil {
		h.logger.WithError(err).WithField("url", url).Warn("Failed to list qualities")
		writeError(w, extractionStatus(err), err.Error())
		return
	}

	writeJSON(w, http.StatusOK, choices)
}

func requireURL(w http.ResponseWriter, r *http.Request) (string, bool) {
	url := r.URL.Query().Get("url")
	if url == "" {
		writeError(w, http.StatusBadRequest, "url is required")
		return "", false
	}
	if !utils.IsSupportedURL(url) {
		writeError(w, http.StatusBadRequest, "unsupported url")
		return "", false
	}
	return url, true
}
