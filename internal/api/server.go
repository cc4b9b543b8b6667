package api

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/amaumene/aacfetch/internal/api/handlers"
	"github.com/amaumene/aacfetch/internal/api/middleware"
	"github.com/amaumene/aacfetch/internal/config"
	"github.com/amaumene/aacfetch/internal/controllers"
	"github.com/amaumene/aacfetch/internal/settings"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

// Server represents the HTTP server
type Server struct {
	server       *http.Server
	queue        *controllers.QueueController
	analysisCtrl *controllers.AnalysisController
	strategyCtrl *controllers.StrategyController
	settings     *settings.Store
	gatherer     prometheus.Gatherer
	tools        []handlers.ToolCheck
	logger       *logrus.Logger
}

// NewServer creates a new HTTP server
func NewServer(
	cfg *config.Config,
	queue *controllers.QueueController,
	analysisCtrl *controllers.AnalysisController,
	strategyCtrl *controllers.StrategyController,
	store *settings.Store,
	gatherer prometheus.Gatherer,
	tools []handlers.ToolCheck,
	logger *logrus.Logger,
) *Server {
	s := &Server{
		queue:        queue,
		analysisCtrl: analysisCtrl,
		strategyCtrl: strategyCtrl,
		settings:     store,
		gatherer:     gatherer,
		tools:        tools,
		logger:       logger,
	}

	mux := http.NewServeMux()
	s.setupRoutes(mux, cfg)

	s.server = &http.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: middleware.Logging(mux, logger),
		// Metadata lookups shell out to yt-dlp and can take a while
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes(mux *http.ServeMux, cfg *config.Config) {
	// Health check
	mux.Handle("GET /health", handlers.NewHealthHandler(s.tools, s.logger))

	// Status endpoint
	mux.Handle("GET /status", handlers.NewStatusHandler(s.queue, cfg.ForceConversion, s.logger))

	// Prometheus metrics
	mux.Handle("GET /metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))

	// Media lookups
	mediaHandler := handlers.NewMediaHandler(s.analysisCtrl, s.strategyCtrl, s.logger)
	mux.HandleFunc("GET /api/info", mediaHandler.Info)
	mux.HandleFunc("GET /api/analysis", mediaHandler.Analysis)
	mux.HandleFunc("GET /api/qualities", mediaHandler.Qualities)

	// Download queue
	jobsHandler := handlers.NewJobsHandler(s.queue, s.settings, s.logger)
	mux.HandleFunc("GET /api/jobs", jobsHandler.List)
	mux.HandleFunc("POST /api/jobs", jobsHandler.Create)
	mux.HandleFunc("DELETE /api/jobs", jobsHandler.Clear)
	mux.HandleFunc("GET /api/jobs/{id}", jobsHandler.Get)
	mux.HandleFunc("POST /api/jobs/{id}/cancel", jobsHandler.Cancel)

	// Job event stream
	mux.Handle("GET /api/events", handlers.NewEventsHandler(s.queue, s.logger))

	// User settings
	settingsHandler := handlers.NewSettingsHandler(s.settings, s.logger)
	mux.HandleFunc("GET /api/settings", settingsHandler.Get)
	mux.HandleFunc("PUT /api/settings", settingsHandler.Update)
}

// Start starts the HTTP server
func (s *Server) Start(ctx context.Context) error {
	s.logger.WithField("port", s.server.Addr).Info("Starting HTTP server")

	// Request contexts end with ctx so event streams close on shutdown
	s.server.BaseContext = func(net.Listener) context.Context { return ctx }

	errChan := make(chan error, 1)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	select {
	case err := <-errChan:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		return s.Shutdown(context.Background())
	}
}

// Shutdown gracefully shuts down the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return s.server.Shutdown(shutdownCtx)
}
