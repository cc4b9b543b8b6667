package main

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/amaumene/aacfetch/internal/config"
	"github.com/amaumene/aacfetch/internal/controllers"
	"github.com/amaumene/aacfetch/internal/metrics"
	"github.com/amaumene/aacfetch/internal/services/ffmpeg"
	"github.com/amaumene/aacfetch/internal/services/ytdlp"
	"github.com/amaumene/aacfetch/internal/settings"
	"github.com/amaumene/aacfetch/internal/utils"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

const (
	tracerName      = "github.com/amaumene/aacfetch"
	shutdownTimeout = 5 * time.Second
)

// app holds the wired download pipeline shared by every command
type app struct {
	cfg      *config.Config
	logger   *logrus.Logger
	registry *prometheus.Registry
	metrics  *metrics.Metrics
	tracing  *sdktrace.TracerProvider
	settings *settings.Store

	ytdlp  *ytdlp.Client
	ffmpeg *ffmpeg.Client

	analysisCtrl *controllers.AnalysisController
	strategyCtrl *controllers.StrategyController
	downloadCtrl *controllers.DownloadController
	cleanupCtrl  *controllers.CleanupController
}

// newApp loads configuration and wires the pipeline. Batch mode encodes with
// the batch audio preset instead of the interactive one.
func newApp(batch bool) (*app, error) {
	// 1. Load configuration
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	// 2. Setup logger
	logger := utils.NewLogger(cfg.LogLevel)
	logger.WithField("config_dir", filepath.Dir(cfg.DatabaseFile)).Debug("Configuration loaded")

	presetName := cfg.InteractiveAudioPreset
	if batch {
		presetName = cfg.BatchAudioPreset
	}
	preset, err := ffmpeg.PresetByName(presetName)
	if err != nil {
		return nil, fmt.Errorf("invalid audio preset: %w", err)
	}

	// 3. Metrics and tracing
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(registry)

	tp, err := metrics.NewTracerProvider(cfg.TracingExporter, cfg.TracingSampleRatio, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to setup tracing: %w", err)
	}
	otel.SetTracerProvider(tp)
	tracer := tp.Tracer(tracerName)

	// 4. Initialize services
	ytdlpClient := ytdlp.NewClient(cfg, logger)
	ffmpegClient := ffmpeg.NewClient(cfg, logger)

	// 5. Initialize controllers
	cacheTTL := time.Duration(cfg.MetadataCacheMinutes) * time.Minute
	analysisCtrl := controllers.NewAnalysisController(ytdlpClient, cacheTTL, logger)
	fixer := controllers.NewAudioFixer(ffmpegClient, ffmpegClient, preset, tracer, m, logger)
	executor := controllers.NewExecutor(ytdlpClient, fixer, cfg.ContainerExt, logger)
	strategyCtrl := controllers.NewStrategyController(executor, cfg.ForceConversion, logger)
	chain := controllers.NewChainRunner(tracer, m, logger)
	downloadCtrl := controllers.NewDownloadController(analysisCtrl, strategyCtrl, chain, ffmpegClient, logger)
	cleanupCtrl := controllers.NewCleanupController(logger)

	logger.WithFields(logrus.Fields{
		"force_conversion": cfg.ForceConversion,
		"audio_preset":     preset.Name,
		"container":        cfg.ContainerExt,
	}).Debug("Controllers initialized")

	return &app{
		cfg:          cfg,
		logger:       logger,
		registry:     registry,
		metrics:      m,
		tracing:      tp,
		settings:     settings.NewStore(cfg.SettingsFile, logger),
		ytdlp:        ytdlpClient,
		ffmpeg:       ffmpegClient,
		analysisCtrl: analysisCtrl,
		strategyCtrl: strategyCtrl,
		downloadCtrl: downloadCtrl,
		cleanupCtrl:  cleanupCtrl,
	}, nil
}

// Close flushes pending spans
func (a *app) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := a.tracing.Shutdown(ctx); err != nil {
		a.logger.WithError(err).Warn("Failed to flush traces")
	}
}
