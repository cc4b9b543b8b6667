package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/amaumene/aacfetch/internal/api"
	"github.com/amaumene/aacfetch/internal/api/handlers"
	"github.com/amaumene/aacfetch/internal/controllers"
	"github.com/amaumene/aacfetch/internal/models"
	"github.com/amaumene/aacfetch/internal/scheduler"
	"github.com/spf13/cobra"
)

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the download queue behind the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(false)
			if err != nil {
				return err
			}
			defer a.Close()
			return serve(a)
		},
	}
}

func serve(a *app) error {
	logger := a.logger
	logger.Info("Starting aacfetch")

	if !a.ytdlp.Available() {
		logger.WithField("path", a.ytdlp.Path()).Warn("yt-dlp not found, downloads will fail")
	}
	if !a.ffmpeg.Available() {
		logger.WithField("path", a.ffmpeg.FFmpegPath()).Warn("ffmpeg or ffprobe not found, audio conversion will fail")
	}

	// 1. Initialize database
	db, err := models.NewDatabase(a.cfg.DatabaseFile)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer db.Close()
	logger.Info("Database initialized")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 2. Start the download queue
	queue := controllers.NewQueueController(db, a.downloadCtrl, a.cleanupCtrl, a.metrics, logger)
	if err := queue.Start(ctx); err != nil {
		return fmt.Errorf("failed to start download queue: %w", err)
	}
	defer queue.Stop()

	// 3. Initialize scheduler
	sched := scheduler.NewScheduler(queue, a.cfg.JobTimeoutMinutes, a.cfg.JobRetentionDays, logger)
	if err := sched.Start(); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}
	defer sched.Stop()

	// 4. Initialize HTTP server
	tools := []handlers.ToolCheck{
		{Name: "yt-dlp", Available: a.ytdlp.Available},
		{Name: "ffmpeg", Available: a.ffmpeg.Available},
	}
	server := api.NewServer(a.cfg, queue, a.analysisCtrl, a.strategyCtrl, a.settings, a.registry, tools, logger)

	serverErrChan := make(chan error, 1)
	go func() {
		if err := server.Start(ctx); err != nil {
			serverErrChan <- err
		}
	}()

	// 5. Wait for shutdown signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	logger.Info("aacfetch is running")

	select {
	case err := <-serverErrChan:
		return fmt.Errorf("server error: %w", err)
	case sig := <-sigChan:
		logger.WithField("signal", sig).Info("Received shutdown signal")
		cancel()
		if err := server.Shutdown(context.Background()); err != nil {
			logger.WithError(err).Error("Error during server shutdown")
		}
	}

	logger.Info("aacfetch stopped")
	return nil
}
