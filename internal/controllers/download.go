package controllers

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/amaumene/aacfetch/internal/models"
	"github.com/amaumene/aacfetch/internal/services/ytdlp"
	"github.com/amaumene/aacfetch/internal/utils"
	"github.com/dustin/go-humanize"
	"github.com/sirupsen/logrus"
)

// DownloadResult describes a finished download
type DownloadResult struct {
	OutputPath string
	Strategy   string
	Media      *models.MediaItem
}

// DownloadController runs a single download job from analysis to final file
type DownloadController struct {
	analysisCtrl *AnalysisController
	strategyCtrl *StrategyController
	chain        *ChainRunner
	prober       Prober
	logger       *logrus.Logger
}

// NewDownloadController creates a new download controller
func NewDownloadController(analysisCtrl *AnalysisController, strategyCtrl *StrategyController, chain *ChainRunner, prober Prober, logger *logrus.Logger) *DownloadController {
	return &DownloadController{
		analysisCtrl: analysisCtrl,
		strategyCtrl: strategyCtrl,
		chain:        chain,
		prober:       prober,
		logger:       logger,
	}
}

// Run downloads job, reporting to sink. Video jobs try the selected strategy
// first and then the fallback chain; when the catalog cannot be analyzed only
// the fallback chain is used. Cancelling ctx aborts with models.ErrCancelled.
func (c *DownloadController) Run(ctx context.Context, job *models.DownloadJob, sink models.EventSink) (*DownloadResult, error) {
	log := c.logger.WithFields(logrus.Fields{
		"job_id": job.ID,
		"url":    job.URL,
		"kind":   job.Kind,
	})

	if err := os.MkdirAll(job.OutputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	status(sink, job.ID, "Extracting information")

	media := job.Media
	var analysis *models.CatalogAnalysis
	var strategies []Strategy

	if job.Kind == models.OutputAudio {
		if media == nil {
			item, err := c.analysisCtrl.FetchInfo(ctx, job.URL)
			if err != nil {
				if ctx.Err() != nil {
					return nil, models.ErrCancelled
				}
				return nil, err
			}
			media = item
		}
		strategies = []Strategy{c.strategyCtrl.AudioOnly(job.Quality)}
	} else {
		item, a, err := c.analysisCtrl.AnalyzeURL(ctx, job.URL)
		if ctx.Err() != nil {
			return nil, models.ErrCancelled
		}
		if item != nil {
			media = item
		}

		if err != nil {
			log.WithError(err).Warn("Format analysis unavailable, using fallback strategies")
			strategies = c.strategyCtrl.FallbackChain()
		} else {
			analysis = a
			selected := c.strategyCtrl.Select(analysis, job.Quality)
			log.WithFields(logrus.Fields{
				"strategy":    selected.Name,
				"description": selected.Description,
			}).Info("Selected download strategy")
			strategies = append([]Strategy{selected}, c.strategyCtrl.FallbackChain()...)
		}
	}

	if media != nil {
		sink.Emit(models.Event{JobID: job.ID, Kind: models.EventMetadata, Media: media})
	}

	req := AcquireRequest{
		URL:        job.URL,
		OutputDir:  job.OutputDir,
		BaseName:   baseName(media),
		Quality:    job.Quality,
		Analysis:   analysis,
		OnProgress: progressReporter(ctx, job.ID, sink),
	}

	status(sink, job.ID, "Downloading")

	result, err := c.chain.Run(ctx, strategies, req)
	if err != nil {
		return nil, err
	}

	c.reportQuality(ctx, log, result.Path)

	return &DownloadResult{
		OutputPath: result.Path,
		Strategy:   result.Strategy,
		Media:      media,
	}, nil
}

// reportQuality logs what was actually obtained
func (c *DownloadController) reportQuality(ctx context.Context, log *logrus.Entry, path string) {
	info, err := c.prober.Inspect(ctx, path)
	if err != nil {
		log.WithError(err).Debug("Could not inspect downloaded file")
		return
	}
	log.WithFields(logrus.Fields{
		"file":    path,
		"quality": info.Summary(),
	}).Info("Download completed")
}

// progressReporter turns retrieval ticks into job events and aborts the
// retrieval once ctx is cancelled
func progressReporter(ctx context.Context, jobID string, sink models.EventSink) ytdlp.ProgressFunc {
	return func(p ytdlp.Progress) error {
		if ctx.Err() != nil {
			return models.ErrCancelled
		}

		switch p.Status {
		case "downloading":
			if p.Percent < 0 {
				return nil
			}
			text := fmt.Sprintf("Downloading %d%%", p.Percent)
			if p.TotalBytes > 0 {
				text = fmt.Sprintf("Downloading %s / %s", humanize.Bytes(uint64(p.DownloadedBytes)), humanize.Bytes(uint64(p.TotalBytes)))
			}
			sink.Emit(models.Event{JobID: jobID, Kind: models.EventProgress, Percent: p.Percent, Status: text})
		case "finished":
			sink.Emit(models.Event{JobID: jobID, Kind: models.EventProgress, Percent: 100, Status: "Download finished, finalizing"})
		}
		return nil
	}
}

func status(sink models.EventSink, jobID, text string) {
	sink.Emit(models.Event{JobID: jobID, Kind: models.EventStatus, Status: text})
}

func baseName(media *models.MediaItem) string {
	if media == nil || media.Title == "" {
		return ""
	}
	return utils.SanitizeFilename(media.Title)
}

// IsCancelled reports whether err ends a job as cancelled rather than failed
func IsCancelled(err error) bool {
	return errors.Is(err, models.ErrCancelled)
}
