package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/amaumene/aacfetch/internal/models"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func newDownloadCommand() *cobra.Command {
	var format, quality, output string

	cmd := &cobra.Command{
		Use:   "download URL",
		Short: "Download one URL without the queue",
		Long: "Download analyzes the URL, runs the selected strategy and the fallback chain, " +
			"and fixes the audio track so the file plays everywhere. Progress is printed as it arrives.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(true)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return download(ctx, a, args[0], format, quality, output)
		},
	}

	cmd.Flags().StringVar(&format, "format", "", "output format: mp4 or mp3 (default from settings)")
	cmd.Flags().StringVar(&quality, "quality", "", "quality: best, 1080p, 720p, 480p (default from settings)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output directory (default from settings)")

	return cmd
}

func download(ctx context.Context, a *app, url, format, quality, output string) error {
	current := a.settings.Get()
	if format == "" {
		format = current.DefaultFormat
	}
	if quality == "" {
		quality = current.DefaultQuality
	}
	kind := models.ParseOutputKind(format)
	if output == "" {
		output = current.OutputDirFor(kind)
	}

	if removed, err := a.cleanupCtrl.SweepOutputDir(output); err != nil {
		a.logger.WithError(err).Warn("Failed to clean output directory")
	} else if removed > 0 {
		a.logger.WithField("removed", removed).Debug("Removed leftover files")
	}

	job := &models.DownloadJob{
		ID:        models.NewJobID(),
		URL:       url,
		Kind:      kind,
		Quality:   models.ParseQuality(quality),
		OutputDir: output,
		Status:    models.JobStatusInProgress,
	}

	sink := models.EventSinkFunc(func(e models.Event) {
		switch e.Kind {
		case models.EventStatus:
			fmt.Fprintf(os.Stderr, "%3d%%  %s\n", job.Progress, e.Status)
		case models.EventProgress:
			job.Progress = e.Percent
		case models.EventMetadata:
			if e.Media != nil {
				fmt.Fprintf(os.Stderr, "Title: %s\n", e.Media.Title)
			}
		}
	})

	result, err := a.downloadCtrl.Run(ctx, job, sink)
	if err != nil {
		a.logger.WithFields(logrus.Fields{"url": url, "error": err}).Debug("Download failed")
		return err
	}

	fmt.Printf("%s\n", result.OutputPath)
	fmt.Fprintf(os.Stderr, "Strategy: %s\n", result.Strategy)
	return nil
}
