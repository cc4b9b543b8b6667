package controllers

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/amaumene/aacfetch/internal/models"
	"github.com/amaumene/aacfetch/internal/services/ytdlp"
	"github.com/sirupsen/logrus"
)

// AcquireRequest carries the arguments every strategy is invoked with
type AcquireRequest struct {
	URL        string
	OutputDir  string
	BaseName   string // sanitized file name without extension; empty lets yt-dlp name the file
	Quality    models.Quality
	Analysis   *models.CatalogAnalysis // nil when the catalog could not be analyzed
	OnProgress ytdlp.ProgressFunc
}

// retrieval is one concrete invocation of the retrieval collaborator
type retrieval struct {
	format       string
	formatSort   []string
	convert      bool   // download under a temp name, then run the audio fixer
	audioOnly    bool   // extract MP3
	audioBitrate string // with audioOnly
}

// Executor runs retrievals and normalizes their output
type Executor struct {
	retriever    Retriever
	fixer        *AudioFixer
	containerExt string
	logger       *logrus.Logger
}

// NewExecutor creates a new acquisition executor
func NewExecutor(retriever Retriever, fixer *AudioFixer, containerExt string, logger *logrus.Logger) *Executor {
	return &Executor{
		retriever:    retriever,
		fixer:        fixer,
		containerExt: strings.TrimPrefix(containerExt, "."),
		logger:       logger,
	}
}

func (e *Executor) fetch(ctx context.Context, req AcquireRequest, r retrieval) (string, error) {
	if err := os.MkdirAll(req.OutputDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	dl := ytdlp.DownloadRequest{
		URL:              req.URL,
		OutputTemplate:   filepath.Join(req.OutputDir, outputName(req.BaseName, r.convert)),
		Format:           r.format,
		FormatSort:       r.formatSort,
		WindowsFilenames: req.BaseName == "",
	}
	if r.audioOnly {
		dl.ExtractAudio = true
		dl.AudioFormat = "mp3"
		dl.AudioQuality = r.audioBitrate
	} else {
		dl.MergeOutputFormat = e.containerExt
	}

	path, err := e.retriever.Download(ctx, dl, req.OnProgress)
	if err != nil {
		return "", err
	}

	if !r.audioOnly {
		path = withExtension(path, e.containerExt)
	}

	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("downloaded file %s not found: %w", filepath.Base(path), err)
	}

	e.logger.WithField("file", filepath.Base(path)).Debug("Retrieval finished")

	if r.convert {
		return e.fixer.Fix(ctx, path)
	}
	return path, nil
}

// maxHeight returns the tallest video variant offered for url
func (e *Executor) maxHeight(ctx context.Context, url string) (int, error) {
	info, err := e.retriever.ExtractInfo(ctx, url)
	if err != nil {
		return 0, err
	}

	best := 0
	for _, f := range info.Formats {
		if f.HasVideo() && f.Height > best {
			best = f.Height
		}
	}
	return best, nil
}

// outputName builds the yt-dlp output template for one retrieval
func outputName(baseName string, temp bool) string {
	name := "%(title)s"
	if baseName != "" {
		name = strings.ReplaceAll(baseName, "%", "%%")
	}
	if temp {
		name += tempMarker
	}
	return name + ".%(ext)s"
}

// withExtension rewrites the extension of path to ext. Only the name changes;
// the merged file is expected to already be in that container.
func withExtension(path, ext string) string {
	current := filepath.Ext(path)
	if strings.EqualFold(strings.TrimPrefix(current, "."), ext) {
		return path
	}
	return strings.TrimSuffix(path, current) + "." + ext
}
