package controllers

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/amaumene/aacfetch/internal/metrics"
	"github.com/amaumene/aacfetch/internal/models"
	"github.com/amaumene/aacfetch/internal/services/ffmpeg"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	tempMarker     = "_temp"
	originalMarker = "_original"
)

// Prober is the stream probing collaborator
type Prober interface {
	AudioCodec(ctx context.Context, path string) (string, error)
	Inspect(ctx context.Context, path string) (*ffmpeg.MediaInfo, error)
}

// Transcoder is the audio re-encoding collaborator
type Transcoder interface {
	ToAAC(ctx context.Context, input, output string, preset ffmpeg.Preset) error
}

// aacCodecNames are the ffprobe codec names accepted without re-encoding
var aacCodecNames = map[string]bool{
	"aac":       true,
	"aac_low":   true,
	"aac_he":    true,
	"aac_he_v2": true,
}

// AudioFixer turns a downloaded temp file into a final file with AAC audio
type AudioFixer struct {
	prober     Prober
	transcoder Transcoder
	preset     ffmpeg.Preset
	tracer     trace.Tracer
	metrics    *metrics.Metrics
	logger     *logrus.Logger
}

// NewAudioFixer creates a fixer that re-encodes with preset
func NewAudioFixer(prober Prober, transcoder Transcoder, preset ffmpeg.Preset, tracer trace.Tracer, m *metrics.Metrics, logger *logrus.Logger) *AudioFixer {
	return &AudioFixer{
		prober:     prober,
		transcoder: transcoder,
		preset:     preset,
		tracer:     tracer,
		metrics:    m,
		logger:     logger,
	}
}

// Fix probes tempPath and produces the final file:
//   - AAC audio: renamed to the final name
//   - other codec: re-encoded to the final name, temp removed; if the
//     re-encode fails the temp file is renamed to the final name as-is
//   - probe failure: renamed with the "_original" marker, never re-encoded
//
// Only a failed rename is an error, reported as *models.FinalizeError with the
// temp file left in place. Once started, Fix runs to completion even
// if ctx is cancelled.
func (f *AudioFixer) Fix(ctx context.Context, tempPath string) (string, error) {
	ctx = context.WithoutCancel(ctx)

	finalPath, err := finalPathFor(tempPath, "")
	if err != nil {
		return "", err
	}

	log := f.logger.WithField("file", filepath.Base(tempPath))

	probeCtx, span := f.tracer.Start(ctx, "fixer.probe", trace.WithAttributes(attribute.String("file", tempPath)))
	codec, err := f.prober.AudioCodec(probeCtx, tempPath)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "probe failed")
		span.End()

		originalPath, _ := finalPathFor(tempPath, originalMarker)
		log.WithError(err).Warn("Audio codec unknown, keeping file without conversion")
		f.metrics.FixerOutcome("probe_failed")
		return renameTo(tempPath, originalPath)
	}
	span.SetAttributes(attribute.String("codec", codec))
	span.End()

	if aacCodecNames[strings.ToLower(codec)] {
		log.WithField("codec", codec).Info("Audio already AAC, renaming")
		f.metrics.FixerOutcome("renamed")
		return renameTo(tempPath, finalPath)
	}

	log.WithFields(logrus.Fields{
		"codec":  codec,
		"preset": f.preset.Name,
	}).Info("Audio is not AAC, converting")

	transcodeCtx, span := f.tracer.Start(ctx, "fixer.transcode", trace.WithAttributes(
		attribute.String("codec", codec),
		attribute.String("preset", f.preset.Name),
	))
	err = f.transcoder.ToAAC(transcodeCtx, tempPath, finalPath, f.preset)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "transcode failed")
		span.End()

		log.WithError(err).Warn("Audio conversion failed, keeping original audio")
		f.metrics.FixerOutcome("transcode_failed")
		return renameTo(tempPath, finalPath)
	}
	span.End()

	if err := os.Remove(tempPath); err != nil && !os.IsNotExist(err) {
		log.WithError(err).Warn("Failed to remove temporary file")
	}

	f.metrics.FixerOutcome("transcoded")
	return finalPath, nil
}

// finalPathFor strips the temp marker from path and inserts marker in its place
func finalPathFor(path, marker string) (string, error) {
	ext := filepath.Ext(path)
	stem := strings.TrimSuffix(path, ext)
	if !strings.HasSuffix(stem, tempMarker) {
		return "", fmt.Errorf("%s is not a temporary download", filepath.Base(path))
	}
	return strings.TrimSuffix(stem, tempMarker) + marker + ext, nil
}

func renameTo(from, to string) (string, error) {
	if err := os.Rename(from, to); err != nil {
		return "", &models.FinalizeError{Path: from, Err: err}
	}
	return to, nil
}
