package controllers

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/amaumene/aacfetch/internal/metrics"
	"github.com/amaumene/aacfetch/internal/models"
	"github.com/amaumene/aacfetch/internal/services/ffmpeg"
	"github.com/amaumene/aacfetch/internal/utils"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read %s: %v", path, err)
	}
	return string(data)
}

func assertMissing(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("%s still exists", filepath.Base(path))
	}
}

func TestFixRenamesAACWithoutReencoding(t *testing.T) {
	for _, codec := range []string{"aac", "AAC", "aac_he_v2"} {
		t.Run(codec, func(t *testing.T) {
			f := newFixture(t, true)
			f.prober.codec = codec
			temp := tempFile(t, f.outputDir, "Clip_temp.mp4", "original bytes")

			path, err := f.fixer.Fix(context.Background(), temp)
			if err != nil {
				t.Fatalf("Fix() error = %v", err)
			}
			if filepath.Base(path) != "Clip.mp4" {
				t.Errorf("Fix() = %s, want Clip.mp4", path)
			}
			if got := readFile(t, path); got != "original bytes" {
				t.Errorf("content = %q, want the untouched download", got)
			}
			if f.transcoder.calls != 0 {
				t.Errorf("transcoder called %d times for AAC audio", f.transcoder.calls)
			}
			assertMissing(t, temp)
		})
	}
}

func TestFixTranscodesOtherCodecs(t *testing.T) {
	f := newFixture(t, true)
	f.prober.codec = "opus"
	temp := tempFile(t, f.outputDir, "Clip_temp.mp4", "media")

	recorder := tracetest.NewSpanRecorder()
	tracer := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder)).Tracer("test")
	reg := prometheus.NewRegistry()
	hq, _ := ffmpeg.PresetByName("hq")
	fixer := NewAudioFixer(f.prober, f.transcoder, hq, tracer, metrics.New(reg), utils.NewDiscardLogger())

	path, err := fixer.Fix(context.Background(), temp)
	if err != nil {
		t.Fatalf("Fix() error = %v", err)
	}
	if filepath.Base(path) != "Clip.mp4" {
		t.Errorf("Fix() = %s, want Clip.mp4", path)
	}
	if got := readFile(t, path); got != "aac:media" {
		t.Errorf("content = %q, want transcoded output", got)
	}
	if f.transcoder.last.Name != "hq" {
		t.Errorf("transcoded with preset %q, want hq", f.transcoder.last.Name)
	}
	assertMissing(t, temp)

	spans := recorder.Ended()
	if len(spans) != 2 || spans[0].Name() != "fixer.probe" || spans[1].Name() != "fixer.transcode" {
		t.Errorf("unexpected spans: %d recorded", len(spans))
	}

	count, err := testutil.GatherAndCount(reg, "aacfetch_transcodes_total")
	if err != nil {
		t.Fatalf("GatherAndCount() error = %v", err)
	}
	if count != 1 {
		t.Errorf("transcode series = %d, want 1", count)
	}
}

func TestFixKeepsDownloadWhenTranscodeFails(t *testing.T) {
	f := newFixture(t, true)
	f.prober.codec = "opus"
	f.transcoder.err = errors.New("exit status 1")
	temp := tempFile(t, f.outputDir, "Clip_temp.webm", "media")

	path, err := f.fixer.Fix(context.Background(), temp)
	if err != nil {
		t.Fatalf("Fix() error = %v", err)
	}
	if filepath.Base(path) != "Clip.webm" {
		t.Errorf("Fix() = %s, want Clip.webm", path)
	}
	if got := readFile(t, path); got != "media" {
		t.Errorf("content = %q, want the original download", got)
	}
	assertMissing(t, temp)
}

// occupyWithDir puts a non-empty directory where the fixer wants to write
func occupyWithDir(t *testing.T, path string) {
	t.Helper()
	if err := os.Mkdir(path, 0755); err != nil {
		t.Fatal(err)
	}
	tempFile(t, path, "keep", "x")
}

func TestFixTranscodeFailureWithBlockedFinalPath(t *testing.T) {
	f := newFixture(t, true)
	f.prober.codec = "opus"
	f.transcoder.err = errors.New("exit status 1")
	temp := tempFile(t, f.outputDir, "Clip_temp.webm", "media")
	occupyWithDir(t, filepath.Join(f.outputDir, "Clip.webm"))

	path, err := f.fixer.Fix(context.Background(), temp)

	var finalizeErr *models.FinalizeError
	if !errors.As(err, &finalizeErr) {
		t.Fatalf("Fix() error = %v, want FinalizeError", err)
	}
	if path != "" {
		t.Errorf("Fix() = %q, want no path", path)
	}
	if finalizeErr.Path != temp {
		t.Errorf("FinalizeError.Path = %q, want %q", finalizeErr.Path, temp)
	}
	if got := readFile(t, temp); got != "media" {
		t.Errorf("temp content = %q, want the download left in place", got)
	}
}

func TestFixProbeFailureMarksOriginal(t *testing.T) {
	f := newFixture(t, true)
	f.prober.err = errors.New("ffprobe not found")
	temp := tempFile(t, f.outputDir, "Clip_temp.mp4", "media")

	path, err := f.fixer.Fix(context.Background(), temp)
	if err != nil {
		t.Fatalf("Fix() error = %v", err)
	}
	if filepath.Base(path) != "Clip_original.mp4" {
		t.Errorf("Fix() = %s, want Clip_original.mp4", path)
	}
	if f.transcoder.calls != 0 {
		t.Error("transcoder called after a probe failure")
	}
	assertMissing(t, temp)
}

func TestFixRejectsFinalFiles(t *testing.T) {
	f := newFixture(t, true)
	final := tempFile(t, f.outputDir, "Clip.mp4", "media")

	if _, err := f.fixer.Fix(context.Background(), final); err == nil {
		t.Error("Fix() accepted a file without the temp marker")
	}
	if got := readFile(t, final); got != "media" {
		t.Errorf("content changed to %q", got)
	}
}

func TestFixRunsToCompletionAfterCancel(t *testing.T) {
	f := newFixture(t, true)
	f.prober.codec = "opus"
	temp := tempFile(t, f.outputDir, "Clip_temp.mp4", "media")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	path, err := f.fixer.Fix(ctx, temp)
	if err != nil {
		t.Fatalf("Fix() error = %v", err)
	}
	if got := readFile(t, path); got != "aac:media" {
		t.Errorf("content = %q, want transcoded output", got)
	}
}

func TestFinalPathFor(t *testing.T) {
	tests := []struct {
		path   string
		marker string
		want   string
	}{
		{"/out/Clip_temp.mp4", "", "/out/Clip.mp4"},
		{"/out/Clip_temp.mp4", originalMarker, "/out/Clip_original.mp4"},
		{"/out/my_temp_file_temp.mkv", "", "/out/my_temp_file.mkv"},
	}

	for _, tt := range tests {
		got, err := finalPathFor(filepath.FromSlash(tt.path), tt.marker)
		if err != nil {
			t.Errorf("finalPathFor(%s) error = %v", tt.path, err)
			continue
		}
		if got != filepath.FromSlash(tt.want) {
			t.Errorf("finalPathFor(%s, %q) = %s, want %s", tt.path, tt.marker, got, tt.want)
		}
	}
}
