package controllers

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/amaumene/aacfetch/internal/services/ytdlp"
)

func TestOutputName(t *testing.T) {
	tests := []struct {
		base string
		temp bool
		want string
	}{
		{"Clip", false, "Clip.%(ext)s"},
		{"Clip", true, "Clip_temp.%(ext)s"},
		{"100% Pure", false, "100%% Pure.%(ext)s"},
		{"", true, "%(title)s_temp.%(ext)s"},
	}

	for _, tt := range tests {
		if got := outputName(tt.base, tt.temp); got != tt.want {
			t.Errorf("outputName(%q, %v) = %s, want %s", tt.base, tt.temp, got, tt.want)
		}
	}
}

func TestWithExtension(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"/out/Clip.mp4", "/out/Clip.mp4"},
		{"/out/Clip.MP4", "/out/Clip.MP4"},
		{"/out/Clip.mkv", "/out/Clip.mp4"},
		{"/out/Clip.v2.webm", "/out/Clip.v2.mp4"},
	}

	for _, tt := range tests {
		if got := withExtension(tt.path, "mp4"); got != tt.want {
			t.Errorf("withExtension(%s) = %s, want %s", tt.path, got, tt.want)
		}
	}
}

func TestExecutorNormalizesReportedExtension(t *testing.T) {
	f := newFixture(t, true)
	f.retriever.download = func(ctx context.Context, req ytdlp.DownloadRequest, _ ytdlp.ProgressFunc) (string, error) {
		merged, err := materialize(req, "mp4")
		if err != nil {
			return "", err
		}
		return strings.TrimSuffix(merged, ".mp4") + ".mkv", nil
	}

	path, err := f.executor.fetch(context.Background(), f.request(), retrieval{format: "best"})
	if err != nil {
		t.Fatalf("fetch() error = %v", err)
	}
	if filepath.Base(path) != "Clip.mp4" {
		t.Errorf("fetch() = %s, want Clip.mp4", path)
	}
}

func TestExecutorFailsWhenReportedFileIsMissing(t *testing.T) {
	f := newFixture(t, true)
	f.retriever.download = func(ctx context.Context, req ytdlp.DownloadRequest, _ ytdlp.ProgressFunc) (string, error) {
		return filepath.Join(f.outputDir, "Clip.webm"), nil
	}

	if _, err := f.executor.fetch(context.Background(), f.request(), retrieval{format: "best"}); err == nil {
		t.Error("fetch() succeeded without an output file")
	}
}

func TestExecutorConversionKeepsTempOnDownloadFailure(t *testing.T) {
	f := newFixture(t, true)
	f.retriever.download = func(ctx context.Context, req ytdlp.DownloadRequest, _ ytdlp.ProgressFunc) (string, error) {
		if _, err := materialize(req, "mp4.part"); err != nil {
			return "", err
		}
		return "", errBoom
	}

	if _, err := f.executor.fetch(context.Background(), f.request(), retrieval{format: "best", convert: true}); err == nil {
		t.Fatal("fetch() succeeded after a failed download")
	}
	if f.transcoder.calls != 0 || len(f.prober.probed) != 0 {
		t.Error("fixer ran after a failed download")
	}

	req := f.retriever.requests[0]
	if !strings.HasSuffix(req.OutputTemplate, "Clip_temp.%(ext)s") {
		t.Errorf("OutputTemplate = %s, want a temp name", req.OutputTemplate)
	}
	assertExists(t, filepath.Join(f.outputDir, "Clip_temp.mp4.part"))
}

func TestExecutorUntitledUsesExtractorName(t *testing.T) {
	f := newFixture(t, true)
	req := f.request()
	req.BaseName = ""

	path, err := f.executor.fetch(context.Background(), req, retrieval{format: "best"})
	if err != nil {
		t.Fatalf("fetch() error = %v", err)
	}
	if filepath.Base(path) != "title.mp4" {
		t.Errorf("fetch() = %s, want title.mp4", path)
	}
	if !f.retriever.requests[0].WindowsFilenames {
		t.Error("WindowsFilenames not requested for an extractor-named file")
	}
}

func assertExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); err != nil {
		t.Errorf("%s missing: %v", filepath.Base(path), err)
	}
}
