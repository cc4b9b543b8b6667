package controllers

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/amaumene/aacfetch/internal/models"
	"github.com/amaumene/aacfetch/internal/services/ffmpeg"
	"github.com/amaumene/aacfetch/internal/services/ytdlp"
	"github.com/amaumene/aacfetch/internal/utils"
	"go.opentelemetry.io/otel/trace/noop"
)

var noopTracer = noop.NewTracerProvider().Tracer("test")

// fakeRetriever records requests and materializes downloads on disk
type fakeRetriever struct {
	mu        sync.Mutex
	info      *ytdlp.Info
	infoErr   error
	infoCalls int
	requests  []ytdlp.DownloadRequest

	// download decides the outcome of each Download call; nil writes the file
	// with the merge extension (or mp3 for audio extraction)
	download func(ctx context.Context, req ytdlp.DownloadRequest, onProgress ytdlp.ProgressFunc) (string, error)
}

func (f *fakeRetriever) ExtractInfo(ctx context.Context, url string) (*ytdlp.Info, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.infoCalls++
	if f.infoErr != nil {
		return nil, f.infoErr
	}
	return f.info, nil
}

func (f *fakeRetriever) Download(ctx context.Context, req ytdlp.DownloadRequest, onProgress ytdlp.ProgressFunc) (string, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	download := f.download
	f.mu.Unlock()

	if download != nil {
		return download(ctx, req, onProgress)
	}

	ext := req.MergeOutputFormat
	if req.ExtractAudio {
		ext = req.AudioFormat
	}
	return materialize(req, ext)
}

func (f *fakeRetriever) formats() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, r := range f.requests {
		out = append(out, r.Format)
	}
	return out
}

// materialize writes the file an output template would resolve to
func materialize(req ytdlp.DownloadRequest, ext string) (string, error) {
	name := strings.ReplaceAll(req.OutputTemplate, "%(title)s", "title")
	name = strings.ReplaceAll(name, "%(ext)s", ext)
	name = strings.ReplaceAll(name, "%%", "%")
	if err := os.WriteFile(name, []byte("media"), 0644); err != nil {
		return "", err
	}
	return name, nil
}

// fakeProber reports a fixed codec, or an error
type fakeProber struct {
	mu     sync.Mutex
	codec  string
	err    error
	probed []string
}

func (p *fakeProber) AudioCodec(ctx context.Context, path string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.probed = append(p.probed, path)
	if p.err != nil {
		return "", &models.ProbeError{Path: path, Err: p.err}
	}
	return p.codec, nil
}

func (p *fakeProber) Inspect(ctx context.Context, path string) (*ffmpeg.MediaInfo, error) {
	if p.err != nil {
		return nil, &models.ProbeError{Path: path, Err: p.err}
	}
	return &ffmpeg.MediaInfo{
		Path:    path,
		Streams: []ffmpeg.StreamInfo{{CodecType: "audio", CodecName: p.codec}},
	}, nil
}

// fakeTranscoder writes "aac:<input content>" to the output unless err is set
type fakeTranscoder struct {
	mu    sync.Mutex
	err   error
	calls int
	last  ffmpeg.Preset
}

func (t *fakeTranscoder) ToAAC(ctx context.Context, input, output string, preset ffmpeg.Preset) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.calls++
	t.last = preset
	if t.err != nil {
		return &models.TranscodeError{Input: input, Stderr: "Conversion failed!", Err: t.err}
	}
	data, err := os.ReadFile(input)
	if err != nil {
		return err
	}
	return os.WriteFile(output, append([]byte("aac:"), data...), 0644)
}

type fixture struct {
	retriever  *fakeRetriever
	prober     *fakeProber
	transcoder *fakeTranscoder
	fixer      *AudioFixer
	executor   *Executor
	strategies *StrategyController
	analysis   *AnalysisController
	chain      *ChainRunner
	download   *DownloadController
	outputDir  string
}

func newFixture(t *testing.T, forceConversion bool) *fixture {
	t.Helper()
	logger := utils.NewDiscardLogger()

	f := &fixture{
		retriever:  &fakeRetriever{},
		prober:     &fakeProber{codec: "aac"},
		transcoder: &fakeTranscoder{},
		outputDir:  t.TempDir(),
	}
	preset, err := ffmpeg.PresetByName("interactive")
	if err != nil {
		t.Fatalf("PresetByName() error = %v", err)
	}
	f.fixer = NewAudioFixer(f.prober, f.transcoder, preset, noopTracer, nil, logger)
	f.executor = NewExecutor(f.retriever, f.fixer, "mp4", logger)
	f.strategies = NewStrategyController(f.executor, forceConversion, logger)
	f.analysis = NewAnalysisController(f.retriever, 0, logger)
	f.chain = NewChainRunner(noopTracer, nil, logger)
	f.download = NewDownloadController(f.analysis, f.strategies, f.chain, f.prober, logger)
	return f
}

func (f *fixture) request() AcquireRequest {
	return AcquireRequest{
		URL:       "https://www.youtube.com/watch?v=abc",
		OutputDir: f.outputDir,
		BaseName:  "Clip",
		Quality:   models.QualityBest,
	}
}

// collectSink records emitted events
type collectSink struct {
	mu     sync.Mutex
	events []models.Event
}

func (s *collectSink) Emit(e models.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
}

func (s *collectSink) kinds() []models.EventKind {
	s.mu.Lock()
	defer s.mu.Unlock()
	var kinds []models.EventKind
	for _, e := range s.events {
		kinds = append(kinds, e.Kind)
	}
	return kinds
}

var errBoom = errors.New("boom")

func sampleInfo(formats ...models.RawFormat) *ytdlp.Info {
	return &ytdlp.Info{
		ID:       "abc",
		Title:    "A/B: Clip",
		Duration: 212,
		Uploader: "someone",
		Formats:  formats,
	}
}

func tempFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
	return path
}
