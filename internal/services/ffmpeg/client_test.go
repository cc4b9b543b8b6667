package ffmpeg

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/amaumene/aacfetch/internal/config"
	"github.com/amaumene/aacfetch/internal/models"
	"github.com/amaumene/aacfetch/internal/utils"
)

func writeScript(t *testing.T, name, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell script fakes require a POSIX shell")
	}
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0755); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
	return path
}

func TestPresetByName(t *testing.T) {
	p, err := PresetByName("interactive")
	if err != nil {
		t.Fatalf("PresetByName(interactive) error = %v", err)
	}
	if p.Bitrate != "192k" || p.SampleRate != 44100 || p.Channels != 2 || p.ClearTitle {
		t.Errorf("unexpected interactive preset: %+v", p)
	}

	p, err = PresetByName(" HQ ")
	if err != nil {
		t.Fatalf("PresetByName(HQ) error = %v", err)
	}
	if p.Bitrate != "256k" || p.SampleRate != 48000 || !p.ClearTitle {
		t.Errorf("unexpected hq preset: %+v", p)
	}

	if _, err := PresetByName("lossless"); err == nil {
		t.Error("expected error for unknown preset")
	}
}

func TestTranscodeStreamArgs(t *testing.T) {
	c := NewClient(&config.Config{FFmpegPath: "ffmpeg"}, utils.NewDiscardLogger())

	hq, _ := PresetByName("hq")
	got := strings.Join(c.transcodeStream("in_temp.mp4", "in.mp4", hq).GetArgs(), " ")
	for _, want := range []string{
		"-i in_temp.mp4",
		"-c:v copy",
		"-c:a aac",
		"-b:a 256k",
		"-ac 2",
		"-ar 48000",
		"-movflags +faststart",
		"-metadata title=",
		"in.mp4",
		"-y",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("args %q missing %q", got, want)
		}
	}

	interactive, _ := PresetByName("interactive")
	got = strings.Join(c.transcodeStream("a.mp4", "b.mp4", interactive).GetArgs(), " ")
	if strings.Contains(got, "-metadata") {
		t.Errorf("interactive preset must not touch metadata: %s", got)
	}
	if !strings.Contains(got, "-b:a 192k") || !strings.Contains(got, "-ar 44100") {
		t.Errorf("interactive preset not applied: %s", got)
	}
}

// installFFprobe puts a fake ffprobe first on PATH
func installFFprobe(t *testing.T, body string) {
	t.Helper()
	path := writeScript(t, ProbeBinary, body)
	t.Setenv("PATH", filepath.Dir(path)+string(os.PathListSeparator)+os.Getenv("PATH"))
}

const opusProbeJSON = `{"streams":[{"index":0,"codec_type":"video","codec_name":"vp9","width":1280,"height":720},` +
	`{"index":1,"codec_type":"audio","codec_name":"opus","sample_rate":"48000","channels":2}],` +
	`"format":{"format_name":"matroska,webm","duration":"10.0","size":"1000"}}`

func TestAudioCodec(t *testing.T) {
	installFFprobe(t, "cat <<'EOF'\n"+opusProbeJSON+"\nEOF\n")
	c := NewClient(&config.Config{FFmpegPath: "ffmpeg"}, utils.NewDiscardLogger())

	codec, err := c.AudioCodec(context.Background(), "/tmp/x.mp4")
	if err != nil {
		t.Fatalf("AudioCodec() error = %v", err)
	}
	if codec != "opus" {
		t.Errorf("AudioCodec() = %q, want opus", codec)
	}
}

func TestAudioCodecErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"exit failure", "echo 'x.mp4: Invalid data found' >&2\nexit 1\n"},
		{"no audio stream", `echo '{"streams":[{"index":0,"codec_type":"video","codec_name":"h264"}],"format":{}}'` + "\n"},
		{"malformed output", "echo 'garbage'\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			installFFprobe(t, tt.body)
			c := NewClient(&config.Config{FFmpegPath: "ffmpeg"}, utils.NewDiscardLogger())

			_, err := c.AudioCodec(context.Background(), "/tmp/x.mp4")
			var probeErr *models.ProbeError
			if !errors.As(err, &probeErr) {
				t.Errorf("expected ProbeError, got %v", err)
			}
		})
	}
}

func TestInspectCancelled(t *testing.T) {
	installFFprobe(t, "cat <<'EOF'\n"+opusProbeJSON+"\nEOF\n")
	c := NewClient(&config.Config{FFmpegPath: "ffmpeg"}, utils.NewDiscardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := c.Inspect(ctx, "/tmp/x.mp4"); !errors.Is(err, models.ErrCancelled) {
		t.Errorf("Inspect() error = %v, want ErrCancelled", err)
	}
}

func TestToAACFailureCarriesStderr(t *testing.T) {
	ffmpeg := writeScript(t, "ffmpeg", "echo 'Invalid data found when processing input' >&2\nexit 1\n")
	c := NewClient(&config.Config{FFmpegPath: ffmpeg}, utils.NewDiscardLogger())

	preset, _ := PresetByName("interactive")
	err := c.ToAAC(context.Background(), "in.mp4", "out.mp4", preset)

	var transcodeErr *models.TranscodeError
	if !errors.As(err, &transcodeErr) {
		t.Fatalf("expected TranscodeError, got %v", err)
	}
	if !strings.Contains(transcodeErr.Stderr, "Invalid data") {
		t.Errorf("Stderr = %q", transcodeErr.Stderr)
	}
}

func TestToAACWritesOutput(t *testing.T) {
	out := filepath.Join(t.TempDir(), "out.mp4")
	// The fake writes every argument naming out.mp4
	ffmpeg := writeScript(t, "ffmpeg", `for a; do case "$a" in *out.mp4) echo data > "$a";; esac; done`+"\n")
	c := NewClient(&config.Config{FFmpegPath: ffmpeg}, utils.NewDiscardLogger())

	preset, _ := PresetByName("hq")
	if err := c.ToAAC(context.Background(), "in.mp4", out, preset); err != nil {
		t.Fatalf("ToAAC() error = %v", err)
	}
	if _, err := os.Stat(out); err != nil {
		t.Errorf("output not written: %v", err)
	}
}

func TestParseProbeOutput(t *testing.T) {
	data := []byte(`{
  "streams": [
    {"index": 0, "codec_type": "video", "codec_name": "h264", "width": 1920, "height": 1080},
    {"index": 1, "codec_type": "audio", "codec_name": "aac", "sample_rate": "48000", "channels": 2, "bit_rate": "256000"}
  ],
  "format": {"format_name": "mov,mp4,m4a,3gp,3g2,mj2", "duration": "212.480000", "size": "12000000"}
}`)

	info, err := parseProbeOutput("/tmp/x.mp4", data)
	if err != nil {
		t.Fatalf("parseProbeOutput() error = %v", err)
	}
	if info.Duration < 212.4 || info.Size != 12000000 {
		t.Errorf("format not decoded: %+v", info)
	}
	audio := info.AudioStream()
	if audio == nil || audio.SampleRate != 48000 || audio.BitRate != 256000 {
		t.Fatalf("audio stream not decoded: %+v", audio)
	}
	if got := info.Summary(); got != "h264 1920x1080, aac 48000Hz 2ch, 12 MB" {
		t.Errorf("Summary() = %q", got)
	}

	if _, err := parseProbeOutput("/tmp/x.mp4", []byte("not json")); err == nil {
		t.Error("expected error for malformed output")
	}
}

func TestNewClientDefaultsFFmpegPath(t *testing.T) {
	c := NewClient(&config.Config{}, utils.NewDiscardLogger())
	if c.FFmpegPath() != "ffmpeg" {
		t.Errorf("FFmpegPath() = %q", c.FFmpegPath())
	}
}
