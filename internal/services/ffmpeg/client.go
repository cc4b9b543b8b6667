package ffmpeg

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"github.com/amaumene/aacfetch/internal/config"
	"github.com/amaumene/aacfetch/internal/models"
	"github.com/dustin/go-humanize"
	"github.com/sirupsen/logrus"
	ffmpeg "github.com/u2takey/ffmpeg-go"
)

// ProbeBinary is the ffprobe executable, looked up on PATH
const ProbeBinary = "ffprobe"

// Client transcodes with ffmpeg and inspects files with ffprobe
type Client struct {
	ffmpegPath string
	logger     *logrus.Logger
}

// NewClient creates a new ffmpeg client
func NewClient(cfg *config.Config, logger *logrus.Logger) *Client {
	ffmpegPath := cfg.FFmpegPath
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	return &Client{
		ffmpegPath: ffmpegPath,
		logger:     logger,
	}
}

// FFmpegPath returns the transcoder binary
func (c *Client) FFmpegPath() string { return c.ffmpegPath }

// Available checks if both ffmpeg and ffprobe are executable
func (c *Client) Available() bool {
	if _, err := exec.LookPath(c.ffmpegPath); err != nil {
		return false
	}
	_, err := exec.LookPath(ProbeBinary)
	return err == nil
}

// AudioCodec reports the codec name of the first audio stream
func (c *Client) AudioCodec(ctx context.Context, path string) (string, error) {
	info, err := c.Inspect(ctx, path)
	if err != nil {
		return "", err
	}

	audio := info.AudioStream()
	if audio == nil || audio.CodecName == "" {
		return "", &models.ProbeError{Path: path, Err: errors.New("no audio stream")}
	}

	return audio.CodecName, nil
}

// StreamInfo describes one stream of a media file
type StreamInfo struct {
	Index      int
	CodecType  string
	CodecName  string
	Width      int
	Height     int
	SampleRate int
	Channels   int
	BitRate    int64
}

// MediaInfo is the post-download report of a media file
type MediaInfo struct {
	Path       string
	FormatName string
	Duration   float64
	Size       int64
	Streams    []StreamInfo
}

// AudioStream returns the first audio stream, if any
func (m *MediaInfo) AudioStream() *StreamInfo {
	for i := range m.Streams {
		if m.Streams[i].CodecType == "audio" {
			return &m.Streams[i]
		}
	}
	return nil
}

// VideoStream returns the first video stream, if any
func (m *MediaInfo) VideoStream() *StreamInfo {
	for i := range m.Streams {
		if m.Streams[i].CodecType == "video" {
			return &m.Streams[i]
		}
	}
	return nil
}

// Summary renders a one-line description, e.g. "h264 1920x1080, aac 48000Hz 2ch, 12 MB"
func (m *MediaInfo) Summary() string {
	var parts []string
	if v := m.VideoStream(); v != nil {
		parts = append(parts, fmt.Sprintf("%s %dx%d", v.CodecName, v.Width, v.Height))
	}
	if a := m.AudioStream(); a != nil {
		parts = append(parts, fmt.Sprintf("%s %dHz %dch", a.CodecName, a.SampleRate, a.Channels))
	}
	if m.Size > 0 {
		parts = append(parts, humanize.Bytes(uint64(m.Size)))
	}
	if len(parts) == 0 {
		return "no streams"
	}
	return strings.Join(parts, ", ")
}

type probeOutput struct {
	Streams []struct {
		Index      int    `json:"index"`
		CodecType  string `json:"codec_type"`
		CodecName  string `json:"codec_name"`
		Width      int    `json:"width"`
		Height     int    `json:"height"`
		SampleRate string `json:"sample_rate"`
		Channels   int    `json:"channels"`
		BitRate    string `json:"bit_rate"`
	} `json:"streams"`
	Format struct {
		FormatName string `json:"format_name"`
		Duration   string `json:"duration"`
		Size       string `json:"size"`
	} `json:"format"`
}

// Inspect probes the streams and container of a file
func (c *Client) Inspect(ctx context.Context, path string) (*MediaInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, models.ErrCancelled
	}

	out, err := ffmpeg.Probe(path, ffmpeg.KwArgs{"v": "quiet"})
	if err != nil {
		return nil, &models.ProbeError{Path: path, Err: err}
	}

	return parseProbeOutput(path, []byte(out))
}

func parseProbeOutput(path string, data []byte) (*MediaInfo, error) {
	var out probeOutput
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, &models.ProbeError{Path: path, Err: fmt.Errorf("failed to parse ffprobe output: %w", err)}
	}

	info := &MediaInfo{
		Path:       path,
		FormatName: out.Format.FormatName,
	}
	info.Duration, _ = strconv.ParseFloat(out.Format.Duration, 64)
	info.Size, _ = strconv.ParseInt(out.Format.Size, 10, 64)

	for _, s := range out.Streams {
		stream := StreamInfo{
			Index:     s.Index,
			CodecType: s.CodecType,
			CodecName: s.CodecName,
			Width:     s.Width,
			Height:    s.Height,
			Channels:  s.Channels,
		}
		stream.SampleRate, _ = strconv.Atoi(s.SampleRate)
		stream.BitRate, _ = strconv.ParseInt(s.BitRate, 10, 64)
		info.Streams = append(info.Streams, stream)
	}

	return info, nil
}

// ToAAC re-encodes the audio track of input to AAC, copying video untouched.
// A transcode that has started runs to the end.
func (c *Client) ToAAC(ctx context.Context, input, output string, preset Preset) error {
	if err := ctx.Err(); err != nil {
		return models.ErrCancelled
	}

	c.logger.WithFields(logrus.Fields{
		"input":  input,
		"output": output,
		"preset": preset.Name,
	}).Info("Converting audio to AAC")

	var stderr bytes.Buffer
	err := c.transcodeStream(input, output, preset).
		WithErrorOutput(&stderr).
		Run()
	if err != nil {
		return &models.TranscodeError{Input: input, Stderr: lastLines(stderr.String(), 5), Err: err}
	}

	return nil
}

func (c *Client) transcodeStream(input, output string, preset Preset) *ffmpeg.Stream {
	kwargs := ffmpeg.KwArgs{
		"c:v":      "copy",
		"c:a":      "aac",
		"b:a":      preset.Bitrate,
		"ac":       strconv.Itoa(preset.Channels),
		"ar":       strconv.Itoa(preset.SampleRate),
		"movflags": "+faststart",
	}
	if preset.ClearTitle {
		kwargs["metadata"] = "title="
	}

	return ffmpeg.Input(input).
		Output(output, kwargs).
		OverWriteOutput().
		SetFfmpegPath(c.ffmpegPath)
}

func lastLines(s string, n int) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, "\n")
}
