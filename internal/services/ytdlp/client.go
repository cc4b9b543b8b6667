package ytdlp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/amaumene/aacfetch/internal/config"
	"github.com/amaumene/aacfetch/internal/models"
	ytdlp "github.com/lrstanley/go-ytdlp"
	"github.com/sirupsen/logrus"
)

// finalPrefix marks the --print line carrying the moved output path
const finalPrefix = "[aacfetch-final]"

// progressInterval throttles progress callbacks
const progressInterval = 250 * time.Millisecond

// Info is the metadata returned by yt-dlp -J
type Info struct {
	ID         string             `json:"id"`
	Title      string             `json:"title"`
	Duration   float64            `json:"duration"`
	Uploader   string             `json:"uploader"`
	ViewCount  int64              `json:"view_count"`
	Thumbnail  string             `json:"thumbnail"`
	WebpageURL string             `json:"webpage_url"`
	Formats    []models.RawFormat `json:"formats"`
}

// MediaItem returns the identifying part of the metadata
func (i *Info) MediaItem(requestedURL string) *models.MediaItem {
	item := &models.MediaItem{
		ID:         i.ID,
		Title:      i.Title,
		Duration:   i.Duration,
		Uploader:   i.Uploader,
		ViewCount:  i.ViewCount,
		Thumbnail:  i.Thumbnail,
		WebpageURL: i.WebpageURL,
	}
	if item.WebpageURL == "" {
		item.WebpageURL = requestedURL
	}
	return item
}

// DownloadRequest describes one retrieval
type DownloadRequest struct {
	URL               string
	OutputTemplate    string   // yt-dlp output template, e.g. /dir/%(title)s_temp.%(ext)s
	Format            string   // format-selector expression
	FormatSort        []string // optional -S fields
	MergeOutputFormat string   // container used when video and audio are merged
	WindowsFilenames  bool     // restrict names produced from %(title)s to portable characters
	ExtractAudio      bool
	AudioFormat       string // with ExtractAudio, e.g. "mp3"
	AudioQuality      string // with ExtractAudio, e.g. "192K"
}

// Client runs the yt-dlp binary
type Client struct {
	path               string
	cookiesFile        string
	cookiesFromBrowser string
	logger             *logrus.Logger
}

// NewClient creates a new yt-dlp client
func NewClient(cfg *config.Config, logger *logrus.Logger) *Client {
	path := cfg.YtDlpPath
	if path == "" {
		path = "yt-dlp"
	}
	return &Client{
		path:               path,
		cookiesFile:        cfg.CookiesFile,
		cookiesFromBrowser: cfg.CookiesFromBrowser,
		logger:             logger,
	}
}

// Path returns the binary this client runs
func (c *Client) Path() string {
	return c.path
}

// Available checks if yt-dlp is executable
func (c *Client) Available() bool {
	_, err := exec.LookPath(c.path)
	return err == nil
}

// newCommand returns a builder with the flags every invocation shares
func (c *Client) newCommand() *ytdlp.Command {
	cmd := ytdlp.New().
		SetExecutable(c.path).
		NoPlaylist().
		NoWarnings()

	switch {
	case c.cookiesFile != "":
		cmd.Cookies(c.cookiesFile)
	case c.cookiesFromBrowser != "":
		cmd.CookiesFromBrowser(c.cookiesFromBrowser)
	}

	return cmd
}

// ExtractInfo fetches metadata and the format catalog without downloading
func (c *Client) ExtractInfo(ctx context.Context, url string) (*Info, error) {
	result, err := c.newCommand().
		DumpSingleJSON().
		Run(ctx, url)
	if err != nil {
		if ctx.Err() != nil {
			return nil, models.ErrCancelled
		}
		return nil, &models.ExtractionError{
			URL: url,
			Err: fmt.Errorf("yt-dlp: %w: %s", err, stderrTail(result, 5)),
		}
	}

	var info Info
	if err := json.Unmarshal([]byte(result.Stdout), &info); err != nil {
		return nil, &models.ExtractionError{URL: url, Err: fmt.Errorf("failed to parse yt-dlp output: %w", err)}
	}

	c.logger.WithFields(logrus.Fields{
		"url":     url,
		"title":   info.Title,
		"formats": len(info.Formats),
	}).Debug("Extracted media information")

	return &info, nil
}

// Download runs a retrieval and returns the path yt-dlp wrote. onProgress is
// called for every progress tick; returning an error from it aborts the
// retrieval and that error is returned.
func (c *Client) Download(ctx context.Context, req DownloadRequest, onProgress ProgressFunc) (string, error) {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		mu          sync.Mutex
		callbackErr error
	)

	cmd := c.downloadCommand(req)
	if onProgress != nil {
		cmd.ProgressFunc(progressInterval, func(update ytdlp.ProgressUpdate) {
			mu.Lock()
			defer mu.Unlock()
			if callbackErr != nil {
				return
			}
			p := newProgress(fmt.Sprintf("%s", update.Status), update.DownloadedBytes, update.TotalBytes, update.Percent(), update.Filename)
			if err := onProgress(p); err != nil {
				callbackErr = err
				cancel()
			}
		})
	}

	c.logger.WithFields(logrus.Fields{
		"url":    req.URL,
		"format": req.Format,
		"output": req.OutputTemplate,
	}).Debug("Running yt-dlp")

	result, runErr := cmd.Run(runCtx, req.URL)

	mu.Lock()
	abortErr := callbackErr
	mu.Unlock()

	if abortErr != nil {
		return "", abortErr
	}
	if ctx.Err() != nil {
		return "", models.ErrCancelled
	}
	if runErr != nil {
		return "", fmt.Errorf("yt-dlp failed: %w: %s", runErr, stderrTail(result, 20))
	}

	finalPath := finalPathFrom(result.Stdout)
	if finalPath == "" {
		return "", errors.New("yt-dlp reported no output file")
	}

	return finalPath, nil
}

func (c *Client) downloadCommand(req DownloadRequest) *ytdlp.Command {
	cmd := c.newCommand().
		Print("after_move:" + finalPrefix + "%(filepath)s").
		Output(req.OutputTemplate)

	if req.Format != "" {
		cmd.Format(req.Format)
	}
	if len(req.FormatSort) > 0 {
		cmd.FormatSort(strings.Join(req.FormatSort, ","))
	}
	if req.MergeOutputFormat != "" {
		cmd.MergeOutputFormat(req.MergeOutputFormat)
	}
	if req.WindowsFilenames {
		cmd.WindowsFilenames()
	}
	if req.ExtractAudio {
		cmd.ExtractAudio()
		if req.AudioFormat != "" {
			cmd.AudioFormat(req.AudioFormat)
		}
		if req.AudioQuality != "" {
			cmd.AudioQuality(req.AudioQuality)
		}
	}

	return cmd
}

// finalPathFrom returns the last path printed after the move stage
func finalPathFrom(stdout string) string {
	var path string
	for _, line := range strings.Split(stdout, "\n") {
		if rest, ok := strings.CutPrefix(strings.TrimSpace(line), finalPrefix); ok {
			path = strings.TrimSpace(rest)
		}
	}
	return path
}

// stderrTail joins the last n non-empty stderr lines of a run
func stderrTail(result *ytdlp.Result, n int) string {
	if result == nil {
		return ""
	}

	var lines []string
	for _, line := range strings.Split(result.Stderr, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, "; ")
}
