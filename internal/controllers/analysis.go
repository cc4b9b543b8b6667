package controllers

import (
	"context"
	"fmt"
	"time"

	"github.com/amaumene/aacfetch/internal/models"
	"github.com/amaumene/aacfetch/internal/services/ytdlp"
	"github.com/amaumene/aacfetch/internal/utils"
	"github.com/patrickmn/go-cache"
	"github.com/sirupsen/logrus"
)

// Retriever is the metadata and retrieval collaborator
type Retriever interface {
	ExtractInfo(ctx context.Context, url string) (*ytdlp.Info, error)
	Download(ctx context.Context, req ytdlp.DownloadRequest, onProgress ytdlp.ProgressFunc) (string, error)
}

// standardHeights are the resolutions offered as quality choices
var standardHeights = []int{2160, 1440, 1080, 720, 480, 360, 240}

// Analyze classifies and scores every raw format. Muxed formats count as both
// a video and an audio descriptor. Ties keep the first format seen.
func Analyze(formats []models.RawFormat) (*models.CatalogAnalysis, error) {
	if len(formats) == 0 {
		return nil, models.ErrNoFormats
	}

	analysis := &models.CatalogAnalysis{}
	var videos []models.VideoFormat
	var audios []models.AudioFormat

	for _, f := range formats {
		if f.HasVideo() {
			v := models.VideoFormat{
				FormatID:     f.FormatID,
				Height:       f.Height,
				Width:        f.Width,
				FPS:          f.FPS,
				VCodec:       f.VCodec,
				TBR:          f.TBR,
				Ext:          f.Ext,
				Filesize:     f.Filesize,
				QualityScore: utils.VideoQualityScore(f.Height, f.FPS, f.VCodec),
			}
			videos = append(videos, v)

			if f.Height > analysis.MaxHeight {
				analysis.MaxHeight = f.Height
			}
			if utils.IsH264(f.VCodec) {
				analysis.HasH264 = true
			}
			if analysis.BestVideo == nil || v.QualityScore > analysis.BestVideo.QualityScore {
				best := v
				analysis.BestVideo = &best
			}
		}

		if f.HasAudio() {
			a := models.AudioFormat{
				FormatID:     f.FormatID,
				ACodec:       f.ACodec,
				ABR:          f.ABR,
				ASR:          f.ASR,
				QualityScore: utils.AudioQualityScore(f.ACodec, f.ABR),
			}
			audios = append(audios, a)

			if utils.IsAACFamily(f.ACodec) {
				analysis.HasAAC = true
				if analysis.BestAudioAAC == nil || a.QualityScore > analysis.BestAudioAAC.QualityScore {
					best := a
					analysis.BestAudioAAC = &best
				}
			}
		}
	}

	analysis.VideoFormats = utils.RankVideoFormats(videos)
	analysis.AudioFormats = utils.RankAudioFormats(audios)

	return analysis, nil
}

// AnalysisController resolves URLs into metadata and catalog analyses
type AnalysisController struct {
	retriever Retriever
	cache     *cache.Cache
	logger    *logrus.Logger
}

// NewAnalysisController creates a new analysis controller. Metadata previews
// are cached for cacheTTL; analyses never are.
func NewAnalysisController(retriever Retriever, cacheTTL time.Duration, logger *logrus.Logger) *AnalysisController {
	return &AnalysisController{
		retriever: retriever,
		cache:     cache.New(cacheTTL, 2*cacheTTL),
		logger:    logger,
	}
}

// FetchInfo returns the media metadata for url
func (c *AnalysisController) FetchInfo(ctx context.Context, url string) (*models.MediaItem, error) {
	if cached, found := c.cache.Get(url); found {
		return cached.(*models.MediaItem), nil
	}

	info, err := c.retriever.ExtractInfo(ctx, url)
	if err != nil {
		return nil, err
	}

	item := info.MediaItem(url)
	c.cache.SetDefault(url, item)
	return item, nil
}

// AnalyzeURL extracts the format catalog of url and analyzes it
func (c *AnalysisController) AnalyzeURL(ctx context.Context, url string) (*models.MediaItem, *models.CatalogAnalysis, error) {
	info, err := c.retriever.ExtractInfo(ctx, url)
	if err != nil {
		return nil, nil, err
	}

	item := info.MediaItem(url)
	c.cache.SetDefault(url, item)

	analysis, err := Analyze(info.Formats)
	if err != nil {
		return item, nil, &models.ExtractionError{URL: url, Err: err}
	}

	c.logger.WithFields(logrus.Fields{
		"title":      item.Title,
		"max_height": analysis.MaxHeight,
		"has_h264":   analysis.HasH264,
		"has_aac":    analysis.HasAAC,
		"videos":     len(analysis.VideoFormats),
		"audios":     len(analysis.AudioFormats),
	}).Info("Analyzed available formats")

	return item, analysis, nil
}

// QualityChoices lists the selectable qualities for url. Audio jobs have a
// single choice; video jobs get every standard resolution actually offered,
// each backed by its highest-bitrate format.
func (c *AnalysisController) QualityChoices(ctx context.Context, url string, kind models.OutputKind) ([]models.QualityChoice, error) {
	if kind == models.OutputAudio {
		return []models.QualityChoice{{FormatID: "bestaudio", Label: "Audio MP3", Type: "audio"}}, nil
	}

	info, err := c.retriever.ExtractInfo(ctx, url)
	if err != nil {
		return nil, err
	}
	c.cache.SetDefault(url, info.MediaItem(url))

	return qualityChoices(info.Formats), nil
}

func qualityChoices(formats []models.RawFormat) []models.QualityChoice {
	choices := []models.QualityChoice{}
	for _, height := range standardHeights {
		var best *models.RawFormat
		for i := range formats {
			f := &formats[i]
			if !f.HasVideo() || f.Height != height {
				continue
			}
			if best == nil || f.TBR > best.TBR {
				best = f
			}
		}
		if best != nil {
			choices = append(choices, models.QualityChoice{
				FormatID: best.FormatID,
				Label:    fmt.Sprintf("%dp", height),
				Height:   height,
				Type:     "video",
			})
		}
	}
	return choices
}
