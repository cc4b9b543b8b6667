package controllers

import (
	"context"
	"fmt"

	"github.com/amaumene/aacfetch/internal/models"
	"github.com/sirupsen/logrus"
)

// Strategy names
const (
	StrategyPremium             = "Premium 1080p H.264+AAC"
	StrategyHighQualityAdaptive = "High quality 720p+"
	StrategyStandard720         = "Standard 720p H.264+AAC"
	StrategyAdaptiveAAC         = "Adaptive with AAC"
	StrategyConversion          = "AAC conversion"
	StrategyForcedConversion    = "Forced high-quality conversion"
	StrategyMaxQualityAAC       = "Maximum quality with AAC"
	StrategyH264HighQuality     = "H.264 high quality"
	StrategyAdaptiveQuality     = "Adaptive quality"
	StrategyFallbackConversion  = "Fallback with conversion"
	StrategyAudioOnly           = "Audio MP3"
)

// AcquireFunc performs one acquisition and returns the final file path
type AcquireFunc func(ctx context.Context, req AcquireRequest) (string, error)

// Strategy is a named acquisition plan. Selecting a strategy does not run it.
type Strategy struct {
	Name        string
	Description string
	Acquire     AcquireFunc
}

// StrategyController picks acquisition strategies
type StrategyController struct {
	executor        *Executor
	forceConversion bool
	logger          *logrus.Logger
}

// NewStrategyController creates a new strategy controller. With
// forceConversion every selection yields the forced conversion strategy.
func NewStrategyController(executor *Executor, forceConversion bool, logger *logrus.Logger) *StrategyController {
	return &StrategyController{
		executor:        executor,
		forceConversion: forceConversion,
		logger:          logger,
	}
}

// Select returns the strategy for an analysis (nil when unavailable) and a
// requested quality
func (c *StrategyController) Select(analysis *models.CatalogAnalysis, quality models.Quality) Strategy {
	if c.forceConversion || analysis == nil {
		return c.forcedConversion()
	}
	return c.Tiered(analysis, quality)
}

// Tiered applies the native-first precedence, first match wins:
// premium, high-quality adaptive, standard 720p, adaptive AAC, conversion
func (c *StrategyController) Tiered(a *models.CatalogAnalysis, quality models.Quality) Strategy {
	wantsHigh := quality == models.QualityBest || quality == models.Quality1080p

	if wantsHigh && a.MaxHeight >= 1080 && a.HasH264 && a.HasAAC && a.BestVideo != nil && a.BestAudioAAC != nil {
		selector := premiumSelector(a.BestVideo.FormatID, a.BestAudioAAC.FormatID)
		return Strategy{
			Name:        StrategyPremium,
			Description: fmt.Sprintf("1080p H.264 + AAC %gkbps", a.BestAudioAAC.ABR),
			Acquire:     c.native(selector),
		}
	}

	if wantsHigh && a.MaxHeight >= 720 && a.HasH264 {
		target := min(a.MaxHeight, 1080)
		return Strategy{
			Name:        StrategyHighQualityAdaptive,
			Description: fmt.Sprintf("%dp H.264 + best audio", a.MaxHeight),
			Acquire:     c.native(highQualityAdaptiveSelector(target)),
		}
	}

	if (quality == models.Quality720p || a.MaxHeight >= 720) && a.HasH264 && a.HasAAC {
		return Strategy{
			Name:        StrategyStandard720,
			Description: "720p H.264 + AAC",
			Acquire:     c.native(standard720Selector),
		}
	}

	if a.HasAAC && a.BestAudioAAC != nil {
		return Strategy{
			Name:        StrategyAdaptiveAAC,
			Description: fmt.Sprintf("Best available quality (%dp) + AAC", a.MaxHeight),
			Acquire:     c.native(adaptiveAACSelector(a.BestAudioAAC.FormatID)),
		}
	}

	selector := forcedConversionSelector
	if a.BestVideo != nil {
		selector = conversionSelector(a.BestVideo.FormatID, a.BestVideo.Height)
	}
	return Strategy{
		Name:        StrategyConversion,
		Description: fmt.Sprintf("Best available quality (%dp) + AAC conversion", a.MaxHeight),
		Acquire:     c.converting(selector),
	}
}

// FallbackChain returns the strategies tried, in order, when the selected
// strategy fails or no analysis is available. The last entry accepts any
// download and repairs its audio afterwards.
func (c *StrategyController) FallbackChain() []Strategy {
	return []Strategy{
		{
			Name:        StrategyMaxQualityAAC,
			Description: "Best H.264 video for the requested quality + AAC audio",
			Acquire: func(ctx context.Context, req AcquireRequest) (string, error) {
				return c.executor.fetch(ctx, req, retrieval{format: maxQualityAACSelector(req.Quality)})
			},
		},
		{
			Name:        StrategyH264HighQuality,
			Description: "H.264 720p+ sorted towards 720p30 with AAC",
			Acquire: func(ctx context.Context, req AcquireRequest) (string, error) {
				return c.executor.fetch(ctx, req, retrieval{
					format:     h264HighQualitySelector,
					formatSort: h264HighQualitySort,
				})
			},
		},
		{
			Name:        StrategyAdaptiveQuality,
			Description: "H.264 capped at the best standard resolution available",
			Acquire: func(ctx context.Context, req AcquireRequest) (string, error) {
				maxHeight, err := c.executor.maxHeight(ctx, req.URL)
				if err != nil {
					return "", fmt.Errorf("failed to probe available resolutions: %w", err)
				}
				c.logger.WithField("max_height", maxHeight).Debug("Best available resolution")
				return c.executor.fetch(ctx, req, retrieval{format: adaptiveCeilingSelector(maxHeight)})
			},
		},
		{
			Name:        StrategyFallbackConversion,
			Description: "Best effort download, then AAC conversion",
			Acquire:     c.converting(forcedConversionSelector),
		},
	}
}

// AudioOnly returns the MP3 extraction strategy
func (c *StrategyController) AudioOnly(quality models.Quality) Strategy {
	bitrate := audioOnlyBitrate(quality)
	return Strategy{
		Name:        StrategyAudioOnly,
		Description: fmt.Sprintf("Best audio extracted to MP3 at %s", bitrate),
		Acquire: func(ctx context.Context, req AcquireRequest) (string, error) {
			return c.executor.fetch(ctx, req, retrieval{
				format:       audioOnlySelector,
				audioOnly:    true,
				audioBitrate: bitrate,
			})
		},
	}
}

func (c *StrategyController) forcedConversion() Strategy {
	return Strategy{
		Name:        StrategyForcedConversion,
		Description: "Guaranteed AAC conversion of the best download up to 1080p",
		Acquire:     c.converting(forcedConversionSelector),
	}
}

func (c *StrategyController) native(selector string) AcquireFunc {
	return func(ctx context.Context, req AcquireRequest) (string, error) {
		return c.executor.fetch(ctx, req, retrieval{format: selector})
	}
}

func (c *StrategyController) converting(selector string) AcquireFunc {
	return func(ctx context.Context, req AcquireRequest) (string, error) {
		return c.executor.fetch(ctx, req, retrieval{format: selector, convert: true})
	}
}
