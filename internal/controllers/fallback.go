package controllers

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/amaumene/aacfetch/internal/metrics"
	"github.com/amaumene/aacfetch/internal/models"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// ChainResult is the outcome of a successful chain run
type ChainResult struct {
	Path     string
	Strategy string
}

// ChainRunner executes strategies in order until one produces a file
type ChainRunner struct {
	tracer  trace.Tracer
	metrics *metrics.Metrics
	logger  *logrus.Logger
}

// NewChainRunner creates a new fallback chain runner
func NewChainRunner(tracer trace.Tracer, m *metrics.Metrics, logger *logrus.Logger) *ChainRunner {
	return &ChainRunner{
		tracer:  tracer,
		metrics: m,
		logger:  logger,
	}
}

// Run tries each strategy strictly in order. The first one returning a path
// that exists wins and the rest are never invoked. Failures are logged and
// collected; if all fail a *models.ChainExhaustedError is returned.
// Cancellation stops the chain with models.ErrCancelled, and a
// *models.FinalizeError stops it with that error.
func (r *ChainRunner) Run(ctx context.Context, strategies []Strategy, req AcquireRequest) (*ChainResult, error) {
	var attempts []*models.StrategyError

	for i, s := range strategies {
		if ctx.Err() != nil {
			return nil, models.ErrCancelled
		}

		log := r.logger.WithFields(logrus.Fields{
			"strategy": s.Name,
			"attempt":  fmt.Sprintf("%d/%d", i+1, len(strategies)),
		})
		log.Info("Trying download strategy")

		path, err := r.attempt(ctx, i, s, req)
		if err == nil {
			log.WithField("file", path).Info("Download strategy succeeded")
			r.metrics.StrategyAttempt(s.Name, "success")
			return &ChainResult{Path: path, Strategy: s.Name}, nil
		}

		if errors.Is(err, models.ErrCancelled) || ctx.Err() != nil {
			log.Info("Download cancelled")
			r.metrics.StrategyAttempt(s.Name, "cancelled")
			return nil, models.ErrCancelled
		}

		var finalizeErr *models.FinalizeError
		if errors.As(err, &finalizeErr) {
			log.WithError(err).Error("Downloaded file could not be finalized")
			r.metrics.StrategyAttempt(s.Name, "failure")
			return nil, err
		}

		log.WithError(err).Warn("Download strategy failed")
		r.metrics.StrategyAttempt(s.Name, "failure")
		attempts = append(attempts, &models.StrategyError{Strategy: s.Name, Err: err})
	}

	return nil, &models.ChainExhaustedError{Attempts: attempts}
}

func (r *ChainRunner) attempt(ctx context.Context, index int, s Strategy, req AcquireRequest) (string, error) {
	ctx, span := r.tracer.Start(ctx, "strategy.attempt", trace.WithAttributes(
		attribute.String("strategy.name", s.Name),
		attribute.Int("strategy.index", index),
	))
	defer span.End()

	path, err := s.Acquire(ctx, req)
	if err == nil {
		if _, statErr := os.Stat(path); statErr != nil {
			err = fmt.Errorf("output file %s does not exist", path)
		}
	}

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "strategy failed")
		return "", err
	}

	span.SetAttributes(attribute.String("output.path", path))
	return path, nil
}
