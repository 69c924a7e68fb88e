// Package ratesync periodically pushes a fresh exchange rate through the rate
// cache's write-through path.
package ratesync

import (
	"context"
	"time"

	"go.uber.org/zap"

	"dualledger/internal/models"
)

// DefaultInterval is the spacing between scheduled refreshes.
const DefaultInterval = 8 * time.Hour

// RateRefresher is the cache operation driven by the refresher.
type RateRefresher interface {
	Refresh(ctx context.Context) (*models.ExchangeRateSample, error)
}

// RunResult contains the outcome of one refresh cycle.
type RunResult struct {
	Sample   *models.ExchangeRateSample
	Err      error
	Duration time.Duration
}

// Refresher runs Refresh on a fixed interval.
type Refresher struct {
	cache    RateRefresher
	interval time.Duration
	timeout  time.Duration
	logger   *zap.SugaredLogger

	// done is signalled after every cycle; tests use it to observe the loop.
	done func(RunResult)
}

// NewRefresher creates a Refresher. Each cycle is bounded by timeout.
func NewRefresher(cache RateRefresher, interval, timeout time.Duration, logger *zap.SugaredLogger) *Refresher {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Refresher{
		cache:    cache,
		interval: interval,
		timeout:  timeout,
		logger:   logger,
	}
}

// RunOnce executes a single refresh cycle and logs its outcome.
func (r *Refresher) RunOnce(ctx context.Context) RunResult {
	start := time.Now()
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	sample, err := r.cache.Refresh(ctx)
	result := RunResult{Sample: sample, Err: err, Duration: time.Since(start)}

	if err != nil {
		r.logger.Warnw("Exchange rate refresh failed",
			"error", err,
			"duration", result.Duration.String(),
		)
	} else {
		r.logger.Infow("Exchange rate refreshed",
			"base", sample.BaseCurrency,
			"quote", sample.QuoteCurrency,
			"rate", sample.Rate.StorageString(),
			"source", sample.Source,
			"duration", result.Duration.String(),
		)
	}
	if r.done != nil {
		r.done(result)
	}
	return result
}

// Start refreshes immediately and then every interval until ctx is cancelled.
// It blocks; run it in its own goroutine.
func (r *Refresher) Start(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.logger.Infow("Exchange rate refresher started", "interval", r.interval.String())
	r.RunOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			r.logger.Info("Exchange rate refresher stopped")
			return
		case <-ticker.C:
			r.RunOnce(ctx)
		}
	}
}
