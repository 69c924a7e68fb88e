package services

import (
	"context"
	"errors"
	"time"

	apperrors "dualledger/internal/errors"
	"dualledger/internal/models"
	"dualledger/internal/ratecache"
)

const (
	defaultRateHistory = 30
	maxRateHistory     = 500
)

// rateService exposes the rate cache and sample history to handlers.
type rateService struct {
	cache *ratecache.Cache
	store *RateStore
	now   func() time.Time
}

// NewRateService creates a new RateServicer.
func NewRateService(cache *ratecache.Cache, store *RateStore) RateServicer {
	return &rateService{cache: cache, store: store, now: time.Now}
}

// CurrentRate returns the cached rate, fetching when it has expired. Stale
// samples are served with Stale set when the source is down.
func (s *rateService) CurrentRate(ctx context.Context) (*RateQuote, error) {
	sample, err := s.cache.Current(ctx)
	if err != nil {
		if errors.Is(err, ratecache.ErrNoRateAvailable) {
			return nil, apperrors.Wrap(apperrors.ErrRateUnavailable, err)
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return s.quote(sample), nil
}

// RefreshRate fetches a new sample regardless of cache state.
func (s *rateService) RefreshRate(ctx context.Context) (*RateQuote, error) {
	sample, err := s.cache.Refresh(ctx)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrRateUnavailable, err)
	}
	return s.quote(sample), nil
}

// RateHistory lists recorded samples for the configured pair, newest first.
func (s *rateService) RateHistory(ctx context.Context, limit int) ([]models.ExchangeRateSample, error) {
	if limit <= 0 {
		limit = defaultRateHistory
	}
	if limit > maxRateHistory {
		limit = maxRateHistory
	}
	pair := s.cache.Pair()
	samples, err := s.store.List(ctx, pair.Secondary, pair.Primary, limit)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if samples == nil {
		samples = []models.ExchangeRateSample{}
	}
	return samples, nil
}

func (s *rateService) quote(sample *models.ExchangeRateSample) *RateQuote {
	return &RateQuote{
		Sample:     sample,
		Stale:      !s.cache.Fresh(sample),
		AgeSeconds: int64(sample.Age(s.now()).Seconds()),
	}
}
