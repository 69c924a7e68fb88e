// Package ratecache serves the current secondary-to-primary exchange rate.
//
// A Cache keeps the latest sample in a TTL slot. On a miss it first looks at
// the newest persisted sample and only calls the rate source when that one is
// stale. Concurrent misses share a single fetch. When the source fails the
// newest persisted sample is returned regardless of its age, so callers that
// only need a best-effort conversion never see a source outage.
package ratecache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"dualledger/internal/logger"
	"dualledger/internal/models"
	"dualledger/internal/money"
)

const (
	// DefaultTTL is how long a sample is served without refetching.
	DefaultTTL = time.Hour
	// DefaultFetchTimeout bounds a single call to the rate source.
	DefaultFetchTimeout = 10 * time.Second

	slotKey    = "current"
	missKey    = "miss"
	refreshKey = "refresh"
)

// ErrNoRateAvailable is returned when the source fails and no sample has ever
// been recorded.
var ErrNoRateAvailable = errors.New("no exchange rate available")

// Source looks up the current rate: how many primary units one secondary unit
// is worth.
type Source interface {
	Name() string
	FetchCurrentRate(ctx context.Context) (money.Money, error)
}

// SampleStore persists rate samples. Latest returns nil and no error when
// nothing has been recorded for the pair.
type SampleStore interface {
	Latest(ctx context.Context, base, quote models.Currency) (*models.ExchangeRateSample, error)
	Append(ctx context.Context, sample *models.ExchangeRateSample) error
}

// Config controls cache freshness and fetch bounds.
type Config struct {
	Pair         models.CurrencyPair
	TTL          time.Duration
	FetchTimeout time.Duration
}

// Option customizes a Cache.
type Option func(*Cache)

// WithClock replaces time.Now, letting tests control sample age.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

// WithLogger replaces the global logger.
func WithLogger(log *zap.SugaredLogger) Option {
	return func(c *Cache) { c.log = log }
}

// Cache is an explicitly constructed, injectable exchange rate cache.
type Cache struct {
	source  Source
	store   SampleStore
	pair    models.CurrencyPair
	ttl     time.Duration
	timeout time.Duration

	slot  *cache.Cache
	mu    sync.Mutex
	group singleflight.Group
	now   func() time.Time
	log   *zap.SugaredLogger
}

// New creates a Cache. Zero durations in cfg fall back to the defaults.
func New(source Source, store SampleStore, cfg Config, opts ...Option) *Cache {
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = DefaultFetchTimeout
	}
	c := &Cache{
		source:  source,
		store:   store,
		pair:    cfg.Pair,
		ttl:     cfg.TTL,
		timeout: cfg.FetchTimeout,
		slot:    cache.New(cfg.TTL, 2*cfg.TTL),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.log == nil {
		c.log = logger.Get()
	}
	return c
}

// Pair returns the currency pair the cache serves.
func (c *Cache) Pair() models.CurrencyPair { return c.pair }

// TTL returns the freshness window.
func (c *Cache) TTL() time.Duration { return c.ttl }

// Fresh reports whether sample is younger than the TTL.
func (c *Cache) Fresh(sample *models.ExchangeRateSample) bool {
	return sample != nil && sample.Age(c.now()) < c.ttl
}

// Current returns the current rate sample. It returns ErrNoRateAvailable only
// when the source fails and nothing has ever been recorded; any other source
// failure is logged and answered with the newest persisted sample. When the
// source fails and the store could not be read either, the store error is
// returned alongside the fetch error.
func (c *Cache) Current(ctx context.Context) (*models.ExchangeRateSample, error) {
	if s, ok := c.cached(); ok {
		return s, nil
	}

	v, err, _ := c.group.Do(missKey, func() (any, error) {
		if s, ok := c.cached(); ok {
			return s, nil
		}

		latest, storeErr := c.latest(ctx)
		if storeErr != nil {
			c.log.Warnw("Failed to load latest exchange rate sample", "error", storeErr)
		}
		if c.Fresh(latest) {
			c.prime(latest)
			return latest, nil
		}

		fresh, err := c.fetch(ctx)
		if err != nil {
			c.log.Warnw("Exchange rate fetch failed, using last recorded sample",
				"source", c.source.Name(),
				"error", err,
				"has_fallback", latest != nil,
			)
			if latest != nil {
				return latest, nil
			}
			if storeErr != nil {
				return nil, fmt.Errorf("%w; %w", err, storeErr)
			}
			return nil, ErrNoRateAvailable
		}
		if err := c.record(ctx, fresh); err != nil {
			c.log.Warnw("Failed to record exchange rate sample", "error", err)
		}
		return fresh, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*models.ExchangeRateSample), nil
}

// Refresh fetches a new sample, persists it and replaces the cached one. It is
// the write-through path used by scheduled refreshes. A failed fetch leaves
// the cached sample untouched and is returned to the caller.
func (c *Cache) Refresh(ctx context.Context) (*models.ExchangeRateSample, error) {
	v, err, _ := c.group.Do(refreshKey, func() (any, error) {
		fresh, err := c.fetch(ctx)
		if err != nil {
			return nil, err
		}
		if err := c.record(ctx, fresh); err != nil {
			return nil, err
		}
		return fresh, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*models.ExchangeRateSample), nil
}

// Invalidate empties the TTL slot so the next read re-derives freshness from
// the store.
func (c *Cache) Invalidate() {
	c.slot.Delete(slotKey)
}

func (c *Cache) cached() (*models.ExchangeRateSample, bool) {
	v, ok := c.slot.Get(slotKey)
	if !ok {
		return nil, false
	}
	s := v.(*models.ExchangeRateSample)
	return s, c.Fresh(s)
}

// prime stores s in the slot for the rest of its TTL unless the slot already
// holds a newer sample.
func (c *Cache) prime(s *models.ExchangeRateSample) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if v, ok := c.slot.Get(slotKey); ok {
		if cur := v.(*models.ExchangeRateSample); cur.FetchedAt.After(s.FetchedAt) {
			return
		}
	}
	remaining := c.ttl - s.Age(c.now())
	if remaining <= 0 {
		return
	}
	c.slot.Set(slotKey, s, remaining)
}

// latest reads the newest persisted sample. Like fetch, the read is detached
// from the caller's cancellation and bounded by the fetch timeout, since its
// result is shared by every waiter on the miss.
func (c *Cache) latest(ctx context.Context) (*models.ExchangeRateSample, error) {
	readCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
	defer cancel()

	s, err := c.store.Latest(readCtx, c.pair.Secondary, c.pair.Primary)
	if err != nil {
		return nil, fmt.Errorf("loading latest rate sample: %w", err)
	}
	return s, nil
}

// fetch calls the source with a bounded timeout. The timeout is detached from
// the caller's cancellation because the result is shared by every waiter.
func (c *Cache) fetch(ctx context.Context) (*models.ExchangeRateSample, error) {
	fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
	defer cancel()

	rate, err := c.source.FetchCurrentRate(fetchCtx)
	if err != nil {
		return nil, fmt.Errorf("fetching rate from %s: %w", c.source.Name(), err)
	}
	if !rate.Valid() || !rate.IsPositive() {
		return nil, fmt.Errorf("source %s returned non-positive rate %s", c.source.Name(), rate)
	}
	return &models.ExchangeRateSample{
		BaseCurrency:  c.pair.Secondary,
		QuoteCurrency: c.pair.Primary,
		Rate:          rate,
		Source:        c.source.Name(),
		FetchedAt:     c.now(),
	}, nil
}

// record appends s to the store and swaps it into the slot. The slot is
// invalidated first so a stale copy of an older sample is never served after
// a successful write.
func (c *Cache) record(ctx context.Context, s *models.ExchangeRateSample) error {
	err := c.store.Append(context.WithoutCancel(ctx), s)
	c.Invalidate()
	c.prime(s)
	if err != nil {
		return fmt.Errorf("appending rate sample: %w", err)
	}
	return nil
}
