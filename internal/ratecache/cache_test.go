package ratecache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"dualledger/internal/models"
	"dualledger/internal/money"
)

var pair = models.CurrencyPair{Primary: "ARS", Secondary: "USD"}

type fakeSource struct {
	calls   atomic.Int32
	rate    money.Money
	err     error
	release chan struct{}
}

func (s *fakeSource) Name() string { return "fake" }

func (s *fakeSource) FetchCurrentRate(ctx context.Context) (money.Money, error) {
	s.calls.Add(1)
	if s.release != nil {
		select {
		case <-s.release:
		case <-ctx.Done():
			return money.Zero, ctx.Err()
		}
	}
	if s.err != nil {
		return money.Zero, s.err
	}
	return s.rate, nil
}

type memoryStore struct {
	mu      sync.Mutex
	samples []models.ExchangeRateSample
	latest  error
	append  error
}

func (m *memoryStore) Latest(_ context.Context, base, quote models.Currency) (*models.ExchangeRateSample, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.latest != nil {
		return nil, m.latest
	}
	var out *models.ExchangeRateSample
	for i := range m.samples {
		s := m.samples[i]
		if s.BaseCurrency != base || s.QuoteCurrency != quote {
			continue
		}
		if out == nil || s.FetchedAt.After(out.FetchedAt) {
			out = &s
		}
	}
	return out, nil
}

func (m *memoryStore) Append(_ context.Context, s *models.ExchangeRateSample) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.append != nil {
		return m.append
	}
	m.samples = append(m.samples, *s)
	return nil
}

func (m *memoryStore) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.samples)
}

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func sample(rate string, fetchedAt time.Time) models.ExchangeRateSample {
	return models.ExchangeRateSample{
		ID:            rate,
		BaseCurrency:  pair.Secondary,
		QuoteCurrency: pair.Primary,
		Rate:          money.MustParse(rate),
		Source:        "seed",
		FetchedAt:     fetchedAt,
	}
}

func newTestCache(src Source, store SampleStore, clk *clock) *Cache {
	return New(src, store, Config{Pair: pair, TTL: time.Hour, FetchTimeout: time.Second},
		WithClock(clk.Now), WithLogger(zap.NewNop().Sugar()))
}

func TestCurrent_FreshPersistedSampleSkipsFetch(t *testing.T) {
	clk := &clock{now: time.Date(2025, time.June, 1, 12, 0, 0, 0, time.UTC)}
	store := &memoryStore{samples: []models.ExchangeRateSample{sample("1200", clk.now.Add(-30*time.Minute))}}
	src := &fakeSource{rate: money.MustParse("9999")}
	c := newTestCache(src, store, clk)

	got, err := c.Current(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "1200.00", got.Rate.DisplayString())
	assert.Equal(t, int32(0), src.calls.Load())
}

func TestCurrent_MissFetchesAndRecords(t *testing.T) {
	clk := &clock{now: time.Date(2025, time.June, 1, 12, 0, 0, 0, time.UTC)}
	store := &memoryStore{samples: []models.ExchangeRateSample{sample("1000", clk.now.Add(-2*time.Hour))}}
	src := &fakeSource{rate: money.MustParse("1250.5")}
	c := newTestCache(src, store, clk)

	got, err := c.Current(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "1250.5000", got.Rate.StorageString())
	assert.Equal(t, models.Currency("USD"), got.BaseCurrency)
	assert.Equal(t, models.Currency("ARS"), got.QuoteCurrency)
	assert.Equal(t, 2, store.count())

	again, err := c.Current(context.Background())
	require.NoError(t, err)
	assert.Same(t, got, again)
	assert.Equal(t, int32(1), src.calls.Load())
}

func TestCurrent_RefetchesAfterTTL(t *testing.T) {
	clk := &clock{now: time.Date(2025, time.June, 1, 12, 0, 0, 0, time.UTC)}
	src := &fakeSource{rate: money.MustParse("1100")}
	c := newTestCache(src, &memoryStore{}, clk)

	_, err := c.Current(context.Background())
	require.NoError(t, err)

	clk.Advance(59 * time.Minute)
	_, err = c.Current(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(1), src.calls.Load())

	clk.Advance(2 * time.Minute)
	_, err = c.Current(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(2), src.calls.Load())
}

func TestCurrent_ConcurrentMissesFetchOnce(t *testing.T) {
	clk := &clock{now: time.Date(2025, time.June, 1, 12, 0, 0, 0, time.UTC)}
	src := &fakeSource{rate: money.MustParse("1300"), release: make(chan struct{})}
	c := newTestCache(src, &memoryStore{}, clk)

	const callers = 25
	var wg sync.WaitGroup
	results := make([]*models.ExchangeRateSample, callers)
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = c.Current(context.Background())
		}(i)
	}

	require.Eventually(t, func() bool { return src.calls.Load() == 1 }, time.Second, time.Millisecond)
	close(src.release)
	wg.Wait()

	assert.Equal(t, int32(1), src.calls.Load())
	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, "1300.00", results[i].Rate.DisplayString())
	}
}

func TestCurrent_FetchFailureFallsBackToStaleSample(t *testing.T) {
	clk := &clock{now: time.Date(2025, time.June, 1, 12, 0, 0, 0, time.UTC)}
	store := &memoryStore{samples: []models.ExchangeRateSample{
		sample("900", clk.now.Add(-72*time.Hour)),
		sample("950", clk.now.Add(-48*time.Hour)),
	}}
	src := &fakeSource{err: errors.New("connection refused")}
	c := newTestCache(src, store, clk)

	got, err := c.Current(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "950.00", got.Rate.DisplayString())
	assert.False(t, c.Fresh(got))
	assert.Equal(t, 2, store.count())

	// Fallback results are not cached, so the next read retries the source.
	_, err = c.Current(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(2), src.calls.Load())
}

func TestCurrent_NoSampleEver(t *testing.T) {
	clk := &clock{now: time.Date(2025, time.June, 1, 12, 0, 0, 0, time.UTC)}
	c := newTestCache(&fakeSource{err: errors.New("boom")}, &memoryStore{}, clk)

	got, err := c.Current(context.Background())

	assert.Nil(t, got)
	assert.ErrorIs(t, err, ErrNoRateAvailable)
}

func TestCurrent_NonPositiveRateIsAFailure(t *testing.T) {
	clk := &clock{now: time.Date(2025, time.June, 1, 12, 0, 0, 0, time.UTC)}
	store := &memoryStore{}
	c := newTestCache(&fakeSource{rate: money.Zero}, store, clk)

	_, err := c.Current(context.Background())

	assert.ErrorIs(t, err, ErrNoRateAvailable)
	assert.Equal(t, 0, store.count())
}

func TestCurrent_StoreErrorsAreNotFatal(t *testing.T) {
	clk := &clock{now: time.Date(2025, time.June, 1, 12, 0, 0, 0, time.UTC)}
	store := &memoryStore{latest: errors.New("db down"), append: errors.New("db down")}
	c := newTestCache(&fakeSource{rate: money.MustParse("1000")}, store, clk)

	got, err := c.Current(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "1000.00", got.Rate.DisplayString())
}

// blockingStore holds Latest until released and honours cancellation the way
// a database driver does.
type blockingStore struct {
	memoryStore
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func (b *blockingStore) Latest(ctx context.Context, base, quote models.Currency) (*models.ExchangeRateSample, error) {
	b.once.Do(func() { close(b.entered) })
	select {
	case <-b.release:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return b.memoryStore.Latest(ctx, base, quote)
}

func TestCurrent_CancelledCallerDoesNotFailWaiters(t *testing.T) {
	clk := &clock{now: time.Date(2025, time.June, 1, 12, 0, 0, 0, time.UTC)}
	store := &blockingStore{
		memoryStore: memoryStore{samples: []models.ExchangeRateSample{sample("950", clk.now.Add(-48*time.Hour))}},
		entered:     make(chan struct{}),
		release:     make(chan struct{}),
	}
	c := newTestCache(&fakeSource{err: errors.New("connection refused")}, store, clk)

	firstCtx, cancelFirst := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	var first, second *models.ExchangeRateSample
	var firstErr, secondErr error

	wg.Add(1)
	go func() {
		defer wg.Done()
		first, firstErr = c.Current(firstCtx)
	}()
	<-store.entered
	cancelFirst()

	wg.Add(1)
	go func() {
		defer wg.Done()
		second, secondErr = c.Current(context.Background())
	}()
	time.Sleep(10 * time.Millisecond)
	close(store.release)
	wg.Wait()

	require.NoError(t, firstErr)
	require.NoError(t, secondErr)
	assert.Equal(t, "950.00", first.Rate.DisplayString())
	assert.Equal(t, "950.00", second.Rate.DisplayString())
}

func TestCurrent_StoreAndSourceDownIsNotReportedAsNoRate(t *testing.T) {
	clk := &clock{now: time.Date(2025, time.June, 1, 12, 0, 0, 0, time.UTC)}
	store := &memoryStore{latest: errors.New("db down")}
	c := newTestCache(&fakeSource{err: errors.New("connection refused")}, store, clk)

	_, err := c.Current(context.Background())

	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNoRateAvailable)
	assert.ErrorContains(t, err, "db down")
	assert.ErrorContains(t, err, "connection refused")
}

func TestCurrent_TimeoutFallsBack(t *testing.T) {
	clk := &clock{now: time.Date(2025, time.June, 1, 12, 0, 0, 0, time.UTC)}
	store := &memoryStore{samples: []models.ExchangeRateSample{sample("800", clk.now.Add(-5*time.Hour))}}
	src := &fakeSource{rate: money.MustParse("1"), release: make(chan struct{})}
	c := New(src, store, Config{Pair: pair, TTL: time.Hour, FetchTimeout: 20 * time.Millisecond},
		WithClock(clk.Now), WithLogger(zap.NewNop().Sugar()))

	got, err := c.Current(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "800.00", got.Rate.DisplayString())
}

func TestRefresh_WriteThroughReplacesCachedSample(t *testing.T) {
	clk := &clock{now: time.Date(2025, time.June, 1, 12, 0, 0, 0, time.UTC)}
	store := &memoryStore{samples: []models.ExchangeRateSample{sample("1000", clk.now.Add(-10*time.Minute))}}
	src := &fakeSource{rate: money.MustParse("1111")}
	c := newTestCache(src, store, clk)

	before, err := c.Current(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "1000.00", before.Rate.DisplayString())

	clk.Advance(time.Minute)
	refreshed, err := c.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "1111.00", refreshed.Rate.DisplayString())

	after, err := c.Current(context.Background())
	require.NoError(t, err)
	assert.Same(t, refreshed, after)
	assert.Equal(t, 2, store.count())
}

func TestRefresh_FailureKeepsCachedSample(t *testing.T) {
	clk := &clock{now: time.Date(2025, time.June, 1, 12, 0, 0, 0, time.UTC)}
	store := &memoryStore{samples: []models.ExchangeRateSample{sample("1000", clk.now.Add(-10*time.Minute))}}
	src := &fakeSource{err: errors.New("unreachable")}
	c := newTestCache(src, store, clk)

	_, err := c.Current(context.Background())
	require.NoError(t, err)

	_, err = c.Refresh(context.Background())
	require.Error(t, err)

	got, err := c.Current(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "1000.00", got.Rate.DisplayString())
}

func TestInvalidate(t *testing.T) {
	clk := &clock{now: time.Date(2025, time.June, 1, 12, 0, 0, 0, time.UTC)}
	store := &memoryStore{samples: []models.ExchangeRateSample{sample("1000", clk.now.Add(-10*time.Minute))}}
	c := newTestCache(&fakeSource{rate: money.MustParse("1")}, store, clk)

	_, err := c.Current(context.Background())
	require.NoError(t, err)

	store.mu.Lock()
	store.samples = append(store.samples, sample("1500", clk.now.Add(-time.Minute)))
	store.mu.Unlock()

	c.Invalidate()
	got, err := c.Current(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "1500.00", got.Rate.DisplayString())
}
