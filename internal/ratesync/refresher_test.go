package ratesync

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

type fakeCache struct {
	calls atomic.Int32
	err   error
}

func (f *fakeCache) Refresh(ctx context.Context) (*models.ExchangeRateSample, error) {
	f.calls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	if _, ok := ctx.Deadline(); !ok {
		return nil, errors.New("refresh called without a deadline")
	}
	return &models.ExchangeRateSample{
		BaseCurrency:  "USD",
		QuoteCurrency: "ARS",
		Rate:          money.MustParse("1200"),
		Source:        "fake",
		FetchedAt:     time.Now(),
	}, nil
}

func TestRunOnce(t *testing.T) {
	cache := &fakeCache{}
	r := NewRefresher(cache, time.Hour, time.Second, zap.NewNop().Sugar())

	result := r.RunOnce(context.Background())

	require.NoError(t, result.Err)
	require.NotNil(t, result.Sample)
	assert.Equal(t, "1200.0000", result.Sample.Rate.StorageString())
	assert.Equal(t, int32(1), cache.calls.Load())
}

func TestRunOnce_ReportsFailure(t *testing.T) {
	cache := &fakeCache{err: errors.New("upstream down")}
	r := NewRefresher(cache, time.Hour, time.Second, zap.NewNop().Sugar())

	result := r.RunOnce(context.Background())

	assert.EqualError(t, result.Err, "upstream down")
	assert.Nil(t, result.Sample)
}

func TestStart_RunsImmediatelyAndOnTicks(t *testing.T) {
	cache := &fakeCache{}
	r := NewRefresher(cache, 10*time.Millisecond, time.Second, zap.NewNop().Sugar())

	var mu sync.Mutex
	var results []RunResult
	r.done = func(res RunResult) {
		mu.Lock()
		results = append(results, res)
		mu.Unlock()
	}

	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		r.Start(ctx)
		close(stopped)
	}()

	require.Eventually(t, func() bool { return cache.calls.Load() >= 3 }, 2*time.Second, 5*time.Millisecond)
	cancel()

	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("refresher did not stop after cancellation")
	}

	mu.Lock()
	defer mu.Unlock()
	for _, res := range results {
		assert.NoError(t, res.Err)
	}
}

func TestNewRefresher_DefaultInterval(t *testing.T) {
	r := NewRefresher(&fakeCache{}, 0, 0, zap.NewNop().Sugar())
	assert.Equal(t, DefaultInterval, r.interval)
}
