// Package ratesource implements the rate sources consumed by the exchange
// rate cache: a Yahoo Finance chart lookup and a generic HTML page scraper.
// Both are throttled so a burst of cache misses cannot hammer the upstream.
package ratesource

import (
	"context"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"time"

	"golang.org/x/net/publicsuffix"
	"golang.org/x/time/rate"

	"dualledger/internal/models"
	"dualledger/internal/ratecache"
)

const (
	// Kinds accepted by New.
	KindYahoo = "yahoo"
	KindHTML  = "html"

	userAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7)"

	// DefaultMinInterval is the minimum spacing between upstream requests.
	DefaultMinInterval = 5 * time.Second
)

// Options configures New.
type Options struct {
	Kind        string
	Pair        models.CurrencyPair
	URL         string
	Selector    string
	MinInterval time.Duration
	HTTPClient  *http.Client
}

// New builds the source named by opts.Kind.
func New(opts Options) (ratecache.Source, error) {
	if opts.HTTPClient == nil {
		opts.HTTPClient = NewHTTPClient(30 * time.Second)
	}
	if opts.MinInterval <= 0 {
		opts.MinInterval = DefaultMinInterval
	}

	switch strings.ToLower(opts.Kind) {
	case "", KindYahoo:
		src := NewYahooSource(opts.HTTPClient, opts.Pair, opts.MinInterval)
		if opts.URL != "" {
			src.baseURL = strings.TrimRight(opts.URL, "/")
		}
		return src, nil
	case KindHTML:
		if opts.URL == "" || opts.Selector == "" {
			return nil, fmt.Errorf("html rate source needs both a URL and a selector")
		}
		return NewHTMLSource(opts.HTTPClient, opts.URL, opts.Selector, opts.MinInterval)
	default:
		return nil, fmt.Errorf("unknown rate source %q", opts.Kind)
	}
}

// NewHTTPClient returns a client with a cookie jar, which some quote pages
// require before they answer.
func NewHTTPClient(timeout time.Duration) *http.Client {
	client := &http.Client{Timeout: timeout}
	if jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List}); err == nil {
		client.Jar = jar
	}
	return client
}

func newLimiter(minInterval time.Duration) *rate.Limiter {
	return rate.NewLimiter(rate.Every(minInterval), 1)
}

func newRequest(ctx context.Context, url string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("building rate request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	return req, nil
}
