package ratesource

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"dualledger/internal/models"
	"dualledger/internal/money"
)

const yahooChartURL = "https://query1.finance.yahoo.com/v8/finance/chart"

// yahooChartResponse is the subset of the v8 chart response we read.
type yahooChartResponse struct {
	Chart struct {
		Result []struct {
			Meta struct {
				Symbol             string      `json:"symbol"`
				Currency           string      `json:"currency"`
				RegularMarketPrice json.Number `json:"regularMarketPrice"`
			} `json:"meta"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// YahooSource reads the secondary->primary forex quote from the Yahoo
// Finance chart API, e.g. ticker "USDARS=X".
type YahooSource struct {
	httpClient *http.Client
	baseURL    string // overridable for tests
	ticker     string
	limiter    *rate.Limiter
}

// NewYahooSource creates a Yahoo Finance rate source for pair.
func NewYahooSource(httpClient *http.Client, pair models.CurrencyPair, minInterval time.Duration) *YahooSource {
	return &YahooSource{
		httpClient: httpClient,
		baseURL:    yahooChartURL,
		ticker:     string(pair.Secondary) + string(pair.Primary) + "=X",
		limiter:    newLimiter(minInterval),
	}
}

// Name returns the source's display name.
func (s *YahooSource) Name() string { return "Yahoo Finance" }

// Ticker returns the forex ticker queried.
func (s *YahooSource) Ticker() string { return s.ticker }

// FetchCurrentRate returns the regular market price of the forex ticker.
func (s *YahooSource) FetchCurrentRate(ctx context.Context) (money.Money, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return money.Zero, fmt.Errorf("waiting for rate limiter: %w", err)
	}

	req, err := newRequest(ctx, s.baseURL+"/"+s.ticker+"?interval=1d&range=1d")
	if err != nil {
		return money.Zero, err
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return money.Zero, fmt.Errorf("forex http request for %s: %w", s.ticker, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return money.Zero, fmt.Errorf("forex request for %s: unexpected status %d", s.ticker, resp.StatusCode)
	}

	var chart yahooChartResponse
	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()
	if err := dec.Decode(&chart); err != nil {
		return money.Zero, fmt.Errorf("decoding forex response for %s: %w", s.ticker, err)
	}
	if chart.Chart.Error != nil {
		return money.Zero, fmt.Errorf("forex chart error for %s: %s: %s", s.ticker, chart.Chart.Error.Code, chart.Chart.Error.Description)
	}
	if len(chart.Chart.Result) == 0 {
		return money.Zero, fmt.Errorf("no forex results for %s", s.ticker)
	}

	price, ok := money.Parse(chart.Chart.Result[0].Meta.RegularMarketPrice)
	if !ok || !price.IsPositive() {
		return money.Zero, fmt.Errorf("invalid forex rate for %s: %q", s.ticker, chart.Chart.Result[0].Meta.RegularMarketPrice)
	}
	return price, nil
}
