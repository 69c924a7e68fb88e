package ratesource

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"dualledger/internal/models"
)

var pair = models.CurrencyPair{Primary: "ARS", Secondary: "USD"}

// newChartServer serves v8 chart responses. Tickers missing from rates get a
// chart error payload.
func newChartServer(rates map[string]string) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ticker := strings.TrimPrefix(r.URL.Path, "/")
		w.Header().Set("Content-Type", "application/json")

		price, ok := rates[ticker]
		if !ok {
			_, _ = w.Write([]byte(`{"chart":{"result":null,"error":{"code":"Not Found","description":"No data found"}}}`))
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"chart": map[string]any{
				"result": []any{map[string]any{"meta": map[string]any{
					"symbol":             ticker,
					"currency":           "ARS",
					"regularMarketPrice": json.Number(price),
				}}},
				"error": nil,
			},
		})
	}))
}

func newTestYahoo(server *httptest.Server) *YahooSource {
	src := NewYahooSource(server.Client(), pair, time.Millisecond)
	src.baseURL = server.URL
	return src
}

func TestYahooSource_FetchCurrentRate(t *testing.T) {
	server := newChartServer(map[string]string{"USDARS=X": "1187.25"})
	defer server.Close()

	src := newTestYahoo(server)
	if src.Ticker() != "USDARS=X" {
		t.Fatalf("ticker = %q, want USDARS=X", src.Ticker())
	}

	got, err := src.FetchCurrentRate(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.StorageString() != "1187.2500" {
		t.Errorf("rate = %s, want 1187.2500", got.StorageString())
	}
}

func TestYahooSource_Errors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		wantErr string
	}{
		{
			name: "chart error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`{"chart":{"result":null,"error":{"code":"Not Found","description":"No data found"}}}`))
			},
			wantErr: "forex chart error",
		},
		{
			name: "http status",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusTooManyRequests)
			},
			wantErr: "unexpected status 429",
		},
		{
			name: "malformed json",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`{not json`))
			},
			wantErr: "decoding forex response",
		},
		{
			name: "empty result",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`{"chart":{"result":[],"error":null}}`))
			},
			wantErr: "no forex results",
		},
		{
			name: "zero price",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`{"chart":{"result":[{"meta":{"regularMarketPrice":0}}],"error":null}}`))
			},
			wantErr: "invalid forex rate",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(tt.handler)
			defer server.Close()

			_, err := newTestYahoo(server).FetchCurrentRate(context.Background())
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %q, want it to contain %q", err.Error(), tt.wantErr)
			}
		})
	}
}

func TestYahooSource_ContextCancelled(t *testing.T) {
	server := newChartServer(map[string]string{"USDARS=X": "1000"})
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := newTestYahoo(server).FetchCurrentRate(ctx); err == nil {
		t.Fatal("expected error for cancelled context")
	}
}

const quotePage = `<!DOCTYPE html>
<html><body>
  <div class="quote buy"><span class="value">$ 1.180,00</span></div>
  <div class="quote sell" id="sell"><span class="value">$ 1.205,50</span></div>
</body></html>`

func newPageServer(body string) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(body))
	}))
}

func TestHTMLSource_FetchCurrentRate(t *testing.T) {
	server := newPageServer(quotePage)
	defer server.Close()

	tests := []struct {
		selector string
		want     string
	}{
		{"#sell", "1205.5000"},
		{"div.quote.sell", "1205.5000"},
		{".buy", "1180.0000"},
		{"span", "1180.0000"},
	}
	for _, tt := range tests {
		t.Run(tt.selector, func(t *testing.T) {
			src, err := NewHTMLSource(server.Client(), server.URL, tt.selector, time.Millisecond)
			if err != nil {
				t.Fatalf("NewHTMLSource: %v", err)
			}
			got, err := src.FetchCurrentRate(context.Background())
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.StorageString() != tt.want {
				t.Errorf("rate = %s, want %s", got.StorageString(), tt.want)
			}
		})
	}
}

func TestHTMLSource_NoMatch(t *testing.T) {
	server := newPageServer(quotePage)
	defer server.Close()

	src, err := NewHTMLSource(server.Client(), server.URL, "#missing", time.Millisecond)
	if err != nil {
		t.Fatalf("NewHTMLSource: %v", err)
	}
	if _, err := src.FetchCurrentRate(context.Background()); err == nil {
		t.Fatal("expected error for missing element")
	}
}

func TestHTMLSource_NotANumber(t *testing.T) {
	server := newPageServer(`<html><body><p id="rate">closed today</p></body></html>`)
	defer server.Close()

	src, err := NewHTMLSource(server.Client(), server.URL, "#rate", time.Millisecond)
	if err != nil {
		t.Fatalf("NewHTMLSource: %v", err)
	}
	if _, err := src.FetchCurrentRate(context.Background()); err == nil {
		t.Fatal("expected error for non-numeric element")
	}
}

func TestParseSelector_Rejects(t *testing.T) {
	for _, sel := range []string{"", "div span", "a > b", "#", "div.", "input[name=x]", "a:hover"} {
		if _, err := parseSelector(sel); err == nil {
			t.Errorf("parseSelector(%q) succeeded, want error", sel)
		}
	}
}

func TestNormalizeNumber(t *testing.T) {
	tests := map[string]string{
		"$ 1.234,50":   "1234.50",
		"1,234.50":     "1234.50",
		"1.234":        "1234",
		"1,234,567":    "1234567",
		"1234,5":       "1234.5",
		"0.8921":       "0.8921",
		"  US$ 987.6 ": "987.6",
		"1200":         "1200",
	}
	for in, want := range tests {
		if got := normalizeNumber(in); got != want {
			t.Errorf("normalizeNumber(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestNew(t *testing.T) {
	src, err := New(Options{Kind: "yahoo", Pair: pair})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if src.Name() != "Yahoo Finance" {
		t.Errorf("name = %q", src.Name())
	}

	if _, err := New(Options{Kind: "html", URL: "http://example.com"}); err == nil {
		t.Error("expected error for html source without selector")
	}
	if _, err := New(Options{Kind: "carrier-pigeon"}); err == nil {
		t.Error("expected error for unknown kind")
	}
}
