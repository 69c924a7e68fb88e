package ratesource

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/net/html"
	"golang.org/x/time/rate"

	"dualledger/internal/money"
)

// maxPageBytes caps how much of a quote page is parsed.
const maxPageBytes = 2 << 20

// HTMLSource scrapes the rate from the text of one element on a public quote
// page. The selector is a single compound selector: a tag name, an #id, one or
// more .classes, or a combination such as "div.sell-price".
type HTMLSource struct {
	httpClient *http.Client
	url        string
	selector   selector
	limiter    *rate.Limiter
}

// NewHTMLSource creates a scraping source. It fails when the selector cannot
// be parsed.
func NewHTMLSource(httpClient *http.Client, url, sel string, minInterval time.Duration) (*HTMLSource, error) {
	parsed, err := parseSelector(sel)
	if err != nil {
		return nil, err
	}
	return &HTMLSource{
		httpClient: httpClient,
		url:        url,
		selector:   parsed,
		limiter:    newLimiter(minInterval),
	}, nil
}

// Name returns the source's display name.
func (s *HTMLSource) Name() string { return "HTML " + s.url }

// FetchCurrentRate downloads the page and parses the first matching element.
func (s *HTMLSource) FetchCurrentRate(ctx context.Context) (money.Money, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return money.Zero, fmt.Errorf("waiting for rate limiter: %w", err)
	}

	req, err := newRequest(ctx, s.url)
	if err != nil {
		return money.Zero, err
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return money.Zero, fmt.Errorf("rate page request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return money.Zero, fmt.Errorf("rate page: unexpected status %d", resp.StatusCode)
	}

	doc, err := html.Parse(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return money.Zero, fmt.Errorf("parsing rate page: %w", err)
	}
	node := findFirst(doc, s.selector)
	if node == nil {
		return money.Zero, fmt.Errorf("no element matches %q", s.selector.raw)
	}

	text := textContent(node)
	value, ok := money.Parse(normalizeNumber(text))
	if !ok || !value.IsPositive() {
		return money.Zero, fmt.Errorf("element %q does not hold a rate: %q", s.selector.raw, strings.TrimSpace(text))
	}
	return value, nil
}

type selector struct {
	raw     string
	tag     string
	id      string
	classes []string
}

func parseSelector(raw string) (selector, error) {
	sel := selector{raw: strings.TrimSpace(raw)}
	if sel.raw == "" || strings.ContainsAny(sel.raw, " >+~[:") {
		return sel, fmt.Errorf("unsupported selector %q", raw)
	}

	rest := sel.raw
	if i := strings.IndexAny(rest, "#."); i != 0 {
		if i < 0 {
			i = len(rest)
		}
		sel.tag = strings.ToLower(rest[:i])
		rest = rest[i:]
	}
	for rest != "" {
		marker := rest[0]
		rest = rest[1:]
		end := strings.IndexAny(rest, "#.")
		if end < 0 {
			end = len(rest)
		}
		name := rest[:end]
		rest = rest[end:]
		if name == "" {
			return sel, fmt.Errorf("unsupported selector %q", raw)
		}
		if marker == '#' {
			sel.id = name
		} else {
			sel.classes = append(sel.classes, name)
		}
	}
	return sel, nil
}

func (s selector) matches(n *html.Node) bool {
	if n.Type != html.ElementNode {
		return false
	}
	if s.tag != "" && n.Data != s.tag {
		return false
	}
	var id, class string
	for _, a := range n.Attr {
		switch a.Key {
		case "id":
			id = a.Val
		case "class":
			class = a.Val
		}
	}
	if s.id != "" && id != s.id {
		return false
	}
	have := strings.Fields(class)
	for _, want := range s.classes {
		found := false
		for _, c := range have {
			if c == want {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func findFirst(n *html.Node, sel selector) *html.Node {
	if sel.matches(n) {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findFirst(c, sel); found != nil {
			return found
		}
	}
	return nil
}

func textContent(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}

// normalizeNumber turns a displayed price such as "$ 1.234,50" or "1,234.50"
// into a plain decimal string. With both separators present the last one is
// the decimal point. With a single kind, a lone separator followed by exactly
// three digits groups thousands; otherwise it is the decimal point.
func normalizeNumber(text string) string {
	var b strings.Builder
	for _, r := range text {
		if (r >= '0' && r <= '9') || r == ',' || r == '.' || r == '-' {
			b.WriteRune(r)
		}
	}
	s := b.String()

	last := strings.LastIndexAny(s, ",.")
	if last < 0 {
		return s
	}
	intPart, frac := s[:last], s[last+1:]
	strip := strings.NewReplacer(",", "", ".", "")

	mixed := strings.Contains(s, ",") && strings.Contains(s, ".")
	repeated := strings.Count(s, s[last:last+1]) > 1
	if !mixed && (repeated || len(frac) == 3) {
		return strip.Replace(s)
	}
	return strip.Replace(intPart) + "." + frac
}
