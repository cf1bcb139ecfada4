// Package dynamic refreshes the externally sourced knowledge categories
// (news, market quotes, social sentiment) and serves the latest copy.
package dynamic

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"

	"github.com/wolfman30/novatech-assistant/internal/knowledge"
)

// Knowledge categories written by the refresher.
const (
	CategoryNews      = "news"
	CategoryMarket    = "market_data"
	CategoryTrends    = "industry_trends"
	CategorySentiment = "social_sentiment"
)

const (
	defaultHTTPTimeout = 10 * time.Second
	maxResponseBytes   = 2 << 20
)

var aliases = map[string]string{
	"news":             CategoryNews,
	"market":           CategoryMarket,
	"market_data":      CategoryMarket,
	"trends":           CategoryTrends,
	"industry_trends":  CategoryTrends,
	"social":           CategorySentiment,
	"social_sentiment": CategorySentiment,
}

// ResolveCategory maps a short name such as "market" to its category.
func ResolveCategory(name string) (string, bool) {
	c, ok := aliases[name]
	return c, ok
}

// Fetcher pulls one category from an external API.
type Fetcher interface {
	Category() string
	Fetch(ctx context.Context) (knowledge.Value, error)
}

// HTTPOptions are shared by the HTTP backed fetchers. Zero values pick
// sensible defaults.
type HTTPOptions struct {
	BaseURL string
	Client  *http.Client
	Limiter *rate.Limiter
	Now     func() time.Time
}

func (o HTTPOptions) withDefaults(baseURL string, every time.Duration) HTTPOptions {
	if o.BaseURL == "" {
		o.BaseURL = baseURL
	}
	if o.Client == nil {
		o.Client = &http.Client{Timeout: defaultHTTPTimeout}
	}
	if o.Limiter == nil {
		o.Limiter = rate.NewLimiter(rate.Every(every), 1)
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

// StatusError is returned when an API answers with a non-2xx status.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("dynamic: %s returned status %d", e.URL, e.StatusCode)
}

// getJSON waits for the limiter, performs a GET and decodes the body into out.
func getJSON(ctx context.Context, o HTTPOptions, path string, query url.Values, header http.Header, out any) error {
	if err := o.Limiter.Wait(ctx); err != nil {
		return fmt.Errorf("dynamic: rate limiter: %w", err)
	}
	endpoint := o.BaseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("dynamic: build request: %w", err)
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := o.Client.Do(req)
	if err != nil {
		return fmt.Errorf("dynamic: request %s: %w", o.BaseURL+path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBytes))
		return &StatusError{URL: o.BaseURL + path, StatusCode: resp.StatusCode}
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(out); err != nil {
		return fmt.Errorf("dynamic: decode %s: %w", o.BaseURL+path, err)
	}
	return nil
}

// ErrNoData is returned by Latest when neither the cache nor the knowledge
// base holds the category.
var ErrNoData = errors.New("dynamic: no data")

func timestamp(now func() time.Time) knowledge.Value {
	return knowledge.String(now().UTC().Format(time.RFC3339))
}
