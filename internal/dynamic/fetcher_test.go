package dynamic

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

var fixedNow = func() time.Time { return time.Date(2025, 3, 14, 12, 0, 0, 0, time.UTC) }

func testOptions(srv *httptest.Server) HTTPOptions {
	return HTTPOptions{
		BaseURL: srv.URL,
		Client:  srv.Client(),
		Limiter: rate.NewLimiter(rate.Inf, 1),
		Now:     fixedNow,
	}
}

func TestNewsFetcher(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/everything", r.URL.Path)
		assert.Equal(t, "secret", r.Header.Get("X-Api-Key"))
		assert.Equal(t, "NovaTech", r.URL.Query().Get("q"))
		assert.Equal(t, "2025-03-07", r.URL.Query().Get("from"))
		_ = json.NewEncoder(w).Encode(map[string]any{
			"status": "ok",
			"articles": []map[string]any{
				{"title": "NovaTech ships NovaCRM 5", "description": "CRM update", "url": "https://news.example/1", "publishedAt": "2025-03-13T09:00:00Z", "source": map[string]string{"name": "TechWire"}},
				{"title": "novatech ships novacrm 5 ", "description": "duplicate", "url": "https://news.example/2"},
				{"title": "Novatech EV maker expands", "description": "VinFast rival", "url": "https://news.example/3"},
				{"title": "NovaTech partners with Snowflake", "description": "data", "url": "https://news.example/4", "source": map[string]string{"name": "Daily"}},
			},
		})
	}))
	defer srv.Close()

	f := NewNewsFetcher("secret", "NovaTech", testOptions(srv))
	assert.Equal(t, CategoryNews, f.Category())

	v, err := f.Fetch(context.Background())
	require.NoError(t, err)

	articles, ok := v.Get("articles")
	require.True(t, ok)
	require.Equal(t, 2, articles.Len())
	first := articles.Items()[0]
	title, _ := first.Get("title")
	source, _ := first.Get("source")
	assert.Equal(t, "NovaTech ships NovaCRM 5", title.Str())
	assert.Equal(t, "TechWire", source.Str())

	updated, _ := v.Get("updated_at")
	assert.Equal(t, "2025-03-14T12:00:00Z", updated.Str())
}

func TestNewsFetcherErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Api-Key") == "bad" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"status": "error", "code": "rateLimited", "message": "slow down"})
	}))
	defer srv.Close()

	_, err := NewNewsFetcher("", "NovaTech", testOptions(srv)).Fetch(context.Background())
	assert.ErrorContains(t, err, "not configured")

	_, err = NewNewsFetcher("bad", "NovaTech", testOptions(srv)).Fetch(context.Background())
	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusUnauthorized, statusErr.StatusCode)

	_, err = NewNewsFetcher("good", "NovaTech", testOptions(srv)).Fetch(context.Background())
	assert.ErrorContains(t, err, "rateLimited")
}

func TestMarketFetcher(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/quote", r.URL.Path)
		assert.Equal(t, "tok", r.URL.Query().Get("token"))
		switch r.URL.Query().Get("symbol") {
		case "NVDA":
			_, _ = w.Write([]byte(`{"c":120.5,"d":1.5,"dp":1.26,"h":121,"l":118,"o":119,"pc":119}`))
		case "ZERO":
			_, _ = w.Write([]byte(`{"c":0}`))
		default:
			w.WriteHeader(http.StatusInternalServerError)
		}
	}))
	defer srv.Close()

	v, err := NewMarketFetcher("tok", []string{"NVDA", "ZERO", "FAIL"}, testOptions(srv)).Fetch(context.Background())
	require.NoError(t, err)
	quotes, _ := v.Get("quotes")
	require.Equal(t, 1, quotes.Len())
	price, _ := quotes.Items()[0].Get("price")
	assert.Equal(t, 120.5, price.Num())

	_, err = NewMarketFetcher("tok", []string{"FAIL"}, testOptions(srv)).Fetch(context.Background())
	assert.ErrorContains(t, err, "FAIL")

	_, err = NewMarketFetcher("", []string{"NVDA"}, testOptions(srv)).Fetch(context.Background())
	assert.Error(t, err)
}

func TestSocialFetcher(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search.json", r.URL.Path)
		assert.Equal(t, userAgent, r.Header.Get("User-Agent"))
		_, _ = w.Write([]byte(`{"data":{"children":[
			{"data":{"title":"I love NovaCRM, great support","score":40,"num_comments":12,"subreddit":"sales"}},
			{"data":{"title":"NovaHR onboarding is easy","score":10,"num_comments":3,"subreddit":"hr"}},
			{"data":{"title":"NovaDesk outage today","selftext":"slow and broken","score":-2,"num_comments":8,"subreddit":"sysadmin"}}
		]}}`))
	}))
	defer srv.Close()

	v, err := NewSocialFetcher("NovaTech", testOptions(srv)).Fetch(context.Background())
	require.NoError(t, err)

	get := func(key string) float64 {
		field, ok := v.Get(key)
		require.True(t, ok, key)
		return field.Num()
	}
	assert.Equal(t, 3.0, get("posts_found"))
	assert.Equal(t, 48.0, get("total_score"))
	assert.Equal(t, 23.0, get("total_comments"))
	assert.Equal(t, 16.0, get("average_score"))
	assert.Equal(t, 0.0, get("lexicon_score"))
	sentiment, _ := v.Get("sentiment")
	assert.Equal(t, "neutral", sentiment.Str())
}

func TestLexicon(t *testing.T) {
	assert.Equal(t, 2, LexiconScore("Great product, I LOVE it"))
	assert.Equal(t, -2, LexiconScore("buggy and slow"))
	assert.Equal(t, "positive", SentimentLabel(1))
	assert.Equal(t, "negative", SentimentLabel(-3))
	assert.Equal(t, "neutral", SentimentLabel(0))
}

func TestFetcherHonoursLimiter(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_, _ = w.Write([]byte(`{"data":{"children":[]}}`))
	}))
	defer srv.Close()

	opts := testOptions(srv)
	opts.Limiter = rate.NewLimiter(rate.Every(time.Hour), 1)
	f := NewSocialFetcher("NovaTech", opts)

	_, err := f.Fetch(context.Background())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = f.Fetch(ctx)
	assert.ErrorContains(t, err, "rate limiter")
	assert.Equal(t, int32(1), hits.Load())
}

func TestResolveCategory(t *testing.T) {
	for alias, want := range map[string]string{
		"news": CategoryNews, "market": CategoryMarket, "trends": CategoryTrends,
		"social": CategorySentiment, "market_data": CategoryMarket,
	} {
		got, ok := ResolveCategory(alias)
		assert.True(t, ok, alias)
		assert.Equal(t, want, got)
	}
	_, ok := ResolveCategory("weather")
	assert.False(t, ok)
}
