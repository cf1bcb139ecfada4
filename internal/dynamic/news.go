package dynamic

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/wolfman30/novatech-assistant/internal/knowledge"
)

const (
	newsAPIBaseURL  = "https://newsapi.org/v2"
	newsLookback    = 7 * 24 * time.Hour
	newsPageSize    = 20
	maxNewsArticles = 10
)

// newsExclusions filter out namesakes that dominate search results.
var newsExclusions = []string{"vinfast", "vingroup", "ev maker"}

// NewsFetcher reads recent articles from NewsAPI's everything endpoint.
type NewsFetcher struct {
	apiKey string
	query  string
	opts   HTTPOptions
}

func NewNewsFetcher(apiKey, query string, opts HTTPOptions) *NewsFetcher {
	return &NewsFetcher{
		apiKey: apiKey,
		query:  query,
		opts:   opts.withDefaults(newsAPIBaseURL, time.Second),
	}
}

func (f *NewsFetcher) Category() string { return CategoryNews }

type newsResponse struct {
	Status   string `json:"status"`
	Code     string `json:"code"`
	Message  string `json:"message"`
	Articles []struct {
		Title       string `json:"title"`
		Description string `json:"description"`
		URL         string `json:"url"`
		PublishedAt string `json:"publishedAt"`
		Source      struct {
			Name string `json:"name"`
		} `json:"source"`
	} `json:"articles"`
}

// Fetch returns {updated_at, query, articles[]}. Duplicate titles and
// excluded namesakes are dropped and at most ten articles are kept.
func (f *NewsFetcher) Fetch(ctx context.Context) (knowledge.Value, error) {
	if f.apiKey == "" {
		return knowledge.Null(), fmt.Errorf("dynamic: news api key not configured")
	}
	q := url.Values{}
	q.Set("q", f.query)
	q.Set("language", "en")
	q.Set("sortBy", "publishedAt")
	q.Set("pageSize", fmt.Sprint(newsPageSize))
	q.Set("from", f.opts.Now().Add(-newsLookback).UTC().Format("2006-01-02"))
	header := http.Header{"X-Api-Key": []string{f.apiKey}}

	var body newsResponse
	if err := getJSON(ctx, f.opts, "/everything", q, header, &body); err != nil {
		return knowledge.Null(), err
	}
	if body.Status != "ok" {
		return knowledge.Null(), fmt.Errorf("dynamic: newsapi %s: %s", body.Code, body.Message)
	}

	seen := make(map[string]bool)
	var articles []knowledge.Value
	for _, a := range body.Articles {
		key := strings.ToLower(strings.TrimSpace(a.Title))
		if key == "" || seen[key] || excluded(key+" "+strings.ToLower(a.Description)) {
			continue
		}
		seen[key] = true
		articles = append(articles, knowledge.Map(
			knowledge.F("title", knowledge.String(a.Title)),
			knowledge.F("description", knowledge.String(a.Description)),
			knowledge.F("url", knowledge.String(a.URL)),
			knowledge.F("published_at", knowledge.String(a.PublishedAt)),
			knowledge.F("source", knowledge.String(a.Source.Name)),
		))
		if len(articles) == maxNewsArticles {
			break
		}
	}

	return knowledge.Map(
		knowledge.F("updated_at", timestamp(f.opts.Now)),
		knowledge.F("query", knowledge.String(f.query)),
		knowledge.F("articles", knowledge.List(articles...)),
	), nil
}

func excluded(text string) bool {
	for _, word := range newsExclusions {
		if strings.Contains(text, word) {
			return true
		}
	}
	return false
}
