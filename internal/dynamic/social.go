package dynamic

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode"

	"github.com/wolfman30/novatech-assistant/internal/knowledge"
)

const (
	redditBaseURL  = "https://www.reddit.com"
	socialTopPosts = 5
	userAgent      = "NovaTech-Assistant/1.0"
)

var (
	positiveWords = map[string]bool{
		"love": true, "great": true, "excellent": true, "amazing": true, "awesome": true,
		"good": true, "best": true, "recommend": true, "happy": true, "fast": true,
		"reliable": true, "easy": true, "helpful": true, "impressive": true, "growth": true,
	}
	negativeWords = map[string]bool{
		"hate": true, "bad": true, "terrible": true, "awful": true, "worst": true,
		"slow": true, "broken": true, "bug": true, "buggy": true, "outage": true,
		"expensive": true, "disappointed": true, "problem": true, "issue": true, "layoffs": true,
	}
)

// SocialFetcher searches Reddit and scores sentiment with a keyword lexicon.
type SocialFetcher struct {
	query string
	opts  HTTPOptions
}

func NewSocialFetcher(query string, opts HTTPOptions) *SocialFetcher {
	return &SocialFetcher{
		query: query,
		opts:  opts.withDefaults(redditBaseURL, 2*time.Second),
	}
}

func (f *SocialFetcher) Category() string { return CategorySentiment }

type redditListing struct {
	Data struct {
		Children []struct {
			Data struct {
				Title       string `json:"title"`
				SelfText    string `json:"selftext"`
				Score       int    `json:"score"`
				NumComments int    `json:"num_comments"`
				Subreddit   string `json:"subreddit"`
			} `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

// Fetch returns post totals for the week's hot results plus a lexicon based
// sentiment label.
func (f *SocialFetcher) Fetch(ctx context.Context) (knowledge.Value, error) {
	if strings.TrimSpace(f.query) == "" {
		return knowledge.Null(), fmt.Errorf("dynamic: social query not configured")
	}
	q := url.Values{}
	q.Set("q", f.query)
	q.Set("t", "week")
	q.Set("sort", "hot")
	header := http.Header{"User-Agent": []string{userAgent}}

	var listing redditListing
	if err := getJSON(ctx, f.opts, "/search.json", q, header, &listing); err != nil {
		return knowledge.Null(), err
	}

	children := listing.Data.Children
	if len(children) > socialTopPosts {
		children = children[:socialTopPosts]
	}
	var (
		totalScore, totalComments, lexicon int
		posts                              []knowledge.Value
	)
	for _, c := range children {
		totalScore += c.Data.Score
		totalComments += c.Data.NumComments
		lexicon += LexiconScore(c.Data.Title + " " + c.Data.SelfText)
		posts = append(posts, knowledge.Map(
			knowledge.F("title", knowledge.String(c.Data.Title)),
			knowledge.F("subreddit", knowledge.String(c.Data.Subreddit)),
			knowledge.F("score", knowledge.Number(float64(c.Data.Score))),
		))
	}
	average := 0.0
	if len(children) > 0 {
		average = float64(totalScore) / float64(len(children))
	}

	return knowledge.Map(
		knowledge.F("updated_at", timestamp(f.opts.Now)),
		knowledge.F("query", knowledge.String(f.query)),
		knowledge.F("posts_found", knowledge.Number(float64(len(children)))),
		knowledge.F("total_score", knowledge.Number(float64(totalScore))),
		knowledge.F("total_comments", knowledge.Number(float64(totalComments))),
		knowledge.F("average_score", knowledge.Number(average)),
		knowledge.F("lexicon_score", knowledge.Number(float64(lexicon))),
		knowledge.F("sentiment", knowledge.String(SentimentLabel(lexicon))),
		knowledge.F("top_posts", knowledge.List(posts...)),
	), nil
}

// LexiconScore counts positive minus negative words.
func LexiconScore(text string) int {
	score := 0
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r)
	})
	for _, w := range words {
		switch {
		case positiveWords[w]:
			score++
		case negativeWords[w]:
			score--
		}
	}
	return score
}

// SentimentLabel turns a lexicon score into positive, neutral or negative.
func SentimentLabel(score int) string {
	switch {
	case score > 0:
		return "positive"
	case score < 0:
		return "negative"
	default:
		return "neutral"
	}
}
