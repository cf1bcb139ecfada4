// Package learning records answered questions and user ratings, groups
// questions into keyword patterns, and surfaces the patterns that users rate
// well as recommendations and FAQ candidates.
package learning

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/wolfman30/novatech-assistant/internal/query"
)

const (
	MinRating = 1
	MaxRating = 5

	DefaultMaxInteractions     = 1000
	DefaultConfidenceThreshold = 0.7

	successRating          = 4
	patternMinFrequency    = 3
	faqMinSuccess          = 0.7
	recommendMinSuccess    = 0.6
	recommendMinSimilarity = 0.3
	maxRecommendations     = 5
	maxPatternResponses    = 5
	statsListLimit         = 10
	recentQueryChars       = 50

	thresholdStep = 0.05
	thresholdMax  = 0.9
	thresholdMin  = 0.3
)

var (
	ErrInvalidRating = errors.New("learning: rating must be between 1 and 5")
	ErrUnknownQuery  = errors.New("learning: no recorded interaction for query")
)

// Interaction is one answered question.
type Interaction struct {
	Query      string    `json:"query"`
	Response   string    `json:"response"`
	Intent     string    `json:"intent"`
	Confidence float64   `json:"confidence"`
	ResponseMS int64     `json:"response_ms"`
	Timestamp  time.Time `json:"timestamp"`
	Rating     int       `json:"rating,omitempty"`
	Feedback   string    `json:"feedback,omitempty"`
}

// Pattern groups questions that share the same sorted keywords.
type Pattern struct {
	Key                 string    `json:"pattern"`
	Frequency           int       `json:"frequency"`
	Successes           int       `json:"successes"`
	SuccessRate         float64   `json:"success_rate"`
	Responses           []string  `json:"common_responses"`
	ConfidenceThreshold float64   `json:"confidence_threshold"`
	LastUpdated         time.Time `json:"last_updated"`
}

// Recommendation is a well rated pattern similar to a new question.
type Recommendation struct {
	Pattern           string  `json:"pattern"`
	Similarity        float64 `json:"similarity"`
	SuccessRate       float64 `json:"success_rate"`
	Frequency         int     `json:"frequency"`
	SuggestedResponse string  `json:"suggested_response,omitempty"`
}

// FAQEntry is a frequent, well rated pattern and its latest answer.
type FAQEntry struct {
	Question    string    `json:"question"`
	Answer      string    `json:"answer"`
	Confidence  float64   `json:"confidence"`
	Frequency   int       `json:"frequency"`
	LastUpdated time.Time `json:"last_updated"`
	Source      string    `json:"source"`
}

// Stats summarises what has been learned.
type Stats struct {
	TotalQueries        int            `json:"total_queries"`
	SuccessfulResponses int            `json:"successful_responses"`
	SuccessRate         float64        `json:"success_rate"`
	PatternsIdentified  int            `json:"patterns_identified"`
	FAQCandidates       int            `json:"faq_entries_generated"`
	TopPatterns         []PatternStats `json:"learning_patterns"`
	RecentQueries       []RecentQuery  `json:"recent_queries"`
}

type PatternStats struct {
	Pattern             string  `json:"pattern"`
	Frequency           int     `json:"frequency"`
	SuccessRate         float64 `json:"success_rate"`
	ConfidenceThreshold float64 `json:"confidence_threshold"`
}

type RecentQuery struct {
	Query     string    `json:"query"`
	Rating    int       `json:"rating,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// State is the persisted form of a Store.
type State struct {
	Interactions []Interaction `json:"interactions"`
	Patterns     []Pattern     `json:"patterns"`
}

// Persister saves and restores learned state.
type Persister interface {
	Load(ctx context.Context) (State, bool, error)
	Save(ctx context.Context, st State) error
}

// Options configures a Store. Keywords builds pattern keys and should be the
// query tables' extractor; Persister is optional.
type Options struct {
	MaxInteractions     int
	ConfidenceThreshold float64
	Keywords            *query.KeywordExtractor
	Persister           Persister
	Now                 func() time.Time
	Logger              *slog.Logger
}

// Store keeps interactions and patterns in memory and mirrors them to the
// persister after every change.
type Store struct {
	mu           sync.Mutex
	interactions []Interaction
	patterns     []*Pattern
	byKey        map[string]*Pattern

	saveMu    sync.Mutex
	persister Persister

	keywords        *query.KeywordExtractor
	maxInteractions int
	threshold       float64
	now             func() time.Time
	logger          *slog.Logger
}

func NewStore(opts Options) *Store {
	s := &Store{
		byKey:           make(map[string]*Pattern),
		persister:       opts.Persister,
		keywords:        opts.Keywords,
		maxInteractions: opts.MaxInteractions,
		threshold:       opts.ConfidenceThreshold,
		now:             opts.Now,
		logger:          opts.Logger,
	}
	if s.keywords == nil {
		s.keywords = query.NewKeywordExtractor(nil)
	}
	if s.maxInteractions <= 0 {
		s.maxInteractions = DefaultMaxInteractions
	}
	if s.threshold <= 0 {
		s.threshold = DefaultConfidenceThreshold
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

// Load restores persisted state, replacing whatever is in memory. It is a
// no-op without a persister or when nothing was saved yet.
func (s *Store) Load(ctx context.Context) error {
	if s.persister == nil {
		return nil
	}
	st, ok, err := s.persister.Load(ctx)
	if err != nil || !ok {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.interactions = st.Interactions
	s.patterns = s.patterns[:0]
	s.byKey = make(map[string]*Pattern, len(st.Patterns))
	for i := range st.Patterns {
		p := st.Patterns[i]
		s.patterns = append(s.patterns, &p)
		s.byKey[p.Key] = &p
	}
	s.logger.Info("learning state restored", "interactions", len(st.Interactions), "patterns", len(st.Patterns))
	return nil
}

// PatternKey is the sorted, de-duplicated keyword set of a question.
func (s *Store) PatternKey(question string) string {
	words := s.keywords.Keywords(question)
	sort.Strings(words)
	return strings.Join(words, " ")
}

// Record stores an answered question and folds it into its pattern.
func (s *Store) Record(ctx context.Context, in Interaction) {
	if strings.TrimSpace(in.Query) == "" {
		return
	}
	if in.Timestamp.IsZero() {
		in.Timestamp = s.now()
	}
	in.Rating = 0
	in.Feedback = ""
	key := s.PatternKey(in.Query)

	s.mu.Lock()
	s.interactions = append(s.interactions, in)
	if over := len(s.interactions) - s.maxInteractions; over > 0 {
		s.interactions = append([]Interaction(nil), s.interactions[over:]...)
	}
	if key != "" {
		p := s.patternLocked(key)
		p.Frequency++
		p.Responses = append(p.Responses, in.Response)
		if n := len(p.Responses); n > maxPatternResponses {
			p.Responses = append([]string(nil), p.Responses[n-maxPatternResponses:]...)
		}
		p.SuccessRate = float64(p.Successes) / float64(p.Frequency)
		p.LastUpdated = in.Timestamp
	}
	s.mu.Unlock()

	s.save(ctx)
}

func (s *Store) patternLocked(key string) *Pattern {
	if p, ok := s.byKey[key]; ok {
		return p
	}
	p := &Pattern{Key: key, ConfidenceThreshold: s.threshold}
	s.patterns = append(s.patterns, p)
	s.byKey[key] = p
	return p
}

// Feedback rates the most recent interaction whose question matches, case
// and surrounding space ignored. Rating it again replaces the earlier rating.
func (s *Store) Feedback(ctx context.Context, question string, rating int, comment string) (Interaction, error) {
	if rating < MinRating || rating > MaxRating {
		return Interaction{}, ErrInvalidRating
	}
	want := strings.ToLower(strings.TrimSpace(question))

	s.mu.Lock()
	idx := -1
	for i := len(s.interactions) - 1; i >= 0; i-- {
		if strings.ToLower(strings.TrimSpace(s.interactions[i].Query)) == want {
			idx = i
			break
		}
	}
	if idx < 0 {
		s.mu.Unlock()
		return Interaction{}, ErrUnknownQuery
	}
	in := &s.interactions[idx]
	wasSuccess := in.Rating >= successRating
	in.Rating = rating
	in.Feedback = strings.TrimSpace(comment)
	isSuccess := rating >= successRating

	if p, ok := s.byKey[s.PatternKey(in.Query)]; ok && p.Frequency > 0 {
		switch {
		case isSuccess && !wasSuccess:
			p.Successes++
		case !isSuccess && wasSuccess:
			p.Successes--
		}
		p.SuccessRate = float64(p.Successes) / float64(p.Frequency)
		switch {
		case p.SuccessRate > 0.8:
			p.ConfidenceThreshold = min(thresholdMax, p.ConfidenceThreshold+thresholdStep)
		case p.SuccessRate < 0.5:
			p.ConfidenceThreshold = max(thresholdMin, p.ConfidenceThreshold-thresholdStep)
		}
		p.LastUpdated = s.now()
	}
	out := *in
	s.mu.Unlock()

	s.logger.Info("feedback recorded", "rating", rating, "intent", out.Intent)
	s.save(ctx)
	return out, nil
}

// Recommendations returns up to five well rated patterns whose keywords
// overlap the question's, most similar first.
func (s *Store) Recommendations(question string) []Recommendation {
	key := s.PatternKey(question)
	out := []Recommendation{}
	if key == "" {
		return out
	}

	s.mu.Lock()
	for _, p := range s.patterns {
		if p.Frequency < patternMinFrequency || p.SuccessRate < recommendMinSuccess {
			continue
		}
		sim := jaccard(key, p.Key)
		if sim <= recommendMinSimilarity {
			continue
		}
		rec := Recommendation{Pattern: p.Key, Similarity: sim, SuccessRate: p.SuccessRate, Frequency: p.Frequency}
		if n := len(p.Responses); n > 0 {
			rec.SuggestedResponse = p.Responses[n-1]
		}
		out = append(out, rec)
	}
	s.mu.Unlock()

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Similarity != out[j].Similarity {
			return out[i].Similarity > out[j].Similarity
		}
		return out[i].SuccessRate > out[j].SuccessRate
	})
	if len(out) > maxRecommendations {
		out = out[:maxRecommendations]
	}
	return out
}

// FAQ lists patterns asked at least three times with a success rate of 0.7 or
// more, most frequent first.
func (s *Store) FAQ() []FAQEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.faqLocked()
}

func (s *Store) faqLocked() []FAQEntry {
	out := []FAQEntry{}
	for _, p := range s.patterns {
		if p.Frequency < patternMinFrequency || p.SuccessRate < faqMinSuccess || len(p.Responses) == 0 {
			continue
		}
		out = append(out, FAQEntry{
			Question:    p.Key,
			Answer:      p.Responses[len(p.Responses)-1],
			Confidence:  p.SuccessRate,
			Frequency:   p.Frequency,
			LastUpdated: p.LastUpdated,
			Source:      "user_learning",
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Frequency > out[j].Frequency })
	return out
}

// Stats reports totals, the ten most frequent patterns and the ten most
// recent questions.
func (s *Store) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := Stats{
		TotalQueries:       len(s.interactions),
		PatternsIdentified: len(s.patterns),
		FAQCandidates:      len(s.faqLocked()),
		TopPatterns:        []PatternStats{},
		RecentQueries:      []RecentQuery{},
	}
	for _, in := range s.interactions {
		if in.Rating >= successRating {
			st.SuccessfulResponses++
		}
	}
	if st.TotalQueries > 0 {
		st.SuccessRate = float64(st.SuccessfulResponses) / float64(st.TotalQueries) * 100
	}

	top := append([]*Pattern(nil), s.patterns...)
	sort.SliceStable(top, func(i, j int) bool { return top[i].Frequency > top[j].Frequency })
	if len(top) > statsListLimit {
		top = top[:statsListLimit]
	}
	for _, p := range top {
		st.TopPatterns = append(st.TopPatterns, PatternStats{
			Pattern:             p.Key,
			Frequency:           p.Frequency,
			SuccessRate:         p.SuccessRate,
			ConfidenceThreshold: p.ConfidenceThreshold,
		})
	}

	recent := s.interactions
	if len(recent) > statsListLimit {
		recent = recent[len(recent)-statsListLimit:]
	}
	for _, in := range recent {
		q := in.Query
		if r := []rune(q); len(r) > recentQueryChars {
			q = string(r[:recentQueryChars]) + "..."
		}
		st.RecentQueries = append(st.RecentQueries, RecentQuery{Query: q, Rating: in.Rating, Timestamp: in.Timestamp})
	}
	return st
}

// Reset forgets everything and persists the empty state.
func (s *Store) Reset(ctx context.Context) {
	s.mu.Lock()
	s.interactions = nil
	s.patterns = nil
	s.byKey = make(map[string]*Pattern)
	s.mu.Unlock()
	s.logger.Info("learning data reset")
	s.save(ctx)
}

// Export returns a copy of the full state.
func (s *Store) Export() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := State{
		Interactions: append([]Interaction{}, s.interactions...),
		Patterns:     make([]Pattern, 0, len(s.patterns)),
	}
	for _, p := range s.patterns {
		cp := *p
		cp.Responses = append([]string(nil), p.Responses...)
		st.Patterns = append(st.Patterns, cp)
	}
	return st
}

// save writes the current state. Saves are serialized so a slower, older
// snapshot never overwrites a newer one.
func (s *Store) save(ctx context.Context) {
	if s.persister == nil {
		return
	}
	s.saveMu.Lock()
	defer s.saveMu.Unlock()
	if err := s.persister.Save(ctx, s.Export()); err != nil {
		s.logger.Warn("failed to persist learning state", "error", err)
	}
}

func jaccard(a, b string) float64 {
	as, bs := strings.Fields(a), strings.Fields(b)
	if len(as) == 0 || len(bs) == 0 {
		return 0
	}
	set := make(map[string]bool, len(as))
	for _, w := range as {
		set[w] = true
	}
	inter := 0
	union := len(set)
	for _, w := range bs {
		if set[w] {
			inter++
			delete(set, w)
			continue
		}
		union++
	}
	return float64(inter) / float64(union)
}
