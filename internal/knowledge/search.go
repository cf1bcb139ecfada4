package knowledge

import (
	"sort"
	"strconv"
	"strings"
	"unicode"
)

const (
	minWordLen      = 3
	confidenceTopN  = 3
	keyExactScore   = 1.0
	keyPartialScore = 0.7
	valExactScore   = 0.8
	valPartialScore = 0.5
)

// Result is one knowledge entry matched by a query.
type Result struct {
	Category  string  `json:"category"`
	Path      string  `json:"path"`
	Key       string  `json:"key"`
	Value     Value   `json:"value"`
	Relevance float64 `json:"relevance"`
}

// SnapshotSource provides the knowledge snapshot to search.
type SnapshotSource interface {
	Current() *Snapshot
}

// Retriever walks knowledge documents looking for query words.
type Retriever struct {
	source SnapshotSource
}

// NewRetriever builds a retriever over source.
func NewRetriever(source SnapshotSource) *Retriever {
	return &Retriever{source: source}
}

// Search matches the words of text against one category, or every loaded
// category when category is empty. Results are ranked by relevance; confidence
// is the mean relevance of the top three. No match is not an error.
func (r *Retriever) Search(text, category string) ([]Result, float64) {
	snap := r.source.Current()
	if snap == nil {
		return nil, 0
	}
	words := QueryWords(text)
	if len(words) == 0 {
		return nil, 0
	}

	categories := snap.order
	if category != "" {
		categories = []string{category}
	}

	var results []Result
	for _, name := range categories {
		doc, ok := snap.data[name]
		if !ok {
			continue
		}
		results = walk(results, name, "", "", doc, words)
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Relevance > results[j].Relevance
	})
	return results, Confidence(results)
}

// Confidence is the mean relevance of the top three results, or zero.
func Confidence(results []Result) float64 {
	if len(results) == 0 {
		return 0
	}
	top := make([]float64, 0, len(results))
	for _, res := range results {
		top = append(top, res.Relevance)
	}
	sort.Sort(sort.Reverse(sort.Float64Slice(top)))
	if len(top) > confidenceTopN {
		top = top[:confidenceTopN]
	}
	var sum float64
	for _, v := range top {
		sum += v
	}
	return sum / float64(len(top))
}

// QueryWords lower-cases text and keeps whitespace separated words of at least
// three characters, trimmed of surrounding punctuation.
func QueryWords(text string) []string {
	var words []string
	for _, w := range strings.Fields(strings.ToLower(text)) {
		w = strings.TrimFunc(w, func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r)
		})
		if len(w) >= minWordLen {
			words = append(words, w)
		}
	}
	return words
}

func walk(results []Result, category, path, parentKey string, v Value, words []string) []Result {
	switch v.Kind() {
	case KindMap:
		for _, f := range v.Fields() {
			childPath := joinPath(path, f.Key)
			if res, ok := match(category, childPath, f.Key, f.Value, words); ok {
				results = append(results, res)
			}
			if f.Value.IsComposite() {
				results = walk(results, category, childPath, f.Key, f.Value, words)
			}
		}
	case KindList:
		for i, item := range v.Items() {
			childPath := path + "[" + strconv.Itoa(i) + "]"
			if item.IsComposite() {
				results = walk(results, category, childPath, parentKey, item, words)
				continue
			}
			if res, ok := matchValue(category, childPath, parentKey, item, words); ok {
				results = append(results, res)
			}
		}
	}
	return results
}

// match checks one map entry against every word and keeps the best scoring
// hit, so an exact key match always scores 1.0.
func match(category, path, key string, v Value, words []string) (Result, bool) {
	lkey := strings.ToLower(key)
	text := leafText(v)
	best := -1.0
	for _, w := range words {
		if !strings.Contains(lkey, w) && (text == "" || !strings.Contains(text, w)) {
			continue
		}
		if score := Relevance(w, lkey, text); score > best {
			best = score
		}
	}
	if best < 0 {
		return Result{}, false
	}
	return Result{Category: category, Path: path, Key: key, Value: v, Relevance: best}, true
}

// matchValue checks a leaf list item; only its value can match.
func matchValue(category, path, key string, v Value, words []string) (Result, bool) {
	text := leafText(v)
	if text == "" {
		return Result{}, false
	}
	best := -1.0
	for _, w := range words {
		if !strings.Contains(text, w) {
			continue
		}
		if score := Relevance(w, "", text); score > best {
			best = score
		}
	}
	if best < 0 {
		return Result{}, false
	}
	return Result{Category: category, Path: path, Key: key, Value: v, Relevance: best}, true
}

// Relevance scores a word against a lower-cased key and value text: exact key
// 1.0 or partial 0.7, plus exact value 0.8 or partial 0.5, capped at 1.0.
func Relevance(word, key, value string) float64 {
	var score float64
	switch {
	case key == "":
	case word == key:
		score += keyExactScore
	case strings.Contains(key, word):
		score += keyPartialScore
	}
	switch {
	case value == "":
	case word == value:
		score += valExactScore
	case strings.Contains(value, word):
		score += valPartialScore
	}
	if score > 1 {
		score = 1
	}
	return score
}

func leafText(v Value) string {
	switch v.Kind() {
	case KindString, KindNumber:
		return strings.ToLower(v.Text())
	default:
		return ""
	}
}

func joinPath(path, key string) string {
	if path == "" {
		return key
	}
	return path + "." + key
}
