package query

import (
	"strings"
	"unicode"
)

// KeywordExtractor pulls content words out of a query for logging and prompt hints.
type KeywordExtractor struct {
	stop map[string]bool
}

// NewKeywordExtractor builds an extractor that drops the given stop words.
func NewKeywordExtractor(stopWords []string) *KeywordExtractor {
	k := &KeywordExtractor{stop: make(map[string]bool, len(stopWords))}
	for _, w := range stopWords {
		k.stop[strings.ToLower(w)] = true
	}
	return k
}

// Keywords returns distinct non-stop words longer than two characters, in order
// of first appearance.
func (k *KeywordExtractor) Keywords(text string) []string {
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	seen := make(map[string]bool, len(words))
	var out []string
	for _, w := range words {
		if len(w) <= 2 || k.stop[w] || seen[w] {
			continue
		}
		seen[w] = true
		out = append(out, w)
	}
	return out
}

// Suggester returns canned follow-up questions per intent.
type Suggester struct {
	byIntent map[Intent][]string
}

const maxSuggestions = 3

// NewSuggester copies the suggestion table.
func NewSuggester(table map[Intent][]string) *Suggester {
	s := &Suggester{byIntent: make(map[Intent][]string, len(table))}
	for intent, list := range table {
		s.byIntent[intent] = append([]string(nil), list...)
	}
	return s
}

// Suggest returns at most three related questions for intent.
func (s *Suggester) Suggest(intent Intent) []string {
	list := s.byIntent[intent]
	if len(list) > maxSuggestions {
		list = list[:maxSuggestions]
	}
	return append([]string(nil), list...)
}
