package query

import (
	"fmt"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"
)

// maxNormalizePasses bounds the fixpoint loop in Normalize. Tables that pass the
// convergence check settle after two passes.
const maxNormalizePasses = 4

// Substitution is a single slang -> canonical mapping.
type Substitution struct {
	Slang     string `yaml:"slang" json:"slang"`
	Canonical string `yaml:"canonical" json:"canonical"`
}

// Normalizer rewrites casual phrasing into the canonical vocabulary used by the
// classifier and retriever. It is immutable and safe for concurrent use.
type Normalizer struct {
	subs []Substitution
}

// NewNormalizer validates and orders a substitution table. Entries are applied
// longest slang first (ties by slang) so "whats up" is rewritten before "whats".
// Every canonical value must already be normal; a table where one entry feeds
// another is rejected.
func NewNormalizer(subs []Substitution) (*Normalizer, error) {
	seen := make(map[string]bool, len(subs))
	ordered := make([]Substitution, 0, len(subs))
	for i, sub := range subs {
		slang := strings.Join(strings.Fields(strings.ToLower(sub.Slang)), " ")
		if slang == "" {
			return nil, fmt.Errorf("normalization entry %d: empty slang", i)
		}
		if seen[slang] {
			return nil, fmt.Errorf("normalization entry %d: duplicate slang %q", i, slang)
		}
		seen[slang] = true
		ordered = append(ordered, Substitution{Slang: slang, Canonical: strings.TrimSpace(sub.Canonical)})
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		if len(ordered[i].Slang) != len(ordered[j].Slang) {
			return len(ordered[i].Slang) > len(ordered[j].Slang)
		}
		return ordered[i].Slang < ordered[j].Slang
	})

	n := &Normalizer{subs: ordered}
	for _, sub := range ordered {
		if got := n.pass(sub.Canonical); got != sub.Canonical {
			return nil, fmt.Errorf("normalization entry %q: canonical %q is not normal (normalizes to %q)", sub.Slang, sub.Canonical, got)
		}
	}
	return n, nil
}

// Normalize lower-cases text, collapses whitespace and applies the table until
// the result stops changing.
func (n *Normalizer) Normalize(text string) string {
	out := n.pass(text)
	for i := 1; i < maxNormalizePasses; i++ {
		next := n.pass(out)
		if next == out {
			break
		}
		out = next
	}
	return out
}

// Len reports the number of substitutions in the table.
func (n *Normalizer) Len() int { return len(n.subs) }

func (n *Normalizer) pass(text string) string {
	out := collapseSpace(strings.ToLower(text))
	for _, sub := range n.subs {
		if !strings.Contains(out, sub.Slang) {
			continue
		}
		out = replaceBounded(out, sub.Slang, sub.Canonical)
	}
	return collapseSpace(out)
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// replaceBounded replaces occurrences of old that are not embedded in a longer
// word, so "def" never matches inside "defeat".
func replaceBounded(s, old, replacement string) string {
	var b strings.Builder
	i := 0
	for i < len(s) {
		j := strings.Index(s[i:], old)
		if j < 0 {
			break
		}
		start := i + j
		end := start + len(old)
		if atBoundary(s, start, end) {
			b.WriteString(s[i:start])
			b.WriteString(replacement)
			i = end
			continue
		}
		_, size := utf8.DecodeRuneInString(s[start:])
		b.WriteString(s[i : start+size])
		i = start + size
	}
	b.WriteString(s[i:])
	return b.String()
}

func atBoundary(s string, start, end int) bool {
	if start > 0 {
		if r, _ := utf8.DecodeLastRuneInString(s[:start]); isWordRune(r) {
			return false
		}
	}
	if end < len(s) {
		if r, _ := utf8.DecodeRuneInString(s[end:]); isWordRune(r) {
			return false
		}
	}
	return true
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '\'' || r == '&'
}
