package query

import (
	"strings"
	"testing"

	"pgregory.net/rapid"
)

func mustTables(t testing.TB) *Tables {
	t.Helper()
	tables, err := DefaultTables()
	if err != nil {
		t.Fatalf("DefaultTables: %v", err)
	}
	return tables
}

func TestNormalize(t *testing.T) {
	n := mustTables(t).Normalizer

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"slang greeting and company", "yo whats up with ur products", "hello what's up with NovaTech products"},
		{"bare sup", "sup", "what's up"},
		{"short token inside word", "defeat", "defeat"},
		{"short token alone", "def interested", "definitely interested"},
		{"definition untouched", "the definition of crm", "the definition of crm"},
		{"company phrase", "tell me about the company", "tell me about NovaTech"},
		{"collapses whitespace", "  HEY   there  ", "hello there"},
		{"contraction", "whos the cto", "who is the cto"},
		{"longest phrase first", "whats up", "what's up"},
		{"ampersand standalone", "sales & marketing", "sales and marketing"},
		{"ampersand embedded", "r&d budget", "r&d budget"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := n.Normalize(tt.input); got != tt.want {
				t.Fatalf("Normalize(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestNewNormalizerRejectsBadTables(t *testing.T) {
	tests := []struct {
		name string
		subs []Substitution
	}{
		{"empty slang", []Substitution{{Slang: " ", Canonical: "x"}}},
		{"duplicate slang", []Substitution{{Slang: "u", Canonical: "you"}, {Slang: "U", Canonical: "you"}}},
		{"chained entries", []Substitution{{Slang: "thx", Canonical: "ty"}, {Slang: "ty", Canonical: "thank you"}}},
		{"self feeding", []Substitution{{Slang: "info", Canonical: "more info"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewNormalizer(tt.subs); err == nil {
				t.Fatalf("expected error for %v", tt.subs)
			}
		})
	}
}

func TestNormalizeIdempotentProperty(t *testing.T) {
	n := mustTables(t).Normalizer

	vocab := []string{
		"yo", "sup", "whats", "up", "ur", "u", "r", "n", "def", "defeat", "products",
		"the", "company", "nova", "tech", "novatech", "NovaTech", "hey", "info", "thx",
		"ty", "who", "whos", "is", "ceo", "&", "r&d", "what's", "your", "services", "im",
		"i'm", "gonna", "business", "firm", "pricing", "?", "hello", "idk",
	}

	rapid.Check(t, func(rt *rapid.T) {
		words := rapid.SliceOfN(rapid.SampledFrom(vocab), 0, 12).Draw(rt, "words")
		input := strings.Join(words, " ")

		once := n.Normalize(input)
		twice := n.Normalize(once)
		if once != twice {
			rt.Fatalf("not idempotent: %q -> %q -> %q", input, once, twice)
		}
	})
}

func TestNormalizeArbitraryTextIdempotent(t *testing.T) {
	n := mustTables(t).Normalizer

	rapid.Check(t, func(rt *rapid.T) {
		input := rapid.StringMatching(`[a-z' &?]{0,40}`).Draw(rt, "input")
		once := n.Normalize(input)
		if twice := n.Normalize(once); twice != once {
			rt.Fatalf("not idempotent: %q -> %q -> %q", input, once, twice)
		}
	})
}
