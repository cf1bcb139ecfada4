package query

import (
	_ "embed"
	"fmt"
	"os"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed tables.yaml
var defaultTablesYAML []byte

type rawPattern struct {
	Pattern string  `yaml:"pattern"`
	Weight  float64 `yaml:"weight"`
}

type rawRule struct {
	Intent   string       `yaml:"intent"`
	Patterns []rawPattern `yaml:"patterns"`
}

type rawTables struct {
	Normalization   []Substitution      `yaml:"normalization"`
	GreetingTokens  []string            `yaml:"greeting_tokens"`
	IdentityPhrases []string            `yaml:"identity_phrases"`
	BoostedIntents  []string            `yaml:"boosted_intents"`
	Boost           float64             `yaml:"boost"`
	Intents         []rawRule           `yaml:"intents"`
	Categories      map[string]string   `yaml:"categories"`
	CompanyQueries  []string            `yaml:"company_queries"`
	Entities        []EntityCategory    `yaml:"entities"`
	StopWords       []string            `yaml:"stop_words"`
	Suggestions     map[string][]string `yaml:"suggestions"`
}

// Tables is the compiled, immutable set of query-understanding tables.
type Tables struct {
	Normalizer *Normalizer
	Classifier *Classifier
	Entities   *EntityExtractor
	Keywords   *KeywordExtractor
	Suggester  *Suggester

	categories     map[Intent]string
	companyQueries map[Intent]bool
}

// CategoryFor maps an intent onto the knowledge category it should search.
// An empty string means every category.
func (t *Tables) CategoryFor(intent Intent) string {
	return t.categories[intent]
}

// IsCompanyQuery reports whether intent may take the advanced route.
func (t *Tables) IsCompanyQuery(intent Intent) bool {
	return t.companyQueries[intent]
}

// LoadTables parses and compiles a YAML table document.
func LoadTables(data []byte) (*Tables, error) {
	var raw rawTables
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing query tables: %w", err)
	}

	normalizer, err := NewNormalizer(raw.Normalization)
	if err != nil {
		return nil, err
	}

	cfg := ClassifierConfig{
		GreetingTokens:  raw.GreetingTokens,
		IdentityPhrases: raw.IdentityPhrases,
		Boost:           raw.Boost,
	}
	for _, name := range raw.BoostedIntents {
		intent, err := parseTableIntent(name, "boosted_intents")
		if err != nil {
			return nil, err
		}
		cfg.Boosted = append(cfg.Boosted, intent)
	}
	for _, rr := range raw.Intents {
		intent, err := parseTableIntent(rr.Intent, "intents")
		if err != nil {
			return nil, err
		}
		rule := Rule{Intent: intent}
		for _, p := range rr.Patterns {
			rule.Patterns = append(rule.Patterns, Pattern{Expr: p.Pattern, Weight: p.Weight})
		}
		cfg.Rules = append(cfg.Rules, rule)
	}
	classifier, err := NewClassifier(cfg)
	if err != nil {
		return nil, err
	}

	entities, err := NewEntityExtractor(raw.Entities)
	if err != nil {
		return nil, err
	}

	t := &Tables{
		Normalizer:     normalizer,
		Classifier:     classifier,
		Entities:       entities,
		Keywords:       NewKeywordExtractor(raw.StopWords),
		categories:     make(map[Intent]string, len(raw.Categories)),
		companyQueries: make(map[Intent]bool, len(raw.CompanyQueries)),
	}
	for name, category := range raw.Categories {
		intent, err := parseTableIntent(name, "categories")
		if err != nil {
			return nil, err
		}
		t.categories[intent] = category
	}
	for _, name := range raw.CompanyQueries {
		intent, err := parseTableIntent(name, "company_queries")
		if err != nil {
			return nil, err
		}
		t.companyQueries[intent] = true
	}
	suggestions := make(map[Intent][]string, len(raw.Suggestions))
	for name, list := range raw.Suggestions {
		intent, err := parseTableIntent(name, "suggestions")
		if err != nil {
			return nil, err
		}
		suggestions[intent] = list
	}
	t.Suggester = NewSuggester(suggestions)
	return t, nil
}

// LoadTablesFile reads an override table document from disk.
func LoadTablesFile(path string) (*Tables, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading query tables: %w", err)
	}
	return LoadTables(data)
}

var (
	defaultTables     *Tables
	defaultTablesOnce sync.Once
	defaultTablesErr  error
)

// DefaultTables compiles the embedded tables once and returns the shared result.
func DefaultTables() (*Tables, error) {
	defaultTablesOnce.Do(func() {
		defaultTables, defaultTablesErr = LoadTables(defaultTablesYAML)
	})
	return defaultTables, defaultTablesErr
}

func parseTableIntent(name, section string) (Intent, error) {
	intent, ok := ParseIntent(name)
	if !ok {
		return "", fmt.Errorf("query tables: %s: unknown intent %q", section, name)
	}
	return intent, nil
}
