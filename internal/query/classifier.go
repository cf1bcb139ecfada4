package query

import (
	"fmt"
	"math"
	"regexp"
	"strings"
)

// Pattern is one regular expression of an intent rule and its specificity weight.
type Pattern struct {
	Expr   string
	Weight float64
	re     *regexp.Regexp
}

// Rule groups the patterns that vote for an intent.
type Rule struct {
	Intent   Intent
	Patterns []Pattern
}

// ClassificationResult is the winning intent and its confidence in [0,1].
type ClassificationResult struct {
	Intent     Intent  `json:"intent"`
	Confidence float64 `json:"confidence"`
}

// IntentScore is the raw per-intent score, exposed for diagnostics.
type IntentScore struct {
	Intent  Intent  `json:"intent"`
	Score   float64 `json:"score"`
	Matches int     `json:"matches"`
}

// ClassifierConfig is the uncompiled form of the classifier tables.
type ClassifierConfig struct {
	Rules           []Rule
	GreetingTokens  []string
	IdentityPhrases []string
	Boosted         []Intent
	Boost           float64
}

// Classifier scores normalized text against an ordered set of intent rules.
// It is immutable after construction.
type Classifier struct {
	rules     []Rule
	greetings map[string]bool
	identity  []string
	boosted   map[Intent]bool
	boost     float64
}

const (
	identityConfidence = 0.8
	weightLengthScale  = 20.0
)

// DefaultWeight derives a pattern's specificity from its length: longer patterns
// name more concrete phrasing and contribute more.
func DefaultWeight(expr string) float64 {
	return math.Min(1.0, float64(len(expr))/weightLengthScale)
}

// NewClassifier compiles every pattern. A pattern that does not compile is a
// configuration error.
func NewClassifier(cfg ClassifierConfig) (*Classifier, error) {
	if len(cfg.Rules) == 0 {
		return nil, fmt.Errorf("classifier: no intent rules")
	}
	c := &Classifier{
		greetings: make(map[string]bool, len(cfg.GreetingTokens)),
		boosted:   make(map[Intent]bool, len(cfg.Boosted)),
		boost:     cfg.Boost,
	}
	if c.boost <= 0 {
		c.boost = 1
	}

	seen := make(map[Intent]bool, len(cfg.Rules))
	for _, rule := range cfg.Rules {
		if _, ok := ParseIntent(string(rule.Intent)); !ok || rule.Intent == IntentUnknown {
			return nil, fmt.Errorf("classifier: unknown intent %q", rule.Intent)
		}
		if seen[rule.Intent] {
			return nil, fmt.Errorf("classifier: intent %q declared twice", rule.Intent)
		}
		seen[rule.Intent] = true
		if len(rule.Patterns) == 0 {
			return nil, fmt.Errorf("classifier: intent %q has no patterns", rule.Intent)
		}

		compiled := Rule{Intent: rule.Intent, Patterns: make([]Pattern, 0, len(rule.Patterns))}
		for _, p := range rule.Patterns {
			re, err := regexp.Compile(p.Expr)
			if err != nil {
				return nil, fmt.Errorf("classifier: intent %q pattern %q: %w", rule.Intent, p.Expr, err)
			}
			weight := p.Weight
			if weight <= 0 {
				weight = DefaultWeight(p.Expr)
			}
			if weight > 1 {
				return nil, fmt.Errorf("classifier: intent %q pattern %q: weight %.2f above 1", rule.Intent, p.Expr, weight)
			}
			compiled.Patterns = append(compiled.Patterns, Pattern{Expr: p.Expr, Weight: weight, re: re})
		}
		c.rules = append(c.rules, compiled)
	}

	for _, token := range cfg.GreetingTokens {
		c.greetings[strings.ToLower(strings.TrimSpace(token))] = true
	}
	for _, phrase := range cfg.IdentityPhrases {
		c.identity = append(c.identity, strings.ToLower(phrase))
	}
	for _, intent := range cfg.Boosted {
		c.boosted[intent] = true
	}
	return c, nil
}

// Classify returns the best intent for normalized text. Equal scores go to the
// intent declared first. The company boost is applied once, to the winner only.
func (c *Classifier) Classify(text string) ClassificationResult {
	lowered := strings.ToLower(strings.TrimSpace(text))

	result := ClassificationResult{Intent: IntentUnknown}
	best := 0.0
	for _, score := range c.score(lowered) {
		if score.Matches > 0 && score.Score > best {
			best = score.Score
			result.Intent = score.Intent
		}
	}
	if result.Intent != IntentUnknown {
		confidence := best
		if c.boosted[result.Intent] {
			confidence *= c.boost
		}
		result.Confidence = math.Min(1.0, confidence)
	}

	if c.greetings[strings.Trim(lowered, "!.?, ")] {
		result = ClassificationResult{Intent: IntentGreeting, Confidence: 1.0}
	}
	for _, phrase := range c.identity {
		if strings.Contains(lowered, phrase) {
			result = ClassificationResult{Intent: IntentGreeting, Confidence: identityConfidence}
			break
		}
	}
	return result
}

// Scores returns the raw score of every intent in declaration order.
func (c *Classifier) Scores(text string) []IntentScore {
	return c.score(strings.ToLower(strings.TrimSpace(text)))
}

func (c *Classifier) score(lowered string) []IntentScore {
	scores := make([]IntentScore, 0, len(c.rules))
	for _, rule := range c.rules {
		var specificity float64
		var matches int
		for _, p := range rule.Patterns {
			if p.re.MatchString(lowered) {
				matches++
				specificity += p.Weight
			}
		}
		n := float64(len(rule.Patterns))
		scores = append(scores, IntentScore{
			Intent:  rule.Intent,
			Score:   specificity/n + float64(matches)/n,
			Matches: matches,
		})
	}
	return scores
}
