package query

import (
	"fmt"
	"strings"
)

// EntityCategory is a named list of known entity strings.
type EntityCategory struct {
	Name   string   `yaml:"category" json:"category"`
	Values []string `yaml:"values" json:"values"`
}

// EntityExtractor finds known entities mentioned in a query.
type EntityExtractor struct {
	categories []EntityCategory
	lowered    [][]string
}

// NewEntityExtractor keeps categories in table order.
func NewEntityExtractor(categories []EntityCategory) (*EntityExtractor, error) {
	e := &EntityExtractor{}
	seen := make(map[string]bool, len(categories))
	for _, cat := range categories {
		if cat.Name == "" {
			return nil, fmt.Errorf("entities: category without a name")
		}
		if seen[cat.Name] {
			return nil, fmt.Errorf("entities: category %q declared twice", cat.Name)
		}
		seen[cat.Name] = true

		lowered := make([]string, 0, len(cat.Values))
		for _, v := range cat.Values {
			lowered = append(lowered, strings.ToLower(strings.TrimSpace(v)))
		}
		e.categories = append(e.categories, cat)
		e.lowered = append(e.lowered, lowered)
	}
	return e, nil
}

// Extract returns entity category -> entities found in text. Categories with no
// hits are omitted; entities keep table order.
func (e *EntityExtractor) Extract(text string) map[string][]string {
	lowered := strings.ToLower(text)
	found := make(map[string][]string)
	for i, cat := range e.categories {
		for j, value := range e.lowered[i] {
			if value != "" && strings.Contains(lowered, value) {
				found[cat.Name] = append(found[cat.Name], cat.Values[j])
			}
		}
	}
	return found
}

// Categories lists the configured category names in order.
func (e *EntityExtractor) Categories() []string {
	names := make([]string, 0, len(e.categories))
	for _, cat := range e.categories {
		names = append(names, cat.Name)
	}
	return names
}
