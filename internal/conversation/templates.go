package conversation

import (
	"regexp"
	"strings"

	"github.com/wolfman30/novatech-assistant/internal/knowledge"
)

// TemplateEntry is a question answered without the model.
type TemplateEntry struct {
	Name     string
	Pattern  *regexp.Regexp
	Keywords []string // Alternative matching keywords, two must match
	Response string
	// Category and Field name a knowledge value appended to Response.
	// The entry is skipped when that value is missing.
	Category string
	Field    string
}

var defaultTemplates = []TemplateEntry{
	{
		Name:     "creator",
		Pattern:  regexp.MustCompile(`(?i)\bwho\s+(created|made|built|developed|designed|programmed|trained)\s+(you|this)\b`),
		Response: "I'm the NovaTech AI assistant, built by the NovaTech Solutions engineering team to answer questions about the company, its products, its leadership and its partners.",
	},
	{
		Name:     "capabilities",
		Pattern:  regexp.MustCompile(`(?i)\b(what\s+(can|do)\s+you\s+do|what\s+are\s+you\s+able\s+to\s+do|how\s+can\s+you\s+help)\b`),
		Keywords: []string{"capabilities", "features of you", "help me with"},
		Response: `I can help you with anything about NovaTech Solutions:

- Products: NovaCRM, NovaHR, NovaDesk and NovaAnalytics, including features and pricing
- Leadership: who runs the company and how the teams are organised
- Company: mission, history, values and financial highlights
- Partners: technology partners and the sectors we serve
- Latest: recent news, market data and industry trends when available

What would you like to know?`,
	},
	{
		Name:     "contact",
		Pattern:  regexp.MustCompile(`(?i)^(contact( info(rmation)?| details)?|how (do|can) i (contact|reach|get in touch with) (you|NovaTech|the team)|what is (your|NovaTech's|NovaTech) (phone number|email( address)?|contact information))\??$`),
		Response: "Here's how to reach NovaTech:",
		Category: "company_info",
		Field:    "contact",
	},
}

// Templates answers fixed questions directly from canned text or the
// knowledge base.
type Templates struct {
	entries []TemplateEntry
	source  knowledge.SnapshotSource
}

// NewTemplates uses the built-in entries. source may be nil, in which case
// knowledge-backed entries never match.
func NewTemplates(source knowledge.SnapshotSource) *Templates {
	return &Templates{entries: defaultTemplates, source: source}
}

// Match looks for a template answer. Returns the entry name and text, or
// false if nothing applies.
func (t *Templates) Match(message string) (string, string, bool) {
	if t == nil {
		return "", "", false
	}
	message = strings.TrimSpace(message)
	if message == "" {
		return "", "", false
	}
	lowered := strings.ToLower(message)

	for _, entry := range t.entries {
		if !entry.matches(message, lowered) {
			continue
		}
		if entry.Category == "" {
			return entry.Name, entry.Response, true
		}
		if text, ok := t.render(entry); ok {
			return entry.Name, text, true
		}
	}
	return "", "", false
}

func (e TemplateEntry) matches(message, lowered string) bool {
	if e.Pattern != nil && e.Pattern.MatchString(message) {
		return true
	}
	if len(e.Keywords) == 0 {
		return false
	}
	matchCount := 0
	for _, kw := range e.Keywords {
		if strings.Contains(lowered, kw) {
			matchCount++
		}
	}
	return matchCount >= 2
}

func (t *Templates) render(entry TemplateEntry) (string, bool) {
	if t.source == nil {
		return "", false
	}
	snap := t.source.Current()
	if snap == nil {
		return "", false
	}
	doc, ok := snap.Category(entry.Category)
	if !ok {
		return "", false
	}
	value, ok := doc.Get(entry.Field)
	if !ok || value.IsNull() {
		return "", false
	}
	assembled := knowledge.Assemble([]knowledge.Section{{Name: entry.Field, Title: knowledge.Title(entry.Field), Data: value}}, entry.Name)
	return entry.Response + "\n\n" + assembled.Text, true
}
