package knowledge

import (
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"
)

// NoInformation is the context text used when nothing relevant is known.
const NoInformation = "No specific information available for this query."

const (
	listItemLimit     = 3
	resultsPerSection = 5
	defaultCacheSize  = 512
)

// Section is a titled block of knowledge ready for formatting.
type Section struct {
	Name  string
	Title string
	Data  Value
}

// AssembledContext is the prompt-ready rendering of the knowledge behind a query.
type AssembledContext struct {
	Text       string           `json:"context"`
	RawData    map[string]Value `json:"raw_data"`
	Categories []string         `json:"categories"`
	Query      string           `json:"query"`
}

// HasKnowledge reports whether any section carried data.
func (c AssembledContext) HasKnowledge() bool {
	return len(c.Categories) > 0
}

// Assemble formats sections into labelled blocks. Lists show their first three
// items at every depth. With no data the text is NoInformation.
func Assemble(sections []Section, query string) AssembledContext {
	out := AssembledContext{Query: query, RawData: make(map[string]Value)}

	var b strings.Builder
	for _, sec := range sections {
		if sec.Data.IsNull() || (sec.Data.IsComposite() && sec.Data.Len() == 0) {
			continue
		}
		title := sec.Title
		if title == "" {
			title = Title(sec.Name)
		}
		b.WriteString("\n")
		b.WriteString(title)
		b.WriteString(":\n")
		writeSection(&b, sec.Data)

		out.RawData[sec.Name] = sec.Data
		out.Categories = append(out.Categories, sec.Name)
	}

	out.Text = strings.TrimSpace(b.String())
	if out.Text == "" {
		out.Text = NoInformation
	}
	return out
}

func writeSection(b *strings.Builder, data Value) {
	switch data.Kind() {
	case KindMap:
		for _, f := range data.Fields() {
			b.WriteString("- ")
			b.WriteString(f.Key)
			b.WriteString(": ")
			b.WriteString(renderField(f.Value))
			b.WriteString("\n")
		}
	case KindList:
		for i, item := range data.Items() {
			if i == listItemLimit {
				break
			}
			b.WriteString("- ")
			b.WriteString(item.Compact(listItemLimit))
			b.WriteString("\n")
		}
	default:
		b.WriteString("- ")
		b.WriteString(data.Text())
		b.WriteString("\n")
	}
}

func renderField(v Value) string {
	if v.Kind() != KindList {
		return v.Compact(listItemLimit)
	}
	items := v.Items()
	if len(items) > listItemLimit {
		items = items[:listItemLimit]
	}
	parts := make([]string, 0, len(items))
	for _, item := range items {
		parts = append(parts, item.Compact(listItemLimit))
	}
	return strings.Join(parts, ", ")
}

// Title turns a snake_case name into "Snake Case".
func Title(name string) string {
	words := strings.Fields(strings.ReplaceAll(name, "_", " "))
	for i, w := range words {
		r, size := utf8.DecodeRuneInString(w)
		words[i] = string(unicode.ToUpper(r)) + w[size:]
	}
	return strings.Join(words, " ")
}

// ContextSection describes a keyword triggered slice of a category document.
// An empty Fields list takes the whole document.
type ContextSection struct {
	Name     string
	Title    string
	Category string
	Fields   []string
	Keywords []string
}

// DefaultSections are the keyword driven sections used when retrieval finds nothing.
var DefaultSections = []ContextSection{
	{Name: "products", Title: "Products", Category: "products",
		Fields:   []string{"products", "pricing_policies", "technology_stack"},
		Keywords: []string{"product", "nova", "crm", "hr", "desk", "analytics", "pricing"}},
	{Name: "leadership", Title: "Leadership", Category: "leadership",
		Fields:   []string{"leadership", "shareholding", "departments"},
		Keywords: []string{"ceo", "cto", "leadership", "management", "founder", "executive"}},
	{Name: "partners", Title: "Partners", Category: "partners",
		Fields:   []string{"strategic_partners", "sectors_served", "customer_personas"},
		Keywords: []string{"partner", "integration", "ecosystem", "collaboration"}},
	{Name: "company", Title: "Company", Category: "company_info",
		Keywords: []string{"company", "novatech", "mission", "vision", "values"}},
	{Name: "marketing", Title: "Marketing", Category: "marketing",
		Fields:   []string{"marketing_assets", "webinars", "case_studies"},
		Keywords: []string{"marketing", "campaign", "webinar", "case study", "whitepaper"}},
	{Name: "support", Title: "Support", Category: "faq",
		Fields:   []string{"general_faq", "product_specific_faq", "technical_faq"},
		Keywords: []string{"support", "help", "faq", "documentation", "training"}},
	{Name: "financial", Title: "Financial", Category: "company_info",
		Fields:   []string{"financials"},
		Keywords: []string{"revenue", "valuation", "funding", "investor", "financial"}},
	{Name: "contact", Title: "Contact", Category: "company_info",
		Fields:   []string{"contact"},
		Keywords: []string{"contact", "phone", "email", "reach", "get in touch", "call", "message"}},
}

// DefaultFallbackSections are used when no section keyword matches.
var DefaultFallbackSections = []string{"company", "products", "leadership", "partners"}

// CacheStats describes the assembler cache.
type CacheStats struct {
	Entries int    `json:"entries"`
	Hits    uint64 `json:"hits"`
	Misses  uint64 `json:"misses"`
	Version uint64 `json:"version"`
}

// Assembler builds prompt context for queries and caches the result per
// knowledge snapshot version.
type Assembler struct {
	source    SnapshotSource
	sections  []ContextSection
	fallbacks []string
	maxCache  int

	mu      sync.Mutex
	cache   map[string]AssembledContext
	version uint64
	hits    uint64
	misses  uint64
}

// NewAssembler uses DefaultSections over source.
func NewAssembler(source SnapshotSource) *Assembler {
	return NewAssemblerWithSections(source, DefaultSections, DefaultFallbackSections)
}

// NewAssemblerWithSections uses a custom keyword table.
func NewAssemblerWithSections(source SnapshotSource, sections []ContextSection, fallbacks []string) *Assembler {
	return &Assembler{
		source:    source,
		sections:  sections,
		fallbacks: fallbacks,
		maxCache:  defaultCacheSize,
		cache:     make(map[string]AssembledContext),
	}
}

// ContextFor assembles context for a normalized query. Retrieval results are
// grouped by category when present; otherwise keyword sections are used.
func (a *Assembler) ContextFor(query string, results []Result) AssembledContext {
	snap := a.source.Current()
	if snap == nil {
		return Assemble(nil, query)
	}
	key := cacheKey(query, results)

	a.mu.Lock()
	if a.version != snap.Version {
		a.cache = make(map[string]AssembledContext)
		a.version = snap.Version
	}
	if cached, ok := a.cache[key]; ok {
		a.hits++
		a.mu.Unlock()
		return cached
	}
	a.misses++
	a.mu.Unlock()

	var sections []Section
	if len(results) > 0 {
		sections = SectionsFromResults(results)
	} else {
		sections = a.keywordSections(snap, query)
	}
	assembled := Assemble(sections, query)

	a.mu.Lock()
	if a.version == snap.Version {
		if len(a.cache) >= a.maxCache {
			a.cache = make(map[string]AssembledContext)
		}
		a.cache[key] = assembled
	}
	a.mu.Unlock()
	return assembled
}

// SectionsFromResults groups ranked results by category, keeping at most five
// entries per category keyed by their path.
func SectionsFromResults(results []Result) []Section {
	var order []string
	grouped := make(map[string][]Field)
	for _, res := range results {
		if _, seen := grouped[res.Category]; !seen {
			order = append(order, res.Category)
		}
		if len(grouped[res.Category]) >= resultsPerSection {
			continue
		}
		grouped[res.Category] = append(grouped[res.Category], Field{Key: res.Path, Value: res.Value})
	}

	sections := make([]Section, 0, len(order))
	for _, cat := range order {
		sections = append(sections, Section{Name: cat, Title: Title(cat), Data: Map(grouped[cat]...)})
	}
	return sections
}

func (a *Assembler) keywordSections(snap *Snapshot, query string) []Section {
	lowered := strings.ToLower(query)
	var picked []ContextSection
	for _, sec := range a.sections {
		for _, kw := range sec.Keywords {
			if strings.Contains(lowered, kw) {
				picked = append(picked, sec)
				break
			}
		}
	}
	if len(picked) == 0 {
		for _, name := range a.fallbacks {
			for _, sec := range a.sections {
				if sec.Name == name {
					picked = append(picked, sec)
				}
			}
		}
	}

	sections := make([]Section, 0, len(picked))
	for _, sec := range picked {
		if data, ok := extract(snap, sec); ok {
			sections = append(sections, Section{Name: sec.Name, Title: sec.Title, Data: data})
		}
	}
	return sections
}

func extract(snap *Snapshot, sec ContextSection) (Value, bool) {
	doc, ok := snap.Category(sec.Category)
	if !ok {
		return Value{}, false
	}
	if len(sec.Fields) == 0 {
		return doc, true
	}
	if len(sec.Fields) == 1 {
		v, ok := doc.Get(sec.Fields[0])
		return v, ok
	}
	var fields []Field
	for _, name := range sec.Fields {
		if v, ok := doc.Get(name); ok {
			fields = append(fields, Field{Key: name, Value: v})
		}
	}
	if len(fields) == 0 {
		return Value{}, false
	}
	return Map(fields...), true
}

// ClearCache drops every cached context.
func (a *Assembler) ClearCache() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.cache = make(map[string]AssembledContext)
}

// CacheStats reports cache size and hit counts.
func (a *Assembler) CacheStats() CacheStats {
	a.mu.Lock()
	defer a.mu.Unlock()
	return CacheStats{Entries: len(a.cache), Hits: a.hits, Misses: a.misses, Version: a.version}
}

func cacheKey(query string, results []Result) string {
	var b strings.Builder
	b.WriteString(strings.ToLower(strings.TrimSpace(query)))
	for _, res := range results {
		b.WriteByte(0)
		b.WriteString(res.Category)
		b.WriteByte('/')
		b.WriteString(res.Path)
	}
	return b.String()
}
