package knowledge

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

var testSpecs = []CategorySpec{
	{Name: "company_info", File: "company_info.json", Required: true},
	{Name: "products", File: "products.json", Required: true},
	{Name: "leadership", File: "leadership.json", Required: true},
	{Name: "news", File: "news.json"},
}

func writeFile(t *testing.T, dir, name, body string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

// touch moves a file's mtime forward so staleness checks notice the change
// regardless of filesystem timestamp resolution.
func touch(t *testing.T, dir, name string, offset time.Duration) {
	t.Helper()
	ts := time.Now().Add(offset)
	if err := os.Chtimes(filepath.Join(dir, name), ts, ts); err != nil {
		t.Fatalf("chtimes %s: %v", name, err)
	}
}

func seedDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	writeFile(t, dir, "company_info.json", `{
		"name": "NovaTech Solutions",
		"mission": "Connected software for growing companies",
		"employees": 420,
		"contact": {"email": "hello@novatech.example", "phone": "+1 512 555 0142"},
		"financials": {"revenue": "$68M ARR"}
	}`)
	writeFile(t, dir, "products.json", `{
		"products": [
			{"name": "NovaCRM", "features": ["Lead management", "Forecasting", "Email sequences", "Mobile app"]},
			{"name": "NovaHR", "features": ["Onboarding", "Reviews"]},
			{"name": "NovaDesk", "features": ["Shared inbox"]},
			{"name": "NovaAnalytics", "features": ["Dashboards"]}
		],
		"pricing_policies": {"free_trial": "14 days"}
	}`)
	writeFile(t, dir, "leadership.json", `{
		"leadership": {
			"ceo": {"name": "Maya Chen", "title": "Chief Executive Officer (CEO)"},
			"cto": {"name": "Daniel Okafor", "title": "Chief Technology Officer"}
		},
		"departments": {"engineering": 170}
	}`)
	return dir
}

func newTestLoader(t *testing.T, dir string) *Loader {
	t.Helper()
	l, err := NewLoader(dir, Options{Categories: testSpecs})
	if err != nil {
		t.Fatalf("NewLoader: %v", err)
	}
	return l
}
