package knowledge

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"
)

var (
	// ErrUnknownCategory is returned for category names outside the configured set.
	ErrUnknownCategory = errors.New("knowledge: unknown category")
)

// CategorySpec binds a category name to its JSON file.
type CategorySpec struct {
	Name     string `json:"name"`
	File     string `json:"file"`
	Required bool   `json:"required"`
}

// DefaultCategories is the NovaTech knowledge layout. The first five are
// maintained by hand; the rest are written by the dynamic refresher.
var DefaultCategories = []CategorySpec{
	{Name: "company_info", File: "company_info.json", Required: true},
	{Name: "products", File: "products.json", Required: true},
	{Name: "leadership", File: "leadership.json", Required: true},
	{Name: "partners", File: "partners.json", Required: true},
	{Name: "faq", File: "faq.json", Required: true},
	{Name: "marketing", File: "marketing.json"},
	{Name: "news", File: "news.json"},
	{Name: "market_data", File: "market_data.json"},
	{Name: "industry_trends", File: "industry_trends.json"},
	{Name: "social_sentiment", File: "social_sentiment.json"},
}

// Snapshot is an immutable, fully loaded view of the knowledge base.
type Snapshot struct {
	Version  uint64
	LoadedAt time.Time

	order  []string
	data   map[string]Value
	mtimes map[string]time.Time
	sizes  map[string]int64
}

// Category returns the document of a loaded category.
func (s *Snapshot) Category(name string) (Value, bool) {
	v, ok := s.data[name]
	return v, ok
}

// Categories lists loaded categories in configuration order.
func (s *Snapshot) Categories() []string {
	return append([]string(nil), s.order...)
}

// Options tunes a Loader.
type Options struct {
	Categories []CategorySpec
	// StaleCheckInterval bounds how often Current stats the files. Zero disables
	// the lazy check; reloads then only happen explicitly or via the watcher.
	StaleCheckInterval time.Duration
	Logger             *slog.Logger
	Now                func() time.Time
}

// Loader owns the in-memory knowledge base. Readers get immutable snapshots;
// reloads build a new snapshot off to the side and publish it atomically.
type Loader struct {
	dir        string
	specs      []CategorySpec
	byName     map[string]CategorySpec
	staleEvery time.Duration
	logger     *slog.Logger
	now        func() time.Time

	current   atomic.Pointer[Snapshot]
	version   atomic.Uint64
	lastCheck atomic.Int64

	mu        sync.Mutex
	listeners []func(*Snapshot)
}

// NewLoader loads every category from dir. A missing required file or an
// unparsable document is a configuration error.
func NewLoader(dir string, opts Options) (*Loader, error) {
	specs := opts.Categories
	if len(specs) == 0 {
		specs = DefaultCategories
	}
	l := &Loader{
		dir:        dir,
		specs:      specs,
		byName:     make(map[string]CategorySpec, len(specs)),
		staleEvery: opts.StaleCheckInterval,
		logger:     opts.Logger,
		now:        opts.Now,
	}
	if l.logger == nil {
		l.logger = slog.Default()
	}
	if l.now == nil {
		l.now = time.Now
	}
	for _, spec := range specs {
		if spec.Name == "" || spec.File == "" {
			return nil, fmt.Errorf("knowledge: category spec %+v incomplete", spec)
		}
		l.byName[spec.Name] = spec
	}

	if _, err := l.Reload(); err != nil {
		return nil, err
	}
	return l, nil
}

// Dir is the directory holding the category files.
func (l *Loader) Dir() string { return l.dir }

// Specs returns the configured categories.
func (l *Loader) Specs() []CategorySpec { return append([]CategorySpec(nil), l.specs...) }

// Spec looks up a category by name.
func (l *Loader) Spec(name string) (CategorySpec, bool) {
	spec, ok := l.byName[name]
	return spec, ok
}

// OnReload registers fn to run after every published reload. fn runs under the
// reload lock and must not call back into Reload, RefreshIfStale or Current.
func (l *Loader) OnReload(fn func(*Snapshot)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.listeners = append(l.listeners, fn)
}

// Snapshot returns the published snapshot without touching the filesystem.
func (l *Loader) Snapshot() *Snapshot {
	return l.current.Load()
}

// Current returns the published snapshot, first reloading if a file changed
// since the last check. At most one caller per StaleCheckInterval stats files.
func (l *Loader) Current() *Snapshot {
	if l.staleEvery > 0 {
		now := l.now().UnixNano()
		last := l.lastCheck.Load()
		if now-last >= int64(l.staleEvery) && l.lastCheck.CompareAndSwap(last, now) {
			if _, err := l.RefreshIfStale(); err != nil {
				l.logger.Warn("knowledge refresh failed, serving previous snapshot", "error", err)
			}
		}
	}
	return l.current.Load()
}

// Reload reads every category and publishes a new snapshot. On error the
// previous snapshot stays in place.
func (l *Loader) Reload() (*Snapshot, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.reloadLocked()
}

func (l *Loader) reloadLocked() (*Snapshot, error) {
	snap := &Snapshot{
		data:   make(map[string]Value, len(l.specs)),
		mtimes: make(map[string]time.Time, len(l.specs)),
		sizes:  make(map[string]int64, len(l.specs)),
	}
	for _, spec := range l.specs {
		path := filepath.Join(l.dir, spec.File)
		info, err := os.Stat(path)
		if errors.Is(err, fs.ErrNotExist) {
			if spec.Required {
				return nil, fmt.Errorf("knowledge: required category %q missing at %s", spec.Name, path)
			}
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("knowledge: stat %s: %w", path, err)
		}

		doc, err := readDocument(path)
		if err != nil {
			return nil, fmt.Errorf("knowledge: category %q: %w", spec.Name, err)
		}
		snap.order = append(snap.order, spec.Name)
		snap.data[spec.Name] = doc
		snap.mtimes[spec.Name] = info.ModTime()
		snap.sizes[spec.Name] = info.Size()
	}

	snap.Version = l.version.Add(1)
	snap.LoadedAt = l.now()
	l.current.Store(snap)

	l.logger.Info("knowledge base loaded", "version", snap.Version, "categories", len(snap.order), "dir", l.dir)
	for _, fn := range l.listeners {
		fn(snap)
	}
	return snap, nil
}

// RefreshIfStale reloads when any category file was added, removed or has a
// modification time different from the published snapshot.
func (l *Loader) RefreshIfStale() (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	snap := l.current.Load()
	if snap != nil && !l.staleLocked(snap) {
		return false, nil
	}
	if _, err := l.reloadLocked(); err != nil {
		return false, err
	}
	return true, nil
}

func (l *Loader) staleLocked(snap *Snapshot) bool {
	for _, spec := range l.specs {
		info, err := os.Stat(filepath.Join(l.dir, spec.File))
		recorded, loaded := snap.mtimes[spec.Name]
		switch {
		case err != nil && loaded:
			return true
		case err == nil && !loaded:
			return true
		case err == nil && !info.ModTime().Equal(recorded):
			return true
		}
	}
	return false
}

// WriteCategory atomically replaces a category file and reloads.
func (l *Loader) WriteCategory(name string, doc Value) error {
	spec, ok := l.byName[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownCategory, name)
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("knowledge: encoding %s: %w", name, err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if err := writeFileAtomic(filepath.Join(l.dir, spec.File), data); err != nil {
		return err
	}
	if _, err := l.reloadLocked(); err != nil {
		return err
	}
	return nil
}

// ValidationResult describes one category file on disk.
type ValidationResult struct {
	Category  string    `json:"category"`
	File      string    `json:"file"`
	Required  bool      `json:"required"`
	Exists    bool      `json:"exists"`
	ValidJSON bool      `json:"valid_json"`
	Size      int64     `json:"size"`
	Modified  time.Time `json:"modified,omitempty"`
	Error     string    `json:"error,omitempty"`
}

// OK reports whether the category can be served.
func (r ValidationResult) OK() bool {
	if !r.Exists {
		return !r.Required
	}
	return r.ValidJSON
}

// Validate checks every category file without changing the published snapshot.
func (l *Loader) Validate() []ValidationResult {
	results, _ := ValidateDir(l.dir, l.specs)
	return results
}

// ValidateDir checks the category files in dir without loading them. Nil specs
// means DefaultCategories. It fails only when dir itself cannot be read.
func ValidateDir(dir string, specs []CategorySpec) ([]ValidationResult, error) {
	if len(specs) == 0 {
		specs = DefaultCategories
	}
	if _, err := os.Stat(dir); err != nil {
		return nil, fmt.Errorf("knowledge: %w", err)
	}
	results := make([]ValidationResult, 0, len(specs))
	for _, spec := range specs {
		path := filepath.Join(dir, spec.File)
		res := ValidationResult{Category: spec.Name, File: spec.File, Required: spec.Required}
		info, err := os.Stat(path)
		if err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				res.Error = err.Error()
			}
			results = append(results, res)
			continue
		}
		res.Exists = true
		res.Size = info.Size()
		res.Modified = info.ModTime()
		if _, err := readDocument(path); err != nil {
			res.Error = err.Error()
		} else {
			res.ValidJSON = true
		}
		results = append(results, res)
	}
	return results, nil
}

// CategoryStats summarises one loaded category.
type CategoryStats struct {
	Name     string    `json:"name"`
	Entries  int       `json:"entries"`
	Bytes    int64     `json:"bytes"`
	Modified time.Time `json:"modified"`
}

// Stats summarises the published snapshot.
type Stats struct {
	Dir        string          `json:"dir"`
	Version    uint64          `json:"version"`
	LoadedAt   time.Time       `json:"loaded_at"`
	Categories []CategoryStats `json:"categories"`
	TotalBytes int64           `json:"total_bytes"`
}

// Stats reports what the published snapshot holds.
func (l *Loader) Stats() Stats {
	snap := l.current.Load()
	st := Stats{Dir: l.dir, Version: snap.Version, LoadedAt: snap.LoadedAt}
	for _, name := range snap.order {
		st.Categories = append(st.Categories, CategoryStats{
			Name:     name,
			Entries:  snap.data[name].Len(),
			Bytes:    snap.sizes[name],
			Modified: snap.mtimes[name],
		})
		st.TotalBytes += snap.sizes[name]
	}
	return st
}

func readDocument(path string) (Value, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Value{}, err
	}
	var doc Value
	if err := json.Unmarshal(data, &doc); err != nil {
		return Value{}, fmt.Errorf("parsing %s: %w", filepath.Base(path), err)
	}
	return doc, nil
}

func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+"-*.tmp")
	if err != nil {
		return fmt.Errorf("knowledge: creating temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("knowledge: writing %s: %w", tmp.Name(), err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("knowledge: closing %s: %w", tmp.Name(), err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("knowledge: replacing %s: %w", path, err)
	}
	return nil
}
