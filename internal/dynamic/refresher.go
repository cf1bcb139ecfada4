package dynamic

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/wolfman30/novatech-assistant/internal/knowledge"
	"github.com/wolfman30/novatech-assistant/internal/observability/metrics"
)

// Refresh kinds accepted by Refresh.
const (
	KindNews   = "news"
	KindMarket = "market"
	KindSocial = "social"
	KindAll    = "all"
)

var (
	// ErrUnknownKind is returned for a refresh kind that names no category.
	ErrUnknownKind = errors.New("dynamic: unknown refresh kind")
	// ErrNotConfigured is returned when a named kind has no fetcher, such as
	// trends, or news without an API key.
	ErrNotConfigured = errors.New("dynamic: no fetcher configured")
)

// CategoryWriter persists a refreshed category. *knowledge.Loader satisfies it.
type CategoryWriter interface {
	WriteCategory(name string, doc knowledge.Value) error
}

// Report summarises one refresh run.
type Report struct {
	StartedAt  time.Time         `json:"started_at"`
	FinishedAt time.Time         `json:"finished_at"`
	Updated    []string          `json:"updated"`
	Failed     map[string]string `json:"failed,omitempty"`
}

// Refresher runs the fetchers and publishes their output.
type Refresher struct {
	fetchers map[string]Fetcher
	cache    Cache
	writer   CategoryWriter
	source   knowledge.SnapshotSource
	metrics  *metrics.ChatMetrics
	onUpdate func(Report)
	logger   *slog.Logger
	now      func() time.Time

	mu   sync.Mutex
	last Report
}

// RefresherOptions wires the refresher. Cache, Writer and Source are
// optional. OnUpdate runs after any refresh that updated a category.
type RefresherOptions struct {
	Cache    Cache
	Writer   CategoryWriter
	Source   knowledge.SnapshotSource
	Metrics  *metrics.ChatMetrics
	OnUpdate func(Report)
	Logger   *slog.Logger
	Now      func() time.Time
}

func NewRefresher(fetchers []Fetcher, opts RefresherOptions) *Refresher {
	r := &Refresher{
		fetchers: make(map[string]Fetcher, len(fetchers)),
		cache:    opts.Cache,
		writer:   opts.Writer,
		source:   opts.Source,
		metrics:  opts.Metrics,
		onUpdate: opts.OnUpdate,
		logger:   opts.Logger,
		now:      opts.Now,
	}
	for _, f := range fetchers {
		r.fetchers[f.Category()] = f
	}
	if r.cache == nil {
		r.cache = NewMemoryCache(DefaultCacheTTL, opts.Now)
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}
	if r.now == nil {
		r.now = time.Now
	}
	return r
}

// Categories lists the categories that have a fetcher.
func (r *Refresher) Categories() []string {
	out := make([]string, 0, len(r.fetchers))
	for c := range r.fetchers {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

// LastReport returns the most recent refresh report.
func (r *Refresher) LastReport() Report {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.last
}

func (r *Refresher) resolve(kinds []string) ([]Fetcher, error) {
	if len(kinds) == 0 {
		kinds = []string{KindAll}
	}
	seen := make(map[string]bool)
	var out []Fetcher
	add := func(category string) {
		if f, ok := r.fetchers[category]; ok && !seen[category] {
			seen[category] = true
			out = append(out, f)
		}
	}
	for _, kind := range kinds {
		if kind == KindAll || kind == "" {
			for _, c := range r.Categories() {
				add(c)
			}
			continue
		}
		category, ok := ResolveCategory(kind)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownKind, kind)
		}
		if _, ok := r.fetchers[category]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrNotConfigured, kind)
		}
		add(category)
	}
	return out, nil
}

// Refresh runs the requested fetchers concurrently. Each success is cached and
// written to the knowledge base. A failed category keeps its previous data;
// the failures are listed in the report and joined into the returned error.
func (r *Refresher) Refresh(ctx context.Context, kinds ...string) (Report, error) {
	fetchers, err := r.resolve(kinds)
	if err != nil {
		return Report{}, err
	}

	report := Report{StartedAt: r.now(), Failed: make(map[string]string)}
	var (
		mu   sync.Mutex
		errs []error
	)
	g, gctx := errgroup.WithContext(ctx)
	for _, f := range fetchers {
		g.Go(func() error {
			category := f.Category()
			err := r.refreshOne(gctx, f)
			r.metrics.ObserveRefresh(category, err)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				report.Failed[category] = err.Error()
				errs = append(errs, fmt.Errorf("%s: %w", category, err))
				r.logger.Warn("dynamic refresh failed", "category", category, "error", err)
				return nil
			}
			report.Updated = append(report.Updated, category)
			return nil
		})
	}
	_ = g.Wait()

	sort.Strings(report.Updated)
	report.FinishedAt = r.now()
	if len(report.Failed) == 0 {
		report.Failed = nil
	}

	r.mu.Lock()
	r.last = report
	r.mu.Unlock()

	r.logger.Info("dynamic refresh finished",
		"updated", report.Updated,
		"failed", len(errs),
		"duration_ms", report.FinishedAt.Sub(report.StartedAt).Milliseconds(),
	)
	if r.onUpdate != nil && len(report.Updated) > 0 {
		r.onUpdate(report)
	}
	return report, errors.Join(errs...)
}

func (r *Refresher) refreshOne(ctx context.Context, f Fetcher) error {
	v, err := f.Fetch(ctx)
	if err != nil {
		return err
	}
	if err := r.cache.Set(ctx, f.Category(), v); err != nil {
		r.logger.Warn("dynamic cache write failed", "category", f.Category(), "error", err)
	}
	if r.writer != nil {
		if err := r.writer.WriteCategory(f.Category(), v); err != nil {
			return fmt.Errorf("write knowledge: %w", err)
		}
	}
	return nil
}

// Run refreshes immediately and then on every tick until ctx is cancelled.
func (r *Refresher) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if _, err := r.Refresh(ctx, KindAll); err != nil && ctx.Err() == nil {
			r.logger.Warn("scheduled refresh incomplete", "error", err)
		}
		select {
		case <-ctx.Done():
			r.logger.Info("dynamic refresher stopped")
			return
		case <-ticker.C:
		}
	}
}

// Latest returns the freshest copy of a category: the cache first, then the
// published knowledge snapshot.
func (r *Refresher) Latest(ctx context.Context, category string) (knowledge.Value, error) {
	if resolved, ok := ResolveCategory(category); ok {
		category = resolved
	}
	v, ok, err := r.cache.Get(ctx, category)
	if err != nil {
		r.logger.Warn("dynamic cache read failed", "category", category, "error", err)
	}
	if ok {
		return v, nil
	}
	if r.source != nil {
		if snap := r.source.Current(); snap != nil {
			if doc, ok := snap.Category(category); ok && !doc.IsNull() {
				return doc, nil
			}
		}
	}
	return knowledge.Null(), fmt.Errorf("%w: %s", ErrNoData, category)
}
