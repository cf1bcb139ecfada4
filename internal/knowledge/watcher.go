package knowledge

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher reloads the knowledge base when category files change on disk.
type Watcher struct {
	loader   *Loader
	watcher  *fsnotify.Watcher
	debounce time.Duration
	logger   *slog.Logger
	files    map[string]bool
}

// NewWatcher starts watching the loader's directory. Call Run to process events.
func NewWatcher(loader *Loader, debounce time.Duration, logger *slog.Logger) (*Watcher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("knowledge: creating file watcher: %w", err)
	}
	if err := fw.Add(loader.Dir()); err != nil {
		fw.Close()
		return nil, fmt.Errorf("knowledge: watching %s: %w", loader.Dir(), err)
	}

	files := make(map[string]bool)
	for _, spec := range loader.Specs() {
		files[spec.File] = true
	}
	return &Watcher{loader: loader, watcher: fw, debounce: debounce, logger: logger, files: files}, nil
}

// Run processes events until ctx is cancelled. Bursts of events for category
// files collapse into a single RefreshIfStale after the debounce delay.
func (w *Watcher) Run(ctx context.Context) {
	defer w.watcher.Close()

	var timer *time.Timer
	var fire <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !w.relevant(event) {
				continue
			}
			w.logger.Debug("knowledge file changed", "file", event.Name, "op", event.Op.String())
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			fire = timer.C
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("knowledge watcher error", "error", err)
		case <-fire:
			fire = nil
			reloaded, err := w.loader.RefreshIfStale()
			if err != nil {
				w.logger.Error("knowledge reload after file change failed", "error", err)
				continue
			}
			if reloaded {
				w.logger.Info("knowledge base reloaded after file change", "version", w.loader.Snapshot().Version)
			}
		}
	}
}

func (w *Watcher) relevant(event fsnotify.Event) bool {
	base := filepath.Base(event.Name)
	if strings.HasPrefix(base, ".") {
		return false
	}
	if !w.files[base] {
		return false
	}
	return event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename)
}
