package filestore

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"csgclient/pkg/observability"
)

const reloadDebounce = 100 * time.Millisecond

// CatalogWatcher reloads the store's catalog when the file changes on disk
type CatalogWatcher struct {
	store   *Store
	watcher *fsnotify.Watcher
	metrics *observability.Collector
	logger  *zap.Logger
}

// NewCatalogWatcher watches the catalog's directory so editor saves done by
// rename are seen as well as in-place writes.
func NewCatalogWatcher(store *Store, metrics *observability.Collector, logger *zap.Logger) (*CatalogWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	if err := watcher.Add(filepath.Dir(store.CatalogPath())); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("failed to watch data directory: %w", err)
	}

	return &CatalogWatcher{
		store:   store,
		watcher: watcher,
		metrics: metrics,
		logger:  logger,
	}, nil
}

// Run processes file events until ctx is cancelled
func (w *CatalogWatcher) Run(ctx context.Context) error {
	defer w.watcher.Close()

	w.logger.Info("Catalog watcher started", zap.String("path", w.store.CatalogPath()))

	var debounce *time.Timer
	defer func() {
		if debounce != nil {
			debounce.Stop()
		}
	}()

	target := filepath.Base(w.store.CatalogPath())
	for {
		select {
		case <-ctx.Done():
			w.logger.Info("Catalog watcher stopped")
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Base(event.Name) != target {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(reloadDebounce, w.reload)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("File watcher error", zap.Error(err))
		}
	}
}

func (w *CatalogWatcher) reload() {
	err := w.store.Reload()
	w.metrics.RecordCatalogReload(err)
	if err != nil {
		w.logger.Error("Invalid catalog, keeping current", zap.Error(err))
	}
}
