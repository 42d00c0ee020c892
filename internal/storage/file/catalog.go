package file

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/go-faster/errors"
	"go.uber.org/zap"

	"github.com/xenking/unseelie-shop/internal/domain/catalog"
)

const defaultDebounce = 200 * time.Millisecond

type loadedCatalog struct {
	catalog *catalog.Catalog
	raw     []byte
}

// CatalogWatcher keeps the catalog document in memory and reloads it when
// the file changes. An invalid revision is logged and the previous one kept.
type CatalogWatcher struct {
	path     string
	lg       *zap.Logger
	debounce time.Duration
	current  atomic.Pointer[loadedCatalog]
}

// NewCatalogWatcher loads path once. The initial load must succeed.
func NewCatalogWatcher(path string, lg *zap.Logger) (*CatalogWatcher, error) {
	if lg == nil {
		lg = zap.NewNop()
	}
	w := &CatalogWatcher{
		path:     path,
		lg:       lg,
		debounce: defaultDebounce,
	}
	if err := w.Reload(); err != nil {
		return nil, err
	}
	return w, nil
}

// Reload reads and decodes the file, replacing the current document on
// success.
func (w *CatalogWatcher) Reload() error {
	raw, err := os.ReadFile(w.path)
	if err != nil {
		return errors.Wrap(err, "read catalog")
	}
	c, err := catalog.Decode(bytes.NewReader(raw))
	if err != nil {
		return err
	}
	w.current.Store(&loadedCatalog{catalog: c, raw: raw})
	return nil
}

// Catalog returns the current decoded document.
func (w *CatalogWatcher) Catalog() *catalog.Catalog {
	if cur := w.current.Load(); cur != nil {
		return cur.catalog
	}
	return nil
}

// Raw returns the current document bytes as read from disk.
func (w *CatalogWatcher) Raw() []byte {
	if cur := w.current.Load(); cur != nil {
		return cur.raw
	}
	return nil
}

// Run watches the catalog until ctx is done. The parent directory is watched
// so editors that save by rename are picked up.
func (w *CatalogWatcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(err, "create watcher")
	}
	defer func() { _ = fw.Close() }()

	if err := fw.Add(filepath.Dir(w.path)); err != nil {
		return errors.Wrap(err, "watch catalog dir")
	}
	target := filepath.Clean(w.path)

	var (
		timer *time.Timer
		fire  <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			fire = timer.C
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.lg.Warn("Catalog watcher error", zap.Error(err))
		case <-fire:
			fire = nil
			if err := w.Reload(); err != nil {
				w.lg.Warn("Catalog reload failed, keeping previous", zap.Error(err))
				continue
			}
			w.lg.Info("Catalog reloaded", zap.Int("products", len(w.Catalog().Products)))
		}
	}
}
