package renderserver

import (
	"io"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/r9s-ai/render-interceptor/pkg/config"
)

// viewsWatcher reloads the view engine after template files under dir change.
// Bursts of events within debounce collapse into one reload.
type viewsWatcher struct {
	dir       string
	extension string
	debounce  time.Duration

	views   viewEngine
	metrics *renderMetrics
	mu      *sync.Mutex

	fsw  *fsnotify.Watcher
	stop chan struct{}
	done chan struct{}
}

func installViewsAutoReload(cfg *config.Config, views viewEngine, m *renderMetrics, mu *sync.Mutex) (io.Closer, error) {
	if cfg == nil || views == nil || mu == nil || !cfg.Views.AutoReload.Enabled {
		return nil, nil
	}
	dir := strings.TrimSpace(cfg.Views.Dir)
	if dir == "" {
		return nil, nil
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := addWatchRecursive(fsw, dir); err != nil {
		_ = fsw.Close()
		return nil, err
	}
	w := &viewsWatcher{
		dir:       dir,
		extension: cfg.Views.Extension,
		debounce:  time.Duration(cfg.Views.AutoReload.DebounceMs) * time.Millisecond,
		views:     views,
		metrics:   m,
		mu:        mu,
		fsw:       fsw,
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}
	go w.loop()

	log.Printf("views auto-reload enabled: dir=%q debounce_ms=%d", dir, cfg.Views.AutoReload.DebounceMs)
	return w, nil
}

func (w *viewsWatcher) loop() {
	defer close(w.done)
	// pending is nil while no reload is scheduled.
	var pending <-chan time.Time
	timer := time.NewTimer(time.Hour)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-w.stop:
			return
		case <-pending:
			pending = nil
			w.reload()
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			log.Printf("views auto-reload watcher error: %v", err)
		case evt, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.watchNewDir(evt)
			if !shouldTriggerViewsReload(evt, w.extension) {
				continue
			}
			// Reset drops an undelivered tick (Go 1.23 timers).
			timer.Reset(w.debounce)
			pending = timer.C
		}
	}
}

func (w *viewsWatcher) reload() {
	w.mu.Lock()
	defer w.mu.Unlock()
	_ = reloadViews(w.views, w.metrics, w.dir, "auto")
}

// watchNewDir extends the watch to directories created after startup.
func (w *viewsWatcher) watchNewDir(evt fsnotify.Event) {
	if evt.Op&fsnotify.Create == 0 {
		return
	}
	fi, err := os.Stat(evt.Name)
	if err != nil || !fi.IsDir() {
		return
	}
	if err := addWatchRecursive(w.fsw, evt.Name); err != nil {
		log.Printf("views auto-reload add watch failed: path=%q err=%v", evt.Name, err)
	}
}

func (w *viewsWatcher) Close() error {
	close(w.stop)
	err := w.fsw.Close()
	<-w.done
	return err
}

// shouldTriggerViewsReload accepts changes to template files and to
// directories (no extension), skipping dot files and editor leftovers.
func shouldTriggerViewsReload(evt fsnotify.Event, extension string) bool {
	if strings.TrimSpace(evt.Name) == "" {
		return false
	}
	if evt.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
		return false
	}
	base := filepath.Base(evt.Name)
	if strings.HasPrefix(base, ".") || strings.HasSuffix(base, "~") {
		return false
	}
	ext := filepath.Ext(base)
	return ext == "" || ext == extension
}

func addWatchRecursive(fsw *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		return fsw.Add(path)
	})
}
