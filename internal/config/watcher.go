package config

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"mnemo/internal/logging"

	"github.com/fsnotify/fsnotify"
)

// Watcher watches <root>/.mnemo/config.yaml and reloads importance weights
// and logging settings when the file changes. Rapid editor saves are
// debounced.
type Watcher struct {
	mu       sync.Mutex
	watcher  *fsnotify.Watcher
	root     string
	onReload func(*Config)
	lastSeen time.Time
	debounce time.Duration
	stopCh   chan struct{}
	doneCh   chan struct{}
	running  bool
}

// NewWatcher creates a config watcher. onReload is called with the freshly
// loaded config after each change; it runs on the watcher goroutine.
func NewWatcher(root string, onReload func(*Config)) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{
		watcher:  fw,
		root:     root,
		onReload: onReload,
		debounce: 500 * time.Millisecond,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}, nil
}

// Start begins watching. Non-blocking.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.mu.Unlock()

	dir := filepath.Dir(Path(w.root))
	if err := w.watcher.Add(dir); err != nil {
		logging.Get(logging.CategoryBoot).Warn("config watcher: initial watch failed (dir may not exist): %v", err)
	} else {
		logging.BootDebug("config watcher: watching %s", dir)
	}

	go w.run(ctx)
	return nil
}

// Stop stops the watcher and waits for the event loop to exit.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	w.mu.Unlock()

	close(w.stopCh)
	<-w.doneCh
	if err := w.watcher.Close(); err != nil {
		logging.Get(logging.CategoryBoot).Error("config watcher: close: %v", err)
	}
}

func (w *Watcher) run(ctx context.Context) {
	defer close(w.doneCh)

	target := Path(w.root)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != filepath.Clean(target) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			w.mu.Lock()
			recent := time.Since(w.lastSeen) < w.debounce
			w.lastSeen = time.Now()
			w.mu.Unlock()
			if recent {
				continue
			}
			w.reload()
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			logging.Get(logging.CategoryBoot).Error("config watcher: %v", err)
		}
	}
}

func (w *Watcher) reload() {
	cfg, err := Load(w.root)
	if err != nil {
		logging.Get(logging.CategoryBoot).Warn("config watcher: reload rejected: %v", err)
		return
	}
	if err := logging.ReloadConfig(); err != nil {
		logging.Get(logging.CategoryBoot).Warn("config watcher: logging reload: %v", err)
	}
	logging.Boot("config reloaded from %s", Path(w.root))
	if w.onReload != nil {
		w.onReload(cfg)
	}
}
