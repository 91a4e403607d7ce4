package tuning

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Watcher reloads a config file into a Store when it changes on disk.
// The parent directory is watched so editors that replace the file by rename
// are picked up. A file that fails to load leaves the last good config live.
type Watcher struct {
	mu       sync.Mutex
	watcher  *fsnotify.Watcher
	store    *Store
	path     string
	log      *zap.Logger
	debounce time.Duration
	onReload func(Tuning)

	pending time.Time
	stopCh  chan struct{}
	doneCh  chan struct{}
	running bool
}

type WatcherOption func(*Watcher)

func WithDebounce(d time.Duration) WatcherOption {
	return func(w *Watcher) { w.debounce = d }
}

// OnReload is called after every successful reload with the new config.
func OnReload(fn func(Tuning)) WatcherOption {
	return func(w *Watcher) { w.onReload = fn }
}

func NewWatcher(path string, store *Store, logger *zap.Logger, opts ...WatcherOption) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		_ = fw.Close()
		return nil, err
	}
	w := &Watcher{
		watcher:  fw,
		store:    store,
		path:     abs,
		log:      logger.Named("tuning"),
		debounce: 250 * time.Millisecond,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
	for _, o := range opts {
		o(w)
	}
	return w, nil
}

// Start watches in a goroutine until ctx is done or Stop is called.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.mu.Unlock()

	if err := w.watcher.Add(filepath.Dir(w.path)); err != nil {
		w.mu.Lock()
		w.running = false
		w.mu.Unlock()
		return err
	}
	w.log.Info("watching config", zap.String("path", w.path))
	go w.run(ctx)
	return nil
}

// Stop ends the watch loop and waits for it. Safe to call more than once.
func (w *Watcher) Stop() {
	w.mu.Lock()
	running := w.running
	w.running = false
	w.mu.Unlock()

	if running {
		close(w.stopCh)
		<-w.doneCh
	}
	if err := w.watcher.Close(); err != nil {
		w.log.Warn("close watcher", zap.Error(err))
	}
}

// Done is closed when the watch loop exits.
func (w *Watcher) Done() <-chan struct{} { return w.doneCh }

func (w *Watcher) run(ctx context.Context) {
	defer close(w.doneCh)

	tick := time.NewTicker(w.tickEvery())
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handle(ev)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.log.Warn("watch error", zap.Error(err))
		case now := <-tick.C:
			w.flush(now)
		}
	}
}

func (w *Watcher) tickEvery() time.Duration {
	d := w.debounce / 4
	if d < 10*time.Millisecond {
		d = 10 * time.Millisecond
	}
	return d
}

func (w *Watcher) handle(ev fsnotify.Event) {
	if filepath.Clean(ev.Name) != w.path {
		return
	}
	if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
		return
	}
	w.log.Debug("config event", zap.String("op", ev.Op.String()))
	w.pending = time.Now()
}

func (w *Watcher) flush(now time.Time) {
	if w.pending.IsZero() || now.Sub(w.pending) < w.debounce {
		return
	}
	w.pending = time.Time{}
	w.Reload()
}

// Reload loads the file now. It reports whether the store was updated.
func (w *Watcher) Reload() bool {
	t, err := Load(w.path)
	if err != nil {
		w.log.Warn("config reload failed; keeping previous config", zap.Error(err))
		return false
	}
	prev := w.store.Get().Digest()
	w.store.Set(t)
	next := t.Digest()
	w.log.Info("config reloaded", zap.String("digest", next), zap.Bool("changed", prev != next))
	if w.onReload != nil {
		w.onReload(t)
	}
	return true
}
