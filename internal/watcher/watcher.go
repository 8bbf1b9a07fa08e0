// Package watcher ingests files dropped into watched directories. Events are debounced
// per path and ingested one at a time by a single worker.
package watcher

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/hyperjump/lumina/internal/ingest"
	"github.com/hyperjump/lumina/pkg/utils"
)

const (
	defaultDebounce = 400 * time.Millisecond
	queueSize       = 64
)

// Ingester loads and stores one file.
type Ingester interface {
	IngestFile(ctx context.Context, path string, allowedExts []string) (ingest.IngestReport, error)
}

// Watcher watches directories and ingests created or modified files.
type Watcher struct {
	ingester   Ingester
	extensions []string
	logger     *zap.Logger
	debounce   time.Duration

	mu      sync.Mutex
	initial []string
	roots   *rootSet
	fw      *fsnotify.Watcher
	ctx     context.Context
	pending *debouncer
	queue   chan string
	done    chan struct{}
}

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithLogger sets a logger for watcher events.
func WithLogger(l *zap.Logger) WatcherOption {
	return func(w *Watcher) { w.logger = l }
}

// WithDebounce sets how long a file must stay quiet before it is ingested.
func WithDebounce(d time.Duration) WatcherOption {
	return func(w *Watcher) { w.debounce = d }
}

// NewWatcher creates a watcher that hands files to ingester. roots are the initial
// directories; extensions filter which files are ingested (empty = all).
func NewWatcher(ingester Ingester, roots []string, extensions []string, recursive bool, opts ...WatcherOption) *Watcher {
	w := &Watcher{
		ingester:   ingester,
		extensions: append([]string(nil), extensions...),
		debounce:   defaultDebounce,
		initial:    append([]string(nil), roots...),
		roots:      newRootSet(recursive),
		ctx:        context.Background(),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.logger = utils.OrNop(w.logger)
	w.pending = newDebouncer(w.debounce, w.enqueue)
	return w
}

// Start registers the roots, creating missing ones, and processes events until ctx is
// cancelled or Stop is called. Starting a running watcher is a no-op.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.fw != nil {
		return nil
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	roots := newRootSet(w.roots.recursive)
	for _, root := range w.initial {
		abs, err := filepath.Abs(root)
		if err == nil {
			err = roots.add(fw, abs)
		}
		if err != nil {
			_ = fw.Close()
			return err
		}
	}
	w.fw, w.roots, w.ctx = fw, roots, ctx
	w.queue = make(chan string, queueSize)
	w.done = make(chan struct{})
	w.logger.Debug("watcher started",
		zap.Strings("roots", roots.list()),
		zap.Strings("extensions", w.extensions),
		zap.Bool("recursive", roots.recursive))

	go w.run(ctx, fw, w.done)
	go w.work(w.queue, w.done)
	return nil
}

func (w *Watcher) run(ctx context.Context, fw *fsnotify.Watcher, done chan struct{}) {
	for {
		select {
		case <-ctx.Done():
			w.Stop()
			return
		case <-done:
			return
		case ev, ok := <-fw.Events:
			if !ok {
				return
			}
			w.handleEvent(ev)
		case err, ok := <-fw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watcher error", zap.Error(err))
		}
	}
}

// work ingests queued paths one at a time.
func (w *Watcher) work(queue <-chan string, done chan struct{}) {
	for {
		select {
		case <-done:
			return
		case path := <-queue:
			w.ingestFile(path)
		}
	}
}

func (w *Watcher) enqueue(path string) {
	w.mu.Lock()
	queue, done := w.queue, w.done
	w.mu.Unlock()
	if queue == nil {
		return
	}
	select {
	case queue <- path:
	case <-done:
	}
}

func (w *Watcher) handleEvent(ev fsnotify.Event) {
	w.mu.Lock()
	_, watched := w.roots.rootOf(ev.Name)
	w.mu.Unlock()
	if !watched {
		return
	}
	w.logger.Debug("watcher event", zap.String("op", ev.Op.String()), zap.String("path", ev.Name))

	switch {
	case ev.Has(fsnotify.Create), ev.Has(fsnotify.Write):
		info, err := os.Stat(ev.Name)
		switch {
		case err != nil:
		case info.IsDir():
			if ev.Has(fsnotify.Create) {
				w.handleNewDirectory(ev.Name)
			}
		case w.matchExtension(ev.Name):
			w.pending.schedule(ev.Name)
		}
	case ev.Has(fsnotify.Remove), ev.Has(fsnotify.Rename):
		if w.pending.cancel(ev.Name) {
			w.logger.Debug("pending ingest cancelled", zap.String("path", ev.Name))
		}
		if w.matchExtension(ev.Name) {
			w.logger.Info("watched file removed, its chunks remain until the knowledge base is cleared",
				zap.String("path", ev.Name))
		}
	}
}

// handleNewDirectory watches a directory created under a root and ingests what it holds.
func (w *Watcher) handleNewDirectory(dir string) {
	w.mu.Lock()
	if w.fw == nil || !w.roots.recursive {
		w.mu.Unlock()
		return
	}
	added, err := w.roots.register(w.fw, dir)
	if err != nil {
		w.logger.Warn("failed to watch new directory", zap.String("path", dir), zap.Error(err))
	}
	w.roots.extend(dir, added)
	w.mu.Unlock()
	w.syncDirectory(dir)
}

func (w *Watcher) matchExtension(path string) bool {
	return matchExtension(path, w.extensions)
}

func matchExtension(path string, extensions []string) bool {
	if len(extensions) == 0 {
		return true
	}
	return ingest.ExtensionAllowed(filepath.Ext(path), extensions)
}

func (w *Watcher) ingestFile(path string) {
	if w.ingester == nil {
		return
	}
	w.mu.Lock()
	ctx := w.ctx
	w.mu.Unlock()
	report, err := w.ingester.IngestFile(ctx, path, w.extensions)
	switch {
	case err != nil:
		w.logger.Warn("watch ingest file failed", zap.String("path", path), zap.Error(err))
	case report.Skipped > 0:
		w.logger.Debug("watched file unchanged", zap.String("path", path))
	default:
		w.logger.Info("watched file ingested",
			zap.String("path", path),
			zap.Int("chunks", report.Chunks),
			zap.Int("stored", report.Stored))
	}
}

// syncDirectory ingests every matching file below dir, or directly in it when not recursive.
func (w *Watcher) syncDirectory(dir string) {
	w.mu.Lock()
	recursive := w.roots.recursive
	w.mu.Unlock()
	_ = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != dir && !recursive {
				return filepath.SkipDir
			}
			return nil
		}
		if d.Type().IsRegular() && w.matchExtension(path) {
			w.ingestFile(path)
		}
		return nil
	})
}

// AddDirectory adds a root directory to watch and optionally ingests its existing files
// in the background. It does nothing when the watcher is not running.
func (w *Watcher) AddDirectory(root string, syncExisting bool) error {
	abs, err := filepath.Abs(root)
	if err != nil {
		return err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.fw == nil || w.roots.has(abs) {
		return nil
	}
	if err := w.roots.add(w.fw, abs); err != nil {
		return err
	}
	w.logger.Info("watch directory added", zap.String("path", abs), zap.Bool("sync_existing", syncExisting))
	if syncExisting {
		go w.syncDirectory(abs)
	}
	return nil
}

// RemoveDirectory stops watching root. Chunks already ingested stay in the store.
func (w *Watcher) RemoveDirectory(root string) error {
	abs, err := filepath.Abs(root)
	if err != nil {
		return err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.fw == nil {
		return nil
	}
	if w.roots.remove(w.fw, abs) {
		w.logger.Info("watch directory removed", zap.String("path", abs))
	}
	return nil
}

// Directories returns the watched roots, or the configured ones before Start.
func (w *Watcher) Directories() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.fw == nil {
		return append([]string(nil), w.initial...)
	}
	return w.roots.list()
}

// SyncExistingFiles ingests the matching files already present in every root. Files the
// ingester has seen unchanged are skipped there.
func (w *Watcher) SyncExistingFiles() {
	for _, root := range w.Directories() {
		w.syncDirectory(root)
	}
}

// Stop cancels pending ingests and releases the fsnotify watcher. It is safe to call
// more than once.
func (w *Watcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.fw == nil {
		return
	}
	w.pending.stop()
	close(w.done)
	_ = w.fw.Close()
	w.fw = nil
	w.initial = w.roots.list()
}
