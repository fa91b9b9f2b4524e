package migrate

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"

	"github.com/focusboard/focusboard/internal/board/store"
	"github.com/focusboard/focusboard/internal/logging"
)

const (
	importedDir = "imported"
	failedDir   = "failed"
)

// InboxConfig holds configuration for an InboxWatcher.
type InboxConfig struct {
	// DebounceInterval is how long a file must be quiet before it is
	// imported. Editors and copy tools often write a file in several steps.
	DebounceInterval time.Duration

	// OnImport is called after each file is processed.
	OnImport func(ImportEvent)

	Logger logrus.FieldLogger
}

// DefaultInboxConfig returns sensible defaults.
func DefaultInboxConfig() InboxConfig {
	return InboxConfig{DebounceInterval: 250 * time.Millisecond}
}

// ImportEvent reports the outcome of importing one inbox file.
type ImportEvent struct {
	Path   string
	Result store.ImportResult
	Report Report
	Err    error
}

// InboxWatcher imports snapshot files dropped into a directory. Files that
// import (even partially) move to imported/; unreadable files move to
// failed/. Only .json, .yaml, and .yml files are considered.
type InboxWatcher struct {
	dir    string
	imp    Importer
	config InboxConfig
	logger logrus.FieldLogger

	watcher       *fsnotify.Watcher
	changeQueue   map[string]time.Time
	changeQueueMu sync.Mutex

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewInboxWatcher creates a watcher for dir that imports into imp.
func NewInboxWatcher(dir string, imp Importer, config InboxConfig) (*InboxWatcher, error) {
	if dir == "" {
		return nil, fmt.Errorf("inbox directory cannot be empty")
	}
	if imp == nil {
		return nil, fmt.Errorf("importer cannot be nil")
	}
	if config.DebounceInterval <= 0 {
		config.DebounceInterval = DefaultInboxConfig().DebounceInterval
	}
	return &InboxWatcher{
		dir:         filepath.Clean(dir),
		imp:         imp,
		config:      config,
		logger:      logging.Component(config.Logger, "inbox").WithField("dir", dir),
		changeQueue: make(map[string]time.Time),
	}, nil
}

// Dir returns the watched directory.
func (w *InboxWatcher) Dir() string { return w.dir }

// Start creates the inbox if needed, queues any files already in it, and
// begins watching. It returns once the watch is established.
func (w *InboxWatcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.cancel != nil {
		return fmt.Errorf("inbox watcher already running")
	}

	if err := os.MkdirAll(w.dir, 0o750); err != nil {
		return fmt.Errorf("failed to create inbox: %w", err)
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := watcher.Add(w.dir); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("failed to watch inbox: %w", err)
	}
	w.watcher = watcher

	entries, err := os.ReadDir(w.dir)
	if err != nil {
		_ = watcher.Close()
		return fmt.Errorf("failed to list inbox: %w", err)
	}
	for _, e := range entries {
		if !e.IsDir() && importable(e.Name()) {
			w.queueChange(filepath.Join(w.dir, e.Name()))
		}
	}

	ctx, w.cancel = context.WithCancel(ctx)
	w.wg.Add(2)
	go w.watchFileEvents(ctx)
	go w.processChangeQueue(ctx)

	w.logger.Info("watching inbox")
	return nil
}

// Stop ends watching and waits for an in-progress import to finish.
func (w *InboxWatcher) Stop() error {
	w.mu.Lock()
	cancel := w.cancel
	w.cancel = nil
	w.mu.Unlock()
	if cancel == nil {
		return nil
	}

	cancel()
	err := w.watcher.Close()
	w.wg.Wait()
	if err != nil {
		return fmt.Errorf("failed to close watcher: %w", err)
	}
	return nil
}

func importable(name string) bool {
	if len(name) > 0 && name[0] == '.' {
		return false
	}
	switch filepath.Ext(name) {
	case ".json", ".yaml", ".yml":
		return true
	}
	return false
}

// watchFileEvents monitors filesystem events and queues changes.
func (w *InboxWatcher) watchFileEvents(ctx context.Context) {
	defer w.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
				continue
			}
			if filepath.Dir(event.Name) != w.dir || !importable(filepath.Base(event.Name)) {
				continue
			}
			w.queueChange(event.Name)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.WithError(err).Warn("watcher error")
		}
	}
}

// queueChange records the latest event time for path.
func (w *InboxWatcher) queueChange(path string) {
	w.changeQueueMu.Lock()
	defer w.changeQueueMu.Unlock()
	w.changeQueue[path] = time.Now()
}

// processChangeQueue imports files that have been quiet for a full
// debounce interval.
func (w *InboxWatcher) processChangeQueue(ctx context.Context) {
	defer w.wg.Done()

	ticker := time.NewTicker(w.config.DebounceInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, path := range w.ready() {
				w.importFile(ctx, path)
			}
		}
	}
}

func (w *InboxWatcher) ready() []string {
	w.changeQueueMu.Lock()
	defer w.changeQueueMu.Unlock()

	now := time.Now()
	var paths []string
	for path, queuedAt := range w.changeQueue {
		if now.Sub(queuedAt) < w.config.DebounceInterval {
			continue
		}
		paths = append(paths, path)
		delete(w.changeQueue, path)
	}
	sort.Strings(paths)
	return paths
}

func (w *InboxWatcher) importFile(ctx context.Context, path string) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return
	}

	res, report, err := ImportFile(ctx, w.imp, path)
	ev := ImportEvent{Path: path, Result: res, Report: report, Err: err}

	log := w.logger.WithField("file", filepath.Base(path))
	dest := importedDir
	switch {
	case err != nil && res == (store.ImportResult{}):
		dest = failedDir
		log.WithError(err).Warn("inbox file rejected")
	case err != nil:
		log.WithError(err).Warn("inbox file partially imported")
	default:
		log.WithFields(logrus.Fields{
			"projects":  res.Projects,
			"tasks":     res.Tasks,
			"documents": res.Documents,
		}).Info("inbox file imported")
	}
	if len(report.Skipped) > 0 {
		log.WithField("skipped", len(report.Skipped)).Warn("some records were skipped")
	}

	if moved, err := w.move(path, dest); err != nil {
		log.WithError(err).Warn("failed to move inbox file")
	} else {
		ev.Path = moved
	}

	if w.config.OnImport != nil {
		w.config.OnImport(ev)
	}
}

// move relocates path into the named subdirectory of the inbox. An existing
// file of the same name gets a timestamp suffix rather than being replaced.
func (w *InboxWatcher) move(path, sub string) (string, error) {
	dir := filepath.Join(w.dir, sub)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", err
	}
	dest := filepath.Join(dir, filepath.Base(path))
	if _, err := os.Stat(dest); err == nil {
		ext := filepath.Ext(dest)
		dest = fmt.Sprintf("%s-%d%s", dest[:len(dest)-len(ext)], time.Now().UnixNano(), ext)
	}
	if err := os.Rename(path, dest); err != nil {
		return "", err
	}
	return dest, nil
}
