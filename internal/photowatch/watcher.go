// Package photowatch watches a drop folder and reports image files once they
// have finished being written.
package photowatch

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rentloop/listr/internal/logger"
	"github.com/rentloop/listr/internal/photo"
)

// DefaultSettle is how long a file must stay unchanged before it is reported.
const DefaultSettle = 300 * time.Millisecond

var imageExts = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".webp": true,
	".heic": true,
}

// IsImage reports whether name looks like a photo the wizard accepts.
// Hidden and temporary files are skipped.
func IsImage(name string) bool {
	base := filepath.Base(name)
	if strings.HasPrefix(base, ".") || strings.HasSuffix(base, "~") {
		return false
	}
	return imageExts[strings.ToLower(filepath.Ext(base))]
}

// Watcher reports batches of settled image files dropped into one folder.
// Subdirectories are not watched.
type Watcher struct {
	watcher *fsnotify.Watcher
	dir     string
	settle  time.Duration
	pending map[string]time.Time // absolute path -> last event time
	batches chan []string
	mu      sync.Mutex
	once    sync.Once
	started bool
	done    chan struct{}
	stopped chan struct{}
}

// New creates a watcher for dir. A zero settle uses DefaultSettle.
func New(dir string, settle time.Duration) (*Watcher, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("drop folder: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("drop folder %s is not a directory", dir)
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	if settle <= 0 {
		settle = DefaultSettle
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{
		watcher: w,
		dir:     abs,
		settle:  settle,
		pending: make(map[string]time.Time),
		batches: make(chan []string, 1),
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
	}, nil
}

// Dir returns the watched folder.
func (w *Watcher) Dir() string {
	return w.dir
}

// Batches delivers settled image paths, sorted by name. The channel is
// closed after Stop.
func (w *Watcher) Batches() <-chan []string {
	return w.batches
}

// Start adds the watch and starts the event loop.
func (w *Watcher) Start() error {
	if err := w.watcher.Add(w.dir); err != nil {
		_ = w.watcher.Close()
		return fmt.Errorf("watching %s: %w", w.dir, err)
	}
	w.started = true
	go w.eventLoop()
	logger.Info("Watching %s for photos", w.dir)
	return nil
}

// Stop shuts down the watcher. Multiple calls are safe.
func (w *Watcher) Stop() error {
	var err error
	w.once.Do(func() {
		close(w.done)
		if w.started {
			<-w.stopped
		}
		err = w.watcher.Close()
	})
	return err
}

func (w *Watcher) eventLoop() {
	defer close(w.stopped)
	defer close(w.batches)

	ticker := time.NewTicker(w.settle / 2)
	defer ticker.Stop()

	for {
		select {
		case <-w.done:
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			logger.Warn("Photo watcher error: %v", err)

		case now := <-ticker.C:
			batch := w.flush(now)
			if len(batch) == 0 {
				continue
			}
			select {
			case w.batches <- batch:
			case <-w.done:
				return
			}
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
		return
	}
	if !IsImage(event.Name) {
		return
	}
	w.mu.Lock()
	w.pending[event.Name] = time.Now()
	w.mu.Unlock()
}

// flush returns the pending files that stayed quiet for the settle time and
// still exist as regular files.
func (w *Watcher) flush(now time.Time) []string {
	w.mu.Lock()
	defer w.mu.Unlock()

	var ready []string
	for path, seen := range w.pending {
		if now.Sub(seen) < w.settle {
			continue
		}
		delete(w.pending, path)
		info, err := os.Stat(path)
		if err != nil || !info.Mode().IsRegular() {
			continue
		}
		ready = append(ready, path)
	}
	sort.Strings(ready)
	return ready
}

// ReadFiles loads paths as photo files named after their base name.
func ReadFiles(paths []string) ([]photo.File, error) {
	files := make([]photo.File, 0, len(paths))
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("cannot read %s: %w", p, err)
		}
		files = append(files, photo.File{Name: filepath.Base(p), Data: data})
	}
	return files, nil
}
