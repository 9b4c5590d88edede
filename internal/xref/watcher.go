package xref

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/papapumpkin/vchain/internal/chain"
)

// Change reports that a configured document was written, created or removed.
type Change struct {
	DocType chain.DocType
	File    string // Absolute path
	Removed bool
}

// Watcher monitors the directories of a project's documents using fsnotify.
type Watcher struct {
	Changes <-chan Change // Read-only external channel

	files   map[string]chain.DocType // absolute path -> doc type
	dirs    []string
	changes chan Change // Internal write channel
	stop    chan struct{}
	done    chan struct{}
	watcher *fsnotify.Watcher
}

// NewWatcher creates a watcher for every document configured in p.
func NewWatcher(p *chain.Project) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	files := make(map[string]chain.DocType)
	dirSet := make(map[string]bool)
	for dt, path := range p.DocumentPaths() {
		files[filepath.Clean(path)] = dt
		dirSet[filepath.Dir(path)] = true
	}
	dirs := make([]string, 0, len(dirSet))
	for d := range dirSet {
		dirs = append(dirs, d)
	}
	sort.Strings(dirs)

	ch := make(chan Change, 16)
	return &Watcher{
		Changes: ch,
		files:   files,
		dirs:    dirs,
		changes: ch,
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
		watcher: fw,
	}, nil
}

// Start begins watching. Document directories that do not exist yet are
// skipped; at least one must exist.
func (w *Watcher) Start() error {
	added := 0
	for _, d := range w.dirs {
		if _, err := os.Stat(d); err != nil {
			continue
		}
		if err := w.watcher.Add(d); err != nil {
			return fmt.Errorf("watching %s: %w", d, err)
		}
		added++
	}
	if added == 0 {
		return fmt.Errorf("no document directory exists to watch")
	}

	go w.loop()
	return nil
}

// Stop closes the watcher and channels. It returns even when nobody is
// reading Changes; undelivered events are dropped.
func (w *Watcher) Stop() {
	close(w.stop)
	w.watcher.Close()
	<-w.done // Wait for loop to exit
	close(w.changes)
}

func (w *Watcher) loop() {
	defer close(w.done)

	// Debounce: track last event time per file.
	const debounce = 100 * time.Millisecond
	pending := make(map[string]time.Time)
	ticker := time.NewTicker(debounce)
	defer ticker.Stop()

	for {
		select {
		case <-w.stop:
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				for file := range pending {
					if !w.emit(file) {
						return
					}
				}
				return
			}
			if _, tracked := w.files[filepath.Clean(event.Name)]; !tracked {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) ||
				event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
				pending[filepath.Clean(event.Name)] = time.Now()
			}

		case <-ticker.C:
			now := time.Now()
			for file, t := range pending {
				if now.Sub(t) >= debounce {
					if !w.emit(file) {
						return
					}
					delete(pending, file)
				}
			}

		case _, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			// Watch errors are non-fatal.
		}
	}
}

// emit delivers one change and reports false once Stop has been called.
func (w *Watcher) emit(file string) bool {
	_, err := os.Stat(file)
	select {
	case w.changes <- Change{DocType: w.files[file], File: file, Removed: err != nil}:
		return true
	case <-w.stop:
		return false
	}
}
