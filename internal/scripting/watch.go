package scripting

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// debounce collapses editor write bursts on the same file.
const debounce = 100 * time.Millisecond

// Watcher reports changed .lua files in the watched directories and their
// immediate subdirectories, the same depth the engine loads.
// Events is buffered; changes arriving while it is full are dropped since a
// single pending event already triggers a full reload.
type Watcher struct {
	watcher *fsnotify.Watcher
	roots   map[string]bool
	Events  chan string
	Errors  chan error
	closeCh chan struct{}
	done    chan struct{}
	once    sync.Once
}

func NewWatcher(dirs ...string) (*Watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	roots := make(map[string]bool, len(dirs))
	for _, dir := range dirs {
		if err := addTree(w, dir); err != nil {
			_ = w.Close()
			return nil, err
		}
		roots[filepath.Clean(dir)] = true
	}

	watcher := &Watcher{
		watcher: w,
		roots:   roots,
		Events:  make(chan string, 16),
		Errors:  make(chan error, 1),
		closeCh: make(chan struct{}),
		done:    make(chan struct{}),
	}
	go watcher.run()
	return watcher, nil
}

// addTree watches dir and each of its immediate subdirectories.
func addTree(w *fsnotify.Watcher, dir string) error {
	if err := w.Add(dir); err != nil {
		return err
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if err := w.Add(filepath.Join(dir, e.Name())); err != nil {
			return err
		}
	}
	return nil
}

func (w *Watcher) Close() error {
	var err error
	w.once.Do(func() {
		close(w.closeCh)
		err = w.watcher.Close()
		<-w.done
	})
	return err
}

// Drain empties pending change events and reports whether there were any.
func (w *Watcher) Drain() bool {
	changed := false
	for {
		select {
		case _, ok := <-w.Events:
			if !ok {
				return changed
			}
			changed = true
		default:
			return changed
		}
	}
}

func (w *Watcher) run() {
	defer func() {
		close(w.Events)
		close(w.Errors)
		close(w.done)
	}()

	last := make(map[string]time.Time)
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) == 0 {
				continue
			}
			if event.Op&fsnotify.Create != 0 && w.roots[filepath.Dir(event.Name)] {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					w.watchNew(event.Name)
					continue
				}
			}
			if !isScriptFile(event.Name) {
				continue
			}
			now := time.Now()
			if t, ok := last[event.Name]; ok && now.Sub(t) < debounce {
				continue
			}
			last[event.Name] = now
			select {
			case w.Events <- event.Name:
			default:
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			select {
			case w.Errors <- err:
			default:
			}
		case <-w.closeCh:
			return
		}
	}
}

// watchNew starts watching a subdirectory created after startup. Scripts
// written into it before the watch lands are picked up by the next reload.
func (w *Watcher) watchNew(dir string) {
	if err := w.watcher.Add(dir); err != nil {
		select {
		case w.Errors <- err:
		default:
		}
	}
}

func isScriptFile(path string) bool {
	return strings.ToLower(filepath.Ext(path)) == ".lua"
}
