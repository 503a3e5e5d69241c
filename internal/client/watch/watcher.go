// Package watch keeps watched folders in sync with their collections:
// new files upload, deleted files leave the collection.
package watch

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// Op is a filesystem change kind relevant to sync.
type Op int

const (
	OpCreate Op = iota
	OpRemove
)

// FSEvent is one debounce-ready filesystem change under a watched root.
type FSEvent struct {
	Root string // watched root the event belongs to
	Path string
	Op   Op
	// Dir is set for removals of paths that were watched directories.
	Dir bool
}

// Watcher multiplexes recursive fsnotify watches over several roots
// onto one event channel.
type Watcher struct {
	fs     *fsnotify.Watcher
	events chan FSEvent
	errors chan error

	mu    sync.Mutex
	roots []string
	dirs  map[string]struct{} // watched directories, to flag dir removals
}

func NewWatcher() (*Watcher, error) {
	fs, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating watcher: %w", err)
	}
	w := &Watcher{
		fs:     fs,
		events: make(chan FSEvent, 100),
		errors: make(chan error, 10),
		dirs:   make(map[string]struct{}),
	}
	go w.run()
	return w, nil
}

func (w *Watcher) Events() <-chan FSEvent { return w.events }
func (w *Watcher) Errors() <-chan error   { return w.errors }

// AddRoot starts watching a folder tree.
func (w *Watcher) AddRoot(root string) error {
	abs, err := filepath.Abs(root)
	if err != nil {
		return err
	}
	w.mu.Lock()
	w.roots = append(w.roots, abs)
	w.mu.Unlock()
	return w.addRecursive(abs)
}

// RemoveRoot stops watching a folder tree. Pending events for it may
// still be delivered.
func (w *Watcher) RemoveRoot(root string) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	for i, r := range w.roots {
		if r == abs {
			w.roots = append(w.roots[:i], w.roots[i+1:]...)
			break
		}
	}
	for dir := range w.dirs {
		if dir == abs || strings.HasPrefix(dir, abs+string(filepath.Separator)) {
			w.fs.Remove(dir)
			delete(w.dirs, dir)
		}
	}
}

func (w *Watcher) Close() error {
	return w.fs.Close()
}

func (w *Watcher) addRecursive(dir string) error {
	return filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if isHidden(d.Name()) && path != dir {
			return filepath.SkipDir
		}
		if err := w.fs.Add(path); err != nil {
			return fmt.Errorf("watching %s: %w", path, err)
		}
		w.mu.Lock()
		w.dirs[path] = struct{}{}
		w.mu.Unlock()
		return nil
	})
}

func isHidden(name string) bool {
	return strings.HasPrefix(name, ".")
}

// rootFor finds the watched root containing path.
func (w *Watcher) rootFor(path string) (string, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, r := range w.roots {
		if path == r || strings.HasPrefix(path, r+string(filepath.Separator)) {
			return r, true
		}
	}
	return "", false
}

func (w *Watcher) run() {
	for {
		select {
		case ev, ok := <-w.fs.Events:
			if !ok {
				close(w.events)
				return
			}
			w.handle(ev)
		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			select {
			case w.errors <- err:
			default:
			}
		}
	}
}

func (w *Watcher) handle(ev fsnotify.Event) {
	path := ev.Name
	if isHidden(filepath.Base(path)) {
		return
	}
	root, ok := w.rootFor(path)
	if !ok {
		return
	}

	switch {
	case ev.Has(fsnotify.Create):
		if info, err := os.Stat(path); err == nil && info.IsDir() {
			if err := w.addRecursive(path); err != nil {
				select {
				case w.errors <- err:
				default:
				}
			}
			// Files inside the new directory arrive as their own events
			// once the watch is in place.
			return
		}
		w.events <- FSEvent{Root: root, Path: path, Op: OpCreate}

	case ev.Has(fsnotify.Remove), ev.Has(fsnotify.Rename):
		w.mu.Lock()
		_, wasDir := w.dirs[path]
		if wasDir {
			delete(w.dirs, path)
		}
		w.mu.Unlock()
		w.events <- FSEvent{Root: root, Path: path, Op: OpRemove, Dir: wasDir}

	case ev.Has(fsnotify.Write):
		w.events <- FSEvent{Root: root, Path: path, Op: OpCreate}
	}
}
