package schema

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	language "github.com/hanpama/querycost/internal/language"
)

// Watcher reloads a schema whenever one of its SDL files changes.
type Watcher struct {
	paths         []string
	costDirective string
	debounce      time.Duration

	// OnReload receives every successfully reloaded schema.
	OnReload func(*language.Schema)
	// OnError receives load and watch errors. The previous schema stays in use.
	OnError func(error)
}

// NewWatcher creates a watcher over the same paths given to LoadFiles.
func NewWatcher(costDirective string, paths ...string) *Watcher {
	return &Watcher{paths: paths, costDirective: costDirective, debounce: 200 * time.Millisecond}
}

// Run watches until ctx is done. Directories are watched directly; for file
// paths the containing directory is watched.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create schema watcher: %w", err)
	}
	defer fw.Close()

	for _, p := range w.paths {
		if err := addRecursive(fw, p); err != nil {
			return err
		}
	}

	var timer *time.Timer
	var fire <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return nil
		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if !w.relevant(event) {
				continue
			}
			if event.Op&fsnotify.Create != 0 {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					_ = addRecursive(fw, event.Name)
				}
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
			w.reportError(err)
		case <-fire:
			fire = nil
			s, err := LoadFiles(ctx, w.costDirective, w.paths...)
			if err != nil {
				w.reportError(err)
				continue
			}
			if w.OnReload != nil {
				w.OnReload(s)
			}
		}
	}
}

func (w *Watcher) relevant(event fsnotify.Event) bool {
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
		return false
	}
	if sdlExtensions[filepath.Ext(event.Name)] {
		return true
	}
	info, err := os.Stat(event.Name)
	return err == nil && info.IsDir()
}

func (w *Watcher) reportError(err error) {
	if w.OnError != nil {
		w.OnError(err)
	}
}

func addRecursive(fw *fsnotify.Watcher, root string) error {
	info, err := os.Stat(root)
	if err != nil {
		return fmt.Errorf("watch %q: %w", root, err)
	}
	if !info.IsDir() {
		return fw.Add(filepath.Dir(root))
	}
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if err := fw.Add(path); err != nil {
				return fmt.Errorf("watch %q: %w", path, err)
			}
		}
		return nil
	})
}
