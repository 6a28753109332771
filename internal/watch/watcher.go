// Package watch triggers rebuilds when files under the source roots change.
package watch

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"git.home.luguber.info/inful/javabuild/internal/logfields"
	"git.home.luguber.info/inful/javabuild/internal/util/sets"
)

// DefaultDebounce is used unless WithDebounce is given.
const DefaultDebounce = 300 * time.Millisecond

// Handler runs once per burst of changes, with the changed paths sorted.
type Handler func(ctx context.Context, changed []string)

// Watcher watches directory trees and calls a Handler after the trees have
// been quiet for the debounce interval. Handler calls never overlap.
type Watcher struct {
	roots    []string
	handler  Handler
	debounce time.Duration
	filter   func(path string) bool
	logger   *slog.Logger

	watcher *fsnotify.Watcher

	mu      sync.Mutex
	changed sets.Set[string]
	trigger chan struct{}
}

// Option customizes a Watcher.
type Option func(*Watcher)

// WithDebounce sets the quiet interval before the handler runs.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// WithFilter restricts which changed files trigger the handler.
func WithFilter(f func(path string) bool) Option {
	return func(w *Watcher) { w.filter = f }
}

func WithLogger(l *slog.Logger) Option {
	return func(w *Watcher) { w.logger = l }
}

// New creates a watcher over roots. Directories are watched recursively;
// file roots are watched through their parent directory.
func New(roots []string, handler Handler, opts ...Option) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	w := &Watcher{
		handler:  handler,
		debounce: DefaultDebounce,
		filter:   func(string) bool { return true },
		logger:   slog.Default(),
		watcher:  fw,
		changed:  sets.New[string](),
		trigger:  make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(w)
	}
	for _, r := range roots {
		abs, err := filepath.Abs(r)
		if err != nil {
			_ = fw.Close()
			return nil, fmt.Errorf("failed to resolve watch root %s: %w", r, err)
		}
		w.roots = append(w.roots, abs)
	}
	return w, nil
}

// Run watches until ctx is done.
func (w *Watcher) Run(ctx context.Context) error {
	defer func() {
		if err := w.watcher.Close(); err != nil {
			w.logger.Error("Error closing file watcher", logfields.Error(err))
		}
	}()
	for _, r := range w.roots {
		if err := w.addTree(r); err != nil {
			return err
		}
	}
	w.logger.Info("Watching for changes", slog.Any("roots", w.roots))

	done := make(chan struct{})
	go func() {
		defer close(done)
		w.dispatchLoop(ctx)
	}()
	w.eventLoop(ctx)
	<-done
	return nil
}

// addTree watches dir and every directory below it. A file root watches
// its parent.
func (w *Watcher) addTree(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return fmt.Errorf("failed to watch %s: %w", root, err)
			}
			return nil
		}
		if !d.IsDir() {
			if path == root {
				return w.watcher.Add(filepath.Dir(path))
			}
			return nil
		}
		if path != root && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		if err := w.watcher.Add(path); err != nil {
			return fmt.Errorf("failed to watch directory %s: %w", path, err)
		}
		return nil
	})
}

func (w *Watcher) eventLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
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
			w.logger.Error("File watcher error", logfields.Error(err))
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if event.Op&fsnotify.Create == fsnotify.Create {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := w.addTree(event.Name); err != nil {
				w.logger.Warn("Failed to watch new directory", logfields.Path(event.Name), logfields.Error(err))
			}
			return
		}
	}
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
		return
	}
	if !w.filter(event.Name) {
		return
	}
	w.logger.Debug("Change detected", logfields.Path(event.Name), slog.String("op", event.Op.String()))

	w.mu.Lock()
	w.changed.Add(event.Name)
	w.mu.Unlock()
	select {
	case w.trigger <- struct{}{}:
	default:
	}
}

// dispatchLoop runs the handler once the debounce interval has passed
// without new changes.
func (w *Watcher) dispatchLoop(ctx context.Context) {
	timer := time.NewTimer(w.debounce)
	timer.Stop()
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.trigger:
			timer.Reset(w.debounce)
		case <-timer.C:
			changed := w.drain()
			if len(changed) > 0 {
				w.handler(ctx, changed)
			}
		}
	}
}

func (w *Watcher) drain() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := sets.Sorted(w.changed)
	clear(w.changed)
	return out
}
