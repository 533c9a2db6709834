// Package watcher reports changes to inventory files.
//
// The directory of every file is watched rather than the file, so editors
// that replace a file on save are still seen. Rapid writes to one file are
// debounced into a single notification.
package watcher

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
)

// DefaultDebounce is the quiet period before a change is reported
const DefaultDebounce = 500 * time.Millisecond

// Watcher watches a set of files for changes
type Watcher struct {
	fs       *fsnotify.Watcher
	files    map[string]bool
	debounce time.Duration
}

// New starts watching paths. The directories are registered before New
// returns, so writes made after it returns are reported by Run.
func New(paths []string, debounce time.Duration) (*Watcher, error) {
	if len(paths) == 0 {
		return nil, fmt.Errorf("no files to watch")
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	fs, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}

	w := &Watcher{fs: fs, files: make(map[string]bool), debounce: debounce}
	dirs := make(map[string]bool)
	for _, path := range paths {
		abs, err := filepath.Abs(path)
		if err != nil {
			fs.Close()
			return nil, fmt.Errorf("resolve %s: %w", path, err)
		}
		w.files[abs] = true

		dir := filepath.Dir(abs)
		if dirs[dir] {
			continue
		}
		if err := fs.Add(dir); err != nil {
			fs.Close()
			return nil, fmt.Errorf("watch %s: %w", dir, err)
		}
		dirs[dir] = true
		log.Debug().Str("path", abs).Msg("Watching for changes")
	}
	return w, nil
}

// Run calls onChange with the absolute path of each changed file until ctx
// is cancelled. Calls are serialized.
func (w *Watcher) Run(ctx context.Context, onChange func(path string)) error {
	defer w.fs.Close()

	var (
		mu     sync.Mutex
		timers = make(map[string]*time.Timer)
	)
	defer func() {
		mu.Lock()
		for _, t := range timers {
			t.Stop()
		}
		mu.Unlock()
	}()

	var calls sync.Mutex
	fire := func(path string) {
		calls.Lock()
		defer calls.Unlock()
		if ctx.Err() != nil {
			return
		}
		log.Info().Str("path", path).Msg("File changed")
		onChange(path)
	}

	for {
		select {
		case event, ok := <-w.fs.Events:
			if !ok {
				return nil
			}
			abs, err := filepath.Abs(event.Name)
			if err != nil || !w.files[abs] {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}

			mu.Lock()
			if t, ok := timers[abs]; ok {
				t.Stop()
			}
			timers[abs] = time.AfterFunc(w.debounce, func() { fire(abs) })
			mu.Unlock()

		case err, ok := <-w.fs.Errors:
			if !ok {
				return nil
			}
			log.Warn().Err(err).Msg("Watcher error")

		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
