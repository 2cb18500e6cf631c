package driver

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/fsnotify/fsnotify"

	"ownck/internal/project"
	"ownck/internal/trace"
)

// DefaultDebounce coalesces editor write bursts into one re-check.
const DefaultDebounce = 100 * time.Millisecond

// WatchOptions configures Watch.
type WatchOptions struct {
	Debounce time.Duration
	// Matcher selects files under a directory root; nil means the defaults.
	Matcher *project.Matcher
}

// Watch calls onChange with the sorted list of changed logs whenever files
// under target change. target is a file or a directory; directories are
// watched recursively, new subdirectories included. It blocks until ctx is
// done and returns nil then.
func Watch(ctx context.Context, target string, wopts WatchOptions, onChange func(changed []string)) error {
	info, err := os.Stat(target)
	if err != nil {
		return err
	}
	debounce := wopts.Debounce
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	matcher := wopts.Matcher
	if matcher == nil {
		if matcher, err = project.NewMatcher(nil, nil); err != nil {
			return err
		}
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	root := target
	selected := func(path string) bool {
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return false
		}
		return matcher.Match(filepath.ToSlash(rel))
	}
	if !info.IsDir() {
		// редакторы заменяют файл через rename, поэтому следим за каталогом
		file := filepath.Clean(target)
		root = filepath.Dir(file)
		selected = func(path string) bool { return filepath.Clean(path) == file }
		if err := watcher.Add(root); err != nil {
			return err
		}
	} else if err := addRecursive(watcher, root); err != nil {
		return err
	}

	tracer := trace.FromContext(ctx)
	parent := trace.ParentID(ctx)

	pending := make(map[string]struct{})
	timer := time.NewTimer(debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return errors.New("watcher events channel closed")
			}
			if event.Has(fsnotify.Create) && info.IsDir() {
				if st, err := os.Stat(event.Name); err == nil && st.IsDir() {
					if err := addRecursive(watcher, event.Name); err != nil {
						trace.Point(tracer, trace.ScopeDriver, "watch_error", err.Error(), parent)
					}
					continue
				}
			}
			if event.Op == fsnotify.Chmod || !selected(event.Name) {
				continue
			}
			trace.Point(tracer, trace.ScopeDriver, "watch_event", event.String(), parent)
			pending[event.Name] = struct{}{}
			timer.Reset(debounce)

		case err, ok := <-watcher.Errors:
			if !ok {
				return errors.New("watcher errors channel closed")
			}
			trace.Point(tracer, trace.ScopeDriver, "watch_error", err.Error(), parent)

		case <-timer.C:
			if len(pending) == 0 {
				continue
			}
			changed := make([]string, 0, len(pending))
			for path := range pending {
				changed = append(changed, path)
			}
			clear(pending)
			slices.Sort(changed)
			onChange(changed)
		}
	}
}

// addRecursive watches dir and every non-hidden directory below it.
func addRecursive(w *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if base := d.Name(); path != dir && len(base) > 1 && base[0] == '.' {
			return filepath.SkipDir
		}
		if err := w.Add(path); err != nil {
			return fmt.Errorf("failed to watch %s: %w", path, err)
		}
		return nil
	})
}
