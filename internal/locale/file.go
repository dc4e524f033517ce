package locale

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
)

// FileSource publishes the locale written in a one-line preference file.
// Editors often replace files instead of writing in place, so the parent
// directory is watched rather than the file itself.
type FileSource struct {
	*Store
	path    string
	watcher *fsnotify.Watcher
}

// NewFileSource reads path (missing file means the default locale) and
// starts watching it. Run must be called for changes to be published.
func NewFileSource(set *Set, path string) (*FileSource, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("locale file %s: %w", path, err)
	}

	initial, err := readLocaleFile(abs)
	if err != nil {
		return nil, err
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watching locale file: %w", err)
	}
	if err := w.Add(filepath.Dir(abs)); err != nil {
		_ = w.Close()
		return nil, fmt.Errorf("watching locale file %s: %w", abs, err)
	}

	return &FileSource{
		Store:   NewStore(set, initial),
		path:    abs,
		watcher: w,
	}, nil
}

// Path returns the watched file path.
func (f *FileSource) Path() string { return f.path }

// Run applies file changes to the store until ctx is done, then closes the
// watcher. Errors reading the file are reported to onErr (may be nil) and
// leave the current locale unchanged.
func (f *FileSource) Run(ctx context.Context, onErr func(error)) {
	defer f.watcher.Close()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-f.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != f.path {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			code, err := readLocaleFile(f.path)
			if err != nil {
				if onErr != nil {
					onErr(err)
				}
				continue
			}
			if code != "" {
				f.Set(code)
			}
		case err, ok := <-f.watcher.Errors:
			if !ok {
				return
			}
			if onErr != nil {
				onErr(err)
			}
		}
	}
}

func readLocaleFile(path string) (string, error) {
	data, err := os.ReadFile(path) //nolint:gosec // G304: path is supplied by the user on purpose
	if os.IsNotExist(err) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("reading locale file: %w", err)
	}
	line, _, _ := strings.Cut(string(data), "\n")
	return strings.TrimSpace(line), nil
}
