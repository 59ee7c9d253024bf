package session

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"
)

// ErrWatcherClosed is returned by Next after Close.
var ErrWatcherClosed = errors.New("watcher closed")

// Watcher reports changes to a single file. It watches the file's directory
// so that editors replacing the file are noticed too.
type Watcher struct {
	path    string
	watcher *fsnotify.Watcher
}

// NewWatcher starts watching path.
func NewWatcher(path string) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("unable to get absolute path: %w", err)
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("error creating fsnotify watcher: %w", err)
	}

	dir := filepath.Dir(abs)
	if err := w.Add(dir); err != nil {
		_ = w.Close()
		return nil, fmt.Errorf("error adding dir to fsnotify watcher: %w", err)
	}
	log.Info("fsnotify watching dir", "dir", dir)

	return &Watcher{path: abs, watcher: w}, nil
}

// Path returns the absolute path being watched.
func (w *Watcher) Path() string {
	return w.path
}

// Next blocks until the file is written or recreated.
func (w *Watcher) Next() error {
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return ErrWatcherClosed
			}
			if event.Name != w.path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}

			log.Debug("fsnotify event", "file", event.Name, "event", event.Op)
			return nil
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return ErrWatcherClosed
			}
			log.Debug("fsnotify error", "file", w.path, "error", err)
		}
	}
}

// Close stops watching.
func (w *Watcher) Close() error {
	return w.watcher.Close()
}
