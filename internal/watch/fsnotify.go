package watch

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// ignoredDirs are never descended into when adding directories.
var ignoredDirs = map[string]bool{
	".git":             true,
	".hg":              true,
	".svn":             true,
	"node_modules":     true,
	"bower_components": true,
	".idea":            true,
	".vscode":          true,
	".cache":           true,
	".sass-cache":      true,
}

// FSSource is an EventSource backed by fsnotify. Directories are watched
// recursively, including ones created after Add.
type FSSource struct {
	watcher *fsnotify.Watcher
	logger  *slog.Logger
	events  chan Event
	errors  chan error

	mu      sync.Mutex
	watched map[string]struct{}
	quit    chan struct{}
	done    chan struct{}
	closed  bool
}

// NewFSSource creates a source. logger may be nil.
func NewFSSource(logger *slog.Logger) (*FSSource, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	s := &FSSource{
		watcher: w,
		logger:  logger,
		events:  make(chan Event, 64),
		errors:  make(chan error, 8),
		watched: make(map[string]struct{}),
		quit:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	go s.forward()
	return s, nil
}

// Add watches dir and all of its subdirectories, skipping ignored ones.
func (s *FSSource) Add(dir string) error {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return err
	}
	return filepath.WalkDir(abs, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) && p != abs {
				return nil
			}
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if p != abs && ignoredDirs[d.Name()] {
			return filepath.SkipDir
		}
		return s.addOne(p)
	})
}

func (s *FSSource) addOne(dir string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errors.New("source closed")
	}
	if _, ok := s.watched[dir]; ok {
		return nil
	}
	if err := s.watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}
	s.watched[dir] = struct{}{}
	return nil
}

// forget drops dir and everything below it from the watched set, so that a
// directory recreated at the same path is added again.
func (s *FSSource) forget(dir string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	prefix := dir + string(filepath.Separator)
	for p := range s.watched {
		if p == dir || strings.HasPrefix(p, prefix) {
			delete(s.watched, p)
		}
	}
}

func (s *FSSource) Events() <-chan Event { return s.events }

func (s *FSSource) Errors() <-chan error { return s.errors }

// Close stops the underlying watcher. The event and error channels are closed
// once pending notifications were forwarded.
func (s *FSSource) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()
	close(s.quit)
	err := s.watcher.Close()
	<-s.done
	return err
}

func (s *FSSource) forward() {
	defer close(s.done)
	defer close(s.errors)
	defer close(s.events)

	for {
		select {
		case ev, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			op := translateOp(ev.Op)
			if op == 0 {
				continue
			}
			if op&(Remove|Rename) != 0 {
				s.forget(ev.Name)
			}
			if op&Create != 0 {
				if info, err := os.Stat(ev.Name); err == nil && info.IsDir() && !ignoredDirs[info.Name()] {
					if err := s.Add(ev.Name); err != nil {
						s.logger.Warn("Failed to watch new directory.", "path", ev.Name, "error", err)
					}
				}
			}
			select {
			case s.events <- Event{Path: ev.Name, Op: op}:
			case <-s.quit:
				return
			}
		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			if errors.Is(err, fsnotify.ErrEventOverflow) {
				err = fmt.Errorf("%w: %v", ErrOverflow, err)
			}
			select {
			case s.errors <- err:
			case <-s.quit:
				return
			}
		}
	}
}

func translateOp(op fsnotify.Op) Op {
	var out Op
	if op.Has(fsnotify.Create) {
		out |= Create
	}
	if op.Has(fsnotify.Write) {
		out |= Write
	}
	if op.Has(fsnotify.Remove) {
		out |= Remove
	}
	if op.Has(fsnotify.Rename) {
		out |= Rename
	}
	return out
}
