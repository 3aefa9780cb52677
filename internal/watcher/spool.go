// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package watcher hands newly written report files in a spool directory to
// a callback.
package watcher

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	log "github.com/sirupsen/logrus"
)

// Handler receives the absolute path of a report file that stopped changing.
type Handler func(path string)

// SpoolWatcher watches one directory for report files matching a glob.
type SpoolWatcher struct {
	mu        sync.Mutex
	dir       string
	pattern   string
	handler   Handler
	watcher   *fsnotify.Watcher
	debouncer *Debouncer
	logger    *log.Entry
	closed    bool
	closeCh   chan struct{}
	wg        sync.WaitGroup
}

// NewSpoolWatcher starts watching dir. Files whose base name matches pattern
// are passed to handler once no write has been seen for the debounce period.
func NewSpoolWatcher(dir, pattern string, debounce time.Duration, handler Handler) (*SpoolWatcher, error) {
	if handler == nil {
		return nil, fmt.Errorf("spool watcher needs a handler")
	}
	if pattern == "" {
		pattern = "*"
	}
	if _, err := filepath.Match(pattern, ""); err != nil {
		return nil, fmt.Errorf("invalid pattern %q: %w", pattern, err)
	}

	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve spool dir: %w", err)
	}
	info, err := os.Stat(absDir)
	if err != nil {
		return nil, fmt.Errorf("spool dir: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("spool dir %s is not a directory", absDir)
	}

	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	if err := fsWatcher.Add(absDir); err != nil {
		fsWatcher.Close()
		return nil, fmt.Errorf("watch %s: %w", absDir, err)
	}

	w := &SpoolWatcher{
		dir:     absDir,
		pattern: pattern,
		handler: handler,
		watcher: fsWatcher,
		logger: log.WithFields(log.Fields{
			"dir":     absDir,
			"pattern": pattern,
		}),
		closeCh: make(chan struct{}),
	}
	w.debouncer = NewDebouncer(debounce, w.deliver)

	w.wg.Add(1)
	go w.processEvents()

	return w, nil
}

// Dir returns the absolute path of the watched directory.
func (w *SpoolWatcher) Dir() string {
	return w.dir
}

// Scan queues every matching file already present in the directory and
// returns how many were queued.
func (w *SpoolWatcher) Scan() (int, error) {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		return 0, fmt.Errorf("scan spool dir: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.Type().IsRegular() && w.matches(e.Name()) {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	for _, name := range names {
		w.debouncer.Touch(filepath.Join(w.dir, name))
	}
	return len(names), nil
}

// Close stops the watcher. Pending files are dropped.
func (w *SpoolWatcher) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	close(w.closeCh)
	w.mu.Unlock()

	w.debouncer.Stop()
	err := w.watcher.Close()
	w.wg.Wait()

	return err
}

func (w *SpoolWatcher) matches(name string) bool {
	ok, _ := filepath.Match(w.pattern, name)
	return ok
}

func (w *SpoolWatcher) processEvents() {
	defer w.wg.Done()

	for {
		select {
		case <-w.closeCh:
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
			w.logger.WithError(err).Warn("Spool watcher error")
		}
	}
}

func (w *SpoolWatcher) handleEvent(event fsnotify.Event) {
	if filepath.Dir(event.Name) != w.dir || !w.matches(filepath.Base(event.Name)) {
		return
	}

	switch {
	case event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename):
		w.debouncer.Forget(event.Name)
	case event.Has(fsnotify.Create) || event.Has(fsnotify.Write):
		w.debouncer.Touch(event.Name)
	}
}

func (w *SpoolWatcher) deliver(path string) {
	info, err := os.Stat(path)
	if err != nil {
		w.logger.WithError(err).WithField("path", path).Debug("Report vanished before processing")
		return
	}
	if !info.Mode().IsRegular() {
		return
	}

	w.mu.Lock()
	closed := w.closed
	w.mu.Unlock()
	if closed {
		return
	}

	w.logger.WithField("path", path).Debug("Report settled")
	w.handler(path)
}
