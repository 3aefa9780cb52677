// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package watcher

import (
	"sync"
	"time"
)

const defaultDebounceDuration = 250 * time.Millisecond

// Debouncer coalesces bursts of events per path. A writer that appends to a
// report in several chunks produces one callback once the file goes quiet.
type Debouncer struct {
	mu       sync.Mutex
	duration time.Duration
	fire     func(path string)
	timers   map[string]*time.Timer
	stopped  bool
}

// NewDebouncer creates a debouncer that calls fire for each settled path.
func NewDebouncer(duration time.Duration, fire func(path string)) *Debouncer {
	if duration <= 0 {
		duration = defaultDebounceDuration
	}
	return &Debouncer{
		duration: duration,
		fire:     fire,
		timers:   make(map[string]*time.Timer),
	}
}

// Touch records activity on path, restarting its quiet period.
func (d *Debouncer) Touch(path string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}
	if timer, exists := d.timers[path]; exists {
		timer.Reset(d.duration)
		return
	}

	d.timers[path] = time.AfterFunc(d.duration, func() {
		d.mu.Lock()
		delete(d.timers, path)
		stopped := d.stopped
		d.mu.Unlock()
		if !stopped {
			d.fire(path)
		}
	})
}

// Forget drops a pending callback for path, e.g. after the file was removed.
func (d *Debouncer) Forget(path string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if timer, exists := d.timers[path]; exists {
		timer.Stop()
		delete(d.timers, path)
	}
}

// Pending returns the number of paths waiting to settle.
func (d *Debouncer) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.timers)
}

// Stop cancels all pending callbacks. Later touches are ignored.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.stopped = true
	for path, timer := range d.timers {
		timer.Stop()
		delete(d.timers, path)
	}
}
