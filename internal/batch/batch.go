// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package batch hashes many reports concurrently.
package batch

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/wingedpig/duphash/internal/duphash"
	"github.com/wingedpig/duphash/pkg/ureport"
)

// Job is one report to hash. When Data is nil the report is read from the
// file named by Name.
type Job struct {
	Name string
	Data []byte
}

// Result is the outcome for one job. Exactly one of Duphash and Error is set.
type Result struct {
	Name      string `json:"name" yaml:"name"`
	Type      string `json:"type,omitempty" yaml:"type,omitempty"`
	Component string `json:"component,omitempty" yaml:"component,omitempty"`
	Reason    string `json:"reason,omitempty" yaml:"reason,omitempty"`
	Thread    string `json:"thread,omitempty" yaml:"thread,omitempty"`
	Duphash   string `json:"duphash,omitempty" yaml:"duphash,omitempty"`
	Error     string `json:"error,omitempty" yaml:"error,omitempty"`
}

// Failed reports whether the job produced an error.
func (r Result) Failed() bool {
	return r.Error != ""
}

// Hasher turns reports into duphashes with fixed options.
type Hasher struct {
	opts    duphash.Options
	workers int
}

// NewHasher creates a hasher. workers <= 0 uses one worker per CPU.
func NewHasher(opts duphash.Options, workers int) (*Hasher, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &Hasher{opts: opts, workers: workers}, nil
}

// Workers returns the concurrency limit.
func (h *Hasher) Workers() int {
	return h.workers
}

// Run hashes every job. Results keep the order of jobs. Per-job failures are
// recorded in the result; the returned error is only set when ctx ends early.
func (h *Hasher) Run(ctx context.Context, jobs []Job) ([]Result, error) {
	results := make([]Result, len(jobs))
	start := time.Now()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(h.workers)

	for i, job := range jobs {
		if gctx.Err() != nil {
			break
		}
		i, job := i, job
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = h.Hash(job)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	failed := 0
	for _, r := range results {
		if r.Failed() {
			failed++
		}
	}
	log.WithFields(log.Fields{
		"reports": len(jobs),
		"failed":  failed,
		"workers": h.workers,
		"elapsed": time.Since(start).String(),
	}).Debug("Batch finished")

	return results, nil
}

// Hash processes a single job synchronously.
func (h *Hasher) Hash(job Job) Result {
	res := Result{Name: job.Name}
	hash, r, thread, err := h.hash(job)
	if r != nil {
		res.Type = r.Type().String()
		res.Component = r.Component()
		res.Reason = r.Reason()
	}
	if thread != nil {
		res.Thread = thread.ID()
	}
	if err != nil {
		res.Error = err.Error()
		log.WithFields(log.Fields{
			"report": job.Name,
			"error":  err,
		}).Warn("Failed to hash report")
		return res
	}
	res.Duphash = hash
	return res
}

func (h *Hasher) hash(job Job) (string, *ureport.Report, *ureport.Thread, error) {
	data := job.Data
	if data == nil {
		var err error
		data, err = os.ReadFile(job.Name)
		if err != nil {
			return "", nil, nil, fmt.Errorf("read report: %w", err)
		}
	}

	r, err := ureport.ParseBytes(data)
	if err != nil {
		return "", nil, nil, fmt.Errorf("parse report: %w", err)
	}
	st, err := r.Stacktrace()
	if err != nil {
		return "", r, nil, err
	}
	thread, err := st.FindCrashThread()
	if err != nil {
		return "", r, nil, err
	}
	hash, err := thread.Duphash(
		ureport.WithFrames(h.opts.Frames),
		ureport.WithFlags(h.opts.Flags),
		ureport.WithPrefix(h.opts.Prefix),
	)
	if err != nil {
		return "", r, thread, err
	}
	return hash, r, thread, nil
}
