// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package ureport computes duplicate hashes for crash reports.
//
// A uReport is a JSON document describing one crash: a core dump, a Python
// exception, a kernel oops, a Java exception or a GDB backtrace. Two crashes
// with the same duplicate hash (duphash) are considered the same problem.
//
// # Getting Started
//
// Parse a report, pull out its stacktrace, select the crash thread and hash
// it:
//
//	r, err := ureport.Parse(text)
//	if err != nil {
//	    return err
//	}
//	st, err := r.Stacktrace()
//	if err != nil {
//	    return err
//	}
//	thread, err := st.FindCrashThread()
//	if err != nil {
//	    return err
//	}
//	hash, err := thread.Duphash()
//
// # Hash Options
//
// Duphash accepts functional options:
//
//	hash, err := thread.Duphash(
//	    ureport.WithFrames(3),
//	    ureport.WithFlags(ureport.Flags{NoHash: true}),
//	    ureport.WithPrefix("fedora:"),
//	)
//
// With NoHash the canonical text is returned instead of its SHA-1 digest.
// Hashing that text with SHA-1 reproduces the default result.
//
// # Ownership
//
// A Stacktrace returned by [Report.Stacktrace] is a deep copy and stays
// valid independently of the Report. Handles must come from this package;
// zero-value handles return [ErrInvalidHandle].
//
// # Error Handling
//
// Parse failures are *[ParseError] values carrying the offending fragment of
// input. Crash-thread selection failures are *[SelectionError] values that
// match [ErrNotFound], [ErrEmpty] or [ErrInvalidType] with errors.Is.
package ureport

import (
	"errors"

	"github.com/wingedpig/duphash/internal/duphash"
	"github.com/wingedpig/duphash/internal/model"
	"github.com/wingedpig/duphash/internal/report"
	"github.com/wingedpig/duphash/internal/stacktrace"
)

// ReportType identifies the format of a report.
type ReportType = model.ReportType

// Report types.
const (
	Invalid    = model.Invalid
	Core       = model.Core
	Python     = model.Python
	KernelOops = model.KernelOops
	Java       = model.Java
	Gdb        = model.Gdb
)

// Flags selects normalization and hashing behavior. See [DefaultFlags].
type Flags = duphash.Flags

// DefaultFlags normalizes frames and hashes the canonical text.
var DefaultFlags = duphash.DefaultFlags

// Frame is one stack entry of a crash thread.
type Frame = model.Frame

// Error types.
type (
	ParseError       = report.ParseError
	SelectionError   = stacktrace.SelectionError
	DuplicationError = stacktrace.DuplicationError
)

// Sentinel errors.
var (
	ErrInvalidType = stacktrace.ErrInvalidType
	ErrNotFound    = stacktrace.ErrNotFound
	ErrEmpty       = stacktrace.ErrEmpty

	// ErrInvalidHandle is returned by methods called on a nil or zero-value
	// handle.
	ErrInvalidHandle = errors.New("invalid handle")
)

// Report is a parsed crash report.
type Report struct {
	r *report.Report
}

// Parse decodes uReport text.
func Parse(text string) (*Report, error) {
	return ParseBytes([]byte(text))
}

// ParseBytes decodes a uReport held in a byte slice.
func ParseBytes(data []byte) (*Report, error) {
	r, err := report.Parse(data)
	if err != nil {
		return nil, err
	}
	return &Report{r: r}, nil
}

// ParseFile reads and decodes the uReport stored at path.
func ParseFile(path string) (*Report, error) {
	r, err := report.ParseFile(path)
	if err != nil {
		return nil, err
	}
	return &Report{r: r}, nil
}

// Type returns the report type, or Invalid for an invalid handle.
func (r *Report) Type() ReportType {
	if r == nil || r.r == nil {
		return Invalid
	}
	return r.r.Type
}

// Component returns the name of the crashed component.
func (r *Report) Component() string {
	if r == nil || r.r == nil {
		return ""
	}
	return r.r.Component
}

// Reason returns a one-line description of the crash.
func (r *Report) Reason() string {
	if r == nil || r.r == nil {
		return ""
	}
	return r.r.Reason()
}

// Stacktrace returns an independent copy of the report's stacktrace.
func (r *Report) Stacktrace() (*Stacktrace, error) {
	if r == nil || r.r == nil {
		return nil, ErrInvalidHandle
	}
	st, err := r.r.ExtractStacktrace()
	if err != nil {
		return nil, err
	}
	return &Stacktrace{st: st}, nil
}

// Stacktrace is the set of threads of one crash.
type Stacktrace struct {
	st stacktrace.Stacktrace
}

// Type returns the report type the stacktrace came from.
func (s *Stacktrace) Type() ReportType {
	if s == nil || s.st == nil {
		return Invalid
	}
	return s.st.Type()
}

// Threads returns every thread of the stacktrace.
func (s *Stacktrace) Threads() ([]*Thread, error) {
	if s == nil || s.st == nil {
		return nil, ErrInvalidHandle
	}
	threads := s.st.Threads()
	out := make([]*Thread, len(threads))
	for i, t := range threads {
		out[i] = &Thread{t: t, valid: true}
	}
	return out, nil
}

// FindCrashThread selects the thread that caused the crash.
func (s *Stacktrace) FindCrashThread() (*Thread, error) {
	if s == nil || s.st == nil {
		return nil, ErrInvalidHandle
	}
	t, err := stacktrace.FindCrashThread(s.st)
	if err != nil {
		return nil, err
	}
	return &Thread{t: t, valid: true}, nil
}

// Duplicate returns an independent deep copy.
func (s *Stacktrace) Duplicate() (*Stacktrace, error) {
	if s == nil || s.st == nil {
		return nil, ErrInvalidHandle
	}
	dup, err := stacktrace.Clone(s.st)
	if err != nil {
		return nil, err
	}
	return &Stacktrace{st: dup}, nil
}

// Thread is one thread of a stacktrace.
type Thread struct {
	t     model.Thread
	valid bool
}

// ID returns the format-specific thread identifier, if any.
func (t *Thread) ID() string {
	if t == nil {
		return ""
	}
	return t.t.ID
}

// Frames returns a copy of the thread's frames, innermost first.
func (t *Thread) Frames() []Frame {
	if t == nil || !t.valid {
		return nil
	}
	return t.t.Clone().Frames
}

// Option configures [Thread.Duphash].
type Option func(*duphash.Options)

// WithFrames limits hashing to the first n frames. Zero means all frames.
func WithFrames(n int) Option {
	return func(o *duphash.Options) {
		o.Frames = n
	}
}

// WithFlags replaces [DefaultFlags].
func WithFlags(f Flags) Option {
	return func(o *duphash.Options) {
		o.Flags = f
	}
}

// WithPrefix prepends p to the canonical text before hashing.
func WithPrefix(p string) Option {
	return func(o *duphash.Options) {
		o.Prefix = p
	}
}

// Duphash computes the duplicate hash of the thread.
func (t *Thread) Duphash(opts ...Option) (string, error) {
	if t == nil || !t.valid {
		return "", ErrInvalidHandle
	}
	o := duphash.DefaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return duphash.Compute(t.t, o)
}
