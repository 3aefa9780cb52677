// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package stacktrace decodes the type-specific stacktrace section of a
// uReport and selects the thread responsible for the crash.
package stacktrace

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/wingedpig/duphash/internal/model"
)

// Selection failures. Adapters return these bare; FindCrashThread wraps
// them in a SelectionError.
var (
	ErrInvalidType = errors.New("invalid report type")
	ErrNotFound    = errors.New("crash thread not found")
	ErrEmpty       = errors.New("no frames")
)

// SelectionError reports why a crash thread could not be selected.
type SelectionError struct {
	Type model.ReportType
	Err  error
}

func (e *SelectionError) Error() string {
	return fmt.Sprintf("select crash thread (%s): %v", e.Type, e.Err)
}

func (e *SelectionError) Unwrap() error {
	return e.Err
}

// DuplicationError reports a failed deep copy of a stacktrace.
type DuplicationError struct {
	Type model.ReportType
}

func (e *DuplicationError) Error() string {
	return fmt.Sprintf("failed to duplicate %s stacktrace", e.Type)
}

// Stacktrace is the capability set every report adapter implements.
type Stacktrace interface {
	// Type returns the report type this stacktrace was decoded from.
	Type() model.ReportType

	// Threads returns a copy of every thread, innermost frame first.
	Threads() []model.Thread

	// CrashThread returns the faulting thread or one of ErrNotFound,
	// ErrEmpty, ErrInvalidType.
	CrashThread() (model.Thread, error)

	// Duplicate returns an independent deep copy.
	Duplicate() Stacktrace

	// Reason returns a one-line human description of the crash.
	Reason() string
}

// Decode builds the adapter for t from the problem object of a uReport.
func Decode(t model.ReportType, problem json.RawMessage) (Stacktrace, error) {
	switch t {
	case model.Core:
		return decodeCore(problem)
	case model.Python:
		return decodePython(problem)
	case model.KernelOops:
		return decodeKoops(problem)
	case model.Java:
		return decodeJava(problem)
	case model.Gdb:
		return decodeGdb(problem)
	default:
		return nil, &SelectionError{Type: t, Err: ErrInvalidType}
	}
}

// FindCrashThread asks st for its crash thread and maps adapter failures
// onto SelectionError.
func FindCrashThread(st Stacktrace) (model.Thread, error) {
	if st == nil {
		return model.Thread{}, &SelectionError{Type: model.Invalid, Err: ErrInvalidType}
	}
	if !st.Type().Valid() {
		return model.Thread{}, &SelectionError{Type: st.Type(), Err: ErrInvalidType}
	}

	thread, err := st.CrashThread()
	if err != nil {
		var selErr *SelectionError
		if errors.As(err, &selErr) {
			return model.Thread{}, err
		}
		return model.Thread{}, &SelectionError{Type: st.Type(), Err: err}
	}
	return thread, nil
}

// Clone deep-copies st.
func Clone(st Stacktrace) (Stacktrace, error) {
	if st == nil {
		return nil, &DuplicationError{Type: model.Invalid}
	}
	dup := st.Duplicate()
	if dup == nil || dup.Type() != st.Type() {
		return nil, &DuplicationError{Type: st.Type()}
	}
	return dup, nil
}

// singleThread implements the one-thread selection shared by the python
// and kernel oops adapters.
func singleThread(threads []model.Thread) (model.Thread, error) {
	if len(threads) == 0 || len(threads[0].Frames) == 0 {
		return model.Thread{}, ErrEmpty
	}
	return threads[0].Clone(), nil
}

func decodeErr(t model.ReportType, err error) error {
	return fmt.Errorf("decode %s stacktrace: %w", t, err)
}
