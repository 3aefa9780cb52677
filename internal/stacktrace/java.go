// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package stacktrace

import (
	"encoding/json"
	"fmt"

	"github.com/wingedpig/duphash/internal/model"
)

type javaFrameJSON struct {
	Name        string `json:"name"`
	FileName    string `json:"file_name"`
	FileLine    uint32 `json:"file_line"`
	ClassPath   string `json:"class_path"`
	IsNative    bool   `json:"is_native"`
	IsException bool   `json:"is_exception"`
	Message     string `json:"message"`
}

type javaThreadJSON struct {
	Name        string          `json:"name"`
	CrashThread bool            `json:"crash_thread"`
	Frames      []javaFrameJSON `json:"frames"`
}

type javaProblemJSON struct {
	Threads []javaThreadJSON `json:"threads"`
}

// JavaStacktrace holds one or more Java threads. Exception frames are
// interleaved with call frames, innermost first.
type JavaStacktrace struct {
	threads []model.Thread
}

// NewJavaStacktrace wraps already-built threads.
func NewJavaStacktrace(threads []model.Thread) *JavaStacktrace {
	return &JavaStacktrace{threads: model.CloneThreads(threads)}
}

func decodeJava(problem json.RawMessage) (Stacktrace, error) {
	var raw javaProblemJSON
	if err := json.Unmarshal(problem, &raw); err != nil {
		return nil, decodeErr(model.Java, err)
	}

	st := &JavaStacktrace{threads: make([]model.Thread, 0, len(raw.Threads))}
	for _, t := range raw.Threads {
		thread := model.Thread{
			ID:      t.Name,
			Crashed: t.CrashThread,
			Frames:  make([]model.Frame, 0, len(t.Frames)),
		}
		for _, f := range t.Frames {
			thread.Frames = append(thread.Frames, model.Frame{
				Kind:       model.Java,
				Function:   f.Name,
				Module:     f.ClassPath,
				SourceFile: f.FileName,
				SourceLine: f.FileLine,
				Offset:     uint64(f.FileLine),
				Native:     f.IsNative,
				Exception:  f.IsException,
				Message:    f.Message,
			})
		}
		st.threads = append(st.threads, thread)
	}
	return st, nil
}

func (s *JavaStacktrace) Type() model.ReportType { return model.Java }

func (s *JavaStacktrace) Threads() []model.Thread {
	if s == nil {
		return nil
	}
	return model.CloneThreads(s.threads)
}

// CrashThread returns the first thread that is flagged or whose innermost
// frame is an exception that reached the top of the thread. Without such a
// marker the first thread is used.
func (s *JavaStacktrace) CrashThread() (model.Thread, error) {
	if s == nil {
		return model.Thread{}, ErrInvalidType
	}
	if len(s.threads) == 0 {
		return model.Thread{}, ErrNotFound
	}
	for _, t := range s.threads {
		if t.Crashed {
			return t.Clone(), nil
		}
		if top, ok := t.Top(); ok && top.Exception {
			return t.Clone(), nil
		}
	}
	return s.threads[0].Clone(), nil
}

func (s *JavaStacktrace) Duplicate() Stacktrace {
	if s == nil {
		return nil
	}
	return NewJavaStacktrace(s.threads)
}

// Reason names the first exception of the crash thread and the outermost
// frame's source location.
func (s *JavaStacktrace) Reason() string {
	if s == nil {
		return ""
	}
	exc, file, line := "<unknown>", "<unknown>", uint32(0)
	if thread, err := s.CrashThread(); err == nil {
		frames := thread.Frames
		for _, f := range frames {
			if f.Exception && f.Function != "" {
				exc = f.Function
				break
			}
		}
		if n := len(frames); n > 0 && frames[n-1].SourceFile != "" {
			file, line = frames[n-1].SourceFile, frames[n-1].SourceLine
		}
	}
	return fmt.Sprintf("Exception %s occurred in %s:%d", exc, file, line)
}
