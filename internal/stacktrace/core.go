// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package stacktrace

import (
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/wingedpig/duphash/internal/model"
)

type coreFrameJSON struct {
	Address           uint64 `json:"address"`
	BuildID           string `json:"build_id"`
	BuildIDOffset     uint64 `json:"build_id_offset"`
	FunctionName      string `json:"function_name"`
	FileName          string `json:"file_name"`
	Fingerprint       string `json:"fingerprint"`
	FingerprintHashed *bool  `json:"fingerprint_hashed"`
}

type coreThreadJSON struct {
	CrashThread bool            `json:"crash_thread"`
	Frames      []coreFrameJSON `json:"frames"`
}

type coreProblemJSON struct {
	Signal     uint16           `json:"signal"`
	Executable string           `json:"executable"`
	Stacktrace []coreThreadJSON `json:"stacktrace"`
}

// CoreStacktrace is a symbolicated core dump: one entry per thread, each
// frame identified by build id and offset.
type CoreStacktrace struct {
	Signal     uint16
	Executable string
	threads    []model.Thread
}

// NewCoreStacktrace wraps already-built threads.
func NewCoreStacktrace(signal uint16, executable string, threads []model.Thread) *CoreStacktrace {
	return &CoreStacktrace{
		Signal:     signal,
		Executable: executable,
		threads:    model.CloneThreads(threads),
	}
}

func decodeCore(problem json.RawMessage) (Stacktrace, error) {
	var raw coreProblemJSON
	if err := json.Unmarshal(problem, &raw); err != nil {
		return nil, decodeErr(model.Core, err)
	}

	st := &CoreStacktrace{
		Signal:     raw.Signal,
		Executable: raw.Executable,
		threads:    make([]model.Thread, 0, len(raw.Stacktrace)),
	}
	for _, t := range raw.Stacktrace {
		thread := model.Thread{
			Crashed: t.CrashThread,
			Frames:  make([]model.Frame, 0, len(t.Frames)),
		}
		for _, f := range t.Frames {
			thread.Frames = append(thread.Frames, model.Frame{
				Kind:        model.Core,
				Function:    f.FunctionName,
				Module:      f.FileName,
				BuildID:     f.BuildID,
				Fingerprint: f.Fingerprint,
				Offset:      f.BuildIDOffset,
				Address:     f.Address,
			})
		}
		st.threads = append(st.threads, thread)
	}
	return st, nil
}

func (s *CoreStacktrace) Type() model.ReportType { return model.Core }

func (s *CoreStacktrace) Threads() []model.Thread {
	if s == nil {
		return nil
	}
	return model.CloneThreads(s.threads)
}

// CrashThread returns the thread flagged crash_thread.
func (s *CoreStacktrace) CrashThread() (model.Thread, error) {
	if s == nil {
		return model.Thread{}, ErrInvalidType
	}
	for _, t := range s.threads {
		if t.Crashed {
			return t.Clone(), nil
		}
	}
	return model.Thread{}, ErrNotFound
}

func (s *CoreStacktrace) Duplicate() Stacktrace {
	if s == nil {
		return nil
	}
	return NewCoreStacktrace(s.Signal, s.Executable, s.threads)
}

func (s *CoreStacktrace) Reason() string {
	if s == nil {
		return ""
	}
	prog := "<unknown>"
	if s.Executable != "" {
		prog = filepath.Base(s.Executable)
	}
	if name, ok := signalNames[s.Signal]; ok {
		return fmt.Sprintf("%s killed by SIG%s", prog, name)
	}
	return fmt.Sprintf("%s killed by signal %d", prog, s.Signal)
}

var signalNames = map[uint16]string{
	1:  "HUP",
	2:  "INT",
	3:  "QUIT",
	4:  "ILL",
	5:  "TRAP",
	6:  "ABRT",
	7:  "BUS",
	8:  "FPE",
	9:  "KILL",
	10: "USR1",
	11: "SEGV",
	12: "USR2",
	13: "PIPE",
	14: "ALRM",
	15: "TERM",
	24: "XCPU",
	25: "XFSZ",
	31: "SYS",
}
