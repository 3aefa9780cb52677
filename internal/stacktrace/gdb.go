// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package stacktrace

import (
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/wingedpig/duphash/internal/model"
)

const signalHandlerFrame = "<signal handler called>"

type gdbFrameJSON struct {
	FunctionName        string `json:"function_name"`
	FunctionType        string `json:"function_type"`
	Address             uint64 `json:"address"`
	LibraryName         string `json:"library_name"`
	SourceFile          string `json:"source_file"`
	SourceLine          uint32 `json:"source_line"`
	SignalHandlerCalled bool   `json:"signal_handler_called"`
}

type gdbThreadJSON struct {
	Number      uint32         `json:"number"`
	CrashThread bool           `json:"crash_thread"`
	Frames      []gdbFrameJSON `json:"frames"`
}

type gdbProblemJSON struct {
	CrashTID  *uint32         `json:"crash_tid"`
	Threads   []gdbThreadJSON `json:"threads"`
	Backtrace string          `json:"backtrace"`
}

// GdbStacktrace is a debugger backtrace of every thread in a process.
type GdbStacktrace struct {
	// CrashTID is the debugger's thread number of the current thread, when known.
	CrashTID   *uint32
	crashFrame *model.Frame
	threads    []model.Thread
}

// NewGdbStacktrace wraps already-built threads.
func NewGdbStacktrace(crashTID *uint32, threads []model.Thread) *GdbStacktrace {
	st := &GdbStacktrace{threads: model.CloneThreads(threads)}
	if crashTID != nil {
		tid := *crashTID
		st.CrashTID = &tid
	}
	return st
}

func decodeGdb(problem json.RawMessage) (Stacktrace, error) {
	var raw gdbProblemJSON
	if err := json.Unmarshal(problem, &raw); err != nil {
		return nil, decodeErr(model.Gdb, err)
	}

	if raw.Threads == nil && raw.Backtrace != "" {
		st, err := ParseGdbBacktrace(raw.Backtrace)
		if err != nil {
			return nil, decodeErr(model.Gdb, err)
		}
		if raw.CrashTID != nil {
			st.CrashTID = raw.CrashTID
		}
		return st, nil
	}

	st := &GdbStacktrace{
		CrashTID: raw.CrashTID,
		threads:  make([]model.Thread, 0, len(raw.Threads)),
	}
	for _, t := range raw.Threads {
		thread := model.Thread{
			ID:      strconv.FormatUint(uint64(t.Number), 10),
			Crashed: t.CrashThread,
			Frames:  make([]model.Frame, 0, len(t.Frames)),
		}
		for _, f := range t.Frames {
			frame := model.Frame{
				Kind:          model.Gdb,
				Function:      f.FunctionName,
				FunctionType:  f.FunctionType,
				Module:        f.LibraryName,
				Address:       f.Address,
				SourceFile:    f.SourceFile,
				SourceLine:    f.SourceLine,
				SignalHandler: f.SignalHandlerCalled,
			}
			if frame.SignalHandler && frame.Function == "" {
				frame.Function = signalHandlerFrame
			}
			thread.Frames = append(thread.Frames, frame)
		}
		st.threads = append(st.threads, thread)
	}
	return st, nil
}

var (
	gdbThreadRe     = regexp.MustCompile(`^Thread (\d+) \(`)
	gdbFrameRe      = regexp.MustCompile(`^#(\d+)\s+(?:0x([0-9a-fA-F]+) in )?(.*)$`)
	gdbSourceRe     = regexp.MustCompile(`\s+at\s+(\S+):(\d+)\s*$`)
	gdbLibraryRe    = regexp.MustCompile(`\s+from\s+(\S+)\s*$`)
	gdbCurrentTIDRe = regexp.MustCompile(`\[Current thread is (\d+)`)
)

// ParseGdbBacktrace parses the output of `thread apply all backtrace`.
// Frames printed before the first thread header form the crash frame. A
// bare `backtrace` with no thread headers yields one crashed thread.
func ParseGdbBacktrace(text string) (*GdbStacktrace, error) {
	st := &GdbStacktrace{}
	var lead []model.Frame
	current := -1

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimRight(line, "\r")

		if m := gdbCurrentTIDRe.FindStringSubmatch(line); m != nil {
			if tid, err := strconv.ParseUint(m[1], 10, 32); err == nil {
				v := uint32(tid)
				st.CrashTID = &v
			}
			continue
		}
		if m := gdbThreadRe.FindStringSubmatch(line); m != nil {
			st.threads = append(st.threads, model.Thread{ID: m[1]})
			current = len(st.threads) - 1
			continue
		}
		m := gdbFrameRe.FindStringSubmatch(strings.TrimSpace(line))
		if m == nil {
			continue
		}
		frame := parseGdbFrame(m[2], m[3])
		if current < 0 {
			lead = append(lead, frame)
		} else {
			st.threads[current].Frames = append(st.threads[current].Frames, frame)
		}
	}

	switch {
	case len(st.threads) == 0 && len(lead) == 0:
		return nil, fmt.Errorf("no frames in backtrace")
	case len(st.threads) == 0:
		st.threads = []model.Thread{{ID: "1", Crashed: true, Frames: lead}}
	case len(lead) > 0:
		top := lead[0]
		st.crashFrame = &top
	}
	return st, nil
}

func parseGdbFrame(address, rest string) model.Frame {
	frame := model.Frame{Kind: model.Gdb}
	if address != "" {
		frame.Address, _ = strconv.ParseUint(address, 16, 64)
	}
	if strings.HasPrefix(rest, signalHandlerFrame) {
		frame.Function = signalHandlerFrame
		frame.SignalHandler = true
		return frame
	}
	if m := gdbLibraryRe.FindStringSubmatch(rest); m != nil {
		frame.Module = m[1]
		rest = rest[:len(rest)-len(m[0])]
	}
	if m := gdbSourceRe.FindStringSubmatch(rest); m != nil {
		frame.SourceFile = m[1]
		line, _ := strconv.ParseUint(m[2], 10, 32)
		frame.SourceLine = uint32(line)
		rest = rest[:len(rest)-len(m[0])]
	}
	if i := strings.Index(rest, " ("); i >= 0 {
		rest = rest[:i]
	}
	frame.Function = strings.TrimSpace(rest)
	return frame
}

func (s *GdbStacktrace) Type() model.ReportType { return model.Gdb }

func (s *GdbStacktrace) Threads() []model.Thread {
	if s == nil {
		return nil
	}
	return model.CloneThreads(s.threads)
}

// CrashThread tries, in order: the flagged thread, the only thread, the
// thread numbered CrashTID, then the threads whose top frame matches the
// crash frame. Among several such threads the one that called a glibc exit
// routine is chosen if it is unique, otherwise the lowest numbered one.
func (s *GdbStacktrace) CrashThread() (model.Thread, error) {
	if s == nil {
		return model.Thread{}, ErrInvalidType
	}
	for _, t := range s.threads {
		if t.Crashed {
			return t.Clone(), nil
		}
	}
	if len(s.threads) == 1 {
		return s.threads[0].Clone(), nil
	}
	if s.CrashTID != nil {
		want := strconv.FormatUint(uint64(*s.CrashTID), 10)
		for _, t := range s.threads {
			if t.ID == want {
				return t.Clone(), nil
			}
		}
	}
	if s.crashFrame == nil || s.crashFrame.Function == "" {
		return model.Thread{}, ErrNotFound
	}

	var matching []model.Thread
	for _, t := range s.threads {
		if top, ok := t.Top(); ok && top.Function == s.crashFrame.Function {
			matching = append(matching, t)
		}
	}
	switch len(matching) {
	case 0:
		return model.Thread{}, ErrNotFound
	case 1:
		return matching[0].Clone(), nil
	}

	var aborted []model.Thread
	for _, t := range matching {
		if t.ExitFrame() >= 0 {
			aborted = append(aborted, t)
		}
	}
	if len(aborted) == 1 {
		return aborted[0].Clone(), nil
	}

	sort.SliceStable(matching, func(i, j int) bool {
		return lessThreadID(matching[i].ID, matching[j].ID)
	})
	return matching[0].Clone(), nil
}

// lessThreadID orders debugger thread numbers numerically, falling back
// to string order for ids that are not numbers.
func lessThreadID(a, b string) bool {
	na, errA := strconv.ParseUint(a, 10, 32)
	nb, errB := strconv.ParseUint(b, 10, 32)
	if errA == nil && errB == nil {
		return na < nb
	}
	return a < b
}

func (s *GdbStacktrace) Duplicate() Stacktrace {
	if s == nil {
		return nil
	}
	dup := NewGdbStacktrace(s.CrashTID, s.threads)
	if s.crashFrame != nil {
		frame := *s.crashFrame
		dup.crashFrame = &frame
	}
	return dup
}

func (s *GdbStacktrace) Reason() string {
	if s == nil {
		return ""
	}
	function := "<unknown>"
	if thread, err := s.CrashThread(); err == nil {
		for _, f := range thread.Frames {
			if f.Function != "" && f.Function != "??" && !f.SignalHandler {
				function = f.Function
				break
			}
		}
	}
	return "crash in " + function
}
