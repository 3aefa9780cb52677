// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package stacktrace

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/wingedpig/duphash/internal/model"
)

type koopsFrameJSON struct {
	Address            uint64 `json:"address"`
	Reliable           *bool  `json:"reliable"`
	FunctionName       string `json:"function_name"`
	FunctionOffset     uint64 `json:"function_offset"`
	FunctionLength     uint64 `json:"function_length"`
	ModuleName         string `json:"module_name"`
	FromAddress        uint64 `json:"from_address"`
	FromFunctionName   string `json:"from_function_name"`
	FromFunctionOffset uint64 `json:"from_function_offset"`
	FromFunctionLength uint64 `json:"from_function_length"`
	FromModuleName     string `json:"from_module_name"`
	SpecialStack       string `json:"special_stack"`
}

type koopsProblemJSON struct {
	Version    string           `json:"version"`
	RawOops    string           `json:"raw_oops"`
	TaintFlags []string         `json:"taint_flags"`
	Modules    []string         `json:"modules"`
	Frames     []koopsFrameJSON `json:"frames"`
}

// KoopsStacktrace is a kernel oops. Its frames form one implicit thread.
type KoopsStacktrace struct {
	Version    string
	RawOops    string
	TaintFlags []string
	Modules    []string
	thread     model.Thread
}

// NewKoopsStacktrace wraps a frame list ordered innermost first.
func NewKoopsStacktrace(version string, frames []model.Frame) *KoopsStacktrace {
	return &KoopsStacktrace{
		Version: version,
		thread:  model.Thread{Crashed: true, Frames: frames}.Clone(),
	}
}

func decodeKoops(problem json.RawMessage) (Stacktrace, error) {
	var raw koopsProblemJSON
	if err := json.Unmarshal(problem, &raw); err != nil {
		return nil, decodeErr(model.KernelOops, err)
	}

	st := &KoopsStacktrace{
		Version:    raw.Version,
		RawOops:    raw.RawOops,
		TaintFlags: raw.TaintFlags,
		Modules:    raw.Modules,
		thread:     model.Thread{Crashed: true},
	}

	if raw.Frames == nil && raw.RawOops != "" {
		st.thread.Frames = ParseKoopsFrames(raw.RawOops)
		return st, nil
	}

	st.thread.Frames = make([]model.Frame, 0, len(raw.Frames))
	for _, f := range raw.Frames {
		reliable := f.Reliable == nil || *f.Reliable
		st.thread.Frames = append(st.thread.Frames, model.Frame{
			Kind:       model.KernelOops,
			Function:   f.FunctionName,
			Module:     f.ModuleName,
			Offset:     f.FunctionOffset,
			Address:    f.Address,
			Unreliable: !reliable,
		})
	}
	return st, nil
}

var (
	koopsTimestampRe = regexp.MustCompile(`^\s*(?:<\d+>)?\[\s*\d+\.\d+\]\s?`)
	koopsFrameRe     = regexp.MustCompile(`^\s*(?:\[<([0-9a-f]+)>\])?\s*(\?\s+)?([a-zA-Z0-9_.]+)\+0x([0-9a-f]+)/0x([0-9a-f]+)(?:\s+\[([a-zA-Z0-9_]+)\])?`)
	koopsRIPRe       = regexp.MustCompile(`\b(?:RIP|IP|EIP):\s*(?:[0-9a-f]{4}:)?(?:\[<([0-9a-f]+)>\]\s*)*([a-zA-Z0-9_.]+)\+0x([0-9a-f]+)/0x([0-9a-f]+)(?:\s+\[([a-zA-Z0-9_]+)\])?`)
)

// ParseKoopsFrames extracts frames from the text of a kernel oops. The
// faulting instruction comes first, followed by the Call Trace entries.
// Entries printed with a leading '?' are marked unreliable.
func ParseKoopsFrames(raw string) []model.Frame {
	var frames []model.Frame
	inTrace := false
	for _, line := range strings.Split(raw, "\n") {
		line = koopsTimestampRe.ReplaceAllString(strings.TrimRight(line, "\r"), "")

		if !inTrace {
			if m := koopsRIPRe.FindStringSubmatch(line); m != nil && len(frames) == 0 {
				frames = append(frames, koopsFrame(m[1], "", m[2], m[3], m[5]))
				continue
			}
			if strings.Contains(line, "Call Trace:") {
				inTrace = true
			}
			continue
		}

		trimmed := strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(trimmed, "Code:"),
			strings.Contains(trimmed, "end trace"),
			strings.HasPrefix(trimmed, "Modules linked in"):
			return frames
		case strings.HasPrefix(trimmed, "<") && strings.HasSuffix(trimmed, ">"):
			// <IRQ>, <EOI>, <TASK> stack markers
			continue
		}
		if m := koopsFrameRe.FindStringSubmatch(line); m != nil {
			frames = append(frames, koopsFrame(m[1], m[2], m[3], m[4], m[6]))
		}
	}
	return frames
}

func koopsFrame(address, questionable, function, offset, module string) model.Frame {
	f := model.Frame{
		Kind:       model.KernelOops,
		Function:   function,
		Module:     module,
		Unreliable: questionable != "",
	}
	f.Offset, _ = strconv.ParseUint(offset, 16, 64)
	if address != "" {
		f.Address, _ = strconv.ParseUint(address, 16, 64)
	}
	return f
}

func (s *KoopsStacktrace) Type() model.ReportType { return model.KernelOops }

func (s *KoopsStacktrace) Threads() []model.Thread {
	if s == nil {
		return nil
	}
	return []model.Thread{s.thread.Clone()}
}

func (s *KoopsStacktrace) CrashThread() (model.Thread, error) {
	if s == nil {
		return model.Thread{}, ErrInvalidType
	}
	return singleThread([]model.Thread{s.thread})
}

func (s *KoopsStacktrace) Duplicate() Stacktrace {
	if s == nil {
		return nil
	}
	dup := NewKoopsStacktrace(s.Version, s.thread.Frames)
	dup.RawOops = s.RawOops
	dup.TaintFlags = append([]string(nil), s.TaintFlags...)
	dup.Modules = append([]string(nil), s.Modules...)
	return dup
}

// Reason summarizes the oops from its first text line and the first
// reliable frame.
func (s *KoopsStacktrace) Reason() string {
	if s == nil {
		return ""
	}
	function, module := "<unknown>", ""
	for _, f := range s.thread.Frames {
		if f.Unreliable || f.Function == "" {
			continue
		}
		function, module = f.Function, f.Module
		break
	}

	var reason string
	first := s.firstLine()
	switch {
	case strings.Contains(first, "general protection fault: "):
		reason = "general protection fault in " + function
	case strings.Contains(first, "kernel paging request at"):
		reason = "kernel paging request at " + function
	case first != "":
		reason = first
	default:
		reason = "Kernel oops in " + function
	}
	if module != "" {
		reason += fmt.Sprintf(" [%s]", module)
	}
	return reason
}

func (s *KoopsStacktrace) firstLine() string {
	for _, line := range strings.Split(s.RawOops, "\n") {
		line = strings.TrimSpace(koopsTimestampRe.ReplaceAllString(line, ""))
		if line != "" {
			return line
		}
	}
	return ""
}
