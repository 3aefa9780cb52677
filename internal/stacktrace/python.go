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

type pythonFrameJSON struct {
	FileName        *string `json:"file_name"`
	SpecialFile     *string `json:"special_file"`
	FileLine        uint32  `json:"file_line"`
	FunctionName    *string `json:"function_name"`
	SpecialFunction *string `json:"special_function"`
	LineContents    string  `json:"line_contents"`
}

type pythonProblemJSON struct {
	ExceptionName string            `json:"exception_name"`
	Stacktrace    []pythonFrameJSON `json:"stacktrace"`
	Traceback     string            `json:"traceback"`
}

// PythonStacktrace is an uncaught Python exception. It always has exactly
// one thread.
type PythonStacktrace struct {
	ExceptionName string
	thread        model.Thread
}

// NewPythonStacktrace wraps a frame list ordered innermost first.
func NewPythonStacktrace(exception string, frames []model.Frame) *PythonStacktrace {
	return &PythonStacktrace{
		ExceptionName: exception,
		thread:        model.Thread{Crashed: true, Frames: frames}.Clone(),
	}
}

func decodePython(problem json.RawMessage) (Stacktrace, error) {
	var raw pythonProblemJSON
	if err := json.Unmarshal(problem, &raw); err != nil {
		return nil, decodeErr(model.Python, err)
	}

	if raw.Stacktrace == nil && raw.Traceback != "" {
		st, err := ParsePythonTraceback(raw.Traceback)
		if err != nil {
			return nil, decodeErr(model.Python, err)
		}
		if raw.ExceptionName != "" {
			st.ExceptionName = raw.ExceptionName
		}
		return st, nil
	}

	frames := make([]model.Frame, 0, len(raw.Stacktrace))
	for i, f := range raw.Stacktrace {
		frame := model.Frame{
			Kind:       model.Python,
			Offset:     uint64(f.FileLine),
			SourceLine: f.FileLine,
			Message:    f.LineContents,
		}
		switch {
		case f.FileName != nil:
			frame.SourceFile = *f.FileName
		case f.SpecialFile != nil:
			frame.SourceFile = *f.SpecialFile
			frame.SpecialFile = true
		default:
			return nil, decodeErr(model.Python, fmt.Errorf("frame %d: missing file_name", i))
		}
		switch {
		case f.FunctionName != nil:
			frame.Function = *f.FunctionName
		case f.SpecialFunction != nil:
			frame.Function = *f.SpecialFunction
			frame.SpecialFunction = true
		}
		frames = append(frames, frame)
	}
	return &PythonStacktrace{
		ExceptionName: raw.ExceptionName,
		thread:        model.Thread{Crashed: true, Frames: frames},
	}, nil
}

var (
	pyHeaderRe = regexp.MustCompile(`(?m)^Traceback \(most recent call last\):\s*$`)
	pyFrameRe  = regexp.MustCompile(`^\s*File "([^"]*)", line (\d+)(?:, in (.+))?$`)
	pyExcRe    = regexp.MustCompile(`^([A-Za-z_][\w.]*)(?::|$)`)
)

// ParsePythonTraceback parses the text printed by the interpreter for an
// uncaught exception. Frames are reversed so the innermost comes first.
func ParsePythonTraceback(text string) (*PythonStacktrace, error) {
	loc := pyHeaderRe.FindStringIndex(text)
	if loc == nil {
		return nil, fmt.Errorf("traceback header not found")
	}

	var frames []model.Frame
	var exception string
	lines := strings.Split(text[loc[1]:], "\n")
	for i := 0; i < len(lines); i++ {
		line := strings.TrimRight(lines[i], "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}

		if m := pyFrameRe.FindStringSubmatch(line); m != nil {
			lineNo, err := strconv.ParseUint(m[2], 10, 32)
			if err != nil {
				return nil, fmt.Errorf("bad line number %q: %w", m[2], err)
			}
			frame := model.Frame{
				Kind:       model.Python,
				Offset:     lineNo,
				SourceLine: uint32(lineNo),
			}
			frame.SourceFile, frame.SpecialFile = unwrapSpecial(m[1])
			if m[3] == "" {
				// SyntaxError frames carry no function name.
				frame.Function, frame.SpecialFunction = "syntax", true
			} else {
				frame.Function, frame.SpecialFunction = unwrapSpecial(m[3])
			}
			if i+1 < len(lines) && strings.HasPrefix(lines[i+1], "    ") && !pyFrameRe.MatchString(lines[i+1]) {
				frame.Message = strings.TrimSpace(lines[i+1])
				i++
			}
			frames = append(frames, frame)
			continue
		}

		// Caret lines under SyntaxError source.
		if strings.Trim(line, " ^") == "" {
			continue
		}
		if len(frames) > 0 && !strings.HasPrefix(line, " ") {
			if m := pyExcRe.FindStringSubmatch(line); m != nil {
				exception = m[1]
				break
			}
		}
	}

	if len(frames) == 0 {
		return nil, fmt.Errorf("no frames in traceback")
	}
	if exception == "" {
		return nil, fmt.Errorf("exception name not found")
	}

	for l, r := 0, len(frames)-1; l < r; l, r = l+1, r-1 {
		frames[l], frames[r] = frames[r], frames[l]
	}
	return &PythonStacktrace{
		ExceptionName: exception,
		thread:        model.Thread{Crashed: true, Frames: frames},
	}, nil
}

// unwrapSpecial strips the angle brackets of markers like <module>.
func unwrapSpecial(s string) (string, bool) {
	if len(s) >= 2 && s[0] == '<' && s[len(s)-1] == '>' {
		return s[1 : len(s)-1], true
	}
	return s, false
}

func (s *PythonStacktrace) Type() model.ReportType { return model.Python }

func (s *PythonStacktrace) Threads() []model.Thread {
	if s == nil {
		return nil
	}
	return []model.Thread{s.thread.Clone()}
}

func (s *PythonStacktrace) CrashThread() (model.Thread, error) {
	if s == nil {
		return model.Thread{}, ErrInvalidType
	}
	return singleThread([]model.Thread{s.thread})
}

func (s *PythonStacktrace) Duplicate() Stacktrace {
	if s == nil {
		return nil
	}
	return NewPythonStacktrace(s.ExceptionName, s.thread.Frames)
}

func (s *PythonStacktrace) Reason() string {
	if s == nil {
		return ""
	}
	exc := "Unknown error"
	if s.ExceptionName != "" {
		exc = s.ExceptionName
	}
	file, line := "<unknown>", uint32(0)
	if top, ok := s.thread.Top(); ok {
		file, line = top.SourceFile, top.SourceLine
	}
	return fmt.Sprintf("%s in %s:%d", exc, file, line)
}
