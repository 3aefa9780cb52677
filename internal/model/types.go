// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package model defines the frame and thread containers shared by every
// report type.
package model

import (
	"fmt"
	"strings"
)

// ReportType identifies the source format of a crash report.
type ReportType int

const (
	Invalid ReportType = iota
	Core
	Python
	KernelOops
	Java
	Gdb
)

var reportTypeNames = map[ReportType]string{
	Invalid:    "invalid",
	Core:       "core",
	Python:     "python",
	KernelOops: "kerneloops",
	Java:       "java",
	Gdb:        "gdb",
}

// ReportTypes lists every valid report type in declaration order.
var ReportTypes = []ReportType{Core, Python, KernelOops, Java, Gdb}

// String returns the uReport name of the type.
func (t ReportType) String() string {
	if name, ok := reportTypeNames[t]; ok {
		return name
	}
	return "invalid"
}

// Valid reports whether t is one of the five supported report types.
func (t ReportType) Valid() bool {
	return t > Invalid && t <= Gdb
}

// ParseReportType maps a uReport type name to a ReportType.
func ParseReportType(name string) (ReportType, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for _, t := range ReportTypes {
		if reportTypeNames[t] == name {
			return t, nil
		}
	}
	return Invalid, fmt.Errorf("unknown report type %q", name)
}

// MarshalText implements encoding.TextMarshaler.
func (t ReportType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *ReportType) UnmarshalText(text []byte) error {
	parsed, err := ParseReportType(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// Frame is one stack entry. Which fields are set depends on Kind.
type Frame struct {
	Kind        ReportType `json:"kind" yaml:"kind"`
	Function    string     `json:"function,omitempty" yaml:"function,omitempty"`
	Module      string     `json:"module,omitempty" yaml:"module,omitempty"`     // binary, library, kernel module or class path
	BuildID     string     `json:"build_id,omitempty" yaml:"build_id,omitempty"` // core only
	Fingerprint string     `json:"fingerprint,omitempty" yaml:"fingerprint,omitempty"`
	Offset      uint64     `json:"offset" yaml:"offset"`                       // build-id offset, function offset or source line
	Address     uint64     `json:"address,omitempty" yaml:"address,omitempty"` // absolute, never hashed when normalizing
	SourceFile  string     `json:"source_file,omitempty" yaml:"source_file,omitempty"`
	SourceLine  uint32     `json:"source_line,omitempty" yaml:"source_line,omitempty"`

	SpecialFunction bool   `json:"special_function,omitempty" yaml:"special_function,omitempty"`
	SpecialFile     bool   `json:"special_file,omitempty" yaml:"special_file,omitempty"`
	Unreliable      bool   `json:"unreliable,omitempty" yaml:"unreliable,omitempty"`
	SignalHandler   bool   `json:"signal_handler,omitempty" yaml:"signal_handler,omitempty"`
	Exception       bool   `json:"exception,omitempty" yaml:"exception,omitempty"`
	Native          bool   `json:"native,omitempty" yaml:"native,omitempty"`
	Message         string `json:"message,omitempty" yaml:"message,omitempty"`
	FunctionType    string `json:"function_type,omitempty" yaml:"function_type,omitempty"` // gdb return type
}

// Thread is an ordered sequence of frames, innermost frame first.
type Thread struct {
	ID      string  `json:"id,omitempty" yaml:"id,omitempty"`
	Crashed bool    `json:"crashed,omitempty" yaml:"crashed,omitempty"`
	Frames  []Frame `json:"frames" yaml:"frames"`
}

// Clone returns a deep copy of the thread.
func (t Thread) Clone() Thread {
	out := t
	if t.Frames != nil {
		out.Frames = make([]Frame, len(t.Frames))
		copy(out.Frames, t.Frames)
	}
	return out
}

// CloneThreads deep-copies a thread list.
func CloneThreads(threads []Thread) []Thread {
	if threads == nil {
		return nil
	}
	out := make([]Thread, len(threads))
	for i, t := range threads {
		out[i] = t.Clone()
	}
	return out
}

// Top returns the innermost frame, or false when the thread is empty.
func (t Thread) Top() (Frame, bool) {
	if len(t.Frames) == 0 {
		return Frame{}, false
	}
	return t.Frames[0], true
}
