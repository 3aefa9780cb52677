// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package report parses uReport documents into typed reports.
package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"github.com/wingedpig/duphash/internal/model"
	"github.com/wingedpig/duphash/internal/stacktrace"
)

// OperatingSystem describes the system the crash happened on.
type OperatingSystem struct {
	Name         string `json:"name,omitempty" yaml:"name,omitempty"`
	Version      string `json:"version,omitempty" yaml:"version,omitempty"`
	Architecture string `json:"architecture,omitempty" yaml:"architecture,omitempty"`
	CPE          string `json:"cpe,omitempty" yaml:"cpe,omitempty"`
	Uptime       uint64 `json:"uptime,omitempty" yaml:"uptime,omitempty"`
	Desktop      string `json:"desktop,omitempty" yaml:"desktop,omitempty"`
	Variant      string `json:"variant,omitempty" yaml:"variant,omitempty"`
}

// Package is one installed package related to the crash.
type Package struct {
	Name         string `json:"name" yaml:"name"`
	Epoch        uint32 `json:"epoch,omitempty" yaml:"epoch,omitempty"`
	Version      string `json:"version,omitempty" yaml:"version,omitempty"`
	Release      string `json:"release,omitempty" yaml:"release,omitempty"`
	Architecture string `json:"architecture,omitempty" yaml:"architecture,omitempty"`
	InstallTime  uint64 `json:"install_time,omitempty" yaml:"install_time,omitempty"`
	Role         string `json:"package_role,omitempty" yaml:"package_role,omitempty"`
}

// Report is a parsed uReport. It owns its stacktrace; callers that keep a
// stacktrace beyond the report use ExtractStacktrace.
type Report struct {
	Version         uint32
	Type            model.ReportType
	ReporterName    string
	ReporterVersion string
	UserRoot        bool
	UserLocal       bool
	OperatingSystem *OperatingSystem
	Component       string
	Packages        []Package

	stacktrace stacktrace.Stacktrace
}

type userJSON struct {
	Root  *bool `json:"root"`
	Local *bool `json:"local"`
}

type reporterJSON struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

type reportJSON struct {
	Version  uint32           `json:"ureport_version"`
	Reporter *reporterJSON    `json:"reporter"`
	OS       *OperatingSystem `json:"os"`
	Packages []Package        `json:"packages"`
	User     *userJSON        `json:"user"`
	Problem  json.RawMessage  `json:"problem"`
}

type problemJSON struct {
	Type      *string   `json:"type"`
	Component string    `json:"component"`
	User      *userJSON `json:"user"`
}

// New builds a report around st. The stacktrace type must match t.
func New(t model.ReportType, st stacktrace.Stacktrace) (*Report, error) {
	if !t.Valid() {
		return nil, &stacktrace.SelectionError{Type: t, Err: stacktrace.ErrInvalidType}
	}
	if st != nil && st.Type() != t {
		return nil, fmt.Errorf("stacktrace type %s does not match report type %s", st.Type(), t)
	}
	return &Report{Type: t, UserLocal: true, stacktrace: st}, nil
}

// Parse decodes a uReport. On failure it returns a *ParseError and no report.
func Parse(raw []byte) (*Report, error) {
	data := bytes.TrimSpace(raw)
	if len(data) == 0 {
		return nil, &ParseError{Reason: "empty input"}
	}

	var doc reportJSON
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, jsonError(data, err)
	}
	if len(doc.Problem) == 0 || bytes.Equal(doc.Problem, []byte("null")) {
		return nil, &ParseError{Reason: "missing problem object"}
	}

	var problem problemJSON
	if err := json.Unmarshal(doc.Problem, &problem); err != nil {
		pe := jsonError(doc.Problem, err)
		pe.Reason = "invalid problem object: " + pe.Reason
		return nil, pe
	}
	if problem.Type == nil {
		return nil, &ParseError{Reason: "missing problem type"}
	}
	rt, err := model.ParseReportType(*problem.Type)
	if err != nil {
		return nil, &ParseError{Reason: "unknown report type", Snippet: *problem.Type, Err: err}
	}

	st, err := stacktrace.Decode(rt, doc.Problem)
	if err != nil {
		pe := &ParseError{Reason: fmt.Sprintf("invalid %s stacktrace", rt), Err: err}
		if inner := jsonError(doc.Problem, err); inner.Snippet != "" {
			pe.Reason += ": " + inner.Reason
			pe.Snippet = inner.Snippet
		} else {
			pe.Reason += ": " + err.Error()
		}
		return nil, pe
	}

	r := &Report{
		Version:         doc.Version,
		Type:            rt,
		UserLocal:       true,
		OperatingSystem: doc.OS,
		Component:       problem.Component,
		Packages:        doc.Packages,
		stacktrace:      st,
	}
	if doc.Reporter != nil {
		r.ReporterName = doc.Reporter.Name
		r.ReporterVersion = doc.Reporter.Version
	}
	for _, u := range []*userJSON{problem.User, doc.User} {
		if u == nil {
			continue
		}
		if u.Root != nil {
			r.UserRoot = *u.Root
		}
		if u.Local != nil {
			r.UserLocal = *u.Local
		}
	}
	return r, nil
}

// ParseFile reads and parses the uReport stored at path.
func ParseFile(path string) (*Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read report: %w", err)
	}
	r, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return r, nil
}

// HasStacktrace reports whether the report carries a stacktrace.
func (r *Report) HasStacktrace() bool {
	return r != nil && r.stacktrace != nil
}

// ExtractStacktrace returns an independent copy of the report's stacktrace.
func (r *Report) ExtractStacktrace() (stacktrace.Stacktrace, error) {
	if r == nil || !r.Type.Valid() {
		t := model.Invalid
		if r != nil {
			t = r.Type
		}
		return nil, &stacktrace.SelectionError{Type: t, Err: stacktrace.ErrInvalidType}
	}
	if r.stacktrace == nil {
		return nil, &stacktrace.SelectionError{Type: r.Type, Err: stacktrace.ErrNotFound}
	}
	if r.stacktrace.Type() != r.Type {
		return nil, &stacktrace.SelectionError{Type: r.Type, Err: stacktrace.ErrInvalidType}
	}
	return stacktrace.Clone(r.stacktrace)
}

// Reason returns a one-line description of the crash, or "" when the
// report has no stacktrace.
func (r *Report) Reason() string {
	if !r.HasStacktrace() {
		return ""
	}
	return r.stacktrace.Reason()
}
