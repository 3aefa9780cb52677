// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package report

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wingedpig/duphash/internal/model"
	"github.com/wingedpig/duphash/internal/stacktrace"
)

func fixture(name string) string {
	return filepath.Join("..", "..", "testdata", name)
}

func TestParse_EmptyInput(t *testing.T) {
	for _, input := range []string{"", "   \n\t"} {
		r, err := Parse([]byte(input))
		assert.Nil(t, r)

		var pe *ParseError
		require.True(t, errors.As(err, &pe))
		assert.Equal(t, "empty input", pe.Reason)
	}
}

func TestParse_ClosingBrace(t *testing.T) {
	r, err := Parse([]byte("}"))
	assert.Nil(t, r)

	var pe *ParseError
	require.True(t, errors.As(err, &pe))
	assert.True(t, strings.HasPrefix(pe.Reason, "Failed to parse JSON:"), pe.Reason)
	assert.Equal(t, "}", pe.Snippet)
	assert.Regexp(t, `Failed to parse JSON:.*}.*`, err.Error())
}

func TestParse_SnippetIsBounded(t *testing.T) {
	input := `{"ureport_version": 2, "problem": {"type": "core", "signal": 11, "executable": oops}}`
	_, err := Parse([]byte(input))

	var pe *ParseError
	require.True(t, errors.As(err, &pe))
	assert.Contains(t, pe.Snippet, "oops")
	assert.LessOrEqual(t, len(pe.Snippet), 2*snippetRadius+1)
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		reason  string
		snippet string
	}{
		{"not an object", `[1, 2]`, "Failed to parse JSON", "["},
		{"missing problem", `{"ureport_version": 2}`, "missing problem object", ""},
		{"null problem", `{"problem": null}`, "missing problem object", ""},
		{"problem not object", `{"problem": 5}`, "invalid problem object", "5"},
		{"missing type", `{"problem": {"component": "x"}}`, "missing problem type", ""},
		{"unknown type", `{"problem": {"type": "ruby"}}`, "unknown report type", "ruby"},
		{"invalid type", `{"problem": {"type": "invalid"}}`, "unknown report type", "invalid"},
		{"wrong field type", `{"ureport_version": "two", "problem": {"type": "core"}}`, `field "ureport_version"`, `"two"`},
		{"bad stacktrace", `{"problem": {"type": "core", "stacktrace": {"frames": []}}}`, "invalid core stacktrace", "{"},
		{"bad python frame", `{"problem": {"type": "python", "stacktrace": [{"file_line": 3}]}}`, "missing file_name", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := Parse([]byte(tt.input))
			assert.Nil(t, r)

			var pe *ParseError
			require.True(t, errors.As(err, &pe), "got %v", err)
			assert.Contains(t, pe.Reason, tt.reason)
			if tt.snippet != "" {
				assert.Contains(t, pe.Snippet, tt.snippet)
			}
		})
	}
}

func TestParse_CoreFixture(t *testing.T) {
	r, err := ParseFile(fixture("ureport-1"))
	require.NoError(t, err)

	assert.Equal(t, uint32(2), r.Version)
	assert.Equal(t, model.Core, r.Type)
	assert.Equal(t, "satyr", r.ReporterName)
	assert.Equal(t, "0.26", r.ReporterVersion)
	assert.False(t, r.UserRoot)
	assert.True(t, r.UserLocal)
	assert.Equal(t, "will-crash", r.Component)
	require.NotNil(t, r.OperatingSystem)
	assert.Equal(t, "fedora", r.OperatingSystem.Name)
	assert.Equal(t, "workstation", r.OperatingSystem.Variant)
	require.Len(t, r.Packages, 1)
	assert.Equal(t, "affected", r.Packages[0].Role)
	assert.Equal(t, "will_segfault killed by SIGSEGV", r.Reason())

	st, err := r.ExtractStacktrace()
	require.NoError(t, err)
	assert.Equal(t, model.Core, st.Type())
	assert.Len(t, st.Threads(), 2)
}

func TestParse_Deterministic(t *testing.T) {
	data, err := os.ReadFile(fixture("ureport-1"))
	require.NoError(t, err)

	a, err := Parse(data)
	require.NoError(t, err)
	b, err := Parse(data)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestParse_EveryFixtureType(t *testing.T) {
	tests := []struct {
		file   string
		want   model.ReportType
		reason string
	}{
		{"ureport-1", model.Core, "will_segfault killed by SIGSEGV"},
		{"ureport-python", model.Python, "ValueError in /usr/lib/python3.12/site-packages/mytool/core.py:88"},
		{"ureport-koops", model.KernelOops, "Kernel oops in nv_ioctl [nvidia]"},
		{"ureport-java", model.Java, "Exception java.lang.IllegalStateException occurred in App.java:7"},
		{"ureport-gdb", model.Gdb, "crash in do_work"},
	}

	for _, tt := range tests {
		t.Run(tt.file, func(t *testing.T) {
			r, err := ParseFile(fixture(tt.file))
			require.NoError(t, err)
			assert.Equal(t, tt.want, r.Type)
			assert.Equal(t, tt.reason, r.Reason())

			st, err := r.ExtractStacktrace()
			require.NoError(t, err)
			assert.Equal(t, tt.want, st.Type())

			_, err = stacktrace.FindCrashThread(st)
			assert.NoError(t, err)
		})
	}
}

func TestParse_UserSection(t *testing.T) {
	r, err := Parse([]byte(`{"user": {"root": true, "local": false}, "problem": {"type": "python", "stacktrace": []}}`))
	require.NoError(t, err)
	assert.True(t, r.UserRoot)
	assert.False(t, r.UserLocal)

	r, err = Parse([]byte(`{"problem": {"type": "python"}}`))
	require.NoError(t, err)
	assert.False(t, r.UserRoot)
	assert.True(t, r.UserLocal)
}

func TestParseFile_Missing(t *testing.T) {
	_, err := ParseFile(filepath.Join(t.TempDir(), "nope.json"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestParseFile_WrapsParseError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte("}"), 0644))

	_, err := ParseFile(path)
	var pe *ParseError
	require.True(t, errors.As(err, &pe))
	assert.Contains(t, err.Error(), path)
}

func TestExtractStacktrace_Independent(t *testing.T) {
	r, err := ParseFile(fixture("ureport-1"))
	require.NoError(t, err)

	first, err := r.ExtractStacktrace()
	require.NoError(t, err)
	second, err := r.ExtractStacktrace()
	require.NoError(t, err)

	threads := first.Threads()
	threads[1].Frames[0].BuildID = "mutated"
	assert.Equal(t, second.Threads(), r.stacktrace.Threads())
}

func TestExtractStacktrace_Errors(t *testing.T) {
	var nilReport *Report
	_, err := nilReport.ExtractStacktrace()
	assert.ErrorIs(t, err, stacktrace.ErrInvalidType)

	r, err := New(model.Core, nil)
	require.NoError(t, err)
	_, err = r.ExtractStacktrace()
	assert.ErrorIs(t, err, stacktrace.ErrNotFound)
	assert.Equal(t, "", r.Reason())

	mismatch := &Report{Type: model.Core, stacktrace: stacktrace.NewJavaStacktrace(nil)}
	_, err = mismatch.ExtractStacktrace()
	assert.ErrorIs(t, err, stacktrace.ErrInvalidType)

	bogus := &Report{Type: model.Invalid, stacktrace: stacktrace.NewJavaStacktrace(nil)}
	_, err = bogus.ExtractStacktrace()
	var selErr *stacktrace.SelectionError
	require.True(t, errors.As(err, &selErr))
	assert.Equal(t, model.Invalid, selErr.Type)
}

func TestNew(t *testing.T) {
	_, err := New(model.Invalid, nil)
	assert.ErrorIs(t, err, stacktrace.ErrInvalidType)

	_, err = New(model.Core, stacktrace.NewJavaStacktrace(nil))
	assert.Error(t, err)

	r, err := New(model.Java, stacktrace.NewJavaStacktrace(nil))
	require.NoError(t, err)
	assert.True(t, r.HasStacktrace())
	assert.True(t, r.UserLocal)
}

func TestReason_TypedNilStacktrace(t *testing.T) {
	r, err := New(model.Core, (*stacktrace.CoreStacktrace)(nil))
	require.NoError(t, err)
	assert.NotPanics(t, func() {
		assert.Equal(t, "", r.Reason())
	})
}
