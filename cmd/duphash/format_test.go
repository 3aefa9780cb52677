// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wingedpig/duphash/internal/batch"
)

func TestNewFormatter_Unknown(t *testing.T) {
	_, err := NewFormatter(&bytes.Buffer{}, &bytes.Buffer{}, "csv")
	assert.Error(t, err)
}

func TestFormatter_Text(t *testing.T) {
	var out, errOut bytes.Buffer
	f, err := NewFormatter(&out, &errOut, FormatText)
	require.NoError(t, err)

	require.NoError(t, f.FormatResults([]batch.Result{
		{Name: "a.json", Duphash: "abc"},
		{Name: "b.json", Error: "parse report: empty input"},
		{Name: "c.json", Duphash: "Thread\nf+0x1\n"},
	}))

	assert.Equal(t, "abc  a.json\n# c.json\nThread\nf+0x1\n", out.String())
	assert.Equal(t, "b.json: parse report: empty input\n", errOut.String())
}

func TestFormatter_JSONEmpty(t *testing.T) {
	var out bytes.Buffer
	f, err := NewFormatter(&out, &bytes.Buffer{}, FormatJSON)
	require.NoError(t, err)

	require.NoError(t, f.FormatResults(nil))
	assert.Equal(t, "[]\n", out.String())
}

func TestFormatter_FormatResult(t *testing.T) {
	var out bytes.Buffer
	f, err := NewFormatter(&out, &bytes.Buffer{}, FormatJSON)
	require.NoError(t, err)

	require.NoError(t, f.FormatResult(batch.Result{Name: "a.json", Type: "core", Duphash: "abc"}))
	assert.Equal(t, `{"name":"a.json","type":"core","duphash":"abc"}`+"\n", out.String())

	out.Reset()
	f, err = NewFormatter(&out, &bytes.Buffer{}, FormatYAML)
	require.NoError(t, err)
	require.NoError(t, f.FormatResult(batch.Result{Name: "a.json", Error: "boom"}))
	require.NoError(t, f.FormatResult(batch.Result{Name: "b.json", Duphash: "abc"}))
	assert.Equal(t, "---\nname: a.json\nerror: boom\n---\nname: b.json\nduphash: abc\n", out.String())
}
