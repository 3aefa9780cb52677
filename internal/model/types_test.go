// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseReportType(t *testing.T) {
	tests := []struct {
		name    string
		want    ReportType
		wantErr bool
	}{
		{"core", Core, false},
		{"python", Python, false},
		{"kerneloops", KernelOops, false},
		{"java", Java, false},
		{"gdb", Gdb, false},
		{" Core ", Core, false},
		{"invalid", Invalid, true},
		{"ruby", Invalid, true},
		{"", Invalid, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseReportType(tt.name)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestReportType_StringRoundTrip(t *testing.T) {
	for _, rt := range ReportTypes {
		parsed, err := ParseReportType(rt.String())
		require.NoError(t, err)
		assert.Equal(t, rt, parsed)
		assert.True(t, rt.Valid())
	}
	assert.False(t, Invalid.Valid())
	assert.Equal(t, "invalid", ReportType(42).String())
}

func TestReportType_JSON(t *testing.T) {
	data, err := json.Marshal(struct {
		Type ReportType `json:"type"`
	}{KernelOops})
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"kerneloops"}`, string(data))

	var out struct {
		Type ReportType `json:"type"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"type":"java"}`), &out))
	assert.Equal(t, Java, out.Type)

	assert.Error(t, json.Unmarshal([]byte(`{"type":"cobol"}`), &out))
}

func TestThread_Clone(t *testing.T) {
	orig := Thread{
		ID:      "1",
		Crashed: true,
		Frames: []Frame{
			{Kind: Core, BuildID: "abc", Offset: 0x10},
			{Kind: Core, Function: "main"},
		},
	}

	dup := orig.Clone()
	dup.Frames[0].BuildID = "changed"

	assert.Equal(t, "abc", orig.Frames[0].BuildID)
	assert.Equal(t, orig.ID, dup.ID)
	assert.True(t, dup.Crashed)
}

func TestThread_Top(t *testing.T) {
	_, ok := Thread{}.Top()
	assert.False(t, ok)

	top, ok := Thread{Frames: []Frame{{Function: "inner"}, {Function: "outer"}}}.Top()
	require.True(t, ok)
	assert.Equal(t, "inner", top.Function)
}

func TestCloneThreads(t *testing.T) {
	assert.Nil(t, CloneThreads(nil))

	threads := []Thread{{ID: "a", Frames: []Frame{{Function: "f"}}}}
	dup := CloneThreads(threads)
	dup[0].Frames[0].Function = "g"
	assert.Equal(t, "f", threads[0].Frames[0].Function)
}
