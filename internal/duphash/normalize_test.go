// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package duphash

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/wingedpig/duphash/internal/model"
)

var rawFlags = Flags{NoNormalize: true}

func TestCleanFunction(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"main", "main"},
		{"  main  ", "main"},
		{"", ""},
		{"??", ""},
		{"<unknown>", ""},
		{"(null)", ""},
		{"libfoo.so!do_work", "do_work"},
		{"libsystem_c.dylib`abort", "abort"},
		{"tcp_v4_rcv.isra.0", "tcp_v4_rcv"},
		{"memcpy.constprop.3.cold", "memcpy"},
		{"foo.part.12", "foo"},
		{"handler.lto_priv.0", "handler"},
		{"ns::Widget::draw(int, char const*) const", "ns::Widget::draw"},
		{"std::vector<int, std::allocator<int> >::push_back(int const&)", "std::vector::push_back"},
		{"std::function<void ()>::operator()() const", "std::function::operator()"},
		{"Foo::operator()", "Foo::operator()"},
		{"Foo::operator<<(std::ostream&)", "Foo::operator<<"},
		{"Foo::operator->()", "Foo::operator->"},
		{"Foo::operator&", "Foo::operator&"},
		{"(anonymous namespace)::helper", "(anonymous namespace)::helper"},
		{"broken<template", "broken<template"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, CleanFunction(tt.in))
		})
	}
}

func TestNormalize_Core(t *testing.T) {
	tests := []struct {
		name  string
		frame model.Frame
		flags Flags
		want  string
	}{
		{"build id lowercased", model.Frame{BuildID: "ABCDEF", Function: "f"}, DefaultFlags, "abcdef"},
		{"build id raw", model.Frame{BuildID: "ABCDEF"}, rawFlags, "ABCDEF"},
		{"function fallback", model.Frame{Function: "f.isra.1"}, DefaultFlags, "f"},
		{"function raw", model.Frame{Function: "f.isra.1"}, rawFlags, "f.isra.1"},
		{"placeholder function", model.Frame{Function: "??", Fingerprint: "fp1"}, DefaultFlags, "fp1"},
		{"fingerprint", model.Frame{Fingerprint: "fp1"}, DefaultFlags, "fp1"},
		{"address normalized", model.Frame{Address: 0x7fff1234}, DefaultFlags, "??"},
		{"address raw", model.Frame{Address: 0x7fff1234}, rawFlags, "0x7fff1234"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.frame.Kind = model.Core
			got, ok := Normalize(tt.frame, tt.flags)
			assert.True(t, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalize_Python(t *testing.T) {
	frame := model.Frame{
		Kind:       model.Python,
		SourceFile: "/usr/lib/python3.12/site-packages/requests/api.py",
		Function:   "get",
		Offset:     73,
	}
	got, ok := Normalize(frame, DefaultFlags)
	assert.True(t, ok)
	assert.Equal(t, "requests/api.py:get", got)

	got, _ = Normalize(frame, rawFlags)
	assert.Equal(t, "/usr/lib/python3.12/site-packages/requests/api.py:get", got)

	special := model.Frame{Kind: model.Python, SourceFile: "string", SpecialFile: true, Function: "module", SpecialFunction: true}
	got, _ = Normalize(special, DefaultFlags)
	assert.Equal(t, "<string>:<module>", got)

	dist := model.Frame{Kind: model.Python, SourceFile: "/usr/lib/python3/dist-packages/apt/cache.py", Function: ""}
	got, _ = Normalize(dist, DefaultFlags)
	assert.Equal(t, "apt/cache.py:??", got)
}

func TestNormalize_Koops(t *testing.T) {
	withModule := model.Frame{Kind: model.KernelOops, Function: "nv_ioctl", Module: "nvidia"}
	plain := model.Frame{Kind: model.KernelOops, Function: "schedule.cold"}
	unreliable := model.Frame{Kind: model.KernelOops, Function: "wake_up_process", Unreliable: true}
	addressOnly := model.Frame{Kind: model.KernelOops, Address: 0xffffffff81000000}

	got, ok := Normalize(withModule, DefaultFlags)
	assert.True(t, ok)
	assert.Equal(t, "nv_ioctl [nvidia]", got)

	got, _ = Normalize(withModule, Flags{Normal: true, KoopsCompat: true})
	assert.Equal(t, "nv_ioctl nvidia", got)

	got, _ = Normalize(plain, DefaultFlags)
	assert.Equal(t, "schedule", got)

	got, _ = Normalize(plain, rawFlags)
	assert.Equal(t, "schedule.cold", got)

	got, ok = Normalize(unreliable, DefaultFlags)
	assert.True(t, ok)
	assert.Equal(t, "wake_up_process", got)

	_, ok = Normalize(unreliable, Flags{KoopsCompat: true})
	assert.False(t, ok)

	got, _ = Normalize(addressOnly, DefaultFlags)
	assert.Equal(t, "??", got)

	got, _ = Normalize(addressOnly, rawFlags)
	assert.Equal(t, "0xffffffff81000000", got)
}

func TestNormalize_Java(t *testing.T) {
	tests := []struct {
		name  string
		frame model.Frame
		flags Flags
		want  string
	}{
		{"plain", model.Frame{Function: "org.demo.App.main"}, DefaultFlags, "org.demo.App.main"},
		{"lambda", model.Frame{Function: "org.demo.App$$Lambda$14/0x0000000800c0b448.run"}, DefaultFlags, "org.demo.App$$Lambda.run"},
		{"hidden lambda", model.Frame{Function: "org.demo.App$$Lambda/0x00007f0a1c.accept"}, DefaultFlags, "org.demo.App$$Lambda.accept"},
		{"lambda raw", model.Frame{Function: "org.demo.App$$Lambda$14/1234.run"}, rawFlags, "org.demo.App$$Lambda$14/1234.run"},
		{"proxy", model.Frame{Function: "com.sun.proxy.$Proxy42.invoke"}, DefaultFlags, "com.sun.proxy.$Proxy.invoke"},
		{"class path and file", model.Frame{Module: "/opt/app.jar", SourceFile: "App.java"}, DefaultFlags, "/opt/app.jar/App.java"},
		{"file only", model.Frame{SourceFile: "App.java"}, DefaultFlags, "App.java"},
		{"nothing", model.Frame{}, DefaultFlags, "??"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.frame.Kind = model.Java
			got, ok := Normalize(tt.frame, tt.flags)
			assert.True(t, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalize_Gdb(t *testing.T) {
	got, _ := Normalize(model.Frame{Kind: model.Gdb, Function: "g_main_loop_run", Address: 0x7f00}, DefaultFlags)
	assert.Equal(t, "g_main_loop_run", got)

	got, _ = Normalize(model.Frame{Kind: model.Gdb, SignalHandler: true, Function: "<signal handler called>"}, DefaultFlags)
	assert.Equal(t, "<signal handler called>", got)

	got, _ = Normalize(model.Frame{Kind: model.Gdb, Function: "??", Address: 0x4005d4}, DefaultFlags)
	assert.Equal(t, "??", got)

	got, _ = Normalize(model.Frame{Kind: model.Gdb, Function: "??", Address: 0x4005d4}, rawFlags)
	assert.Equal(t, "??", got)

	got, _ = Normalize(model.Frame{Kind: model.Gdb, Address: 0x4005d4}, rawFlags)
	assert.Equal(t, "0x4005d4", got)
}

func TestNormalize_GdbFunctionType(t *testing.T) {
	typed := model.Frame{Kind: model.Gdb, Function: "std::string::c_str() const", FunctionType: "char const*"}
	untyped := model.Frame{Kind: model.Gdb, Function: "std::string::c_str() const"}

	got, _ := Normalize(typed, DefaultFlags)
	assert.Equal(t, "char const* std::string::c_str", got)

	got, _ = Normalize(typed, rawFlags)
	assert.Equal(t, "char const* std::string::c_str() const", got)

	assert.NotEqual(t,
		Serialize(model.Thread{Frames: []model.Frame{typed}}, 0, DefaultFlags),
		Serialize(model.Thread{Frames: []model.Frame{untyped}}, 0, DefaultFlags))
}

func TestNormalize_IgnoresAddressWhenNormalizing(t *testing.T) {
	a := model.Frame{Kind: model.Core, BuildID: "abc", Offset: 0x10, Address: 0x7f0000001000}
	b := model.Frame{Kind: model.Core, BuildID: "ABC", Offset: 0x10, Address: 0x5500000aa000}

	ta := Serialize(model.Thread{Frames: []model.Frame{a}}, 0, DefaultFlags)
	tb := Serialize(model.Thread{Frames: []model.Frame{b}}, 0, DefaultFlags)
	assert.Equal(t, ta, tb)
}

func TestNormalize_UnknownKind(t *testing.T) {
	got, ok := Normalize(model.Frame{Kind: model.Invalid, Address: 0x10}, DefaultFlags)
	assert.True(t, ok)
	assert.Equal(t, "??", got)
}
