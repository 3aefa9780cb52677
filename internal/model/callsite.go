// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package model

import "strings"

// CallSite matches a frame by function name. With Files set, the frame's
// source file or library must also contain one of them.
type CallSite struct {
	Function string
	Files    []string
}

// Matches reports whether f calls the site.
func (c CallSite) Matches(f Frame) bool {
	if f.Function != c.Function {
		return false
	}
	if len(c.Files) == 0 {
		return true
	}
	for _, file := range c.Files {
		if strings.Contains(f.SourceFile, file) || strings.Contains(f.Module, file) {
			return true
		}
	}
	return false
}

// ExitSites are the glibc routines that terminate the process.
var ExitSites = []CallSite{
	{"__run_exit_handlers", []string{"exit.c"}},
	{"raise", []string{"pt-raise.c", "libc.so", "libc-", "libpthread.so"}},
	{"__GI_raise", []string{"raise.c"}},
	{"exit", []string{"exit.c"}},
	{"abort", []string{"abort.c", "libc.so", "libc-"}},
	{"__GI_abort", []string{"abort.c"}},
	{"__chk_fail", []string{"chk_fail.c", "libc.so"}},
	{"__stack_chk_fail", []string{"stack_chk_fail.c", "libc.so"}},
	{"kill", []string{"syscall-template.S"}},
}

// ExitFrame returns the index of the outermost frame that calls one of
// ExitSites, or -1.
func (t Thread) ExitFrame() int {
	exit := -1
	for i, f := range t.Frames {
		for _, s := range ExitSites {
			if s.Matches(f) {
				exit = i
				break
			}
		}
	}
	return exit
}
