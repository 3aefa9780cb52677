// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package duphash

import (
	"strings"

	"github.com/wingedpig/duphash/internal/model"
)

func site(function string, files ...string) model.CallSite {
	return model.CallSite{Function: function, Files: files}
}

func matchesAny(f model.Frame, sites []model.CallSite) bool {
	for _, s := range sites {
		if s.Matches(f) {
			return true
		}
	}
	return false
}

// glibcReportSites report a failure detected elsewhere. The frame and
// everything it called are dropped.
var glibcReportSites = []model.CallSite{
	site("__assert_fail"),
	site("__assert_fail_base"),
	site("__chk_fail"),
	site("__longjmp_chk"),
	site("__malloc_assert"),
	site("__strcat_chk"),
	site("__strcpy_chk"),
	site("__strncpy_chk"),
	site("__vsnprintf_chk"),
	site("___vsnprintf_chk"),
	site("__snprintf_chk"),
	site("___snprintf_chk"),
	site("__vasprintf_chk"),
	site("malloc_consolidate", "malloc.c", "libc"),
	site("malloc_printerr", "malloc.c", "libc"),
	site("_int_malloc", "malloc.c", "libc"),
	site("_int_free", "malloc.c", "libc"),
	site("_int_realloc", "malloc.c", "libc"),
	site("_int_memalign", "malloc.c"),
	site("__libc_free", "malloc.c"),
	site("__libc_malloc", "malloc.c"),
	site("__libc_memalign", "malloc.c"),
	site("__libc_realloc", "malloc.c"),
	site("__posix_memalign", "malloc.c"),
	site("__libc_calloc", "malloc.c"),
	site("JVM_handle_linux_signal", "os_linux_x86.cpp", "libjvm.so"),
}

// glibcStartupSites are process and thread entry points.
var glibcStartupSites = []model.CallSite{
	site("_start"),
	site("__libc_start_main", "libc"),
	site("clone", "clone.S", "libc"),
	site("start_thread", "pthread_create.c", "libpthread"),
}

// glibcArchVariants maps CPU-specific string routine names to the generic
// routine they implement.
var glibcArchVariants = func() map[string]string {
	routines := []string{
		"memchr", "memcmp", "memcpy", "memmove", "memset", "rawmemchr",
		"strcasecmp", "strcasecmp_l", "strcat", "strchr", "strchrnul",
		"strcmp", "strcpy", "strcspn", "strlen", "strncmp", "strncpy",
		"strpbrk", "strrchr", "strspn", "strstr", "strtok",
	}
	suffixes := []string{"_sse2", "_sse2_bsf", "_ssse3", "_ssse3_rep", "_sse42", "_ia32"}
	variants := make(map[string]string, len(routines)*len(suffixes))
	for _, r := range routines {
		for _, s := range suffixes {
			variants["__"+r+s] = r
		}
	}
	return variants
}()

// koopsNoiseFunctions are core kernel helpers that show up in unrelated
// oopses. Frames from loadable modules are never dropped.
var koopsNoiseFunctions = map[string]bool{
	"do_softirq":              true,
	"do_vfs_ioctl":            true,
	"dump_stack":              true,
	"flush_kthread_worker":    true,
	"gs_change":               true,
	"irq_exit":                true,
	"kernel_thread_helper":    true,
	"kthread":                 true,
	"process_one_work":        true,
	"system_call_fastpath":    true,
	"warn_slowpath_common":    true,
	"warn_slowpath_fmt":       true,
	"warn_slowpath_fmt_taint": true,
	"warn_slowpath_null":      true,
	"worker_thread":           true,
}

// threadNormalizers rewrite a whole thread before frame identities are
// rendered. Python and Java threads have no thread-level rules.
var threadNormalizers = map[model.ReportType]func([]model.Frame) []model.Frame{
	model.Core:       normalizeGlibcFrames,
	model.KernelOops: normalizeKoopsFrames,
	model.Gdb:        normalizeGdbFrames,
}

// NormalizeThread drops and renames frames that do not describe the
// failure itself, e.g. glibc abort machinery or kernel warning helpers.
// The input thread is not modified.
func NormalizeThread(thread model.Thread) model.Thread {
	out := thread.Clone()
	if len(out.Frames) == 0 {
		return out
	}
	if fn, found := threadNormalizers[out.Frames[0].Kind]; found {
		out.Frames = fn(out.Frames)
	}
	return out
}

func normalizeKoopsFrames(frames []model.Frame) []model.Frame {
	out := frames[:0]
	for _, f := range frames {
		if i := strings.IndexByte(f.Function, '.'); i >= 0 {
			f.Function = f.Function[:i]
		}
		if f.Module == "" && koopsNoiseFunctions[f.Function] {
			continue
		}
		out = append(out, f)
	}
	return out
}

func normalizeGlibcFrames(frames []model.Frame) []model.Frame {
	// The outermost exit call and everything it called are dropped.
	frames = frames[model.Thread{Frames: frames}.ExitFrame()+1:]

	out := make([]model.Frame, 0, len(frames))
	for _, f := range frames {
		if generic, found := glibcArchVariants[f.Function]; found &&
			(strings.Contains(f.SourceFile, "/sysdeps") || strings.Contains(f.Module, "libc.so")) {
			f.Function = generic
		}
		f.Function = strings.TrimPrefix(f.Function, "__GI_")

		switch {
		case matchesAny(f, glibcReportSites):
			out = out[:0]
		case matchesAny(f, glibcStartupSites):
			// dropped
		default:
			out = append(out, f)
		}
	}
	return out
}

func normalizeGdbFrames(frames []model.Frame) []model.Frame {
	frames = normalizeGlibcFrames(frames)

	if n := len(frames); n > 0 && isUnknownZeroFrame(frames[0]) {
		frames = frames[1:]
	}
	if n := len(frames); n > 0 && isUnknownZeroFrame(frames[n-1]) {
		frames = frames[:n-1]
	}

	out := frames[:0]
	for _, f := range frames {
		if n := len(out); n > 0 && !placeholders[f.Function] && out[n-1].Function == f.Function {
			continue
		}
		out = append(out, f)
	}
	return out
}

func isUnknownZeroFrame(f model.Frame) bool {
	return f.Address == 0 && !f.SignalHandler && placeholders[f.Function]
}
