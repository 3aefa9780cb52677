// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package duphash

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/wingedpig/duphash/internal/model"
)

const unknownSymbol = "??"

// placeholders are symbol texts that mean "no symbol".
var placeholders = map[string]bool{
	"":          true,
	"??":        true,
	"<unknown>": true,
	"(null)":    true,
}

var (
	cloneSuffixRe  = regexp.MustCompile(`(?:\.(?:isra|constprop|part|cold|lto_priv|llvm)(?:\.\d+)?)+$`)
	javaLambdaRe   = regexp.MustCompile(`\$\$Lambda(?:\$\d+)?/(?:0x[0-9a-fA-F]+|\d+)`)
	javaProxyRe    = regexp.MustCompile(`\$Proxy\d+`)
	cvQualifierRe  = regexp.MustCompile(`\s*(?:\bconst\b|\bvolatile\b|&&|&)\s*$`)
	pythonVendorRe = regexp.MustCompile(`^.*/(?:site|dist)-packages/`)
)

// normalizer renders the identity of one frame kind. ok=false drops the
// frame from the canonical text.
type normalizer func(f model.Frame, flags Flags) (identity string, offset uint64, ok bool)

var normalizers = map[model.ReportType]normalizer{
	model.Core:       normalizeCore,
	model.Python:     normalizePython,
	model.KernelOops: normalizeKoops,
	model.Java:       normalizeJava,
	model.Gdb:        normalizeGdb,
}

// Normalize returns the canonical identity token for f. The second result
// is false when the frame must be skipped under flags.
func Normalize(f model.Frame, flags Flags) (string, bool) {
	identity, _, ok := normalizeFrame(f, flags)
	return identity, ok
}

func normalizeFrame(f model.Frame, flags Flags) (string, uint64, bool) {
	fn, found := normalizers[f.Kind]
	if !found {
		return addressIdentity(f.Address, flags), f.Offset, true
	}
	return fn(f, flags)
}

func normalizeCore(f model.Frame, flags Flags) (string, uint64, bool) {
	if !flags.normalizing() {
		switch {
		case f.BuildID != "":
			return f.BuildID, f.Offset, true
		case f.Function != "":
			return f.Function, f.Offset, true
		case f.Fingerprint != "":
			return f.Fingerprint, f.Offset, true
		}
		return addressIdentity(f.Address, flags), f.Offset, true
	}

	if id := strings.ToLower(strings.TrimSpace(f.BuildID)); id != "" {
		return id, f.Offset, true
	}
	if fn := CleanFunction(f.Function); fn != "" {
		return fn, f.Offset, true
	}
	if fp := strings.TrimSpace(f.Fingerprint); fp != "" {
		return fp, f.Offset, true
	}
	return addressIdentity(f.Address, flags), f.Offset, true
}

func normalizePython(f model.Frame, flags Flags) (string, uint64, bool) {
	file, function := f.SourceFile, f.Function
	if flags.normalizing() {
		if !f.SpecialFile {
			file = pythonVendorRe.ReplaceAllString(file, "")
		}
		if placeholders[function] {
			function = unknownSymbol
		}
	}
	if f.SpecialFile {
		file = "<" + file + ">"
	}
	if f.SpecialFunction {
		function = "<" + function + ">"
	}
	return file + ":" + function, f.Offset, true
}

func normalizeKoops(f model.Frame, flags Flags) (string, uint64, bool) {
	if flags.KoopsCompat && f.Unreliable {
		return "", 0, false
	}

	function := f.Function
	if flags.normalizing() {
		function = CleanFunction(function)
	}
	if function == "" {
		return addressIdentity(f.Address, flags), f.Offset, true
	}
	if f.Module == "" {
		return function, f.Offset, true
	}
	if flags.KoopsCompat {
		return function + " " + f.Module, f.Offset, true
	}
	return function + " [" + f.Module + "]", f.Offset, true
}

func normalizeJava(f model.Frame, flags Flags) (string, uint64, bool) {
	name := f.Function
	if flags.normalizing() {
		name = strings.TrimSpace(name)
		name = javaLambdaRe.ReplaceAllString(name, "$$$$Lambda")
		name = javaProxyRe.ReplaceAllString(name, "$$Proxy")
	}
	if name != "" {
		return name, f.Offset, true
	}
	switch {
	case f.Module != "" && f.SourceFile != "":
		return f.Module + "/" + f.SourceFile, f.Offset, true
	case f.SourceFile != "":
		return f.SourceFile, f.Offset, true
	}
	return unknownSymbol, f.Offset, true
}

func normalizeGdb(f model.Frame, flags Flags) (string, uint64, bool) {
	if f.SignalHandler {
		return "<signal handler called>", 0, true
	}
	function := f.Function
	if flags.normalizing() {
		function = CleanFunction(function)
	}
	if function == "" {
		return addressIdentity(f.Address, flags), 0, true
	}
	if f.FunctionType != "" {
		return strings.TrimSpace(f.FunctionType) + " " + function, 0, true
	}
	return function, 0, true
}

// addressIdentity stands in for a frame with no symbol. Absolute
// addresses only appear when normalization is off.
func addressIdentity(address uint64, flags Flags) string {
	if flags.normalizing() {
		return unknownSymbol
	}
	return fmt.Sprintf("0x%x", address)
}

// CleanFunction canonicalizes a native function name: module prefixes,
// compiler clone suffixes, C++ parameter lists and template arguments are
// removed. Placeholder names return "".
func CleanFunction(name string) string {
	name = strings.TrimSpace(name)
	if placeholders[name] {
		return ""
	}

	if i := strings.LastIndexByte(name, '!'); i >= 0 && !isOperatorName(name[:i]) {
		name = name[i+1:]
	}
	if i := strings.LastIndexByte(name, '`'); i >= 0 {
		name = name[i+1:]
	}

	name = stripParams(name)
	name = stripTemplates(name)
	name = cloneSuffixRe.ReplaceAllString(name, "")
	name = strings.TrimSpace(name)

	if placeholders[name] {
		return ""
	}
	return name
}

// stripParams drops a trailing parameter list and its cv/ref qualifiers.
// The call operator's own parentheses are kept.
func stripParams(name string) string {
	unqualified := name
	for {
		trimmed := cvQualifierRe.ReplaceAllString(unqualified, "")
		if trimmed == unqualified {
			break
		}
		unqualified = trimmed
	}
	if !strings.HasSuffix(unqualified, ")") {
		return name
	}
	name = unqualified

	depth := 0
	for i := len(name) - 1; i >= 0; i-- {
		switch name[i] {
		case ')':
			depth++
		case '(':
			depth--
			if depth == 0 {
				prefix := strings.TrimRight(name[:i], " ")
				if prefix == "" || strings.HasSuffix(prefix, "operator") {
					return name
				}
				return prefix
			}
		}
	}
	return name
}

// stripTemplates removes balanced <...> argument lists. Angle brackets
// that belong to an operator name are kept.
func stripTemplates(name string) string {
	if !strings.ContainsAny(name, "<>") {
		return name
	}
	var b strings.Builder
	depth := 0
	for i := 0; i < len(name); i++ {
		c := name[i]
		switch {
		case (c == '<' || c == '>') && depth == 0 && isOperatorName(name[:i]):
			b.WriteByte(c)
		case c == '<':
			depth++
		case c == '>' && depth > 0:
			depth--
		case depth == 0:
			b.WriteByte(c)
		}
	}
	if depth != 0 {
		return name
	}
	return b.String()
}

func isOperatorName(prefix string) bool {
	return strings.HasSuffix(strings.TrimRight(prefix, "<>=-"), "operator")
}
