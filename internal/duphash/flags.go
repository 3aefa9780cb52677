// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package duphash

import (
	"fmt"
	"strings"
)

// Historical bit values of the duphash flag set.
const (
	BitNormal      uint32 = 1 << 0
	BitNoHash      uint32 = 1 << 1
	BitNoNormalize uint32 = 1 << 2
	BitKoopsCompat uint32 = 1 << 3
)

// Flags selects how frames are normalized and whether the canonical text
// is hashed. NoHash and NoNormalize are independent; KoopsCompat only
// changes kernel oops frames.
type Flags struct {
	Normal      bool `json:"normal" yaml:"normal"`
	NoHash      bool `json:"nohash" yaml:"nohash"`
	NoNormalize bool `json:"nonormalize" yaml:"nonormalize"`
	KoopsCompat bool `json:"koops_compat" yaml:"koops_compat"`
}

// DefaultFlags normalizes frames and hashes the result.
var DefaultFlags = Flags{Normal: true}

// ParseFlags builds a flag set from names. An empty list yields DefaultFlags.
func ParseFlags(names []string) (Flags, error) {
	if len(names) == 0 {
		return DefaultFlags, nil
	}
	var f Flags
	for _, name := range names {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "normal", "normalize":
			f.Normal = true
		case "nohash":
			f.NoHash = true
		case "nonormalize":
			f.NoNormalize = true
		case "koops_compat", "koops-compat":
			f.KoopsCompat = true
		default:
			return Flags{}, fmt.Errorf("unknown duphash flag %q", name)
		}
	}
	return f, nil
}

// FlagsFromBits decodes the historical bit mask.
func FlagsFromBits(bits uint32) (Flags, error) {
	if unknown := bits &^ (BitNormal | BitNoHash | BitNoNormalize | BitKoopsCompat); unknown != 0 {
		return Flags{}, fmt.Errorf("unknown duphash flag bits 0x%x", unknown)
	}
	return Flags{
		Normal:      bits&BitNormal != 0,
		NoHash:      bits&BitNoHash != 0,
		NoNormalize: bits&BitNoNormalize != 0,
		KoopsCompat: bits&BitKoopsCompat != 0,
	}, nil
}

// Bits encodes f as the historical bit mask.
func (f Flags) Bits() uint32 {
	var bits uint32
	if f.Normal {
		bits |= BitNormal
	}
	if f.NoHash {
		bits |= BitNoHash
	}
	if f.NoNormalize {
		bits |= BitNoNormalize
	}
	if f.KoopsCompat {
		bits |= BitKoopsCompat
	}
	return bits
}

// Names lists the set flags in bit order.
func (f Flags) Names() []string {
	var names []string
	if f.Normal {
		names = append(names, "normal")
	}
	if f.NoHash {
		names = append(names, "nohash")
	}
	if f.NoNormalize {
		names = append(names, "nonormalize")
	}
	if f.KoopsCompat {
		names = append(names, "koops_compat")
	}
	return names
}

func (f Flags) String() string {
	names := f.Names()
	if len(names) == 0 {
		return "none"
	}
	return strings.Join(names, "|")
}

// normalizing reports whether frame identities are canonicalized.
func (f Flags) normalizing() bool {
	return !f.NoNormalize
}
