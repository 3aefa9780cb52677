// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package duphash turns a crash thread into a stable duplicate hash.
package duphash

import (
	"fmt"

	"github.com/wingedpig/duphash/internal/model"
)

// Options controls Compute.
type Options struct {
	// Frames limits how many frames are hashed. Zero hashes all of them.
	Frames int    `json:"frames" yaml:"frames"`
	Flags  Flags  `json:"flags" yaml:"flags"`
	Prefix string `json:"prefix" yaml:"prefix"`
}

// DefaultOptions hashes every frame with DefaultFlags and no prefix.
func DefaultOptions() Options {
	return Options{Flags: DefaultFlags}
}

// Validate checks o for values Compute cannot honor.
func (o Options) Validate() error {
	if o.Frames < 0 {
		return fmt.Errorf("frame limit must not be negative, got %d", o.Frames)
	}
	return nil
}

// Compute serializes thread and digests the result.
func Compute(thread model.Thread, o Options) (string, error) {
	if err := o.Validate(); err != nil {
		return "", err
	}
	return Digest(Serialize(thread, o.Frames, o.Flags), o.Prefix, o.Flags), nil
}
