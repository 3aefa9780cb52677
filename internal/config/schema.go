// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package config handles HJSON and YAML configuration loading for the
// duphash tool.
package config

import (
	"time"

	"github.com/wingedpig/duphash/internal/duphash"
)

// Config is the root configuration structure.
type Config struct {
	Duphash DuphashConfig `json:"duphash" yaml:"duphash"`
	Output  OutputConfig  `json:"output" yaml:"output"`
	Logging LoggingConfig `json:"logging" yaml:"logging"`
	Watch   WatchConfig   `json:"watch" yaml:"watch"`
	Workers int           `json:"workers" yaml:"workers"` // 0 means one worker per CPU
}

// DuphashConfig holds the hashing parameters.
type DuphashConfig struct {
	Frames int      `json:"frames" yaml:"frames"` // 0 hashes every frame
	Flags  []string `json:"flags" yaml:"flags"`
	Prefix string   `json:"prefix" yaml:"prefix"`
}

// OutputConfig controls how results are printed.
type OutputConfig struct {
	Format string `json:"format" yaml:"format"` // text, json or yaml
}

// LoggingConfig configures the logger.
type LoggingConfig struct {
	Level  string `json:"level" yaml:"level"`
	Format string `json:"format" yaml:"format"`
}

// WatchConfig configures the spool directory watcher.
type WatchConfig struct {
	Dir      string `json:"dir" yaml:"dir"`
	Pattern  string `json:"pattern" yaml:"pattern"`
	Debounce string `json:"debounce" yaml:"debounce"`
}

// HashOptions converts the duphash section into hashing options.
func (c DuphashConfig) HashOptions() (duphash.Options, error) {
	flags, err := duphash.ParseFlags(c.Flags)
	if err != nil {
		return duphash.Options{}, err
	}
	opts := duphash.Options{Frames: c.Frames, Flags: flags, Prefix: c.Prefix}
	if err := opts.Validate(); err != nil {
		return duphash.Options{}, err
	}
	return opts, nil
}

// DebounceDuration returns the parsed debounce, falling back to 250ms when
// the value is empty or malformed.
func (w WatchConfig) DebounceDuration() time.Duration {
	if w.Debounce == "" {
		return defaultDebounce
	}
	d, err := time.ParseDuration(w.Debounce)
	if err != nil {
		return defaultDebounce
	}
	return d
}
