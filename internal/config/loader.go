// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hjson/hjson-go/v4"
	"gopkg.in/yaml.v3"
)

const defaultDebounce = 250 * time.Millisecond

// Loader handles configuration file loading.
type Loader struct{}

// NewLoader creates a new config loader.
func NewLoader() *Loader {
	return &Loader{}
}

// Load reads the configuration at path. HJSON, and so plain JSON, is the
// native format; .yaml and .yml files are decoded as YAML. Keys outside
// the schema are rejected so a misspelled option is not silently ignored.
func (l *Loader) Load(ctx context.Context, path string) (*Config, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = decodeYAML(data, &cfg)
	default:
		err = decodeHJSON(data, &cfg)
	}
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}

// decodeHJSON parses data into a generic tree first, then decodes that
// tree strictly so the json struct tags drive field mapping.
func decodeHJSON(data []byte, cfg *Config) error {
	var tree map[string]interface{}
	if err := hjson.Unmarshal(data, &tree); err != nil {
		return fmt.Errorf("parse hjson: %w", err)
	}
	canonical, err := json.Marshal(tree)
	if err != nil {
		return fmt.Errorf("convert to json: %w", err)
	}

	dec := json.NewDecoder(bytes.NewReader(canonical))
	dec.DisallowUnknownFields()
	if err := dec.Decode(cfg); err != nil {
		return fmt.Errorf("unmarshal config: %w", err)
	}
	return nil
}

func decodeYAML(data []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("unmarshal config: %w", err)
	}
	return nil
}

// LoadWithDefaults loads the file at path and fills every unset option
// with its default.
func (l *Loader) LoadWithDefaults(ctx context.Context, path string) (*Config, error) {
	cfg, err := l.Load(ctx, path)
	if err != nil {
		return nil, err
	}
	applyDefaults(cfg)
	return cfg, nil
}

// configNames are searched in order by FindConfig.
var configNames = []string{"duphash.hjson", "duphash.json", "duphash.yaml", "duphash.yml"}

// FindConfig returns the absolute path of the first config file found in
// dir, trying configNames in order.
func (l *Loader) FindConfig(dir string) (string, error) {
	for _, name := range configNames {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if abs, err := filepath.Abs(path); err == nil {
			return abs, nil
		}
		return path, nil
	}
	return "", fmt.Errorf("config file not found in %s (looked for %s)", dir, strings.Join(configNames, ", "))
}

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

// applyDefaults sets default values for missing config fields.
func applyDefaults(cfg *Config) {
	if len(cfg.Duphash.Flags) == 0 {
		cfg.Duphash.Flags = []string{"normal"}
	}

	if cfg.Output.Format == "" {
		cfg.Output.Format = "text"
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "text"
	}

	if cfg.Watch.Pattern == "" {
		cfg.Watch.Pattern = "*.json"
	}
	if cfg.Watch.Debounce == "" {
		cfg.Watch.Debounce = defaultDebounce.String()
	}
}
