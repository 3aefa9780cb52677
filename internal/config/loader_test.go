// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wingedpig/duphash/internal/duphash"
)

func TestLoader_Load_ValidConfig(t *testing.T) {
	configContent := `{
		duphash: {
			frames: 3
			flags: ["normal", "nohash"]
			prefix: "fedora:"
		}
		output: { format: "yaml" }
		logging: { level: "debug", format: "json" }
		watch: { dir: "/var/spool/reports", pattern: "ureport-*", debounce: "1s" }
		workers: 4
	}`

	cfg := loadFromString(t, configContent)

	assert.Equal(t, 3, cfg.Duphash.Frames)
	assert.Equal(t, []string{"normal", "nohash"}, cfg.Duphash.Flags)
	assert.Equal(t, "fedora:", cfg.Duphash.Prefix)
	assert.Equal(t, "yaml", cfg.Output.Format)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, "/var/spool/reports", cfg.Watch.Dir)
	assert.Equal(t, "ureport-*", cfg.Watch.Pattern)
	assert.Equal(t, time.Second, cfg.Watch.DebounceDuration())
	assert.Equal(t, 4, cfg.Workers)
}

func TestLoader_Load_HJSONFeatures(t *testing.T) {
	// Comments, unquoted strings and trailing commas
	configContent := `{
		// line comment
		duphash: {
			flags: [
				normal
				"koops_compat",
			]
			prefix: rhel-
		}

		# hash comment
		watch: {
			dir: "/tmp/spool",
		}
	}`

	cfg := loadFromString(t, configContent)

	assert.Equal(t, []string{"normal", "koops_compat"}, cfg.Duphash.Flags)
	assert.Equal(t, "rhel-", cfg.Duphash.Prefix)
	assert.Equal(t, "/tmp/spool", cfg.Watch.Dir)
}

func TestLoader_Load_Defaults(t *testing.T) {
	loader := NewLoader()
	cfg, err := loader.LoadWithDefaults(context.Background(), writeTestConfig(t, `{ workers: 2 }`))
	require.NoError(t, err)

	assert.Equal(t, 0, cfg.Duphash.Frames)
	assert.Equal(t, []string{"normal"}, cfg.Duphash.Flags)
	assert.Equal(t, "text", cfg.Output.Format)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "text", cfg.Logging.Format)
	assert.Equal(t, "*.json", cfg.Watch.Pattern)
	assert.Equal(t, "250ms", cfg.Watch.Debounce)
	assert.Equal(t, 2, cfg.Workers)
}

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.NoError(t, NewValidator().Validate(cfg))

	opts, err := cfg.Duphash.HashOptions()
	require.NoError(t, err)
	assert.Equal(t, duphash.DefaultOptions(), opts)
}

func TestLoader_Load_FileNotFound(t *testing.T) {
	loader := NewLoader()
	_, err := loader.Load(context.Background(), "/nonexistent/path/duphash.hjson")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "read config")
}

func TestLoader_Load_InvalidHJSON(t *testing.T) {
	configContent := `{
		duphash: {
		invalid json here {{{
	}`

	loader := NewLoader()
	_, err := loader.Load(context.Background(), writeTestConfig(t, configContent))
	assert.Error(t, err)
}

func TestLoader_Load_WrongFieldType(t *testing.T) {
	loader := NewLoader()
	_, err := loader.Load(context.Background(), writeTestConfig(t, `{ workers: "many" }`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unmarshal config")
}

func TestLoader_Load_UnknownKey(t *testing.T) {
	loader := NewLoader()
	_, err := loader.Load(context.Background(), writeTestConfig(t, `{ duphash: { frame: 3 } }`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown field")
	assert.Contains(t, err.Error(), "frame")
}

func TestLoader_Load_YAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "duphash.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
duphash:
  frames: 2
  flags: [normal, koops_compat]
  prefix: "el9:"
output:
  format: json
workers: 3
`), 0644))

	cfg, err := NewLoader().LoadWithDefaults(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, 2, cfg.Duphash.Frames)
	assert.Equal(t, []string{"normal", "koops_compat"}, cfg.Duphash.Flags)
	assert.Equal(t, "el9:", cfg.Duphash.Prefix)
	assert.Equal(t, "json", cfg.Output.Format)
	assert.Equal(t, 3, cfg.Workers)
	assert.Equal(t, "info", cfg.Logging.Level)

	require.NoError(t, os.WriteFile(path, []byte("watch:\n  folder: /tmp\n"), 0644))
	_, err = NewLoader().Load(context.Background(), path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "folder")
}

func TestLoader_Load_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewLoader().LoadWithDefaults(ctx, writeTestConfig(t, `{}`))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestLoader_FindConfig(t *testing.T) {
	dir := t.TempDir()
	loader := NewLoader()

	// No config file exists
	_, err := loader.FindConfig(dir)
	assert.Error(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "duphash.json"), []byte(`{}`), 0644))
	path, err := loader.FindConfig(dir)
	require.NoError(t, err)
	assert.Equal(t, "duphash.json", filepath.Base(path))

	// hjson wins when both exist
	require.NoError(t, os.WriteFile(filepath.Join(dir, "duphash.hjson"), []byte(`{}`), 0644))
	path, err = loader.FindConfig(dir)
	require.NoError(t, err)
	assert.Equal(t, "duphash.hjson", filepath.Base(path))
	assert.True(t, filepath.IsAbs(path))

	yamlOnly := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(yamlOnly, "duphash.yml"), []byte("workers: 1\n"), 0644))
	path, err = loader.FindConfig(yamlOnly)
	require.NoError(t, err)
	assert.Equal(t, "duphash.yml", filepath.Base(path))
}

func TestDuphashConfig_HashOptions(t *testing.T) {
	opts, err := DuphashConfig{Frames: 2, Flags: []string{"nohash", "normalize"}, Prefix: "x"}.HashOptions()
	require.NoError(t, err)
	assert.Equal(t, duphash.Options{
		Frames: 2,
		Flags:  duphash.Flags{Normal: true, NoHash: true},
		Prefix: "x",
	}, opts)

	_, err = DuphashConfig{Flags: []string{"bogus"}}.HashOptions()
	assert.Error(t, err)

	_, err = DuphashConfig{Frames: -1}.HashOptions()
	assert.Error(t, err)
}

func TestWatchConfig_DebounceDuration(t *testing.T) {
	tests := []struct {
		input    string
		expected time.Duration
	}{
		{"", 250 * time.Millisecond},
		{"2s", 2 * time.Second},
		{"10ms", 10 * time.Millisecond},
		{"soon", 250 * time.Millisecond},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, WatchConfig{Debounce: tt.input}.DebounceDuration())
		})
	}
}

func loadFromString(t *testing.T, content string) *Config {
	t.Helper()
	path := writeTestConfig(t, content)
	loader := NewLoader()
	cfg, err := loader.Load(context.Background(), path)
	require.NoError(t, err)
	return cfg
}

func writeTestConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "duphash.hjson")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}
