// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/wingedpig/duphash/internal/batch"
)

// Output formats.
const (
	FormatText = "text"
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// Formatter writes hash results. It is safe for concurrent use.
type Formatter struct {
	mu     sync.Mutex
	format string
	out    io.Writer
	errOut io.Writer
}

// NewFormatter creates a formatter. Failed results in text format go to errOut.
func NewFormatter(out, errOut io.Writer, format string) (*Formatter, error) {
	switch format {
	case FormatText, FormatJSON, FormatYAML:
	default:
		return nil, fmt.Errorf("unknown output format %q", format)
	}
	return &Formatter{format: format, out: out, errOut: errOut}, nil
}

// FormatResults writes a complete batch: a JSON array, a YAML sequence, or
// one text line per report.
func (f *Formatter) FormatResults(results []batch.Result) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	switch f.format {
	case FormatJSON:
		if results == nil {
			results = []batch.Result{}
		}
		out, err := json.MarshalIndent(results, "", "  ")
		if err != nil {
			return fmt.Errorf("encode json: %w", err)
		}
		_, err = fmt.Fprintln(f.out, string(out))
		return err
	case FormatYAML:
		enc := yaml.NewEncoder(f.out)
		enc.SetIndent(2)
		if err := enc.Encode(results); err != nil {
			return fmt.Errorf("encode yaml: %w", err)
		}
		return enc.Close()
	default:
		for _, r := range results {
			if err := f.writeText(r); err != nil {
				return err
			}
		}
		return nil
	}
}

// FormatResult writes one result as it arrives: a JSON line, a YAML
// document, or a text line.
func (f *Formatter) FormatResult(r batch.Result) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	switch f.format {
	case FormatJSON:
		out, err := json.Marshal(r)
		if err != nil {
			return fmt.Errorf("encode json: %w", err)
		}
		_, err = fmt.Fprintln(f.out, string(out))
		return err
	case FormatYAML:
		out, err := yaml.Marshal(r)
		if err != nil {
			return fmt.Errorf("encode yaml: %w", err)
		}
		_, err = fmt.Fprintf(f.out, "---\n%s", out)
		return err
	default:
		return f.writeText(r)
	}
}

func (f *Formatter) writeText(r batch.Result) error {
	if r.Failed() {
		_, err := fmt.Fprintf(f.errOut, "%s: %s\n", r.Name, r.Error)
		return err
	}
	// nohash output is the multi-line canonical text
	if strings.Contains(r.Duphash, "\n") {
		_, err := fmt.Fprintf(f.out, "# %s\n%s", r.Name, r.Duphash)
		return err
	}
	_, err := fmt.Fprintf(f.out, "%s  %s\n", r.Duphash, r.Name)
	return err
}
