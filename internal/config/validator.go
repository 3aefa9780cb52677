// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/wingedpig/duphash/internal/duphash"
)

// Validator validates configuration against schema rules.
type Validator struct{}

// NewValidator creates a new config validator.
func NewValidator() *Validator {
	return &Validator{}
}

// ValidationError contains multiple validation failures.
type ValidationError struct {
	Errors []FieldError
}

// FieldError represents a single field validation error.
type FieldError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	var msgs []string
	for _, fe := range e.Errors {
		msgs = append(msgs, fmt.Sprintf("%s: %s", fe.Field, fe.Message))
	}
	return strings.Join(msgs, "; ")
}

// IsEmpty returns true if there are no validation errors.
func (e *ValidationError) IsEmpty() bool {
	return len(e.Errors) == 0
}

// Add adds a field error.
func (e *ValidationError) Add(field, message string) {
	e.Errors = append(e.Errors, FieldError{Field: field, Message: message})
}

// Validate checks configuration validity.
func (v *Validator) Validate(cfg *Config) error {
	errs := &ValidationError{}

	v.validateDuphash(cfg, errs)
	v.validateOutput(cfg, errs)
	v.validateLogging(cfg, errs)
	v.validateWatch(cfg, errs)

	if cfg.Workers < 0 {
		errs.Add("workers", fmt.Sprintf("must not be negative, got %d", cfg.Workers))
	}

	if errs.IsEmpty() {
		return nil
	}
	return errs
}

func (v *Validator) validateDuphash(cfg *Config, errs *ValidationError) {
	if cfg.Duphash.Frames < 0 {
		errs.Add("duphash.frames", fmt.Sprintf("must not be negative, got %d", cfg.Duphash.Frames))
	}
	if _, err := duphash.ParseFlags(cfg.Duphash.Flags); err != nil {
		errs.Add("duphash.flags", err.Error())
	}
}

func (v *Validator) validateOutput(cfg *Config, errs *ValidationError) {
	switch cfg.Output.Format {
	case "", "text", "json", "yaml":
	default:
		errs.Add("output.format", fmt.Sprintf("invalid format '%s', must be one of: text, json, yaml", cfg.Output.Format))
	}
}

func (v *Validator) validateLogging(cfg *Config, errs *ValidationError) {
	if cfg.Logging.Level != "" {
		validLevels := map[string]bool{
			"debug": true,
			"info":  true,
			"warn":  true,
			"error": true,
		}
		if !validLevels[cfg.Logging.Level] {
			errs.Add("logging.level", fmt.Sprintf("invalid level '%s', must be one of: debug, info, warn, error", cfg.Logging.Level))
		}
	}

	if cfg.Logging.Format != "" {
		validFormats := map[string]bool{
			"json": true,
			"text": true,
		}
		if !validFormats[cfg.Logging.Format] {
			errs.Add("logging.format", fmt.Sprintf("invalid format '%s', must be one of: json, text", cfg.Logging.Format))
		}
	}
}

func (v *Validator) validateWatch(cfg *Config, errs *ValidationError) {
	if cfg.Watch.Pattern != "" {
		if _, err := filepath.Match(cfg.Watch.Pattern, ""); err != nil {
			errs.Add("watch.pattern", fmt.Sprintf("invalid glob: %s", err))
		}
	}

	if cfg.Watch.Debounce != "" {
		d, err := time.ParseDuration(cfg.Watch.Debounce)
		if err != nil {
			errs.Add("watch.debounce", fmt.Sprintf("invalid duration format: %s", err))
		} else if d < 0 {
			errs.Add("watch.debounce", "must not be negative")
		}
	}
}
