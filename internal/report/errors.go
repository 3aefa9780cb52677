// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package report

import (
	"encoding/json"
	"errors"
	"fmt"
)

// snippetRadius is how many bytes either side of a JSON error offset are
// quoted back in a ParseError.
const snippetRadius = 20

// jsonErrorPrefix starts the reason of every JSON decoding failure.
// Consumers match it case-sensitively.
const jsonErrorPrefix = "Failed to parse JSON: "

// ParseError describes input that could not be turned into a Report.
type ParseError struct {
	Reason  string
	Snippet string
	Err     error
}

func (e *ParseError) Error() string {
	if e.Snippet == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s (near %q)", e.Reason, e.Snippet)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// jsonError converts an encoding/json failure over data into a ParseError
// quoting the input around the failure offset.
func jsonError(data []byte, err error) *ParseError {
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError

	switch {
	case errors.As(err, &syntaxErr):
		return &ParseError{
			Reason:  jsonErrorPrefix + syntaxErr.Error(),
			Snippet: snippet(data, syntaxErr.Offset),
			Err:     err,
		}
	case errors.As(err, &typeErr):
		reason := fmt.Sprintf("%s%s: expected %s, got %s", jsonErrorPrefix, fieldName(typeErr), typeErr.Type, typeErr.Value)
		return &ParseError{
			Reason:  reason,
			Snippet: snippet(data, typeErr.Offset),
			Err:     err,
		}
	default:
		return &ParseError{Reason: jsonErrorPrefix + err.Error(), Err: err}
	}
}

func fieldName(err *json.UnmarshalTypeError) string {
	if err.Field != "" {
		return fmt.Sprintf("field %q", err.Field)
	}
	return "value"
}

// snippet returns up to snippetRadius bytes either side of the byte that
// ends at offset.
func snippet(data []byte, offset int64) string {
	if len(data) == 0 {
		return ""
	}
	pos := int(offset) - 1
	if pos < 0 {
		pos = 0
	}
	if pos >= len(data) {
		pos = len(data) - 1
	}
	start := pos - snippetRadius
	if start < 0 {
		start = 0
	}
	end := pos + snippetRadius + 1
	if end > len(data) {
		end = len(data)
	}
	return string(data[start:end])
}
