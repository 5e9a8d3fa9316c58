// Copyright 2026 The Rule Engine Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package rerr defines the structured error vocabulary the core returns to
// its host. Every function in the external interface (run, query, ...)
// returns either a success value or one of these kinds; there is no
// out-of-band error condition and the core never panics across its boundary.
package rerr

import (
	"fmt"

	pkgerrors "github.com/pkg/errors"
)

// Location pinpoints a position in GRL source text.
type Location struct {
	Line   int
	Column int
}

// Code is the stable wire-level error code from §6/§7.
type Code string

const (
	CodeParseError       Code = "parse_error"
	CodeInvalidFacts     Code = "invalid_facts"
	CodeInvalidGoal      Code = "invalid_goal"
	CodeFixpointExceeded Code = "fixpoint_exceeded"
	CodeCancelled        Code = "cancelled"
	CodeResourceLimit    Code = "resource_limit"
	CodeUnknownFunction  Code = "unknown_function"
	CodeInternal         Code = "internal"
)

// ParseKind is the sub-classification of a parse_error (§4.1).
type ParseKind string

const (
	ParseKindLex             ParseKind = "lex"
	ParseKindSyntax          ParseKind = "syntax"
	ParseKindDuplicateRule   ParseKind = "duplicate_rule_name"
	ParseKindUnknownFunction ParseKind = "unknown_function"
)

// Error is the structured value every external-facing function returns on
// failure: {code, message, location?}.
type Error struct {
	Code      Code
	ParseKind ParseKind
	Message   string
	Location  *Location
	cause     error
}

func (e *Error) Error() string {
	if e.Location != nil {
		return string(e.Code) + ": " + e.Message
	}
	return string(e.Code) + ": " + e.Message
}

// Unwrap exposes the underlying cause, if any, for errors.Is/As.
func (e *Error) Unwrap() error { return e.cause }

// New builds a structured Error with no source location.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Newf builds a structured Error with a formatted message.
func Newf(code Code, format string, args ...interface{}) *Error {
	return &Error{Code: code, Message: sprintf(format, args...)}
}

// NewParse builds a parse_error with a sub-kind and source location.
func NewParse(kind ParseKind, line, column int, message string) *Error {
	return &Error{
		Code:      CodeParseError,
		ParseKind: kind,
		Message:   message,
		Location:  &Location{Line: line, Column: column},
	}
}

// Wrap attaches a cause to an internal error via github.com/pkg/errors,
// matching the teacher's own `errors.Wrap` convention for bubbling low-
// level failures to the boundary (engine.go's QueryWithBindings).
func Wrap(cause error, message string) *Error {
	return &Error{Code: CodeInternal, Message: message, cause: pkgerrors.Wrap(cause, message)}
}

func sprintf(format string, args ...interface{}) string {
	if len(args) == 0 {
		return format
	}
	return fmt.Sprintf(format, args...)
}
