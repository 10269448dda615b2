// Package common provides shared utilities and types used across the application.
package common

import (
	"errors"
	"fmt"
	"strings"
)

// Common application errors.
var (
	// Load errors.
	ErrLoad   = errors.New("load failed")
	ErrSchema = errors.New("schema mismatch")
	ErrParse  = errors.New("parse failed")

	// Configuration errors.
	ErrMissingConfig = errors.New("missing configuration")
	ErrInvalidConfig = errors.New("invalid configuration")
)

// LoadError reports that a source could not be fetched or read.
type LoadError struct {
	Err    error
	Source string
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load %s: %v", e.Source, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// Is matches ErrLoad.
func (e *LoadError) Is(target error) bool {
	return target == ErrLoad
}

// SchemaError reports required columns missing from a source.
type SchemaError struct {
	Source  string
	Missing []string
}

func (e *SchemaError) Error() string {
	if len(e.Missing) == 0 {
		return fmt.Sprintf("schema %s: no header row", e.Source)
	}
	return fmt.Sprintf("schema %s: missing required columns: %s", e.Source, strings.Join(e.Missing, ", "))
}

// Is matches ErrSchema.
func (e *SchemaError) Is(target error) bool {
	return target == ErrSchema
}

// ParseError reports a cell that could not be parsed.
// Row is 1-based and counts the header, so it matches the line in a spreadsheet.
type ParseError struct {
	Err    error
	Column string
	Value  string
	Row    int
}

func (e *ParseError) Error() string {
	if e.Column == "" {
		return fmt.Sprintf("parse row %d: %v", e.Row, e.Err)
	}
	return fmt.Sprintf("parse row %d column %s value %q: %v", e.Row, e.Column, e.Value, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Is matches ErrParse.
func (e *ParseError) Is(target error) bool {
	return target == ErrParse
}

// UserError represents an error that should be shown to the user.
type UserError struct {
	Err         error
	UserMessage string
}

func (e *UserError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.UserMessage, e.Err)
	}
	return e.UserMessage
}

func (e *UserError) Unwrap() error {
	return e.Err
}

// NewUserError creates a new user-friendly error.
func NewUserError(userMessage string, err error) error {
	return &UserError{
		UserMessage: userMessage,
		Err:         err,
	}
}
