// Package parsererror defines the error taxonomy of the normalization engine.
// Only ProfileValidationError is batch-fatal; every other error is local to a
// single row and routes that row to review instead of aborting the batch.
package parsererror

import (
	"fmt"
	"strings"
)

// ProfileValidationError reports every constraint an adapter profile
// violates, not just the first. A profile that produces one of these is
// never partially applied.
type ProfileValidationError struct {
	Violations []string
}

func (e *ProfileValidationError) Error() string {
	return fmt.Sprintf("profile validation failed with %d violation(s): %s",
		len(e.Violations), strings.Join(e.Violations, "; "))
}

// FieldResolutionError reports a semantic column the profile declared but
// the source header does not carry.
type FieldResolutionError struct {
	Row    int
	Field  string
	Column string
}

func (e *FieldResolutionError) Error() string {
	return fmt.Sprintf("row %d: column '%s' for field '%s' not found in header",
		e.Row, e.Column, e.Field)
}

// ParseError represents a malformed date or amount value in one row.
type ParseError struct {
	Row   int
	Field string
	Value string
	Err   error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("row %d: failed to parse %s='%s': %v", e.Row, e.Field, e.Value, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// ExtractionError represents a failed or timed-out call to the external
// inference capability for one row.
type ExtractionError struct {
	Row    int
	Reason string
	Err    error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("row %d: extraction failed (%s): %v", e.Row, e.Reason, e.Err)
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}

// ConfigConflictError reports an internally inconsistent configuration value,
// such as a dedup match-field set that names both 'date' and
// 'transaction_time'. Surfaced at profile-validation time, never at merge time.
type ConfigConflictError struct {
	Field  string
	Reason string
}

func (e *ConfigConflictError) Error() string {
	return fmt.Sprintf("conflicting configuration for %s: %s", e.Field, e.Reason)
}
