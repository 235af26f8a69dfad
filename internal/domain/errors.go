package domain

import (
	"fmt"
)

// Error codes for different failure scenarios.
const (
	ErrCodeValidation         = "VALIDATION_ERROR"
	ErrCodeInsufficientData   = "INSUFFICIENT_EVIDENCE"
	ErrCodeSafetyViolation    = "SAFETY_VIOLATION"
	ErrCodeExternalDependency = "EXTERNAL_DEPENDENCY_FAILURE"
	ErrCodeStorage            = "STORAGE_ERROR"
	ErrCodeInternal           = "INTERNAL_ERROR"
)

// ValidationError represents an input validation failure. It aborts a
// pipeline run before aggregation.
type ValidationError struct {
	Field   string      `json:"field"`
	Message string      `json:"message"`
	Value   interface{} `json:"value,omitempty"`
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for field '%s': %s", e.Field, e.Message)
}

// PipelineError wraps a stage failure. Stage failures after AGGREGATE
// are absorbed into degraded fallback results, never propagated to the
// caller; this type carries the cause into stage status records and
// lifecycle events.
type PipelineError struct {
	Stage StageName
	Code  string
	Cause error
}

// Error implements the error interface.
func (e *PipelineError) Error() string {
	if e.Cause == nil {
		return fmt.Sprintf("%s failed (%s)", e.Stage, e.Code)
	}
	return fmt.Sprintf("%s failed (%s): %v", e.Stage, e.Code, e.Cause)
}

// Unwrap exposes the underlying cause for errors.Is/As.
func (e *PipelineError) Unwrap() error {
	return e.Cause
}

// NewPipelineError creates a stage failure record.
func NewPipelineError(stage StageName, code string, cause error) *PipelineError {
	return &PipelineError{Stage: stage, Code: code, Cause: cause}
}

// ExternalDependencyFailure reports a collaborator call that failed or
// timed out. Stages convert it into their rule-based-only fallback.
type ExternalDependencyFailure struct {
	Dependency string
	Cause      error
}

// Error implements the error interface.
func (e *ExternalDependencyFailure) Error() string {
	return fmt.Sprintf("external dependency %s failed: %v", e.Dependency, e.Cause)
}

// Unwrap exposes the underlying cause.
func (e *ExternalDependencyFailure) Unwrap() error {
	return e.Cause
}
