// Package apperr provides the stage-tagged error type reported to callers
// when a generation request cannot be completed.
package apperr

import (
	"errors"
	"fmt"

	"lexdraft-backend/models"
)

// Code is a stable machine-readable error code
type Code string

const (
	CodeInvalidRequest      Code = "INVALID_REQUEST"
	CodeCollectorFailed     Code = "COLLECTOR_FAILED"
	CodeUnsupportedType     Code = "UNSUPPORTED_DOCUMENT_TYPE"
	CodeSerializationFailed Code = "SERIALIZATION_FAILED"
	CodeAssemblyFailed      Code = "ASSEMBLY_FAILED"
	CodeValidationFailed    Code = "VALIDATION_FAILED"
	CodeInternal            Code = "INTERNAL_ERROR"
)

// Error is an unrecoverable fault tagged with the stage where it happened
type Error struct {
	Stage   models.Stage `json:"stage"`
	Code    Code         `json:"code"`
	Message string       `json:"message"`
	Err     error        `json:"-"`
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s [%s]: %s: %v", e.Stage, e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s [%s]: %s", e.Stage, e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a stage-tagged error
func New(stage models.Stage, code Code, message string, err error) *Error {
	return &Error{Stage: stage, Code: code, Message: message, Err: err}
}

// As extracts an *Error from err. Untagged errors are reported as internal
// failures at the given fallback stage.
func As(err error, fallback models.Stage) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return &Error{Stage: fallback, Code: CodeInternal, Message: "internal error", Err: err}
}
