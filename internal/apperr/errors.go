// Package apperr defines the error taxonomy shared across the service.
//
// Handlers map these categories to HTTP statuses; the pipeline and the
// ingestion runner use them to distinguish "nothing matched" from
// "something broke" and to decide which failures are fatal.
package apperr

import (
	"errors"
	"fmt"
)

// ValidationError indicates user-correctable bad input (unsupported
// extension, oversized upload, malformed query). No pipeline work has
// happened when it is returned.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

// Validation creates a ValidationError.
func Validation(format string, args ...interface{}) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// NotFoundError indicates an unknown task/document id or an empty search
// result set. It is not a failure.
type NotFoundError struct {
	Msg string
}

func (e *NotFoundError) Error() string { return e.Msg }

// NotFound creates a NotFoundError.
func NotFound(format string, args ...interface{}) error {
	return &NotFoundError{Msg: fmt.Sprintf(format, args...)}
}

// UpstreamError indicates a collaborator (vector index, generation
// provider, cache store) was unreachable or returned an error. Upstream
// names which one failed.
type UpstreamError struct {
	Upstream string
	Err      error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s: %v", e.Upstream, e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// Upstream wraps err with the name of the failing collaborator.
func Upstream(upstream string, err error) error {
	return &UpstreamError{Upstream: upstream, Err: err}
}

// ProcessingError indicates an ingestion stage produced nothing usable
// (no extracted text, no chunks). It is recorded into the owning task's
// failed status rather than surfaced to an unrelated caller.
type ProcessingError struct {
	Msg string
}

func (e *ProcessingError) Error() string { return e.Msg }

// Processing creates a ProcessingError.
func Processing(format string, args ...interface{}) error {
	return &ProcessingError{Msg: fmt.Sprintf(format, args...)}
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

// IsNotFound reports whether err is a NotFoundError.
func IsNotFound(err error) bool {
	var n *NotFoundError
	return errors.As(err, &n)
}

// IsUpstream reports whether err is an UpstreamError.
func IsUpstream(err error) bool {
	var u *UpstreamError
	return errors.As(err, &u)
}

// IsProcessing reports whether err is a ProcessingError.
func IsProcessing(err error) bool {
	var p *ProcessingError
	return errors.As(err, &p)
}
