// Package geomerr defines the error kinds returned by the pose and
// rectification pipeline.
package geomerr

import (
	"errors"
	"fmt"
)

var (
	// ErrSingular marks a linear system or matrix that could not be solved or inverted.
	ErrSingular = errors.New("singular system")
	// ErrDegenerate marks input geometry that cannot define a plane mapping.
	ErrDegenerate = errors.New("degenerate geometry")
	// ErrNonFinite marks a NaN or Inf in an intermediate or final value.
	ErrNonFinite = errors.New("non-finite value")
	// ErrTooFewPoints is wrapped by ValidationError when fewer than 4 points are supplied.
	ErrTooFewPoints = errors.New("at least 4 points are required")
)

// ValidationError reports malformed input, detected before any geometry runs.
type ValidationError struct {
	Field string
	Err   error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %v", e.Field, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// ComputationError reports a numeric failure in one pipeline stage.
type ComputationError struct {
	Stage string
	Err   error
}

func (e *ComputationError) Error() string {
	return fmt.Sprintf("%s computation failed: %v", e.Stage, e.Err)
}

func (e *ComputationError) Unwrap() error { return e.Err }

// InsufficientPointsError is returned when fewer than 4 distinct corners can
// be extracted from a point set.
type InsufficientPointsError struct {
	Distinct int
}

func (e *InsufficientPointsError) Error() string {
	return fmt.Sprintf("need 4 distinct corners, found %d", e.Distinct)
}

// Validation wraps err as a ValidationError for field.
func Validation(field string, err error) error {
	return &ValidationError{Field: field, Err: err}
}

// Computation wraps err as a ComputationError for stage.
func Computation(stage string, err error) error {
	return &ComputationError{Stage: stage, Err: err}
}

// IsValidation reports whether err carries a ValidationError.
func IsValidation(err error) bool {
	var e *ValidationError
	return errors.As(err, &e)
}

// IsComputation reports whether err carries a ComputationError.
func IsComputation(err error) bool {
	var e *ComputationError
	return errors.As(err, &e)
}
