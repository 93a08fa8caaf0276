// Package errs defines the error kinds raised by the SQS engine.
//
// Validation errors are surfaced to the caller before any worker starts.
// Errors raised while a worker scores a configuration are not
// propagated: the worker skips that configuration and continues, and
// worker.Run returns no error.
package errs

import "fmt"

// BadSettings reports a violation of a single IterationSettings parameter.
type BadSettings struct {
	Parameter string
	Reason    string
}

func (e *BadSettings) Error() string {
	return fmt.Sprintf("%s: %s", e.Parameter, e.Reason)
}

// NewBadSettings builds a BadSettings for the named parameter.
func NewBadSettings(parameter, format string, args ...interface{}) *BadSettings {
	return &BadSettings{Parameter: parameter, Reason: fmt.Sprintf(format, args...)}
}

// WithParameter returns a copy of err tagged with parameter, if err is a
// *BadSettings with no parameter set yet. Mirrors the "re-raise to attach
// context" idiom from the nested validation readers.
func WithParameter(parameter string, err error) error {
	if err == nil {
		return nil
	}
	if bs, ok := err.(*BadSettings); ok && bs.Parameter == "" {
		return &BadSettings{Parameter: parameter, Reason: bs.Reason}
	}
	return err
}

// GeometryError reports a degenerate structure: a singular lattice,
// duplicate sites within tolerance, or an empty structure.
type GeometryError struct {
	Reason string
}

func (e *GeometryError) Error() string {
	return fmt.Sprintf("geometry: %s", e.Reason)
}

// NewGeometryError builds a GeometryError.
func NewGeometryError(format string, args ...interface{}) *GeometryError {
	return &GeometryError{Reason: fmt.Sprintf(format, args...)}
}

// CancelledError describes a search stopped by an external signal before
// it ran to completion. engine.Run does not return it: a cancelled run
// returns its partial outcome with a nil error.
type CancelledError struct {
	Reason string
}

func (e *CancelledError) Error() string {
	if e.Reason == "" {
		return "search cancelled"
	}
	return fmt.Sprintf("search cancelled: %s", e.Reason)
}
