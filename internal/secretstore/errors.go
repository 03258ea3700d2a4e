// Package secretstore reads and rewrites the flat KEY=VALUE secret file
// (spec.md §4.2), preserving every line it doesn't touch.
package secretstore

import "errors"

// Error is a stable, machine-checkable secret-store failure.
type Error struct {
	Code string
	Err  error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Code + ": " + e.Err.Error()
	}
	return e.Code
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func newError(code string) error {
	return &Error{Code: code}
}

func wrapError(code string, err error) error {
	return &Error{Code: code, Err: err}
}

// CodeOf extracts the stable machine code from err, if it is (or wraps) an
// *Error; returns "" otherwise.
func CodeOf(err error) string {
	var se *Error
	if errors.As(err, &se) {
		return se.Code
	}
	return ""
}
