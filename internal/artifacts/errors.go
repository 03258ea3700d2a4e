// Package artifacts renders a StackSpec and the current secret values into
// the full set of deployment artifacts: the reverse-proxy config, the
// orchestrator compose document, and every env file. Generate is a total
// pure function: no filesystem access, same inputs always produce
// byte-identical outputs. spec.md §4.3.
package artifacts

import "errors"

// Error is a stable, machine-checkable generation failure.
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
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Code
	}
	return ""
}
