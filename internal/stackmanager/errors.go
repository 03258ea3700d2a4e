// Package stackmanager owns the spec file, the secret file, and the
// rendered-artifacts tree: the one effectful writer spec.md §4.4 and §9
// ("Pure generator, effectful manager") assign those responsibilities to.
// Every mutating method takes the process-wide mutex before reading the
// spec, validating, rewriting, and rendering.
package stackmanager

import (
	"errors"
	"strings"
)

// Error is a stable, machine-checkable manager failure, the same shape as
// stackspec.Error.
type Error struct {
	Code    string
	Context []string
	Err     error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	msg := e.Code
	if len(e.Context) > 0 {
		msg = msg + ":" + strings.Join(e.Context, ":")
	}
	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func newError(code string, context ...string) error {
	return &Error{Code: code, Context: context}
}

func wrapError(code string, err error, context ...string) error {
	return &Error{Code: code, Context: context, Err: err}
}

// CodeOf extracts the stable machine code from err, if it is (or wraps) an
// *Error; returns "" otherwise.
func CodeOf(err error) string {
	var me *Error
	if errors.As(err, &me) {
		return me.Code
	}
	return ""
}
