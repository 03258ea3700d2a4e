package stackspec

import (
	"errors"
	"strings"
)

// Error is a stable, machine-checkable validation failure. Code is one of
// the invalid_*/missing_*/custom_channel_requires_* identifiers from
// spec.md §7; Context is appended colon-joined when rendered.
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

// CodeOf extracts the stable machine code from err, if it is (or wraps) a
// *Error; returns "" otherwise.
func CodeOf(err error) string {
	var se *Error
	if errors.As(err, &se) {
		return se.Code
	}
	return ""
}
