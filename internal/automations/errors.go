package automations

import "errors"

// Error is a stable machine-coded failure from SyncAutomations or
// TriggerAutomation. Code is one of the values spec.md §7 lists under
// "Cron"; Err, when set, is the underlying cause (e.g. the literal cron
// grammar error ValidateCronExpression produced).
type Error struct {
	Code string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Code
	}
	return e.Code + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

func newError(code string, cause error) error { return &Error{Code: code, Err: cause} }

// CodeOf returns the stable code carried by err, or "" if err is nil or was
// not produced by this package.
func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}
