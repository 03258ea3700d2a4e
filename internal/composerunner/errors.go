// Package composerunner wraps the external compose orchestrator binary
// (docker compose, or a compatible CLI) behind a typed, allow-listed API.
// It never touches the spec or secret files directly; it only runs
// subprocesses against service names the caller or the on-disk compose
// file already vouch for.
package composerunner

// Result is the outcome of one subprocess invocation. ok is false both for
// a non-zero exit and for a launch failure (binary missing, allow-list
// rejection); Stderr carries a stable sentinel ("service_not_allowed",
// "invalid_tail") for the latter and the subprocess's own stderr for the
// former, since every method here returns Result alone rather than
// pairing it with a separate error value.
type Result struct {
	OK     bool
	Stdout string
	Stderr string
}
