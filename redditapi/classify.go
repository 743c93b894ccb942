package redditapi

import (
	"errors"
	"strings"
)

// isSoftFailure reports whether a provider failure message means the stream is announced
// but not yet live (e.g. "please wait 10 seconds"), as opposed to a permanent failure
// such as "banned". The provider offers no structured signal for this, only the message
// text, so classification is a substring heuristic. Keeping it here means the heuristic
// can change without touching the resolver state machine.
func isSoftFailure(message string) bool {
	return strings.Contains(strings.ToLower(message), "wait")
}

// softFailureError marks a failure response that should be retried because the stream
// is expected to become live. The provider message is kept for diagnostics.
type softFailureError struct {
	Message string
}

func (e *softFailureError) Error() string {
	return "stream not yet live: " + e.Message
}

// transportError marks a transport or deserialization failure during an attempt.
type transportError struct {
	Err error
}

func (e *transportError) Error() string { return "request failed: " + e.Err.Error() }
func (e *transportError) Unwrap() error { return e.Err }

// isRetryable reports whether an error consumes an attempt and continues the loop
// (transient transport problems and soft failures) rather than aborting resolution.
func isRetryable(err error) bool {
	var soft *softFailureError
	var transient *transportError
	return errors.As(err, &soft) || errors.As(err, &transient)
}
