package redditapi

import (
	"errors"
	"fmt"
)

// Sentinel errors surfaced by the resolver. They are never retried.
var (
	// ErrChatDisabled is returned when the stream exists but has chat turned off.
	ErrChatDisabled = errors.New("chat is disabled for this stream")
	// ErrVideoNotFound is returned when the provider reports the stream does not exist.
	ErrVideoNotFound = errors.New("video not found")
)

// ProviderError carries the raw failure message from an unrecoverable failure response.
type ProviderError struct {
	Message string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("reddit failure response: %s", e.Message)
}

// UnexpectedResponseError is returned when a response matches neither the success nor
// any known failure schema. Payload holds the raw body for diagnosis.
type UnexpectedResponseError struct {
	Payload []byte
}

func (e *UnexpectedResponseError) Error() string {
	return fmt.Sprintf("unexpected response from reddit: %s", truncate(string(e.Payload), 200))
}

// RetryBudgetExceededError is returned when the shared attempt budget is exhausted
// while only retryable conditions occurred. Err is the last such condition.
type RetryBudgetExceededError struct {
	Attempts int
	Err      error
}

func (e *RetryBudgetExceededError) Error() string {
	return fmt.Sprintf("retry budget exceeded after %d attempts: %v", e.Attempts, e.Err)
}

func (e *RetryBudgetExceededError) Unwrap() error { return e.Err }

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
