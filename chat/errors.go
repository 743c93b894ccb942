package chat

import (
	"errors"
	"fmt"
)

var (
	// ErrReplayNotSupported is returned when the resolved stream is not currently
	// live. Chat replay for ended streams is not implemented.
	ErrReplayNotSupported = errors.New("stream is not live; chat replay is not implemented")

	// ErrFeedClosed is returned by Next after Close has been called.
	ErrFeedClosed = errors.New("feed is closed")
)

// InvalidFeedAddressError is returned when the resolved feed address does not use the
// secure websocket scheme. This is a configuration/data error, not a transport error,
// and is raised before any connection is attempted.
type InvalidFeedAddressError struct {
	URL string
}

func (e *InvalidFeedAddressError) Error() string {
	return fmt.Sprintf("invalid websocket URL: %s", e.URL)
}

// ConnectionFailedError is returned when the dial budget is exhausted without a
// successful websocket connection.
type ConnectionFailedError struct {
	URL string
	Err error
}

func (e *ConnectionFailedError) Error() string {
	return fmt.Sprintf("failed to connect to feed %s: %v", e.URL, e.Err)
}

func (e *ConnectionFailedError) Unwrap() error { return e.Err }
