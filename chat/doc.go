// Package chat acquires live chat from RPAN streams. GetChat resolves a stream id into
// feed metadata, opens the websocket feed, and returns a handle whose Next method
// yields normalized records until the stream ends or the caller closes the session.
// Transient connection failures are absorbed by reconnecting to the same address; only
// an exhausted dial budget is fatal.
package chat
