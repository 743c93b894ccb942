package server

import (
	"sync"
	"time"
)

// Status is a point-in-time snapshot of the acquisition session.
type Status struct {
	StreamID      string    `json:"stream_id"`
	Title         string    `json:"title,omitempty"`
	IsLive        bool      `json:"is_live"`
	FeedConnected bool      `json:"feed_connected"`
	Records       int64     `json:"records"`
	StartedAt     time.Time `json:"started_at,omitzero"`
	LastRecordAt  time.Time `json:"last_record_at,omitzero"`
}

// StatusTracker holds the mutable session state shared between the acquisition loop
// and the HTTP handlers.
type StatusTracker struct {
	mu    sync.RWMutex
	s     Status
	ready bool
}

func NewStatusTracker() *StatusTracker {
	return &StatusTracker{}
}

// SetSession records the resolved session. The service reports ready from this point.
func (t *StatusTracker) SetSession(streamID, title string, isLive bool, startedAt time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.s.StreamID = streamID
	t.s.Title = title
	t.s.IsLive = isLive
	t.s.StartedAt = startedAt
	t.ready = true
}

// SetFeedConnected updates the feed connection flag.
func (t *StatusTracker) SetFeedConnected(connected bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.s.FeedConnected = connected
}

// RecordSeen bumps the record counter and timestamp.
func (t *StatusTracker) RecordSeen() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.s.Records++
	t.s.LastRecordAt = time.Now()
}

// Snapshot returns a copy of the current status.
func (t *StatusTracker) Snapshot() Status {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.s
}

// Ready reports whether a chat session has been established.
func (t *StatusTracker) Ready() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.ready
}
