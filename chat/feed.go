package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/failsafe-go/failsafe-go"
	"github.com/failsafe-go/failsafe-go/retrypolicy"
	"github.com/gorilla/websocket"

	"github.com/onnwee/chat-tender/backend/telemetry"
)

const (
	frameBuffer      = 16
	controlWriteWait = 5 * time.Second
)

// Options configures the feed consumer and the resolution performed on its behalf.
type Options struct {
	// MaxAttempts and RetryTimeout bound each dial sequence. Every reconnect gets a
	// fresh budget; only an exhausted sequence is fatal.
	MaxAttempts  int
	RetryTimeout time.Duration

	// MessageReceiveTimeout is the quiet-period after which the connection is probed
	// with a ping. Quiet chat is normal, so expiry is a health check, not an error.
	MessageReceiveTimeout time.Duration

	// Dialer overrides the websocket dialer, mainly for tests.
	Dialer *websocket.Dialer
}

func (o Options) withDefaults() Options {
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = 30
	}
	if o.RetryTimeout <= 0 {
		o.RetryTimeout = 2 * time.Second
	}
	if o.MessageReceiveTimeout <= 0 {
		o.MessageReceiveTimeout = time.Second
	}
	if o.Dialer == nil {
		o.Dialer = websocket.DefaultDialer
	}
	return o
}

// frame is the feed envelope: a type tag and a payload whose shape depends on the type.
type frame struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type readResult struct {
	data []byte
	err  error
}

// segment is one websocket connection's lifetime. The reader goroutine feeds frames
// until the connection errors; teardown closes stop so the reader never blocks on a
// channel nobody drains.
type segment struct {
	conn   *websocket.Conn
	frames chan readResult
	stop   chan struct{}
}

// Feed owns the websocket connection delivering chat frames and transparently redials
// the same address when the connection drops. A Feed has a single consumer; Next must
// not be called concurrently, though Close may race with it.
type Feed struct {
	url  string
	opts Options

	mu     sync.Mutex
	cur    *segment
	closed bool
}

func newFeed(url string, opts Options) *Feed {
	return &Feed{url: url, opts: opts.withDefaults()}
}

// connect dials the feed address with retries and starts the reader goroutine. An
// exhausted budget surfaces as *ConnectionFailedError; context cancellation passes
// through unchanged.
func (f *Feed) connect(ctx context.Context) error {
	rp := retrypolicy.NewBuilder[*websocket.Conn]().
		WithMaxAttempts(f.opts.MaxAttempts).
		WithBackoff(f.opts.RetryTimeout, 16*f.opts.RetryTimeout).
		WithJitterFactor(0.1).
		OnRetry(func(e failsafe.ExecutionEvent[*websocket.Conn]) {
			slog.Debug("feed dial failed; retrying",
				slog.String("url", f.url),
				slog.Int("attempt", e.Attempts()),
				slog.Any("err", e.LastError()))
		}).
		Build()

	conn, err := failsafe.With(rp).WithContext(ctx).Get(func() (*websocket.Conn, error) {
		return f.dial(ctx)
	})
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		return &ConnectionFailedError{URL: f.url, Err: err}
	}

	seg := &segment{
		conn:   conn,
		frames: make(chan readResult, frameBuffer),
		stop:   make(chan struct{}),
	}
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		_ = conn.Close()
		return ErrFeedClosed
	}
	f.cur = seg
	f.mu.Unlock()

	go readLoop(seg)
	telemetry.SetFeedConnected(true)
	slog.Info("feed connected", slog.String("url", f.url))
	return nil
}

func (f *Feed) dial(ctx context.Context) (*websocket.Conn, error) {
	conn, resp, err := f.opts.Dialer.DialContext(ctx, f.url, http.Header{})
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dial %s: status %d: %w", f.url, resp.StatusCode, err)
		}
		return nil, fmt.Errorf("dial %s: %w", f.url, err)
	}
	return conn, nil
}

// readLoop pumps frames from the connection into the segment channel until the
// connection errors, then delivers the error and exits.
func readLoop(seg *segment) {
	for {
		_, data, err := seg.conn.ReadMessage()
		if err != nil {
			select {
			case seg.frames <- readResult{err: err}:
			case <-seg.stop:
			}
			return
		}
		select {
		case seg.frames <- readResult{data: data}:
		case <-seg.stop:
			return
		}
	}
}

// Next blocks until the next normalized record is available, the context is cancelled,
// or the feed fails permanently. Undecodable frames and unknown message types are
// counted and skipped, never surfaced as errors. A dropped connection triggers a
// transparent redial with a fresh attempt budget; records delivered across the gap may
// include provider replays or skips.
func (f *Feed) Next(ctx context.Context) (*Record, error) {
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		f.mu.Lock()
		if f.closed {
			f.mu.Unlock()
			return nil, ErrFeedClosed
		}
		seg := f.cur
		f.mu.Unlock()

		if seg == nil {
			if err := f.connect(ctx); err != nil {
				return nil, err
			}
			continue
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case res := <-seg.frames:
			if res.err != nil {
				slog.Warn("feed connection lost; reconnecting",
					slog.String("url", f.url),
					slog.Any("err", res.err))
				f.teardown(seg)
				telemetry.Count(telemetry.FeedReconnects)
				continue
			}
			rec, ok := f.decodeFrame(res.data)
			if !ok {
				continue
			}
			return rec, nil
		case <-time.After(f.opts.MessageReceiveTimeout):
			f.probe(seg)
		}
	}
}

// probe pings a quiet connection so a silently dead peer surfaces as a failed write
// instead of an indefinite block on the next read.
func (f *Feed) probe(seg *segment) {
	err := seg.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(controlWriteWait))
	if err == nil {
		return
	}
	slog.Warn("feed ping failed; reconnecting",
		slog.String("url", f.url),
		slog.Any("err", err))
	f.teardown(seg)
	telemetry.Count(telemetry.FeedReconnects)
}

// decodeFrame parses and normalizes one frame. The second return is false when the
// frame should be skipped.
func (f *Feed) decodeFrame(data []byte) (*Record, bool) {
	var fr frame
	if err := json.Unmarshal(data, &fr); err != nil {
		telemetry.Count(telemetry.FramesDropped)
		slog.Debug("dropping undecodable frame",
			slog.Int("bytes", len(data)),
			slog.Any("err", err))
		return nil, false
	}
	if !knownMessageType(fr.Type) {
		telemetry.Count(telemetry.FramesSkipped)
		slog.Debug("skipping unknown message type", slog.String("type", fr.Type))
		return nil, false
	}
	rec := normalizeComment(fr.Payload)
	rec.MessageType = fr.Type
	telemetry.Count(telemetry.FramesReceived)
	return rec, true
}

// teardown discards a dead segment. Ownership is claimed under the lock so that a
// racing Close, which also tears the current segment down, releases it exactly once.
func (f *Feed) teardown(seg *segment) {
	f.mu.Lock()
	owned := f.cur == seg
	if owned {
		f.cur = nil
	}
	f.mu.Unlock()
	if !owned {
		return
	}
	close(seg.stop)
	_ = seg.conn.Close()
	telemetry.SetFeedConnected(false)
}

// Close releases the socket and makes subsequent Next calls return ErrFeedClosed.
// Safe to call multiple times and concurrently with Next.
func (f *Feed) Close() error {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return nil
	}
	f.closed = true
	seg := f.cur
	f.cur = nil
	f.mu.Unlock()

	if seg == nil {
		return nil
	}
	close(seg.stop)
	deadline := time.Now().Add(controlWriteWait)
	_ = seg.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
	err := seg.conn.Close()
	telemetry.SetFeedConnected(false)
	return err
}
