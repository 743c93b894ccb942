package chat

import (
	"context"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/onnwee/chat-tender/backend/redditapi"
	"github.com/onnwee/chat-tender/backend/telemetry"
)

// Chat is a live chat session: resolved stream metadata plus the record stream behind
// it. The handle stays valid across transparent feed reconnects until Close.
type Chat struct {
	Title     string
	IsLive    bool
	StartTime time.Time

	feed *Feed
}

// GetChat resolves a stream id, validates that it is live with a secure feed address,
// and opens the feed eagerly so connection problems surface here rather than on the
// first read. Resolution errors pass through unchanged; a non-live stream returns
// ErrReplayNotSupported and a non-wss feed address returns *InvalidFeedAddressError
// before any dial is attempted.
func GetChat(ctx context.Context, client *redditapi.Client, streamID string, opts Options) (*Chat, error) {
	ctx, span := telemetry.StartSpan(ctx, "chat", "get_chat",
		attribute.String("stream_id", streamID))
	defer span.End()

	opts = opts.withDefaults()
	md, err := client.Resolve(ctx, streamID, redditapi.RetryPolicy{
		MaxAttempts:  opts.MaxAttempts,
		RetryTimeout: opts.RetryTimeout,
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if !md.IsLive || md.FeedURL == "" {
		telemetry.RecordError(span, ErrReplayNotSupported)
		return nil, ErrReplayNotSupported
	}
	if !strings.HasPrefix(md.FeedURL, "wss://") {
		err := &InvalidFeedAddressError{URL: md.FeedURL}
		telemetry.RecordError(span, err)
		return nil, err
	}

	feed := newFeed(md.FeedURL, opts)
	if err := feed.connect(ctx); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	telemetry.SetSpanSuccess(span)
	return &Chat{
		Title:     md.Title,
		IsLive:    md.IsLive,
		StartTime: time.UnixMilli(md.StartTimeMillis),
		feed:      feed,
	}, nil
}

// Next returns the next chat record. See Feed.Next for the delivery contract.
func (c *Chat) Next(ctx context.Context) (*Record, error) {
	return c.feed.Next(ctx)
}

// Close releases the feed connection.
func (c *Chat) Close() error {
	return c.feed.Close()
}
