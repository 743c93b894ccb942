package redditapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/failsafe-go/failsafe-go"
	"go.opentelemetry.io/otel/attribute"

	"github.com/onnwee/chat-tender/backend/telemetry"
)

// Status describes the outcome class of a resolution attempt.
type Status int

const (
	StatusSuccess Status = iota
	StatusFailure
	StatusNotFound
	StatusUnknown
)

// String returns a human-readable name for the status.
func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusFailure:
		return "failure"
	case StatusNotFound:
		return "not_found"
	default:
		return "unknown"
	}
}

// StreamMetadata is the immutable result of a successful resolution. FeedURL is only
// populated when the stream is currently live; ended streams resolve with an empty
// FeedURL and IsLive=false.
type StreamMetadata struct {
	Status          Status
	IsLive          bool
	Title           string
	StartTimeMillis int64
	FeedURL         string
	ChatDisabled    bool
}

// endpoint selects which of the two REST endpoints an attempt queries. The two have
// independent failure modes, so alternating gives resolution a chance to succeed via
// the fallback path when the primary is rate-limited or schema-shifted.
type endpoint int

const (
	endpointPrimary  endpoint = iota // strapi: separate post/stream substructures
	endpointFallback                 // gateway desktopapi: flat record, liveness implied
)

func (e endpoint) String() string {
	if e == endpointFallback {
		return "fallback"
	}
	return "primary"
}

// endpointFor maps the shared attempt counter to an endpoint: even attempts hit the
// primary endpoint, odd attempts the fallback. Parity is purely a function of the
// counter; every retryable condition consumes one attempt from the same budget.
func endpointFor(attempt int) endpoint {
	if attempt%2 == 1 {
		return endpointFallback
	}
	return endpointPrimary
}

// videoResponse is the primary endpoint envelope. Data is polymorphic: an object on
// success, a bare message string on failure.
type videoResponse struct {
	Status        string          `json:"status"`
	StatusMessage string          `json:"status_message"`
	Data          json.RawMessage `json:"data"`
}

// streamData covers both the primary endpoint's nested post/stream substructures and
// the fallback endpoint's flat record; the nested fields are the same shape as the
// enclosing one, so lookups fall back to the flat record when a substructure is absent.
type streamData struct {
	Title                 string  `json:"title"`
	ChatDisabled          bool    `json:"chat_disabled"`
	LiveCommentsWebsocket string  `json:"liveCommentsWebsocket"`
	State                 string  `json:"state"`
	PublishAt             float64 `json:"publish_at"`
	Created               float64 `json:"created"`

	Post   *streamData `json:"post"`
	Stream *streamData `json:"stream"`
}

// postCommentsResponse is the fallback endpoint envelope.
type postCommentsResponse struct {
	Data struct {
		Posts map[string]json.RawMessage `json:"posts"`
	} `json:"data"`
}

const stateLive = "IS_LIVE" // the other observed value is "ENDED"

// Resolve translates a stream id into connection metadata. Retryable conditions
// (transport or decode failures, "please wait" soft failures) consume attempts from the
// shared budget with exponential backoff; endpoint choice alternates with attempt
// parity. Hard failures surface immediately as ErrChatDisabled, ErrVideoNotFound,
// *ProviderError, or *UnexpectedResponseError; an exhausted budget surfaces as
// *RetryBudgetExceededError.
func (c *Client) Resolve(ctx context.Context, streamID string, policy RetryPolicy) (*StreamMetadata, error) {
	ctx, span := telemetry.StartSpan(ctx, "redditapi", "resolve",
		attribute.String("stream_id", streamID))
	defer span.End()

	var lastErr error
	rp := newRetryPolicy(policy, func(e failsafe.ExecutionEvent[*StreamMetadata]) {
		telemetry.Count(telemetry.ResolveRetries)
		var soft *softFailureError
		if errors.As(e.LastError(), &soft) {
			telemetry.Count(telemetry.SoftFailureRetries)
			slog.Info("stream not yet live; retrying",
				slog.String("stream_id", streamID),
				slog.Int("attempt", e.Attempts()),
				slog.String("reddit_message", soft.Message))
			return
		}
		slog.Debug("resolve attempt failed; retrying",
			slog.String("stream_id", streamID),
			slog.Int("attempt", e.Attempts()),
			slog.Any("err", e.LastError()))
	})

	md, err := failsafe.With(rp).WithContext(ctx).GetWithExecution(
		func(exec failsafe.Execution[*StreamMetadata]) (*StreamMetadata, error) {
			attempt := exec.Attempts() - 1
			telemetry.Count(telemetry.ResolveAttempts)
			md, err := c.resolveOnce(ctx, streamID, endpointFor(attempt))
			if err != nil {
				lastErr = err
			}
			return md, err
		})
	if err == nil {
		telemetry.SetSpanSuccess(span)
		return md, nil
	}
	telemetry.RecordError(span, err)
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return nil, err
	}
	if lastErr != nil && isRetryable(lastErr) {
		// Only retryable conditions occurred, so the budget ran out.
		return nil, &RetryBudgetExceededError{Attempts: policy.MaxAttempts, Err: lastErr}
	}
	return nil, err
}

// resolveOnce performs a single attempt against the chosen endpoint.
func (c *Client) resolveOnce(ctx context.Context, streamID string, ep endpoint) (*StreamMetadata, error) {
	if ep == endpointFallback {
		slog.Debug("using fallback API", slog.String("stream_id", streamID))
		body, err := c.get(ctx, c.GatewayBase+"/desktopapi/v1/postcomments/t3_"+streamID+"?limit=1")
		if err != nil {
			return nil, &transportError{err}
		}
		var resp postCommentsResponse
		if err := json.Unmarshal(body, &resp); err != nil {
			return nil, &transportError{fmt.Errorf("decode postcomments response: %w", err)}
		}
		raw, ok := resp.Data.Posts["t3_"+streamID]
		if !ok {
			return nil, &UnexpectedResponseError{Payload: body}
		}
		var data streamData
		if err := json.Unmarshal(raw, &data); err != nil {
			return nil, &transportError{fmt.Errorf("decode post record: %w", err)}
		}
		// The fallback endpoint has no live/ended signal; any successful response is
		// treated as live. Ended streams reached via this branch are misclassified as
		// live, a documented limitation of the provider API.
		return buildMetadata(&data, true)
	}

	body, err := c.get(ctx, c.StrapiBase+"/videos/t3_"+streamID)
	if err != nil {
		return nil, &transportError{err}
	}
	var resp videoResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, &transportError{fmt.Errorf("decode videos response: %w", err)}
	}

	switch resp.Status {
	case "success":
		var data streamData
		if err := json.Unmarshal(resp.Data, &data); err != nil {
			return nil, &transportError{fmt.Errorf("decode stream data: %w", err)}
		}
		return buildMetadata(&data, false)
	case "failure":
		var message string
		if err := json.Unmarshal(resp.Data, &message); err != nil {
			return nil, &UnexpectedResponseError{Payload: body}
		}
		if isSoftFailure(message) {
			return nil, &softFailureError{Message: message}
		}
		return nil, &ProviderError{Message: message}
	case "video not found":
		return nil, fmt.Errorf("%w: %s", ErrVideoNotFound, resp.StatusMessage)
	default:
		return nil, &UnexpectedResponseError{Payload: body}
	}
}

// buildMetadata assembles StreamMetadata from a success payload. On the primary
// endpoint the interesting fields live in post/stream substructures; on the fallback
// endpoint they sit on the flat record, which the nil checks fall back to.
func buildMetadata(data *streamData, fallback bool) (*StreamMetadata, error) {
	post := data.Post
	if post == nil {
		post = data
	}
	stream := data.Stream
	if stream == nil {
		stream = data
	}

	if data.ChatDisabled || post.ChatDisabled {
		return nil, ErrChatDisabled
	}

	isLive := stream.State == stateLive || fallback
	start := stream.PublishAt
	if start == 0 {
		start = stream.Created
	}

	md := &StreamMetadata{
		Status:          StatusSuccess,
		IsLive:          isLive,
		Title:           post.Title,
		StartTimeMillis: int64(start * 1000),
	}
	if isLive {
		md.FeedURL = post.LiveCommentsWebsocket
	}
	return md, nil
}
