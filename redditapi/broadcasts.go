package redditapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"regexp"

	"github.com/failsafe-go/failsafe-go"

	"github.com/onnwee/chat-tender/backend/telemetry"
)

var streamURLPattern = regexp.MustCompile(`reddit\.com/rpan/r/[^/]+/([^/?#&]+)`)

// Broadcasts fetches the live broadcast directory and returns the stream URL of each
// entry. It retries under its own bounded budget and is independent of any chat
// session. Sorting by viewer count is deliberately not offered.
func (c *Client) Broadcasts(ctx context.Context, policy RetryPolicy) ([]string, error) {
	var lastErr error
	rp := newRetryPolicy(policy, func(e failsafe.ExecutionEvent[[]string]) {
		slog.Debug("broadcast directory fetch retrying",
			slog.Int("attempt", e.Attempts()),
			slog.Any("err", e.LastError()))
	})
	urls, err := failsafe.With(rp).WithContext(ctx).Get(func() ([]string, error) {
		telemetry.Count(telemetry.BroadcastPolls)
		body, err := c.get(ctx, c.StrapiBase+"/broadcasts")
		if err != nil {
			lastErr = &transportError{err}
			return nil, lastErr
		}
		var resp struct {
			Data json.RawMessage `json:"data"`
		}
		if err := json.Unmarshal(body, &resp); err != nil {
			lastErr = &transportError{fmt.Errorf("decode broadcasts response: %w", err)}
			return nil, lastErr
		}
		var entries []struct {
			Post struct {
				URL string `json:"url"`
			} `json:"post"`
		}
		if err := json.Unmarshal(resp.Data, &entries); err != nil {
			// The provider occasionally answers with a status string where the list
			// should be; that reads as "try again", not as a hard failure.
			lastErr = &softFailureError{Message: truncate(string(resp.Data), 120)}
			return nil, lastErr
		}
		out := make([]string, 0, len(entries))
		for _, e := range entries {
			if e.Post.URL != "" {
				out = append(out, e.Post.URL)
			}
		}
		return out, nil
	})
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		return nil, &RetryBudgetExceededError{Attempts: policy.MaxAttempts, Err: lastErr}
	}
	return urls, nil
}

// StreamIDFromURL extracts the post id from an RPAN stream URL
// (https://www.reddit.com/rpan/r/<subreddit>/<id>).
func StreamIDFromURL(u string) (string, bool) {
	m := streamURLPattern.FindStringSubmatch(u)
	if m == nil {
		return "", false
	}
	return m[1], true
}
