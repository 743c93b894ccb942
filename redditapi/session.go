package redditapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/failsafe-go/failsafe-go"
)

var (
	initialInfoPattern = regexp.MustCompile(`(?s)window\.___r\s*=\s*(\{.*?\})\s*;</script>`)
	pageTitlePattern   = regexp.MustCompile(`(?is)<title[^>]*>(.*?)</title>`)
)

type initialInfo struct {
	User struct {
		Session struct {
			AccessToken string `json:"accessToken"`
		} `json:"session"`
	} `json:"user"`
}

// BootstrapSession scrapes the homepage for the bootstrap blob and installs its session
// access token as a bearer header on subsequent API calls. Pages served without the
// blob (interstitials, rate-limit pages) are retried under the budget, surfacing the
// page title as the diagnostic. The token itself is optional: a blob without a session
// still succeeds and API calls stay anonymous.
func (c *Client) BootstrapSession(ctx context.Context, policy RetryPolicy) error {
	var lastErr error
	rp := newRetryPolicy(policy, func(e failsafe.ExecutionEvent[string]) {
		slog.Debug("session bootstrap retrying",
			slog.Int("attempt", e.Attempts()),
			slog.Any("err", e.LastError()))
	})
	token, err := failsafe.With(rp).WithContext(ctx).Get(func() (string, error) {
		body, err := c.get(ctx, c.Homepage)
		if err != nil {
			lastErr = &transportError{err}
			return "", lastErr
		}
		m := initialInfoPattern.FindSubmatch(body)
		if m == nil {
			lastErr = &transportError{fmt.Errorf("no bootstrap blob in homepage (title: %s)", pageTitle(body))}
			return "", lastErr
		}
		var info initialInfo
		if err := json.Unmarshal(m[1], &info); err != nil {
			lastErr = &transportError{fmt.Errorf("decode bootstrap blob: %w", err)}
			return "", lastErr
		}
		return info.User.Session.AccessToken, nil
	})
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		return &RetryBudgetExceededError{Attempts: policy.MaxAttempts, Err: lastErr}
	}
	if token == "" {
		slog.Info("session blob carried no access token; continuing anonymously")
		return nil
	}
	c.setBearer(token)
	slog.Info("reddit session bootstrapped")
	return nil
}

func pageTitle(body []byte) string {
	if m := pageTitlePattern.FindSubmatch(body); m != nil {
		return strings.TrimSpace(string(m[1]))
	}
	return "unknown"
}
