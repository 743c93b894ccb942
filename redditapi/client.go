// Package redditapi contains the REST-side collaborators of the chat pipeline: stream
// resolution through the primary and fallback endpoints, session bootstrap from the
// homepage blob, and the live broadcast directory.
package redditapi

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/failsafe-go/failsafe-go"
	"github.com/failsafe-go/failsafe-go/retrypolicy"
)

const (
	defaultStrapiBase  = "https://strapi.reddit.com"
	defaultGatewayBase = "https://gateway.reddit.com"
	defaultHomepage    = "https://www.reddit.com"
	userAgent          = "chat-tender/1.0"
)

// RetryPolicy is the shared attempt budget and backoff seed applied to retryable
// operations. One budget covers both endpoints of the resolver; the generous default
// exists because resolution doubles as liveness polling for announced streams.
type RetryPolicy struct {
	MaxAttempts  int
	RetryTimeout time.Duration
}

// DefaultRetryPolicy mirrors the config package defaults.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 30, RetryTimeout: 2 * time.Second}
}

// newRetryPolicy builds a failsafe retry policy that keeps retrying the retryable error
// classes (transport failures, soft failures) under the shared budget and aborts on
// everything else.
func newRetryPolicy[T any](policy RetryPolicy, onRetry func(failsafe.ExecutionEvent[T])) retrypolicy.RetryPolicy[T] {
	builder := retrypolicy.NewBuilder[T]().
		WithMaxAttempts(policy.MaxAttempts).
		WithBackoff(policy.RetryTimeout, 16*policy.RetryTimeout).
		WithJitterFactor(0.1).
		HandleIf(func(_ T, err error) bool { return isRetryable(err) })
	if onRetry != nil {
		builder = builder.OnRetry(onRetry)
	}
	return builder.Build()
}

// Client provides minimal methods needed for RPAN chat acquisition.
type Client struct {
	HTTPClient  *http.Client
	StrapiBase  string
	GatewayBase string
	Homepage    string

	mu     sync.RWMutex
	bearer string
}

// NewClient returns a client pointing at the production endpoints. The base URLs are
// exported fields so tests can point them at local servers.
func NewClient() *Client {
	return &Client{
		StrapiBase:  defaultStrapiBase,
		GatewayBase: defaultGatewayBase,
		Homepage:    defaultHomepage,
	}
}

func (c *Client) http() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return http.DefaultClient
}

// Bearer returns the session token obtained by BootstrapSession, if any.
func (c *Client) Bearer() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.bearer
}

func (c *Client) setBearer(token string) {
	c.mu.Lock()
	c.bearer = token
	c.mu.Unlock()
}

// get performs a GET with session headers and returns the raw body. The provider encodes
// failures inside the JSON body rather than in HTTP status codes, so the body is
// returned regardless of status.
func (c *Client) get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)
	if b := c.Bearer(); b != "" {
		req.Header.Set("Authorization", "Bearer "+b)
	}
	resp, err := c.http().Do(req)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			slog.Warn("failed to close response body", slog.Any("err", err))
		}
	}()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	return body, nil
}
