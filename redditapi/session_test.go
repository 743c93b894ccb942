package redditapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

const homepageFixture = `<!DOCTYPE html><html><head><title>reddit</title></head><body>
<script id="data">window.___r = {"user":{"session":{"accessToken":"tok-123","expires":"2026-01-01"}}};</script>
</body></html>`

func TestBootstrapSessionExtractsToken(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, homepageFixture)
	}))

	if err := c.BootstrapSession(context.Background(), testPolicy(3)); err != nil {
		t.Fatalf("BootstrapSession() error: %v", err)
	}
	if c.Bearer() != "tok-123" {
		t.Errorf("Bearer() = %q, want tok-123", c.Bearer())
	}
}

func TestBootstrapSessionSendsAuthorization(t *testing.T) {
	var gotAuth string
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, homepageFixture)
	})
	mux.HandleFunc("/videos/t3_abc123", func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		fmt.Fprint(w, `{"status":"success","data":{"post":{"title":"x","liveCommentsWebsocket":"wss://f.example/ws"},"stream":{"state":"IS_LIVE","publish_at":1}}}`)
	})
	c := newTestClient(t, mux)

	if err := c.BootstrapSession(context.Background(), testPolicy(3)); err != nil {
		t.Fatalf("BootstrapSession() error: %v", err)
	}
	if _, err := c.Resolve(context.Background(), "abc123", testPolicy(3)); err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	if gotAuth != "Bearer tok-123" {
		t.Errorf("Authorization = %q, want Bearer tok-123", gotAuth)
	}
}

func TestBootstrapSessionAnonymousBlob(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body><script>window.___r = {"user":{}};</script></body></html>`)
	}))

	if err := c.BootstrapSession(context.Background(), testPolicy(3)); err != nil {
		t.Fatalf("BootstrapSession() error: %v", err)
	}
	if c.Bearer() != "" {
		t.Errorf("Bearer() = %q, want empty for anonymous session", c.Bearer())
	}
}

func TestBootstrapSessionRetriesThenExhausts(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		fmt.Fprint(w, `<html><head><title>blocked</title></head><body>try later</body></html>`)
	}))
	defer server.Close()
	c := NewClient()
	c.Homepage = server.URL

	err := c.BootstrapSession(context.Background(), RetryPolicy{MaxAttempts: 3, RetryTimeout: time.Millisecond})
	var rbe *RetryBudgetExceededError
	if !errors.As(err, &rbe) {
		t.Fatalf("BootstrapSession() error = %v, want *RetryBudgetExceededError", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}
