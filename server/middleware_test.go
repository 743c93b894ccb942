package server

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestCorrelationIDGenerated(t *testing.T) {
	h, _, _ := newTestHandlers()
	server := httptest.NewServer(NewMux(h))
	defer server.Close()

	resp, err := http.Get(server.URL + "/healthz")
	if err != nil {
		t.Fatalf("GET /healthz: %v", err)
	}
	defer resp.Body.Close()
	if resp.Header.Get("X-Correlation-ID") == "" {
		t.Error("X-Correlation-ID not set on response")
	}
}

func TestCorrelationIDEchoed(t *testing.T) {
	h, _, _ := newTestHandlers()
	server := httptest.NewServer(NewMux(h))
	defer server.Close()

	req, err := http.NewRequest(http.MethodGet, server.URL+"/healthz", nil)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("X-Correlation-ID", "corr-42")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET /healthz: %v", err)
	}
	defer resp.Body.Close()
	if got := resp.Header.Get("X-Correlation-ID"); got != "corr-42" {
		t.Errorf("X-Correlation-ID = %q, want corr-42", got)
	}
}

func TestCORSPreflight(t *testing.T) {
	h, _, _ := newTestHandlers()
	server := httptest.NewServer(NewMux(h))
	defer server.Close()

	req, err := http.NewRequest(http.MethodOptions, server.URL+"/chat/stream", nil)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("OPTIONS /chat/stream: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("status = %d, want 204", resp.StatusCode)
	}
	if resp.Header.Get("Access-Control-Allow-Origin") != "*" {
		t.Errorf("Access-Control-Allow-Origin = %q", resp.Header.Get("Access-Control-Allow-Origin"))
	}
}
