package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func newTestHandlers() (*Handlers, *StatusTracker, *Broker) {
	broker := NewBroker()
	status := NewStatusTracker()
	return NewHandlers(broker, status), status, broker
}

func TestHealthz(t *testing.T) {
	h, _, _ := newTestHandlers()
	server := httptest.NewServer(NewMux(h))
	defer server.Close()

	resp, err := http.Get(server.URL + "/healthz")
	if err != nil {
		t.Fatalf("GET /healthz: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
}

func TestReadyzBeforeAndAfterSession(t *testing.T) {
	h, status, _ := newTestHandlers()
	server := httptest.NewServer(NewMux(h))
	defer server.Close()

	resp, err := http.Get(server.URL + "/readyz")
	if err != nil {
		t.Fatalf("GET /readyz: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("status before session = %d, want 503", resp.StatusCode)
	}

	status.SetSession("abc123", "live painting", true, time.Now())

	resp, err = http.Get(server.URL + "/readyz")
	if err != nil {
		t.Fatalf("GET /readyz: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status after session = %d, want 200", resp.StatusCode)
	}
}

func TestStatusSnapshot(t *testing.T) {
	h, status, _ := newTestHandlers()
	server := httptest.NewServer(NewMux(h))
	defer server.Close()

	status.SetSession("abc123", "live painting", true, time.Unix(1625242320, 0))
	status.SetFeedConnected(true)
	status.RecordSeen()
	status.RecordSeen()

	resp, err := http.Get(server.URL + "/status")
	if err != nil {
		t.Fatalf("GET /status: %v", err)
	}
	defer resp.Body.Close()

	var got Status
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if got.StreamID != "abc123" || got.Title != "live painting" {
		t.Errorf("snapshot = %+v", got)
	}
	if !got.IsLive || !got.FeedConnected {
		t.Errorf("flags = %+v", got)
	}
	if got.Records != 2 {
		t.Errorf("Records = %d, want 2", got.Records)
	}
}

func TestStatusRejectsNonGet(t *testing.T) {
	h, _, _ := newTestHandlers()
	server := httptest.NewServer(NewMux(h))
	defer server.Close()

	resp, err := http.Post(server.URL+"/status", "application/json", nil)
	if err != nil {
		t.Fatalf("POST /status: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", resp.StatusCode)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	h, _, _ := newTestHandlers()
	server := httptest.NewServer(NewMux(h))
	defer server.Close()

	resp, err := http.Get(server.URL + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
}
