package server

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/onnwee/chat-tender/backend/chat"
)

func TestChatStreamDeliversRecords(t *testing.T) {
	h, _, broker := newTestHandlers()
	server := httptest.NewServer(NewMux(h))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, server.URL+"/chat/stream", nil)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET /chat/stream: %v", err)
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("Content-Type = %q", ct)
	}

	// Wait for the subscription to register before publishing.
	deadline := time.Now().Add(5 * time.Second)
	for broker.Len() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("subscriber never registered")
		}
		time.Sleep(5 * time.Millisecond)
	}

	broker.Publish(&chat.Record{
		MessageType:     chat.MessageTypeNewComment,
		Message:         "streamed hello",
		TimestampMicros: 1625242320000000,
	})

	scanner := bufio.NewScanner(resp.Body)
	var data string
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, "data: ") {
			data = strings.TrimPrefix(line, "data: ")
			break
		}
	}
	if data == "" {
		t.Fatalf("no data line received: %v", scanner.Err())
	}

	var rec chat.Record
	if err := json.Unmarshal([]byte(data), &rec); err != nil {
		t.Fatalf("decode event: %v", err)
	}
	if rec.Message != "streamed hello" || rec.TimestampMicros != 1625242320000000 {
		t.Errorf("record = %+v", rec)
	}
}

func TestChatStreamUnsubscribesOnDisconnect(t *testing.T) {
	h, _, broker := newTestHandlers()
	server := httptest.NewServer(NewMux(h))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, server.URL+"/chat/stream", nil)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET /chat/stream: %v", err)
	}
	defer resp.Body.Close()

	deadline := time.Now().Add(5 * time.Second)
	for broker.Len() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("subscriber never registered")
		}
		time.Sleep(5 * time.Millisecond)
	}

	cancel()

	deadline = time.Now().Add(5 * time.Second)
	for broker.Len() != 0 {
		if time.Now().After(deadline) {
			t.Fatal("subscriber never unregistered after disconnect")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestChatStreamRejectsNonGet(t *testing.T) {
	h, _, _ := newTestHandlers()
	server := httptest.NewServer(NewMux(h))
	defer server.Close()

	resp, err := http.Post(server.URL+"/chat/stream", "application/json", nil)
	if err != nil {
		t.Fatalf("POST /chat/stream: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", resp.StatusCode)
	}
}
