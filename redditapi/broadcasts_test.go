package redditapi

import (
	"context"
	"fmt"
	"net/http"
	"testing"
)

func TestBroadcastsListsStreamURLs(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/broadcasts" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		fmt.Fprint(w, `{"data":[
			{"post":{"url":"https://www.reddit.com/rpan/r/RedditSessions/abc123"}},
			{"post":{"url":"https://www.reddit.com/rpan/r/AnimalsOnReddit/def456"}},
			{"post":{}}
		]}`)
	}))

	urls, err := c.Broadcasts(context.Background(), testPolicy(3))
	if err != nil {
		t.Fatalf("Broadcasts() error: %v", err)
	}
	want := []string{
		"https://www.reddit.com/rpan/r/RedditSessions/abc123",
		"https://www.reddit.com/rpan/r/AnimalsOnReddit/def456",
	}
	if len(urls) != len(want) {
		t.Fatalf("got %d urls, want %d", len(urls), len(want))
	}
	for i := range want {
		if urls[i] != want[i] {
			t.Errorf("urls[%d] = %q, want %q", i, urls[i], want[i])
		}
	}
}

func TestBroadcastsRetriesNonListData(t *testing.T) {
	var calls int
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			fmt.Fprint(w, `{"data":"directory warming up"}`)
			return
		}
		fmt.Fprint(w, `{"data":[{"post":{"url":"https://www.reddit.com/rpan/r/TheArtistStudio/ghi789"}}]}`)
	}))

	urls, err := c.Broadcasts(context.Background(), testPolicy(3))
	if err != nil {
		t.Fatalf("Broadcasts() error: %v", err)
	}
	if calls != 2 {
		t.Errorf("calls = %d, want 2", calls)
	}
	if len(urls) != 1 || urls[0] != "https://www.reddit.com/rpan/r/TheArtistStudio/ghi789" {
		t.Errorf("urls = %v", urls)
	}
}

func TestStreamIDFromURL(t *testing.T) {
	tests := []struct {
		url    string
		wantID string
		wantOK bool
	}{
		{"https://www.reddit.com/rpan/r/RedditSessions/abc123", "abc123", true},
		{"https://old.reddit.com/rpan/r/pan/xyz?utm=1", "xyz", true},
		{"https://www.reddit.com/r/golang/comments/abc123", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		id, ok := StreamIDFromURL(tt.url)
		if id != tt.wantID || ok != tt.wantOK {
			t.Errorf("StreamIDFromURL(%q) = (%q, %v), want (%q, %v)", tt.url, id, ok, tt.wantID, tt.wantOK)
		}
	}
}
