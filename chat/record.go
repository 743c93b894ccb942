package chat

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

const redditOrigin = "https://www.reddit.com"

// Known feed message types. Frames with any other type are logged and skipped.
const (
	MessageTypeNewComment         = "new_comment"
	MessageTypeDeleteComment      = "delete_comment"
	MessageTypeRemoveComment      = "remove_comment"
	MessageTypeUpdateCommentScore = "update_comment_score"
)

func knownMessageType(t string) bool {
	switch t {
	case MessageTypeNewComment, MessageTypeDeleteComment,
		MessageTypeRemoveComment, MessageTypeUpdateCommentScore:
		return true
	}
	return false
}

// Author groups the author fields hoisted out of the flat provider payload.
type Author struct {
	Name       string `json:"name,omitempty"`
	ID         string `json:"id,omitempty"`
	FullID     string `json:"full_id,omitempty"`
	ProfileImg string `json:"profile_img,omitempty"`
	FlairType  string `json:"flair_type,omitempty"`
}

// Record is the canonical chat record emitted by the feed. Timestamps are microseconds
// since epoch; they are non-decreasing within a connection segment but carry no
// ordering guarantee across a reconnect, where the provider may replay or skip
// messages.
type Record struct {
	MessageType       string `json:"message_type"`
	Author            Author `json:"author"`
	AuthorDisplayName string `json:"author_display_name,omitempty"`
	Message           string `json:"message,omitempty"`
	MessageHTML       string `json:"message_html,omitempty"`
	TimestampMicros   int64  `json:"timestamp"`
	MessageID         string `json:"message_id,omitempty"`
	MessageName       string `json:"message_name,omitempty"`
	Score             *int64 `json:"score,omitempty"`
	URL               string `json:"url,omitempty"`
	SubredditID       string `json:"subreddit_id,omitempty"`
}

// rawComment mirrors the provider payload for comment events. The numeric-ish fields
// are kept raw because the provider is not consistent about number vs string encoding.
type rawComment struct {
	Author          string          `json:"author"`
	AuthorID        json.RawMessage `json:"author_id"`
	AuthorFullname  string          `json:"author_fullname"`
	AuthorIconImg   string          `json:"author_icon_img"`
	AuthorFlairType string          `json:"author_flair_type"`
	Body            string          `json:"body"`
	BodyHTML        string          `json:"body_html"`
	CreatedUTC      json.RawMessage `json:"created_utc"`
	LinkID          string          `json:"link_id"`
	Name            string          `json:"name"`
	Score           *int64          `json:"score"`
	Context         string          `json:"context"`
	SubredditID     string          `json:"subreddit_id"`
}

// normalizeComment maps a provider comment payload into the canonical record shape.
// It never fails: absent or mistyped source fields map to zero-valued target fields.
// The caller attaches the message type from the frame envelope.
func normalizeComment(payload []byte) *Record {
	var raw rawComment
	_ = json.Unmarshal(payload, &raw)

	rec := &Record{
		Author: Author{
			Name:       raw.Author,
			ID:         flexString(raw.AuthorID),
			FullID:     raw.AuthorFullname,
			ProfileImg: raw.AuthorIconImg,
			FlairType:  raw.AuthorFlairType,
		},
		Message:         raw.Body,
		MessageHTML:     raw.BodyHTML,
		TimestampMicros: timestampMicros(raw.CreatedUTC),
		MessageID:       raw.LinkID,
		MessageName:     raw.Name,
		Score:           raw.Score,
		SubredditID:     raw.SubredditID,
	}
	if raw.Context != "" {
		rec.URL = redditOrigin + raw.Context
	}
	if rec.Author.Name != "" {
		rec.AuthorDisplayName = rec.Author.Name
	}
	return rec
}

// flexString renders a raw JSON scalar as a string, whether it arrived quoted or not.
func flexString(raw json.RawMessage) string {
	s := strings.TrimSpace(string(raw))
	if s == "" || s == "null" {
		return ""
	}
	var unquoted string
	if err := json.Unmarshal(raw, &unquoted); err == nil {
		return unquoted
	}
	return s
}

// timestampMicros parses created_utc (seconds) into microseconds since epoch,
// defaulting to the current time when the field is absent or unparseable.
func timestampMicros(raw json.RawMessage) int64 {
	seconds, err := strconv.ParseFloat(flexString(raw), 64)
	if err != nil {
		return time.Now().Unix() * 1_000_000
	}
	return int64(seconds) * 1_000_000
}
