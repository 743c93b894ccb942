// Package config loads environment variables and provides a typed Config used across the service.
// It applies sensible defaults so the binary can run locally with minimal setup.
// For required stream settings (manual tap mode), use ValidateStreamReady.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	// Stream selection
	StreamID string // RPAN post id without the t3_ prefix
	Discover bool   // pick the first live broadcast when StreamID is empty

	// Retry / polling policy shared by the resolver and the feed consumer
	MaxAttempts           int
	RetryTimeout          time.Duration // backoff seed between attempts
	MessageReceiveTimeout time.Duration // idle interval before the feed is health-probed

	// HTTP
	HTTPAddr string
}

// Load reads environment variables and applies defaults. It doesn't fail if no stream is
// configured; use ValidateStreamReady() when you require a chat tap. MAX_ATTEMPTS doubles
// as the liveness-polling budget for streams that are announced but not yet live, so the
// default is deliberately generous.
func Load() (*Config, error) {
	cfg := &Config{}

	cfg.StreamID = os.Getenv("RPAN_STREAM_ID")
	cfg.Discover = os.Getenv("RPAN_DISCOVER") == "1"

	cfg.MaxAttempts = 30
	if s := os.Getenv("MAX_ATTEMPTS"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("invalid MAX_ATTEMPTS (positive integer): %q", s)
		}
		cfg.MaxAttempts = n
	}

	cfg.RetryTimeout = 2 * time.Second
	if s := os.Getenv("RETRY_TIMEOUT"); s != "" {
		d, err := time.ParseDuration(s)
		if err != nil || d <= 0 {
			return nil, fmt.Errorf("invalid RETRY_TIMEOUT (duration): %q", s)
		}
		cfg.RetryTimeout = d
	}

	cfg.MessageReceiveTimeout = time.Second
	if s := os.Getenv("MESSAGE_RECEIVE_TIMEOUT"); s != "" {
		d, err := time.ParseDuration(s)
		if err != nil || d <= 0 {
			return nil, fmt.Errorf("invalid MESSAGE_RECEIVE_TIMEOUT (duration): %q", s)
		}
		cfg.MessageReceiveTimeout = d
	}

	cfg.HTTPAddr = os.Getenv("HTTP_ADDR")
	if cfg.HTTPAddr == "" {
		cfg.HTTPAddr = ":8080"
	}

	return cfg, nil
}

// ValidateStreamReady checks that a stream can actually be tapped: either a fixed
// RPAN_STREAM_ID or discovery mode must be configured.
func (c *Config) ValidateStreamReady() error {
	if c.StreamID == "" && !c.Discover {
		return fmt.Errorf("missing stream env: require RPAN_STREAM_ID or RPAN_DISCOVER=1")
	}
	return nil
}
