// Package telemetry provides Prometheus metrics, tracing setup, and correlation-id
// aware context helpers.
package telemetry

import (
	"context"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	once sync.Once

	// Counters
	ResolveAttempts    prometheus.Counter
	ResolveRetries     prometheus.Counter
	SoftFailureRetries prometheus.Counter
	FramesReceived     prometheus.Counter
	FramesDropped      prometheus.Counter // frames that failed JSON decoding
	FramesSkipped      prometheus.Counter // frames with an unrecognized message type
	FeedReconnects     prometheus.Counter
	BroadcastPolls     prometheus.Counter

	// Gauges
	FeedConnectedGauge  prometheus.Gauge // 1=streaming,0=disconnected
	SSESubscribersGauge prometheus.Gauge
)

// Init registers metrics (idempotent).
func Init() {
	once.Do(func() {
		ResolveAttempts = promauto.NewCounter(prometheus.CounterOpts{Name: "chat_resolve_attempts_total", Help: "Number of stream resolution attempts issued"})
		ResolveRetries = promauto.NewCounter(prometheus.CounterOpts{Name: "chat_resolve_retries_total", Help: "Number of stream resolution retries (transient or soft failures)"})
		SoftFailureRetries = promauto.NewCounter(prometheus.CounterOpts{Name: "chat_soft_failure_retries_total", Help: "Number of retries caused by stream-not-yet-live responses"})
		FramesReceived = promauto.NewCounter(prometheus.CounterOpts{Name: "chat_frames_received_total", Help: "Number of chat frames normalized and emitted"})
		FramesDropped = promauto.NewCounter(prometheus.CounterOpts{Name: "chat_frames_dropped_total", Help: "Number of chat frames dropped due to decode failure"})
		FramesSkipped = promauto.NewCounter(prometheus.CounterOpts{Name: "chat_frames_skipped_total", Help: "Number of chat frames skipped due to unrecognized message type"})
		FeedReconnects = promauto.NewCounter(prometheus.CounterOpts{Name: "chat_feed_reconnects_total", Help: "Number of websocket feed reconnections"})
		BroadcastPolls = promauto.NewCounter(prometheus.CounterOpts{Name: "chat_broadcast_polls_total", Help: "Number of broadcast directory fetches"})
		FeedConnectedGauge = promauto.NewGauge(prometheus.GaugeOpts{Name: "chat_feed_connected", Help: "Feed connection state: streaming=1 disconnected=0"})
		SSESubscribersGauge = promauto.NewGauge(prometheus.GaugeOpts{Name: "chat_sse_subscribers", Help: "Current number of SSE chat subscribers"})
	})
}

// Count increments a counter if metrics are initialized.
func Count(c prometheus.Counter) {
	if c != nil {
		c.Inc()
	}
}

// SetFeedConnected sets the feed gauge to 1 if connected else 0.
func SetFeedConnected(connected bool) {
	if FeedConnectedGauge != nil {
		if connected {
			FeedConnectedGauge.Set(1)
		} else {
			FeedConnectedGauge.Set(0)
		}
	}
}

// SetSSESubscribers records the current SSE subscriber count.
func SetSSESubscribers(n int) {
	if SSESubscribersGauge != nil {
		SSESubscribersGauge.Set(float64(n))
	}
}

// Correlation ID helpers ----------------------------------------------------
type corrKeyType struct{}

var corrKey corrKeyType

// WithCorrelation returns a new context embedding the correlation id.
func WithCorrelation(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, corrKey, id)
}

// GetCorrelation returns the correlation id or empty string.
func GetCorrelation(ctx context.Context) string {
	v := ctx.Value(corrKey)
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}
