// Command backend is the main entrypoint for the chat-tender service. It:
//   - Loads configuration and initializes structured logging.
//   - Bootstraps an anonymous Reddit session for authenticated API access.
//   - Resolves the configured RPAN stream (or discovers a live one) and taps its
//     live chat feed, reconnecting across transient drops.
//   - Exposes a minimal HTTP server with /healthz, /readyz, /status, /metrics, and
//     an SSE chat stream at /chat/stream.
//
// Shutdown is graceful on SIGINT/SIGTERM.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	_ "net/http/pprof" //nolint:gosec // G108: pprof endpoints enabled only when ENABLE_PPROF=1
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/onnwee/chat-tender/backend/chat"
	"github.com/onnwee/chat-tender/backend/config"
	"github.com/onnwee/chat-tender/backend/redditapi"
	"github.com/onnwee/chat-tender/backend/server"
	"github.com/onnwee/chat-tender/backend/telemetry"
)

func main() {
	// Load .env file if present (local dev convenience only; production relies on real env)
	_ = godotenv.Load("backend/.env")

	// Configure logging (level + format). Defaults: level=info, format=text.
	lvl := slog.LevelInfo
	switch strings.ToLower(os.Getenv("LOG_LEVEL")) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	case "info", "":
		// keep default
	default:
		tmp := slog.New(slog.NewTextHandler(os.Stdout, nil))
		tmp.Warn("unknown LOG_LEVEL, using info", slog.String("value", os.Getenv("LOG_LEVEL")))
	}
	format := strings.ToLower(os.Getenv("LOG_FORMAT")) // text | json
	var handler slog.Handler
	switch format {
	case "json":
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	default:
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	}
	slog.SetDefault(slog.New(handler))
	slog.Info("logger initialized", slog.String("level", lvl.String()), slog.String("format", map[bool]string{true: "json", false: "text"}[format == "json"]))

	// Config
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", slog.Any("err", err))
		os.Exit(1)
	}
	if err := cfg.ValidateStreamReady(); err != nil {
		slog.Error("stream configuration invalid", slog.Any("err", err))
		os.Exit(1)
	}

	// Metrics / telemetry init
	telemetry.Init()

	// Initialize OpenTelemetry tracing (optional; requires OTEL_EXPORTER_OTLP_ENDPOINT)
	shutdown, err := telemetry.InitTracing("chat-tender", "1.0.0")
	if err != nil {
		slog.Error("tracing initialization failed", slog.Any("err", err))
		os.Exit(1)
	}
	defer shutdown()

	// Root context with graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client := redditapi.NewClient()
	policy := redditapi.RetryPolicy{MaxAttempts: cfg.MaxAttempts, RetryTimeout: cfg.RetryTimeout}

	// Best-effort: scrape a session token from the homepage. Anonymous access works
	// for public broadcasts, so a failed bootstrap is not fatal.
	bootCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	if err := client.BootstrapSession(bootCtx, policy); err != nil {
		slog.Warn("session bootstrap failed, continuing anonymously", slog.Any("err", err))
	}
	cancel()

	broker := server.NewBroker()
	status := server.NewStatusTracker()

	go runAcquisition(ctx, client, cfg, broker, status)

	// Enable pprof profiling endpoints in debug mode (ENABLE_PPROF=1)
	if os.Getenv("ENABLE_PPROF") == "1" {
		pprofAddr := os.Getenv("PPROF_ADDR")
		if pprofAddr == "" {
			pprofAddr = "localhost:6060"
		}
		go func() {
			slog.Info("pprof profiling enabled", slog.String("addr", pprofAddr))
			srv := &http.Server{
				Addr:              pprofAddr,
				Handler:           nil, // default mux exposes /debug/pprof
				ReadHeaderTimeout: 5 * time.Second,
				ReadTimeout:       10 * time.Second,
				WriteTimeout:      10 * time.Second,
				IdleTimeout:       60 * time.Second,
			}
			if err := srv.ListenAndServe(); err != nil {
				slog.Error("pprof server error", slog.Any("err", err))
			}
		}()
	}

	// HTTP server (health/readiness/status/metrics/SSE)
	go func() {
		if err := server.Start(ctx, server.NewHandlers(broker, status), cfg.HTTPAddr); err != nil {
			slog.Error("http server exited with error", slog.Any("err", err))
		}
	}()

	// Block until shutdown signal
	<-ctx.Done()
	slog.Info("shutting down")
}

// runAcquisition resolves the target stream, opens its chat feed, and pumps records
// into the broker until the context is cancelled or the feed fails permanently.
func runAcquisition(ctx context.Context, client *redditapi.Client, cfg *config.Config, broker *server.Broker, status *server.StatusTracker) {
	policy := redditapi.RetryPolicy{MaxAttempts: cfg.MaxAttempts, RetryTimeout: cfg.RetryTimeout}

	streamID := cfg.StreamID
	if streamID == "" && cfg.Discover {
		id, err := discoverStream(ctx, client, policy)
		if err != nil {
			slog.Error("broadcast discovery failed", slog.Any("err", err))
			return
		}
		streamID = id
		slog.Info("discovered live broadcast", slog.String("stream_id", streamID))
	}

	session, err := chat.GetChat(ctx, client, streamID, chat.Options{
		MaxAttempts:           cfg.MaxAttempts,
		RetryTimeout:          cfg.RetryTimeout,
		MessageReceiveTimeout: cfg.MessageReceiveTimeout,
	})
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		slog.Error("failed to open chat session", slog.String("stream_id", streamID), slog.Any("err", err))
		return
	}
	defer func() {
		if err := session.Close(); err != nil {
			slog.Warn("failed to close chat session", slog.Any("err", err))
		}
	}()

	status.SetSession(streamID, session.Title, session.IsLive, session.StartTime)
	status.SetFeedConnected(true)
	slog.Info("chat session established",
		slog.String("stream_id", streamID),
		slog.String("title", session.Title),
		slog.Time("start", session.StartTime))

	for {
		rec, err := session.Next(ctx)
		if err != nil {
			status.SetFeedConnected(false)
			if errors.Is(err, context.Canceled) {
				return
			}
			slog.Error("chat acquisition stopped", slog.String("stream_id", streamID), slog.Any("err", err))
			return
		}
		status.RecordSeen()
		broker.Publish(rec)
	}
}

// discoverStream returns the stream id of the first live broadcast in the directory.
func discoverStream(ctx context.Context, client *redditapi.Client, policy redditapi.RetryPolicy) (string, error) {
	urls, err := client.Broadcasts(ctx, policy)
	if err != nil {
		return "", err
	}
	for _, u := range urls {
		if id, ok := redditapi.StreamIDFromURL(u); ok {
			return id, nil
		}
	}
	return "", errors.New("no live broadcasts available")
}
