package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/aerostream/aeros/internal/answer"
)

// Config holds the HTTP server configuration.
type Config struct {
	// Host is the address to bind to (default: 127.0.0.1).
	Host string
	// Port is the TCP port to listen on (default: 8080).
	Port int
	// ReadTimeout is the maximum duration for reading the request.
	ReadTimeout time.Duration
	// WriteTimeout is the maximum duration for writing the response.
	// Must cover a full generation round-trip.
	WriteTimeout time.Duration
	// ShutdownTimeout is the maximum duration for a graceful shutdown.
	ShutdownTimeout time.Duration
	// Logger is the structured logger used by the server and its handlers.
	// If nil, a default logger is used.
	Logger *slog.Logger
	// Pingers is the ordered list of dependency probes run by GET /api/ready.
	// If empty, /api/ready returns 200 with no checks (liveness-only mode).
	Pingers []Pinger
	// RateLimit is the sustained request rate allowed per IP on /api/ask
	// (requests/second). Defaults to 10 if zero.
	RateLimit float64
	// RateBurst is the maximum instantaneous burst per IP. Defaults to 20 if zero.
	RateBurst int
	// APIKey is the Bearer token required on /api/ask. If empty,
	// authentication is disabled (development mode).
	APIKey string
}

// answerer is the interface handleAsk calls to run the pipeline.
// *answer.Engine satisfies it; tests inject a fake.
type answerer interface {
	Answer(ctx context.Context, query string) (*answer.Result, error)
}

// Server exposes the answer pipeline over HTTP.
type Server struct {
	// answerer runs the pipeline for /api/ask.
	answerer answerer
	// cfg holds the resolved server configuration.
	cfg *Config
	// httpServer is the underlying net/http server.
	httpServer *http.Server
	// log is the structured logger for this server instance.
	log *slog.Logger
	// pingers is the ordered list of dependency probes for GET /api/ready.
	pingers []Pinger
	// metrics holds the Prometheus instruments owned by this server.
	metrics *serverMetrics
	// stopRL stops the rate limiter's background eviction goroutine on shutdown.
	stopRL func()
}

// askRequest is the JSON body for POST /api/ask.
type askRequest struct {
	// Question is the user's natural language query.
	Question string `json:"question"`
}

// askResponse is the JSON response for POST /api/ask.
type askResponse struct {
	// Answer is the generated answer including the references block.
	Answer string `json:"answer"`
	// Citations lists the deduplicated source references.
	Citations []string `json:"citations"`
	// Chunks holds the retrieved context the answer was grounded on.
	Chunks []string `json:"chunks"`
	// Model is the model that produced the answer.
	Model string `json:"model"`
	// RetrievalType is the retrieval strategy used, or "blocked".
	RetrievalType string `json:"retrieval_type"`
	// LatencyMS is the end-to-end pipeline latency in milliseconds.
	LatencyMS int64 `json:"latency_ms"`
}
