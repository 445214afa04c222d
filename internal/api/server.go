// Package api exposes the bot's HTTP surface: the static liveness endpoints
// and, in webhook mode, the push endpoint the chat platform calls once per
// update.
//
// The webhook contract is acknowledge-first: the handler parses the update,
// hands it to the internal queue, and returns immediately. Processing never
// runs inline — the platform enforces a response-time bound and treats a
// slow acknowledgement as delivery failure, retrying and risking duplicate
// processing.
//
// The liveness endpoints bypass the middleware stack entirely so they keep
// responding even when the webhook path is rate-limited or the AI backend
// is down.
package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gashawdemlew/telegram-info-guide-bot/internal/bot"
)

// DefaultRootMessage is the body served on GET / when none is configured.
const DefaultRootMessage = "Bot is running."

// UpdateParser decodes one webhook delivery into a dispatchable update.
// A delivery that parses but carries nothing dispatchable (edited messages,
// channel posts) returns the zero Update with a nil error; the handler acks
// it without enqueueing. Satisfied by telegram.Client.ParseUpdate.
type UpdateParser func(r *http.Request) (bot.Update, error)

// ServerConfig contains configuration for creating the HTTP server.
type ServerConfig struct {
	Logger      *slog.Logger
	Queue       *bot.Queue   // nil disables POST /webhook (poll-mode liveness server)
	ParseUpdate UpdateParser // required when Queue is set
	RootMessage string       // body for GET /; DefaultRootMessage when empty
	TrustProxy  bool         // trust X-Real-IP/X-Forwarded-For (behind reverse proxy)
	RateBurst   int          // webhook rate limiter burst per IP (0 = default 60)
}

// Server is the bot's HTTP server.
type Server struct {
	mux *http.ServeMux
}

// NewServer creates the server with all routes configured.
func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Queue != nil && cfg.ParseUpdate == nil {
		return nil, errors.New("update parser is required when webhook queue is set")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	rootMessage := cfg.RootMessage
	if rootMessage == "" {
		rootMessage = DefaultRootMessage
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte(rootMessage))
	})

	if cfg.Queue != nil {
		wh := &webhookHandler{
			queue:  cfg.Queue,
			parse:  cfg.ParseUpdate,
			logger: logger,
		}
		mux.HandleFunc("POST /webhook", wh.receive)
	}

	// Rate limiter: per-IP token bucket (1 token/sec refill)
	burst := cfg.RateBurst
	if burst <= 0 {
		burst = 60
	}
	rl := newRateLimiter(1.0, burst)

	// Middleware stack (outermost first):
	//   Recovery → RequestID → Logging → RateLimit → Routes
	// RequestID must be before Logging so request_id is available in log
	// attributes.
	var handler http.Handler = mux
	handler = rateLimitMiddleware(rl, cfg.TrustProxy, logger)(handler)
	handler = loggingMiddleware(logger)(handler)
	handler = requestIDMiddleware()(handler)
	handler = recoveryMiddleware(logger)(handler)

	// Top-level mux separates the health probe from the middleware stack.
	topMux := http.NewServeMux()
	topMux.HandleFunc("GET /health", health)
	topMux.Handle("/", handler)

	return &Server{mux: topMux}, nil
}

// Handler returns the server as an http.Handler.
func (s *Server) Handler() http.Handler {
	return s.mux
}
