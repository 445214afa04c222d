// Package gemini is the gateway to the Gemini AI backend.
//
// The gateway wraps a single genai client created once at startup. Each user
// conversation maps to one [Session], a thin wrapper around the SDK's chat
// object, which carries the turn history opaquely. The gateway classifies
// failures into two conditions callers can branch on with errors.Is:
//
//   - [ErrNotConfigured]: the client never initialized (missing credential).
//     Checked before any network I/O.
//   - [ErrBackend]: the AI service itself rejected or failed the request.
//
// Anything else is an unexpected local fault and passes through unwrapped.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"google.golang.org/genai"
)

// Sentinel errors for gateway operations.
var (
	// ErrNotConfigured indicates the genai client failed to initialize.
	// This is a configuration-time condition: per-request calls fail
	// immediately without attempting network I/O.
	ErrNotConfigured = errors.New("gemini client not configured")

	// ErrBackend indicates a failure reported by the AI service itself
	// (quota, malformed request, transient fault). Not retried here.
	ErrBackend = errors.New("gemini backend error")
)

// Config contains all parameters for the gateway.
type Config struct {
	APIKey       string // empty = gateway runs unconfigured
	ModelName    string // e.g. "gemini-2.0-flash-lite"
	SystemPrompt string // fixed system instruction for every session
	Logger       *slog.Logger
}

// Gateway is the seam between the dispatcher and the Gemini backend.
// It is safe for concurrent use; all mutable state lives in the SDK client.
type Gateway struct {
	client       *genai.Client // nil = unconfigured
	modelName    string
	systemPrompt string
	logger       *slog.Logger
}

// New creates the gateway, initializing the genai client once.
// Initialization failure (including a missing API key) is NOT fatal: the
// gateway is returned unconfigured so that the greeting and reset handlers
// and the liveness endpoint keep working without AI features.
func New(ctx context.Context, cfg Config) *Gateway {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	g := &Gateway{
		modelName:    cfg.ModelName,
		systemPrompt: cfg.SystemPrompt,
		logger:       logger,
	}

	if cfg.APIKey == "" {
		logger.Warn("GEMINI_API_KEY is unset, AI features are disabled")
		return g
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		logger.Error("failed to initialize Gemini client, AI features are disabled",
			"error", err)
		return g
	}

	g.client = client
	logger.Info("Gemini client initialized for chat sessions",
		"model", cfg.ModelName)
	return g
}

// Configured reports whether the backend client initialized successfully.
func (g *Gateway) Configured() bool {
	return g.client != nil
}

// NewSession creates a new chat session with the fixed model and system
// instruction. Fails with ErrNotConfigured when the client never initialized.
func (g *Gateway) NewSession(ctx context.Context) (*Session, error) {
	if g.client == nil {
		return nil, ErrNotConfigured
	}

	chat, err := g.client.Chats.Create(ctx, g.modelName, &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(g.systemPrompt, genai.RoleUser),
	}, nil)
	if err != nil {
		return nil, fmt.Errorf("creating chat session: %w", classify(err))
	}

	return &Session{chat: chat, logger: g.logger}, nil
}

// Session wraps an ongoing multi-turn exchange with the backend. The SDK
// chat object accumulates history; this core never inspects it.
//
// A Session is NOT safe for concurrent Send calls; the dispatcher's
// per-update goroutines may overlap for one user, but the SDK serializes
// turn append internally and the store guarantees a single instance per user.
type Session struct {
	chat   *genai.Chat
	logger *slog.Logger
}

// Send forwards text as the next user turn and returns the reply text.
// An empty reply from the backend is a valid result, not a failure — the
// dispatcher substitutes its placeholder. Backend-reported failures come
// back wrapped as ErrBackend.
func (s *Session) Send(ctx context.Context, text string) (string, error) {
	resp, err := s.chat.SendMessage(ctx, genai.Part{Text: text})
	if err != nil {
		return "", fmt.Errorf("sending message: %w", classify(err))
	}
	return resp.Text(), nil
}

// classify maps genai API errors onto ErrBackend so callers can branch with
// errors.Is without importing the SDK. Other errors pass through unchanged.
func classify(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("%w: %s (code %d)", ErrBackend, apiErr.Message, apiErr.Code)
	}
	return err
}
