package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/gashawdemlew/telegram-info-guide-bot/internal/gemini"
	"github.com/gashawdemlew/telegram-info-guide-bot/internal/session"
)

// Fixed user-visible reply texts. Every exit path from a handled update
// sends exactly one of these (or the model's own reply).
const (
	greetingTemplate = "Hello, %s! I am an AI bot powered by Gemini and I remember our conversation. Ask me anything!"

	replyReset     = "Conversation memory has been reset! Starting a fresh chat now."
	replyResetNoop = "You are already starting a new chat!"

	replyNotConfigured = "AI service is not configured. Please check the GEMINI_API_KEY."
	replyBackendError  = "I apologize, but I received an error from the AI service. The API might be incorrectly configured."
	replyUnexpected    = "Something went wrong while I was thinking. Try asking again!"

	// replyEmpty substitutes for a valid-but-empty model response so the
	// user never receives an empty message.
	replyEmpty = "🤖 (Empty response from Gemini.)"
)

// Messenger delivers outbound side effects to the chat platform.
// Defined by the consumer; satisfied by *telegram.Client.
type Messenger interface {
	SendMessage(ctx context.Context, chatID int64, text string) error
	SendTyping(ctx context.Context, chatID int64) error
}

// Gateway is the slice of the AI gateway the dispatcher needs directly.
// Session construction goes through the store's factory, so the dispatcher
// only asks whether the backend initialized at all.
type Gateway interface {
	Configured() bool
}

// Config contains all required parameters for the Dispatcher.
type Config struct {
	Messenger Messenger
	Gateway   Gateway
	Sessions  *session.Store
	Logger    *slog.Logger
}

func (cfg Config) validate() error {
	if cfg.Messenger == nil {
		return errors.New("messenger is required")
	}
	if cfg.Gateway == nil {
		return errors.New("gateway is required")
	}
	if cfg.Sessions == nil {
		return errors.New("session store is required")
	}
	return nil
}

// Dispatcher routes inbound updates to handlers. It never mutates the
// session store directly outside the store's own operations, and it is
// stateless across updates — safe for concurrent Dispatch calls.
type Dispatcher struct {
	messenger Messenger
	gateway   Gateway
	sessions  *session.Store
	logger    *slog.Logger
}

// New creates a Dispatcher.
func New(cfg Config) (*Dispatcher, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		messenger: cfg.Messenger,
		gateway:   cfg.Gateway,
		sessions:  cfg.Sessions,
		logger:    logger,
	}, nil
}

// Dispatch classifies one update and runs the matching handler to
// completion. Only start, reset, and plain-text messages are bound;
// anything else is ignored without a reply.
func (d *Dispatcher) Dispatch(ctx context.Context, upd Update) {
	switch {
	case upd.Command == CommandStart:
		d.handleStart(ctx, upd)
	case upd.Command == CommandReset:
		d.handleReset(ctx, upd)
	case upd.Command == "" && upd.Text != "":
		d.handleMessage(ctx, upd)
	default:
		d.logger.Debug("ignoring update",
			"user_id", upd.UserID,
			"command", upd.Command)
	}
}

// handleStart emits the static templated welcome. No session interaction.
func (d *Dispatcher) handleStart(ctx context.Context, upd Update) {
	d.reply(ctx, upd.ChatID, fmt.Sprintf(greetingTemplate, upd.FirstName))
}

// handleReset evicts the user's conversation. Idempotent: evicting an
// absent session just confirms the user is already on a fresh chat.
func (d *Dispatcher) handleReset(ctx context.Context, upd Update) {
	if d.sessions.Evict(upd.UserID) {
		d.reply(ctx, upd.ChatID, replyReset)
		return
	}
	d.reply(ctx, upd.ChatID, replyResetNoop)
}

// handleMessage runs the AI exchange. Fail-closed: every exit path sends
// exactly one reply, and a panic anywhere in the exchange degrades to the
// generic message rather than silence.
func (d *Dispatcher) handleMessage(ctx context.Context, upd Update) {
	replied := false
	reply := func(text string) {
		replied = true
		d.reply(ctx, upd.ChatID, text)
	}

	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("panic during AI exchange",
				"panic", r,
				"user_id", upd.UserID)
			if !replied {
				reply(replyUnexpected)
			}
		}
	}()

	// Configuration check precedes any side effect, typing included.
	if !d.gateway.Configured() {
		reply(replyNotConfigured)
		return
	}

	// Best-effort: a failed typing indicator must never abort the exchange.
	if err := d.messenger.SendTyping(ctx, upd.ChatID); err != nil {
		d.logger.Warn("typing indicator failed",
			"chat_id", upd.ChatID,
			"error", err)
	}

	d.logger.Info("received message",
		"user_id", upd.UserID,
		"length", len(upd.Text))

	conv, _, err := d.sessions.GetOrCreate(ctx, upd.UserID)
	if err != nil {
		reply(d.errorReply(err))
		return
	}

	text, err := conv.Send(ctx, upd.Text)
	if err != nil {
		// A failed exchange does not evict the session; history survives.
		reply(d.errorReply(err))
		return
	}

	if strings.TrimSpace(text) == "" {
		text = replyEmpty
	}
	reply(text)
}

// errorReply translates an exchange failure into its fixed user-visible
// text. The underlying error is logged with detail and never propagated to
// the transport layer.
func (d *Dispatcher) errorReply(err error) string {
	switch {
	case errors.Is(err, gemini.ErrNotConfigured):
		d.logger.Error("cannot create chat: AI client not initialized")
		return replyNotConfigured
	case errors.Is(err, gemini.ErrBackend):
		d.logger.Error("Gemini API error", "error", err)
		return replyBackendError
	default:
		d.logger.Error("unexpected error during AI exchange", "error", err)
		return replyUnexpected
	}
}

// reply sends one outbound message. Delivery failure is logged; there is
// nothing further to do — the event is considered handled either way.
func (d *Dispatcher) reply(ctx context.Context, chatID int64, text string) {
	if err := d.messenger.SendMessage(ctx, chatID, text); err != nil {
		d.logger.Error("sending reply failed",
			"chat_id", chatID,
			"error", err)
	}
}
