// Package telegram adapts the Telegram Bot API to the dispatcher's view of
// the world: it turns raw platform updates into [bot.Update] values and
// carries outbound side effects (replies, typing, webhook registration).
// Everything protocol-specific stays behind this seam.
package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/gashawdemlew/telegram-info-guide-bot/internal/bot"
)

// Config contains parameters for the transport client.
type Config struct {
	Token       string
	PollTimeout int // long-poll timeout in seconds
	Logger      *slog.Logger
}

// Client is a thin wrapper over the Bot API SDK. Safe for concurrent use;
// the SDK client keeps no per-call state.
type Client struct {
	api         *tgbotapi.BotAPI
	pollTimeout int
	logger      *slog.Logger
}

// NewClient authenticates against the Bot API. A bad token fails here,
// which is the startup-fatal path for the whole process.
func NewClient(cfg Config) (*Client, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	api, err := tgbotapi.NewBotAPI(cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("authenticating bot: %w", err)
	}

	timeout := cfg.PollTimeout
	if timeout <= 0 {
		timeout = 30
	}

	logger.Info("authenticated with Telegram", "username", api.Self.UserName)
	return &Client{
		api:         api,
		pollTimeout: timeout,
		logger:      logger,
	}, nil
}

// Username returns the bot account name, for startup logging.
func (c *Client) Username() string {
	return c.api.Self.UserName
}

// SendMessage delivers one text reply to the given chat.
// The SDK has no context plumbing; ctx is honored by failing fast when the
// caller already gave up.
func (c *Client) SendMessage(ctx context.Context, chatID int64, text string) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("send canceled: %w", err)
	}
	if _, err := c.api.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		return fmt.Errorf("sending message to chat %d: %w", chatID, err)
	}
	return nil
}

// SendTyping emits the typing chat action. Callers treat failure as
// best-effort; this just reports it.
func (c *Client) SendTyping(ctx context.Context, chatID int64) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("typing canceled: %w", err)
	}
	if _, err := c.api.Request(tgbotapi.NewChatAction(chatID, tgbotapi.ChatTyping)); err != nil {
		return fmt.Errorf("sending typing action to chat %d: %w", chatID, err)
	}
	return nil
}

// Poll runs the blocking long-poll loop, feeding each dispatchable update
// to fn in arrival order. Updates queued before process start are dropped
// first (drop-pending-on-restart policy). Returns nil when ctx is canceled.
//
// fn is expected to hand off quickly (the dispatcher runs each update on
// its own goroutine); a slow fn stalls retrieval for all users.
func (c *Client) Poll(ctx context.Context, fn func(bot.Update)) error {
	if err := c.DeleteWebhook(true); err != nil {
		return fmt.Errorf("dropping pending updates: %w", err)
	}

	u := tgbotapi.NewUpdate(0)
	u.Timeout = c.pollTimeout
	u.AllowedUpdates = []string{"message"}

	updates := c.api.GetUpdatesChan(u)
	defer c.api.StopReceivingUpdates()

	c.logger.Info("starting bot polling", "timeout_s", c.pollTimeout)
	for {
		select {
		case <-ctx.Done():
			return nil
		case raw, ok := <-updates:
			if !ok {
				return nil
			}
			upd := FromBotUpdate(raw)
			if upd.IsZero() {
				continue
			}
			fn(upd)
		}
	}
}

// SetWebhook registers url as the push callback for this bot, dropping any
// updates queued before registration.
func (c *Client) SetWebhook(url string) error {
	wh, err := tgbotapi.NewWebhook(url)
	if err != nil {
		return fmt.Errorf("building webhook config: %w", err)
	}
	wh.DropPendingUpdates = true
	wh.AllowedUpdates = []string{"message"}
	if _, err := c.api.Request(wh); err != nil {
		return fmt.Errorf("registering webhook: %w", err)
	}
	c.logger.Info("webhook registered", "url", url)
	return nil
}

// DeleteWebhook removes any registered push callback. Required before
// polling; also used on webhook-mode shutdown.
func (c *Client) DeleteWebhook(dropPending bool) error {
	if _, err := c.api.Request(tgbotapi.DeleteWebhookConfig{
		DropPendingUpdates: dropPending,
	}); err != nil {
		return fmt.Errorf("deleting webhook: %w", err)
	}
	return nil
}

// ParseUpdate decodes one webhook delivery into a dispatchable update.
// Bodies that parse but carry no message return the zero Update with a nil
// error; the endpoint still acks those (the platform must not retry them).
func (c *Client) ParseUpdate(r *http.Request) (bot.Update, error) {
	raw, err := c.api.HandleUpdate(r)
	if err != nil {
		return bot.Update{}, fmt.Errorf("decoding update: %w", err)
	}
	return FromBotUpdate(*raw), nil
}
