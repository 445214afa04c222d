// Package app provides application initialization and dependency wiring.
//
// Setup constructs every component once at startup and passes them by
// reference into the dispatcher — there is no process-wide singleton client
// and no per-request mutable context bag. Both run modes (poll and webhook)
// share the same App.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/gashawdemlew/telegram-info-guide-bot/internal/bot"
	"github.com/gashawdemlew/telegram-info-guide-bot/internal/config"
	"github.com/gashawdemlew/telegram-info-guide-bot/internal/gemini"
	"github.com/gashawdemlew/telegram-info-guide-bot/internal/session"
	"github.com/gashawdemlew/telegram-info-guide-bot/internal/telegram"
)

// App is the core application container.
type App struct {
	Config     *config.Config
	Logger     *slog.Logger
	Telegram   *telegram.Client
	Gateway    *gemini.Gateway
	Sessions   *session.Store
	Dispatcher *bot.Dispatcher
}

// Setup creates and wires all components. The Telegram client is the only
// fatal dependency; an uninitialized Gemini gateway degrades AI features
// but keeps the process (and its liveness surface) alive.
func Setup(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}

	tg, err := telegram.NewClient(telegram.Config{
		Token:       cfg.BotToken,
		PollTimeout: cfg.PollTimeout,
		Logger:      logger.With("component", "telegram"),
	})
	if err != nil {
		return nil, fmt.Errorf("creating Telegram client: %w", err)
	}

	gateway := gemini.New(ctx, gemini.Config{
		APIKey:       cfg.GeminiAPIKey,
		ModelName:    cfg.ModelName,
		SystemPrompt: cfg.SystemPrompt,
		Logger:       logger.With("component", "gemini"),
	})

	sessions, err := session.New(func(ctx context.Context) (session.Conversation, error) {
		return gateway.NewSession(ctx)
	}, logger.With("component", "session"))
	if err != nil {
		return nil, fmt.Errorf("creating session store: %w", err)
	}

	dispatcher, err := bot.New(bot.Config{
		Messenger: tg,
		Gateway:   gateway,
		Sessions:  sessions,
		Logger:    logger.With("component", "dispatcher"),
	})
	if err != nil {
		return nil, fmt.Errorf("creating dispatcher: %w", err)
	}

	return &App{
		Config:     cfg,
		Logger:     logger,
		Telegram:   tg,
		Gateway:    gateway,
		Sessions:   sessions,
		Dispatcher: dispatcher,
	}, nil
}
