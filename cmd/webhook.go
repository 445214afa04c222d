package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/gashawdemlew/telegram-info-guide-bot/internal/api"
	"github.com/gashawdemlew/telegram-info-guide-bot/internal/app"
	"github.com/gashawdemlew/telegram-info-guide-bot/internal/bot"
	"github.com/gashawdemlew/telegram-info-guide-bot/internal/config"
	"github.com/gashawdemlew/telegram-info-guide-bot/internal/log"
)

// Server timeout configuration.
const (
	readHeaderTimeout = 10 * time.Second
	readTimeout       = 30 * time.Second
	writeTimeout      = 30 * time.Second
	idleTimeout       = 2 * time.Minute
	shutdownTimeout   = 30 * time.Second
)

var webhookCmd = &cobra.Command{
	Use:   "webhook",
	Short: "Run the bot with push-based webhook ingestion",
	RunE:  runWebhook,
}

func init() {
	rootCmd.AddCommand(webhookCmd)
}

func runWebhook(_ *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if err = cfg.ValidateWebhook(); err != nil {
		return fmt.Errorf("validating config: %w", err)
	}

	logger := log.New(log.Config{Level: cfg.Level(), JSON: cfg.LogJSON})

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	a, err := app.Setup(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("initializing application: %w", err)
	}

	// The queue decouples webhook acknowledgement from AI processing.
	queue := bot.NewQueue(cfg.QueueSize, a.Dispatcher, logger.With("component", "queue"))
	go queue.Run(ctx)

	apiServer, err := api.NewServer(api.ServerConfig{
		Logger:      logger.With("component", "api"),
		Queue:       queue,
		ParseUpdate: a.Telegram.ParseUpdate,
		RootMessage: "Bot is running (webhook mode).",
		RateBurst:   cfg.RateBurst,
	})
	if err != nil {
		return fmt.Errorf("creating HTTP server: %w", err)
	}

	if err := a.Telegram.SetWebhook(cfg.WebhookURL); err != nil {
		return fmt.Errorf("registering webhook: %w", err)
	}

	srv := newHTTPServer(cfg.ListenAddr, apiServer.Handler())

	logger.Info("bot running in webhook mode",
		"username", a.Telegram.Username(),
		"addr", cfg.ListenAddr,
		"webhook", cfg.WebhookURL,
	)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down webhook server")
		shutdownHTTPServer(srv, logger)
		<-errCh
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server: %w", err)
		}
	}

	// Drain in-flight exchanges before exit.
	cancel()
	queue.Wait()
	logger.Info("shutdown complete", "live_sessions", a.Sessions.Len())
	return nil
}

// newHTTPServer applies the shared timeout configuration.
func newHTTPServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: readHeaderTimeout,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
	}
}

// shutdownHTTPServer performs a bounded graceful shutdown.
func shutdownHTTPServer(srv *http.Server, logger *slog.Logger) {
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("HTTP server shutdown", "error", err)
	}
}
