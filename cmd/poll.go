package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/gashawdemlew/telegram-info-guide-bot/internal/api"
	"github.com/gashawdemlew/telegram-info-guide-bot/internal/app"
	"github.com/gashawdemlew/telegram-info-guide-bot/internal/bot"
	"github.com/gashawdemlew/telegram-info-guide-bot/internal/config"
	"github.com/gashawdemlew/telegram-info-guide-bot/internal/log"
)

// serveHealth controls whether poll mode also binds the liveness HTTP
// server. Off by default: single-service deployments own the main thread
// with the polling loop alone.
var serveHealth bool

var pollCmd = &cobra.Command{
	Use:   "poll",
	Short: "Run the bot with a long-polling loop",
	RunE:  runPoll,
}

func init() {
	pollCmd.Flags().BoolVar(&serveHealth, "serve-health", false,
		"also serve the liveness HTTP endpoints on listen_addr")
	rootCmd.AddCommand(pollCmd)
}

func runPoll(_ *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := log.New(log.Config{Level: cfg.Level(), JSON: cfg.LogJSON})

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	a, err := app.Setup(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("initializing application: %w", err)
	}

	// Each update is dispatched on its own goroutine so one user's hung
	// backend call never blocks the retrieval loop or other users.
	var wg sync.WaitGroup
	dispatch := func(upd bot.Update) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			a.Dispatcher.Dispatch(ctx, upd)
		}()
	}

	errCh := make(chan error, 2)

	var srv *http.Server
	if serveHealth {
		apiServer, err := api.NewServer(api.ServerConfig{
			Logger:      logger.With("component", "api"),
			RootMessage: "Bot is running.",
			RateBurst:   cfg.RateBurst,
		})
		if err != nil {
			return fmt.Errorf("creating HTTP server: %w", err)
		}
		srv = newHTTPServer(cfg.ListenAddr, apiServer.Handler())
		go func() {
			errCh <- srv.ListenAndServe()
		}()
		logger.Info("liveness server ready", "addr", cfg.ListenAddr)
	}

	go func() {
		errCh <- a.Telegram.Poll(ctx, dispatch)
	}()

	logger.Info("bot running in polling mode", "username", a.Telegram.Username())

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			cancel()
			wg.Wait()
			return err
		}
		cancel()
	}

	if srv != nil {
		shutdownHTTPServer(srv, logger)
	}
	wg.Wait()
	logger.Info("shutdown complete", "live_sessions", a.Sessions.Len())
	return nil
}
