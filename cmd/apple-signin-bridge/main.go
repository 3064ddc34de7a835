// Command apple-signin-bridge serves the Sign in with Apple callback, token
// exchange and revocation endpoints for Android and web clients.
//
// Configuration is read from the environment; see bridge.Config.
package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	bridge "github.com/User184/apple-signin-bridge"
	"github.com/User184/apple-signin-bridge/instrumentation"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := bridge.LoadConfigFromEnv()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := setupLogger(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("Server stopped", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *bridge.Config, logger *slog.Logger) error {
	inst, err := instrumentation.New(cfg.InstrumentationConfig())
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := inst.Shutdown(shutdownCtx); err != nil {
			logger.Warn("Failed to flush telemetry", "error", err)
		}
	}()

	srv, err := bridge.NewServer(cfg, logger, inst)
	if err != nil {
		return err
	}
	if err := srv.HealthCheck(ctx); err != nil {
		return err
	}

	server := &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      bridge.NewHandler(srv, logger).Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 2*cfg.HTTPTimeout + 15*time.Second, // two Apple calls per request at most
		IdleTimeout:  60 * time.Second,
	}

	logger.Info("Starting Sign in with Apple bridge",
		"addr", server.Addr,
		"client_order", cfg.ClientOrder,
		"callback_failure_policy", cfg.CallbackFailurePolicy,
		"audit_logging", cfg.AuditLogging,
		"otel", cfg.OTelEnabled,
	)
	if cfg.PublicURL == "" {
		logger.Warn("PUBLIC_URL is not set, HSTS is disabled")
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func setupLogger(cfg *bridge.Config) *slog.Logger {
	level, _ := cfg.SlogLevel() // validated by LoadConfigFromEnv
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.LogFormat == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}
