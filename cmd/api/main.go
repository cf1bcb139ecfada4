package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/wolfman30/novatech-assistant/internal/app/bootstrap"
	appconfig "github.com/wolfman30/novatech-assistant/internal/config"
	"github.com/wolfman30/novatech-assistant/pkg/logging"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	// Load .env for local runs; real deployments set the environment.
	_ = godotenv.Load()

	// Load configuration
	cfg := appconfig.Load()

	// Initialize logger
	logger := logging.New(cfg.LogLevel)
	logger.Info("starting novatech-assistant API server",
		"env", cfg.Env,
		"port", cfg.Port,
		"version", version,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	app, err := bootstrap.Build(ctx, cfg, version, logger, bootstrap.BuildOptions{VerifyRedis: true})
	if err != nil {
		logger.Error("failed to start", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	// Background jobs: knowledge watcher, dynamic refresh
	jobsDone := make(chan struct{})
	go func() {
		defer close(jobsDone)
		if err := app.Run(ctx); err != nil {
			logger.Error("background jobs stopped", "error", err)
		}
	}()

	srv := newServer(cfg, app.Router())

	// Start server in a goroutine
	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
	}
	cancel()
	<-jobsDone

	logger.Info("server stopped")
	fmt.Println("Server exited gracefully")
}

// newServer sizes timeouts around the LLM budget; WebSocket connections are
// hijacked and so are not bound by them.
func newServer(cfg *appconfig.Config, handler http.Handler) *http.Server {
	write := 15 * time.Second
	if budget := cfg.LLMTimeout + 5*time.Second; budget > write {
		write = budget
	}
	return &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      write,
		IdleTimeout:       60 * time.Second,
	}
}
