package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/apresai/podcraft/internal/config"
	"github.com/apresai/podcraft/internal/mcpserver"
	"github.com/apresai/podcraft/internal/observability"
)

var version = "dev"

// shutdownGrace leaves running tasks time to record their failure before
// the platform kills the process.
const shutdownGrace = 8 * time.Second

func main() {
	configFile := flag.String("config", "", "config file")
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		observability.NewLogger(config.LoggingConfig{Format: "json"}, os.Stderr).Error("load config", "error", err)
		os.Exit(1)
	}
	logger := observability.NewLogger(cfg.Logging, os.Stderr)
	logger.Info("podcraft MCP server starting", "version", version)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	tp, err := observability.InitTracer(ctx, "podcraft-mcp", version)
	if err != nil {
		logger.Warn("failed to init tracer, continuing without tracing", "error", err)
	} else if tp != nil {
		defer func() {
			if err := tp.Shutdown(context.Background()); err != nil {
				logger.Error("tracer shutdown error", "error", err)
			}
		}()
	}

	srv, err := mcpserver.New(ctx, cfg, version, logger)
	if err != nil {
		logger.Error("failed to create server", "error", err)
		os.Exit(1)
	}

	errc := make(chan error, 1)
	go func() { errc <- srv.Start() }()

	select {
	case err := <-errc:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	case <-ctx.Done():
		logger.Info("shutdown signal received, waiting for active tasks")
		shutdownCtx, stop := context.WithTimeout(context.Background(), shutdownGrace+2*time.Second)
		defer stop()
		if err := srv.Shutdown(shutdownCtx, shutdownGrace); err != nil {
			logger.Error("shutdown error", "error", err)
		}
		logger.Info("shutdown complete")
	}
}
