package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rpggio/tally/internal/config"
	"github.com/rpggio/tally/internal/domain/activity"
	"github.com/rpggio/tally/internal/kv"
	"github.com/rpggio/tally/internal/mcp"
	"github.com/rpggio/tally/internal/storage"
	"github.com/rpggio/tally/internal/telemetry"
	"github.com/rpggio/tally/internal/transport"
)

var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}

	// Use stderr for logs in stdio mode to keep stdout clean for JSON-RPC.
	logWriter := io.Writer(os.Stdout)
	if cfg.Transport.Mode == config.ModeStdio {
		logWriter = os.Stderr
	}
	if logPath := os.Getenv("TALLY_LOG_PATH"); logPath != "" {
		fileWriter, err := newLogFileWriter(logPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "log file error: %v\n", err)
		} else {
			defer fileWriter.Close()
			logWriter = fileWriter
		}
	}
	logger := slog.New(slog.NewTextHandler(logWriter, &slog.HandlerOptions{
		Level: parseLogLevel(cfg.Log.Level),
	}))

	openCtx, cancelOpen := context.WithTimeout(context.Background(), 10*time.Second)
	store, err := storage.Open(openCtx, cfg.Storage)
	cancelOpen()
	if err != nil {
		logger.Error("failed to open storage", "backend", cfg.Storage.Backend, "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error("failed to close storage", "error", err)
		}
	}()

	activitySvc, registry := newActivityService(store, cfg, logger)

	resolver := transport.NewKeyResolver(cfg.Auth.Keys)
	mcpServer := mcp.NewServer(mcp.Config{
		Activity:      activitySvc,
		Resolver:      resolver,
		AuthEnabled:   cfg.Auth.Enabled,
		TransportMode: cfg.Transport.Mode,
		Version:       version,
		Logger:        logger,
	})

	logger.Info("storage ready", "backend", cfg.Storage.Backend, "slot", cfg.Activity.SlotKey)

	// Branch based on transport mode
	if cfg.Transport.Mode == config.ModeStdio {
		err = runStdioMode(logger, mcpServer)
	} else {
		var auth func(http.Handler) http.Handler
		if cfg.Auth.Enabled {
			auth = transport.AuthMiddleware(resolver)
		}
		router := transport.NewServer(activitySvc, transport.ServerOptions{
			Auth:    auth,
			Metrics: promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
			MCP:     mcp.NewHTTPHandler(mcpServer),
			Logger:  logger,
		})
		err = runHTTPMode(logger, router, cfg.Server.Host, cfg.Server.Port)
	}
	if err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}

// newActivityService wires the activity log. The returned registry is nil in
// stdio mode, where nothing serves /metrics.
func newActivityService(store kv.SlotStore, cfg config.Config, logger *slog.Logger) (*activity.Service, *prometheus.Registry) {
	opts := storage.ActivityOptions(cfg.Activity)
	if cfg.Transport.Mode == config.ModeStdio {
		return activity.NewService(store, logger, opts...), nil
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := telemetry.New(registry)

	svc := activity.NewService(store, logger, append(opts, activity.WithObserver(metrics.Observe))...)
	metrics.TrackLog(svc)
	return svc, registry
}

func runStdioMode(logger *slog.Logger, mcpServer *sdkmcp.Server) error {
	logger.Info("starting stdio transport", "auth", "disabled")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Run blocks until stdin closes or context is canceled
	if err := mcpServer.Run(ctx, &sdkmcp.StdioTransport{}); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logger.Info("shutting down")
	return nil
}

func runHTTPMode(logger *slog.Logger, handler http.Handler, host string, port int) error {
	addr := fmt.Sprintf("%s:%d", host, port)
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", "addr", addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	return waitForShutdown(logger, httpServer, errCh)
}

func waitForShutdown(logger *slog.Logger, server *http.Server, errCh <-chan error) error {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(stop)

	select {
	case err := <-errCh:
		return err
	case <-stop:
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	logger.Info("shutting down")
	return server.Shutdown(ctx)
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
