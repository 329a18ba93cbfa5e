// Command labelkit-server serves a project's annotations over HTTP.
package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/kilupskalvis/labelkit/internal/config"
	"github.com/kilupskalvis/labelkit/internal/server"
	"github.com/kilupskalvis/labelkit/internal/session"
)

func main() {
	listen := flag.String("listen", envOrDefault("LABELKIT_LISTEN", "0.0.0.0:8840"), "Listen address")
	projectDir := flag.String("project", envOrDefault("LABELKIT_PROJECT", ""), "Project directory (defaults to the nearest enclosing project)")
	logLevel := flag.String("log-level", envOrDefault("LABELKIT_LOG_LEVEL", "info"), "Log level (debug, info, warn, error)")
	logFormat := flag.String("log-format", envOrDefault("LABELKIT_LOG_FORMAT", "json"), "Log format (json, text)")
	flag.Parse()

	var level slog.Level
	switch *logLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	var handler slog.Handler
	opts := &slog.HandlerOptions{Level: level}
	if *logFormat == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}
	logger := slog.New(handler)

	var cfg *config.Config
	var err error
	if *projectDir != "" {
		cfg, err = config.LoadFrom(filepath.Join(*projectDir, config.Dir))
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		logger.Error("failed to load project config", "error", err)
		os.Exit(1)
	}

	sess, err := session.Open(cfg, logger)
	if err != nil {
		logger.Error("failed to open project", "error", err)
		os.Exit(1)
	}
	defer sess.Close()

	srv := &http.Server{
		Addr:         *listen,
		Handler:      server.Handler(sess, server.DefaultConfig(), logger),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 2 * time.Minute,
		IdleTimeout:  120 * time.Second,
	}

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("starting labelkit-server", "listen", *listen, "project", cfg.ProjectName)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-done
	logger.Info("shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("shutdown error", "error", err)
	}
	logger.Info("server stopped")
}

func envOrDefault(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}
