// Command fakesqs serves in-process emulated SQS queues over HTTP.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/tabeth/fakesqs/config"
	"github.com/tabeth/fakesqs/emulator"
	"github.com/tabeth/fakesqs/server"
	"github.com/tabeth/fakesqs/store"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stderr); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

// loadConfig layers defaults, the optional config file, the environment and
// finally any flags that were set explicitly.
func loadConfig(args []string) (config.Config, error) {
	fs := flag.NewFlagSet("fakesqs", flag.ContinueOnError)
	configPath := fs.String("config", "", "Path to a YAML config file")
	port := fs.Int("port", 0, "Port for the HTTP server to listen on")
	logLevel := fs.String("log-level", "", "Log level: debug, info, warn or error")
	queues := fs.String("queues", "", "Comma-separated queue names to create at startup")
	if err := fs.Parse(args); err != nil {
		return config.Config{}, err
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return config.Config{}, err
	}
	config.FromEnv(&cfg)
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "port":
			cfg.Port = *port
		case "log-level":
			cfg.LogLevel = *logLevel
		case "queues":
			cfg.Queues = strings.Split(*queues, ",")
		}
	})
	if err := cfg.Validate(); err != nil {
		return config.Config{}, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// newApp creates the registry with the configured queues and the HTTP handler serving it.
func newApp(cfg config.Config, logger *slog.Logger) (*emulator.Registry, http.Handler, error) {
	registry := emulator.NewRegistry(cfg.QueueBaseURL(), logger, emulator.WithLatency(cfg.MinLatency, cfg.MaxLatency))
	for _, name := range cfg.Queues {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if _, err := registry.CreateQueue(name); err != nil && !errors.Is(err, store.ErrQueueAlreadyExists) {
			registry.Close()
			return nil, nil, fmt.Errorf("creating queue %q: %w", name, err)
		}
	}
	return registry, server.NewRouter(&server.App{Queues: registry, Log: logger}), nil
}

func run(ctx context.Context, args []string, stderr io.Writer) error {
	cfg, err := loadConfig(args)
	if err != nil {
		return err
	}
	logger, err := cfg.NewLogger(stderr)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	registry, handler, err := newApp(cfg, logger)
	if err != nil {
		return err
	}
	defer registry.Close()
	registry.Start(ctx)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting server", "addr", srv.Addr, "queues", len(cfg.Queues))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server stopped: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
