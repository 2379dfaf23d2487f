package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"tavle/internal/app"
	"tavle/internal/broker"
	"tavle/internal/cache"
	"tavle/internal/config"
	"tavle/internal/logging"
)

func main() {
	if err := logging.Init(); err != nil {
		log.Fatalf("Failed to initialize logging: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	ctx := context.Background()

	var opts []app.Option
	if cfg.NotifySocket != "" {
		relay, err := broker.NewServer(cfg.NotifySocket)
		if err != nil {
			log.Fatalf("Failed to start notification broker: %v", err)
		}
		go func() {
			if err := relay.Start(ctx); err != nil {
				slog.Error("Notification broker stopped", "error", err)
			}
		}()
		defer relay.Shutdown()
		opts = append(opts, app.WithSink(relay))
	}

	engine, err := app.New(ctx, cfg, opts...)
	if err != nil {
		log.Fatalf("Failed to initialize board engine: %v", err)
	}
	defer engine.Close()

	// Bring back the last known column layout before any remote traffic
	if err := engine.Restore(ctx); err != nil && !errors.Is(err, cache.ErrNotFound) {
		slog.Warn("Failed to restore cached layout", "error", err)
	}
	slog.Info("Board engine ready",
		"origin", cfg.BaseOrigin,
		"columns", len(engine.Columns.Columns()))

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig
	slog.Info("Shutting down board engine")
}
