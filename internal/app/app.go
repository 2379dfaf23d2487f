// Package app wires the board engine together: configuration,
// credentials, the remote store client, the durable layout cache, the
// registries and the gesture coordinators.
package app

import (
	"context"
	"log/slog"

	"tavle/internal/cache"
	"tavle/internal/config"
	"tavle/internal/credentials"
	"tavle/internal/drag"
	"tavle/internal/events"
	"tavle/internal/remote"
	"tavle/internal/services/attachment"
	"tavle/internal/services/column"
	"tavle/internal/services/todo"
)

// App holds all engine services and provides dependency injection.
// This is the main application container that manages service
// lifecycles.
type App struct {
	Config *config.Config

	// Service layer
	Columns     column.Service
	Todos       todo.Service
	Attachments attachment.Service

	// Gesture coordinators
	Drag *drag.Coordinator
	Pan  *drag.Panner

	store  remote.BoardStore
	layout *cache.Layout
	sink   events.Sink
}

// New creates a new App with all services initialized. This is the
// single entry point for creating the application container.
func New(ctx context.Context, cfg *config.Config, opts ...Option) (*App, error) {
	ac := &appConfig{confirm: stdinConfirm}
	for _, opt := range opts {
		opt(ac)
	}

	creds := ac.creds
	if creds == nil {
		creds = credentials.NewFileJWT(cfg.TokenPath)
	}

	store := ac.store
	if store == nil {
		store = remote.NewClient(cfg.BaseOrigin, creds, cfg.RequestTimeout())
	}

	sink := ac.sink
	if sink == nil {
		sink = &events.LogSink{Logger: slog.Default()}
	}

	layout := ac.layout
	if layout == nil && cfg.CachePath != "" {
		opened, err := cache.Open(ctx, cfg.CachePath)
		if err != nil {
			// The mirror is best-effort; the engine runs without it
			slog.Warn("Failed to open layout cache", "path", cfg.CachePath, "error", err)
		} else {
			layout = opened
		}
	}

	todos := todo.NewService(store, sink, todo.ConfirmFunc(ac.confirm))

	var layoutCache column.LayoutCache
	if layout != nil {
		layoutCache = layout
	}
	columns := column.NewService(store, layoutCache, todos, column.ConfirmFunc(ac.confirm))

	attachments := attachment.NewService(todos, store, attachment.Options{
		BaseOrigin: cfg.BaseOrigin,
		MaxBytes:   cfg.MaxUploadBytes,
		Opener:     ac.opener,
		Saver:      ac.saver,
	})

	return &App{
		Config:      cfg,
		Columns:     columns,
		Todos:       todos,
		Attachments: attachments,
		Drag:        drag.NewCoordinator(todos),
		Pan:         drag.NewPanner(),
		store:       store,
		layout:      layout,
		sink:        sink,
	}, nil
}

// Store returns the remote collaborator, for callers that need direct
// access such as the metrics dump.
func (a *App) Store() remote.BoardStore {
	return a.store
}

// Restore loads the last mirrored column layout into an empty registry.
func (a *App) Restore(ctx context.Context) error {
	return a.Columns.Restore(ctx)
}

// Close releases application resources.
func (a *App) Close() error {
	if closer, ok := a.sink.(*events.ChanSink); ok {
		closer.Close()
	}
	if a.layout != nil {
		return a.layout.Close()
	}
	return nil
}
