package app

import (
	"tavle/internal/cache"
	"tavle/internal/credentials"
	"tavle/internal/events"
	"tavle/internal/remote"
	"tavle/internal/services/attachment"
)

// Option is a functional option for configuring App initialization
type Option func(*appConfig)

// appConfig holds the configuration for App initialization
type appConfig struct {
	store   remote.BoardStore
	layout  *cache.Layout
	sink    events.Sink
	creds   credentials.Provider
	confirm func(prompt string) bool
	opener  attachment.OpenFunc
	saver   attachment.SaveFunc
}

// WithStore substitutes the remote board store collaborator.
func WithStore(store remote.BoardStore) Option {
	return func(cfg *appConfig) {
		cfg.store = store
	}
}

// WithCache substitutes an already opened layout cache.
func WithCache(layout *cache.Layout) Option {
	return func(cfg *appConfig) {
		cfg.layout = layout
	}
}

// WithSink sets the notification sink.
func WithSink(sink events.Sink) Option {
	return func(cfg *appConfig) {
		cfg.sink = sink
	}
}

// WithCredentials substitutes the credential provider.
func WithCredentials(creds credentials.Provider) Option {
	return func(cfg *appConfig) {
		cfg.creds = creds
	}
}

// WithConfirm sets the prompt used for destructive operations.
func WithConfirm(confirm func(prompt string) bool) Option {
	return func(cfg *appConfig) {
		cfg.confirm = confirm
	}
}

// WithOpener sets how downloaded attachments are displayed.
func WithOpener(opener attachment.OpenFunc) Option {
	return func(cfg *appConfig) {
		cfg.opener = opener
	}
}

// WithSaver sets how downloaded attachments are saved.
func WithSaver(saver attachment.SaveFunc) Option {
	return func(cfg *appConfig) {
		cfg.saver = saver
	}
}
