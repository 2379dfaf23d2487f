package events

import (
	"log/slog"
	"sync"
	"time"
)

// Sink receives notifications from the board engine. Delivery is
// fire-and-forget from the engine's point of view; the returned error
// exists so transports can report failure to the retry helper, not so
// mutation paths can block on it.
type Sink interface {
	Notify(n Notification) error
}

// Compile-time verification of the bundled implementations
var (
	_ Sink = (*LogSink)(nil)
	_ Sink = (*ChanSink)(nil)
	_ Sink = NopSink{}
)

// LogSink writes notifications to the application log.
type LogSink struct {
	Logger *slog.Logger
}

func (s *LogSink) Notify(n Notification) error {
	logger := s.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("notification",
		"title", n.Title,
		"body", n.Body,
		"severity", n.Severity,
		"card_id", n.CardID)
	return nil
}

// ChanSink buffers notifications on a channel, dropping when full.
// Used by frontends that drain notifications into their own surface,
// and by tests to assert on emitted notifications.
type ChanSink struct {
	ch     chan Notification
	mu     sync.Mutex
	closed bool
}

// NewChanSink creates a buffered channel sink.
func NewChanSink(buffer int) *ChanSink {
	return &ChanSink{ch: make(chan Notification, buffer)}
}

// Notify queues the notification, stamping it if unstamped.
// Returns ErrQueueFull when the buffer is exhausted (non-blocking send).
func (s *ChanSink) Notify(n Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSinkClosed
	}
	if n.Timestamp.IsZero() {
		n.Timestamp = time.Now()
	}
	select {
	case s.ch <- n:
		return nil
	default:
		return ErrQueueFull
	}
}

// Notifications returns the receive side of the sink.
func (s *ChanSink) Notifications() <-chan Notification {
	return s.ch
}

// Close closes the channel; later Notify calls return ErrSinkClosed.
func (s *ChanSink) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.ch)
	}
}

// NopSink discards every notification.
type NopSink struct{}

func (NopSink) Notify(Notification) error { return nil }
