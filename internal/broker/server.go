// Package broker relays board notifications to local subscribers over a
// Unix domain socket. The engine publishes into the broker through the
// events.Sink contract; any number of listeners (a desktop notifier, a
// status bar widget) can connect and receive newline-delimited JSON.
package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"tavle/internal/events"
)

// client is one connected subscriber.
type client struct {
	conn      net.Conn
	send      chan envelope
	closeOnce sync.Once
}

func (c *client) close() {
	c.closeOnce.Do(func() {
		close(c.send)
	})
}

// envelope is the wire frame: the notification plus a monotonically
// increasing sequence number so subscribers can detect drops.
type envelope struct {
	Sequence int64 `json:"sequence"`
	events.Notification
}

// Server fans notifications out to connected subscribers.
type Server struct {
	socketPath string
	listener   net.Listener
	clients    map[*client]bool
	mu         sync.RWMutex
	cancel     context.CancelFunc

	broadcast chan events.Notification
	sequence  atomic.Int64

	// Counters for the engine's status logging
	Delivered atomic.Int64
	Dropped   atomic.Int64

	clientBufferSize int
	shutdownOnce     sync.Once
}

// Compile-time interface check: the broker is itself a notification sink
var _ events.Sink = (*Server)(nil)

// NewServer creates a broker listening on a Unix domain socket. A stale
// socket file from a previous run is removed first.
func NewServer(socketPath string) (*Server, error) {
	if dir := filepath.Dir(socketPath); dir != "" {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return nil, fmt.Errorf("failed to create socket directory: %w", err)
		}
	}
	if _, err := os.Stat(socketPath); err == nil {
		if err := os.Remove(socketPath); err != nil {
			return nil, fmt.Errorf("failed to remove stale socket: %w", err)
		}
	}

	lc := net.ListenConfig{}
	listener, err := lc.Listen(context.Background(), "unix", socketPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create socket listener: %w", err)
	}

	return &Server{
		socketPath:       socketPath,
		listener:         listener,
		clients:          make(map[*client]bool),
		broadcast:        make(chan events.Notification, 100),
		clientBufferSize: 10,
	}, nil
}

// Start runs the accept and broadcast loops until the context ends.
func (s *Server) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	s.mu.Lock()
	s.cancel = cancel
	s.mu.Unlock()

	slog.Info("Notification broker listening", "socket", s.socketPath)

	acceptErr := make(chan error, 1)
	go func() {
		acceptErr <- s.acceptLoop(ctx)
	}()
	go s.broadcastLoop(ctx)

	select {
	case <-ctx.Done():
	case err := <-acceptErr:
		if err != nil {
			slog.Error("Broker accept loop failed", "error", err)
		}
	}
	return s.Shutdown()
}

// Notify queues a notification for broadcast. It never blocks; when the
// queue is full the notification is dropped and reported.
func (s *Server) Notify(n events.Notification) error {
	if n.Timestamp.IsZero() {
		n.Timestamp = time.Now()
	}
	select {
	case s.broadcast <- n:
		return nil
	default:
		s.Dropped.Add(1)
		return events.ErrQueueFull
	}
}

// ClientCount returns the number of connected subscribers.
func (s *Server) ClientCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients)
}

// Shutdown closes the listener, disconnects every subscriber and
// removes the socket file. Safe to call more than once.
func (s *Server) Shutdown() error {
	var err error
	s.shutdownOnce.Do(func() {
		s.mu.Lock()
		if s.cancel != nil {
			s.cancel()
		}
		for c := range s.clients {
			c.close()
			c.conn.Close()
		}
		s.clients = make(map[*client]bool)
		s.mu.Unlock()

		if closeErr := s.listener.Close(); closeErr != nil {
			err = closeErr
		}
		os.Remove(s.socketPath)
	})
	return err
}

// acceptLoop registers subscribers as they connect.
func (s *Server) acceptLoop(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		// Deadline so context cancellation is noticed between accepts
		if ul, ok := s.listener.(*net.UnixListener); ok {
			if err := ul.SetDeadline(time.Now().Add(1 * time.Second)); err != nil {
				slog.Warn("Failed to set listener deadline", "error", err)
			}
		}

		conn, err := s.listener.Accept()
		if err != nil {
			if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
				continue
			}
			select {
			case <-ctx.Done():
				return nil
			default:
			}
			return fmt.Errorf("accept error: %w", err)
		}

		c := &client{
			conn: conn,
			send: make(chan envelope, s.clientBufferSize),
		}
		s.mu.Lock()
		s.clients[c] = true
		total := len(s.clients)
		s.mu.Unlock()
		slog.Debug("Subscriber connected", "total", total)

		go s.clientWriter(c)
	}
}

// broadcastLoop stamps each notification with a sequence number and
// fans it out. A slow subscriber loses the frame rather than stalling
// the board.
func (s *Server) broadcastLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case n := <-s.broadcast:
			frame := envelope{
				Sequence:     s.sequence.Add(1),
				Notification: n,
			}

			s.mu.RLock()
			for c := range s.clients {
				select {
				case c.send <- frame:
					s.Delivered.Add(1)
				default:
					s.Dropped.Add(1)
					slog.Debug("Subscriber queue full, frame dropped")
				}
			}
			s.mu.RUnlock()
		}
	}
}

// clientWriter streams frames to one subscriber as JSON lines.
func (s *Server) clientWriter(c *client) {
	defer s.removeClient(c)

	encoder := json.NewEncoder(c.conn)
	for frame := range c.send {
		if err := encoder.Encode(frame); err != nil {
			return
		}
	}
}

func (s *Server) removeClient(c *client) {
	s.mu.Lock()
	if _, ok := s.clients[c]; ok {
		delete(s.clients, c)
		c.close()
	}
	s.mu.Unlock()
	c.conn.Close()
}
