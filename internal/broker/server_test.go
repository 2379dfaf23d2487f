package broker

import (
	"bufio"
	"context"
	"encoding/json"
	"net"
	"path/filepath"
	"testing"
	"time"

	"tavle/internal/events"
)

// ============================================================================
// TEST HELPERS
// ============================================================================

// startTestServer runs a broker on a temp socket and tears it down
func startTestServer(t *testing.T) *Server {
	t.Helper()
	socket := filepath.Join(t.TempDir(), "notify.sock")
	srv, err := NewServer(socket)
	if err != nil {
		t.Fatalf("NewServer failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	go func() { _ = srv.Start(ctx) }()
	t.Cleanup(func() {
		cancel()
		_ = srv.Shutdown()
	})
	return srv
}

// dialSubscriber connects to the broker socket, retrying briefly
func dialSubscriber(t *testing.T, srv *Server) net.Conn {
	t.Helper()
	var conn net.Conn
	var err error
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		conn, err = net.Dial("unix", srv.socketPath)
		if err == nil {
			t.Cleanup(func() { _ = conn.Close() })
			return conn
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("Failed to dial broker: %v", err)
	return nil
}

// waitForClients blocks until the broker sees n subscribers
func waitForClients(t *testing.T, srv *Server, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for srv.ClientCount() != n {
		if time.Now().After(deadline) {
			t.Fatalf("Expected %d subscribers, got %d", n, srv.ClientCount())
		}
		time.Sleep(5 * time.Millisecond)
	}
}

// ============================================================================
// TEST CASES
// ============================================================================

func TestBroker_DeliversFrames(t *testing.T) {
	t.Parallel()

	srv := startTestServer(t)
	conn := dialSubscriber(t, srv)
	waitForClients(t, srv, 1)

	err := srv.Notify(events.Notification{
		Title:    "Participant added",
		Body:     "alice was assigned",
		Severity: events.SeverityInfo,
		CardID:   "card-1",
	})
	if err != nil {
		t.Fatalf("Notify failed: %v", err)
	}

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	line, err := bufio.NewReader(conn).ReadBytes('\n')
	if err != nil {
		t.Fatalf("Failed to read frame: %v", err)
	}

	var frame envelope
	if err := json.Unmarshal(line, &frame); err != nil {
		t.Fatalf("Failed to decode frame: %v", err)
	}
	if frame.Sequence != 1 {
		t.Errorf("Expected sequence 1, got %d", frame.Sequence)
	}
	if frame.Title != "Participant added" || frame.CardID != "card-1" {
		t.Errorf("Unexpected frame %+v", frame)
	}
	if frame.Timestamp.IsZero() {
		t.Error("Expected the frame to be timestamped")
	}
}

func TestBroker_SequenceIncreases(t *testing.T) {
	t.Parallel()

	srv := startTestServer(t)
	conn := dialSubscriber(t, srv)
	waitForClients(t, srv, 1)

	for i := 0; i < 3; i++ {
		if err := srv.Notify(events.Notification{Title: "n"}); err != nil {
			t.Fatalf("Notify failed: %v", err)
		}
	}

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	reader := bufio.NewReader(conn)
	var last int64
	for i := 0; i < 3; i++ {
		line, err := reader.ReadBytes('\n')
		if err != nil {
			t.Fatalf("Failed to read frame %d: %v", i, err)
		}
		var frame envelope
		if err := json.Unmarshal(line, &frame); err != nil {
			t.Fatalf("Failed to decode frame: %v", err)
		}
		if frame.Sequence <= last {
			t.Errorf("Expected increasing sequence, got %d after %d", frame.Sequence, last)
		}
		last = frame.Sequence
	}
}

func TestBroker_FanOut(t *testing.T) {
	t.Parallel()

	srv := startTestServer(t)
	first := dialSubscriber(t, srv)
	second := dialSubscriber(t, srv)
	waitForClients(t, srv, 2)

	if err := srv.Notify(events.Notification{Title: "shared"}); err != nil {
		t.Fatalf("Notify failed: %v", err)
	}

	for _, conn := range []net.Conn{first, second} {
		_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		line, err := bufio.NewReader(conn).ReadBytes('\n')
		if err != nil {
			t.Fatalf("Failed to read fan-out frame: %v", err)
		}
		var frame envelope
		if err := json.Unmarshal(line, &frame); err != nil {
			t.Fatalf("Failed to decode frame: %v", err)
		}
		if frame.Title != "shared" {
			t.Errorf("Unexpected frame %+v", frame)
		}
	}
	if srv.Delivered.Load() != 2 {
		t.Errorf("Expected 2 deliveries counted, got %d", srv.Delivered.Load())
	}
}

func TestBroker_NotifyWithoutSubscribers(t *testing.T) {
	t.Parallel()

	srv := startTestServer(t)
	if err := srv.Notify(events.Notification{Title: "void"}); err != nil {
		t.Errorf("Expected Notify to succeed with no subscribers, got %v", err)
	}
}

func TestBroker_ShutdownIdempotent(t *testing.T) {
	t.Parallel()

	socket := filepath.Join(t.TempDir(), "notify.sock")
	srv, err := NewServer(socket)
	if err != nil {
		t.Fatalf("NewServer failed: %v", err)
	}
	if err := srv.Shutdown(); err != nil {
		t.Fatalf("Shutdown failed: %v", err)
	}
	if err := srv.Shutdown(); err != nil {
		t.Fatalf("Second shutdown failed: %v", err)
	}
}

func TestBroker_RemovesStaleSocket(t *testing.T) {
	t.Parallel()

	socket := filepath.Join(t.TempDir(), "notify.sock")
	first, err := NewServer(socket)
	if err != nil {
		t.Fatalf("NewServer failed: %v", err)
	}
	_ = first.Shutdown()

	// A leftover socket file from a crashed run must not block startup
	second, err := NewServer(socket)
	if err != nil {
		t.Fatalf("Expected stale socket to be replaced: %v", err)
	}
	_ = second.Shutdown()
}
