package attachment

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
)

// blobHandle is a temporary on-disk copy of fetched attachment bytes.
// Release is idempotent; every success path of Download releases its
// handle exactly once, either immediately or after the open grace
// period.
type blobHandle struct {
	path    string
	release sync.Once
}

// newBlobHandle writes data to a fresh temp file and wraps it.
func newBlobHandle(data []byte, name string) (*blobHandle, error) {
	pattern := "tavle-*"
	if ext := filepath.Ext(name); ext != "" {
		pattern = "tavle-*" + ext
	}

	f, err := os.CreateTemp("", pattern)
	if err != nil {
		return nil, fmt.Errorf("failed to create temp file: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(f.Name())
		return nil, fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return nil, fmt.Errorf("failed to close temp file: %w", err)
	}

	return &blobHandle{path: f.Name()}, nil
}

// Path returns the location of the temp file.
func (h *blobHandle) Path() string {
	return h.path
}

// Release removes the temp file. Safe to call more than once.
func (h *blobHandle) Release() {
	h.release.Do(func() {
		if err := os.Remove(h.path); err != nil && !os.IsNotExist(err) {
			slog.Warn("Failed to release attachment temp file", "path", h.path, "error", err)
		}
	})
}
