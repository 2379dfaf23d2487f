package remote

import (
	"sync/atomic"
	"time"
)

// Metrics tracks store client statistics using atomic operations for thread-safety
type Metrics struct {
	Persists         atomic.Int64
	PersistFailures  atomic.Int64
	Uploads          atomic.Int64
	UploadFailures   atomic.Int64
	Downloads        atomic.Int64
	DownloadFailures atomic.Int64
	StartTime        time.Time
}

// NewMetrics creates a new Metrics instance
func NewMetrics() *Metrics {
	return &Metrics{
		StartTime: time.Now(),
	}
}

// IncPersists increments the column persist counter
func (m *Metrics) IncPersists() {
	m.Persists.Add(1)
}

// IncPersistFailures increments the failed persist counter
func (m *Metrics) IncPersistFailures() {
	m.PersistFailures.Add(1)
}

// IncUploads increments the attachment upload counter
func (m *Metrics) IncUploads() {
	m.Uploads.Add(1)
}

// IncUploadFailures increments the failed upload counter
func (m *Metrics) IncUploadFailures() {
	m.UploadFailures.Add(1)
}

// IncDownloads increments the attachment download counter
func (m *Metrics) IncDownloads() {
	m.Downloads.Add(1)
}

// IncDownloadFailures increments the failed download counter
func (m *Metrics) IncDownloadFailures() {
	m.DownloadFailures.Add(1)
}

// Uptime returns how long the client has been alive
func (m *Metrics) Uptime() time.Duration {
	return time.Since(m.StartTime)
}
