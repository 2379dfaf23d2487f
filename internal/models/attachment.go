package models

import "time"

// Attachment is a binary file linked to a card. Exactly one of URL, DataURL
// or FilePath locates its content; at most one attachment per card may have
// IsBackground set.
type Attachment struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Type         string    `json:"type"` // MIME type, or the logical type "image"
	Size         int64     `json:"size"`
	URL          string    `json:"url,omitempty"`      // Absolute URL, wins over all other locators
	DataURL      string    `json:"dataUrl,omitempty"`  // Inline base64 data URI
	FilePath     string    `json:"filePath,omitempty"` // Store-relative path, resolved against the base origin
	IsBackground bool      `json:"isBackground"`
	UploadedAt   time.Time `json:"uploadedAt"`
}

// Locator returns the attachment's content locator with URL and DataURL
// taking priority over a store-relative path. Empty when the attachment
// carries no locator at all.
func (a *Attachment) Locator() string {
	if a.URL != "" {
		return a.URL
	}
	if a.DataURL != "" {
		return a.DataURL
	}
	return a.FilePath
}
