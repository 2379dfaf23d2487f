package events

import "time"

// Severity indicates how prominently a notification should be surfaced
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeveritySuccess Severity = "success"
	SeverityWarning Severity = "warning"
)

// Notification is a user-facing message emitted by the board engine,
// e.g. when a participant is assigned to a card.
type Notification struct {
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	Severity  Severity  `json:"severity"`
	CardID    string    `json:"cardId,omitempty"` // Related card, empty when not card-scoped
	Timestamp time.Time `json:"timestamp"`        // When the notification was emitted
}
