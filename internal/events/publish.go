package events

import (
	"log/slog"
	"time"
)

// NotifyWithRetry attempts to deliver a notification with retry logic.
// It makes up to maxRetries attempts with exponential backoff.
// Returns the error from the final attempt if all retries fail.
//
// This function is designed for non-critical notifications where eventual
// delivery is acceptable but immediate failure should not block
// the calling operation.
func NotifyWithRetry(sink Sink, n Notification, maxRetries int) error {
	if sink == nil {
		return nil // Silently skip if no sink (e.g., in tests or headless mode)
	}

	var lastErr error
	baseDelay := 50 * time.Millisecond

	for attempt := 0; attempt < maxRetries; attempt++ {
		err := sink.Notify(n)
		if err == nil {
			if attempt > 0 {
				slog.Debug("notification delivered after retry",
					"attempt", attempt+1,
					"title", n.Title,
					"card_id", n.CardID)
			}
			return nil
		}

		lastErr = err

		// Don't sleep after the last attempt
		if attempt < maxRetries-1 {
			// Exponential backoff: 50ms, 100ms, 200ms
			delay := baseDelay * (1 << attempt)
			slog.Debug("notification delivery failed, retrying",
				"attempt", attempt+1,
				"max_retries", maxRetries,
				"retry_delay", delay,
				"error", err)
			time.Sleep(delay)
		}
	}

	slog.Warn("notification delivery failed after all retries",
		"attempts", maxRetries,
		"title", n.Title,
		"card_id", n.CardID,
		"error", lastErr)

	return lastErr
}
