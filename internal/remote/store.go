// Package remote talks to the board store's REST API. The engine treats
// the store as a collaborator: persistence failures are reported, never
// retried, and never allowed to corrupt local state.
package remote

import (
	"context"
	"io"

	"tavle/internal/models"
)

// BoardStore is the persistence collaborator consumed by the registries.
type BoardStore interface {
	// PersistColumns saves the entire column list and returns the server's
	// canonical list, or nil when the store has nothing to say.
	PersistColumns(ctx context.Context, columns []*models.Column) ([]*models.Column, error)

	// SaveTodo persists a single card's full state.
	SaveTodo(ctx context.Context, t *models.Todo) error

	// UploadAttachment streams a file to the store and returns the
	// resulting attachment metadata.
	UploadAttachment(ctx context.Context, cardID, name, mimeType string, r io.Reader) (*models.Attachment, error)

	// RemoveAttachment deletes an attachment from a card.
	RemoveAttachment(ctx context.Context, cardID, attachmentID string) error

	// FetchAttachmentBytes downloads a protected resource with the bearer
	// credential attached. A non-success HTTP status yields ok=false with a
	// nil error; err is reserved for transport-level failures.
	FetchAttachmentBytes(ctx context.Context, url string) (data []byte, ok bool, err error)
}
