package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"tavle/internal/credentials"
	"tavle/internal/models"
)

// Client is the HTTP implementation of BoardStore.
type Client struct {
	baseOrigin string
	httpClient *http.Client
	creds      credentials.Provider
	metrics    *Metrics
}

// Compile-time verification that *Client implements BoardStore
var _ BoardStore = (*Client)(nil)

// NewClient creates a store client. The timeout bounds every request;
// there is no per-call retry.
func NewClient(baseOrigin string, creds credentials.Provider, timeout time.Duration) *Client {
	return &Client{
		baseOrigin: strings.TrimRight(baseOrigin, "/"),
		httpClient: &http.Client{Timeout: timeout},
		creds:      creds,
		metrics:    NewMetrics(),
	}
}

// Metrics returns the client's sync counters.
func (c *Client) Metrics() *Metrics {
	return c.metrics
}

// authorize attaches the current bearer credential to the request.
// Credential errors (missing, expired) pass through to the caller; the
// credential provider is the authority on what happens next.
func (c *Client) authorize(req *http.Request) error {
	token, err := c.creds.Token()
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	return nil
}

// PersistColumns saves the whole column list and decodes the canonical
// response. An empty response body or empty list maps to nil.
func (c *Client) PersistColumns(ctx context.Context, columns []*models.Column) ([]*models.Column, error) {
	body, err := json.Marshal(columns)
	if err != nil {
		return nil, fmt.Errorf("failed to encode columns: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.baseOrigin+"/columns", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if err := c.authorize(req); err != nil {
		return nil, err
	}

	c.metrics.IncPersists()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.metrics.IncPersistFailures()
		return nil, fmt.Errorf("failed to persist columns: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.metrics.IncPersistFailures()
		return nil, fmt.Errorf("column persist rejected: status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		c.metrics.IncPersistFailures()
		return nil, fmt.Errorf("failed to read persist response: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}

	var canonical []*models.Column
	if err := json.Unmarshal(data, &canonical); err != nil {
		c.metrics.IncPersistFailures()
		return nil, fmt.Errorf("failed to decode canonical columns: %w", err)
	}
	if len(canonical) == 0 {
		return nil, nil
	}
	return canonical, nil
}

// SaveTodo persists a single card. The store treats the payload as the
// card's full state, matching the registry's whole-field update calls.
func (c *Client) SaveTodo(ctx context.Context, t *models.Todo) error {
	body, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("failed to encode card: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.baseOrigin+"/todos/"+t.ID, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if err := c.authorize(req); err != nil {
		return err
	}

	c.metrics.IncPersists()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.metrics.IncPersistFailures()
		return fmt.Errorf("failed to persist card: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.metrics.IncPersistFailures()
		return fmt.Errorf("card persist rejected: status %d", resp.StatusCode)
	}
	return nil
}

// UploadAttachment streams a file as a multipart form to the store.
func (c *Client) UploadAttachment(ctx context.Context, cardID, name, mimeType string, r io.Reader) (*models.Attachment, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	part, err := writer.CreateFormFile("file", name)
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := io.Copy(part, r); err != nil {
		return nil, fmt.Errorf("failed to buffer upload: %w", err)
	}
	if err := writer.WriteField("type", mimeType); err != nil {
		return nil, fmt.Errorf("failed to write type field: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize form: %w", err)
	}

	url := fmt.Sprintf("%s/todos/%s/attachments", c.baseOrigin, cardID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	if err := c.authorize(req); err != nil {
		return nil, err
	}

	c.metrics.IncUploads()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.metrics.IncUploadFailures()
		return nil, fmt.Errorf("failed to upload attachment: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.metrics.IncUploadFailures()
		return nil, fmt.Errorf("attachment upload rejected: status %d", resp.StatusCode)
	}

	var att models.Attachment
	if err := json.NewDecoder(resp.Body).Decode(&att); err != nil {
		c.metrics.IncUploadFailures()
		return nil, fmt.Errorf("failed to decode attachment metadata: %w", err)
	}
	return &att, nil
}

// RemoveAttachment deletes an attachment from a card.
func (c *Client) RemoveAttachment(ctx context.Context, cardID, attachmentID string) error {
	url := fmt.Sprintf("%s/todos/%s/attachments/%s", c.baseOrigin, cardID, attachmentID)
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, url, nil)
	if err != nil {
		return err
	}
	if err := c.authorize(req); err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to remove attachment: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("attachment removal rejected: status %d", resp.StatusCode)
	}
	return nil
}

// FetchAttachmentBytes downloads a protected resource. Direct navigation to
// the URL would not carry the auth header, hence this indirection.
func (c *Client) FetchAttachmentBytes(ctx context.Context, url string) ([]byte, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, false, err
	}
	if err := c.authorize(req); err != nil {
		return nil, false, err
	}

	c.metrics.IncDownloads()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.metrics.IncDownloadFailures()
		return nil, false, fmt.Errorf("failed to fetch attachment: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.metrics.IncDownloadFailures()
		return nil, false, nil
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		c.metrics.IncDownloadFailures()
		return nil, false, fmt.Errorf("failed to read attachment body: %w", err)
	}
	return data, true, nil
}
