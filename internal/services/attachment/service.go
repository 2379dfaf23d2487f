package attachment

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/google/uuid"

	"tavle/internal/models"
	"tavle/internal/services/todo"
)

// MaxImageBytes is the upload ceiling for inline images.
const MaxImageBytes = 5 * 1024 * 1024

// apiVersionSuffix is stripped from the base origin when resolving a
// server-relative file path into a displayable URL.
const apiVersionSuffix = "/api/v1"

// openReleaseDelay is how long a temp file outlives an open trigger, so
// the external viewer has time to read it before it is removed.
const openReleaseDelay = 60 * time.Second

// Mode selects what happens with fetched attachment bytes.
type Mode int

const (
	// ModeOpen hands the temp file to an external viewer and releases
	// it after a grace period.
	ModeOpen Mode = iota
	// ModeSave copies the bytes to their destination and releases the
	// temp file immediately.
	ModeSave
)

// CardRegistry is the slice of the card registry the attachment manager
// needs. All card mutations go through the registry's single update
// contract so the backdrop mirror stays consistent.
type CardRegistry interface {
	Get(id string) (*models.Todo, bool)
	UpdateTodo(ctx context.Context, id string, patch todo.Patch) error
}

// Store is the remote side of the attachment lifecycle. Data-URI
// attachments never touch it; uploaded files are created and removed
// through it.
type Store interface {
	UploadAttachment(ctx context.Context, cardID, name, mimeType string, r io.Reader) (*models.Attachment, error)
	RemoveAttachment(ctx context.Context, cardID, attachmentID string) error
	FetchAttachmentBytes(ctx context.Context, url string) ([]byte, bool, error)
}

// OpenFunc displays a downloaded temp file.
type OpenFunc func(path string) error

// SaveFunc persists a downloaded temp file under the attachment's
// display name.
type SaveFunc func(path, name string) error

// Service manages attachment metadata on cards and the authenticated
// fetch path for their content.
type Service interface {
	ValidateImage(name, mimeType string, size int64) error
	AddImageAttachment(ctx context.Context, cardID, name, mimeType string, data []byte) (*models.Attachment, error)
	AddFileAttachment(ctx context.Context, cardID, name, mimeType string, size int64, r io.Reader) (*models.Attachment, error)
	RemoveAttachment(ctx context.Context, cardID, attachmentID string) error
	SetBackground(ctx context.Context, cardID, attachmentID string) error
	ClearBackground(ctx context.Context, cardID string) error
	ResolveURL(att *models.Attachment) (string, bool)
	Download(ctx context.Context, att *models.Attachment, mode Mode) (bool, error)
}

// Options tunes a Service. Zero values fall back to defaults.
type Options struct {
	BaseOrigin string
	MaxBytes   int64
	OpenDelay  time.Duration
	Opener     OpenFunc
	Saver      SaveFunc
}

type service struct {
	cards      CardRegistry
	store      Store
	baseOrigin string
	maxBytes   int64
	openDelay  time.Duration
	opener     OpenFunc
	saver      SaveFunc
}

// Compile-time interface check
var _ Service = (*service)(nil)

// NewService creates a new attachment manager.
func NewService(cards CardRegistry, store Store, opts Options) Service {
	if opts.MaxBytes <= 0 {
		opts.MaxBytes = MaxImageBytes
	}
	if opts.OpenDelay <= 0 {
		opts.OpenDelay = openReleaseDelay
	}
	if opts.Opener == nil {
		opts.Opener = systemOpen
	}
	if opts.Saver == nil {
		opts.Saver = saveToWorkingDir
	}
	return &service{
		cards:      cards,
		store:      store,
		baseOrigin: strings.TrimRight(opts.BaseOrigin, "/"),
		maxBytes:   opts.MaxBytes,
		openDelay:  opts.OpenDelay,
		opener:     opts.Opener,
		saver:      opts.Saver,
	}
}

// ValidateImage rejects a file before any encoding begins. The declared
// type must be an image type and the size must not exceed the ceiling.
func (s *service) ValidateImage(name, mimeType string, size int64) error {
	if strings.TrimSpace(name) == "" {
		return ErrEmptyName
	}
	if !strings.HasPrefix(mimeType, "image") {
		return fmt.Errorf("%w: %s", ErrNotImage, mimeType)
	}
	if size > s.maxBytes {
		return fmt.Errorf("%w: %d bytes (limit %d)", ErrImageTooLarge, size, s.maxBytes)
	}
	return nil
}

// EncodeDataURI converts raw bytes to a base64 data URI.
func EncodeDataURI(mimeType string, data []byte) string {
	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// AddImageAttachment validates and encodes an image entirely locally.
// The data URI becomes the attachment's content locator; no upload step
// is involved, so image attachments work offline.
func (s *service) AddImageAttachment(ctx context.Context, cardID, name, mimeType string, data []byte) (*models.Attachment, error) {
	if len(data) == 0 {
		return nil, ErrEmptyData
	}
	if err := s.ValidateImage(name, mimeType, int64(len(data))); err != nil {
		return nil, err
	}

	att := models.Attachment{
		ID:         uuid.NewString(),
		Name:       name,
		Type:       mimeType,
		Size:       int64(len(data)),
		DataURL:    EncodeDataURI(mimeType, data),
		UploadedAt: time.Now(),
	}
	if err := s.appendAttachment(ctx, cardID, att); err != nil {
		return nil, err
	}
	return &att, nil
}

// AddFileAttachment hands a non-image file to the remote store and
// tracks the returned metadata on the card.
func (s *service) AddFileAttachment(ctx context.Context, cardID, name, mimeType string, size int64, r io.Reader) (*models.Attachment, error) {
	if strings.TrimSpace(name) == "" {
		return nil, ErrEmptyName
	}
	if _, ok := s.cards.Get(cardID); !ok {
		return nil, ErrCardNotFound
	}

	att, err := s.store.UploadAttachment(ctx, cardID, name, mimeType, r)
	if err != nil {
		return nil, fmt.Errorf("failed to upload attachment: %w", err)
	}
	if att.ID == "" {
		att.ID = uuid.NewString()
	}
	if att.Size == 0 {
		att.Size = size
	}
	if att.UploadedAt.IsZero() {
		att.UploadedAt = time.Now()
	}

	if err := s.appendAttachment(ctx, cardID, *att); err != nil {
		return nil, err
	}
	return att, nil
}

// RemoveAttachment deletes the attachment from the card, and from the
// remote store when it was uploaded there. When the removed attachment
// was the card's backdrop, the derived backdrop field is cleared in the
// same call.
func (s *service) RemoveAttachment(ctx context.Context, cardID, attachmentID string) error {
	card, ok := s.cards.Get(cardID)
	if !ok {
		return ErrCardNotFound
	}

	removed, rest := splitAttachment(card.Attachments, attachmentID)
	if removed == nil {
		return ErrAttachmentNotFound
	}

	// Data-URI attachments live only on the card; everything else was
	// uploaded and has a server-side identity to delete.
	if removed.DataURL == "" {
		if err := s.store.RemoveAttachment(ctx, cardID, attachmentID); err != nil {
			return fmt.Errorf("failed to remove attachment from store: %w", err)
		}
	}

	patch := todo.Patch{Attachments: &rest}
	if removed.IsBackground || backdropMatches(card, removed) {
		patch.ClearBG = true
	}
	return s.cards.UpdateTodo(ctx, cardID, patch)
}

// SetBackground flags the attachment as the card's backdrop and mirrors
// its content locator onto the card. Exclusivity is enforced by
// rewriting the whole collection in one update, so no intermediate
// state with two flagged attachments can be observed.
func (s *service) SetBackground(ctx context.Context, cardID, attachmentID string) error {
	card, ok := s.cards.Get(cardID)
	if !ok {
		return ErrCardNotFound
	}

	var locator string
	found := false
	next := make([]models.Attachment, len(card.Attachments))
	for i, att := range card.Attachments {
		att.IsBackground = att.ID == attachmentID
		if att.IsBackground {
			found = true
			locator = att.Locator()
		}
		next[i] = att
	}
	if !found {
		return ErrAttachmentNotFound
	}
	if locator == "" {
		return ErrNoLocator
	}

	return s.cards.UpdateTodo(ctx, cardID, todo.Patch{
		Attachments: &next,
		Background:  &locator,
	})
}

// ClearBackground unflags every attachment and clears the derived
// backdrop field.
func (s *service) ClearBackground(ctx context.Context, cardID string) error {
	card, ok := s.cards.Get(cardID)
	if !ok {
		return ErrCardNotFound
	}

	next := make([]models.Attachment, len(card.Attachments))
	for i, att := range card.Attachments {
		att.IsBackground = false
		next[i] = att
	}
	return s.cards.UpdateTodo(ctx, cardID, todo.Patch{
		Attachments: &next,
		ClearBG:     true,
	})
}

// ResolveURL returns the attachment's displayable URL. An explicit URL
// or data URI wins; a server-relative file path is joined to the base
// origin with the API version suffix stripped. An attachment with no
// locator resolves to nothing and cannot be previewed or downloaded.
func (s *service) ResolveURL(att *models.Attachment) (string, bool) {
	if att.URL != "" {
		return att.URL, true
	}
	if att.DataURL != "" {
		return att.DataURL, true
	}
	if att.FilePath == "" {
		return "", false
	}

	host := strings.TrimSuffix(s.baseOrigin, apiVersionSuffix)
	host = strings.TrimRight(host, "/")
	return host + "/" + strings.TrimPrefix(att.FilePath, "/"), true
}

// Download fetches the attachment's content with the current credential
// and materializes it as a temp file. ModeOpen hands the file to the
// opener and releases it after a grace period; ModeSave releases it as
// soon as the saver returns. A non-success fetch reports false without
// an error. The fetch goes through the store because direct navigation
// to a protected URL would not carry the auth header.
func (s *service) Download(ctx context.Context, att *models.Attachment, mode Mode) (bool, error) {
	url, ok := s.ResolveURL(att)
	if !ok {
		return false, nil
	}

	data, err := s.fetch(ctx, url)
	if err != nil {
		return false, err
	}
	if data == nil {
		return false, nil
	}

	handle, err := newBlobHandle(data, att.Name)
	if err != nil {
		return false, err
	}

	if mode == ModeSave {
		defer handle.Release()
		if err := s.saver(handle.Path(), att.Name); err != nil {
			return false, fmt.Errorf("failed to save attachment: %w", err)
		}
		return true, nil
	}

	if err := s.opener(handle.Path()); err != nil {
		handle.Release()
		return false, fmt.Errorf("failed to open attachment: %w", err)
	}
	time.AfterFunc(s.openDelay, handle.Release)
	return true, nil
}

// fetch returns the content bytes, or nil on a non-success status.
// Data URIs are decoded locally rather than fetched.
func (s *service) fetch(ctx context.Context, url string) ([]byte, error) {
	if strings.HasPrefix(url, "data:") {
		return decodeDataURI(url)
	}

	data, ok, err := s.store.FetchAttachmentBytes(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch attachment: %w", err)
	}
	if !ok {
		slog.Warn("Attachment fetch was refused", "url", url)
		return nil, nil
	}
	return data, nil
}

// appendAttachment adds the attachment to the card through a single
// whole-collection update.
func (s *service) appendAttachment(ctx context.Context, cardID string, att models.Attachment) error {
	card, ok := s.cards.Get(cardID)
	if !ok {
		return ErrCardNotFound
	}
	next := append(append([]models.Attachment(nil), card.Attachments...), att)
	return s.cards.UpdateTodo(ctx, cardID, todo.Patch{Attachments: &next})
}

// splitAttachment returns the matching attachment and the remaining
// collection, or nil when absent.
func splitAttachment(atts []models.Attachment, id string) (*models.Attachment, []models.Attachment) {
	var removed *models.Attachment
	rest := make([]models.Attachment, 0, len(atts))
	for _, att := range atts {
		if att.ID == id {
			found := att
			removed = &found
			continue
		}
		rest = append(rest, att)
	}
	return removed, rest
}

// backdropMatches reports whether the card's derived backdrop field
// points at this attachment's content.
func backdropMatches(card *models.Todo, att *models.Attachment) bool {
	if card.BackgroundImage == nil {
		return false
	}
	locator := att.Locator()
	return locator != "" && locator == *card.BackgroundImage
}

// decodeDataURI extracts the base64 payload of a data URI.
func decodeDataURI(uri string) ([]byte, error) {
	_, payload, found := strings.Cut(uri, ",")
	if !found {
		return nil, fmt.Errorf("malformed data uri")
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to decode data uri: %w", err)
	}
	return data, nil
}

// systemOpen hands the file to the platform's default viewer.
func systemOpen(path string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", path)
	case "windows":
		cmd = exec.Command("cmd", "/c", "start", "", path)
	default:
		cmd = exec.Command("xdg-open", path)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	return nil
}

// saveToWorkingDir copies the temp file into the current directory
// under the attachment's display name.
func saveToWorkingDir(path, name string) error {
	src, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open temp file: %w", err)
	}
	defer src.Close()

	dst, err := os.Create(filepath.Base(name))
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", name, err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return fmt.Errorf("failed to save %s: %w", name, err)
	}
	return nil
}
