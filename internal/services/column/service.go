package column

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"tavle/internal/models"
)

// ColumnStore is the slice of the remote board store this registry uses.
// It persists the entire column list and may answer with the server's
// canonical version of it.
type ColumnStore interface {
	PersistColumns(ctx context.Context, columns []*models.Column) ([]*models.Column, error)
}

// LayoutCache is the durable local mirror of the column layout. Only this
// registry writes it; writes are best-effort.
type LayoutCache interface {
	WriteColumns(ctx context.Context, columns []*models.Column) error
	ReadColumns(ctx context.Context) ([]*models.Column, error)
}

// Rebinder relocates cards from a dying column's status onto a surviving
// one. Implemented by the card registry.
type Rebinder interface {
	RebindStatus(ctx context.Context, oldStatus, newStatus string) error
}

// Confirmer asks the user to approve a destructive action before
// the registry proceeds.
type Confirmer interface {
	Confirm(prompt string) bool
}

// ConfirmFunc adapts a function to the Confirmer interface.
type ConfirmFunc func(prompt string) bool

func (f ConfirmFunc) Confirm(prompt string) bool { return f(prompt) }

// Service defines all column-related business operations
type Service interface {
	// Read operations
	Columns() []*models.Column
	Get(id string) (*models.Column, bool)

	// Write operations
	CreateColumn(ctx context.Context, title string) (*models.Column, error)
	UpdateColumnColor(ctx context.Context, id string, color models.Color) error
	DeleteColumn(ctx context.Context, id string) error
	SetBackgroundImage(ctx context.Context, id, dataURI string) error
	RemoveBackgroundImage(ctx context.Context, id string) error

	// Two-phase rename
	BeginRename(id string) error
	ScratchTitle() (string, bool)
	SetScratchTitle(title string)
	CommitRename(ctx context.Context) error
	CancelRename()

	// Restore loads the last mirrored layout from the durable cache.
	Restore(ctx context.Context) error
}

// service implements Service. It owns the ordered column slice
// exclusively; every mutation goes through the registry lock.
type service struct {
	mu      sync.Mutex
	columns []*models.Column
	store   ColumnStore
	cache   LayoutCache
	rebind  Rebinder
	confirm Confirmer

	// Two-phase rename state
	editID  string
	scratch string
}

// NewService creates a new column registry. store, cache, rebind and
// confirm may each be nil for purely local use.
func NewService(store ColumnStore, cache LayoutCache, rebind Rebinder, confirm Confirmer) Service {
	return &service{
		store:   store,
		cache:   cache,
		rebind:  rebind,
		confirm: confirm,
	}
}

// Columns returns the ordered column list snapshot.
func (s *service) Columns() []*models.Column {
	s.mu.Lock()
	defer s.mu.Unlock()
	snapshot := make([]*models.Column, len(s.columns))
	for i, c := range s.columns {
		snapshot[i] = c.Clone()
	}
	return snapshot
}

// Get returns a copy of the column, if present.
func (s *service) Get(id string) (*models.Column, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c := s.find(id); c != nil {
		return c.Clone(), true
	}
	return nil, false
}

// find locates a column by id. Caller holds the lock.
func (s *service) find(id string) *models.Column {
	for _, c := range s.columns {
		if c.ID == id {
			return c
		}
	}
	return nil
}

// CreateColumn appends a column with a fresh temporary id, then persists
// the ENTIRE list to the remote store. A non-empty canonical response
// replaces the local projection wholesale (explicit reconciliation step;
// ids are never rewritten in place). On store failure or an empty
// response the optimistic list stands, so the board stays usable offline
// from the last known good layout. Either way the durable cache mirrors
// whatever the registry now holds.
func (s *service) CreateColumn(ctx context.Context, title string) (*models.Column, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, ErrEmptyTitle
	}
	if len(title) > 50 {
		return nil, ErrTitleTooLong
	}

	s.mu.Lock()
	col := &models.Column{
		ID:     uuid.NewString(),
		Title:  title,
		Status: s.uniqueStatus(title),
		Color:  models.ColorPrimary,
	}
	col.SetOrder(len(s.columns))
	s.columns = append(s.columns, col)
	snapshot := s.cloneAll()
	s.mu.Unlock()

	canonical, err := s.persistList(ctx, snapshot)

	s.mu.Lock()
	if err == nil && len(canonical) > 0 {
		s.columns = sortCanonical(canonical)
	}
	s.mirrorLocked(ctx)
	created := s.findByStatus(col.Status)
	if created == nil {
		created = col
	}
	result := created.Clone()
	s.mu.Unlock()

	if err != nil {
		return result, fmt.Errorf("%w: %v", ErrSyncFailed, err)
	}
	return result, nil
}

// UpdateColumnColor is a local-only mutation mirrored to the cache.
func (s *service) UpdateColumnColor(ctx context.Context, id string, color models.Color) error {
	if id == "" {
		return ErrInvalidColumnID
	}
	if !color.Valid() {
		return ErrInvalidColor
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	col := s.find(id)
	if col == nil {
		return ErrColumnNotFound
	}

	col.Color = color
	// An absent order index would poison sorting later; re-derive it from
	// the column's current position.
	if col.OrderIndex == "" {
		for i, c := range s.columns {
			if c.ID == id {
				col.SetOrder(i)
				break
			}
		}
	}
	s.mirrorLocked(ctx)
	return nil
}

// DeleteColumn rebinds every bound card to the lowest-order survivor
// BEFORE the column is removed, so no card ever references a status that
// no column carries. Remaining columns are re-sequenced densely from 0.
func (s *service) DeleteColumn(ctx context.Context, id string) error {
	if id == "" {
		return ErrInvalidColumnID
	}

	s.mu.Lock()
	target := s.find(id)
	if target == nil {
		s.mu.Unlock()
		return ErrColumnNotFound
	}

	var survivor *models.Column
	for _, c := range s.columns {
		if c.ID == id {
			continue
		}
		if survivor == nil || less(c, survivor) {
			survivor = c
		}
	}
	oldStatus := target.Status
	var newStatus string
	if survivor != nil {
		newStatus = survivor.Status
	}
	s.mu.Unlock()

	// Rebind synchronously before the column disappears from the registry
	if survivor != nil && s.rebind != nil {
		if err := s.rebind.RebindStatus(ctx, oldStatus, newStatus); err != nil {
			slog.Warn("card rebinding reported a sync failure", "column", id, "error", err)
		}
	}

	s.mu.Lock()
	filtered := make([]*models.Column, 0, len(s.columns)-1)
	for _, c := range s.columns {
		if c.ID != id {
			filtered = append(filtered, c)
		}
	}
	for i, c := range filtered {
		c.SetOrder(i)
	}
	s.columns = filtered
	s.mirrorLocked(ctx)
	s.mu.Unlock()

	return nil
}

// SetBackgroundImage stores a loaded image payload as the column backdrop.
func (s *service) SetBackgroundImage(ctx context.Context, id, dataURI string) error {
	if id == "" {
		return ErrInvalidColumnID
	}
	if dataURI == "" {
		return ErrEmptyImage
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	col := s.find(id)
	if col == nil {
		return ErrColumnNotFound
	}
	col.BackgroundImage = &dataURI
	s.mirrorLocked(ctx)
	return nil
}

// RemoveBackgroundImage clears the backdrop after explicit confirmation.
func (s *service) RemoveBackgroundImage(ctx context.Context, id string) error {
	if id == "" {
		return ErrInvalidColumnID
	}
	if s.confirm == nil || !s.confirm.Confirm("Remove column background image?") {
		return ErrNotConfirmed
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	col := s.find(id)
	if col == nil {
		return ErrColumnNotFound
	}
	col.BackgroundImage = nil
	s.mirrorLocked(ctx)
	return nil
}

// BeginRename enters edit mode, capturing the target and a scratch title.
func (s *service) BeginRename(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	col := s.find(id)
	if col == nil {
		return ErrColumnNotFound
	}
	s.editID = id
	s.scratch = col.Title
	return nil
}

// ScratchTitle returns the in-progress title buffer, and whether a rename
// is in progress at all.
func (s *service) ScratchTitle() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.scratch, s.editID != ""
}

// SetScratchTitle replaces the edit buffer without committing.
func (s *service) SetScratchTitle(title string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.editID != "" {
		s.scratch = title
	}
}

// CommitRename applies the scratch title and leaves edit mode. An empty
// trimmed title refuses to commit and keeps the edit session open. No
// remote call happens here; durability beyond the local mirror is the
// caller's concern.
func (s *service) CommitRename(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.editID == "" {
		return ErrNotEditing
	}

	title := strings.TrimSpace(s.scratch)
	if title == "" {
		return ErrEmptyTitle
	}

	col := s.find(s.editID)
	if col == nil {
		s.editID = ""
		s.scratch = ""
		return ErrColumnNotFound
	}

	col.Title = title
	s.editID = ""
	s.scratch = ""
	s.mirrorLocked(ctx)
	return nil
}

// CancelRename leaves edit mode without applying the scratch title.
func (s *service) CancelRename() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.editID = ""
	s.scratch = ""
}

// Restore loads the last mirrored layout. It only fills an empty
// registry; a populated projection is never clobbered by stale cache.
func (s *service) Restore(ctx context.Context) error {
	if s.cache == nil {
		return nil
	}

	cached, err := s.cache.ReadColumns(ctx)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.columns) > 0 {
		return nil
	}
	s.columns = sortCanonical(cached)
	return nil
}

// persistList saves the whole list to the remote store, if one is wired.
func (s *service) persistList(ctx context.Context, columns []*models.Column) ([]*models.Column, error) {
	if s.store == nil {
		return nil, nil
	}
	return s.store.PersistColumns(ctx, columns)
}

// mirrorLocked writes the current projection to the durable cache.
// Best-effort: failures are logged, never surfaced. Caller holds the lock.
func (s *service) mirrorLocked(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.WriteColumns(ctx, s.columns); err != nil {
		slog.Warn("failed to mirror column layout", "error", err)
	}
}

// cloneAll copies the projection for handing outside the lock.
// Caller holds the lock.
func (s *service) cloneAll() []*models.Column {
	snapshot := make([]*models.Column, len(s.columns))
	for i, c := range s.columns {
		snapshot[i] = c.Clone()
	}
	return snapshot
}

// findByStatus locates a column by its binding key. Caller holds the lock.
func (s *service) findByStatus(status string) *models.Column {
	for _, c := range s.columns {
		if c.Status == status {
			return c
		}
	}
	return nil
}

// uniqueStatus derives a status key from the title, disambiguating
// against existing columns so cards always bind unambiguously.
// Caller holds the lock.
func (s *service) uniqueStatus(title string) string {
	base := slugify(title)
	status := base
	for n := 2; ; n++ {
		taken := false
		for _, c := range s.columns {
			if c.Status == status {
				taken = true
				break
			}
		}
		if !taken {
			return status
		}
		status = fmt.Sprintf("%s-%d", base, n)
	}
}

var slugPattern = regexp.MustCompile(`[^a-z0-9]+`)

// slugify lowercases the title and collapses runs of punctuation and
// whitespace into single dashes.
func slugify(title string) string {
	slug := slugPattern.ReplaceAllString(strings.ToLower(title), "-")
	slug = strings.Trim(slug, "-")
	if slug == "" {
		return "column"
	}
	return slug
}

// less orders columns by numeric order index, stable array position as
// the tie-breaker (callers iterate in slice order).
func less(a, b *models.Column) bool {
	return a.Order() < b.Order()
}

// sortCanonical sorts a server or cache supplied list by numeric order
// index (parse failures sort as 0, original order breaks ties) and drops
// any duplicate status so cards always bind to exactly one column. The
// survivor is re-sequenced densely from 0.
func sortCanonical(columns []*models.Column) []*models.Column {
	sorted := make([]*models.Column, len(columns))
	copy(sorted, columns)
	sort.SliceStable(sorted, func(i, j int) bool {
		return less(sorted[i], sorted[j])
	})

	seen := make(map[string]bool, len(sorted))
	result := make([]*models.Column, 0, len(sorted))
	for _, c := range sorted {
		if seen[c.Status] {
			slog.Warn("dropping column with duplicate status", "id", c.ID, "status", c.Status)
			continue
		}
		seen[c.Status] = true
		result = append(result, c)
	}

	for i, c := range result {
		c.SetOrder(i)
	}
	return result
}
