package todo

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"tavle/internal/events"
	"tavle/internal/models"
	"tavle/internal/user"
)

// Persister saves card state to the external collaborator. The registry
// awaits each call individually; a failure leaves the optimistic local
// state in place and is reported through ErrSyncFailed.
type Persister interface {
	SaveTodo(ctx context.Context, todo *models.Todo) error
}

// Confirmer asks the user to approve a destructive action before
// the registry proceeds.
type Confirmer interface {
	Confirm(prompt string) bool
}

// ConfirmFunc adapts a function to the Confirmer interface.
type ConfirmFunc func(prompt string) bool

func (f ConfirmFunc) Confirm(prompt string) bool { return f(prompt) }

// Service defines all card-related business operations
type Service interface {
	// Read operations
	Get(id string) (*models.Todo, bool)
	Todos() map[string]*models.Todo
	TodosByStatus(status string) []*models.Todo

	// Write operations
	CreateTodo(ctx context.Context, req CreateTodoRequest) (*models.Todo, error)
	DeleteTodo(ctx context.Context, id string) error
	UpdateTodo(ctx context.Context, id string, patch Patch) error

	// Field-level mutations (each is exactly one UpdateTodo call)
	AddTag(ctx context.Context, id, tag string) error
	RemoveTag(ctx context.Context, id, tag string) error
	AddParticipant(ctx context.Context, id, userID string) error
	RemoveParticipant(ctx context.Context, id, userID string) error
	SetPriority(ctx context.Context, id string, priority models.Priority) error
	SetDueDate(ctx context.Context, id, date, timeOfDay string) error
	ClearDueDate(ctx context.Context, id string) error

	// Checklist
	AddChecklistItem(ctx context.Context, id, text string) error
	ToggleChecklistItem(ctx context.Context, id, itemID string) error
	RemoveChecklistItem(ctx context.Context, id, itemID string) error
	DeleteAllChecklistItems(ctx context.Context, id string) error

	// Comments (append-only)
	AddComment(ctx context.Context, id, author, text string) error

	// RebindStatus moves every card bound to oldStatus onto newStatus.
	// Used by the column registry during column deletion; the rebinding is
	// applied locally before the column disappears so no card ever dangles.
	RebindStatus(ctx context.Context, oldStatus, newStatus string) error

	// StatusExists reports whether any card is bound to the status.
	StatusExists(status string) bool
}

// CreateTodoRequest encapsulates data for creating a card
type CreateTodoRequest struct {
	Title       string
	Description string
	Status      string // Target column's binding key
	Priority    models.Priority
}

// Patch is the single generic update contract. Nil pointer fields are
// left untouched; slice pointers replace the whole collection so a call
// is atomic and no torn intermediate state can be observed.
type Patch struct {
	Title       *string
	Description *string
	Status      *string
	Priority    *models.Priority
	DueDate     *string
	DueTime     *string
	ClearDue    bool // Clears date and time together; wins over DueDate/DueTime
	Tags        *[]string
	AssignedTo  *[]string
	Checklist   *[]models.ChecklistItem
	Attachments *[]models.Attachment
	Comments    *[]models.Comment
	Background  *string // New derived backdrop locator
	ClearBG     bool    // Clears the derived backdrop; wins over Background
	InFocus     *bool
}

// service implements Service. It owns the card collection exclusively;
// every mutation goes through the registry lock (single-writer per
// entity class).
type service struct {
	mu        sync.Mutex
	todos     map[string]*models.Todo
	persister Persister
	sink      events.Sink
	confirm   Confirmer
}

// NewService creates a new card registry. persister and sink may be nil
// for purely local use.
func NewService(persister Persister, sink events.Sink, confirm Confirmer) Service {
	return &service{
		todos:     make(map[string]*models.Todo),
		persister: persister,
		sink:      sink,
		confirm:   confirm,
	}
}

// Get returns a copy of the card, if present.
func (s *service) Get(id string) (*models.Todo, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.todos[id]
	if !ok {
		return nil, false
	}
	return t.Clone(), true
}

// Todos returns a snapshot of the card set keyed by id.
func (s *service) Todos() map[string]*models.Todo {
	s.mu.Lock()
	defer s.mu.Unlock()
	snapshot := make(map[string]*models.Todo, len(s.todos))
	for id, t := range s.todos {
		snapshot[id] = t.Clone()
	}
	return snapshot
}

// TodosByStatus returns the cards bound to a column's status, ordered by
// creation time for a stable projection.
func (s *service) TodosByStatus(status string) []*models.Todo {
	s.mu.Lock()
	defer s.mu.Unlock()
	var result []*models.Todo
	for _, t := range s.todos {
		if t.Status == status {
			result = append(result, t.Clone())
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].ID < result[j].ID
		}
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result
}

// StatusExists reports whether any card references the status.
func (s *service) StatusExists(status string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.todos {
		if t.Status == status {
			return true
		}
	}
	return false
}

// CreateTodo creates a card bound to a target column.
func (s *service) CreateTodo(ctx context.Context, req CreateTodoRequest) (*models.Todo, error) {
	if err := s.validateCreateTodo(req); err != nil {
		return nil, err
	}

	priority := req.Priority
	if priority == "" {
		priority = models.DefaultPriority
	}

	now := time.Now()
	t := &models.Todo{
		ID:          uuid.NewString(),
		Title:       strings.TrimSpace(req.Title),
		Description: req.Description,
		Status:      req.Status,
		Priority:    priority,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	s.mu.Lock()
	s.todos[t.ID] = t
	clone := t.Clone()
	s.mu.Unlock()

	if err := s.persist(ctx, clone); err != nil {
		return clone, err
	}
	return clone, nil
}

// DeleteTodo removes a card from the registry.
func (s *service) DeleteTodo(ctx context.Context, id string) error {
	if id == "" {
		return ErrInvalidTodoID
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.todos[id]; !ok {
		return ErrTodoNotFound
	}
	delete(s.todos, id)
	return nil
}

// UpdateTodo merges the patch into the card. The merge is atomic per
// call: either every named field lands or, on validation failure, none
// do. Derived fields (the all-day projection, the backdrop mirror) are
// consistent the moment the lock is released.
func (s *service) UpdateTodo(ctx context.Context, id string, patch Patch) error {
	if id == "" {
		return ErrInvalidTodoID
	}
	if patch.Title != nil && strings.TrimSpace(*patch.Title) == "" {
		return ErrEmptyTitle
	}
	if patch.Title != nil && len(*patch.Title) > 255 {
		return ErrTitleTooLong
	}
	if patch.Priority != nil && !patch.Priority.Valid() {
		return ErrInvalidPriority
	}

	s.mu.Lock()
	t, ok := s.todos[id]
	if !ok {
		s.mu.Unlock()
		return ErrTodoNotFound
	}

	applyPatch(t, patch)
	t.UpdatedAt = time.Now()
	clone := t.Clone()
	s.mu.Unlock()

	return s.persist(ctx, clone)
}

// applyPatch merges the patch in place. Caller holds the registry lock.
func applyPatch(t *models.Todo, patch Patch) {
	if patch.Title != nil {
		t.Title = strings.TrimSpace(*patch.Title)
	}
	if patch.Description != nil {
		t.Description = *patch.Description
	}
	if patch.Status != nil {
		t.Status = *patch.Status
	}
	if patch.Priority != nil {
		t.Priority = *patch.Priority
	}
	if patch.ClearDue {
		// Clearing the date clears the time with it; the all-day
		// projection becomes irrelevant rather than re-derived.
		t.DueDate = nil
		t.DueTime = nil
	} else {
		if patch.DueDate != nil {
			d := *patch.DueDate
			t.DueDate = &d
		}
		if patch.DueTime != nil {
			if *patch.DueTime == "" {
				t.DueTime = nil
			} else {
				tm := *patch.DueTime
				t.DueTime = &tm
			}
		}
	}
	if patch.Tags != nil {
		t.Tags = append([]string(nil), (*patch.Tags)...)
	}
	if patch.AssignedTo != nil {
		t.AssignedTo = append([]string(nil), (*patch.AssignedTo)...)
	}
	if patch.Checklist != nil {
		t.Checklist = append([]models.ChecklistItem(nil), (*patch.Checklist)...)
	}
	if patch.Attachments != nil {
		t.Attachments = append([]models.Attachment(nil), (*patch.Attachments)...)
	}
	if patch.Comments != nil {
		t.Comments = append([]models.Comment(nil), (*patch.Comments)...)
	}
	if patch.ClearBG {
		t.BackgroundImage = nil
	} else if patch.Background != nil {
		bg := *patch.Background
		t.BackgroundImage = &bg
	}
	if patch.InFocus != nil {
		t.InFocus = *patch.InFocus
	}
}

// AddTag appends a tag; empty (after trimming) and duplicate tags are
// rejected with a case-sensitive exact match.
func (s *service) AddTag(ctx context.Context, id, tag string) error {
	tag = strings.TrimSpace(tag)
	if tag == "" {
		return ErrEmptyTag
	}

	t, ok := s.Get(id)
	if !ok {
		return ErrTodoNotFound
	}
	if t.HasTag(tag) {
		return ErrDuplicateTag
	}

	tags := append(append([]string(nil), t.Tags...), tag)
	return s.UpdateTodo(ctx, id, Patch{Tags: &tags})
}

// RemoveTag filters the exact string out of the card's tags.
func (s *service) RemoveTag(ctx context.Context, id, tag string) error {
	t, ok := s.Get(id)
	if !ok {
		return ErrTodoNotFound
	}
	if !t.HasTag(tag) {
		return ErrTagNotFound
	}

	tags := make([]string, 0, len(t.Tags))
	for _, existing := range t.Tags {
		if existing != tag {
			tags = append(tags, existing)
		}
	}
	return s.UpdateTodo(ctx, id, Patch{Tags: &tags})
}

// AddParticipant assigns a user and emits a notification naming them.
func (s *service) AddParticipant(ctx context.Context, id, userID string) error {
	if strings.TrimSpace(userID) == "" {
		return ErrEmptyUserID
	}

	t, ok := s.Get(id)
	if !ok {
		return ErrTodoNotFound
	}
	if t.IsAssigned(userID) {
		return ErrDuplicateUser
	}

	assigned := append(append([]string(nil), t.AssignedTo...), userID)
	if err := s.UpdateTodo(ctx, id, Patch{AssignedTo: &assigned}); err != nil {
		return err
	}

	s.publishNotification(events.Notification{
		Title:    "Participant added",
		Body:     fmt.Sprintf("%s was assigned to %q", userID, t.Title),
		Severity: events.SeverityInfo,
		CardID:   id,
	})
	return nil
}

// RemoveParticipant unassigns a user from the card.
func (s *service) RemoveParticipant(ctx context.Context, id, userID string) error {
	t, ok := s.Get(id)
	if !ok {
		return ErrTodoNotFound
	}
	if !t.IsAssigned(userID) {
		return ErrUserNotAssigned
	}

	assigned := make([]string, 0, len(t.AssignedTo))
	for _, existing := range t.AssignedTo {
		if existing != userID {
			assigned = append(assigned, existing)
		}
	}
	return s.UpdateTodo(ctx, id, Patch{AssignedTo: &assigned})
}

// SetPriority changes the card's priority to an enumerated level.
func (s *service) SetPriority(ctx context.Context, id string, priority models.Priority) error {
	if !priority.Valid() {
		return ErrInvalidPriority
	}
	return s.UpdateTodo(ctx, id, Patch{Priority: &priority})
}

// SetDueDate schedules the card. A blank time of day means all-day; both
// fields land in one call so the projection can never tear.
func (s *service) SetDueDate(ctx context.Context, id, date, timeOfDay string) error {
	if strings.TrimSpace(date) == "" {
		return ErrEmptyDueDate
	}
	return s.UpdateTodo(ctx, id, Patch{DueDate: &date, DueTime: &timeOfDay})
}

// ClearDueDate unschedules the card, clearing the time alongside the date.
func (s *service) ClearDueDate(ctx context.Context, id string) error {
	return s.UpdateTodo(ctx, id, Patch{ClearDue: true})
}

// AddChecklistItem appends a checklist entry.
func (s *service) AddChecklistItem(ctx context.Context, id, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return ErrEmptyItemText
	}

	t, ok := s.Get(id)
	if !ok {
		return ErrTodoNotFound
	}

	items := append(append([]models.ChecklistItem(nil), t.Checklist...), models.ChecklistItem{
		ID:   uuid.NewString(),
		Text: text,
	})
	return s.UpdateTodo(ctx, id, Patch{Checklist: &items})
}

// ToggleChecklistItem flips an item's checked state.
func (s *service) ToggleChecklistItem(ctx context.Context, id, itemID string) error {
	t, ok := s.Get(id)
	if !ok {
		return ErrTodoNotFound
	}

	items := append([]models.ChecklistItem(nil), t.Checklist...)
	found := false
	for i := range items {
		if items[i].ID == itemID {
			items[i].Checked = !items[i].Checked
			found = true
			break
		}
	}
	if !found {
		return ErrItemNotFound
	}
	return s.UpdateTodo(ctx, id, Patch{Checklist: &items})
}

// RemoveChecklistItem deletes a single checklist entry.
func (s *service) RemoveChecklistItem(ctx context.Context, id, itemID string) error {
	t, ok := s.Get(id)
	if !ok {
		return ErrTodoNotFound
	}

	items := make([]models.ChecklistItem, 0, len(t.Checklist))
	found := false
	for _, item := range t.Checklist {
		if item.ID == itemID {
			found = true
			continue
		}
		items = append(items, item)
	}
	if !found {
		return ErrItemNotFound
	}
	return s.UpdateTodo(ctx, id, Patch{Checklist: &items})
}

// DeleteAllChecklistItems collapses the checklist to empty after explicit
// user confirmation.
func (s *service) DeleteAllChecklistItems(ctx context.Context, id string) error {
	if _, ok := s.Get(id); !ok {
		return ErrTodoNotFound
	}
	if s.confirm == nil || !s.confirm.Confirm("Delete all checklist items?") {
		return ErrNotConfirmed
	}

	empty := []models.ChecklistItem{}
	return s.UpdateTodo(ctx, id, Patch{Checklist: &empty})
}

// AddComment appends to the card's comment thread. An empty author
// falls back to the local username.
func (s *service) AddComment(ctx context.Context, id, author, text string) error {
	if strings.TrimSpace(text) == "" {
		return ErrEmptyComment
	}
	if strings.TrimSpace(author) == "" {
		author = user.Current()
	}

	t, ok := s.Get(id)
	if !ok {
		return ErrTodoNotFound
	}

	comments := append(append([]models.Comment(nil), t.Comments...), models.Comment{
		ID:        uuid.NewString(),
		Author:    author,
		Text:      text,
		CreatedAt: time.Now(),
	})
	return s.UpdateTodo(ctx, id, Patch{Comments: &comments})
}

// RebindStatus rewrites every card bound to oldStatus onto newStatus.
// The local rewrite happens synchronously and completely; persistence is
// attempted per card afterwards and the first sync failure is reported.
func (s *service) RebindStatus(ctx context.Context, oldStatus, newStatus string) error {
	s.mu.Lock()
	var rebound []*models.Todo
	for _, t := range s.todos {
		if t.Status == oldStatus {
			t.Status = newStatus
			t.UpdatedAt = time.Now()
			rebound = append(rebound, t.Clone())
		}
	}
	s.mu.Unlock()

	var syncErr error
	for _, clone := range rebound {
		if err := s.persist(ctx, clone); err != nil && syncErr == nil {
			syncErr = err
		}
	}
	return syncErr
}

// persist hands the card to the external collaborator. Store refusal is
// wrapped in ErrSyncFailed; the optimistic local state stays in place.
func (s *service) persist(ctx context.Context, t *models.Todo) error {
	if s.persister == nil {
		return nil
	}
	if err := s.persister.SaveTodo(ctx, t); err != nil {
		return fmt.Errorf("%w: %v", ErrSyncFailed, err)
	}
	return nil
}

// validateCreateTodo validates a CreateTodoRequest
func (s *service) validateCreateTodo(req CreateTodoRequest) error {
	if strings.TrimSpace(req.Title) == "" {
		return ErrEmptyTitle
	}
	if len(req.Title) > 255 {
		return ErrTitleTooLong
	}
	if req.Status == "" {
		return ErrUnknownStatus
	}
	if req.Priority != "" && !req.Priority.Valid() {
		return ErrInvalidPriority
	}
	return nil
}

// publishNotification delivers a notification if a sink exists
func (s *service) publishNotification(n events.Notification) {
	if s.sink == nil {
		return
	}
	_ = events.NotifyWithRetry(s.sink, n, 3)
}
