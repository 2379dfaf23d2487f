package column

import (
	"context"
	"errors"
	"testing"

	"tavle/internal/models"
)

// ============================================================================
// TEST HELPERS
// ============================================================================

// fakeStore scripts the remote board store's persist behavior
type fakeStore struct {
	persistCalls int
	lastSaved    []*models.Column
	canonical    []*models.Column
	err          error
}

func (f *fakeStore) PersistColumns(ctx context.Context, columns []*models.Column) ([]*models.Column, error) {
	f.persistCalls++
	f.lastSaved = columns
	if f.err != nil {
		return nil, f.err
	}
	return f.canonical, nil
}

// fakeCache records layout mirrors
type fakeCache struct {
	writes   int
	mirrored []*models.Column
	stored   []*models.Column
	readErr  error
}

func (f *fakeCache) WriteColumns(ctx context.Context, columns []*models.Column) error {
	f.writes++
	f.mirrored = make([]*models.Column, len(columns))
	for i, c := range columns {
		f.mirrored[i] = c.Clone()
	}
	return nil
}

func (f *fakeCache) ReadColumns(ctx context.Context) ([]*models.Column, error) {
	if f.readErr != nil {
		return nil, f.readErr
	}
	return f.stored, nil
}

// fakeRebinder records rebinding requests
type fakeRebinder struct {
	calls []string
}

func (f *fakeRebinder) RebindStatus(ctx context.Context, oldStatus, newStatus string) error {
	f.calls = append(f.calls, oldStatus+"->"+newStatus)
	return nil
}

// alwaysConfirm approves every prompt
var alwaysConfirm = ConfirmFunc(func(string) bool { return true })

// neverConfirm rejects every prompt
var neverConfirm = ConfirmFunc(func(string) bool { return false })

// mustCreate creates a column or fails the test
func mustCreate(t *testing.T, svc Service, title string) *models.Column {
	t.Helper()
	col, err := svc.CreateColumn(context.Background(), title)
	if err != nil && !errors.Is(err, ErrSyncFailed) {
		t.Fatalf("CreateColumn(%q) failed: %v", title, err)
	}
	return col
}

// ============================================================================
// TEST CASES
// ============================================================================

func TestCreateColumn(t *testing.T) {
	t.Parallel()

	store := &fakeStore{}
	cache := &fakeCache{}
	svc := NewService(store, cache, nil, nil)

	col, err := svc.CreateColumn(context.Background(), "To Do")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if col == nil {
		t.Fatal("Expected column result, got nil")
	}
	if col.Title != "To Do" {
		t.Errorf("Expected title 'To Do', got %q", col.Title)
	}
	if col.Status != "to-do" {
		t.Errorf("Expected derived status 'to-do', got %q", col.Status)
	}
	if col.OrderIndex != "0" {
		t.Errorf("Expected OrderIndex '0', got %q", col.OrderIndex)
	}
	if col.ID == "" {
		t.Error("Expected a temporary id to be assigned")
	}

	// The whole list is persisted, not a delta
	if store.persistCalls != 1 {
		t.Errorf("Expected 1 persist call, got %d", store.persistCalls)
	}
	if len(store.lastSaved) != 1 {
		t.Errorf("Expected full list of 1 column persisted, got %d", len(store.lastSaved))
	}
	if cache.writes != 1 {
		t.Errorf("Expected 1 cache mirror, got %d", cache.writes)
	}
}

func TestCreateColumn_Validation(t *testing.T) {
	t.Parallel()

	svc := NewService(nil, nil, nil, nil)

	if _, err := svc.CreateColumn(context.Background(), "   "); !errors.Is(err, ErrEmptyTitle) {
		t.Errorf("Expected ErrEmptyTitle, got %v", err)
	}

	long := make([]byte, 51)
	for i := range long {
		long[i] = 'a'
	}
	if _, err := svc.CreateColumn(context.Background(), string(long)); !errors.Is(err, ErrTitleTooLong) {
		t.Errorf("Expected ErrTitleTooLong, got %v", err)
	}
}

func TestCreateColumn_DenseOrderIndexes(t *testing.T) {
	t.Parallel()

	svc := NewService(nil, nil, nil, nil)

	for _, title := range []string{"Backlog", "Doing", "Review", "Done"} {
		mustCreate(t, svc, title)
	}

	columns := svc.Columns()
	if len(columns) != 4 {
		t.Fatalf("Expected 4 columns, got %d", len(columns))
	}
	for i, c := range columns {
		if c.Order() != i {
			t.Errorf("Column %d has OrderIndex %q, want %d", i, c.OrderIndex, i)
		}
	}
}

func TestCreateColumn_UniqueStatuses(t *testing.T) {
	t.Parallel()

	svc := NewService(nil, nil, nil, nil)
	a := mustCreate(t, svc, "Review")
	b := mustCreate(t, svc, "Review")

	if a.Status == b.Status {
		t.Errorf("Expected disambiguated statuses, both are %q", a.Status)
	}
	if b.Status != "review-2" {
		t.Errorf("Expected 'review-2', got %q", b.Status)
	}
}

func TestCreateColumn_CanonicalReplacement(t *testing.T) {
	t.Parallel()

	// Server answers with its own ids, deliberately out of order
	store := &fakeStore{canonical: []*models.Column{
		{ID: "srv-2", Title: "Later", Status: "later", OrderIndex: "5"},
		{ID: "srv-1", Title: "Now", Status: "now", OrderIndex: "2"},
	}}
	cache := &fakeCache{}
	svc := NewService(store, cache, nil, nil)

	if _, err := svc.CreateColumn(context.Background(), "Now"); err != nil {
		t.Fatalf("CreateColumn failed: %v", err)
	}

	columns := svc.Columns()
	if len(columns) != 2 {
		t.Fatalf("Expected canonical 2 columns, got %d", len(columns))
	}
	// Sorted by numeric order index and re-sequenced densely
	if columns[0].ID != "srv-1" || columns[1].ID != "srv-2" {
		t.Errorf("Expected server-sorted order srv-1, srv-2; got %s, %s", columns[0].ID, columns[1].ID)
	}
	if columns[0].Order() != 0 || columns[1].Order() != 1 {
		t.Errorf("Expected dense re-sequencing, got %q and %q", columns[0].OrderIndex, columns[1].OrderIndex)
	}

	// Cache mirrors the canonical list, not the optimistic one
	if len(cache.mirrored) != 2 || cache.mirrored[0].ID != "srv-1" {
		t.Error("Expected cache to mirror the canonical list")
	}
}

func TestCreateColumn_StoreFailureKeepsOptimisticState(t *testing.T) {
	t.Parallel()

	store := &fakeStore{err: errors.New("store unreachable")}
	cache := &fakeCache{}
	svc := NewService(store, cache, nil, nil)

	col, err := svc.CreateColumn(context.Background(), "Offline")
	if !errors.Is(err, ErrSyncFailed) {
		t.Fatalf("Expected ErrSyncFailed, got %v", err)
	}
	if col == nil {
		t.Fatal("Expected the optimistic column alongside the sync error")
	}

	columns := svc.Columns()
	if len(columns) != 1 || columns[0].Title != "Offline" {
		t.Error("Expected optimistic local state to survive the failure")
	}
	if cache.writes != 1 {
		t.Error("Expected the optimistic list to be mirrored to the cache")
	}
}

func TestUpdateColumnColor(t *testing.T) {
	t.Parallel()

	store := &fakeStore{}
	cache := &fakeCache{}
	svc := NewService(store, cache, nil, nil)
	col := mustCreate(t, svc, "Todo")

	persists := store.persistCalls
	if err := svc.UpdateColumnColor(context.Background(), col.ID, models.ColorAccent); err != nil {
		t.Fatalf("UpdateColumnColor failed: %v", err)
	}

	// Local-only: no extra remote call, but the cache is mirrored
	if store.persistCalls != persists {
		t.Error("Expected no remote call for a color change")
	}
	got, _ := svc.Get(col.ID)
	if got.Color != models.ColorAccent {
		t.Errorf("Expected accent, got %q", got.Color)
	}

	if err := svc.UpdateColumnColor(context.Background(), col.ID, "neon"); !errors.Is(err, ErrInvalidColor) {
		t.Errorf("Expected ErrInvalidColor, got %v", err)
	}
}

func TestDeleteColumn_RebindsBeforeRemoval(t *testing.T) {
	t.Parallel()

	rebinder := &fakeRebinder{}
	svc := NewService(nil, &fakeCache{}, rebinder, nil)
	a := mustCreate(t, svc, "First")
	b := mustCreate(t, svc, "Second")
	c := mustCreate(t, svc, "Third")

	if err := svc.DeleteColumn(context.Background(), b.ID); err != nil {
		t.Fatalf("DeleteColumn failed: %v", err)
	}

	// Cards move to the lowest-order survivor
	if len(rebinder.calls) != 1 || rebinder.calls[0] != b.Status+"->"+a.Status {
		t.Errorf("Expected rebind %s->%s, got %v", b.Status, a.Status, rebinder.calls)
	}

	columns := svc.Columns()
	if len(columns) != 2 {
		t.Fatalf("Expected 2 columns after delete, got %d", len(columns))
	}
	// Dense re-sequencing from 0
	if columns[0].ID != a.ID || columns[0].Order() != 0 {
		t.Errorf("Expected %s at order 0, got %s at %d", a.ID, columns[0].ID, columns[0].Order())
	}
	if columns[1].ID != c.ID || columns[1].Order() != 1 {
		t.Errorf("Expected %s at order 1, got %s at %d", c.ID, columns[1].ID, columns[1].Order())
	}
}

func TestDeleteColumn_LastColumnHasNothingToRebindTo(t *testing.T) {
	t.Parallel()

	rebinder := &fakeRebinder{}
	svc := NewService(nil, nil, rebinder, nil)
	only := mustCreate(t, svc, "Only")

	if err := svc.DeleteColumn(context.Background(), only.ID); err != nil {
		t.Fatalf("DeleteColumn failed: %v", err)
	}
	if len(rebinder.calls) != 0 {
		t.Errorf("Expected no rebinding with no survivors, got %v", rebinder.calls)
	}
	if len(svc.Columns()) != 0 {
		t.Error("Expected an empty registry")
	}
}

func TestRename_TwoPhase(t *testing.T) {
	t.Parallel()

	svc := NewService(nil, &fakeCache{}, nil, nil)
	col := mustCreate(t, svc, "Old Name")

	if err := svc.BeginRename(col.ID); err != nil {
		t.Fatalf("BeginRename failed: %v", err)
	}
	scratch, editing := svc.ScratchTitle()
	if !editing || scratch != "Old Name" {
		t.Errorf("Expected edit mode with scratch 'Old Name', got %q (%v)", scratch, editing)
	}

	svc.SetScratchTitle("  New Name  ")
	if err := svc.CommitRename(context.Background()); err != nil {
		t.Fatalf("CommitRename failed: %v", err)
	}

	got, _ := svc.Get(col.ID)
	if got.Title != "New Name" {
		t.Errorf("Expected trimmed 'New Name', got %q", got.Title)
	}
	if _, editing := svc.ScratchTitle(); editing {
		t.Error("Expected edit mode to be cleared after commit")
	}
}

func TestRename_EmptyTitleRefusesToCommit(t *testing.T) {
	t.Parallel()

	svc := NewService(nil, nil, nil, nil)
	col := mustCreate(t, svc, "Keep Me")

	if err := svc.BeginRename(col.ID); err != nil {
		t.Fatalf("BeginRename failed: %v", err)
	}
	svc.SetScratchTitle("   ")
	if err := svc.CommitRename(context.Background()); !errors.Is(err, ErrEmptyTitle) {
		t.Errorf("Expected ErrEmptyTitle, got %v", err)
	}

	// Edit session stays open, title unchanged
	if _, editing := svc.ScratchTitle(); !editing {
		t.Error("Expected edit mode to remain after refused commit")
	}
	got, _ := svc.Get(col.ID)
	if got.Title != "Keep Me" {
		t.Errorf("Expected title unchanged, got %q", got.Title)
	}
}

func TestRename_CommitWithoutBegin(t *testing.T) {
	t.Parallel()

	svc := NewService(nil, nil, nil, nil)
	if err := svc.CommitRename(context.Background()); !errors.Is(err, ErrNotEditing) {
		t.Errorf("Expected ErrNotEditing, got %v", err)
	}
}

func TestBackgroundImage_SetAndRemove(t *testing.T) {
	t.Parallel()

	svc := NewService(nil, &fakeCache{}, nil, alwaysConfirm)
	col := mustCreate(t, svc, "Styled")

	if err := svc.SetBackgroundImage(context.Background(), col.ID, ""); !errors.Is(err, ErrEmptyImage) {
		t.Errorf("Expected ErrEmptyImage, got %v", err)
	}

	uri := "data:image/png;base64,AA=="
	if err := svc.SetBackgroundImage(context.Background(), col.ID, uri); err != nil {
		t.Fatalf("SetBackgroundImage failed: %v", err)
	}
	got, _ := svc.Get(col.ID)
	if got.BackgroundImage == nil || *got.BackgroundImage != uri {
		t.Error("Expected backdrop to be stored")
	}

	if err := svc.RemoveBackgroundImage(context.Background(), col.ID); err != nil {
		t.Fatalf("RemoveBackgroundImage failed: %v", err)
	}
	got, _ = svc.Get(col.ID)
	if got.BackgroundImage != nil {
		t.Error("Expected backdrop to be cleared")
	}
}

func TestRemoveBackgroundImage_RequiresConfirmation(t *testing.T) {
	t.Parallel()

	svc := NewService(nil, nil, nil, neverConfirm)
	col := mustCreate(t, svc, "Styled")
	uri := "data:image/png;base64,AA=="
	if err := svc.SetBackgroundImage(context.Background(), col.ID, uri); err != nil {
		t.Fatalf("SetBackgroundImage failed: %v", err)
	}

	if err := svc.RemoveBackgroundImage(context.Background(), col.ID); !errors.Is(err, ErrNotConfirmed) {
		t.Errorf("Expected ErrNotConfirmed, got %v", err)
	}
	got, _ := svc.Get(col.ID)
	if got.BackgroundImage == nil {
		t.Error("Expected backdrop to survive the refused confirmation")
	}
}

func TestRestore_FillsEmptyRegistryOnly(t *testing.T) {
	t.Parallel()

	cache := &fakeCache{stored: []*models.Column{
		{ID: "c2", Title: "B", Status: "b", OrderIndex: "1"},
		{ID: "c1", Title: "A", Status: "a", OrderIndex: "0"},
	}}
	svc := NewService(nil, cache, nil, nil)

	if err := svc.Restore(context.Background()); err != nil {
		t.Fatalf("Restore failed: %v", err)
	}
	columns := svc.Columns()
	if len(columns) != 2 || columns[0].ID != "c1" {
		t.Errorf("Expected cached layout sorted by order, got %+v", columns)
	}

	// A second restore must not clobber live state
	cache.stored = []*models.Column{{ID: "stale", Status: "stale"}}
	if err := svc.Restore(context.Background()); err != nil {
		t.Fatalf("Second restore failed: %v", err)
	}
	if len(svc.Columns()) != 2 {
		t.Error("Expected populated registry to ignore stale cache")
	}
}

func TestSortCanonical_DropsDuplicateStatus(t *testing.T) {
	t.Parallel()

	result := sortCanonical([]*models.Column{
		{ID: "c1", Status: "todo", OrderIndex: "0"},
		{ID: "c2", Status: "todo", OrderIndex: "1"},
		{ID: "c3", Status: "done", OrderIndex: "2"},
	})
	if len(result) != 2 {
		t.Fatalf("Expected duplicate status dropped, got %d columns", len(result))
	}
	if result[0].ID != "c1" || result[1].ID != "c3" {
		t.Errorf("Expected first occurrence kept, got %s, %s", result[0].ID, result[1].ID)
	}
}

func TestSortCanonical_NonNumericSortsAsZero(t *testing.T) {
	t.Parallel()

	result := sortCanonical([]*models.Column{
		{ID: "c1", Status: "a", OrderIndex: "3"},
		{ID: "c2", Status: "b", OrderIndex: "oops"},
		{ID: "c3", Status: "c", OrderIndex: ""},
	})
	// Both unparsable indexes sort as 0, keeping their relative order
	if result[0].ID != "c2" || result[1].ID != "c3" || result[2].ID != "c1" {
		t.Errorf("Unexpected order: %s, %s, %s", result[0].ID, result[1].ID, result[2].ID)
	}
}
