package models

import (
	"math"
	"time"
)

// Todo represents a single card on the board.
type Todo struct {
	ID          string          `json:"id"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Status      string          `json:"status"` // References a Column.Status
	Priority    Priority        `json:"priority"`
	DueDate     *string         `json:"dueDate,omitempty"` // Calendar date, nil when unscheduled
	DueTime     *string         `json:"dueTime,omitempty"` // Time of day, nil means all-day
	Tags        []string        `json:"tags,omitempty"`
	AssignedTo  []string        `json:"assignedTo,omitempty"`
	Checklist   []ChecklistItem `json:"todoLists,omitempty"`
	Attachments []Attachment    `json:"attachments,omitempty"`
	Comments    []Comment       `json:"comments,omitempty"`
	// BackgroundImage mirrors the content locator of the attachment currently
	// flagged IsBackground. It is derived state, kept in step by the registry.
	BackgroundImage *string   `json:"backgroundImage,omitempty"`
	InFocus         bool      `json:"inFocus"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

// ChecklistItem is one entry of a card's checklist.
type ChecklistItem struct {
	ID      string `json:"id"`
	Text    string `json:"text"`
	Checked bool   `json:"checked"`
}

// Comment is an append-only note on a card.
type Comment struct {
	ID        string    `json:"id"`
	Author    string    `json:"authorName"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"createdAt"`
}

// AllDay reports whether the card's schedule has no time-of-day component.
// It is a projection of DueDate/DueTime, recomputed on every read so it can
// never diverge from its source fields.
func (t *Todo) AllDay() bool {
	if t.DueDate == nil {
		return false
	}
	return t.DueTime == nil || *t.DueTime == ""
}

// Progress returns the checklist completion percentage, rounded to the
// nearest integer. An empty or absent checklist is 0, never a division.
func (t *Todo) Progress() int {
	total := len(t.Checklist)
	if total == 0 {
		return 0
	}
	checked := 0
	for _, item := range t.Checklist {
		if item.Checked {
			checked++
		}
	}
	return int(math.Round(100 * float64(checked) / float64(total)))
}

// HasTag reports whether the card carries the exact tag (case-sensitive).
func (t *Todo) HasTag(tag string) bool {
	for _, existing := range t.Tags {
		if existing == tag {
			return true
		}
	}
	return false
}

// IsAssigned reports whether the user id is already a participant.
func (t *Todo) IsAssigned(userID string) bool {
	for _, existing := range t.AssignedTo {
		if existing == userID {
			return true
		}
	}
	return false
}

// Clone returns an independent deep copy. Registries hand out clones so
// that shared readers never observe a write in progress.
func (t *Todo) Clone() *Todo {
	clone := *t
	if t.DueDate != nil {
		d := *t.DueDate
		clone.DueDate = &d
	}
	if t.DueTime != nil {
		tm := *t.DueTime
		clone.DueTime = &tm
	}
	if t.BackgroundImage != nil {
		bg := *t.BackgroundImage
		clone.BackgroundImage = &bg
	}
	clone.Tags = append([]string(nil), t.Tags...)
	clone.AssignedTo = append([]string(nil), t.AssignedTo...)
	clone.Checklist = append([]ChecklistItem(nil), t.Checklist...)
	clone.Attachments = append([]Attachment(nil), t.Attachments...)
	clone.Comments = append([]Comment(nil), t.Comments...)
	return &clone
}

// BackgroundAttachment returns the attachment currently flagged as the
// card's backdrop, or nil when none is set.
func (t *Todo) BackgroundAttachment() *Attachment {
	for i := range t.Attachments {
		if t.Attachments[i].IsBackground {
			return &t.Attachments[i]
		}
	}
	return nil
}
