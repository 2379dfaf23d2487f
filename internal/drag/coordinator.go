package drag

import (
	"context"
	"log/slog"
	"sync"

	"tavle/internal/models"
	"tavle/internal/services/todo"
)

// State is the card gesture state.
type State int

const (
	StateIdle State = iota
	StateDragging
)

// String returns a readable state name for logs.
func (s State) String() string {
	switch s {
	case StateDragging:
		return "dragging"
	default:
		return "idle"
	}
}

// CardMover is the slice of the card registry the coordinator needs to
// re-parent a dropped card.
type CardMover interface {
	Get(id string) (*models.Todo, bool)
	UpdateTodo(ctx context.Context, id string, patch todo.Patch) error
}

// Coordinator runs the card drag gesture state machine. A gesture is
// Idle until DragStart captures a card, and returns to Idle on Drop or
// DragEnd no matter how the gesture resolves.
type Coordinator struct {
	mu     sync.Mutex
	state  State
	cardID string
	cards  CardMover
}

// NewCoordinator creates a coordinator over the card registry.
func NewCoordinator(cards CardMover) *Coordinator {
	return &Coordinator{cards: cards}
}

// State returns the current gesture state.
func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// DraggedCard returns the card captured by the current gesture.
func (c *Coordinator) DraggedCard() (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cardID, c.state == StateDragging
}

// DragStart captures the dragged card and enters Dragging.
func (c *Coordinator) DragStart(cardID string) error {
	if _, ok := c.cards.Get(cardID); !ok {
		return ErrCardNotFound
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateDragging {
		return ErrAlreadyDragging
	}
	c.state = StateDragging
	c.cardID = cardID
	return nil
}

// DragOver acknowledges hovering a column. It changes no state; the
// visual affordance belongs to the presentation layer.
func (c *Coordinator) DragOver(columnStatus string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateDragging {
		return ErrNotDragging
	}
	return nil
}

// Drop resolves the gesture onto a column. When the target status
// differs from the card's current status, exactly one update is issued;
// dropping a card back onto its origin column is a no-op. The gesture
// always returns to Idle, even when the update fails.
func (c *Coordinator) Drop(ctx context.Context, columnStatus string) (bool, error) {
	if columnStatus == "" {
		return false, ErrEmptyStatus
	}

	c.mu.Lock()
	if c.state != StateDragging {
		c.mu.Unlock()
		return false, ErrNotDragging
	}
	cardID := c.cardID
	c.state = StateIdle
	c.cardID = ""
	c.mu.Unlock()

	card, ok := c.cards.Get(cardID)
	if !ok {
		// Card deleted mid-gesture
		slog.Warn("Dropped card no longer exists", "card_id", cardID)
		return false, ErrCardNotFound
	}
	if card.Status == columnStatus {
		return false, nil
	}

	if err := c.cards.UpdateTodo(ctx, cardID, todo.Patch{Status: &columnStatus}); err != nil {
		return false, err
	}
	return true, nil
}

// DragEnd cancels a gesture that never dropped. No mutation is issued.
func (c *Coordinator) DragEnd() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = StateIdle
	c.cardID = ""
}
