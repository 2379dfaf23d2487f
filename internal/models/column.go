package models

import "strconv"

// Column represents a kanban board column (e.g., "Todo", "In Progress", "Done").
// Cards bind to a column through its Status key, which must be unique across the
// board; the ID only identifies the column record itself.
type Column struct {
	ID              string  `json:"id"`                        // Unique identifier (temporary until server-confirmed)
	Title           string  `json:"title"`                     // Display name of the column
	Status          string  `json:"status"`                    // Binding key referenced by Todo.Status
	Color           Color   `json:"color"`                     // Visual accent for the column header
	BackgroundImage *string `json:"backgroundImage,omitempty"` // Optional data URI or URL backdrop
	OrderIndex      string  `json:"orderIndex"`                // Non-negative position encoded as a decimal string
}

// Order returns the numeric value of OrderIndex. A missing or non-numeric
// OrderIndex sorts as 0; array position is the tie-breaker at the call site.
func (c *Column) Order() int {
	n, err := strconv.Atoi(c.OrderIndex)
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// SetOrder stores a position as the decimal string the external store expects.
func (c *Column) SetOrder(n int) {
	c.OrderIndex = strconv.Itoa(n)
}

// Clone returns an independent copy. Registries hand out clones so that
// shared readers never observe a write in progress.
func (c *Column) Clone() *Column {
	clone := *c
	if c.BackgroundImage != nil {
		bg := *c.BackgroundImage
		clone.BackgroundImage = &bg
	}
	return &clone
}
