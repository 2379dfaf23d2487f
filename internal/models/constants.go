package models

// Color is the visual accent assigned to a column.
type Color string

const (
	ColorPrimary   Color = "primary"
	ColorSecondary Color = "secondary"
	ColorAccent    Color = "accent"
	ColorMuted     Color = "muted"
)

// Valid reports whether the color is one of the enumerated accents.
func (c Color) Valid() bool {
	switch c {
	case ColorPrimary, ColorSecondary, ColorAccent, ColorMuted:
		return true
	}
	return false
}

// Priority is a card's urgency level.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Valid reports whether the priority is one of the enumerated levels.
func (p Priority) Valid() bool {
	switch p {
	case PriorityHigh, PriorityMedium, PriorityLow:
		return true
	}
	return false
}

// DefaultPriority is applied when a card's priority is explicitly reset.
const DefaultPriority = PriorityMedium
