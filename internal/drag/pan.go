package drag

import "sync"

// Region classifies where a pointer gesture started. Only gestures that
// begin on the empty canvas become pans; gestures on a card or a column
// header belong to the card drag machinery and are never intercepted.
type Region int

const (
	RegionCanvas Region = iota
	RegionCard
	RegionColumnHeader
)

// Panner tracks a horizontal scroll pan of the board canvas. It is
// independent of the card gesture state machine.
type Panner struct {
	mu         sync.Mutex
	active     bool
	originX    float64
	baseOffset float64
	offset     float64
}

// NewPanner creates a panner with the scroll offset at zero.
func NewPanner() *Panner {
	return &Panner{}
}

// Start begins a pan if the gesture originates on the empty canvas.
// It reports whether the gesture was intercepted.
func (p *Panner) Start(region Region, x float64) bool {
	if region != RegionCanvas {
		return false
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.active = true
	p.originX = x
	p.baseOffset = p.offset
	return true
}

// Move updates the scroll offset from the pointer position. Dragging
// the canvas left scrolls the board right. The offset never goes
// negative. Returns the current offset either way.
func (p *Panner) Move(x float64) float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.active {
		return p.offset
	}

	next := p.baseOffset + (p.originX - x)
	if next < 0 {
		next = 0
	}
	p.offset = next
	return p.offset
}

// End finishes the pan. The offset stays where the pointer left it.
func (p *Panner) End() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.active = false
}

// Active reports whether a pan is in progress.
func (p *Panner) Active() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.active
}

// Offset returns the current horizontal scroll offset.
func (p *Panner) Offset() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.offset
}
