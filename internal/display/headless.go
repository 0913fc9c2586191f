package display

import (
	"image"
	"sync"
)

// Headless is a surface without a screen. It remembers the last painted
// frame so the live view stays the only way to observe the slideshow.
type Headless struct {
	mu     sync.Mutex
	bounds image.Rectangle
	last   image.Image
}

func NewHeadless(width, height int) *Headless {
	return &Headless{bounds: image.Rect(0, 0, width, height)}
}

func (h *Headless) Bounds() image.Rectangle { return h.bounds }

func (h *Headless) Paint(m image.Image) {
	h.mu.Lock()
	h.last = m
	h.mu.Unlock()
}

// Last returns the most recently painted frame, nil if none.
func (h *Headless) Last() image.Image {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.last
}
