// Package slideshow owns the slideshow state machine: the active index, the
// running/suspended state and the timer- or button-driven advance policy.
//
// All mutation of the shared index and running flag funnels through Advance,
// Suspend and Resume. Consumers that need extended exclusive use of the
// storage bus (audio playback, uploads, deletes) call Suspend first; when
// Suspend returns, no decode is in flight and the bus is free.
package slideshow

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"photoframe/internal/catalog"

	"github.com/sirupsen/logrus"
)

const (
	// DefaultInterval is used when no valid interval is configured.
	DefaultInterval = 10 * time.Second

	defaultTick = 100 * time.Millisecond
)

// Renderer decodes and paints one image.
type Renderer interface {
	Render(name string) error
}

// Notifier is told whenever the displayed frame changes. Delivery is
// best-effort.
type Notifier interface {
	NotifyFrameChanged()
}

// Engine drives the slideshow.
type Engine struct {
	catalog  *catalog.Catalog
	renderer Renderer
	notifier Notifier
	log      *logrus.Entry

	mu       sync.Mutex
	index    int
	running  bool
	interval time.Duration
	baseline time.Time
	current  string

	// renderGate is held for the duration of one decode+paint. Suspend
	// drains it so callers know the storage bus is released.
	renderGate sync.Mutex

	// button latches a physical edge until the next tick evaluates it.
	button atomic.Bool

	tick time.Duration
}

func NewEngine(cat *catalog.Catalog, r Renderer, n Notifier, interval time.Duration, log *logrus.Entry) *Engine {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Engine{
		catalog:  cat,
		renderer: r,
		notifier: n,
		interval: interval,
		log:      log,
		tick:     defaultTick,
	}
}

// Start renders the first frame and puts the engine in the running state.
// An empty catalog leaves the engine idle and reports catalog.ErrEmpty; the
// engine may be started again once images exist.
func (e *Engine) Start() error {
	if e.catalog.Count() == 0 {
		e.mu.Lock()
		e.running = false
		e.mu.Unlock()
		return catalog.ErrEmpty
	}
	e.mu.Lock()
	e.running = true
	e.baseline = time.Now()
	name, _ := e.catalog.NameAt(e.index)
	e.mu.Unlock()
	e.render(name)
	return nil
}

// Run is the main control loop. Each tick evaluates the timer and the latched
// button edge together, so a press and an expiry in the same tick trigger
// exactly one advance. Blocks until ctx is done.
func (e *Engine) Run(ctx context.Context) {
	t := time.NewTicker(e.tick)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			e.step(now)
		}
	}
}

func (e *Engine) step(now time.Time) {
	e.mu.Lock()
	active := e.running && e.catalog.Count() > 0
	due := active && now.Sub(e.baseline) >= e.interval
	e.mu.Unlock()
	if !active {
		return
	}
	// consume the latch together with the timer check
	pressed := e.button.Swap(false)
	if due || pressed {
		e.Advance()
	}
}

// ButtonPress latches a physical button edge. The next tick advances once and
// clears the latch.
func (e *Engine) ButtonPress() {
	e.button.Store(true)
}

// Advance steps to the next image modulo the catalog count and renders it.
// No-op when suspended or when the catalog is empty. The advance timer is
// reset so the new frame gets a full interval.
func (e *Engine) Advance() {
	e.mu.Lock()
	n := e.catalog.Count()
	if !e.running || n == 0 {
		e.mu.Unlock()
		return
	}
	e.index = (e.index + 1) % n
	name, _ := e.catalog.NameAt(e.index)
	e.baseline = time.Now()
	e.mu.Unlock()
	e.render(name)
}

// render performs one decode+paint under the render gate. A decode failure is
// logged and swallowed; the previous frame stays on screen.
func (e *Engine) render(name string) {
	e.renderGate.Lock()
	defer e.renderGate.Unlock()

	e.mu.Lock()
	running := e.running
	e.mu.Unlock()
	if !running {
		return
	}

	if err := e.renderer.Render(name); err != nil {
		e.log.WithError(err).WithField("image", name).Warn("frame skipped")
		return
	}

	e.mu.Lock()
	e.current = name
	e.mu.Unlock()
	e.notifier.NotifyFrameChanged()
}

// Suspend stops the slideshow and waits for any in-flight decode to release
// the storage bus. When Suspend returns, no render is in progress and none
// will start until Resume.
func (e *Engine) Suspend() {
	e.mu.Lock()
	e.running = false
	e.mu.Unlock()

	// drain: an in-flight render holds the gate until its decoder is closed
	e.renderGate.Lock()
	e.renderGate.Unlock()
	e.log.Debug("slideshow suspended")
}

// Resume restarts the slideshow, re-renders the active index and resets the
// advance timer.
func (e *Engine) Resume() {
	e.mu.Lock()
	e.running = true
	e.baseline = time.Now()
	name, ok := e.catalog.NameAt(e.index)
	e.mu.Unlock()
	if ok {
		e.render(name)
	}
	e.log.Debug("slideshow resumed")
}

// ResetIndex rewinds the slideshow to the first image. Callers invoke it only
// while the engine is suspended, typically after an upload rebuilt the
// catalog.
func (e *Engine) ResetIndex() {
	e.mu.Lock()
	e.index = 0
	e.mu.Unlock()
}

// SetInterval updates the advance interval. Non-positive values are ignored.
func (e *Engine) SetInterval(d time.Duration) {
	if d <= 0 {
		return
	}
	e.mu.Lock()
	e.interval = d
	e.mu.Unlock()
}

// Interval returns the configured advance interval.
func (e *Engine) Interval() time.Duration {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.interval
}

// Index returns the active slideshow index.
func (e *Engine) Index() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.index
}

// Running reports whether the slideshow is in the running state.
func (e *Engine) Running() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.running
}

// CurrentImage returns the name of the last successfully rendered frame, or
// "" when nothing has been rendered yet.
func (e *Engine) CurrentImage() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.current
}
