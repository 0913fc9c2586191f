// Package liveview mirrors the displayed frame to remote viewers. A hub fans
// out frame-changed signals over server-sent events and streams the current
// frame's bytes on demand. Delivery is best-effort and unordered: a viewer
// that misses a signal shows a stale frame until the next one.
package liveview

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"photoframe/internal/storage"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	frameChunk = 32 * 1024
	keepalive  = 15 * time.Second
)

// CurrentFrame names the last successfully rendered image, "" if none.
type CurrentFrame interface {
	CurrentImage() string
}

type subscriber struct {
	ch     chan struct{}
	closed bool
}

// Hub tracks connected viewers.
type Hub struct {
	bus     *storage.Bus
	current CurrentFrame
	log     *logrus.Entry

	mu   sync.Mutex
	subs map[string]*subscriber
}

func NewHub(bus *storage.Bus, current CurrentFrame, log *logrus.Entry) *Hub {
	return &Hub{bus: bus, current: current, log: log, subs: make(map[string]*subscriber)}
}

// Subscribe registers a viewer and returns its id and signal channel. The
// channel carries at most one pending signal; coalescing is fine because the
// signal only means "refetch the current frame".
func (h *Hub) Subscribe() (string, <-chan struct{}) {
	id := uuid.NewString()
	sub := &subscriber{ch: make(chan struct{}, 1)}
	h.mu.Lock()
	h.subs[id] = sub
	n := len(h.subs)
	h.mu.Unlock()
	h.log.WithFields(logrus.Fields{"id": id, "viewers": n}).Debug("viewer connected")
	return id, sub.ch
}

// Unsubscribe marks a viewer disconnected. The entry itself is dropped by
// the next Sweep. Safe to call for ids already removed.
func (h *Hub) Unsubscribe(id string) {
	h.mu.Lock()
	if sub, ok := h.subs[id]; ok {
		sub.closed = true
	}
	h.mu.Unlock()
}

// NotifyFrameChanged broadcasts an update signal to every viewer. Sends never
// block: a viewer with a signal already pending is skipped.
func (h *Hub) NotifyFrameChanged() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, sub := range h.subs {
		if sub.closed {
			continue
		}
		select {
		case sub.ch <- struct{}{}:
		default:
		}
	}
}

// Sweep drops viewers marked closed. Called periodically from the main wiring
// so slow disconnect paths cannot grow the set unboundedly.
func (h *Hub) Sweep() {
	h.mu.Lock()
	for id, sub := range h.subs {
		if sub.closed {
			delete(h.subs, id)
		}
	}
	h.mu.Unlock()
}

// Viewers returns the number of connected subscribers.
func (h *Hub) Viewers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := 0
	for _, sub := range h.subs {
		if !sub.closed {
			n++
		}
	}
	return n
}

// ServeEvents is the SSE endpoint. Each frame change is delivered as an
// "update" event; keepalive comments detect dead connections so the entry is
// unsubscribed promptly.
func (h *Hub) ServeEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	id, ch := h.Subscribe()
	defer h.Unsubscribe(id)

	flusher.Flush()
	ka := time.NewTicker(keepalive)
	defer ka.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-ch:
			if _, err := fmt.Fprint(w, "event: update\ndata: frame\n\n"); err != nil {
				return
			}
			flusher.Flush()
		case <-ka.C:
			if _, err := fmt.Fprint(w, ": keepalive\n\n"); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

// ServeFrame streams the bytes of the current frame in bounded chunks. The
// storage bus is held for the duration of the stream. The deferred release
// covers the terminal chunk and client abort alike, so a disconnecting viewer
// can never leave the bus held.
func (h *Hub) ServeFrame(w http.ResponseWriter, r *http.Request) {
	name := h.current.CurrentImage()
	if name == "" {
		http.Error(w, "no frame rendered yet", http.StatusNotFound)
		return
	}

	handle, release := h.bus.Acquire()
	defer release()

	f, err := os.Open(filepath.Join(handle.Dir(), filepath.Base(name)))
	if err != nil {
		http.Error(w, "frame not found", http.StatusNotFound)
		return
	}
	defer f.Close()

	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Content-Disposition", "inline; filename="+filepath.Base(name))
	w.Header().Set("Cache-Control", "no-store")

	buf := make([]byte, frameChunk)
	for {
		select {
		case <-r.Context().Done():
			return
		default:
		}
		n, err := f.Read(buf)
		if n > 0 {
			if _, werr := w.Write(buf[:n]); werr != nil {
				return
			}
			if fl, ok := w.(http.Flusher); ok {
				fl.Flush()
			}
		}
		if err == io.EOF {
			return
		}
		if err != nil {
			h.log.WithError(err).Warn("frame stream aborted")
			return
		}
	}
}
