// Package storage serializes access to the shared storage bus.
//
// Every consumer of the storage directory (catalog enumeration, frame decode,
// audio streaming, upload, delete) goes through one Bus. The bus is a binary
// mutual-exclusion gate: acquisition is scoped, so the lock is released on
// every exit path and a leaked holder cannot occur by construction. There is
// deliberately no timeout on acquisition; a stalled holder blocks all other
// consumers until it finishes.
package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"
)

// Mode is the configuration of the storage bus. The catalog mode is used for
// directory enumeration and frame decoding; the stream mode is the
// reconfiguration required for audio playback. Switching modes tears down the
// current directory handle and re-establishes it.
type Mode int

const (
	ModeCatalog Mode = iota
	ModeStream
)

func (m Mode) String() string {
	switch m {
	case ModeCatalog:
		return "catalog"
	case ModeStream:
		return "stream"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

var (
	// ErrNotMounted is returned when an operation needs the storage
	// directory but no successful mount has happened yet.
	ErrNotMounted = errors.New("storage: not mounted")

	// ErrWrongMode is returned when an operation requires a bus mode other
	// than the current one.
	ErrWrongMode = errors.New("storage: wrong bus mode")
)

// Bus guards the storage directory. The zero value is not usable; construct
// with NewBus.
type Bus struct {
	mu      sync.Mutex
	dir     string
	mounted bool
	mode    Mode
	holders atomic.Int32
	log     *logrus.Entry
}

// NewBus creates a bus over the given storage root. The bus starts unmounted;
// call CheckAndMount before use.
func NewBus(dir string, log *logrus.Entry) *Bus {
	return &Bus{dir: dir, mode: ModeCatalog, log: log}
}

// Handle is scoped access to the storage bus, valid only for the duration of
// the With callback or until the release function from Acquire runs.
type Handle struct {
	b        *Bus
	released bool
}

// Dir returns the storage root directory.
func (h *Handle) Dir() string { return h.b.dir }

// Mode returns the current bus mode.
func (h *Handle) Mode() Mode { return h.b.mode }

// Mounted reports whether the storage directory has been mounted.
func (h *Handle) Mounted() bool { return h.b.mounted }

// Require fails unless the bus is mounted and in the given mode.
func (h *Handle) Require(m Mode) error {
	if !h.b.mounted {
		return ErrNotMounted
	}
	if h.b.mode != m {
		return fmt.Errorf("%w: have %s, need %s", ErrWrongMode, h.b.mode, m)
	}
	return nil
}

// Remount tears down the current directory handle and re-establishes it in
// the requested mode. Must be invoked while the handle is held; the switch is
// momentary and does not outlive the enclosing acquisition.
func (h *Handle) Remount(m Mode) error {
	h.b.mounted = false
	info, err := os.Stat(h.b.dir)
	if err != nil {
		return fmt.Errorf("storage: remount %s: %w", m, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("storage: remount %s: %s is not a directory", m, h.b.dir)
	}
	h.b.mounted = true
	h.b.mode = m
	h.b.log.WithField("mode", m.String()).Debug("storage bus remounted")
	return nil
}

// With runs fn with exclusive ownership of the storage bus. The lock is
// released when fn returns, on success and on error alike.
func (b *Bus) With(fn func(h *Handle) error) error {
	h, release := b.Acquire()
	defer release()
	return fn(h)
}

// Acquire blocks until exclusive ownership of the bus is obtained and returns
// a handle plus its release function. Intended for pull-based streaming
// responses whose lifetime is not a single function scope; all other callers
// should prefer With. Calling release more than once is harmless.
func (b *Bus) Acquire() (*Handle, func()) {
	b.mu.Lock()
	b.holders.Add(1)
	h := &Handle{b: b}
	release := func() {
		if h.released {
			return
		}
		h.released = true
		b.holders.Add(-1)
		b.mu.Unlock()
	}
	return h, release
}

// Holders returns the number of current lock holders. Used by tests to check
// the at-most-one invariant.
func (b *Bus) Holders() int32 { return b.holders.Load() }

// CheckAndMount attempts to mount the storage directory if it is not already
// mounted. Safe to call repeatedly; a failed mount leaves the bus unmounted
// and may be retried.
func (b *Bus) CheckAndMount() error {
	return b.With(func(h *Handle) error {
		if b.mounted {
			return nil
		}
		info, err := os.Stat(b.dir)
		if err != nil {
			return fmt.Errorf("storage: mount: %w", err)
		}
		if !info.IsDir() {
			return fmt.Errorf("storage: mount: %s is not a directory", b.dir)
		}
		b.mounted = true
		b.mode = ModeCatalog
		b.log.WithField("dir", b.dir).Info("storage mounted")
		return nil
	})
}

// Mounted reports the mount state without taking ownership.
func (b *Bus) Mounted() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.mounted
}

// Resolve joins a storage-relative name onto the storage root. It does not
// touch the bus; callers streaming file contents outside the lock use it to
// compute paths up front.
func (b *Bus) Resolve(name string) string {
	return filepath.Join(b.dir, filepath.Base(name))
}
