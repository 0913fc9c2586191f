// Package fileops handles uploads and deletions against storage. Both
// operations suspend the slideshow protocol-wise before touching the bus and
// leave catalog maintenance explicit: upload rebuilds, delete leaves the
// rebuild to the caller.
package fileops

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"photoframe/internal/catalog"
	"photoframe/internal/playback"
	"photoframe/internal/storage"

	"github.com/sirupsen/logrus"
)

// ErrBadName rejects upload names that are empty or attempt path traversal.
var ErrBadName = errors.New("fileops: invalid file name")

// Engine is the slice of the slideshow engine the gateway drives.
type Engine interface {
	Suspend()
	Resume()
	ResetIndex()
}

// Starter launches the post-upload playback job and reports whether one is
// already running.
type Starter interface {
	Start(ctx context.Context) error
	InFlight() bool
}

// ItemResult is the outcome for one name in a delete batch.
type ItemResult struct {
	Name string
	Err  error
}

// BatchResult aggregates per-item outcomes of a delete batch.
type BatchResult struct {
	Items []ItemResult
}

// OK reports whether every item in the batch succeeded.
func (r BatchResult) OK() bool {
	for _, it := range r.Items {
		if it.Err != nil {
			return false
		}
	}
	return true
}

// Gateway mediates storage mutations from the web surface.
type Gateway struct {
	bus       *storage.Bus
	catalog   *catalog.Catalog
	engine    Engine
	player    Starter
	audioName string
	log       *logrus.Entry
}

func NewGateway(bus *storage.Bus, cat *catalog.Catalog, engine Engine, player Starter, audioName string, log *logrus.Entry) *Gateway {
	return &Gateway{bus: bus, catalog: cat, engine: engine, player: player, audioName: audioName, log: log}
}

// CleanName validates an upload name and strips any directory components.
func CleanName(name string) (string, error) {
	base := filepath.Base(strings.TrimSpace(name))
	if base == "" || base == "." || base == ".." || base == string(filepath.Separator) {
		return "", ErrBadName
	}
	return base, nil
}

// Upload suspends the slideshow, writes the stream to storage under the bus
// lock, rebuilds the catalog and rewinds the slideshow to the first image.
// If the fixed audio payload exists on storage, the playback job takes over
// (it resumes the engine when done); otherwise the engine is resumed
// directly. While a playback job is streaming the upload is rejected with
// playback.ErrBusy, never queued.
func (g *Gateway) Upload(ctx context.Context, name string, r io.Reader) error {
	base, err := CleanName(name)
	if err != nil {
		return err
	}

	// a running playback job owns the engine's suspension and has the bus
	// in stream mode; writing or rebuilding now would fail mid-song
	if g.player.InFlight() {
		return playback.ErrBusy
	}

	g.engine.Suspend()

	err = g.bus.With(func(h *storage.Handle) error {
		if !h.Mounted() {
			return storage.ErrNotMounted
		}
		dst := filepath.Join(h.Dir(), base)
		f, err := os.Create(dst)
		if err != nil {
			return fmt.Errorf("fileops: create %s: %w", base, err)
		}
		if _, err := io.Copy(f, r); err != nil {
			f.Close()
			os.Remove(dst)
			return fmt.Errorf("fileops: write %s: %w", base, err)
		}
		return f.Close()
	})
	if err != nil {
		g.engine.Resume()
		return err
	}

	if err := g.catalog.Rebuild(); err != nil {
		g.log.WithError(err).Error("catalog rebuild after upload failed")
	}
	g.engine.ResetIndex()
	g.log.WithField("file", base).Info("upload stored")

	if g.audioExists() {
		if err := g.player.Start(ctx); err != nil {
			g.log.WithError(err).Warn("post-upload playback not started")
			// on ErrBusy a concurrent job owns the resume
			if !errors.Is(err, playback.ErrBusy) {
				g.engine.Resume()
			}
		}
		return nil
	}
	g.engine.Resume()
	return nil
}

// audioExists checks for the fixed audio payload under the bus lock.
func (g *Gateway) audioExists() bool {
	exists := false
	err := g.bus.With(func(h *storage.Handle) error {
		_, err := os.Stat(filepath.Join(h.Dir(), g.audioName))
		exists = err == nil
		return nil
	})
	return err == nil && exists
}

// Delete removes the named entries from storage, one bus acquisition per
// name. Failures are collected per item and do not abort the rest of the
// batch. The catalog is left stale on purpose; callers rebuild before
// trusting indices again.
func (g *Gateway) Delete(names []string) BatchResult {
	var res BatchResult

	if err := g.bus.CheckAndMount(); err != nil {
		for _, n := range names {
			res.Items = append(res.Items, ItemResult{Name: n, Err: err})
		}
		return res
	}

	for _, n := range names {
		base, err := CleanName(n)
		if err != nil {
			res.Items = append(res.Items, ItemResult{Name: n, Err: err})
			continue
		}
		err = g.bus.With(func(h *storage.Handle) error {
			path := filepath.Join(h.Dir(), base)
			if _, err := os.Stat(path); err != nil {
				return fmt.Errorf("fileops: %s: %w", base, err)
			}
			return os.Remove(path)
		})
		if err != nil {
			g.log.WithError(err).WithField("file", base).Warn("delete failed")
		} else {
			g.log.WithField("file", base).Info("deleted")
		}
		res.Items = append(res.Items, ItemResult{Name: base, Err: err})
	}
	return res
}
