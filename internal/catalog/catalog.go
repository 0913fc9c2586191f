// Package catalog enumerates the eligible images on storage and maps
// slideshow ordinals to file names.
package catalog

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"photoframe/internal/storage"

	"github.com/sirupsen/logrus"
)

// ErrEmpty is reported when the catalog holds no eligible images.
var ErrEmpty = errors.New("catalog: no images on storage")

// IsImage reports whether a file name has a supported still-image extension.
func IsImage(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".jpg", ".jpeg":
		return true
	default:
		return false
	}
}

// Catalog is the ordered list of image names on storage. Ordinal indices are
// stable only between rebuilds; a rebuild is required after any upload or
// delete before indices can be trusted again.
type Catalog struct {
	bus *storage.Bus
	log *logrus.Entry

	mu    sync.Mutex
	names []string
}

// New creates an empty catalog over the given bus. Call Rebuild to populate.
func New(bus *storage.Bus, log *logrus.Entry) *Catalog {
	return &Catalog{bus: bus, log: log}
}

// Rebuild re-enumerates the storage root under the bus lock and replaces the
// ordinal→name mapping. Enumeration is non-recursive and follows directory
// order.
func (c *Catalog) Rebuild() error {
	var names []string
	err := c.bus.With(func(h *storage.Handle) error {
		if err := h.Require(storage.ModeCatalog); err != nil {
			return err
		}
		entries, err := os.ReadDir(h.Dir())
		if err != nil {
			return fmt.Errorf("catalog: read storage root: %w", err)
		}
		for _, e := range entries {
			if e.IsDir() || !IsImage(e.Name()) {
				continue
			}
			names = append(names, e.Name())
		}
		return nil
	})
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.names = names
	c.mu.Unlock()
	c.log.WithField("count", len(names)).Info("catalog rebuilt")
	return nil
}

// Count returns the number of eligible images.
func (c *Catalog) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.names)
}

// NameAt returns the file name for the given ordinal. Out-of-range indices
// wrap modulo the current count rather than failing; ok is false only when
// the catalog is empty.
func (c *Catalog) NameAt(i int) (name string, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := len(c.names)
	if n == 0 {
		return "", false
	}
	i %= n
	if i < 0 {
		i += n
	}
	return c.names[i], true
}

// Names returns a copy of the current enumeration order.
func (c *Catalog) Names() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.names))
	copy(out, c.names)
	return out
}
