// Package watch observes the storage root for out-of-band changes (images
// copied in over the network or from another process) and triggers a catalog
// refresh.
package watch

import (
	"context"
	"time"

	"photoframe/internal/catalog"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
)

const debounce = 500 * time.Millisecond

// Watcher debounces filesystem events into catalog refreshes.
type Watcher struct {
	dir      string
	onChange func()
	log      *logrus.Entry
}

// New creates a watcher over dir. onChange runs after a quiet period follows
// a burst of relevant events; it is never invoked concurrently with itself.
func New(dir string, onChange func(), log *logrus.Entry) *Watcher {
	return &Watcher{dir: dir, onChange: onChange, log: log}
}

// Run blocks until ctx is done. A watcher setup failure is logged and Run
// returns; the frame keeps working without live refresh.
func (w *Watcher) Run(ctx context.Context) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		w.log.WithError(err).Warn("storage watcher unavailable")
		return
	}
	defer fw.Close()

	if err := fw.Add(w.dir); err != nil {
		w.log.WithError(err).Warn("storage watcher could not add dir")
		return
	}
	w.log.WithField("dir", w.dir).Info("watching storage for changes")

	var timer *time.Timer
	var fire <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-fw.Events:
			if !ok {
				return
			}
			if !relevant(ev) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(debounce)
				fire = timer.C
			} else {
				timer.Reset(debounce)
			}
		case err, ok := <-fw.Errors:
			if !ok {
				return
			}
			w.log.WithError(err).Warn("storage watcher error")
		case <-fire:
			timer = nil
			fire = nil
			w.onChange()
		}
	}
}

// relevant filters to events that can change the catalog: image files being
// created, removed or renamed.
func relevant(ev fsnotify.Event) bool {
	if !ev.Op.Has(fsnotify.Create) && !ev.Op.Has(fsnotify.Remove) && !ev.Op.Has(fsnotify.Rename) {
		return false
	}
	return catalog.IsImage(ev.Name)
}
