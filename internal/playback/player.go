// Package playback runs the background audio job: suspend the slideshow,
// reconfigure the storage bus for streaming, play the fixed WAV payload to
// completion, restore the bus and resume the slideshow.
package playback

import (
	"context"
	"errors"
	"os"
	"sync/atomic"
	"time"

	"photoframe/internal/audio"
	"photoframe/internal/storage"

	"github.com/gopxl/beep/v2/wav"
	"github.com/sirupsen/logrus"
)

// ErrBusy is returned when a playback job is already in flight. Jobs are
// single-flight: a second request is rejected, never queued.
var ErrBusy = errors.New("playback: already in flight")

const chunkSamples = 512

// Suspender is the slideshow engine's suspend/resume protocol.
type Suspender interface {
	Suspend()
	Resume()
}

// Player starts playback jobs. The audio payload lives at a fixed,
// well-known path on storage; its absence is a skip, not an error.
type Player struct {
	bus      *storage.Bus
	engine   Suspender
	sink     audio.Sink
	fileName string
	log      *logrus.Entry

	inflight atomic.Bool
}

func NewPlayer(bus *storage.Bus, engine Suspender, sink audio.Sink, fileName string, log *logrus.Entry) *Player {
	return &Player{bus: bus, engine: engine, sink: sink, fileName: fileName, log: log}
}

// InFlight reports whether a job is currently running.
func (p *Player) InFlight() bool { return p.inflight.Load() }

// Start launches the playback job in the background so the caller (an HTTP
// handler, typically) can respond immediately. Returns ErrBusy if a job is
// already in flight.
func (p *Player) Start(ctx context.Context) error {
	if !p.inflight.CompareAndSwap(false, true) {
		return ErrBusy
	}
	go func() {
		defer p.inflight.Store(false)
		p.run(ctx)
	}()
	return nil
}

// run executes the full job. Whatever happens mid-stream, the bus restore and
// the engine resume are attempted so a playback error can never leave the
// slideshow permanently suspended.
func (p *Player) run(ctx context.Context) {
	p.engine.Suspend()
	defer p.engine.Resume()

	if err := p.remount(storage.ModeStream); err != nil {
		p.log.WithError(err).Error("bus reconfiguration for playback failed")
		return
	}
	defer func() {
		if err := p.remount(storage.ModeCatalog); err != nil {
			p.log.WithError(err).Error("bus restore after playback failed")
		}
	}()

	p.stream(ctx)
}

// remount switches the bus mode under a momentary lock acquisition. The lock
// is not held across the whole playback so other consumers are not starved
// for the duration of a song.
func (p *Player) remount(m storage.Mode) error {
	return p.bus.With(func(h *storage.Handle) error {
		return h.Remount(m)
	})
}

// stream decodes the WAV payload and pushes PCM to the sink chunk by chunk,
// yielding between chunks. Decode or device failures are logged only.
func (p *Player) stream(ctx context.Context) {
	path := p.bus.Resolve(p.fileName)
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			p.log.WithField("file", p.fileName).Info("audio payload absent, skipping playback")
		} else {
			p.log.WithError(err).Error("open audio payload")
		}
		return
	}
	defer f.Close()

	streamer, format, err := wav.Decode(f)
	if err != nil {
		p.log.WithError(err).Error("decode audio payload")
		return
	}
	defer streamer.Close()

	if err := p.sink.Open(int(format.SampleRate), format.NumChannels, format.Precision); err != nil {
		p.log.WithError(err).Error("open audio sink")
		return
	}
	defer p.sink.Close()

	p.log.WithField("file", p.fileName).Info("playback started")

	samples := make([][2]float64, chunkSamples)
	buf := make([]byte, chunkSamples*format.Width())
	for {
		select {
		case <-ctx.Done():
			p.log.Info("playback cancelled")
			return
		default:
		}

		n, ok := streamer.Stream(samples)
		if n > 0 {
			w := 0
			for _, s := range samples[:n] {
				w += format.EncodeSigned(buf[w:], s)
			}
			if _, err := p.sink.Write(buf[:w]); err != nil {
				p.log.WithError(err).Error("audio sink write failed")
				return
			}
		}
		if !ok {
			if err := streamer.Err(); err != nil {
				p.log.WithError(err).Error("audio stream failed")
			} else {
				p.log.Info("playback finished")
			}
			return
		}

		// yield between chunks; the device buffer provides the pacing
		time.Sleep(time.Millisecond)
	}
}
