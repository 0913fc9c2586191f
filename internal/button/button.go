// Package button reads the physical advance button over GPIO.
package button

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"
)

const (
	edgeWait = 500 * time.Millisecond
	debounce = 200 * time.Millisecond
)

// Listener waits for falling edges on a configured pin and reports each press.
type Listener struct {
	pin     string
	onPress func()
	log     *logrus.Entry
}

// New creates a listener. An empty pin name disables the button entirely,
// which is the normal case on hosts without GPIO.
func New(pin string, onPress func(), log *logrus.Entry) *Listener {
	return &Listener{pin: pin, onPress: onPress, log: log}
}

// Run blocks until ctx is done. GPIO setup failures are logged and Run
// returns; the web interface remains the only advance trigger.
func (l *Listener) Run(ctx context.Context) {
	if l.pin == "" {
		return
	}
	if err := l.setup(ctx); err != nil {
		l.log.WithError(err).Warn("advance button unavailable")
	}
}

func (l *Listener) setup(ctx context.Context) error {
	if _, err := host.Init(); err != nil {
		return fmt.Errorf("button: host init: %w", err)
	}
	p := gpioreg.ByName(l.pin)
	if p == nil {
		return fmt.Errorf("button: no such pin %q", l.pin)
	}
	if err := p.In(gpio.PullUp, gpio.FallingEdge); err != nil {
		return fmt.Errorf("button: configure %s: %w", l.pin, err)
	}
	l.log.WithField("pin", l.pin).Info("advance button enabled")

	last := time.Time{}
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}
		if !p.WaitForEdge(edgeWait) {
			continue
		}
		// crude debounce; the engine latch dedupes the rest
		if time.Since(last) < debounce {
			continue
		}
		last = time.Now()
		l.onPress()
	}
}
