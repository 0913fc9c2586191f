// Package frame is the composition root: it wires storage, catalog,
// renderer, slideshow engine, playback, live view and the web surface
// together and runs them.
package frame

import (
	"context"
	"fmt"
	nethttp "net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"fyne.io/fyne/v2"
	fyneapp "fyne.io/fyne/v2/app"
	"github.com/sirupsen/logrus"

	"photoframe/internal/audio"
	"photoframe/internal/button"
	"photoframe/internal/catalog"
	"photoframe/internal/config"
	"photoframe/internal/display"
	"photoframe/internal/fileops"
	"photoframe/internal/liveview"
	"photoframe/internal/playback"
	"photoframe/internal/render"
	"photoframe/internal/settings"
	"photoframe/internal/slideshow"
	"photoframe/internal/storage"
	"photoframe/internal/watch"
	"photoframe/internal/web"
)

const (
	mountRetry   = 5 * time.Second
	sweepEvery   = 30 * time.Second
	playbackPoll = 100 * time.Millisecond
)

// frameSource adapts the engine for the live view, which is constructed
// before the engine exists.
type frameSource struct {
	engine *slideshow.Engine
}

func (f *frameSource) CurrentImage() string {
	if f.engine == nil {
		return ""
	}
	return f.engine.CurrentImage()
}

// storageRefresh rebuilds the catalog after an out-of-band storage change.
// A streaming playback job owns the engine's suspension and keeps the bus in
// stream mode for its whole duration, so the refresh waits for the job to
// finish before suspending; resuming or rebuilding under it would cut the
// song short and fail the directory scan.
func storageRefresh(ctx context.Context, player *playback.Player, engine *slideshow.Engine, cat *catalog.Catalog, log *logrus.Entry) {
	for player.InFlight() {
		select {
		case <-ctx.Done():
			return
		case <-time.After(playbackPoll):
		}
	}
	engine.Suspend()
	if err := cat.Rebuild(); err != nil {
		log.WithError(err).Error("catalog rebuild failed")
	}
	if cat.Count() > 0 {
		engine.Resume()
	}
}

// Run wires and runs the photo frame until the process is signalled.
func Run(cfg *config.Config) error {
	level, err := logrus.ParseLevel(cfg.Log.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	clog := func(name string) *logrus.Entry { return logrus.WithField("component", name) }

	if err := os.MkdirAll(filepath.Dir(cfg.Settings.Path), 0750); err != nil {
		return fmt.Errorf("frame: settings dir: %w", err)
	}
	store, err := settings.Open(cfg.Settings.Path)
	if err != nil {
		return err
	}
	defer store.Close()

	interval := time.Duration(cfg.Slideshow.IntervalSeconds) * time.Second
	if d, ok, err := store.Interval(); err == nil && ok {
		interval = d
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	bus := storage.NewBus(cfg.Storage.Dir, clog("storage"))
	cat := catalog.New(bus, clog("catalog"))

	src := &frameSource{}
	hub := liveview.NewHub(bus, src, clog("liveview"))

	var surface render.Surface
	var win *display.Window
	var app fyne.App
	if cfg.Display.Headless {
		surface = display.NewHeadless(cfg.Display.Width, cfg.Display.Height)
	} else {
		app = fyneapp.New()
		win = display.NewWindow(app, cfg.Display.Width, cfg.Display.Height)
		surface = win
	}

	renderer := render.New(bus, surface, clog("render"))
	engine := slideshow.NewEngine(cat, renderer, hub, interval, clog("slideshow"))
	src.engine = engine

	sink := audio.NewSink(0)
	player := playback.NewPlayer(bus, engine, sink, cfg.Storage.AudioFile, clog("playback"))
	gateway := fileops.NewGateway(bus, cat, engine, player, cfg.Storage.AudioFile, clog("fileops"))

	handler := web.NewServer(engine, cat, gateway, player, store, hub, clog("web"))
	httpSrv := &nethttp.Server{Addr: cfg.Web.Listen, Handler: handler}

	// storage may be absent at boot; keep trying until it appears, then
	// start the slideshow
	go func() {
		for {
			if err := bus.CheckAndMount(); err == nil {
				break
			} else {
				clog("storage").WithError(err).Error("storage mount failed, retrying")
			}
			select {
			case <-ctx.Done():
				return
			case <-time.After(mountRetry):
			}
		}
		if err := cat.Rebuild(); err != nil {
			clog("catalog").WithError(err).Error("initial catalog scan failed")
		}
		if err := engine.Start(); err != nil {
			clog("slideshow").WithError(err).Warn("slideshow idle")
		}
		engine.Run(ctx)
	}()

	refresh := func() { storageRefresh(ctx, player, engine, cat, clog("catalog")) }
	go watch.New(cfg.Storage.Dir, refresh, clog("watch")).Run(ctx)

	go button.New(cfg.Button.Pin, engine.ButtonPress, clog("button")).Run(ctx)

	go func() {
		t := time.NewTicker(sweepEvery)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				hub.Sweep()
			}
		}
	}()

	go func() {
		clog("web").WithField("listen", cfg.Web.Listen).Info("control interface up")
		if err := httpSrv.ListenAndServe(); err != nil && err != nethttp.ErrServerClosed {
			clog("web").WithError(err).Error("http server stopped")
			stop()
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = httpSrv.Shutdown(shutdownCtx)
	}()

	if app != nil {
		go func() {
			<-ctx.Done()
			fyne.Do(app.Quit)
		}()
		win.Show()
		app.Run() // blocks on the Fyne main loop
		stop()
		return nil
	}

	<-ctx.Done()
	return nil
}
