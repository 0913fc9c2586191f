// Package web is the HTTP control surface. It translates requests into core
// operations and renders minimal inline pages; the core components never see
// HTML.
package web

import (
	"context"
	"errors"
	"html/template"
	"io"
	nethttp "net/http"
	"strconv"
	"time"

	"photoframe/internal/fileops"
	"photoframe/internal/playback"

	"github.com/sirupsen/logrus"
)

// Engine is the slice of the slideshow engine the web layer drives.
type Engine interface {
	Suspend()
	Resume()
	SetInterval(d time.Duration)
	Interval() time.Duration
	Running() bool
}

// Catalog lists and refreshes the image enumeration.
type Catalog interface {
	Count() int
	Names() []string
	Rebuild() error
}

// Gateway performs storage mutations.
type Gateway interface {
	Upload(ctx context.Context, name string, r io.Reader) error
	Delete(names []string) fileops.BatchResult
}

// Player starts the background audio job and reports whether one is running.
type Player interface {
	Start(ctx context.Context) error
	InFlight() bool
}

// Saver persists the interval setting.
type Saver interface {
	SetInterval(d time.Duration) error
}

// LiveView serves the event stream and the current frame.
type LiveView interface {
	ServeEvents(w nethttp.ResponseWriter, r *nethttp.Request)
	ServeFrame(w nethttp.ResponseWriter, r *nethttp.Request)
	Viewers() int
}

type server struct {
	engine   Engine
	catalog  Catalog
	gateway  Gateway
	player   Player
	saver    Saver
	liveview LiveView
	log      *logrus.Entry
	tpl      *template.Template
}

// NewServer wires the control routes onto a fresh mux.
func NewServer(engine Engine, cat Catalog, gw Gateway, player Player, saver Saver, lv LiveView, log *logrus.Entry) nethttp.Handler {
	s := &server{
		engine:   engine,
		catalog:  cat,
		gateway:  gw,
		player:   player,
		saver:    saver,
		liveview: lv,
		log:      log,
		tpl:      template.Must(template.New("pages").Parse(pagesTpl)),
	}

	mux := nethttp.NewServeMux()
	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/speed", s.handleSpeedForm)
	mux.HandleFunc("/set-speed", s.handleSetSpeed)
	mux.HandleFunc("/play-music", s.handlePlayMusic)
	mux.HandleFunc("/upload_file", s.handleUpload)
	mux.HandleFunc("/delete", s.handleDeleteForm)
	mux.HandleFunc("/delete_files", s.handleDeleteFiles)
	mux.HandleFunc("/slideshow", s.handleSlideshowPage)
	mux.HandleFunc("/about", s.handleAbout)
	mux.HandleFunc("/current_image", s.liveview.ServeFrame)
	mux.HandleFunc("/events", s.liveview.ServeEvents)
	mux.HandleFunc("/health", s.handleHealth)
	return mux
}

func (s *server) render(w nethttp.ResponseWriter, page string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.tpl.ExecuteTemplate(w, page, data); err != nil {
		s.log.WithError(err).Error("template render failed")
	}
}

func httpError(w nethttp.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(code)
	_, _ = w.Write([]byte(msg))
}

func (s *server) handleIndex(w nethttp.ResponseWriter, r *nethttp.Request) {
	if r.URL.Path != "/" {
		httpError(w, nethttp.StatusNotFound, "404 - page not found")
		return
	}
	s.render(w, "index", struct {
		Count           int
		Running         bool
		IntervalSeconds int
		Viewers         int
	}{
		Count:           s.catalog.Count(),
		Running:         s.engine.Running(),
		IntervalSeconds: int(s.engine.Interval() / time.Second),
		Viewers:         s.liveview.Viewers(),
	})
}

func (s *server) handleHealth(w nethttp.ResponseWriter, _ *nethttp.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok"))
}

func (s *server) handleSpeedForm(w nethttp.ResponseWriter, _ *nethttp.Request) {
	s.render(w, "speed", struct{ IntervalSeconds int }{int(s.engine.Interval() / time.Second)})
}

func (s *server) handleSetSpeed(w nethttp.ResponseWriter, r *nethttp.Request) {
	if r.Method != nethttp.MethodPost {
		httpError(w, nethttp.StatusMethodNotAllowed, "POST required")
		return
	}
	secs, err := strconv.Atoi(r.PostFormValue("speed"))
	if err != nil || secs < 1 {
		httpError(w, nethttp.StatusBadRequest, "speed must be a positive number of seconds")
		return
	}
	d := time.Duration(secs) * time.Second
	s.engine.SetInterval(d)
	if err := s.saver.SetInterval(d); err != nil {
		s.log.WithError(err).Warn("interval not persisted")
	}
	s.log.WithField("seconds", secs).Info("slideshow speed updated")
	s.render(w, "message", pageMessage{Title: "Speed Updated", Body: "Slideshow speed updated successfully.", Back: "/speed"})
}

func (s *server) handlePlayMusic(w nethttp.ResponseWriter, r *nethttp.Request) {
	err := s.player.Start(context.Background())
	if errors.Is(err, playback.ErrBusy) {
		httpError(w, nethttp.StatusConflict, "playback already in progress")
		return
	}
	if err != nil {
		httpError(w, nethttp.StatusInternalServerError, "could not start playback")
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(nethttp.StatusAccepted)
	if err := s.tpl.ExecuteTemplate(w, "message", pageMessage{Title: "Playing Music", Body: "Now playing the audio payload.", Back: "/"}); err != nil {
		s.log.WithError(err).Error("template render failed")
	}
}

func (s *server) handleUpload(w nethttp.ResponseWriter, r *nethttp.Request) {
	if r.Method == nethttp.MethodGet {
		s.render(w, "upload", nil)
		return
	}
	if r.Method != nethttp.MethodPost {
		httpError(w, nethttp.StatusMethodNotAllowed, "GET or POST required")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		httpError(w, nethttp.StatusBadRequest, "missing file field")
		return
	}
	defer file.Close()

	if err := s.gateway.Upload(r.Context(), header.Filename, file); err != nil {
		if errors.Is(err, fileops.ErrBadName) {
			httpError(w, nethttp.StatusBadRequest, "invalid file name")
			return
		}
		if errors.Is(err, playback.ErrBusy) {
			httpError(w, nethttp.StatusConflict, "storage is busy with audio playback")
			return
		}
		s.log.WithError(err).Error("upload failed")
		httpError(w, nethttp.StatusInternalServerError, "upload failed")
		return
	}
	s.render(w, "message", pageMessage{Title: "Upload Successful", Body: "File uploaded successfully.", Back: "/upload_file"})
}

func (s *server) handleDeleteForm(w nethttp.ResponseWriter, _ *nethttp.Request) {
	s.render(w, "delete", struct{ Names []string }{s.catalog.Names()})
}

func (s *server) handleDeleteFiles(w nethttp.ResponseWriter, r *nethttp.Request) {
	if r.Method != nethttp.MethodPost {
		httpError(w, nethttp.StatusMethodNotAllowed, "POST required")
		return
	}
	if err := r.ParseForm(); err != nil {
		httpError(w, nethttp.StatusBadRequest, "bad form")
		return
	}
	names := r.PostForm["file"]
	if len(names) == 0 {
		httpError(w, nethttp.StatusBadRequest, "no files selected")
		return
	}
	// a streaming playback job owns the engine's suspension and the bus
	// mode; resuming or rebuilding under it would cut the song short
	if s.player.InFlight() {
		httpError(w, nethttp.StatusConflict, "storage is busy with audio playback")
		return
	}

	// the engine stays suspended for the whole batch, then the catalog is
	// rebuilt so indices can be trusted again
	s.engine.Suspend()
	res := s.gateway.Delete(names)
	if err := s.catalog.Rebuild(); err != nil {
		s.log.WithError(err).Error("catalog rebuild after delete failed")
	}
	s.engine.Resume()

	type item struct {
		Name string
		OK   bool
	}
	var items []item
	for _, it := range res.Items {
		items = append(items, item{Name: it.Name, OK: it.Err == nil})
	}
	s.render(w, "deleted", struct {
		AllOK bool
		Items []item
	}{AllOK: res.OK(), Items: items})
}

func (s *server) handleSlideshowPage(w nethttp.ResponseWriter, _ *nethttp.Request) {
	s.render(w, "slideshow", nil)
}

func (s *server) handleAbout(w nethttp.ResponseWriter, _ *nethttp.Request) {
	s.render(w, "about", struct{ Count int }{s.catalog.Count()})
}

type pageMessage struct {
	Title string
	Body  string
	Back  string
}
