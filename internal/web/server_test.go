package web

import (
	"bytes"
	"context"
	"errors"
	"io"
	"mime/multipart"
	nethttp "net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"photoframe/internal/fileops"
	"photoframe/internal/playback"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubEngine struct {
	mu       sync.Mutex
	events   []string
	interval time.Duration
	running  bool
}

func (e *stubEngine) add(ev string) {
	e.mu.Lock()
	e.events = append(e.events, ev)
	e.mu.Unlock()
}

func (e *stubEngine) Suspend() { e.add("suspend") }
func (e *stubEngine) Resume()  { e.add("resume") }
func (e *stubEngine) SetInterval(d time.Duration) {
	e.mu.Lock()
	e.interval = d
	e.mu.Unlock()
}
func (e *stubEngine) Interval() time.Duration {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.interval
}
func (e *stubEngine) Running() bool { return e.running }

func (e *stubEngine) list() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]string, len(e.events))
	copy(out, e.events)
	return out
}

type stubCatalog struct {
	names    []string
	rebuilds int
}

func (c *stubCatalog) Count() int      { return len(c.names) }
func (c *stubCatalog) Names() []string { return c.names }
func (c *stubCatalog) Rebuild() error  { c.rebuilds++; return nil }

type stubGateway struct {
	uploaded  string
	uploadErr error
	deleted   []string
	deleteRes fileops.BatchResult
}

func (g *stubGateway) Upload(ctx context.Context, name string, r io.Reader) error {
	if g.uploadErr != nil {
		return g.uploadErr
	}
	g.uploaded = name
	io.Copy(io.Discard, r)
	return nil
}

func (g *stubGateway) Delete(names []string) fileops.BatchResult {
	g.deleted = names
	return g.deleteRes
}

type stubPlayer struct {
	err      error
	started  int
	inflight bool
}

func (p *stubPlayer) Start(ctx context.Context) error {
	if p.err != nil {
		return p.err
	}
	p.started++
	return nil
}

func (p *stubPlayer) InFlight() bool { return p.inflight }

type stubSaver struct {
	saved time.Duration
	err   error
}

func (s *stubSaver) SetInterval(d time.Duration) error {
	s.saved = d
	return s.err
}

type stubLiveView struct{ viewers int }

func (l *stubLiveView) ServeEvents(w nethttp.ResponseWriter, r *nethttp.Request) {
	w.Header().Set("Content-Type", "text/event-stream")
}
func (l *stubLiveView) ServeFrame(w nethttp.ResponseWriter, r *nethttp.Request) {
	w.Header().Set("Content-Type", "image/jpeg")
	w.Write([]byte("frame bytes"))
}
func (l *stubLiveView) Viewers() int { return l.viewers }

type fixture struct {
	engine  *stubEngine
	catalog *stubCatalog
	gateway *stubGateway
	player  *stubPlayer
	saver   *stubSaver
	handler nethttp.Handler
}

func newFixture(names ...string) *fixture {
	l := logrus.New()
	l.SetLevel(logrus.PanicLevel)
	fx := &fixture{
		engine:  &stubEngine{interval: 10 * time.Second, running: true},
		catalog: &stubCatalog{names: names},
		gateway: &stubGateway{},
		player:  &stubPlayer{},
		saver:   &stubSaver{},
	}
	fx.handler = NewServer(fx.engine, fx.catalog, fx.gateway, fx.player, fx.saver, &stubLiveView{viewers: 2}, logrus.NewEntry(l))
	return fx
}

func (fx *fixture) do(req *nethttp.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	fx.handler.ServeHTTP(rec, req)
	return rec
}

func TestIndexPage(t *testing.T) {
	fx := newFixture("a.jpg", "b.jpg")
	rec := fx.do(httptest.NewRequest(nethttp.MethodGet, "/", nil))

	assert.Equal(t, nethttp.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "2") // image count
	assert.Contains(t, body, "/slideshow")
	assert.Contains(t, body, "/upload_file")
}

func TestIndexUnknownPathIs404(t *testing.T) {
	fx := newFixture()
	rec := fx.do(httptest.NewRequest(nethttp.MethodGet, "/nope", nil))
	assert.Equal(t, nethttp.StatusNotFound, rec.Code)
}

func TestHealth(t *testing.T) {
	fx := newFixture()
	rec := fx.do(httptest.NewRequest(nethttp.MethodGet, "/health", nil))
	assert.Equal(t, nethttp.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestSetSpeedUpdatesEngineAndPersists(t *testing.T) {
	fx := newFixture()
	form := url.Values{"speed": {"25"}}
	req := httptest.NewRequest(nethttp.MethodPost, "/set-speed", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	rec := fx.do(req)
	assert.Equal(t, nethttp.StatusOK, rec.Code)
	assert.Equal(t, 25*time.Second, fx.engine.Interval())
	assert.Equal(t, 25*time.Second, fx.saver.saved)
}

func TestSetSpeedRejectsBadInput(t *testing.T) {
	fx := newFixture()
	for _, speed := range []string{"", "abc", "0", "-5"} {
		form := url.Values{"speed": {speed}}
		req := httptest.NewRequest(nethttp.MethodPost, "/set-speed", strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		rec := fx.do(req)
		assert.Equal(t, nethttp.StatusBadRequest, rec.Code, "speed %q", speed)
	}
	assert.Equal(t, 10*time.Second, fx.engine.Interval(), "interval unchanged")
}

func TestSetSpeedRequiresPost(t *testing.T) {
	fx := newFixture()
	rec := fx.do(httptest.NewRequest(nethttp.MethodGet, "/set-speed", nil))
	assert.Equal(t, nethttp.StatusMethodNotAllowed, rec.Code)
}

func TestPlayMusicAccepted(t *testing.T) {
	fx := newFixture()
	rec := fx.do(httptest.NewRequest(nethttp.MethodGet, "/play-music", nil))
	assert.Equal(t, nethttp.StatusAccepted, rec.Code)
	assert.Equal(t, 1, fx.player.started)
}

func TestPlayMusicBusyIsConflict(t *testing.T) {
	fx := newFixture()
	fx.player.err = playback.ErrBusy
	rec := fx.do(httptest.NewRequest(nethttp.MethodGet, "/play-music", nil))
	assert.Equal(t, nethttp.StatusConflict, rec.Code)
}

func multipartBody(t *testing.T, field, filename, content string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = fw.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func TestUploadFile(t *testing.T) {
	fx := newFixture()
	body, ctype := multipartBody(t, "file", "photo.jpg", "jpeg bytes")
	req := httptest.NewRequest(nethttp.MethodPost, "/upload_file", body)
	req.Header.Set("Content-Type", ctype)

	rec := fx.do(req)
	assert.Equal(t, nethttp.StatusOK, rec.Code)
	assert.Equal(t, "photo.jpg", fx.gateway.uploaded)
}

func TestUploadMissingFileField(t *testing.T) {
	fx := newFixture()
	body, ctype := multipartBody(t, "wrong", "photo.jpg", "x")
	req := httptest.NewRequest(nethttp.MethodPost, "/upload_file", body)
	req.Header.Set("Content-Type", ctype)

	rec := fx.do(req)
	assert.Equal(t, nethttp.StatusBadRequest, rec.Code)
}

func TestUploadBadName(t *testing.T) {
	fx := newFixture()
	fx.gateway.uploadErr = fileops.ErrBadName
	body, ctype := multipartBody(t, "file", "..", "x")
	req := httptest.NewRequest(nethttp.MethodPost, "/upload_file", body)
	req.Header.Set("Content-Type", ctype)

	rec := fx.do(req)
	assert.Equal(t, nethttp.StatusBadRequest, rec.Code)
}

func TestUploadGetServesForm(t *testing.T) {
	fx := newFixture()
	rec := fx.do(httptest.NewRequest(nethttp.MethodGet, "/upload_file", nil))
	assert.Equal(t, nethttp.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "multipart/form-data")
}

func TestDeleteFormListsImages(t *testing.T) {
	fx := newFixture("a.jpg", "b.jpg")
	rec := fx.do(httptest.NewRequest(nethttp.MethodGet, "/delete", nil))
	assert.Equal(t, nethttp.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "a.jpg")
	assert.Contains(t, rec.Body.String(), "b.jpg")
}

func TestDeleteFilesSuspendsDeletesRebuildsResumes(t *testing.T) {
	fx := newFixture("a.jpg", "b.jpg")
	fx.gateway.deleteRes = fileops.BatchResult{Items: []fileops.ItemResult{
		{Name: "a.jpg"},
		{Name: "b.jpg", Err: errors.New("in use")},
	}}

	form := url.Values{"file": {"a.jpg", "b.jpg"}}
	req := httptest.NewRequest(nethttp.MethodPost, "/delete_files", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	rec := fx.do(req)
	assert.Equal(t, nethttp.StatusOK, rec.Code)
	assert.Equal(t, []string{"a.jpg", "b.jpg"}, fx.gateway.deleted)
	assert.Equal(t, []string{"suspend", "resume"}, fx.engine.list())
	assert.Equal(t, 1, fx.catalog.rebuilds, "catalog rebuilt before resume")

	body := rec.Body.String()
	assert.Contains(t, body, "a.jpg")
	assert.Contains(t, body, "b.jpg")
}

func TestDeleteFilesRejectedDuringPlayback(t *testing.T) {
	fx := newFixture("a.jpg")
	fx.player.inflight = true

	form := url.Values{"file": {"a.jpg"}}
	req := httptest.NewRequest(nethttp.MethodPost, "/delete_files", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	rec := fx.do(req)
	assert.Equal(t, nethttp.StatusConflict, rec.Code)
	assert.Nil(t, fx.gateway.deleted, "no deletion while the job owns the bus")
	assert.Empty(t, fx.engine.list(), "engine untouched while the job owns it")
	assert.Zero(t, fx.catalog.rebuilds)
}

func TestUploadBusyIsConflict(t *testing.T) {
	fx := newFixture()
	fx.gateway.uploadErr = playback.ErrBusy
	body, ctype := multipartBody(t, "file", "photo.jpg", "x")
	req := httptest.NewRequest(nethttp.MethodPost, "/upload_file", body)
	req.Header.Set("Content-Type", ctype)

	rec := fx.do(req)
	assert.Equal(t, nethttp.StatusConflict, rec.Code)
}

func TestDeleteFilesNoSelection(t *testing.T) {
	fx := newFixture("a.jpg")
	req := httptest.NewRequest(nethttp.MethodPost, "/delete_files", strings.NewReader(""))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	rec := fx.do(req)
	assert.Equal(t, nethttp.StatusBadRequest, rec.Code)
	assert.Empty(t, fx.engine.list(), "nothing to do, engine untouched")
}

func TestSlideshowPageEmbedsLiveView(t *testing.T) {
	fx := newFixture()
	rec := fx.do(httptest.NewRequest(nethttp.MethodGet, "/slideshow", nil))
	assert.Equal(t, nethttp.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "/events")
	assert.Contains(t, body, "/current_image")
}

func TestAboutPage(t *testing.T) {
	fx := newFixture("a.jpg", "b.jpg")
	rec := fx.do(httptest.NewRequest(nethttp.MethodGet, "/about", nil))
	assert.Equal(t, nethttp.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "About PhotoFrame")
	assert.Contains(t, body, "2 images")
}

func TestCurrentImageRoute(t *testing.T) {
	fx := newFixture()
	rec := fx.do(httptest.NewRequest(nethttp.MethodGet, "/current_image", nil))
	assert.Equal(t, "image/jpeg", rec.Header().Get("Content-Type"))
	assert.Equal(t, "frame bytes", rec.Body.String())
}
