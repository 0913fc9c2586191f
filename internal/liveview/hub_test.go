package liveview

import (
	"bufio"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"photoframe/internal/storage"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedFrame struct{ name string }

func (f *fixedFrame) CurrentImage() string { return f.name }

func testLog() *logrus.Entry {
	l := logrus.New()
	l.SetLevel(logrus.PanicLevel)
	return logrus.NewEntry(l)
}

func newHub(t *testing.T, dir string, current CurrentFrame) (*Hub, *storage.Bus) {
	t.Helper()
	bus := storage.NewBus(dir, testLog())
	require.NoError(t, bus.CheckAndMount())
	return NewHub(bus, current, testLog()), bus
}

func TestNotifyReachesEverySubscriber(t *testing.T) {
	h, _ := newHub(t, t.TempDir(), &fixedFrame{})

	_, ch1 := h.Subscribe()
	_, ch2 := h.Subscribe()
	assert.Equal(t, 2, h.Viewers())

	h.NotifyFrameChanged()
	select {
	case <-ch1:
	default:
		t.Fatal("first subscriber missed the signal")
	}
	select {
	case <-ch2:
	default:
		t.Fatal("second subscriber missed the signal")
	}
}

func TestNotifyCoalescesPendingSignals(t *testing.T) {
	h, _ := newHub(t, t.TempDir(), &fixedFrame{})
	_, ch := h.Subscribe()

	h.NotifyFrameChanged()
	h.NotifyFrameChanged()
	h.NotifyFrameChanged()

	<-ch
	select {
	case <-ch:
		t.Fatal("signals must coalesce to one pending entry")
	default:
	}
}

func TestUnsubscribeAndSweep(t *testing.T) {
	h, _ := newHub(t, t.TempDir(), &fixedFrame{})
	id, _ := h.Subscribe()
	h.Subscribe()

	h.Unsubscribe(id)
	assert.Equal(t, 1, h.Viewers())

	h.Sweep()
	assert.Equal(t, 1, h.Viewers())

	// sweeping an already-clean set and unknown ids are harmless
	h.Unsubscribe("no-such-id")
	h.Sweep()
}

func TestServeFrameNoFrameYet(t *testing.T) {
	h, _ := newHub(t, t.TempDir(), &fixedFrame{})

	rec := httptest.NewRecorder()
	h.ServeFrame(rec, httptest.NewRequest(http.MethodGet, "/current_image", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServeFrameStreamsBytesAndReleasesBus(t *testing.T) {
	dir := t.TempDir()
	payload := strings.Repeat("j", 100*1024) // several chunks
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.jpg"), []byte(payload), 0o644))

	h, bus := newHub(t, dir, &fixedFrame{name: "a.jpg"})

	rec := httptest.NewRecorder()
	h.ServeFrame(rec, httptest.NewRequest(http.MethodGet, "/current_image", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/jpeg", rec.Header().Get("Content-Type"))
	assert.Equal(t, payload, rec.Body.String())
	assert.Equal(t, int32(0), bus.Holders(), "bus released after the terminal chunk")
}

func TestServeFrameMissingFile(t *testing.T) {
	h, bus := newHub(t, t.TempDir(), &fixedFrame{name: "gone.jpg"})

	rec := httptest.NewRecorder()
	h.ServeFrame(rec, httptest.NewRequest(http.MethodGet, "/current_image", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, int32(0), bus.Holders())
}

func TestServeEventsDeliversUpdates(t *testing.T) {
	h, _ := newHub(t, t.TempDir(), &fixedFrame{})

	srv := httptest.NewServer(http.HandlerFunc(h.ServeEvents))
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	require.Eventually(t, func() bool { return h.Viewers() == 1 }, time.Second, time.Millisecond)
	h.NotifyFrameChanged()

	reader := bufio.NewReader(resp.Body)
	deadline := time.After(2 * time.Second)
	got := make(chan string, 1)
	go func() {
		for {
			line, err := reader.ReadString('\n')
			if err != nil {
				return
			}
			if strings.HasPrefix(line, "event:") {
				got <- strings.TrimSpace(line)
				return
			}
		}
	}()
	select {
	case line := <-got:
		assert.Equal(t, "event: update", line)
	case <-deadline:
		t.Fatal("no update event received")
	}

	resp.Body.Close()
	require.Eventually(t, func() bool {
		h.Sweep()
		return h.Viewers() == 0
	}, 2*time.Second, 10*time.Millisecond, "disconnect must unsubscribe the viewer")
}
