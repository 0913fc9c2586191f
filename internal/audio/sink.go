// Package audio abstracts the PCM output device.
package audio

import (
	"errors"
	"fmt"
	"sync"

	"github.com/hajimehoshi/oto"
)

// Sink consumes interleaved little-endian PCM. Open must be called before
// Write; Close drains and releases the device. A Sink is not safe for
// concurrent use; the playback task is the only writer.
type Sink interface {
	Open(sampleRate, channels, bitDepthBytes int) error
	Write(p []byte) (int, error)
	Close() error
}

// otoSink plays PCM through the platform audio device.
type otoSink struct {
	mu     sync.Mutex
	ctx    *oto.Context
	player *oto.Player
	bufLen int
}

// NewSink returns a Sink backed by the platform audio device. bufLen is the
// device buffer size in bytes; zero picks a default suited to WAV streaming.
func NewSink(bufLen int) Sink {
	if bufLen <= 0 {
		bufLen = 8192
	}
	return &otoSink{bufLen: bufLen}
}

func (s *otoSink) Open(sampleRate, channels, bitDepthBytes int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ctx != nil {
		return errors.New("audio: sink already open")
	}
	ctx, err := oto.NewContext(sampleRate, channels, bitDepthBytes, s.bufLen)
	if err != nil {
		return fmt.Errorf("audio: open output: %w", err)
	}
	s.ctx = ctx
	s.player = ctx.NewPlayer()
	return nil
}

func (s *otoSink) Write(p []byte) (int, error) {
	s.mu.Lock()
	player := s.player
	s.mu.Unlock()
	if player == nil {
		return 0, errors.New("audio: sink not open")
	}
	return player.Write(p)
}

func (s *otoSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var first error
	if s.player != nil {
		first = s.player.Close()
		s.player = nil
	}
	if s.ctx != nil {
		if err := s.ctx.Close(); err != nil && first == nil {
			first = err
		}
		s.ctx = nil
	}
	return first
}
