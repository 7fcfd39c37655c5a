// Package mock provides a scripted audio source for tests.
package mock

import (
	"encoding/binary"
	"sync"
	"time"

	"github.com/kamkardootsian/Cade-K4D3-AI-Droid/pkg/audio"
)

// Compile-time assertion that Source satisfies audio.Source.
var _ audio.Source = (*Source)(nil)

// Source is an in-memory audio source. Tests push frames in and the code
// under test consumes them through the normal Source interface.
type Source struct {
	frames chan audio.Frame

	mu     sync.Mutex
	err    error
	closed bool
}

// New returns a Source with the given channel buffer size.
func New(buffer int) *Source {
	return &Source{frames: make(chan audio.Frame, buffer)}
}

// Push queues a frame for the consumer. Blocks if the buffer is full.
func (s *Source) Push(f audio.Frame) {
	s.frames <- f
}

// SetErr records the error returned by Err after the stream closes.
func (s *Source) SetErr(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

// Frames implements audio.Source.
func (s *Source) Frames() <-chan audio.Frame { return s.frames }

// Err implements audio.Source.
func (s *Source) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Close implements audio.Source. Safe to call more than once.
func (s *Source) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.frames)
	}
	return nil
}

// Frame builds a constant-amplitude mono frame for tests. amplitude is the
// absolute 16-bit sample value, so the frame's RMS equals amplitude exactly.
func Frame(seq uint64, amplitude int16, dur time.Duration, sampleRate int) audio.Frame {
	n := int(float64(sampleRate) * dur.Seconds())
	data := make([]byte, n*2)
	for i := 0; i < n; i++ {
		v := amplitude
		if i%2 == 1 {
			v = -amplitude
		}
		binary.LittleEndian.PutUint16(data[i*2:], uint16(v))
	}
	return audio.Frame{
		Data:       data,
		SampleRate: sampleRate,
		Channels:   1,
		Seq:        seq,
		Timestamp:  time.Now(),
	}
}
