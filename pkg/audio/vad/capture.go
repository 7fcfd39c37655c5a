package vad

import (
	"time"

	"github.com/kamkardootsian/Cade-K4D3-AI-Droid/pkg/audio"
)

const (
	defaultTrailingSilence = 800 * time.Millisecond
	defaultMaxDuration     = 30 * time.Second
)

// Utterance is one captured stretch of speech: every frame from speech onset
// through the trailing silence window, concatenated as raw PCM. It is
// consumed exactly once by the transcription adapter and then discarded.
type Utterance struct {
	// PCM holds the utterance audio as 16-bit LE samples.
	PCM []byte

	// SampleRate and Channels describe the PCM layout.
	SampleRate int
	Channels   int

	// Start is the capture timestamp of the first speech frame.
	Start time.Time

	// Duration is the total buffered audio duration, trailing silence
	// included.
	Duration time.Duration
}

// Event describes what a call to [Capture.Feed] produced.
type Event int

const (
	// EventNone: the frame was absorbed, nothing to report.
	EventNone Event = iota

	// EventStarted: this frame was the speech onset of a new utterance.
	EventStarted

	// EventDone: the utterance ended (trailing silence or hard cutoff).
	EventDone

	// EventAbandoned: no speech arrived within the idle timeout.
	EventAbandoned
)

// CaptureConfig holds the tuning knobs for a [Capture].
type CaptureConfig struct {
	// TrailingSilence is the consecutive-silence duration that ends an
	// utterance after speech was heard. Default: 800ms.
	TrailingSilence time.Duration

	// MaxDuration is the hard cutoff for a single utterance, bounding memory
	// use and backend cost. Default: 30s.
	MaxDuration time.Duration

	// IdleTimeout is how long the capture waits for the first speech frame
	// before giving up. Zero disables the timeout (used while idle, where
	// the wake gate listens indefinitely).
	IdleTimeout time.Duration
}

// Capture buffers frames from speech onset until trailing silence or the
// duration cutoff, emitting one [Utterance] per speech stretch.
//
// A frame handed to Feed is either discarded (leading silence) or becomes
// part of exactly one utterance; emitted buffers are never re-entered into a
// subsequent capture. Not safe for concurrent use; the audio task owns it.
type Capture struct {
	cfg CaptureConfig

	buf        []byte
	sampleRate int
	channels   int
	start      time.Time
	buffered   time.Duration
	silence    time.Duration
	idle       time.Duration
	speaking   bool
}

// NewCapture creates a Capture. Zero-value config fields are replaced with
// defaults (except IdleTimeout, where zero means no timeout).
func NewCapture(cfg CaptureConfig) *Capture {
	if cfg.TrailingSilence <= 0 {
		cfg.TrailingSilence = defaultTrailingSilence
	}
	if cfg.MaxDuration <= 0 {
		cfg.MaxDuration = defaultMaxDuration
	}
	return &Capture{cfg: cfg}
}

// Feed consumes one classified frame. When the utterance completes it is
// returned together with [EventDone]; otherwise the utterance is nil.
func (c *Capture) Feed(frame audio.Frame, class Class) (*Utterance, Event) {
	dur := frame.Duration()

	if !c.speaking {
		if class == Silence {
			// Leading silence is discarded, but counts toward the idle timeout.
			if c.cfg.IdleTimeout > 0 {
				c.idle += dur
				if c.idle >= c.cfg.IdleTimeout {
					c.Reset()
					return nil, EventAbandoned
				}
			}
			return nil, EventNone
		}

		c.speaking = true
		c.start = frame.Timestamp
		c.sampleRate = frame.SampleRate
		c.channels = frame.Channels
		c.buf = append(c.buf, frame.Data...)
		c.buffered += dur
		return nil, EventStarted
	}

	c.buf = append(c.buf, frame.Data...)
	c.buffered += dur

	if class == Silence {
		c.silence += dur
		if c.silence >= c.cfg.TrailingSilence {
			return c.emit(), EventDone
		}
	} else {
		c.silence = 0
	}

	if c.buffered >= c.cfg.MaxDuration {
		return c.emit(), EventDone
	}
	return nil, EventNone
}

// Reset discards all buffered state. Used when capture output must be
// suppressed (e.g., while the assistant is speaking).
func (c *Capture) Reset() {
	c.buf = nil
	c.buffered = 0
	c.silence = 0
	c.idle = 0
	c.speaking = false
}

// emit finalizes the current buffer as an Utterance and resets for the next
// capture. The returned buffer is handed off, never reused.
func (c *Capture) emit() *Utterance {
	u := &Utterance{
		PCM:        c.buf,
		SampleRate: c.sampleRate,
		Channels:   c.channels,
		Start:      c.start,
		Duration:   c.buffered,
	}
	c.buf = nil
	c.Reset()
	return u
}
