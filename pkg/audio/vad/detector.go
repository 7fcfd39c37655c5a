// Package vad implements energy-based voice activity detection and utterance
// capture for the Cade audio pipeline.
//
// The [Detector] maintains an exponentially-weighted moving average of frame
// RMS energy as its noise floor estimate and classifies each frame as silence
// or speech. The [Capture] buffers speech frames into a single [Utterance],
// ending on trailing silence or a hard duration cutoff.
package vad

import (
	"github.com/kamkardootsian/Cade-K4D3-AI-Droid/pkg/audio"
)

// Class is the activity classification of a single frame.
type Class int

const (
	// Silence means the frame's energy is at or below the adaptive threshold.
	Silence Class = iota

	// Speech means the frame's energy exceeds the adaptive threshold.
	Speech
)

// String returns the lowercase name of the class.
func (c Class) String() string {
	if c == Speech {
		return "speech"
	}
	return "silence"
}

const (
	defaultThresholdMultiplier = 2.5
	defaultFloorAlpha          = 0.05
	defaultInitialFloor        = 200.0
	defaultMinFloor            = 40.0
)

// DetectorConfig holds the tuning knobs for a [Detector]. All values are
// operator-tunable; the defaults suit a USB microphone at 16 kHz.
type DetectorConfig struct {
	// ThresholdMultiplier scales the noise floor to form the speech
	// threshold: a frame is speech when rms > floor*multiplier. Default: 2.5.
	ThresholdMultiplier float64

	// FloorAlpha is the EWMA weight given to a new silence frame when
	// updating the noise floor. Default: 0.05.
	FloorAlpha float64

	// InitialFloor seeds the noise floor estimate before any frame has been
	// observed. Default: 200 (PCM units).
	InitialFloor float64

	// MinFloor is the lower bound the floor may decay to, preventing the
	// threshold from collapsing to zero in a dead-quiet room. Default: 40.
	MinFloor float64
}

// Detector classifies frames as silence or speech against an adaptive noise
// floor. It is not safe for concurrent use; the audio task owns it.
type Detector struct {
	cfg   DetectorConfig
	floor float64
}

// NewDetector creates a Detector. Zero-value config fields are replaced with
// defaults.
func NewDetector(cfg DetectorConfig) *Detector {
	if cfg.ThresholdMultiplier <= 0 {
		cfg.ThresholdMultiplier = defaultThresholdMultiplier
	}
	if cfg.FloorAlpha <= 0 || cfg.FloorAlpha >= 1 {
		cfg.FloorAlpha = defaultFloorAlpha
	}
	if cfg.InitialFloor <= 0 {
		cfg.InitialFloor = defaultInitialFloor
	}
	if cfg.MinFloor <= 0 {
		cfg.MinFloor = defaultMinFloor
	}
	return &Detector{cfg: cfg, floor: cfg.InitialFloor}
}

// Classify returns the activity class of the frame and updates the noise
// floor estimate.
//
// The floor adapts only on silence frames. A speech frame never moves the
// floor; otherwise sustained speech would drag the estimate up toward voice
// level and soft speech would start classifying as silence.
func (d *Detector) Classify(frame audio.Frame) Class {
	rms := audio.RMS(frame.Data)

	if rms > d.floor*d.cfg.ThresholdMultiplier {
		return Speech
	}

	d.floor = (1-d.cfg.FloorAlpha)*d.floor + d.cfg.FloorAlpha*rms
	if d.floor < d.cfg.MinFloor {
		d.floor = d.cfg.MinFloor
	}
	return Silence
}

// NoiseFloor returns the current noise floor estimate in PCM units.
func (d *Detector) NoiseFloor() float64 { return d.floor }
