// Package audio provides the microphone frame source and PCM helpers for the
// Cade voice pipeline. Audio flows through the system as fixed-duration
// [Frame] values: captured from the input device, classified by the activity
// detector, and buffered into utterances.
package audio

import "time"

// Frame is a fixed-duration block of 16-bit signed little-endian PCM audio.
// Frames are immutable once produced; a frame is owned by whichever pipeline
// stage is currently processing it and is never retained past that stage
// except inside an in-flight utterance buffer.
type Frame struct {
	// Data holds raw 16-bit LE PCM samples.
	Data []byte

	// SampleRate in Hz (16000 for the default capture configuration).
	SampleRate int

	// Channels is the channel count. Capture is mono (1).
	Channels int

	// Seq is a monotonically increasing sequence number assigned by the
	// source. It survives device restarts so frame ordering is always
	// observable downstream.
	Seq uint64

	// Timestamp marks when the frame was captured.
	Timestamp time.Time
}

// Duration returns the playback duration of the frame.
func (f Frame) Duration() time.Duration {
	if f.SampleRate <= 0 || f.Channels <= 0 {
		return 0
	}
	samples := len(f.Data) / (2 * f.Channels)
	return time.Duration(samples) * time.Second / time.Duration(f.SampleRate)
}

// Source produces a continuous stream of audio frames from an input device.
// The Frames channel is closed when the source stops, either via Close or
// after an unrecoverable device failure; Err reports the failure in the
// latter case.
type Source interface {
	// Frames returns the channel of captured frames.
	Frames() <-chan Frame

	// Err returns the error that terminated the stream, or nil.
	Err() error

	// Close stops capture and releases the device.
	Close() error
}
