// Package stt defines the transcription adapter interface. Transcription is
// batch-oriented: the pipeline hands over one complete utterance clip and
// receives text back, or an empty string when no speech was recognized.
package stt

import "context"

// Clip is a complete captured utterance as raw 16-bit LE PCM.
type Clip struct {
	PCM        []byte
	SampleRate int
	Channels   int
}

// Provider transcribes one clip per call. An empty returned string with a
// nil error is the "no speech recognized" signal. Implementations must
// honour ctx cancellation and deadlines.
type Provider interface {
	Transcribe(ctx context.Context, clip Clip) (string, error)
}
