// Package tts defines the speech synthesis interface: text in, a playable
// WAV asset out. Playback itself is the player's job; synthesis never
// touches the audio device.
package tts

import "context"

// Provider synthesizes speech. Synthesize returns a complete WAV asset for
// the given text and voice; voice may be empty to use the provider default.
// Implementations must honour ctx cancellation and deadlines.
type Provider interface {
	Synthesize(ctx context.Context, text, voice string) ([]byte, error)
}
