// Package eye defines the visual feedback interface: a small enumerated set
// of animation modes pushed to the LCD eye renderer. Mode changes are
// fire-and-forget; the renderer never acknowledges.
package eye

// Mode is one of the eye animation states.
type Mode int

const (
	ModeIdle Mode = iota
	ModeWake
	ModeListening
	ModeThinking
	ModeSpeaking
	ModeSleep
)

// String returns the lowercase wire name of the mode, matching what the
// renderer process expects on its control channel.
func (m Mode) String() string {
	switch m {
	case ModeIdle:
		return "idle"
	case ModeWake:
		return "wake"
	case ModeListening:
		return "listening"
	case ModeThinking:
		return "thinking"
	case ModeSpeaking:
		return "speaking"
	case ModeSleep:
		return "sleep"
	default:
		return "unknown"
	}
}

// Eye receives animation mode changes. Implementations must not block the
// caller; a slow or absent renderer drops mode changes silently.
type Eye interface {
	SetMode(Mode)
}
