package brain

import "strings"

// Mode is the model's declared intent for one reply.
type Mode int

const (
	// ModeChat means the reply text should be spoken as-is.
	ModeChat Mode = iota

	// ModeAct means the reply names an action to run before answering.
	ModeAct
)

// Directive is the parsed form of a model reply. The model is prompted to
// answer in one of two frames:
//
//	MODE:CHAT
//	<text to speak>
//
//	MODE:ACT
//	ACTION:<NAME>
//	ARGS:<JSON>
//
// Anything that does not follow the contract degrades to chat so the user
// always hears something.
type Directive struct {
	Mode   Mode
	Speech string
	Action string
	Args   string
}

// ParseDirective interprets a raw model reply. It never fails; malformed
// input becomes a chat directive carrying the raw text.
func ParseDirective(reply string) Directive {
	lines := make([]string, 0, 8)
	for _, l := range strings.Split(reply, "\n") {
		if l = strings.TrimSpace(l); l != "" {
			lines = append(lines, l)
		}
	}
	if len(lines) == 0 {
		return Directive{Mode: ModeChat}
	}

	first := strings.ToUpper(lines[0])
	if !strings.HasPrefix(first, "MODE:") {
		return Directive{Mode: ModeChat, Speech: strings.TrimSpace(reply)}
	}

	if strings.HasPrefix(first, "MODE:CHAT") {
		return Directive{Mode: ModeChat, Speech: strings.Join(lines[1:], "\n")}
	}

	if strings.HasPrefix(first, "MODE:ACT") {
		d := Directive{Mode: ModeAct}
		for _, line := range lines[1:] {
			upper := strings.ToUpper(line)
			switch {
			case strings.HasPrefix(upper, "ACTION:"):
				d.Action = strings.TrimSpace(line[len("ACTION:"):])
			case strings.HasPrefix(upper, "ARGS:"):
				d.Args = strings.TrimSpace(line[len("ARGS:"):])
			}
		}
		if d.Action == "" {
			// An ACT frame without an action cannot be executed.
			return Directive{Mode: ModeChat, Speech: strings.TrimSpace(reply)}
		}
		return d
	}

	// Unknown mode token.
	return Directive{Mode: ModeChat, Speech: strings.TrimSpace(reply)}
}
