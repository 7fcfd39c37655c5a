package brain_test

import (
	"testing"

	"github.com/kamkardootsian/Cade-K4D3-AI-Droid/internal/brain"
)

func TestParseDirective(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		reply string
		want  brain.Directive
	}{
		{
			name:  "chat frame",
			reply: "MODE:CHAT\nHello there.",
			want:  brain.Directive{Mode: brain.ModeChat, Speech: "Hello there."},
		},
		{
			name:  "chat frame multiline",
			reply: "MODE:CHAT\nFirst line.\nSecond line.",
			want:  brain.Directive{Mode: brain.ModeChat, Speech: "First line.\nSecond line."},
		},
		{
			name:  "act frame",
			reply: "MODE:ACT\nACTION:SEE\nARGS:{}",
			want:  brain.Directive{Mode: brain.ModeAct, Action: "SEE", Args: "{}"},
		},
		{
			name:  "act frame with args",
			reply: "MODE:ACT\nACTION:SET_VOLUME\nARGS:{\"level\": 40}",
			want:  brain.Directive{Mode: brain.ModeAct, Action: "SET_VOLUME", Args: "{\"level\": 40}"},
		},
		{
			name:  "lowercase mode still parses",
			reply: "mode:act\naction:see\nargs:{}",
			want:  brain.Directive{Mode: brain.ModeAct, Action: "see", Args: "{}"},
		},
		{
			name:  "bare text falls back to chat",
			reply: "Just a plain sentence.",
			want:  brain.Directive{Mode: brain.ModeChat, Speech: "Just a plain sentence."},
		},
		{
			name:  "empty reply",
			reply: "",
			want:  brain.Directive{Mode: brain.ModeChat},
		},
		{
			name:  "act without action degrades to chat",
			reply: "MODE:ACT\nARGS:{}",
			want:  brain.Directive{Mode: brain.ModeChat, Speech: "MODE:ACT\nARGS:{}"},
		},
		{
			name:  "unknown mode degrades to chat",
			reply: "MODE:DANCE\nspin around",
			want:  brain.Directive{Mode: brain.ModeChat, Speech: "MODE:DANCE\nspin around"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := brain.ParseDirective(tt.reply); got != tt.want {
				t.Errorf("ParseDirective(%q) = %+v, want %+v", tt.reply, got, tt.want)
			}
		})
	}
}
