// Package mock provides a recording Eye for tests.
package mock

import (
	"sync"

	"github.com/kamkardootsian/Cade-K4D3-AI-Droid/pkg/eye"
)

// Compile-time assertion that Eye satisfies eye.Eye.
var _ eye.Eye = (*Eye)(nil)

// Eye records every mode change.
type Eye struct {
	mu    sync.Mutex
	modes []eye.Mode
}

// SetMode implements eye.Eye.
func (e *Eye) SetMode(m eye.Mode) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.modes = append(e.modes, m)
}

// Modes returns a copy of all recorded mode changes in order.
func (e *Eye) Modes() []eye.Mode {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]eye.Mode, len(e.modes))
	copy(out, e.modes)
	return out
}

// Last returns the most recent mode, or eye.ModeIdle if none was set.
func (e *Eye) Last() eye.Mode {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.modes) == 0 {
		return eye.ModeIdle
	}
	return e.modes[len(e.modes)-1]
}
