package eye

import "log/slog"

// Compile-time assertion that Log satisfies Eye.
var _ Eye = (*Log)(nil)

// Log is an Eye that only logs mode changes. Used when no renderer is
// configured, and as the console-visible trace of visual state.
type Log struct{}

// SetMode implements Eye.
func (Log) SetMode(m Mode) {
	slog.Debug("eye mode", "mode", m.String())
}
