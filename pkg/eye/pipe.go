package eye

import (
	"log/slog"
	"os"
	"sync"
	"syscall"
	"time"
)

// Compile-time assertion that Pipe satisfies Eye.
var _ Eye = (*Pipe)(nil)

// Pipe drives an eye renderer process listening on a named pipe. Each mode
// change is written as a single newline-terminated mode name.
//
// Writes happen on a dedicated goroutine so a stalled or absent renderer
// never blocks the state machine; pending changes are coalesced to the most
// recent one.
type Pipe struct {
	path  string
	modes chan Mode

	closeOnce sync.Once
}

// NewPipe creates a Pipe writing to the FIFO at path. The renderer may
// attach and detach at any time; mode changes sent while no reader exists
// are dropped.
func NewPipe(path string) *Pipe {
	p := &Pipe{
		path:  path,
		modes: make(chan Mode, 1),
	}
	go p.writeLoop()
	return p
}

// SetMode implements Eye. Never blocks: if a previous change is still
// pending it is replaced by this one.
func (p *Pipe) SetMode(m Mode) {
	for {
		select {
		case p.modes <- m:
			return
		default:
			select {
			case <-p.modes:
			default:
			}
		}
	}
}

// Close stops the write loop. Safe to call more than once; SetMode must not
// be called after Close.
func (p *Pipe) Close() error {
	p.closeOnce.Do(func() { close(p.modes) })
	return nil
}

func (p *Pipe) writeLoop() {
	for m := range p.modes {
		// O_NONBLOCK makes the open fail with ENXIO when no reader is
		// attached instead of blocking the loop forever.
		f, err := os.OpenFile(p.path, os.O_WRONLY|syscall.O_NONBLOCK, 0)
		if err != nil {
			slog.Debug("eye renderer not attached", "path", p.path, "mode", m)
			continue
		}
		_ = f.SetWriteDeadline(time.Now().Add(200 * time.Millisecond))
		if _, err := f.WriteString(m.String() + "\n"); err != nil {
			slog.Debug("eye write failed", "error", err)
		}
		f.Close()
	}
}
