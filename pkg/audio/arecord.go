package audio

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strconv"
	"sync"
	"time"
)

const (
	defaultSampleRate    = 16000
	defaultFrameDuration = 200 * time.Millisecond
	defaultMaxRestarts   = 5
	defaultBackoff       = 500 * time.Millisecond
	maxBackoff           = 8 * time.Second
)

// SourceConfig configures an [ALSASource].
type SourceConfig struct {
	// Device is the ALSA capture device (e.g., "plughw:1,0").
	// Empty means the system default.
	Device string

	// SampleRate in Hz. Default: 16000.
	SampleRate int

	// FrameDuration is the duration of each emitted frame. Default: 200ms.
	FrameDuration time.Duration

	// MaxRestarts caps how many times a dropped capture process is restarted
	// before the source gives up. Default: 5.
	MaxRestarts int

	// RestartBackoff is the initial delay before restarting a dropped capture
	// process. Doubled per consecutive failure, capped at 8s. Default: 500ms.
	RestartBackoff time.Duration
}

// Compile-time assertion that ALSASource satisfies Source.
var _ Source = (*ALSASource)(nil)

// ALSASource captures mono 16-bit PCM from an ALSA device by running arecord
// and slicing its raw output into fixed-duration frames.
//
// A dropped capture process (device busy, USB mic unplugged) is restarted
// with capped exponential backoff. Only repeated, persistent failure closes
// the frame stream; the terminating error is then available via Err.
type ALSASource struct {
	cfg    SourceConfig
	frames chan Frame

	done chan struct{}
	once sync.Once
	wg   sync.WaitGroup

	mu  sync.Mutex
	cmd *exec.Cmd
	err error
}

// NewALSASource starts capturing from the configured device. It returns an
// error if the arecord binary cannot be found; that is the fatal
// initialization failure class, everything after this point is retried.
func NewALSASource(cfg SourceConfig) (*ALSASource, error) {
	if _, err := exec.LookPath("arecord"); err != nil {
		return nil, fmt.Errorf("audio: arecord not found in PATH: %w", err)
	}
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = defaultSampleRate
	}
	if cfg.FrameDuration <= 0 {
		cfg.FrameDuration = defaultFrameDuration
	}
	if cfg.MaxRestarts <= 0 {
		cfg.MaxRestarts = defaultMaxRestarts
	}
	if cfg.RestartBackoff <= 0 {
		cfg.RestartBackoff = defaultBackoff
	}

	s := &ALSASource{
		cfg:    cfg,
		frames: make(chan Frame, 8),
		done:   make(chan struct{}),
	}
	s.wg.Add(1)
	go s.captureLoop()
	return s, nil
}

// Frames implements Source.
func (s *ALSASource) Frames() <-chan Frame { return s.frames }

// Err implements Source. It returns the error that terminated capture, or
// nil if the source is still running or was closed normally.
func (s *ALSASource) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Close implements Source. It stops the capture process and waits for the
// frame channel to be closed. Safe to call more than once.
func (s *ALSASource) Close() error {
	s.once.Do(func() {
		close(s.done)
		s.mu.Lock()
		if s.cmd != nil && s.cmd.Process != nil {
			_ = s.cmd.Process.Kill()
		}
		s.mu.Unlock()
		s.wg.Wait()
	})
	return nil
}

// captureLoop runs arecord, restarting it with backoff after transient
// failures. Frame sequence numbers survive restarts.
func (s *ALSASource) captureLoop() {
	defer s.wg.Done()
	defer close(s.frames)

	var seq uint64
	restarts := 0
	backoff := s.cfg.RestartBackoff

	for {
		started := time.Now()
		err := s.runOnce(&seq)

		select {
		case <-s.done:
			return
		default:
		}

		// A capture run that survived a while resets the failure budget.
		if time.Since(started) > 30*time.Second {
			restarts = 0
			backoff = s.cfg.RestartBackoff
		}

		if restarts >= s.cfg.MaxRestarts {
			s.mu.Lock()
			s.err = fmt.Errorf("audio: capture failed after %d restarts: %w", restarts, err)
			s.mu.Unlock()
			slog.Error("audio capture giving up", "restarts", restarts, "error", err)
			return
		}

		restarts++
		slog.Warn("audio capture dropped, restarting",
			"attempt", restarts, "backoff", backoff, "error", err)

		select {
		case <-s.done:
			return
		case <-time.After(backoff):
		}
		backoff *= 2
		if backoff > maxBackoff {
			backoff = maxBackoff
		}
	}
}

// runOnce starts a single arecord process and slices its stdout into frames
// until the process exits or the source is closed.
func (s *ALSASource) runOnce(seq *uint64) error {
	args := []string{
		"-q",
		"-f", "S16_LE",
		"-r", strconv.Itoa(s.cfg.SampleRate),
		"-c", "1",
		"-t", "raw",
	}
	if s.cfg.Device != "" {
		args = append(args, "-D", s.cfg.Device)
	}

	cmd := exec.Command("arecord", args...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("audio: stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("audio: start arecord: %w", err)
	}

	s.mu.Lock()
	s.cmd = cmd
	s.mu.Unlock()
	defer func() {
		_ = cmd.Wait()
		s.mu.Lock()
		s.cmd = nil
		s.mu.Unlock()
	}()

	frameBytes := int(s.cfg.FrameDuration.Seconds() * float64(s.cfg.SampleRate) * 2)
	if frameBytes <= 0 {
		frameBytes = 6400 // 200 ms at 16 kHz mono
	}

	for {
		buf := make([]byte, frameBytes)
		if _, err := io.ReadFull(stdout, buf); err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				return fmt.Errorf("audio: capture stream ended: %w", err)
			}
			return fmt.Errorf("audio: read capture stream: %w", err)
		}

		frame := Frame{
			Data:       buf,
			SampleRate: s.cfg.SampleRate,
			Channels:   1,
			Seq:        *seq,
			Timestamp:  time.Now(),
		}
		*seq++

		select {
		case s.frames <- frame:
		case <-s.done:
			return nil
		}
	}
}
