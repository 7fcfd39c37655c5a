// Package action routes the model's ACT directives to registered handlers.
// A handler is a named function that takes a raw argument string and
// produces text for the model's follow-up turn. Failures never propagate as
// errors to the caller; they become failure [Result] values the model can
// relay to the user.
package action

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/kamkardootsian/Cade-K4D3-AI-Droid/internal/observe"
)

const defaultTimeout = 10 * time.Second

// Result is the outcome of one dispatched action. Output is always suitable
// for feeding back to the model, including on failure.
type Result struct {
	OK     bool
	Output string
}

// Handler is one registered action. Run receives the raw ARGS payload from
// the directive, usually JSON but never guaranteed to be.
type Handler struct {
	Name        string
	Description string
	Run         func(ctx context.Context, args string) (string, error)
}

// Dispatcher holds the action registry. Registration happens during startup;
// Dispatch may then be called concurrently.
type Dispatcher struct {
	timeout time.Duration

	mu       sync.RWMutex
	handlers map[string]Handler
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithTimeout sets the per-action execution deadline.
func WithTimeout(d time.Duration) Option {
	return func(dp *Dispatcher) {
		if d > 0 {
			dp.timeout = d
		}
	}
}

// NewDispatcher creates an empty Dispatcher.
func NewDispatcher(opts ...Option) *Dispatcher {
	d := &Dispatcher{
		timeout:  defaultTimeout,
		handlers: make(map[string]Handler),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Register adds a handler. Names are case-insensitive and must be unique.
func (d *Dispatcher) Register(h Handler) error {
	name := strings.ToUpper(strings.TrimSpace(h.Name))
	if name == "" {
		return fmt.Errorf("action: handler name is required")
	}
	if h.Run == nil {
		return fmt.Errorf("action %s: Run is required", name)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if _, exists := d.handlers[name]; exists {
		return fmt.Errorf("action %s: already registered", name)
	}
	h.Name = name
	d.handlers[name] = h
	return nil
}

// Handlers returns all registered handlers sorted by name, for the startup
// summary and the system prompt's capability list.
func (d *Dispatcher) Handlers() []Handler {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]Handler, 0, len(d.handlers))
	for _, h := range d.handlers {
		out = append(out, h)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Dispatch runs the named action and always returns a usable Result. An
// unknown name, a handler error, a panic, and a deadline each produce a
// failure Result whose Output explains what happened.
func (d *Dispatcher) Dispatch(ctx context.Context, name, args string) Result {
	name = strings.ToUpper(strings.TrimSpace(name))
	if name == "" {
		return Result{OK: false, Output: "No action name was provided."}
	}

	d.mu.RLock()
	h, ok := d.handlers[name]
	d.mu.RUnlock()
	if !ok {
		slog.Warn("unknown action requested", "action", name)
		observe.DefaultMetrics().RecordActionCall(ctx, name, "unknown")
		return Result{OK: false, Output: fmt.Sprintf("I don't know how to perform the action %q yet.", name)}
	}

	runCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	start := time.Now()
	type outcome struct {
		output string
		err    error
	}
	ch := make(chan outcome, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- outcome{err: fmt.Errorf("action %s panicked: %v", name, r)}
			}
		}()
		output, err := h.Run(runCtx, args)
		ch <- outcome{output: output, err: err}
	}()

	var res Result
	var status string
	select {
	case <-runCtx.Done():
		status = "timeout"
		res = Result{OK: false, Output: fmt.Sprintf("The action %s timed out.", name)}
	case o := <-ch:
		if o.err != nil {
			status = "error"
			slog.Warn("action failed", "action", name, "error", o.err)
			res = Result{OK: false, Output: fmt.Sprintf("The action %s failed: %v", name, o.err)}
		} else {
			status = "ok"
			res = Result{OK: true, Output: o.output}
		}
	}

	elapsed := time.Since(start)
	m := observe.DefaultMetrics()
	m.ActionDuration.Record(ctx, elapsed.Seconds())
	m.RecordActionCall(ctx, name, status)
	slog.Info("action dispatched", "action", name, "status", status, "duration", elapsed)
	return res
}
