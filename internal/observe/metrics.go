// Package observe provides the application's observability plumbing:
// OpenTelemetry metrics, tracing helpers, and HTTP middleware.
//
// Metrics go through the OTel Metrics API and are surfaced to Prometheus via
// the exporter bridge installed by [InitProvider]. A package-level default
// [Metrics] instance ([DefaultMetrics]) exists for convenience; tests should
// build their own via [NewMetrics] with a private [metric.MeterProvider].
package observe

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope for all assistant metrics.
const meterName = "github.com/kamkardootsian/Cade-K4D3-AI-Droid"

// Metrics holds every metric instrument the assistant records. The OTel
// instrument types are safe for concurrent use.
type Metrics struct {
	// TranscriptionDuration tracks speech-to-text latency.
	TranscriptionDuration metric.Float64Histogram

	// BackendDuration tracks language-model inference latency.
	BackendDuration metric.Float64Histogram

	// SynthesisDuration tracks text-to-speech latency.
	SynthesisDuration metric.Float64Histogram

	// ActionDuration tracks action handler execution latency.
	ActionDuration metric.Float64Histogram

	// HTTPRequestDuration tracks console endpoint latency. Attributes:
	//   method, path.
	HTTPRequestDuration metric.Float64Histogram

	// WakeMatches counts utterances that passed the wake gate.
	WakeMatches metric.Int64Counter

	// StateTransitions counts session state changes. Attributes: from, to.
	StateTransitions metric.Int64Counter

	// DroppedEvents counts utterance events discarded because the session
	// was busy.
	DroppedEvents metric.Int64Counter

	// ActionCalls counts dispatched actions. Attributes: action, status.
	ActionCalls metric.Int64Counter

	// ProviderErrors counts provider failures. Attributes: provider, kind.
	ProviderErrors metric.Int64Counter

	// ActiveSessions tracks whether a conversation is live. It only ever
	// holds 0 or 1 but an UpDownCounter keeps the wiring uniform.
	ActiveSessions metric.Int64UpDownCounter
}

// latencyBuckets are histogram boundaries in seconds, tuned for the voice
// pipeline where interactive stages should land under a few seconds.
var latencyBuckets = []float64{
	0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10,
}

// NewMetrics creates all instruments on the given provider.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.TranscriptionDuration, err = m.Float64Histogram("cade.stt.duration",
		metric.WithDescription("Latency of speech-to-text transcription."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.BackendDuration, err = m.Float64Histogram("cade.llm.duration",
		metric.WithDescription("Latency of language model inference."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.SynthesisDuration, err = m.Float64Histogram("cade.tts.duration",
		metric.WithDescription("Latency of speech synthesis."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.ActionDuration, err = m.Float64Histogram("cade.action.duration",
		metric.WithDescription("Latency of action handler execution."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.HTTPRequestDuration, err = m.Float64Histogram("cade.http.request.duration",
		metric.WithDescription("Console HTTP request latency by method and path."),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	if met.WakeMatches, err = m.Int64Counter("cade.wake.matches",
		metric.WithDescription("Utterances that matched a wake phrase."),
	); err != nil {
		return nil, err
	}
	if met.StateTransitions, err = m.Int64Counter("cade.state.transitions",
		metric.WithDescription("Session state transitions by source and target state."),
	); err != nil {
		return nil, err
	}
	if met.DroppedEvents, err = m.Int64Counter("cade.events.dropped",
		metric.WithDescription("Utterance events dropped while the session was busy."),
	); err != nil {
		return nil, err
	}
	if met.ActionCalls, err = m.Int64Counter("cade.action.calls",
		metric.WithDescription("Dispatched actions by name and status."),
	); err != nil {
		return nil, err
	}
	if met.ProviderErrors, err = m.Int64Counter("cade.provider.errors",
		metric.WithDescription("Provider failures by provider and kind."),
	); err != nil {
		return nil, err
	}

	if met.ActiveSessions, err = m.Int64UpDownCounter("cade.active_sessions",
		metric.WithDescription("Live conversation sessions."),
	); err != nil {
		return nil, err
	}

	return met, nil
}

var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level [Metrics], creating it on first
// call from the global meter provider. Panics if instrument creation fails,
// which cannot happen with the global provider.
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		defaultMetrics, err = NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("observe: failed to create default metrics: " + err.Error())
		}
	})
	return defaultMetrics
}

// RecordStateTransition increments the transition counter for one
// from/to pair.
func (m *Metrics) RecordStateTransition(ctx context.Context, from, to string) {
	m.StateTransitions.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("from", from),
			attribute.String("to", to),
		),
	)
}

// RecordActionCall increments the action counter with the outcome status
// ("ok", "error", or "timeout").
func (m *Metrics) RecordActionCall(ctx context.Context, action, status string) {
	m.ActionCalls.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("action", action),
			attribute.String("status", status),
		),
	)
}

// RecordProviderError increments the provider error counter. kind names the
// provider class: stt, llm, tts, or memory.
func (m *Metrics) RecordProviderError(ctx context.Context, provider, kind string) {
	m.ProviderErrors.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("provider", provider),
			attribute.String("kind", kind),
		),
	)
}
