package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	"mercator-hq/relay/pkg/dispatch"
)

// DispatchMetrics tracks upstream dispatches.
//
// Metrics:
//   - relay_dispatches_total: Finished dispatches by model, mode, status
//   - relay_dispatch_duration_seconds: Dispatch duration histogram
//   - relay_dispatches_in_flight: Dispatches currently running, by mode
//   - relay_dispatch_errors_total: Failed dispatches by error category
//   - relay_stream_frames_total: Data frames delivered to stream consumers
//   - relay_tokens_total: Tokens reported by the upstream, by type
type DispatchMetrics struct {
	dispatchesTotal *prometheus.CounterVec
	duration        *prometheus.HistogramVec
	inFlight        *prometheus.GaugeVec
	errorsTotal     *prometheus.CounterVec
	framesTotal     *prometheus.CounterVec
	tokensTotal     *prometheus.CounterVec
}

// NewDispatchMetrics creates and registers dispatch metrics with the provided registry.
func NewDispatchMetrics(namespace string, registry *prometheus.Registry) *DispatchMetrics {
	dm := &DispatchMetrics{
		dispatchesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "dispatches_total",
				Help:      "Total number of finished upstream dispatches",
			},
			[]string{"model", "mode", "status"},
		),

		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "dispatch_duration_seconds",
				Help:      "Duration of upstream dispatches in seconds",
				// LLM latencies, 100ms to 2m
				Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60, 120},
			},
			[]string{"model", "mode"},
		),

		inFlight: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "dispatches_in_flight",
				Help:      "Number of upstream dispatches currently running",
			},
			[]string{"mode"},
		),

		errorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "dispatch_errors_total",
				Help:      "Total number of failed dispatches by error category",
			},
			[]string{"category"},
		),

		framesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "stream_frames_total",
				Help:      "Total number of data frames delivered to stream consumers",
			},
			[]string{"model"},
		),

		tokensTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "tokens_total",
				Help:      "Total number of tokens reported by the upstream",
			},
			[]string{"model", "type"},
		),
	}

	registry.MustRegister(
		dm.dispatchesTotal,
		dm.duration,
		dm.inFlight,
		dm.errorsTotal,
		dm.framesTotal,
		dm.tokensTotal,
	)

	return dm
}

func mode(stream bool) string {
	if stream {
		return "stream"
	}
	return "single"
}

// record updates every series for one outcome under the given model label.
func (dm *DispatchMetrics) record(model string, o dispatch.Outcome) {
	m := mode(o.Stream)

	dm.inFlight.WithLabelValues(m).Dec()
	dm.dispatchesTotal.WithLabelValues(model, m, strconv.Itoa(o.Status)).Inc()
	dm.duration.WithLabelValues(model, m).Observe(o.Duration.Seconds())

	if o.Err != nil {
		dm.errorsTotal.WithLabelValues(string(o.Category)).Inc()
	}
	if o.Stream && o.Frames > 0 {
		dm.framesTotal.WithLabelValues(model).Add(float64(o.Frames))
	}
	if o.Usage != nil {
		if o.Usage.PromptTokens > 0 {
			dm.tokensTotal.WithLabelValues(model, "prompt").Add(float64(o.Usage.PromptTokens))
		}
		if o.Usage.CompletionTokens > 0 {
			dm.tokensTotal.WithLabelValues(model, "completion").Add(float64(o.Usage.CompletionTokens))
		}
	}
}
