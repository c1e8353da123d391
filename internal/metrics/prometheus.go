// Package metrics provides metrics integration for the queue pollers
package metrics

import (
	"context"
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// PrometheusProvider handles exposing poller metrics to Prometheus
type PrometheusProvider struct {
	logger    zerolog.Logger
	namespace string
	subsystem string
	enabled   bool

	// Custom registry (if provided)
	registry prometheus.Registerer
	gatherer prometheus.Gatherer

	// Counters
	polls              *prometheus.CounterVec
	pollErrors         *prometheus.CounterVec
	messagesReceived   *prometheus.CounterVec
	invocationsSuccess *prometheus.CounterVec
	invocationsFailure *prometheus.CounterVec
	invocationTimeouts *prometheus.CounterVec
	redrives           *prometheus.CounterVec

	// Gauges
	queueDepth *prometheus.GaugeVec
	dlqDepth   *prometheus.GaugeVec
	inFlight   *prometheus.GaugeVec

	// Histograms
	invocationDuration *prometheus.HistogramVec

	// Track if already registered
	registered bool
	mu         sync.Mutex
}

// PrometheusConfig holds configuration for Prometheus metrics
type PrometheusConfig struct {
	Enabled   bool                  // Whether Prometheus metrics are enabled
	Namespace string                // Metric namespace (e.g., "sqsoffline")
	Subsystem string                // Metric subsystem (e.g., "poller")
	Registry  prometheus.Registerer // Custom registry (optional, defaults to prometheus.DefaultRegisterer)
}

// DefaultPrometheusConfig returns the default Prometheus configuration
func DefaultPrometheusConfig() PrometheusConfig {
	return PrometheusConfig{
		Enabled:   true,
		Namespace: "sqsoffline",
		Subsystem: "",
		Registry:  nil,
	}
}

// NewPrometheusProvider creates a new Prometheus metrics provider
func NewPrometheusProvider(logger zerolog.Logger, cfg PrometheusConfig) *PrometheusProvider {
	if cfg.Namespace == "" {
		cfg.Namespace = "sqsoffline"
	}

	s := &PrometheusProvider{
		logger:    logger,
		namespace: cfg.Namespace,
		subsystem: cfg.Subsystem,
		registry:  cfg.Registry,
		enabled:   cfg.Enabled,
	}

	// If a custom registry is provided, try to get the gatherer for it
	if cfg.Registry != nil {
		if reg, ok := cfg.Registry.(*prometheus.Registry); ok {
			s.gatherer = reg
		}
	}

	s.initMetrics()
	return s
}

// Ensure PrometheusProvider implements Provider, HTTPProvider, and CollectorProvider interfaces
var _ Provider = (*PrometheusProvider)(nil)
var _ HTTPProvider = (*PrometheusProvider)(nil)
var _ CollectorProvider = (*PrometheusProvider)(nil)

// Name returns the provider name
func (s *PrometheusProvider) Name() string {
	return string(ProviderTypePrometheus)
}

// Enabled returns whether Prometheus metrics are enabled
func (s *PrometheusProvider) Enabled() bool {
	return s.enabled
}

func (s *PrometheusProvider) initMetrics() {
	// Counters
	s.polls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: s.namespace,
			Subsystem: s.subsystem,
			Name:      "polls_total",
			Help:      "Total number of receive calls issued against the queue",
		},
		[]string{"queue"},
	)

	s.pollErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: s.namespace,
			Subsystem: s.subsystem,
			Name:      "poll_errors_total",
			Help:      "Total number of receive calls that failed",
		},
		[]string{"queue"},
	)

	s.messagesReceived = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: s.namespace,
			Subsystem: s.subsystem,
			Name:      "messages_received_total",
			Help:      "Total number of messages pulled from the queue",
		},
		[]string{"queue"},
	)

	s.invocationsSuccess = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: s.namespace,
			Subsystem: s.subsystem,
			Name:      "invocations_success_total",
			Help:      "Total number of handler invocations that succeeded",
		},
		[]string{"queue", "handler"},
	)

	s.invocationsFailure = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: s.namespace,
			Subsystem: s.subsystem,
			Name:      "invocations_failure_total",
			Help:      "Total number of handler invocations that failed",
		},
		[]string{"queue", "handler"},
	)

	s.invocationTimeouts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: s.namespace,
			Subsystem: s.subsystem,
			Name:      "invocation_timeouts_total",
			Help:      "Total number of handler invocations killed by the deadline",
		},
		[]string{"queue", "handler"},
	)

	s.redrives = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: s.namespace,
			Subsystem: s.subsystem,
			Name:      "redrives_total",
			Help:      "Total number of messages moved to a dead-letter queue",
		},
		[]string{"queue"},
	)

	// Gauges
	s.queueDepth = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: s.namespace,
			Subsystem: s.subsystem,
			Name:      "queue_depth",
			Help:      "Current approximate number of messages in the queue",
		},
		[]string{"queue"},
	)

	s.dlqDepth = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: s.namespace,
			Subsystem: s.subsystem,
			Name:      "dlq_depth",
			Help:      "Current approximate number of messages in the dead letter queue",
		},
		[]string{"queue"},
	)

	s.inFlight = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: s.namespace,
			Subsystem: s.subsystem,
			Name:      "in_flight_invocations",
			Help:      "Number of handler invocations currently running",
		},
		[]string{"queue"},
	)

	// Histograms
	s.invocationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: s.namespace,
			Subsystem: s.subsystem,
			Name:      "invocation_duration_milliseconds",
			Help:      "Handler invocation duration in milliseconds",
			Buckets:   []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000},
		},
		[]string{"queue", "handler"},
	)
}

// Register registers all metrics with the Prometheus registry.
// If a custom registry was provided via PrometheusConfig.Registry, metrics
// will be registered there. Otherwise, metrics are registered with the
// default Prometheus registry.
func (s *PrometheusProvider) Register() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.registered {
		return nil
	}

	registerer := s.registry
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	for _, c := range s.Collectors() {
		if err := registerer.Register(c); err != nil {
			// Ignore already registered errors
			if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
				return err
			}
		}
	}

	s.registered = true
	s.logger.Info().Msg("Prometheus metrics registered")
	return nil
}

// Collectors returns all Prometheus collectors used by this provider.
// This allows manual registration to a custom registry if needed.
func (s *PrometheusProvider) Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		s.polls,
		s.pollErrors,
		s.messagesReceived,
		s.invocationsSuccess,
		s.invocationsFailure,
		s.invocationTimeouts,
		s.redrives,
		s.queueDepth,
		s.dlqDepth,
		s.inFlight,
		s.invocationDuration,
	}
}

// Handler returns an http.Handler for the /metrics endpoint.
// If a custom registry was provided, returns a handler for that registry.
// Otherwise, returns the default promhttp.Handler().
func (s *PrometheusProvider) Handler() http.Handler {
	if s.gatherer != nil {
		return promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})
	}
	return promhttp.Handler()
}

// HandlerFunc returns an http.HandlerFunc for the /metrics endpoint.
func (s *PrometheusProvider) HandlerFunc() http.HandlerFunc {
	return s.Handler().ServeHTTP
}

// PutMetric implements the Provider interface
func (s *PrometheusProvider) PutMetric(ctx context.Context, name string, value float64, unit string, dimensions map[string]string) error {
	if !s.enabled {
		return nil
	}

	queue := dimensions["queue"]
	handler := dimensions["handler"]

	switch name {
	case MetricPolls:
		s.polls.WithLabelValues(queue).Add(value)
	case MetricPollErrors:
		s.pollErrors.WithLabelValues(queue).Add(value)
	case MetricMessagesReceived:
		s.messagesReceived.WithLabelValues(queue).Add(value)
	case MetricInvocationsSuccess:
		s.invocationsSuccess.WithLabelValues(queue, handler).Add(value)
	case MetricInvocationsFailure:
		s.invocationsFailure.WithLabelValues(queue, handler).Add(value)
	case MetricInvocationTimeouts:
		s.invocationTimeouts.WithLabelValues(queue, handler).Add(value)
	case MetricRedrives:
		s.redrives.WithLabelValues(queue).Add(value)
	case MetricInvocationDuration:
		s.invocationDuration.WithLabelValues(queue, handler).Observe(value)
	case MetricQueueDepth:
		s.queueDepth.WithLabelValues(queue).Set(value)
	case MetricDLQDepth:
		s.dlqDepth.WithLabelValues(queue).Set(value)
	case MetricInFlight:
		s.inFlight.WithLabelValues(queue).Set(value)
	}
	return nil
}

// Increment implements the Provider interface
func (s *PrometheusProvider) Increment(ctx context.Context, name string, dimensions map[string]string) error {
	return s.PutMetric(ctx, name, 1.0, "Count", dimensions)
}

// RecordDuration implements the Provider interface
func (s *PrometheusProvider) RecordDuration(ctx context.Context, name string, duration float64, dimensions map[string]string) error {
	return s.PutMetric(ctx, name, duration, "Milliseconds", dimensions)
}

// IncPolls increments the poll counter
func (s *PrometheusProvider) IncPolls(ctx context.Context, queue string) {
	if s.enabled {
		s.polls.WithLabelValues(queue).Inc()
	}
}

// IncPollErrors increments the poll errors counter
func (s *PrometheusProvider) IncPollErrors(ctx context.Context, queue string) {
	if s.enabled {
		s.pollErrors.WithLabelValues(queue).Inc()
	}
}

// AddMessagesReceived adds to the messages received counter
func (s *PrometheusProvider) AddMessagesReceived(ctx context.Context, queue string, count float64) {
	if s.enabled {
		s.messagesReceived.WithLabelValues(queue).Add(count)
	}
}

// IncInvocationsSuccess increments the invocation success counter
func (s *PrometheusProvider) IncInvocationsSuccess(ctx context.Context, queue, handler string) {
	if s.enabled {
		s.invocationsSuccess.WithLabelValues(queue, handler).Inc()
	}
}

// IncInvocationsFailure increments the invocation failure counter
func (s *PrometheusProvider) IncInvocationsFailure(ctx context.Context, queue, handler string) {
	if s.enabled {
		s.invocationsFailure.WithLabelValues(queue, handler).Inc()
	}
}

// IncInvocationTimeouts increments the invocation timeout counter
func (s *PrometheusProvider) IncInvocationTimeouts(ctx context.Context, queue, handler string) {
	if s.enabled {
		s.invocationTimeouts.WithLabelValues(queue, handler).Inc()
	}
}

// IncRedrives increments the redrive counter
func (s *PrometheusProvider) IncRedrives(ctx context.Context, queue string) {
	if s.enabled {
		s.redrives.WithLabelValues(queue).Inc()
	}
}

// ObserveInvocationDuration records the invocation duration
func (s *PrometheusProvider) ObserveInvocationDuration(ctx context.Context, queue, handler string, durationMs float64) {
	if s.enabled {
		s.invocationDuration.WithLabelValues(queue, handler).Observe(durationMs)
	}
}

// SetQueueDepth sets the current queue depth
func (s *PrometheusProvider) SetQueueDepth(ctx context.Context, queue string, depth float64) {
	if s.enabled {
		s.queueDepth.WithLabelValues(queue).Set(depth)
	}
}

// SetDLQDepth sets the current DLQ depth
func (s *PrometheusProvider) SetDLQDepth(ctx context.Context, queue string, depth float64) {
	if s.enabled {
		s.dlqDepth.WithLabelValues(queue).Set(depth)
	}
}

// SetInFlight sets the number of running invocations
func (s *PrometheusProvider) SetInFlight(ctx context.Context, queue string, count float64) {
	if s.enabled {
		s.inFlight.WithLabelValues(queue).Set(count)
	}
}

// IncInFlight increments the running invocation count
func (s *PrometheusProvider) IncInFlight(ctx context.Context, queue string) {
	if s.enabled {
		s.inFlight.WithLabelValues(queue).Inc()
	}
}

// DecInFlight decrements the running invocation count
func (s *PrometheusProvider) DecInFlight(ctx context.Context, queue string) {
	if s.enabled {
		s.inFlight.WithLabelValues(queue).Dec()
	}
}
