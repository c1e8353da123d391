// Package metrics provides metrics integration for the queue pollers
package metrics

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
)

// Provider defines the unified interface for all metrics providers.
// Implementations include CloudWatch, Prometheus, Noop, and Composite providers.
type Provider interface {
	// Core metrics methods
	PutMetric(ctx context.Context, name string, value float64, unit string, dimensions map[string]string) error
	Increment(ctx context.Context, name string, dimensions map[string]string) error
	RecordDuration(ctx context.Context, name string, duration float64, dimensions map[string]string) error

	// Convenience methods for the polling loops
	IncPolls(ctx context.Context, queue string)
	IncPollErrors(ctx context.Context, queue string)
	AddMessagesReceived(ctx context.Context, queue string, count float64)
	IncInvocationsSuccess(ctx context.Context, queue, handler string)
	IncInvocationsFailure(ctx context.Context, queue, handler string)
	IncInvocationTimeouts(ctx context.Context, queue, handler string)
	IncRedrives(ctx context.Context, queue string)

	// Duration recording
	ObserveInvocationDuration(ctx context.Context, queue, handler string, durationMs float64)

	// Gauge operations
	SetQueueDepth(ctx context.Context, queue string, depth float64)
	SetDLQDepth(ctx context.Context, queue string, depth float64)
	SetInFlight(ctx context.Context, queue string, count float64)
	IncInFlight(ctx context.Context, queue string)
	DecInFlight(ctx context.Context, queue string)

	// Provider info
	Name() string
	Enabled() bool
}

// HTTPProvider is an optional interface for providers that expose HTTP handlers (e.g., Prometheus)
type HTTPProvider interface {
	Provider
	Handler() http.Handler
	HandlerFunc() http.HandlerFunc
}

// CollectorProvider is an optional interface for providers that expose Prometheus collectors
type CollectorProvider interface {
	Provider
	Collectors() []prometheus.Collector
	Register() error
}

// ProviderType represents the type of metrics provider
type ProviderType string

const (
	ProviderTypeCloudWatch ProviderType = "cloudwatch"
	ProviderTypePrometheus ProviderType = "prometheus"
	ProviderTypeNoop       ProviderType = "noop"
	ProviderTypeComposite  ProviderType = "composite"
)

// Metric name constants for consistency across providers
const (
	MetricPolls              = "poller.polls"
	MetricPollErrors         = "poller.poll_errors"
	MetricMessagesReceived   = "poller.messages_received"
	MetricInvocationsSuccess = "poller.invocations.success"
	MetricInvocationsFailure = "poller.invocations.failure"
	MetricInvocationTimeouts = "poller.invocations.timeout"
	MetricRedrives           = "poller.redrives"
	MetricInvocationDuration = "poller.invocation_duration"
	MetricQueueDepth         = "poller.queue_depth"
	MetricDLQDepth           = "poller.dlq_depth"
	MetricInFlight           = "poller.in_flight"
)
