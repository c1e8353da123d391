package sqsoffline

import (
	"github.com/civocr/serverless-offline-localstack-sqs/internal/metrics"
)

// Re-export metrics types for convenience

// MetricsProvider is the unified interface for all metrics providers.
type MetricsProvider = metrics.Provider

// HTTPMetricsProvider is an optional interface for providers that expose HTTP handlers.
type HTTPMetricsProvider = metrics.HTTPProvider

// CollectorMetricsProvider is an optional interface for providers that expose Prometheus collectors.
type CollectorMetricsProvider = metrics.CollectorProvider

// MetricsProviderType represents the type of metrics provider.
type MetricsProviderType = metrics.ProviderType

// Metrics provider type constants
const (
	MetricsProviderCloudWatch = metrics.ProviderTypeCloudWatch
	MetricsProviderPrometheus = metrics.ProviderTypePrometheus
	MetricsProviderNoop       = metrics.ProviderTypeNoop
	MetricsProviderComposite  = metrics.ProviderTypeComposite
)

// Metrics constants for consistency
const (
	MetricPolls              = metrics.MetricPolls
	MetricPollErrors         = metrics.MetricPollErrors
	MetricMessagesReceived   = metrics.MetricMessagesReceived
	MetricInvocationsSuccess = metrics.MetricInvocationsSuccess
	MetricInvocationsFailure = metrics.MetricInvocationsFailure
	MetricInvocationTimeouts = metrics.MetricInvocationTimeouts
	MetricRedrives           = metrics.MetricRedrives
	MetricInvocationDuration = metrics.MetricInvocationDuration
	MetricQueueDepth         = metrics.MetricQueueDepth
	MetricDLQDepth           = metrics.MetricDLQDepth
	MetricInFlight           = metrics.MetricInFlight
)
