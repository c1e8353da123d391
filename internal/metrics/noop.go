// Package metrics provides metrics integration for the queue pollers
package metrics

import (
	"context"
)

// NoopProvider is a no-operation metrics provider that does nothing.
// Used when metrics are disabled or as a fallback.
type NoopProvider struct{}

// NewNoopProvider creates a new no-operation metrics provider
func NewNoopProvider() *NoopProvider {
	return &NoopProvider{}
}

// Ensure NoopProvider implements Provider interface
var _ Provider = (*NoopProvider)(nil)

// Name returns the provider name
func (n *NoopProvider) Name() string {
	return string(ProviderTypeNoop)
}

// Enabled returns false as this provider does nothing
func (n *NoopProvider) Enabled() bool {
	return false
}

// PutMetric does nothing
func (n *NoopProvider) PutMetric(ctx context.Context, name string, value float64, unit string, dimensions map[string]string) error {
	return nil
}

// Increment does nothing
func (n *NoopProvider) Increment(ctx context.Context, name string, dimensions map[string]string) error {
	return nil
}

// RecordDuration does nothing
func (n *NoopProvider) RecordDuration(ctx context.Context, name string, duration float64, dimensions map[string]string) error {
	return nil
}

// IncPolls does nothing
func (n *NoopProvider) IncPolls(ctx context.Context, queue string) {}

// IncPollErrors does nothing
func (n *NoopProvider) IncPollErrors(ctx context.Context, queue string) {}

// AddMessagesReceived does nothing
func (n *NoopProvider) AddMessagesReceived(ctx context.Context, queue string, count float64) {}

// IncInvocationsSuccess does nothing
func (n *NoopProvider) IncInvocationsSuccess(ctx context.Context, queue, handler string) {}

// IncInvocationsFailure does nothing
func (n *NoopProvider) IncInvocationsFailure(ctx context.Context, queue, handler string) {}

// IncInvocationTimeouts does nothing
func (n *NoopProvider) IncInvocationTimeouts(ctx context.Context, queue, handler string) {}

// IncRedrives does nothing
func (n *NoopProvider) IncRedrives(ctx context.Context, queue string) {}

// ObserveInvocationDuration does nothing
func (n *NoopProvider) ObserveInvocationDuration(ctx context.Context, queue, handler string, durationMs float64) {
}

// SetQueueDepth does nothing
func (n *NoopProvider) SetQueueDepth(ctx context.Context, queue string, depth float64) {}

// SetDLQDepth does nothing
func (n *NoopProvider) SetDLQDepth(ctx context.Context, queue string, depth float64) {}

// SetInFlight does nothing
func (n *NoopProvider) SetInFlight(ctx context.Context, queue string, count float64) {}

// IncInFlight does nothing
func (n *NoopProvider) IncInFlight(ctx context.Context, queue string) {}

// DecInFlight does nothing
func (n *NoopProvider) DecInFlight(ctx context.Context, queue string) {}
