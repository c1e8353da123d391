package metrics

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
)

func TestNoopProvider(t *testing.T) {
	p := NewNoopProvider()

	if p.Name() != string(ProviderTypeNoop) {
		t.Errorf("expected name %s, got %s", ProviderTypeNoop, p.Name())
	}

	if p.Enabled() {
		t.Error("expected Enabled() to return false")
	}

	ctx := context.Background()

	// All these should be no-ops and not panic
	_ = p.PutMetric(ctx, "test", 1.0, "Count", nil)
	_ = p.Increment(ctx, "test", nil)
	_ = p.RecordDuration(ctx, "test", 100.0, nil)
	p.IncPolls(ctx, "queue")
	p.IncPollErrors(ctx, "queue")
	p.AddMessagesReceived(ctx, "queue", 10)
	p.IncInvocationsSuccess(ctx, "queue", "handler")
	p.IncInvocationsFailure(ctx, "queue", "handler")
	p.IncInvocationTimeouts(ctx, "queue", "handler")
	p.IncRedrives(ctx, "queue")
	p.ObserveInvocationDuration(ctx, "queue", "handler", 100.0)
	p.SetQueueDepth(ctx, "queue", 10)
	p.SetDLQDepth(ctx, "queue", 5)
	p.SetInFlight(ctx, "queue", 3)
	p.IncInFlight(ctx, "queue")
	p.DecInFlight(ctx, "queue")
}

func TestCompositeProvider_Empty(t *testing.T) {
	p := NewCompositeProvider()

	if p.Name() != string(ProviderTypeComposite) {
		t.Errorf("expected name %s, got %s", ProviderTypeComposite, p.Name())
	}

	if p.Enabled() {
		t.Error("expected Enabled() to return false for empty composite")
	}

	if len(p.Providers()) != 0 {
		t.Errorf("expected 0 providers, got %d", len(p.Providers()))
	}
}

func TestCompositeProvider_DropsDisabled(t *testing.T) {
	// NoopProviders report as disabled, so they won't be added
	p := NewCompositeProvider(NewNoopProvider(), NewNoopProvider())

	if p.Enabled() {
		t.Error("expected Enabled() to return false when only noop providers")
	}
}

func TestCompositeProvider_NilHandling(t *testing.T) {
	// Should not panic with nil providers
	p := NewCompositeProvider(nil, nil)

	if p.Enabled() {
		t.Error("expected Enabled() to return false with nil providers")
	}

	if p.Handler() != nil {
		t.Error("expected Handler() to return nil")
	}

	if p.Collectors() != nil && len(p.Collectors()) != 0 {
		t.Error("expected Collectors() to return empty slice")
	}
}

func TestPrometheusProviderRegister(t *testing.T) {
	registry := prometheus.NewRegistry()
	p := NewPrometheusProvider(zerolog.Nop(), PrometheusConfig{
		Enabled:   true,
		Namespace: "test",
		Registry:  registry,
	})

	if err := p.Register(); err != nil {
		t.Fatalf("register failed: %v", err)
	}
	// Register is idempotent
	if err := p.Register(); err != nil {
		t.Fatalf("second register failed: %v", err)
	}

	ctx := context.Background()
	p.IncPolls(ctx, "orders")
	p.AddMessagesReceived(ctx, "orders", 4)
	p.IncInvocationsSuccess(ctx, "orders", "worker.handle")
	p.ObserveInvocationDuration(ctx, "orders", "worker.handle", 42)
	p.SetQueueDepth(ctx, "orders", 7)

	families, err := registry.Gather()
	if err != nil {
		t.Fatalf("gather failed: %v", err)
	}
	if len(families) == 0 {
		t.Error("expected gathered metric families")
	}
}

func TestPrometheusProviderPutMetricRouting(t *testing.T) {
	registry := prometheus.NewRegistry()
	p := NewPrometheusProvider(zerolog.Nop(), PrometheusConfig{
		Enabled:   true,
		Namespace: "test",
		Registry:  registry,
	})
	if err := p.Register(); err != nil {
		t.Fatalf("register failed: %v", err)
	}

	ctx := context.Background()
	dims := map[string]string{"queue": "orders", "handler": "worker.handle"}
	if err := p.Increment(ctx, MetricInvocationsFailure, dims); err != nil {
		t.Errorf("increment failed: %v", err)
	}
	if err := p.RecordDuration(ctx, MetricInvocationDuration, 12.5, dims); err != nil {
		t.Errorf("record duration failed: %v", err)
	}

	families, err := registry.Gather()
	if err != nil {
		t.Fatalf("gather failed: %v", err)
	}
	names := make(map[string]bool, len(families))
	for _, f := range families {
		names[f.GetName()] = true
	}
	if !names["test_invocations_failure_total"] {
		t.Error("expected failure counter to be populated")
	}
	if !names["test_invocation_duration_milliseconds"] {
		t.Error("expected duration histogram to be populated")
	}
}

func TestFactoryCreateNoop(t *testing.T) {
	f := NewFactory(FactoryConfig{Logger: zerolog.Nop()})

	p := f.Create()
	if p.Name() != string(ProviderTypeNoop) {
		t.Errorf("expected noop provider, got %s", p.Name())
	}
}

func TestFactoryCreatePrometheusOnly(t *testing.T) {
	f := NewFactory(FactoryConfig{
		PrometheusEnabled:   true,
		PrometheusNamespace: "test",
		PrometheusRegistry:  prometheus.NewRegistry(),
		Logger:              zerolog.Nop(),
	})

	p := f.Create()
	if p.Name() != string(ProviderTypePrometheus) {
		t.Errorf("expected prometheus provider, got %s", p.Name())
	}
	if _, ok := p.(HTTPProvider); !ok {
		t.Error("expected prometheus provider to expose an HTTP handler")
	}
}

func TestProviderInterface(t *testing.T) {
	var _ Provider = (*NoopProvider)(nil)
	var _ Provider = (*CompositeProvider)(nil)
	var _ Provider = (*CloudWatchProvider)(nil)
	var _ Provider = (*PrometheusProvider)(nil)

	var _ HTTPProvider = (*CompositeProvider)(nil)
	var _ HTTPProvider = (*PrometheusProvider)(nil)

	var _ CollectorProvider = (*CompositeProvider)(nil)
	var _ CollectorProvider = (*PrometheusProvider)(nil)
}
