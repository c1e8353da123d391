package config

import (
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.AWS.Region != "us-east-1" {
		t.Errorf("expected Region 'us-east-1', got '%s'", cfg.AWS.Region)
	}
	if cfg.AWS.Endpoint != "http://localhost:4566" {
		t.Errorf("expected LocalStack endpoint, got '%s'", cfg.AWS.Endpoint)
	}
	if cfg.SQS.VisibilityTimeout != 30 {
		t.Errorf("expected VisibilityTimeout 30, got %d", cfg.SQS.VisibilityTimeout)
	}
	if cfg.SQS.DLQSuffix != "-dlq" {
		t.Errorf("expected DLQSuffix '-dlq', got '%s'", cfg.SQS.DLQSuffix)
	}
	if cfg.SQS.MaxDeliveryAttempts != 3 {
		t.Errorf("expected MaxDeliveryAttempts 3, got %d", cfg.SQS.MaxDeliveryAttempts)
	}
	if !cfg.SQS.AutoCreate {
		t.Error("expected AutoCreate to default to true")
	}
	if cfg.Poller.Interval != time.Second {
		t.Errorf("expected poll interval 1s, got %s", cfg.Poller.Interval)
	}
	if cfg.Poller.BatchSize != 10 {
		t.Errorf("expected BatchSize 10, got %d", cfg.Poller.BatchSize)
	}
	if cfg.Handler.TimeoutSeconds != 6 {
		t.Errorf("expected handler timeout 6s, got %d", cfg.Handler.TimeoutSeconds)
	}
	if cfg.Handler.Version != "$LATEST" {
		t.Errorf("expected version '$LATEST', got '%s'", cfg.Handler.Version)
	}
	if cfg.Database.Driver != "sqlite" {
		t.Errorf("expected sqlite journal driver, got '%s'", cfg.Database.Driver)
	}
}

func TestGetPrefixedQueueName(t *testing.T) {
	tests := []struct {
		name      string
		prefix    string
		queueName string
		expected  string
	}{
		{"with prefix", "dev", "orders", "dev-orders"},
		{"empty prefix", "", "orders", "orders"},
		{"staging prefix", "staging", "order-events", "staging-order-events"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.SQS.Prefix = tt.prefix

			if got := cfg.GetPrefixedQueueName(tt.queueName); got != tt.expected {
				t.Errorf("expected '%s', got '%s'", tt.expected, got)
			}
		})
	}
}

func TestGetDLQName(t *testing.T) {
	cfg := DefaultConfig()

	if got := cfg.GetDLQName("orders"); got != "orders-dlq" {
		t.Errorf("expected 'orders-dlq', got '%s'", got)
	}

	cfg.SQS.DLQSuffix = "-dead"
	if got := cfg.GetDLQName("orders"); got != "orders-dead" {
		t.Errorf("expected 'orders-dead', got '%s'", got)
	}
}

func TestDescriptorDefaults(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Poller.Concurrency = 5

	d := cfg.Descriptor(QueueConfig{Name: "orders", Handler: "processOrder"})

	if !d.Enabled {
		t.Error("expected descriptor to be enabled by default")
	}
	if d.BatchSize != 10 {
		t.Errorf("expected batch size 10, got %d", d.BatchSize)
	}
	if d.ConcurrencyLimit != 5 {
		t.Errorf("expected concurrency 5, got %d", d.ConcurrencyLimit)
	}
	if d.VisibilityTimeout != 30 {
		t.Errorf("expected visibility timeout 30, got %d", d.VisibilityTimeout)
	}
	if d.LongPollWait != 1 {
		t.Errorf("expected long poll wait 1, got %d", d.LongPollWait)
	}
	if d.DeadLetter.Enabled {
		t.Error("expected dead letter disabled by default")
	}
}

func TestDescriptorOverrides(t *testing.T) {
	cfg := DefaultConfig()

	d := cfg.Descriptor(QueueConfig{
		Name:              "orders",
		Handler:           "processOrder",
		BatchSize:         25, // clamped to SQS max
		Concurrency:       2,
		VisibilityTimeout: 90,
		TimeoutSeconds:    15,
		DeadLetter:        true,
	})

	if d.BatchSize != 10 {
		t.Errorf("expected batch size clamped to 10, got %d", d.BatchSize)
	}
	if d.ConcurrencyLimit != 2 {
		t.Errorf("expected concurrency 2, got %d", d.ConcurrencyLimit)
	}
	if d.VisibilityTimeout != 90 {
		t.Errorf("expected visibility timeout 90, got %d", d.VisibilityTimeout)
	}
	if d.HandlerTimeout != 15*time.Second {
		t.Errorf("expected handler timeout 15s, got %s", d.HandlerTimeout)
	}
	if !d.DeadLetter.Enabled {
		t.Error("expected dead letter enabled")
	}
	if d.DeadLetter.MaxDeliveryAttempts != 3 {
		t.Errorf("expected max attempts defaulted to 3, got %d", d.DeadLetter.MaxDeliveryAttempts)
	}
}

func TestDescriptorKey(t *testing.T) {
	cfg := DefaultConfig()

	a := cfg.Descriptor(QueueConfig{Name: "orders", Handler: "processOrder"})
	b := cfg.Descriptor(QueueConfig{Name: "orders", Handler: "auditOrder"})

	if a.Key() == b.Key() {
		t.Error("expected different keys for different handlers on the same queue")
	}
	if a.Key() != "orders|processOrder" {
		t.Errorf("unexpected key format: %s", a.Key())
	}
}
