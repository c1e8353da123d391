package provision

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"

	"github.com/civocr/serverless-offline-localstack-sqs/internal/config"
	"github.com/civocr/serverless-offline-localstack-sqs/internal/contracts"
)

// fakeQueueClient records provisioning calls without a real backend.
type fakeQueueClient struct {
	mu          sync.Mutex
	created     []string
	createAttrs map[string]map[string]string
	failCreate  map[string]error
	infoCalls   int
}

func newFakeQueueClient() *fakeQueueClient {
	return &fakeQueueClient{
		createAttrs: make(map[string]map[string]string),
		failCreate:  make(map[string]error),
	}
}

func handleFor(name string) contracts.QueueHandle {
	return contracts.QueueHandle{
		Name: name,
		URL:  "http://localhost:4566/000000000000/" + name,
		ARN:  "arn:aws:sqs:us-east-1:000000000000:" + name,
	}
}

func (f *fakeQueueClient) CreateQueue(_ context.Context, name string, attrs map[string]string) (contracts.QueueHandle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failCreate[name]; err != nil {
		return contracts.QueueHandle{}, err
	}
	f.created = append(f.created, name)
	f.createAttrs[name] = attrs
	return handleFor(name), nil
}

func (f *fakeQueueClient) GetQueueInfo(_ context.Context, name string) (contracts.QueueHandle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.infoCalls++
	return handleFor(name), nil
}

func (f *fakeQueueClient) ReceiveMessages(context.Context, contracts.QueueHandle, int, int, int) ([]contracts.Message, error) {
	return nil, nil
}

func (f *fakeQueueClient) DeleteMessage(context.Context, contracts.QueueHandle, string) error {
	return nil
}

func (f *fakeQueueClient) DeleteMessages(context.Context, contracts.QueueHandle, []string) error {
	return nil
}

func (f *fakeQueueClient) SendMessage(context.Context, contracts.QueueHandle, string, map[string]contracts.MessageAttribute) (string, error) {
	return "msg-id", nil
}

func (f *fakeQueueClient) QueueDepth(context.Context, contracts.QueueHandle) (int64, error) {
	return 0, nil
}

func testDescriptor(name string) contracts.QueueDescriptor {
	return contracts.QueueDescriptor{
		Name:              name,
		Handler:           "handler",
		Enabled:           true,
		AutoCreate:        true,
		BatchSize:         10,
		ConcurrencyLimit:  5,
		VisibilityTimeout: 30,
		LongPollWait:      1,
		RetentionDays:     4,
	}
}

func TestEnsureQueuesCreatesDLQFirst(t *testing.T) {
	client := newFakeQueueClient()
	p := New(client, config.DefaultConfig(), zerolog.Nop())

	d := testDescriptor("orders")
	d.DeadLetter = contracts.DeadLetterPolicy{Enabled: true, MaxDeliveryAttempts: 3}

	failures := p.EnsureQueues(context.Background(), []contracts.QueueDescriptor{d})
	if len(failures) != 0 {
		t.Fatalf("expected no failures, got %v", failures)
	}

	if len(client.created) != 2 {
		t.Fatalf("expected 2 queues created, got %d", len(client.created))
	}
	if client.created[0] != "orders-dlq" {
		t.Errorf("expected DLQ created first, got %q", client.created[0])
	}
	if client.created[1] != "orders" {
		t.Errorf("expected main queue created second, got %q", client.created[1])
	}
}

func TestEnsureQueuesRedrivePolicy(t *testing.T) {
	client := newFakeQueueClient()
	p := New(client, config.DefaultConfig(), zerolog.Nop())

	d := testDescriptor("orders")
	d.DeadLetter = contracts.DeadLetterPolicy{Enabled: true, MaxDeliveryAttempts: 3}

	p.EnsureQueues(context.Background(), []contracts.QueueDescriptor{d})

	attrs := client.createAttrs["orders"]
	if attrs["VisibilityTimeout"] != "30" {
		t.Errorf("expected visibility timeout 30, got %q", attrs["VisibilityTimeout"])
	}
	if attrs["ReceiveMessageWaitTimeSeconds"] != "1" {
		t.Errorf("expected wait 1, got %q", attrs["ReceiveMessageWaitTimeSeconds"])
	}

	var policy struct {
		DeadLetterTargetArn string `json:"deadLetterTargetArn"`
		MaxReceiveCount     int    `json:"maxReceiveCount"`
	}
	if err := json.Unmarshal([]byte(attrs["RedrivePolicy"]), &policy); err != nil {
		t.Fatalf("failed to parse redrive policy: %v", err)
	}
	if !strings.HasSuffix(policy.DeadLetterTargetArn, "orders-dlq") {
		t.Errorf("expected DLQ ARN, got %q", policy.DeadLetterTargetArn)
	}
	if policy.MaxReceiveCount != 3 {
		t.Errorf("expected maxReceiveCount 3, got %d", policy.MaxReceiveCount)
	}
}

func TestEnsureQueuesNoDLQ(t *testing.T) {
	client := newFakeQueueClient()
	p := New(client, config.DefaultConfig(), zerolog.Nop())

	p.EnsureQueues(context.Background(), []contracts.QueueDescriptor{testDescriptor("orders")})

	if len(client.created) != 1 {
		t.Fatalf("expected 1 queue created, got %d", len(client.created))
	}
	if _, ok := client.createAttrs["orders"]["RedrivePolicy"]; ok {
		t.Error("expected no redrive policy without a dead-letter policy")
	}
}

func TestEnsureQueuesDLQNameOverride(t *testing.T) {
	client := newFakeQueueClient()
	p := New(client, config.DefaultConfig(), zerolog.Nop())

	d := testDescriptor("orders")
	d.DeadLetter = contracts.DeadLetterPolicy{Enabled: true, MaxDeliveryAttempts: 3, QueueName: "orders-failed"}

	p.EnsureQueues(context.Background(), []contracts.QueueDescriptor{d})

	if client.created[0] != "orders-failed" {
		t.Errorf("expected overridden DLQ name 'orders-failed', got %q", client.created[0])
	}
}

func TestEnsureQueuesPartialFailure(t *testing.T) {
	client := newFakeQueueClient()
	client.failCreate["orders"] = errors.New("backend unavailable")
	p := New(client, config.DefaultConfig(), zerolog.Nop())

	failures := p.EnsureQueues(context.Background(), []contracts.QueueDescriptor{
		testDescriptor("orders"),
		testDescriptor("payments"),
	})

	if len(failures) != 1 {
		t.Fatalf("expected 1 failure, got %d", len(failures))
	}
	if failures[0].Queue != "orders" {
		t.Errorf("expected failure for 'orders', got %q", failures[0].Queue)
	}

	// The second queue must still be provisioned
	found := false
	for _, name := range client.created {
		if name == "payments" {
			found = true
		}
	}
	if !found {
		t.Error("expected 'payments' to be provisioned despite the earlier failure")
	}
}

func TestEnsureQueuesSanitizesNames(t *testing.T) {
	client := newFakeQueueClient()
	p := New(client, config.DefaultConfig(), zerolog.Nop())

	p.EnsureQueues(context.Background(), []contracts.QueueDescriptor{testDescriptor("orders.incoming")})

	if len(client.created) != 1 || client.created[0] != "orders-incoming" {
		t.Errorf("expected sanitized queue name 'orders-incoming', got %v", client.created)
	}
}

func TestEnsureQueuesAutoCreateDisabled(t *testing.T) {
	client := newFakeQueueClient()
	p := New(client, config.DefaultConfig(), zerolog.Nop())

	d := testDescriptor("orders")
	d.AutoCreate = false

	failures := p.EnsureQueues(context.Background(), []contracts.QueueDescriptor{d})
	if len(failures) != 0 {
		t.Fatalf("expected no failures, got %v", failures)
	}
	if len(client.created) != 0 {
		t.Errorf("expected no queues created, got %v", client.created)
	}
	if client.infoCalls != 1 {
		t.Errorf("expected existing queue to be resolved once, got %d lookups", client.infoCalls)
	}
}

func TestHandleCaching(t *testing.T) {
	client := newFakeQueueClient()
	p := New(client, config.DefaultConfig(), zerolog.Nop())
	ctx := context.Background()

	first, err := p.Handle(ctx, "orders")
	if err != nil {
		t.Fatalf("handle failed: %v", err)
	}
	second, err := p.Handle(ctx, "orders")
	if err != nil {
		t.Fatalf("handle failed: %v", err)
	}

	if first != second {
		t.Error("expected identical handles from cache")
	}
	if client.infoCalls != 1 {
		t.Errorf("expected 1 backend lookup, got %d", client.infoCalls)
	}
}

func TestHandlePrefixed(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.SQS.Prefix = "dev"
	client := newFakeQueueClient()
	p := New(client, cfg, zerolog.Nop())

	handle, err := p.Handle(context.Background(), "orders")
	if err != nil {
		t.Fatalf("handle failed: %v", err)
	}
	if handle.Name != "dev-orders" {
		t.Errorf("expected backend name 'dev-orders', got %q", handle.Name)
	}
}
