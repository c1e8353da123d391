package sqsoffline

import (
	"testing"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/civocr/serverless-offline-localstack-sqs/internal/config"
)

func TestWithAWSCredentials(t *testing.T) {
	opts := &Options{config: defaultTestConfig()}

	WithAWSCredentials("test-access-key", "test-secret-key")(opts)

	if opts.config.AWS.AccessKeyID != "test-access-key" {
		t.Errorf("expected AccessKeyID 'test-access-key', got '%s'", opts.config.AWS.AccessKeyID)
	}
	if opts.config.AWS.SecretAccessKey != "test-secret-key" {
		t.Errorf("expected SecretAccessKey 'test-secret-key', got '%s'", opts.config.AWS.SecretAccessKey)
	}
}

func TestWithAWSRegion(t *testing.T) {
	opts := &Options{config: defaultTestConfig()}

	WithAWSRegion("eu-west-1")(opts)

	if opts.config.AWS.Region != "eu-west-1" {
		t.Errorf("expected Region 'eu-west-1', got '%s'", opts.config.AWS.Region)
	}
}

func TestWithAWSEndpoint(t *testing.T) {
	opts := &Options{config: defaultTestConfig()}

	WithAWSEndpoint("http://localhost:4566")(opts)

	if opts.config.AWS.Endpoint != "http://localhost:4566" {
		t.Errorf("expected Endpoint 'http://localhost:4566', got '%s'", opts.config.AWS.Endpoint)
	}
}

func TestWithQueuePrefix(t *testing.T) {
	opts := &Options{config: defaultTestConfig()}

	WithQueuePrefix("dev")(opts)

	if opts.config.SQS.Prefix != "dev" {
		t.Errorf("expected Prefix 'dev', got '%s'", opts.config.SQS.Prefix)
	}
}

func TestWithQueue(t *testing.T) {
	opts := &Options{config: defaultTestConfig()}

	WithQueue("orders", "orders.handler")(opts)
	WithQueue("emails", "emails.handler")(opts)

	if len(opts.config.Queues) != 2 {
		t.Fatalf("expected 2 queue entries, got %d", len(opts.config.Queues))
	}
	if opts.config.Queues[0].Name != "orders" || opts.config.Queues[0].Handler != "orders.handler" {
		t.Errorf("unexpected first entry: %+v", opts.config.Queues[0])
	}
	if opts.config.Queues[1].Name != "emails" || opts.config.Queues[1].Handler != "emails.handler" {
		t.Errorf("unexpected second entry: %+v", opts.config.Queues[1])
	}
}

func TestWithQueueConfig(t *testing.T) {
	opts := &Options{config: defaultTestConfig()}

	WithQueueConfig(config.QueueConfig{
		Name:        "payments",
		Handler:     "payments.handler",
		BatchSize:   5,
		DeadLetter:  true,
		MaxAttempts: 5,
	})(opts)

	if len(opts.config.Queues) != 1 {
		t.Fatalf("expected 1 queue entry, got %d", len(opts.config.Queues))
	}
	q := opts.config.Queues[0]
	if q.BatchSize != 5 {
		t.Errorf("expected BatchSize 5, got %d", q.BatchSize)
	}
	if !q.DeadLetter || q.MaxAttempts != 5 {
		t.Errorf("expected dead-letter with 5 attempts, got %+v", q)
	}
}

func TestWithVisibilityTimeout(t *testing.T) {
	opts := &Options{config: defaultTestConfig()}

	WithVisibilityTimeout(60)(opts)

	if opts.config.SQS.VisibilityTimeout != 60 {
		t.Errorf("expected VisibilityTimeout 60, got %d", opts.config.SQS.VisibilityTimeout)
	}
}

func TestWithLongPollingWait(t *testing.T) {
	tests := []struct {
		name     string
		input    int
		expected int
	}{
		{"normal value", 10, 10},
		{"max value", 20, 20},
		{"over max", 30, 20},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := &Options{config: defaultTestConfig()}
			WithLongPollingWait(tt.input)(opts)

			if opts.config.SQS.LongPollingWait != tt.expected {
				t.Errorf("expected LongPollingWait %d, got %d", tt.expected, opts.config.SQS.LongPollingWait)
			}
		})
	}
}

func TestWithMaxDeliveryAttempts(t *testing.T) {
	opts := &Options{config: defaultTestConfig()}

	WithMaxDeliveryAttempts(5)(opts)

	if opts.config.SQS.MaxDeliveryAttempts != 5 {
		t.Errorf("expected MaxDeliveryAttempts 5, got %d", opts.config.SQS.MaxDeliveryAttempts)
	}
}

func TestWithPollInterval(t *testing.T) {
	tests := []struct {
		name     string
		input    time.Duration
		expected time.Duration
	}{
		{"normal value", 5 * time.Second, 5 * time.Second},
		{"zero keeps default", 0, time.Second},
		{"negative keeps default", -time.Second, time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := &Options{config: defaultTestConfig()}
			WithPollInterval(tt.input)(opts)

			if opts.config.Poller.Interval != tt.expected {
				t.Errorf("expected Interval %v, got %v", tt.expected, opts.config.Poller.Interval)
			}
		})
	}
}

func TestWithBatchSize(t *testing.T) {
	tests := []struct {
		name     string
		input    int
		expected int
	}{
		{"normal value", 5, 5},
		{"max value", 10, 10},
		{"over max", 15, 10},
		{"zero", 0, 1},
		{"negative", -1, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := &Options{config: defaultTestConfig()}
			WithBatchSize(tt.input)(opts)

			if opts.config.Poller.BatchSize != tt.expected {
				t.Errorf("expected BatchSize %d, got %d", tt.expected, opts.config.Poller.BatchSize)
			}
		})
	}
}

func TestWithConcurrencyLimit(t *testing.T) {
	tests := []struct {
		name     string
		input    int
		expected int
	}{
		{"normal value", 4, 4},
		{"zero", 0, 1},
		{"negative", -3, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := &Options{config: defaultTestConfig()}
			WithConcurrencyLimit(tt.input)(opts)

			if opts.config.Poller.Concurrency != tt.expected {
				t.Errorf("expected Concurrency %d, got %d", tt.expected, opts.config.Poller.Concurrency)
			}
		})
	}
}

func TestWithHandlerTimeout(t *testing.T) {
	opts := &Options{config: defaultTestConfig()}

	WithHandlerTimeout(30)(opts)

	if opts.config.Handler.TimeoutSeconds != 30 {
		t.Errorf("expected TimeoutSeconds 30, got %d", opts.config.Handler.TimeoutSeconds)
	}

	WithHandlerTimeout(0)(opts)

	if opts.config.Handler.TimeoutSeconds != 30 {
		t.Errorf("expected zero to be ignored, got %d", opts.config.Handler.TimeoutSeconds)
	}
}

func TestWithSkipCacheInvalidation(t *testing.T) {
	opts := &Options{config: defaultTestConfig()}

	WithSkipCacheInvalidation(true)(opts)

	if !opts.config.Handler.SkipCacheInvalidation {
		t.Error("expected SkipCacheInvalidation to be true")
	}
}

func TestWithFunctionVersion(t *testing.T) {
	opts := &Options{config: defaultTestConfig()}

	WithFunctionVersion("42")(opts)

	if opts.config.Handler.Version != "42" {
		t.Errorf("expected Version '42', got '%s'", opts.config.Handler.Version)
	}

	WithFunctionVersion("")(opts)

	if opts.config.Handler.Version != "42" {
		t.Errorf("expected empty version to be ignored, got '%s'", opts.config.Handler.Version)
	}
}

func TestWithCloudWatchMetrics(t *testing.T) {
	tests := []struct {
		name              string
		enabled           bool
		namespace         string
		expectedEnabled   bool
		expectedNamespace string
	}{
		{"enabled with namespace", true, "MyApp/Offline", true, "MyApp/Offline"},
		{"disabled", false, "", false, "SQSOffline"}, // default namespace preserved
		{"enabled empty namespace", true, "", true, "SQSOffline"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := &Options{config: defaultTestConfig()}
			WithCloudWatchMetrics(tt.enabled, tt.namespace)(opts)

			if opts.config.SQS.CloudWatch.Enabled != tt.expectedEnabled {
				t.Errorf("expected Enabled %v, got %v", tt.expectedEnabled, opts.config.SQS.CloudWatch.Enabled)
			}
			if opts.config.SQS.CloudWatch.Namespace != tt.expectedNamespace {
				t.Errorf("expected Namespace '%s', got '%s'", tt.expectedNamespace, opts.config.SQS.CloudWatch.Namespace)
			}
		})
	}
}

func TestWithPrometheusMetrics(t *testing.T) {
	opts := &Options{config: defaultTestConfig()}

	WithPrometheusMetrics(true, "myapp_offline")(opts)

	if !opts.config.SQS.Prometheus.Enabled {
		t.Error("expected Prometheus.Enabled to be true")
	}
	if opts.config.SQS.Prometheus.Namespace != "myapp_offline" {
		t.Errorf("expected Namespace 'myapp_offline', got '%s'", opts.config.SQS.Prometheus.Namespace)
	}
}

func TestWithRedis(t *testing.T) {
	opts := &Options{config: defaultTestConfig()}

	WithRedis("localhost:6379", "password", 1)(opts)

	if opts.redisClient == nil {
		t.Error("expected redisClient to be set")
	}
	if !opts.config.Redis.Enabled {
		t.Error("expected Redis.Enabled to be true")
	}
}

func TestWithRedisClient(t *testing.T) {
	opts := &Options{config: defaultTestConfig()}
	redisClient := redis.NewClient(&redis.Options{
		Addr: "localhost:6379",
	})

	WithRedisClient(redisClient)(opts)

	if opts.redisClient != redisClient {
		t.Error("expected redisClient to match provided client")
	}
	if !opts.config.Redis.Enabled {
		t.Error("expected Redis.Enabled to be true")
	}
}

func TestWithResources(t *testing.T) {
	opts := &Options{config: defaultTestConfig()}
	resources := map[string]any{
		"OrdersQueue": map[string]any{
			"Type": "AWS::SQS::Queue",
		},
	}

	WithResources(resources)(opts)

	if len(opts.resources) != 1 {
		t.Errorf("expected 1 resource, got %d", len(opts.resources))
	}
}

func TestWithConfig(t *testing.T) {
	opts := &Options{config: defaultTestConfig()}
	custom := config.DefaultConfig()
	custom.SQS.Prefix = "custom"

	WithConfig(custom)(opts)

	if opts.config != custom {
		t.Error("expected config to be replaced")
	}

	WithConfig(nil)(opts)

	if opts.config != custom {
		t.Error("expected nil config to be ignored")
	}
}

func TestBuildDescriptorsMergesResources(t *testing.T) {
	cfg := defaultTestConfig()
	cfg.Queues = []config.QueueConfig{
		{Name: "orders", Handler: "orders.handler"},
	}
	resources := map[string]any{
		"OrdersQueue": map[string]any{
			"Type": "AWS::SQS::Queue",
			"Properties": map[string]any{
				"QueueName": "orders",
			},
		},
		"AuditQueue": map[string]any{
			"Type": "AWS::SQS::Queue",
			"Properties": map[string]any{
				"QueueName": "audit",
			},
		},
	}

	descs := buildDescriptors(cfg, resources)

	if len(descs) != 2 {
		t.Fatalf("expected 2 descriptors, got %d", len(descs))
	}
	byName := make(map[string]QueueDescriptor, len(descs))
	for _, d := range descs {
		byName[d.Name] = d
	}
	if byName["orders"].Handler != "orders.handler" {
		t.Errorf("declared entry should win the name collision, got handler %q", byName["orders"].Handler)
	}
	if byName["audit"].Handler != "" {
		t.Errorf("resource-only queue should have no handler, got %q", byName["audit"].Handler)
	}
}

// Helper to create default test config
func defaultTestConfig() *config.Config {
	return config.DefaultConfig()
}
