// Package sqsoffline emulates a queue-backed function runtime for local
// development. It provisions the queues a service declares (with their
// dead-letter queues), polls them against an SQS-compatible backend such as
// LocalStack, and invokes registered handlers with the same event shape,
// context and deadline semantics the managed service provides.
//
// Basic usage:
//
//	client, err := sqsoffline.New(
//	    sqsoffline.WithAWSEndpoint("http://localhost:4566"),
//	    sqsoffline.WithQueuePrefix("dev"),
//	    sqsoffline.WithQueue("orders", "orders.handler"),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	client.RegisterHandler("orders.handler", func(ctx context.Context, event events.SQSEvent) error {
//	    for _, record := range event.Records {
//	        // process record.Body
//	    }
//	    return nil
//	})
//
//	if err := client.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	<-ctx.Done()
//	client.Stop()
package sqsoffline

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"sync"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/civocr/serverless-offline-localstack-sqs/internal/config"
	"github.com/civocr/serverless-offline-localstack-sqs/internal/contracts"
	sqsdriver "github.com/civocr/serverless-offline-localstack-sqs/internal/drivers/sqs"
	"github.com/civocr/serverless-offline-localstack-sqs/internal/engine"
	"github.com/civocr/serverless-offline-localstack-sqs/internal/invoker"
	"github.com/civocr/serverless-offline-localstack-sqs/internal/metrics"
	"github.com/civocr/serverless-offline-localstack-sqs/internal/provision"
	"github.com/civocr/serverless-offline-localstack-sqs/internal/storage"
	"github.com/civocr/serverless-offline-localstack-sqs/pkg/envelope"
)

// FailureRecord is one delivery-journal row: a message that was redriven to
// a DLQ or exhausted its retry budget without one.
type FailureRecord = storage.DeliveryRecord

// Client is the emulator entry point. It owns the provisioner, the handler
// registry and the delivery engine.
type Client struct {
	config           *config.Config
	sqsClient        *sqs.Client
	cloudwatchClient *cloudwatch.Client
	redisClient      *redis.Client
	db               *gorm.DB
	logger           zerolog.Logger

	driver      *sqsdriver.Client
	provisioner *provision.Provisioner
	registry    *invoker.Registry
	invoker     *invoker.Invoker
	metrics     metrics.Provider
	journal     *storage.Journal
	engine      *engine.Engine

	descriptors []contracts.QueueDescriptor

	mu      sync.RWMutex
	started bool
	closed  bool
}

// New creates a new emulator client with the provided options.
//
// Example:
//
//	client, err := sqsoffline.New(
//	    sqsoffline.WithAWSEndpoint("http://localhost:4566"),
//	    sqsoffline.WithQueue("orders", "orders.handler"),
//	    sqsoffline.WithQueue("emails", "emails.handler"),
//	)
func New(opts ...Option) (*Client, error) {
	cfg := config.DefaultConfig()
	options := &Options{
		config: cfg,
	}
	for _, opt := range opts {
		opt(options)
	}
	cfg = options.config

	logger := options.logger
	if !options.loggerSet {
		logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	}

	ctx := context.Background()

	// Handle cache: Redis when configured, in-process otherwise
	var cache contracts.Cache
	if options.redisClient != nil {
		if err := options.redisClient.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrRedisConnectionFailed, err)
		}
		cache = storage.NewRedisCache(options.redisClient, "sqsoffline")
		logger.Info().Msg("Redis connection verified")
	} else {
		cache = storage.NewMemoryCache()
	}

	awsOpts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.AWS.Region),
	}
	if cfg.AWS.AccessKeyID != "" && cfg.AWS.SecretAccessKey != "" {
		awsOpts = append(awsOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(
				cfg.AWS.AccessKeyID,
				cfg.AWS.SecretAccessKey,
				"",
			),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	var sqsClient *sqs.Client
	var cloudwatchClient *cloudwatch.Client
	if cfg.AWS.Endpoint != "" {
		sqsClient = sqs.NewFromConfig(awsCfg, func(o *sqs.Options) {
			o.BaseEndpoint = &cfg.AWS.Endpoint
		})
		cloudwatchClient = cloudwatch.NewFromConfig(awsCfg, func(o *cloudwatch.Options) {
			o.BaseEndpoint = &cfg.AWS.Endpoint
		})
	} else {
		sqsClient = sqs.NewFromConfig(awsCfg)
		cloudwatchClient = cloudwatch.NewFromConfig(awsCfg)
	}

	client := &Client{
		config:           cfg,
		sqsClient:        sqsClient,
		cloudwatchClient: cloudwatchClient,
		redisClient:      options.redisClient,
		db:               options.db,
		logger:           logger,
	}

	client.driver = sqsdriver.NewClient(sqsClient, cache, logger)
	client.provisioner = provision.New(client.driver, cfg, logger)
	client.registry = invoker.NewRegistry()
	client.invoker = invoker.New(client.registry, invoker.Config{
		Region:                cfg.AWS.Region,
		Version:               cfg.Handler.Version,
		DefaultTimeout:        cfg.GetHandlerTimeout(),
		SkipCacheInvalidation: cfg.Handler.SkipCacheInvalidation,
	}, logger)

	factory := metrics.NewFactoryFromConfig(cfg, cloudwatchClient, logger)
	if options.prometheusRegistry != nil {
		factory.WithPrometheusRegistry(options.prometheusRegistry)
	}
	client.metrics = factory.Create()
	if cp, ok := client.metrics.(metrics.CollectorProvider); ok {
		if err := cp.Register(); err != nil {
			logger.Warn().Err(err).Msg("Failed to register Prometheus metrics")
		}
	}

	if client.db != nil {
		client.journal = storage.NewJournal(client.db, logger)
		if err := client.journal.AutoMigrate(); err != nil {
			logger.Warn().Err(err).Msg("Failed to auto-migrate delivery journal")
		}
	}

	client.engine = engine.New(engine.Config{
		Client:         client.driver,
		Invoker:        client.invoker,
		Resolver:       client.provisioner,
		Metrics:        client.metrics,
		Journal:        client.journal,
		Region:         cfg.AWS.Region,
		DefaultTimeout: cfg.GetHandlerTimeout(),
		Logger:         logger,
	})

	client.descriptors = buildDescriptors(cfg, options.resources)

	return client, nil
}

// buildDescriptors merges declared queue entries with queues extracted from
// an infrastructure template. Declared entries win on name collisions so an
// explicit handler binding always takes effect.
func buildDescriptors(cfg *config.Config, resources map[string]any) []contracts.QueueDescriptor {
	descs := cfg.Descriptors()

	if len(resources) > 0 {
		declared := make(map[string]bool, len(descs))
		for _, d := range descs {
			declared[d.Name] = true
		}
		for _, d := range provision.DescriptorsFromResources(cfg, resources) {
			if !declared[d.Name] {
				descs = append(descs, d)
			}
		}
	}
	return descs
}

// RegisterHandler binds a handler function to a reference. Queues declared
// with that reference deliver their messages to it.
//
// Example:
//
//	client.RegisterHandler("orders.handler", func(ctx context.Context, event events.SQSEvent) error {
//	    for _, record := range event.Records {
//	        // process record.Body
//	    }
//	    return nil
//	})
func (c *Client) RegisterHandler(ref string, handler Handler) {
	c.registry.Register(ref, handler)
}

// EnsureQueues provisions every declared queue, DLQ first where a dead-letter
// policy is present. Queues are attempted independently; the returned error
// joins the per-queue failures.
func (c *Client) EnsureQueues(ctx context.Context) error {
	failures := c.provisioner.EnsureQueues(ctx, c.descriptors)
	if len(failures) == 0 {
		return nil
	}
	errs := make([]error, len(failures))
	for i := range failures {
		errs[i] = &failures[i]
	}
	return errors.Join(errs...)
}

// Start provisions the declared queues and starts a poller for every enabled
// queue that has a handler binding. It returns after the pollers are
// launched; delivery continues until Stop or context cancellation.
func (c *Client) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClientClosed
	}
	if c.started {
		c.mu.Unlock()
		return nil
	}
	c.started = true
	c.mu.Unlock()

	if err := c.EnsureQueues(ctx); err != nil {
		c.logger.Warn().Err(err).Msg("Some queues failed to provision")
	}

	for _, d := range c.descriptors {
		if d.Handler == "" {
			// Provision-only queue (e.g. from an infrastructure template)
			continue
		}
		c.engine.StartPolling(ctx, d)
	}
	return nil
}

// Stop stops all pollers and waits for in-flight deliveries to settle.
func (c *Client) Stop() {
	c.mu.Lock()
	c.started = false
	c.mu.Unlock()

	c.engine.StopAll()
}

// Close stops the engine and releases all resources held by the client.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()

	c.engine.StopAll()

	if c.redisClient != nil {
		c.redisClient.Close()
	}
	return nil
}

// States returns a snapshot of every known poller.
func (c *Client) States() []PollerSnapshot {
	return c.engine.States()
}

// Descriptors returns the resolved queue descriptors, declared entries and
// template-derived ones combined.
func (c *Client) Descriptors() []QueueDescriptor {
	out := make([]QueueDescriptor, len(c.descriptors))
	copy(out, c.descriptors)
	return out
}

// SendMessage sends a raw message body to a declared queue. Useful for
// seeding test traffic through the same transport the pollers use.
func (c *Client) SendMessage(ctx context.Context, queueName, body string) (string, error) {
	handle, err := c.provisioner.Handle(ctx, queueName)
	if err != nil {
		return "", err
	}
	return c.driver.SendMessage(ctx, handle, body, nil)
}

// QueueDepth returns the approximate number of messages in a queue.
func (c *Client) QueueDepth(ctx context.Context, queueName string) (int64, error) {
	handle, err := c.provisioner.Handle(ctx, queueName)
	if err != nil {
		return 0, err
	}
	return c.driver.QueueDepth(ctx, handle)
}

// Status returns the queue and DLQ depths for one declared queue.
func (c *Client) Status(ctx context.Context, desc QueueDescriptor) (QueueStatus, error) {
	handle, err := c.provisioner.Handle(ctx, desc.Name)
	if err != nil {
		return QueueStatus{}, err
	}
	depth, err := c.driver.QueueDepth(ctx, handle)
	if err != nil {
		return QueueStatus{}, err
	}

	status := QueueStatus{
		QueueName:    desc.Name,
		QueueURL:     handle.URL,
		MessageCount: depth,
	}

	if desc.DeadLetter.Enabled {
		dlqHandle, err := c.provisioner.Handle(ctx, c.provisioner.DLQName(desc))
		if err == nil {
			if dlqDepth, err := c.driver.QueueDepth(ctx, dlqHandle); err == nil {
				status.DLQMessageCount = dlqDepth
			}
		}
	}
	return status, nil
}

// InspectDLQ retrieves up to limit messages from a queue's DLQ without
// removing them. The messages become visible again after the visibility
// timeout.
func (c *Client) InspectDLQ(ctx context.Context, desc QueueDescriptor, limit int) ([]Message, error) {
	dlqHandle, err := c.provisioner.Handle(ctx, c.provisioner.DLQName(desc))
	if err != nil {
		return nil, err
	}

	var out []Message
	for len(out) < limit {
		batch := limit - len(out)
		if batch > 10 {
			batch = 10
		}
		msgs, err := c.driver.ReceiveMessages(ctx, dlqHandle, batch, 30, 0)
		if err != nil {
			return nil, err
		}
		if len(msgs) == 0 {
			break
		}
		out = append(out, msgs...)
	}
	return out, nil
}

// ReplayDLQ moves up to limit messages from a queue's DLQ back onto the main
// queue. Envelope-wrapped messages are unwrapped so the handler sees the
// original body again. Returns how many messages were replayed.
func (c *Client) ReplayDLQ(ctx context.Context, desc QueueDescriptor, limit int) (int, error) {
	handle, err := c.provisioner.Handle(ctx, desc.Name)
	if err != nil {
		return 0, err
	}
	dlqHandle, err := c.provisioner.Handle(ctx, c.provisioner.DLQName(desc))
	if err != nil {
		return 0, err
	}

	replayed := 0
	for replayed < limit {
		batch := limit - replayed
		if batch > 10 {
			batch = 10
		}
		msgs, err := c.driver.ReceiveMessages(ctx, dlqHandle, batch, 30, 0)
		if err != nil {
			return replayed, err
		}
		if len(msgs) == 0 {
			break
		}

		for _, msg := range msgs {
			body := msg.Body
			if env, err := envelope.Parse(msg.Body); err == nil {
				body = env.OriginalMessage
			}

			if _, err := c.driver.SendMessage(ctx, handle, body, nil); err != nil {
				c.logger.Error().
					Str("message_id", msg.ID).
					Err(err).
					Msg("Failed to replay message")
				continue
			}
			if err := c.driver.DeleteMessage(ctx, dlqHandle, msg.ReceiptHandle); err != nil {
				c.logger.Error().
					Str("message_id", msg.ID).
					Err(err).
					Msg("Failed to delete replayed message from DLQ")
				continue
			}
			replayed++
		}
	}
	return replayed, nil
}

// RecentFailures returns the most recent delivery-journal rows for a queue.
// An empty queue name returns rows across all queues.
func (c *Client) RecentFailures(ctx context.Context, queueName string, limit int) ([]FailureRecord, error) {
	if c.journal == nil {
		return nil, ErrJournalNotConfigured
	}
	return c.journal.Recent(ctx, queueName, limit)
}

// CleanupJournal removes delivery-journal rows older than the given number
// of days and returns how many were deleted.
func (c *Client) CleanupJournal(ctx context.Context, olderThanDays int) (int64, error) {
	if c.journal == nil {
		return 0, ErrJournalNotConfigured
	}
	return c.journal.Cleanup(ctx, olderThanDays)
}

// MetricsHandler returns the HTTP handler for the Prometheus metrics
// endpoint, or nil when Prometheus metrics are not enabled.
//
// Example:
//
//	http.Handle("/metrics", client.MetricsHandler())
//	http.ListenAndServe(":8080", nil)
func (c *Client) MetricsHandler() http.Handler {
	if hp, ok := c.metrics.(metrics.HTTPProvider); ok {
		return hp.Handler()
	}
	return nil
}
