package sqsoffline

import (
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/civocr/serverless-offline-localstack-sqs/internal/config"
)

// Options holds all configuration options for the client.
type Options struct {
	config             *config.Config
	logger             zerolog.Logger
	loggerSet          bool
	redisClient        *redis.Client
	db                 *gorm.DB
	prometheusRegistry prometheus.Registerer
	resources          map[string]any
}

// Option is a function that configures the client.
type Option func(*Options)

// WithConfig replaces the default configuration wholesale. Options applied
// after this one mutate the given config.
func WithConfig(cfg *config.Config) Option {
	return func(o *Options) {
		if cfg != nil {
			o.config = cfg
		}
	}
}

// WithAWSCredentials sets the AWS access key and secret key. LocalStack
// accepts any non-empty pair, so the defaults work unless the target
// endpoint validates credentials.
func WithAWSCredentials(accessKeyID, secretAccessKey string) Option {
	return func(o *Options) {
		o.config.AWS.AccessKeyID = accessKeyID
		o.config.AWS.SecretAccessKey = secretAccessKey
	}
}

// WithAWSRegion sets the AWS region.
func WithAWSRegion(region string) Option {
	return func(o *Options) {
		o.config.AWS.Region = region
	}
}

// WithAWSEndpoint sets the queue backend endpoint URL.
// Defaults to the standard LocalStack edge port.
//
// Example:
//
//	client, err := sqsoffline.New(
//	    sqsoffline.WithAWSEndpoint("http://localhost:4566"),
//	)
func WithAWSEndpoint(endpoint string) Option {
	return func(o *Options) {
		o.config.AWS.Endpoint = endpoint
	}
}

// WithQueuePrefix sets the prefix for all backend queue names. This is
// typically the stage or service name, giving each local stack its own
// namespace.
//
// Example:
//
//	client, err := sqsoffline.New(
//	    sqsoffline.WithQueuePrefix("dev-orders"),
//	)
//
// This provisions queues like "dev-orders-my-queue" instead of "my-queue".
func WithQueuePrefix(prefix string) Option {
	return func(o *Options) {
		o.config.SQS.Prefix = prefix
	}
}

// WithLogger sets a custom zerolog logger.
//
// Example:
//
//	logger := zerolog.New(os.Stderr).With().Timestamp().Logger()
//	client, err := sqsoffline.New(
//	    sqsoffline.WithLogger(logger),
//	)
func WithLogger(logger zerolog.Logger) Option {
	return func(o *Options) {
		o.logger = logger
		o.loggerSet = true
	}
}

// WithRedis configures Redis as the shared queue-handle cache. Without Redis
// an in-process cache is used, which is fine for a single emulator process.
//
// Example:
//
//	client, err := sqsoffline.New(
//	    sqsoffline.WithRedis("localhost:6379", "", 0),
//	)
func WithRedis(addr, password string, db int) Option {
	return func(o *Options) {
		o.redisClient = redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: password,
			DB:       db,
		})
		o.config.Redis.Enabled = true
	}
}

// WithRedisClient sets a pre-configured Redis client for the handle cache.
func WithRedisClient(client *redis.Client) Option {
	return func(o *Options) {
		o.redisClient = client
		o.config.Redis.Enabled = client != nil
	}
}

// WithDatabase sets the GORM database connection for the delivery journal.
// Redriven and exhausted messages are recorded there for later inspection.
//
// Example:
//
//	db, _ := gorm.Open(sqlite.Open("sqsoffline.db"), &gorm.Config{})
//	client, err := sqsoffline.New(
//	    sqsoffline.WithDatabase(db),
//	)
func WithDatabase(db *gorm.DB) Option {
	return func(o *Options) {
		o.db = db
	}
}

// WithQueue declares one queue bound to a handler reference. Call multiple
// times for multiple queues.
//
// Example:
//
//	client, err := sqsoffline.New(
//	    sqsoffline.WithQueue("orders", "orders.handler"),
//	    sqsoffline.WithQueue("emails", "emails.handler"),
//	)
func WithQueue(name, handler string) Option {
	return func(o *Options) {
		o.config.Queues = append(o.config.Queues, config.QueueConfig{
			Name:    name,
			Handler: handler,
		})
	}
}

// WithQueueConfig declares one queue with full per-queue settings.
func WithQueueConfig(qc config.QueueConfig) Option {
	return func(o *Options) {
		o.config.Queues = append(o.config.Queues, qc)
	}
}

// WithResources ingests an infrastructure template's resource section.
// Resources of type AWS::SQS::Queue become queue declarations; their redrive
// policies are honored, including references to sibling queue resources.
// Queues declared this way have no handler and are provision-only unless a
// WithQueue entry with the same name binds one.
func WithResources(resources map[string]any) Option {
	return func(o *Options) {
		o.resources = resources
	}
}

// WithAutoCreate controls whether declared queues are created on the backend
// at startup. When disabled, queues must already exist. Default is true.
func WithAutoCreate(enabled bool) Option {
	return func(o *Options) {
		o.config.SQS.AutoCreate = enabled
	}
}

// WithVisibilityTimeout sets the default visibility timeout in seconds.
// Default is 30 seconds.
func WithVisibilityTimeout(seconds int) Option {
	return func(o *Options) {
		o.config.SQS.VisibilityTimeout = seconds
	}
}

// WithLongPollingWait sets the receive wait time in seconds. Default is 1
// second, which keeps local polls responsive. Maximum is 20 seconds.
func WithLongPollingWait(seconds int) Option {
	return func(o *Options) {
		if seconds > 20 {
			seconds = 20
		}
		o.config.SQS.LongPollingWait = seconds
	}
}

// WithMaxDeliveryAttempts sets the default number of receives before a
// failing message is redriven to its DLQ. Default is 3.
func WithMaxDeliveryAttempts(count int) Option {
	return func(o *Options) {
		o.config.SQS.MaxDeliveryAttempts = count
	}
}

// WithPollInterval sets the interval between scheduled pulls on every queue.
// The first pull always happens immediately. Default is 1 second.
func WithPollInterval(interval time.Duration) Option {
	return func(o *Options) {
		if interval > 0 {
			o.config.Poller.Interval = interval
		}
	}
}

// WithBatchSize sets the default maximum messages per receive call.
// Default is 10, which is also the backend maximum.
func WithBatchSize(size int) Option {
	return func(o *Options) {
		if size > 10 {
			size = 10
		}
		if size < 1 {
			size = 1
		}
		o.config.Poller.BatchSize = size
	}
}

// WithConcurrencyLimit bounds simultaneous handler executions per queue.
// Default is 10.
func WithConcurrencyLimit(limit int) Option {
	return func(o *Options) {
		if limit < 1 {
			limit = 1
		}
		o.config.Poller.Concurrency = limit
	}
}

// WithHandlerTimeout sets the default handler deadline in seconds.
// Default is 6 seconds, matching the managed runtime's default.
func WithHandlerTimeout(seconds int) Option {
	return func(o *Options) {
		if seconds > 0 {
			o.config.Handler.TimeoutSeconds = seconds
		}
	}
}

// WithSkipCacheInvalidation keeps resolved handlers cached between
// invocations instead of reloading them on every delivery.
func WithSkipCacheInvalidation(skip bool) Option {
	return func(o *Options) {
		o.config.Handler.SkipCacheInvalidation = skip
	}
}

// WithFunctionVersion sets the function version marker exposed to handlers.
// Default is "$LATEST".
func WithFunctionVersion(version string) Option {
	return func(o *Options) {
		if version != "" {
			o.config.Handler.Version = version
		}
	}
}

// WithCloudWatchMetrics enables pushing poller metrics to CloudWatch (the
// LocalStack CloudWatch backend, for a local endpoint).
//
// Example:
//
//	client, err := sqsoffline.New(
//	    sqsoffline.WithCloudWatchMetrics(true, "MyApp/Offline"),
//	)
func WithCloudWatchMetrics(enabled bool, namespace string) Option {
	return func(o *Options) {
		o.config.SQS.CloudWatch.Enabled = enabled
		if namespace != "" {
			o.config.SQS.CloudWatch.Namespace = namespace
		}
	}
}

// WithPrometheusMetrics enables Prometheus metrics. When enabled, use
// client.MetricsHandler() to get the HTTP handler and mount it on your own
// server.
//
// Example:
//
//	client, err := sqsoffline.New(
//	    sqsoffline.WithPrometheusMetrics(true, "myapp_offline"),
//	)
//	http.Handle("/metrics", client.MetricsHandler())
func WithPrometheusMetrics(enabled bool, namespace string) Option {
	return func(o *Options) {
		o.config.SQS.Prometheus.Enabled = enabled
		if namespace != "" {
			o.config.SQS.Prometheus.Namespace = namespace
		}
	}
}

// WithPrometheusRegistry sets a custom Prometheus registry for metrics
// registration. Without it the default global registry is used.
func WithPrometheusRegistry(registry prometheus.Registerer) Option {
	return func(o *Options) {
		o.prometheusRegistry = registry
	}
}
