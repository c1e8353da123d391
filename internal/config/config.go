// Package config provides configuration management for the delivery emulator.
// Values come from defaults, a .env file, and environment variables; queue
// definitions are merged in by the host before startup.
package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/civocr/serverless-offline-localstack-sqs/internal/contracts"
)

// Config holds all configuration for the emulator.
type Config struct {
	AWS      AWSConfig
	SQS      SQSConfig
	Poller   PollerConfig
	Handler  HandlerConfig
	Queues   []QueueConfig
	Redis    RedisConfig
	Database DatabaseConfig
}

// AWSConfig holds credentials, region and the target endpoint.
type AWSConfig struct {
	AccessKeyID     string `json:"access_key_id" yaml:"access_key_id"`
	SecretAccessKey string `json:"secret_access_key" yaml:"secret_access_key"`
	Region          string `json:"region" yaml:"region"`
	// Endpoint is the SQS-compatible endpoint (LocalStack, ElasticMQ).
	// Empty means the real AWS endpoint for the region.
	Endpoint string `json:"endpoint" yaml:"endpoint"`
}

// SQSConfig holds queue-level defaults applied to descriptors that do not
// override them.
type SQSConfig struct {
	// Prefix for queue names (usually environment like dev, staging, prod)
	Prefix string `json:"prefix" yaml:"prefix"`
	// DLQSuffix is appended to a queue name to derive its DLQ name
	DLQSuffix string `json:"dlq_suffix" yaml:"dlq_suffix"`
	// AutoCreate creates queues (and DLQs) on startup
	AutoCreate bool `json:"auto_create" yaml:"auto_create"`
	// VisibilityTimeout is the default visibility timeout in seconds
	VisibilityTimeout int `json:"visibility_timeout" yaml:"visibility_timeout"`
	// LongPollingWait is the wait time for long polling in seconds
	LongPollingWait int `json:"long_polling_wait" yaml:"long_polling_wait"`
	// MessageRetention is the message retention period in days
	MessageRetention int `json:"message_retention" yaml:"message_retention"`
	// MaxDeliveryAttempts is the default receive count before redrive
	MaxDeliveryAttempts int `json:"max_delivery_attempts" yaml:"max_delivery_attempts"`
	// CloudWatch settings
	CloudWatch CloudWatchConfig `json:"cloudwatch" yaml:"cloudwatch"`
	// Prometheus settings
	Prometheus PrometheusConfig `json:"prometheus" yaml:"prometheus"`
}

// PollerConfig holds the delivery-engine scheduling defaults.
type PollerConfig struct {
	// Interval between scheduled pulls per queue
	Interval time.Duration `json:"interval" yaml:"interval"`
	// BatchSize is the default maximum messages per receive call (1..10)
	BatchSize int `json:"batch_size" yaml:"batch_size"`
	// Concurrency is the default per-queue bound on simultaneous handler runs
	Concurrency int `json:"concurrency" yaml:"concurrency"`
}

// HandlerConfig holds handler execution settings.
type HandlerConfig struct {
	// TimeoutSeconds is the default hard deadline per invocation
	TimeoutSeconds int `json:"timeout_seconds" yaml:"timeout_seconds"`
	// SkipCacheInvalidation keeps resolved handlers cached between
	// invocations instead of reloading them each time
	SkipCacheInvalidation bool `json:"skip_cache_invalidation" yaml:"skip_cache_invalidation"`
	// Version is the function version marker exposed to handlers
	Version string `json:"version" yaml:"version"`
}

// CloudWatchConfig holds CloudWatch metrics settings.
type CloudWatchConfig struct {
	Enabled   bool   `json:"enabled" yaml:"enabled"`
	Namespace string `json:"namespace" yaml:"namespace"`
}

// PrometheusConfig holds Prometheus metrics settings.
type PrometheusConfig struct {
	Enabled   bool   `json:"enabled" yaml:"enabled"`
	Namespace string `json:"namespace" yaml:"namespace"`
	Subsystem string `json:"subsystem" yaml:"subsystem"`
}

// RedisConfig holds Redis connection settings for the shared handle cache.
type RedisConfig struct {
	Enabled  bool   `json:"enabled" yaml:"enabled"`
	Host     string `json:"host" yaml:"host"`
	Port     int    `json:"port" yaml:"port"`
	Password string `json:"password" yaml:"password"`
	DB       int    `json:"db" yaml:"db"`
}

// DatabaseConfig holds delivery-journal database settings.
type DatabaseConfig struct {
	Driver   string `json:"driver" yaml:"driver"` // sqlite, mysql, postgres
	Host     string `json:"host" yaml:"host"`
	Port     int    `json:"port" yaml:"port"`
	Database string `json:"database" yaml:"database"`
	Username string `json:"username" yaml:"username"`
	Password string `json:"password" yaml:"password"`
}

// QueueConfig is one declarative queue entry.
type QueueConfig struct {
	Name              string `json:"name" yaml:"name"`
	Handler           string `json:"handler" yaml:"handler"`
	Disabled          bool   `json:"disabled" yaml:"disabled"`
	BatchSize         int    `json:"batch_size" yaml:"batch_size"`
	Concurrency       int    `json:"concurrency" yaml:"concurrency"`
	VisibilityTimeout int    `json:"visibility_timeout" yaml:"visibility_timeout"`
	LongPollingWait   int    `json:"long_polling_wait" yaml:"long_polling_wait"`
	TimeoutSeconds    int    `json:"timeout_seconds" yaml:"timeout_seconds"`
	DeadLetter        bool   `json:"dead_letter" yaml:"dead_letter"`
	MaxAttempts       int    `json:"max_attempts" yaml:"max_attempts"`
	DLQName           string `json:"dlq_name" yaml:"dlq_name"`
}

// DefaultConfig returns a configuration with sensible local-development
// defaults (LocalStack endpoint, short poll interval).
func DefaultConfig() *Config {
	return &Config{
		AWS: AWSConfig{
			AccessKeyID:     "local",
			SecretAccessKey: "local",
			Region:          "us-east-1",
			Endpoint:        "http://localhost:4566",
		},
		SQS: SQSConfig{
			Prefix:              "",
			DLQSuffix:           "-dlq",
			AutoCreate:          true,
			VisibilityTimeout:   30,
			LongPollingWait:     1,
			MessageRetention:    4,
			MaxDeliveryAttempts: 3,
			CloudWatch: CloudWatchConfig{
				Enabled:   false,
				Namespace: "SQSOffline",
			},
			Prometheus: PrometheusConfig{
				Enabled:   false,
				Namespace: "sqsoffline",
			},
		},
		Poller: PollerConfig{
			Interval:    time.Second,
			BatchSize:   10,
			Concurrency: 10,
		},
		Handler: HandlerConfig{
			TimeoutSeconds:        6,
			SkipCacheInvalidation: false,
			Version:               "$LATEST",
		},
		Redis: RedisConfig{
			Enabled:  false,
			Host:     "localhost",
			Port:     6379,
			Password: "",
			DB:       0,
		},
		Database: DatabaseConfig{
			Driver:   "sqlite",
			Database: "sqsoffline.db",
		},
	}
}

// GetPrefixedQueueName returns the queue name with the environment prefix.
func (c *Config) GetPrefixedQueueName(queueName string) string {
	if c.SQS.Prefix == "" {
		return queueName
	}
	return c.SQS.Prefix + "-" + queueName
}

// GetDLQName returns the dead-letter queue name for a given queue.
func (c *Config) GetDLQName(queueName string) string {
	return queueName + c.SQS.DLQSuffix
}

// GetHandlerTimeout returns the default handler deadline as a duration.
func (c *Config) GetHandlerTimeout() time.Duration {
	return time.Duration(c.Handler.TimeoutSeconds) * time.Second
}

// GetVisibilityTimeout returns the default visibility timeout as a duration.
func (c *Config) GetVisibilityTimeout() time.Duration {
	return time.Duration(c.SQS.VisibilityTimeout) * time.Second
}

// Descriptors converts the configured queue entries into runtime descriptors,
// filling in the global defaults for any field the entry leaves unset.
func (c *Config) Descriptors() []contracts.QueueDescriptor {
	descs := make([]contracts.QueueDescriptor, 0, len(c.Queues))
	for _, q := range c.Queues {
		descs = append(descs, c.Descriptor(q))
	}
	return descs
}

// Descriptor converts a single queue entry into a runtime descriptor.
func (c *Config) Descriptor(q QueueConfig) contracts.QueueDescriptor {
	d := contracts.QueueDescriptor{
		Name:              q.Name,
		Handler:           q.Handler,
		Enabled:           !q.Disabled,
		AutoCreate:        c.SQS.AutoCreate,
		BatchSize:         q.BatchSize,
		ConcurrencyLimit:  q.Concurrency,
		VisibilityTimeout: q.VisibilityTimeout,
		LongPollWait:      q.LongPollingWait,
		RetentionDays:     c.SQS.MessageRetention,
		PollInterval:      c.Poller.Interval,
		HandlerTimeout:    time.Duration(q.TimeoutSeconds) * time.Second,
		DeadLetter: contracts.DeadLetterPolicy{
			Enabled:             q.DeadLetter,
			MaxDeliveryAttempts: q.MaxAttempts,
			QueueName:           q.DLQName,
		},
	}
	if d.BatchSize < 1 {
		d.BatchSize = c.Poller.BatchSize
	}
	if d.BatchSize > 10 {
		d.BatchSize = 10
	}
	if d.ConcurrencyLimit < 1 {
		d.ConcurrencyLimit = c.Poller.Concurrency
	}
	if d.VisibilityTimeout <= 0 {
		d.VisibilityTimeout = c.SQS.VisibilityTimeout
	}
	if d.LongPollWait < 0 {
		d.LongPollWait = 0
	}
	if q.LongPollingWait == 0 {
		d.LongPollWait = c.SQS.LongPollingWait
	}
	if d.DeadLetter.Enabled && d.DeadLetter.MaxDeliveryAttempts < 1 {
		d.DeadLetter.MaxDeliveryAttempts = c.SQS.MaxDeliveryAttempts
	}
	return d
}

// Helper functions using Viper

func getViperString(key, defaultValue string) string {
	if viper.IsSet(key) {
		return viper.GetString(key)
	}
	return defaultValue
}

func getViperBool(key string, defaultValue bool) bool {
	if viper.IsSet(key) {
		return viper.GetBool(key)
	}
	return defaultValue
}

func getViperInt(key string, defaultValue int) int {
	if viper.IsSet(key) {
		return viper.GetInt(key)
	}
	return defaultValue
}

// LoadDotEnv loads environment variables from a .env file using Viper.
func LoadDotEnv() error {
	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AddConfigPath(".")
	viper.AddConfigPath("../")
	viper.AddConfigPath("../../")

	viper.AutomaticEnv()

	// Missing .env file is fine
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return err
		}
	}
	return nil
}

// Load loads configuration from the .env file and environment variables.
func Load() *Config {
	_ = LoadDotEnv()
	return LoadFromViper()
}

// LoadFromViper loads configuration from Viper (after .env is loaded).
func LoadFromViper() *Config {
	cfg := DefaultConfig()

	// AWS config
	cfg.AWS.AccessKeyID = getViperString("AWS_ACCESS_KEY_ID", cfg.AWS.AccessKeyID)
	cfg.AWS.SecretAccessKey = getViperString("AWS_SECRET_ACCESS_KEY", cfg.AWS.SecretAccessKey)
	cfg.AWS.Region = getViperString("AWS_DEFAULT_REGION", cfg.AWS.Region)
	cfg.AWS.Endpoint = getViperString("SQS_ENDPOINT", cfg.AWS.Endpoint)

	// SQS defaults
	cfg.SQS.Prefix = getViperString("SQS_QUEUE_PREFIX", cfg.SQS.Prefix)
	cfg.SQS.DLQSuffix = getViperString("SQS_DLQ_SUFFIX", cfg.SQS.DLQSuffix)
	cfg.SQS.AutoCreate = getViperBool("SQS_AUTO_CREATE", cfg.SQS.AutoCreate)
	cfg.SQS.VisibilityTimeout = getViperInt("SQS_VISIBILITY_TIMEOUT", cfg.SQS.VisibilityTimeout)
	cfg.SQS.LongPollingWait = getViperInt("SQS_LONG_POLLING_WAIT", cfg.SQS.LongPollingWait)
	cfg.SQS.MessageRetention = getViperInt("SQS_MESSAGE_RETENTION", cfg.SQS.MessageRetention)
	cfg.SQS.MaxDeliveryAttempts = getViperInt("SQS_MAX_DELIVERY_ATTEMPTS", cfg.SQS.MaxDeliveryAttempts)

	// Poller defaults
	if ms := getViperInt("POLL_INTERVAL_MS", 0); ms > 0 {
		cfg.Poller.Interval = time.Duration(ms) * time.Millisecond
	}
	cfg.Poller.BatchSize = getViperInt("POLL_BATCH_SIZE", cfg.Poller.BatchSize)
	cfg.Poller.Concurrency = getViperInt("POLL_CONCURRENCY", cfg.Poller.Concurrency)

	// Handler defaults
	cfg.Handler.TimeoutSeconds = getViperInt("HANDLER_TIMEOUT", cfg.Handler.TimeoutSeconds)
	cfg.Handler.SkipCacheInvalidation = getViperBool("HANDLER_SKIP_CACHE_INVALIDATION", cfg.Handler.SkipCacheInvalidation)
	cfg.Handler.Version = getViperString("HANDLER_VERSION", cfg.Handler.Version)

	// CloudWatch
	cfg.SQS.CloudWatch.Enabled = getViperBool("CLOUDWATCH_ENABLED", cfg.SQS.CloudWatch.Enabled)
	if ns := getViperString("CLOUDWATCH_NAMESPACE", ""); ns != "" {
		cfg.SQS.CloudWatch.Namespace = ns
	}

	// Prometheus
	cfg.SQS.Prometheus.Enabled = getViperBool("PROMETHEUS_ENABLED", cfg.SQS.Prometheus.Enabled)
	if ns := getViperString("PROMETHEUS_NAMESPACE", ""); ns != "" {
		cfg.SQS.Prometheus.Namespace = ns
	}

	// Queue entries (format: name:handler,name2:handler2)
	if queues := getViperString("SQS_QUEUES", ""); queues != "" {
		for _, entry := range strings.Split(queues, ",") {
			parts := strings.SplitN(strings.TrimSpace(entry), ":", 2)
			if len(parts) != 2 {
				continue
			}
			cfg.Queues = append(cfg.Queues, QueueConfig{
				Name:       strings.TrimSpace(parts[0]),
				Handler:    strings.TrimSpace(parts[1]),
				DeadLetter: getViperBool("SQS_DEAD_LETTER", false),
			})
		}
	}

	// Redis config
	cfg.Redis.Enabled = getViperBool("REDIS_ENABLED", cfg.Redis.Enabled)
	cfg.Redis.Host = getViperString("REDIS_HOST", cfg.Redis.Host)
	cfg.Redis.Port = getViperInt("REDIS_PORT", cfg.Redis.Port)
	cfg.Redis.Password = getViperString("REDIS_PASSWORD", cfg.Redis.Password)
	cfg.Redis.DB = getViperInt("REDIS_DB", cfg.Redis.DB)

	// Database config
	cfg.Database.Driver = getViperString("DB_CONNECTION", cfg.Database.Driver)
	cfg.Database.Host = getViperString("DB_HOST", cfg.Database.Host)
	cfg.Database.Port = getViperInt("DB_PORT", cfg.Database.Port)
	cfg.Database.Database = getViperString("DB_DATABASE", cfg.Database.Database)
	cfg.Database.Username = getViperString("DB_USERNAME", cfg.Database.Username)
	cfg.Database.Password = getViperString("DB_PASSWORD", cfg.Database.Password)

	return cfg
}
