// Package metrics provides metrics integration for the queue pollers
package metrics

import (
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/civocr/serverless-offline-localstack-sqs/internal/config"
)

// FactoryConfig holds configuration for creating metrics providers
type FactoryConfig struct {
	// CloudWatch configuration
	CloudWatchEnabled   bool
	CloudWatchNamespace string
	CloudWatchClient    *cloudwatch.Client

	// Prometheus configuration
	PrometheusEnabled   bool
	PrometheusNamespace string
	PrometheusSubsystem string
	PrometheusRegistry  prometheus.Registerer

	// Logger
	Logger zerolog.Logger
}

// Factory creates metrics providers based on configuration
type Factory struct {
	config FactoryConfig
}

// NewFactory creates a new metrics factory
func NewFactory(cfg FactoryConfig) *Factory {
	return &Factory{config: cfg}
}

// NewFactoryFromConfig creates a factory from the application config
func NewFactoryFromConfig(cfg *config.Config, cwClient *cloudwatch.Client, logger zerolog.Logger) *Factory {
	return &Factory{
		config: FactoryConfig{
			CloudWatchEnabled:   cfg.SQS.CloudWatch.Enabled,
			CloudWatchNamespace: cfg.SQS.CloudWatch.Namespace,
			CloudWatchClient:    cwClient,
			PrometheusEnabled:   cfg.SQS.Prometheus.Enabled,
			PrometheusNamespace: cfg.SQS.Prometheus.Namespace,
			PrometheusSubsystem: cfg.SQS.Prometheus.Subsystem,
			Logger:              logger,
		},
	}
}

// Create creates a metrics provider based on the factory configuration.
// If both CloudWatch and Prometheus are enabled, returns a CompositeProvider.
// If only one is enabled, returns that specific provider.
// If neither is enabled, returns a NoopProvider.
func (f *Factory) Create() Provider {
	var providers []Provider

	if f.config.CloudWatchEnabled && f.config.CloudWatchClient != nil {
		cwProvider := NewCloudWatchProvider(
			f.config.CloudWatchClient,
			CloudWatchConfig{
				Enabled:   true,
				Namespace: f.config.CloudWatchNamespace,
			},
			f.config.Logger,
		)
		providers = append(providers, cwProvider)
		f.config.Logger.Debug().Msg("CloudWatch metrics provider created")
	}

	if f.config.PrometheusEnabled {
		promProvider := NewPrometheusProvider(f.config.Logger, PrometheusConfig{
			Enabled:   true,
			Namespace: f.config.PrometheusNamespace,
			Subsystem: f.config.PrometheusSubsystem,
			Registry:  f.config.PrometheusRegistry,
		})
		providers = append(providers, promProvider)
		f.config.Logger.Debug().Msg("Prometheus metrics provider created")
	}

	switch len(providers) {
	case 0:
		f.config.Logger.Debug().Msg("No metrics providers enabled, using NoopProvider")
		return NewNoopProvider()
	case 1:
		return providers[0]
	default:
		f.config.Logger.Debug().
			Int("provider_count", len(providers)).
			Msg("Multiple metrics providers enabled, using CompositeProvider")
		return NewCompositeProvider(providers...)
	}
}

// CreatePrometheus creates only a Prometheus provider
func (f *Factory) CreatePrometheus() *PrometheusProvider {
	if !f.config.PrometheusEnabled {
		return nil
	}
	return NewPrometheusProvider(f.config.Logger, PrometheusConfig{
		Enabled:   true,
		Namespace: f.config.PrometheusNamespace,
		Subsystem: f.config.PrometheusSubsystem,
		Registry:  f.config.PrometheusRegistry,
	})
}

// CreateNoop creates a NoopProvider
func (f *Factory) CreateNoop() *NoopProvider {
	return NewNoopProvider()
}

// WithPrometheusRegistry sets a custom Prometheus registry
func (f *Factory) WithPrometheusRegistry(registry prometheus.Registerer) *Factory {
	f.config.PrometheusRegistry = registry
	return f
}

// WithCloudWatchClient sets the CloudWatch client
func (f *Factory) WithCloudWatchClient(client *cloudwatch.Client) *Factory {
	f.config.CloudWatchClient = client
	return f
}
