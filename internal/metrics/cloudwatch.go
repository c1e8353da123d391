// Package metrics provides metrics integration for the queue pollers
package metrics

import (
	"context"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
	"github.com/rs/zerolog"
)

// CloudWatchProvider sends poller metrics to CloudWatch. Against LocalStack
// this lands in the emulated CloudWatch backend, which keeps the local setup
// close to what the managed service reports.
type CloudWatchProvider struct {
	client    *cloudwatch.Client
	namespace string
	logger    zerolog.Logger
	buffer    []types.MetricDatum
	mutex     sync.Mutex
	batchSize int
	enabled   bool
}

// CloudWatchConfig holds configuration for the CloudWatch provider
type CloudWatchConfig struct {
	Enabled   bool
	Namespace string
}

// NewCloudWatchProvider creates a new CloudWatch metrics provider
func NewCloudWatchProvider(client *cloudwatch.Client, cfg CloudWatchConfig, logger zerolog.Logger) *CloudWatchProvider {
	if cfg.Namespace == "" {
		cfg.Namespace = "SQSOffline"
	}
	return &CloudWatchProvider{
		client:    client,
		namespace: cfg.Namespace,
		logger:    logger,
		buffer:    make([]types.MetricDatum, 0),
		batchSize: 20, // CloudWatch max is 20 per request
		enabled:   cfg.Enabled,
	}
}

// Ensure CloudWatchProvider implements Provider interface
var _ Provider = (*CloudWatchProvider)(nil)

// Name returns the provider name
func (s *CloudWatchProvider) Name() string {
	return string(ProviderTypeCloudWatch)
}

// Enabled returns whether CloudWatch metrics are enabled
func (s *CloudWatchProvider) Enabled() bool {
	return s.enabled
}

// PutMetric sends a single metric to CloudWatch
func (s *CloudWatchProvider) PutMetric(ctx context.Context, name string, value float64, unit string, dimensions map[string]string) error {
	if !s.enabled {
		return nil
	}

	metric := s.createMetricDatum(name, value, unit, dimensions)

	_, err := s.client.PutMetricData(ctx, &cloudwatch.PutMetricDataInput{
		Namespace:  aws.String(s.namespace),
		MetricData: []types.MetricDatum{metric},
	})
	if err != nil {
		s.logger.Warn().
			Str("metric", name).
			Err(err).
			Msg("Failed to put CloudWatch metric")
		return err
	}

	s.logger.Debug().
		Str("metric", name).
		Float64("value", value).
		Msg("Put CloudWatch metric")
	return nil
}

// Increment increments a counter metric
func (s *CloudWatchProvider) Increment(ctx context.Context, name string, dimensions map[string]string) error {
	return s.PutMetric(ctx, name, 1.0, "Count", dimensions)
}

// RecordDuration records a duration metric in milliseconds
func (s *CloudWatchProvider) RecordDuration(ctx context.Context, name string, duration float64, dimensions map[string]string) error {
	return s.PutMetric(ctx, name, duration, "Milliseconds", dimensions)
}

// IncPolls increments the poll counter
func (s *CloudWatchProvider) IncPolls(ctx context.Context, queue string) {
	s.Increment(ctx, MetricPolls, map[string]string{"queue": queue})
}

// IncPollErrors increments the poll errors counter
func (s *CloudWatchProvider) IncPollErrors(ctx context.Context, queue string) {
	s.Increment(ctx, MetricPollErrors, map[string]string{"queue": queue})
}

// AddMessagesReceived adds to the messages received counter
func (s *CloudWatchProvider) AddMessagesReceived(ctx context.Context, queue string, count float64) {
	s.PutMetric(ctx, MetricMessagesReceived, count, "Count", map[string]string{"queue": queue})
}

// IncInvocationsSuccess increments the invocation success counter
func (s *CloudWatchProvider) IncInvocationsSuccess(ctx context.Context, queue, handler string) {
	s.Increment(ctx, MetricInvocationsSuccess, map[string]string{
		"queue":   queue,
		"handler": handler,
	})
}

// IncInvocationsFailure increments the invocation failure counter
func (s *CloudWatchProvider) IncInvocationsFailure(ctx context.Context, queue, handler string) {
	s.Increment(ctx, MetricInvocationsFailure, map[string]string{
		"queue":   queue,
		"handler": handler,
	})
}

// IncInvocationTimeouts increments the invocation timeout counter
func (s *CloudWatchProvider) IncInvocationTimeouts(ctx context.Context, queue, handler string) {
	s.Increment(ctx, MetricInvocationTimeouts, map[string]string{
		"queue":   queue,
		"handler": handler,
	})
}

// IncRedrives increments the redrive counter
func (s *CloudWatchProvider) IncRedrives(ctx context.Context, queue string) {
	s.Increment(ctx, MetricRedrives, map[string]string{"queue": queue})
}

// ObserveInvocationDuration records the invocation duration
func (s *CloudWatchProvider) ObserveInvocationDuration(ctx context.Context, queue, handler string, durationMs float64) {
	s.RecordDuration(ctx, MetricInvocationDuration, durationMs, map[string]string{
		"queue":   queue,
		"handler": handler,
	})
}

// SetQueueDepth sets the current queue depth
func (s *CloudWatchProvider) SetQueueDepth(ctx context.Context, queue string, depth float64) {
	s.PutMetric(ctx, MetricQueueDepth, depth, "Count", map[string]string{"queue": queue})
}

// SetDLQDepth sets the current DLQ depth
func (s *CloudWatchProvider) SetDLQDepth(ctx context.Context, queue string, depth float64) {
	s.PutMetric(ctx, MetricDLQDepth, depth, "Count", map[string]string{"queue": queue})
}

// SetInFlight sets the number of running invocations
func (s *CloudWatchProvider) SetInFlight(ctx context.Context, queue string, count float64) {
	s.PutMetric(ctx, MetricInFlight, count, "Count", map[string]string{"queue": queue})
}

// IncInFlight increments the running invocation count
func (s *CloudWatchProvider) IncInFlight(ctx context.Context, queue string) {
	// CloudWatch doesn't support increment for gauges, so we just log
	s.logger.Debug().Str("queue", queue).Msg("IncInFlight called - use SetInFlight for CloudWatch")
}

// DecInFlight decrements the running invocation count
func (s *CloudWatchProvider) DecInFlight(ctx context.Context, queue string) {
	// CloudWatch doesn't support decrement for gauges, so we just log
	s.logger.Debug().Str("queue", queue).Msg("DecInFlight called - use SetInFlight for CloudWatch")
}

// BufferMetric adds a metric to the buffer for batch sending
func (s *CloudWatchProvider) BufferMetric(name string, value float64, unit string, dimensions map[string]string) {
	if !s.enabled {
		return
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	metric := s.createMetricDatum(name, value, unit, dimensions)
	s.buffer = append(s.buffer, metric)
}

// FlushBuffer sends all buffered metrics to CloudWatch
func (s *CloudWatchProvider) FlushBuffer(ctx context.Context) error {
	if !s.enabled {
		return nil
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	if len(s.buffer) == 0 {
		return nil
	}

	for i := 0; i < len(s.buffer); i += s.batchSize {
		end := i + s.batchSize
		if end > len(s.buffer) {
			end = len(s.buffer)
		}

		batch := s.buffer[i:end]
		_, err := s.client.PutMetricData(ctx, &cloudwatch.PutMetricDataInput{
			Namespace:  aws.String(s.namespace),
			MetricData: batch,
		})
		if err != nil {
			s.logger.Warn().
				Int("batch_size", len(batch)).
				Err(err).
				Msg("Failed to flush CloudWatch metrics batch")
			return err
		}
	}

	s.logger.Debug().Int("count", len(s.buffer)).Msg("Flushed CloudWatch metrics")
	s.buffer = make([]types.MetricDatum, 0)
	return nil
}

func (s *CloudWatchProvider) createMetricDatum(name string, value float64, unit string, dimensions map[string]string) types.MetricDatum {
	datum := types.MetricDatum{
		MetricName: aws.String(name),
		Value:      aws.Float64(value),
		Unit:       types.StandardUnit(unit),
		Timestamp:  aws.Time(time.Now()),
	}

	if len(dimensions) > 0 {
		cwDimensions := make([]types.Dimension, 0, len(dimensions))
		for k, v := range dimensions {
			// CloudWatch rejects empty dimension values, use "unknown" as fallback
			if v == "" {
				v = "unknown"
			}
			cwDimensions = append(cwDimensions, types.Dimension{
				Name:  aws.String(k),
				Value: aws.String(v),
			})
		}
		datum.Dimensions = cwDimensions
	}

	return datum
}
