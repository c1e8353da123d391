// Package provision materializes declared queues (and their dead-letter
// queues) on the target backend before polling starts.
package provision

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"

	"github.com/rs/zerolog"

	"github.com/civocr/serverless-offline-localstack-sqs/internal/config"
	"github.com/civocr/serverless-offline-localstack-sqs/internal/contracts"
)

// Error records a provisioning failure for one queue. Failures are collected
// per queue; one queue failing never aborts provisioning of the others.
type Error struct {
	Queue string
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("provisioning queue %s: %v", e.Queue, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Provisioner ensures declared queues exist and caches their handles for the
// delivery engine.
type Provisioner struct {
	client contracts.QueueClient
	cfg    *config.Config
	logger zerolog.Logger

	mu      sync.RWMutex
	handles map[string]contracts.QueueHandle // keyed by logical queue name
}

// New creates a new queue provisioner.
func New(client contracts.QueueClient, cfg *config.Config, logger zerolog.Logger) *Provisioner {
	return &Provisioner{
		client:  client,
		cfg:     cfg,
		logger:  logger.With().Str("component", "provisioner").Logger(),
		handles: make(map[string]contracts.QueueHandle),
	}
}

// BackendName returns the backend queue name for a logical queue name:
// prefixed for environment isolation, then sanitized.
func (p *Provisioner) BackendName(logicalName string) string {
	return SanitizeQueueName(p.cfg.GetPrefixedQueueName(logicalName))
}

// DLQName returns the logical dead-letter queue name for a descriptor.
func (p *Provisioner) DLQName(d contracts.QueueDescriptor) string {
	if d.DeadLetter.QueueName != "" {
		return d.DeadLetter.QueueName
	}
	return p.cfg.GetDLQName(d.Name)
}

// EnsureQueues creates (or idempotently resolves) every descriptor's queue,
// DLQ first when a dead-letter policy is present. Each queue is attempted
// independently; the returned slice holds the per-queue failures.
func (p *Provisioner) EnsureQueues(ctx context.Context, descs []contracts.QueueDescriptor) []Error {
	var failures []Error
	for _, d := range descs {
		if err := p.ensureQueue(ctx, d); err != nil {
			p.logger.Error().Str("queue", d.Name).Err(err).Msg("Failed to provision queue")
			failures = append(failures, Error{Queue: d.Name, Err: err})
		}
	}
	return failures
}

func (p *Provisioner) ensureQueue(ctx context.Context, d contracts.QueueDescriptor) error {
	if !d.AutoCreate {
		// Creation disabled: resolve the existing queue so polling can start
		_, err := p.Handle(ctx, d.Name)
		return err
	}

	attrs := map[string]string{
		"VisibilityTimeout":             strconv.Itoa(d.VisibilityTimeout),
		"ReceiveMessageWaitTimeSeconds": strconv.Itoa(d.LongPollWait),
	}
	if d.RetentionDays > 0 {
		attrs["MessageRetentionPeriod"] = strconv.Itoa(d.RetentionDays * 24 * 60 * 60)
	}

	if d.DeadLetter.Enabled {
		dlqName := p.DLQName(d)
		dlqAttrs := map[string]string{}
		if d.RetentionDays > 0 {
			dlqAttrs["MessageRetentionPeriod"] = strconv.Itoa(d.RetentionDays * 24 * 60 * 60)
		}

		dlqHandle, err := p.client.CreateQueue(ctx, p.BackendName(dlqName), dlqAttrs)
		if err != nil {
			return fmt.Errorf("failed to create DLQ %s: %w", dlqName, err)
		}
		p.storeHandle(dlqName, dlqHandle)
		p.logger.Info().Str("dlq", dlqHandle.Name).Msg("Ensured DLQ")

		redrivePolicy := map[string]any{
			"deadLetterTargetArn": dlqHandle.ARN,
			"maxReceiveCount":     d.DeadLetter.MaxDeliveryAttempts,
		}
		redriveJSON, _ := json.Marshal(redrivePolicy)
		attrs["RedrivePolicy"] = string(redriveJSON)
	}

	handle, err := p.client.CreateQueue(ctx, p.BackendName(d.Name), attrs)
	if err != nil {
		return err
	}
	p.storeHandle(d.Name, handle)

	p.logger.Info().
		Str("queue", handle.Name).
		Str("url", handle.URL).
		Bool("dead_letter", d.DeadLetter.Enabled).
		Msg("Ensured queue")
	return nil
}

// Handle returns the cached handle for a logical queue name, resolving it
// from the backend on first use.
func (p *Provisioner) Handle(ctx context.Context, logicalName string) (contracts.QueueHandle, error) {
	p.mu.RLock()
	handle, ok := p.handles[logicalName]
	p.mu.RUnlock()
	if ok {
		return handle, nil
	}

	handle, err := p.client.GetQueueInfo(ctx, p.BackendName(logicalName))
	if err != nil {
		return contracts.QueueHandle{}, err
	}
	p.storeHandle(logicalName, handle)
	return handle, nil
}

func (p *Provisioner) storeHandle(logicalName string, handle contracts.QueueHandle) {
	p.mu.Lock()
	p.handles[logicalName] = handle
	p.mu.Unlock()
}
