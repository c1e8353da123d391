package engine

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/civocr/serverless-offline-localstack-sqs/internal/contracts"
	"github.com/civocr/serverless-offline-localstack-sqs/internal/invoker"
	"github.com/civocr/serverless-offline-localstack-sqs/internal/storage"
	"github.com/civocr/serverless-offline-localstack-sqs/pkg/envelope"
	"github.com/civocr/serverless-offline-localstack-sqs/pkg/event"
)

// poller runs the receive/invoke/settle loop for one queue descriptor.
type poller struct {
	desc    contracts.QueueDescriptor
	engine  *Engine
	state   *PollerState
	logger  zerolog.Logger
	timeout time.Duration

	handle contracts.QueueHandle

	// dlqHandle is resolved on the first redrive and reused afterwards
	dlqMu     sync.Mutex
	dlqHandle contracts.QueueHandle

	cancel context.CancelFunc
	done   chan struct{}
}

func newPoller(e *Engine, desc contracts.QueueDescriptor) *poller {
	timeout := desc.HandlerTimeout
	if timeout <= 0 {
		timeout = e.defaultTimeout
	}
	if desc.PollInterval <= 0 {
		desc.PollInterval = time.Second
	}
	return &poller{
		desc:    desc,
		engine:  e,
		state:   newPollerState(),
		timeout: timeout,
		logger: e.logger.With().
			Str("queue", desc.Name).
			Str("handler", desc.Handler).
			Logger(),
		done: make(chan struct{}),
	}
}

// run drives the poller lifecycle: resolve the queue handle, pull once
// immediately, then pull on every tick until the context is cancelled.
func (p *poller) run(ctx context.Context) {
	defer close(p.done)
	defer p.state.setStatus(StatusStopped)

	p.state.setStatus(StatusStarting)

	handle, err := p.engine.resolver.Handle(ctx, p.desc.Name)
	if err != nil {
		p.logger.Error().Err(err).Msg("Failed to resolve queue handle, poller not started")
		return
	}
	p.handle = handle

	p.state.setStatus(StatusPolling)
	p.logger.Info().
		Str("url", handle.URL).
		Dur("interval", p.desc.PollInterval).
		Msg("Poller started")

	// First pull happens immediately, not one interval in
	p.poll(ctx)

	ticker := time.NewTicker(p.desc.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.logger.Info().Msg("Poller shutting down")
			return
		case <-ticker.C:
			p.poll(ctx)
		}
	}
}

// poll performs one receive call and dispatches whatever it returns.
func (p *poller) poll(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}

	p.state.recordPoll()
	p.engine.metrics.IncPolls(ctx, p.desc.Name)

	msgs, err := p.engine.client.ReceiveMessages(ctx, p.handle, p.desc.BatchSize, p.desc.VisibilityTimeout, p.desc.LongPollWait)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		p.state.recordReceiveError(err)
		p.engine.metrics.IncPollErrors(ctx, p.desc.Name)
		p.logger.Error().Err(err).Msg("Failed to receive messages")
		return
	}

	if len(msgs) == 0 {
		return
	}

	p.state.recordReceived(len(msgs))
	p.engine.metrics.AddMessagesReceived(ctx, p.desc.Name, float64(len(msgs)))
	p.logger.Debug().Int("count", len(msgs)).Msg("Received messages")

	p.dispatch(ctx, msgs)
}

// dispatch runs the batch in sub-batches of at most ConcurrencyLimit
// messages. Messages within a sub-batch execute concurrently; sub-batches
// run one after another so the limit holds at every instant.
func (p *poller) dispatch(ctx context.Context, msgs []contracts.Message) {
	limit := p.desc.ConcurrencyLimit
	if limit <= 0 {
		limit = len(msgs)
	}

	for start := 0; start < len(msgs); start += limit {
		end := start + limit
		if end > len(msgs) {
			end = len(msgs)
		}

		var wg sync.WaitGroup
		for _, msg := range msgs[start:end] {
			wg.Add(1)
			go func(msg contracts.Message) {
				defer wg.Done()
				p.deliver(ctx, msg)
			}(msg)
		}
		wg.Wait()

		if ctx.Err() != nil {
			return
		}
	}
}

// deliver invokes the handler for one message and settles the outcome.
// The delivery runs on a context detached from the poll context: stopping
// the poller cancels future scheduling only, while an in-flight invocation
// completes under its own deadline and its outcome is settled normally
// (delete, retry, or redrive) instead of being aborted mid-flight.
func (p *poller) deliver(ctx context.Context, msg contracts.Message) {
	ctx = context.WithoutCancel(ctx)

	p.engine.metrics.IncInFlight(ctx, p.desc.Name)
	defer p.engine.metrics.DecInFlight(ctx, p.desc.Name)

	ev := event.FromMessages(p.engine.region, p.handle, []contracts.Message{msg})
	outcome := p.engine.invoker.Invoke(ctx, p.desc.Handler, ev, p.timeout)

	p.engine.metrics.ObserveInvocationDuration(ctx, p.desc.Name, p.desc.Handler, float64(outcome.Duration.Milliseconds()))

	if outcome.Success() {
		p.state.recordSuccess()
		p.engine.metrics.IncInvocationsSuccess(ctx, p.desc.Name, p.desc.Handler)
		if err := p.engine.client.DeleteMessage(ctx, p.handle, msg.ReceiptHandle); err != nil {
			p.logger.Error().
				Str("message_id", msg.ID).
				Err(err).
				Msg("Failed to delete message")
		}
		return
	}

	p.state.recordFailure(outcome.Err)
	p.engine.metrics.IncInvocationsFailure(ctx, p.desc.Name, p.desc.Handler)
	if errors.Is(outcome.Err, invoker.ErrHandlerTimeout) {
		p.engine.metrics.IncInvocationTimeouts(ctx, p.desc.Name, p.desc.Handler)
	}

	maxAttempts := p.desc.DeadLetter.MaxDeliveryAttempts
	if maxAttempts <= 0 || msg.ReceiveCount < maxAttempts {
		// Below the retry budget: leave the message for the backend to
		// redeliver after the visibility timeout
		p.logger.Warn().
			Str("message_id", msg.ID).
			Int("receive_count", msg.ReceiveCount).
			Err(outcome.Err).
			Msg("Handler failed, leaving message for retry")
		return
	}

	if !p.desc.DeadLetter.Enabled {
		// No DLQ configured: the message keeps cycling on purpose so local
		// failures stay visible instead of disappearing
		p.state.recordExhausted()
		p.logger.Error().
			Str("message_id", msg.ID).
			Int("receive_count", msg.ReceiveCount).
			Err(outcome.Err).
			Msg("Retry budget exhausted with no dead-letter queue")
		p.engine.journal.Record(ctx, storage.DeliveryRecord{
			MessageID: msg.ID,
			QueueName: p.desc.Name,
			Handler:   p.desc.Handler,
			Action:    storage.ActionExhausted,
			Attempts:  msg.ReceiveCount,
			Reason:    outcome.Err.Error(),
		})
		return
	}

	p.redrive(ctx, msg, outcome.Err)
}

// redrive wraps the message and moves it to the dead-letter queue. The
// source message is deleted only after the DLQ send succeeds, so a send
// failure leaves it in place for another attempt.
func (p *poller) redrive(ctx context.Context, msg contracts.Message, failure error) {
	dlq, err := p.deadLetterHandle(ctx)
	if err != nil {
		p.logger.Error().
			Str("message_id", msg.ID).
			Err(err).
			Msg("Failed to resolve dead-letter queue, leaving message")
		return
	}

	env := envelope.Wrap(msg.Body, p.desc.Name, p.desc.Handler, msg.ReceiveCount, failure)
	body, err := env.ToJSON()
	if err != nil {
		p.logger.Error().Str("message_id", msg.ID).Err(err).Msg("Failed to encode dead-letter envelope")
		return
	}

	if _, err := p.engine.client.SendMessage(ctx, dlq, body, nil); err != nil {
		p.logger.Error().
			Str("message_id", msg.ID).
			Str("dlq", dlq.Name).
			Err(err).
			Msg("Failed to send message to dead-letter queue, leaving message")
		return
	}

	if err := p.engine.client.DeleteMessage(ctx, p.handle, msg.ReceiptHandle); err != nil {
		p.logger.Error().
			Str("message_id", msg.ID).
			Err(err).
			Msg("Failed to delete redriven message")
	}

	p.state.recordRedrive()
	p.engine.metrics.IncRedrives(ctx, p.desc.Name)
	p.logger.Warn().
		Str("message_id", msg.ID).
		Str("dlq", dlq.Name).
		Int("receive_count", msg.ReceiveCount).
		Msg("Message moved to dead-letter queue")

	p.engine.journal.Record(ctx, storage.DeliveryRecord{
		MessageID: msg.ID,
		QueueName: p.desc.Name,
		Handler:   p.desc.Handler,
		Action:    storage.ActionRedrive,
		Attempts:  msg.ReceiveCount,
		Reason:    failure.Error(),
	})
}

func (p *poller) deadLetterHandle(ctx context.Context) (contracts.QueueHandle, error) {
	p.dlqMu.Lock()
	defer p.dlqMu.Unlock()

	if p.dlqHandle.URL != "" {
		return p.dlqHandle, nil
	}

	name := p.engine.resolver.DLQName(p.desc)
	handle, err := p.engine.resolver.Handle(ctx, name)
	if err != nil {
		return contracts.QueueHandle{}, err
	}
	p.dlqHandle = handle
	return handle, nil
}
