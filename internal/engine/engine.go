// Package engine schedules queue pollers and settles delivery outcomes.
// One poller runs per (queue, handler) pair; each cycles through receive,
// invoke, and delete-retry-or-redrive, mirroring how the managed service
// drives a function from a queue.
package engine

import (
	"context"
	"sync"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/rs/zerolog"

	"github.com/civocr/serverless-offline-localstack-sqs/internal/contracts"
	"github.com/civocr/serverless-offline-localstack-sqs/internal/invoker"
	"github.com/civocr/serverless-offline-localstack-sqs/internal/metrics"
	"github.com/civocr/serverless-offline-localstack-sqs/internal/storage"
)

// MessageInvoker executes a handler for one synthesized event.
type MessageInvoker interface {
	Invoke(ctx context.Context, ref string, event events.SQSEvent, timeout time.Duration) invoker.Outcome
}

// HandleResolver maps logical queue names to backend handles.
type HandleResolver interface {
	Handle(ctx context.Context, logicalName string) (contracts.QueueHandle, error)
	DLQName(d contracts.QueueDescriptor) string
}

// Engine owns the set of active pollers.
type Engine struct {
	client         contracts.QueueClient
	invoker        MessageInvoker
	resolver       HandleResolver
	metrics        metrics.Provider
	journal        *storage.Journal
	logger         zerolog.Logger
	region         string
	defaultTimeout time.Duration

	mu      sync.Mutex
	pollers map[string]*poller
}

// Config holds the engine dependencies.
type Config struct {
	Client   contracts.QueueClient
	Invoker  MessageInvoker
	Resolver HandleResolver
	// Metrics defaults to a noop provider when nil
	Metrics metrics.Provider
	// Journal may be nil; a nil journal records nothing
	Journal *storage.Journal
	// Region used in synthesized event records
	Region string
	// DefaultTimeout applies when a descriptor has no handler timeout
	DefaultTimeout time.Duration
	Logger         zerolog.Logger
}

// New creates a new delivery engine.
func New(cfg Config) *Engine {
	if cfg.Metrics == nil {
		cfg.Metrics = metrics.NewNoopProvider()
	}
	if cfg.DefaultTimeout <= 0 {
		cfg.DefaultTimeout = 6 * time.Second
	}
	return &Engine{
		client:         cfg.Client,
		invoker:        cfg.Invoker,
		resolver:       cfg.Resolver,
		metrics:        cfg.Metrics,
		journal:        cfg.Journal,
		logger:         cfg.Logger.With().Str("component", "engine").Logger(),
		region:         cfg.Region,
		defaultTimeout: cfg.DefaultTimeout,
	}
}

// StartPolling starts a poller for the descriptor. Starting an already
// running poller is a no-op; disabled descriptors are skipped.
func (e *Engine) StartPolling(ctx context.Context, desc contracts.QueueDescriptor) {
	if !desc.Enabled {
		e.logger.Debug().Str("queue", desc.Name).Msg("Queue disabled, poller not started")
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	key := desc.Key()
	if existing, ok := e.pollers[key]; ok {
		status := existing.state.Status()
		if status != StatusStopped {
			e.logger.Warn().
				Str("queue", desc.Name).
				Str("handler", desc.Handler).
				Str("status", string(status)).
				Msg("Poller already running, ignoring start")
			return
		}
	}

	if e.pollers == nil {
		e.pollers = make(map[string]*poller)
	}

	p := newPoller(e, desc)
	pollCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	e.pollers[key] = p

	go p.run(pollCtx)
}

// StartAll starts a poller for every enabled descriptor.
func (e *Engine) StartAll(ctx context.Context, descs []contracts.QueueDescriptor) {
	for _, d := range descs {
		e.StartPolling(ctx, d)
	}
}

// StopPolling stops the poller for the descriptor and waits for its loop to
// exit. Stopping a poller that is not running is a no-op.
func (e *Engine) StopPolling(desc contracts.QueueDescriptor) {
	e.mu.Lock()
	p, ok := e.pollers[desc.Key()]
	if ok {
		delete(e.pollers, desc.Key())
	}
	e.mu.Unlock()

	if !ok {
		return
	}

	p.state.setStatus(StatusStopping)
	p.cancel()
	<-p.done
}

// StopAll stops every running poller and waits for them to exit.
func (e *Engine) StopAll() {
	e.mu.Lock()
	running := make([]*poller, 0, len(e.pollers))
	for key, p := range e.pollers {
		running = append(running, p)
		delete(e.pollers, key)
	}
	e.mu.Unlock()

	for _, p := range running {
		p.state.setStatus(StatusStopping)
		p.cancel()
	}
	for _, p := range running {
		<-p.done
	}
	e.logger.Info().Int("pollers", len(running)).Msg("All pollers stopped")
}

// States returns a snapshot of every known poller.
func (e *Engine) States() []StateSnapshot {
	e.mu.Lock()
	defer e.mu.Unlock()

	states := make([]StateSnapshot, 0, len(e.pollers))
	for _, p := range e.pollers {
		states = append(states, p.state.Snapshot(p.desc.Name, p.desc.Handler))
	}
	return states
}

// State returns the snapshot for one descriptor's poller.
func (e *Engine) State(desc contracts.QueueDescriptor) (StateSnapshot, bool) {
	e.mu.Lock()
	p, ok := e.pollers[desc.Key()]
	e.mu.Unlock()

	if !ok {
		return StateSnapshot{}, false
	}
	return p.state.Snapshot(p.desc.Name, p.desc.Handler), true
}
