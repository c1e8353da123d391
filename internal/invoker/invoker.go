package invoker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambdacontext"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/civocr/serverless-offline-localstack-sqs/internal/contracts"
)

// Outcome is the result of one handler execution.
type Outcome struct {
	// Err is nil on success
	Err error
	// Duration is the wall time of the execution
	Duration time.Duration
	// InvocationID is the synthetic id assigned to the execution
	InvocationID string
}

// Success reports whether the invocation completed without error.
func (o Outcome) Success() bool {
	return o.Err == nil
}

// Invoker executes handlers under a hard deadline. Failures of any kind,
// including panics and timeouts, are captured in the outcome and never
// propagated to the caller.
type Invoker struct {
	loader         *ReloadingLoader
	logger         zerolog.Logger
	region         string
	accountID      string
	version        string
	defaultTimeout time.Duration
}

// Config holds the invoker settings.
type Config struct {
	// Region used in the synthesized function ARN
	Region string
	// AccountID used in the synthesized function ARN
	AccountID string
	// Version is the function version marker exposed to handlers
	Version string
	// DefaultTimeout is the hard deadline when the queue has no override
	DefaultTimeout time.Duration
	// SkipCacheInvalidation keeps resolved handlers cached between invocations
	SkipCacheInvalidation bool
}

// New creates a new invoker on top of a base loader. The base loader is
// wrapped with the reloading cache so handler edits are picked up between
// invocations unless invalidation is skipped.
func New(base contracts.Loader, cfg Config, logger zerolog.Logger) *Invoker {
	loader := NewReloadingLoader(base, cfg.SkipCacheInvalidation)
	if cfg.AccountID == "" {
		cfg.AccountID = "000000000000"
	}
	if cfg.Version == "" {
		cfg.Version = "$LATEST"
	}
	if cfg.DefaultTimeout <= 0 {
		cfg.DefaultTimeout = 6 * time.Second
	}
	return &Invoker{
		loader:         loader,
		logger:         logger.With().Str("component", "invoker").Logger(),
		region:         cfg.Region,
		accountID:      cfg.AccountID,
		version:        cfg.Version,
		defaultTimeout: cfg.DefaultTimeout,
	}
}

// Invoke resolves ref, builds the execution context and runs the handler.
// timeout <= 0 falls back to the configured default.
func (iv *Invoker) Invoke(ctx context.Context, ref string, event events.SQSEvent, timeout time.Duration) Outcome {
	start := time.Now()

	handler, err := iv.loader.Resolve(ref)
	if err != nil {
		iv.logger.Error().Str("handler", ref).Err(err).Msg("Failed to resolve handler")
		return Outcome{Err: err, Duration: time.Since(start)}
	}

	if timeout <= 0 {
		timeout = iv.defaultTimeout
	}
	deadline := start.Add(timeout)
	inv := newInvocation(uuid.New().String(), ref, iv.version, deadline)

	execCtx, cancel := context.WithDeadline(ctx, deadline)
	defer cancel()
	execCtx = NewContext(execCtx, inv)
	execCtx = lambdacontext.NewContext(execCtx, &lambdacontext.LambdaContext{
		AwsRequestID:       inv.ID,
		InvokedFunctionArn: iv.functionArn(ref),
	})

	go func() {
		defer func() {
			if r := recover(); r != nil {
				inv.settle(fmt.Errorf("handler panic: %v", r))
			}
		}()
		inv.settle(handler(execCtx, event))
	}()

	select {
	case err := <-inv.result:
		// A handler that notices the expired invocation deadline and returns
		// its context error races the execCtx.Done branch; classify both
		// paths as a timeout.
		if err != nil && errors.Is(err, context.DeadlineExceeded) && execCtx.Err() == context.DeadlineExceeded {
			iv.logger.Warn().
				Str("handler", ref).
				Str("invocation_id", inv.ID).
				Dur("timeout", timeout).
				Msg("Handler timed out")
			err = fmt.Errorf("%w after %s", ErrHandlerTimeout, timeout)
		}
		return Outcome{Err: err, Duration: time.Since(start), InvocationID: inv.ID}
	case <-execCtx.Done():
		// The handler goroutine keeps running until its own deadline-aware
		// code returns; its late result is dropped by the latch.
		if ctx.Err() != nil {
			return Outcome{
				Err:          fmt.Errorf("invocation aborted: %w", ctx.Err()),
				Duration:     time.Since(start),
				InvocationID: inv.ID,
			}
		}
		iv.logger.Warn().
			Str("handler", ref).
			Str("invocation_id", inv.ID).
			Dur("timeout", timeout).
			Msg("Handler timed out")
		return Outcome{
			Err:          fmt.Errorf("%w after %s", ErrHandlerTimeout, timeout),
			Duration:     time.Since(start),
			InvocationID: inv.ID,
		}
	}
}

func (iv *Invoker) functionArn(ref string) string {
	return "arn:aws:lambda:" + iv.region + ":" + iv.accountID + ":function:" + ref
}
