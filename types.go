package sqsoffline

import (
	"errors"

	"github.com/aws/aws-lambda-go/events"

	"github.com/civocr/serverless-offline-localstack-sqs/internal/config"
	"github.com/civocr/serverless-offline-localstack-sqs/internal/contracts"
	"github.com/civocr/serverless-offline-localstack-sqs/internal/engine"
	"github.com/civocr/serverless-offline-localstack-sqs/internal/invoker"
)

// QueueEntry is one declarative queue entry as accepted by WithQueueConfig.
type QueueEntry = config.QueueConfig

// Event is the synthesized invocation payload passed to handlers. It carries
// the received queue records in the same shape the managed service delivers.
type Event = events.SQSEvent

// EventRecord is one queue record inside an Event.
type EventRecord = events.SQSMessage

// Handler is the function executed for each synthesized invocation event.
// The event carries the received queue records in the same shape the managed
// service delivers. Return nil for success, or an error to mark the delivery
// as failed and leave the message for retry.
type Handler = contracts.Handler

// Message represents a received queue message.
type Message = contracts.Message

// MessageAttribute represents a typed user-defined message attribute.
type MessageAttribute = contracts.MessageAttribute

// QueueHandle is the runtime binding of a logical queue to its backend
// identity.
type QueueHandle = contracts.QueueHandle

// QueueDescriptor holds the identity and policy for one logical queue.
type QueueDescriptor = contracts.QueueDescriptor

// DeadLetterPolicy configures redrive behavior for a queue.
type DeadLetterPolicy = contracts.DeadLetterPolicy

// PollerStatus is the lifecycle phase of one queue poller.
type PollerStatus = engine.Status

// Poller lifecycle phases.
const (
	PollerStopped  = engine.StatusStopped
	PollerStarting = engine.StatusStarting
	PollerPolling  = engine.StatusPolling
	PollerStopping = engine.StatusStopping
)

// PollerSnapshot is a point-in-time copy of one poller's state and counters.
type PollerSnapshot = engine.StateSnapshot

// QueueStatus contains information about a queue's current state.
type QueueStatus struct {
	// QueueName is the logical name of the queue
	QueueName string
	// QueueURL is the full backend queue URL
	QueueURL string
	// MessageCount is the approximate number of messages
	MessageCount int64
	// DLQMessageCount is the approximate number of messages in the DLQ
	DLQMessageCount int64
}

// Common errors
var (
	// ErrClientClosed is returned when operations are attempted on a closed client
	ErrClientClosed = errors.New("sqsoffline: client is closed")

	// ErrRedisConnectionFailed is returned when the Redis connection cannot be established
	ErrRedisConnectionFailed = errors.New("sqsoffline: failed to connect to Redis")

	// ErrJournalNotConfigured is returned when journal operations are attempted
	// without a database configured
	ErrJournalNotConfigured = errors.New("sqsoffline: delivery journal not configured (requires database)")

	// ErrHandlerNotFound is returned when a handler reference is unknown
	ErrHandlerNotFound = invoker.ErrHandlerNotFound

	// ErrHandlerNotCallable is returned when the resolved entry is not invocable
	ErrHandlerNotCallable = invoker.ErrHandlerNotCallable

	// ErrHandlerTimeout is returned when the deadline elapses before the
	// handler completes
	ErrHandlerTimeout = invoker.ErrHandlerTimeout
)
