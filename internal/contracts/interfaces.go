// Package contracts defines the interfaces and shared data types for the
// local SQS delivery emulator.
package contracts

import (
	"context"
	"time"

	"github.com/aws/aws-lambda-go/events"
)

// QueueHandle is the runtime binding of a logical queue to its provisioned
// backend identity. Created once per queue, never mutated afterwards.
type QueueHandle struct {
	// Name is the backend queue name (after prefixing and sanitization)
	Name string
	// URL is the queue URL used for all transport operations
	URL string
	// ARN is the queue ARN, used in redrive policies and event source fields
	ARN string
}

// Message represents a unit pulled from the queue backend.
type Message struct {
	// ID is the unique message identifier assigned by the backend
	ID string
	// ReceiptHandle is the opaque delivery token used to delete the message
	ReceiptHandle string
	// Body is the raw message body
	Body string
	// Attributes contains backend-assigned attributes
	Attributes map[string]string
	// MessageAttributes contains user-defined typed attributes
	MessageAttributes map[string]MessageAttribute
	// ReceiveCount is the delivery attempt count including the current one.
	// Defaults to 1 when the backend does not report it.
	ReceiveCount int
	// SentAt is when the message was originally sent, if reported
	SentAt time.Time
}

// MessageAttribute represents a typed user-defined message attribute.
type MessageAttribute struct {
	DataType         string
	StringValue      string
	BinaryValue      []byte
	StringListValues []string
}

// DeadLetterPolicy configures redrive behavior for a queue.
type DeadLetterPolicy struct {
	// Enabled turns dead-lettering on for the queue
	Enabled bool
	// MaxDeliveryAttempts is the number of receives before a message is redriven
	MaxDeliveryAttempts int
	// QueueName overrides the derived DLQ name when set
	QueueName string
}

// QueueDescriptor holds the identity and policy for one logical queue.
// Descriptors are built from merged configuration at startup and are
// immutable for the process lifetime; one descriptor drives one poller.
type QueueDescriptor struct {
	// Name is the logical queue name (before prefixing)
	Name string
	// Handler is the opaque reference to the function handling this queue
	Handler string
	// Enabled controls whether a poller is started for this queue
	Enabled bool
	// AutoCreate controls whether the provisioner creates the queue
	AutoCreate bool
	// BatchSize is the maximum messages per receive call (1..10)
	BatchSize int
	// ConcurrencyLimit bounds simultaneous handler executions per queue
	ConcurrencyLimit int
	// VisibilityTimeout in seconds for received messages
	VisibilityTimeout int
	// LongPollWait in seconds for receive calls
	LongPollWait int
	// RetentionDays is the backend message retention period
	RetentionDays int
	// PollInterval between scheduled pulls
	PollInterval time.Duration
	// HandlerTimeout overrides the global handler timeout when non-zero
	HandlerTimeout time.Duration
	// DeadLetter is the dead-letter policy for this queue
	DeadLetter DeadLetterPolicy
}

// Key identifies the poller for this descriptor. At most one active poller
// exists per (queue, handler) pair.
func (d QueueDescriptor) Key() string {
	return d.Name + "|" + d.Handler
}

// QueueClient is the thin transport used against the queue backend.
type QueueClient interface {
	// CreateQueue creates a queue with the given attributes, treating
	// "already exists" responses as success
	CreateQueue(ctx context.Context, name string, attrs map[string]string) (QueueHandle, error)
	// GetQueueInfo resolves an existing queue by name
	GetQueueInfo(ctx context.Context, name string) (QueueHandle, error)
	// ReceiveMessages pulls up to max messages from the queue
	ReceiveMessages(ctx context.Context, handle QueueHandle, max, visibilityTimeout, waitSeconds int) ([]Message, error)
	// DeleteMessage removes a message using its delivery token
	DeleteMessage(ctx context.Context, handle QueueHandle, receiptHandle string) error
	// DeleteMessages removes a batch of messages in one call
	DeleteMessages(ctx context.Context, handle QueueHandle, receiptHandles []string) error
	// SendMessage sends a message body with optional typed attributes
	SendMessage(ctx context.Context, handle QueueHandle, body string, attrs map[string]MessageAttribute) (string, error)
	// QueueDepth returns the approximate number of messages in the queue
	QueueDepth(ctx context.Context, handle QueueHandle) (int64, error)
}

// Handler is the function executed for each synthesized invocation event.
// Return nil for success, or an error to mark the delivery as failed.
type Handler func(ctx context.Context, event events.SQSEvent) error

// Loader resolves a handler reference to executable code.
type Loader interface {
	// Resolve returns the handler for ref, or an error when the reference
	// is unknown or not invocable
	Resolve(ref string) (Handler, error)
}

// Cache is the queue-handle cache shared between the driver and provisioner.
type Cache interface {
	// Get retrieves a value; returns "" with nil error on a miss
	Get(ctx context.Context, key string) (string, error)
	// Set stores a value with a TTL in seconds (0 uses the implementation default)
	Set(ctx context.Context, key, value string, ttlSeconds int) error
	// Delete removes a value
	Delete(ctx context.Context, key string) error
	// Ping checks the cache backend health
	Ping(ctx context.Context) error
}
