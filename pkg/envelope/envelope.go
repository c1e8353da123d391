// Package envelope wraps messages that exhausted their delivery attempts
// before they are forwarded to a dead-letter queue. The wrapper preserves the
// original body and records why and where the delivery failed so the message
// can be inspected or replayed later.
package envelope

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Version is the envelope format version
const Version = "1.0"

// Envelope is the dead-letter wrapper around an undeliverable message.
type Envelope struct {
	OriginalMessage string `json:"original_message"`
	FailureReason   string `json:"failure_reason"`
	FailureTime     string `json:"failure_time"`
	QueueName       string `json:"queue_name"`
	Handler         string `json:"handler"`
	ReceiveCount    int    `json:"receive_count"`
	Version         string `json:"version"`
}

// Wrap creates an envelope around a failed message body.
func Wrap(body, queueName, handler string, receiveCount int, failure error) *Envelope {
	reason := "delivery attempts exhausted"
	if failure != nil {
		reason = failure.Error()
	}
	return &Envelope{
		OriginalMessage: body,
		FailureReason:   reason,
		FailureTime:     time.Now().UTC().Format(time.RFC3339),
		QueueName:       queueName,
		Handler:         handler,
		ReceiveCount:    receiveCount,
		Version:         Version,
	}
}

// ToJSON serializes the envelope to JSON.
func (e *Envelope) ToJSON() (string, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return "", fmt.Errorf("failed to marshal envelope: %w", err)
	}
	return string(data), nil
}

// Parse decodes a dead-letter message body into an envelope.
func Parse(body string) (*Envelope, error) {
	var envelope Envelope
	if err := json.Unmarshal([]byte(body), &envelope); err != nil {
		return nil, fmt.Errorf("failed to unmarshal envelope: %w", err)
	}
	if err := envelope.Validate(); err != nil {
		return nil, fmt.Errorf("invalid envelope: %w", err)
	}
	return &envelope, nil
}

// Validate checks if the envelope has all required fields.
func (e *Envelope) Validate() error {
	if e.OriginalMessage == "" {
		return errors.New("envelope missing original_message")
	}
	if e.FailureReason == "" {
		return errors.New("envelope missing failure_reason")
	}
	if e.FailureTime == "" {
		return errors.New("envelope missing failure_time")
	}
	if e.QueueName == "" {
		return errors.New("envelope missing queue_name")
	}
	return nil
}

// FailedAt parses the failure timestamp. The zero time is returned when the
// timestamp is malformed.
func (e *Envelope) FailedAt() time.Time {
	t, err := time.Parse(time.RFC3339, e.FailureTime)
	if err != nil {
		return time.Time{}
	}
	return t
}
