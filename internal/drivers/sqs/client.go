// Package sqs provides the AWS SQS implementation of the queue client used
// by the provisioner and the delivery engine.
package sqs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awssqs "github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/rs/zerolog"

	"github.com/civocr/serverless-offline-localstack-sqs/internal/contracts"
)

// Client is the SQS-backed queue client. Queue handles are cached so repeated
// lookups do not hit the backend; the cache may be shared (Redis) or local.
type Client struct {
	api    *awssqs.Client
	cache  contracts.Cache
	logger zerolog.Logger
}

// NewClient creates a new SQS queue client.
func NewClient(api *awssqs.Client, cache contracts.Cache, logger zerolog.Logger) *Client {
	return &Client{
		api:    api,
		cache:  cache,
		logger: logger.With().Str("component", "sqs").Logger(),
	}
}

// Ensure interface compliance
var _ contracts.QueueClient = (*Client)(nil)

// cachedHandle is the wire form of a handle in the cache.
type cachedHandle struct {
	URL string `json:"url"`
	ARN string `json:"arn"`
}

// CreateQueue creates a queue with the given attributes. An "already exists"
// response from the backend is resolved to the existing queue, not reported
// as a failure.
func (c *Client) CreateQueue(ctx context.Context, name string, attrs map[string]string) (contracts.QueueHandle, error) {
	result, err := c.api.CreateQueue(ctx, &awssqs.CreateQueueInput{
		QueueName:  aws.String(name),
		Attributes: attrs,
	})
	if err != nil {
		var exists *types.QueueNameExists
		if errors.As(err, &exists) {
			c.logger.Debug().Str("queue", name).Msg("Queue already exists, resolving")
			return c.GetQueueInfo(ctx, name)
		}
		return contracts.QueueHandle{}, fmt.Errorf("failed to create queue %s: %w", name, err)
	}

	handle, err := c.describe(ctx, name, aws.ToString(result.QueueUrl))
	if err != nil {
		return contracts.QueueHandle{}, err
	}

	c.cacheHandle(ctx, handle)
	c.logger.Info().Str("queue", name).Str("url", handle.URL).Msg("Created queue")
	return handle, nil
}

// GetQueueInfo resolves an existing queue by name, checking the cache first.
func (c *Client) GetQueueInfo(ctx context.Context, name string) (contracts.QueueHandle, error) {
	if handle, ok := c.cachedHandle(ctx, name); ok {
		return handle, nil
	}

	result, err := c.api.GetQueueUrl(ctx, &awssqs.GetQueueUrlInput{
		QueueName: aws.String(name),
	})
	if err != nil {
		return contracts.QueueHandle{}, fmt.Errorf("failed to resolve queue %s: %w", name, err)
	}

	handle, err := c.describe(ctx, name, aws.ToString(result.QueueUrl))
	if err != nil {
		return contracts.QueueHandle{}, err
	}

	c.cacheHandle(ctx, handle)
	return handle, nil
}

// describe fills in the queue ARN for a resolved URL.
func (c *Client) describe(ctx context.Context, name, url string) (contracts.QueueHandle, error) {
	attrs, err := c.api.GetQueueAttributes(ctx, &awssqs.GetQueueAttributesInput{
		QueueUrl:       aws.String(url),
		AttributeNames: []types.QueueAttributeName{types.QueueAttributeNameQueueArn},
	})
	if err != nil {
		return contracts.QueueHandle{}, fmt.Errorf("failed to get attributes for queue %s: %w", name, err)
	}

	return contracts.QueueHandle{
		Name: name,
		URL:  url,
		ARN:  attrs.Attributes[string(types.QueueAttributeNameQueueArn)],
	}, nil
}

// ReceiveMessages polls the queue for up to max messages.
func (c *Client) ReceiveMessages(ctx context.Context, handle contracts.QueueHandle, max, visibilityTimeout, waitSeconds int) ([]contracts.Message, error) {
	if max > 10 {
		max = 10
	}
	if max < 1 {
		max = 1
	}

	result, err := c.api.ReceiveMessage(ctx, &awssqs.ReceiveMessageInput{
		QueueUrl:              aws.String(handle.URL),
		MaxNumberOfMessages:   int32(max),
		WaitTimeSeconds:       int32(waitSeconds),
		VisibilityTimeout:     int32(visibilityTimeout),
		MessageAttributeNames: []string{"All"},
		AttributeNames:        []types.QueueAttributeName{types.QueueAttributeNameAll},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to receive messages: %w", err)
	}

	messages := make([]contracts.Message, len(result.Messages))
	for i, msg := range result.Messages {
		messages[i] = convertMessage(msg)
	}

	if len(messages) > 0 {
		c.logger.Debug().
			Int("count", len(messages)).
			Str("queue", handle.Name).
			Msg("Received messages")
	}

	return messages, nil
}

// DeleteMessage acknowledges and removes a message from the queue.
func (c *Client) DeleteMessage(ctx context.Context, handle contracts.QueueHandle, receiptHandle string) error {
	_, err := c.api.DeleteMessage(ctx, &awssqs.DeleteMessageInput{
		QueueUrl:      aws.String(handle.URL),
		ReceiptHandle: aws.String(receiptHandle),
	})
	if err != nil {
		return fmt.Errorf("failed to delete message: %w", err)
	}
	return nil
}

// DeleteMessages removes a batch of messages in a single call (max 10).
func (c *Client) DeleteMessages(ctx context.Context, handle contracts.QueueHandle, receiptHandles []string) error {
	if len(receiptHandles) == 0 {
		return nil
	}
	if len(receiptHandles) > 10 {
		return fmt.Errorf("batch size exceeds maximum of 10 messages")
	}

	entries := make([]types.DeleteMessageBatchRequestEntry, len(receiptHandles))
	for i, rh := range receiptHandles {
		entries[i] = types.DeleteMessageBatchRequestEntry{
			Id:            aws.String(strconv.Itoa(i)),
			ReceiptHandle: aws.String(rh),
		}
	}

	result, err := c.api.DeleteMessageBatch(ctx, &awssqs.DeleteMessageBatchInput{
		QueueUrl: aws.String(handle.URL),
		Entries:  entries,
	})
	if err != nil {
		return fmt.Errorf("failed to delete message batch: %w", err)
	}
	if len(result.Failed) > 0 {
		return fmt.Errorf("failed to delete %d of %d messages", len(result.Failed), len(receiptHandles))
	}
	return nil
}

// SendMessage sends a message body with optional typed attributes.
func (c *Client) SendMessage(ctx context.Context, handle contracts.QueueHandle, body string, attrs map[string]contracts.MessageAttribute) (string, error) {
	input := &awssqs.SendMessageInput{
		QueueUrl:    aws.String(handle.URL),
		MessageBody: aws.String(body),
	}
	if len(attrs) > 0 {
		input.MessageAttributes = make(map[string]types.MessageAttributeValue, len(attrs))
		for k, v := range attrs {
			mav := types.MessageAttributeValue{
				DataType: aws.String(v.DataType),
			}
			if v.BinaryValue != nil {
				mav.BinaryValue = v.BinaryValue
			} else {
				mav.StringValue = aws.String(v.StringValue)
			}
			input.MessageAttributes[k] = mav
		}
	}

	result, err := c.api.SendMessage(ctx, input)
	if err != nil {
		return "", fmt.Errorf("failed to send message to %s: %w", handle.Name, err)
	}
	return aws.ToString(result.MessageId), nil
}

// QueueDepth returns the approximate number of messages in the queue.
func (c *Client) QueueDepth(ctx context.Context, handle contracts.QueueHandle) (int64, error) {
	result, err := c.api.GetQueueAttributes(ctx, &awssqs.GetQueueAttributesInput{
		QueueUrl: aws.String(handle.URL),
		AttributeNames: []types.QueueAttributeName{
			types.QueueAttributeNameApproximateNumberOfMessages,
		},
	})
	if err != nil {
		return 0, fmt.Errorf("failed to get queue attributes: %w", err)
	}

	countStr := result.Attributes[string(types.QueueAttributeNameApproximateNumberOfMessages)]
	count, err := strconv.ParseInt(countStr, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse message count: %w", err)
	}
	return count, nil
}

func (c *Client) cachedHandle(ctx context.Context, name string) (contracts.QueueHandle, bool) {
	if c.cache == nil {
		return contracts.QueueHandle{}, false
	}
	raw, err := c.cache.Get(ctx, "queue:"+name)
	if err != nil || raw == "" {
		return contracts.QueueHandle{}, false
	}
	var ch cachedHandle
	if err := json.Unmarshal([]byte(raw), &ch); err != nil {
		return contracts.QueueHandle{}, false
	}
	return contracts.QueueHandle{Name: name, URL: ch.URL, ARN: ch.ARN}, true
}

func (c *Client) cacheHandle(ctx context.Context, handle contracts.QueueHandle) {
	if c.cache == nil {
		return
	}
	raw, err := json.Marshal(cachedHandle{URL: handle.URL, ARN: handle.ARN})
	if err != nil {
		return
	}
	if err := c.cache.Set(ctx, "queue:"+handle.Name, string(raw), 0); err != nil {
		c.logger.Warn().Str("queue", handle.Name).Err(err).Msg("Failed to cache queue handle")
	}
}

func convertMessage(msg types.Message) contracts.Message {
	m := contracts.Message{
		ID:            aws.ToString(msg.MessageId),
		ReceiptHandle: aws.ToString(msg.ReceiptHandle),
		Body:          aws.ToString(msg.Body),
		Attributes:    msg.Attributes,
		ReceiveCount:  1,
	}

	if rc, ok := msg.Attributes[string(types.MessageSystemAttributeNameApproximateReceiveCount)]; ok {
		if n, err := strconv.Atoi(rc); err == nil && n > 0 {
			m.ReceiveCount = n
		}
	}
	if ts, ok := msg.Attributes[string(types.MessageSystemAttributeNameSentTimestamp)]; ok {
		if ms, err := strconv.ParseInt(ts, 10, 64); err == nil {
			m.SentAt = time.UnixMilli(ms)
		}
	}

	if len(msg.MessageAttributes) > 0 {
		m.MessageAttributes = make(map[string]contracts.MessageAttribute, len(msg.MessageAttributes))
		for k, v := range msg.MessageAttributes {
			m.MessageAttributes[k] = contracts.MessageAttribute{
				DataType:         aws.ToString(v.DataType),
				StringValue:      aws.ToString(v.StringValue),
				BinaryValue:      v.BinaryValue,
				StringListValues: v.StringListValues,
			}
		}
	}

	return m
}
