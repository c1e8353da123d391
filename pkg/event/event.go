// Package event synthesizes SQS invocation events from received messages,
// matching the record shape a managed function runtime would deliver.
package event

import (
	"crypto/md5"
	"encoding/hex"
	"strconv"

	"github.com/aws/aws-lambda-go/events"

	"github.com/civocr/serverless-offline-localstack-sqs/internal/contracts"
)

const eventSource = "aws:sqs"

// FromMessages builds an invocation event with one record per message, in
// delivery order.
func FromMessages(region string, handle contracts.QueueHandle, msgs []contracts.Message) events.SQSEvent {
	records := make([]events.SQSMessage, len(msgs))
	for i, msg := range msgs {
		records[i] = FromMessage(region, handle, msg)
	}
	return events.SQSEvent{Records: records}
}

// FromMessage builds a single event record.
func FromMessage(region string, handle contracts.QueueHandle, msg contracts.Message) events.SQSMessage {
	sum := md5.Sum([]byte(msg.Body))

	record := events.SQSMessage{
		MessageId:      msg.ID,
		ReceiptHandle:  msg.ReceiptHandle,
		Body:           msg.Body,
		Md5OfBody:      hex.EncodeToString(sum[:]),
		EventSource:    eventSource,
		EventSourceARN: handle.ARN,
		AWSRegion:      region,
		Attributes:     recordAttributes(msg),
	}

	if len(msg.MessageAttributes) > 0 {
		record.MessageAttributes = make(map[string]events.SQSMessageAttribute, len(msg.MessageAttributes))
		for k, v := range msg.MessageAttributes {
			attr := events.SQSMessageAttribute{
				DataType:         v.DataType,
				StringListValues: v.StringListValues,
			}
			if v.BinaryValue != nil {
				attr.BinaryValue = v.BinaryValue
			} else {
				value := v.StringValue
				attr.StringValue = &value
			}
			record.MessageAttributes[k] = attr
		}
	}

	return record
}

// recordAttributes copies the backend attributes, guaranteeing the
// delivery-attempt count is always present.
func recordAttributes(msg contracts.Message) map[string]string {
	attrs := make(map[string]string, len(msg.Attributes)+1)
	for k, v := range msg.Attributes {
		attrs[k] = v
	}
	if _, ok := attrs["ApproximateReceiveCount"]; !ok {
		count := msg.ReceiveCount
		if count < 1 {
			count = 1
		}
		attrs["ApproximateReceiveCount"] = strconv.Itoa(count)
	}
	if _, ok := attrs["SentTimestamp"]; !ok && !msg.SentAt.IsZero() {
		attrs["SentTimestamp"] = strconv.FormatInt(msg.SentAt.UnixMilli(), 10)
	}
	return attrs
}
