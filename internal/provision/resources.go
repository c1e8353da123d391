package provision

import (
	"sort"
	"strconv"
	"strings"

	"github.com/civocr/serverless-offline-localstack-sqs/internal/config"
	"github.com/civocr/serverless-offline-localstack-sqs/internal/contracts"
)

const sqsQueueResourceType = "AWS::SQS::Queue"

// DescriptorsFromResources ingests CloudFormation-style resource definitions
// and returns a descriptor for every AWS::SQS::Queue resource, with queue
// attributes and redrive targets extracted. Descriptors come back sorted by
// resource ID for deterministic provisioning order. Handlers are not bound
// here; the host attaches them afterwards via its queue configuration.
func DescriptorsFromResources(cfg *config.Config, resources map[string]any) []contracts.QueueDescriptor {
	ids := make([]string, 0, len(resources))
	for id := range resources {
		if isQueueResource(resources[id]) {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)

	descs := make([]contracts.QueueDescriptor, 0, len(ids))
	for _, id := range ids {
		props := resourceProperties(resources[id])

		d := contracts.QueueDescriptor{
			Name:              resourceQueueName(id, props),
			Enabled:           true,
			AutoCreate:        true,
			BatchSize:         cfg.Poller.BatchSize,
			ConcurrencyLimit:  cfg.Poller.Concurrency,
			VisibilityTimeout: intProperty(props, "VisibilityTimeout", cfg.SQS.VisibilityTimeout),
			LongPollWait:      intProperty(props, "ReceiveMessageWaitTimeSeconds", cfg.SQS.LongPollingWait),
			RetentionDays:     retentionDays(props, cfg.SQS.MessageRetention),
			PollInterval:      cfg.Poller.Interval,
		}

		if target, maxReceive, ok := redriveTarget(resources, props); ok {
			d.DeadLetter = contracts.DeadLetterPolicy{
				Enabled:             true,
				MaxDeliveryAttempts: maxReceive,
				QueueName:           target,
			}
			if d.DeadLetter.MaxDeliveryAttempts < 1 {
				d.DeadLetter.MaxDeliveryAttempts = cfg.SQS.MaxDeliveryAttempts
			}
		}

		descs = append(descs, d)
	}
	return descs
}

func isQueueResource(res any) bool {
	m, ok := res.(map[string]any)
	if !ok {
		return false
	}
	t, _ := m["Type"].(string)
	return t == sqsQueueResourceType
}

func resourceProperties(res any) map[string]any {
	m, ok := res.(map[string]any)
	if !ok {
		return nil
	}
	props, _ := m["Properties"].(map[string]any)
	return props
}

// resourceQueueName extracts the declared queue name, falling back to the
// sanitized resource ID.
func resourceQueueName(id string, props map[string]any) string {
	if name, ok := props["QueueName"].(string); ok && name != "" {
		return SanitizeQueueName(name)
	}
	return SanitizeQueueName(id)
}

// redriveTarget resolves the RedrivePolicy of a queue resource. The target
// tolerates three shapes: a literal ARN string, a symbolic reference to
// another declared resource (Fn::GetAtt or Ref), or a missing/null value,
// which skips DLQ wiring without error.
func redriveTarget(resources map[string]any, props map[string]any) (string, int, bool) {
	policy, ok := props["RedrivePolicy"].(map[string]any)
	if !ok {
		return "", 0, false
	}

	maxReceive := intFromAny(policy["maxReceiveCount"], 0)

	switch target := policy["deadLetterTargetArn"].(type) {
	case nil:
		return "", 0, false
	case string:
		if target == "" {
			return "", 0, false
		}
		// ARN-like string: the queue name is the trailing segment
		parts := strings.Split(target, ":")
		return SanitizeQueueName(parts[len(parts)-1]), maxReceive, true
	case map[string]any:
		if id := referencedResourceID(target); id != "" {
			if ref, ok := resources[id]; ok && isQueueResource(ref) {
				return resourceQueueName(id, resourceProperties(ref)), maxReceive, true
			}
		}
		return "", 0, false
	default:
		return "", 0, false
	}
}

// referencedResourceID extracts the resource ID from a Fn::GetAtt or Ref node.
func referencedResourceID(node map[string]any) string {
	if getAtt, ok := node["Fn::GetAtt"].([]any); ok && len(getAtt) > 0 {
		if id, ok := getAtt[0].(string); ok {
			return id
		}
	}
	if ref, ok := node["Ref"].(string); ok {
		return ref
	}
	return ""
}

// retentionDays converts a MessageRetentionPeriod (seconds) property to days.
func retentionDays(props map[string]any, def int) int {
	seconds := intProperty(props, "MessageRetentionPeriod", 0)
	if seconds <= 0 {
		return def
	}
	days := seconds / (24 * 60 * 60)
	if days < 1 {
		days = 1
	}
	return days
}

func intProperty(props map[string]any, key string, def int) int {
	if props == nil {
		return def
	}
	return intFromAny(props[key], def)
}

// intFromAny coerces the numeric shapes JSON and YAML decoders produce.
func intFromAny(v any, def int) int {
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	case string:
		if parsed, err := strconv.Atoi(n); err == nil {
			return parsed
		}
	}
	return def
}
