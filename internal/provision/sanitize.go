package provision

import "strings"

const (
	// maxQueueNameLength is the backend limit for queue names
	maxQueueNameLength = 80
	// fallbackQueueName is used when sanitization yields an empty name
	fallbackQueueName = "queue"
)

// SanitizeQueueName maps an arbitrary string to a valid backend queue name.
// Allowed characters are alphanumerics, hyphens and underscores; every run of
// disallowed characters becomes a single hyphen, repeated hyphens collapse,
// trailing hyphens are trimmed and the result is truncated to the maximum
// length. The function is idempotent and never returns an empty string.
func SanitizeQueueName(name string) string {
	var b strings.Builder
	b.Grow(len(name))

	prevHyphen := false
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			b.WriteRune(r)
			prevHyphen = false
		default:
			// Disallowed runs and literal hyphens both collapse to one hyphen
			if !prevHyphen {
				b.WriteByte('-')
				prevHyphen = true
			}
		}
	}

	s := b.String()
	if len(s) > maxQueueNameLength {
		s = s[:maxQueueNameLength]
	}
	s = strings.TrimRight(s, "-")
	if s == "" {
		return fallbackQueueName
	}
	return s
}
