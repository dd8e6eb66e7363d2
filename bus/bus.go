package bus

import (
	"context"
	"errors"
	"strings"
)

// Common errors.
var (
	ErrClosed         = errors.New("bus closed")
	ErrInvalidTopic   = errors.New("invalid topic")
	ErrInvalidPattern = errors.New("invalid pattern")
)

// Message represents a message received from the bus.
type Message struct {
	// Topic the message was published to.
	Topic string

	// Payload is the message body.
	Payload []byte
}

// Bus provides topic-addressed pub/sub messaging.
//
// Delivery is fire-and-forget: no retention, no acknowledgements, no
// redelivery. A message published while a subscriber is slow or absent
// is gone.
type Bus interface {
	// Publish sends a message to all current subscribers of a topic and
	// returns the number of subscribers it was delivered to. Zero means
	// nobody was listening.
	Publish(ctx context.Context, topic string, payload []byte) (int, error)

	// Subscribe creates a subscription to a single topic.
	// All subscribers of a topic receive all messages.
	Subscribe(ctx context.Context, topic string) (Subscription, error)

	// PSubscribe creates a subscription to every topic matching a
	// pattern. Patterns end with a single trailing "*" wildcard, e.g.
	// "/remotify/calc/call/*".
	PSubscribe(ctx context.Context, pattern string) (Subscription, error)

	// Close shuts down the bus and terminates all subscriptions.
	Close() error
}

// Subscription represents an active subscription.
type Subscription interface {
	// Messages returns the channel for incoming messages.
	// Channel is closed when the subscription ends.
	Messages() <-chan *Message

	// Unsubscribe cancels the subscription.
	Unsubscribe() error
}

// Config holds common bus configuration.
type Config struct {
	// BufferSize for subscription channels.
	// Default: 256
	BufferSize int
}

// DefaultConfig returns configuration with sensible defaults.
func DefaultConfig() Config {
	return Config{
		BufferSize: 256,
	}
}

// ValidateTopic checks that a topic can be published or subscribed to.
// Topics must be non-empty and literal: the "*" wildcard belongs to
// patterns only.
func ValidateTopic(topic string) error {
	if topic == "" || strings.ContainsAny(topic, "* \t\r\n") {
		return ErrInvalidTopic
	}
	return nil
}

// ValidatePattern checks that a pattern is usable with PSubscribe.
// Patterns carry exactly one "*", at the end.
func ValidatePattern(pattern string) error {
	if len(pattern) < 2 || !strings.HasSuffix(pattern, "*") {
		return ErrInvalidPattern
	}
	prefix := pattern[:len(pattern)-1]
	if strings.ContainsAny(prefix, "* \t\r\n") {
		return ErrInvalidPattern
	}
	return nil
}

// MatchPattern reports whether a topic matches a trailing-star pattern.
// The wildcard matches any suffix, including the empty one.
func MatchPattern(pattern, topic string) bool {
	if !strings.HasSuffix(pattern, "*") {
		return pattern == topic
	}
	return strings.HasPrefix(topic, pattern[:len(pattern)-1])
}
