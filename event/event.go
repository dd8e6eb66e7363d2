// Package event provides fire-and-forget broadcast events over the bus.
//
// Events are the "and sometimes nobody cares" counterpart to rpc calls:
// a publisher does not learn whether anyone received an event, and a
// subscriber only sees events published while it was subscribed. Each
// named channel rides on one topic, /remotifyEvent/<channel>, carrying
// {"event": name, "data": payload} messages. Subscribers hand in a map
// from event name to handler; unknown names and malformed payloads are
// skipped.
package event

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/remotify/remotify/bus"
)

// TopicPrefix prefixes every event channel topic.
const TopicPrefix = "/remotifyEvent/"

// Message is the wire form of one event.
type Message struct {
	// Event names the event within its channel.
	Event string `json:"event"`

	// Data is the event payload, decoded by the handler.
	Data json.RawMessage `json:"data"`
}

// Handler consumes one event. A returned error is logged and does not
// stop the subscription.
type Handler func(ctx context.Context, data json.RawMessage) error

// Channel is a named broadcast channel bound to one bus.
type Channel struct {
	bus    bus.Bus
	name   string
	topic  string
	logger *zap.Logger
}

// Option configures a Channel.
type Option func(*Channel)

// WithLogger sets the logger. The default discards everything.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Channel) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New creates a Channel. The name becomes part of the topic and must be
// a single topic segment.
func New(b bus.Bus, name string, opts ...Option) (*Channel, error) {
	if name == "" || strings.ContainsAny(name, "/* \t\r\n") {
		return nil, fmt.Errorf("invalid channel name %q", name)
	}

	c := &Channel{
		bus:    b,
		name:   name,
		topic:  TopicPrefix + name,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Name returns the channel name.
func (c *Channel) Name() string {
	return c.name
}

// Topic returns the bus topic this channel rides on.
func (c *Channel) Topic() string {
	return c.topic
}

// Publish broadcasts one event to whoever is subscribed right now.
// Delivery is fire-and-forget: zero receivers is not an error.
func (c *Channel) Publish(ctx context.Context, event string, data any) error {
	if event == "" {
		return fmt.Errorf("empty event name")
	}

	encoded, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("event data not serializable: %w", err)
	}

	payload, err := json.Marshal(Message{Event: event, Data: encoded})
	if err != nil {
		return fmt.Errorf("event not serializable: %w", err)
	}

	if _, err := c.bus.Publish(ctx, c.topic, payload); err != nil {
		return fmt.Errorf("event publish: %w", err)
	}
	return nil
}

// Subscription is an active event subscription.
type Subscription struct {
	sub bus.Subscription
}

// Unsubscribe stops delivery.
func (s *Subscription) Unsubscribe() error {
	return s.sub.Unsubscribe()
}

// Subscribe starts delivering this channel's events to the matching
// handlers. Events without a handler are skipped. Handlers run one at a
// time in delivery order; a panic or error in one is logged and the
// subscription keeps going.
func (c *Channel) Subscribe(ctx context.Context, handlers map[string]Handler) (*Subscription, error) {
	if len(handlers) == 0 {
		return nil, fmt.Errorf("no handlers")
	}

	// Private copy so the caller's map can change underneath us.
	own := make(map[string]Handler, len(handlers))
	for name, h := range handlers {
		if h != nil {
			own[name] = h
		}
	}

	sub, err := c.bus.Subscribe(ctx, c.topic)
	if err != nil {
		return nil, fmt.Errorf("event subscribe: %w", err)
	}

	go c.pump(ctx, sub, own)

	return &Subscription{sub: sub}, nil
}

// pump decodes and dispatches until the subscription closes.
func (c *Channel) pump(ctx context.Context, sub bus.Subscription, handlers map[string]Handler) {
	for msg := range sub.Messages() {
		var ev Message
		if err := json.Unmarshal(msg.Payload, &ev); err != nil || ev.Event == "" {
			c.logger.Debug("malformed event dropped",
				zap.String("channel", c.name), zap.Error(err))
			continue
		}

		handler, ok := handlers[ev.Event]
		if !ok {
			c.logger.Debug("unhandled event skipped",
				zap.String("channel", c.name), zap.String("event", ev.Event))
			continue
		}

		c.deliver(ctx, handler, &ev)
	}
}

func (c *Channel) deliver(ctx context.Context, handler Handler, ev *Message) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("event handler panicked",
				zap.String("channel", c.name),
				zap.String("event", ev.Event),
				zap.Any("panic", r))
		}
	}()

	if err := handler(ctx, ev.Data); err != nil {
		c.logger.Error("event handler failed",
			zap.String("channel", c.name),
			zap.String("event", ev.Event),
			zap.Error(err))
	}
}
