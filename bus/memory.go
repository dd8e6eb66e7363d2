package bus

import (
	"context"
	"sync"
	"sync/atomic"
)

// MemoryBus implements Bus using in-memory channels.
// Useful for testing and single-process scenarios.
type MemoryBus struct {
	config Config

	mu     sync.RWMutex
	subs   map[string][]*memorySub // exact topic -> subscribers
	psubs  []*memorySub            // pattern subscribers
	closed atomic.Bool
}

type memorySub struct {
	topic   string // exact topic, or pattern when pattern is true
	pattern bool
	ch      chan *Message
	closed  atomic.Bool
	bus     *MemoryBus
}

// NewMemoryBus creates a new in-memory bus.
func NewMemoryBus(cfg Config) *MemoryBus {
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = DefaultConfig().BufferSize
	}

	return &MemoryBus{
		config: cfg,
		subs:   make(map[string][]*memorySub),
	}
}

// Publish sends a message to all subscribers whose topic or pattern
// matches, and returns how many of them it reached. A subscriber whose
// buffer is full drops the message and is not counted.
func (b *MemoryBus) Publish(ctx context.Context, topic string, payload []byte) (int, error) {
	if err := ValidateTopic(topic); err != nil {
		return 0, err
	}
	if b.closed.Load() {
		return 0, ErrClosed
	}

	msg := &Message{
		Topic:   topic,
		Payload: payload,
	}

	// Deliver under the read lock: Unsubscribe and Close only close
	// subscriber channels while holding the write lock, so a send here
	// can never hit a closed channel.
	b.mu.RLock()
	defer b.mu.RUnlock()

	delivered := 0
	for _, sub := range b.subs[topic] {
		if sub.deliver(msg) {
			delivered++
		}
	}
	for _, sub := range b.psubs {
		if MatchPattern(sub.topic, topic) && sub.deliver(msg) {
			delivered++
		}
	}

	return delivered, nil
}

// deliver hands the message to the subscriber without blocking.
func (s *memorySub) deliver(msg *Message) bool {
	if s.closed.Load() {
		return false
	}
	select {
	case s.ch <- msg:
		return true
	default:
		// Buffer full, drop message
		return false
	}
}

// Subscribe creates a subscription to a single topic.
func (b *MemoryBus) Subscribe(ctx context.Context, topic string) (Subscription, error) {
	if err := ValidateTopic(topic); err != nil {
		return nil, err
	}
	if b.closed.Load() {
		return nil, ErrClosed
	}

	sub := &memorySub{
		topic: topic,
		ch:    make(chan *Message, b.config.BufferSize),
		bus:   b,
	}

	b.mu.Lock()
	b.subs[topic] = append(b.subs[topic], sub)
	b.mu.Unlock()

	return sub, nil
}

// PSubscribe creates a subscription to all topics matching a
// trailing-star pattern.
func (b *MemoryBus) PSubscribe(ctx context.Context, pattern string) (Subscription, error) {
	if err := ValidatePattern(pattern); err != nil {
		return nil, err
	}
	if b.closed.Load() {
		return nil, ErrClosed
	}

	sub := &memorySub{
		topic:   pattern,
		pattern: true,
		ch:      make(chan *Message, b.config.BufferSize),
		bus:     b,
	}

	b.mu.Lock()
	b.psubs = append(b.psubs, sub)
	b.mu.Unlock()

	return sub, nil
}

// Close shuts down the bus and all subscriptions.
func (b *MemoryBus) Close() error {
	if b.closed.Swap(true) {
		return nil
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	// The closed swap is the close token: whoever flips it first closes
	// the channel, so a racing Unsubscribe cannot close it twice.
	for _, subs := range b.subs {
		for _, sub := range subs {
			if !sub.closed.Swap(true) {
				close(sub.ch)
			}
		}
	}
	for _, sub := range b.psubs {
		if !sub.closed.Swap(true) {
			close(sub.ch)
		}
	}

	b.subs = nil
	b.psubs = nil

	return nil
}

// Messages returns the message channel.
func (s *memorySub) Messages() <-chan *Message {
	return s.ch
}

// Unsubscribe cancels the subscription.
func (s *memorySub) Unsubscribe() error {
	if s.closed.Swap(true) {
		return nil
	}

	s.bus.mu.Lock()
	defer s.bus.mu.Unlock()

	if s.pattern {
		s.bus.removePatternSub(s)
	} else {
		s.bus.removeSub(s.topic, s)
	}

	close(s.ch)
	return nil
}

// removeSub removes an exact-topic subscription.
func (b *MemoryBus) removeSub(topic string, target *memorySub) {
	subs := b.subs[topic]
	for i, sub := range subs {
		if sub == target {
			b.subs[topic] = append(subs[:i], subs[i+1:]...)
			break
		}
	}
	if len(b.subs[topic]) == 0 {
		delete(b.subs, topic)
	}
}

// removePatternSub removes a pattern subscription.
func (b *MemoryBus) removePatternSub(target *memorySub) {
	for i, sub := range b.psubs {
		if sub == target {
			b.psubs = append(b.psubs[:i], b.psubs[i+1:]...)
			break
		}
	}
}
