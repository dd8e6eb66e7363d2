package bus

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisBus implements Bus using Redis pub/sub.
//
// Redis is the one mainstream pub/sub backend whose PUBLISH command
// reports the number of receiving subscribers, which is exactly the
// liveness signal Publish must return. Pattern subscribers count too.
type RedisBus struct {
	client *redis.Client
	config RedisConfig

	mu     sync.Mutex
	subs   []*redisSub
	closed atomic.Bool
}

// RedisConfig holds Redis connection configuration.
type RedisConfig struct {
	Config // Embed base config

	// Addr is the Redis server address (e.g., "localhost:6379").
	Addr string

	// Username and Password for ACL or requirepass auth.
	Username string
	Password string

	// DB selects the logical database. Pub/sub is global across
	// databases, so this only matters for other commands on the
	// shared client.
	DB int

	// DialTimeout for initial connection.
	DialTimeout time.Duration

	// ReadTimeout and WriteTimeout for socket operations.
	// Zero means the driver default.
	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	// PoolSize is the maximum number of socket connections.
	// Zero means the driver default.
	PoolSize int
}

// DefaultRedisConfig returns configuration with sensible defaults.
func DefaultRedisConfig() RedisConfig {
	return RedisConfig{
		Config:      DefaultConfig(),
		Addr:        "localhost:6379",
		DialTimeout: 5 * time.Second,
	}
}

// NewRedisBus connects to Redis and verifies the connection.
func NewRedisBus(ctx context.Context, cfg RedisConfig) (*RedisBus, error) {
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = DefaultConfig().BufferSize
	}
	if cfg.Addr == "" {
		cfg.Addr = DefaultRedisConfig().Addr
	}

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Username:     cfg.Username,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		PoolSize:     cfg.PoolSize,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis connect: %w", err)
	}

	return &RedisBus{
		client: client,
		config: cfg,
	}, nil
}

// NewRedisBusFromClient creates a RedisBus from an existing client.
// Closing the bus closes the client.
func NewRedisBusFromClient(client *redis.Client, cfg RedisConfig) *RedisBus {
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = DefaultConfig().BufferSize
	}

	return &RedisBus{
		client: client,
		config: cfg,
	}
}

// Publish sends a message to a topic and returns the subscriber count
// reported by Redis.
func (b *RedisBus) Publish(ctx context.Context, topic string, payload []byte) (int, error) {
	if err := ValidateTopic(topic); err != nil {
		return 0, err
	}
	if b.closed.Load() {
		return 0, ErrClosed
	}

	n, err := b.client.Publish(ctx, topic, payload).Result()
	if err != nil {
		return 0, fmt.Errorf("redis publish: %w", err)
	}

	return int(n), nil
}

// Subscribe creates a subscription to a single topic.
func (b *RedisBus) Subscribe(ctx context.Context, topic string) (Subscription, error) {
	if err := ValidateTopic(topic); err != nil {
		return nil, err
	}
	return b.subscribe(ctx, func() *redis.PubSub {
		return b.client.Subscribe(ctx, topic)
	})
}

// PSubscribe creates a subscription to all topics matching a
// trailing-star pattern.
func (b *RedisBus) PSubscribe(ctx context.Context, pattern string) (Subscription, error) {
	if err := ValidatePattern(pattern); err != nil {
		return nil, err
	}
	return b.subscribe(ctx, func() *redis.PubSub {
		return b.client.PSubscribe(ctx, pattern)
	})
}

func (b *RedisBus) subscribe(ctx context.Context, open func() *redis.PubSub) (Subscription, error) {
	if b.closed.Load() {
		return nil, ErrClosed
	}

	pubsub := open()

	// Wait for the server to confirm the subscription. Once this
	// returns, a Publish on any connection counts this subscriber.
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("redis subscribe: %w", err)
	}

	sub := &redisSub{
		pubsub: pubsub,
		ch:     make(chan *Message, b.config.BufferSize),
		bus:    b,
	}

	b.mu.Lock()
	if b.closed.Load() {
		b.mu.Unlock()
		_ = pubsub.Close()
		return nil, ErrClosed
	}
	b.subs = append(b.subs, sub)
	b.mu.Unlock()

	go sub.pump(pubsub.Channel(redis.WithChannelSize(b.config.BufferSize)))

	return sub, nil
}

// Close shuts down all subscriptions and the Redis connection.
func (b *RedisBus) Close() error {
	if b.closed.Swap(true) {
		return nil
	}

	b.mu.Lock()
	subs := b.subs
	b.subs = nil
	b.mu.Unlock()

	for _, sub := range subs {
		_ = sub.Unsubscribe()
	}

	return b.client.Close()
}

// Client returns the underlying Redis client for advanced use.
func (b *RedisBus) Client() *redis.Client {
	return b.client
}

// redisSub wraps a Redis pub/sub subscription.
type redisSub struct {
	pubsub *redis.PubSub
	ch     chan *Message
	bus    *RedisBus
	closed atomic.Bool
}

// pump copies driver messages into the subscription channel until the
// driver channel closes, then closes the subscription channel.
func (s *redisSub) pump(in <-chan *redis.Message) {
	defer close(s.ch)
	for m := range in {
		msg := &Message{
			Topic:   m.Channel,
			Payload: []byte(m.Payload),
		}
		select {
		case s.ch <- msg:
		default:
			// Buffer full, drop message
		}
	}
}

// Messages returns the message channel.
func (s *redisSub) Messages() <-chan *Message {
	return s.ch
}

// Unsubscribe cancels the subscription.
func (s *redisSub) Unsubscribe() error {
	if s.closed.Swap(true) {
		return nil
	}

	s.bus.mu.Lock()
	for i, sub := range s.bus.subs {
		if sub == s {
			s.bus.subs = append(s.bus.subs[:i], s.bus.subs[i+1:]...)
			break
		}
	}
	s.bus.mu.Unlock()

	// Closing the PubSub ends the driver channel, which lets pump
	// close the subscription channel.
	return s.pubsub.Close()
}
