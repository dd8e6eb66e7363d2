package rpc

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/remotify/remotify/bus"
)

// Common errors.
var (
	ErrAlreadyStarted = errors.New("listener already started")
	ErrNotStarted     = errors.New("listener not started")
)

// Handler implements one callable function. The returned value is
// serialized into the success reply; a returned error becomes a failure
// reply, with structured errors crossing the wire intact.
type Handler func(ctx context.Context, args Args) (any, error)

// Listener answers calls addressed to one server id.
//
// It holds a single pattern subscription covering every call topic of
// its server id, so a call to an unregistered name still reaches a live
// listener and comes back as UNKNOWN_FUNCTION, while a server id with no
// running listener at all is detected by the caller through the zero
// publish count.
type Listener struct {
	bus      bus.Bus
	serverID string
	logger   *zap.Logger

	mu       sync.RWMutex
	handlers map[string]Handler

	sub     bus.Subscription
	running atomic.Bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// NewListener creates a Listener for serverID. Nothing is subscribed
// until Start.
func NewListener(b bus.Bus, serverID string, opts ...Option) (*Listener, error) {
	if !validID(serverID) {
		return nil, fmt.Errorf("invalid server id %q", serverID)
	}

	o := buildOptions(opts)

	return &Listener{
		bus:      b,
		serverID: serverID,
		logger:   o.logger,
		handlers: make(map[string]Handler),
	}, nil
}

// ServerID returns the server id this listener answers for.
func (l *Listener) ServerID() string {
	return l.serverID
}

// Register adds a handler under the given name. Registering a name that
// already exists replaces the previous handler. Registration is allowed
// before and after Start.
func (l *Listener) Register(name string, handler Handler) {
	if handler == nil {
		return
	}
	l.mu.Lock()
	l.handlers[name] = handler
	l.mu.Unlock()
}

// Functions returns the currently registered names, sorted.
func (l *Listener) Functions() []string {
	l.mu.RLock()
	names := make([]string, 0, len(l.handlers))
	for name := range l.handlers {
		names = append(names, name)
	}
	l.mu.RUnlock()
	sort.Strings(names)
	return names
}

// Start subscribes to the server's call pattern and begins answering.
// Returns ErrAlreadyStarted if already running.
func (l *Listener) Start(ctx context.Context) error {
	if l.running.Swap(true) {
		return ErrAlreadyStarted
	}

	if ctx == nil {
		ctx = context.Background()
	}

	sub, err := l.bus.PSubscribe(ctx, CallPattern(l.serverID))
	if err != nil {
		l.running.Store(false)
		return fmt.Errorf("call subscribe: %w", err)
	}

	l.sub = sub
	l.stopCh = make(chan struct{})
	l.doneCh = make(chan struct{})

	go l.run(ctx)
	return nil
}

// run is the main dispatch loop.
func (l *Listener) run(ctx context.Context) {
	defer close(l.doneCh)

	for {
		select {
		case <-ctx.Done():
			l.running.Store(false)
			_ = l.sub.Unsubscribe()
			return
		case <-l.stopCh:
			return
		case msg, ok := <-l.sub.Messages():
			if !ok {
				return
			}
			l.handle(ctx, msg)
		}
	}
}

// Stop unsubscribes and waits for the dispatch loop to exit. Calls
// already handed to handlers finish on their own goroutines.
// Returns ErrNotStarted if not running.
func (l *Listener) Stop() error {
	if !l.running.Swap(false) {
		return ErrNotStarted
	}
	close(l.stopCh)
	<-l.doneCh
	return l.sub.Unsubscribe()
}
