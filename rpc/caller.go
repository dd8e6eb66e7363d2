package rpc

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/remotify/remotify/bus"
	"github.com/remotify/remotify/errors"
)

// Caller issues calls against one server id and correlates the replies.
//
// Each instance owns a unique identity (logical name plus a random
// suffix), one subscription on its own reply topic, and a registry of
// in-flight calls keyed by correlation id. A Caller is safe for
// concurrent use.
type Caller struct {
	bus        bus.Bus
	serverID   string
	callerID   string
	replyTopic string
	timeout    time.Duration
	logger     *zap.Logger

	seq atomic.Int64

	mu      sync.Mutex
	pending map[int64]*pendingCall

	sub    bus.Subscription
	done   chan struct{}
	closed atomic.Bool
}

// pendingCall is one in-flight call. The reply channel is buffered so
// resolution never blocks the dispatcher.
type pendingCall struct {
	reply chan *ReplyMessage
}

// NewCaller creates a Caller for serverID and subscribes to its reply
// topic. The returned Caller is live until Close.
func NewCaller(ctx context.Context, b bus.Bus, serverID string, opts ...Option) (*Caller, error) {
	if !validID(serverID) {
		return nil, fmt.Errorf("invalid server id %q", serverID)
	}

	o := buildOptions(opts)
	if !validID(o.callerName) {
		return nil, fmt.Errorf("invalid caller name %q", o.callerName)
	}

	callerID := o.callerName + "-" + uuid.NewString()

	c := &Caller{
		bus:        b,
		serverID:   serverID,
		callerID:   callerID,
		replyTopic: CallbackTopic(serverID, callerID),
		timeout:    o.timeout,
		logger:     o.logger,
		pending:    make(map[int64]*pendingCall),
		done:       make(chan struct{}),
	}

	sub, err := b.Subscribe(ctx, c.replyTopic)
	if err != nil {
		return nil, fmt.Errorf("callback subscribe: %w", err)
	}
	c.sub = sub

	go c.dispatch()

	return c, nil
}

// CallerID returns the unique identity of this instance.
func (c *Caller) CallerID() string {
	return c.callerID
}

// ServerID returns the server id calls are addressed to.
func (c *Caller) ServerID() string {
	return c.serverID
}

// Pending returns the number of in-flight calls.
func (c *Caller) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

// Call invokes the named function on the remote server and returns its
// decoded result. Failures come back as structured errors from the
// errors package: BACKEND_DOWN when nobody subscribes to the server's
// call topics, TIMEOUT when the reply window elapses, or the remote
// failure re-hydrated.
func (c *Caller) Call(ctx context.Context, function string, args ...any) (any, error) {
	raw, err := c.call(ctx, function, args)
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return nil, nil
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, errors.BadMessage("result not decodable",
			errors.WithCause(err), errors.WithFunction(function))
	}
	return v, nil
}

// CallInto invokes the named function and decodes its result into out,
// which must be a non-nil pointer. A nil out discards the result.
func (c *Caller) CallInto(ctx context.Context, function string, out any, args ...any) error {
	raw, err := c.call(ctx, function, args)
	if err != nil {
		return err
	}
	if out == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return errors.BadMessage("result not decodable",
			errors.WithCause(err), errors.WithFunction(function))
	}
	return nil
}

func (c *Caller) call(ctx context.Context, function string, args []any) (json.RawMessage, error) {
	if c.closed.Load() {
		return nil, errors.Canceled("caller closed", errors.WithFunction(function))
	}

	encoded, err := marshalArguments(args)
	if err != nil {
		return nil, err
	}

	id := c.seq.Add(1)
	pc := &pendingCall{reply: make(chan *ReplyMessage, 1)}
	c.mu.Lock()
	c.pending[id] = pc
	c.mu.Unlock()

	payload, err := json.Marshal(CallMessage{
		ClientID:  c.callerID,
		Callback:  id,
		Arguments: encoded,
	})
	if err != nil {
		c.remove(id)
		return nil, errors.BadMessage("call not serializable",
			errors.WithCause(err), errors.WithFunction(function))
	}

	n, err := c.bus.Publish(ctx, CallTopic(c.serverID, function), payload)
	if err != nil {
		c.remove(id)
		return nil, errors.PublishFailed("call publish failed",
			errors.WithCause(err),
			errors.WithFunction(function),
			errors.WithServer(c.serverID))
	}
	if n == 0 {
		// Nobody subscribes to this server's call topics. The message
		// is gone; waiting out the timeout would change nothing.
		c.remove(id)
		return nil, errors.BackendDown(c.serverID, errors.WithFunction(function))
	}

	timer := time.NewTimer(c.timeout)
	defer timer.Stop()

	select {
	case reply := <-pc.reply:
		return c.resolve(reply, function)
	case <-timer.C:
		if c.remove(id) {
			argsJSON, _ := json.Marshal(encoded)
			return nil, errors.Timeout(function,
				errors.WithServer(c.serverID),
				errors.WithMetadata("arguments", string(argsJSON)))
		}
		// Lost the race: the dispatcher already took the entry, so the
		// reply is either buffered or about to be.
		return c.resolve(<-pc.reply, function)
	case <-ctx.Done():
		if c.remove(id) {
			return nil, errors.Wrap(ctx.Err(), "call abandoned",
				errors.WithFunction(function),
				errors.WithServer(c.serverID))
		}
		return c.resolve(<-pc.reply, function)
	case <-c.done:
		if c.remove(id) {
			return nil, errors.Canceled("caller closed", errors.WithFunction(function))
		}
		return c.resolve(<-pc.reply, function)
	}
}

func (c *Caller) resolve(reply *ReplyMessage, function string) (json.RawMessage, error) {
	if reply.Success {
		return reply.Result, nil
	}
	return nil, decodeFailure(reply.Result, function)
}

// remove deletes the pending entry if it still exists. The existence
// check under the mutex is what makes reply delivery, timeout expiry,
// and cancellation remove each entry exactly once.
func (c *Caller) remove(id int64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.pending[id]; !ok {
		return false
	}
	delete(c.pending, id)
	return true
}

// dispatch consumes the reply subscription until it closes, resolving
// pending calls by correlation id. Replies to ids that are no longer
// pending arrived after a timeout or cancellation and are dropped.
func (c *Caller) dispatch() {
	for msg := range c.sub.Messages() {
		if msg.Topic != c.replyTopic {
			continue
		}

		var reply ReplyMessage
		if err := json.Unmarshal(msg.Payload, &reply); err != nil {
			c.logger.Debug("malformed reply dropped",
				zap.String("topic", msg.Topic), zap.Error(err))
			continue
		}

		c.mu.Lock()
		pc, ok := c.pending[reply.Callback]
		if ok {
			delete(c.pending, reply.Callback)
		}
		c.mu.Unlock()

		if !ok {
			c.logger.Debug("late reply dropped",
				zap.Int64("callback", reply.Callback),
				zap.String("method", reply.Method))
			continue
		}

		pc.reply <- &reply
	}
}

// Close unsubscribes from the reply topic and rejects every in-flight
// call with CANCELED. Safe to call more than once.
func (c *Caller) Close() error {
	if c.closed.Swap(true) {
		return nil
	}
	close(c.done)
	return c.sub.Unsubscribe()
}
