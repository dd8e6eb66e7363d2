package rpc

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"github.com/remotify/remotify/bus"
	"github.com/remotify/remotify/errors"
)

// handle routes one inbound message. Traffic that does not parse as a
// call for this server id is someone else's and silently ignored.
func (l *Listener) handle(ctx context.Context, msg *bus.Message) {
	serverID, function, ok := ParseCallTopic(msg.Topic)
	if !ok || serverID != l.serverID {
		return
	}

	var call CallMessage
	if err := json.Unmarshal(msg.Payload, &call); err != nil {
		l.logger.Debug("malformed call dropped",
			zap.String("topic", msg.Topic), zap.Error(err))
		return
	}
	if call.ClientID == "" {
		// No reply address, nothing useful to do.
		l.logger.Debug("call without client id dropped",
			zap.String("topic", msg.Topic))
		return
	}

	l.mu.RLock()
	handler, found := l.handlers[function]
	l.mu.RUnlock()

	if !found {
		go l.reply(ctx, msg.Topic, function, &call, nil,
			errors.UnknownFunction(function, errors.WithServer(l.serverID)))
		return
	}

	// One goroutine per call: a slow handler never blocks dispatch.
	go func() {
		result, err := safeInvoke(ctx, handler, Args(call.Arguments))
		l.reply(ctx, msg.Topic, function, &call, result, err)
	}()
}

// safeInvoke runs the handler and converts a panic into a structured
// error, so a broken handler fails one call instead of the process.
func safeInvoke(ctx context.Context, handler Handler, args Args) (result any, err error) {
	defer func() {
		if r := recover(); r != nil {
			result = nil
			err = errors.RecoverPanic(r)
		}
	}()
	return handler(ctx, args)
}

// reply publishes the resolution of one call back to its caller.
// Failures here are logged, never propagated: the caller's timeout is
// the backstop.
func (l *Listener) reply(ctx context.Context, callTopic, function string, call *CallMessage, result any, failure error) {
	msg := ReplyMessage{
		Method:   callTopic,
		Callback: call.Callback,
		Success:  failure == nil,
	}

	if failure == nil {
		encoded, err := json.Marshal(result)
		if err != nil {
			msg.Success = false
			failure = errors.BadMessage("result not serializable",
				errors.WithCause(err),
				errors.WithFunction(function),
				errors.WithServer(l.serverID))
		} else {
			msg.Result = encoded
		}
	}
	if failure != nil {
		encoded, err := json.Marshal(errors.Serialize(failure))
		if err != nil {
			l.logger.Error("failure not serializable",
				zap.String("function", function), zap.Error(err))
			return
		}
		msg.Result = encoded
	}

	payload, err := json.Marshal(&msg)
	if err != nil {
		l.logger.Error("reply not serializable",
			zap.String("function", function), zap.Error(err))
		return
	}

	topic := CallbackTopic(l.serverID, call.ClientID)
	n, err := l.bus.Publish(ctx, topic, payload)
	if err != nil {
		l.logger.Error("reply publish failed",
			zap.String("topic", topic),
			zap.Int64("callback", call.Callback),
			zap.Error(err))
		return
	}
	if n == 0 {
		// The caller gave up or went away. Normal after a timeout.
		l.logger.Debug("reply had no receiver",
			zap.String("client", call.ClientID),
			zap.Int64("callback", call.Callback))
	}
}
