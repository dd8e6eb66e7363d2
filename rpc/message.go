package rpc

import (
	"encoding/json"
	"strconv"

	"github.com/remotify/remotify/errors"
)

// CallMessage is the wire form of one invocation.
type CallMessage struct {
	// ClientID names the caller instance the reply should go back to.
	ClientID string `json:"clientid"`

	// Callback is the caller-scoped correlation id of this invocation.
	Callback int64 `json:"callback"`

	// Arguments holds the positional arguments, each still JSON-encoded.
	Arguments []json.RawMessage `json:"arguments"`
}

// ReplyMessage is the wire form of one call's resolution.
type ReplyMessage struct {
	// Method is the full call topic this reply answers. Diagnostic only;
	// correlation runs on Callback.
	Method string `json:"method"`

	// Callback echoes the correlation id from the call.
	Callback int64 `json:"callback"`

	// Success distinguishes a handler result from a failure.
	Success bool `json:"success"`

	// Result is the handler's return value, or the serialized structured
	// error when Success is false.
	Result json.RawMessage `json:"result"`
}

// marshalArguments encodes each argument value separately so the listener
// side can decode them positionally. A zero-argument call still carries
// an empty array on the wire, never null.
func marshalArguments(args []any) ([]json.RawMessage, error) {
	out := make([]json.RawMessage, len(args))
	for i, arg := range args {
		b, err := json.Marshal(arg)
		if err != nil {
			return nil, errors.BadMessage("argument not serializable",
				errors.WithCause(err),
				errors.WithMetadata("argument", strconv.Itoa(i)))
		}
		out[i] = b
	}
	return out, nil
}

// decodeFailure re-hydrates the structured error carried by a failure
// reply. Anything that does not decode becomes a HANDLER_FAILED record
// carrying the raw text.
func decodeFailure(result json.RawMessage, function string) *errors.Error {
	var e errors.Error
	if err := json.Unmarshal(result, &e); err == nil && e.Code() != "" {
		return &e
	}
	return errors.New(errors.ErrCodeHandlerFailed, string(result),
		errors.WithFunction(function))
}
