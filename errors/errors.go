package errors

import (
	"encoding/json"
	"fmt"
	"time"
)

// RPCError is the interface for all structured errors produced by remotify.
// It extends the standard error interface with the context a caller needs to
// decide what to do with a failed call.
type RPCError interface {
	error

	// Code returns the specific error code identifying the failure type.
	Code() ErrorCode

	// Category returns the error category for retry/handling decisions.
	Category() ErrorCategory

	// Retryable returns true if repeating the call may succeed.
	Retryable() bool

	// Metadata returns additional context as key-value pairs.
	Metadata() map[string]string

	// Unwrap returns the underlying error, if any.
	Unwrap() error
}

// Error is the concrete implementation of RPCError. It is also the wire form
// of a failure: a failure reply carries its JSON serialization, and the caller
// re-hydrates it on receipt.
type Error struct {
	code      ErrorCode
	category  ErrorCategory
	message   string
	cause     error
	metadata  map[string]string
	retryable *bool // nil means use default based on category
	timestamp time.Time
	function  string // fully-qualified function name, if applicable
	server    string // target server identity, if applicable
}

// Ensure Error implements RPCError and json.Marshaler/Unmarshaler.
var (
	_ RPCError         = (*Error)(nil)
	_ json.Marshaler   = (*Error)(nil)
	_ json.Unmarshaler = (*Error)(nil)
)

// Error returns the error message.
func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.message, e.cause)
	}
	return e.message
}

// Code returns the error code.
func (e *Error) Code() ErrorCode {
	return e.code
}

// Category returns the error category.
func (e *Error) Category() ErrorCategory {
	return e.category
}

// Retryable returns whether this error is retryable.
func (e *Error) Retryable() bool {
	if e.retryable != nil {
		return *e.retryable
	}
	return e.category.IsRetryable()
}

// Metadata returns the error metadata.
func (e *Error) Metadata() map[string]string {
	if e.metadata == nil {
		return make(map[string]string)
	}
	// Return a copy to prevent modification
	result := make(map[string]string, len(e.metadata))
	for k, v := range e.metadata {
		result[k] = v
	}
	return result
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.cause
}

// Timestamp returns when the error occurred.
func (e *Error) Timestamp() time.Time {
	return e.timestamp
}

// Function returns the fully-qualified function name, if set.
func (e *Error) Function() string {
	return e.function
}

// Server returns the target server identity, if set.
func (e *Error) Server() string {
	return e.server
}

// Message returns the bare message without the cause chain.
func (e *Error) Message() string {
	return e.message
}

// errorJSON is the wire representation of an Error.
type errorJSON struct {
	Code      ErrorCode         `json:"code"`
	Category  ErrorCategory     `json:"category"`
	Message   string            `json:"message"`
	Cause     string            `json:"cause,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	Retryable bool              `json:"retryable"`
	Timestamp string            `json:"timestamp,omitempty"`
	Function  string            `json:"function,omitempty"`
	Server    string            `json:"server,omitempty"`
}

// MarshalJSON implements json.Marshaler.
func (e *Error) MarshalJSON() ([]byte, error) {
	j := errorJSON{
		Code:      e.code,
		Category:  e.category,
		Message:   e.message,
		Metadata:  e.metadata,
		Retryable: e.Retryable(),
		Function:  e.function,
		Server:    e.server,
	}
	if e.cause != nil {
		j.Cause = e.cause.Error()
	}
	if !e.timestamp.IsZero() {
		j.Timestamp = e.timestamp.Format(time.RFC3339Nano)
	}
	return json.Marshal(j)
}

// UnmarshalJSON implements json.Unmarshaler.
func (e *Error) UnmarshalJSON(data []byte) error {
	var j errorJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return err
	}
	e.code = j.Code
	e.category = j.Category
	e.message = j.Message
	e.metadata = j.Metadata
	e.function = j.Function
	e.server = j.Server
	r := j.Retryable
	e.retryable = &r
	if j.Cause != "" {
		e.cause = fmt.Errorf("%s", j.Cause)
	}
	if j.Timestamp != "" {
		if t, err := time.Parse(time.RFC3339Nano, j.Timestamp); err == nil {
			e.timestamp = t
		}
	}
	return nil
}

// Option is a functional option for configuring an Error.
type Option func(*Error)

// WithCategory overrides the default category.
func WithCategory(cat ErrorCategory) Option {
	return func(e *Error) {
		e.category = cat
	}
}

// WithRetryable explicitly sets whether the error is retryable.
func WithRetryable(retryable bool) Option {
	return func(e *Error) {
		e.retryable = &retryable
	}
}

// WithMetadata adds a metadata key-value pair.
func WithMetadata(key, value string) Option {
	return func(e *Error) {
		if e.metadata == nil {
			e.metadata = make(map[string]string)
		}
		e.metadata[key] = value
	}
}

// WithMetadataMap adds multiple metadata key-value pairs.
func WithMetadataMap(m map[string]string) Option {
	return func(e *Error) {
		if e.metadata == nil {
			e.metadata = make(map[string]string)
		}
		for k, v := range m {
			e.metadata[k] = v
		}
	}
}

// WithFunction sets the fully-qualified function name.
func WithFunction(name string) Option {
	return func(e *Error) {
		e.function = name
	}
}

// WithServer sets the target server identity.
func WithServer(id string) Option {
	return func(e *Error) {
		e.server = id
	}
}

// WithTimestamp sets a custom timestamp.
func WithTimestamp(t time.Time) Option {
	return func(e *Error) {
		e.timestamp = t
	}
}

// WithCause sets the underlying cause.
func WithCause(cause error) Option {
	return func(e *Error) {
		e.cause = cause
	}
}

// New creates a new Error with the given code and message.
func New(code ErrorCode, message string, opts ...Option) *Error {
	e := &Error{
		code:      code,
		category:  code.DefaultCategory(),
		message:   message,
		timestamp: time.Now(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Newf creates a new Error with a formatted message.
func Newf(code ErrorCode, format string, args ...interface{}) *Error {
	return New(code, fmt.Sprintf(format, args...))
}

// FromCode creates an error with the default description for the code.
func FromCode(code ErrorCode, opts ...Option) *Error {
	return New(code, code.Description(), opts...)
}

// BackendDown creates the error for a call publish that reached no subscriber.
func BackendDown(serverID string, opts ...Option) *Error {
	opts = append([]Option{WithServer(serverID)}, opts...)
	return New(ErrCodeBackendDown, fmt.Sprintf("backend %s is down", serverID), opts...)
}

// Timeout creates the error for a call whose reply never arrived.
func Timeout(function string, opts ...Option) *Error {
	opts = append([]Option{WithFunction(function)}, opts...)
	return New(ErrCodeTimeout, fmt.Sprintf("call to %s timed out", function), opts...)
}

// UnknownFunction creates the error a listener replies with when no handler
// is registered under the requested name.
func UnknownFunction(function string, opts ...Option) *Error {
	opts = append([]Option{WithFunction(function)}, opts...)
	return New(ErrCodeUnknownFunction, fmt.Sprintf("unknown function: %s", function), opts...)
}

// PublishFailed creates the error for a publish the bus refused to accept.
func PublishFailed(message string, opts ...Option) *Error {
	return New(ErrCodePublishFailed, message, opts...)
}

// Canceled creates the error for a call abandoned before any reply.
func Canceled(message string, opts ...Option) *Error {
	return New(ErrCodeCanceled, message, opts...)
}

// BadMessage creates the error for a payload that cannot be encoded or decoded.
func BadMessage(message string, opts ...Option) *Error {
	return New(ErrCodeBadMessage, message, opts...)
}

// NotForwarded creates the error for a name outside a forwarder's allowed set.
func NotForwarded(function string, opts ...Option) *Error {
	opts = append([]Option{WithFunction(function)}, opts...)
	return New(ErrCodeNotForwarded, fmt.Sprintf("name is not forwarded: %s", function), opts...)
}

// Internal creates an internal error.
func Internal(message string, opts ...Option) *Error {
	return New(ErrCodeInternal, message, opts...)
}
