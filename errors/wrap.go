package errors

import (
	"context"
	"errors"
	"fmt"
)

// Wrap wraps an error with additional context while preserving the error chain.
// If err is nil, Wrap returns nil.
// If err is already an *Error, its code, category, and context are preserved.
// Otherwise, it creates a new Internal error wrapping the original.
func Wrap(err error, message string, opts ...Option) *Error {
	if err == nil {
		return nil
	}

	// If it's already a structured error, preserve its properties
	var rpcErr *Error
	if errors.As(err, &rpcErr) {
		wrapped := &Error{
			code:      rpcErr.code,
			category:  rpcErr.category,
			message:   message,
			cause:     err,
			metadata:  rpcErr.Metadata(),
			retryable: rpcErr.retryable,
			function:  rpcErr.function,
			server:    rpcErr.server,
		}
		for _, opt := range opts {
			opt(wrapped)
		}
		return wrapped
	}

	// Check for context errors
	if errors.Is(err, context.DeadlineExceeded) {
		return New(ErrCodeTimeout, message, append(opts, WithCause(err))...)
	}
	if errors.Is(err, context.Canceled) {
		return New(ErrCodeCanceled, message, append(opts, WithCause(err))...)
	}

	// Default to internal error for unknown errors
	return New(ErrCodeInternal, message, append(opts, WithCause(err))...)
}

// Wrapf wraps an error with a formatted message.
func Wrapf(err error, format string, args ...interface{}) *Error {
	return Wrap(err, fmt.Sprintf(format, args...))
}

// WrapWithCode wraps an error with a specific error code.
func WrapWithCode(err error, code ErrorCode, message string, opts ...Option) *Error {
	if err == nil {
		return nil
	}
	opts = append(opts, WithCause(err))
	return New(code, message, opts...)
}

// AsRPCError attempts to extract a structured error from an error chain.
// Returns nil if none is found.
func AsRPCError(err error) RPCError {
	var rpcErr *Error
	if errors.As(err, &rpcErr) {
		return rpcErr
	}
	return nil
}

// Is checks if any error in the chain has the given error code.
func Is(err error, code ErrorCode) bool {
	var rpcErr *Error
	if errors.As(err, &rpcErr) {
		return rpcErr.code == code
	}
	return false
}

// IsCategory checks if any error in the chain has the given category.
func IsCategory(err error, category ErrorCategory) bool {
	var rpcErr *Error
	if errors.As(err, &rpcErr) {
		return rpcErr.category == category
	}
	return false
}

// IsRetryable checks if the error is retryable.
func IsRetryable(err error) bool {
	var rpcErr *Error
	if errors.As(err, &rpcErr) {
		return rpcErr.Retryable()
	}
	// Default to not retryable for unstructured errors
	return false
}

// IsTransient checks if the error is transient.
func IsTransient(err error) bool {
	return IsCategory(err, CategoryTransient)
}

// IsPermanent checks if the error is permanent.
func IsPermanent(err error) bool {
	return IsCategory(err, CategoryPermanent)
}

// Code extracts the error code from an error, if available.
// Returns empty string if err carries no structured error.
func Code(err error) ErrorCode {
	var rpcErr *Error
	if errors.As(err, &rpcErr) {
		return rpcErr.code
	}
	return ""
}

// Category extracts the error category from an error, if available.
// Returns empty string if err carries no structured error.
func Category(err error) ErrorCategory {
	var rpcErr *Error
	if errors.As(err, &rpcErr) {
		return rpcErr.category
	}
	return ""
}

// GetMetadata extracts metadata from an error.
// Returns nil if err carries no structured error.
func GetMetadata(err error) map[string]string {
	var rpcErr *Error
	if errors.As(err, &rpcErr) {
		return rpcErr.Metadata()
	}
	return nil
}

// Cause returns the root cause of the error chain.
func Cause(err error) error {
	for {
		unwrapper, ok := err.(interface{ Unwrap() error })
		if !ok {
			return err
		}
		inner := unwrapper.Unwrap()
		if inner == nil {
			return err
		}
		err = inner
	}
}

// Serialize converts any handler failure into its wire-ready structured form.
// Structured errors pass through unchanged, so their code and metadata survive
// the trip. Everything else becomes a HANDLER_FAILED record carrying the
// original message.
func Serialize(err error) *Error {
	if err == nil {
		return nil
	}
	var rpcErr *Error
	if errors.As(err, &rpcErr) {
		return rpcErr
	}
	return New(ErrCodeHandlerFailed, err.Error())
}

// RecoverPanic converts a recovered panic value into an Error.
func RecoverPanic(recovered interface{}) *Error {
	if recovered == nil {
		return nil
	}
	var message string
	switch v := recovered.(type) {
	case error:
		message = v.Error()
	case string:
		message = v
	default:
		message = fmt.Sprintf("%v", v)
	}
	return New(ErrCodePanic, message, WithMetadata("panic_value", fmt.Sprintf("%T", recovered)))
}
