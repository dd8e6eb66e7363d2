package errors

// ErrorCategory classifies errors by their nature and retry semantics.
type ErrorCategory string

// Error categories define how errors should be handled.
const (
	// CategoryTransient indicates failures where repeating the call may succeed.
	// Examples: no listener up yet, reply lost to a timeout.
	CategoryTransient ErrorCategory = "transient"

	// CategoryPermanent indicates failures where repeating the call will not help.
	// Examples: unknown function name, arguments that cannot be serialized.
	CategoryPermanent ErrorCategory = "permanent"

	// CategoryInternal indicates unexpected errors, bugs, or corrupted traffic.
	// Examples: recovered handler panics, undecodable reply payloads.
	CategoryInternal ErrorCategory = "internal"
)

// String returns the string representation of the category.
func (c ErrorCategory) String() string {
	return string(c)
}

// IsRetryable returns true if errors in this category may succeed on retry.
func (c ErrorCategory) IsRetryable() bool {
	return c == CategoryTransient
}

// ErrorCode identifies specific failure modes of a remotify call.
type ErrorCode string

// Error codes surfaced by callers and listeners.
const (
	// Transient errors
	ErrCodeBackendDown   ErrorCode = "BACKEND_DOWN"   // Call publish reached zero subscribers
	ErrCodeTimeout       ErrorCode = "TIMEOUT"        // No reply within the callback window
	ErrCodePublishFailed ErrorCode = "PUBLISH_FAILED" // Bus rejected the publish outright

	// Permanent errors
	ErrCodeUnknownFunction ErrorCode = "UNKNOWN_FUNCTION" // No handler registered under the name
	ErrCodeHandlerFailed   ErrorCode = "HANDLER_FAILED"   // Remote handler returned an error
	ErrCodeBadMessage      ErrorCode = "BAD_MESSAGE"      // Payload could not be encoded or decoded
	ErrCodeNotForwarded    ErrorCode = "NOT_FORWARDED"    // Name outside a forwarder's allowed set
	ErrCodeCanceled        ErrorCode = "CANCELED"         // Call canceled before a reply arrived

	// Internal errors
	ErrCodeInternal ErrorCode = "INTERNAL" // Unexpected internal error
	ErrCodePanic    ErrorCode = "PANIC"    // Recovered from a handler panic
)

// String returns the string representation of the error code.
func (c ErrorCode) String() string {
	return string(c)
}

// DefaultCategory returns the default category for an error code.
func (c ErrorCode) DefaultCategory() ErrorCategory {
	switch c {
	case ErrCodeBackendDown, ErrCodeTimeout, ErrCodePublishFailed:
		return CategoryTransient

	case ErrCodeUnknownFunction, ErrCodeHandlerFailed, ErrCodeBadMessage,
		ErrCodeNotForwarded, ErrCodeCanceled:
		return CategoryPermanent

	case ErrCodeInternal, ErrCodePanic:
		return CategoryInternal

	default:
		return CategoryInternal
	}
}

// DefaultRetryable returns whether this error code is typically retryable.
func (c ErrorCode) DefaultRetryable() bool {
	return c.DefaultCategory().IsRetryable()
}

// codeDescriptions provides human-readable descriptions for error codes.
var codeDescriptions = map[ErrorCode]string{
	ErrCodeBackendDown:     "no subscriber received the call",
	ErrCodeTimeout:         "no reply within the callback timeout",
	ErrCodePublishFailed:   "bus rejected the publish",
	ErrCodeUnknownFunction: "unknown function",
	ErrCodeHandlerFailed:   "handler failed",
	ErrCodeBadMessage:      "malformed message payload",
	ErrCodeNotForwarded:    "name is not forwarded",
	ErrCodeCanceled:        "call canceled",
	ErrCodeInternal:        "internal error",
	ErrCodePanic:           "recovered from panic",
}

// Description returns a human-readable description for the error code.
func (c ErrorCode) Description() string {
	if desc, ok := codeDescriptions[c]; ok {
		return desc
	}
	return "unknown error"
}
