// Package errors provides the structured error taxonomy for remotify calls.
// It defines the error codes and categories surfaced by callers and listeners,
// and the wire representation that lets a failure cross the bus and be
// re-hydrated on the other side with its code and metadata intact.
//
// # Error Categories
//
// Errors are classified into three categories:
//
//   - Transient: the same call may succeed if repeated (backend down, timeout)
//   - Permanent: repeating the call will not help (unknown function, bad input)
//   - Internal: unexpected failures indicating bugs (panics, corrupted payloads)
//
// # Error Codes
//
// Each error carries a code identifying the failure:
//
//   - BACKEND_DOWN: no listener received the call
//   - TIMEOUT: no reply arrived within the callback window
//   - UNKNOWN_FUNCTION: the listener has no handler under that name
//   - HANDLER_FAILED: the remote handler itself failed
//   - PUBLISH_FAILED: the bus refused the publish
//   - And more...
//
// # Usage
//
// Create a new error:
//
//	err := errors.New(errors.ErrCodeTimeout, "no reply from calculator")
//
// Wrap an existing error with context:
//
//	wrapped := errors.Wrap(err, "calling calc.add")
//
// Check what came back from a call:
//
//	if errors.Is(err, errors.ErrCodeBackendDown) {
//	    // nothing is listening; maybe retry later
//	}
//
// # JSON Serialization
//
// Errors serialize to JSON for transmission in failure replies:
//
//	data, err := json.Marshal(rpcErr)
//
// and deserialize back with code, metadata, and retryability preserved:
//
//	var rpcErr errors.Error
//	json.Unmarshal(data, &rpcErr)
package errors
