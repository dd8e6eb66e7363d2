// Package bus provides the pub/sub transport that RPC traffic rides on.
//
// # Overview
//
// The Bus interface is a thin topic-addressed pub/sub contract. Delivery
// is fire-and-forget: no retention, no acknowledgements, no redelivery.
// The one property layered protocols depend on is that Publish reports
// how many subscribers the backend handed the message to, so a caller
// can tell "nobody was listening" apart from "the reply is still on its
// way". All implementations use channel-based APIs for Go-idiomatic
// concurrent use.
//
// # Available Implementations
//
//   - RedisBus: Redis pub/sub, whose PUBLISH reply carries the
//     subscriber count this package requires
//   - MemoryBus: In-memory implementation for testing and
//     single-process use
//
// # Patterns
//
// Pub/Sub - broadcast to all subscribers of a topic:
//
//	n, _ := bus.Publish(ctx, "/remotifyEvent/metrics", payload)
//	sub, _ := bus.Subscribe(ctx, "/remotifyEvent/metrics")
//	for msg := range sub.Messages() {
//	    // Handle message
//	}
//
// Pattern subscriptions - one subscription covering a topic prefix:
//
//	sub, _ := bus.PSubscribe(ctx, "/remotify/calc/call/*")
//	// Receives every call topic under the calc server
//
// Liveness - the publish count as a presence check:
//
//	n, _ := bus.Publish(ctx, topic, payload)
//	if n == 0 {
//	    // No subscriber saw the message; it is gone
//	}
package bus
