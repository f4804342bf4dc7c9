// Package stream provides the in-process publish/subscribe primitives the
// dialing core is built on.
//
// Two channel flavours exist:
//
//   - Subject: fire-and-forget broadcast. Late subscribers miss past values.
//   - Behavior: single-slot stateful channel. Subscribers receive the current
//     value immediately, then every later value.
//
// DELIVERY MODEL:
//
// Delivery is synchronous on the publishing goroutine, in subscription order.
// Publishes on one channel are serialized, so every subscriber observes the
// same order of values. A handler must not publish to, or subscribe on, the
// channel that is currently invoking it; publishing on a different channel is
// fine and is how the handshake chain works.
//
// Releasing a subscription (calling the returned func) is safe at any time,
// including from inside a handler. Once released, the handler is never called
// again, even if a delivery was already in progress.
//
// LIFETIMES:
//
// Scope collects releases so a component can drop every subscription it owns
// in one step when it is torn down.
package stream
