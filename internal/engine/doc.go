// Package engine implements the dialing sequence orchestrator.
//
// The engine drives one dialing attempt at a time: it broadcasts a chevron
// activation, suspends until that chevron reports ready over the handshake
// channel, then moves on to the next. After the last chevron it publishes the
// sequence result and moves the gate to Active or Shutdown.
//
// ARCHITECTURE:
//
// Single Sequence Goroutine:
// Each attempt runs in its own goroutine that owns every write the attempt
// makes to the status and result channels. The goroutine blocks on a channel
// receive while a chevron animates; nothing spins and the rest of the process
// keeps running. Starting a new attempt, or resetting, first cancels the
// running goroutine and waits for it to exit, so two attempts never overlap
// and two handshake waits are never in flight together.
//
// Control surface (BeginDialing, Reset, Shutdown) is serialized by a mutex.
// Channel handlers are called synchronously on the publishing goroutine and
// must not call back into the engine; hand the call to another goroutine.
//
// ORDERING:
//
//   - Handshake i is only awaited after activation i has been broadcast
//   - Activation i+1 is never broadcast before handshake i arrives
//   - A reset (engine.Reset or any external write of Idle) stops the wait
//     immediately; no further activation and no result are published
//
// Logical Clock:
// Every activation is stamped with a monotonic seq from Clock.Next().
package engine
