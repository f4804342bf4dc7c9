// Package gate holds the dialing domain model and the channels that connect
// the orchestrator to the visual components.
//
// Types here are plain values; gate imports nothing internal except stream.
// Key constraints:
//   - Exactly one Status is current; transitions are validated (CanTransition)
//   - Activation and SequenceResult values are immutable once published
//   - Status and Result channels have one conceptual writer (the engine), with
//     StatusChannel.Reset as the documented escape hatch
//   - All JSON tags use snake_case
package gate
