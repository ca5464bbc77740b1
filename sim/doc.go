// Package sim provides the deterministic pub/sub transport engine.
//
// # Reading Guide
//
// Start with these files to understand the engine:
//   - types.go: identifiers, TxKey/RxKey ordering and message types
//   - server.go: the Server, which owns every registry, queue and stream
//   - connection.go: the per-client handle enforcing causal send order
//
// # Architecture
//
// The Server is built from small single-purpose parts, each unexported to
// clients except through Server and Connection:
//   - identity.go: client id assignment
//   - subscription.go: subscription windows and declared publishers
//   - transport_config.go: per-channel latency, loss and buffer policy
//   - queue.go: per-(subscriber, channel) delivery queues
//   - waterline.go: send/receive waterlines and the delivery bound
//   - rng.go: the per-client random streams derived from one seed
//
// Sub-packages build on the engine:
//   - sim/trace/: decision trace recording and summaries
//   - sim/client/: reference clients and the round-robin driver
//   - sim/scenario/: YAML scenario files wiring clients to a Server
//
// # Delivery Guarantee
//
// Every client sees messages in strictly increasing RxKey order, at most
// once. A receive is clamped to the earliest time any permitted publisher
// on the receiver's channels could still send at, so nothing can later be
// queued before what was already delivered. Same seed and same call order
// give identical deliveries.
package sim
