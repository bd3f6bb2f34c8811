// Package core provides the foundational domain types, interfaces and error
// taxonomy used by TaskMesh. It defines the core abstractions for:
//
//   - Tasks (goal-directed units of agent work with a durable lifecycle)
//   - Queue entries (admission and priority ordering records)
//   - Steps (immutable, strictly ordered execution history)
//   - Checkpoints (restorable snapshots of derived task state)
//   - Task events (append-only notifications for streaming and replay)
//   - Pluggable Store / Reasoner / Executor / ArtifactStore collaborators
//
// The package intentionally keeps implementation concerns (persistence,
// worker orchestration, transport) out of scope, exposing small interfaces to
// enable custom backends and extensions. All exported identifiers include
// concise documentation to aid discoverability and external consumption.
package core
