// Package state implements per-task durable state management: the append-only
// step log, checkpoint snapshots and the append-only event log.
//
// A Manager is scoped to a single task. Derived execution state is never
// stored as an authoritative row; LoadState reconstructs it by replaying the
// task row and its step log, so the step log is the single source of truth.
// Restoring a checkpoint is the only destructive operation and requires the
// task to be paused first.
package state
