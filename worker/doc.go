// Package worker implements the task execution engine: a polling loop that
// dequeues tasks and drives each one through the iterative think/act/observe
// cycle until a terminal answer or a resource limit.
//
// Every step is persisted before the loop continues, so a crash loses at most
// the in-flight iteration. Cancellation and pause are cooperative: the loop
// checks the externally visible task status at each iteration boundary and
// halts without recording further steps. Per-iteration failures are recovered
// and logged as error events; only a streak of consecutive failures on the
// same tool fails the task.
package worker
