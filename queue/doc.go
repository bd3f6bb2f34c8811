// Package queue implements task admission and lifecycle control.
//
// The Queue is the single writer of queue entries and of externally triggered
// task status transitions (pause, resume, cancel). Dequeue ordering is
// priority first, FIFO within a priority band; resumed tasks re-enter the
// queue at elevated priority so they run ahead of fresh work. Terminal
// transitions (complete, fail) are idempotent.
package queue
