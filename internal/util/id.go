package util

import "github.com/google/uuid"

// NewID generates a new unique identifier for tasks, steps, checkpoints and
// events. UUIDs keep identifiers collision free across process restarts
// without coordinating with the store.
func NewID() string { return uuid.NewString() }
