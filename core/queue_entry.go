package core

import "time"

// QueueStatus enumerates the lifecycle states of a queue entry.
type QueueStatus string

const (
	// QueueStatusQueued marks an entry waiting to be dequeued.
	QueueStatusQueued QueueStatus = "queued"
	// QueueStatusProcessing marks an entry whose task is being executed.
	QueueStatusProcessing QueueStatus = "processing"
	// QueueStatusCompleted marks an entry whose task finished successfully.
	QueueStatusCompleted QueueStatus = "completed"
	// QueueStatusFailed marks an entry whose task failed.
	QueueStatusFailed QueueStatus = "failed"
)

// Queue priorities. Higher values dequeue first; ties break by lowest
// position (FIFO within a priority band).
const (
	// PriorityDefault is assigned to freshly enqueued tasks.
	PriorityDefault = 0
	// PriorityResumed lets resumed tasks jump ahead of default-priority work.
	PriorityResumed = 10
)

// QueueEntry is the admission record for a task. At most one entry exists per
// enqueued task; it is created on creation/resume and removed on cancel.
type QueueEntry struct {
	TaskID      string      `json:"task_id"`
	Priority    int         `json:"priority"`
	Position    int64       `json:"position"`
	Status      QueueStatus `json:"status"`
	QueuedAt    time.Time   `json:"queued_at"`
	StartedAt   *time.Time  `json:"started_at,omitempty"`
	CompletedAt *time.Time  `json:"completed_at,omitempty"`
}

// NewQueueEntry creates a queued entry for taskID at the given priority and
// position.
func NewQueueEntry(taskID string, priority int, position int64) *QueueEntry {
	return &QueueEntry{
		TaskID:   taskID,
		Priority: priority,
		Position: position,
		Status:   QueueStatusQueued,
		QueuedAt: time.Now().UTC(),
	}
}

// Before reports whether e should dequeue ahead of other: highest priority
// first, ties broken by lowest position.
func (e *QueueEntry) Before(other *QueueEntry) bool {
	if e.Priority != other.Priority {
		return e.Priority > other.Priority
	}
	return e.Position < other.Position
}
