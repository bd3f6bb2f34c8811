package core

import "time"

// EventKind is the closed set of event types appended to a task's event log.
// Events drive both live fan-out to subscribed connections and catch-up
// replay after reconnects.
type EventKind string

const (
	// EventTaskCreated is emitted when a task is admitted to the queue.
	EventTaskCreated EventKind = "task_created"
	// EventTaskStarted is emitted when the worker picks a task up.
	EventTaskStarted EventKind = "task_started"
	// EventThinking is emitted after each persisted reasoning step.
	EventThinking EventKind = "thinking"
	// EventToolCall is emitted when a tool invocation begins.
	EventToolCall EventKind = "tool_call"
	// EventToolResult is emitted when a tool invocation finishes.
	EventToolResult EventKind = "tool_result"
	// EventCheckpoint is emitted after an automatic or manual checkpoint.
	EventCheckpoint EventKind = "checkpoint"
	// EventTaskCompleted is emitted when a task produces a terminal answer.
	EventTaskCompleted EventKind = "task_completed"
	// EventTaskFailed is emitted when a task fails; Data carries the error.
	EventTaskFailed EventKind = "task_failed"
	// EventTaskPaused is emitted after an external pause takes effect.
	EventTaskPaused EventKind = "task_paused"
	// EventTaskResumed is emitted when a paused task is requeued.
	EventTaskResumed EventKind = "task_resumed"
	// EventTaskCancelled is emitted when a task is cancelled.
	EventTaskCancelled EventKind = "task_cancelled"
	// EventError is emitted for recovered per-iteration failures.
	EventError EventKind = "error"
	// EventMessageAdded is emitted when a client injects a message into a
	// running task.
	EventMessageAdded EventKind = "message_added"
)

// TaskEvent is an append-only notification describing something that happened
// to a task. Sequence is strictly increasing per task and assigned by the
// store on append, so replay is gap free and ordered.
type TaskEvent struct {
	TaskID    string         `json:"task_id"`
	Kind      EventKind      `json:"kind"`
	Data      map[string]any `json:"data,omitempty"`
	Sequence  int64          `json:"sequence"`
	Timestamp time.Time      `json:"timestamp"`
}

// NewTaskEvent creates an event for taskID. The store assigns Sequence when
// the event is appended.
func NewTaskEvent(taskID string, kind EventKind, data map[string]any) *TaskEvent {
	return &TaskEvent{
		TaskID:    taskID,
		Kind:      kind,
		Data:      data,
		Timestamp: time.Now().UTC(),
	}
}

// EventSink receives events for live fan-out after they have been persisted.
// The gateway's hub implements this; a NoOpSink is used when no streaming
// layer is attached.
type EventSink interface {
	Publish(ev TaskEvent)
}

// NoOpSink discards all events.
type NoOpSink struct{}

// Publish implements EventSink.
func (NoOpSink) Publish(TaskEvent) {}
