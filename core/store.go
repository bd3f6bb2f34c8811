package core

import "context"

// Store is the durable row store collaborator. Implementations must provide
// transactional writes, at least read-committed isolation and ordered range
// scans by (taskID, monotonic counter). The logical collections are tasks,
// queue entries, steps, checkpoints and events.
//
// Counter assignment: AppendStep and AppendEvent assign the next per-task
// step number / sequence atomically inside the store, so concurrent writers
// (worker loop and gateway message injection) can never produce duplicates or
// gaps.
type Store interface {
	// CreateTask persists a new task row.
	CreateTask(ctx context.Context, task *Task) error
	// GetTask returns the task or an error wrapping ErrNotFound.
	GetTask(ctx context.Context, id string) (*Task, error)
	// UpdateTask overwrites the task row.
	UpdateTask(ctx context.Context, task *Task) error
	// MutateTask applies mutate to the current task row and persists the
	// result as one atomic read-modify-write. Concurrent writers (the worker
	// updating execution fields, the queue switching status) can never
	// overwrite each other's committed columns through this method.
	MutateTask(ctx context.Context, id string, mutate func(task *Task)) (*Task, error)
	// ListTasksByOwner returns all tasks for ownerID ordered by creation time.
	ListTasksByOwner(ctx context.Context, ownerID string) ([]*Task, error)

	// PutQueueEntry inserts or replaces the queue entry for entry.TaskID.
	PutQueueEntry(ctx context.Context, entry *QueueEntry) error
	// GetQueueEntry returns the entry for taskID or an error wrapping ErrNotFound.
	GetQueueEntry(ctx context.Context, taskID string) (*QueueEntry, error)
	// DeleteQueueEntry removes the entry for taskID. Missing entries are a no-op.
	DeleteQueueEntry(ctx context.Context, taskID string) error
	// ListQueueEntries returns entries with the given status ordered by
	// priority (descending) then position (ascending).
	ListQueueEntries(ctx context.Context, status QueueStatus) ([]*QueueEntry, error)
	// MaxQueuePosition returns the highest position ever assigned (0 when empty).
	MaxQueuePosition(ctx context.Context) (int64, error)

	// AppendStep assigns step.StepNumber (max+1 for the task) and inserts the
	// immutable step in one atomic operation.
	AppendStep(ctx context.Context, step *Step) error
	// ListSteps returns all steps for taskID ordered by step number.
	ListSteps(ctx context.Context, taskID string) ([]*Step, error)

	// PutCheckpoint persists a checkpoint snapshot.
	PutCheckpoint(ctx context.Context, cp *Checkpoint) error
	// GetCheckpoint returns the checkpoint or an error wrapping ErrNotFound.
	GetCheckpoint(ctx context.Context, taskID, id string) (*Checkpoint, error)
	// LatestCheckpoint returns the most recent checkpoint for taskID or an
	// error wrapping ErrNotFound when none exists.
	LatestCheckpoint(ctx context.Context, taskID string) (*Checkpoint, error)
	// RestoreCheckpoint atomically persists the restored task row and deletes
	// every step with a number greater than stepNumber. Implementations must
	// run both writes in a single transaction (or under one lock).
	RestoreCheckpoint(ctx context.Context, task *Task, stepNumber int) error

	// AppendEvent assigns ev.Sequence (last+1 for the task) and appends the
	// event in one atomic operation.
	AppendEvent(ctx context.Context, ev *TaskEvent) error
	// ListEventsSince returns events for taskID with sequence greater than
	// afterSeq, ordered by sequence. This is the replay primitive.
	ListEventsSince(ctx context.Context, taskID string, afterSeq int64) ([]*TaskEvent, error)
}
