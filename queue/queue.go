package queue

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/hupe1980/taskmesh/core"
	"github.com/hupe1980/taskmesh/logging"
)

// Options configures the Queue.
type Options struct {
	// Sink receives lifecycle events after they are persisted.
	Sink core.EventSink
	// Logger receives structured queue logs.
	Logger logging.Logger
}

// Queue admits tasks and owns their externally triggered status transitions.
// All state lives in the store; the Queue itself only serializes the
// read-modify-write of dequeue against concurrent pollers in this process.
type Queue struct {
	store  core.Store
	sink   core.EventSink
	logger logging.Logger

	// Guards the dequeue read-modify-write window.
	dequeueMu sync.Mutex
}

// New creates a Queue backed by the given store.
func New(store core.Store, optFns ...func(o *Options)) *Queue {
	opts := Options{
		Sink:   core.NoOpSink{},
		Logger: logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Queue{
		store:  store,
		sink:   opts.Sink,
		logger: opts.Logger,
	}
}

// Enqueue admits a new task: a pending Task row plus a queued entry at the
// next position. Returns the new task id.
func (q *Queue) Enqueue(ctx context.Context, ownerID, goal string, cfg core.TaskConfig, priority int) (string, error) {
	if strings.TrimSpace(goal) == "" {
		return "", &core.ValidationError{Field: "goal", Message: "goal must not be empty"}
	}
	if strings.TrimSpace(ownerID) == "" {
		return "", &core.ValidationError{Field: "owner_id", Message: "owner id must not be empty"}
	}

	task := core.NewTask(ownerID, goal, cfg)
	if err := q.store.CreateTask(ctx, task); err != nil {
		return "", core.NewStorageError("enqueue", err)
	}

	pos, err := q.store.MaxQueuePosition(ctx)
	if err != nil {
		return "", core.NewStorageError("enqueue", err)
	}
	entry := core.NewQueueEntry(task.ID, priority, pos+1)
	if err := q.store.PutQueueEntry(ctx, entry); err != nil {
		return "", core.NewStorageError("enqueue", err)
	}

	q.emit(ctx, task.ID, core.EventTaskCreated, map[string]any{
		"goal":     goal,
		"owner_id": ownerID,
		"priority": priority,
	})
	q.logger.Info("task enqueued", "task_id", task.ID, "owner_id", ownerID, "priority", priority)
	return task.ID, nil
}

// Dequeue picks the queued entry with the highest priority (ties broken by
// lowest position), marks it processing and the task running. Returns
// (nil, nil) when the queue is empty. Orphaned entries with no matching task
// are discarded and skipped.
func (q *Queue) Dequeue(ctx context.Context) (*core.Task, error) {
	q.dequeueMu.Lock()
	defer q.dequeueMu.Unlock()

	entries, err := q.store.ListQueueEntries(ctx, core.QueueStatusQueued)
	if err != nil {
		return nil, core.NewStorageError("dequeue", err)
	}

	for _, entry := range entries {
		task, err := q.store.GetTask(ctx, entry.TaskID)
		if errors.Is(err, core.ErrNotFound) {
			q.logger.Warn("discarding orphaned queue entry", "task_id", entry.TaskID)
			if err := q.store.DeleteQueueEntry(ctx, entry.TaskID); err != nil {
				return nil, core.NewStorageError("dequeue", err)
			}
			continue
		}
		if err != nil {
			return nil, core.NewStorageError("dequeue", err)
		}
		if task.Status != core.StatusPending {
			// Stale entry for a task that was cancelled or paused after
			// enqueue; drop it rather than running a non-pending task.
			q.logger.Warn("discarding stale queue entry", "task_id", entry.TaskID, "status", string(task.Status))
			if err := q.store.DeleteQueueEntry(ctx, entry.TaskID); err != nil {
				return nil, core.NewStorageError("dequeue", err)
			}
			continue
		}

		now := time.Now().UTC()
		entry.Status = core.QueueStatusProcessing
		entry.StartedAt = &now
		if err := q.store.PutQueueEntry(ctx, entry); err != nil {
			return nil, core.NewStorageError("dequeue", err)
		}

		task.Status = core.StatusRunning
		task.CurrentPhase = core.PhaseStarting
		if task.StartedAt == nil {
			task.StartedAt = &now
		}
		if err := q.store.UpdateTask(ctx, task); err != nil {
			return nil, core.NewStorageError("dequeue", err)
		}

		q.emit(ctx, task.ID, core.EventTaskStarted, map[string]any{"goal": task.Goal})
		q.logger.Info("task dequeued", "task_id", task.ID, "priority", entry.Priority)
		return task, nil
	}
	return nil, nil
}

// Complete marks the task completed with the given result. Calling Complete
// on an already terminal task is a no-op.
func (q *Queue) Complete(ctx context.Context, taskID, result string) error {
	return q.finalize(ctx, taskID, core.StatusCompleted, result, "")
}

// Fail marks the task failed with the given error message. Calling Fail on an
// already terminal task is a no-op.
func (q *Queue) Fail(ctx context.Context, taskID, errMsg string) error {
	return q.finalize(ctx, taskID, core.StatusFailed, "", errMsg)
}

func (q *Queue) finalize(ctx context.Context, taskID string, status core.TaskStatus, result, errMsg string) error {
	task, err := q.store.GetTask(ctx, taskID)
	if err != nil {
		return core.NewStorageError("finalize", err)
	}
	if task.Status.Terminal() {
		return nil
	}

	now := time.Now().UTC()
	task.Status = status
	task.CompletedAt = &now
	if status == core.StatusCompleted {
		task.CurrentPhase = core.PhaseCompleted
		task.Result = result
	} else {
		task.CurrentPhase = core.PhaseFailed
		task.Error = errMsg
	}
	if err := q.store.UpdateTask(ctx, task); err != nil {
		return core.NewStorageError("finalize", err)
	}

	if entry, err := q.store.GetQueueEntry(ctx, taskID); err == nil {
		if status == core.StatusCompleted {
			entry.Status = core.QueueStatusCompleted
		} else {
			entry.Status = core.QueueStatusFailed
		}
		entry.CompletedAt = &now
		if err := q.store.PutQueueEntry(ctx, entry); err != nil {
			return core.NewStorageError("finalize", err)
		}
	} else if !errors.Is(err, core.ErrNotFound) {
		return core.NewStorageError("finalize", err)
	}

	if status == core.StatusCompleted {
		q.emit(ctx, taskID, core.EventTaskCompleted, map[string]any{"result": result})
	} else {
		q.emit(ctx, taskID, core.EventTaskFailed, map[string]any{"error": errMsg})
	}
	q.logger.Info("task finalized", "task_id", taskID, "status", string(status))
	return nil
}

// Pause halts a running task. The worker observes the new status at its next
// iteration boundary and stops without recording further steps.
func (q *Queue) Pause(ctx context.Context, taskID string) error {
	task, err := q.store.GetTask(ctx, taskID)
	if err != nil {
		return core.NewStorageError("pause", err)
	}
	if task.Status != core.StatusRunning {
		return fmt.Errorf("pause %s: status %s: %w", taskID, task.Status, core.ErrInvalidTransition)
	}

	task.Status = core.StatusPaused
	task.CurrentPhase = core.PhasePaused
	if err := q.store.UpdateTask(ctx, task); err != nil {
		return core.NewStorageError("pause", err)
	}

	q.emit(ctx, taskID, core.EventTaskPaused, nil)
	q.logger.Info("task paused", "task_id", taskID)
	return nil
}

// Resume requeues a paused task at elevated priority so it dequeues ahead of
// default priority work. Resume is idempotent with respect to the queue: when
// a queued entry for the task already exists it is reused rather than
// duplicated.
func (q *Queue) Resume(ctx context.Context, taskID string) error {
	task, err := q.store.GetTask(ctx, taskID)
	if err != nil {
		return core.NewStorageError("resume", err)
	}
	if task.Status != core.StatusPaused {
		return fmt.Errorf("resume %s: status %s: %w", taskID, task.Status, core.ErrInvalidTransition)
	}

	if entry, err := q.store.GetQueueEntry(ctx, taskID); err == nil && entry.Status == core.QueueStatusQueued {
		// A queued entry already exists (rapid double resume); reuse it.
		task.Status = core.StatusPending
		if err := q.store.UpdateTask(ctx, task); err != nil {
			return core.NewStorageError("resume", err)
		}
		return nil
	} else if err != nil && !errors.Is(err, core.ErrNotFound) {
		return core.NewStorageError("resume", err)
	}

	pos, err := q.store.MaxQueuePosition(ctx)
	if err != nil {
		return core.NewStorageError("resume", err)
	}
	entry := core.NewQueueEntry(taskID, core.PriorityResumed, pos+1)
	if err := q.store.PutQueueEntry(ctx, entry); err != nil {
		return core.NewStorageError("resume", err)
	}

	task.Status = core.StatusPending
	if err := q.store.UpdateTask(ctx, task); err != nil {
		return core.NewStorageError("resume", err)
	}

	q.emit(ctx, taskID, core.EventTaskResumed, map[string]any{"priority": core.PriorityResumed})
	q.logger.Info("task resumed", "task_id", taskID)
	return nil
}

// Cancel terminates a task from any non-terminal state and removes its queue
// entry.
func (q *Queue) Cancel(ctx context.Context, taskID string) error {
	task, err := q.store.GetTask(ctx, taskID)
	if err != nil {
		return core.NewStorageError("cancel", err)
	}
	if task.Status.Terminal() {
		return fmt.Errorf("cancel %s: status %s: %w", taskID, task.Status, core.ErrInvalidTransition)
	}

	now := time.Now().UTC()
	task.Status = core.StatusCancelled
	task.CurrentPhase = core.PhaseCancelled
	task.CompletedAt = &now
	if err := q.store.UpdateTask(ctx, task); err != nil {
		return core.NewStorageError("cancel", err)
	}
	if err := q.store.DeleteQueueEntry(ctx, taskID); err != nil {
		return core.NewStorageError("cancel", err)
	}

	q.emit(ctx, taskID, core.EventTaskCancelled, nil)
	q.logger.Info("task cancelled", "task_id", taskID)
	return nil
}

// Get returns the task by id.
func (q *Queue) Get(ctx context.Context, taskID string) (*core.Task, error) {
	task, err := q.store.GetTask(ctx, taskID)
	if err != nil {
		return nil, core.NewStorageError("get", err)
	}
	return task, nil
}

// ListByOwner returns all tasks belonging to ownerID ordered by creation time.
// Storage errors degrade the read path to an empty result.
func (q *Queue) ListByOwner(ctx context.Context, ownerID string) ([]*core.Task, error) {
	tasks, err := q.store.ListTasksByOwner(ctx, ownerID)
	if err != nil {
		q.logger.Error("list tasks failed", "owner_id", ownerID, "error", err)
		return []*core.Task{}, nil
	}
	return tasks, nil
}

// Length returns the number of queued entries waiting to be dequeued.
// Storage errors degrade to zero.
func (q *Queue) Length(ctx context.Context) int {
	entries, err := q.store.ListQueueEntries(ctx, core.QueueStatusQueued)
	if err != nil {
		q.logger.Error("queue length failed", "error", err)
		return 0
	}
	return len(entries)
}

// emit persists the event (the store assigns its sequence) and forwards it to
// the live sink. Event persistence failures are logged, not fatal: lifecycle
// transitions must not be rolled back because streaming is degraded.
func (q *Queue) emit(ctx context.Context, taskID string, kind core.EventKind, data map[string]any) {
	ev := core.NewTaskEvent(taskID, kind, data)
	if err := q.store.AppendEvent(ctx, ev); err != nil {
		q.logger.Error("event append failed", "task_id", taskID, "kind", string(kind), "error", err)
		return
	}
	q.sink.Publish(*ev)
}
