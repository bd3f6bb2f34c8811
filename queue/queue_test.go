package queue

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/taskmesh/core"
	"github.com/hupe1980/taskmesh/store/memory"
)

func newQueue(t *testing.T) (*Queue, core.Store) {
	t.Helper()
	store := memory.NewStore()
	return New(store), store
}

func TestQueue_EnqueueValidation(t *testing.T) {
	q, _ := newQueue(t)
	ctx := context.Background()

	_, err := q.Enqueue(ctx, "owner-1", "   ", core.DefaultTaskConfig(), core.PriorityDefault)
	var verr *core.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "goal", verr.Field)

	_, err = q.Enqueue(ctx, "", "do things", core.DefaultTaskConfig(), core.PriorityDefault)
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "owner_id", verr.Field)
}

func TestQueue_EnqueueDequeue(t *testing.T) {
	q, store := newQueue(t)
	ctx := context.Background()

	id, err := q.Enqueue(ctx, "owner-1", "summarize report", core.DefaultTaskConfig(), core.PriorityDefault)
	require.NoError(t, err)
	require.NotEmpty(t, id)

	task, err := q.Dequeue(ctx)
	require.NoError(t, err)
	require.NotNil(t, task)
	assert.Equal(t, id, task.ID)
	assert.Equal(t, core.StatusRunning, task.Status)
	require.NotNil(t, task.StartedAt)

	entry, err := store.GetQueueEntry(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, core.QueueStatusProcessing, entry.Status)

	// Queue drained.
	task, err = q.Dequeue(ctx)
	require.NoError(t, err)
	assert.Nil(t, task)
}

func TestQueue_DequeueFIFOWithinPriority(t *testing.T) {
	q, _ := newQueue(t)
	ctx := context.Background()

	first, err := q.Enqueue(ctx, "owner-1", "first", core.DefaultTaskConfig(), core.PriorityDefault)
	require.NoError(t, err)
	second, err := q.Enqueue(ctx, "owner-1", "second", core.DefaultTaskConfig(), core.PriorityDefault)
	require.NoError(t, err)

	t1, err := q.Dequeue(ctx)
	require.NoError(t, err)
	assert.Equal(t, first, t1.ID)

	t2, err := q.Dequeue(ctx)
	require.NoError(t, err)
	assert.Equal(t, second, t2.ID)
}

func TestQueue_DequeueSkipsOrphans(t *testing.T) {
	q, store := newQueue(t)
	ctx := context.Background()

	// Orphan entry with no backing task, queued ahead of real work.
	require.NoError(t, store.PutQueueEntry(ctx, core.NewQueueEntry("ghost", core.PriorityResumed, 1)))

	id, err := q.Enqueue(ctx, "owner-1", "real work", core.DefaultTaskConfig(), core.PriorityDefault)
	require.NoError(t, err)

	task, err := q.Dequeue(ctx)
	require.NoError(t, err)
	require.NotNil(t, task)
	assert.Equal(t, id, task.ID)

	_, err = store.GetQueueEntry(ctx, "ghost")
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestQueue_CompleteIdempotent(t *testing.T) {
	q, _ := newQueue(t)
	ctx := context.Background()

	id, err := q.Enqueue(ctx, "owner-1", "work", core.DefaultTaskConfig(), core.PriorityDefault)
	require.NoError(t, err)
	_, err = q.Dequeue(ctx)
	require.NoError(t, err)

	require.NoError(t, q.Complete(ctx, id, "the answer"))

	task, err := q.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, core.StatusCompleted, task.Status)
	assert.Equal(t, "the answer", task.Result)
	firstCompletedAt := task.CompletedAt

	// Second complete and a late fail are both no-ops.
	require.NoError(t, q.Complete(ctx, id, "different answer"))
	require.NoError(t, q.Fail(ctx, id, "late failure"))

	task, err = q.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, core.StatusCompleted, task.Status)
	assert.Equal(t, "the answer", task.Result)
	assert.Empty(t, task.Error)
	assert.Equal(t, firstCompletedAt, task.CompletedAt)
}

func TestQueue_FailSetsError(t *testing.T) {
	q, _ := newQueue(t)
	ctx := context.Background()

	id, err := q.Enqueue(ctx, "owner-1", "work", core.DefaultTaskConfig(), core.PriorityDefault)
	require.NoError(t, err)
	_, err = q.Dequeue(ctx)
	require.NoError(t, err)

	require.NoError(t, q.Fail(ctx, id, "max iterations reached (3)"))

	task, err := q.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, core.StatusFailed, task.Status)
	assert.Equal(t, "max iterations reached (3)", task.Error)
}

func TestQueue_PauseOnlyFromRunning(t *testing.T) {
	q, _ := newQueue(t)
	ctx := context.Background()

	id, err := q.Enqueue(ctx, "owner-1", "work", core.DefaultTaskConfig(), core.PriorityDefault)
	require.NoError(t, err)

	// Still pending.
	err = q.Pause(ctx, id)
	assert.ErrorIs(t, err, core.ErrInvalidTransition)

	_, err = q.Dequeue(ctx)
	require.NoError(t, err)
	require.NoError(t, q.Pause(ctx, id))

	task, err := q.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, core.StatusPaused, task.Status)
}

func TestQueue_ResumeJumpsQueue(t *testing.T) {
	q, _ := newQueue(t)
	ctx := context.Background()

	paused, err := q.Enqueue(ctx, "owner-1", "paused work", core.DefaultTaskConfig(), core.PriorityDefault)
	require.NoError(t, err)
	_, err = q.Dequeue(ctx)
	require.NoError(t, err)
	require.NoError(t, q.Pause(ctx, paused))

	// Fresh default-priority work queued while the other task was paused.
	_, err = q.Enqueue(ctx, "owner-1", "fresh work", core.DefaultTaskConfig(), core.PriorityDefault)
	require.NoError(t, err)

	require.NoError(t, q.Resume(ctx, paused))

	task, err := q.Dequeue(ctx)
	require.NoError(t, err)
	require.NotNil(t, task)
	assert.Equal(t, paused, task.ID, "resumed task should dequeue before fresh work")
}

func TestQueue_ResumeIdempotent(t *testing.T) {
	q, store := newQueue(t)
	ctx := context.Background()

	id, err := q.Enqueue(ctx, "owner-1", "work", core.DefaultTaskConfig(), core.PriorityDefault)
	require.NoError(t, err)
	_, err = q.Dequeue(ctx)
	require.NoError(t, err)
	require.NoError(t, q.Pause(ctx, id))

	require.NoError(t, q.Resume(ctx, id))
	firstEntry, err := store.GetQueueEntry(ctx, id)
	require.NoError(t, err)

	// Second resume on a now pending task is an invalid transition.
	err = q.Resume(ctx, id)
	assert.ErrorIs(t, err, core.ErrInvalidTransition)

	entry, err := store.GetQueueEntry(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, firstEntry.Position, entry.Position, "resume must not create a duplicate entry")
	assert.Equal(t, core.PriorityResumed, entry.Priority)
}

func TestQueue_Cancel(t *testing.T) {
	q, store := newQueue(t)
	ctx := context.Background()

	id, err := q.Enqueue(ctx, "owner-1", "work", core.DefaultTaskConfig(), core.PriorityDefault)
	require.NoError(t, err)

	require.NoError(t, q.Cancel(ctx, id))

	task, err := q.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, core.StatusCancelled, task.Status)

	_, err = store.GetQueueEntry(ctx, id)
	assert.ErrorIs(t, err, core.ErrNotFound)

	// Terminal, cannot cancel again.
	err = q.Cancel(ctx, id)
	assert.ErrorIs(t, err, core.ErrInvalidTransition)
}

func TestQueue_LengthAndListByOwner(t *testing.T) {
	q, _ := newQueue(t)
	ctx := context.Background()

	assert.Equal(t, 0, q.Length(ctx))

	_, err := q.Enqueue(ctx, "owner-1", "a", core.DefaultTaskConfig(), core.PriorityDefault)
	require.NoError(t, err)
	_, err = q.Enqueue(ctx, "owner-1", "b", core.DefaultTaskConfig(), core.PriorityDefault)
	require.NoError(t, err)
	_, err = q.Enqueue(ctx, "owner-2", "c", core.DefaultTaskConfig(), core.PriorityDefault)
	require.NoError(t, err)

	assert.Equal(t, 3, q.Length(ctx))

	tasks, err := q.ListByOwner(ctx, "owner-1")
	require.NoError(t, err)
	require.Len(t, tasks, 2)
	assert.Equal(t, "a", tasks[0].Goal)
	assert.Equal(t, "b", tasks[1].Goal)
}

func TestQueue_LifecycleEventsPersisted(t *testing.T) {
	store := memory.NewStore()
	q := New(store)
	ctx := context.Background()

	id, err := q.Enqueue(ctx, "owner-1", "work", core.DefaultTaskConfig(), core.PriorityDefault)
	require.NoError(t, err)
	_, err = q.Dequeue(ctx)
	require.NoError(t, err)
	require.NoError(t, q.Complete(ctx, id, "done"))

	events, err := store.ListEventsSince(ctx, id, 0)
	require.NoError(t, err)
	require.Len(t, events, 3)
	assert.Equal(t, core.EventTaskCreated, events[0].Kind)
	assert.Equal(t, core.EventTaskStarted, events[1].Kind)
	assert.Equal(t, core.EventTaskCompleted, events[2].Kind)
	for i, ev := range events {
		assert.Equal(t, int64(i+1), ev.Sequence)
	}
}
