package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/taskmesh/core"
)

// Interface compliance (compile-time assertion)
var _ core.Store = (*Store)(nil)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "taskmesh.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStore_TaskRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	task := core.NewTask("owner-1", "demo goal", core.DefaultTaskConfig())
	task.WorkingMemory["key"] = "value"
	now := time.Now().UTC()
	task.StartedAt = &now
	require.NoError(t, s.CreateTask(ctx, task))

	got, err := s.GetTask(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, task.Goal, got.Goal)
	assert.Equal(t, core.StatusPending, got.Status)
	assert.Equal(t, "value", got.WorkingMemory["key"])
	require.NotNil(t, got.StartedAt)
	assert.WithinDuration(t, now, *got.StartedAt, time.Millisecond)
	assert.Equal(t, task.Config.MaxIterations, got.Config.MaxIterations)

	got.Status = core.StatusRunning
	got.CurrentIteration = 3
	require.NoError(t, s.UpdateTask(ctx, got))

	updated, err := s.GetTask(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, core.StatusRunning, updated.Status)
	assert.Equal(t, 3, updated.CurrentIteration)

	_, err = s.GetTask(ctx, "missing")
	assert.ErrorIs(t, err, core.ErrNotFound)

	missing := core.NewTask("o", "g", core.DefaultTaskConfig())
	assert.ErrorIs(t, s.UpdateTask(ctx, missing), core.ErrNotFound)
}

func TestStore_ListTasksByOwner(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	first := core.NewTask("alice", "first", core.DefaultTaskConfig())
	second := core.NewTask("alice", "second", core.DefaultTaskConfig())
	second.CreatedAt = first.CreatedAt.Add(time.Second)
	other := core.NewTask("bob", "other", core.DefaultTaskConfig())
	for _, task := range []*core.Task{first, second, other} {
		require.NoError(t, s.CreateTask(ctx, task))
	}

	tasks, err := s.ListTasksByOwner(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, tasks, 2)
	assert.Equal(t, "first", tasks[0].Goal)
	assert.Equal(t, "second", tasks[1].Goal)
}

func TestStore_StepNumbering(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	task := core.NewTask("o", "g", core.DefaultTaskConfig())
	require.NoError(t, s.CreateTask(ctx, task))

	for i := 0; i < 4; i++ {
		step := core.NewToolCallStep(task.ID, "echo", map[string]any{"n": float64(i)}, "ok", false)
		require.NoError(t, s.AppendStep(ctx, step))
		assert.Equal(t, i+1, step.StepNumber)
	}

	steps, err := s.ListSteps(ctx, task.ID)
	require.NoError(t, err)
	require.Len(t, steps, 4)
	for i, st := range steps {
		assert.Equal(t, i+1, st.StepNumber)
		assert.Equal(t, core.StepToolCall, st.Kind)
		assert.Equal(t, float64(i), st.ToolArgs["n"])
	}
}

func TestStore_RestoreCheckpointIsTransactional(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	task := core.NewTask("o", "g", core.DefaultTaskConfig())
	require.NoError(t, s.CreateTask(ctx, task))

	for i := 0; i < 10; i++ {
		require.NoError(t, s.AppendStep(ctx, core.NewStep(task.ID, core.StepObserve, "obs")))
	}

	task.CurrentIteration = 3
	task.Status = core.StatusRunning
	require.NoError(t, s.RestoreCheckpoint(ctx, task, 6))

	steps, err := s.ListSteps(ctx, task.ID)
	require.NoError(t, err)
	require.Len(t, steps, 6)

	next := core.NewStep(task.ID, core.StepThink, "resumed")
	require.NoError(t, s.AppendStep(ctx, next))
	assert.Equal(t, 7, next.StepNumber)

	restored, err := s.GetTask(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, restored.CurrentIteration)
	assert.Equal(t, core.StatusRunning, restored.Status)
}

func TestStore_CheckpointRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	state := core.AgentState{
		Phase:          core.PhaseThinking,
		Iteration:      2,
		ToolCalls:      1,
		WorkingMemory:  map[string]any{"notes": "abc"},
		Observations:   []string{"one", "two"},
		LastToolResult: "last",
	}
	first := core.NewCheckpoint("t-1", 3, state, "")
	require.NoError(t, s.PutCheckpoint(ctx, first))

	second := core.NewCheckpoint("t-1", 5, state, "manual")
	second.CreatedAt = first.CreatedAt.Add(time.Second)
	require.NoError(t, s.PutCheckpoint(ctx, second))

	got, err := s.GetCheckpoint(ctx, "t-1", first.ID)
	require.NoError(t, err)
	assert.True(t, got.IsAutomatic)
	assert.Equal(t, state.Observations, got.Snapshot.Observations)
	assert.Equal(t, "abc", got.Snapshot.WorkingMemory["notes"])

	latest, err := s.LatestCheckpoint(ctx, "t-1")
	require.NoError(t, err)
	assert.Equal(t, second.ID, latest.ID)
	assert.False(t, latest.IsAutomatic)

	_, err = s.LatestCheckpoint(ctx, "none")
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestStore_EventReplay(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	for i := 0; i < 5; i++ {
		ev := core.NewTaskEvent("t-1", core.EventToolResult, map[string]any{"i": float64(i)})
		require.NoError(t, s.AppendEvent(ctx, ev))
		assert.Equal(t, int64(i+1), ev.Sequence)
	}

	events, err := s.ListEventsSince(ctx, "t-1", 2)
	require.NoError(t, err)
	require.Len(t, events, 3)
	for i, ev := range events {
		assert.Equal(t, int64(i+3), ev.Sequence)
		assert.Equal(t, float64(i+2), ev.Data["i"])
	}
}

func TestStore_QueueEntries(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	for i, id := range []string{"a", "b"} {
		task := core.NewTask("o", "g", core.DefaultTaskConfig())
		task.ID = id
		require.NoError(t, s.CreateTask(ctx, task))
		require.NoError(t, s.PutQueueEntry(ctx, core.NewQueueEntry(id, core.PriorityDefault, int64(i+1))))
	}

	// Replace entry "a" with a resumed, higher priority one.
	pos, err := s.MaxQueuePosition(ctx)
	require.NoError(t, err)
	require.NoError(t, s.PutQueueEntry(ctx, core.NewQueueEntry("a", core.PriorityResumed, pos+1)))

	entries, err := s.ListQueueEntries(ctx, core.QueueStatusQueued)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "a", entries[0].TaskID, "resumed entry dequeues first")

	require.NoError(t, s.DeleteQueueEntry(ctx, "a"))
	_, err = s.GetQueueEntry(ctx, "a")
	assert.ErrorIs(t, err, core.ErrNotFound)
	require.NoError(t, s.DeleteQueueEntry(ctx, "a")) // idempotent
}

func TestStore_MaxQueuePositionSurvivesDeletes(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	for i, id := range []string{"a", "b"} {
		task := core.NewTask("o", "g", core.DefaultTaskConfig())
		task.ID = id
		require.NoError(t, s.CreateTask(ctx, task))
		require.NoError(t, s.PutQueueEntry(ctx, core.NewQueueEntry(id, core.PriorityDefault, int64(i+1))))
	}

	// Removing the entry holding the highest position must not roll the
	// counter back, or a later enqueue would reuse position 2.
	require.NoError(t, s.DeleteQueueEntry(ctx, "b"))

	pos, err := s.MaxQueuePosition(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), pos)

	require.NoError(t, s.PutQueueEntry(ctx, core.NewQueueEntry("a", core.PriorityResumed, pos+1)))
	pos, err = s.MaxQueuePosition(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), pos)
}

func TestStore_MutateTask(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	task := core.NewTask("o", "g", core.DefaultTaskConfig())
	require.NoError(t, s.CreateTask(ctx, task))

	updated, err := s.MutateTask(ctx, task.ID, func(task *core.Task) {
		task.Status = core.StatusRunning
		task.CurrentIteration = 2
	})
	require.NoError(t, err)
	assert.Equal(t, core.StatusRunning, updated.Status)

	fresh, err := s.GetTask(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, core.StatusRunning, fresh.Status)
	assert.Equal(t, 2, fresh.CurrentIteration)

	_, err = s.MutateTask(ctx, "missing", func(task *core.Task) {})
	assert.ErrorIs(t, err, core.ErrNotFound)
}
