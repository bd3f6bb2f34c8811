package state

import (
	"context"
	"errors"
	"fmt"

	"github.com/hupe1980/taskmesh/core"
	"github.com/hupe1980/taskmesh/logging"
)

// Options configures a Manager.
type Options struct {
	// Sink receives events for live fan-out after persistence.
	Sink core.EventSink
	// Logger receives structured state logs.
	Logger logging.Logger
}

// Manager owns the durable state of one task: its step log, checkpoints and
// event log. The worker is the sole writer while the task runs.
type Manager struct {
	taskID string
	store  core.Store
	sink   core.EventSink
	logger logging.Logger
}

// NewManager creates a Manager scoped to taskID.
func NewManager(store core.Store, taskID string, optFns ...func(o *Options)) *Manager {
	opts := Options{
		Sink:   core.NoOpSink{},
		Logger: logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Manager{
		taskID: taskID,
		store:  store,
		sink:   opts.Sink,
		logger: opts.Logger,
	}
}

// TaskID returns the id of the task this manager is scoped to.
func (m *Manager) TaskID() string { return m.taskID }

// Task returns the current task row.
func (m *Manager) Task(ctx context.Context) (*core.Task, error) {
	task, err := m.store.GetTask(ctx, m.taskID)
	if err != nil {
		return nil, core.NewStorageError("get task", err)
	}
	return task, nil
}

// LoadState reconstructs the derived execution state by replaying the task
// row and the step log. Returns (nil, nil) when the task does not exist.
// Storage failures on the step scan degrade to the task-row projection alone.
func (m *Manager) LoadState(ctx context.Context) (*core.AgentState, error) {
	task, err := m.store.GetTask(ctx, m.taskID)
	if errors.Is(err, core.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, core.NewStorageError("load state", err)
	}

	st := &core.AgentState{
		Phase:         task.CurrentPhase,
		Iteration:     task.CurrentIteration,
		ToolCalls:     task.TotalToolCalls,
		WorkingMemory: map[string]any{},
	}
	for k, v := range task.WorkingMemory {
		st.WorkingMemory[k] = v
	}

	steps, err := m.store.ListSteps(ctx, m.taskID)
	if err != nil {
		m.logger.Error("step replay failed", "task_id", m.taskID, "error", err)
		return st, nil
	}
	for _, step := range steps {
		switch step.Kind {
		case core.StepObserve:
			st.Observations = append(st.Observations, step.Content)
		case core.StepToolCall:
			st.LastToolResult = step.ToolResult
		}
	}
	return st, nil
}

// SaveStep appends the step to the task's log. The store assigns the next
// step number atomically; the assigned step id is returned.
func (m *Manager) SaveStep(ctx context.Context, step *core.Step) (string, error) {
	if step.TaskID == "" {
		step.TaskID = m.taskID
	}
	if step.TaskID != m.taskID {
		return "", &core.ValidationError{Field: "task_id", Message: "step belongs to a different task"}
	}
	if !step.Kind.Valid() {
		return "", &core.ValidationError{Field: "kind", Message: fmt.Sprintf("unknown step kind %q", step.Kind)}
	}
	if err := m.store.AppendStep(ctx, step); err != nil {
		return "", core.NewStorageError("save step", err)
	}
	return step.ID, nil
}

// Steps returns the full ordered step log. Storage errors degrade the read
// path to an empty result.
func (m *Manager) Steps(ctx context.Context) []*core.Step {
	steps, err := m.store.ListSteps(ctx, m.taskID)
	if err != nil {
		m.logger.Error("list steps failed", "task_id", m.taskID, "error", err)
		return []*core.Step{}
	}
	return steps
}

// UpdateTask applies mutate to the current task row and persists the result.
// Callable only by the worker and the queue; external callers go through the
// queue's lifecycle operations. The read-modify-write runs atomically in the
// store, so a pause or cancel committed by the queue while the worker is
// mid-iteration is never overwritten by a stale row.
func (m *Manager) UpdateTask(ctx context.Context, mutate func(task *core.Task)) (*core.Task, error) {
	task, err := m.store.MutateTask(ctx, m.taskID, mutate)
	if err != nil {
		return nil, core.NewStorageError("update task", err)
	}
	return task, nil
}

// CreateCheckpoint snapshots the derived state at the current step. The
// snapshot is anchored to a checkpoint step appended first, so a restore
// immediately after deletes nothing. An empty reason marks the checkpoint as
// automatic. Returns the checkpoint id.
func (m *Manager) CreateCheckpoint(ctx context.Context, reason string) (string, error) {
	st, err := m.LoadState(ctx)
	if err != nil {
		return "", err
	}
	if st == nil {
		return "", fmt.Errorf("checkpoint %s: %w", m.taskID, core.ErrNotFound)
	}

	marker := core.NewStep(m.taskID, core.StepCheckpoint, reason)
	if err := m.store.AppendStep(ctx, marker); err != nil {
		return "", core.NewStorageError("create checkpoint", err)
	}

	cp := core.NewCheckpoint(m.taskID, marker.StepNumber, *st, reason)
	if err := m.store.PutCheckpoint(ctx, cp); err != nil {
		return "", core.NewStorageError("create checkpoint", err)
	}

	if _, err := m.UpdateTask(ctx, func(task *core.Task) {
		task.LastCheckpointAt = &cp.CreatedAt
	}); err != nil {
		return "", err
	}

	m.logger.Debug("checkpoint created", "task_id", m.taskID, "checkpoint_id", cp.ID, "step_number", cp.StepNumber)
	return cp.ID, nil
}

// RestoreFromCheckpoint restores the task to the given checkpoint, or to the
// most recent one when checkpointID is empty. Task fields are restored from
// the snapshot, the task is set running and every step after the checkpoint
// is deleted in the same transaction. The task must be paused; restoring
// while the worker could still be writing steps would race with the truncate.
func (m *Manager) RestoreFromCheckpoint(ctx context.Context, checkpointID string) error {
	task, err := m.store.GetTask(ctx, m.taskID)
	if err != nil {
		return core.NewStorageError("restore", err)
	}
	if task.Status != core.StatusPaused {
		return fmt.Errorf("restore %s: status %s: %w", m.taskID, task.Status, core.ErrTaskRunning)
	}

	var cp *core.Checkpoint
	if checkpointID == "" {
		cp, err = m.store.LatestCheckpoint(ctx, m.taskID)
	} else {
		cp, err = m.store.GetCheckpoint(ctx, m.taskID, checkpointID)
	}
	if err != nil {
		return core.NewStorageError("restore", err)
	}

	task.Status = core.StatusRunning
	task.CurrentPhase = cp.Snapshot.Phase
	task.CurrentIteration = cp.Snapshot.Iteration
	task.TotalToolCalls = cp.Snapshot.ToolCalls
	task.WorkingMemory = make(map[string]any, len(cp.Snapshot.WorkingMemory))
	for k, v := range cp.Snapshot.WorkingMemory {
		task.WorkingMemory[k] = v
	}

	if err := m.store.RestoreCheckpoint(ctx, task, cp.StepNumber); err != nil {
		return core.NewStorageError("restore", err)
	}

	m.logger.Info("checkpoint restored", "task_id", m.taskID, "checkpoint_id", cp.ID, "step_number", cp.StepNumber)
	return nil
}

// EmitEvent appends an event to the task's log (the store assigns the next
// sequence) and forwards it to the live sink.
func (m *Manager) EmitEvent(ctx context.Context, kind core.EventKind, data map[string]any) error {
	ev := core.NewTaskEvent(m.taskID, kind, data)
	if err := m.store.AppendEvent(ctx, ev); err != nil {
		return core.NewStorageError("emit event", err)
	}
	m.sink.Publish(*ev)
	return nil
}

// EventsSince returns all events with sequence greater than afterSeq in
// order. This is the replay primitive for reconnecting clients; storage
// errors degrade the read path to an empty result.
func (m *Manager) EventsSince(ctx context.Context, afterSeq int64) []*core.TaskEvent {
	events, err := m.store.ListEventsSince(ctx, m.taskID, afterSeq)
	if err != nil {
		m.logger.Error("event replay failed", "task_id", m.taskID, "error", err)
		return []*core.TaskEvent{}
	}
	return events
}
