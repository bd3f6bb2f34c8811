// Package memory contains a volatile core.Store implementation storing all
// collections in process local maps. It is safe for concurrent access and
// best suited for tests, examples and ephemeral demo servers. Rows are cloned
// at the API boundary to prevent external mutation of internal state.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/hupe1980/taskmesh/core"
)

// Store is an in-memory core.Store. A single mutex guards all collections,
// which also makes the composite operations (AppendStep counter assignment,
// RestoreCheckpoint) atomic without a transaction layer.
type Store struct {
	mu          sync.RWMutex
	tasks       map[string]*core.Task
	entries     map[string]*core.QueueEntry
	steps       map[string][]*core.Step
	checkpoints map[string][]*core.Checkpoint
	events      map[string][]*core.TaskEvent
	maxPosition int64
}

// NewStore constructs an empty in-memory store.
func NewStore() *Store {
	return &Store{
		tasks:       make(map[string]*core.Task),
		entries:     make(map[string]*core.QueueEntry),
		steps:       make(map[string][]*core.Step),
		checkpoints: make(map[string][]*core.Checkpoint),
		events:      make(map[string][]*core.TaskEvent),
	}
}

// CreateTask persists a new task row.
func (s *Store) CreateTask(_ context.Context, task *core.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.tasks[task.ID]; exists {
		return fmt.Errorf("task %s already exists", task.ID)
	}
	s.tasks[task.ID] = task.Clone()
	return nil
}

// GetTask returns a clone of the task or an error wrapping core.ErrNotFound.
func (s *Store) GetTask(_ context.Context, id string) (*core.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	task, ok := s.tasks[id]
	if !ok {
		return nil, fmt.Errorf("task %s: %w", id, core.ErrNotFound)
	}
	return task.Clone(), nil
}

// UpdateTask overwrites the task row.
func (s *Store) UpdateTask(_ context.Context, task *core.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tasks[task.ID]; !ok {
		return fmt.Errorf("task %s: %w", task.ID, core.ErrNotFound)
	}
	s.tasks[task.ID] = task.Clone()
	return nil
}

// MutateTask applies mutate to the task row and persists the result under the
// store lock, so the read-modify-write cannot interleave with other writers.
func (s *Store) MutateTask(_ context.Context, id string, mutate func(task *core.Task)) (*core.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	task, ok := s.tasks[id]
	if !ok {
		return nil, fmt.Errorf("task %s: %w", id, core.ErrNotFound)
	}
	updated := task.Clone()
	mutate(updated)
	s.tasks[id] = updated.Clone()
	return updated, nil
}

// ListTasksByOwner returns the owner's tasks ordered by creation time.
func (s *Store) ListTasksByOwner(_ context.Context, ownerID string) ([]*core.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var tasks []*core.Task
	for _, task := range s.tasks {
		if task.OwnerID == ownerID {
			tasks = append(tasks, task.Clone())
		}
	}
	sort.Slice(tasks, func(i, j int) bool { return tasks[i].CreatedAt.Before(tasks[j].CreatedAt) })
	return tasks, nil
}

// PutQueueEntry inserts or replaces the entry for entry.TaskID.
func (s *Store) PutQueueEntry(_ context.Context, entry *core.QueueEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *entry
	s.entries[entry.TaskID] = &cp
	if entry.Position > s.maxPosition {
		s.maxPosition = entry.Position
	}
	return nil
}

// GetQueueEntry returns the entry for taskID.
func (s *Store) GetQueueEntry(_ context.Context, taskID string) (*core.QueueEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.entries[taskID]
	if !ok {
		return nil, fmt.Errorf("queue entry %s: %w", taskID, core.ErrNotFound)
	}
	cp := *entry
	return &cp, nil
}

// DeleteQueueEntry removes the entry for taskID; missing entries are a no-op.
func (s *Store) DeleteQueueEntry(_ context.Context, taskID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, taskID)
	return nil
}

// ListQueueEntries returns entries with the given status ordered by priority
// (descending) then position (ascending).
func (s *Store) ListQueueEntries(_ context.Context, status core.QueueStatus) ([]*core.QueueEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var entries []*core.QueueEntry
	for _, entry := range s.entries {
		if entry.Status == status {
			cp := *entry
			entries = append(entries, &cp)
		}
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Before(entries[j]) })
	return entries, nil
}

// MaxQueuePosition returns the highest position ever assigned.
func (s *Store) MaxQueuePosition(_ context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.maxPosition, nil
}

// AppendStep assigns the next step number for the task and inserts the step.
func (s *Store) AppendStep(_ context.Context, step *core.Step) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	step.StepNumber = s.nextStepNumberLocked(step.TaskID)
	s.steps[step.TaskID] = append(s.steps[step.TaskID], cloneStep(step))
	return nil
}

// nextStepNumberLocked returns max+1 so numbering resumes correctly after a
// checkpoint restore truncated the tail of the log.
func (s *Store) nextStepNumberLocked(taskID string) int {
	max := 0
	for _, st := range s.steps[taskID] {
		if st.StepNumber > max {
			max = st.StepNumber
		}
	}
	return max + 1
}

// ListSteps returns all steps for taskID ordered by step number.
func (s *Store) ListSteps(_ context.Context, taskID string) ([]*core.Step, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	steps := make([]*core.Step, 0, len(s.steps[taskID]))
	for _, st := range s.steps[taskID] {
		steps = append(steps, cloneStep(st))
	}
	sort.Slice(steps, func(i, j int) bool { return steps[i].StepNumber < steps[j].StepNumber })
	return steps, nil
}

// PutCheckpoint persists a checkpoint snapshot.
func (s *Store) PutCheckpoint(_ context.Context, cp *core.Checkpoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	clone := *cp
	clone.Snapshot = *cp.Snapshot.Clone()
	s.checkpoints[cp.TaskID] = append(s.checkpoints[cp.TaskID], &clone)
	return nil
}

// GetCheckpoint returns the checkpoint by id.
func (s *Store) GetCheckpoint(_ context.Context, taskID, id string) (*core.Checkpoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, cp := range s.checkpoints[taskID] {
		if cp.ID == id {
			clone := *cp
			clone.Snapshot = *cp.Snapshot.Clone()
			return &clone, nil
		}
	}
	return nil, fmt.Errorf("checkpoint %s: %w", id, core.ErrNotFound)
}

// LatestCheckpoint returns the most recent checkpoint for taskID.
func (s *Store) LatestCheckpoint(_ context.Context, taskID string) (*core.Checkpoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cps := s.checkpoints[taskID]
	if len(cps) == 0 {
		return nil, fmt.Errorf("checkpoint for task %s: %w", taskID, core.ErrNotFound)
	}
	latest := cps[0]
	for _, cp := range cps[1:] {
		if cp.CreatedAt.After(latest.CreatedAt) ||
			(cp.CreatedAt.Equal(latest.CreatedAt) && cp.StepNumber > latest.StepNumber) {
			latest = cp
		}
	}
	clone := *latest
	clone.Snapshot = *latest.Snapshot.Clone()
	return &clone, nil
}

// RestoreCheckpoint persists the restored task row and truncates the step log
// beyond stepNumber under one lock acquisition.
func (s *Store) RestoreCheckpoint(_ context.Context, task *core.Task, stepNumber int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tasks[task.ID]; !ok {
		return fmt.Errorf("task %s: %w", task.ID, core.ErrNotFound)
	}
	s.tasks[task.ID] = task.Clone()
	kept := s.steps[task.ID][:0]
	for _, st := range s.steps[task.ID] {
		if st.StepNumber <= stepNumber {
			kept = append(kept, st)
		}
	}
	s.steps[task.ID] = kept
	return nil
}

// AppendEvent assigns the next sequence for the task and appends the event.
func (s *Store) AppendEvent(_ context.Context, ev *core.TaskEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	evs := s.events[ev.TaskID]
	var last int64
	if len(evs) > 0 {
		last = evs[len(evs)-1].Sequence
	}
	ev.Sequence = last + 1
	cp := *ev
	s.events[ev.TaskID] = append(evs, &cp)
	return nil
}

// ListEventsSince returns events with sequence greater than afterSeq in order.
func (s *Store) ListEventsSince(_ context.Context, taskID string, afterSeq int64) ([]*core.TaskEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var events []*core.TaskEvent
	for _, ev := range s.events[taskID] {
		if ev.Sequence > afterSeq {
			cp := *ev
			events = append(events, &cp)
		}
	}
	return events, nil
}

func cloneStep(step *core.Step) *core.Step {
	clone := *step
	clone.ToolArgs = make(map[string]any, len(step.ToolArgs))
	for k, v := range step.ToolArgs {
		clone.ToolArgs[k] = v
	}
	return &clone
}
