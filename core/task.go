package core

import (
	"time"

	"github.com/hupe1980/taskmesh/internal/util"
)

// TaskStatus enumerates the lifecycle states of a task. Transitions are
// monotonic except the pending/running/paused cycle driven by pause/resume.
type TaskStatus string

const (
	// StatusPending marks a task admitted but not yet picked up by the worker.
	StatusPending TaskStatus = "pending"
	// StatusRunning marks a task currently being executed.
	StatusRunning TaskStatus = "running"
	// StatusPaused marks a task halted by an external pause request.
	StatusPaused TaskStatus = "paused"
	// StatusCompleted marks a task that produced a terminal answer.
	StatusCompleted TaskStatus = "completed"
	// StatusFailed marks a task terminated by an error or exceeded limit.
	StatusFailed TaskStatus = "failed"
	// StatusCancelled marks a task terminated by an external cancel request.
	StatusCancelled TaskStatus = "cancelled"
)

// Terminal reports whether the status is final. Terminal tasks never change
// status again; repeated complete/fail calls are no-ops.
func (s TaskStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCancelled
}

// Valid reports whether s is one of the known statuses.
func (s TaskStatus) Valid() bool {
	switch s {
	case StatusPending, StatusRunning, StatusPaused, StatusCompleted, StatusFailed, StatusCancelled:
		return true
	default:
		return false
	}
}

// Execution phases surfaced on Task.CurrentPhase. Tool phases are derived via
// PhaseToolCall and carry the tool name.
const (
	PhaseStarting  = "starting"
	PhaseThinking  = "thinking"
	PhaseCompleted = "completed"
	PhaseFailed    = "failed"
	PhasePaused    = "paused"
	PhaseCancelled = "cancelled"
)

// PhaseToolCall builds the phase string for an in-flight tool invocation.
func PhaseToolCall(toolName string) string { return "tool_call:" + toolName }

// TaskConfig carries the per-task resource budgets. It survives at the
// storage boundary as a weakly typed map; the worker validates it at the
// point of use via Normalize.
type TaskConfig struct {
	// MaxIterations bounds the number of think/act/observe iterations.
	MaxIterations int `json:"max_iterations"`
	// MaxToolCalls bounds the total number of tool invocations.
	MaxToolCalls int `json:"max_tool_calls"`
	// Timeout bounds total wall clock time; checked at iteration boundaries.
	Timeout time.Duration `json:"timeout_ms"`
	// RequireConfirmation requests user confirmation before destructive tools.
	RequireConfirmation bool `json:"require_confirmation"`
}

// DefaultTaskConfig returns conservative budgets suitable for demos and tests.
func DefaultTaskConfig() TaskConfig {
	return TaskConfig{MaxIterations: 25, MaxToolCalls: 50, Timeout: 10 * time.Minute}
}

// Normalize fills zero or negative budgets with defaults so a partially
// specified config never yields an unbounded loop.
func (c TaskConfig) Normalize() TaskConfig {
	def := DefaultTaskConfig()
	if c.MaxIterations <= 0 {
		c.MaxIterations = def.MaxIterations
	}
	if c.MaxToolCalls <= 0 {
		c.MaxToolCalls = def.MaxToolCalls
	}
	if c.Timeout <= 0 {
		c.Timeout = def.Timeout
	}
	return c
}

// Task is a single goal-directed unit of agent work with its own lifecycle
// and history. The worker is the sole writer of execution fields while a task
// runs; the queue owns externally triggered status transitions. A task owns
// its steps, checkpoints and events.
type Task struct {
	ID               string         `json:"id"`
	OwnerID          string         `json:"owner_id"`
	Goal             string         `json:"goal"`
	Config           TaskConfig     `json:"config"`
	Status           TaskStatus     `json:"status"`
	CurrentPhase     string         `json:"current_phase"`
	CurrentIteration int            `json:"current_iteration"`
	TotalToolCalls   int            `json:"total_tool_calls"`
	WorkingMemory    map[string]any `json:"working_memory,omitempty"`
	Artifacts        []string       `json:"artifacts,omitempty"`
	Result           string         `json:"result,omitempty"`
	Error            string         `json:"error,omitempty"`
	CreatedAt        time.Time      `json:"created_at"`
	StartedAt        *time.Time     `json:"started_at,omitempty"`
	CompletedAt      *time.Time     `json:"completed_at,omitempty"`
	LastCheckpointAt *time.Time     `json:"last_checkpoint_at,omitempty"`
}

// NewTask creates a pending task owned by ownerID.
func NewTask(ownerID, goal string, cfg TaskConfig) *Task {
	return &Task{
		ID:            util.NewID(),
		OwnerID:       ownerID,
		Goal:          goal,
		Config:        cfg,
		Status:        StatusPending,
		CurrentPhase:  PhaseStarting,
		WorkingMemory: map[string]any{},
		CreatedAt:     time.Now().UTC(),
	}
}

// Clone returns a deep copy safe for independent mutation.
func (t *Task) Clone() *Task {
	clone := *t
	clone.WorkingMemory = make(map[string]any, len(t.WorkingMemory))
	for k, v := range t.WorkingMemory {
		clone.WorkingMemory[k] = v
	}
	clone.Artifacts = append([]string(nil), t.Artifacts...)
	if t.StartedAt != nil {
		ts := *t.StartedAt
		clone.StartedAt = &ts
	}
	if t.CompletedAt != nil {
		ts := *t.CompletedAt
		clone.CompletedAt = &ts
	}
	if t.LastCheckpointAt != nil {
		ts := *t.LastCheckpointAt
		clone.LastCheckpointAt = &ts
	}
	return &clone
}

// MergeWorkingMemory merges the provided key/value pairs into WorkingMemory.
func (t *Task) MergeWorkingMemory(delta map[string]any) {
	if t.WorkingMemory == nil {
		t.WorkingMemory = map[string]any{}
	}
	for k, v := range delta {
		t.WorkingMemory[k] = v
	}
}
