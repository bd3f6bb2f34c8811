package core

import (
	"time"

	"github.com/hupe1980/taskmesh/internal/util"
)

// AgentState is the derived execution state of a task, reconstructed by
// replaying the task row and its step log. No separate state row is
// authoritative; this struct is a projection.
type AgentState struct {
	Phase          string         `json:"phase"`
	Iteration      int            `json:"iteration"`
	ToolCalls      int            `json:"tool_calls"`
	WorkingMemory  map[string]any `json:"working_memory,omitempty"`
	Observations   []string       `json:"observations,omitempty"`
	LastToolResult string         `json:"last_tool_result,omitempty"`
}

// Clone returns a deep copy safe for independent mutation.
func (s *AgentState) Clone() *AgentState {
	clone := *s
	clone.WorkingMemory = make(map[string]any, len(s.WorkingMemory))
	for k, v := range s.WorkingMemory {
		clone.WorkingMemory[k] = v
	}
	clone.Observations = append([]string(nil), s.Observations...)
	return &clone
}

// RecentObservations returns up to the last n observations in order. Used to
// bound the context handed to the reasoning collaborator.
func (s *AgentState) RecentObservations(n int) []string {
	if n <= 0 || len(s.Observations) <= n {
		return append([]string(nil), s.Observations...)
	}
	return append([]string(nil), s.Observations[len(s.Observations)-n:]...)
}

// Checkpoint is a restorable snapshot of derived task state at a specific
// step. Restoring a checkpoint deletes every step with a number greater than
// StepNumber; it is the only destructive operation in the design.
type Checkpoint struct {
	ID          string     `json:"id"`
	TaskID      string     `json:"task_id"`
	StepNumber  int        `json:"step_number"`
	Snapshot    AgentState `json:"snapshot"`
	Reason      string     `json:"reason,omitempty"`
	IsAutomatic bool       `json:"is_automatic"`
	CreatedAt   time.Time  `json:"created_at"`
}

// NewCheckpoint creates a checkpoint of state at stepNumber. An empty reason
// marks the checkpoint as automatic (periodic).
func NewCheckpoint(taskID string, stepNumber int, state AgentState, reason string) *Checkpoint {
	return &Checkpoint{
		ID:          util.NewID(),
		TaskID:      taskID,
		StepNumber:  stepNumber,
		Snapshot:    state,
		Reason:      reason,
		IsAutomatic: reason == "",
		CreatedAt:   time.Now().UTC(),
	}
}
