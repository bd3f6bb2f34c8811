package core

import (
	"time"

	"github.com/hupe1980/taskmesh/internal/util"
)

// StepKind is the closed set of step types recorded in a task's execution
// history. Keeping the set closed lets switches over step kinds be checked
// for exhaustiveness.
type StepKind string

const (
	// StepThink records a reasoning call and the decision it produced.
	StepThink StepKind = "think"
	// StepPlan records an explicit planning output.
	StepPlan StepKind = "plan"
	// StepToolCall records a tool invocation with its arguments and result.
	StepToolCall StepKind = "tool_call"
	// StepObserve records a derived observation summarizing a tool outcome
	// or an injected user message.
	StepObserve StepKind = "observe"
	// StepAnswer records the terminal answer that completed the task.
	StepAnswer StepKind = "answer"
	// StepError records a recovered per-iteration failure.
	StepError StepKind = "error"
	// StepCheckpoint records that a checkpoint snapshot was taken.
	StepCheckpoint StepKind = "checkpoint"
)

// Valid reports whether k is one of the known step kinds.
func (k StepKind) Valid() bool {
	switch k {
	case StepThink, StepPlan, StepToolCall, StepObserve, StepAnswer, StepError, StepCheckpoint:
		return true
	default:
		return false
	}
}

// Step statuses. Steps record outcomes, so only two states exist.
const (
	StepStatusCompleted = "completed"
	StepStatusFailed    = "failed"
)

// Step is one atomic recorded action, thought or observation within a task's
// execution history. Steps are append-only and never mutated after creation;
// together they form the replayable history. StepNumber is strictly
// increasing per task and assigned by the store on append.
type Step struct {
	ID          string         `json:"id"`
	TaskID      string         `json:"task_id"`
	StepNumber  int            `json:"step_number"`
	Kind        StepKind       `json:"kind"`
	Content     string         `json:"content,omitempty"`
	ToolName    string         `json:"tool_name,omitempty"`
	ToolArgs    map[string]any `json:"tool_args,omitempty"`
	ToolResult  string         `json:"tool_result,omitempty"`
	Status      string         `json:"status"`
	StartedAt   time.Time      `json:"started_at"`
	CompletedAt time.Time      `json:"completed_at"`
}

// NewStep creates a completed step of the given kind. The store assigns
// StepNumber when the step is appended.
func NewStep(taskID string, kind StepKind, content string) *Step {
	now := time.Now().UTC()
	return &Step{
		ID:          util.NewID(),
		TaskID:      taskID,
		Kind:        kind,
		Content:     content,
		Status:      StepStatusCompleted,
		StartedAt:   now,
		CompletedAt: now,
	}
}

// NewToolCallStep creates a tool_call step carrying the invocation arguments
// and its (possibly failed) result.
func NewToolCallStep(taskID, toolName string, args map[string]any, result string, failed bool) *Step {
	s := NewStep(taskID, StepToolCall, "")
	s.ToolName = toolName
	s.ToolArgs = args
	s.ToolResult = result
	if failed {
		s.Status = StepStatusFailed
	}
	return s
}
