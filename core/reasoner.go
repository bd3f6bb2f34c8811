package core

import "context"

// ActionType is the closed set of actions a reasoning decision can request.
type ActionType string

const (
	// ActionToolCall requests execution of a named tool.
	ActionToolCall ActionType = "tool_call"
	// ActionAnswer terminates the task with a final answer.
	ActionAnswer ActionType = "answer"
)

// Decision is the parsed outcome of one reasoning call.
type Decision struct {
	Thinking string         `json:"thinking"`
	Action   ActionType     `json:"action"`
	ToolName string         `json:"tool_name,omitempty"`
	ToolArgs map[string]any `json:"tool_args,omitempty"`
	Answer   string         `json:"answer,omitempty"`
}

// ToolDescriptor describes a callable tool to the reasoning collaborator.
type ToolDescriptor struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters,omitempty"`
}

// ThinkContext is the bounded context handed to the reasoning collaborator
// for one iteration: the goal, progress counters, the most recent
// observations, the last tool result and the tool catalogue.
type ThinkContext struct {
	Goal           string
	Phase          string
	Iteration      int
	ToolCalls      int
	Observations   []string
	LastToolResult string
	Tools          []ToolDescriptor
}

// Reasoner is the reasoning collaborator contract. Implementations must
// tolerate malformed model output by degrading to an answer decision carrying
// the raw text; the worker loop never crashes on unparseable output.
type Reasoner interface {
	Think(ctx context.Context, tc ThinkContext) (*Decision, error)
}
