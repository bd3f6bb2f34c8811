package core

import "context"

// Artifact is a named binary output produced by a tool invocation. Artifacts
// are persisted through an ArtifactStore and referenced by id on the task.
type Artifact struct {
	Name      string `json:"name"`
	MediaType string `json:"media_type,omitempty"`
	Data      []byte `json:"data"`
}

// Execution is the outcome of a single tool invocation. Tool failures are
// ordinary outcomes (Success=false), not transport errors; the worker records
// them as failed steps and continues.
type Execution struct {
	Success   bool       `json:"success"`
	Output    string     `json:"output,omitempty"`
	Error     string     `json:"error,omitempty"`
	Artifacts []Artifact `json:"artifacts,omitempty"`
}

// Executor is the tool execution collaborator contract. Executions are not
// assumed idempotent, so the core never auto-retries.
type Executor interface {
	// Execute runs the named tool with the given arguments.
	Execute(ctx context.Context, name string, args map[string]any) (*Execution, error)
	// Descriptors returns the tool catalogue exposed to the reasoner.
	Descriptors() []ToolDescriptor
}
