// Package tool implements the function / tool calling subsystem that lets the
// worker loop invoke structured capabilities (APIs, computations, side
// effects) with schema validated arguments, consistent error handling and
// rich metadata for reasoner guidance.
package tool

import (
	"context"
	"fmt"

	"github.com/hupe1980/taskmesh/internal/util"
)

// Tool defines the interface for extending agent capabilities with external functions.
//
// Tools are registered in a Registry which the worker uses as its
// core.Executor. The registry validates arguments against the tool's schema
// before dispatching and normalizes outcomes into core.Execution values.
//
// Tool implementations should:
//   - Provide clear, descriptive names and descriptions
//   - Define proper JSON schema for parameters
//   - Handle errors gracefully
//   - Be thread-safe if used concurrently
//   - Follow consistent naming conventions (snake_case recommended)
type Tool interface {
	// Name returns the unique identifier for this tool.
	Name() string

	// Description returns a human-readable description of what this tool does.
	// This description is provided to the reasoner to help it understand when
	// and how to use the tool.
	Description() string

	// Parameters returns a JSON schema describing the expected input format.
	// This schema is used for parameter validation and reasoner guidance.
	Parameters() map[string]interface{}

	// Call executes the tool with validated arguments. The returned value can
	// be any JSON-serializable Go type; tools producing binary artifacts
	// return a *core.Execution directly.
	Call(ctx context.Context, args map[string]interface{}) (interface{}, error)
}

// ValidationError represents parameter validation errors with detailed information.
type ValidationError = util.ValidationError

// ToolError represents errors that occur during tool execution.
type ToolError struct {
	Tool    string      `json:"tool"`              // Name of the tool that failed
	Message string      `json:"message"`           // Error message
	Code    string      `json:"code"`              // Error code for categorization
	Details interface{} `json:"details,omitempty"` // Additional error details
}

func (e *ToolError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("tool error [%s] in %s: %s", e.Code, e.Tool, e.Message)
	}
	return fmt.Sprintf("tool error in %s: %s", e.Tool, e.Message)
}

// NewToolError creates a new ToolError with the specified details.
func NewToolError(tool, message, code string) *ToolError {
	return &ToolError{
		Tool:    tool,
		Message: message,
		Code:    code,
	}
}
