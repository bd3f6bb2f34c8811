package reasoning

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/hupe1980/taskmesh/core"
)

// SystemPrompt is the instruction block sent to every provider. It pins the
// model to a single JSON object per turn so ParseDecision can stay simple.
const SystemPrompt = `You are a task execution agent. On each turn you receive the task goal,
your progress so far and the available tools. Decide on exactly one action.

Respond with a single JSON object and nothing else:

{
  "thinking": "your reasoning for this step",
  "action": "tool_call" or "answer",
  "tool_name": "name of the tool (when action is tool_call)",
  "tool_args": { "arg": "value" },
  "answer": "the final answer (when action is answer)"
}

Rules:
- Use "tool_call" to gather information or perform work.
- Use "answer" once the goal is achieved or no tool can help further.
- tool_args must match the tool's parameter schema.
- Do not wrap the JSON in markdown fences or add commentary.`

// BuildUserPrompt renders a ThinkContext into the user message for one
// reasoning turn.
func BuildUserPrompt(tc core.ThinkContext) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Goal: %s\n\n", tc.Goal)
	fmt.Fprintf(&b, "Iteration: %d, tool calls so far: %d\n", tc.Iteration, tc.ToolCalls)
	if tc.Phase != "" {
		fmt.Fprintf(&b, "Current phase: %s\n", tc.Phase)
	}

	if len(tc.Tools) > 0 {
		b.WriteString("\nAvailable tools:\n")
		for _, tool := range tc.Tools {
			fmt.Fprintf(&b, "- %s: %s\n", tool.Name, tool.Description)
			if tool.Parameters != nil {
				if schema, err := json.Marshal(tool.Parameters); err == nil {
					fmt.Fprintf(&b, "  parameters: %s\n", schema)
				}
			}
		}
	} else {
		b.WriteString("\nNo tools are available. Answer directly.\n")
	}

	if len(tc.Observations) > 0 {
		b.WriteString("\nRecent observations:\n")
		for i, obs := range tc.Observations {
			fmt.Fprintf(&b, "%d. %s\n", i+1, obs)
		}
	}

	if tc.LastToolResult != "" {
		fmt.Fprintf(&b, "\nLast tool result:\n%s\n", tc.LastToolResult)
	}

	b.WriteString("\nDecide on your next action.")
	return b.String()
}
