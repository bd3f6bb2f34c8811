package reasoning

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/taskmesh/core"
)

func TestParseDecision_ToolCall(t *testing.T) {
	d := ParseDecision(`{
		"thinking": "need to search",
		"action": "tool_call",
		"tool_name": "search",
		"tool_args": {"query": "go generics"}
	}`)

	assert.Equal(t, core.ActionToolCall, d.Action)
	assert.Equal(t, "search", d.ToolName)
	assert.Equal(t, "go generics", d.ToolArgs["query"])
	assert.Equal(t, "need to search", d.Thinking)
}

func TestParseDecision_Answer(t *testing.T) {
	d := ParseDecision(`{"thinking": "done", "action": "answer", "answer": "42"}`)

	assert.Equal(t, core.ActionAnswer, d.Action)
	assert.Equal(t, "42", d.Answer)
}

func TestParseDecision_CodeFence(t *testing.T) {
	d := ParseDecision("```json\n{\"action\": \"answer\", \"answer\": \"fenced\"}\n```")

	assert.Equal(t, core.ActionAnswer, d.Action)
	assert.Equal(t, "fenced", d.Answer)
}

func TestParseDecision_JSONEmbeddedInProse(t *testing.T) {
	d := ParseDecision(`Sure, here is my decision:
{"action": "tool_call", "tool_name": "fetch", "tool_args": {"url": "https://example.com"}}
Let me know if that helps.`)

	assert.Equal(t, core.ActionToolCall, d.Action)
	assert.Equal(t, "fetch", d.ToolName)
}

func TestParseDecision_MalformedFallsBackToAnswer(t *testing.T) {
	for _, raw := range []string{
		"I think the answer is 42.",
		`{"action": "tool_call"}`, // tool_call without tool_name
		`{"action": "dance"}`,     // unknown action
		`{"action": "answer", broken`,
		"",
	} {
		d := ParseDecision(raw)
		require.NotNil(t, d, "raw=%q", raw)
		assert.Equal(t, core.ActionAnswer, d.Action, "raw=%q", raw)
		assert.Equal(t, strings.TrimSpace(raw), d.Answer, "raw=%q", raw)
	}
}

func TestParseDecision_ToolCallGetsEmptyArgs(t *testing.T) {
	d := ParseDecision(`{"action": "tool_call", "tool_name": "noop"}`)

	require.Equal(t, core.ActionToolCall, d.Action)
	require.NotNil(t, d.ToolArgs)
	assert.Empty(t, d.ToolArgs)
}

func TestBuildUserPrompt(t *testing.T) {
	prompt := BuildUserPrompt(core.ThinkContext{
		Goal:           "summarize the report",
		Phase:          "thinking",
		Iteration:      3,
		ToolCalls:      2,
		Observations:   []string{"fetched report", "extracted tables"},
		LastToolResult: "table: revenue by quarter",
		Tools: []core.ToolDescriptor{
			{Name: "fetch", Description: "Fetch a URL"},
		},
	})

	assert.Contains(t, prompt, "Goal: summarize the report")
	assert.Contains(t, prompt, "Iteration: 3, tool calls so far: 2")
	assert.Contains(t, prompt, "- fetch: Fetch a URL")
	assert.Contains(t, prompt, "1. fetched report")
	assert.Contains(t, prompt, "table: revenue by quarter")
}

func TestMock_ReplaysScript(t *testing.T) {
	m := NewMock(
		ToolCallDecision("search", map[string]any{"q": "x"}),
		AnswerDecision("final"),
	)

	d1, err := m.Think(context.Background(), core.ThinkContext{})
	require.NoError(t, err)
	assert.Equal(t, core.ActionToolCall, d1.Action)

	d2, err := m.Think(context.Background(), core.ThinkContext{})
	require.NoError(t, err)
	assert.Equal(t, "final", d2.Answer)

	// Script exhausted, last decision repeats.
	d3, err := m.Think(context.Background(), core.ThinkContext{})
	require.NoError(t, err)
	assert.Equal(t, "final", d3.Answer)
	assert.Equal(t, 3, m.Calls())
}
