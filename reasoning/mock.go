package reasoning

import (
	"context"
	"sync"

	"github.com/hupe1980/taskmesh/core"
)

// Interface compliance (compile-time assertion)
var _ core.Reasoner = (*Mock)(nil)

// Mock is a scripted reasoner for tests and examples. It returns the
// configured decisions in order; after the script is exhausted it keeps
// returning the last decision (or a plain "done" answer when no script was
// given). Safe for concurrent use.
type Mock struct {
	mu        sync.Mutex
	decisions []*core.Decision
	calls     int
	Err       error // returned by every Think call when set
}

// NewMock returns a Mock that replays the given decisions.
func NewMock(decisions ...*core.Decision) *Mock {
	return &Mock{decisions: decisions}
}

// Think pops the next scripted decision.
func (m *Mock) Think(_ context.Context, _ core.ThinkContext) (*core.Decision, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.Err != nil {
		return nil, m.Err
	}
	if len(m.decisions) == 0 {
		return &core.Decision{Action: core.ActionAnswer, Answer: "done"}, nil
	}
	idx := m.calls - 1
	if idx >= len(m.decisions) {
		idx = len(m.decisions) - 1
	}
	d := *m.decisions[idx]
	return &d, nil
}

// Calls reports how many times Think has been invoked.
func (m *Mock) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// AnswerDecision is a shorthand for a final answer decision.
func AnswerDecision(answer string) *core.Decision {
	return &core.Decision{Action: core.ActionAnswer, Answer: answer}
}

// ToolCallDecision is a shorthand for a tool call decision.
func ToolCallDecision(name string, args map[string]any) *core.Decision {
	return &core.Decision{Action: core.ActionToolCall, ToolName: name, ToolArgs: args}
}
