package taskmesh

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/taskmesh/core"
	"github.com/hupe1980/taskmesh/reasoning"
	"github.com/hupe1980/taskmesh/tool"
	"github.com/hupe1980/taskmesh/worker"
)

func TestTaskMesh_EndToEnd(t *testing.T) {
	ctx := context.Background()

	echo := tool.NewFunctionTool("echo", "Echo text back",
		map[string]any{
			"type": "object",
			"properties": map[string]any{
				"text": map[string]any{"type": "string"},
			},
			"required": []string{"text"},
		},
		func(ctx context.Context, args map[string]any) (any, error) {
			return args["text"], nil
		})

	mesh := New(func(o *Options) {
		o.Reasoner = reasoning.NewMock(
			reasoning.ToolCallDecision("echo", map[string]any{"text": "hello"}),
			reasoning.AnswerDecision("all done"),
		)
		o.Tools = []tool.Tool{echo}
		o.WorkerOptions = []func(o *worker.Options){
			func(o *worker.Options) { o.PollInterval = 5 * time.Millisecond },
		}
	})

	id, err := mesh.Submit(ctx, "owner-1", "echo something", core.DefaultTaskConfig())
	require.NoError(t, err)

	mesh.Start(ctx)
	defer mesh.Stop()

	require.Eventually(t, func() bool {
		task, err := mesh.Task(ctx, id)
		return err == nil && task.Status == core.StatusCompleted
	}, 2*time.Second, 10*time.Millisecond)

	task, err := mesh.Task(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "all done", task.Result)

	mgr := mesh.StateManager(id)
	steps := mgr.Steps(ctx)
	require.NotEmpty(t, steps)

	events := mgr.EventsSince(ctx, 0)
	require.NotEmpty(t, events)
	assert.Equal(t, core.EventTaskCreated, events[0].Kind)
	assert.Equal(t, core.EventTaskCompleted, events[len(events)-1].Kind)
}

func TestTaskMesh_RegisterToolAfterConstruction(t *testing.T) {
	mesh := New()
	mesh.RegisterTool(tool.NewFunctionTool("late", "Registered late", nil,
		func(ctx context.Context, args map[string]any) (any, error) { return "ok", nil }))

	tasks, err := mesh.Tasks(context.Background(), "owner-1")
	require.NoError(t, err)
	assert.Empty(t, tasks)
}
