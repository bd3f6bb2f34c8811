package tool

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/taskmesh/core"
)

func TestFunctionTool_SchemaFromStruct(t *testing.T) {
	type echoArgs struct {
		Text  string `json:"text" description:"Text to echo"`
		Times int    `json:"times,omitempty"`
	}

	ft := NewFunctionToolFromStruct("echo", "Echo text back", echoArgs{},
		func(ctx context.Context, args map[string]any) (any, error) {
			return args["text"], nil
		})

	schema := ft.Parameters()
	assert.Equal(t, "object", schema["type"])

	props, ok := schema["properties"].(map[string]any)
	require.True(t, ok)
	textProp, ok := props["text"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "string", textProp["type"])
	assert.Equal(t, "Text to echo", textProp["description"])

	required, ok := schema["required"].([]string)
	require.True(t, ok)
	assert.Contains(t, required, "text")
	assert.NotContains(t, required, "times")
}

func TestRegistry_ExecuteSuccess(t *testing.T) {
	reg := NewRegistry(NewFunctionTool("upper", "Uppercase text",
		map[string]any{
			"type": "object",
			"properties": map[string]any{
				"text": map[string]any{"type": "string"},
			},
			"required": []string{"text"},
		},
		func(ctx context.Context, args map[string]any) (any, error) {
			return strings.ToUpper(args["text"].(string)), nil
		}))

	exec, err := reg.Execute(context.Background(), "upper", map[string]any{"text": "hello"})
	require.NoError(t, err)
	assert.True(t, exec.Success)
	assert.Equal(t, "HELLO", exec.Output)
}

func TestRegistry_ExecuteUnknownTool(t *testing.T) {
	reg := NewRegistry()

	exec, err := reg.Execute(context.Background(), "missing", nil)
	require.NoError(t, err)
	assert.False(t, exec.Success)
	assert.Contains(t, exec.Error, "NOT_FOUND")
}

func TestRegistry_ExecuteValidationFailure(t *testing.T) {
	reg := NewRegistry(NewFunctionTool("echo", "Echo",
		map[string]any{
			"type": "object",
			"properties": map[string]any{
				"text": map[string]any{"type": "string"},
			},
			"required": []string{"text"},
		},
		func(ctx context.Context, args map[string]any) (any, error) {
			return args["text"], nil
		}))

	exec, err := reg.Execute(context.Background(), "echo", map[string]any{})
	require.NoError(t, err)
	assert.False(t, exec.Success)
	assert.Contains(t, exec.Error, "VALIDATION_ERROR")
	assert.Contains(t, exec.Error, "text")
}

func TestRegistry_ExecuteToolError(t *testing.T) {
	reg := NewRegistry(NewFunctionTool("boom", "Always fails", nil,
		func(ctx context.Context, args map[string]any) (any, error) {
			return nil, errors.New("kaput")
		}))

	exec, err := reg.Execute(context.Background(), "boom", nil)
	require.NoError(t, err)
	assert.False(t, exec.Success)
	assert.Contains(t, exec.Error, "EXECUTION_ERROR")
	assert.Contains(t, exec.Error, "kaput")
}

func TestRegistry_ExecutionPassthrough(t *testing.T) {
	want := &core.Execution{
		Success: true,
		Output:  "chart rendered",
		Artifacts: []core.Artifact{
			{Name: "chart.png", MediaType: "image/png", Data: []byte{0x89, 0x50}},
		},
	}
	reg := NewRegistry(NewFunctionTool("render", "Render a chart", nil,
		func(ctx context.Context, args map[string]any) (any, error) {
			return want, nil
		}))

	exec, err := reg.Execute(context.Background(), "render", nil)
	require.NoError(t, err)
	assert.Same(t, want, exec)
}

func TestRegistry_ExecuteCancelled(t *testing.T) {
	reg := NewRegistry(NewFunctionTool("slow", "Waits for cancellation", nil,
		func(ctx context.Context, args map[string]any) (any, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := reg.Execute(ctx, "slow", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRegistry_StructuredOutputIsJSON(t *testing.T) {
	reg := NewRegistry(NewFunctionTool("lookup", "Lookup record", nil,
		func(ctx context.Context, args map[string]any) (any, error) {
			return map[string]any{"id": "42", "name": "fox"}, nil
		}))

	exec, err := reg.Execute(context.Background(), "lookup", nil)
	require.NoError(t, err)
	assert.True(t, exec.Success)
	assert.JSONEq(t, `{"id":"42","name":"fox"}`, exec.Output)
}

func TestRegistry_DescriptorsSorted(t *testing.T) {
	reg := NewRegistry(
		NewFunctionTool("zeta", "z", nil, func(ctx context.Context, args map[string]any) (any, error) { return nil, nil }),
		NewFunctionTool("alpha", "a", nil, func(ctx context.Context, args map[string]any) (any, error) { return nil, nil }),
	)

	descs := reg.Descriptors()
	require.Len(t, descs, 2)
	assert.Equal(t, "alpha", descs[0].Name)
	assert.Equal(t, "zeta", descs[1].Name)
	assert.Equal(t, []string{"alpha", "zeta"}, reg.Names())
}

func TestToolError_Error(t *testing.T) {
	err := NewToolError("echo", "bad input", "VALIDATION_ERROR")
	assert.Equal(t, "tool error [VALIDATION_ERROR] in echo: bad input", err.Error())

	err = &ToolError{Tool: "echo", Message: "bad input"}
	assert.Equal(t, "tool error in echo: bad input", err.Error())
}
