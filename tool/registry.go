package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/hupe1980/taskmesh/core"
	"github.com/hupe1980/taskmesh/internal/util"
)

// Interface compliance (compile-time assertion)
var _ core.Executor = (*Registry)(nil)

// Registry is a named collection of tools that implements core.Executor.
//
// The worker dispatches every tool_call decision through the registry, which
// validates the arguments against the tool's schema, invokes the tool and
// normalizes the outcome into a core.Execution. Tool failures are reported as
// unsuccessful executions rather than errors so the worker can record them as
// failed steps and let the reasoner react.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Tool
}

// NewRegistry returns a registry pre-populated with the given tools.
// Duplicate names overwrite earlier registrations.
func NewRegistry(tools ...Tool) *Registry {
	r := &Registry{tools: make(map[string]Tool)}
	for _, t := range tools {
		r.Register(t)
	}
	return r
}

// Register adds (or replaces) a tool under its name.
func (r *Registry) Register(t Tool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[t.Name()] = t
}

// Get returns the named tool and whether it exists.
func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

// Names returns the sorted tool names currently registered.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Descriptors returns the tool catalogue exposed to the reasoner, sorted by
// name for deterministic prompts.
func (r *Registry) Descriptors() []core.ToolDescriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	descs := make([]core.ToolDescriptor, 0, len(r.tools))
	for _, t := range r.tools {
		descs = append(descs, core.ToolDescriptor{
			Name:        t.Name(),
			Description: t.Description(),
			Parameters:  t.Parameters(),
		})
	}
	sort.Slice(descs, func(i, j int) bool { return descs[i].Name < descs[j].Name })
	return descs
}

// Execute looks up the named tool, validates the arguments against its schema
// and invokes it. Unknown tools and validation failures come back as
// unsuccessful executions so the reasoner can correct itself on the next
// iteration.
func (r *Registry) Execute(ctx context.Context, name string, args map[string]any) (*core.Execution, error) {
	t, ok := r.Get(name)
	if !ok {
		return &core.Execution{
			Success: false,
			Error:   NewToolError(name, "tool not registered", "NOT_FOUND").Error(),
		}, nil
	}

	if schema := t.Parameters(); schema != nil {
		if err := util.ValidateParameters(args, schema); err != nil {
			return &core.Execution{
				Success: false,
				Error:   NewToolError(name, err.Error(), "VALIDATION_ERROR").Error(),
			}, nil
		}
	}

	result, err := t.Call(ctx, args)
	if err != nil {
		if ctx.Err() != nil {
			// Cancellation is a transport concern, surface it to the worker.
			return nil, ctx.Err()
		}
		return &core.Execution{
			Success: false,
			Error:   NewToolError(name, err.Error(), "EXECUTION_ERROR").Error(),
		}, nil
	}

	// Tools producing artifacts or structured outcomes return an Execution
	// directly; plain return values are rendered to text.
	if exec, ok := result.(*core.Execution); ok {
		return exec, nil
	}
	return &core.Execution{Success: true, Output: renderOutput(result)}, nil
}

// renderOutput converts an arbitrary tool result into observation text.
func renderOutput(result any) string {
	switch v := result.(type) {
	case nil:
		return ""
	case string:
		return v
	case []byte:
		return string(v)
	case fmt.Stringer:
		return v.String()
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(data)
	}
}
