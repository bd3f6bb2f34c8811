// Package taskmesh provides a high-level façade over the durable task
// execution substrate: queue, state management, worker loop and streaming
// gateway. Most applications interact with this package by:
//  1. Creating a TaskMesh via New() (optionally overriding the store,
//     reasoner, tools and logger)
//  2. Submitting tasks (Submit) and controlling them (Pause/Resume/Cancel)
//  3. Starting the worker (Start) and, when streaming is wanted, mounting
//     the gateway's WebSocket handler
//
// All defaults are safe for local development and testing: an in-memory
// store, no tools and a no-op logger. Production deployments supply the
// SQLite store (or another core.Store implementation), a provider-backed
// reasoner and a structured logger.
package taskmesh

import (
	"context"

	"github.com/hupe1980/taskmesh/artifact"
	"github.com/hupe1980/taskmesh/core"
	"github.com/hupe1980/taskmesh/gateway"
	"github.com/hupe1980/taskmesh/logging"
	"github.com/hupe1980/taskmesh/queue"
	"github.com/hupe1980/taskmesh/reasoning"
	"github.com/hupe1980/taskmesh/state"
	"github.com/hupe1980/taskmesh/store/memory"
	"github.com/hupe1980/taskmesh/tool"
	"github.com/hupe1980/taskmesh/worker"
)

// Options configures the TaskMesh instance.
type Options struct {
	// Store is the durable backend. Defaults to the in-memory store.
	Store core.Store
	// Reasoner drives task decisions. Defaults to a mock that answers
	// immediately, which is only useful for tests and demos.
	Reasoner core.Reasoner
	// Tools are registered into the worker's executor.
	Tools []tool.Tool
	// ArtifactStore persists binary tool outputs. Defaults to in-memory.
	ArtifactStore core.ArtifactStore
	// WorkerOptions tune the execution loop (concurrency, checkpoint
	// interval, budgets enforcement parameters).
	WorkerOptions []func(o *worker.Options)
	// Logger (defaults to NoOp logger if nil)
	Logger logging.Logger
}

// TaskMesh is the high-level façade aggregating queue, worker and gateway.
type TaskMesh struct {
	store     core.Store
	queue     *queue.Queue
	worker    *worker.Worker
	gateway   *gateway.Gateway
	artifacts core.ArtifactStore
	registry  *tool.Registry
	logger    logging.Logger
}

// New creates a new TaskMesh instance with optional overrides. Any unset
// collaborator is initialized with an in-memory implementation.
func New(optFns ...func(o *Options)) *TaskMesh {
	opts := Options{
		Store:         memory.NewStore(),
		Reasoner:      reasoning.NewMock(),
		ArtifactStore: artifact.NewInMemoryStore(),
		Logger:        logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	registry := tool.NewRegistry(opts.Tools...)

	// Lifecycle and execution events fan out through a shared hub.
	hub := gateway.NewHub(opts.Logger)
	q := queue.New(opts.Store, func(o *queue.Options) {
		o.Sink = hub
		o.Logger = opts.Logger
	})

	workerOpts := append([]func(o *worker.Options){func(o *worker.Options) {
		o.Executor = registry
		o.ArtifactStore = opts.ArtifactStore
		o.Sink = hub
		o.Logger = opts.Logger
	}}, opts.WorkerOptions...)

	w := worker.New(opts.Store, q, opts.Reasoner, workerOpts...)

	g := gateway.New(opts.Store, q, func(o *gateway.Options) {
		o.Hub = hub
		o.Worker = w
		o.Logger = opts.Logger
	})

	return &TaskMesh{
		store:     opts.Store,
		queue:     q,
		worker:    w,
		gateway:   g,
		artifacts: opts.ArtifactStore,
		registry:  registry,
		logger:    opts.Logger,
	}
}

// RegisterTool adds a tool to the worker's executor.
func (m *TaskMesh) RegisterTool(t tool.Tool) { m.registry.Register(t) }

// Submit admits a new task and returns its id.
func (m *TaskMesh) Submit(ctx context.Context, ownerID, goal string, cfg core.TaskConfig) (string, error) {
	return m.queue.Enqueue(ctx, ownerID, goal, cfg, core.PriorityDefault)
}

// Task returns the task by id.
func (m *TaskMesh) Task(ctx context.Context, taskID string) (*core.Task, error) {
	return m.queue.Get(ctx, taskID)
}

// Tasks returns all tasks owned by ownerID.
func (m *TaskMesh) Tasks(ctx context.Context, ownerID string) ([]*core.Task, error) {
	return m.queue.ListByOwner(ctx, ownerID)
}

// Pause halts a running task at its next iteration boundary.
func (m *TaskMesh) Pause(ctx context.Context, taskID string) error {
	return m.queue.Pause(ctx, taskID)
}

// Resume requeues a paused task ahead of default-priority work.
func (m *TaskMesh) Resume(ctx context.Context, taskID string) error {
	return m.queue.Resume(ctx, taskID)
}

// Cancel terminates a non-terminal task.
func (m *TaskMesh) Cancel(ctx context.Context, taskID string) error {
	return m.queue.Cancel(ctx, taskID)
}

// StateManager returns a per-task manager for step, checkpoint and event
// access.
func (m *TaskMesh) StateManager(taskID string) *state.Manager {
	return state.NewManager(m.store, taskID, func(o *state.Options) {
		o.Sink = m.gateway.Hub()
		o.Logger = m.logger
	})
}

// Queue exposes the underlying task queue.
func (m *TaskMesh) Queue() *queue.Queue { return m.queue }

// Worker exposes the execution engine.
func (m *TaskMesh) Worker() *worker.Worker { return m.worker }

// Gateway exposes the streaming control plane for mounting into an HTTP
// server.
func (m *TaskMesh) Gateway() *gateway.Gateway { return m.gateway }

// Artifacts exposes the artifact store, mainly for mounting the HTTP
// server's download endpoints.
func (m *TaskMesh) Artifacts() core.ArtifactStore { return m.artifacts }

// Start launches the worker polling loop.
func (m *TaskMesh) Start(ctx context.Context) { m.worker.Start(ctx) }

// Stop halts the worker, waiting for in-flight iterations to finish.
func (m *TaskMesh) Stop() { m.worker.Stop() }
