package worker

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hupe1980/taskmesh/artifact"
	"github.com/hupe1980/taskmesh/core"
	"github.com/hupe1980/taskmesh/internal/util"
	"github.com/hupe1980/taskmesh/logging"
	"github.com/hupe1980/taskmesh/queue"
	"github.com/hupe1980/taskmesh/state"
)

const (
	// DefaultPollInterval is the sleep between empty dequeue attempts.
	DefaultPollInterval = time.Second
	// DefaultMaxConcurrentTasks bounds parallel task loops. The default of one
	// bounds the blast radius of a stuck task at the cost of parallelism.
	DefaultMaxConcurrentTasks = 1
	// DefaultCheckpointInterval is the number of iterations between automatic
	// checkpoints.
	DefaultCheckpointInterval = 5
	// DefaultObservationWindow is how many recent observations are handed to
	// the reasoner.
	DefaultObservationWindow = 10
	// DefaultObservationLimit caps the length of a derived observation.
	DefaultObservationLimit = 500
	// DefaultFailureStreakLimit is the number of consecutive failures on the
	// same tool (or on reasoning) that fails the task.
	DefaultFailureStreakLimit = 3
)

// Options configures a Worker.
type Options struct {
	// Executor runs tool_call decisions. Defaults to an empty catalogue.
	Executor core.Executor
	// ArtifactStore persists binary tool outputs. Defaults to in-memory.
	ArtifactStore core.ArtifactStore
	// Sink receives events for live fan-out.
	Sink core.EventSink
	// Logger receives structured worker logs.
	Logger logging.Logger

	PollInterval       time.Duration
	MaxConcurrentTasks int
	CheckpointInterval int
	ObservationWindow  int
	ObservationLimit   int
	FailureStreakLimit int
}

// noTools is the executor used when none is configured.
type noTools struct{}

func (noTools) Execute(_ context.Context, name string, _ map[string]any) (*core.Execution, error) {
	return &core.Execution{Success: false, Error: fmt.Sprintf("no tools available: %s", name)}, nil
}
func (noTools) Descriptors() []core.ToolDescriptor { return nil }

// Worker polls the queue and executes tasks. One Worker instance runs up to
// MaxConcurrentTasks task loops concurrently; each loop yields to external
// control only at iteration boundaries.
type Worker struct {
	store    core.Store
	queue    *queue.Queue
	reasoner core.Reasoner
	executor core.Executor
	afs      core.ArtifactStore
	sink     core.EventSink
	logger   logging.Logger

	pollInterval       time.Duration
	maxConcurrent      int
	checkpointInterval int
	observationWindow  int
	observationLimit   int
	failureStreakLimit int

	active int32
	cancel context.CancelFunc
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// New creates a Worker over the given store, queue and reasoner.
func New(store core.Store, q *queue.Queue, reasoner core.Reasoner, optFns ...func(o *Options)) *Worker {
	opts := Options{
		Executor:           noTools{},
		ArtifactStore:      artifact.NewInMemoryStore(),
		Sink:               core.NoOpSink{},
		Logger:             logging.NoOpLogger{},
		PollInterval:       DefaultPollInterval,
		MaxConcurrentTasks: DefaultMaxConcurrentTasks,
		CheckpointInterval: DefaultCheckpointInterval,
		ObservationWindow:  DefaultObservationWindow,
		ObservationLimit:   DefaultObservationLimit,
		FailureStreakLimit: DefaultFailureStreakLimit,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.MaxConcurrentTasks <= 0 {
		opts.MaxConcurrentTasks = DefaultMaxConcurrentTasks
	}
	if opts.CheckpointInterval <= 0 {
		opts.CheckpointInterval = DefaultCheckpointInterval
	}
	return &Worker{
		store:              store,
		queue:              q,
		reasoner:           reasoner,
		executor:           opts.Executor,
		afs:                opts.ArtifactStore,
		sink:               opts.Sink,
		logger:             opts.Logger,
		pollInterval:       opts.PollInterval,
		maxConcurrent:      opts.MaxConcurrentTasks,
		checkpointInterval: opts.CheckpointInterval,
		observationWindow:  opts.ObservationWindow,
		observationLimit:   opts.ObservationLimit,
		failureStreakLimit: opts.FailureStreakLimit,
	}
}

// Start launches the polling loop. It returns immediately; call Stop to halt.
func (w *Worker) Start(ctx context.Context) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.cancel != nil {
		return
	}
	ctx, w.cancel = context.WithCancel(ctx)

	sem := make(chan struct{}, w.maxConcurrent)
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		ticker := time.NewTicker(w.pollInterval)
		defer ticker.Stop()
		for {
			w.drain(ctx, sem)
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}()
	w.logger.Info("worker started", "max_concurrent", w.maxConcurrent, "poll_interval", w.pollInterval.String())
}

// drain dequeues and launches tasks until the queue is empty or all slots are
// taken.
func (w *Worker) drain(ctx context.Context, sem chan struct{}) {
	for {
		select {
		case <-ctx.Done():
			return
		case sem <- struct{}{}:
		default:
			return
		}

		task, err := w.queue.Dequeue(ctx)
		if err != nil {
			w.logger.Error("dequeue failed", "error", err)
			<-sem
			return
		}
		if task == nil {
			<-sem
			return
		}

		w.wg.Add(1)
		go func() {
			defer w.wg.Done()
			defer func() { <-sem }()
			w.RunTask(ctx, task)
		}()
	}
}

// Stop halts the polling loop and waits for in-flight task loops to reach
// their next iteration boundary.
func (w *Worker) Stop() {
	w.mu.Lock()
	cancel := w.cancel
	w.cancel = nil
	w.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	w.wg.Wait()
	w.logger.Info("worker stopped")
}

// Status reports "running" while at least one task loop is active, otherwise
// "idle".
func (w *Worker) Status() string {
	if atomic.LoadInt32(&w.active) > 0 {
		return "running"
	}
	return "idle"
}

// RunTask executes one task to a halt state (terminal, paused or cancelled).
// It is exported so callers can drive a task synchronously without the
// polling loop. Panics inside the loop fail the task instead of escaping.
func (w *Worker) RunTask(ctx context.Context, task *core.Task) {
	atomic.AddInt32(&w.active, 1)
	defer atomic.AddInt32(&w.active, -1)

	logger := w.logger
	mgr := state.NewManager(w.store, task.ID, func(o *state.Options) {
		o.Sink = w.sink
		o.Logger = logger
	})

	defer func() {
		if r := recover(); r != nil {
			msg := fmt.Sprintf("internal error: %v", r)
			logger.Error("task loop panic", "task_id", task.ID, "panic", fmt.Sprintf("%v", r))
			_, _ = mgr.SaveStep(ctx, core.NewStep(task.ID, core.StepError, msg))
			if err := w.queue.Fail(ctx, task.ID, msg); err != nil {
				logger.Error("fail after panic failed", "task_id", task.ID, "error", err)
			}
		}
	}()

	cfg := task.Config.Normalize()
	started := time.Now()
	// The timeout bounds total wall clock across pauses and resumes, so it
	// anchors on the task's first start rather than this run's entry.
	anchor := started
	if task.StartedAt != nil {
		anchor = *task.StartedAt
	}
	deadline := anchor.Add(cfg.Timeout)

	// Consecutive failure streak, keyed by tool name (or "think").
	streakKey := ""
	streak := 0
	bump := func(key string) bool {
		if key == streakKey {
			streak++
		} else {
			streakKey, streak = key, 1
		}
		return streak >= w.failureStreakLimit
	}
	reset := func() { streakKey, streak = "", 0 }

	for {
		// External status check before any work.
		fresh, err := w.store.GetTask(ctx, task.ID)
		if err != nil {
			logger.Error("status check failed", "task_id", task.ID, "error", err)
			return
		}
		if fresh.Status != core.StatusRunning {
			logger.Info("task loop halted", "task_id", task.ID, "status", string(fresh.Status))
			return
		}

		st, err := mgr.LoadState(ctx)
		if err != nil || st == nil {
			logger.Error("state load failed", "task_id", task.ID, "error", err)
			w.failTask(ctx, task.ID, "state load failed")
			return
		}

		// Budgets, checked at iteration boundaries only.
		if st.Iteration >= cfg.MaxIterations {
			w.failTask(ctx, task.ID, (&core.LimitError{Limit: "iterations", Max: cfg.MaxIterations}).Error())
			return
		}
		if st.ToolCalls >= cfg.MaxToolCalls {
			w.failTask(ctx, task.ID, (&core.LimitError{Limit: "tool_calls", Max: cfg.MaxToolCalls}).Error())
			return
		}
		if time.Now().After(deadline) {
			w.failTask(ctx, task.ID, (&core.LimitError{Limit: "timeout"}).Error())
			return
		}

		iteration := st.Iteration + 1
		if _, err := mgr.UpdateTask(ctx, func(t *core.Task) {
			t.CurrentIteration = iteration
			t.CurrentPhase = core.PhaseThinking
		}); err != nil {
			logger.Error("iteration update failed", "task_id", task.ID, "error", err)
			return
		}

		tc := core.ThinkContext{
			Goal:           fresh.Goal,
			Phase:          core.PhaseThinking,
			Iteration:      iteration,
			ToolCalls:      st.ToolCalls,
			Observations:   st.RecentObservations(w.observationWindow),
			LastToolResult: st.LastToolResult,
			Tools:          w.executor.Descriptors(),
		}

		thinkStart := time.Now()
		decision, err := w.reasoner.Think(ctx, tc)
		if err != nil {
			logger.Error("reasoning failed", "task_id", task.ID, "iteration", iteration, "error", err)
			_, _ = mgr.SaveStep(ctx, core.NewStep(task.ID, core.StepError, "reasoning failed: "+err.Error()))
			_ = mgr.EmitEvent(ctx, core.EventError, map[string]any{"error": err.Error(), "iteration": iteration})
			if bump("think") {
				w.failTask(ctx, task.ID, "reasoning failed repeatedly: "+err.Error())
				return
			}
			continue
		}
		logger.Debug("reasoning completed", "task_id", task.ID, "iteration", iteration, "duration", time.Since(thinkStart).String())

		think := core.NewStep(task.ID, core.StepThink, decision.Thinking)
		if _, err := mgr.SaveStep(ctx, think); err != nil {
			logger.Error("think step save failed", "task_id", task.ID, "error", err)
			w.failTask(ctx, task.ID, "store unavailable")
			return
		}
		_ = mgr.EmitEvent(ctx, core.EventThinking, map[string]any{
			"iteration": iteration,
			"thinking":  decision.Thinking,
		})

		switch decision.Action {
		case core.ActionAnswer:
			answer := core.NewStep(task.ID, core.StepAnswer, decision.Answer)
			if _, err := mgr.SaveStep(ctx, answer); err != nil {
				logger.Error("answer step save failed", "task_id", task.ID, "error", err)
				w.failTask(ctx, task.ID, "store unavailable")
				return
			}
			if err := w.queue.Complete(ctx, task.ID, decision.Answer); err != nil {
				logger.Error("complete failed", "task_id", task.ID, "error", err)
			}
			logger.Info("task completed", "task_id", task.ID, "iterations", iteration, "duration", time.Since(started).String())
			return

		case core.ActionToolCall:
			failed := w.runToolCall(ctx, mgr, task.ID, iteration, decision, bump, reset)
			if failed {
				return
			}

		default:
			// The reasoning layer degrades unknown actions to answers, so this
			// is unreachable with well behaved reasoners.
			w.failTask(ctx, task.ID, fmt.Sprintf("unknown action %q", decision.Action))
			return
		}

		if iteration%w.checkpointInterval == 0 {
			if cpID, err := mgr.CreateCheckpoint(ctx, ""); err != nil {
				logger.Error("checkpoint failed", "task_id", task.ID, "error", err)
			} else {
				_ = mgr.EmitEvent(ctx, core.EventCheckpoint, map[string]any{
					"checkpoint_id": cpID,
					"iteration":     iteration,
				})
			}
		}
	}
}

// runToolCall executes one tool decision, persists the tool_call and observe
// steps and maintains the failure streak. Returns true when the streak limit
// was hit and the task was failed.
func (w *Worker) runToolCall(
	ctx context.Context,
	mgr *state.Manager,
	taskID string,
	iteration int,
	decision *core.Decision,
	bump func(key string) bool,
	reset func(),
) bool {
	if _, err := mgr.UpdateTask(ctx, func(t *core.Task) {
		t.TotalToolCalls++
		t.CurrentPhase = core.PhaseToolCall(decision.ToolName)
	}); err != nil {
		w.logger.Error("tool call update failed", "task_id", taskID, "error", err)
		w.failTask(ctx, taskID, "store unavailable")
		return true
	}
	_ = mgr.EmitEvent(ctx, core.EventToolCall, map[string]any{
		"tool_name": decision.ToolName,
		"tool_args": decision.ToolArgs,
		"iteration": iteration,
	})

	execStart := time.Now()
	exec, err := w.executor.Execute(ctx, decision.ToolName, decision.ToolArgs)
	if err != nil {
		// Transport level failure (cancellation, broken executor); recovered
		// like a failed execution.
		exec = &core.Execution{Success: false, Error: err.Error()}
	}

	result := exec.Output
	if !exec.Success {
		result = exec.Error
	}
	step := core.NewToolCallStep(taskID, decision.ToolName, decision.ToolArgs, result, !exec.Success)
	if _, err := mgr.SaveStep(ctx, step); err != nil {
		w.logger.Error("tool step save failed", "task_id", taskID, "error", err)
		w.failTask(ctx, taskID, "store unavailable")
		return true
	}

	artifactIDs := w.saveArtifacts(ctx, mgr, taskID, exec.Artifacts)

	observation := w.observe(decision.ToolName, exec)
	obs := core.NewStep(taskID, core.StepObserve, observation)
	if _, err := mgr.SaveStep(ctx, obs); err != nil {
		w.logger.Error("observe step save failed", "task_id", taskID, "error", err)
		w.failTask(ctx, taskID, "store unavailable")
		return true
	}

	_ = mgr.EmitEvent(ctx, core.EventToolResult, map[string]any{
		"tool_name":   decision.ToolName,
		"success":     exec.Success,
		"observation": observation,
		"artifacts":   artifactIDs,
		"duration_ms": time.Since(execStart).Milliseconds(),
	})

	if exec.Success {
		reset()
		return false
	}

	w.logger.Warn("tool execution failed", "task_id", taskID, "tool_name", decision.ToolName, "error", exec.Error)
	_ = mgr.EmitEvent(ctx, core.EventError, map[string]any{
		"tool_name": decision.ToolName,
		"error":     exec.Error,
		"iteration": iteration,
	})
	if bump(decision.ToolName) {
		w.failTask(ctx, taskID, fmt.Sprintf("tool %s failed %d times in a row: %s",
			decision.ToolName, w.failureStreakLimit, exec.Error))
		return true
	}
	return false
}

// saveArtifacts persists tool produced artifacts and records their ids on the
// task. Artifact persistence failures degrade to a log entry; the execution
// outcome already carries the output text.
func (w *Worker) saveArtifacts(ctx context.Context, mgr *state.Manager, taskID string, artifacts []core.Artifact) []string {
	if len(artifacts) == 0 {
		return nil
	}
	ids := make([]string, 0, len(artifacts))
	for _, a := range artifacts {
		id := util.NewID()
		if a.Name != "" {
			id = id + "-" + a.Name
		}
		if err := w.afs.Save(taskID, id, a.Data); err != nil {
			w.logger.Error("artifact save failed", "task_id", taskID, "artifact", a.Name, "error", err)
			continue
		}
		ids = append(ids, id)
	}
	if len(ids) > 0 {
		if _, err := mgr.UpdateTask(ctx, func(t *core.Task) {
			t.Artifacts = append(t.Artifacts, ids...)
		}); err != nil {
			w.logger.Error("artifact list update failed", "task_id", taskID, "error", err)
		}
	}
	return ids
}

// observe derives the observation text recorded after a tool call, capped at
// the configured limit.
func (w *Worker) observe(toolName string, exec *core.Execution) string {
	var text string
	if exec.Success {
		text = fmt.Sprintf("tool %s succeeded: %s", toolName, exec.Output)
	} else {
		text = fmt.Sprintf("tool %s failed: %s", toolName, exec.Error)
	}
	return util.Truncate(text, w.observationLimit)
}

// failTask marks the task failed through the queue. Queue level failures here
// are logged only; there is no better escalation path.
func (w *Worker) failTask(ctx context.Context, taskID, reason string) {
	if err := w.queue.Fail(ctx, taskID, reason); err != nil {
		w.logger.Error("fail transition failed", "task_id", taskID, "error", err)
	}
}
