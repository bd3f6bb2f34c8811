package gateway

import (
	"context"
	"net/http"
	"strings"

	"github.com/gorilla/websocket"

	"github.com/hupe1980/taskmesh/core"
	"github.com/hupe1980/taskmesh/logging"
	"github.com/hupe1980/taskmesh/queue"
	"github.com/hupe1980/taskmesh/state"
)

// StatusReporter exposes the worker's activity for get_status responses.
type StatusReporter interface {
	Status() string
}

// Options configures a Gateway.
type Options struct {
	// Hub is the fan-out registry to serve. A fresh hub is created when nil;
	// pass an existing one when the queue and worker were wired to it first.
	Hub *Hub
	// Worker answers get_status queries. Optional.
	Worker StatusReporter
	// CheckOrigin overrides the upgrader's origin policy. The default allows
	// all origins; deployments should restrict this.
	CheckOrigin func(r *http.Request) bool
	// Logger receives structured gateway logs.
	Logger logging.Logger
}

// Gateway upgrades HTTP connections to the streaming protocol and serves the
// control plane commands. Its Hub is the process-wide event sink.
type Gateway struct {
	hub      *Hub
	store    core.Store
	queue    *queue.Queue
	worker   StatusReporter
	upgrader websocket.Upgrader
	logger   logging.Logger
}

// New creates a Gateway over the given store and queue.
func New(store core.Store, q *queue.Queue, optFns ...func(o *Options)) *Gateway {
	opts := Options{
		CheckOrigin: func(*http.Request) bool { return true },
		Logger:      logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Hub == nil {
		opts.Hub = NewHub(opts.Logger)
	}
	return &Gateway{
		hub:    opts.Hub,
		store:  store,
		queue:  q,
		worker: opts.Worker,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     opts.CheckOrigin,
		},
		logger: opts.Logger,
	}
}

// Hub returns the live fan-out sink. Wire it into the queue and worker so
// persisted events reach subscribed connections.
func (g *Gateway) Hub() *Hub { return g.hub }

// HandleWS upgrades the request and serves the connection until the client
// disconnects or the heartbeat declares it dead.
func (g *Gateway) HandleWS(w http.ResponseWriter, r *http.Request) {
	ws, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		g.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	conn := newConn(ws, g.logger)
	go conn.writePump()
	defer g.hub.drop(conn)

	g.logger.Debug("websocket connected", "remote", r.RemoteAddr)
	conn.readPump(func(msg ClientMessage) {
		g.dispatch(r.Context(), conn, msg)
	})
	g.logger.Debug("websocket disconnected", "remote", r.RemoteAddr)
}

func (g *Gateway) dispatch(ctx context.Context, conn *Conn, msg ClientMessage) {
	switch msg.Type {
	case MsgSubscribe:
		g.handleSubscribe(ctx, conn, msg)
	case MsgUnsubscribe:
		g.hub.unsubscribe(conn, msg.TaskID)
		conn.enqueue(ServerMessage{Type: MsgUnsubscribed, TaskID: msg.TaskID})
	case MsgInterrupt:
		g.control(conn, msg.TaskID, g.queue.Cancel(ctx, msg.TaskID))
	case MsgPause:
		g.control(conn, msg.TaskID, g.queue.Pause(ctx, msg.TaskID))
	case MsgResume:
		g.control(conn, msg.TaskID, g.queue.Resume(ctx, msg.TaskID))
	case MsgAddMessage:
		g.handleAddMessage(ctx, conn, msg)
	case MsgGetStatus:
		g.handleGetStatus(ctx, conn, msg)
	case MsgGetEvents:
		events, err := g.store.ListEventsSince(ctx, msg.TaskID, msg.LastKnownSequence)
		if err != nil {
			// Read path degrades to an empty backlog.
			g.logger.Error("event backlog read failed", "task_id", msg.TaskID, "error", err)
			events = nil
		}
		conn.enqueue(ServerMessage{Type: MsgEvents, TaskID: msg.TaskID, Events: events})
	default:
		conn.enqueue(errorMessage(msg.TaskID, "unknown message type: "+msg.Type))
	}
}

// handleSubscribe registers the subscription and replays the persisted
// backlog before any live event. The subscription stays locked during replay,
// so concurrent publishes wait and are then deduplicated against the replayed
// sequences.
func (g *Gateway) handleSubscribe(ctx context.Context, conn *Conn, msg ClientMessage) {
	if _, err := g.store.GetTask(ctx, msg.TaskID); err != nil {
		conn.enqueue(errorMessage(msg.TaskID, "unknown task"))
		return
	}

	sub, release := g.hub.subscribe(conn, msg.TaskID, msg.LastKnownSequence)
	defer release()

	conn.enqueue(ServerMessage{Type: MsgSubscribed, TaskID: msg.TaskID})

	backlog, err := g.store.ListEventsSince(ctx, msg.TaskID, msg.LastKnownSequence)
	if err != nil {
		g.logger.Error("event replay failed", "task_id", msg.TaskID, "error", err)
		return
	}
	for _, ev := range backlog {
		sub.deliverLocked(*ev)
	}
}

// handleAddMessage injects a user message into a running task as an observe
// step, making it visible to the reasoner on its next iteration.
func (g *Gateway) handleAddMessage(ctx context.Context, conn *Conn, msg ClientMessage) {
	if strings.TrimSpace(msg.Content) == "" {
		conn.enqueue(errorMessage(msg.TaskID, "content must not be empty"))
		return
	}
	task, err := g.store.GetTask(ctx, msg.TaskID)
	if err != nil {
		conn.enqueue(errorMessage(msg.TaskID, "unknown task"))
		return
	}
	if task.Status.Terminal() {
		conn.enqueue(errorMessage(msg.TaskID, "task is already "+string(task.Status)))
		return
	}

	mgr := state.NewManager(g.store, msg.TaskID, func(o *state.Options) {
		o.Sink = g.hub
		o.Logger = g.logger
	})
	step := core.NewStep(msg.TaskID, core.StepObserve, "user message: "+msg.Content)
	if _, err := mgr.SaveStep(ctx, step); err != nil {
		conn.enqueue(errorMessage(msg.TaskID, "message could not be saved"))
		return
	}
	// The latest message also lands in working memory so it survives
	// checkpoints and restores alongside the observation.
	if _, err := mgr.UpdateTask(ctx, func(t *core.Task) {
		if t.WorkingMemory == nil {
			t.WorkingMemory = map[string]any{}
		}
		t.WorkingMemory["last_user_message"] = msg.Content
	}); err != nil {
		g.logger.Error("working memory update failed", "task_id", msg.TaskID, "error", err)
	}
	if err := mgr.EmitEvent(ctx, core.EventMessageAdded, map[string]any{"content": msg.Content}); err != nil {
		g.logger.Error("message event failed", "task_id", msg.TaskID, "error", err)
	}
	conn.enqueue(ackMessage(msg.TaskID))
}

func (g *Gateway) handleGetStatus(ctx context.Context, conn *Conn, msg ClientMessage) {
	resp := ServerMessage{
		Type:         MsgStatus,
		TaskID:       msg.TaskID,
		WorkerStatus: "unknown",
		QueueLength:  g.queue.Length(ctx),
	}
	if g.worker != nil {
		resp.WorkerStatus = g.worker.Status()
	}
	if msg.TaskID != "" {
		task, err := g.store.GetTask(ctx, msg.TaskID)
		if err != nil {
			conn.enqueue(errorMessage(msg.TaskID, "unknown task"))
			return
		}
		resp.TaskStatus = task.Status
	}
	conn.enqueue(resp)
}

// control converts a queue operation outcome into an ack or error frame.
func (g *Gateway) control(conn *Conn, taskID string, err error) {
	if err != nil {
		conn.enqueue(errorMessage(taskID, err.Error()))
		return
	}
	conn.enqueue(ackMessage(taskID))
}
