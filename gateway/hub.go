package gateway

import (
	"sync"

	"github.com/hupe1980/taskmesh/core"
	"github.com/hupe1980/taskmesh/logging"
)

// Interface compliance (compile-time assertion)
var _ core.EventSink = (*Hub)(nil)

// subscription links one connection to one task's event stream. lastSent
// tracks the highest sequence delivered on this subscription; both backlog
// replay and live fan-out go through deliver, so an event can never be sent
// twice or out of order even when replay and live publishing race.
type subscription struct {
	mu       sync.Mutex
	conn     *Conn
	lastSent int64
}

// deliver forwards the event unless it was already covered by replay or an
// earlier publish.
func (s *subscription) deliver(ev core.TaskEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deliverLocked(ev)
}

func (s *subscription) deliverLocked(ev core.TaskEvent) {
	if ev.Sequence <= s.lastSent {
		return
	}
	s.lastSent = ev.Sequence
	evCopy := ev
	s.conn.enqueue(ServerMessage{Type: MsgEvent, TaskID: ev.TaskID, Event: &evCopy})
}

// Hub is the subscription registry and live fan-out path. It implements
// core.EventSink so the queue and worker can publish through it directly.
type Hub struct {
	mu     sync.RWMutex
	byTask map[string]map[*Conn]*subscription
	logger logging.Logger
}

// NewHub creates an empty hub.
func NewHub(logger logging.Logger) *Hub {
	if logger == nil {
		logger = logging.NoOpLogger{}
	}
	return &Hub{
		byTask: make(map[string]map[*Conn]*subscription),
		logger: logger,
	}
}

// Publish fans the event out to every subscription of its task. Called by the
// queue and worker after the event has been persisted.
func (h *Hub) Publish(ev core.TaskEvent) {
	h.mu.RLock()
	subs := make([]*subscription, 0, len(h.byTask[ev.TaskID]))
	for _, sub := range h.byTask[ev.TaskID] {
		subs = append(subs, sub)
	}
	h.mu.RUnlock()

	for _, sub := range subs {
		sub.deliver(ev)
	}
}

// subscribe registers conn for taskID. The returned subscription is locked:
// live events block on it until the caller finishes backlog replay and calls
// release. Re-subscribing replaces the previous subscription.
func (h *Hub) subscribe(conn *Conn, taskID string, lastKnown int64) (sub *subscription, release func()) {
	sub = &subscription{conn: conn, lastSent: lastKnown}
	sub.mu.Lock()

	h.mu.Lock()
	if h.byTask[taskID] == nil {
		h.byTask[taskID] = make(map[*Conn]*subscription)
	}
	h.byTask[taskID][conn] = sub
	h.mu.Unlock()

	return sub, sub.mu.Unlock
}

// unsubscribe removes conn's subscription for taskID.
func (h *Hub) unsubscribe(conn *Conn, taskID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if subs, ok := h.byTask[taskID]; ok {
		delete(subs, conn)
		if len(subs) == 0 {
			delete(h.byTask, taskID)
		}
	}
}

// drop removes every subscription held by conn. Called when the connection
// closes.
func (h *Hub) drop(conn *Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for taskID, subs := range h.byTask {
		delete(subs, conn)
		if len(subs) == 0 {
			delete(h.byTask, taskID)
		}
	}
}

// subscriberCount reports the number of active subscriptions for taskID.
func (h *Hub) subscriberCount(taskID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.byTask[taskID])
}
