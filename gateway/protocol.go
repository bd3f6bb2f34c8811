package gateway

import "github.com/hupe1980/taskmesh/core"

// Client to server message types.
const (
	MsgSubscribe   = "subscribe"
	MsgUnsubscribe = "unsubscribe"
	MsgInterrupt   = "interrupt"
	MsgPause       = "pause"
	MsgResume      = "resume"
	MsgAddMessage  = "add_message"
	MsgGetStatus   = "get_status"
	MsgGetEvents   = "get_events"
)

// Server to client message types.
const (
	MsgSubscribed   = "subscribed"
	MsgUnsubscribed = "unsubscribed"
	MsgEvent        = "event"
	MsgStatus       = "status"
	MsgEvents       = "events"
	MsgError        = "error"
	MsgAck          = "ack"
)

// ClientMessage is a decoded client request. Unused fields stay zero.
type ClientMessage struct {
	Type              string `json:"type"`
	TaskID            string `json:"task_id,omitempty"`
	LastKnownSequence int64  `json:"last_known_sequence,omitempty"`
	Content           string `json:"content,omitempty"`
}

// ServerMessage is an outbound frame. Exactly one payload field is set per
// message type.
type ServerMessage struct {
	Type   string `json:"type"`
	TaskID string `json:"task_id,omitempty"`

	// event
	Event *core.TaskEvent `json:"event,omitempty"`

	// events (backlog replay for get_events)
	Events []*core.TaskEvent `json:"events,omitempty"`

	// status
	WorkerStatus string          `json:"worker_status,omitempty"`
	TaskStatus   core.TaskStatus `json:"task_status,omitempty"`
	QueueLength  int             `json:"queue_length,omitempty"`

	// error
	Error string `json:"error,omitempty"`
}

func errorMessage(taskID, msg string) ServerMessage {
	return ServerMessage{Type: MsgError, TaskID: taskID, Error: msg}
}

func ackMessage(taskID string) ServerMessage {
	return ServerMessage{Type: MsgAck, TaskID: taskID}
}
