package gateway

import (
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"

	"github.com/hupe1980/taskmesh/logging"
)

const (
	// writeWait is the deadline for a single outbound frame.
	writeWait = 10 * time.Second
	// pongWait is how long a connection may stay silent before it is
	// force-closed as dead.
	pongWait = 60 * time.Second
	// pingPeriod must be shorter than pongWait.
	pingPeriod = (pongWait * 9) / 10
	// maxMessageSize bounds inbound frames.
	maxMessageSize = 64 * 1024
	// sendBufferSize bounds the per-connection outbound queue. A consumer
	// that falls this far behind is disconnected rather than blocking the
	// publishers.
	sendBufferSize = 256
)

// Conn wraps one WebSocket connection with a buffered outbound queue and a
// heartbeat. All writes to the socket happen on the write pump goroutine.
type Conn struct {
	ws     *websocket.Conn
	send   chan ServerMessage
	done   chan struct{}
	logger logging.Logger
}

func newConn(ws *websocket.Conn, logger logging.Logger) *Conn {
	return &Conn{
		ws:     ws,
		send:   make(chan ServerMessage, sendBufferSize),
		done:   make(chan struct{}),
		logger: logger,
	}
}

// enqueue queues an outbound message. Slow consumers whose buffer is full are
// closed; dropping frames silently would break the exactly-once replay
// guarantee.
func (c *Conn) enqueue(msg ServerMessage) {
	select {
	case <-c.done:
	case c.send <- msg:
	default:
		c.logger.Warn("closing slow websocket consumer")
		c.close()
	}
}

func (c *Conn) close() {
	select {
	case <-c.done:
	default:
		close(c.done)
	}
}

// writePump serializes all socket writes and drives the heartbeat. Runs as a
// goroutine per connection and exits when the connection is closed.
func (c *Conn) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.ws.Close()
	}()

	for {
		select {
		case <-c.done:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.ws.WriteMessage(websocket.CloseMessage, []byte{})
			return
		case msg := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			data, err := json.Marshal(msg)
			if err != nil {
				c.logger.Error("message marshal failed", "error", err)
				continue
			}
			if err := c.ws.WriteMessage(websocket.TextMessage, data); err != nil {
				c.close()
				return
			}
		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.close()
				return
			}
		}
	}
}

// readPump decodes inbound frames and hands them to handle. Runs on the
// request goroutine and returns when the client disconnects or times out.
func (c *Conn) readPump(handle func(msg ClientMessage)) {
	defer c.close()

	c.ws.SetReadLimit(maxMessageSize)
	_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Warn("websocket read failed", "error", err)
			}
			return
		}
		var msg ClientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			c.enqueue(errorMessage("", "malformed message: "+err.Error()))
			continue
		}
		handle(msg)
	}
}
