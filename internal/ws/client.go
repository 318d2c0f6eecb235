// Package ws bridges WebSocket connections to the realtime core: it upgrades
// HTTP requests, runs the per-connection read/write pumps, and adapts the
// outbound side of a connection to the core's Sender interface.
package ws

import (
	"encoding/json"
	"errors"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/parley-chat/parley/internal/realtime"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second
	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second
	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = 54 * time.Second
	// Maximum inbound message size in bytes.
	maxMessageSize = 4096
	// Outbound buffer per connection. A connection that falls this far behind
	// is treated as stale and its deliveries are skipped.
	sendBufferSize = 256
)

var errSendBufferFull = errors.New("ws: send buffer full")
var errConnClosed = errors.New("ws: connection closed")

// envelope is the outbound wire format.
type envelope struct {
	Type    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
}

// clientEvent is the inbound wire format.
type clientEvent struct {
	Type     string `json:"type"`
	RoomID   string `json:"roomId,omitempty"`
	IsTyping bool   `json:"isTyping,omitempty"`
}

// Inbound event types.
const (
	eventJoinRoom  = "joinRoom"
	eventLeaveRoom = "leaveRoom"
	eventTyping    = "typing"
)

// Client is one live WebSocket connection. It implements realtime.Sender:
// Send enqueues without blocking and reports a full or closed buffer as an
// error, which the core logs and skips.
type Client struct {
	id     string
	conn   *websocket.Conn
	ctrl   *realtime.Controller
	send   chan []byte
	closed atomic.Bool
	log    zerolog.Logger
}

func newClient(id string, conn *websocket.Conn, ctrl *realtime.Controller, logger zerolog.Logger) *Client {
	return &Client{
		id:   id,
		conn: conn,
		ctrl: ctrl,
		send: make(chan []byte, sendBufferSize),
		log:  logger.With().Str("connection_id", id).Logger(),
	}
}

// Send marshals an event envelope and enqueues it for the write pump. It
// never blocks.
func (c *Client) Send(event string, payload any) error {
	if c.closed.Load() {
		return errConnClosed
	}
	data, err := json.Marshal(envelope{Type: event, Payload: payload})
	if err != nil {
		return err
	}
	select {
	case c.send <- data:
		return nil
	default:
		return errSendBufferFull
	}
}

// readPump reads client events and dispatches them to the lifecycle
// controller. It runs in the connection's handler goroutine and drives
// teardown: when it returns, the connection is disconnected from the core and
// the write pump is released.
func (c *Client) readPump() {
	defer func() {
		c.ctrl.Disconnect(c.id)
		c.closed.Store(true)
		close(c.send)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.log.Warn().Err(err).Msg("unexpected close")
			} else {
				c.log.Debug().Err(err).Msg("connection closed")
			}
			return
		}
		c.dispatch(raw)
	}
}

// dispatch routes one inbound event. Malformed or unknown events are dropped;
// a misbehaving client cannot error the relay.
func (c *Client) dispatch(raw []byte) {
	var ev clientEvent
	if err := json.Unmarshal(raw, &ev); err != nil {
		c.log.Debug().Err(err).Msg("dropping malformed event")
		return
	}

	switch ev.Type {
	case eventJoinRoom:
		if ev.RoomID == "" {
			return
		}
		c.ctrl.JoinRoom(c.id, ev.RoomID)
	case eventLeaveRoom:
		if ev.RoomID == "" {
			return
		}
		c.ctrl.LeaveRoom(c.id, ev.RoomID)
	case eventTyping:
		if ev.RoomID == "" {
			return
		}
		c.ctrl.Typing(c.id, ev.RoomID, ev.IsTyping)
	default:
		c.log.Debug().Str("type", ev.Type).Msg("dropping unknown event type")
	}
}

// writePump drains the send buffer to the peer and keeps the connection alive
// with periodic pings.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case data, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				c.log.Debug().Err(err).Msg("write failed")
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
