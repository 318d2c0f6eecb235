package realtime

import (
	"sync"

	"github.com/rs/zerolog"

	"github.com/parley-chat/parley/internal/metrics"
	"github.com/parley-chat/parley/internal/models"
)

// Controller orchestrates the lifecycle of every connection. It is the only
// component that mutates the registry and the membership index; transport
// handlers and the HTTP layer call into it and nothing else.
//
// A connection moves Connecting -> Connected -> Disconnected. Room memberships
// accumulate while Connected. Disconnected is absorbing: events arriving for
// an unregistered connection id are dropped silently, because a race between
// transport teardown and in-flight events is expected and harmless.
type Controller struct {
	mu       sync.Mutex
	reg      *Registry
	rooms    *RoomIndex
	presence *Presence
	relay    *MessageRelay
	typing   *TypingRelay
	log      zerolog.Logger
}

// NewController wires up the registry, membership index, presence broadcaster,
// and relays behind a single serialized mutation path.
func NewController(logger zerolog.Logger) *Controller {
	reg := NewRegistry()
	rooms := NewRoomIndex()
	return &Controller{
		reg:      reg,
		rooms:    rooms,
		presence: NewPresence(reg, logger),
		relay:    NewMessageRelay(reg, rooms, logger),
		typing:   NewTypingRelay(reg, rooms, logger),
		log:      logger.With().Str("component", "lifecycle").Logger(),
	}
}

// Connect registers a new connection, auto-joins its private per-connection
// room, and rebroadcasts presence. An empty display name becomes "Guest".
func (c *Controller) Connect(connID, displayName string, sender Sender) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.reg.Register(connID, displayName, sender)
	// Private per-connection room for future direct addressing. No consumer
	// yet; the membership is kept for interface compatibility.
	c.rooms.Join(connID, connID)
	metrics.ConnectionsActive.Inc()
	c.log.Info().Str("connection_id", connID).Str("name", displayName).Msg("connected")

	c.presence.Broadcast()
}

// JoinRoom subscribes a connection to a room. Joins do not trigger a presence
// rebroadcast: presence is connection-scoped, not room-scoped. Events for
// unknown connections are dropped.
func (c *Controller) JoinRoom(connID, roomID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.reg.Has(connID) {
		c.log.Debug().Str("connection_id", connID).Str("room_id", roomID).Msg("dropping join for unregistered connection")
		return
	}
	c.rooms.Join(roomID, connID)
	c.log.Debug().Str("connection_id", connID).Str("room_id", roomID).Msg("joined room")
}

// LeaveRoom removes one room subscription. Leaving a room the connection is
// not in is a no-op.
func (c *Controller) LeaveRoom(connID, roomID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.reg.Has(connID) {
		c.log.Debug().Str("connection_id", connID).Str("room_id", roomID).Msg("dropping leave for unregistered connection")
		return
	}
	c.rooms.Leave(roomID, connID)
}

// Typing forwards a typing-state change to the other members of the room.
// Events for unknown connections are dropped.
func (c *Controller) Typing(connID, roomID string, isTyping bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.reg.Has(connID) {
		c.log.Debug().Str("connection_id", connID).Str("room_id", roomID).Msg("dropping typing for unregistered connection")
		return
	}
	c.typing.Relay(roomID, connID, isTyping)
}

// Disconnect tears a connection down: memberships first, then the registry
// entry, then the presence rebroadcast. The order is mandatory: presence is
// recomputed strictly after removal, so the disconnecting connection never
// appears in its own final broadcast. Disconnecting twice is a no-op.
func (c *Controller) Disconnect(connID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.reg.Has(connID) {
		c.log.Debug().Str("connection_id", connID).Msg("dropping disconnect for unregistered connection")
		return
	}

	left, err := c.rooms.LeaveAll(connID)
	if err != nil {
		// Invariant violation, not churn. Keep tearing down regardless.
		c.log.Error().Err(err).Str("connection_id", connID).Msg("membership index inconsistent")
	}
	c.reg.Unregister(connID)
	metrics.ConnectionsActive.Dec()
	c.log.Info().Str("connection_id", connID).Int("rooms_left", len(left)).Msg("disconnected")

	c.presence.Broadcast()
}

// Relay fans a persisted message out to the current members of its room.
// Invocations are serialized, so per-room delivery order matches call order.
func (c *Controller) Relay(roomID string, msg *models.Message) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.relay.Relay(roomID, msg)
}

// Online returns the current presence snapshot.
func (c *Controller) Online() []models.PresenceUser {
	return c.reg.List()
}

// OnlineCount returns the number of live connections.
func (c *Controller) OnlineCount() int {
	return c.reg.Count()
}

// ActiveRoomCount returns the number of rooms with at least one subscriber.
func (c *Controller) ActiveRoomCount() int {
	return c.rooms.RoomCount()
}
