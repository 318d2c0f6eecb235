package realtime

import (
	"github.com/rs/zerolog"

	"github.com/parley-chat/parley/internal/metrics"
	"github.com/parley-chat/parley/internal/models"
)

// MessageRelay fans one persisted message out to the connections currently
// subscribed to its room. The relay does not queue for offline connections and
// never retries: the canonical message order lives in the persistence layer,
// the relay only forwards what it was given, in the order it was given.
type MessageRelay struct {
	reg   *Registry
	rooms *RoomIndex
	log   zerolog.Logger
}

// NewMessageRelay creates a relay over the given registry and membership index.
func NewMessageRelay(reg *Registry, rooms *RoomIndex, logger zerolog.Logger) *MessageRelay {
	return &MessageRelay{
		reg:   reg,
		rooms: rooms,
		log:   logger.With().Str("component", "relay").Logger(),
	}
}

// Relay delivers a message:new event to every member of the room, the sender's
// own connection included; clients tell own from others' by sender identity.
// Delivery to a stale member is logged at warn and skipped, and never aborts
// delivery to the remaining members.
func (mr *MessageRelay) Relay(roomID string, msg *models.Message) {
	for _, connID := range mr.rooms.MembersOf(roomID) {
		sender, ok := mr.reg.Sender(connID)
		if !ok {
			// Membership outlived the registry entry: disconnect in flight.
			mr.log.Debug().Str("connection_id", connID).Str("room_id", roomID).Msg("skipping unregistered member")
			continue
		}
		if err := sender.Send(EventMessage, msg); err != nil {
			metrics.DeliveryFailures.Inc()
			mr.log.Warn().Err(err).Str("connection_id", connID).Str("room_id", roomID).Msg("message delivery failed")
		}
	}
	metrics.MessagesRelayed.Inc()
}

// TypingRelay forwards transient typing-state changes to the other members of
// a room. No state is retained server-side: if a connection drops without a
// final isTyping:false, no clearing event is emitted here; clients auto-expire
// stale indicators on their own.
type TypingRelay struct {
	reg   *Registry
	rooms *RoomIndex
	log   zerolog.Logger
}

// NewTypingRelay creates a typing relay over the given registry and index.
func NewTypingRelay(reg *Registry, rooms *RoomIndex, logger zerolog.Logger) *TypingRelay {
	return &TypingRelay{
		reg:   reg,
		rooms: rooms,
		log:   logger.With().Str("component", "typing").Logger(),
	}
}

// Relay delivers a typing event to every member of the room except the
// originating connection.
func (tr *TypingRelay) Relay(roomID, connID string, isTyping bool) {
	payload := TypingPayload{UserID: connID, IsTyping: isTyping}
	for _, memberID := range tr.rooms.MembersOf(roomID) {
		if memberID == connID {
			continue
		}
		sender, ok := tr.reg.Sender(memberID)
		if !ok {
			continue
		}
		if err := sender.Send(EventTyping, payload); err != nil {
			metrics.DeliveryFailures.Inc()
			tr.log.Warn().Err(err).Str("connection_id", memberID).Str("room_id", roomID).Msg("typing delivery failed")
		}
	}
	metrics.TypingEvents.Inc()
}
