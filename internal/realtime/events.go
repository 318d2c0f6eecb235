package realtime

import (
	"errors"

	"github.com/parley-chat/parley/internal/models"
)

// Event names pushed to clients over the realtime channel.
const (
	EventPresence = "presence:list"
	EventMessage  = "message:new"
	EventTyping   = "typing"
)

// ErrInternalState marks a corrupted registry or membership index. Unlike the
// routine connect/disconnect churn (which is only ever logged), this class of
// error is a programming invariant violation and is not recoverable.
var ErrInternalState = errors.New("realtime: internal state corrupted")

// Sender delivers one event to a single connection. Implementations must not
// block: a connection that cannot accept the event returns an error and the
// caller decides whether to log and skip.
type Sender interface {
	Send(event string, payload any) error
}

// PresencePayload is the payload of a presence:list event.
type PresencePayload struct {
	Users []models.PresenceUser `json:"users"`
}

// TypingPayload is the payload of a typing event.
type TypingPayload struct {
	UserID   string `json:"userId"`
	IsTyping bool   `json:"isTyping"`
}
