package models

import (
	"time"

	"github.com/google/uuid"
)

// Room represents a chat room. Private rooms carry a bcrypt hash of their
// invite key; the key itself only ever appears in the invite link.
type Room struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	IsPrivate    bool      `json:"is_private"`
	CreatedAt    time.Time `json:"created_at"`
	LastActiveAt time.Time `json:"last_active_at"`
	MessageCount int64     `json:"message_count"`
}
