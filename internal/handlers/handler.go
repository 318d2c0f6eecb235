package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/parley-chat/parley/internal/models"
	"github.com/parley-chat/parley/internal/realtime"
	"github.com/parley-chat/parley/internal/store"
)

// RoomKeyHeader carries the invite key for private room access.
const RoomKeyHeader = "X-Parley-Room-Key"

// Handler contains shared dependencies for all HTTP handlers.
type Handler struct {
	db    store.DataStore
	redis *store.RedisStore
	ctrl  *realtime.Controller
}

// NewHandler creates a new Handler with the given stores and controller.
func NewHandler(db store.DataStore, redis *store.RedisStore, ctrl *realtime.Controller) *Handler {
	return &Handler{db: db, redis: redis, ctrl: ctrl}
}

// JSON sends a JSON response with the given status code.
func (h *Handler) JSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// Error sends a JSON error response with the given status code.
func (h *Handler) Error(w http.ResponseWriter, status int, message string) {
	h.JSON(w, status, map[string]string{"error": message})
}

// authorizeRoom checks that the request may access the room. For private rooms
// the invite key header must match the stored bcrypt hash. Returns the room on
// success; on failure the error response has already been written.
func (h *Handler) authorizeRoom(ctx context.Context, w http.ResponseWriter, r *http.Request, roomID uuid.UUID) *models.Room {
	room, err := h.db.GetRoom(ctx, roomID)
	if err != nil {
		h.Error(w, http.StatusInternalServerError, "database error")
		return nil
	}
	if room == nil {
		h.Error(w, http.StatusNotFound, "room not found")
		return nil
	}

	if room.IsPrivate {
		providedKey := r.Header.Get(RoomKeyHeader)
		if providedKey == "" {
			h.Error(w, http.StatusForbidden, "room key required for private rooms")
			return nil
		}

		keyHash, err := h.db.GetRoomKeyHash(ctx, roomID)
		if err != nil {
			h.Error(w, http.StatusInternalServerError, "database error")
			return nil
		}

		if err := bcrypt.CompareHashAndPassword([]byte(keyHash), []byte(providedKey)); err != nil {
			h.Error(w, http.StatusForbidden, "invalid room key")
			return nil
		}
	}

	return room
}
