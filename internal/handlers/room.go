package handlers

import (
	"encoding/json"
	"net/http"
	"regexp"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/parley-chat/parley/internal/metrics"
)

// Room name validation: alphanumeric, hyphens, underscores, 1-50 chars
var roomNameRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]{1,50}$`)

// CreateRoomRequest represents the room creation request.
type CreateRoomRequest struct {
	Name      string `json:"name"`
	IsPrivate bool   `json:"is_private"`
	Key       string `json:"key,omitempty"` // Shared secret for private rooms
}

// CreateRoomResponse represents the room creation response.
type CreateRoomResponse struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	IsPrivate bool   `json:"is_private"`
}

// RoomInfo represents basic room information.
type RoomInfo struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	MessageCount int64  `json:"message_count"`
	LastActive   string `json:"last_active"`
}

// RoomListResponse represents the rooms list response.
type RoomListResponse struct {
	Rooms []RoomInfo `json:"rooms"`
	Total int        `json:"total"`
}

// CreateRoom handles room creation.
func (h *Handler) CreateRoom(w http.ResponseWriter, r *http.Request) {
	var req CreateRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	// Validate name
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		h.Error(w, http.StatusBadRequest, "name is required")
		return
	}
	if !roomNameRegex.MatchString(req.Name) {
		h.Error(w, http.StatusBadRequest, "name must be 1-50 characters, alphanumeric with hyphens and underscores only")
		return
	}

	var keyHash string
	if req.IsPrivate {
		// Validate key for private rooms
		if req.Key == "" || len(req.Key) < 16 {
			h.Error(w, http.StatusBadRequest, "private rooms require key (min 16 chars)")
			return
		}
		// Hash the key before storing
		hash, err := bcrypt.GenerateFromPassword([]byte(req.Key), bcrypt.DefaultCost)
		if err != nil {
			h.Error(w, http.StatusInternalServerError, "failed to hash room key")
			return
		}
		keyHash = string(hash)
	}

	room, err := h.db.CreateRoom(r.Context(), req.Name, req.IsPrivate, keyHash)
	if err != nil {
		h.Error(w, http.StatusInternalServerError, "failed to create room")
		return
	}

	metrics.RoomsCreated.Inc()

	h.JSON(w, http.StatusCreated, CreateRoomResponse{
		ID:        room.ID.String(),
		Name:      room.Name,
		IsPrivate: room.IsPrivate,
	})
}

// ListRooms handles listing public rooms.
func (h *Handler) ListRooms(w http.ResponseWriter, r *http.Request) {
	// Parse query params
	limitStr := r.URL.Query().Get("limit")
	offsetStr := r.URL.Query().Get("offset")

	limit := 20
	if limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 {
			limit = l
		}
	}
	if limit > 100 {
		limit = 100
	}

	offset := 0
	if offsetStr != "" {
		if o, err := strconv.Atoi(offsetStr); err == nil && o >= 0 {
			offset = o
		}
	}

	rooms, total, err := h.db.ListPublicRooms(r.Context(), limit, offset)
	if err != nil {
		h.Error(w, http.StatusInternalServerError, "database error")
		return
	}

	// Build response
	infos := make([]RoomInfo, len(rooms))
	for i, room := range rooms {
		infos[i] = RoomInfo{
			ID:           room.ID.String(),
			Name:         room.Name,
			MessageCount: room.MessageCount,
			LastActive:   room.LastActiveAt.Format("2006-01-02T15:04:05Z"),
		}
	}

	h.JSON(w, http.StatusOK, RoomListResponse{
		Rooms: infos,
		Total: total,
	})
}

// GetRoom handles fetching a single room by ID.
func (h *Handler) GetRoom(w http.ResponseWriter, r *http.Request) {
	roomIDStr := chi.URLParam(r, "id")

	roomID, err := uuid.Parse(roomIDStr)
	if err != nil {
		h.Error(w, http.StatusBadRequest, "invalid room ID format")
		return
	}

	room, err := h.db.GetRoom(r.Context(), roomID)
	if err != nil {
		h.Error(w, http.StatusInternalServerError, "database error")
		return
	}
	if room == nil {
		h.Error(w, http.StatusNotFound, "room not found")
		return
	}

	h.JSON(w, http.StatusOK, RoomInfo{
		ID:           room.ID.String(),
		Name:         room.Name,
		MessageCount: room.MessageCount,
		LastActive:   room.LastActiveAt.Format("2006-01-02T15:04:05Z"),
	})
}
