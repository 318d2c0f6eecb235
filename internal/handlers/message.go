package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/parley-chat/parley/internal/metrics"
	"github.com/parley-chat/parley/internal/models"
	"github.com/parley-chat/parley/internal/realtime"
)

const maxMessageTextBytes = 4096

// MessageResponse represents a message in API responses.
type MessageResponse struct {
	ID          string              `json:"id"`
	From        string              `json:"from"`
	Text        string              `json:"text"`
	Attachments []models.Attachment `json:"attachments,omitempty"`
	Timestamp   int64               `json:"ts"`
}

// RoomMessagesResponse represents the get room messages response.
type RoomMessagesResponse struct {
	Room     BasicRoom         `json:"room"`
	Messages []MessageResponse `json:"messages"`
	HasMore  bool              `json:"has_more"`
}

// BasicRoom is the minimal room envelope in message responses.
type BasicRoom struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// PostMessageRequest represents the post message request.
type PostMessageRequest struct {
	Name        string              `json:"name"`
	Text        string              `json:"text"`
	Attachments []models.Attachment `json:"attachments,omitempty"`
}

// PostMessageResponse represents the post message response.
type PostMessageResponse struct {
	ID        string `json:"id"`
	Timestamp int64  `json:"ts"`
}

// GetRoomMessages handles fetching recent messages from a room.
func (h *Handler) GetRoomMessages(w http.ResponseWriter, r *http.Request) {
	roomIDStr := chi.URLParam(r, "id")

	roomID, err := uuid.Parse(roomIDStr)
	if err != nil {
		h.Error(w, http.StatusBadRequest, "invalid room ID format")
		return
	}

	room := h.authorizeRoom(r.Context(), w, r, roomID)
	if room == nil {
		return
	}

	// Parse query params
	limitStr := r.URL.Query().Get("limit")
	beforeStr := r.URL.Query().Get("before")

	limit := 50
	if limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 {
			limit = l
		}
	}
	if limit > 200 {
		limit = 200
	}

	var before int64 = 0
	if beforeStr != "" {
		if b, err := strconv.ParseInt(beforeStr, 10, 64); err == nil {
			before = b
		}
	}

	// Fetch messages from Redis (+1 for has_more check)
	messages, err := h.redis.GetRoomMessages(r.Context(), roomIDStr, limit+1, before)
	if err != nil {
		h.Error(w, http.StatusInternalServerError, "failed to fetch messages")
		return
	}

	hasMore := len(messages) > limit
	if hasMore {
		messages = messages[:limit]
	}

	msgResponses := make([]MessageResponse, len(messages))
	for i, msg := range messages {
		msgResponses[i] = MessageResponse{
			ID:          msg.ID,
			From:        msg.SenderName,
			Text:        msg.Text,
			Attachments: msg.Attachments,
			Timestamp:   msg.CreatedAt,
		}
	}

	h.JSON(w, http.StatusOK, RoomMessagesResponse{
		Room: BasicRoom{
			ID:   room.ID.String(),
			Name: room.Name,
		},
		Messages: msgResponses,
		HasMore:  hasMore,
	})
}

// PostMessage handles posting a message to a room. The stored message is
// also fanned out to the room's connected WebSocket clients.
func (h *Handler) PostMessage(w http.ResponseWriter, r *http.Request) {
	roomIDStr := chi.URLParam(r, "id")

	roomID, err := uuid.Parse(roomIDStr)
	if err != nil {
		h.Error(w, http.StatusBadRequest, "invalid room ID format")
		return
	}

	room := h.authorizeRoom(r.Context(), w, r, roomID)
	if room == nil {
		return
	}

	var req PostMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	// Validate text
	if req.Text == "" {
		h.Error(w, http.StatusBadRequest, "text is required")
		return
	}
	if len(req.Text) > maxMessageTextBytes {
		h.Error(w, http.StatusUnprocessableEntity, "text too long (max 4096 bytes)")
		return
	}

	sender := realtime.SanitizeDisplayName(req.Name)
	if sender == "" {
		sender = realtime.DefaultDisplayName
	}

	msg := &models.Message{
		RoomID:      roomIDStr,
		SenderName:  sender,
		Text:        req.Text,
		Attachments: req.Attachments,
	}

	// Store in Redis (generates ID and timestamp)
	if err := h.redis.AddMessage(r.Context(), msg); err != nil {
		h.Error(w, http.StatusInternalServerError, "failed to store message")
		return
	}

	// Update room activity
	if err := h.db.IncrementMessageCount(r.Context(), roomID); err != nil {
		// Log but don't fail the request
		_ = err
	}

	roomType := "public"
	if room.IsPrivate {
		roomType = "private"
	}
	metrics.MessagesPosted.WithLabelValues(roomType).Inc()

	// Fan out to connected clients in the room
	h.ctrl.Relay(roomIDStr, msg)

	h.JSON(w, http.StatusCreated, PostMessageResponse{
		ID:        msg.ID,
		Timestamp: msg.CreatedAt,
	})
}
