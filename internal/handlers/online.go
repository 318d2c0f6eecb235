package handlers

import (
	"net/http"

	"github.com/parley-chat/parley/internal/models"
)

// OnlineResponse represents the online users response.
type OnlineResponse struct {
	Users []models.PresenceUser `json:"users"`
	Total int                   `json:"total"`
}

// Online returns the current app-wide online user list.
func (h *Handler) Online(w http.ResponseWriter, r *http.Request) {
	users := h.ctrl.Online()

	h.JSON(w, http.StatusOK, OnlineResponse{
		Users: users,
		Total: len(users),
	})
}
