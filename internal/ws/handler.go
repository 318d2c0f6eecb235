package ws

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/parley-chat/parley/internal/realtime"
)

// Handler upgrades HTTP requests to WebSocket connections and hands them to
// the lifecycle controller.
type Handler struct {
	ctrl     *realtime.Controller
	upgrader websocket.Upgrader
	log      zerolog.Logger
}

// NewHandler creates a WebSocket handler. With an empty origin list any
// origin is accepted (development); otherwise the Origin header must match.
func NewHandler(ctrl *realtime.Controller, allowedOrigins []string, logger zerolog.Logger) *Handler {
	h := &Handler{
		ctrl: ctrl,
		log:  logger.With().Str("component", "ws").Logger(),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, allowed := range allowedOrigins {
				if origin == allowed {
					return true
				}
			}
			return false
		},
	}
	return h
}

// ServeHTTP handles GET /ws?name=Alice. The display name is cleaned up the
// same way message sender names are; no credentials are checked here.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the error response.
		h.log.Debug().Err(err).Msg("upgrade failed")
		return
	}

	connID := uuid.NewString()
	client := newClient(connID, conn, h.ctrl, h.log)

	name := realtime.SanitizeDisplayName(r.URL.Query().Get("name"))
	h.ctrl.Connect(connID, name, client)

	go client.writePump()
	client.readPump()
}
