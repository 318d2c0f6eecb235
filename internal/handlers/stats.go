package handlers

import (
	"net/http"
	"time"
)

// RoomStats represents stats for a single room.
type RoomStats struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	MessageCount int64  `json:"message_count"`
}

// StatsResponse represents the response from the stats endpoint.
type StatsResponse struct {
	OnlineUsers   int         `json:"online_users"`
	TotalRooms    int64       `json:"total_rooms"`
	TotalMessages int64       `json:"total_messages"`
	LastActivity  string      `json:"last_activity"`
	TopRooms      []RoomStats `json:"top_rooms"`
}

// Stats returns platform statistics for the landing page.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	totalRooms, err := h.db.CountPublicRooms(ctx)
	if err != nil {
		h.Error(w, http.StatusInternalServerError, "failed to count rooms")
		return
	}

	totalMessages, err := h.db.SumMessageCount(ctx)
	if err != nil {
		h.Error(w, http.StatusInternalServerError, "failed to sum messages")
		return
	}

	// Get most recent activity
	lastActivityTime, err := h.db.GetMostRecentActivity(ctx)
	if err != nil {
		h.Error(w, http.StatusInternalServerError, "failed to get last activity")
		return
	}

	lastActivity := "no activity yet"
	if lastActivityTime != nil {
		lastActivity = formatTimeAgo(*lastActivityTime)
	}

	// Get top rooms
	topRooms, err := h.db.GetTopActiveRooms(ctx, 5)
	if err != nil {
		h.Error(w, http.StatusInternalServerError, "failed to get top rooms")
		return
	}

	top := make([]RoomStats, 0, len(topRooms))
	for _, room := range topRooms {
		top = append(top, RoomStats{
			ID:           room.ID.String(),
			Name:         room.Name,
			MessageCount: room.MessageCount,
		})
	}

	h.JSON(w, http.StatusOK, StatsResponse{
		OnlineUsers:   h.ctrl.OnlineCount(),
		TotalRooms:    totalRooms,
		TotalMessages: totalMessages,
		LastActivity:  lastActivity,
		TopRooms:      top,
	})
}

// formatTimeAgo formats a time as a human-readable "X ago" string.
func formatTimeAgo(t time.Time) string {
	diff := time.Since(t)

	switch {
	case diff < time.Minute:
		return "just now"
	case diff < time.Hour:
		mins := int(diff.Minutes())
		if mins == 1 {
			return "1 minute ago"
		}
		return formatInt(mins) + " minutes ago"
	case diff < 24*time.Hour:
		hours := int(diff.Hours())
		if hours == 1 {
			return "1 hour ago"
		}
		return formatInt(hours) + " hours ago"
	default:
		days := int(diff.Hours() / 24)
		if days == 1 {
			return "1 day ago"
		}
		return formatInt(days) + " days ago"
	}
}

// formatInt converts an int to string without importing strconv.
func formatInt(n int) string {
	if n == 0 {
		return "0"
	}
	var digits []byte
	for n > 0 {
		digits = append([]byte{byte('0' + n%10)}, digits...)
		n /= 10
	}
	return string(digits)
}
