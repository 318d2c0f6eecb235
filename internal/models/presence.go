package models

// PresenceUser is one entry in the app-wide online-user list.
type PresenceUser struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}
