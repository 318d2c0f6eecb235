package models

// Attachment describes a file attached to a message. The file itself lives in
// external storage; only the reference travels with the message.
type Attachment struct {
	Name string `json:"name"`
	URL  string `json:"url"`
	Size int64  `json:"size,omitempty"`
	Mime string `json:"mime,omitempty"`
}

// Message represents a chat message stored in Redis.
type Message struct {
	ID          string       `json:"id"` // ULID
	RoomID      string       `json:"room_id"`
	SenderName  string       `json:"sender_name"`
	Text        string       `json:"text"`
	Attachments []Attachment `json:"attachments,omitempty"`
	CreatedAt   int64        `json:"created_at"` // Unix ms
}
