package models

import "time"

// Message is a chat message exchanged inside a collaboration. Messages are
// append-only; after creation only the Read flag changes, and only when a
// participant other than the sender reads the conversation. Messages are
// cascade-deleted with their collaboration.
type Message struct {
	ID              string    `json:"id"`
	CollaborationID string    `json:"collaboration_id"`
	SenderID        string    `json:"sender_id"`
	Text            string    `json:"text"`
	Read            bool      `json:"read"`
	Timestamp       time.Time `json:"timestamp"`
}
