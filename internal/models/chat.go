package models

import "time"

// MessageType tags how a message's content should be interpreted.
type MessageType string

const (
	MessageTypeText   MessageType = "text"
	MessageTypeSystem MessageType = "system"
	MessageTypeMedia  MessageType = "media"
)

// Conversation represents a direct or group chat.
// A non-group conversation always has exactly two participants.
type Conversation struct {
	ID             string     `json:"id"`
	IsGroup        bool       `json:"is_group"`
	IsCityGroup    bool       `json:"is_city_group"`
	CityID         *string    `json:"city_id,omitempty"`
	ParticipantIDs []string   `json:"participant_ids"`
	Name           *string    `json:"name,omitempty"`
	LastMessage    *string    `json:"last_message,omitempty"`
	LastMessageAt  *time.Time `json:"last_message_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

// HasParticipant reports whether userID is a member of the conversation.
func (c *Conversation) HasParticipant(userID string) bool {
	for _, id := range c.ParticipantIDs {
		if id == userID {
			return true
		}
	}
	return false
}

// PeerOf returns the other participant of a direct conversation.
func (c *Conversation) PeerOf(userID string) (string, bool) {
	if c.IsGroup || len(c.ParticipantIDs) != 2 {
		return "", false
	}
	for _, id := range c.ParticipantIDs {
		if id != userID {
			return id, true
		}
	}
	return "", false
}

// Message is a single chat message. Messages are append-only; they are
// never edited or deleted.
type Message struct {
	ID             string      `json:"id"`
	ConversationID string      `json:"conversation_id"`
	SenderID       string      `json:"sender_id"`
	Content        string      `json:"content"`
	Type           MessageType `json:"type"`
	SentAt         time.Time   `json:"sent_at"`
	Delivered      bool        `json:"delivered"`
}
