package services

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// Event types - client to server
const (
	EventTypeTypingStart = "typing.start"
	EventTypePing        = "ping"
)

// Event types - server to client
const (
	EventTypeMessageNew          = "message.new"
	EventTypeConversationUpdated = "conversation.updated"
	EventTypeTyping              = "typing"
	EventTypePong                = "pong"
	EventTypeError               = "error"
)

// Event is the envelope for all WebSocket messages.
type Event struct {
	Type           string          `json:"type"`
	ConversationID string          `json:"conversation_id,omitempty"`
	Payload        json.RawMessage `json:"payload,omitempty"`
	Timestamp      int64           `json:"ts,omitempty"`
	Message        string          `json:"message,omitempty"`
}

// NewEvent creates a server-to-client event with the current timestamp
func NewEvent(eventType, conversationID string, payload any) (*Event, error) {
	var data json.RawMessage
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal event payload: %w", err)
		}
		data = raw
	}
	return &Event{
		Type:           eventType,
		ConversationID: conversationID,
		Payload:        data,
		Timestamp:      time.Now().Unix(),
	}, nil
}

// TypingPayload identifies who is typing in a conversation.
type TypingPayload struct {
	UserID      string `json:"user_id"`
	DisplayName string `json:"display_name,omitempty"`
}

// WSHub manages WebSocket connections and the ephemeral typing registry.
// Typing signals are never persisted; they live here with a short TTL and
// expire on their own.
type WSHub struct {
	mu          sync.RWMutex
	connections map[string]*websocket.Conn

	typingMu  sync.Mutex
	typing    map[string]map[string]time.Time // conversation id -> user id -> expiry
	typingTTL time.Duration
	now       func() time.Time
}

// NewWSHub creates a new WebSocket hub. A nil now defaults to time.Now.
func NewWSHub(typingTTL time.Duration, now func() time.Time) *WSHub {
	if now == nil {
		now = time.Now
	}
	return &WSHub{
		connections: make(map[string]*websocket.Conn),
		typing:      make(map[string]map[string]time.Time),
		typingTTL:   typingTTL,
		now:         now,
	}
}

// Register registers a new WebSocket connection for a user, replacing any
// existing one
func (h *WSHub) Register(userID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if existing, ok := h.connections[userID]; ok {
		existing.Close()
	}

	h.connections[userID] = conn

	log.Info().Str("user_id", userID).Msg("WebSocket connection registered")
}

// Unregister removes a WebSocket connection for a user
func (h *WSHub) Unregister(userID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if conn, ok := h.connections[userID]; ok {
		conn.Close()
		delete(h.connections, userID)
		log.Info().Str("user_id", userID).Msg("WebSocket connection unregistered")
	}
}

// SendToUser sends an event to a specific user
func (h *WSHub) SendToUser(userID string, event *Event) error {
	h.mu.RLock()
	conn, ok := h.connections[userID]
	h.mu.RUnlock()

	if !ok {
		return fmt.Errorf("user %s is not connected", userID)
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		h.Unregister(userID)
		return fmt.Errorf("failed to send event: %w", err)
	}

	return nil
}

// BroadcastToParticipants sends an event to every listed participant,
// optionally skipping one (usually the sender). Offline participants are
// silently skipped.
func (h *WSHub) BroadcastToParticipants(participantIDs []string, event *Event, excludeID string) {
	for _, id := range participantIDs {
		if id == excludeID {
			continue
		}
		if !h.IsOnline(id) {
			continue
		}
		if err := h.SendToUser(id, event); err != nil {
			log.Warn().Err(err).Str("user_id", id).Msg("Failed to deliver event")
		}
	}
}

// IsOnline checks if a user has an active connection
func (h *WSHub) IsOnline(userID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.connections[userID]
	return ok
}

// SetTyping records that a user is typing in a conversation. The signal
// expires after the hub's TTL unless refreshed by another keystroke.
func (h *WSHub) SetTyping(conversationID, userID string) {
	h.typingMu.Lock()
	defer h.typingMu.Unlock()

	users, ok := h.typing[conversationID]
	if !ok {
		users = make(map[string]time.Time)
		h.typing[conversationID] = users
	}
	users[userID] = h.now().Add(h.typingTTL)
}

// TypingUsers returns the users currently typing in a conversation,
// excluding the given user. Expired entries are pruned on read.
func (h *WSHub) TypingUsers(conversationID, excludeID string) []string {
	h.typingMu.Lock()
	defer h.typingMu.Unlock()

	users, ok := h.typing[conversationID]
	if !ok {
		return nil
	}

	now := h.now()
	var active []string
	for id, expiry := range users {
		if now.After(expiry) {
			delete(users, id)
			continue
		}
		if id != excludeID {
			active = append(active, id)
		}
	}

	if len(users) == 0 {
		delete(h.typing, conversationID)
	}

	return active
}

// AnyoneTyping reports whether anyone other than the given user is typing
// in a conversation
func (h *WSHub) AnyoneTyping(conversationID, excludeID string) bool {
	return len(h.TypingUsers(conversationID, excludeID)) > 0
}
