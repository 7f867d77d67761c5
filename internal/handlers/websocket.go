package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"filmcrew-backend/internal/middleware"
	"filmcrew-backend/internal/services"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// WebSocketHandler handles WebSocket connections
type WebSocketHandler struct {
	hub         *services.WSHub
	userService *services.UserService
	chatService *services.ChatService
}

// NewWebSocketHandler creates a new WebSocket handler
func NewWebSocketHandler(hub *services.WSHub, userService *services.UserService, chatService *services.ChatService) *WebSocketHandler {
	return &WebSocketHandler{
		hub:         hub,
		userService: userService,
		chatService: chatService,
	}
}

// HandleWebSocket handles WebSocket connections
func (h *WebSocketHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	// Get token from query parameter
	token := r.URL.Query().Get("token")
	userID, err := middleware.ValidateWebSocketToken(token, h.userService)
	if err != nil {
		respondError(w, "invalid token", http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("Failed to upgrade WebSocket connection")
		return
	}
	defer conn.Close()

	h.hub.Register(userID, conn)
	defer h.hub.Unregister(userID)

	log.Info().Str("user_id", userID).Msg("WebSocket connection established")

	ctx := r.Context()
	for {
		_, messageBytes, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Error().Err(err).Str("user_id", userID).Msg("WebSocket error")
			}
			break
		}

		var event services.Event
		if err := json.Unmarshal(messageBytes, &event); err != nil {
			log.Error().Err(err).Str("user_id", userID).Msg("Failed to parse WebSocket event")
			h.sendError(conn, "Invalid event format")
			continue
		}

		if err := h.handleEvent(ctx, userID, &event); err != nil {
			log.Error().Err(err).Str("user_id", userID).Str("type", event.Type).Msg("Failed to handle event")
			h.sendError(conn, err.Error())
		}
	}
}

// handleEvent processes incoming WebSocket events
func (h *WebSocketHandler) handleEvent(ctx context.Context, userID string, event *services.Event) error {
	switch event.Type {
	case services.EventTypeTypingStart:
		if event.ConversationID == "" {
			return h.sendErrorToUser(userID, "conversation_id is required")
		}
		return h.chatService.Typing(ctx, userID, event.ConversationID)
	case services.EventTypePing:
		return h.hub.SendToUser(userID, &services.Event{Type: services.EventTypePong})
	default:
		return h.sendErrorToUser(userID, "Unknown event type")
	}
}

// sendError sends an error event to the WebSocket connection
func (h *WebSocketHandler) sendError(conn *websocket.Conn, message string) {
	event := services.Event{
		Type:    services.EventTypeError,
		Message: message,
	}
	data, _ := json.Marshal(event)
	conn.WriteMessage(websocket.TextMessage, data)
}

// sendErrorToUser sends an error event to a user
func (h *WebSocketHandler) sendErrorToUser(userID, message string) error {
	return h.hub.SendToUser(userID, &services.Event{
		Type:    services.EventTypeError,
		Message: message,
	})
}
