package handlers

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"

	"filmcrew-backend/internal/middleware"
	"filmcrew-backend/internal/models"
	"filmcrew-backend/internal/services"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const maxAttachmentSize = 10 << 20 // 10 MiB

// ChatHandler handles conversation and message HTTP requests
type ChatHandler struct {
	chatService *services.ChatService
	storage     services.ObjectStorage
}

// NewChatHandler creates a new chat handler
func NewChatHandler(chatService *services.ChatService, storage services.ObjectStorage) *ChatHandler {
	return &ChatHandler{
		chatService: chatService,
		storage:     storage,
	}
}

// ListConversations handles GET /api/v1/conversations
func (h *ChatHandler) ListConversations(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	entries, err := h.chatService.ListConversations(ctx, userID)
	if err != nil {
		log.Error().Err(err).Str("user_id", userID).Msg("Failed to list conversations")
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{"conversations": entries})
}

// StartDirectRequest represents the request body for starting a direct chat
type StartDirectRequest struct {
	UserID string `json:"user_id"`
}

// StartDirect handles POST /api/v1/conversations/direct
func (h *ChatHandler) StartDirect(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	var req StartDirectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.UserID == "" {
		respondError(w, "user_id is required", http.StatusBadRequest)
		return
	}

	conv, err := h.chatService.StartDirect(ctx, userID, req.UserID)
	if err != nil {
		log.Error().Err(err).Str("user_id", userID).Str("other_id", req.UserID).Msg("Failed to start direct conversation")
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, conv)
}

// JoinCityRequest represents the request body for joining a city group
type JoinCityRequest struct {
	CityID string `json:"city_id"`
}

// JoinCityGroup handles POST /api/v1/conversations/city
func (h *ChatHandler) JoinCityGroup(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	var req JoinCityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.CityID == "" {
		respondError(w, "city_id is required", http.StatusBadRequest)
		return
	}

	conv, err := h.chatService.JoinCityGroup(ctx, userID, req.CityID)
	if err != nil {
		log.Error().Err(err).Str("user_id", userID).Str("city_id", req.CityID).Msg("Failed to join city group")
		respondServiceError(w, err)
		return
	}

	log.Info().Str("user_id", userID).Str("conversation_id", conv.ID).Msg("Joined city group")

	respondJSON(w, http.StatusOK, conv)
}

// GetConversation handles GET /api/v1/conversations/{conversation_id}
func (h *ChatHandler) GetConversation(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)
	convID := chi.URLParam(r, "conversation_id")

	conv, err := h.chatService.GetConversation(ctx, userID, convID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, conv)
}

// History handles GET /api/v1/conversations/{conversation_id}/messages
func (h *ChatHandler) History(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)
	convID := chi.URLParam(r, "conversation_id")

	history, err := h.chatService.History(ctx, userID, convID)
	if err != nil {
		log.Error().Err(err).Str("user_id", userID).Str("conversation_id", convID).Msg("Failed to load history")
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, history)
}

// SendMessageRequest represents the request body for sending a message.
// The client supplies the message ID so a retried send is deduplicated.
type SendMessageRequest struct {
	ID      string             `json:"id,omitempty"`
	Content string             `json:"content"`
	Type    models.MessageType `json:"type,omitempty"`
}

// SendMessage handles POST /api/v1/conversations/{conversation_id}/messages
func (h *ChatHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)
	convID := chi.URLParam(r, "conversation_id")

	var req SendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Type == "" {
		req.Type = models.MessageTypeText
	}

	msg, err := h.chatService.SendMessage(ctx, userID, convID, req.ID, req.Content, req.Type)
	if err != nil {
		log.Error().Err(err).Str("user_id", userID).Str("conversation_id", convID).Msg("Failed to send message")
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, msg)
}

// SendAttachment handles POST /api/v1/conversations/{conversation_id}/attachments.
// Images are uploaded to storage and referenced by an image: content
// string; other files are recorded as a filename marker message.
func (h *ChatHandler) SendAttachment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)
	convID := chi.URLParam(r, "conversation_id")

	if err := r.ParseMultipartForm(maxAttachmentSize); err != nil {
		respondError(w, "Invalid multipart body", http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		respondError(w, "file is required", http.StatusBadRequest)
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")

	var content string
	msgType := models.MessageTypeText

	if strings.HasPrefix(contentType, "image/") {
		data, err := io.ReadAll(io.LimitReader(file, maxAttachmentSize))
		if err != nil {
			respondError(w, "Failed to read file", http.StatusBadRequest)
			return
		}

		key := fmt.Sprintf("chat/%s/%s%s", convID, uuid.New().String(), path.Ext(header.Filename))
		if err := h.storage.Upload(ctx, key, data, contentType, true); err != nil {
			log.Error().Err(err).Str("conversation_id", convID).Msg("Failed to upload attachment")
			respondError(w, "Failed to upload attachment", http.StatusInternalServerError)
			return
		}

		content = "image:" + h.storage.PublicURL(key)
		msgType = models.MessageTypeMedia
	} else {
		// Non-image attachments carry only a filename marker; the binary
		// itself is not stored.
		content = "file:" + header.Filename
	}

	msg, err := h.chatService.SendMessage(ctx, userID, convID, "", content, msgType)
	if err != nil {
		log.Error().Err(err).Str("user_id", userID).Str("conversation_id", convID).Msg("Failed to send attachment message")
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, msg)
}

// Typing handles POST /api/v1/conversations/{conversation_id}/typing
func (h *ChatHandler) Typing(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)
	convID := chi.URLParam(r, "conversation_id")

	if err := h.chatService.Typing(ctx, userID, convID); err != nil {
		respondServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
