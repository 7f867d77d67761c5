package services

import (
	"context"
	"fmt"
	"sort"
	"time"

	"filmcrew-backend/internal/models"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// ChatEvents is the realtime surface the chat service publishes to.
// Implemented by WSHub.
type ChatEvents interface {
	BroadcastToParticipants(participantIDs []string, event *Event, excludeID string)
	IsOnline(userID string) bool
	SetTyping(conversationID, userID string)
	AnyoneTyping(conversationID, excludeID string) bool
}

// Pusher delivers push notifications to offline recipients. Implemented
// by NotifyService.
type Pusher interface {
	PushMessage(ctx context.Context, pushToken, title, body string)
}

// ConversationEntry is a conversation annotated with the display data the
// list view needs: a resolved title and avatar, the direct peer, the city
// for city groups, and whether anyone is typing right now.
type ConversationEntry struct {
	*models.Conversation
	Title     string          `json:"title"`
	AvatarURL *string         `json:"avatar_url,omitempty"`
	Peer      *models.Profile `json:"peer,omitempty"`
	City      *models.City    `json:"city,omitempty"`
	Typing    bool            `json:"typing"`
}

// ConversationHistory is a conversation's full message list plus a
// sender-id to display-name lookup covering every participant, including
// those who have not sent anything yet.
type ConversationHistory struct {
	Conversation *models.Conversation `json:"conversation"`
	Messages     []*models.Message    `json:"messages"`
	SenderNames  map[string]string    `json:"sender_names"`
}

// ChatService handles conversations, messages and typing signals
type ChatService struct {
	convRepo ConversationStore
	msgRepo  MessageStore
	userRepo UserStore
	cityRepo CityStore
	hub      ChatEvents
	pusher   Pusher
	now      func() time.Time
}

// NewChatService creates a new chat service. A nil now defaults to
// time.Now; pusher may be nil when push is disabled.
func NewChatService(convRepo ConversationStore, msgRepo MessageStore, userRepo UserStore, cityRepo CityStore, hub ChatEvents, pusher Pusher, now func() time.Time) *ChatService {
	if now == nil {
		now = time.Now
	}
	return &ChatService{
		convRepo: convRepo,
		msgRepo:  msgRepo,
		userRepo: userRepo,
		cityRepo: cityRepo,
		hub:      hub,
		pusher:   pusher,
		now:      now,
	}
}

// SortConversations orders conversations for list display: most recent
// message first, conversations without messages by creation time, ties by
// creation time then id so the order is stable across fetches.
func SortConversations(convs []*models.Conversation) {
	sort.SliceStable(convs, func(i, j int) bool {
		a, b := convs[i], convs[j]
		switch {
		case a.LastMessageAt != nil && b.LastMessageAt != nil:
			if !a.LastMessageAt.Equal(*b.LastMessageAt) {
				return a.LastMessageAt.After(*b.LastMessageAt)
			}
		case a.LastMessageAt != nil:
			return true
		case b.LastMessageAt != nil:
			return false
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID < b.ID
	})
}

// ListConversations returns all conversations the user participates in,
// annotated for display. Peer profiles and city metadata are resolved in
// one batch query each rather than per row.
func (s *ChatService) ListConversations(ctx context.Context, userID string) ([]*ConversationEntry, error) {
	convs, err := s.convRepo.ListByParticipant(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list conversations: %w", err)
	}

	// Backfill the denormalized snapshot for conversations that predate it.
	for _, conv := range convs {
		if conv.LastMessage != nil || conv.LastMessageAt != nil {
			continue
		}
		latest, err := s.msgRepo.LatestByConversation(ctx, conv.ID)
		if err != nil {
			return nil, err
		}
		if latest != nil {
			conv.LastMessage = &latest.Content
			conv.LastMessageAt = &latest.SentAt
		}
	}

	SortConversations(convs)

	var peerIDs, cityIDs []string
	for _, conv := range convs {
		if peer, ok := conv.PeerOf(userID); ok {
			peerIDs = append(peerIDs, peer)
		}
		if conv.IsCityGroup && conv.CityID != nil {
			cityIDs = append(cityIDs, *conv.CityID)
		}
	}

	profiles, err := s.userRepo.GetProfilesByIDs(ctx, peerIDs)
	if err != nil {
		return nil, err
	}
	cities, err := s.cityRepo.GetByIDs(ctx, cityIDs)
	if err != nil {
		return nil, err
	}

	entries := make([]*ConversationEntry, 0, len(convs))
	for _, conv := range convs {
		entry := &ConversationEntry{
			Conversation: conv,
			Typing:       s.hub.AnyoneTyping(conv.ID, userID),
		}

		if peerID, ok := conv.PeerOf(userID); ok {
			if profile, found := profiles[peerID]; found {
				p := profile
				entry.Peer = &p
				entry.Title = p.DisplayName
				entry.AvatarURL = p.AvatarURL
			}
		}

		if conv.IsCityGroup && conv.CityID != nil {
			if city, found := cities[*conv.CityID]; found {
				c := city
				entry.City = &c
				entry.Title = c.Name
			}
		}

		if entry.Title == "" && conv.Name != nil {
			entry.Title = *conv.Name
		}

		entries = append(entries, entry)
	}

	return entries, nil
}

// StartDirect finds or creates the one direct conversation between two
// users. Repeated calls for the same pair return the same conversation.
func (s *ChatService) StartDirect(ctx context.Context, userID, otherID string) (*models.Conversation, error) {
	if userID == otherID {
		return nil, ErrSelfConversation
	}

	if _, err := s.userRepo.GetByID(ctx, otherID); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotFound, err)
	}

	existing, err := s.convRepo.FindDirect(ctx, userID, otherID)
	if err == nil {
		return existing, nil
	}

	// A direct conversation has exactly two participants; normalize the
	// order so the pair always produces the same row. The insert is
	// idempotent on the pair, so two racing first messages collapse into
	// one conversation.
	participants := []string{userID, otherID}
	if participants[0] > participants[1] {
		participants[0], participants[1] = participants[1], participants[0]
	}

	conv, err := s.convRepo.CreateDirect(ctx, &models.Conversation{
		ID:             uuid.New().String(),
		IsGroup:        false,
		ParticipantIDs: participants,
		CreatedAt:      s.now(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create conversation: %w", err)
	}

	return conv, nil
}

// JoinCityGroup joins the user to a city's group conversation, creating
// it on first join. The operation is idempotent and keyed by city id.
func (s *ChatService) JoinCityGroup(ctx context.Context, userID, cityID string) (*models.Conversation, error) {
	city, err := s.cityRepo.GetByID(ctx, cityID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotFound, err)
	}

	name := city.Name
	conv, err := s.convRepo.CreateCityGroup(ctx, &models.Conversation{
		ID:             uuid.New().String(),
		IsGroup:        true,
		IsCityGroup:    true,
		CityID:         &cityID,
		ParticipantIDs: []string{userID},
		Name:           &name,
		CreatedAt:      s.now(),
	})
	if err != nil {
		return nil, err
	}

	if !conv.HasParticipant(userID) {
		if err := s.convRepo.AddParticipant(ctx, conv.ID, userID); err != nil {
			return nil, err
		}
		conv, err = s.convRepo.GetByID(ctx, conv.ID)
		if err != nil {
			return nil, err
		}

		// The join announcement goes through the regular send path so the
		// list snapshot updates and online members see it immediately.
		if _, err := s.SendMessage(ctx, userID, conv.ID, "", "joined the conversation", models.MessageTypeSystem); err != nil {
			log.Warn().Err(err).Str("conversation_id", conv.ID).Msg("Failed to record join message")
		} else if refreshed, err := s.convRepo.GetByID(ctx, conv.ID); err == nil {
			conv = refreshed
		}
	}

	return conv, nil
}

// GetConversation resolves a conversation the user participates in
func (s *ChatService) GetConversation(ctx context.Context, userID, convID string) (*models.Conversation, error) {
	conv, err := s.convRepo.GetByID(ctx, convID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotFound, err)
	}
	if !conv.HasParticipant(userID) {
		return nil, ErrNotParticipant
	}
	return conv, nil
}

// SendMessage stores a message and fans it out. The insert is idempotent
// on the client-supplied message id, so a retried send returns the
// original row instead of appending a duplicate. Online participants get
// the message over their socket; offline ones get a push.
func (s *ChatService) SendMessage(ctx context.Context, userID, convID, messageID, content string, msgType models.MessageType) (*models.Message, error) {
	if content == "" {
		return nil, fmt.Errorf("message content is required")
	}
	switch msgType {
	case models.MessageTypeText, models.MessageTypeSystem, models.MessageTypeMedia:
	default:
		return nil, fmt.Errorf("unknown message type %q", msgType)
	}

	conv, err := s.GetConversation(ctx, userID, convID)
	if err != nil {
		return nil, err
	}

	if messageID == "" {
		messageID = uuid.New().String()
	}

	msg := &models.Message{
		ID:             messageID,
		ConversationID: conv.ID,
		SenderID:       userID,
		Content:        content,
		Type:           msgType,
		SentAt:         s.now(),
	}

	stored, inserted, err := s.msgRepo.Insert(ctx, msg)
	if err != nil {
		return nil, err
	}
	if !inserted {
		// Duplicate of an earlier send; nothing further to do.
		return stored, nil
	}

	if err := s.convRepo.UpdateLastMessage(ctx, conv.ID, stored.Content, stored.SentAt); err != nil {
		log.Warn().Err(err).Str("conversation_id", conv.ID).Msg("Failed to update last-message snapshot")
	}

	s.fanOut(ctx, conv, stored)

	return stored, nil
}

// fanOut delivers a new message to the other participants, realtime for
// online users and push for offline ones. Delivery is best-effort; a
// failed notification never fails the send.
func (s *ChatService) fanOut(ctx context.Context, conv *models.Conversation, msg *models.Message) {
	event, err := NewEvent(EventTypeMessageNew, conv.ID, msg)
	if err != nil {
		log.Error().Err(err).Msg("Failed to build message event")
		return
	}
	s.hub.BroadcastToParticipants(conv.ParticipantIDs, event, msg.SenderID)

	update, err := NewEvent(EventTypeConversationUpdated, conv.ID, map[string]any{
		"last_message":    msg.Content,
		"last_message_at": msg.SentAt,
	})
	if err == nil {
		s.hub.BroadcastToParticipants(conv.ParticipantIDs, update, "")
	}

	if err := s.msgRepo.MarkDelivered(ctx, msg.ID); err != nil {
		log.Warn().Err(err).Str("message_id", msg.ID).Msg("Failed to mark message delivered")
	}

	if s.pusher == nil {
		return
	}

	var offline []string
	for _, id := range conv.ParticipantIDs {
		if id != msg.SenderID && !s.hub.IsOnline(id) {
			offline = append(offline, id)
		}
	}
	if len(offline) == 0 {
		return
	}

	tokens, err := s.userRepo.GetPushTokens(ctx, offline)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to resolve push tokens")
		return
	}

	sender, err := s.userRepo.GetProfilesByIDs(ctx, []string{msg.SenderID})
	title := "New message"
	if err == nil {
		if p, ok := sender[msg.SenderID]; ok {
			title = p.DisplayName
		}
	}

	body := msg.Content
	if msg.Type == models.MessageTypeMedia {
		body = "Sent an attachment"
	}

	for _, token := range tokens {
		s.pusher.PushMessage(ctx, token, title, body)
	}
}

// History loads a conversation's full message history in display order
// plus the sender display-name lookup.
func (s *ChatService) History(ctx context.Context, userID, convID string) (*ConversationHistory, error) {
	conv, err := s.GetConversation(ctx, userID, convID)
	if err != nil {
		return nil, err
	}

	messages, err := s.msgRepo.ListByConversation(ctx, conv.ID)
	if err != nil {
		return nil, err
	}

	// Resolve names from the participant list, not just message senders,
	// so members who have not spoken yet still display correctly.
	profiles, err := s.userRepo.GetProfilesByIDs(ctx, conv.ParticipantIDs)
	if err != nil {
		return nil, err
	}

	names := make(map[string]string, len(profiles))
	for id, p := range profiles {
		names[id] = p.DisplayName
	}

	return &ConversationHistory{
		Conversation: conv,
		Messages:     messages,
		SenderNames:  names,
	}, nil
}

// Typing records a typing signal and broadcasts it to the other
// participants. The signal is ephemeral; it expires in the hub.
func (s *ChatService) Typing(ctx context.Context, userID, convID string) error {
	conv, err := s.GetConversation(ctx, userID, convID)
	if err != nil {
		return err
	}

	s.hub.SetTyping(conv.ID, userID)

	event, err := NewEvent(EventTypeTyping, conv.ID, TypingPayload{UserID: userID})
	if err != nil {
		return err
	}
	s.hub.BroadcastToParticipants(conv.ParticipantIDs, event, userID)

	return nil
}
