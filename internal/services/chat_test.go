package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"filmcrew-backend/internal/models"

	"github.com/stretchr/testify/require"
)

func timePtr(t time.Time) *time.Time { return &t }

func newTestChatService(convs *fakeConversationStore, msgs *fakeMessageStore, users *fakeUserStore, cities *fakeCityStore, hub *fakeHub, pusher Pusher, clock *fakeClock) *ChatService {
	var now func() time.Time
	if clock != nil {
		now = clock.Now
	}
	return NewChatService(convs, msgs, users, cities, hub, pusher, now)
}

func TestSortConversations(t *testing.T) {
	base := time.Date(2026, 8, 15, 12, 0, 0, 0, time.UTC)

	convs := []*models.Conversation{
		{ID: "old", LastMessageAt: timePtr(base.Add(-time.Hour)), CreatedAt: base},
		{ID: "silent", CreatedAt: base.Add(time.Hour)},
		{ID: "recent", LastMessageAt: timePtr(base), CreatedAt: base},
	}

	SortConversations(convs)

	require.Equal(t, "recent", convs[0].ID)
	require.Equal(t, "old", convs[1].ID)
	require.Equal(t, "silent", convs[2].ID)
}

func TestSortConversationsStableAcrossFetches(t *testing.T) {
	base := time.Date(2026, 8, 15, 12, 0, 0, 0, time.UTC)

	// Identical timestamps fall back to the id, so two fetches that return
	// rows in different orders still render the same list.
	a := []*models.Conversation{
		{ID: "b", CreatedAt: base},
		{ID: "a", CreatedAt: base},
		{ID: "c", CreatedAt: base},
	}
	b := []*models.Conversation{
		{ID: "c", CreatedAt: base},
		{ID: "b", CreatedAt: base},
		{ID: "a", CreatedAt: base},
	}

	SortConversations(a)
	SortConversations(b)

	for i := range a {
		require.Equal(t, a[i].ID, b[i].ID)
	}
}

func TestStartDirectSelf(t *testing.T) {
	svc := newTestChatService(newFakeConversationStore(), newFakeMessageStore(), newFakeUserStore(), newFakeCityStore(), newFakeHub(), nil, nil)

	_, err := svc.StartDirect(context.Background(), "u1", "u1")
	require.ErrorIs(t, err, ErrSelfConversation)
}

func TestStartDirectUnknownPeer(t *testing.T) {
	svc := newTestChatService(newFakeConversationStore(), newFakeMessageStore(), newFakeUserStore(), newFakeCityStore(), newFakeHub(), nil, nil)

	_, err := svc.StartDirect(context.Background(), "u1", "ghost")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestStartDirectCreatesNormalizedPair(t *testing.T) {
	users := newFakeUserStore(&models.User{ID: "alice"}, &models.User{ID: "bob"})
	svc := newTestChatService(newFakeConversationStore(), newFakeMessageStore(), users, newFakeCityStore(), newFakeHub(), nil, nil)

	conv, err := svc.StartDirect(context.Background(), "bob", "alice")
	require.NoError(t, err)
	require.False(t, conv.IsGroup)
	require.Equal(t, []string{"alice", "bob"}, conv.ParticipantIDs)
}

func TestStartDirectReusesExisting(t *testing.T) {
	users := newFakeUserStore(&models.User{ID: "alice"}, &models.User{ID: "bob"})
	convs := newFakeConversationStore()
	svc := newTestChatService(convs, newFakeMessageStore(), users, newFakeCityStore(), newFakeHub(), nil, nil)

	first, err := svc.StartDirect(context.Background(), "alice", "bob")
	require.NoError(t, err)

	// Either side re-opening the chat lands in the same conversation.
	second, err := svc.StartDirect(context.Background(), "bob", "alice")
	require.NoError(t, err)
	require.Equal(t, first.ID, second.ID)
	require.Len(t, convs.convs, 1)
}

// missingLookupConversationStore drops the direct-pair lookup so every
// StartDirect call falls through to the insert, the way two racing first
// messages do when neither sender's lookup sees the other's row yet.
type missingLookupConversationStore struct {
	*fakeConversationStore
}

func (s *missingLookupConversationStore) FindDirect(ctx context.Context, userAID, userBID string) (*models.Conversation, error) {
	return nil, errors.New("conversation not found")
}

func TestStartDirectConcurrentFirstMessages(t *testing.T) {
	users := newFakeUserStore(&models.User{ID: "alice"}, &models.User{ID: "bob"})
	convs := &missingLookupConversationStore{newFakeConversationStore()}
	svc := NewChatService(convs, newFakeMessageStore(), users, newFakeCityStore(), newFakeHub(), nil, nil)

	// Both sides open the chat before either row is visible to the other's
	// lookup. The pair-keyed insert collapses both into one conversation.
	first, err := svc.StartDirect(context.Background(), "alice", "bob")
	require.NoError(t, err)

	second, err := svc.StartDirect(context.Background(), "bob", "alice")
	require.NoError(t, err)

	require.Equal(t, first.ID, second.ID)
	require.Len(t, convs.convs, 1)
}

func TestJoinCityGroupAnnouncesJoin(t *testing.T) {
	clock := newFakeClock(time.Date(2026, 8, 15, 12, 0, 0, 0, time.UTC))
	users := newFakeUserStore(&models.User{ID: "alice"}, &models.User{ID: "bob"})
	cities := newFakeCityStore(models.City{ID: "c1", Name: "Berlin"})
	convs := newFakeConversationStore()
	hub := newFakeHub()
	svc := newTestChatService(convs, newFakeMessageStore(), users, cities, hub, nil, clock)

	_, err := svc.JoinCityGroup(context.Background(), "alice", "c1")
	require.NoError(t, err)

	// The announcement goes through the regular send path: the snapshot
	// updates so the list reorders, and online members get the broadcast.
	conv, err := svc.JoinCityGroup(context.Background(), "bob", "c1")
	require.NoError(t, err)
	require.NotNil(t, conv.LastMessage)
	require.Equal(t, "joined the conversation", *conv.LastMessage)
	require.True(t, conv.LastMessageAt.Equal(clock.Now()))
	require.Len(t, hub.eventsOfType(EventTypeMessageNew), 1)
	require.Len(t, hub.eventsOfType(EventTypeConversationUpdated), 1)
}

func TestJoinCityGroupIdempotent(t *testing.T) {
	users := newFakeUserStore(&models.User{ID: "alice"}, &models.User{ID: "bob"})
	cities := newFakeCityStore(models.City{ID: "c1", Name: "Berlin"})
	convs := newFakeConversationStore()
	msgs := newFakeMessageStore()
	svc := newTestChatService(convs, msgs, users, cities, newFakeHub(), nil, nil)

	first, err := svc.JoinCityGroup(context.Background(), "alice", "c1")
	require.NoError(t, err)
	require.True(t, first.IsCityGroup)

	second, err := svc.JoinCityGroup(context.Background(), "bob", "c1")
	require.NoError(t, err)
	require.Equal(t, first.ID, second.ID)
	require.ElementsMatch(t, []string{"alice", "bob"}, second.ParticipantIDs)

	// Rejoining adds neither a participant nor a join message.
	again, err := svc.JoinCityGroup(context.Background(), "bob", "c1")
	require.NoError(t, err)
	require.Len(t, again.ParticipantIDs, 2)
	require.Len(t, convs.convs, 1)

	history, err := msgs.ListByConversation(context.Background(), first.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	require.Equal(t, models.MessageTypeSystem, history[0].Type)
}

func TestGetConversationNotParticipant(t *testing.T) {
	convs := newFakeConversationStore(&models.Conversation{ID: "conv1", ParticipantIDs: []string{"alice", "bob"}})
	svc := newTestChatService(convs, newFakeMessageStore(), newFakeUserStore(), newFakeCityStore(), newFakeHub(), nil, nil)

	_, err := svc.GetConversation(context.Background(), "mallory", "conv1")
	require.ErrorIs(t, err, ErrNotParticipant)
}

func TestSendMessageIdempotent(t *testing.T) {
	users := newFakeUserStore(&models.User{ID: "alice"}, &models.User{ID: "bob"})
	convs := newFakeConversationStore(&models.Conversation{ID: "conv1", ParticipantIDs: []string{"alice", "bob"}})
	msgs := newFakeMessageStore()
	hub := newFakeHub()
	svc := newTestChatService(convs, msgs, users, newFakeCityStore(), hub, nil, nil)

	first, err := svc.SendMessage(context.Background(), "alice", "conv1", "msg1", "hello", models.MessageTypeText)
	require.NoError(t, err)

	// A retried send with the same client id returns the original row and
	// triggers no second fan-out.
	second, err := svc.SendMessage(context.Background(), "alice", "conv1", "msg1", "hello", models.MessageTypeText)
	require.NoError(t, err)
	require.Equal(t, first.ID, second.ID)
	require.Equal(t, first.SentAt, second.SentAt)
	require.Len(t, msgs.messages, 1)
	require.Len(t, hub.eventsOfType(EventTypeMessageNew), 1)
}

func TestSendMessageUpdatesSnapshot(t *testing.T) {
	clock := newFakeClock(time.Date(2026, 8, 15, 12, 0, 0, 0, time.UTC))
	users := newFakeUserStore(&models.User{ID: "alice"}, &models.User{ID: "bob"})
	convs := newFakeConversationStore(&models.Conversation{ID: "conv1", ParticipantIDs: []string{"alice", "bob"}})
	hub := newFakeHub()
	svc := newTestChatService(convs, newFakeMessageStore(), users, newFakeCityStore(), hub, nil, clock)

	_, err := svc.SendMessage(context.Background(), "alice", "conv1", "", "hello", models.MessageTypeText)
	require.NoError(t, err)

	conv, err := convs.GetByID(context.Background(), "conv1")
	require.NoError(t, err)
	require.NotNil(t, conv.LastMessage)
	require.Equal(t, "hello", *conv.LastMessage)
	require.True(t, conv.LastMessageAt.Equal(clock.Now()))

	require.Len(t, hub.eventsOfType(EventTypeConversationUpdated), 1)
}

func TestSendMessagePushesOfflineRecipients(t *testing.T) {
	token := "push-token-bob"
	users := newFakeUserStore(
		&models.User{ID: "alice", DisplayName: "Alice"},
		&models.User{ID: "bob", PushToken: &token},
		&models.User{ID: "carol"},
	)
	convs := newFakeConversationStore(&models.Conversation{ID: "conv1", ParticipantIDs: []string{"alice", "bob", "carol"}, IsGroup: true})
	pusher := &fakePusher{}
	// carol is online, bob is not
	hub := newFakeHub("alice", "carol")
	svc := newTestChatService(convs, newFakeMessageStore(), users, newFakeCityStore(), hub, pusher, nil)

	_, err := svc.SendMessage(context.Background(), "alice", "conv1", "", "hello", models.MessageTypeText)
	require.NoError(t, err)

	require.Len(t, pusher.pushes, 1)
	require.Equal(t, token, pusher.pushes[0].Token)
	require.Equal(t, "Alice", pusher.pushes[0].Title)
	require.Equal(t, "hello", pusher.pushes[0].Body)
}

func TestSendMessageMediaPushBody(t *testing.T) {
	token := "push-token-bob"
	users := newFakeUserStore(
		&models.User{ID: "alice", DisplayName: "Alice"},
		&models.User{ID: "bob", PushToken: &token},
	)
	convs := newFakeConversationStore(&models.Conversation{ID: "conv1", ParticipantIDs: []string{"alice", "bob"}})
	pusher := &fakePusher{}
	svc := newTestChatService(convs, newFakeMessageStore(), users, newFakeCityStore(), newFakeHub(), pusher, nil)

	_, err := svc.SendMessage(context.Background(), "alice", "conv1", "", "image:https://x/y.jpg", models.MessageTypeMedia)
	require.NoError(t, err)

	require.Len(t, pusher.pushes, 1)
	require.Equal(t, "Sent an attachment", pusher.pushes[0].Body)
}

func TestListConversationsAnnotates(t *testing.T) {
	avatarURL := "https://x/avatar.jpg"
	cityID := "c1"
	users := newFakeUserStore(
		&models.User{ID: "alice"},
		&models.User{ID: "bob", DisplayName: "Bob", AvatarURL: &avatarURL},
	)
	cities := newFakeCityStore(models.City{ID: cityID, Name: "Berlin"})
	convs := newFakeConversationStore(
		&models.Conversation{ID: "direct", ParticipantIDs: []string{"alice", "bob"}},
		&models.Conversation{ID: "group", IsGroup: true, IsCityGroup: true, CityID: &cityID, ParticipantIDs: []string{"alice", "bob"}},
	)
	svc := newTestChatService(convs, newFakeMessageStore(), users, cities, newFakeHub(), nil, nil)

	entries, err := svc.ListConversations(context.Background(), "alice")
	require.NoError(t, err)
	require.Len(t, entries, 2)

	byID := make(map[string]*ConversationEntry)
	for _, e := range entries {
		byID[e.Conversation.ID] = e
	}

	require.Equal(t, "Bob", byID["direct"].Title)
	require.NotNil(t, byID["direct"].Peer)
	require.Equal(t, &avatarURL, byID["direct"].AvatarURL)

	require.Equal(t, "Berlin", byID["group"].Title)
	require.NotNil(t, byID["group"].City)
	require.Nil(t, byID["group"].Peer)
}

func TestHistoryResolvesSilentParticipants(t *testing.T) {
	users := newFakeUserStore(
		&models.User{ID: "alice", DisplayName: "Alice"},
		&models.User{ID: "bob", DisplayName: "Bob"},
	)
	convs := newFakeConversationStore(&models.Conversation{ID: "conv1", ParticipantIDs: []string{"alice", "bob"}})
	msgs := newFakeMessageStore()
	svc := newTestChatService(convs, msgs, users, newFakeCityStore(), newFakeHub(), nil, nil)

	_, err := svc.SendMessage(context.Background(), "alice", "conv1", "", "hi", models.MessageTypeText)
	require.NoError(t, err)

	history, err := svc.History(context.Background(), "alice", "conv1")
	require.NoError(t, err)
	require.Len(t, history.Messages, 1)
	require.Equal(t, "Alice", history.SenderNames["alice"])
	// bob has not sent anything but still resolves
	require.Equal(t, "Bob", history.SenderNames["bob"])
}

func TestTypingRequiresMembership(t *testing.T) {
	convs := newFakeConversationStore(&models.Conversation{ID: "conv1", ParticipantIDs: []string{"alice", "bob"}})
	hub := newFakeHub()
	svc := newTestChatService(convs, newFakeMessageStore(), newFakeUserStore(), newFakeCityStore(), hub, nil, nil)

	err := svc.Typing(context.Background(), "mallory", "conv1")
	require.ErrorIs(t, err, ErrNotParticipant)
	require.Empty(t, hub.events)

	err = svc.Typing(context.Background(), "alice", "conv1")
	require.NoError(t, err)
	require.True(t, hub.AnyoneTyping("conv1", "bob"))
	require.Len(t, hub.eventsOfType(EventTypeTyping), 1)
}
