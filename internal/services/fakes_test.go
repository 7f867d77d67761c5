package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"filmcrew-backend/internal/models"
)

// In-memory store fakes backing the service tests.

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock(t time.Time) *fakeClock {
	return &fakeClock{t: t}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type fakeUserStore struct {
	users map[string]*models.User
}

func newFakeUserStore(users ...*models.User) *fakeUserStore {
	s := &fakeUserStore{users: make(map[string]*models.User)}
	for _, u := range users {
		s.users[u.ID] = u
	}
	return s
}

func (s *fakeUserStore) Create(ctx context.Context, user *models.User) error {
	s.users[user.ID] = user
	return nil
}

func (s *fakeUserStore) GetByID(ctx context.Context, id string) (*models.User, error) {
	user, ok := s.users[id]
	if !ok {
		return nil, errors.New("user not found")
	}
	return user, nil
}

func (s *fakeUserStore) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	for _, u := range s.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, errors.New("user not found")
}

func (s *fakeUserStore) EmailExists(ctx context.Context, email string) (bool, error) {
	_, err := s.GetByEmail(ctx, email)
	return err == nil, nil
}

func (s *fakeUserStore) GetProfilesByIDs(ctx context.Context, ids []string) (map[string]models.Profile, error) {
	profiles := make(map[string]models.Profile)
	for _, id := range ids {
		if u, ok := s.users[id]; ok {
			profiles[id] = u.PublicProfile()
		}
	}
	return profiles, nil
}

func (s *fakeUserStore) ListByCity(ctx context.Context, cityID string, limit, offset int) ([]models.Profile, error) {
	var profiles []models.Profile
	for _, u := range s.users {
		if u.CityID != nil && *u.CityID == cityID {
			profiles = append(profiles, u.PublicProfile())
		}
	}
	return profiles, nil
}

func (s *fakeUserStore) UpdateProfile(ctx context.Context, userID string, displayName string, avatarURL, cityID *string) error {
	u, ok := s.users[userID]
	if !ok {
		return errors.New("user not found")
	}
	u.DisplayName = displayName
	u.AvatarURL = avatarURL
	u.CityID = cityID
	return nil
}

func (s *fakeUserStore) UpdatePushToken(ctx context.Context, userID string, pushToken *string) error {
	u, ok := s.users[userID]
	if !ok {
		return errors.New("user not found")
	}
	u.PushToken = pushToken
	return nil
}

func (s *fakeUserStore) GetPushTokens(ctx context.Context, ids []string) (map[string]string, error) {
	tokens := make(map[string]string)
	for _, id := range ids {
		if u, ok := s.users[id]; ok && u.PushToken != nil {
			tokens[id] = *u.PushToken
		}
	}
	return tokens, nil
}

func (s *fakeUserStore) AddXP(ctx context.Context, userID string, amount int) (int, error) {
	u, ok := s.users[userID]
	if !ok {
		return 0, errors.New("user not found")
	}
	u.XP += amount
	return u.XP, nil
}

func (s *fakeUserStore) SetLevel(ctx context.Context, userID string, level int) error {
	u, ok := s.users[userID]
	if !ok {
		return errors.New("user not found")
	}
	u.Level = level
	return nil
}

func (s *fakeUserStore) UpgradeTier(ctx context.Context, userID string, tier models.Tier, expiresAt *time.Time) error {
	u, ok := s.users[userID]
	if !ok {
		return errors.New("user not found")
	}
	u.Tier = tier
	u.IsPremium = tier == models.TierPro
	u.PremiumExpiresAt = expiresAt
	return nil
}

type fakeConversationStore struct {
	convs map[string]*models.Conversation
}

func newFakeConversationStore(convs ...*models.Conversation) *fakeConversationStore {
	s := &fakeConversationStore{convs: make(map[string]*models.Conversation)}
	for _, c := range convs {
		s.convs[c.ID] = c
	}
	return s
}

func (s *fakeConversationStore) CreateDirect(ctx context.Context, conv *models.Conversation) (*models.Conversation, error) {
	if existing, err := s.FindDirect(ctx, conv.ParticipantIDs[0], conv.ParticipantIDs[1]); err == nil {
		return existing, nil
	}
	s.convs[conv.ID] = conv
	return conv, nil
}

func (s *fakeConversationStore) GetByID(ctx context.Context, id string) (*models.Conversation, error) {
	conv, ok := s.convs[id]
	if !ok {
		return nil, errors.New("conversation not found")
	}
	return conv, nil
}

func (s *fakeConversationStore) ListByParticipant(ctx context.Context, userID string) ([]*models.Conversation, error) {
	var convs []*models.Conversation
	for _, c := range s.convs {
		if c.HasParticipant(userID) {
			convs = append(convs, c)
		}
	}
	return convs, nil
}

func (s *fakeConversationStore) FindDirect(ctx context.Context, userAID, userBID string) (*models.Conversation, error) {
	for _, c := range s.convs {
		if !c.IsGroup && len(c.ParticipantIDs) == 2 && c.HasParticipant(userAID) && c.HasParticipant(userBID) {
			return c, nil
		}
	}
	return nil, errors.New("conversation not found")
}

func (s *fakeConversationStore) CreateCityGroup(ctx context.Context, conv *models.Conversation) (*models.Conversation, error) {
	for _, c := range s.convs {
		if c.IsCityGroup && c.CityID != nil && conv.CityID != nil && *c.CityID == *conv.CityID {
			return c, nil
		}
	}
	s.convs[conv.ID] = conv
	return conv, nil
}

func (s *fakeConversationStore) GetCityGroup(ctx context.Context, cityID string) (*models.Conversation, error) {
	for _, c := range s.convs {
		if c.IsCityGroup && c.CityID != nil && *c.CityID == cityID {
			return c, nil
		}
	}
	return nil, errors.New("conversation not found")
}

func (s *fakeConversationStore) AddParticipant(ctx context.Context, convID, userID string) error {
	conv, ok := s.convs[convID]
	if !ok {
		return errors.New("conversation not found")
	}
	if !conv.HasParticipant(userID) {
		conv.ParticipantIDs = append(conv.ParticipantIDs, userID)
	}
	return nil
}

func (s *fakeConversationStore) UpdateLastMessage(ctx context.Context, convID, content string, at time.Time) error {
	conv, ok := s.convs[convID]
	if !ok {
		return errors.New("conversation not found")
	}
	conv.LastMessage = &content
	conv.LastMessageAt = &at
	return nil
}

type fakeMessageStore struct {
	messages map[string]*models.Message
	order    []string
}

func newFakeMessageStore() *fakeMessageStore {
	return &fakeMessageStore{messages: make(map[string]*models.Message)}
}

func (s *fakeMessageStore) Insert(ctx context.Context, msg *models.Message) (*models.Message, bool, error) {
	if existing, ok := s.messages[msg.ID]; ok {
		return existing, false, nil
	}
	s.messages[msg.ID] = msg
	s.order = append(s.order, msg.ID)
	return msg, true, nil
}

func (s *fakeMessageStore) GetByID(ctx context.Context, id string) (*models.Message, error) {
	msg, ok := s.messages[id]
	if !ok {
		return nil, errors.New("message not found")
	}
	return msg, nil
}

func (s *fakeMessageStore) ListByConversation(ctx context.Context, convID string) ([]*models.Message, error) {
	var msgs []*models.Message
	for _, id := range s.order {
		if s.messages[id].ConversationID == convID {
			msgs = append(msgs, s.messages[id])
		}
	}
	return msgs, nil
}

func (s *fakeMessageStore) LatestByConversation(ctx context.Context, convID string) (*models.Message, error) {
	var latest *models.Message
	for _, id := range s.order {
		if s.messages[id].ConversationID == convID {
			latest = s.messages[id]
		}
	}
	return latest, nil
}

func (s *fakeMessageStore) MarkDelivered(ctx context.Context, id string) error {
	if msg, ok := s.messages[id]; ok {
		msg.Delivered = true
	}
	return nil
}

type fakeCityStore struct {
	cities map[string]models.City
}

func newFakeCityStore(cities ...models.City) *fakeCityStore {
	s := &fakeCityStore{cities: make(map[string]models.City)}
	for _, c := range cities {
		s.cities[c.ID] = c
	}
	return s
}

func (s *fakeCityStore) GetByID(ctx context.Context, id string) (*models.City, error) {
	city, ok := s.cities[id]
	if !ok {
		return nil, errors.New("city not found")
	}
	return &city, nil
}

func (s *fakeCityStore) GetByIDs(ctx context.Context, ids []string) (map[string]models.City, error) {
	found := make(map[string]models.City)
	for _, id := range ids {
		if city, ok := s.cities[id]; ok {
			found[id] = city
		}
	}
	return found, nil
}

func (s *fakeCityStore) SearchByName(ctx context.Context, q string, limit int) ([]models.City, error) {
	var matches []models.City
	for _, c := range s.cities {
		matches = append(matches, c)
	}
	return matches, nil
}

type fakeSubmissionStore struct {
	submissions map[string]*models.Submission
}

func newFakeSubmissionStore(subs ...*models.Submission) *fakeSubmissionStore {
	s := &fakeSubmissionStore{submissions: make(map[string]*models.Submission)}
	for _, sub := range subs {
		s.submissions[sub.ID] = sub
	}
	return s
}

func (s *fakeSubmissionStore) Create(ctx context.Context, sub *models.Submission) error {
	s.submissions[sub.ID] = sub
	return nil
}

func (s *fakeSubmissionStore) GetByID(ctx context.Context, id string) (*models.Submission, error) {
	sub, ok := s.submissions[id]
	if !ok {
		return nil, errors.New("submission not found")
	}
	return sub, nil
}

func (s *fakeSubmissionStore) ListByUser(ctx context.Context, userID string) ([]*models.Submission, error) {
	var subs []*models.Submission
	for _, sub := range s.submissions {
		if sub.UserID == userID {
			subs = append(subs, sub)
		}
	}
	return subs, nil
}

func (s *fakeSubmissionStore) Delete(ctx context.Context, id string) error {
	if _, ok := s.submissions[id]; !ok {
		return errors.New("submission not found")
	}
	delete(s.submissions, id)
	return nil
}

func (s *fakeSubmissionStore) IncrementVotes(ctx context.Context, id string) (int, error) {
	sub, ok := s.submissions[id]
	if !ok {
		return 0, errors.New("submission not found")
	}
	sub.Votes++
	return sub.Votes, nil
}

func (s *fakeSubmissionStore) CountForRange(ctx context.Context, userID string, from, to time.Time) (int, error) {
	count := 0
	for _, sub := range s.submissions {
		if sub.UserID == userID && !sub.SubmittedAt.Before(from) && sub.SubmittedAt.Before(to) {
			count++
		}
	}
	return count, nil
}

type fakeJobStore struct {
	jobs map[string]*models.Job
	apps map[string]*models.Application // job id + "|" + applicant id
}

func newFakeJobStore(jobs ...*models.Job) *fakeJobStore {
	s := &fakeJobStore{
		jobs: make(map[string]*models.Job),
		apps: make(map[string]*models.Application),
	}
	for _, j := range jobs {
		s.jobs[j.ID] = j
	}
	return s
}

func (s *fakeJobStore) Create(ctx context.Context, job *models.Job) error {
	s.jobs[job.ID] = job
	return nil
}

func (s *fakeJobStore) GetByID(ctx context.Context, id string) (*models.Job, error) {
	job, ok := s.jobs[id]
	if !ok {
		return nil, errors.New("job not found")
	}
	return job, nil
}

func (s *fakeJobStore) ListOpenByCity(ctx context.Context, cityID string, limit, offset int) ([]*models.Job, error) {
	var jobs []*models.Job
	for _, j := range s.jobs {
		if j.CityID == cityID && j.Open {
			jobs = append(jobs, j)
		}
	}
	return jobs, nil
}

func (s *fakeJobStore) Close(ctx context.Context, jobID string) error {
	job, ok := s.jobs[jobID]
	if !ok {
		return errors.New("job not found")
	}
	job.Open = false
	return nil
}

func (s *fakeJobStore) CreateApplication(ctx context.Context, app *models.Application) (bool, error) {
	key := app.JobID + "|" + app.ApplicantID
	if _, ok := s.apps[key]; ok {
		return false, nil
	}
	s.apps[key] = app
	return true, nil
}

func (s *fakeJobStore) ListApplicationsByJob(ctx context.Context, jobID string) ([]*models.Application, error) {
	var apps []*models.Application
	for _, a := range s.apps {
		if a.JobID == jobID {
			apps = append(apps, a)
		}
	}
	return apps, nil
}

func (s *fakeJobStore) HasApplied(ctx context.Context, jobID, applicantID string) (bool, error) {
	_, ok := s.apps[jobID+"|"+applicantID]
	return ok, nil
}

type fakeSupportStore struct {
	edges map[string]time.Time // supporter id + "|" + supported id
	users *fakeUserStore
}

func newFakeSupportStore(users *fakeUserStore) *fakeSupportStore {
	return &fakeSupportStore{edges: make(map[string]time.Time), users: users}
}

func (s *fakeSupportStore) Create(ctx context.Context, supporterID, supportedID string, at time.Time) (bool, error) {
	key := supporterID + "|" + supportedID
	if _, ok := s.edges[key]; ok {
		return false, nil
	}
	s.edges[key] = at
	return true, nil
}

func (s *fakeSupportStore) Delete(ctx context.Context, supporterID, supportedID string) (bool, error) {
	key := supporterID + "|" + supportedID
	if _, ok := s.edges[key]; !ok {
		return false, nil
	}
	delete(s.edges, key)
	return true, nil
}

func (s *fakeSupportStore) Exists(ctx context.Context, supporterID, supportedID string) (bool, error) {
	_, ok := s.edges[supporterID+"|"+supportedID]
	return ok, nil
}

func (s *fakeSupportStore) ListSupporting(ctx context.Context, userID string) ([]models.Profile, error) {
	var profiles []models.Profile
	for key := range s.edges {
		for id, u := range s.users.users {
			if key == userID+"|"+id {
				profiles = append(profiles, u.PublicProfile())
			}
		}
	}
	return profiles, nil
}

func (s *fakeSupportStore) ListSupporters(ctx context.Context, userID string) ([]models.Profile, error) {
	var profiles []models.Profile
	for key := range s.edges {
		for id, u := range s.users.users {
			if key == id+"|"+userID {
				profiles = append(profiles, u.PublicProfile())
			}
		}
	}
	return profiles, nil
}

// fakeHub records broadcasts instead of writing to sockets.
type fakeHub struct {
	events []*Event
	online map[string]bool
	typing map[string]map[string]bool
}

func newFakeHub(onlineIDs ...string) *fakeHub {
	h := &fakeHub{
		online: make(map[string]bool),
		typing: make(map[string]map[string]bool),
	}
	for _, id := range onlineIDs {
		h.online[id] = true
	}
	return h
}

func (h *fakeHub) BroadcastToParticipants(participantIDs []string, event *Event, excludeID string) {
	h.events = append(h.events, event)
}

func (h *fakeHub) IsOnline(userID string) bool {
	return h.online[userID]
}

func (h *fakeHub) SetTyping(conversationID, userID string) {
	users, ok := h.typing[conversationID]
	if !ok {
		users = make(map[string]bool)
		h.typing[conversationID] = users
	}
	users[userID] = true
}

func (h *fakeHub) AnyoneTyping(conversationID, excludeID string) bool {
	for id := range h.typing[conversationID] {
		if id != excludeID {
			return true
		}
	}
	return false
}

func (h *fakeHub) eventsOfType(eventType string) []*Event {
	var matched []*Event
	for _, e := range h.events {
		if e.Type == eventType {
			matched = append(matched, e)
		}
	}
	return matched
}

// fakeStorage records storage calls instead of talking to S3.
type fakeStorage struct {
	uploads map[string][]byte
	deletes []string
	calls   int
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{uploads: make(map[string][]byte)}
}

func (s *fakeStorage) Upload(ctx context.Context, key string, body []byte, contentType string, upsert bool) error {
	s.calls++
	if _, ok := s.uploads[key]; ok && !upsert {
		return errors.New("object already exists")
	}
	s.uploads[key] = body
	return nil
}

func (s *fakeStorage) Delete(ctx context.Context, key string) error {
	s.calls++
	s.deletes = append(s.deletes, key)
	delete(s.uploads, key)
	return nil
}

func (s *fakeStorage) PublicURL(key string) string {
	return "https://storage.test/" + key
}

func (s *fakeStorage) SignedURL(ctx context.Context, key string, ttl time.Duration) (string, error) {
	s.calls++
	return "https://storage.test/signed/" + key, nil
}

type pushRecord struct {
	Token string
	Title string
	Body  string
}

type fakePusher struct {
	pushes []pushRecord
}

func (p *fakePusher) PushMessage(ctx context.Context, pushToken, title, body string) {
	p.pushes = append(p.pushes, pushRecord{Token: pushToken, Title: title, Body: body})
}
