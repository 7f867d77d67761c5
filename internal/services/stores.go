package services

import (
	"context"
	"time"

	"filmcrew-backend/internal/models"
)

// Store interfaces consumed by the services. The concrete implementations
// live in internal/repository; tests substitute in-memory fakes.

// UserStore is the persistence surface ChatService and UserService need
// for users.
type UserStore interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	EmailExists(ctx context.Context, email string) (bool, error)
	GetProfilesByIDs(ctx context.Context, ids []string) (map[string]models.Profile, error)
	ListByCity(ctx context.Context, cityID string, limit, offset int) ([]models.Profile, error)
	UpdateProfile(ctx context.Context, userID string, displayName string, avatarURL, cityID *string) error
	UpdatePushToken(ctx context.Context, userID string, pushToken *string) error
	GetPushTokens(ctx context.Context, ids []string) (map[string]string, error)
	AddXP(ctx context.Context, userID string, amount int) (int, error)
	SetLevel(ctx context.Context, userID string, level int) error
	UpgradeTier(ctx context.Context, userID string, tier models.Tier, expiresAt *time.Time) error
}

// ConversationStore is the persistence surface for conversations.
type ConversationStore interface {
	CreateDirect(ctx context.Context, conv *models.Conversation) (*models.Conversation, error)
	GetByID(ctx context.Context, id string) (*models.Conversation, error)
	ListByParticipant(ctx context.Context, userID string) ([]*models.Conversation, error)
	FindDirect(ctx context.Context, userAID, userBID string) (*models.Conversation, error)
	CreateCityGroup(ctx context.Context, conv *models.Conversation) (*models.Conversation, error)
	GetCityGroup(ctx context.Context, cityID string) (*models.Conversation, error)
	AddParticipant(ctx context.Context, convID, userID string) error
	UpdateLastMessage(ctx context.Context, convID, content string, at time.Time) error
}

// MessageStore is the persistence surface for messages.
type MessageStore interface {
	Insert(ctx context.Context, msg *models.Message) (*models.Message, bool, error)
	GetByID(ctx context.Context, id string) (*models.Message, error)
	ListByConversation(ctx context.Context, convID string) ([]*models.Message, error)
	LatestByConversation(ctx context.Context, convID string) (*models.Message, error)
	MarkDelivered(ctx context.Context, id string) error
}

// CityStore is the persistence surface for cities.
type CityStore interface {
	GetByID(ctx context.Context, id string) (*models.City, error)
	GetByIDs(ctx context.Context, ids []string) (map[string]models.City, error)
	SearchByName(ctx context.Context, q string, limit int) ([]models.City, error)
}

// SubmissionStore is the persistence surface for challenge submissions.
type SubmissionStore interface {
	Create(ctx context.Context, sub *models.Submission) error
	GetByID(ctx context.Context, id string) (*models.Submission, error)
	ListByUser(ctx context.Context, userID string) ([]*models.Submission, error)
	Delete(ctx context.Context, id string) error
	IncrementVotes(ctx context.Context, id string) (int, error)
	CountForRange(ctx context.Context, userID string, from, to time.Time) (int, error)
}

// JobStore is the persistence surface for jobs and applications.
type JobStore interface {
	Create(ctx context.Context, job *models.Job) error
	GetByID(ctx context.Context, id string) (*models.Job, error)
	ListOpenByCity(ctx context.Context, cityID string, limit, offset int) ([]*models.Job, error)
	Close(ctx context.Context, jobID string) error
	CreateApplication(ctx context.Context, app *models.Application) (bool, error)
	ListApplicationsByJob(ctx context.Context, jobID string) ([]*models.Application, error)
	HasApplied(ctx context.Context, jobID, applicantID string) (bool, error)
}

// SupportStore is the persistence surface for the supports graph.
type SupportStore interface {
	Create(ctx context.Context, supporterID, supportedID string, at time.Time) (bool, error)
	Delete(ctx context.Context, supporterID, supportedID string) (bool, error)
	Exists(ctx context.Context, supporterID, supportedID string) (bool, error)
	ListSupporting(ctx context.Context, userID string) ([]models.Profile, error)
	ListSupporters(ctx context.Context, userID string) ([]models.Profile, error)
}

// ObjectStorage is the blob storage surface submissions and chat
// attachments use. Implemented by StorageService over S3.
type ObjectStorage interface {
	Upload(ctx context.Context, key string, body []byte, contentType string, upsert bool) error
	Delete(ctx context.Context, key string) error
	PublicURL(key string) string
	SignedURL(ctx context.Context, key string, ttl time.Duration) (string, error)
}
