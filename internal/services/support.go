package services

import (
	"context"
	"fmt"
	"time"

	"filmcrew-backend/internal/models"
)

// SupportService handles the directed supports graph between users
type SupportService struct {
	supportRepo SupportStore
	userRepo    UserStore
	now         func() time.Time
}

// NewSupportService creates a new support service. A nil now defaults to
// time.Now.
func NewSupportService(supportRepo SupportStore, userRepo UserStore, now func() time.Time) *SupportService {
	if now == nil {
		now = time.Now
	}
	return &SupportService{
		supportRepo: supportRepo,
		userRepo:    userRepo,
		now:         now,
	}
}

// Support creates a support edge from supporter to supported
func (s *SupportService) Support(ctx context.Context, supporterID, supportedID string) error {
	if supporterID == supportedID {
		return ErrSelfSupport
	}

	if _, err := s.userRepo.GetByID(ctx, supportedID); err != nil {
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	}

	inserted, err := s.supportRepo.Create(ctx, supporterID, supportedID, s.now())
	if err != nil {
		return err
	}
	if !inserted {
		return ErrAlreadySupporting
	}
	return nil
}

// Unsupport removes a support edge
func (s *SupportService) Unsupport(ctx context.Context, supporterID, supportedID string) error {
	deleted, err := s.supportRepo.Delete(ctx, supporterID, supportedID)
	if err != nil {
		return err
	}
	if !deleted {
		return ErrNotSupporting
	}
	return nil
}

// Relationship resolves the tri-state relation between two users from the
// first user's perspective: supporting wins over supported_by when both
// edges exist.
func (s *SupportService) Relationship(ctx context.Context, userID, otherID string) (models.Relationship, error) {
	supporting, err := s.supportRepo.Exists(ctx, userID, otherID)
	if err != nil {
		return "", err
	}
	if supporting {
		return models.RelationshipSupporting, nil
	}

	supportedBy, err := s.supportRepo.Exists(ctx, otherID, userID)
	if err != nil {
		return "", err
	}
	if supportedBy {
		return models.RelationshipSupportedBy, nil
	}

	return models.RelationshipNone, nil
}

// ListSupporting lists who the user supports
func (s *SupportService) ListSupporting(ctx context.Context, userID string) ([]models.Profile, error) {
	return s.supportRepo.ListSupporting(ctx, userID)
}

// ListSupporters lists who supports the user
func (s *SupportService) ListSupporters(ctx context.Context, userID string) ([]models.Profile, error) {
	return s.supportRepo.ListSupporters(ctx, userID)
}
